package api

import (
	"context"

	"github.com/rpupo63/nexusnews-backend/auth"
)

type keyType string

const (
	principalKey   keyType = "principal"
	accessTokenKey keyType = "accessToken"
)

func ctxWithPrincipal(ctx context.Context, p auth.Principal, accessToken string) context.Context {
	ctx = context.WithValue(ctx, principalKey, p)
	return context.WithValue(ctx, accessTokenKey, accessToken)
}

// ctxGetPrincipal returns the principal resolved by the auth middleware, or
// Anonymous when the request never passed through it.
func ctxGetPrincipal(ctx context.Context) auth.Principal {
	if p, ok := ctx.Value(principalKey).(auth.Principal); ok {
		return p
	}
	return auth.Anonymous
}

func ctxGetAccessToken(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey).(string)
	return token
}
