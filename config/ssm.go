package config

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
)

const KeySSMParameterPath = "SSM_PARAMETER_PATH"

// LoadSSM overlays every parameter under parameterPath on cfg. The last path
// segment, upper-cased, becomes the key. Values already present in cfg win.
func LoadSSM(ctx context.Context, cfg map[string]string, parameterPath string) (int, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading aws config: %w", err)
	}
	return OverlaySSM(ctx, ssm.NewFromConfig(awsCfg), cfg, parameterPath)
}

// OverlaySSM pages through GetParametersByPath using client. It returns the
// number of keys written into cfg.
func OverlaySSM(ctx context.Context, client ssm.GetParametersByPathAPIClient, cfg map[string]string, parameterPath string) (int, error) {
	logger := log.With().Str("component", "ssm").Str("path", parameterPath).Logger()

	paginator := ssm.NewGetParametersByPathPaginator(client, &ssm.GetParametersByPathInput{
		Path:           aws.String(parameterPath),
		Recursive:      aws.Bool(true),
		WithDecryption: aws.Bool(true),
	})

	written := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return written, fmt.Errorf("reading ssm parameters under %s: %w", parameterPath, err)
		}
		for _, p := range page.Parameters {
			key := ParameterKey(aws.ToString(p.Name))
			if key == "" {
				continue
			}
			if existing, ok := cfg[key]; ok && existing != "" {
				logger.Debug().Str("key", key).Msg("environment overrides ssm parameter")
				continue
			}
			cfg[key] = aws.ToString(p.Value)
			written++
		}
	}

	logger.Info().Int("parameters", written).Msg("ssm parameters loaded")
	return written, nil
}

// ParameterKey maps "/nexusnews/prod/supabase_url" to "SUPABASE_URL".
func ParameterKey(name string) string {
	base := path.Base(strings.TrimRight(name, "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.ToUpper(strings.ReplaceAll(base, "-", "_"))
}
