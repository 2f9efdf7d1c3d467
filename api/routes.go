package api

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes mounts every endpoint. Access rules live in the services, so
// every route sees the resolved principal, anonymous included.
func setupRoutes(r chi.Router, handlers *routeHandlers, authMiddleware authMiddleware) {
	r.Get("/health", handlers.healthHandler.health())
	r.Get("/blobs/{bucket}/{key}", handlers.uploadHandler.serveBlob())

	// Auth endpoints
	r.Group(func(r chi.Router) {
		r.Use(ColoredHTTPLoggingMiddleware)
		r.Use(authMiddleware.resolveOptional)

		r.Post("/auth/login", handlers.authHandler.login())
		r.Post("/auth/register", handlers.authHandler.register())
		r.Post("/auth/logout", handlers.authHandler.logout())
		r.Get("/auth/session", handlers.authHandler.session())
	})

	r.Group(func(r chi.Router) {
		r.Use(ColoredHTTPLoggingMiddleware)
		r.Use(authMiddleware.resolve)

		// Post endpoints
		r.Get("/categories", handlers.postHandler.getCategories())
		r.Get("/posts", handlers.postHandler.getPosts())
		r.Post("/posts", handlers.postHandler.createPost())
		r.Get("/posts/{postID}", handlers.postHandler.getPost())
		r.Post("/posts/{postID}/publish", handlers.postHandler.togglePublish())
		r.Post("/posts/{postID}/social/{platform}", handlers.postHandler.publishToSocial())

		// Comment endpoints
		r.Get("/posts/{postID}/comments", handlers.commentHandler.getPostComments())
		r.Post("/posts/{postID}/comments", handlers.commentHandler.addComment())
		r.Get("/comments", handlers.commentHandler.getAllComments())
		r.Put("/comments/{commentID}/status", handlers.commentHandler.updateCommentStatus())

		// User endpoints
		r.Get("/users", handlers.userHandler.getAllUsers())
		r.Post("/users/{userID}/suspension", handlers.userHandler.toggleSuspension())
		r.Put("/users/{userID}/role", handlers.userHandler.updateRole())
		r.Put("/users/{userID}/profile", handlers.userHandler.updateProfile())
		r.Delete("/users/{userID}", handlers.userHandler.deleteUser())

		r.Post("/uploads/{bucket}", handlers.uploadHandler.uploadImage())
	})
}
