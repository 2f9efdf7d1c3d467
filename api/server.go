package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rpupo63/nexusnews-backend/config"
	"github.com/rs/zerolog/log"
)

type Server struct {
	*http.Server
	startupTime time.Time
}

func NewServer(c map[string]string, deps Deps) (Server, error) {
	if deps.Services == nil || deps.Services.Auth == nil {
		return Server{}, fmt.Errorf("api: services are required")
	}

	port := config.GetString(c, "PORT", "8080")
	address := fmt.Sprintf("0.0.0.0:%s", port)

	if deps.StartupTime.IsZero() {
		deps.StartupTime = time.Now()
	}
	if deps.PageSize <= 0 {
		deps.PageSize = config.GetInt(c, "PAGE_SIZE", 5)
	}

	router := newRouter(deps, config.GetList(c, "ACCEPTED_ORIGINS"))

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  config.GetDuration(c, "READ_TIMEOUT_SECONDS", 60*time.Second),
		WriteTimeout: config.GetDuration(c, "WRITE_TIMEOUT_SECONDS", 60*time.Second),
		IdleTimeout:  config.GetDuration(c, "IDLE_TIMEOUT_SECONDS", 120*time.Second),
	}

	return Server{server, deps.StartupTime}, nil
}

func newRouter(deps Deps, acceptedOrigins []string) *chi.Mux {
	chiRouter := chi.NewRouter()
	chiRouter.Use(LogInternalServerErrors)

	if len(acceptedOrigins) > 0 {
		chiRouter.Use(CORSCheckMiddleware(acceptedOrigins))
		chiRouter.Use(corsMiddleware(acceptedOrigins))
	}

	handlers := initializeHandlers(deps)
	setupRoutes(chiRouter, handlers, newAuthMiddleware(deps.Services.Auth))

	return chiRouter
}

func (s Server) Start(errChannel chan<- error) {
	log.Info().Msgf("Server started on: %s", s.Addr)
	errChannel <- s.ListenAndServe()
}

func (s Server) ShutdownGracefully(timeout time.Duration) {
	log.Info().Msg("Gracefully shutting down...")

	gracefullCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Shutdown(gracefullCtx); err != nil {
		log.Error().Msgf("Error shutting down the server: %v", err)
	} else {
		log.Info().Msg("HttpServer gracefully shut down")
	}
}
