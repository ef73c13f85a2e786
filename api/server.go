package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/blog-backend/config"
	"github.com/rpupo63/blog-backend/content"
	"github.com/rpupo63/blog-backend/engagement"
	"github.com/rpupo63/blog-backend/session"
)

// Deps are the components the HTTP surface serves. Uploader and Pinger may
// be nil.
type Deps struct {
	Gateway  *content.Gateway
	Queries  *content.Queries
	Tracker  *engagement.Tracker
	Gate     *session.Gate
	Uploader Uploader
	Pinger   Pinger
}

type Server struct {
	*http.Server
	startupTime time.Time
}

func NewServer(c map[string]string, deps Deps) (Server, error) {
	port := config.GetString(c, "PORT", "8080")
	address := fmt.Sprintf("0.0.0.0:%s", port) // Bind to 0.0.0.0 for external access

	startupTime := time.Now()

	router := NewRouter(deps, withConfig(c), withStartupTime(startupTime))

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  config.GetSeconds(c, "READ_TIMEOUT_SECONDS", 180*time.Second),
		WriteTimeout: config.GetSeconds(c, "WRITE_TIMEOUT_SECONDS", 180*time.Second),
		IdleTimeout:  config.GetSeconds(c, "IDLE_TIMEOUT_SECONDS", 180*time.Second),
	}

	return Server{server, startupTime}, nil
}

type router struct {
	config       map[string]string
	startupTime  time.Time
	secureCookie bool
	sessionTTL   time.Duration
	logFormat    string
}

type RouterOption func(*router)

func withConfig(c map[string]string) RouterOption {
	return func(r *router) {
		r.config = c
	}
}

func withStartupTime(startupTime time.Time) RouterOption {
	return func(r *router) {
		r.startupTime = startupTime
	}
}

// NewRouter builds the chi router serving deps. Settings come from the
// config passed with withConfig: ACCEPTED_ORIGINS, COOKIE_SECURE,
// AUTH_TOKEN_TTL_MINUTES and LOG_FORMAT.
func NewRouter(deps Deps, opts ...RouterOption) *chi.Mux {
	r := router{config: map[string]string{}, startupTime: time.Now()}
	for _, opt := range opts {
		opt(&r)
	}
	r.secureCookie = config.GetBool(r.config, "COOKIE_SECURE", true)
	r.sessionTTL = time.Duration(config.GetInt(r.config, "AUTH_TOKEN_TTL_MINUTES", 720)) * time.Minute
	r.logFormat = config.GetString(r.config, "LOG_FORMAT", "console")

	chiRouter := chi.NewRouter()
	chiRouter.Use(LogInternalServerErrors)

	acceptedOrigins := config.GetList(r.config, "ACCEPTED_ORIGINS")
	chiRouter.Use(CORSCheckMiddleware(acceptedOrigins))
	chiRouter.Use(corsMiddleware(acceptedOrigins))

	handlers := initializeHandlers(deps, &r)
	setupRoutes(chiRouter, handlers, newAuthMiddleware(deps.Gate), r.logFormat)

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
