package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/blog-backend/errs"
)

// initializeHandlers creates and returns all handlers organized in a routeHandlers struct
func initializeHandlers(deps Deps, r *router) *routeHandlers {
	return &routeHandlers{
		blogHandler:   newBlogHandler(deps.Queries, deps.Tracker),
		authHandler:   newAuthHandler(deps.Gate, r.secureCookie, r.sessionTTL),
		adminHandler:  newAdminHandler(deps.Gateway, deps.Queries, deps.Uploader),
		healthHandler: newHealthHandler(deps.Pinger, r.startupTime),
	}
}

// Pinger reports whether the store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthHandler struct {
	responder   Responder
	logger      zerolog.Logger
	pinger      Pinger
	startupTime time.Time
}

func newHealthHandler(pinger Pinger, startupTime time.Time) healthHandler {
	logger := log.With().Str("handlerName", "healthHandler").Logger()
	return healthHandler{
		responder:   NewResponder(logger),
		logger:      logger,
		pinger:      pinger,
		startupTime: startupTime,
	}
}

// @Router /healthz [get]
func (h healthHandler) healthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:   "ok",
			Database: "ok",
			Uptime:   time.Since(h.startupTime).Round(time.Second).String(),
		}

		if h.pinger != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := h.pinger.Ping(ctx); err != nil {
				h.logger.Warn().Err(err).Msg("database ping failed")
				h.responder.WriteErrorWith(w, errs.NewServiceUnavailableError("database", err), map[string]any{
					"database": "unavailable",
					"uptime":   resp.Uptime,
				})
				return
			}
		}

		h.responder.WriteJSON(w, resp)
	}
}
