package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/blog-backend/errs"
	"github.com/rpupo63/blog-backend/session"
)

type authHandler struct {
	responder    Responder
	logger       zerolog.Logger
	gate         *session.Gate
	secureCookie bool
	cookieTTL    time.Duration
}

func newAuthHandler(gate *session.Gate, secureCookie bool, cookieTTL time.Duration) authHandler {
	logger := log.With().Str("handlerName", "authHandler").Logger()

	return authHandler{
		responder:    NewResponder(logger),
		logger:       logger,
		gate:         gate,
		secureCookie: secureCookie,
		cookieTTL:    cookieTTL,
	}
}

func (h authHandler) setCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// login signs an account in and reports whether it may administer the blog.
// @Router /auth/login [post]
func (h authHandler) login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := decodeJSON(w, r, "login", &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if req.Email == "" {
			h.responder.WriteError(w, errs.NewMissingRequiredFieldError("email"))
			return
		}
		if req.Password == "" {
			h.responder.WriteError(w, errs.NewMissingRequiredFieldError("password"))
			return
		}

		sess, err := h.gate.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			h.responder.WriteErrorWith(w, err, map[string]any{"state": sess.State})
			return
		}

		h.setCookie(w, sess.Token, int(h.cookieTTL.Seconds()))
		h.responder.WriteJSON(w, newSessionResponse(sess, true))
	}
}

// logout revokes the caller's token.
// @Router /auth/logout [post]
func (h authHandler) logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			h.responder.WriteError(w, errs.NewMissingTokenError())
			return
		}

		sess, err := h.gate.Logout(r.Context(), token)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.setCookie(w, "", -1)
		h.responder.WriteJSON(w, newSessionResponse(sess, false))
	}
}

// getSession reports the gate state of the caller's token. No token is an
// unauthenticated session, not an error.
// @Router /auth/session [get]
func (h authHandler) getSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			h.responder.WriteJSON(w, newSessionResponse(&session.Session{State: session.Unauthenticated}, false))
			return
		}

		sess, err := h.gate.Resolve(r.Context(), token)
		if err != nil {
			h.responder.WriteErrorWith(w, err, map[string]any{"state": sess.State})
			return
		}
		h.responder.WriteJSON(w, newSessionResponse(sess, false))
	}
}
