package api

import (
	"context"

	"github.com/rpupo63/blog-backend/session"
)

type keyType string

const sessionKey keyType = "session"

// ctxWithSession stores the resolved admin session on the request context.
func ctxWithSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// ctxGetSession returns the session stored by the admin middleware, or an
// unauthenticated one.
func ctxGetSession(ctx context.Context) *session.Session {
	if sess, ok := ctx.Value(sessionKey).(*session.Session); ok {
		return sess
	}
	return &session.Session{State: session.Unauthenticated}
}
