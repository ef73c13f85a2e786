// Package auth is the identity provider: it checks credentials, issues and
// verifies bearer tokens and tells subscribers when sessions start and end.
// Whether an identity may administer content is decided elsewhere.
package auth

import (
	"context"
	"time"
)

type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

type EventKind string

const (
	SignedIn  EventKind = "signed_in"
	SignedOut EventKind = "signed_out"
)

type SessionEvent struct {
	Kind     EventKind
	Identity Identity
	At       time.Time
}

type Provider interface {
	SignIn(ctx context.Context, email, password string) (Identity, string, error)
	SignOut(ctx context.Context, token string) error
	Verify(ctx context.Context, token string) (Identity, error)
	// Subscribe returns a channel of session changes and a function that
	// closes it.
	Subscribe() (<-chan SessionEvent, func())
}
