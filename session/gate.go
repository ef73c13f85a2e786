package session

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/blog-backend/auth"
	"github.com/rpupo63/blog-backend/errs"
	"github.com/rpupo63/blog-backend/models"
)

// AdminStore is the admins collection. database.AdminRepo implements it.
type AdminStore interface {
	FindByUID(ctx context.Context, uid string) (models.Admin, error)
	Provision(ctx context.Context, admin models.Admin) (models.Admin, error)
}

type Options struct {
	// AutoProvision grants admin capability to any identity that signs in
	// without an admin record (trust on first login).
	AutoProvision bool
	// AllowedEmails narrows AutoProvision to these addresses when non-empty.
	AllowedEmails []string
}

type Gate struct {
	provider auth.Provider
	admins   AdminStore
	opts     Options
	allowed  map[string]struct{}
	logger   zerolog.Logger
}

func NewGate(provider auth.Provider, admins AdminStore, opts Options) *Gate {
	allowed := make(map[string]struct{}, len(opts.AllowedEmails))
	for _, email := range opts.AllowedEmails {
		allowed[strings.ToLower(strings.TrimSpace(email))] = struct{}{}
	}

	g := &Gate{
		provider: provider,
		admins:   admins,
		opts:     opts,
		allowed:  allowed,
		logger:   log.With().Str("component", "sessionGate").Logger(),
	}
	if opts.AutoProvision && len(allowed) == 0 {
		g.logger.Warn().Msg("admin auto-provisioning is on without ADMIN_ALLOWED_EMAILS: every account that signs in becomes an admin")
	}
	return g
}

// Login signs the caller in and resolves admin capability. A failed sign-in
// leaves the session Unauthenticated and returns the provider's error.
func (g *Gate) Login(ctx context.Context, email, password string) (*Session, error) {
	sess := &Session{State: Unauthenticated}
	if err := sess.transition(Authenticating); err != nil {
		return sess, err
	}

	identity, token, err := g.provider.SignIn(ctx, email, password)
	if err != nil {
		sess.reset()
		return sess, err
	}

	if err := g.authenticate(sess, identity, token); err != nil {
		return sess, err
	}
	if err := g.authorize(ctx, sess); err != nil {
		return sess, err
	}

	g.logger.Info().Str("uid", sess.UID).Str("state", sess.State.String()).Msg("login")
	return sess, nil
}

// Resolve builds the session of an incoming request from its bearer token.
// Missing or invalid tokens yield an Unauthenticated session and the error.
func (g *Gate) Resolve(ctx context.Context, token string) (*Session, error) {
	sess := &Session{State: Unauthenticated}

	identity, err := g.provider.Verify(ctx, token)
	if err != nil {
		return sess, err
	}
	if err := g.authenticate(sess, identity, token); err != nil {
		return sess, err
	}
	if err := g.authorize(ctx, sess); err != nil {
		return sess, err
	}
	return sess, nil
}

// Logout revokes token and returns the session to Unauthenticated.
func (g *Gate) Logout(ctx context.Context, token string) (*Session, error) {
	sess := &Session{State: Unauthenticated}
	if err := g.provider.SignOut(ctx, token); err != nil {
		return sess, err
	}
	return sess, nil
}

// Run follows the provider's session changes until ctx is done.
func (g *Gate) Run(ctx context.Context) error {
	events, unsubscribe := g.provider.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev.Kind {
			case auth.SignedOut:
				g.logger.Info().Str("uid", ev.Identity.UID).Msg("signed out")
			case auth.SignedIn:
				g.logger.Debug().Str("uid", ev.Identity.UID).Msg("signed in")
			}
		}
	}
}

func (g *Gate) authenticate(sess *Session, identity auth.Identity, token string) error {
	if err := sess.transition(Authenticated); err != nil {
		return err
	}
	sess.UID = identity.UID
	sess.Email = identity.Email
	sess.DisplayName = identity.DisplayName
	sess.Token = token
	return nil
}

func (g *Gate) authorize(ctx context.Context, sess *Session) error {
	isAdmin, err := g.isAdmin(ctx, sess)
	if err != nil {
		return err
	}
	if isAdmin {
		return sess.transition(Authorized)
	}
	return sess.transition(Unauthorized)
}

// isAdmin reads the admin record on every call, so grants and revocations
// apply to tokens already issued.
func (g *Gate) isAdmin(ctx context.Context, sess *Session) (bool, error) {
	admin, err := g.admins.FindByUID(ctx, sess.UID)
	switch {
	case err == nil:
	case errs.IsNotFound(err) && g.mayProvision(sess.Email):
		admin, err = g.admins.Provision(ctx, models.Admin{
			UID:         sess.UID,
			Email:       sess.Email,
			DisplayName: optional(sess.DisplayName),
			IsAdmin:     true,
		})
		if err != nil {
			return false, err
		}
		g.logger.Warn().Str("uid", sess.UID).Str("email", sess.Email).Msg("provisioned admin on first login")
	case errs.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}

	return admin.IsAdmin, nil
}

func (g *Gate) mayProvision(email string) bool {
	if !g.opts.AutoProvision {
		return false
	}
	if len(g.allowed) == 0 {
		return true
	}
	_, ok := g.allowed[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
