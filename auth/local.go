package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/blog-backend/errs"
	"github.com/rpupo63/blog-backend/models"
)

const tokenIssuer = "blogd"

// CredentialFinder looks accounts up by email. database.CredentialRepo
// implements it.
type CredentialFinder interface {
	FindByEmail(ctx context.Context, email string) (models.Credential, error)
}

type claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// LocalProvider signs in against stored bcrypt credentials and issues
// HS256 tokens.
type LocalProvider struct {
	credentials CredentialFinder
	secret      []byte
	ttl         time.Duration
	revocations RevocationStore
	events      *broadcaster
	now         func() time.Time
	logger      zerolog.Logger
}

type LocalOption func(*LocalProvider)

func WithProviderClock(now func() time.Time) LocalOption {
	return func(p *LocalProvider) {
		p.now = now
	}
}

func NewLocalProvider(credentials CredentialFinder, secret string, ttl time.Duration, revocations RevocationStore, opts ...LocalOption) (*LocalProvider, error) {
	if len(secret) < 32 {
		return nil, errs.NewConfigError("AUTH_TOKEN_SECRET", errors.New("must be at least 32 bytes"))
	}
	if revocations == nil {
		revocations = NewMemoryRevocations()
	}

	logger := log.With().Str("component", "authProvider").Logger()
	p := &LocalProvider{
		credentials: credentials,
		secret:      []byte(secret),
		ttl:         ttl,
		revocations: revocations,
		events:      newBroadcaster(logger),
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (Identity, string, error) {
	cred, err := p.credentials.FindByEmail(ctx, email)
	if err != nil {
		if errs.IsNotFound(err) {
			return Identity{}, "", errs.NewInvalidCredentialsError()
		}
		return Identity{}, "", err
	}
	if !checkPassword(cred.PasswordHash, password) {
		return Identity{}, "", errs.NewInvalidCredentialsError()
	}

	identity := Identity{UID: cred.UID.String(), Email: cred.Email}
	if cred.DisplayName != nil {
		identity.DisplayName = *cred.DisplayName
	}

	now := p.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: identity.Email,
		Name:  identity.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity.UID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	})
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return Identity{}, "", errs.NewInternalErrorWithCause("failed to sign token", err)
	}

	p.events.publish(SessionEvent{Kind: SignedIn, Identity: identity, At: now})
	return identity, signed, nil
}

func (p *LocalProvider) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, errs.NewMissingTokenError()
	}

	c, err := p.parse(token, jwt.WithExpirationRequired())
	if err != nil {
		return Identity{}, errs.NewInvalidTokenError(err)
	}

	revoked, err := p.revocations.IsRevoked(ctx, c.ID)
	if err != nil {
		return Identity{}, errs.NewServiceUnavailableError("revocation store", err)
	}
	if revoked {
		return Identity{}, errs.NewRevokedTokenError()
	}

	return identityOf(c), nil
}

// SignOut revokes token until it would have expired. Signing out an
// already expired token succeeds without doing anything.
func (p *LocalProvider) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return errs.NewMissingTokenError()
	}

	c, err := p.parse(token, jwt.WithoutClaimsValidation())
	if err != nil {
		return errs.NewInvalidTokenError(err)
	}
	if c.ExpiresAt == nil || !c.ExpiresAt.After(p.now()) {
		return nil
	}

	if err := p.revocations.Revoke(ctx, c.ID, c.ExpiresAt.Time); err != nil {
		return errs.NewServiceUnavailableError("revocation store", err)
	}

	p.events.publish(SessionEvent{Kind: SignedOut, Identity: identityOf(c), At: p.now()})
	return nil
}

func (p *LocalProvider) Subscribe() (<-chan SessionEvent, func()) {
	return p.events.subscribe()
}

// PruneRevocations drops revocations of tokens that have expired anyway.
func (p *LocalProvider) PruneRevocations(ctx context.Context) (int, error) {
	return p.revocations.Prune(ctx, p.now())
}

func (p *LocalProvider) parse(token string, opts ...jwt.ParserOption) (*claims, error) {
	opts = append(opts,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(p.now),
	)

	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func identityOf(c *claims) Identity {
	return Identity{UID: c.Subject, Email: c.Email, DisplayName: c.Name}
}
