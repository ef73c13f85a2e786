package session

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rpupo63/blog-backend/auth"
	"github.com/rpupo63/blog-backend/errs"
	"github.com/rpupo63/blog-backend/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeProvider struct {
	accounts map[string]auth.Identity // email -> identity, password is always "pw"
	events   chan auth.SessionEvent
	revoked  map[string]bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		accounts: map[string]auth.Identity{
			"owner@example.com":    {UID: "uid-owner", Email: "owner@example.com"},
			"stranger@example.com": {UID: "uid-stranger", Email: "stranger@example.com"},
		},
		events:  make(chan auth.SessionEvent, 4),
		revoked: map[string]bool{},
	}
}

func (p *fakeProvider) SignIn(_ context.Context, email, password string) (auth.Identity, string, error) {
	identity, ok := p.accounts[email]
	if !ok || password != "pw" {
		return auth.Identity{}, "", errs.NewInvalidCredentialsError()
	}
	return identity, "token-" + identity.UID, nil
}

func (p *fakeProvider) SignOut(_ context.Context, token string) error {
	p.revoked[token] = true
	return nil
}

func (p *fakeProvider) Verify(_ context.Context, token string) (auth.Identity, error) {
	if token == "" {
		return auth.Identity{}, errs.NewMissingTokenError()
	}
	if p.revoked[token] {
		return auth.Identity{}, errs.NewRevokedTokenError()
	}
	for _, identity := range p.accounts {
		if token == "token-"+identity.UID {
			return identity, nil
		}
	}
	return auth.Identity{}, errs.NewInvalidTokenError(errors.New("unknown token"))
}

func (p *fakeProvider) Subscribe() (<-chan auth.SessionEvent, func()) {
	return p.events, func() {}
}

type memoryAdmins struct {
	mu         sync.Mutex
	admins     map[string]models.Admin
	provisions int
}

func (m *memoryAdmins) FindByUID(_ context.Context, uid string) (models.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	admin, ok := m.admins[uid]
	if !ok {
		return models.Admin{}, errs.NewNotFound("admin")
	}
	return admin, nil
}

func (m *memoryAdmins) Provision(_ context.Context, admin models.Admin) (models.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.provisions++
	if existing, ok := m.admins[admin.UID]; ok {
		return existing, nil
	}
	m.admins[admin.UID] = admin
	return admin, nil
}

func TestLogin_ExistingAdminIsAuthorized(t *testing.T) {
	admins := &memoryAdmins{admins: map[string]models.Admin{"uid-owner": {UID: "uid-owner", IsAdmin: true}}}
	gate := NewGate(newFakeProvider(), admins, Options{})

	sess, err := gate.Login(context.Background(), "owner@example.com", "pw")

	require.NoError(t, err)
	assert.Equal(t, Authorized, sess.State)
	assert.True(t, sess.IsAdmin())
	assert.Equal(t, "token-uid-owner", sess.Token)
}

func TestLogin_WithoutRecordIsUnauthorized(t *testing.T) {
	admins := &memoryAdmins{admins: map[string]models.Admin{}}
	gate := NewGate(newFakeProvider(), admins, Options{AutoProvision: false})

	sess, err := gate.Login(context.Background(), "stranger@example.com", "pw")

	require.NoError(t, err)
	assert.Equal(t, Unauthorized, sess.State)
	assert.Zero(t, admins.provisions)
}

func TestLogin_RevokedAdminFlagIsUnauthorized(t *testing.T) {
	admins := &memoryAdmins{admins: map[string]models.Admin{"uid-owner": {UID: "uid-owner", IsAdmin: false}}}
	gate := NewGate(newFakeProvider(), admins, Options{AutoProvision: true})

	sess, err := gate.Login(context.Background(), "owner@example.com", "pw")

	require.NoError(t, err)
	assert.Equal(t, Unauthorized, sess.State)
}

func TestLogin_FailedSignInReturnsToUnauthenticated(t *testing.T) {
	gate := NewGate(newFakeProvider(), &memoryAdmins{admins: map[string]models.Admin{}}, Options{})

	sess, err := gate.Login(context.Background(), "owner@example.com", "nope")

	assert.True(t, errs.IsInvalidCredentialsError(err))
	assert.Equal(t, Unauthenticated, sess.State)
	assert.Empty(t, sess.UID)
}

func TestLogin_AutoProvisionIsIdempotent(t *testing.T) {
	admins := &memoryAdmins{admins: map[string]models.Admin{}}
	gate := NewGate(newFakeProvider(), admins, Options{AutoProvision: true})
	ctx := context.Background()

	first, err := gate.Login(ctx, "stranger@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, Authorized, first.State)

	second, err := gate.Login(ctx, "stranger@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, Authorized, second.State)

	assert.Equal(t, 1, admins.provisions)
	assert.Equal(t, "stranger@example.com", admins.admins["uid-stranger"].Email)
}

func TestLogin_AllowListNarrowsAutoProvision(t *testing.T) {
	admins := &memoryAdmins{admins: map[string]models.Admin{}}
	gate := NewGate(newFakeProvider(), admins, Options{AutoProvision: true, AllowedEmails: []string{" Owner@Example.com "}})
	ctx := context.Background()

	owner, err := gate.Login(ctx, "owner@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, Authorized, owner.State)

	stranger, err := gate.Login(ctx, "stranger@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, Unauthorized, stranger.State)
}

func TestResolveAndLogout(t *testing.T) {
	provider := newFakeProvider()
	admins := &memoryAdmins{admins: map[string]models.Admin{"uid-owner": {UID: "uid-owner", IsAdmin: true}}}
	gate := NewGate(provider, admins, Options{})
	ctx := context.Background()

	sess, err := gate.Resolve(ctx, "")
	assert.True(t, errs.IsMissingTokenError(err))
	assert.Equal(t, Unauthenticated, sess.State)

	sess, err = gate.Resolve(ctx, "token-uid-owner")
	require.NoError(t, err)
	assert.Equal(t, Authorized, sess.State)

	sess, err = gate.Logout(ctx, "token-uid-owner")
	require.NoError(t, err)
	assert.Equal(t, Unauthenticated, sess.State)

	_, err = gate.Resolve(ctx, "token-uid-owner")
	assert.True(t, errs.IsInvalidTokenError(err))
}

func TestNewGate_WarnsOnceForOpenAutoProvisioning(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	NewGate(newFakeProvider(), &memoryAdmins{admins: map[string]models.Admin{}}, Options{AutoProvision: true})
	assert.Equal(t, 1, strings.Count(buf.String(), "auto-provisioning is on"))

	buf.Reset()
	NewGate(newFakeProvider(), &memoryAdmins{admins: map[string]models.Admin{}}, Options{
		AutoProvision: true,
		AllowedEmails: []string{"owner@example.com"},
	})
	assert.NotContains(t, buf.String(), "auto-provisioning is on")
}

func TestResolve_FollowsAdminRecordChanges(t *testing.T) {
	ctx := context.Background()
	admins := &memoryAdmins{admins: map[string]models.Admin{"uid-owner": {UID: "uid-owner", IsAdmin: true}}}
	gate := NewGate(newFakeProvider(), admins, Options{})

	sess, err := gate.Resolve(ctx, "token-uid-owner")
	require.NoError(t, err)
	assert.Equal(t, Authorized, sess.State)

	admins.mu.Lock()
	admins.admins["uid-owner"] = models.Admin{UID: "uid-owner", IsAdmin: false}
	admins.mu.Unlock()

	sess, err = gate.Resolve(ctx, "token-uid-owner")
	require.NoError(t, err)
	assert.Equal(t, Unauthorized, sess.State)

	admins.mu.Lock()
	admins.admins["uid-owner"] = models.Admin{UID: "uid-owner", IsAdmin: true}
	admins.mu.Unlock()

	sess, err = gate.Resolve(ctx, "token-uid-owner")
	require.NoError(t, err)
	assert.Equal(t, Authorized, sess.State)
}

func TestResolve_GrantAfterUnauthorizedLogin(t *testing.T) {
	ctx := context.Background()
	admins := &memoryAdmins{admins: map[string]models.Admin{}}
	gate := NewGate(newFakeProvider(), admins, Options{AutoProvision: false})

	sess, err := gate.Login(ctx, "stranger@example.com", "pw")
	require.NoError(t, err)
	require.Equal(t, Unauthorized, sess.State)

	_, err = admins.Provision(ctx, models.Admin{UID: sess.UID, Email: sess.Email, IsAdmin: true})
	require.NoError(t, err)

	sess, err = gate.Resolve(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, Authorized, sess.State)
}

func TestRun_DrainsEventsUntilCancelled(t *testing.T) {
	provider := newFakeProvider()
	gate := NewGate(provider, &memoryAdmins{admins: map[string]models.Admin{}}, Options{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error)
	go func() { done <- gate.Run(ctx) }()

	provider.events <- auth.SessionEvent{Kind: auth.SignedIn, Identity: auth.Identity{UID: "uid-owner"}}
	provider.events <- auth.SessionEvent{Kind: auth.SignedOut, Identity: auth.Identity{UID: "uid-owner"}}
	assert.Eventually(t, func() bool {
		return len(provider.events) == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestSessionTransitions(t *testing.T) {
	sess := &Session{State: Unauthenticated}
	assert.Error(t, sess.transition(Authorized))
	require.NoError(t, sess.transition(Authenticating))
	require.NoError(t, sess.transition(Authenticated))
	require.NoError(t, sess.transition(Unauthorized))
	assert.Error(t, sess.transition(Authorized))
	require.NoError(t, sess.transition(Unauthenticated))

	text, err := Authorized.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "authorized", string(text))

	var parsed State
	require.NoError(t, parsed.UnmarshalText([]byte("unauthorized")))
	assert.Equal(t, Unauthorized, parsed)
	assert.Error(t, parsed.UnmarshalText([]byte("superuser")))
}
