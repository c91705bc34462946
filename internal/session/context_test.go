package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/mitra-marketplace/internal/auth"
	"github.com/spec-kit/mitra-marketplace/internal/domain"
)

type fakeAuthClient struct {
	mu           sync.Mutex
	session      *domain.Session
	err          error
	gate         chan struct{}
	signOuts     int
	signOutErr   error
	listener     func(AuthEvent, *domain.Session)
	unsubscribed bool
}

func (f *fakeAuthClient) GetSession(ctx context.Context) (*domain.Session, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, f.err
}

func (f *fakeAuthClient) SignOut(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOuts++
	f.session = nil
	return f.signOutErr
}

func (f *fakeAuthClient) OnAuthStateChange(fn func(AuthEvent, *domain.Session)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listener = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.unsubscribed = true
		f.listener = nil
	}
}

func (f *fakeAuthClient) emit(event AuthEvent, sess *domain.Session) {
	f.mu.Lock()
	fn := f.listener
	f.mu.Unlock()
	if fn != nil {
		fn(event, sess)
	}
}

type fakeRoles struct {
	mu       sync.Mutex
	roles    map[string]domain.Role
	err      error
	gates    map[string]chan struct{}
	started  chan string
	finished chan lookupResult
}

type lookupResult struct {
	userID string
	role   domain.Role
	err    error
}

func newFakeRoles(roles map[string]domain.Role) *fakeRoles {
	return &fakeRoles{roles: roles, gates: map[string]chan struct{}{}, started: make(chan string, 8), finished: make(chan lookupResult, 8)}
}

func (f *fakeRoles) hold(userID string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.gates[userID] = gate
	return gate
}

func (f *fakeRoles) GetRole(ctx context.Context, userID string) (role domain.Role, err error) {
	defer func() {
		select {
		case f.finished <- lookupResult{userID: userID, role: role, err: err}:
		default:
		}
	}()
	f.mu.Lock()
	gate := f.gates[userID]
	f.mu.Unlock()
	f.started <- userID
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	role, ok := f.roles[userID]
	if !ok {
		return "", errors.New("role not found")
	}
	return role, nil
}

func liveSession(userID string) *domain.Session {
	return &domain.Session{
		ID:        "sess-" + userID,
		UserID:    userID,
		Email:     userID + "@example.com",
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func startContext(t *testing.T, client *fakeAuthClient, roles *fakeRoles) *Context {
	t.Helper()
	c := New(client, roles, nil)
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(c.Close)
	return c
}

func waitSettled(t *testing.T, c *Context) domain.SessionState {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	state, err := c.WaitSettled(ctx)
	require.NoError(t, err)
	return state
}

func awaitLookup(t *testing.T, roles *fakeRoles, userID string) {
	t.Helper()
	select {
	case got := <-roles.started:
		require.Equal(t, userID, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("role lookup for %s never started", userID)
	}
}

func TestNew_StartsLoading(t *testing.T) {
	c := New(&fakeAuthClient{}, newFakeRoles(nil), nil)

	state := c.Snapshot()
	assert.True(t, state.Loading)
	assert.Nil(t, state.Identity)
	assert.Equal(t, auth.DecisionWait, c.Decide([]domain.Role{domain.RoleAdmin}, "/admin").Kind)
}

func TestStart_ResolvesIdentityThenRole(t *testing.T) {
	client := &fakeAuthClient{session: liveSession("u-admin")}
	roles := newFakeRoles(map[string]domain.Role{"u-admin": domain.RoleAdmin})
	c := startContext(t, client, roles)

	state := waitSettled(t, c)
	require.NotNil(t, state.Identity)
	assert.Equal(t, "u-admin", state.Identity.ID)
	assert.Equal(t, domain.ResolvedRole(domain.RoleAdmin), state.Role)
	assert.Equal(t, auth.DecisionAllow, c.Decide([]domain.Role{domain.RoleAdmin}, "/admin").Kind)

	mitraOnly := c.Decide([]domain.Role{domain.RoleMitra}, "/mitra")
	assert.Equal(t, auth.DecisionRedirectHome, mitraOnly.Kind)
	assert.Equal(t, "/admin", mitraOnly.Location)
}

func TestStart_IdentityKnownWhileRolePending(t *testing.T) {
	client := &fakeAuthClient{session: liveSession("u-1")}
	roles := newFakeRoles(map[string]domain.Role{"u-1": domain.RoleMitra})
	gate := roles.hold("u-1")
	c := startContext(t, client, roles)

	awaitLookup(t, roles, "u-1")
	state := c.Snapshot()
	assert.False(t, state.Loading)
	require.NotNil(t, state.Identity)
	assert.Equal(t, domain.RolePending, state.Role.Status)
	assert.Equal(t, auth.DecisionWait, c.Decide([]domain.Role{domain.RoleMitra}, "/mitra").Kind)
	assert.Equal(t, auth.DecisionAllow, c.Decide(nil, "/profile").Kind)

	close(gate)
	state = waitSettled(t, c)
	assert.Equal(t, domain.ResolvedRole(domain.RoleMitra), state.Role)
}

func TestStart_NoSession(t *testing.T) {
	roles := newFakeRoles(nil)
	c := startContext(t, &fakeAuthClient{}, roles)

	state := waitSettled(t, c)
	assert.False(t, state.Loading)
	assert.Nil(t, state.Identity)

	decision := c.Decide([]domain.Role{domain.RoleAdmin}, "/admin/users?role=mitra")
	assert.Equal(t, auth.DecisionRedirectLogin, decision.Kind)
	assert.Equal(t, "/login?from=%2Fadmin%2Fusers%3Frole%3Dmitra", decision.Location)
	assert.Empty(t, roles.started)
}

func TestStart_ExpiredOrFailedSessionCountsAsNone(t *testing.T) {
	expired := liveSession("u-1")
	expired.ExpiresAt = time.Now().Add(-time.Minute)

	for name, client := range map[string]*fakeAuthClient{
		"expired": {session: expired},
		"failed":  {err: errors.New("network down")},
	} {
		t.Run(name, func(t *testing.T) {
			c := startContext(t, client, newFakeRoles(nil))
			state := waitSettled(t, c)
			assert.Nil(t, state.Identity)
		})
	}
}

func TestRoleLookupFailureNeverAllows(t *testing.T) {
	roles := newFakeRoles(nil)
	roles.err = errors.New("permission denied")
	c := startContext(t, &fakeAuthClient{session: liveSession("u-1")}, roles)

	state := waitSettled(t, c)
	assert.Equal(t, domain.MissingRole(), state.Role)

	decision := c.Decide([]domain.Role{domain.RoleAdmin}, "/admin")
	assert.Equal(t, auth.DecisionRedirectHome, decision.Kind)
	assert.Equal(t, auth.LandingPath, decision.Location)
}

func TestSignOut_DiscardsRoleLookupInFlight(t *testing.T) {
	client := &fakeAuthClient{session: liveSession("u-admin")}
	roles := newFakeRoles(map[string]domain.Role{"u-admin": domain.RoleAdmin})
	gate := roles.hold("u-admin")
	c := startContext(t, client, roles)

	awaitLookup(t, roles, "u-admin")
	require.NoError(t, c.SignOut(context.Background()))

	state := c.Snapshot()
	assert.Nil(t, state.Identity)
	assert.Equal(t, domain.MissingRole(), state.Role)
	assert.Equal(t, 1, client.signOuts)

	close(gate)
	select {
	case late := <-roles.finished:
		require.NoError(t, late.err)
		assert.Equal(t, domain.RoleAdmin, late.role)
	case <-time.After(2 * time.Second):
		t.Fatal("role lookup never returned")
	}
	c.Close()

	state = c.Snapshot()
	assert.Nil(t, state.Identity)
	assert.Equal(t, domain.MissingRole(), state.Role)
}

func TestSignOut_BackendErrorStillClears(t *testing.T) {
	client := &fakeAuthClient{session: liveSession("u-1"), signOutErr: errors.New("offline")}
	c := startContext(t, client, newFakeRoles(map[string]domain.Role{"u-1": domain.RoleCustomer}))
	waitSettled(t, c)

	require.Error(t, c.SignOut(context.Background()))
	assert.Nil(t, c.Snapshot().Identity)
}

func TestAuthEvents(t *testing.T) {
	client := &fakeAuthClient{}
	roles := newFakeRoles(map[string]domain.Role{
		"u-1": domain.RoleCustomer,
		"u-2": domain.RoleMitra,
	})
	c := startContext(t, client, roles)
	waitSettled(t, c)

	client.emit(EventSignedIn, liveSession("u-1"))
	state := waitSettled(t, c)
	assert.Equal(t, "u-1", state.Identity.ID)
	assert.Equal(t, domain.ResolvedRole(domain.RoleCustomer), state.Role)

	// A refresh keeps the known role while it is looked up again.
	gate := roles.hold("u-1")
	client.emit(EventTokenRefreshed, liveSession("u-1"))
	awaitLookup(t, roles, "u-1")
	awaitLookup(t, roles, "u-1")
	assert.Equal(t, domain.ResolvedRole(domain.RoleCustomer), c.Snapshot().Role)
	close(gate)

	client.emit(EventSignedIn, liveSession("u-2"))
	require.Eventually(t, func() bool {
		s := c.Snapshot()
		return s.Identity != nil && s.Identity.ID == "u-2" && s.Role == domain.ResolvedRole(domain.RoleMitra)
	}, 2*time.Second, 5*time.Millisecond)

	client.emit(EventSessionExpired, nil)
	state = c.Snapshot()
	assert.Nil(t, state.Identity)
	assert.Equal(t, auth.DecisionRedirectLogin, c.Decide(nil, "/dashboard").Kind)
}

func TestSubscribeAndClose(t *testing.T) {
	client := &fakeAuthClient{session: liveSession("u-1")}
	c := New(client, newFakeRoles(map[string]domain.Role{"u-1": domain.RoleAdmin}), nil)

	var (
		mu     sync.Mutex
		states []domain.SessionState
	)
	unsubscribe := c.Subscribe(func(s domain.SessionState) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})
	require.NoError(t, c.Start(context.Background()))
	assert.ErrorIs(t, c.Start(context.Background()), ErrAlreadyStarted)
	waitSettled(t, c)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) > 0 && states[len(states)-1].Role == domain.ResolvedRole(domain.RoleAdmin)
	}, 2*time.Second, 5*time.Millisecond)
	mu.Lock()
	count := len(states)
	mu.Unlock()

	unsubscribe()
	client.emit(EventSignedOut, nil)
	mu.Lock()
	assert.Len(t, states, count)
	mu.Unlock()

	c.Close()
	assert.True(t, client.unsubscribed)
	c.Close()
}
