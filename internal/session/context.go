// Package session holds the process-wide view of who is signed in and with
// which role. Identity and role resolve independently: the role lookup starts
// only after the identity is known, and its result is dropped when the
// session changed while it was in flight.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/mitra-marketplace/internal/auth"
	"github.com/spec-kit/mitra-marketplace/internal/domain"
)

// AuthEvent is a change reported by the authentication backend.
type AuthEvent string

const (
	EventSignedIn       AuthEvent = "signed_in"
	EventTokenRefreshed AuthEvent = "token_refreshed"
	EventSignedOut      AuthEvent = "signed_out"
	EventSessionExpired AuthEvent = "session_expired"
)

// ErrAlreadyStarted is returned by a second call to Start.
var ErrAlreadyStarted = errors.New("session: context already started")

// AuthClient is the authentication backend.
type AuthClient interface {
	// GetSession returns the current session, or nil when there is none.
	GetSession(ctx context.Context) (*domain.Session, error)
	SignOut(ctx context.Context) error
	// OnAuthStateChange registers fn for auth events and returns a function
	// that removes it.
	OnAuthStateChange(fn func(AuthEvent, *domain.Session)) (unsubscribe func())
}

// RoleReader reads the role assigned to an identity.
type RoleReader interface {
	GetRole(ctx context.Context, userID string) (domain.Role, error)
}

// Context tracks the current identity and role.
type Context struct {
	auth   AuthClient
	roles  RoleReader
	logger *zap.Logger

	mu          sync.Mutex
	state       domain.SessionState
	epoch       uint64
	version     uint64
	changed     chan struct{}
	observers   map[uint64]func(domain.SessionState)
	nextID      uint64
	started     bool
	closed      bool
	unsubscribe func()
	bg          context.Context
	cancel      context.CancelFunc

	notifyMu  sync.Mutex
	delivered uint64

	wg sync.WaitGroup
}

// New builds a Context in the loading state. Nothing is fetched before Start.
func New(authClient AuthClient, roles RoleReader, logger *zap.Logger) *Context {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Context{
		auth:      authClient,
		roles:     roles,
		logger:    logger,
		state:     domain.SessionState{Loading: true, Role: domain.PendingRole()},
		changed:   make(chan struct{}),
		observers: map[uint64]func(domain.SessionState){},
	}
}

// Start subscribes to auth events and fetches the existing session in the
// background. Background work stops when ctx is done or Close is called.
func (c *Context) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.bg, c.cancel = context.WithCancel(ctx)
	epoch := c.epoch
	c.mu.Unlock()

	unsubscribe := c.auth.OnAuthStateChange(c.handleAuthEvent)
	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.mu.Unlock()

	c.spawn(func(ctx context.Context) { c.loadSession(ctx, epoch) })
	return nil
}

// Close unsubscribes from auth events and waits for background lookups.
func (c *Context) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	unsubscribe, cancel := c.unsubscribe, c.cancel
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
}

// SignOut clears identity and role immediately, then ends the remote session.
// Local state stays cleared when the backend call fails.
func (c *Context) SignOut(ctx context.Context) error {
	c.clear()
	return c.auth.SignOut(ctx)
}

// Snapshot returns the current state.
func (c *Context) Snapshot() domain.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Decide runs the route guard against the current state.
func (c *Context) Decide(allowed []domain.Role, requested string) auth.Decision {
	return auth.Decide(c.Snapshot(), allowed, requested)
}

// Subscribe registers fn for every state change. Notifications arrive in
// order; a change superseded before delivery may be skipped. fn must not
// call SignOut.
func (c *Context) Subscribe(fn func(domain.SessionState)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.observers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// WaitSettled blocks until the session is loaded and the role is no longer
// pending, and returns that state.
func (c *Context) WaitSettled(ctx context.Context) (domain.SessionState, error) {
	for {
		c.mu.Lock()
		state := c.snapshotLocked()
		changed := c.changed
		c.mu.Unlock()

		if settled(state) {
			return state, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return state, ctx.Err()
		}
	}
}

func settled(state domain.SessionState) bool {
	if state.Loading {
		return false
	}
	return state.Identity == nil || state.Role.Status != domain.RolePending
}

func (c *Context) loadSession(ctx context.Context, epoch uint64) {
	sess, err := c.auth.GetSession(ctx)
	if err != nil {
		c.logger.Warn("session lookup failed", zap.Error(err))
		sess = nil
	}
	if sess != nil && sess.IsExpired(time.Now()) {
		sess = nil
	}

	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		return
	}
	identity := sess.Identity()
	c.state.Loading = false
	c.state.Identity = identity
	if identity == nil {
		c.state.Role = domain.MissingRole()
	} else {
		c.state.Role = domain.PendingRole()
	}
	snapshot, version := c.commitLocked()
	c.mu.Unlock()

	c.publish(snapshot, version)
	if identity != nil {
		c.resolveRole(epoch, identity.ID)
	}
}

func (c *Context) handleAuthEvent(event AuthEvent, sess *domain.Session) {
	switch event {
	case EventSignedIn, EventTokenRefreshed:
		identity := sess.Identity()
		if identity == nil {
			c.clear()
			return
		}
		c.mu.Lock()
		c.epoch++
		epoch := c.epoch
		sameIdentity := c.state.Identity != nil && c.state.Identity.ID == identity.ID
		c.state.Loading = false
		c.state.Identity = identity
		if !sameIdentity || c.state.Role.Status == domain.RoleMissing {
			c.state.Role = domain.PendingRole()
		}
		snapshot, version := c.commitLocked()
		c.mu.Unlock()

		c.publish(snapshot, version)
		c.resolveRole(epoch, identity.ID)
	case EventSignedOut, EventSessionExpired:
		c.clear()
	default:
		c.logger.Debug("ignoring auth event", zap.String("event", string(event)))
	}
}

func (c *Context) resolveRole(epoch uint64, userID string) {
	c.spawn(func(ctx context.Context) {
		resolution := domain.MissingRole()
		role, err := c.roles.GetRole(ctx, userID)
		switch {
		case err != nil:
			c.logger.Warn("role lookup failed", zap.String("user_id", userID), zap.Error(err))
		case !role.Valid():
			c.logger.Warn("unknown role", zap.String("user_id", userID), zap.String("role", string(role)))
		default:
			resolution = domain.ResolvedRole(role)
		}

		c.mu.Lock()
		if epoch != c.epoch {
			c.mu.Unlock()
			c.logger.Debug("discarding stale role lookup", zap.String("user_id", userID))
			return
		}
		c.state.Role = resolution
		snapshot, version := c.commitLocked()
		c.mu.Unlock()

		c.publish(snapshot, version)
	})
}

func (c *Context) clear() {
	c.mu.Lock()
	c.epoch++
	c.state = domain.SessionState{Role: domain.MissingRole()}
	snapshot, version := c.commitLocked()
	c.mu.Unlock()

	c.publish(snapshot, version)
}

// spawn runs fn in the background unless the context was closed or not started.
func (c *Context) spawn(fn func(ctx context.Context)) {
	c.mu.Lock()
	if c.closed || c.bg == nil {
		c.mu.Unlock()
		return
	}
	ctx := c.bg
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		fn(ctx)
	}()
}

// commitLocked records a state change. c.mu must be held.
func (c *Context) commitLocked() (domain.SessionState, uint64) {
	c.version++
	close(c.changed)
	c.changed = make(chan struct{})
	return c.snapshotLocked(), c.version
}

func (c *Context) snapshotLocked() domain.SessionState {
	state := c.state
	if state.Identity != nil {
		identity := *state.Identity
		state.Identity = &identity
	}
	return state
}

func (c *Context) publish(state domain.SessionState, version uint64) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if version <= c.delivered {
		return
	}
	c.delivered = version

	c.mu.Lock()
	observers := make([]func(domain.SessionState), 0, len(c.observers))
	for _, fn := range c.observers {
		observers = append(observers, fn)
	}
	c.mu.Unlock()

	for _, fn := range observers {
		fn(state)
	}
}
