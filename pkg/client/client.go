// Package client is a typed HTTP client for the marketplace back office API.
// It doubles as the auth backend and role reader of a session.Context.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/spec-kit/mitra-marketplace/internal/api/dto"
	"github.com/spec-kit/mitra-marketplace/internal/auth"
	"github.com/spec-kit/mitra-marketplace/internal/domain"
	"github.com/spec-kit/mitra-marketplace/internal/session"
	"github.com/spec-kit/mitra-marketplace/pkg/util/errorutil"
)

const defaultTimeout = 15 * time.Second

// ErrForeignIdentity is returned when asking for the role of someone other than
// the signed-in identity. The API only reveals the caller's own role.
var ErrForeignIdentity = errors.New("client: role lookup for another identity")

// Option configures a Client.
type Option func(*Client)

// WithToken starts the client with a previously issued access token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying fasthttp client.
func WithHTTPClient(hc *fasthttp.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client talks to the API over fasthttp. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.Mutex
	token  string
	userID string

	listenersMu sync.Mutex
	listeners   map[uint64]func(session.AuthEvent, *domain.Session)
	nextID      uint64
}

// New builds a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &fasthttp.Client{Name: "mitractl"},
		timeout:   defaultTimeout,
		logger:    zap.NewNop(),
		listeners: map[uint64]func(session.AuthEvent, *domain.Session){},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the current access token, empty when signed out.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) setToken(token, userID string) {
	c.mu.Lock()
	c.token, c.userID = token, userID
	c.mu.Unlock()
}

// OnAuthStateChange registers fn for sign-in, refresh, sign-out and expiry.
func (c *Client) OnAuthStateChange(fn func(session.AuthEvent, *domain.Session)) func() {
	c.listenersMu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.listenersMu.Unlock()

	return func() {
		c.listenersMu.Lock()
		delete(c.listeners, id)
		c.listenersMu.Unlock()
	}
}

func (c *Client) emit(event session.AuthEvent, sess *domain.Session) {
	c.listenersMu.Lock()
	fns := make([]func(session.AuthEvent, *domain.Session), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.listenersMu.Unlock()

	c.logger.Debug("auth state changed", zap.String("event", string(event)))
	for _, fn := range fns {
		fn(event, sess)
	}
}

// SignIn exchanges credentials for a session. from is the location the caller
// was redirected away from; the response says where to go next.
func (c *Client) SignIn(ctx context.Context, email, password, from string) (*dto.AuthResponse, error) {
	body, err := json.Marshal(dto.LoginRequest{Email: email, Password: password, From: from})
	if err != nil {
		return nil, err
	}
	var resp dto.AuthResponse
	if err := c.do(ctx, fasthttp.MethodPost, "/auth/login", body, jsonContentType, &resp); err != nil {
		return nil, err
	}
	c.setToken(resp.Token, resp.Session.UserID)
	c.emit(session.EventSignedIn, toSession(resp.Session, resp.Token))
	return &resp, nil
}

// GetSession returns the live session, or nil when signed out or when the
// server no longer recognizes the token. A token the server rejects is dropped
// and reported as session_expired.
func (c *Client) GetSession(ctx context.Context) (*domain.Session, error) {
	token := c.Token()
	if token == "" {
		return nil, nil
	}
	var resp *dto.SessionResponse
	if err := c.do(ctx, fasthttp.MethodGet, "/auth/session", nil, "", &resp); err != nil {
		return nil, err
	}
	if resp == nil {
		c.setToken("", "")
		c.emit(session.EventSessionExpired, nil)
		return nil, nil
	}
	c.mu.Lock()
	c.userID = resp.UserID
	c.mu.Unlock()
	return toSession(*resp, token), nil
}

// SignOut invalidates the remote session. Local credentials are dropped even
// when the server call fails.
func (c *Client) SignOut(ctx context.Context) error {
	var err error
	if c.Token() != "" {
		err = c.do(ctx, fasthttp.MethodPost, "/auth/logout", nil, "", nil)
	}
	c.setToken("", "")
	c.emit(session.EventSignedOut, nil)
	return err
}

// Refresh re-issues the access token. A rejected token counts as an expired session.
func (c *Client) Refresh(ctx context.Context) (*domain.Session, error) {
	var resp dto.AuthResponse
	if err := c.do(ctx, fasthttp.MethodPost, "/auth/refresh", nil, "", &resp); err != nil {
		var de *errorutil.DomainError
		if errors.As(err, &de) && de.Code == "UNAUTHORIZED" {
			c.setToken("", "")
			c.emit(session.EventSessionExpired, nil)
		}
		return nil, err
	}
	c.setToken(resp.Token, resp.Session.UserID)
	sess := toSession(resp.Session, resp.Token)
	c.emit(session.EventTokenRefreshed, sess)
	return sess, nil
}

// GetRole returns the stored role of the signed-in identity.
func (c *Client) GetRole(ctx context.Context, userID string) (domain.Role, error) {
	c.mu.Lock()
	current := c.userID
	c.mu.Unlock()
	if current != "" && userID != "" && current != userID {
		return "", ErrForeignIdentity
	}
	var resp dto.RoleResponse
	if err := c.do(ctx, fasthttp.MethodGet, "/auth/role", nil, "", &resp); err != nil {
		return "", err
	}
	return domain.ParseRole(string(resp.Role))
}

func toSession(resp dto.SessionResponse, token string) *domain.Session {
	return &domain.Session{
		ID:          resp.ID,
		UserID:      resp.UserID,
		Email:       resp.Email,
		AccessToken: token,
		CreatedAt:   resp.CreatedAt,
		ExpiresAt:   resp.ExpiresAt,
	}
}

const jsonContentType = "application/json"

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, contentType string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set(fasthttp.HeaderAccept, jsonContentType)
	if token := c.Token(); token != "" {
		req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+token)
	}
	if body != nil {
		req.Header.SetContentType(contentType)
		req.SetBody(body)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	return decode(resp, out)
}

// decode unwraps the {"data": ...} envelope or turns the response into a
// DomainError. Guard redirects become UNAUTHORIZED or FORBIDDEN errors that
// carry the redirect location.
func decode(resp *fasthttp.Response, out any) error {
	status := resp.StatusCode()
	switch {
	case status == fasthttp.StatusSeeOther:
		location := string(resp.Header.Peek(fasthttp.HeaderLocation))
		details := map[string]any{"location": location}
		if strings.HasPrefix(location, auth.LoginPath) {
			return errorutil.NewDomainError("UNAUTHORIZED", "sign in required", fasthttp.StatusUnauthorized, details)
		}
		return errorutil.NewDomainError("FORBIDDEN", "not permitted for this role", fasthttp.StatusForbidden, details)
	case status == fasthttp.StatusNoContent:
		return nil
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		if status >= 400 {
			return errorutil.FromStatus(status, fasthttp.StatusMessage(status), nil)
		}
		return fmt.Errorf("decode response: %w", err)
	}
	if status >= 400 {
		if env.Error == nil || env.Error.Code == "" {
			return errorutil.FromStatus(status, fasthttp.StatusMessage(status), nil)
		}
		return errorutil.NewDomainError(env.Error.Code, env.Error.Message, status, env.Error.Details)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}
