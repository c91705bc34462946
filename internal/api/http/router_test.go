package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/spec-kit/mitra-marketplace/internal/api/http/handlers"
	"github.com/spec-kit/mitra-marketplace/internal/auth"
	"github.com/spec-kit/mitra-marketplace/internal/domain"
	"github.com/spec-kit/mitra-marketplace/internal/observability"
	"github.com/spec-kit/mitra-marketplace/internal/service"
	apperrors "github.com/spec-kit/mitra-marketplace/pkg/util/errorutil"
)

const cookieName = "mitra_session"

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func (s *sessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess, nil
}

type roleSource map[string]domain.RoleResolution

func (r roleSource) Resolve(_ context.Context, userID string) domain.RoleResolution {
	if res, ok := r[userID]; ok {
		return res
	}
	return domain.MissingRole()
}

type stubAuth struct {
	registered []service.RegisterInput
	ktpContent string
	loginErr   error
}

func (s *stubAuth) Register(_ context.Context, input service.RegisterInput) (*domain.Account, error) {
	form := input.Form
	if input.KTP != nil {
		doc := input.KTP.Document
		form.KTP = &doc
	}
	if err := form.Validate(); err != nil {
		return nil, err
	}
	if input.KTP != nil {
		data, _ := io.ReadAll(input.KTP.Content)
		s.ktpContent = string(data)
	}
	s.registered = append(s.registered, input)
	account := &domain.Account{
		User:    domain.User{ID: "u-new", Email: input.Form.Email},
		Profile: domain.Profile{FullName: input.Form.FullName},
		Role:    input.Form.Kind.Role(),
	}
	if input.KTP != nil {
		account.Mitra = &domain.MitraProfile{ID: "m-new", VerificationStatus: domain.VerificationPending}
	}
	return account, nil
}

func (s *stubAuth) Login(_ context.Context, email, _ string, from string) (*service.LoginResult, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	session := &domain.Session{ID: "sess-1", UserID: "u-1", Email: email, ExpiresAt: time.Now().Add(time.Hour)}
	return &service.LoginResult{
		Session:    session,
		Token:      "token-1",
		Role:       domain.ResolvedRole(domain.RoleAdmin),
		RedirectTo: service.RedirectAfterLogin(from, domain.ResolvedRole(domain.RoleAdmin)),
	}, nil
}

func (s *stubAuth) Logout(context.Context, *auth.Principal) error { return nil }

func (s *stubAuth) CurrentSession(_ context.Context, p *auth.Principal) (*domain.Session, error) {
	return &domain.Session{ID: p.SessionID, UserID: p.Identity.ID, Email: p.Identity.Email}, nil
}

func (s *stubAuth) Refresh(_ context.Context, p *auth.Principal) (*domain.Session, error) {
	return &domain.Session{ID: p.SessionID, UserID: p.Identity.ID, AccessToken: "token-2", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (s *stubAuth) Role(context.Context, string) (domain.Role, error) { return domain.RoleAdmin, nil }

type stubVerification struct {
	approveErr   error
	approvedBy   string
	listCalls    int
	pendingCalls int
}

func (s *stubVerification) Pending(context.Context) ([]domain.MitraWithProfile, error) {
	s.pendingCalls++
	return []domain.MitraWithProfile{{
		MitraProfile: domain.MitraProfile{ID: "m-1", UserID: "u-9", VerificationStatus: domain.VerificationPending},
		Profile:      &domain.Profile{UserID: "u-9", FullName: "Sari"},
	}}, nil
}

func (s *stubVerification) List(_ context.Context, status *domain.VerificationStatus) ([]domain.MitraWithProfile, error) {
	s.listCalls++
	item := domain.MitraWithProfile{
		MitraProfile: domain.MitraProfile{ID: "m-1", UserID: "u-9", VerificationStatus: domain.VerificationPending},
		Profile:      &domain.Profile{UserID: "u-9", FullName: "Sari"},
	}
	if status != nil && *status != domain.VerificationPending {
		return []domain.MitraWithProfile{}, nil
	}
	return []domain.MitraWithProfile{item}, nil
}

func (s *stubVerification) Approve(_ context.Context, actorID, mitraID string) (*domain.MitraProfile, error) {
	if s.approveErr != nil {
		return nil, s.approveErr
	}
	s.approvedBy = actorID
	now := time.Now()
	return &domain.MitraProfile{ID: mitraID, VerificationStatus: domain.VerificationApproved, VerifiedAt: &now}, nil
}

func (s *stubVerification) Reject(_ context.Context, _, mitraID string) (*domain.MitraProfile, error) {
	return &domain.MitraProfile{ID: mitraID, VerificationStatus: domain.VerificationRejected}, nil
}

type stubUsers struct{ updated map[string]domain.Role }

func (s *stubUsers) List(context.Context, service.UserFilter) (*service.UserListing, error) {
	return &service.UserListing{Users: []domain.AdminUser{}, Counts: map[domain.Role]int{}}, nil
}

func (s *stubUsers) UpdateRole(_ context.Context, _, userID string, role domain.Role) error {
	s.updated[userID] = role
	return nil
}

type stubStats struct{}

func (stubStats) Stats(context.Context) (*domain.AdminStats, error) {
	return &domain.AdminStats{TotalUsers: 3, PendingVerifications: 1}, nil
}

type stubCatalog struct{}

func (stubCatalog) List(context.Context) ([]domain.Service, error) { return nil, nil }
func (stubCatalog) Create(_ context.Context, in service.ServiceInput) (*domain.Service, error) {
	return &domain.Service{ID: "s-1", Name: in.Name, IsActive: in.IsActive}, nil
}
func (stubCatalog) Update(context.Context, string, service.ServiceInput) (*domain.Service, error) {
	return nil, apperrors.NewNotFound("service", nil)
}
func (stubCatalog) Delete(context.Context, string) error { return nil }

type stubPromos struct{}

func (stubPromos) List(context.Context) ([]domain.Promo, error) { return []domain.Promo{}, nil }
func (stubPromos) Create(_ context.Context, in service.PromoInput) (*domain.Promo, error) {
	return &domain.Promo{ID: "p-1", Code: strings.ToUpper(in.Code)}, nil
}
func (stubPromos) Update(context.Context, string, service.PromoInput) (*domain.Promo, error) {
	return &domain.Promo{ID: "p-1"}, nil
}
func (stubPromos) Delete(context.Context, string) error { return nil }

type stubOrders struct{ lastStatus *domain.OrderStatus }

func (s *stubOrders) List(_ context.Context, status *domain.OrderStatus) ([]domain.OrderWithDetails, error) {
	s.lastStatus = status
	return []domain.OrderWithDetails{{Order: domain.Order{ID: "o-1"}, CustomerName: "Budi", MitraName: "Unassigned", ServiceName: "-"}}, nil
}

type stubFinance struct{}

func (stubFinance) Summary(context.Context) (*domain.FinanceSummary, error) {
	return &domain.FinanceSummary{TotalRevenue: 1000, RevenueByMonth: []domain.MonthlyRevenue{}}, nil
}

type stubDashboard struct{}

func (stubDashboard) Customer(_ context.Context, userID string) (*service.CustomerDashboard, error) {
	return &service.CustomerDashboard{Email: userID + "@example.com"}, nil
}

func (stubDashboard) Mitra(context.Context, string) (*service.MitraHome, error) {
	return nil, apperrors.NewNotFound("mitra", nil)
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

type testServer struct {
	app          *fiber.App
	tokens       *auth.TokenManager
	sessions     *sessionStore
	roles        roleSource
	auth         *stubAuth
	verification *stubVerification
	users        *stubUsers
	orders       *stubOrders
	metrics      *observability.Metrics
}

func newTestServer(t *testing.T, limiter *RateLimiter) *testServer {
	t.Helper()
	s := &testServer{
		tokens:       auth.NewTokenManager("test-secret", 15),
		sessions:     &sessionStore{sessions: map[string]*domain.Session{}},
		roles:        roleSource{},
		auth:         &stubAuth{},
		verification: &stubVerification{},
		users:        &stubUsers{updated: map[string]domain.Role{}},
		orders:       &stubOrders{},
		metrics:      observability.NewMetrics("test"),
	}
	app := fiber.New()
	RegisterMiddlewares(app, nil, s.metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health: handlers.NewHealthHandler("mitra-marketplace", "test", map[string]handlers.Pinger{"postgres": failingPinger{}}),
		Auth:   handlers.NewAuthHandler(s.auth, handlers.CookieConfig{Name: cookieName}),
		Admin: handlers.NewAdminHandler(handlers.AdminServices{
			Verification: s.verification,
			Users:        s.users,
			Stats:        stubStats{},
			Catalog:      stubCatalog{},
			Promos:       stubPromos{},
			Orders:       s.orders,
			Finance:      stubFinance{},
		}),
		Dashboard:     handlers.NewDashboardHandler(stubDashboard{}),
		Authenticator: auth.NewAuthenticator(s.tokens, s.sessions, cookieName),
		Guard:         auth.NewGuard(s.roles, s.metrics),
		AuthLimiter:   limiter,
		Metrics:       s.metrics,
	})
	s.app = app
	return s
}

// signIn stores a session for userID with the given role and returns a bearer token.
func (s *testServer) signIn(t *testing.T, userID string, role domain.RoleResolution) string {
	t.Helper()
	sessionID := "sess-" + userID
	s.sessions.mu.Lock()
	s.sessions.sessions[sessionID] = &domain.Session{ID: sessionID, UserID: userID, Email: userID + "@example.com", ExpiresAt: time.Now().Add(time.Hour)}
	s.sessions.mu.Unlock()
	s.roles[userID] = role
	token, _, err := s.tokens.GenerateToken(userID, userID+"@example.com", sessionID)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, target, token string, body io.Reader, contentType string) (int, map[string]any, *httptestResponse) {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set(fiber.HeaderContentType, contentType)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var payload map[string]any
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &payload))
	}
	return resp.StatusCode, payload, &httptestResponse{header: resp.Header.Get, body: string(raw)}
}

type httptestResponse struct {
	header func(string) string
	body   string
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func TestGuardedViews_Redirects(t *testing.T) {
	s := newTestServer(t, nil)
	customer := s.signIn(t, "u-cust", domain.ResolvedRole(domain.RoleCustomer))
	mitra := s.signIn(t, "u-mitra", domain.ResolvedRole(domain.RoleMitra))
	orphan := s.signIn(t, "u-orphan", domain.MissingRole())

	tests := []struct {
		name     string
		target   string
		token    string
		location string
	}{
		{"anonymous to login", "/admin/users?role=mitra", "", "/login?from=%2Fadmin%2Fusers%3Frole%3Dmitra"},
		{"customer to own home", "/admin", customer, "/dashboard"},
		{"mitra to own home", "/dashboard", mitra, "/mitra"},
		{"customer off mitra view", "/mitra", customer, "/dashboard"},
		{"missing role to landing", "/admin/finance", orphan, "/"},
		{"bad token is anonymous", "/dashboard", "not-a-token", "/login?from=%2Fdashboard"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _, resp := s.do(t, fiber.MethodGet, tt.target, tt.token, nil, "")
			assert.Equal(t, fiber.StatusSeeOther, status)
			assert.Equal(t, tt.location, resp.header(fiber.HeaderLocation))
		})
	}
}

func TestGuardedViews_PendingRoleWaits(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.signIn(t, "u-1", domain.PendingRole())

	status, payload, resp := s.do(t, fiber.MethodGet, "/admin", token, nil, "")
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "1", resp.header(fiber.HeaderRetryAfter))
	assert.NotNil(t, payload["error"])
}

func TestGuardedViews_AllowedRoles(t *testing.T) {
	s := newTestServer(t, nil)
	admin := s.signIn(t, "u-admin", domain.ResolvedRole(domain.RoleAdmin))
	customer := s.signIn(t, "u-cust", domain.ResolvedRole(domain.RoleCustomer))

	status, payload, _ := s.do(t, fiber.MethodGet, "/admin", admin, nil, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 3, payload["data"].(map[string]any)["total_users"])

	status, payload, _ = s.do(t, fiber.MethodGet, "/dashboard", customer, nil, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "u-cust@example.com", payload["data"].(map[string]any)["email"])
}

func TestAdminMitraVerification(t *testing.T) {
	s := newTestServer(t, nil)
	admin := s.signIn(t, "u-admin", domain.ResolvedRole(domain.RoleAdmin))

	status, payload, _ := s.do(t, fiber.MethodGet, "/admin/mitra-verification?status=pending", admin, nil, "")
	require.Equal(t, fiber.StatusOK, status)
	items := payload["data"].([]any)
	require.Len(t, items, 1)
	first := items[0].(map[string]any)
	assert.Equal(t, "pending", first["verification_status"])
	assert.Equal(t, "Sari", first["profile"].(map[string]any)["full_name"])
	assert.Equal(t, 1, s.verification.pendingCalls)
	assert.Zero(t, s.verification.listCalls)

	status, payload, _ = s.do(t, fiber.MethodGet, "/admin/mitra-verification?status=approved", admin, nil, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, payload["data"])
	assert.Equal(t, 1, s.verification.listCalls)

	status, _, _ = s.do(t, fiber.MethodGet, "/admin/mitra-verification?status=bogus", admin, nil, "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, payload, _ = s.do(t, fiber.MethodPost, "/admin/mitra-verification/m-1/approve", admin, nil, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "approved", payload["data"].(map[string]any)["verification_status"])
	assert.Equal(t, "u-admin", s.verification.approvedBy)

	s.verification.approveErr = apperrors.NewConflict("verification status cannot change", map[string]any{"from": "rejected"})
	status, payload, _ = s.do(t, fiber.MethodPost, "/admin/mitra-verification/m-2/approve", admin, nil, "")
	assert.Equal(t, fiber.StatusConflict, status)
	errBody := payload["error"].(map[string]any)
	assert.Equal(t, "CONFLICT", errBody["code"])
	assert.Equal(t, "rejected", errBody["details"].(map[string]any)["from"])
}

func TestAdminWrites(t *testing.T) {
	s := newTestServer(t, nil)
	admin := s.signIn(t, "u-admin", domain.ResolvedRole(domain.RoleAdmin))

	status, _, _ := s.do(t, fiber.MethodPut, "/admin/users/u-7/role", admin, jsonBody(t, map[string]string{"role": "mitra"}), fiber.MIMEApplicationJSON)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, domain.RoleMitra, s.users.updated["u-7"])

	status, payload, _ := s.do(t, fiber.MethodPut, "/admin/users/u-7/role", admin, jsonBody(t, map[string]string{"role": "owner"}), fiber.MIMEApplicationJSON)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", payload["error"].(map[string]any)["code"])

	status, payload, _ = s.do(t, fiber.MethodPost, "/admin/services", admin,
		jsonBody(t, map[string]any{"name": "Refleksi", "base_price": 90000, "duration_minutes": 60}), fiber.MIMEApplicationJSON)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, true, payload["data"].(map[string]any)["is_active"])

	status, _, _ = s.do(t, fiber.MethodPut, "/admin/services/missing", admin,
		jsonBody(t, map[string]any{"name": "X", "duration_minutes": 30}), fiber.MIMEApplicationJSON)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _, _ = s.do(t, fiber.MethodDelete, "/admin/services/s-1", admin, nil, "")
	assert.Equal(t, fiber.StatusNoContent, status)

	status, payload, _ = s.do(t, fiber.MethodPost, "/admin/promos", admin,
		jsonBody(t, map[string]any{"code": "hemat", "discount_type": "percentage", "discount_value": 10}), fiber.MIMEApplicationJSON)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "HEMAT", payload["data"].(map[string]any)["code"])

	status, _, _ = s.do(t, fiber.MethodPost, "/admin/promos", admin,
		jsonBody(t, map[string]any{"code": "x", "discount_type": "bogus", "discount_value": 10}), fiber.MIMEApplicationJSON)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestAdminReads(t *testing.T) {
	s := newTestServer(t, nil)
	admin := s.signIn(t, "u-admin", domain.ResolvedRole(domain.RoleAdmin))

	status, payload, _ := s.do(t, fiber.MethodGet, "/admin/orders?status=completed", admin, nil, "")
	require.Equal(t, fiber.StatusOK, status)
	require.NotNil(t, s.orders.lastStatus)
	assert.Equal(t, domain.OrderCompleted, *s.orders.lastStatus)
	order := payload["data"].([]any)[0].(map[string]any)
	assert.Equal(t, "Unassigned", order["mitra_name"])

	status, _, _ = s.do(t, fiber.MethodGet, "/admin/orders?status=refunded", admin, nil, "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, payload, _ = s.do(t, fiber.MethodGet, "/admin/finance", admin, nil, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1000, payload["data"].(map[string]any)["total_revenue"])

	status, _, _ = s.do(t, fiber.MethodGet, "/admin/users?role=owner", admin, nil, "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, payload, _ = s.do(t, fiber.MethodGet, "/admin/services", admin, nil, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, payload["data"])
}

func TestAuthEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	status, payload, resp := s.do(t, fiber.MethodPost, "/auth/login?from=%2Fadmin%2Fusers", "",
		jsonBody(t, map[string]string{"email": "admin@example.com", "password": "rahasia"}), fiber.MIMEApplicationJSON)
	require.Equal(t, fiber.StatusOK, status)
	data := payload["data"].(map[string]any)
	assert.Equal(t, "/admin/users", data["redirect_to"])
	assert.Equal(t, "admin", data["role"])
	assert.Contains(t, resp.header(fiber.HeaderSetCookie), cookieName+"=token-1")

	status, payload, _ = s.do(t, fiber.MethodPost, "/auth/login", "",
		jsonBody(t, map[string]string{"email": "not-an-email"}), fiber.MIMEApplicationJSON)
	assert.Equal(t, fiber.StatusBadRequest, status)
	details := payload["error"].(map[string]any)["details"].(map[string]any)
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "password")

	s.auth.loginErr = apperrors.NewUnauthorized("invalid email or password")
	status, _, _ = s.do(t, fiber.MethodPost, "/auth/login", "",
		jsonBody(t, map[string]string{"email": "admin@example.com", "password": "x"}), fiber.MIMEApplicationJSON)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, payload, _ = s.do(t, fiber.MethodGet, "/auth/session", "", nil, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Nil(t, payload["data"])

	token := s.signIn(t, "u-1", domain.ResolvedRole(domain.RoleCustomer))
	status, payload, _ = s.do(t, fiber.MethodGet, "/auth/session", token, nil, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "u-1", payload["data"].(map[string]any)["user_id"])

	status, _, _ = s.do(t, fiber.MethodPost, "/auth/refresh", "", nil, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, payload, _ = s.do(t, fiber.MethodPost, "/auth/refresh", token, nil, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "token-2", payload["data"].(map[string]any)["token"])

	status, _, _ = s.do(t, fiber.MethodPost, "/auth/logout", "", nil, "")
	assert.Equal(t, fiber.StatusOK, status)
}

func TestRegisterMitra_Multipart(t *testing.T) {
	s := newTestServer(t, nil)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range map[string]string{
		"full_name":        "Dewi Lestari",
		"email":            "dewi@example.com",
		"phone":            "081298765432",
		"password":         "rahasia123",
		"confirm_password": "rahasia123",
		"agree_terms":      "true",
	} {
		require.NoError(t, w.WriteField(k, v))
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="ktp"; filename="ktp.jpg"`)
	header.Set("Content-Type", "image/jpeg")
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg-bytes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	status, payload, _ := s.do(t, fiber.MethodPost, "/auth/register-mitra", "", &body, w.FormDataContentType())
	require.Equal(t, fiber.StatusCreated, status)
	data := payload["data"].(map[string]any)
	assert.Equal(t, "mitra", data["role"])
	assert.Equal(t, "pending", data["verification_status"])

	require.Len(t, s.auth.registered, 1)
	input := s.auth.registered[0]
	assert.True(t, input.Form.AgreeTerms)
	require.NotNil(t, input.KTP)
	assert.Equal(t, "ktp.jpg", input.KTP.Name)
	assert.Equal(t, "image/jpeg", input.KTP.ContentType)
	assert.Equal(t, "jpeg-bytes", s.auth.ktpContent)
	assert.Nil(t, input.Certificate)
}

func TestRegisterMitra_MissingKTPIsRejected(t *testing.T) {
	s := newTestServer(t, nil)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("full_name", "Dewi Lestari"))
	require.NoError(t, w.WriteField("email", "dewi@example.com"))
	require.NoError(t, w.WriteField("phone", "081298765432"))
	require.NoError(t, w.WriteField("password", "rahasia123"))
	require.NoError(t, w.WriteField("confirm_password", "rahasia123"))
	require.NoError(t, w.WriteField("agree_terms", "true"))
	require.NoError(t, w.Close())

	status, payload, _ := s.do(t, fiber.MethodPost, "/auth/register-mitra", "", &body, w.FormDataContentType())
	assert.Equal(t, fiber.StatusBadRequest, status)
	details := payload["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "KTP image is required", details["ktp"])
	assert.Empty(t, s.auth.registered)
}

func TestAuthRateLimit(t *testing.T) {
	s := newTestServer(t, NewRateLimiter(rate.Limit(1), 1))
	login := func() (int, *httptestResponse) {
		status, _, resp := s.do(t, fiber.MethodPost, "/auth/login", "",
			jsonBody(t, map[string]string{"email": "admin@example.com", "password": "rahasia"}), fiber.MIMEApplicationJSON)
		return status, resp
	}

	status, _ := login()
	assert.Equal(t, fiber.StatusOK, status)

	status, resp := login()
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Equal(t, "1", resp.header(fiber.HeaderRetryAfter))
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, nil)

	status, payload, _ := s.do(t, fiber.MethodGet, "/health/live", "", nil, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "alive", payload["status"])

	status, payload, _ = s.do(t, fiber.MethodGet, "/health/ready", "", nil, "")
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", payload["error"].(map[string]any)["code"])

	s.do(t, fiber.MethodGet, "/admin", "", nil, "")
	status, _, resp := s.do(t, fiber.MethodGet, "/metrics", "", nil, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, resp.body, "test_guard_decisions_total")
	assert.Contains(t, resp.body, "test_http_requests_total")
}

func TestUnknownRouteRendersError(t *testing.T) {
	s := newTestServer(t, nil)

	status, payload, _ := s.do(t, fiber.MethodGet, "/nope", "", nil, "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", payload["error"].(map[string]any)["code"])
}

type reportingPinger struct{}

func (reportingPinger) Ping(context.Context) error { return nil }

func (reportingPinger) Report(context.Context) (map[string]any, error) {
	return map[string]any{"sessions": 3, "views": 2}, nil
}

func TestReadinessIncludesDependencyReports(t *testing.T) {
	app := fiber.New()
	health := handlers.NewHealthHandler("mitra-marketplace", "test", map[string]handlers.Pinger{"redis": reportingPinger{}})
	app.Get("/health/ready", health.Ready)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/health/ready", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "ready", payload["status"])
	stats := payload["stats"].(map[string]any)["redis"].(map[string]any)
	assert.EqualValues(t, 3, stats["sessions"])
	assert.EqualValues(t, 2, stats["views"])
}

func TestSessionRoutesAreNotCacheable(t *testing.T) {
	s := newTestServer(t, nil)
	admin := s.signIn(t, "u-admin", domain.ResolvedRole(domain.RoleAdmin))

	status, _, resp := s.do(t, fiber.MethodGet, "/admin", admin, nil, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "no-store", resp.header(fiber.HeaderCacheControl))

	status, _, resp = s.do(t, fiber.MethodGet, "/admin/users", "", nil, "")
	require.Equal(t, fiber.StatusSeeOther, status)
	assert.Equal(t, "no-store", resp.header(fiber.HeaderCacheControl))

	_, _, resp = s.do(t, fiber.MethodGet, "/health/live", "", nil, "")
	assert.Empty(t, resp.header(fiber.HeaderCacheControl))
}
