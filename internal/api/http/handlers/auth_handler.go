package handlers

import (
	"errors"
	"mime/multipart"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/spec-kit/mitra-marketplace/internal/api/dto"
	"github.com/spec-kit/mitra-marketplace/internal/auth"
	"github.com/spec-kit/mitra-marketplace/internal/registration"
	"github.com/spec-kit/mitra-marketplace/internal/service"
	apperrors "github.com/spec-kit/mitra-marketplace/pkg/util/errorutil"
	"github.com/spec-kit/mitra-marketplace/pkg/util/validation"
)

// CookieConfig controls the session cookie set on sign-in.
type CookieConfig struct {
	Name   string
	Secure bool
}

// AuthHandler exposes registration and session endpoints.
type AuthHandler struct {
	auth   AuthService
	cookie CookieConfig
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService AuthService, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{auth: authService, cookie: cookie}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	form := registrationForm(req, registration.KindCustomer)
	account, err := h.auth.Register(c.UserContext(), service.RegisterInput{Form: form})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewAccountResponse(account)})
}

// RegisterMitra handles POST /auth/register-mitra. It expects a multipart form
// carrying a ktp image and an optional certificate.
func (h *AuthHandler) RegisterMitra(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	input := service.RegisterInput{Form: registrationForm(req, registration.KindMitra)}

	ktp, closeKTP, err := formUpload(c, "ktp")
	if err != nil {
		return err
	}
	defer closeKTP()
	input.KTP = ktp

	certificate, closeCertificate, err := formUpload(c, "certificate")
	if err != nil {
		return err
	}
	defer closeCertificate()
	input.Certificate = certificate

	account, err := h.auth.Register(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewAccountResponse(account)})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.From == "" {
		req.From = c.Query("from")
	}
	if err := validation.Default().Struct(req); err != nil {
		return err
	}

	result, err := h.auth.Login(c.UserContext(), req.Email, req.Password, req.From)
	if err != nil {
		return err
	}
	h.setCookie(c, result.Token, result.Session.ExpiresAt)

	resp := dto.AuthResponse{
		Token:      result.Token,
		ExpiresAt:  result.Session.ExpiresAt,
		Session:    dto.NewSessionResponse(result.Session),
		RedirectTo: result.RedirectTo,
	}
	if role, ok := result.Role.Known(); ok {
		resp.Role = &role
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Logout handles POST /auth/logout. Signing out without a session succeeds.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	if err := h.auth.Logout(c.UserContext(), principal); err != nil {
		return err
	}
	h.clearCookie(c)
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "signed_out"}})
}

// Session handles GET /auth/session. Data is null when nobody is signed in.
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return c.JSON(fiber.Map{"data": nil})
	}
	session, err := h.auth.CurrentSession(c.UserContext(), principal)
	if err != nil {
		return err
	}
	if session == nil {
		return c.JSON(fiber.Map{"data": nil})
	}
	return c.JSON(fiber.Map{"data": dto.NewSessionResponse(session)})
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	session, err := h.auth.Refresh(c.UserContext(), principal)
	if err != nil {
		return err
	}
	h.setCookie(c, session.AccessToken, session.ExpiresAt)
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token:     session.AccessToken,
		ExpiresAt: session.ExpiresAt,
		Session:   dto.NewSessionResponse(session),
	}})
}

// Role handles GET /auth/role.
func (h *AuthHandler) Role(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	role, err := h.auth.Role(c.UserContext(), principal.Identity.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.RoleResponse{Role: role}})
}

func (h *AuthHandler) setCookie(c *fiber.Ctx, token string, expires time.Time) {
	if h.cookie.Name == "" {
		return
	}
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookie(c *fiber.Ctx) {
	if h.cookie.Name == "" {
		return
	}
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func registrationForm(req dto.RegisterRequest, kind registration.Kind) registration.Form {
	return registration.Form{
		Kind:            kind,
		FullName:        req.FullName,
		Email:           req.Email,
		Phone:           req.Phone,
		City:            req.City,
		Bio:             req.Bio,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		AgreeTerms:      req.AgreeTerms,
	}
}

// formUpload opens the named multipart file. A missing file yields a nil upload.
func formUpload(c *fiber.Ctx, field string) (*service.Upload, func(), error) {
	noop := func() {}
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, fasthttp.ErrMissingFile) || errors.Is(err, fasthttp.ErrNoMultipartForm) {
			return nil, noop, nil
		}
		return nil, noop, apperrors.NewValidationError("invalid upload", map[string]any{field: err.Error()})
	}
	file, err := header.Open()
	if err != nil {
		return nil, noop, apperrors.NewInternalError(err)
	}
	return &service.Upload{
		Document: registration.Document{
			Name:        header.Filename,
			ContentType: header.Header.Get(fiber.HeaderContentType),
			Size:        header.Size,
		},
		Content: file,
	}, closer(file), nil
}

func closer(f multipart.File) func() {
	return func() { _ = f.Close() }
}

func principal(c *fiber.Ctx) (*auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return p, nil
}
