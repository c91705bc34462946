package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/mitra-marketplace/internal/auth"
	"github.com/spec-kit/mitra-marketplace/internal/config"
	"github.com/spec-kit/mitra-marketplace/internal/domain"
	"github.com/spec-kit/mitra-marketplace/internal/events"
	"github.com/spec-kit/mitra-marketplace/internal/registration"
	"github.com/spec-kit/mitra-marketplace/internal/repository"
	"github.com/spec-kit/mitra-marketplace/internal/storage"
	apperrors "github.com/spec-kit/mitra-marketplace/pkg/util/errorutil"
)

// RoleLookup reads and resolves identity roles.
type RoleLookup interface {
	Lookup(ctx context.Context, userID string) (domain.Role, error)
	Resolve(ctx context.Context, userID string) domain.RoleResolution
}

// Upload is a document submitted with a registration.
type Upload struct {
	registration.Document
	Content io.Reader
}

// RegisterInput is a registration submission with its documents.
type RegisterInput struct {
	Form        registration.Form
	KTP         *Upload
	Certificate *Upload
}

// LoginResult is returned by a successful sign-in.
type LoginResult struct {
	Session    *domain.Session
	Token      string
	Role       domain.RoleResolution
	RedirectTo string
}

// AuthService coordinates registration and session flows.
type AuthService struct {
	accounts   repository.AccountRepository
	users      repository.UserRepository
	sessions   repository.SessionRepository
	roles      RoleLookup
	documents  storage.DocumentStore
	dispatcher events.Dispatcher
	tokens     *auth.TokenManager
	bcryptCost int
	sessionTTL time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	AccountRepo repository.AccountRepository
	UserRepo    repository.UserRepository
	SessionRepo repository.SessionRepository
	Roles       RoleLookup
	Documents   storage.DocumentStore
	Dispatcher  events.Dispatcher
	Tokens      *auth.TokenManager
	Logger      *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tokens := deps.Tokens
	if tokens == nil {
		tokens = auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes)
	}
	ttl := time.Duration(cfg.SessionTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &AuthService{
		accounts:   deps.AccountRepo,
		users:      deps.UserRepo,
		sessions:   deps.SessionRepo,
		roles:      deps.Roles,
		documents:  deps.Documents,
		dispatcher: deps.Dispatcher,
		tokens:     tokens,
		bcryptCost: cfg.BcryptCost,
		sessionTTL: ttl,
		logger:     logger,
		now:        time.Now,
	}
}

// Register validates the form, stores documents and writes the account.
// Mitra sign-ups start with verification pending.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.Account, error) {
	form := input.Form
	if input.KTP != nil {
		doc := input.KTP.Document
		form.KTP = &doc
	}
	if input.Certificate != nil {
		doc := input.Certificate.Document
		form.Certificate = &doc
	}
	if err := form.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, form.Email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": form.Email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(form.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	account := &domain.Account{
		User: domain.User{Email: form.Email, PasswordHash: hash},
		Profile: domain.Profile{
			FullName: form.FullName,
			Phone:    optional(form.Phone),
			City:     optional(form.City),
		},
		Role: form.Kind.Role(),
	}

	var stored []string
	if form.Kind == registration.KindMitra {
		mitra := &domain.MitraProfile{
			VerificationStatus: domain.VerificationPending,
			Status:             domain.MitraActive,
			Bio:                optional(form.Bio),
			Specializations:    []string{},
		}
		key, err := s.storeDocument(ctx, "ktp", "ktp", input.KTP)
		if err != nil {
			return nil, err
		}
		stored = append(stored, key)
		mitra.KTPURL = &key

		if input.Certificate != nil {
			key, err := s.storeDocument(ctx, "certificates", "certificate", input.Certificate)
			if err != nil {
				s.discardDocuments(ctx, stored)
				return nil, err
			}
			stored = append(stored, key)
			mitra.CertificateURL = &key
		}
		account.Mitra = mitra
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		s.discardDocuments(ctx, stored)
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.NewEvent(events.EventUserRegistered, account.User.ID, account.User.ID,
		events.UserRegisteredPayload{
			UserID: account.User.ID,
			Email:  account.User.Email,
			Role:   account.Role,
		}))
	if account.Mitra != nil {
		s.publish(ctx, events.NewEvent(events.EventMitraRegistered, account.User.ID, account.Mitra.ID,
			events.MitraRegisteredPayload{
				MitraID:  account.Mitra.ID,
				FullName: account.Profile.FullName,
				Email:    account.User.Email,
			}))
	}
	return account, nil
}

func (s *AuthService) storeDocument(ctx context.Context, folder, field string, upload *Upload) (string, error) {
	if upload == nil || upload.Content == nil {
		return "", apperrors.NewValidationError("registration is invalid", map[string]any{field: field + " is required"})
	}
	key, err := s.documents.Save(ctx, folder, upload.Name, upload.Content)
	if errors.Is(err, storage.ErrTooLarge) {
		return "", apperrors.NewValidationError("registration is invalid", map[string]any{field: field + " is too large"})
	}
	if err != nil {
		return "", apperrors.NewInternalError(fmt.Errorf("store %s: %w", field, err))
	}
	return key, nil
}

func (s *AuthService) discardDocuments(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.documents.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to discard document", zap.String("key", key), zap.Error(err))
		}
	}
}

// Login verifies credentials and opens a session. from is the location the
// caller was sent away from; it becomes RedirectTo when it is a local path.
func (s *AuthService) Login(ctx context.Context, email, password, from string) (*LoginResult, error) {
	invalid := apperrors.NewUnauthorized("invalid email or password")

	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, invalid
		}
		return nil, apperrors.MapError(err)
	}
	ok, err := auth.CheckPassword(user.PasswordHash, password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if !ok {
		return nil, invalid
	}

	now := s.now().UTC()
	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Email:     user.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	token, _, err := s.tokens.GenerateToken(user.ID, user.Email, session.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	session.AccessToken = token

	role := s.roles.Resolve(ctx, user.ID)
	s.publish(ctx, events.NewEvent(events.EventSignedIn, user.ID, user.ID,
		events.SessionPayload{SessionID: session.ID, Email: user.Email}))

	return &LoginResult{
		Session:    session,
		Token:      token,
		Role:       role,
		RedirectTo: RedirectAfterLogin(from, role),
	}, nil
}

// Logout ends the caller's session.
func (s *AuthService) Logout(ctx context.Context, principal *auth.Principal) error {
	if principal == nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, principal.SessionID); err != nil {
		return apperrors.NewInternalError(err)
	}
	s.publish(ctx, events.NewEvent(events.EventSignedOut, principal.Identity.ID, principal.Identity.ID,
		events.SessionPayload{SessionID: principal.SessionID, Email: principal.Identity.Email}))
	return nil
}

// CurrentSession returns the live session for the principal, or nil when it ended.
func (s *AuthService) CurrentSession(ctx context.Context, principal *auth.Principal) (*domain.Session, error) {
	if principal == nil {
		return nil, nil
	}
	session, err := s.sessions.Get(ctx, principal.SessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return session, nil
}

// Refresh extends the session and issues a new access token for it.
func (s *AuthService) Refresh(ctx context.Context, principal *auth.Principal) (*domain.Session, error) {
	if principal == nil {
		return nil, apperrors.NewUnauthorized("missing credentials")
	}
	expiresAt := s.now().UTC().Add(s.sessionTTL)
	if err := s.sessions.Extend(ctx, principal.SessionID, expiresAt); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, apperrors.NewUnauthorized("session expired")
		}
		return nil, apperrors.NewInternalError(err)
	}
	session, err := s.sessions.Get(ctx, principal.SessionID)
	if err != nil {
		return nil, apperrors.NewUnauthorized("session expired")
	}
	token, _, err := s.tokens.GenerateToken(session.UserID, session.Email, session.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	session.AccessToken = token
	return session, nil
}

// Role returns the stored role of an identity.
func (s *AuthService) Role(ctx context.Context, userID string) (domain.Role, error) {
	role, err := s.roles.Lookup(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.NewNotFound("role", map[string]any{"user_id": userID})
		}
		return "", apperrors.MapError(err)
	}
	return role, nil
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// RedirectAfterLogin picks where a fresh sign-in lands: the requested local
// path when present, otherwise the role's home, otherwise the public landing.
func RedirectAfterLogin(from string, role domain.RoleResolution) string {
	if isLocalPath(from) && !strings.HasPrefix(from, auth.LoginPath) {
		return from
	}
	if r, ok := role.Known(); ok {
		return r.HomePath()
	}
	return auth.LandingPath
}

func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.HasPrefix(p, "/\\")
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
