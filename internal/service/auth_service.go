package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/edusupport/helpdesk-service/internal/auth"
	"github.com/edusupport/helpdesk-service/internal/domain"
	"github.com/edusupport/helpdesk-service/internal/repository"
	"github.com/edusupport/helpdesk-service/internal/security"
	apperrors "github.com/edusupport/helpdesk-service/pkg/util"
)

// AuthService coordinates login, refresh, logout and account provisioning.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenManager
	sessions   *auth.SessionManager
	limiter    *security.LoginLimiter
	bcryptCost int
}

// AuthDependencies bundles collaborator requirements for the auth service.
type AuthDependencies struct {
	Users    repository.UserRepository
	Tokens   *auth.TokenManager
	Sessions *auth.SessionManager
	Limiter  *security.LoginLimiter
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies, bcryptCost int) *AuthService {
	return &AuthService{
		users:      deps.Users,
		tokens:     deps.Tokens,
		sessions:   deps.Sessions,
		limiter:    deps.Limiter,
		bcryptCost: bcryptCost,
	}
}

// LoginResult carries both credentials issued at login.
type LoginResult struct {
	User            *domain.User
	AccessToken     string
	AccessExpiresAt time.Time
	RefreshToken    string
}

// Login authenticates by email and password, issues a signed access token
// and a fresh refresh session. Any prior refresh session for the user is
// superseded. The failure message never reveals which field was wrong.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if err := s.limiter.Allow(ctx, email); err != nil {
		if errors.Is(err, security.ErrTooManyAttempts) {
			return nil, apperrors.NewTooManyRequests("too many login attempts, try again later")
		}
		return nil, apperrors.NewStoreFailure(err)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid email or password")
		}
		return nil, apperrors.NewStoreFailure(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid email or password")
	}

	accessToken, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	refreshToken, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}

	s.limiter.Reset(ctx, email)

	return &LoginResult{
		User:            user,
		AccessToken:     accessToken,
		AccessExpiresAt: expiresAt,
		RefreshToken:    refreshToken,
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is not rotated and stays valid until expiry, logout
// or a newer login.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.User, string, time.Time, error) {
	userID, err := s.sessions.Validate(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrSessionNotFound) || errors.Is(err, auth.ErrSessionExpired) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid or expired refresh token")
		}
		return nil, "", time.Time{}, apperrors.NewStoreFailure(err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid or expired refresh token")
		}
		return nil, "", time.Time{}, apperrors.NewStoreFailure(err)
	}

	accessToken, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return user, accessToken, expiresAt, nil
}

// Logout revokes the refresh session matching the token. Idempotent: a
// missing or already-expired session is not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.sessions.Revoke(ctx, refreshToken); err != nil {
		return apperrors.NewStoreFailure(err)
	}
	return nil
}

// ProvisionInput describes a new account. Provisioning is a support-only
// operation, enforced at the route.
type ProvisionInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

// Provision creates a new account with a hashed password.
func (s *AuthService) Provision(ctx context.Context, input ProvisionInput) (*domain.User, error) {
	if !input.Role.Valid() {
		return nil, apperrors.NewValidationError("role must be requester or support", nil)
	}

	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return nil, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewStoreFailure(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         input.Role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}
	return user, nil
}

// Profile loads the authenticated caller's account record.
func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user")
		}
		return nil, apperrors.NewStoreFailure(err)
	}
	return user, nil
}
