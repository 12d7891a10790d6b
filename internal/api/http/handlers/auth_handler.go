package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/edusupport/helpdesk-service/internal/api/dto"
	"github.com/edusupport/helpdesk-service/internal/auth"
	"github.com/edusupport/helpdesk-service/internal/domain"
	"github.com/edusupport/helpdesk-service/internal/service"
	apperrors "github.com/edusupport/helpdesk-service/pkg/util"
)

// RefreshCookieName is the fixed cookie carrying the opaque refresh token.
const RefreshCookieName = "refreshToken"

// AuthHandler exposes login, refresh, logout, provisioning and profile.
type AuthHandler struct {
	auth          *service.AuthService
	refreshTTL    time.Duration
	secureCookies bool
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(authService *service.AuthService, refreshTTL time.Duration, secureCookies bool) *AuthHandler {
	return &AuthHandler{auth: authService, refreshTTL: refreshTTL, secureCookies: secureCookies}
}

// Login handles POST /auth/login. On success the access token travels in
// the body and the refresh token in an HTTP-only cookie.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	result, err := h.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	h.setRefreshCookie(c, result.RefreshToken)
	return c.JSON(dto.AuthResponse{
		AccessToken: result.AccessToken,
		ExpiresAt:   result.AccessExpiresAt,
		User:        dto.NewUserResponse(result.User),
	})
}

// Refresh handles POST /auth/refresh. It reads only the cookie and leaves
// it untouched: the refresh token is not rotated per use.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	refreshToken := c.Cookies(RefreshCookieName)
	if refreshToken == "" {
		return apperrors.NewUnauthorized("missing refresh token")
	}

	user, accessToken, expiresAt, err := h.auth.Refresh(c.Context(), refreshToken)
	if err != nil {
		return err
	}

	return c.JSON(dto.AuthResponse{
		AccessToken: accessToken,
		ExpiresAt:   expiresAt,
		User:        dto.NewUserResponse(user),
	})
}

// Logout handles POST /auth/logout. Revocation is idempotent and the
// cookie is always cleared, even when the revocation itself fails.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	err := h.auth.Logout(c.Context(), c.Cookies(RefreshCookieName))
	h.clearRefreshCookie(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "logged out"})
}

// Register handles POST /auth/register; the route is support-only.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Name == "" || req.Email == "" || req.Password == "" || req.Role == "" {
		return apperrors.NewValidationError("name, email, password and role required", nil)
	}

	user, err := h.auth.Provision(c.Context(), service.ProvisionInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.Role(req.Role),
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Profile handles GET /auth/profile.
func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	user, err := h.auth.Profile(c.Context(), principal.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

func (h *AuthHandler) setRefreshCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.refreshTTL),
		HTTPOnly: true,
		Secure:   h.secureCookies,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.secureCookies,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}
