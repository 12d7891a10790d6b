package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/edusupport/helpdesk-service/internal/auth"
	"github.com/edusupport/helpdesk-service/internal/domain"
	"github.com/edusupport/helpdesk-service/internal/repository"
	"github.com/edusupport/helpdesk-service/internal/security"
	apperrors "github.com/edusupport/helpdesk-service/pkg/util"
)

func newTestAuthService(t *testing.T) (*AuthService, repository.UserRepository, *auth.SessionManager) {
	t.Helper()

	users := repository.NewMemoryUserRepository()
	sessions := auth.NewSessionManager(repository.NewMemoryRefreshSessionRepository(), 30*24*time.Hour)
	tokens, err := auth.NewTokenManager("test-secret", 15*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}

	svc := NewAuthService(AuthDependencies{
		Users:    users,
		Tokens:   tokens,
		Sessions: sessions,
		Limiter:  security.NewLoginLimiter(nil, 10, time.Minute, nil),
	}, bcrypt.MinCost)
	return svc, users, sessions
}

func seedUser(t *testing.T, users repository.UserRepository, email, password string, role domain.Role) *domain.User {
	t.Helper()

	hash, err := auth.HashPassword(password, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	user := &domain.User{
		Name:         "Test User",
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("Create user: %v", err)
	}
	return user
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	de := apperrors.ToDomainError(err)
	if de == nil {
		t.Fatal("expected an error")
	}
	return de.HTTPStatus
}

func TestLoginIssuesBothCredentials(t *testing.T) {
	svc, users, sessions := newTestAuthService(t)
	seedUser(t, users, "alice@school.example", "s3cret-pass", domain.RoleRequester)
	ctx := context.Background()

	result, err := svc.Login(ctx, "alice@school.example", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("missing credential in login result")
	}
	until := time.Until(result.AccessExpiresAt)
	if until < 14*time.Minute || until > 15*time.Minute {
		t.Fatalf("access expiry not ~15m out: %v", until)
	}

	userID, err := sessions.Validate(ctx, result.RefreshToken)
	if err != nil {
		t.Fatalf("refresh token invalid right after login: %v", err)
	}
	if userID != result.User.ID {
		t.Fatalf("session bound to wrong user: %s", userID)
	}
}

func TestLoginFailureIsGeneric(t *testing.T) {
	svc, users, _ := newTestAuthService(t)
	seedUser(t, users, "alice@school.example", "s3cret-pass", domain.RoleRequester)
	ctx := context.Background()

	_, errUnknown := svc.Login(ctx, "nobody@school.example", "whatever")
	_, errBadPass := svc.Login(ctx, "alice@school.example", "wrong-pass")

	for _, err := range []error{errUnknown, errBadPass} {
		if status := statusOf(t, err); status != 401 {
			t.Fatalf("expected 401, got %d", status)
		}
	}
	// Identical messages: the caller cannot tell which field was wrong.
	if apperrors.ToDomainError(errUnknown).Message != apperrors.ToDomainError(errBadPass).Message {
		t.Fatal("login failures leak which field was wrong")
	}
}

func TestLoginSupersedesPriorSession(t *testing.T) {
	svc, users, _ := newTestAuthService(t)
	seedUser(t, users, "alice@school.example", "s3cret-pass", domain.RoleRequester)
	ctx := context.Background()

	first, err := svc.Login(ctx, "alice@school.example", "s3cret-pass")
	if err != nil {
		t.Fatalf("first Login: %v", err)
	}
	second, err := svc.Login(ctx, "alice@school.example", "s3cret-pass")
	if err != nil {
		t.Fatalf("second Login: %v", err)
	}

	if _, _, _, err := svc.Refresh(ctx, first.RefreshToken); err == nil {
		t.Fatal("superseded refresh token still works")
	}
	if _, _, _, err := svc.Refresh(ctx, second.RefreshToken); err != nil {
		t.Fatalf("current refresh token rejected: %v", err)
	}
}

func TestConcurrentLoginsLeaveOneSession(t *testing.T) {
	svc, users, sessions := newTestAuthService(t)
	seedUser(t, users, "alice@school.example", "s3cret-pass", domain.RoleRequester)
	ctx := context.Background()

	const logins = 8
	tokens := make([]string, logins)
	var wg sync.WaitGroup
	for i := 0; i < logins; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := svc.Login(ctx, "alice@school.example", "s3cret-pass")
			if err == nil {
				tokens[i] = result.RefreshToken
			}
		}(i)
	}
	wg.Wait()

	// Last commit wins: exactly one of the issued tokens survives.
	valid := 0
	for _, token := range tokens {
		if token == "" {
			t.Fatal("a login failed")
		}
		if _, err := sessions.Validate(ctx, token); err == nil {
			valid++
		}
	}
	if valid != 1 {
		t.Fatalf("expected exactly 1 valid session, got %d", valid)
	}
}

func TestRefreshDoesNotRotate(t *testing.T) {
	svc, users, _ := newTestAuthService(t)
	seedUser(t, users, "alice@school.example", "s3cret-pass", domain.RoleRequester)
	ctx := context.Background()

	result, err := svc.Login(ctx, "alice@school.example", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	for i := 0; i < 3; i++ {
		user, accessToken, _, err := svc.Refresh(ctx, result.RefreshToken)
		if err != nil {
			t.Fatalf("Refresh round %d: %v", i, err)
		}
		if accessToken == "" {
			t.Fatalf("Refresh round %d returned empty token", i)
		}
		if user.ID != result.User.ID {
			t.Fatalf("Refresh returned wrong user: %s", user.ID)
		}
	}
}

func TestLogoutFinality(t *testing.T) {
	svc, users, _ := newTestAuthService(t)
	seedUser(t, users, "alice@school.example", "s3cret-pass", domain.RoleRequester)
	ctx := context.Background()

	result, err := svc.Login(ctx, "alice@school.example", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := svc.Logout(ctx, result.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	if _, _, _, err := svc.Refresh(ctx, result.RefreshToken); err == nil {
		t.Fatal("refresh succeeded after logout")
	} else if status := statusOf(t, err); status != 401 {
		t.Fatalf("expected 401 after logout, got %d", status)
	}

	// Logout is idempotent.
	if err := svc.Logout(ctx, result.RefreshToken); err != nil {
		t.Fatalf("second Logout: %v", err)
	}

	// A new login works and does not resurrect the old session.
	again, err := svc.Login(ctx, "alice@school.example", "s3cret-pass")
	if err != nil {
		t.Fatalf("re-login: %v", err)
	}
	if _, _, _, err := svc.Refresh(ctx, result.RefreshToken); err == nil {
		t.Fatal("old refresh token resurrected by new login")
	}
	if _, _, _, err := svc.Refresh(ctx, again.RefreshToken); err != nil {
		t.Fatalf("new refresh token rejected: %v", err)
	}
}

func TestProvisionRejectsDuplicateEmail(t *testing.T) {
	svc, users, _ := newTestAuthService(t)
	seedUser(t, users, "alice@school.example", "s3cret-pass", domain.RoleRequester)

	_, err := svc.Provision(context.Background(), ProvisionInput{
		Name:     "Another Alice",
		Email:    "alice@school.example",
		Password: "irrelevant",
		Role:     domain.RoleRequester,
	})
	if err == nil {
		t.Fatal("duplicate email accepted")
	}
}

func TestProvisionRejectsUnknownRole(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	_, err := svc.Provision(context.Background(), ProvisionInput{
		Name:     "Bob",
		Email:    "bob@school.example",
		Password: "irrelevant",
		Role:     domain.Role("admin"),
	})
	if err == nil {
		t.Fatal("unknown role accepted")
	}
}

func TestProvisionHashesPassword(t *testing.T) {
	svc, users, _ := newTestAuthService(t)
	ctx := context.Background()

	created, err := svc.Provision(ctx, ProvisionInput{
		Name:     "Bob Souza",
		Email:    "bob@school.example",
		Password: "plaintext-pass",
		Role:     domain.RoleSupport,
	})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}

	stored, err := users.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.PasswordHash == "plaintext-pass" {
		t.Fatal("password stored in plaintext")
	}
	if err := auth.ComparePassword(stored.PasswordHash, "plaintext-pass"); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}
}
