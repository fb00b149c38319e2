package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/chitfund/internal/models"
	"github.com/mmynk/chitfund/internal/storage/sqlite"
)

func newAuthenticator(t *testing.T) *PasswordAuthenticator {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)
}

func TestRegisterAndAuthenticate(t *testing.T) {
	a := newAuthenticator(t)
	ctx := context.Background()

	user, err := a.Register(ctx, " Asha@Example.com ", "Asha", "correct-horse", models.RoleOrganizer)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Email != "asha@example.com" || user.Role != models.RoleOrganizer {
		t.Errorf("Got %+v", user)
	}

	got, err := a.Authenticate(ctx, "ASHA@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("Authenticated %s, want %s", got.ID, user.ID)
	}

	if _, err := a.Authenticate(ctx, "asha@example.com", "wrong-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := a.Authenticate(ctx, "nobody@example.com", "correct-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestRegisterRejects(t *testing.T) {
	a := newAuthenticator(t)
	ctx := context.Background()

	if _, err := a.Register(ctx, "a@example.com", "A", "short", models.RoleMember); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("Expected ErrWeakPassword, got %v", err)
	}
	if _, err := a.Register(ctx, "a@example.com", "A", "long-enough", models.Role("admin")); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("Expected ErrInvalidRole, got %v", err)
	}
	if _, err := a.Register(ctx, "a@example.com", "A", "long-enough", models.RoleMember); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := a.Register(ctx, "A@EXAMPLE.COM", "A", "long-enough", models.RoleMember); !errors.Is(err, ErrEmailExists) {
		t.Errorf("Expected ErrEmailExists, got %v", err)
	}
}

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	user := models.NewUser("m@example.com", "M", "", models.RoleMember)

	token, err := m.Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.UserID != user.ID || claims.Email != user.Email || claims.Role != models.RoleMember {
		t.Errorf("Claims = %+v", claims)
	}
}

func TestJWTRejectsForeignAndExpiredTokens(t *testing.T) {
	user := models.NewUser("m@example.com", "M", "", models.RoleMember)

	other, err := NewJWTManager("other-secret", time.Hour).Generate(user)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewJWTManager("test-secret", time.Hour).Validate(other); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for a foreign signature, got %v", err)
	}

	expired, err := NewJWTManager("test-secret", -time.Minute).Generate(user)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewJWTManager("test-secret", time.Hour).Validate(expired); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for an expired token, got %v", err)
	}

	if _, err := NewJWTManager("test-secret", time.Hour).Validate("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for garbage, got %v", err)
	}
}
