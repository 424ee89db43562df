package account

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
)

// -- Mock Repository --

type mockRepo struct {
	accounts map[uuid.UUID]*Account
	findErr  error
}

func newMockRepo() *mockRepo {
	return &mockRepo{accounts: make(map[uuid.UUID]*Account)}
}

func (m *mockRepo) Create(_ context.Context, a *Account) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	m.accounts[a.ID] = a
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, apperr.NotFound("account not found")
	}
	return a, nil
}

func (m *mockRepo) FindByEmail(_ context.Context, email string) (*Account, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, a := range m.accounts {
		if a.Email == NormalizeEmail(email) {
			return a, nil
		}
	}
	return nil, nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.accounts[id]; !ok {
		return fmt.Errorf("not found")
	}
	delete(m.accounts, id)
	return nil
}

var testKey = []byte("test-signing-key-that-is-long-enough!!")

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	tokens := auth.NewTokenIssuer(testKey, "clinic", "clinic-api", time.Hour)
	return NewService(repo, tokens, 4), repo
}

func TestCreate(t *testing.T) {
	svc, repo := newTestService()

	a, err := svc.Create(context.Background(), "  Dr.House@Example.com ", "vicodin", auth.RoleDoctor)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if a.Email != "dr.house@example.com" {
		t.Errorf("expected normalised email, got %q", a.Email)
	}
	if a.PasswordHash == "" || a.PasswordHash == "vicodin" {
		t.Error("expected a password hash")
	}
	if len(a.Roles) != 1 || a.Roles[0] != auth.RoleDoctor {
		t.Errorf("unexpected roles: %v", a.Roles)
	}
	if _, ok := repo.accounts[a.ID]; !ok {
		t.Error("expected account to be stored")
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Create(context.Background(), "ion@example.com", "secret", auth.RolePatient); err != nil {
		t.Fatal(err)
	}

	_, err := svc.Create(context.Background(), "ION@example.com", "secret", auth.RolePatient)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreate_InvalidInput(t *testing.T) {
	svc, _ := newTestService()

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"empty email", " ", "secret"},
		{"short password", "a@b.co", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.email, tt.password)
			if !errors.Is(err, apperr.ErrInvalidArgument) {
				t.Errorf("expected invalid argument, got %v", err)
			}
		})
	}
}

func TestEmailInUse(t *testing.T) {
	svc, repo := newTestService()
	svc.Create(context.Background(), "ion@example.com", "secret")

	inUse, err := svc.EmailInUse(context.Background(), "Ion@Example.com")
	if err != nil || !inUse {
		t.Errorf("expected email in use, got %v %v", inUse, err)
	}

	inUse, _ = svc.EmailInUse(context.Background(), "maria@example.com")
	if inUse {
		t.Error("expected unused email")
	}

	repo.findErr = errors.New("db down")
	if _, err := svc.EmailInUse(context.Background(), "x@y.z"); err == nil {
		t.Error("expected repository error")
	}
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newTestService()
	a, err := svc.Create(context.Background(), "ion@example.com", "secret", auth.RolePatient)
	if err != nil {
		t.Fatal(err)
	}

	token, err := svc.Authenticate(context.Background(), "ION@example.com", "secret")
	if err != nil {
		t.Fatalf("Authenticate() error: %v", err)
	}
	if token == "" {
		t.Fatal("expected token")
	}

	claims := &auth.Claims{}
	if _, err := jwtParse(token, claims); err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Subject != a.ID.String() || claims.Email != "ion@example.com" {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != auth.RolePatient {
		t.Errorf("unexpected roles claim: %v", claims.Roles)
	}
}

func TestAuthenticate_Failures(t *testing.T) {
	svc, _ := newTestService()
	svc.Create(context.Background(), "ion@example.com", "secret", auth.RolePatient)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "maria@example.com", "secret"},
		{"wrong password", "ion@example.com", "guess"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Authenticate(context.Background(), tt.email, tt.password)
			if !IsInvalidCredentials(err) {
				t.Errorf("expected invalid credentials, got %v", err)
			}
			if !errors.Is(err, apperr.ErrNotFound) {
				t.Errorf("expected not found kind, got %v", err)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	svc, repo := newTestService()
	a, _ := svc.Create(context.Background(), "ion@example.com", "secret")

	if err := svc.Delete(context.Background(), a.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if len(repo.accounts) != 0 {
		t.Error("expected account to be removed")
	}
	if _, err := svc.Get(context.Background(), a.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}
}

func jwtParse(token string, claims *auth.Claims) (*jwt.Token, error) {
	return jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return testKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
}
