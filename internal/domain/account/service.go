package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
)

// ErrInvalidCredentials is returned by Authenticate for an unknown email or
// a wrong password alike.
var ErrInvalidCredentials = apperr.NotFound("invalid email or password")

// Service is the identity gateway: the only code that creates, checks or
// deletes login credentials.
type Service struct {
	repo        Repository
	tokens      *auth.TokenIssuer
	minPassword int
}

func NewService(repo Repository, tokens *auth.TokenIssuer, minPasswordLen int) *Service {
	return &Service{repo: repo, tokens: tokens, minPassword: minPasswordLen}
}

// MinPasswordLength is the shortest password Create accepts.
func (s *Service) MinPasswordLength() int { return s.minPassword }

// Create stores a new account with a hashed password and the given roles.
func (s *Service) Create(ctx context.Context, email, password string, roles ...string) (*Account, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, apperr.InvalidArgument("email is required")
	}
	if len([]rune(password)) < s.minPassword {
		return nil, apperr.InvalidArgument("password must be at least %d characters long", s.minPassword)
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict("user with email %s already exists", email)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	a := &Account{Email: email, PasswordHash: hash, Roles: roles}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// EmailInUse reports whether an account already uses email.
func (s *Service) EmailInUse(ctx context.Context, email string) (bool, error) {
	a, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	return a != nil, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// Authenticate checks the credentials and returns a signed bearer token.
func (s *Service) Authenticate(ctx context.Context, email, password string) (string, error) {
	a, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if a == nil {
		return "", ErrInvalidCredentials
	}

	ok, err := auth.CheckPassword(a.PasswordHash, password)
	if err != nil {
		return "", fmt.Errorf("check password: %w", err)
	}
	if !ok {
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(a.ID, a.Email, a.Roles)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

// IsInvalidCredentials reports whether err is a failed login.
func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}
