// Package account registers and authenticates users.
package account

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/barekit/docqa/pkg/domain"
	"github.com/barekit/docqa/pkg/memory"
)

// Service hashes passwords and checks credentials against a user store.
type Service struct {
	Users memory.UserStore
	Cost  int
	Now   func() time.Time
}

// New creates a Service with bcrypt.DefaultCost.
func New(users memory.UserStore) *Service {
	return &Service{Users: users, Cost: bcrypt.DefaultCost, Now: time.Now}
}

// Register creates an account. The email doubles as the user id.
func (s *Service) Register(ctx context.Context, email, password, fullName string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email", domain.ErrInvalidCredentials)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: empty password", domain.ErrInvalidCredentials)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.Cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := domain.User{
		ID:           email,
		Email:        email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(fullName),
		CreatedAt:    s.Now().UTC(),
	}
	if err := s.Users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Authenticate returns the user when password matches. Unknown emails and
// wrong passwords are both domain.ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.Users.GetUser(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}
