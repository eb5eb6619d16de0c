// Package user registers and authenticates marketplace accounts.
package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/example/bazaar/internal/apperr"
	"github.com/example/bazaar/internal/auth"
	"github.com/example/bazaar/internal/infrastructure/store"
	"github.com/google/uuid"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleProvider Role = "provider"
	RoleDriver   Role = "driver"
	RoleAdmin    Role = "admin"
)

// selfServiceRoles can be chosen at registration. Admins are provisioned
// out of band.
var selfServiceRoles = map[Role]bool{
	RoleCustomer: true,
	RoleProvider: true,
	RoleDriver:   true,
}

var (
	ErrInvalidEmail       = apperr.New(apperr.KindValidation, "a valid email is required")
	ErrInvalidName        = apperr.New(apperr.KindValidation, "name is required")
	ErrInvalidRole        = apperr.New(apperr.KindValidation, "role must be customer, provider or driver")
	ErrEmailTaken         = apperr.New(apperr.KindConflict, "email already registered")
	ErrInvalidCredentials = apperr.New(apperr.KindUnauthorized, "invalid email or password")
	ErrUserNotFound       = apperr.New(apperr.KindNotFound, "user not found")
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Repository stores users. Create returns store.ErrDuplicate for a taken
// email; lookups return store.ErrNotFound.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates an account. An empty role means customer.
func (s *Service) Register(ctx context.Context, email, password, name string, role Role) (*User, error) {
	email = normalizeEmail(email)
	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	if role == "" {
		role = RoleCustomer
	}
	if !selfServiceRoles[role] {
		return nil, ErrInvalidRole
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Authenticate never tells apart an unknown email from a wrong password.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !auth.CheckPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

// isValidEmail accepts a bare RFC 5322 address only, no display name.
func isValidEmail(email string) bool {
	if email == "" || len(email) > 254 {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
