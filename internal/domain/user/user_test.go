package user

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/example/bazaar/internal/auth"
	"github.com/example/bazaar/internal/infrastructure/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu      sync.Mutex
	byID    map[string]*User
	byEmail map[string]*User
	err     error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: make(map[string]*User), byEmail: make(map[string]*User)}
}

func (r *fakeRepo) Create(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.byEmail[u.Email]; ok {
		return store.ErrDuplicate
	}
	cp := *u
	r.byID[u.ID] = &cp
	r.byEmail[u.Email] = &cp
	return nil
}

func (r *fakeRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byEmail[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func newTestUserService() (*Service, *fakeRepo) {
	repo := newFakeRepo()
	return NewService(repo), repo
}

// ============================================
// Email Validation Tests
// ============================================

func TestIsValidEmail(t *testing.T) {
	valid := []string{"test@example.com", "user.name@domain.org", "user+tag@example.com", "a@b.cd"}
	invalid := []string{
		"",
		"notanemail",
		"@example.com",
		"user@",
		"Bob <bob@example.com>",
		"user space@example.com",
		strings.Repeat("a", 250) + "@example.com",
	}

	for _, email := range valid {
		assert.True(t, isValidEmail(email), "expected %q to be valid", email)
	}
	for _, email := range invalid {
		assert.False(t, isValidEmail(email), "expected %q to be invalid", email)
	}
}

// ============================================
// Register Tests
// ============================================

func TestService_Register_Success(t *testing.T) {
	service, repo := newTestUserService()

	u, err := service.Register(context.Background(), "  Test@Example.com ", "password123", "Test User", "")

	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "test@example.com", u.Email)
	assert.Equal(t, RoleCustomer, u.Role)
	assert.True(t, auth.CheckPassword("password123", u.PasswordHash))
	assert.Contains(t, repo.byID, u.ID)
}

func TestService_Register_Provider(t *testing.T) {
	service, _ := newTestUserService()

	u, err := service.Register(context.Background(), "shop@example.com", "password123", "Shop", RoleProvider)

	require.NoError(t, err)
	assert.Equal(t, RoleProvider, u.Role)
}

func TestService_Register_Validation(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		userName string
		role     Role
		wantErr  error
	}{
		{"bad email", "nope", "password123", "A", "", ErrInvalidEmail},
		{"blank name", "a@example.com", "password123", "  ", "", ErrInvalidName},
		{"admin not self-service", "a@example.com", "password123", "A", RoleAdmin, ErrInvalidRole},
		{"unknown role", "a@example.com", "password123", "A", "pirate", ErrInvalidRole},
		{"short password", "a@example.com", "short", "A", "", auth.ErrPasswordTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, repo := newTestUserService()
			_, err := service.Register(context.Background(), tt.email, tt.password, tt.userName, tt.role)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, repo.byID)
		})
	}
}

func TestService_Register_DuplicateEmail(t *testing.T) {
	service, _ := newTestUserService()
	ctx := context.Background()
	_, err := service.Register(ctx, "a@example.com", "password123", "A", "")
	require.NoError(t, err)

	_, err = service.Register(ctx, "A@example.com", "password456", "B", "")

	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestService_Register_StoreFailure(t *testing.T) {
	service, repo := newTestUserService()
	repo.err = errors.New("disk full")

	_, err := service.Register(context.Background(), "a@example.com", "password123", "A", "")

	assert.ErrorIs(t, err, repo.err)
}

// ============================================
// Authenticate Tests
// ============================================

func TestService_Authenticate(t *testing.T) {
	service, _ := newTestUserService()
	ctx := context.Background()
	registered, err := service.Register(ctx, "a@example.com", "password123", "A", RoleDriver)
	require.NoError(t, err)

	u, err := service.Authenticate(ctx, "A@EXAMPLE.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, u.ID)

	_, err = service.Authenticate(ctx, "a@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = service.Authenticate(ctx, "ghost@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_Get(t *testing.T) {
	service, _ := newTestUserService()
	ctx := context.Background()
	registered, err := service.Register(ctx, "a@example.com", "password123", "A", "")
	require.NoError(t, err)

	u, err := service.Get(ctx, registered.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", u.Email)

	_, err = service.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
