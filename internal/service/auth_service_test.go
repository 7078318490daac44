package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rewear-app/rewear-api/internal/models"
)

type mockUserRepo struct {
	byEmail   map[string]*models.User
	byID      map[string]*models.User
	passwords map[string]string
	lastLogin map[string]time.Time
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		byEmail:   make(map[string]*models.User),
		byID:      make(map[string]*models.User),
		passwords: make(map[string]string),
		lastLogin: make(map[string]time.Time),
	}
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	m.byEmail[user.Email] = user
	m.byID[user.ID] = user
	return nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLogin[id] = ts
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	m.passwords[id] = passwordHash
	if u, ok := m.byID[id]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

func newAuthFixture(repo *mockUserRepo) *AuthService {
	return NewAuthService(repo, nil, nil, AuthConfig{
		Secret: "test-secret",
		Expiry: time.Hour,
		Issuer: "rewear-api",
	})
}

func seedUser(repo *mockUserRepo, id, email, password string, active bool) *models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	user := &models.User{
		ID:           id,
		Email:        email,
		PasswordHash: string(hash),
		FullName:     "Ada Marsh",
		Role:         models.RoleUser,
		Active:       active,
	}
	repo.byEmail[email] = user
	repo.byID[id] = user
	return user
}

func TestAuthServiceRegisterAndValidate(t *testing.T) {
	repo := newMockUserRepo()
	svc := newAuthFixture(repo)

	resp, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "Ada@Example.com",
		Password: "sup3rsecret",
		FullName: "Ada Marsh",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.Equal(t, models.RoleUser, resp.User.Role)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, models.RoleUser, claims.Role)
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(repo, "user-1", "ada@example.com", "sup3rsecret", true)
	svc := newAuthFixture(repo)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "ada@example.com",
		Password: "different",
		FullName: "Imposter",
	})
	assertErrorCode(t, err, "CONFLICT")
}

func TestAuthServiceLogin(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(repo, "user-1", "ada@example.com", "sup3rsecret", true)
	svc := newAuthFixture(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "ada@example.com",
		Password: "sup3rsecret",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.False(t, repo.lastLogin["user-1"].IsZero())
}

func TestAuthServiceLoginFailures(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(repo, "user-1", "ada@example.com", "sup3rsecret", true)
	seedUser(repo, "user-2", "sleepy@example.com", "sup3rsecret", false)
	svc := newAuthFixture(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ada@example.com", Password: "wrong"})
	assertErrorCode(t, err, "INVALID_CREDENTIALS")

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	assertErrorCode(t, err, "INVALID_CREDENTIALS")

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "sleepy@example.com", Password: "sup3rsecret"})
	assertErrorCode(t, err, "ACCOUNT_INACTIVE")
}

func TestAuthServiceChangePassword(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(repo, "user-1", "ada@example.com", "sup3rsecret", true)
	svc := newAuthFixture(repo)

	err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{
		OldPassword: "wrong",
		NewPassword: "evenm0resecret",
	})
	assertErrorCode(t, err, "INVALID_CREDENTIALS")

	err = svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{
		OldPassword: "sup3rsecret",
		NewPassword: "evenm0resecret",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "ada@example.com", Password: "evenm0resecret"})
	require.NoError(t, err)
}

func TestAuthServiceValidateTokenRejectsForgery(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(repo, "user-1", "ada@example.com", "sup3rsecret", true)

	issuer := newAuthFixture(repo)
	resp, err := issuer.Login(context.Background(), models.LoginRequest{Email: "ada@example.com", Password: "sup3rsecret"})
	require.NoError(t, err)

	verifier := NewAuthService(repo, nil, nil, AuthConfig{Secret: "other-secret", Expiry: time.Hour, Issuer: "rewear-api"})
	_, err = verifier.ValidateToken(resp.AccessToken)
	assertErrorCode(t, err, "UNAUTHORIZED")

	_, err = issuer.ValidateToken("not-a-token")
	assertErrorCode(t, err, "UNAUTHORIZED")
}
