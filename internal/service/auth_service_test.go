package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/salary-api/internal/models"
	appErrors "github.com/noah-isme/salary-api/pkg/errors"
)

type mockAuthRepo struct {
	users     map[string]*models.User
	findErr   error
	createErr error
	nextID    int64
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{users: map[string]*models.User{}, nextID: 1}
}

func (m *mockAuthRepo) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, user := range m.users {
		if user.Username == login || user.Email == login {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id int64) (*models.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	user.ID = m.nextID
	user.CreatedAt = time.Now()
	m.nextID++
	m.users[user.Username] = user
	return nil
}

func newAuthServiceForTest(repo *mockAuthRepo) *AuthService {
	return NewAuthService(repo, nil, zap.NewNop(), AuthConfig{Secret: "secret", Expiry: time.Hour, Issuer: "salary-api"})
}

func TestAuthServiceRegisterHashesPassword(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newAuthServiceForTest(repo)

	user, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: " payroll ",
		Email:    "Payroll@Example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, "payroll", user.Username)
	assert.Equal(t, "payroll@example.com", user.Email)
	assert.Equal(t, models.RoleViewer, user.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("password123")))
}

func TestAuthServiceRegisterRejectsShortPassword(t *testing.T) {
	svc := newAuthServiceForTest(newMockAuthRepo())
	_, err := svc.Register(context.Background(), models.RegisterRequest{Username: "abc", Email: "a@b.co", Password: "short"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}

func TestAuthServiceRegisterDuplicate(t *testing.T) {
	repo := newMockAuthRepo()
	repo.createErr = &pq.Error{Code: "23505"}
	svc := newAuthServiceForTest(repo)

	_, err := svc.Register(context.Background(), models.RegisterRequest{Username: "abc", Email: "a@b.co", Password: "password123"})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, appErrors.FromError(err).Status)
}

func TestAuthServiceLoginIssuesValidToken(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newAuthServiceForTest(repo)
	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "admin",
		Email:    "admin@example.com",
		Password: "password123",
		Role:     models.RoleAdmin,
	})
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Login: "admin@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.UserID)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "salary-api", claims.Issuer)
}

func TestAuthServiceLoginInvalidCredentials(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newAuthServiceForTest(repo)
	_, err := svc.Register(context.Background(), models.RegisterRequest{Username: "admin", Email: "admin@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{Login: "admin", Password: "wrong-password"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = svc.Login(context.Background(), models.LoginRequest{Login: "nobody", Password: "password123"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	repo.findErr = errors.New("db down")
	_, err = svc.Login(context.Background(), models.LoginRequest{Login: "admin", Password: "password123"})
	assert.Equal(t, http.StatusInternalServerError, appErrors.FromError(err).Status)
}

func TestAuthServiceValidateTokenRejectsForeignSecret(t *testing.T) {
	repo := newMockAuthRepo()
	issuer := newAuthServiceForTest(repo)
	_, err := issuer.Register(context.Background(), models.RegisterRequest{Username: "admin", Email: "admin@example.com", Password: "password123"})
	require.NoError(t, err)
	resp, err := issuer.Login(context.Background(), models.LoginRequest{Login: "admin", Password: "password123"})
	require.NoError(t, err)

	other := NewAuthService(repo, nil, nil, AuthConfig{Secret: "different"})
	_, err = other.ValidateToken(resp.AccessToken)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, appErrors.FromError(err).Status)
}

func TestAuthServiceValidateTokenExpired(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newAuthServiceForTest(repo)
	_, err := svc.Register(context.Background(), models.RegisterRequest{Username: "admin", Email: "admin@example.com", Password: "password123"})
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	resp, err := svc.Login(context.Background(), models.LoginRequest{Login: "admin", Password: "password123"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(resp.AccessToken)
	require.Error(t, err)
}

func TestAuthServiceMe(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newAuthServiceForTest(repo)
	created, err := svc.Register(context.Background(), models.RegisterRequest{Username: "admin", Email: "admin@example.com", Password: "password123"})
	require.NoError(t, err)

	user, err := svc.Me(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)

	_, err = svc.Me(context.Background(), 404)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}
