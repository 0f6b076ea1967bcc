package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/salary-api/internal/models"
	appErrors "github.com/noah-isme/salary-api/pkg/errors"
)

type authServiceMock struct {
	login     *models.LoginResponse
	user      *models.User
	err       error
	lastLogin models.LoginRequest
	meID      int64
}

func (m *authServiceMock) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	return m.user, m.err
}

func (m *authServiceMock) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	m.lastLogin = req
	return m.login, m.err
}

func (m *authServiceMock) Me(ctx context.Context, userID int64) (*models.User, error) {
	m.meID = userID
	return m.user, m.err
}

func TestAuthHandlerLogin(t *testing.T) {
	svc := &authServiceMock{login: &models.LoginResponse{AccessToken: "token", TokenType: "Bearer", ExpiresIn: 3600}}
	handler := NewAuthHandler(svc)

	c, w := newGinContext(http.MethodPost, "/auth/login", []byte(`{"login":"ana","password":"secret123"}`))
	handler.Login(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ana", svc.lastLogin.Login)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), `"access_token":"token"`)
}

func TestAuthHandlerLoginFailures(t *testing.T) {
	handler := NewAuthHandler(&authServiceMock{err: appErrors.ErrInvalidCredentials})

	c, w := newGinContext(http.MethodPost, "/auth/login", []byte(`{"login":"ana","password":"wrong"}`))
	handler.Login(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newGinContext(http.MethodPost, "/auth/login", []byte(`not json`))
	handler.Login(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandlerRegister(t *testing.T) {
	handler := NewAuthHandler(&authServiceMock{user: &models.User{ID: 3, Username: "ana", Role: models.RoleViewer}})

	c, w := newGinContext(http.MethodPost, "/auth/register", []byte(`{"username":"ana","email":"ana@example.com","password":"secret123"}`))
	handler.Register(c)

	require.Equal(t, http.StatusCreated, w.Code)
	data := string(decodeEnvelope(t, w).Data)
	assert.Contains(t, data, `"role":"VIEWER"`)
	assert.NotContains(t, data, "password")
}

func TestAuthHandlerMe(t *testing.T) {
	svc := &authServiceMock{user: &models.User{ID: 3, Username: "ana"}}
	handler := NewAuthHandler(svc)

	c, w := newGinContext(http.MethodGet, "/auth/me", nil)
	handler.Me(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newGinContext(http.MethodGet, "/auth/me", nil)
	withClaims(c, 3, models.RoleViewer)
	handler.Me(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(3), svc.meID)
}
