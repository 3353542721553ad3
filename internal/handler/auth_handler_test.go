package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tutorease/tutorease-api/internal/models"
	"github.com/tutorease/tutorease-api/internal/service"
)

type fakeUserRepo struct {
	usersByEmail map[string]models.User
	tokens       map[string]models.RefreshToken
	createErr    error
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := f.usersByEmail[email]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	for _, u := range f.usersByEmail {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.usersByEmail == nil {
		f.usersByEmail = make(map[string]models.User)
	}
	if user.ID == "" {
		user.ID = "user-new"
	}
	f.usersByEmail[user.Email] = *user
	return nil
}

func (f *fakeUserRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if f.tokens == nil {
		f.tokens = make(map[string]models.RefreshToken)
	}
	if token.ID == "" {
		token.ID = "token-new"
	}
	f.tokens[token.Token] = *token
	return nil
}

func (f *fakeUserRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := f.tokens[token]; ok {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) RevokeRefreshToken(ctx context.Context, id string) error {
	for key, t := range f.tokens {
		if t.ID == id {
			t.Revoked = true
			f.tokens[key] = t
		}
	}
	return nil
}

func newAuthTestHandler(repo *fakeUserRepo) *AuthHandler {
	svc := service.NewAuthService(repo, nil, nil, service.AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "tutorease-test",
	})
	return NewAuthHandler(svc)
}

func TestAuthHandlerRegister(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAuthTestHandler(&fakeUserRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(
		`{"email": "ana@example.com", "password": "secret123", "full_name": "Ana", "role": "student"}`))

	handler.Register(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "ana@example.com", envelope.Data["email"])
	assert.Equal(t, "student", envelope.Data["role"])
	assert.NotContains(t, rec.Body.String(), "secret123")
}

func TestAuthHandlerRegisterDuplicateEmail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAuthTestHandler(&fakeUserRepo{
		createErr: &pq.Error{Code: "23505"},
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(
		`{"email": "ana@example.com", "password": "secret123", "full_name": "Ana", "role": "student"}`))

	handler.Register(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAuthHandlerRegisterRejectsAdminRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAuthTestHandler(&fakeUserRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(
		`{"email": "root@example.com", "password": "secret123", "full_name": "Root", "role": "admin"}`))

	handler.Register(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandlerLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &fakeUserRepo{usersByEmail: map[string]models.User{
		"ana@example.com": {
			ID:           "user-1",
			Email:        "ana@example.com",
			PasswordHash: string(hash),
			FullName:     "Ana",
			Role:         models.RoleStudent,
			Active:       true,
		},
	}}
	handler := newAuthTestHandler(repo)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(
		`{"email": "ana@example.com", "password": "secret123"}`))

	handler.Login(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.NotEmpty(t, envelope.Data["access_token"])
	assert.NotEmpty(t, envelope.Data["refresh_token"])
}

func TestAuthHandlerLoginWrongPassword(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &fakeUserRepo{usersByEmail: map[string]models.User{
		"ana@example.com": {
			ID:           "user-1",
			Email:        "ana@example.com",
			PasswordHash: string(hash),
			Role:         models.RoleStudent,
			Active:       true,
		},
	}}
	handler := newAuthTestHandler(repo)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(
		`{"email": "ana@example.com", "password": "wrong"}`))

	handler.Login(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandlerLoginUnknownEmail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAuthTestHandler(&fakeUserRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(
		`{"email": "ghost@example.com", "password": "whatever"}`))

	handler.Login(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
