package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jordan/design-validator/internal/config"
)

func testAuthHandler(t *testing.T, password string) *AuthHandler {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	admin := &config.AdminConfig{PasswordHash: string(hash), BcryptCost: bcrypt.MinCost}
	jwtService := NewJWTService(&config.JWTConfig{
		Secret:          "test-secret-at-least-32-chars-long!!",
		ExpirationHours: 24,
	})
	return NewAuthHandler(admin, jwtService)
}

func TestLogin_Success(t *testing.T) {
	h := testAuthHandler(t, "correct-horse")

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"password":"correct-horse"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, 24, resp.ExpiresIn)

	// The issued token round-trips through validation.
	claims, err := h.jwtService.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.GetSubject())
}

func TestLogin_WrongPassword(t *testing.T) {
	h := testAuthHandler(t, "correct-horse")

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"password":"battery-staple"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_MissingPassword(t *testing.T) {
	h := testAuthHandler(t, "correct-horse")

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_InvalidBody(t *testing.T) {
	h := testAuthHandler(t, "correct-horse")

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`not json`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
