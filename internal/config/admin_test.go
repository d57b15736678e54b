package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewAdminConfig_FromPlainPassword(t *testing.T) {
	t.Setenv("ADMIN_PASSWORD_HASH", "")
	t.Setenv("ADMIN_PASSWORD", "hunter2")
	t.Setenv("BCRYPT_COST", "10")

	cfg, err := NewAdminConfig()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.True(t, cfg.VerifyPassword("hunter2"))
	assert.False(t, cfg.VerifyPassword("wrong"))
}

func TestNewAdminConfig_FromHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	t.Setenv("ADMIN_PASSWORD_HASH", string(hash))
	t.Setenv("ADMIN_PASSWORD", "")
	t.Setenv("BCRYPT_COST", "")

	cfg, err := NewAdminConfig()
	require.NoError(t, err)
	assert.True(t, cfg.VerifyPassword("secret"))
}

func TestNewAdminConfig_MissingCredentials(t *testing.T) {
	t.Setenv("ADMIN_PASSWORD_HASH", "")
	t.Setenv("ADMIN_PASSWORD", "")
	t.Setenv("BCRYPT_COST", "")

	_, err := NewAdminConfig()
	assert.Error(t, err)
}

func TestNewAdminConfig_CostOutOfRange(t *testing.T) {
	t.Setenv("ADMIN_PASSWORD", "secret")
	t.Setenv("BCRYPT_COST", "20")

	_, err := NewAdminConfig()
	assert.Error(t, err)
}

func TestNewJWTConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("JWT_EXPIRATION_HOURS", "48")

	cfg, err := NewJWTConfig()
	require.NoError(t, err)
	assert.Equal(t, "test-secret", cfg.Secret)
	assert.Equal(t, 48, cfg.ExpirationHours)
}

func TestNewJWTConfig_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := NewJWTConfig()
	assert.Error(t, err)
}
