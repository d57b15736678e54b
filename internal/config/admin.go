// Package config provides admin credential configuration and hashing.
package config

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

// AdminConfig holds the credential used to obtain an API token. The
// validator has a single operator account; there is no user database.
type AdminConfig struct {
	PasswordHash string
	BcryptCost   int
}

// NewAdminConfig creates the admin credential configuration from
// environment variables. It reads ADMIN_PASSWORD_HASH (a bcrypt hash,
// preferred) or ADMIN_PASSWORD (hashed at startup), and BCRYPT_COST
// (default: 12).
func NewAdminConfig() (*AdminConfig, error) {
	costStr := os.Getenv("BCRYPT_COST")
	if costStr == "" {
		costStr = "12" // default
	}

	cost, err := strconv.Atoi(costStr)
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %v", err)
	}
	if cost < 10 || cost > 14 {
		return nil, fmt.Errorf("bcrypt cost out of range: %d (must be 10-14)", cost)
	}

	config := &AdminConfig{BcryptCost: cost}

	if hash := os.Getenv("ADMIN_PASSWORD_HASH"); hash != "" {
		config.PasswordHash = hash
		return config, nil
	}

	plain := os.Getenv("ADMIN_PASSWORD")
	if plain == "" {
		return nil, fmt.Errorf("ADMIN_PASSWORD_HASH or ADMIN_PASSWORD is required but not set")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}
	config.PasswordHash = string(hashed)

	return config, nil
}

// VerifyPassword verifies a password against the configured hash.
func (c *AdminConfig) VerifyPassword(pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(pw)) == nil
}
