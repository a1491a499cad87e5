// Package auth verifies interactive users and API keys against the
// configured credential lists.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for an unknown user or wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// User is a configured interactive account. PasswordHash is either a bcrypt
// hash or the legacy base64 encoded SHA-256 digest of the password.
type User struct {
	Username     string `toml:"username" json:"username" yaml:"username"`
	PasswordHash string `toml:"password" json:"password" yaml:"password"`
}

// APIKey is a configured upload credential.
type APIKey struct {
	Key     string `toml:"key" json:"key" yaml:"key"`
	Comment string `toml:"comment" json:"comment,omitempty" yaml:"comment"`
}

// VerifyUser scans users in order. The first entry with a matching username
// decides the outcome; later entries with the same name are never tried.
func VerifyUser(users []User, username, password string) (*User, error) {
	for i := range users {
		u := &users[i]
		if u.Username != username {
			continue
		}
		if CheckPassword(u.PasswordHash, password) {
			return u, nil
		}
		return nil, ErrInvalidCredentials
	}
	return nil, ErrInvalidCredentials
}

// CheckPassword compares password against a stored hash of either format.
func CheckPassword(hash, password string) bool {
	if isBcrypt(hash) {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	}
	want := HashPasswordLegacy(password)
	return subtle.ConstantTimeCompare([]byte(hash), []byte(want)) == 1
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}

// HashPassword returns a bcrypt hash for a config file.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// HashPasswordLegacy returns the base64 encoded SHA-256 digest used by older
// config files.
func HashPasswordLegacy(password string) string {
	sum := sha256.Sum256([]byte(password))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// FindAPIKey returns the configured key matching presented, if any.
func FindAPIKey(keys []APIKey, presented string) (*APIKey, bool) {
	if presented == "" {
		return nil, false
	}
	for i := range keys {
		if subtle.ConstantTimeCompare([]byte(keys[i].Key), []byte(presented)) == 1 {
			return &keys[i], true
		}
	}
	return nil, false
}
