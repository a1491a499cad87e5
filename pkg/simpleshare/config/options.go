package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/tendant/simple-share/pkg/simpleshare/auth"
)

// WithFile reads a TOML, JSON or YAML config file, chosen by extension.
// Environment variables are applied on top of the file.
func WithFile(path string) Option {
	return func(c *ServerConfig) error {
		if path == "" {
			return fmt.Errorf("config file path cannot be empty")
		}
		if err := cleanenv.ReadConfig(path, c); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		return nil
	}
}

// WithEnv applies environment variable overrides, e.g. BIND_ADDR,
// STORAGE_URL, SESSION_BACKEND or S3_ACCESS_KEY_ID.
func WithEnv() Option {
	return func(c *ServerConfig) error {
		if err := cleanenv.ReadEnv(c); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		return nil
	}
}

// WithBindAddr sets the listen address
func WithBindAddr(addr string) Option {
	return func(c *ServerConfig) error {
		if addr == "" {
			return fmt.Errorf("bind address cannot be empty")
		}
		c.BindAddr = addr
		return nil
	}
}

// WithExternalURL sets the base URL of public links
func WithExternalURL(base string) Option {
	return func(c *ServerConfig) error {
		if base == "" {
			return fmt.Errorf("external URL cannot be empty")
		}
		c.ExternalURL = base
		return nil
	}
}

// WithStorageURL selects the storage backend, see ServerConfig.StorageURL
func WithStorageURL(storageURL string) Option {
	return func(c *ServerConfig) error {
		c.StorageURL = storageURL
		return nil
	}
}

// WithUser adds an interactive account with a pre-hashed password
func WithUser(username, passwordHash string) Option {
	return func(c *ServerConfig) error {
		c.Users = append(c.Users, auth.User{Username: username, PasswordHash: passwordHash})
		return nil
	}
}

// WithAPIKey adds an upload key
func WithAPIKey(key, comment string) Option {
	return func(c *ServerConfig) error {
		c.APIKeys = append(c.APIKeys, auth.APIKey{Key: key, Comment: comment})
		return nil
	}
}

// WithSessionBackend selects memory, redis or cookie sessions
func WithSessionBackend(backend string) Option {
	return func(c *ServerConfig) error {
		c.Session.Backend = backend
		return nil
	}
}

// WithMetrics toggles the /metrics endpoint
func WithMetrics(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.EnableMetrics = enabled
		return nil
	}
}
