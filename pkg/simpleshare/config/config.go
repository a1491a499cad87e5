package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tendant/simple-share/pkg/simpleshare"
	"github.com/tendant/simple-share/pkg/simpleshare/auth"
	"github.com/tendant/simple-share/pkg/simpleshare/session"
	fsstorage "github.com/tendant/simple-share/pkg/simpleshare/storage/fs"
	memorystorage "github.com/tendant/simple-share/pkg/simpleshare/storage/memory"
	s3storage "github.com/tendant/simple-share/pkg/simpleshare/storage/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of
// defaults, then validates the result.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		BindAddr:    "127.0.0.1:8000",
		ExternalURL: "http://localhost:8000/",
		BasePath:    "d",
		Session: SessionConfig{
			Backend:    "memory",
			TTL:        "24h",
			CookieName: "simpleshare_session",
		},
		MaxUploadBytes: 512 << 20,
		NameAttempts:   simpleshare.DefaultNameAttempts,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// ServerConfig is the runtime configuration of the sharing service. Keys
// match the legacy TOML/JSON config files (bind_addr, external_url,
// base_path, api_keys, users, key).
type ServerConfig struct {
	BindAddr    string `toml:"bind_addr" json:"bind_addr" yaml:"bind_addr" env:"BIND_ADDR"`
	ExternalURL string `toml:"external_url" json:"external_url" yaml:"external_url" env:"EXTERNAL_URL"`

	// BasePath is the storage root used when StorageURL is empty.
	BasePath string `toml:"base_path" json:"base_path" yaml:"base_path" env:"BASE_PATH"`

	// StorageURL selects the backend:
	//   memory://
	//   file:///var/lib/simpleshare
	//   s3://bucket/prefix?region=us-east-1&endpoint=http://localhost:9000&path_style=true
	StorageURL string   `toml:"storage_url" json:"storage_url" yaml:"storage_url" env:"STORAGE_URL"`
	S3         S3Config `toml:"s3" json:"s3" yaml:"s3" env-prefix:"S3_"`

	APIKeys []auth.APIKey `toml:"api_keys" json:"api_keys" yaml:"api_keys"`
	Users   []auth.User   `toml:"users" json:"users" yaml:"users"`

	// Key is the secret for encrypted session cookies.
	Key string `toml:"key" json:"key" yaml:"key" env:"COOKIE_KEY"`

	Session SessionConfig `toml:"session" json:"session" yaml:"session" env-prefix:"SESSION_"`

	MaxUploadBytes int64 `toml:"max_upload_bytes" json:"max_upload_bytes" yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES"`
	NameAttempts   int   `toml:"name_attempts" json:"name_attempts" yaml:"name_attempts" env:"NAME_ATTEMPTS"`
	EnableMetrics  bool  `toml:"enable_metrics" json:"enable_metrics" yaml:"enable_metrics" env:"ENABLE_METRICS"`

	LogLevel  string `toml:"log_level" json:"log_level" yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat string `toml:"log_format" json:"log_format" yaml:"log_format" env:"LOG_FORMAT"` // text, json, pretty
}

// S3Config holds credentials and options that do not fit in StorageURL.
type S3Config struct {
	AccessKeyID     string `toml:"access_key_id" json:"access_key_id" yaml:"access_key_id" env:"ACCESS_KEY_ID"`
	SecretAccessKey string `toml:"secret_access_key" json:"secret_access_key" yaml:"secret_access_key" env:"SECRET_ACCESS_KEY"`
}

// SessionConfig configures interactive login sessions.
type SessionConfig struct {
	Backend string `toml:"backend" json:"backend" yaml:"backend" env:"BACKEND"` // memory, redis, cookie
	// TTL is a Go duration; "0" disables expiry.
	TTL          string `toml:"ttl" json:"ttl" yaml:"ttl" env:"TTL"`
	CookieName   string `toml:"cookie_name" json:"cookie_name" yaml:"cookie_name" env:"COOKIE_NAME"`
	CookieSecure bool   `toml:"cookie_secure" json:"cookie_secure" yaml:"cookie_secure" env:"COOKIE_SECURE"`
	RedisURL     string `toml:"redis_url" json:"redis_url" yaml:"redis_url" env:"REDIS_URL"`
}

// Validate validates the server configuration and normalizes ExternalURL
// to end with a slash.
func (c *ServerConfig) Validate() error {
	if c.BindAddr == "" {
		return errors.New("bind_addr is required")
	}
	if c.ExternalURL == "" {
		return errors.New("external_url is required")
	}
	if !strings.HasSuffix(c.ExternalURL, "/") {
		c.ExternalURL += "/"
	}

	if _, err := c.storage(); err != nil {
		return err
	}

	switch c.Session.Backend {
	case "memory":
	case "redis":
		if c.Session.RedisURL == "" {
			return errors.New("session.redis_url is required for the redis session backend")
		}
	case "cookie":
		if c.Key == "" {
			return errors.New("key is required for the cookie session backend")
		}
	default:
		return fmt.Errorf("session.backend must be 'memory', 'redis' or 'cookie', got: %s", c.Session.Backend)
	}
	if _, err := c.SessionTTL(); err != nil {
		return err
	}
	if c.Session.CookieName == "" {
		return errors.New("session.cookie_name is required")
	}

	for i, u := range c.Users {
		if u.Username == "" || u.PasswordHash == "" {
			return fmt.Errorf("users[%d]: username and password are required", i)
		}
	}
	for i, k := range c.APIKeys {
		if k.Key == "" {
			return fmt.Errorf("api_keys[%d]: key is required", i)
		}
	}

	if c.MaxUploadBytes < 0 {
		return fmt.Errorf("max_upload_bytes must not be negative, got: %d", c.MaxUploadBytes)
	}
	if c.NameAttempts <= 0 {
		return fmt.Errorf("name_attempts must be positive, got: %d", c.NameAttempts)
	}

	if _, err := c.Level(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json", "pretty":
	default:
		return fmt.Errorf("log_format must be 'text', 'json' or 'pretty', got: %s", c.LogFormat)
	}

	return nil
}

// SessionTTL parses Session.TTL. Zero means sessions never expire.
func (c *ServerConfig) SessionTTL() (time.Duration, error) {
	if c.Session.TTL == "" || c.Session.TTL == "0" {
		return 0, nil
	}
	ttl, err := time.ParseDuration(c.Session.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid session.ttl %q: %w", c.Session.TTL, err)
	}
	if ttl < 0 {
		return 0, fmt.Errorf("session.ttl must not be negative, got: %s", c.Session.TTL)
	}
	return ttl, nil
}

// Level parses LogLevel.
func (c *ServerConfig) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// storageTarget is the parsed form of StorageURL.
type storageTarget struct {
	Type string // memory, fs, s3
	FS   fsstorage.Config
	S3   s3storage.Config
}

func (c *ServerConfig) storage() (*storageTarget, error) {
	raw := c.StorageURL
	switch {
	case raw == "":
		if c.BasePath == "" {
			return nil, errors.New("base_path is required when storage_url is not set")
		}
		return &storageTarget{Type: "fs", FS: fsstorage.Config{BaseDir: c.BasePath}}, nil
	case raw == "memory" || raw == "memory://":
		return &storageTarget{Type: "memory"}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid storage_url %q: %w", raw, err)
	}

	switch u.Scheme {
	case "file":
		dir := u.Path
		if u.Host != "" {
			// file://relative/dir
			dir = u.Host + u.Path
		}
		if dir == "" {
			return nil, errors.New("filesystem path cannot be empty in storage_url")
		}
		return &storageTarget{Type: "fs", FS: fsstorage.Config{BaseDir: dir}}, nil

	case "s3":
		if u.Host == "" {
			return nil, errors.New("S3 bucket name cannot be empty in storage_url")
		}
		q := u.Query()
		target := &storageTarget{Type: "s3", S3: s3storage.Config{
			Bucket:          u.Host,
			Prefix:          strings.Trim(u.Path, "/"),
			Region:          q.Get("region"),
			Endpoint:        q.Get("endpoint"),
			AccessKeyID:     c.S3.AccessKeyID,
			SecretAccessKey: c.S3.SecretAccessKey,
		}}
		if target.S3.UsePathStyle, err = parseBoolParam(q, "path_style"); err != nil {
			return nil, err
		}
		if target.S3.CreateBucketIfNotExist, err = parseBoolParam(q, "create_bucket"); err != nil {
			return nil, err
		}
		return target, nil
	}

	return nil, fmt.Errorf("unsupported storage_url format: %s (use 'memory://', 'file://...', or 's3://...')", raw)
}

func parseBoolParam(q url.Values, key string) (bool, error) {
	raw := q.Get(key)
	if raw == "" {
		return false, nil
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid boolean for storage_url parameter %s: %w", key, err)
	}
	return parsed, nil
}

// BuildBlobStore creates the storage backend selected by StorageURL.
func (c *ServerConfig) BuildBlobStore() (simpleshare.BlobStore, error) {
	target, err := c.storage()
	if err != nil {
		return nil, err
	}

	switch target.Type {
	case "memory":
		return memorystorage.New(), nil
	case "fs":
		store, err := fsstorage.New(target.FS)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "s3":
		store, err := s3storage.New(target.S3)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", target.Type)
	}
}

// BuildService creates a Service from the configuration. Extra options are
// applied last.
func (c *ServerConfig) BuildService(extra ...simpleshare.Option) (simpleshare.Service, error) {
	store, err := c.BuildBlobStore()
	if err != nil {
		return nil, fmt.Errorf("failed to build storage backend: %w", err)
	}

	options := []simpleshare.Option{
		simpleshare.WithBlobStore(store),
		simpleshare.WithExternalURL(c.ExternalURL),
		simpleshare.WithNameAttempts(c.NameAttempts),
	}
	options = append(options, extra...)

	return simpleshare.New(options...)
}

// BuildSessionStore creates the session store selected by Session.Backend.
func (c *ServerConfig) BuildSessionStore() (session.Store, error) {
	ttl, err := c.SessionTTL()
	if err != nil {
		return nil, err
	}

	switch c.Session.Backend {
	case "memory":
		return session.NewMemoryStore(ttl), nil
	case "redis":
		opts, err := redis.ParseURL(c.Session.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse session.redis_url: %w", err)
		}
		store, err := session.NewRedisStore(session.RedisConfig{
			Client: redis.NewClient(opts),
			TTL:    ttl,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case "cookie":
		store, err := session.NewCookieStore(c.Key, ttl)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported session backend: %s", c.Session.Backend)
	}
}
