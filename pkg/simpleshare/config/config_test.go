package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-share/pkg/simpleshare"
	"github.com/tendant/simple-share/pkg/simpleshare/auth"
	"github.com/tendant/simple-share/pkg/simpleshare/session"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8000", cfg.BindAddr)
	assert.Equal(t, "http://localhost:8000/", cfg.ExternalURL)
	assert.Equal(t, "memory", cfg.Session.Backend)
	assert.Equal(t, simpleshare.DefaultNameAttempts, cfg.NameAttempts)

	target, err := cfg.storage()
	require.NoError(t, err)
	assert.Equal(t, "fs", target.Type)
	assert.Equal(t, "d", target.FS.BaseDir)

	ttl, err := cfg.SessionTTL()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, ttl)
}

func TestExternalURLGetsTrailingSlash(t *testing.T) {
	cfg, err := Load(WithExternalURL("https://share.example"))
	require.NoError(t, err)
	assert.Equal(t, "https://share.example/", cfg.ExternalURL)
}

func TestEnvStorageURL(t *testing.T) {
	tests := []struct {
		name       string
		storageURL string
		wantType   string
		wantError  bool
	}{
		{"empty uses base path", "", "fs", false},
		{"memory keyword", "memory", "memory", false},
		{"memory URL", "memory://", "memory", false},
		{"filesystem URL", "file:///var/data", "fs", false},
		{"S3 URL", "s3://my-bucket", "s3", false},
		{"S3 bad flag", "s3://my-bucket?path_style=maybe", "", true},
		{"S3 missing bucket", "s3://", "", true},
		{"invalid URL", "ftp://example.com", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.storageURL != "" {
				t.Setenv("STORAGE_URL", tt.storageURL)
			}

			cfg, err := Load(WithEnv())
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			target, err := cfg.storage()
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, target.Type)
		})
	}
}

func TestS3StorageURLDetails(t *testing.T) {
	t.Setenv("S3_ACCESS_KEY_ID", "minio")
	t.Setenv("S3_SECRET_ACCESS_KEY", "minio123")

	cfg, err := Load(
		WithEnv(),
		WithStorageURL("s3://shares/team/a?region=eu-west-1&endpoint=http://localhost:9000&path_style=true&create_bucket=1"),
	)
	require.NoError(t, err)

	target, err := cfg.storage()
	require.NoError(t, err)
	assert.Equal(t, "shares", target.S3.Bucket)
	assert.Equal(t, "team/a", target.S3.Prefix)
	assert.Equal(t, "eu-west-1", target.S3.Region)
	assert.Equal(t, "http://localhost:9000", target.S3.Endpoint)
	assert.True(t, target.S3.UsePathStyle)
	assert.True(t, target.S3.CreateBucketIfNotExist)
	assert.Equal(t, "minio", target.S3.AccessKeyID)
	assert.Equal(t, "minio123", target.S3.SecretAccessKey)
}

func TestFileStorageURL(t *testing.T) {
	cfg, err := Load(WithStorageURL("file:///srv/share"))
	require.NoError(t, err)
	target, err := cfg.storage()
	require.NoError(t, err)
	assert.Equal(t, "/srv/share", target.FS.BaseDir)
}

const legacyConfig = `
bind_addr = "0.0.0.0:9000"
external_url = "https://s.example.org/"
base_path = "/var/lib/share"
key = "cookie-secret"

[[api_keys]]
key = "k1"
comment = "laptop"

[[api_keys]]
key = "k2"

[[users]]
username = "alice"
password = "XohImNooBHFR0OVvjcYpJ3NgPQ1qq73WKhHvch0VQtg="
`

func TestWithFileReadsLegacyTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(legacyConfig), 0o600))

	cfg, err := Load(WithFile(path))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.BindAddr)
	assert.Equal(t, "https://s.example.org/", cfg.ExternalURL)
	assert.Equal(t, "/var/lib/share", cfg.BasePath)
	assert.Equal(t, "cookie-secret", cfg.Key)
	assert.Equal(t, []auth.APIKey{{Key: "k1", Comment: "laptop"}, {Key: "k2"}}, cfg.APIKeys)
	require.Len(t, cfg.Users, 1)
	assert.Equal(t, "alice", cfg.Users[0].Username)

	// Fields missing from the file keep their defaults.
	assert.Equal(t, "memory", cfg.Session.Backend)
	assert.Equal(t, "simpleshare_session", cfg.Session.CookieName)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(legacyConfig), 0o600))
	t.Setenv("BIND_ADDR", ":7000")
	t.Setenv("SESSION_BACKEND", "cookie")
	t.Setenv("SESSION_TTL", "90m")

	cfg, err := Load(WithFile(path))
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.BindAddr)
	assert.Equal(t, "cookie", cfg.Session.Backend)

	ttl, err := cfg.SessionTTL()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, ttl)
}

func TestWithFileMissing(t *testing.T) {
	_, err := Load(WithFile(filepath.Join(t.TempDir(), "nope.toml")))
	assert.Error(t, err)

	_, err = Load(WithFile(""))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantErr string
	}{
		{"empty bind addr", func(c *ServerConfig) { c.BindAddr = "" }, "bind_addr"},
		{"empty external url", func(c *ServerConfig) { c.ExternalURL = "" }, "external_url"},
		{"no storage", func(c *ServerConfig) { c.BasePath = "" }, "base_path"},
		{"unknown session backend", func(c *ServerConfig) { c.Session.Backend = "disk" }, "session.backend"},
		{"cookie without key", func(c *ServerConfig) { c.Session.Backend = "cookie" }, "key is required"},
		{"redis without url", func(c *ServerConfig) { c.Session.Backend = "redis" }, "redis_url"},
		{"bad ttl", func(c *ServerConfig) { c.Session.TTL = "soon" }, "session.ttl"},
		{"negative ttl", func(c *ServerConfig) { c.Session.TTL = "-1h" }, "session.ttl"},
		{"user without password", func(c *ServerConfig) { c.Users = []auth.User{{Username: "bob"}} }, "users[0]"},
		{"empty api key", func(c *ServerConfig) { c.APIKeys = []auth.APIKey{{Comment: "x"}} }, "api_keys[0]"},
		{"negative upload limit", func(c *ServerConfig) { c.MaxUploadBytes = -1 }, "max_upload_bytes"},
		{"zero name attempts", func(c *ServerConfig) { c.NameAttempts = 0 }, "name_attempts"},
		{"bad log level", func(c *ServerConfig) { c.LogLevel = "loud" }, "log_level"},
		{"bad log format", func(c *ServerConfig) { c.LogFormat = "xml" }, "log_format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), "error %q should mention %q", err, tt.wantErr)
		})
	}
}

func TestSessionTTLZeroDisablesExpiry(t *testing.T) {
	cfg := defaults()
	cfg.Session.TTL = "0"
	ttl, err := cfg.SessionTTL()
	require.NoError(t, err)
	assert.Zero(t, ttl)
}

func TestBuildServiceWithMemoryStorage(t *testing.T) {
	cfg, err := Load(
		WithStorageURL("memory://"),
		WithExternalURL("https://share.example/"),
	)
	require.NoError(t, err)

	svc, err := cfg.BuildService()
	require.NoError(t, err)

	res, err := svc.Upload(context.Background(), simpleshare.UploadRequest{
		Kind:     "text",
		Filename: "note.txt",
		Body:     strings.NewReader("hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, "https://share.example/"+res.ID, res.URL)
}

func TestBuildBlobStoreCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	cfg, err := Load(WithStorageURL("file://" + dir))
	require.NoError(t, err)

	_, err = cfg.BuildBlobStore()
	require.NoError(t, err)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestBuildSessionStore(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)
		store, err := cfg.BuildSessionStore()
		require.NoError(t, err)
		assert.IsType(t, &session.MemoryStore{}, store)
	})

	t.Run("cookie", func(t *testing.T) {
		cfg := defaults()
		cfg.Session.Backend = "cookie"
		cfg.Key = "secret"
		require.NoError(t, cfg.Validate())

		store, err := cfg.BuildSessionStore()
		require.NoError(t, err)

		token, _, err := store.Create(context.Background(), "alice")
		require.NoError(t, err)
		sess, err := store.Lookup(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "alice", sess.Username)
	})

	t.Run("redis bad url", func(t *testing.T) {
		cfg := defaults()
		cfg.Session.Backend = "redis"
		cfg.Session.RedisURL = "not a url"
		_, err := cfg.BuildSessionStore()
		assert.Error(t, err)
	})
}

func TestWithUserAndAPIKey(t *testing.T) {
	hash, err := auth.HashPassword("pw")
	require.NoError(t, err)

	cfg, err := Load(WithUser("carol", hash), WithAPIKey("abc", "ci"), WithMetrics(true), WithBindAddr(":1"))
	require.NoError(t, err)

	_, err = auth.VerifyUser(cfg.Users, "carol", "pw")
	assert.NoError(t, err)
	_, ok := auth.FindAPIKey(cfg.APIKeys, "abc")
	assert.True(t, ok)
	assert.True(t, cfg.EnableMetrics)
	assert.Equal(t, ":1", cfg.BindAddr)
}
