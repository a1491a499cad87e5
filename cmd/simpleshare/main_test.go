package main

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-share/pkg/simpleshare"
	"github.com/tendant/simple-share/pkg/simpleshare/auth"
	"github.com/tendant/simple-share/pkg/simpleshare/config"
)

func TestHashPasswordCommand(t *testing.T) {
	t.Run("bcrypt from argument", func(t *testing.T) {
		var out bytes.Buffer
		cmd := NewRootCommand()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"hash-password", "hunter2"})
		require.NoError(t, cmd.Execute())

		hash := strings.TrimSpace(out.String())
		assert.True(t, strings.HasPrefix(hash, "$2"))
		assert.True(t, auth.CheckPassword(hash, "hunter2"))
	})

	t.Run("legacy from stdin", func(t *testing.T) {
		var out bytes.Buffer
		cmd := NewRootCommand()
		cmd.SetOut(&out)
		cmd.SetIn(strings.NewReader("password\n"))
		cmd.SetArgs([]string{"hash-password", "--legacy"})
		require.NoError(t, cmd.Execute())

		assert.Equal(t, "XohImNooBHFR0OVvjcYpJ3NgPQ1qq73WKhHvch0VQtg=", strings.TrimSpace(out.String()))
	})

	t.Run("empty password", func(t *testing.T) {
		cmd := NewRootCommand()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetIn(strings.NewReader("\n"))
		cmd.SetArgs([]string{"hash-password"})
		assert.Error(t, cmd.Execute())
	})
}

func TestListCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	content := "storage_url = \"file://" + filepath.Join(dir, "data") + "\"\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))

	cfg, err := config.Load(config.WithFile(cfgPath))
	require.NoError(t, err)
	svc, err := cfg.BuildService()
	require.NoError(t, err)
	_, err = svc.Upload(t.Context(), uploadText("hello", "hello.txt"))
	require.NoError(t, err)

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfgPath, "list"})
	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "NAME")
	assert.Contains(t, lines[1], "hello.txt")
	assert.Contains(t, lines[1], "text")
}

func TestNewHandlerServesHealthAndMetrics(t *testing.T) {
	cfg, err := config.Load(config.WithStorageURL("memory://"), config.WithMetrics(true))
	require.NoError(t, err)

	handler, sessions, err := newHandler(cfg)
	require.NoError(t, err)
	require.NotNil(t, sessions)

	for _, path := range []string{"/healthz", "/metrics"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"text", "json", "pretty"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, format, slog.LevelInfo)
			logger.Debug("hidden")
			logger.Info("Item uploaded", "id", "BraveOtter")

			assert.NotContains(t, buf.String(), "hidden")
			assert.Contains(t, buf.String(), "Item uploaded")
			assert.Contains(t, buf.String(), "BraveOtter")
		})
	}
}

func uploadText(text, filename string) simpleshare.UploadRequest {
	return simpleshare.UploadRequest{Kind: "text", Filename: filename, Body: strings.NewReader(text)}
}
