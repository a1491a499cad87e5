package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/tendant/simple-share/pkg/simpleshare/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "simpleshare",
		Short: "Self-hosted file, paste and link sharing",
		Long: `simpleshare stores uploaded files, text pastes and links under short
two-word names and serves them back over HTTP.

Configuration is read from a TOML, JSON or YAML file given with --config,
with environment variables (and a .env file) applied on top.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (optional)")

	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewListCommand())
	rootCmd.AddCommand(NewHashPasswordCommand())

	return rootCmd
}

// loadConfig reads .env, the optional config file and the environment, and
// installs the configured default logger.
func loadConfig(cmd *cobra.Command) (*config.ServerConfig, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	configFile, _ := cmd.Flags().GetString("config")
	opts := []config.Option{config.WithEnv()}
	if configFile != "" {
		opts = []config.Option{config.WithFile(configFile)}
	}

	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	slog.SetDefault(newLogger(cmd.ErrOrStderr(), cfg.LogFormat, level))
	return cfg, nil
}

func newLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	case "pretty":
		return slog.New(tint.NewHandler(w, &tint.Options{Level: level, TimeFormat: time.Kitchen}))
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	}
}
