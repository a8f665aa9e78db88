package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/eringen/herald"
)

// Global flag values.
var (
	flagConfig  string
	flagEnvFile string
)

// config and logger are loaded by PersistentPreRunE for every command that
// needs them.
var (
	config herald.SiteConfig
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:     "herald",
	Short:   "Build and serve a static site from WordPress over GraphQL",
	Version: version,
	Long: `herald lists articles, features and pages from a WPGraphQL endpoint,
links each article to its chronological neighbours and writes one HTML page
per item, together with a sitemap, an RSS feed and a 404 page.

Settings come from herald.yaml, HERALD_* environment variables (a .env file
is loaded first when present) and command-line flags, in increasing priority.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[skipConfig] == "true" {
			return nil
		}
		if err := loadDotenv(flagEnvFile); err != nil {
			return err
		}
		cfg, err := loadConfig(cmd, flagConfig)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		l, err := newLogger(cfg, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		config, logger = cfg, l
		slog.SetDefault(l)
		return nil
	},
}

// skipConfig marks commands that run without a site configuration.
const skipConfig = "herald/skip-config"

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: ./herald.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", herald.EnvOr("HERALD_ENV_FILE", ".env"), "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text or json")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadDotenv loads name into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadDotenv(name string) error {
	if name == "" {
		return nil
	}
	if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", name, err)
	}
	return nil
}
