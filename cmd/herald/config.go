package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eringen/herald"
	"github.com/eringen/herald/graphql"
)

const (
	configFileName = "herald"
	configFileType = "yaml"
	envPrefix      = "HERALD"
)

// flagKeys maps command-line flags to the config keys they override.
var flagKeys = map[string]string{
	"output":     "output_dir",
	"addr":       "addr",
	"database":   "database_path",
	"log-level":  "log_level",
	"log-format": "log_format",
}

// loadConfig merges herald.yaml, HERALD_* variables and the command's flags
// into a SiteConfig. A missing herald.yaml is not an error.
func loadConfig(cmd *cobra.Command, file string) (herald.SiteConfig, error) {
	v := viper.New()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return herald.SiteConfig{}, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	// Unmarshal only sees keys viper knows about, so every scalar field is
	// bound to its variable explicitly.
	for _, key := range configKeys() {
		if err := v.BindEnv(key); err != nil {
			return herald.SiteConfig{}, err
		}
	}

	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return herald.SiteConfig{}, err
			}
		}
	}

	var cfg herald.SiteConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return herald.SiteConfig{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

// configKeys lists the mapstructure keys of SiteConfig's scalar fields.
func configKeys() []string {
	t := reflect.TypeOf(herald.SiteConfig{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		key := f.Tag.Get("mapstructure")
		if key == "" || f.Type.Kind() == reflect.Slice {
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

func newLogger(cfg herald.SiteConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.LogLevel, err)
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(cfg.LogFormat) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("log format %q: want text or json", cfg.LogFormat)
	}
}

func newClient(cfg herald.SiteConfig, l *slog.Logger) *graphql.Client {
	opts := []graphql.Option{
		graphql.WithRetryPolicy(cfg.RetryPolicy()),
		graphql.WithLogger(l),
	}
	if cfg.GraphQLToken != "" {
		opts = append(opts, graphql.WithToken(cfg.GraphQLToken))
	}
	if cfg.RequestsPerSecond > 0 {
		opts = append(opts, graphql.WithRateLimit(cfg.RequestsPerSecond))
	}
	return graphql.NewClient(cfg.GraphQLURL, opts...)
}
