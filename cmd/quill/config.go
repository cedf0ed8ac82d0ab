package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config holds the CLI settings.
type Config struct {
	DatabaseURL   string
	MigrationsDir string
	Verbose       bool
}

// findConfigFile picks the config file: explicit path first, then
// quill.yaml or quill.yml in the working directory.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"quill.yaml", "quill.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// loadConfig layers configuration sources. Precedence from highest to
// lowest: flags, QUILL_ environment variables, config file, defaults.
func loadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"database.url":   "sqlite://quill.db",
		"migrations.dir": "migrations",
		"verbose":        false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(cfgFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// QUILL_DATABASE_URL maps to database.url and so on.
	if err := k.Load(env.Provider("QUILL_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "QUILL_")), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithValue(flags, ".", k, func(key, value string) (string, interface{}) {
			switch key {
			case "database":
				return "database.url", value
			case "dir":
				return "migrations.dir", value
			}
			return key, value
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	return &Config{
		DatabaseURL:   k.String("database.url"),
		MigrationsDir: k.String("migrations.dir"),
		Verbose:       k.Bool("verbose"),
	}, nil
}
