// Package config loads settings from defaults, an optional YAML file,
// FLASHDECK_ environment variables and command-line flags, in that order
// of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of environment overrides. FLASHDECK_STORAGE__PATH
// sets storage.path.
const EnvPrefix = "FLASHDECK_"

// Config is the application configuration.
type Config struct {
	Storage Storage `koanf:"storage" validate:"required"`
	Log     Log     `koanf:"log"`
	Import  Import  `koanf:"import"`
}

// Storage configures the local storage medium.
type Storage struct {
	// Path is the sqlite database file, or ":memory:".
	Path string `koanf:"path" validate:"required"`
	// QuotaBytes caps the total stored size. 0 disables the cap.
	QuotaBytes int64 `koanf:"quota_bytes" validate:"gte=0"`
}

// Log configures the slog handler.
type Log struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

// Import configures card imports.
type Import struct {
	// ReposDir is where git sources are cloned.
	ReposDir string `koanf:"repos_dir" validate:"required"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Storage: Storage{Path: "flashdeck.db", QuotaBytes: 5 << 20},
		Log:     Log{Level: "info"},
		Import:  Import{ReposDir: "repos"},
	}
}

// RegisterFlags adds the configuration flags to flags. Flag names are the
// dotted config keys.
func RegisterFlags(flags *pflag.FlagSet) {
	def := Default()
	flags.String("config", "", "Path to a YAML config file")
	flags.String("storage.path", def.Storage.Path, "Path to the SQLite database file")
	flags.Int64("storage.quota_bytes", def.Storage.QuotaBytes, "Maximum stored bytes (0 for unlimited)")
	flags.String("log.level", def.Log.Level, "Log level: debug, info, warn or error")
	flags.String("import.repos_dir", def.Import.ReposDir, "Directory git sources are cloned into")
}

// Load builds the configuration. flags must have been set up with
// RegisterFlags and parsed; it may be nil to skip flags. A config file that
// does not exist is ignored.
func Load(flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path := configPath(flags); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
			slog.Debug("config file not found, using defaults", "path", path)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(key), "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func configPath(flags *pflag.FlagSet) string {
	if flags != nil {
		if p, err := flags.GetString("config"); err == nil && p != "" {
			return p
		}
	}
	return os.Getenv(EnvPrefix + "CONFIG")
}

// SlogLevel maps Log.Level to a slog level.
func (l Log) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
