package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/placeprep/placeprep/internal/progress"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds application configuration loaded from files and environment variables.
type Config struct {
	Env      string   `mapstructure:"env"`      // local, production, ...
	Log      Log      `mapstructure:"log"`      // logging section
	Database Database `mapstructure:"database"` // SQLite storage section
	Progress Progress `mapstructure:"progress"` // progress tracker section
}

// Log contains logger settings.
type Log struct {
	Level string `mapstructure:"level"` // zap level name: debug, info, warn, error
}

// Database contains storage settings.
type Database struct {
	Path          string `mapstructure:"path"`           // SQLite file; empty means the XDG data path
	KeepRevisions int    `mapstructure:"keep_revisions"` // revisions kept per key, 0 keeps all
}

// Progress contains tracker settings.
type Progress struct {
	Key string `mapstructure:"key"` // storage key of the progress blob
}

// Load reads configuration from an optional config file and environment
// variables. When file is empty, config.yaml is searched in ./config and
// $XDG_CONFIG_HOME/placeprep; a missing file is not an error.
func Load(file string) (*Config, error) {
	v := viper.New()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		if dir, err := configHome(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "placeprep"))
		}
	}

	v.SetDefault("env", "local")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.path", "")
	v.SetDefault("database.keep_revisions", 20)
	v.SetDefault("progress.key", progress.StorageKey)

	// PLACEPREP_LOG_LEVEL, PLACEPREP_DATABASE_KEEP_REVISIONS, ...
	v.SetEnvPrefix("placeprep")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("database.path", "PLACEPREP_DB")
	_ = v.BindEnv("env", "APP_ENV")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges that viper cannot express.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalidConfig, err)
	}
	if c.Database.KeepRevisions < 0 {
		return fmt.Errorf("%w: database.keep_revisions must not be negative", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Progress.Key) == "" {
		return fmt.Errorf("%w: progress.key must not be empty", ErrInvalidConfig)
	}
	return nil
}

func configHome() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir, nil
	}
	return os.UserConfigDir()
}
