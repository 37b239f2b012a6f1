// Package config loads qset settings from an optional YAML file and QSET_*
// environment variables. Command-line flags are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. QSET_DSN.
const EnvPrefix = "QSET"

// DefaultFile is looked up in the working directory when no file is given.
const DefaultFile = "qset.yaml"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Formats lists the accepted output formats.
var Formats = []string{"text", "json", "yaml"}

// Config holds the settings shared by every command.
type Config struct {
	Driver    string `mapstructure:"driver"`
	DSN       string `mapstructure:"dsn"`
	Models    string `mapstructure:"models"`
	BatchSize int    `mapstructure:"batch_size"`
	Format    string `mapstructure:"format"`

	// File is the config file that was read, empty when none was.
	File string `mapstructure:"-"`
}

// Defaults returns the settings used when nothing overrides them.
func Defaults() Config {
	return Config{
		Driver:    "sqlite3",
		Models:    "models",
		BatchSize: 255,
		Format:    "text",
	}
}

// Load reads path (which must exist) or, when path is empty, qset.yaml in
// the working directory if present. QSET_* environment variables override
// file values.
func Load(path string) (Config, error) {
	v := viper.New()

	def := Defaults()
	v.SetDefault("driver", def.Driver)
	v.SetDefault("dsn", def.DSN)
	v.SetDefault("models", def.Models)
	v.SetDefault("batch_size", def.BatchSize)
	v.SetDefault("format", def.Format)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("qset")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config %s: %w", DefaultFile, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges. Driver names are checked when the store
// is opened.
func (c Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch_size must be positive, got %d", ErrInvalid, c.BatchSize)
	}
	if !slices.Contains(Formats, c.Format) {
		return fmt.Errorf("%w: format %q (want text, json or yaml)", ErrInvalid, c.Format)
	}
	return nil
}
