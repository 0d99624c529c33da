// Package config manages application configuration from files and environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// SPLITTABLE_DIGIT_LIMIT or SPLITTABLE_SERVER_ADDR.
const EnvPrefix = "SPLITTABLE"

// Config holds the application configuration.
type Config struct {
	DigitLimit int `mapstructure:"digit_limit"`
	CSV        struct {
		Encoding string `mapstructure:"encoding"`
	} `mapstructure:"csv"`
	Output struct {
		Color  bool `mapstructure:"color"`
		Atomic bool `mapstructure:"atomic"`
	} `mapstructure:"output"`
	Server struct {
		Addr        string `mapstructure:"addr"`
		MaxUploadMB int    `mapstructure:"max_upload_mb"`
	} `mapstructure:"server"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
	Watch struct {
		DebounceMs int `mapstructure:"debounce_ms"`
	} `mapstructure:"watch"`
}

// setting is one known key and its default value.
type setting struct {
	Key     string
	Default any
}

// settings lists every key in display order.
var settings = []setting{
	{"digit_limit", 10},
	{"csv.encoding", "auto"},
	{"output.color", true},
	{"output.atomic", false},
	{"server.addr", ":8080"},
	{"server.max_upload_mb", 64},
	{"log.level", "info"},
	{"log.format", "text"},
	{"watch.debounce_ms", 500},
}

// Keys returns every known configuration key.
func Keys() []string {
	keys := make([]string, len(settings))
	for i, s := range settings {
		keys[i] = s.Key
	}
	return keys
}

// IsKnownKey reports whether key is a recognised configuration key.
func IsKnownKey(key string) bool {
	for _, s := range settings {
		if s.Key == key {
			return true
		}
	}
	return false
}

// configFile overrides ~/.splittable/config.yaml when set.
var configFile string

// SetFile makes Load, SaveConfig and ConfigPath use path instead of
// ~/.splittable/config.yaml. An empty path restores the default.
func SetFile(path string) {
	configFile = path
}

// Load reads the configuration from ~/.splittable/config.yaml (or the file
// given to SetFile) and environment variables. A missing default file is not
// an error; an unreadable or malformed one is.
func Load() (*Config, error) {
	viper.SetConfigType("yaml")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(configDir())
	}

	for _, s := range settings {
		viper.SetDefault(s.Key, s.Default)
	}

	// Environment variable overrides
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("could not read %s: %w", ConfigPath(), err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Dir returns the directory holding config.yaml and the watch rules.
func Dir() string {
	return configDir()
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".splittable"
	}
	return filepath.Join(home, ".splittable")
}
