// Package config loads the settings of the plan command and of the backend
// server from a YAML file and PLANNER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type UserConfig struct {
	ID       string `mapstructure:"id"`
	Currency string `mapstructure:"currency"`
}

// StorageConfig selects the local store: "dir", "sqlite", "postgres" or
// "memory".
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type RemoteConfig struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ServerConfig struct {
	Address    string `mapstructure:"address"`
	Driver     string `mapstructure:"driver"`
	DSN        string `mapstructure:"dsn"`
	JWTSecret  string `mapstructure:"jwt_secret"`
	TokenHours int    `mapstructure:"token_hours"`
	BcryptCost int    `mapstructure:"bcrypt_cost"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type EditorConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

type AssistConfig struct {
	Model string `mapstructure:"model"`
}

type WatchConfig struct {
	Schedule string `mapstructure:"schedule"`
}

type Config struct {
	User    UserConfig    `mapstructure:"user"`
	Storage StorageConfig `mapstructure:"storage"`
	Remote  RemoteConfig  `mapstructure:"remote"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Editor  EditorConfig  `mapstructure:"editor"`
	Assist  AssistConfig  `mapstructure:"assist"`
	Watch   WatchConfig   `mapstructure:"watch"`
}

// DefaultDir is the directory holding the default config file and local
// data, $HOME/.planner.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".planner"
	}
	return filepath.Join(home, ".planner")
}

func setDefaults(v *viper.Viper) {
	dir := DefaultDir()
	// every key needs a default for environment variables to be unmarshaled.
	v.SetDefault("user.id", "")
	v.SetDefault("user.currency", "USD")
	v.SetDefault("storage.driver", "dir")
	v.SetDefault("storage.dsn", filepath.Join(dir, "data"))
	v.SetDefault("remote.url", "")
	v.SetDefault("remote.token", "")
	v.SetDefault("remote.timeout", 10*time.Second)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.driver", "sqlite")
	v.SetDefault("server.dsn", filepath.Join(dir, "backend.db"))
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.token_hours", 24)
	v.SetDefault("server.bcrypt_cost", 12)
	v.SetDefault("log.level", "warning")
	v.SetDefault("log.format", "text")
	v.SetDefault("editor.debounce", 500*time.Millisecond)
	v.SetDefault("assist.model", "")
	v.SetDefault("watch.schedule", "@every 5m")
}

// Load reads the configuration file at path, or "config.yaml" in
// DefaultDir when path is empty, in which case the file is optional.
// Environment variables override the file, e.g. PLANNER_REMOTE_URL.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultDir())
	} else {
		v.SetConfigFile(path)
	}
	v.SetEnvPrefix("PLANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the values that cannot be checked when used.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "dir", "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("invalid storage.driver %q: want dir, sqlite, postgres or memory", c.Storage.Driver)
	}
	switch c.Server.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid server.driver %q: want sqlite or postgres", c.Server.Driver)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log.format %q: want text or json", c.Log.Format)
	}
	if c.Editor.Debounce < 0 {
		return fmt.Errorf("invalid editor.debounce %v", c.Editor.Debounce)
	}
	return nil
}

// NewLogger returns a logger writing to stderr at the configured level and
// format.
func (c *Config) NewLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if lvl, err := logrus.ParseLevel(c.Log.Level); err == nil {
		log.SetLevel(lvl)
	}
	if c.Log.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}
