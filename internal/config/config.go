package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/mmcdole/vkaudio/internal/domain"
	"github.com/mmcdole/vkaudio/internal/vk"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Auth      AuthConfig      `mapstructure:"auth"`
	Search    SearchConfig    `mapstructure:"search"`
	Remote    RemoteConfig    `mapstructure:"remote"`
	Challenge ChallengeConfig `mapstructure:"challenge"`
	Library   LibraryConfig   `mapstructure:"library"`
	Player    PlayerConfig    `mapstructure:"player"`
	Viewer    ViewerConfig    `mapstructure:"viewer"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AuthConfig holds API credentials
type AuthConfig struct {
	Token string `mapstructure:"token"`  // OAuth access token
	AppID string `mapstructure:"app_id"` // Application id used for the authorize URL
}

// SearchConfig holds the remembered search defaults
type SearchConfig struct {
	Query string `mapstructure:"query"`
	Count int    `mapstructure:"count"`
	Fuzzy bool   `mapstructure:"fuzzy"` // auto_complete
}

// RemoteConfig holds catalog API settings
type RemoteConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"` // requests per second, 0 = unlimited
}

// ChallengeConfig holds captcha handling settings
type ChallengeConfig struct {
	MaxAttempts int `mapstructure:"max_attempts"` // 0 = retry until solved or abandoned
}

// LibraryConfig holds the record store location
type LibraryConfig struct {
	Path string `mapstructure:"path"` // empty = memory only
}

// PlayerConfig holds media player configuration
type PlayerConfig struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

// ViewerConfig holds the image viewer used to show captchas
type ViewerConfig struct {
	Command string `mapstructure:"command"` // empty = system default, "none" = never open
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"` // path, "stderr", or empty to disable
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Search: SearchConfig{
			Count: domain.DefaultCount,
		},
		Remote: RemoteConfig{
			BaseURL:   vk.DefaultBaseURL,
			Timeout:   vk.DefaultTimeout,
			RateLimit: vk.DefaultRateLimit,
		},
		Library: LibraryConfig{
			Path: filepath.Join(defaultDataPath(), "library.db"),
		},
		Player: PlayerConfig{
			Command: "mpv",
			Args:    []string{},
		},
		Logging: LoggingConfig{
			File:  filepath.Join(defaultDataPath(), "vkaudio.log"),
			Level: "INFO",
		},
	}
}

// defaultDataPath returns the default data directory for the current OS
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "vkaudio")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "vkaudio")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "vkaudio")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "vkaudio")
	}
}

// LoadConfig loads configuration from file and environment
func LoadConfig() (*Config, error) {
	return load(defaultConfigPath())
}

func load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AddConfigPath(".")

	// Register defaults so environment overrides apply to every key
	viper.SetDefault("auth.token", cfg.Auth.Token)
	viper.SetDefault("auth.app_id", cfg.Auth.AppID)
	viper.SetDefault("search.query", cfg.Search.Query)
	viper.SetDefault("search.count", cfg.Search.Count)
	viper.SetDefault("search.fuzzy", cfg.Search.Fuzzy)
	viper.SetDefault("remote.base_url", cfg.Remote.BaseURL)
	viper.SetDefault("remote.timeout", cfg.Remote.Timeout)
	viper.SetDefault("remote.rate_limit", cfg.Remote.RateLimit)
	viper.SetDefault("challenge.max_attempts", cfg.Challenge.MaxAttempts)
	viper.SetDefault("library.path", cfg.Library.Path)
	viper.SetDefault("player.command", cfg.Player.Command)
	viper.SetDefault("player.args", cfg.Player.Args)
	viper.SetDefault("viewer.command", cfg.Viewer.Command)
	viper.SetDefault("logging.file", cfg.Logging.File)
	viper.SetDefault("logging.level", cfg.Logging.Level)

	// Environment variable overrides: VKAUDIO_AUTH_TOKEN etc.
	viper.SetEnvPrefix("VKAUDIO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the given configuration to file
func SaveConfig(cfg *Config) error {
	return updateConfig(configFile(), map[string]any{
		"auth.token":             cfg.Auth.Token,
		"auth.app_id":            cfg.Auth.AppID,
		"search.query":           cfg.Search.Query,
		"search.count":           cfg.Search.Count,
		"search.fuzzy":           cfg.Search.Fuzzy,
		"remote.base_url":        cfg.Remote.BaseURL,
		"remote.timeout":         cfg.Remote.Timeout.String(),
		"remote.rate_limit":      cfg.Remote.RateLimit,
		"challenge.max_attempts": cfg.Challenge.MaxAttempts,
		"library.path":           cfg.Library.Path,
		"player.command":         cfg.Player.Command,
		"player.args":            cfg.Player.Args,
		"viewer.command":         cfg.Viewer.Command,
		"logging.file":           cfg.Logging.File,
		"logging.level":          cfg.Logging.Level,
	})
}

// SaveToken updates just the token in the configuration
func SaveToken(token string) error {
	return updateConfig(configFile(), map[string]any{
		"auth.token": token,
	})
}

// SaveSearchDefaults remembers the last query, count and autocomplete flag
func SaveSearchDefaults(query string, count int, fuzzy bool) error {
	return updateConfig(configFile(), map[string]any{
		"search.query": query,
		"search.count": count,
		"search.fuzzy": fuzzy,
	})
}

// configFile is the file LoadConfig read, or the default location
func configFile() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return filepath.Join(defaultConfigPath(), "config.yaml")
}

// updateConfig rewrites file with values applied on top of what the file
// already holds. Defaults and environment overrides are never written.
func updateConfig(file string, values map[string]any) error {
	v := viper.New()
	v.SetConfigFile(file)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
		return fmt.Errorf("error reading config file: %w", err)
	}

	for key, value := range values {
		v.Set(key, value)
	}

	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.WriteConfigAs(file); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound)
}

// IsConfigured returns true if an access token is set
func (c *Config) IsConfigured() bool {
	return c.Auth.Token != ""
}

// Request builds the parameters for one catalog operation.
// Zero or negative counts fall back to the configured default.
func (c *Config) Request(query string, count int, fuzzy bool) domain.SearchRequest {
	if count <= 0 {
		count = c.Search.Count
	}
	return domain.SearchRequest{
		Query: query,
		Fuzzy: fuzzy,
		Count: count,
		Token: c.Auth.Token,
	}.Normalize()
}
