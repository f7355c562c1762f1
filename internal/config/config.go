// Package config loads settings from a YAML file and TEKSHILA_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Generation  GenerationConfig  `mapstructure:"generation"`
	Quality     QualityConfig     `mapstructure:"quality"`
	Forge       ForgeConfig       `mapstructure:"forge"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Uploads     UploadsConfig     `mapstructure:"uploads"`
	Log         LogConfig         `mapstructure:"log"`
	UI          UIConfig          `mapstructure:"ui"`
	Defaults    DefaultsConfig    `mapstructure:"defaults"`
}

// GenerationConfig selects the documentation generator.
type GenerationConfig struct {
	Provider  string        `mapstructure:"provider"` // offline | gemini
	Model     string        `mapstructure:"model"`
	APIURL    string        `mapstructure:"api_url"` // base URL override for the Gemini API
	APIKeyEnv string        `mapstructure:"api_key_env"`
	APIKey    string        `mapstructure:"api_key"` // prefer APIKeyEnv
	Timeout   time.Duration `mapstructure:"timeout"`
}

// QualityConfig selects the quality analyzer.
type QualityConfig struct {
	Provider string `mapstructure:"provider"` // heuristic | gemini
}

// ForgeConfig selects the repository host.
type ForgeConfig struct {
	Kind       string `mapstructure:"kind"` // auto | offline | github | gitlab
	HeadPrefix string `mapstructure:"head_prefix"`
}

// CredentialsConfig locates the saved connection.
type CredentialsConfig struct {
	Path string `mapstructure:"path"`
}

// UploadsConfig bounds file loading.
type UploadsConfig struct {
	MaxFileBytes  int64 `mapstructure:"max_file_bytes"`
	MaxTotalBytes int64 `mapstructure:"max_total_bytes"`
}

// LogConfig controls the log file.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	ToastSeconds int `mapstructure:"toast_seconds"`
}

// DefaultsConfig pre-fills the change-request form.
type DefaultsConfig struct {
	PRTitle       string `mapstructure:"pr_title"`
	PRDescription string `mapstructure:"pr_description"`
	CommitMessage string `mapstructure:"commit_message"`
}

// Dir returns the directory holding config, credentials and logs.
func Dir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "tekshila")
}

func setDefaults(v *viper.Viper) {
	dir := Dir()
	v.SetDefault("generation.provider", "offline")
	v.SetDefault("generation.model", "gemini-2.0-flash")
	v.SetDefault("generation.api_url", "")
	v.SetDefault("generation.api_key_env", "GEMINI_API_KEY")
	v.SetDefault("generation.api_key", "")
	v.SetDefault("generation.timeout", 60*time.Second)
	v.SetDefault("quality.provider", "heuristic")
	v.SetDefault("forge.kind", "auto")
	v.SetDefault("forge.head_prefix", "auto-docs-")
	v.SetDefault("credentials.path", filepath.Join(dir, "credentials.yaml"))
	v.SetDefault("uploads.max_file_bytes", 1<<20)
	v.SetDefault("uploads.max_total_bytes", 16<<20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", filepath.Join(dir, "tekshila.log"))
	v.SetDefault("ui.toast_seconds", 5)
	v.SetDefault("defaults.pr_title", "docs: add AI-generated documentation")
	v.SetDefault("defaults.pr_description", "This PR adds comprehensive documentation generated by AI to improve code understanding and maintainability.")
	v.SetDefault("defaults.commit_message", "docs: add AI-generated documentation")
}

// Load reads configuration. path overrides the file location; when empty,
// TEKSHILA_CONFIG and then <user config dir>/tekshila/config.yaml are used.
// Only a missing default file is tolerated. Env var overrides use prefix TEKSHILA_.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")

	if path == "" {
		path = os.Getenv("TEKSHILA_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(Dir())
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("TEKSHILA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, c.Validate()
}

// Validate checks enumerated settings.
func (c Config) Validate() error {
	var errs []error
	if !oneOf(c.Generation.Provider, "offline", "gemini") {
		errs = append(errs, fmt.Errorf("generation.provider must be offline or gemini, got %q", c.Generation.Provider))
	}
	if !oneOf(c.Quality.Provider, "heuristic", "gemini") {
		errs = append(errs, fmt.Errorf("quality.provider must be heuristic or gemini, got %q", c.Quality.Provider))
	}
	if !oneOf(c.Forge.Kind, "auto", "offline", "github", "gitlab") {
		errs = append(errs, fmt.Errorf("forge.kind must be auto, offline, github or gitlab, got %q", c.Forge.Kind))
	}
	if !oneOf(strings.ToLower(c.Log.Level), "debug", "info", "warn", "error") {
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}
	return errors.Join(errs...)
}

// GeminiKey returns the API key from the configured env var, falling back to
// the inline key.
func (c Config) GeminiKey() string {
	if c.Generation.APIKeyEnv != "" {
		if k := os.Getenv(c.Generation.APIKeyEnv); k != "" {
			return k
		}
	}
	return c.Generation.APIKey
}

// ToastDuration is how long notifications stay visible.
func (c Config) ToastDuration() time.Duration {
	if c.UI.ToastSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.UI.ToastSeconds) * time.Second
}

func oneOf(s string, options ...string) bool {
	for _, o := range options {
		if s == o {
			return true
		}
	}
	return false
}
