// Package config manages application configuration from various sources.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// ComposerConfig controls suggestions offered while composing a message.
type ComposerConfig struct {
	SuggestEmoji bool   `json:"suggestEmoji"`
	EmoteScheme  string `json:"emoteScheme,omitempty"`
}

// BodyConfig controls how message bodies are enriched for display.
type BodyConfig struct {
	EnableBigEmoji      bool    `json:"enableBigEmoji"`
	ExpandCodeByDefault bool    `json:"expandCodeByDefault"`
	ShowCodeLineNumbers bool    `json:"showCodeLineNumbers"`
	AutoDetectLanguage  bool    `json:"autoDetectLanguage"`
	CollapseThreshold   float64 `json:"collapseThreshold,omitempty"`
	ViewportHeight      float64 `json:"viewportHeight,omitempty"`
	LineHeight          float64 `json:"lineHeight,omitempty"`
	MaxChips            int     `json:"maxChips,omitempty"`
	PermalinkPrefix     string  `json:"permalinkPrefix,omitempty"`
}

// EmotesConfig points at the exported account data holding custom emotes.
type EmotesConfig struct {
	Path string `json:"path,omitempty"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Address string `json:"address,omitempty"`
}

// Config is the main configuration structure for the application.
type Config struct {
	WorkingDir string         `json:"wd,omitempty"`
	Debug      bool           `json:"debug,omitempty"`
	Composer   ComposerConfig `json:"composer"`
	Body       BodyConfig     `json:"body"`
	Emotes     EmotesConfig   `json:"emotes"`
	Server     ServerConfig   `json:"server"`
}

// Flags is the read-only snapshot of every setting the enrichment and
// ranking code consults. It is passed explicitly instead of read globally.
type Flags struct {
	SuggestEmoji        bool
	EmoteScheme         string
	EnableBigEmoji      bool
	ExpandCodeByDefault bool
	ShowCodeLineNumbers bool
	AutoDetectLanguage  bool
	CollapseThreshold   float64
	MaxChips            int
	PermalinkPrefix     string
}

const (
	appName         = "chatbody"
	defaultLogLevel = "info"

	DefaultEmoteScheme       = "emoji-hack-fixme"
	DefaultCollapseThreshold = 0.3
	DefaultViewportHeight    = 900
	DefaultLineHeight        = 18
	DefaultMaxChips          = 256
	DefaultPermalinkPrefix   = "https://matrix.to/#/"
)

// DefaultFlags returns the flags used when no configuration is loaded.
func DefaultFlags() Flags {
	return Flags{
		SuggestEmoji:        true,
		EmoteScheme:         DefaultEmoteScheme,
		EnableBigEmoji:      true,
		ShowCodeLineNumbers: true,
		CollapseThreshold:   DefaultCollapseThreshold,
		MaxChips:            DefaultMaxChips,
		PermalinkPrefix:     DefaultPermalinkPrefix,
	}
}

// Flags snapshots the settings consumed by the enrichment and ranking code.
func (c *Config) Flags() Flags {
	f := Flags{
		SuggestEmoji:        c.Composer.SuggestEmoji,
		EmoteScheme:         c.Composer.EmoteScheme,
		EnableBigEmoji:      c.Body.EnableBigEmoji,
		ExpandCodeByDefault: c.Body.ExpandCodeByDefault,
		ShowCodeLineNumbers: c.Body.ShowCodeLineNumbers,
		AutoDetectLanguage:  c.Body.AutoDetectLanguage,
		CollapseThreshold:   c.Body.CollapseThreshold,
		MaxChips:            c.Body.MaxChips,
		PermalinkPrefix:     c.Body.PermalinkPrefix,
	}
	def := DefaultFlags()
	if f.EmoteScheme == "" {
		f.EmoteScheme = def.EmoteScheme
	}
	if f.CollapseThreshold <= 0 {
		f.CollapseThreshold = def.CollapseThreshold
	}
	if f.MaxChips <= 0 {
		f.MaxChips = def.MaxChips
	}
	if f.PermalinkPrefix == "" {
		f.PermalinkPrefix = def.PermalinkPrefix
	}
	return f
}

var (
	mu  sync.Mutex
	cfg *Config
)

// Load initializes the configuration from environment variables and config files.
// If debug is true, debug mode is enabled and log level is set to debug.
// It returns an error if configuration loading fails.
func Load(workingDir string, debug bool, lvl *slog.LevelVar) (*Config, error) {
	mu.Lock()
	defer mu.Unlock()
	if cfg != nil {
		return cfg, nil
	}

	v := viper.New()
	configureViper(v)
	setDefaults(v, debug)

	if err := readConfig(v.ReadInConfig()); err != nil {
		return nil, err
	}
	mergeLocalConfig(v, workingDir)

	loaded, err := decode(v)
	if err != nil {
		return nil, err
	}
	loaded.WorkingDir = workingDir

	if lvl != nil {
		if loaded.Debug {
			lvl.Set(slog.LevelDebug)
		} else {
			lvl.Set(slog.LevelInfo)
		}
	}

	if err := Validate(loaded); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	cfg = loaded
	return cfg, nil
}

// decode unmarshals v into a fresh Config.
func decode(v *viper.Viper) (*Config, error) {
	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return c, nil
}

// configureViper sets up viper's configuration paths and environment variables.
func configureViper(v *viper.Viper) {
	v.SetConfigName(fmt.Sprintf(".%s", appName))
	v.SetConfigType("json")
	v.AddConfigPath("$HOME")
	v.AddConfigPath(fmt.Sprintf("$XDG_CONFIG_HOME/%s", appName))
	v.AddConfigPath(fmt.Sprintf("$HOME/.config/%s", appName))
	v.SetEnvPrefix(strings.ToUpper(appName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// setDefaults configures default values for configuration options.
func setDefaults(v *viper.Viper, debug bool) {
	v.SetDefault("composer.suggestEmoji", true)
	v.SetDefault("composer.emoteScheme", DefaultEmoteScheme)
	v.SetDefault("body.enableBigEmoji", true)
	v.SetDefault("body.expandCodeByDefault", false)
	v.SetDefault("body.showCodeLineNumbers", true)
	v.SetDefault("body.autoDetectLanguage", false)
	v.SetDefault("body.collapseThreshold", DefaultCollapseThreshold)
	v.SetDefault("body.viewportHeight", DefaultViewportHeight)
	v.SetDefault("body.lineHeight", DefaultLineHeight)
	v.SetDefault("body.maxChips", DefaultMaxChips)
	v.SetDefault("body.permalinkPrefix", DefaultPermalinkPrefix)
	v.SetDefault("server.address", "127.0.0.1:8448")

	if debug {
		v.SetDefault("debug", true)
		v.Set("log.level", "debug")
	} else {
		v.SetDefault("debug", false)
		v.SetDefault("log.level", defaultLogLevel)
	}
}

// readConfig handles the result of reading a configuration file.
func readConfig(err error) error {
	if err == nil {
		return nil
	}

	// It's okay if the config file doesn't exist
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		return nil
	}

	return ErrInvalidConfig{source: err}
}

// mergeLocalConfig loads and merges configuration from the local directory.
func mergeLocalConfig(v *viper.Viper, workingDir string) {
	if workingDir == "" {
		return
	}
	local := viper.New()
	local.SetConfigName(fmt.Sprintf(".%s", appName))
	local.SetConfigType("json")
	local.AddConfigPath(workingDir)

	if err := local.ReadInConfig(); err == nil {
		if err := v.MergeConfigMap(local.AllSettings()); err != nil {
			slog.Warn("failed to merge local config", "dir", workingDir, "error", err)
		}
	}
}

// Validate checks that c holds usable values.
func Validate(c *Config) error {
	if c == nil {
		return fmt.Errorf("config not loaded")
	}
	if c.Body.CollapseThreshold < 0 || c.Body.CollapseThreshold > 1 {
		return fmt.Errorf("body.collapseThreshold must be within [0,1], got %v", c.Body.CollapseThreshold)
	}
	if c.Body.ViewportHeight < 0 || c.Body.LineHeight < 0 {
		return fmt.Errorf("body.viewportHeight and body.lineHeight must not be negative")
	}
	return nil
}

// Get returns the current configuration.
// It's safe to call this function multiple times.
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()
	return cfg
}

// Reset forgets the loaded configuration so the next Load reads it again.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	cfg = nil
}

// ErrInvalidConfig wraps a failure to read or parse a config file.
type ErrInvalidConfig struct {
	source error
}

func (e ErrInvalidConfig) Error() string {
	return fmt.Sprintf("invalid config: %v", e.source)
}

func (e ErrInvalidConfig) Unwrap() error {
	return e.source
}
