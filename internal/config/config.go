// Package config loads and validates the webpilot configuration from the
// config file, environment variables and CLI flag overrides via viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	LLM     LLMConfig     `mapstructure:"llm" yaml:"llm"`
	Engine  EngineConfig  `mapstructure:"engine" yaml:"engine"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
}

// LoggerConfig controls the global zap logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"` // megabytes, per lumberjack
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// Supported LLM providers.
const (
	ProviderGemini = "gemini"
)

// LLMConfig selects and tunes the language model provider.
type LLMConfig struct {
	Provider        string        `mapstructure:"provider" yaml:"provider"`
	Model           string        `mapstructure:"model" yaml:"model"`
	APIKey          string        `mapstructure:"api_key" yaml:"api_key"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Temperature     float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxOutputTokens int           `mapstructure:"max_output_tokens" yaml:"max_output_tokens"`
	MaxRetries      int           `mapstructure:"max_retries" yaml:"max_retries"`
}

// EngineConfig tunes the role engine's step loop.
type EngineConfig struct {
	// MaxSteps is the default step budget for a task when the caller does
	// not specify one. The budget is a hard ceiling: the engine fails the
	// task once history reaches it, regardless of role opinion.
	MaxSteps int `mapstructure:"max_steps" yaml:"max_steps"`
	// NoProgressThreshold is the number of consecutive zero-action,
	// non-completing Proposing turns tolerated before control is forced to
	// the Verifier.
	NoProgressThreshold int `mapstructure:"no_progress_threshold" yaml:"no_progress_threshold"`
	// HistoryWindow bounds how many recent steps are serialized into role
	// context. Zero means include the full history.
	HistoryWindow int `mapstructure:"history_window" yaml:"history_window"`
	// ActionTimeout bounds a single tool execution against the browser.
	ActionTimeout time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	// ActionDelay is the minimum spacing between LLM calls and executed
	// actions, enforced with a rate limiter.
	ActionDelay time.Duration `mapstructure:"action_delay" yaml:"action_delay"`
	// Screenshots attaches an annotated screenshot to Proposer context.
	Screenshots bool `mapstructure:"screenshots" yaml:"screenshots"`
}

// BrowserConfig controls the chromedp-backed driver.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	WindowWidth       int           `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight      int           `mapstructure:"window_height" yaml:"window_height"`
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
	ExecPath          string        `mapstructure:"exec_path" yaml:"exec_path"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// Logger
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "webpilot")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// LLM
	v.SetDefault("llm.provider", ProviderGemini)
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_output_tokens", 4096)
	v.SetDefault("llm.max_retries", 3)

	// Engine
	v.SetDefault("engine.max_steps", 10)
	v.SetDefault("engine.no_progress_threshold", 2)
	v.SetDefault("engine.history_window", 0)
	v.SetDefault("engine.action_timeout", "30s")
	v.SetDefault("engine.action_delay", "1s")
	v.SetDefault("engine.screenshots", false)

	// Browser
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.navigation_timeout", "90s")
	v.SetDefault("browser.window_width", 1280)
	v.SetDefault("browser.window_height", 900)
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.exec_path", "")
}

// Load unmarshals the fully merged viper state into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewDefaultConfig returns a Config populated with the defaults only.
// Primarily used by tests and as a fallback before flags are parsed.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	if err != nil {
		// Defaults are static; a failure here is a programming error.
		panic(fmt.Sprintf("default config invalid: %v", err))
	}
	return cfg
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Engine.MaxSteps <= 0 {
		return fmt.Errorf("engine.max_steps must be positive, got %d", c.Engine.MaxSteps)
	}
	if c.Engine.NoProgressThreshold <= 0 {
		return fmt.Errorf("engine.no_progress_threshold must be positive, got %d", c.Engine.NoProgressThreshold)
	}
	if c.Engine.HistoryWindow < 0 {
		return fmt.Errorf("engine.history_window must not be negative, got %d", c.Engine.HistoryWindow)
	}
	if c.LLM.Provider != ProviderGemini {
		return fmt.Errorf("unknown llm provider %q, supported: [%s]", c.LLM.Provider, ProviderGemini)
	}
	return nil
}
