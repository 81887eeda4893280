// Package config loads engine configuration from YAML with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when a field is absent from the config file.
const (
	DefaultDuplicateWindowS       = 2
	DefaultMaxRequestsPerMinute   = 30
	DefaultMaxChainLength         = 25
	DefaultMaxChainDurationS      = 60
	DefaultAutoNextDelayS         = 1.5
	DefaultCommandPrefix          = "/"
	DefaultStrictButtonValidation = true
)

// Config holds runtime tunables for the dialog engine.
type Config struct {
	// DuplicateWindowS is the duplicate suppression window in seconds.
	DuplicateWindowS int `yaml:"duplicate_window_s"`

	// MaxRequestsPerMinute caps inbound events per (bot, user) pair.
	MaxRequestsPerMinute int `yaml:"max_requests_per_minute"`

	// MaxChainLength bounds the number of steps in one auto-transition chain.
	MaxChainLength int `yaml:"max_chain_length"`

	// MaxChainDurationS bounds the wall-clock duration of one chain in seconds.
	MaxChainDurationS int `yaml:"max_chain_duration_s"`

	// AutoNextDelayS is the default auto-advance delay in seconds when a
	// step sets auto_next without an explicit delay.
	AutoNextDelayS float64 `yaml:"auto_next_default_delay_s"`

	// CommandPrefix marks inputs routed as commands (e.g. "/start").
	CommandPrefix string `yaml:"command_prefix"`

	// StrictButtonValidation rejects button values outside the step's
	// declared set. When false, unknown values pass through as text.
	// Pointer so an explicit false in YAML is distinguishable from absent.
	StrictButtonValidation *bool `yaml:"strict_button_validation"`

	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig mirrors logger.LoggingConfigSpec in YAML form.
type LoggingConfig struct {
	DefaultLevel string            `yaml:"default_level"`
	Format       string            `yaml:"format"`
	CommonFields map[string]string `yaml:"common_fields"`
	Modules      []ModuleLogging   `yaml:"modules"`
}

// ModuleLogging sets the level for one module.
type ModuleLogging struct {
	Name  string `yaml:"name"`
	Level string `yaml:"level"`
}

// Default returns a Config populated with the documented defaults.
func Default() *Config {
	return &Config{
		DuplicateWindowS:       DefaultDuplicateWindowS,
		MaxRequestsPerMinute:   DefaultMaxRequestsPerMinute,
		MaxChainLength:         DefaultMaxChainLength,
		MaxChainDurationS:      DefaultMaxChainDurationS,
		AutoNextDelayS:         DefaultAutoNextDelayS,
		CommandPrefix:          DefaultCommandPrefix,
		StrictButtonValidation: boolPtr(DefaultStrictButtonValidation),
	}
}

// Load reads a YAML config file, fills unset fields with defaults, and
// applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is provided by the operator
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config content, fills unset fields with defaults, and
// applies environment overrides.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config YAML: %w", err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv returns the default config with environment overrides applied.
func FromEnv() *Config {
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

// applyDefaults restores defaults for fields YAML zeroed out.
func (c *Config) applyDefaults() {
	if c.DuplicateWindowS <= 0 {
		c.DuplicateWindowS = DefaultDuplicateWindowS
	}
	if c.MaxRequestsPerMinute <= 0 {
		c.MaxRequestsPerMinute = DefaultMaxRequestsPerMinute
	}
	if c.MaxChainLength <= 0 {
		c.MaxChainLength = DefaultMaxChainLength
	}
	if c.MaxChainDurationS <= 0 {
		c.MaxChainDurationS = DefaultMaxChainDurationS
	}
	if c.AutoNextDelayS <= 0 {
		c.AutoNextDelayS = DefaultAutoNextDelayS
	}
	if c.CommandPrefix == "" {
		c.CommandPrefix = DefaultCommandPrefix
	}
	if c.StrictButtonValidation == nil {
		c.StrictButtonValidation = boolPtr(DefaultStrictButtonValidation)
	}
}

// StrictButtons reports whether unknown button values are rejected.
func (c *Config) StrictButtons() bool {
	return c.StrictButtonValidation == nil || *c.StrictButtonValidation
}

func boolPtr(b bool) *bool { return &b }

// applyEnv overrides fields from DIALOGKIT_* environment variables.
func (c *Config) applyEnv() {
	if v, ok := envInt("DIALOGKIT_DUPLICATE_WINDOW_S"); ok {
		c.DuplicateWindowS = v
	}
	if v, ok := envInt("DIALOGKIT_MAX_REQUESTS_PER_MINUTE"); ok {
		c.MaxRequestsPerMinute = v
	}
	if v, ok := envInt("DIALOGKIT_MAX_CHAIN_LENGTH"); ok {
		c.MaxChainLength = v
	}
	if v, ok := envInt("DIALOGKIT_MAX_CHAIN_DURATION_S"); ok {
		c.MaxChainDurationS = v
	}
	if v := os.Getenv("DIALOGKIT_COMMAND_PREFIX"); v != "" {
		c.CommandPrefix = v
	}
	if v := os.Getenv("DIALOGKIT_STRICT_BUTTON_VALIDATION"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.StrictButtonValidation = boolPtr(b)
		}
	}
	if v := os.Getenv("DIALOGKIT_LOG_LEVEL"); v != "" {
		c.Logging.DefaultLevel = v
	}
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Validate checks the config for nonsensical values.
func (c *Config) Validate() error {
	if c.DuplicateWindowS < 0 {
		return fmt.Errorf("duplicate_window_s must be non-negative, got %d", c.DuplicateWindowS)
	}
	if c.MaxChainLength < 1 {
		return fmt.Errorf("max_chain_length must be at least 1, got %d", c.MaxChainLength)
	}
	if c.MaxChainDurationS < 1 {
		return fmt.Errorf("max_chain_duration_s must be at least 1, got %d", c.MaxChainDurationS)
	}
	return nil
}

// DuplicateWindow returns the duplicate suppression window as a Duration.
func (c *Config) DuplicateWindow() time.Duration {
	return time.Duration(c.DuplicateWindowS) * time.Second
}

// MaxChainDuration returns the chain duration bound as a Duration.
func (c *Config) MaxChainDuration() time.Duration {
	return time.Duration(c.MaxChainDurationS) * time.Second
}

// AutoNextDelay returns the default auto-advance delay as a Duration.
func (c *Config) AutoNextDelay() time.Duration {
	return time.Duration(c.AutoNextDelayS * float64(time.Second))
}
