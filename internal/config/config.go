package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/ehr/edi/internal/platform/x12"
)

type Config struct {
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	SenderQualifier   string `mapstructure:"X12_SENDER_QUALIFIER"`
	SenderID          string `mapstructure:"X12_SENDER_ID"`
	ReceiverQualifier string `mapstructure:"X12_RECEIVER_QUALIFIER"`
	ReceiverID        string `mapstructure:"X12_RECEIVER_ID"`
	AppSenderCode     string `mapstructure:"X12_APP_SENDER_CODE"`
	AppReceiverCode   string `mapstructure:"X12_APP_RECEIVER_CODE"`
	UsageIndicator    string `mapstructure:"X12_USAGE_INDICATOR"`
	AckRequested      bool   `mapstructure:"X12_ACK_REQUESTED"`

	MaxInputBytes int `mapstructure:"X12_MAX_INPUT_BYTES"`
	MaxSegments   int `mapstructure:"X12_MAX_SEGMENTS"`
	MaxElements   int `mapstructure:"X12_MAX_ELEMENTS"`

	// ControlSeed pins the first interchange, group and transaction control
	// number. Empty seeds the generator randomly.
	ControlSeed string `mapstructure:"X12_CONTROL_SEED"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	limits := x12.DefaultLimits()

	// Defaults
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("X12_SENDER_QUALIFIER", "ZZ")
	v.SetDefault("X12_RECEIVER_QUALIFIER", "ZZ")
	v.SetDefault("X12_USAGE_INDICATOR", "T")
	v.SetDefault("X12_ACK_REQUESTED", false)
	v.SetDefault("X12_MAX_INPUT_BYTES", limits.MaxInputBytes)
	v.SetDefault("X12_MAX_SEGMENTS", limits.MaxSegments)
	v.SetDefault("X12_MAX_ELEMENTS", limits.MaxElements)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("ENV")
	v.BindEnv("LOG_LEVEL")
	v.BindEnv("X12_SENDER_QUALIFIER")
	v.BindEnv("X12_SENDER_ID")
	v.BindEnv("X12_RECEIVER_QUALIFIER")
	v.BindEnv("X12_RECEIVER_ID")
	v.BindEnv("X12_APP_SENDER_CODE")
	v.BindEnv("X12_APP_RECEIVER_CODE")
	v.BindEnv("X12_USAGE_INDICATOR")
	v.BindEnv("X12_ACK_REQUESTED")
	v.BindEnv("X12_MAX_INPUT_BYTES")
	v.BindEnv("X12_MAX_SEGMENTS")
	v.BindEnv("X12_MAX_ELEMENTS")
	v.BindEnv("X12_CONTROL_SEED")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.UsageIndicator = strings.ToUpper(cfg.UsageIndicator)

	return cfg, nil
}

// RequirePartners checks the trading-partner ids stamped into ISA-06 and
// ISA-08. Only encoding needs them.
func (c *Config) RequirePartners() error {
	if c.SenderID == "" {
		return fmt.Errorf("X12_SENDER_ID is required")
	}
	if c.ReceiverID == "" {
		return fmt.Errorf("X12_RECEIVER_ID is required")
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the codec is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the trading-partner identifiers fit the ISA header
// and that the input limits are usable. Production interchanges must carry
// the "P" usage indicator.
func (c *Config) Validate() error {
	if len(c.SenderID) > 15 {
		return fmt.Errorf("X12_SENDER_ID must be at most 15 characters, got %d", len(c.SenderID))
	}
	if len(c.ReceiverID) > 15 {
		return fmt.Errorf("X12_RECEIVER_ID must be at most 15 characters, got %d", len(c.ReceiverID))
	}
	if len(c.SenderQualifier) != 2 || len(c.ReceiverQualifier) != 2 {
		return fmt.Errorf("X12_SENDER_QUALIFIER and X12_RECEIVER_QUALIFIER must be 2 characters")
	}
	if c.UsageIndicator != "T" && c.UsageIndicator != "P" {
		return fmt.Errorf("X12_USAGE_INDICATOR must be \"T\" or \"P\", got %q", c.UsageIndicator)
	}
	if c.IsProduction() && c.UsageIndicator != "P" {
		return fmt.Errorf("X12_USAGE_INDICATOR must be \"P\" in production")
	}
	if c.MaxInputBytes <= 0 || c.MaxSegments <= 0 || c.MaxElements <= 0 {
		return fmt.Errorf("X12_MAX_INPUT_BYTES, X12_MAX_SEGMENTS and X12_MAX_ELEMENTS must be positive")
	}
	return nil
}

// Envelope returns the interchange envelope described by the configuration.
func (c *Config) Envelope() x12.Envelope {
	env := x12.DefaultEnvelope()
	env.SenderQualifier = c.SenderQualifier
	env.SenderID = c.SenderID
	env.ReceiverQualifier = c.ReceiverQualifier
	env.ReceiverID = c.ReceiverID
	env.ApplicationSender = c.AppSenderCode
	env.ApplicationReceiver = c.AppReceiverCode
	env.UsageIndicator = c.UsageIndicator
	env.AckRequested = c.AckRequested
	return env
}

// Limits returns the parser input bounds.
func (c *Config) Limits() x12.Limits {
	return x12.Limits{
		MaxInputBytes: c.MaxInputBytes,
		MaxSegments:   c.MaxSegments,
		MaxElements:   c.MaxElements,
	}
}

// ControlNumbers returns the generator for this process: pinned when
// X12_CONTROL_SEED is set, randomly seeded otherwise.
func (c *Config) ControlNumbers() (*x12.ControlNumberGenerator, error) {
	if c.ControlSeed == "" {
		return x12.NewRandomControlNumberGenerator()
	}
	seed := c.ControlSeed
	return x12.NewControlNumberGenerator(x12.ControlNumbers{Interchange: seed, Group: seed, Transaction: seed})
}
