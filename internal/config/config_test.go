package config

import (
	"os"
	"testing"
)

func setPartners(t *testing.T) {
	t.Helper()
	os.Setenv("X12_SENDER_ID", "SUBMITTER01")
	os.Setenv("X12_RECEIVER_ID", "PAYER01")
	t.Cleanup(func() {
		os.Unsetenv("X12_SENDER_ID")
		os.Unsetenv("X12_RECEIVER_ID")
	})
}

func TestLoad_WithoutPartners(t *testing.T) {
	os.Unsetenv("X12_SENDER_ID")
	os.Unsetenv("X12_RECEIVER_ID")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("parsing needs no partner ids, got error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
	if err := cfg.RequirePartners(); err == nil {
		t.Error("expected RequirePartners to fail without partner ids")
	}
}

func TestConfig_RequirePartners(t *testing.T) {
	tests := []struct {
		name     string
		sender   string
		receiver string
		wantErr  string
	}{
		{"both set", "SUBMITTER01", "PAYER01", ""},
		{"no sender", "", "PAYER01", "X12_SENDER_ID is required"},
		{"no receiver", "SUBMITTER01", "", "X12_RECEIVER_ID is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{SenderID: tt.sender, ReceiverID: tt.receiver}
			err := cfg.RequirePartners()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Errorf("expected %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	setPartners(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.SenderID != "SUBMITTER01" {
		t.Errorf("expected X12_SENDER_ID to be set, got %s", cfg.SenderID)
	}
	if cfg.SenderQualifier != "ZZ" || cfg.ReceiverQualifier != "ZZ" {
		t.Errorf("expected default qualifiers ZZ, got %s/%s", cfg.SenderQualifier, cfg.ReceiverQualifier)
	}
	if cfg.UsageIndicator != "T" {
		t.Errorf("expected default usage indicator T, got %s", cfg.UsageIndicator)
	}
	if cfg.MaxInputBytes != 4<<20 {
		t.Errorf("expected default max input bytes %d, got %d", 4<<20, cfg.MaxInputBytes)
	}
	if cfg.MaxSegments != 100000 {
		t.Errorf("expected default max segments 100000, got %d", cfg.MaxSegments)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setPartners(t)
	os.Setenv("X12_USAGE_INDICATOR", "p")
	os.Setenv("X12_MAX_SEGMENTS", "50")
	os.Setenv("X12_ACK_REQUESTED", "true")
	defer func() {
		os.Unsetenv("X12_USAGE_INDICATOR")
		os.Unsetenv("X12_MAX_SEGMENTS")
		os.Unsetenv("X12_ACK_REQUESTED")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.UsageIndicator != "P" {
		t.Errorf("expected usage indicator P, got %s", cfg.UsageIndicator)
	}
	if cfg.Limits().MaxSegments != 50 {
		t.Errorf("expected max segments 50, got %d", cfg.Limits().MaxSegments)
	}
	if !cfg.Envelope().AckRequested {
		t.Error("expected acknowledgment to be requested")
	}
}

func TestConfig_IsDev(t *testing.T) {
	c := &Config{Env: "development"}
	if !c.IsDev() {
		t.Error("expected IsDev() to return true for development")
	}

	c.Env = "production"
	if c.IsDev() {
		t.Error("expected IsDev() to return false for production")
	}
}

func validConfig() *Config {
	return &Config{
		Env:               "development",
		SenderQualifier:   "ZZ",
		SenderID:          "SUBMITTER01",
		ReceiverQualifier: "ZZ",
		ReceiverID:        "PAYER01",
		UsageIndicator:    "T",
		MaxInputBytes:     1024,
		MaxSegments:       100,
		MaxElements:       64,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"sender too long", func(c *Config) { c.SenderID = "ABCDEFGHIJKLMNOP" }, true},
		{"receiver too long", func(c *Config) { c.ReceiverID = "ABCDEFGHIJKLMNOP" }, true},
		{"bad qualifier", func(c *Config) { c.SenderQualifier = "Z" }, true},
		{"bad usage", func(c *Config) { c.UsageIndicator = "X" }, true},
		{"production test usage", func(c *Config) { c.Env = "production" }, true},
		{"production usage", func(c *Config) { c.Env = "production"; c.UsageIndicator = "P" }, false},
		{"zero limit", func(c *Config) { c.MaxElements = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Envelope(t *testing.T) {
	c := validConfig()
	c.AppSenderCode = "APPSEND"

	env := c.Envelope()
	if env.SenderID != "SUBMITTER01" || env.ReceiverID != "PAYER01" {
		t.Errorf("unexpected envelope ids %s/%s", env.SenderID, env.ReceiverID)
	}
	if env.ApplicationSender != "APPSEND" {
		t.Errorf("expected application sender APPSEND, got %s", env.ApplicationSender)
	}
	if err := env.Validate(); err != nil {
		t.Errorf("expected envelope to validate, got %v", err)
	}
}

func TestConfig_ControlNumbers_Seeded(t *testing.T) {
	c := validConfig()
	c.ControlSeed = "42"

	g, err := c.ControlNumbers()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := g.NextTriple()
	if got.Interchange != "000000042" || got.Group != "42" || got.Transaction != "0042" {
		t.Errorf("unexpected seeded control numbers %+v", got)
	}
}

func TestConfig_ControlNumbers_InvalidSeed(t *testing.T) {
	c := validConfig()
	c.ControlSeed = "abc"

	if _, err := c.ControlNumbers(); err == nil {
		t.Fatal("expected error for non-numeric seed")
	}
}
