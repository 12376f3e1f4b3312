package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parley.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

// TestLoadWithDefaults verifies YAML parsing with defaults filling the
// unset fields.
func TestLoadWithDefaults(t *testing.T) {
	path := writeConfigFile(t, `
port: ":9090"
max_connections: 50
rate_limit:
  window: 5s
  max_messages: 20
`)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Port != ":9090" {
		t.Errorf("port not read: %q", cfg.Port)
	}
	if cfg.MaxConnections != 50 {
		t.Errorf("max_connections not read: %d", cfg.MaxConnections)
	}
	if cfg.RateLimit.Window != 5*time.Second || cfg.RateLimit.MaxMessages != 20 {
		t.Errorf("rate_limit not read: %+v", cfg.RateLimit)
	}

	// Unset fields fall back to defaults.
	if cfg.HeartbeatInterval != 30*time.Second {
		t.Errorf("heartbeat_interval default not applied: %v", cfg.HeartbeatInterval)
	}
	if cfg.MessageQueueSize != 100 || cfg.RoomMaxMembers != 100 {
		t.Errorf("queue/room defaults not applied: %d %d", cfg.MessageQueueSize, cfg.RoomMaxMembers)
	}
}

// TestLoadExpandsEnvironment verifies ${VAR} expansion inside the file.
func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("PARLEY_TEST_PORT", ":7070")
	path := writeConfigFile(t, "port: \"${PARLEY_TEST_PORT}\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Port != ":7070" {
		t.Errorf("environment not expanded: %q", cfg.Port)
	}
}

// TestLoadMissingFile verifies the error path for an absent file.
func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

// TestApplyEnvOverrides verifies PARLEY_* variables layered over defaults,
// with malformed values ignored.
func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("PARLEY_PORT", ":6060")
	t.Setenv("PARLEY_MAX_CONNECTIONS", "200")
	t.Setenv("PARLEY_HEARTBEAT_INTERVAL", "15s")
	t.Setenv("PARLEY_RATE_LIMIT_MAX_MESSAGES", "nonsense")
	t.Setenv("PARLEY_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg := FromEnv()

	if cfg.Port != ":6060" {
		t.Errorf("port override not applied: %q", cfg.Port)
	}
	if cfg.MaxConnections != 200 {
		t.Errorf("max connections override not applied: %d", cfg.MaxConnections)
	}
	if cfg.HeartbeatInterval != 15*time.Second {
		t.Errorf("heartbeat override not applied: %v", cfg.HeartbeatInterval)
	}
	if cfg.RateLimit.MaxMessages != Default().RateLimit.MaxMessages {
		t.Errorf("malformed override was applied: %d", cfg.RateLimit.MaxMessages)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("origins override not applied: %v", cfg.AllowedOrigins)
	}
}

// TestValidate verifies rejection of out-of-range values.
func TestValidate(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}

	breakers := []func(*Config){
		func(c *Config) { c.Port = "" },
		func(c *Config) { c.MaxConnections = 0 },
		func(c *Config) { c.HeartbeatInterval = 0 },
		func(c *Config) { c.MessageQueueSize = 0 },
		func(c *Config) { c.RoomMaxMembers = -1 },
		func(c *Config) { c.TypingTimeout = 0 },
		func(c *Config) { c.MaxMessageSize = 0 },
		func(c *Config) { c.RateLimit.Window = 0 },
		func(c *Config) { c.RateLimit.MaxMessages = 0 },
		func(c *Config) { c.Sink.URL = "nats://localhost:4222"; c.Sink.SubjectPrefix = "" },
	}

	for i, corrupt := range breakers {
		cfg := Default()
		corrupt(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("breaker %d passed validation", i)
		}
	}
}
