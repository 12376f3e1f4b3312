package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand ${VAR} environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config and applies default values.
func LoadWithDefaults(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadAndValidate loads config, applies defaults and environment
// overrides, and validates the result.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// FromEnv creates a Config from defaults plus environment overrides, for
// deployments that run without a config file.
func FromEnv() *Config {
	cfg := Default()
	cfg.ApplyEnv()
	return cfg
}

// ApplyEnv layers PARLEY_* environment variables over the current values.
// Unset or malformed variables leave the existing value in place.
func (c *Config) ApplyEnv() {
	if port := os.Getenv("PARLEY_PORT"); port != "" {
		c.Port = port
	}
	if origins := os.Getenv("PARLEY_ALLOWED_ORIGINS"); origins != "" {
		c.AllowedOrigins = parseOrigins(origins)
	}
	c.MaxConnections = envInt("PARLEY_MAX_CONNECTIONS", c.MaxConnections)
	c.MessageQueueSize = envInt("PARLEY_MESSAGE_QUEUE_SIZE", c.MessageQueueSize)
	c.RoomMaxMembers = envInt("PARLEY_ROOM_MAX_MEMBERS", c.RoomMaxMembers)
	c.RateLimit.MaxMessages = envInt("PARLEY_RATE_LIMIT_MAX_MESSAGES", c.RateLimit.MaxMessages)
	c.HeartbeatInterval = envDuration("PARLEY_HEARTBEAT_INTERVAL", c.HeartbeatInterval)
	c.TypingTimeout = envDuration("PARLEY_TYPING_TIMEOUT", c.TypingTimeout)
	c.RateLimit.Window = envDuration("PARLEY_RATE_LIMIT_WINDOW", c.RateLimit.Window)
	if maxSize := os.Getenv("PARLEY_MAX_MESSAGE_SIZE"); maxSize != "" {
		if size, err := strconv.ParseInt(maxSize, 10, 64); err == nil && size > 0 {
			c.MaxMessageSize = size
		}
	}
	if url := os.Getenv("PARLEY_SINK_URL"); url != "" {
		c.Sink.URL = url
	}
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func envInt(name string, defaultValue int) int {
	if value := os.Getenv(name); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func envDuration(name string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(name); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}
