// Package config defines runtime configuration for the Parley server,
// including transport limits, rate-limit windows, and sink settings.
package config

import "time"

// Config is the root configuration for a server instance.
type Config struct {
	Port              string        `yaml:"port"`
	MaxConnections    int           `yaml:"max_connections"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	MessageQueueSize  int           `yaml:"message_queue_size"`
	RoomMaxMembers    int           `yaml:"room_max_members"`
	TypingTimeout     time.Duration `yaml:"typing_timeout"`
	MaxMessageSize    int64         `yaml:"max_message_size"`
	AllowedOrigins    []string      `yaml:"allowed_origins"`
	RateLimit         RateLimit     `yaml:"rate_limit"`
	Metrics           Metrics       `yaml:"metrics"`
	Sink              Sink          `yaml:"sink"`
}

// RateLimit holds the sliding-window admission parameters. The same window
// shape is applied at connect time (keyed by remote address) and per
// application message (keyed by connection id).
type RateLimit struct {
	Window      time.Duration `yaml:"window"`
	MaxMessages int           `yaml:"max_messages"`
}

// Metrics controls the Prometheus endpoint.
type Metrics struct {
	Enabled bool `yaml:"enabled"`
}

// Sink configures the external persistence collaborator that drains the
// per-room message queues. When URL is empty the queues are staged in
// memory only.
type Sink struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// Default returns a Config populated with default values for all settings.
func Default() *Config {
	return &Config{
		Port:              ":8080",
		MaxConnections:    1000,
		HeartbeatInterval: 30 * time.Second,
		MessageQueueSize:  100,
		RoomMaxMembers:    100,
		TypingTimeout:     5 * time.Second,
		MaxMessageSize:    4096,
		AllowedOrigins:    []string{"http://localhost:8080"},
		RateLimit: RateLimit{
			Window:      10 * time.Second,
			MaxMessages: 100,
		},
		Metrics: Metrics{Enabled: true},
		Sink: Sink{
			SubjectPrefix: "parley.rooms",
		},
	}
}

func (c *Config) applyDefaults() {
	def := Default()

	if c.Port == "" {
		c.Port = def.Port
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = def.MaxConnections
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = def.HeartbeatInterval
	}
	if c.MessageQueueSize <= 0 {
		c.MessageQueueSize = def.MessageQueueSize
	}
	if c.RoomMaxMembers <= 0 {
		c.RoomMaxMembers = def.RoomMaxMembers
	}
	if c.TypingTimeout <= 0 {
		c.TypingTimeout = def.TypingTimeout
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = def.MaxMessageSize
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = append([]string(nil), def.AllowedOrigins...)
	}
	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = def.RateLimit.Window
	}
	if c.RateLimit.MaxMessages <= 0 {
		c.RateLimit.MaxMessages = def.RateLimit.MaxMessages
	}
	if c.Sink.SubjectPrefix == "" {
		c.Sink.SubjectPrefix = def.Sink.SubjectPrefix
	}
}
