package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if !strings.HasPrefix(c.Port, ":") && !strings.Contains(c.Port, ":") {
		return fmt.Errorf("port must be a listen address like :8080, got %q", c.Port)
	}

	if c.MaxConnections < 1 {
		return errors.New("max_connections must be >= 1")
	}
	if c.HeartbeatInterval <= 0 {
		return errors.New("heartbeat_interval must be positive")
	}
	if c.MessageQueueSize < 1 {
		return errors.New("message_queue_size must be >= 1")
	}
	if c.RoomMaxMembers < 1 {
		return errors.New("room_max_members must be >= 1")
	}
	if c.TypingTimeout <= 0 {
		return errors.New("typing_timeout must be positive")
	}
	if c.MaxMessageSize < 1 {
		return errors.New("max_message_size must be >= 1")
	}

	if c.RateLimit.Window <= 0 {
		return errors.New("rate_limit.window must be positive")
	}
	if c.RateLimit.MaxMessages < 1 {
		return errors.New("rate_limit.max_messages must be >= 1")
	}

	if c.Sink.URL != "" && c.Sink.SubjectPrefix == "" {
		return errors.New("sink.subject_prefix is required when sink.url is set")
	}

	return nil
}
