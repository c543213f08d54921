package realtime

import "fmt"

// Config defines the push-channel connection policy.
type Config struct {
	// Path is the channel endpoint path on the backend.
	Path string `json:"path"`
	// KeepaliveSeconds is the interval between outbound ping frames.
	KeepaliveSeconds int `json:"keepalive_seconds"`
	// ReconnectDelayMS is the fixed delay before a reconnect attempt.
	ReconnectDelayMS int `json:"reconnect_delay_ms"`
	// MaxAttempts bounds consecutive failed connection attempts before the
	// client gives up. The counter resets on every successful connect.
	MaxAttempts int `json:"max_attempts"`
	// Transport selects the channel transport: "websocket" or "mqtt".
	Transport string `json:"transport"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Path == "" {
		c.Path = "/realtime/channel"
	}
	if c.KeepaliveSeconds <= 0 {
		c.KeepaliveSeconds = 30
	}
	if c.ReconnectDelayMS <= 0 {
		c.ReconnectDelayMS = 3000
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 10
	}
	if c.Transport == "" {
		c.Transport = "websocket"
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Transport != "websocket" && c.Transport != "mqtt" {
		return fmt.Errorf("unknown channel transport %q", c.Transport)
	}
	return nil
}
