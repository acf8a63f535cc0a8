package client

import (
	"net/http"
	"time"

	"github.com/vango-dev/wsession/pkg/message"
	"github.com/vango-dev/wsession/pkg/transport"
)

// DefaultMaxMessageBytes is the default send and receive size limit.
const DefaultMaxMessageBytes = 4096

// Config holds the settings for a session.
//
// The Config passed to New stays owned by the caller and may be edited at
// any time; a deep copy is taken the moment a connect begins, so edits
// never affect a session already in flight.
type Config struct {
	// Endpoint is the ws:// or wss:// URL to connect to.
	// Required unless passed to Connect.
	Endpoint string

	// Subprotocols are offered during the handshake, in order.
	Subprotocols []string

	// Headers are sent with the handshake request. Not supported by the
	// bridge backend, where they are logged and dropped.
	Headers http.Header

	// MaxSendBytes rejects larger outgoing messages before sending.
	// Default: 4096.
	MaxSendBytes int

	// MaxReceiveBytes drops larger incoming messages after receipt.
	// Default: 4096.
	MaxReceiveBytes int

	// PingMessage is the application-level keepalive payload. Ping-pong is
	// active only when both PingMessage and PingInterval are set.
	PingMessage *message.Message

	// PingInterval is the time between keepalive sends.
	// Default: 0 (disabled).
	PingInterval time.Duration

	// PingRequiresPongFirst delays the next ping until the previous one
	// was echoed back.
	// Default: false.
	PingRequiresPongFirst bool

	// DebugLogging enables debug-level session logs.
	// Default: false.
	DebugLogging bool

	// Host selects the bridge backend when set. When nil the native
	// backend is used.
	Host transport.Host
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxSendBytes:    DefaultMaxMessageBytes,
		MaxReceiveBytes: DefaultMaxMessageBytes,
	}
}

// Clone returns a deep copy of the Config. The ping message is cloned too,
// so every session gets its own instance to send-match against.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	if c.Subprotocols != nil {
		clone.Subprotocols = make([]string, len(c.Subprotocols))
		copy(clone.Subprotocols, c.Subprotocols)
	}
	if c.Headers != nil {
		clone.Headers = c.Headers.Clone()
	}
	clone.PingMessage = c.PingMessage.Clone()
	return &clone
}

// WithEndpoint sets the endpoint and returns the config for chaining.
func (c *Config) WithEndpoint(endpoint string) *Config {
	c.Endpoint = endpoint
	return c
}

// WithSubprotocols sets the offered subprotocols and returns the config for
// chaining.
func (c *Config) WithSubprotocols(protocols ...string) *Config {
	c.Subprotocols = protocols
	return c
}

// WithLimits sets the send and receive size limits and returns the config
// for chaining.
func (c *Config) WithLimits(maxSend, maxReceive int) *Config {
	c.MaxSendBytes = maxSend
	c.MaxReceiveBytes = maxReceive
	return c
}

// WithPing enables the application-level keepalive and returns the config
// for chaining.
func (c *Config) WithPing(msg *message.Message, interval time.Duration) *Config {
	c.PingMessage = msg
	c.PingInterval = interval
	return c
}

// pingEnabled reports whether the ping-pong tracker should run.
func (c *Config) pingEnabled() bool {
	return c.PingMessage != nil && c.PingInterval > 0
}
