package client

import (
	"net/http"
	"testing"
	"time"

	"github.com/vango-dev/wsession/pkg/message"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MaxSendBytes != DefaultMaxMessageBytes {
		t.Errorf("MaxSendBytes = %d, want %d", cfg.MaxSendBytes, DefaultMaxMessageBytes)
	}
	if cfg.MaxReceiveBytes != DefaultMaxMessageBytes {
		t.Errorf("MaxReceiveBytes = %d, want %d", cfg.MaxReceiveBytes, DefaultMaxMessageBytes)
	}
	if cfg.pingEnabled() {
		t.Error("ping enabled by default")
	}
}

// TestCloneIsDeep checks the snapshot invariant: mutating the original
// after Clone must not affect the copy.
func TestCloneIsDeep(t *testing.T) {
	orig := DefaultConfig().
		WithEndpoint("ws://a/ws").
		WithSubprotocols("chat.v1", "chat.v2").
		WithPing(message.NewText("ping"), 30*time.Second)
	orig.Headers = http.Header{}
	orig.Headers.Set("Authorization", "Bearer one")

	snap := orig.Clone()

	orig.Endpoint = "ws://b/ws"
	orig.Subprotocols[0] = "mutated"
	orig.Headers.Set("Authorization", "Bearer two")
	orig.MaxSendBytes = 1
	orig.PingMessage = message.NewText("changed")

	if snap.Endpoint != "ws://a/ws" {
		t.Errorf("Endpoint leaked: %q", snap.Endpoint)
	}
	if snap.Subprotocols[0] != "chat.v1" {
		t.Errorf("Subprotocols leaked: %v", snap.Subprotocols)
	}
	if snap.Headers.Get("Authorization") != "Bearer one" {
		t.Errorf("Headers leaked: %v", snap.Headers)
	}
	if snap.MaxSendBytes != DefaultMaxMessageBytes {
		t.Errorf("MaxSendBytes leaked: %d", snap.MaxSendBytes)
	}
	if snap.PingMessage.Text() != "ping" {
		t.Errorf("PingMessage leaked: %q", snap.PingMessage.Text())
	}
}

// TestClonePingIdentity checks that each snapshot carries its own ping
// instance, so send-matching cannot confuse two sessions.
func TestClonePingIdentity(t *testing.T) {
	cfg := DefaultConfig().WithPing(message.NewText("ping"), time.Second)

	a := cfg.Clone()
	b := cfg.Clone()

	if a.PingMessage == cfg.PingMessage || a.PingMessage == b.PingMessage {
		t.Error("ping message instance shared across clones")
	}
	if !a.PingMessage.Equal(b.PingMessage) {
		t.Error("cloned ping messages differ by value")
	}
}

func TestCloneNil(t *testing.T) {
	var cfg *Config
	if cfg.Clone() != nil {
		t.Error("nil Clone should be nil")
	}
}

func TestPingEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PingMessage = message.NewText("ping")
	if cfg.pingEnabled() {
		t.Error("enabled without interval")
	}
	cfg.PingInterval = time.Second
	if !cfg.pingEnabled() {
		t.Error("not enabled with message and interval")
	}
}
