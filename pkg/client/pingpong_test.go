package client

import (
	"testing"
	"time"

	"github.com/vango-dev/wsession/pkg/message"
)

func pingConfig(requirePong bool) *Config {
	cfg := DefaultConfig().WithPing(message.NewText("ping"), time.Second)
	cfg.PingRequiresPongFirst = requirePong
	return cfg
}

func TestPingTrackerDisabled(t *testing.T) {
	if newPingTracker(DefaultConfig()) != nil {
		t.Error("tracker created without ping config")
	}

	cfg := DefaultConfig()
	cfg.PingMessage = message.NewText("ping")
	if newPingTracker(cfg) != nil {
		t.Error("tracker created without interval")
	}
}

func TestPingTrackerSchedule(t *testing.T) {
	p := newPingTracker(pingConfig(false))
	base := time.Now()
	p.reset(base)

	if msg := p.tick(base.Add(500 * time.Millisecond)); msg != nil {
		t.Error("ping queued before the interval elapsed")
	}

	msg := p.tick(base.Add(time.Second))
	if msg == nil {
		t.Fatal("ping not queued at the interval")
	}
	if msg != p.msg {
		t.Error("tick returned a different instance than the session ping")
	}

	// Without a pong requirement the next ping is due one interval after
	// the previous queue time.
	if m := p.tick(base.Add(1500 * time.Millisecond)); m != nil {
		t.Error("ping queued half an interval early")
	}
	if m := p.tick(base.Add(2 * time.Second)); m == nil {
		t.Error("second ping not queued")
	}
}

func TestPingTrackerRequiresPong(t *testing.T) {
	p := newPingTracker(pingConfig(true))
	base := time.Now()
	p.reset(base)

	if msg := p.tick(base.Add(time.Second)); msg == nil {
		t.Fatal("first ping not queued")
	}

	// No pong yet: later ticks must skip.
	if msg := p.tick(base.Add(5 * time.Second)); msg != nil {
		t.Error("ping queued while awaiting pong")
	}

	echo := message.NewText("ping")
	if _, ok := p.onReceived(echo, base.Add(1200*time.Millisecond)); !ok {
		t.Fatal("echo not recognized as pong")
	}

	if msg := p.tick(base.Add(5 * time.Second)); msg == nil {
		t.Error("ping not queued after pong arrived")
	}
}

// TestPingTrackerSendIdentity checks the asymmetric matching: sends match
// by instance, not by content.
func TestPingTrackerSendIdentity(t *testing.T) {
	p := newPingTracker(pingConfig(false))
	base := time.Now()
	p.reset(base)

	// A caller-sent message with identical content is not the keepalive.
	imposter := message.NewText("ping")
	if p.onSent(imposter, base.Add(time.Millisecond)) {
		t.Error("content-identical message matched as ping send")
	}

	if !p.onSent(p.msg, base.Add(2*time.Millisecond)) {
		t.Error("session ping instance did not match on send")
	}
}

func TestPingTrackerRTT(t *testing.T) {
	p := newPingTracker(pingConfig(false))
	base := time.Now()
	p.reset(base)

	p.tick(base.Add(time.Second))
	p.onSent(p.msg, base.Add(time.Second))

	echo := message.NewText("ping")
	rtt, ok := p.onReceived(echo, base.Add(1250*time.Millisecond))
	if !ok {
		t.Fatal("echo not matched")
	}
	if rtt != 250*time.Millisecond {
		t.Errorf("rtt = %s, want 250ms", rtt)
	}

	// Unrelated traffic is never intercepted.
	if _, ok := p.onReceived(message.NewText("hello"), base.Add(2*time.Second)); ok {
		t.Error("unrelated message matched as pong")
	}
	if _, ok := p.onReceived(message.NewBinary([]byte("ping")), base.Add(2*time.Second)); ok {
		t.Error("binary message matched text ping")
	}
}
