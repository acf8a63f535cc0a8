package client

import (
	"time"

	"github.com/vango-dev/wsession/pkg/message"
)

// pingTracker schedules application-level keepalive messages and computes
// round-trip time from matched send and receive events. It exists because
// one backend environment cannot use protocol-level ping frames at all.
//
// Matching is intentionally asymmetric: the send side matches the ping
// message by pointer identity, so a caller-sent message with identical
// content is never mistaken for the keepalive. The receive side matches by
// value, because the echo coming back from the network is necessarily a
// new instance.
type pingTracker struct {
	// msg is this session's ping instance, cloned from the config at
	// snapshot time.
	msg *message.Message

	interval    time.Duration
	requirePong bool

	lastQueuedAt time.Time
	lastSentAt   time.Time
	lastPongAt   time.Time
	awaitingPong bool
}

// newPingTracker returns a tracker for the active config, or nil when
// ping-pong is not configured.
func newPingTracker(cfg *Config) *pingTracker {
	if !cfg.pingEnabled() {
		return nil
	}
	return &pingTracker{
		msg:         cfg.PingMessage,
		interval:    cfg.PingInterval,
		requirePong: cfg.PingRequiresPongFirst,
	}
}

// reset seeds the timestamps when the session reaches Connected.
func (p *pingTracker) reset(now time.Time) {
	p.lastQueuedAt = now
	p.lastSentAt = now
	p.lastPongAt = now
	p.awaitingPong = false
}

// tick returns the ping message to enqueue, or nil if it is not due yet.
func (p *pingTracker) tick(now time.Time) *message.Message {
	if p.requirePong && p.awaitingPong {
		return nil
	}
	if now.Sub(p.lastQueuedAt) < p.interval {
		return nil
	}
	p.lastQueuedAt = now
	p.awaitingPong = true
	return p.msg
}

// onSent records the send timestamp when the transport reports our ping
// instance (identity match) as written. Returns true when msg was the ping.
func (p *pingTracker) onSent(msg *message.Message, now time.Time) bool {
	if msg != p.msg {
		return false
	}
	p.lastSentAt = now
	return true
}

// onReceived checks an inbound message against the ping payload (value
// match). On a match it returns the round-trip time and true; the message
// must then be intercepted, never delivered to the caller.
func (p *pingTracker) onReceived(msg *message.Message, now time.Time) (time.Duration, bool) {
	if !msg.Equal(p.msg) {
		return 0, false
	}
	p.lastPongAt = now
	p.awaitingPong = false
	return now.Sub(p.lastSentAt), true
}
