package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/wsession/internal/errors"
	"github.com/vango-dev/wsession/pkg/message"
	"github.com/vango-dev/wsession/pkg/transport"
)

// closeTimeout bounds the graceful close handshake of a session.
const closeTimeout = 5 * time.Second

// Client owns the connection lifecycle. It is driven by a consumer loop
// that calls Update once per tick; all notifications fire on that
// goroutine. Shutdown is the only method safe to call from elsewhere, for
// use in process-exit handlers.
type Client struct {
	logger *slog.Logger
	tracer trace.Tracer

	mu sync.Mutex

	// config is the caller-owned desired config; active is the immutable
	// snapshot taken when the current connect began.
	config *Config
	active *Config

	state   ConnectionState
	desired desiredState

	// errMsg holds the most recent error text, overwritten on each new
	// error and cleared when a connect attempt begins.
	errMsg string

	tr            transport.Transport
	sessionCancel context.CancelFunc
	attemptID     string
	span          trace.Span

	incoming messageQueue
	ping     *pingTracker
	lastRTT  time.Duration

	metrics *Metrics

	onStateChanged    func(old, new ConnectionState)
	onMessageReceived func(msg *message.Message)
	onMessageSent     func(msg *message.Message)
	onErrorReceived   func(text string)
	onPingSent        func(at time.Time)
	onPongReceived    func(at time.Time)
}

// New creates a Client around the given desired config. The config stays
// owned by the caller and may be edited between (not during) ticks; each
// connect snapshots it.
func New(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	return &Client{
		logger: slog.Default().With("component", "client"),
		tracer: otel.Tracer("wsession"),
		config: config,
		state:  Invalid,
	}
}

// SetLogger replaces the client's logger.
func (c *Client) SetLogger(logger *slog.Logger) {
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

// SetMetrics attaches a Prometheus metrics set. Pass nil to disable.
func (c *Client) SetMetrics(m *Metrics) {
	c.mu.Lock()
	c.metrics = m
	c.mu.Unlock()
}

// OnStateChanged registers the state-change notification.
func (c *Client) OnStateChanged(fn func(old, new ConnectionState)) {
	c.mu.Lock()
	c.onStateChanged = fn
	c.mu.Unlock()
}

// OnMessageReceived registers the inbound message notification. The message
// is also buffered for TryDequeueIncoming.
func (c *Client) OnMessageReceived(fn func(msg *message.Message)) {
	c.mu.Lock()
	c.onMessageReceived = fn
	c.mu.Unlock()
}

// OnMessageSent registers the outbound completion notification. Ping sends
// are reported through OnPingSent instead.
func (c *Client) OnMessageSent(fn func(msg *message.Message)) {
	c.mu.Lock()
	c.onMessageSent = fn
	c.mu.Unlock()
}

// OnErrorReceived registers the error notification.
func (c *Client) OnErrorReceived(fn func(text string)) {
	c.mu.Lock()
	c.onErrorReceived = fn
	c.mu.Unlock()
}

// OnPingSent registers the keepalive send notification.
func (c *Client) OnPingSent(fn func(at time.Time)) {
	c.mu.Lock()
	c.onPingSent = fn
	c.mu.Unlock()
}

// OnPongReceived registers the keepalive echo notification.
func (c *Client) OnPongReceived(fn func(at time.Time)) {
	c.mu.Lock()
	c.onPongReceived = fn
	c.mu.Unlock()
}

// Connect requests a connection. A non-empty endpoint overwrites the
// desired config's endpoint first. There is no immediate side effect; the
// next Update tick performs the work. Never fails.
func (c *Client) Connect(endpoint string) {
	c.mu.Lock()
	if endpoint != "" {
		c.config.Endpoint = endpoint
	}
	c.desired = desireConnect
	c.mu.Unlock()
}

// Disconnect requests a disconnect. A connect request that has not been
// consumed yet is withdrawn instead, so a connect immediately followed by a
// disconnect never builds a transport. Idempotent; never fails.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.desired == desireConnect {
		c.desired = desireNone
	} else {
		c.desired = desireDisconnect
	}
	c.mu.Unlock()
}

// State returns the actual connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Config returns the caller-owned desired config.
func (c *Client) Config() *Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config
}

// ErrorMessage returns the most recent error text. It is cleared when a
// connect attempt begins, so after a close an empty value means the session
// ended cleanly.
func (c *Client) ErrorMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// LastRoundTripTime returns the latest ping-pong round trip, or zero if no
// pong has been measured this session.
func (c *Client) LastRoundTripTime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRTT
}

// EnqueueText enqueues a text message for sending.
func (c *Client) EnqueueText(s string) bool {
	return c.EnqueueOutgoing(message.NewText(s))
}

// EnqueueBinary enqueues a binary message for sending.
func (c *Client) EnqueueBinary(b []byte) bool {
	return c.EnqueueOutgoing(message.NewBinary(b))
}

// EnqueueOutgoing hands a message to the transport's outgoing path. It
// reports false and raises an error notification when the session is not
// connected or the message exceeds the active send limit.
func (c *Client) EnqueueOutgoing(msg *message.Message) bool {
	var notes []func()

	c.mu.Lock()
	switch {
	case c.state != Connected || c.tr == nil:
		notes = c.recordErrorLocked(errors.New(errors.CodeNotConnected).
			WithDetail("state %s", c.state), notes)
	case msg.Len() > c.active.MaxSendBytes:
		notes = c.recordErrorLocked(errors.New(errors.CodeSendTooLarge).
			WithDetail("%d > %d bytes", msg.Len(), c.active.MaxSendBytes), notes)
	default:
		c.tr.AddOutgoingMessage(msg)
		c.mu.Unlock()
		return true
	}
	c.mu.Unlock()

	c.fire(notes)
	return false
}

// TryDequeueIncoming pops the oldest buffered inbound message.
func (c *Client) TryDequeueIncoming() (*message.Message, bool) {
	return c.incoming.tryDequeue()
}

// IncomingLen returns the number of buffered inbound messages.
func (c *Client) IncomingLen() int {
	return c.incoming.len()
}

// Update runs one reconciliation tick: consume the desired state, pump
// transport events, and schedule keepalives. Call it from exactly one
// goroutine, once per application tick.
func (c *Client) Update() {
	now := time.Now()
	var notes []func()

	c.mu.Lock()
	notes = c.reconcileLocked(notes)
	notes = c.pumpLocked(now, notes)
	notes = c.pingTickLocked(now, notes)
	c.mu.Unlock()

	c.fire(notes)
}

// Shutdown forces teardown without a close handshake, for process exit.
// Safe to call from any goroutine and at any state; repeat calls are
// no-ops.
func (c *Client) Shutdown() {
	var notes []func()

	c.mu.Lock()
	c.desired = desireNone
	if c.tr != nil {
		c.tr.Cancel()
		notes = c.finishTeardownLocked(DisconnectedByShutdown, notes)
	}
	c.mu.Unlock()

	c.fire(notes)
}

// reconcileLocked consumes the desired-state mailbox.
func (c *Client) reconcileLocked(notes []func()) []func() {
	desire := c.desired
	c.desired = desireNone

	switch desire {
	case desireConnect:
		return c.beginConnectLocked(notes)
	case desireDisconnect:
		return c.beginDisconnectLocked(notes)
	default:
		return notes
	}
}

// beginConnectLocked tears down any live transport, snapshots the config,
// and starts a new session.
func (c *Client) beginConnectLocked(notes []func()) []func() {
	// At most one transport instance is live at any time: a reconnect
	// forces teardown of the existing session first.
	if c.tr != nil {
		if c.state == Connecting || c.state == Connected {
			notes = c.setStateLocked(Disconnecting, notes)
		}
		c.tr.Cancel()
		notes = c.finishTeardownLocked(Disconnected, notes)
	}

	c.active = c.config.Clone()
	c.incoming.clear()
	c.errMsg = ""
	c.lastRTT = 0
	c.ping = newPingTracker(c.active)
	c.attemptID = uuid.NewString()

	ctx, span := c.tracer.Start(context.Background(), "wsession.connect",
		trace.WithAttributes(
			attribute.String("endpoint", c.active.Endpoint),
			attribute.String("attempt_id", c.attemptID),
		))
	c.span = span

	tr, err := transport.New(transport.Options{
		Endpoint:        c.active.Endpoint,
		Subprotocols:    c.active.Subprotocols,
		Headers:         c.active.Headers,
		MaxReceiveBytes: c.active.MaxReceiveBytes,
		Host:            c.active.Host,
		Logger:          c.logger.With("attempt_id", c.attemptID),
	})
	if err != nil {
		c.logger.Error("transport construction failed",
			"endpoint", c.active.Endpoint, "error", err)
		c.metrics.recordConnectFailure()
		notes = c.recordErrorLocked(err, notes)
		notes = c.setStateLocked(Invalid, notes)
		c.endSpanLocked(err)
		return notes
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	c.tr = tr
	c.sessionCancel = cancel

	c.metrics.recordConnect()
	notes = c.setStateLocked(Connecting, notes)

	go func() {
		// Connect blocks for the whole session; errors surface as
		// events drained by Update.
		tr.Connect(sessionCtx)
	}()

	return notes
}

// beginDisconnectLocked starts teardown of the current session. A desire to
// disconnect with no live transport is a no-op.
func (c *Client) beginDisconnectLocked(notes []func()) []func() {
	if c.tr == nil {
		return notes
	}

	switch c.state {
	case Connecting:
		// No established session to hand-shake with; abandon the
		// attempt directly.
		notes = c.setStateLocked(Disconnecting, notes)
		c.tr.Cancel()
		return c.finishTeardownLocked(Disconnected, notes)

	case Connected:
		notes = c.setStateLocked(Disconnecting, notes)
		tr := c.tr
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
			defer cancel()
			tr.Close(ctx)
		}()
		return notes

	default:
		return notes
	}
}

// pumpLocked drains the transport's event channel. The batch is snapshotted
// before handling so an observer cannot mutate the collection being walked.
func (c *Client) pumpLocked(now time.Time, notes []func()) []func() {
	if c.tr == nil {
		return notes
	}

	c.tr.ProcessMessages()

	var batch []transport.Event
drain:
	for {
		select {
		case ev := <-c.tr.Events():
			batch = append(batch, ev)
		default:
			break drain
		}
	}

	for _, ev := range batch {
		notes = c.handleEventLocked(ev, now, notes)
	}
	return notes
}

// handleEventLocked translates one transport event into state transitions
// and notifications.
func (c *Client) handleEventLocked(ev transport.Event, now time.Time, notes []func()) []func() {
	switch ev.Kind {
	case transport.EventOpened:
		if c.state != Connecting {
			return notes
		}
		notes = c.setStateLocked(Connected, notes)
		if c.ping != nil {
			c.ping.reset(now)
		}
		c.endSpanLocked(nil)

	case transport.EventMessageSent:
		c.metrics.recordSent(ev.Message.Len())
		if c.ping != nil && c.ping.onSent(ev.Message, now) {
			c.metrics.recordPingSent()
			if cb := c.onPingSent; cb != nil {
				notes = append(notes, func() { cb(now) })
			}
			return notes
		}
		if cb := c.onMessageSent; cb != nil {
			msg := ev.Message
			notes = append(notes, func() { cb(msg) })
		}

	case transport.EventMessageReceived:
		c.metrics.recordReceived(ev.Message.Len())
		if c.ping != nil {
			if rtt, ok := c.ping.onReceived(ev.Message, now); ok {
				c.lastRTT = rtt
				c.metrics.recordPongRTT(rtt)
				c.debugLocked("pong received", "rtt", rtt)
				if cb := c.onPongReceived; cb != nil {
					notes = append(notes, func() { cb(now) })
				}
				return notes
			}
		}
		c.incoming.enqueue(ev.Message)
		if cb := c.onMessageReceived; cb != nil {
			msg := ev.Message
			notes = append(notes, func() { cb(msg) })
		}

	case transport.EventError:
		// Errors do not transition state by themselves; only Closed or
		// an explicit disconnect does.
		notes = c.recordErrorLocked(ev.Err, notes)

	case transport.EventClosed:
		if c.state == Connecting || c.state == Connected {
			notes = c.setStateLocked(Disconnecting, notes)
		}
		if c.state == Disconnecting {
			notes = c.finishTeardownLocked(Disconnected, notes)
		}
	}
	return notes
}

// pingTickLocked schedules the next keepalive when one is due.
func (c *Client) pingTickLocked(now time.Time, notes []func()) []func() {
	if c.state != Connected || c.ping == nil || c.tr == nil {
		return notes
	}
	if msg := c.ping.tick(now); msg != nil {
		c.debugLocked("queueing ping")
		c.tr.AddOutgoingMessage(msg)
	}
	return notes
}

// finishTeardownLocked discards the spent transport and moves to a terminal
// state. The queues are cleared after the state-change notification so
// listeners can still inspect the final buffered messages.
func (c *Client) finishTeardownLocked(final ConnectionState, notes []func()) []func() {
	tr := c.tr
	cancel := c.sessionCancel
	c.tr = nil
	c.sessionCancel = nil

	c.endSpanLocked(nil)
	notes = c.setStateLocked(final, notes)

	notes = append(notes, func() {
		c.incoming.clear()
		if cancel != nil {
			cancel()
		}
		if tr != nil {
			tr.Cancel()
		}
	})
	return notes
}

// setStateLocked transitions the actual state and schedules the
// notification.
func (c *Client) setStateLocked(next ConnectionState, notes []func()) []func() {
	if c.state == next {
		return notes
	}
	old := c.state
	c.state = next

	c.logger.Info("state changed", "from", old, "to", next)
	c.metrics.recordState(next)

	if cb := c.onStateChanged; cb != nil {
		notes = append(notes, func() { cb(old, next) })
	}
	return notes
}

// recordErrorLocked overwrites the last error text and schedules the error
// notification.
func (c *Client) recordErrorLocked(err error, notes []func()) []func() {
	text := err.Error()
	c.errMsg = text

	c.logger.Error("session error", "error", err)
	c.metrics.recordError(string(errors.CategoryOf(err)))

	if cb := c.onErrorReceived; cb != nil {
		notes = append(notes, func() { cb(text) })
	}
	return notes
}

// endSpanLocked finishes the current connect span, if one is open.
func (c *Client) endSpanLocked(err error) {
	if c.span == nil {
		return
	}
	if err != nil {
		c.span.RecordError(err)
		c.span.SetStatus(codes.Error, err.Error())
	} else {
		c.span.SetStatus(codes.Ok, "")
	}
	c.span.End()
	c.span = nil
}

// debugLocked logs at debug level when the active config asks for it.
func (c *Client) debugLocked(msg string, args ...any) {
	if c.active != nil && c.active.DebugLogging {
		c.logger.Debug(msg, args...)
	}
}

// fire invokes scheduled notifications outside the client lock.
func (c *Client) fire(notes []func()) {
	for _, fn := range notes {
		fn()
	}
}
