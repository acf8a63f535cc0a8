package transport

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/vango-dev/wsession/internal/errors"
	"github.com/vango-dev/wsession/pkg/message"
)

// EventSink receives host callbacks. The Bridge implements it; hosts may
// invoke it from any goroutine and at any time, including re-entrantly
// from within Send or Close.
type EventSink interface {
	HandleOpened()
	HandleMessage(data []byte, binary bool)
	HandleError(text string)
	HandleClosed(code int)
}

// Host is the external side of the bridge backend: an environment-provided
// WebSocket implementation the bridge marshals calls to. The host reports
// results by invoking the sink handed to Open.
type Host interface {
	// Open starts the connection. Results arrive via the sink.
	Open(endpoint string, subprotocols []string, sink EventSink) error

	// Send writes one message. The bridge serializes calls.
	Send(data []byte, binary bool) error

	// Close starts the graceful close handshake.
	Close(code int, reason string) error

	// Abort drops the connection without a handshake.
	Abort()
}

// Bridge is the host-callback backend. Host callbacks are buffered under a
// lock and only turned into Events during ProcessMessages, so the consumer
// is never re-entered at arbitrary points.
type Bridge struct {
	opts   Options
	host   Host
	logger *slog.Logger

	events chan Event
	sendq  *sendQueue

	mu      sync.Mutex
	pending []Event
	opened  bool
	closed  bool

	// done is closed when the session is over, releasing Connect.
	done     chan struct{}
	doneOnce sync.Once
}

// NewBridge creates a bridge transport for one session.
func NewBridge(opts Options) *Bridge {
	return &Bridge{
		opts:   opts,
		host:   opts.Host,
		logger: opts.logger(),
		events: make(chan Event, eventBuffer),
		sendq:  newSendQueue(),
		done:   make(chan struct{}),
	}
}

// Events returns the event channel.
func (t *Bridge) Events() <-chan Event {
	return t.events
}

// Connect opens the connection through the host and blocks until the
// session ends. Custom headers cannot cross the bridge; they are logged
// and dropped rather than treated as an error.
func (t *Bridge) Connect(ctx context.Context) error {
	if len(t.opts.Headers) > 0 {
		t.logger.Warn("bridge backend cannot send custom headers, dropping them",
			"count", len(t.opts.Headers))
	}

	if err := t.host.Open(t.opts.Endpoint, t.opts.Subprotocols, t); err != nil {
		serr := errors.New(errors.CodeDialFailed).Wrap(err)
		t.buffer(Event{Kind: EventError, Err: serr})
		t.buffer(Event{Kind: EventClosed, CloseCode: websocket.CloseAbnormalClosure})
		t.finish()
		return serr
	}

	select {
	case <-ctx.Done():
		// Cooperative shutdown: still offer the handshake.
		t.host.Close(websocket.CloseNormalClosure, "shutdown")
		select {
		case <-t.done:
		default:
			t.finish()
		}
		return ctx.Err()
	case <-t.done:
		return nil
	}
}

// AddOutgoingMessage enqueues a message; it is written on the next pump.
func (t *Bridge) AddOutgoingMessage(msg *message.Message) {
	t.sendq.push(msg)
}

// ProcessMessages drains buffered host callbacks into the event channel,
// then pumps queued sends through the host. The pending batch is
// snapshotted before delivery so a callback arriving mid-pump lands in the
// next batch instead of mutating the one being walked. When the consumer's
// buffer fills mid-batch, the remainder is carried over to the next tick;
// no event is ever dropped.
func (t *Bridge) ProcessMessages() {
	t.mu.Lock()
	batch := t.pending
	t.pending = nil
	opened, closed := t.opened, t.closed
	t.mu.Unlock()

	for i, ev := range batch {
		if !t.emit(ev) {
			t.requeue(batch[i:])
			return
		}
	}

	if !opened || closed {
		return
	}

	for {
		msg, ok := t.sendq.pop()
		if !ok {
			return
		}
		if err := t.host.Send(msg.Bytes(), msg.Kind() == message.Binary); err != nil {
			serr := errors.New(errors.CodeWriteFailed).Wrap(err)
			if !t.emit(Event{Kind: EventError, Err: serr}) {
				t.requeue([]Event{{Kind: EventError, Err: serr}})
			}
			return
		}
		if !t.emit(Event{Kind: EventMessageSent, Message: msg}) {
			t.requeue([]Event{{Kind: EventMessageSent, Message: msg}})
			return
		}
	}
}

// Close asks the host for a graceful close and waits for the session to
// end or ctx to expire.
func (t *Bridge) Close(ctx context.Context) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return nil
	}

	if err := t.host.Close(websocket.CloseNormalClosure, ""); err != nil {
		t.Cancel()
		return errors.New(errors.CodeCloseFailed).Wrap(err)
	}

	select {
	case <-t.done:
	case <-ctx.Done():
	}
	return nil
}

// Cancel aborts through the host without a handshake. Idempotent.
func (t *Bridge) Cancel() {
	t.mu.Lock()
	alreadyClosed := t.closed
	t.closed = true
	t.mu.Unlock()

	if !alreadyClosed {
		t.host.Abort()
	}
	t.finish()
}

// HandleOpened is invoked by the host once the connection is established.
func (t *Bridge) HandleOpened() {
	t.mu.Lock()
	t.opened = true
	t.pending = append(t.pending, Event{Kind: EventOpened})
	t.mu.Unlock()
}

// HandleMessage is invoked by the host for each inbound message. Oversized
// messages are dropped with an error event.
func (t *Bridge) HandleMessage(data []byte, binary bool) {
	if len(data) > t.opts.MaxReceiveBytes {
		t.mu.Lock()
		t.pending = append(t.pending, Event{
			Kind: EventError,
			Err: errors.New(errors.CodeReceiveTooLarge).
				WithDetail("limit %d bytes", t.opts.MaxReceiveBytes),
		})
		t.mu.Unlock()
		return
	}

	var msg *message.Message
	if binary {
		msg = message.NewBinary(data)
	} else {
		msg = message.NewText(string(data))
	}

	t.mu.Lock()
	t.pending = append(t.pending, Event{Kind: EventMessageReceived, Message: msg})
	t.mu.Unlock()
}

// HandleError is invoked by the host when the connection fails.
func (t *Bridge) HandleError(text string) {
	t.mu.Lock()
	t.pending = append(t.pending, Event{
		Kind: EventError,
		Err:  errors.Newf(errors.CategoryTransport, "%s", text),
	})
	t.mu.Unlock()
}

// HandleClosed is invoked by the host when the connection is over.
func (t *Bridge) HandleClosed(code int) {
	t.mu.Lock()
	t.closed = true
	t.pending = append(t.pending, Event{Kind: EventClosed, CloseCode: code})
	t.mu.Unlock()
	t.finish()
}

// buffer appends an event to the pending batch.
func (t *Bridge) buffer(ev Event) {
	t.mu.Lock()
	t.pending = append(t.pending, ev)
	t.mu.Unlock()
}

// emit offers an event to the consumer without blocking the pump tick. It
// reports false when the buffer is full so the caller can carry the event
// over instead of losing it.
func (t *Bridge) emit(ev Event) bool {
	select {
	case t.events <- ev:
		return true
	default:
		return false
	}
}

// requeue puts undelivered events back at the front of the pending batch,
// preserving their order ahead of callbacks that arrived in the meantime.
func (t *Bridge) requeue(evs []Event) {
	t.mu.Lock()
	t.pending = append(append([]Event(nil), evs...), t.pending...)
	t.mu.Unlock()
}

func (t *Bridge) finish() {
	t.doneOnce.Do(func() { close(t.done) })
}
