package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/vango-dev/wsession/pkg/message"
)

// eventBuffer is the capacity of a transport's event channel. If the
// consumer stops draining, the receive loop blocks once the buffer fills,
// which backpressures the peer instead of growing memory.
const eventBuffer = 256

// EventKind identifies a transport event.
type EventKind int

const (
	// EventOpened fires once when the session is established.
	EventOpened EventKind = iota

	// EventMessageSent fires after a queued outgoing message was written.
	// The event carries the same Message pointer that was enqueued.
	EventMessageSent

	// EventMessageReceived fires for each inbound message within the
	// configured size limit.
	EventMessageReceived

	// EventError reports a failure. The session may or may not survive;
	// EventClosed is the authoritative end-of-session signal.
	EventError

	// EventClosed fires once when the session is over. CloseCode carries
	// the WebSocket close code when one is known.
	EventClosed
)

// String returns the event kind name for logging.
func (k EventKind) String() string {
	switch k {
	case EventOpened:
		return "opened"
	case EventMessageSent:
		return "message_sent"
	case EventMessageReceived:
		return "message_received"
	case EventError:
		return "error"
	case EventClosed:
		return "closed"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is a single occurrence on a transport, delivered through Events().
type Event struct {
	Kind      EventKind
	Message   *message.Message
	Err       error
	CloseCode int
}

// Transport is the polymorphic I/O contract consumed by the client.
//
// A Transport is constructed for exactly one session. After EventClosed, or
// after Connect returns, the instance is spent and must be discarded.
type Transport interface {
	// Connect establishes the session and blocks until it ends or fails;
	// for the native backend it is the receive loop. Run it on its own
	// goroutine, concurrently with the consumer's tick.
	Connect(ctx context.Context) error

	// AddOutgoingMessage enqueues a message for sending. It never blocks;
	// sends are serialized behind any in-flight write.
	AddOutgoingMessage(msg *message.Message)

	// ProcessMessages pumps buffered work: externally delivered callback
	// results become Events, and queued sends are written. The native
	// backend performs both continuously on its own goroutines, so this
	// is a no-op there.
	ProcessMessages()

	// Close performs the graceful close handshake.
	Close(ctx context.Context) error

	// Cancel abandons the session immediately, skipping the handshake.
	// Safe to call at any time, including after Close.
	Cancel()

	// Events returns the channel the consumer drains once per tick.
	Events() <-chan Event
}

// Options carries the per-session settings a backend needs. They are taken
// from the client's active config snapshot at construction time.
type Options struct {
	// Endpoint is the ws:// or wss:// URL to connect to.
	Endpoint string

	// Subprotocols are offered during the handshake, in order.
	Subprotocols []string

	// Headers are sent with the handshake request. The bridge backend
	// cannot forward them and logs a warning instead.
	Headers http.Header

	// MaxReceiveBytes drops larger inbound messages with an EventError.
	MaxReceiveBytes int

	// Host, when set, selects the bridge backend.
	Host Host

	// Logger receives transport-level logs. Defaults to slog.Default().
	Logger *slog.Logger
}

func (o *Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default().With("component", "transport")
}

// sendQueue is an unbounded FIFO of outgoing messages with a wake signal
// for the single writer that drains it.
type sendQueue struct {
	mu   sync.Mutex
	msgs []*message.Message
	wake chan struct{}
}

func newSendQueue() *sendQueue {
	return &sendQueue{wake: make(chan struct{}, 1)}
}

func (q *sendQueue) push(msg *message.Message) {
	q.mu.Lock()
	q.msgs = append(q.msgs, msg)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *sendQueue) pop() (*message.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.msgs) == 0 {
		return nil, false
	}
	msg := q.msgs[0]
	q.msgs = q.msgs[1:]
	return msg, true
}
