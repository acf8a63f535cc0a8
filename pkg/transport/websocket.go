package transport

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vango-dev/wsession/internal/errors"
	"github.com/vango-dev/wsession/pkg/message"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
	closeGracePeriod = 5 * time.Second
)

// WebSocket is the native backend. It dials with gorilla/websocket, runs
// the receive loop inside Connect, and serializes sends through a write
// pump goroutine.
type WebSocket struct {
	opts   Options
	logger *slog.Logger

	events chan Event
	sendq  *sendQueue

	mu   sync.Mutex
	conn *websocket.Conn

	// done is closed when the receive loop has exited.
	done chan struct{}

	// cancelled is closed by Cancel; emits and pumps abort on it.
	cancelled  chan struct{}
	cancelOnce sync.Once
}

// NewWebSocket creates a native transport for one session.
func NewWebSocket(opts Options) *WebSocket {
	return &WebSocket{
		opts:      opts,
		logger:    opts.logger(),
		events:    make(chan Event, eventBuffer),
		sendq:     newSendQueue(),
		done:      make(chan struct{}),
		cancelled: make(chan struct{}),
	}
}

// Events returns the event channel.
func (t *WebSocket) Events() <-chan Event {
	return t.events
}

// AddOutgoingMessage enqueues a message behind any in-flight send.
func (t *WebSocket) AddOutgoingMessage(msg *message.Message) {
	t.sendq.push(msg)
}

// ProcessMessages is a no-op: the read loop and write pump deliver events
// continuously on their own goroutines.
func (t *WebSocket) ProcessMessages() {}

// Connect dials the endpoint and runs the receive loop until the session
// ends. The returned error reflects why the session ended; the same
// information is delivered as events.
func (t *WebSocket) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
		Subprotocols:     t.opts.Subprotocols,
	}

	conn, _, err := dialer.DialContext(ctx, t.opts.Endpoint, t.opts.Headers)
	if err != nil {
		serr := errors.New(errors.CodeDialFailed).Wrap(err)
		t.emit(Event{Kind: EventError, Err: serr})
		t.emit(Event{Kind: EventClosed, CloseCode: websocket.CloseAbnormalClosure})
		close(t.done)
		return serr
	}

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()

	// Cancel may have raced the dial.
	select {
	case <-t.cancelled:
		conn.Close()
		close(t.done)
		return nil
	default:
	}

	t.emit(Event{Kind: EventOpened})

	go t.writePump(conn)
	go t.watchContext(ctx, conn)

	err = t.readLoop(conn)
	close(t.done)
	return err
}

// watchContext closes the session cooperatively when ctx is cancelled: it
// still offers the peer a close frame before dropping the connection.
func (t *WebSocket) watchContext(ctx context.Context, conn *websocket.Conn) {
	select {
	case <-ctx.Done():
		deadline := time.Now().Add(time.Second)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		conn.Close()
	case <-t.done:
	case <-t.cancelled:
	}
}

// readLoop receives messages until the connection ends. Oversized messages
// are drained and discarded with an error event; the connection survives.
func (t *WebSocket) readLoop(conn *websocket.Conn) error {
	for {
		msgType, r, err := conn.NextReader()
		if err != nil {
			code := websocket.CloseAbnormalClosure
			if ce, ok := err.(*websocket.CloseError); ok {
				code = ce.Code
			}
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				serr := errors.New(errors.CodeReadFailed).Wrap(err)
				t.emit(Event{Kind: EventError, Err: serr})
			}
			t.emit(Event{Kind: EventClosed, CloseCode: code})
			return nil
		}

		limit := int64(t.opts.MaxReceiveBytes)
		data, err := io.ReadAll(io.LimitReader(r, limit+1))
		if err != nil {
			serr := errors.New(errors.CodeReadFailed).Wrap(err)
			t.emit(Event{Kind: EventError, Err: serr})
			t.emit(Event{Kind: EventClosed, CloseCode: websocket.CloseAbnormalClosure})
			return serr
		}
		if int64(len(data)) > limit {
			// Drain the remainder so the connection stays usable.
			io.Copy(io.Discard, r)
			t.emit(Event{
				Kind: EventError,
				Err: errors.New(errors.CodeReceiveTooLarge).
					WithDetail("limit %d bytes", t.opts.MaxReceiveBytes),
			})
			continue
		}

		var msg *message.Message
		if msgType == websocket.TextMessage {
			msg = message.NewText(string(data))
		} else {
			msg = message.NewBinary(data)
		}
		t.emit(Event{Kind: EventMessageReceived, Message: msg})
	}
}

// writePump drains the send queue, one write in flight at a time. Each
// successful write emits EventMessageSent carrying the enqueued pointer.
func (t *WebSocket) writePump(conn *websocket.Conn) {
	for {
		select {
		case <-t.done:
			return
		case <-t.cancelled:
			return
		case <-t.sendq.wake:
		}

		for {
			msg, ok := t.sendq.pop()
			if !ok {
				break
			}

			msgType := websocket.BinaryMessage
			if msg.Kind() == message.Text {
				msgType = websocket.TextMessage
			}

			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(msgType, msg.Bytes()); err != nil {
				serr := errors.New(errors.CodeWriteFailed).Wrap(err)
				t.emit(Event{Kind: EventError, Err: serr})
				// A write timeout poisons only the write side; close the
				// conn so the read loop unwinds and emits Closed.
				conn.Close()
				return
			}
			t.emit(Event{Kind: EventMessageSent, Message: msg})
		}
	}
}

// Close performs the graceful close handshake: send a close frame, then
// wait for the peer's close (observed by the read loop) or ctx expiry.
func (t *WebSocket) Close(ctx context.Context) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return nil
	}

	deadline := time.Now().Add(closeGracePeriod)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}

	err := conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	if err != nil && err != websocket.ErrCloseSent {
		conn.Close()
		return errors.New(errors.CodeCloseFailed).Wrap(err)
	}

	select {
	case <-t.done:
	case <-ctx.Done():
	case <-time.After(closeGracePeriod):
	}

	conn.Close()
	return nil
}

// Cancel abandons the session without a handshake. Idempotent.
func (t *WebSocket) Cancel() {
	t.cancelOnce.Do(func() {
		close(t.cancelled)
		t.mu.Lock()
		conn := t.conn
		t.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
	})
}

// emit delivers an event unless the transport was cancelled.
func (t *WebSocket) emit(ev Event) {
	select {
	case t.events <- ev:
	case <-t.cancelled:
	}
}
