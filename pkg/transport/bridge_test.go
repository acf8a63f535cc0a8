package transport

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	serrors "github.com/vango-dev/wsession/internal/errors"
	"github.com/vango-dev/wsession/pkg/message"
)

// stubHost records bridge-to-host calls for inspection.
type stubHost struct {
	mu      sync.Mutex
	sink    EventSink
	openErr error

	opened   bool
	sent     []string
	closes   []int
	aborts   int
	sendErr  error
	protocol []string
}

func (h *stubHost) Open(endpoint string, subprotocols []string, sink EventSink) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.openErr != nil {
		return h.openErr
	}
	h.sink = sink
	h.opened = true
	h.protocol = subprotocols
	return nil
}

func (h *stubHost) Send(data []byte, binary bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sendErr != nil {
		return h.sendErr
	}
	h.sent = append(h.sent, string(data))
	return nil
}

func (h *stubHost) Close(code int, reason string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closes = append(h.closes, code)
	return nil
}

func (h *stubHost) Abort() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.aborts++
}

func (h *stubHost) abortCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.aborts
}

func bridgeOpts(host Host) Options {
	return Options{
		Endpoint:        "ws://test/ws",
		MaxReceiveBytes: 64,
		Host:            host,
	}
}

// drained collects everything currently sitting in the event channel.
func drained(tr Transport) []Event {
	var evs []Event
	for {
		select {
		case ev := <-tr.Events():
			evs = append(evs, ev)
		default:
			return evs
		}
	}
}

// TestBridgeBuffersUntilPump checks that host callbacks never surface
// between pumps: they are held until ProcessMessages runs.
func TestBridgeBuffersUntilPump(t *testing.T) {
	host := &stubHost{}
	b := NewBridge(bridgeOpts(host))

	b.HandleOpened()
	b.HandleMessage([]byte("early"), false)

	if evs := drained(b); len(evs) != 0 {
		t.Fatalf("%d events surfaced before the pump", len(evs))
	}

	b.ProcessMessages()

	evs := drained(b)
	if len(evs) != 2 {
		t.Fatalf("got %d events, want 2", len(evs))
	}
	if evs[0].Kind != EventOpened {
		t.Errorf("first event = %s, want opened", evs[0].Kind)
	}
	if evs[1].Kind != EventMessageReceived || evs[1].Message.Text() != "early" {
		t.Errorf("second event = %s %v", evs[1].Kind, evs[1].Message)
	}
}

// TestBridgeOversizedMessage checks that a message over the receive limit is
// replaced by an error event and never delivered.
func TestBridgeOversizedMessage(t *testing.T) {
	host := &stubHost{}
	b := NewBridge(bridgeOpts(host))

	b.HandleOpened()
	b.HandleMessage(make([]byte, 65), true)
	b.HandleMessage([]byte("fits"), false)
	b.ProcessMessages()

	evs := drained(b)
	if len(evs) != 3 {
		t.Fatalf("got %d events, want 3", len(evs))
	}
	if evs[1].Kind != EventError || !stderrors.Is(evs[1].Err, serrors.New(serrors.CodeReceiveTooLarge)) {
		t.Errorf("oversize event = %s %v", evs[1].Kind, evs[1].Err)
	}
	if evs[2].Kind != EventMessageReceived || evs[2].Message.Text() != "fits" {
		t.Errorf("in-limit message lost: %s", evs[2].Kind)
	}
}

// TestBridgeBurstCarriesOver checks that a callback batch larger than the
// consumer's event buffer is delivered across ticks, in order, with nothing
// dropped; the closing event at the end of the burst still arrives.
func TestBridgeBurstCarriesOver(t *testing.T) {
	host := &stubHost{}
	b := NewBridge(bridgeOpts(host))

	b.HandleOpened()
	for i := 0; i < 300; i++ {
		b.HandleMessage([]byte(fmt.Sprintf("m%d", i)), false)
	}
	b.HandleClosed(1000)

	var evs []Event
	for tick := 0; tick < 4 && len(evs) < 302; tick++ {
		b.ProcessMessages()
		evs = append(evs, drained(b)...)
	}

	if len(evs) != 302 {
		t.Fatalf("delivered %d events, want 302", len(evs))
	}
	if evs[0].Kind != EventOpened {
		t.Errorf("first event = %s, want opened", evs[0].Kind)
	}
	for i := 0; i < 300; i++ {
		ev := evs[i+1]
		if ev.Kind != EventMessageReceived {
			t.Fatalf("event %d = %s, want message_received", i+1, ev.Kind)
		}
		if want := fmt.Sprintf("m%d", i); ev.Message.Text() != want {
			t.Fatalf("event %d = %q, want %q", i+1, ev.Message.Text(), want)
		}
	}
	last := evs[301]
	if last.Kind != EventClosed || last.CloseCode != 1000 {
		t.Errorf("last event = %s code=%d, want closed code=1000", last.Kind, last.CloseCode)
	}
}

// TestBridgeSendPump checks that sends wait for the session to open, then
// flow through the host with a sent event per message.
func TestBridgeSendPump(t *testing.T) {
	host := &stubHost{}
	b := NewBridge(bridgeOpts(host))

	msg := message.NewText("queued")
	b.AddOutgoingMessage(msg)
	b.ProcessMessages()
	if len(host.sent) != 0 {
		t.Fatal("send pumped before the session opened")
	}

	b.HandleOpened()
	b.ProcessMessages()

	if len(host.sent) != 1 || host.sent[0] != "queued" {
		t.Fatalf("host.sent = %v", host.sent)
	}

	evs := drained(b)
	var sentEv *Event
	for i := range evs {
		if evs[i].Kind == EventMessageSent {
			sentEv = &evs[i]
		}
	}
	if sentEv == nil {
		t.Fatal("no message_sent event")
	}
	if sentEv.Message != msg {
		t.Error("sent event does not carry the enqueued instance")
	}
}

func TestBridgeSendFailure(t *testing.T) {
	host := &stubHost{sendErr: stderrors.New("host send broke")}
	b := NewBridge(bridgeOpts(host))

	b.HandleOpened()
	b.AddOutgoingMessage(message.NewText("doomed"))
	b.ProcessMessages()

	evs := drained(b)
	found := false
	for _, ev := range evs {
		if ev.Kind == EventError && strings.Contains(ev.Err.Error(), "host send broke") {
			found = true
		}
		if ev.Kind == EventMessageSent {
			t.Error("failed send reported as sent")
		}
	}
	if !found {
		t.Error("send failure produced no error event")
	}
}

// TestBridgeConnectOpenError checks that a failing Open surfaces as an error
// plus a closed event, and Connect does not block.
func TestBridgeConnectOpenError(t *testing.T) {
	host := &stubHost{openErr: stderrors.New("refused")}
	b := NewBridge(bridgeOpts(host))

	err := b.Connect(context.Background())
	if err == nil {
		t.Fatal("Connect succeeded against a refusing host")
	}

	b.ProcessMessages()
	evs := drained(b)
	if len(evs) != 2 || evs[0].Kind != EventError || evs[1].Kind != EventClosed {
		t.Errorf("events = %v, want error then closed", evs)
	}
}

// TestBridgeConnectLifetime checks that Connect blocks for the whole session
// and returns when the host reports closure.
func TestBridgeConnectLifetime(t *testing.T) {
	host := &stubHost{}
	b := NewBridge(bridgeOpts(host))

	ret := make(chan error, 1)
	go func() { ret <- b.Connect(context.Background()) }()

	select {
	case err := <-ret:
		t.Fatalf("Connect returned early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	b.HandleClosed(1000)

	select {
	case err := <-ret:
		if err != nil {
			t.Errorf("Connect = %v, want nil after clean close", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Connect did not return after close")
	}
}

// TestBridgeContextCancel checks the cooperative shutdown path: a cancelled
// context still offers the host a close handshake.
func TestBridgeContextCancel(t *testing.T) {
	host := &stubHost{}
	b := NewBridge(bridgeOpts(host))

	ctx, cancel := context.WithCancel(context.Background())
	ret := make(chan error, 1)
	go func() { ret <- b.Connect(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-ret:
		if err != context.Canceled {
			t.Errorf("Connect = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Connect did not return on context cancel")
	}

	host.mu.Lock()
	closes := append([]int(nil), host.closes...)
	host.mu.Unlock()
	if len(closes) != 1 || closes[0] != 1000 {
		t.Errorf("host closes = %v, want one normal close", closes)
	}
}

// TestBridgeCancelIdempotent checks that repeated cancels abort the host
// exactly once and that cancel after a host-side close aborts not at all.
func TestBridgeCancelIdempotent(t *testing.T) {
	host := &stubHost{}
	b := NewBridge(bridgeOpts(host))

	b.Cancel()
	b.Cancel()
	if got := host.abortCount(); got != 1 {
		t.Errorf("aborts = %d, want 1", got)
	}

	host2 := &stubHost{}
	b2 := NewBridge(bridgeOpts(host2))
	b2.HandleClosed(1000)
	b2.Cancel()
	if got := host2.abortCount(); got != 0 {
		t.Errorf("aborts after host close = %d, want 0", got)
	}
}
