package client

import "fmt"

// ConnectionState is the actual, observable connection status. Only the
// Client writes it, and only from the reconciliation tick.
type ConnectionState int

const (
	// Invalid is the initial state, re-entered when a connect attempt
	// fails before any transport exists.
	Invalid ConnectionState = iota

	// Connecting means a transport was built and its connect is in flight.
	Connecting

	// Connected means the session is established.
	Connected

	// Disconnecting means teardown of the current transport has started.
	Disconnecting

	// Disconnected is the terminal state of a completed session. The
	// Client can connect again from here.
	Disconnected

	// DisconnectedByShutdown is the terminal state after a forced
	// teardown at process exit, skipping the close handshake.
	DisconnectedByShutdown
)

// String returns the state name for logging.
func (s ConnectionState) String() string {
	switch s {
	case Invalid:
		return "invalid"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnecting:
		return "disconnecting"
	case Disconnected:
		return "disconnected"
	case DisconnectedByShutdown:
		return "disconnected_by_shutdown"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// desiredState is the caller's requested target. It is a mailbox, not a
// queue: the latest write wins and the reconciliation tick consumes it back
// to desireNone.
type desiredState int

const (
	desireNone desiredState = iota
	desireConnect
	desireDisconnect
)
