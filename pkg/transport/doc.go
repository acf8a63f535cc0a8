// Package transport abstracts the WebSocket I/O layer behind a single
// interface with two backends.
//
// The native backend speaks the wire protocol itself through
// gorilla/websocket, running its own blocking receive loop and a serialized
// write pump. The bridge backend delegates I/O to an external host that
// delivers results through callbacks at arbitrary times; those callbacks are
// buffered and only surfaced when the consumer pumps the transport.
//
// Either way, the consumer sees the same thing: a channel of Events
// (Opened, MessageSent, MessageReceived, Error, Closed) that it drains on
// its own goroutine, never a callback firing into its code. A Transport is
// single-use: after Closed, or an Error that ends the session, a new
// instance must be constructed.
package transport
