// Package message provides the immutable message envelope exchanged over a
// WebSocket session.
//
// A Message is constructed from either text or binary data and converts to
// the other representation lazily, caching the result. Equality is value
// based over (kind, payload), which the client uses to match ping echoes
// coming back from the network.
package message
