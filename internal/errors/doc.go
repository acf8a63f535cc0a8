// Package errors provides structured errors for the session manager.
//
// Errors carry a category and an optional registered code so callers can
// distinguish failure classes without string matching:
//   - config: bad endpoint or option values, caught before any I/O
//   - transport: socket or bridge failures surfaced by a backend
//   - state: an operation attempted in the wrong connection state
//   - size: a message over the configured send or receive limit
//   - protocol: malformed traffic from the peer
//
// # Usage
//
//	err := errors.New(errors.CodeBadScheme).
//	    WithDetail("endpoint must use the ws or wss scheme")
//
// Registered codes map to a category and a short message; Newf builds an
// ad-hoc error when no code applies. Errors support errors.Is/As via Unwrap.
package errors
