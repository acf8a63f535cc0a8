package transport

import (
	"net/url"

	"github.com/vango-dev/wsession/internal/errors"
)

// New selects a backend for the session described by opts: the bridge
// backend when a Host is provided, otherwise the native backend for ws://
// and wss:// endpoints. Construction errors are synchronous; no I/O
// happens here.
func New(opts Options) (Transport, error) {
	if opts.Endpoint == "" {
		return nil, errors.New(errors.CodeMissingEndpoint)
	}

	if opts.Host != nil {
		return NewBridge(opts), nil
	}

	u, err := url.Parse(opts.Endpoint)
	if err != nil {
		return nil, errors.New(errors.CodeBadScheme).Wrap(err)
	}
	switch u.Scheme {
	case "ws", "wss":
		return NewWebSocket(opts), nil
	default:
		return nil, errors.New(errors.CodeBadScheme).
			WithDetail("scheme %q, want ws or wss", u.Scheme)
	}
}
