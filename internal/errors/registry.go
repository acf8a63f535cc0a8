package errors

// Registered error codes.
const (
	CodeBadScheme       = "W001"
	CodeMissingEndpoint = "W002"
	CodeDialFailed      = "W010"
	CodeReadFailed      = "W011"
	CodeWriteFailed     = "W012"
	CodeCloseFailed     = "W013"
	CodeNotConnected    = "W020"
	CodeSendTooLarge    = "W030"
	CodeReceiveTooLarge = "W031"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// Configuration errors (W001-W009)

	CodeBadScheme: {
		Category: CategoryConfig,
		Message:  "Unsupported endpoint scheme",
	},
	CodeMissingEndpoint: {
		Category: CategoryConfig,
		Message:  "Endpoint not configured",
	},

	// Transport errors (W010-W019)

	CodeDialFailed: {
		Category: CategoryTransport,
		Message:  "WebSocket dial failed",
	},
	CodeReadFailed: {
		Category: CategoryTransport,
		Message:  "WebSocket read failed",
	},
	CodeWriteFailed: {
		Category: CategoryTransport,
		Message:  "WebSocket write failed",
	},
	CodeCloseFailed: {
		Category: CategoryTransport,
		Message:  "WebSocket close handshake failed",
	},

	// State errors (W020-W029)

	CodeNotConnected: {
		Category: CategoryState,
		Message:  "Operation requires a connected session",
	},

	// Size errors (W030-W039)

	CodeSendTooLarge: {
		Category: CategorySize,
		Message:  "Outgoing message exceeds send limit",
	},
	CodeReceiveTooLarge: {
		Category: CategorySize,
		Message:  "Incoming message exceeds receive limit",
	},
}
