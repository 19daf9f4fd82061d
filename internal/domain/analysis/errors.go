package analysis

import "errors"

// Error taxonomy for the remote analysis boundary. Callers classify with
// errors.Is; concrete causes are wrapped alongside with fmt.Errorf("%w").
var (
	// ErrInvalidInput: caller passed a null/malformed product or store id.
	// Fails fast, no network call.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTransport: network unreachable, connection reset, DNS failure.
	ErrTransport = errors.New("analysis service unreachable")

	// ErrTimeout: request exceeded the transport deadline.
	ErrTimeout = errors.New("analysis request timed out")

	// ErrProtocol: a response arrived but is missing required fields
	// (e.g. no recommendation). Server-logic fault, not a network fault.
	ErrProtocol = errors.New("invalid analysis response")
)

// FallbackMessage maps a boundary error to the operator-facing narrative of
// the synthetic Error result.
func FallbackMessage(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "Analysis timed out. The server may be cold-starting; please retry."
	case errors.Is(err, ErrProtocol):
		return "The analysis service returned an invalid response."
	default:
		return "Could not retrieve analysis from server."
	}
}
