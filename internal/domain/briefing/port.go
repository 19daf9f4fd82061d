package briefing

import "context"

// Client generates an operator-facing procurement briefing from an analysis
// report (JSON string in, JSON string out).
type Client interface {
	Brief(ctx context.Context, reportJSON string) (string, error)
}
