package realtime

import "context"

// Conn is the capability the registry and dispatcher need from a live
// transport connection. Implementations own the underlying socket; the
// registry only borrows them.
type Conn interface {
	// ID is unique for the lifetime of the process.
	ID() string
	// Push hands one named event to the connection. It must not block on a
	// slow peer for longer than the transport's own write budget.
	Push(ctx context.Context, event string, payload any) error
}
