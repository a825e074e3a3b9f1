// Package lifecycle starts and stops the per-session sinks (tracing, metrics,
// audit) in registration order.
package lifecycle

import "context"

// Component is something with a start/stop lifecycle.
type Component interface {
	// Start prepares the component. Failing aborts the session.
	Start(ctx context.Context) error
	// Stop flushes and releases resources within the context deadline.
	Stop(ctx context.Context) error
	// Name is used in logs and errors and must be non-empty.
	Name() string
}
