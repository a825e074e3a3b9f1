package groupchat

import (
	"context"
	"time"
)

// Waiter pauses between turns. It returns how long it actually waited.
type Waiter interface {
	Wait(ctx context.Context, after Agent) (time.Duration, error)
}

// NoWait never pauses.
type NoWait struct{}

// Wait implements Waiter.
func (NoWait) Wait(context.Context, Agent) (time.Duration, error) { return 0, nil }

// TurnWaiter sleeps for Duration after the named agents have spoken.
type TurnWaiter struct {
	Duration time.Duration
	after    map[string]bool
}

// NewTurnWaiter pauses for d after any of the given agents.
func NewTurnWaiter(d time.Duration, after ...string) *TurnWaiter {
	w := &TurnWaiter{Duration: d, after: make(map[string]bool, len(after))}
	for _, name := range after {
		w.after[name] = true
	}
	return w
}

// Wait implements Waiter. Cancellation of ctx aborts the pause.
func (w *TurnWaiter) Wait(ctx context.Context, after Agent) (time.Duration, error) {
	if after == nil || w.Duration <= 0 || !w.after[after.Name()] {
		return 0, nil
	}

	timer := time.NewTimer(w.Duration)
	defer timer.Stop()

	start := time.Now()
	select {
	case <-ctx.Done():
		return time.Since(start), ctx.Err()
	case <-timer.C:
		return w.Duration, nil
	}
}
