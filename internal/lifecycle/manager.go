package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/moolen/troubleshooter/internal/logging"
)

// DefaultShutdownTimeout bounds each component's Stop.
const DefaultShutdownTimeout = 10 * time.Second

// Manager starts components in the order they were registered and stops the
// started ones in reverse order. A component registered later may rely on
// earlier ones.
type Manager struct {
	mu              sync.Mutex
	components      []Component
	started         []Component
	shutdownTimeout time.Duration
	logger          *logging.Logger
}

// NewManager creates a manager with DefaultShutdownTimeout.
func NewManager() *Manager {
	return &Manager{
		shutdownTimeout: DefaultShutdownTimeout,
		logger:          logging.GetLogger("lifecycle"),
	}
}

// Register appends components. Nil, unnamed and duplicate components are
// rejected.
func (m *Manager) Register(components ...Component) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range components {
		if c == nil {
			return fmt.Errorf("cannot register nil component")
		}
		if c.Name() == "" {
			return fmt.Errorf("component must have a non-empty name")
		}
		for _, existing := range m.components {
			if existing == c {
				return fmt.Errorf("component %s is already registered", c.Name())
			}
		}
		m.components = append(m.components, c)
		m.logger.Debug("Registered component %s", c.Name())
	}
	return nil
}

// Start starts every component. On failure the already started components are
// stopped again and the error is returned.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.started = m.started[:0]
	for _, c := range m.components {
		begin := time.Now()
		if err := c.Start(ctx); err != nil {
			m.logger.Error("Failed to start %s: %v", c.Name(), err)
			m.stopLocked(context.Background())
			return fmt.Errorf("failed to start %s: %w", c.Name(), err)
		}
		m.started = append(m.started, c)
		m.logger.Debug("%s started (took %dms)", c.Name(), time.Since(begin).Milliseconds())
	}
	return nil
}

// Stop stops started components in reverse order. Every component is given a
// chance to stop; the errors are joined.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopLocked(ctx)
}

func (m *Manager) stopLocked(ctx context.Context) error {
	var errs []error
	for i := len(m.started) - 1; i >= 0; i-- {
		c := m.started[i]

		stopCtx, cancel := context.WithTimeout(ctx, m.shutdownTimeout)
		err := c.Stop(stopCtx)
		cancel()

		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				m.logger.Warn("Component %s exceeded shutdown timeout of %s", c.Name(), m.shutdownTimeout)
			} else {
				m.logger.Error("Error stopping %s: %v", c.Name(), err)
			}
			errs = append(errs, fmt.Errorf("stop %s: %w", c.Name(), err))
			continue
		}
		m.logger.Debug("%s stopped", c.Name())
	}
	m.started = m.started[:0]
	return errors.Join(errs...)
}

// Running reports whether c started and has not been stopped.
func (m *Manager) Running(c Component) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.started {
		if s == c {
			return true
		}
	}
	return false
}

// SetShutdownTimeout changes the per-component stop deadline.
func (m *Manager) SetShutdownTimeout(timeout time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownTimeout = timeout
}
