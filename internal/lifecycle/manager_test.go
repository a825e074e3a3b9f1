package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeComponent struct {
	name     string
	startErr error
	stopErr  error
	block    bool
	events   *[]string
}

func (f *fakeComponent) Start(ctx context.Context) error {
	*f.events = append(*f.events, "start "+f.name)
	return f.startErr
}

func (f *fakeComponent) Stop(ctx context.Context) error {
	*f.events = append(*f.events, "stop "+f.name)
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.stopErr
}

func (f *fakeComponent) Name() string { return f.name }

func TestStartStopOrder(t *testing.T) {
	var events []string
	a := &fakeComponent{name: "tracing", events: &events}
	b := &fakeComponent{name: "metrics", events: &events}
	c := &fakeComponent{name: "audit", events: &events}

	m := NewManager()
	require.NoError(t, m.Register(a, b, c))
	require.NoError(t, m.Start(context.Background()))
	assert.True(t, m.Running(b))

	require.NoError(t, m.Stop(context.Background()))
	assert.False(t, m.Running(b))
	assert.Equal(t, []string{
		"start tracing", "start metrics", "start audit",
		"stop audit", "stop metrics", "stop tracing",
	}, events)
}

func TestStartFailureRollsBack(t *testing.T) {
	var events []string
	a := &fakeComponent{name: "tracing", events: &events}
	b := &fakeComponent{name: "audit", startErr: errors.New("disk full"), events: &events}
	c := &fakeComponent{name: "metrics", events: &events}

	m := NewManager()
	require.NoError(t, m.Register(a, b, c))

	err := m.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start audit")
	assert.Equal(t, []string{"start tracing", "start audit", "stop tracing"}, events)
	assert.False(t, m.Running(a))
}

func TestStopJoinsErrorsAndHonoursTimeout(t *testing.T) {
	var events []string
	a := &fakeComponent{name: "a", stopErr: errors.New("flush failed"), events: &events}
	b := &fakeComponent{name: "b", block: true, events: &events}

	m := NewManager()
	m.SetShutdownTimeout(20 * time.Millisecond)
	require.NoError(t, m.Register(a, b))
	require.NoError(t, m.Start(context.Background()))

	err := m.Stop(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "flush failed")
	assert.Equal(t, []string{"start a", "start b", "stop b", "stop a"}, events)
}

func TestRegisterValidation(t *testing.T) {
	var events []string
	m := NewManager()
	c := &fakeComponent{name: "x", events: &events}

	assert.Error(t, m.Register(nil))
	assert.Error(t, m.Register(&fakeComponent{events: &events}))
	require.NoError(t, m.Register(c))
	assert.Error(t, m.Register(c))
}
