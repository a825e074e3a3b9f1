package metrics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moolen/troubleshooter/internal/agent/groupchat"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserverCounts(t *testing.T) {
	m := New("")

	m.MessageAppended(groupchat.Message{Name: "User"}, 1)
	m.MessageAppended(groupchat.Message{Name: "Planner"}, 2)
	m.MessageAppended(groupchat.Message{Name: "Planner"}, 6)
	m.Waited(nil, 5*time.Second)
	m.Finished(&groupchat.Result{Reason: groupchat.ReasonTerminated, Rounds: 6}, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Turns.WithLabelValues("Planner")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Waits))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.WaitSeconds))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Sessions.WithLabelValues("terminated")))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.Rounds))
}

func TestObserveLLMRequestAndExecution(t *testing.T) {
	m := New("")

	m.ObserveLLMRequest("Planner", "groq", "llama", 100, 20, time.Second, nil)
	m.ObserveLLMRequest("Analyst", "groq", "llama", 50, 0, time.Second, errors.New("429"))
	m.ObserveExecution("sh", 0, time.Millisecond)
	m.ObserveExecution("sh", 124, 10*time.Second)
	m.ObserveExecution("python", 1, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.LLMRequests.WithLabelValues("Analyst", "groq", "llama", "error")))
	assert.Equal(t, 150.0, testutil.ToFloat64(m.LLMTokens.WithLabelValues("input")))
	assert.Equal(t, 20.0, testutil.ToFloat64(m.LLMTokens.WithLabelValues("output")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Executions.WithLabelValues("sh", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Executions.WithLabelValues("python", "failure")))
}

func TestStopWritesTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "troubleshooter.prom")
	m := New(path)
	m.MessageAppended(groupchat.Message{Name: "User"}, 1)

	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Stop(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `troubleshooter_turns_total{speaker="User"} 1`)
}

func TestStopWithoutFile(t *testing.T) {
	assert.NoError(t, New("").Stop(context.Background()))
}
