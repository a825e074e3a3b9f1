package provider

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioYAML = `
name: etcd-degraded
description: Planner and Analyst find a degraded etcd operator
steps:
  - trigger: "system:planner"
    text: "Plan: list degraded cluster operators."
  - trigger: "system:analyst"
    text: "` + "```sh\\necho etcd\\n```" + `"
  - trigger: "contains:exitcode: 0"
    text: "etcd is degraded. TERMINATE"
`

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestMockProviderReplaysSteps(t *testing.T) {
	p, err := NewMockProviderFromFile(writeScenario(t, scenarioYAML))
	require.NoError(t, err)
	assert.Equal(t, "mock", p.Name())
	assert.Equal(t, "mock:etcd-degraded", p.Model())

	ctx := context.Background()

	resp, err := p.Chat(ctx, "You are the Planner", []Message{{Role: RoleUser, Content: "issue"}})
	require.NoError(t, err)
	assert.Equal(t, "Plan: list degraded cluster operators.", resp.Content)
	assert.Positive(t, resp.Usage.InputTokens)

	// The final step is not triggered yet and the analyst step does not match
	// a planner prompt.
	_, err = p.Chat(ctx, "You are the Planner", []Message{{Role: RoleUser, Content: "exitcode: 1"}})
	assert.ErrorIs(t, err, ErrScenarioExhausted)

	resp, err = p.Chat(ctx, "You are the Analyst", nil)
	require.NoError(t, err)
	assert.Contains(t, resp.Content, "echo etcd")

	resp, err = p.Chat(ctx, "You are the Planner", []Message{{Role: RoleUser, Content: "Executor: exitcode: 0 (execution succeeded)"}})
	require.NoError(t, err)
	assert.Equal(t, "etcd is degraded. TERMINATE", resp.Content)
	assert.Zero(t, p.Remaining())

	_, err = p.Chat(ctx, "", nil)
	assert.ErrorIs(t, err, ErrScenarioExhausted)
}

func TestMockProviderDelayHonoursContext(t *testing.T) {
	p := NewMockProvider(&Scenario{Name: "slow", Steps: []ScenarioStep{{Text: "late", DelayMs: 60000}}})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.Chat(ctx, "", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLoadScenarioValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "missing name", content: "steps:\n  - text: hi\n", want: "name is required"},
		{name: "no steps", content: "name: x\n", want: "at least one step"},
		{name: "empty text", content: "name: x\nsteps:\n  - trigger: a\n", want: "text is required"},
		{name: "bad yaml", content: "name: [", want: "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMatchesTrigger(t *testing.T) {
	assert.True(t, matchesTrigger("", "", ""))
	assert.True(t, matchesTrigger("system:ANALYST", "you are the analyst", ""))
	assert.False(t, matchesTrigger("system:analyst", "planner", "analyst"))
	assert.True(t, matchesTrigger("contains:Degraded", "", "operator degraded"))
	assert.True(t, matchesTrigger("exitcode", "", "exitcode: 0"))
}
