package prompts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTemplates(t *testing.T) {
	set, err := New("", "")
	require.NoError(t, err)

	planner, err := set.Planner(Data{Context: "## Runbook: Etcd (etcd.md)\n\ncheck members"})
	require.NoError(t, err)
	assert.Contains(t, planner, "check members")
	assert.Contains(t, planner, "End that final message with the word TERMINATE.")

	analyst, err := set.Analyst(Data{
		HubDir:       "/mg/hub",
		SpokeDir:     "/mg/spoke",
		HubSummary:   "Resources: 10",
		SpokeSummary: "Resources: 3",
	})
	require.NoError(t, err)
	assert.Contains(t, analyst, "Hub cluster must-gather: /mg/hub")
	assert.Contains(t, analyst, "Managed cluster must-gather: /mg/spoke")
	assert.Contains(t, analyst, "Hub must-gather summary:\nResources: 10")
	assert.Contains(t, analyst, "Managed cluster must-gather summary:\nResources: 3")
}

func TestAnalystSameBundleSummarisedOnce(t *testing.T) {
	set, err := New("", "")
	require.NoError(t, err)

	analyst, err := set.Analyst(Data{HubDir: "/mg", SpokeDir: "/mg", HubSummary: "hub", SpokeSummary: "hub"})
	require.NoError(t, err)
	assert.NotContains(t, analyst, "Managed cluster must-gather summary")
}

func TestCustomToken(t *testing.T) {
	set, err := New("", "")
	require.NoError(t, err)

	planner, err := set.Planner(Data{Token: "DONE"})
	require.NoError(t, err)
	assert.Contains(t, planner, "with the word DONE.")
	assert.NotContains(t, planner, "TERMINATE")
}

func TestFileOverride(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "planner.tmpl")
	require.NoError(t, os.WriteFile(file, []byte("runbooks: {{.Context}}\n"), 0o600))

	set, err := New(file, "")
	require.NoError(t, err)
	planner, err := set.Planner(Data{Context: "rb"})
	require.NoError(t, err)
	assert.Equal(t, "runbooks: rb", planner)
}

func TestOverrideErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := New(filepath.Join(dir, "missing.tmpl"), "")
	assert.ErrorContains(t, err, "failed to read planner prompt")

	bad := filepath.Join(dir, "bad.tmpl")
	require.NoError(t, os.WriteFile(bad, []byte("{{.Context"), 0o600))
	_, err = New("", bad)
	assert.ErrorContains(t, err, "failed to parse analyst prompt")

	unknown := filepath.Join(dir, "unknown.tmpl")
	require.NoError(t, os.WriteFile(unknown, []byte("{{.Nope}}"), 0o600))
	set, err := New(unknown, "")
	require.NoError(t, err)
	_, err = set.Planner(Data{})
	assert.ErrorContains(t, err, "failed to render planner prompt")
}
