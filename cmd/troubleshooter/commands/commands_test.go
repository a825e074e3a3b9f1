package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenario = `
name: cli
steps:
  - trigger: "system:You are the Planner"
    text: "Look at the ClusterOperators."
  - trigger: "system:You are the Analyst"
    text: "` + "```sh\\necho operators-fine\\n```" + `"
  - trigger: "contains:operators-fine"
    text: "All operators are fine. TERMINATE"
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func sessionArgs(t *testing.T) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "runbooks", "operators.md"), "# Degraded operators\n")
	writeFile(t, filepath.Join(dir, "mg", "cluster-scoped-resources", "core", "nodes", "n1.yaml"),
		"apiVersion: v1\nkind: Node\nmetadata:\n  name: n1\n")
	writeFile(t, filepath.Join(dir, "scenario.yaml"), scenario)
	return dir, []string{
		"--runbooks", filepath.Join(dir, "runbooks"),
		"--hub-mg", filepath.Join(dir, "mg"),
		"--mock-scenario", filepath.Join(dir, "scenario.yaml"),
		"--turn-wait", "0s",
		"--work-dir", filepath.Join(dir, "work"),
		"--audit-log", filepath.Join(dir, "audit.log"),
		"--metrics-file", filepath.Join(dir, "metrics.prom"),
	}
}

func TestRunCommand(t *testing.T) {
	dir, args := sessionArgs(t)
	stdout, _, err := execute(t, "", append([]string{"run", "operators are degraded"}, args...)...)
	require.NoError(t, err)

	assert.Contains(t, stdout, "User (to chat_manager):")
	assert.Contains(t, stdout, "Next speaker: Executor")
	assert.Contains(t, stdout, "operators-fine")
	assert.Contains(t, stdout, "Final answer from Planner")
	assert.FileExists(t, filepath.Join(dir, "audit.log"))
	assert.FileExists(t, filepath.Join(dir, "metrics.prom"))
}

func TestRunCommandSilent(t *testing.T) {
	_, args := sessionArgs(t)
	stdout, _, err := execute(t, "", append([]string{"run", "operators are degraded", "--silent"}, args...)...)
	require.NoError(t, err)

	assert.NotContains(t, stdout, "Next speaker:")
	assert.Contains(t, stdout, "All operators are fine. TERMINATE")
}

func TestRunCommandDebugExit(t *testing.T) {
	_, args := sessionArgs(t)
	stdout, _, err := execute(t, "exit\n", append([]string{"run", "operators are degraded", "--debug"}, args...)...)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Replying as Planner.")
	assert.NotContains(t, stdout, "Next speaker: Analyst")
}

func TestRunCommandRequiresFlags(t *testing.T) {
	_, _, err := execute(t, "", "run", "issue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")

	_, _, err = execute(t, "", "run")
	require.Error(t, err)
}

func TestRunCommandInvalidConfig(t *testing.T) {
	_, args := sessionArgs(t)
	_, _, err := execute(t, "", append([]string{"run", "issue", "--max-round", "1"}, args...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_round")
}

func TestInvalidLogLevel(t *testing.T) {
	_, _, err := execute(t, "", "--log-level", "loud", "version")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "troubleshooter "+Version))
}

func TestMCPCommandRejectsUnknownTransport(t *testing.T) {
	dir, _ := sessionArgs(t)
	_, _, err := execute(t, "", "mcp", "--transport", "carrier-pigeon",
		"--mock-scenario", filepath.Join(dir, "scenario.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported transport")
}

func TestOverridesOnlyChangedFlags(t *testing.T) {
	var f configFlags
	cmd := &cobra.Command{Use: "x"}
	f.bind(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"--model", "gpt-4o", "--mock-scenario", "s.yaml"}))

	assert.Equal(t, map[string]interface{}{
		"llm.model":         "gpt-4o",
		"llm.mock_scenario": "s.yaml",
		"llm.provider":      "mock",
	}, f.overrides(cmd))
}
