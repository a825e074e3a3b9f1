package mcp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/moolen/troubleshooter/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenario = `
name: mcp
steps:
  - trigger: "system:You are the Planner"
    text: "Check the nodes."
  - trigger: "system:You are the Analyst"
    text: "` + "```sh\\necho nodes-ready\\n```" + `"
  - trigger: "contains:nodes-ready"
    text: "Nodes are ready. TERMINATE"
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

type fixture struct {
	dir      string
	runbooks string
	hub      string
	server   *Server
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:      dir,
		runbooks: filepath.Join(dir, "runbooks"),
		hub:      filepath.Join(dir, "hub"),
	}
	writeFile(t, filepath.Join(f.runbooks, "nodes.md"), "# Node not ready\n\n## Check kubelet\n\n## Check disk pressure\n")
	writeFile(t, filepath.Join(f.hub, "version"), "4.16.3\n")
	writeFile(t, filepath.Join(f.hub, "cluster-scoped-resources", "core", "nodes", "n1.yaml"),
		"apiVersion: v1\nkind: Node\nmetadata:\n  name: n1\n")
	writeFile(t, filepath.Join(dir, "scenario.yaml"), scenario)

	cfg, err := config.Load(config.LoadOptions{
		Environ: []string{},
		Overrides: map[string]interface{}{
			"llm.provider":      config.ProviderMock,
			"llm.mock_scenario": filepath.Join(dir, "scenario.yaml"),
			"chat.turn_wait":    time.Duration(0),
			"executor.work_dir": filepath.Join(dir, "work"),
			"audit.path":        filepath.Join(dir, "session.audit.log"),
		},
	})
	require.NoError(t, err)

	f.server, err = NewServer(ServerOptions{Config: cfg, DefaultRunbooks: f.runbooks, Version: "test"})
	require.NoError(t, err)
	return f
}

func (f fixture) call(t *testing.T, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args

	handler := f.server.toolHandler(name, f.server.tools[name])
	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	return result
}

func text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	content, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return content.Text
}

func TestNewServerRequiresConfig(t *testing.T) {
	_, err := NewServer(ServerOptions{})
	assert.Error(t, err)
}

func TestToolsRegistered(t *testing.T) {
	f := newFixture(t)
	names := f.server.Tools()
	sort.Strings(names)
	assert.Equal(t, []string{"mustgather_summary", "runbooks_list", "troubleshoot"}, names)
	assert.NotNil(t, f.server.MCPServer())
}

func TestTroubleshootTool(t *testing.T) {
	f := newFixture(t)
	result := f.call(t, "troubleshoot", map[string]any{
		"issue":  "node n1 is NotReady",
		"hub_mg": f.hub,
	})
	require.False(t, result.IsError, text(t, result))

	var out TroubleshootOutput
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &out))
	assert.Equal(t, "terminated", out.Reason)
	assert.Equal(t, 5, out.Rounds)
	assert.Equal(t, "Planner", out.FinalFrom)
	assert.Contains(t, out.Final, "TERMINATE")
	assert.NotEmpty(t, out.SessionID)
	assert.Equal(t, filepath.Join(f.dir, "session.audit.log"), out.AuditLog)

	var speakers []string
	for _, m := range out.Transcript {
		speakers = append(speakers, m.Name)
	}
	assert.Contains(t, speakers, "Executor")
	assert.Contains(t, speakers, "Analyst")
}

func TestTroubleshootToolValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		args map[string]any
	}{
		{name: "missing issue", args: map[string]any{"hub_mg": f.hub}},
		{name: "missing hub", args: map[string]any{"issue": "x"}},
		{name: "hub does not exist", args: map[string]any{"issue": "x", "hub_mg": filepath.Join(f.dir, "nope")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := f.call(t, "troubleshoot", tt.args)
			assert.True(t, result.IsError)
			assert.Contains(t, text(t, result), "Tool execution failed")
		})
	}
}

func TestMustGatherSummaryTool(t *testing.T) {
	f := newFixture(t)
	result := f.call(t, "mustgather_summary", map[string]any{"path": f.hub})
	require.False(t, result.IsError, text(t, result))

	var out SummaryOutput
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &out))
	assert.Equal(t, "4.16.3", out.Version)
	assert.Equal(t, 1, out.ResourceCount)
	assert.Contains(t, out.Text, "Version: 4.16.3")

	result = f.call(t, "mustgather_summary", map[string]any{})
	assert.True(t, result.IsError)
}

func TestRunbooksListTool(t *testing.T) {
	f := newFixture(t)

	result := f.call(t, "runbooks_list", nil)
	require.False(t, result.IsError, text(t, result))

	var out RunbooksOutput
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &out))
	require.Len(t, out.Runbooks, 1)
	assert.Equal(t, "Node not ready", out.Runbooks[0].Title)
	assert.Equal(t, []string{"Node not ready", "Check kubelet", "Check disk pressure"}, out.Runbooks[0].Headings)

	result = f.call(t, "runbooks_list", map[string]any{"path": filepath.Join(f.dir, "missing")})
	assert.True(t, result.IsError)
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.server.HTTPHandler("mcp"))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestNormalizeEndpoint(t *testing.T) {
	assert.Equal(t, "/mcp", normalizeEndpoint(""))
	assert.Equal(t, "/tools", normalizeEndpoint("tools"))
	assert.Equal(t, "/x/mcp", normalizeEndpoint("/x/mcp"))
}
