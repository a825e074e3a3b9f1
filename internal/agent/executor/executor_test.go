package executor

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExecutor(t *testing.T, timeout time.Duration) *LocalExecutor {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	shell := "bash"
	if _, err := exec.LookPath("bash"); err != nil {
		shell = "sh"
	}
	e, err := New(Config{WorkDir: filepath.Join(t.TempDir(), "__workspace__"), Timeout: timeout, Shell: shell})
	require.NoError(t, err)
	return e
}

func TestExtractCodeBlocks(t *testing.T) {
	text := "Run these:\n```bash\noc get co\n```\nthen\n```\nls -la\n```\nand\n```Python\nprint('hi')\n```"

	blocks := ExtractCodeBlocks(text)
	require.Len(t, blocks, 3)
	assert.Equal(t, CodeBlock{Language: "bash", Code: "oc get co"}, blocks[0])
	assert.Equal(t, CodeBlock{Language: "sh", Code: "ls -la"}, blocks[1])
	assert.Equal(t, CodeBlock{Language: "python", Code: "print('hi')"}, blocks[2])

	assert.Empty(t, ExtractCodeBlocks("no code here, just `inline`"))
}

func TestRunSucceeds(t *testing.T) {
	e := newExecutor(t, 5*time.Second)

	result, err := e.Run(context.Background(), "```sh\necho hello\npwd\n```")
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, result.Output, "hello")
	assert.Contains(t, result.Output, e.WorkDir(), "blocks run inside the work directory")
	require.Len(t, result.Blocks, 1)
	assert.True(t, strings.HasPrefix(result.Blocks[0].Filename, "tmp_code_"))
	assert.True(t, strings.HasSuffix(result.Blocks[0].Filename, ".sh"))
	assert.True(t, strings.HasPrefix(result.Format(), "exitcode: 0 (execution succeeded)\nCode output: hello"))
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	e := newExecutor(t, 5*time.Second)

	msg := "```sh\necho first\n```\n```sh\necho broken >&2\nexit 3\n```\n```sh\necho never\n```"
	result, err := e.Run(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, 3, result.ExitCode)
	assert.Len(t, result.Blocks, 2)
	assert.Contains(t, result.Output, "first")
	assert.Contains(t, result.Output, "broken")
	assert.NotContains(t, result.Output, "never")
	assert.True(t, strings.HasPrefix(result.Format(), "exitcode: 3 (execution failed)"))
}

func TestRunTimeout(t *testing.T) {
	e := newExecutor(t, 200*time.Millisecond)

	start := time.Now()
	result, err := e.Run(context.Background(), "```sh\nsleep 30\n```")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.Equal(t, TimeoutExitCode, result.ExitCode)
	assert.Contains(t, result.Output, "Timeout")
}

func TestRunUnknownLanguage(t *testing.T) {
	e := newExecutor(t, time.Second)

	result, err := e.Run(context.Background(), "```ruby\nputs 1\n```")
	require.NoError(t, err)
	assert.Equal(t, 1, result.ExitCode)
	assert.Contains(t, result.Output, "unknown language ruby")
}

func TestRunDenyList(t *testing.T) {
	e := newExecutor(t, time.Second)

	for _, code := range []string{
		"rm -rf /",
		"sudo rm -rf --no-preserve-root /",
		"mkfs.ext4 /dev/sda1",
		"dd if=/dev/zero of=/dev/sda bs=1M",
		":(){ :|:& };:",
		"echo x > /dev/sda",
		"shutdown -h now",
	} {
		result, err := e.Run(context.Background(), "```sh\n"+code+"\n```")
		require.NoError(t, err, code)
		assert.Equal(t, 1, result.ExitCode, code)
		assert.Contains(t, result.Output, "rejected by executor policy", code)
	}

	result, err := e.Run(context.Background(), "```sh\nrm -rf ./scratch\necho cleaned\n```")
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
}

func TestRunFilenameDirective(t *testing.T) {
	e := newExecutor(t, time.Second)

	result, err := e.Run(context.Background(), "```sh\n# filename: check_etcd.sh\necho ok\n```")
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "check_etcd.sh", result.Blocks[0].Filename)
	assert.FileExists(t, filepath.Join(e.WorkDir(), "check_etcd.sh"))

	result, err = e.Run(context.Background(), "```sh\n# filename: ../escape.sh\necho bad\n```")
	require.NoError(t, err)
	assert.Equal(t, 1, result.ExitCode)
	assert.Contains(t, result.Output, "not in the workspace")
}

func TestRunPython(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}
	e := newExecutor(t, 5*time.Second)

	result, err := e.Run(context.Background(), "```python\nprint(6*7)\n```")
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, result.Output, "42")
	assert.True(t, strings.HasSuffix(result.Blocks[0].Filename, ".py"))
}

func TestRunNoCodeBlocks(t *testing.T) {
	e := newExecutor(t, time.Second)
	_, err := e.Run(context.Background(), "Nothing to run.")
	assert.ErrorIs(t, err, ErrNoCodeBlocks)
}

func TestRunCanceled(t *testing.T) {
	e := newExecutor(t, 5*time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Run(ctx, "```sh\necho hi\n```")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewCreatesWorkDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "ws")
	e, err := New(Config{WorkDir: dir})
	require.NoError(t, err)
	info, err := os.Stat(e.WorkDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = New(Config{})
	assert.Error(t, err)
}
