package executor

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/moolen/troubleshooter/internal/logging"
)

// TimeoutExitCode is reported for blocks killed by the timeout, like timeout(1).
const TimeoutExitCode = 124

// DefaultTimeout bounds a single block.
const DefaultTimeout = 10 * time.Second

// ErrNoCodeBlocks is returned by Run when the message has nothing to execute.
var ErrNoCodeBlocks = errors.New("no code blocks found")

var filenamePattern = regexp.MustCompile(`^\s*(#|//)\s*filename:\s*(\S+)\s*$`)

// Config configures a LocalExecutor.
type Config struct {
	WorkDir string
	Timeout time.Duration
	Shell   string // interpreter for bash blocks
	Python  string
	Rules   []Rule
}

// BlockResult is the outcome of one block.
type BlockResult struct {
	Language string
	Filename string
	ExitCode int
	Output   string
	Duration time.Duration
}

// Result is the outcome of a message's blocks. Execution stops at the first
// failing block, so Blocks may be shorter than the input.
type Result struct {
	ExitCode int
	Output   string
	Blocks   []BlockResult
}

// Format renders the result as it is posted to the chat.
func (r *Result) Format() string {
	status := "execution succeeded"
	if r.ExitCode != 0 {
		status = "execution failed"
	}
	return fmt.Sprintf("exitcode: %d (%s)\nCode output: %s", r.ExitCode, status, r.Output)
}

// LocalExecutor runs blocks as files in WorkDir with the host interpreters.
type LocalExecutor struct {
	config Config
	logger *logging.Logger
}

// New creates the work directory and returns an executor.
func New(cfg Config) (*LocalExecutor, error) {
	if cfg.WorkDir == "" {
		return nil, fmt.Errorf("work directory is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Shell == "" {
		cfg.Shell = "bash"
	}
	if cfg.Python == "" {
		cfg.Python = "python3"
	}
	if cfg.Rules == nil {
		cfg.Rules = DefaultDenyList()
	}

	abs, err := filepath.Abs(cfg.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve work directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	cfg.WorkDir = abs

	return &LocalExecutor{config: cfg, logger: logging.GetLogger("executor")}, nil
}

// WorkDir returns the absolute work directory.
func (e *LocalExecutor) WorkDir() string {
	return e.config.WorkDir
}

// Run extracts and executes the blocks in message.
func (e *LocalExecutor) Run(ctx context.Context, message string) (*Result, error) {
	blocks := ExtractCodeBlocks(message)
	if len(blocks) == 0 {
		return nil, ErrNoCodeBlocks
	}
	return e.Execute(ctx, blocks)
}

// Execute runs blocks in order. Only cancellation of ctx is returned as an
// error; failures of the code itself are part of the Result.
func (e *LocalExecutor) Execute(ctx context.Context, blocks []CodeBlock) (*Result, error) {
	result := &Result{}
	var output strings.Builder

	for i, block := range blocks {
		br := e.executeBlock(ctx, block)
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		e.logger.DebugWithFields("Executed code block",
			logging.Field("index", i),
			logging.Field("language", br.Language),
			logging.Field("file", br.Filename),
			logging.Field("exit_code", br.ExitCode),
			logging.Field("duration_ms", br.Duration.Milliseconds()))

		result.Blocks = append(result.Blocks, br)
		output.WriteString(br.Output)
		result.ExitCode = br.ExitCode
		if br.ExitCode != 0 {
			break
		}
	}

	result.Output = output.String()
	return result, nil
}

func (e *LocalExecutor) executeBlock(ctx context.Context, block CodeBlock) BlockResult {
	br := BlockResult{Language: block.Language}

	lang, ok := normalizeLanguage(block.Language)
	if !ok {
		br.ExitCode = 1
		br.Output = "\nunknown language " + block.Language
		return br
	}

	if rule, allowed := checkPolicy(e.config.Rules, block.Code); !allowed {
		br.ExitCode = 1
		br.Output = "\ncommand rejected by executor policy: " + rule.Name
		return br
	}

	path, err := e.writeBlock(lang, block.Code)
	if err != nil {
		br.ExitCode = 1
		br.Output = "\n" + err.Error()
		return br
	}
	br.Filename = filepath.Base(path)

	start := time.Now()
	br.ExitCode, br.Output = e.runFile(ctx, lang, path)
	br.Duration = time.Since(start)
	return br
}

// writeBlock stores code in the work directory. A "# filename: x" first line
// names the file; it must stay inside the work directory.
func (e *LocalExecutor) writeBlock(lang language, code string) (string, error) {
	name := ""
	firstLine, _, _ := strings.Cut(code, "\n")
	if m := filenamePattern.FindStringSubmatch(firstLine); m != nil {
		name = m[2]
	}
	if name == "" {
		sum := sha256.Sum256([]byte(code))
		name = fmt.Sprintf("tmp_code_%s.%s", hex.EncodeToString(sum[:16]), lang.extension)
	}

	path := filepath.Join(e.config.WorkDir, name)
	rel, err := filepath.Rel(e.config.WorkDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("filename is not in the workspace: %s", name)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", name, err)
	}
	if err := os.WriteFile(path, []byte(code), 0o600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return path, nil
}

func (e *LocalExecutor) runFile(ctx context.Context, lang language, path string) (int, string) {
	program := e.config.Python
	if lang.shell {
		program = "sh"
		if lang.name == "bash" {
			program = e.config.Shell
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	// #nosec G204 -- running model-written code is the purpose of this package
	cmd := exec.CommandContext(runCtx, program, path)
	cmd.Dir = e.config.WorkDir
	cmd.Env = os.Environ()
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	configureProcess(cmd)
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	output := stderr.String() + stdout.String()

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return TimeoutExitCode, output + "\nTimeout"
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return 0, output
	case errors.As(err, &exitErr):
		code := exitErr.ExitCode()
		if code < 0 {
			code = 1
		}
		return code, output
	default:
		return 1, output + "\n" + err.Error()
	}
}
