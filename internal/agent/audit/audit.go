// Package audit records troubleshooting sessions (messages, speaker changes,
// LLM requests, code executions) to a JSONL file for debugging, analysis and
// reproducibility.
package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType represents the type of audit event.
type EventType string

const (
	// EventTypeSessionStart marks the start of a new session.
	EventTypeSessionStart EventType = "session_start"
	// EventTypeMessage marks a message appended to the shared history.
	EventTypeMessage EventType = "message"
	// EventTypeSpeakerSelected marks the choice of the next speaker.
	EventTypeSpeakerSelected EventType = "speaker_selected"
	// EventTypeWait marks a rate-limit pause between turns.
	EventTypeWait EventType = "wait"
	// EventTypeHumanInput marks input typed by the human in debug mode.
	EventTypeHumanInput EventType = "human_input"
	// EventTypeExecution marks a code block run by the executor.
	EventTypeExecution EventType = "execution"
	// EventTypeError marks an error during processing.
	EventTypeError EventType = "error"
	// EventTypeSessionEnd marks the end of a session.
	EventTypeSessionEnd EventType = "session_end"

	// EventTypeLLMRequest logs each LLM request with token usage.
	EventTypeLLMRequest EventType = "llm_request"
	// EventTypeSessionMetrics logs aggregated session metrics.
	EventTypeSessionMetrics EventType = "session_metrics"
)

// Event represents a single audit log event.
type Event struct {
	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`
	// Type is the event type.
	Type EventType `json:"type"`
	// SessionID is the session identifier.
	SessionID string `json:"session_id"`
	// Agent is the name of the agent that generated the event (if applicable).
	Agent string `json:"agent,omitempty"`
	// Data contains event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// SessionInfo describes what a session was started with.
type SessionInfo struct {
	Provider  string
	Model     string
	Issue     string
	Runbooks  []string
	HubDir    string
	SpokeDir  string
	HumanMode string
}

// Logger writes audit events to a JSONL file.
type Logger struct {
	file      *os.File
	path      string
	writer    *bufio.Writer
	mutex     sync.Mutex
	sessionID string
	closed    bool

	requests     int
	inputTokens  int
	outputTokens int
}

// NewLogger creates a new audit logger that writes to the specified file path.
// Parent directories are created; an existing file is appended to.
func NewLogger(filePath, sessionID string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	// #nosec G304 -- Audit log path is intentionally configurable by user
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}

	return &Logger{
		file:      file,
		path:      filePath,
		writer:    bufio.NewWriter(file),
		sessionID: sessionID,
	}, nil
}

// write writes an event to the audit log.
func (l *Logger) write(eventType EventType, agent string, data map[string]interface{}) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.closed {
		return fmt.Errorf("audit log is closed")
	}

	raw, err := json.Marshal(Event{
		Timestamp: time.Now(),
		Type:      eventType,
		SessionID: l.sessionID,
		Agent:     agent,
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	if _, err := l.writer.Write(raw); err != nil {
		return fmt.Errorf("failed to write audit event: %w", err)
	}
	if err := l.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	// Flush immediately for crash safety
	if err := l.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush audit log: %w", err)
	}
	return nil
}

// Path returns the file the logger appends to.
func (l *Logger) Path() string {
	return l.path
}

// SessionID returns the session this logger writes for.
func (l *Logger) SessionID() string {
	return l.sessionID
}

// LogSessionStart logs the start of a new session.
func (l *Logger) LogSessionStart(info SessionInfo) error {
	return l.write(EventTypeSessionStart, "", map[string]interface{}{
		"provider":   info.Provider,
		"model":      info.Model,
		"issue":      info.Issue,
		"runbooks":   info.Runbooks,
		"hub_dir":    info.HubDir,
		"spoke_dir":  info.SpokeDir,
		"human_mode": info.HumanMode,
	})
}

// LogMessage logs a message appended to the chat history.
func (l *Logger) LogMessage(agentName, role, content string, round int) error {
	return l.write(EventTypeMessage, agentName, map[string]interface{}{
		"role":    role,
		"content": content,
		"round":   round,
	})
}

// LogSpeakerSelected logs the next speaker.
func (l *Logger) LogSpeakerSelected(agentName string, round int) error {
	return l.write(EventTypeSpeakerSelected, agentName, map[string]interface{}{
		"round": round,
	})
}

// LogWait logs a rate-limit pause after agentName spoke.
func (l *Logger) LogWait(agentName string, d time.Duration) error {
	return l.write(EventTypeWait, agentName, map[string]interface{}{
		"duration_ms": d.Milliseconds(),
	})
}

// LogHumanInput logs what the human typed for an agent's turn.
func (l *Logger) LogHumanInput(agentName, input string) error {
	return l.write(EventTypeHumanInput, agentName, map[string]interface{}{
		"input": truncateString(input, 500),
	})
}

// LogExecution logs one executed code block.
func (l *Logger) LogExecution(agentName, language, filename string, exitCode int, duration time.Duration, output string) error {
	return l.write(EventTypeExecution, agentName, map[string]interface{}{
		"language":    language,
		"filename":    filename,
		"exit_code":   exitCode,
		"duration_ms": duration.Milliseconds(),
		"output":      truncateString(output, 2000),
	})
}

// LogError logs an error during processing.
func (l *Logger) LogError(agentName string, err error) error {
	return l.write(EventTypeError, agentName, map[string]interface{}{
		"error": err.Error(),
	})
}

// LogSessionEnd logs the end of a session.
func (l *Logger) LogSessionEnd(reason string, rounds int, duration time.Duration) error {
	return l.write(EventTypeSessionEnd, "", map[string]interface{}{
		"reason":      reason,
		"rounds":      rounds,
		"duration_ms": duration.Milliseconds(),
	})
}

// LogLLMRequest logs an individual LLM request with token usage information.
func (l *Logger) LogLLMRequest(agentName, provider, model string, inputTokens, outputTokens int, stopReason string, duration time.Duration) error {
	l.mutex.Lock()
	l.requests++
	l.inputTokens += inputTokens
	l.outputTokens += outputTokens
	l.mutex.Unlock()

	return l.write(EventTypeLLMRequest, agentName, map[string]interface{}{
		"provider":      provider,
		"model":         model,
		"input_tokens":  inputTokens,
		"output_tokens": outputTokens,
		"total_tokens":  inputTokens + outputTokens,
		"stop_reason":   stopReason,
		"duration_ms":   duration.Milliseconds(),
	})
}

// LogSessionMetrics logs the token totals accumulated by LogLLMRequest.
func (l *Logger) LogSessionMetrics() error {
	l.mutex.Lock()
	requests, in, out := l.requests, l.inputTokens, l.outputTokens
	l.mutex.Unlock()

	return l.write(EventTypeSessionMetrics, "", map[string]interface{}{
		"total_llm_requests":  requests,
		"total_input_tokens":  in,
		"total_output_tokens": out,
		"total_tokens":        in + out,
	})
}

// Name implements lifecycle.Component.
func (l *Logger) Name() string {
	return "audit"
}

// Start implements lifecycle.Component.
func (l *Logger) Start(ctx context.Context) error {
	return nil
}

// Stop writes the session metrics and closes the file.
func (l *Logger) Stop(ctx context.Context) error {
	if err := l.LogSessionMetrics(); err != nil {
		_ = l.Close()
		return err
	}
	return l.Close()
}

// Close closes the audit logger and flushes any pending writes. Closing twice
// is a no-op.
func (l *Logger) Close() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	var errs []error
	if err := l.writer.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush audit log: %w", err))
	}
	if err := l.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close audit log file: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing audit log: %v", errs)
	}
	return nil
}

// truncateString truncates a string to maxLen characters.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "...[truncated]"
}
