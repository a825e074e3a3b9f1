package runner

import (
	"sync"
	"time"

	"github.com/moolen/troubleshooter/internal/agent/commands"
	"github.com/moolen/troubleshooter/internal/agent/executor"
	"github.com/moolen/troubleshooter/internal/agent/groupchat"
	"github.com/moolen/troubleshooter/internal/agent/provider"
)

// stats counts what /stats reports. It observes the chat for rounds.
type stats struct {
	groupchat.NopObserver

	mu           sync.Mutex
	rounds       int
	llmRequests  int
	inputTokens  int
	outputTokens int
	executions   int
}

func (s *stats) MessageAppended(_ groupchat.Message, round int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds = round
}

func (s *stats) snapshot(sessionID string) *commands.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &commands.Context{
		SessionID:    sessionID,
		Rounds:       s.rounds,
		LLMRequests:  s.llmRequests,
		InputTokens:  s.inputTokens,
		OutputTokens: s.outputTokens,
		Executions:   s.executions,
	}
}

func (r *Runner) commandState() *commands.Context {
	state := r.stats.snapshot(r.sessionID)
	state.Runbooks = r.runbooks.Titles()
	return state
}

// LLMRequest implements agents.Recorder.
func (r *Runner) LLMRequest(agent string, p provider.Provider, resp *provider.Response, d time.Duration, err error) {
	var in, out int
	stop := string(provider.StopReasonError)
	if resp != nil {
		in, out = resp.Usage.InputTokens, resp.Usage.OutputTokens
		stop = string(resp.StopReason)
	}

	r.stats.mu.Lock()
	r.stats.llmRequests++
	r.stats.inputTokens += in
	r.stats.outputTokens += out
	r.stats.mu.Unlock()

	r.metrics.ObserveLLMRequest(agent, p.Name(), p.Model(), in, out, d, err)
	if r.audit == nil {
		return
	}
	if err != nil {
		r.auditWarn(r.audit.LogError(agent, err))
	}
	r.auditWarn(r.audit.LogLLMRequest(agent, p.Name(), p.Model(), in, out, stop, d))
}

// Execution implements agents.Recorder.
func (r *Runner) Execution(agent string, b executor.BlockResult) {
	r.stats.mu.Lock()
	r.stats.executions++
	r.stats.mu.Unlock()

	r.metrics.ObserveExecution(b.Language, b.ExitCode, b.Duration)
	if r.audit != nil {
		r.auditWarn(r.audit.LogExecution(agent, b.Language, b.Filename, b.ExitCode, b.Duration, b.Output))
	}
}

// HumanInput implements agents.Recorder.
func (r *Runner) HumanInput(agent, input string) {
	if r.audit != nil {
		r.auditWarn(r.audit.LogHumanInput(agent, input))
	}
}

func (r *Runner) auditWarn(err error) {
	if err != nil {
		r.logger.Warn("Failed to write audit event: %v", err)
	}
}
