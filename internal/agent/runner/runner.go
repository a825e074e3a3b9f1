// Package runner wires a troubleshooting session: configuration, model
// backend, prompts, the four agents, the group chat and its observers.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/moolen/troubleshooter/internal/agent/agents"
	"github.com/moolen/troubleshooter/internal/agent/audit"
	"github.com/moolen/troubleshooter/internal/agent/commands"
	"github.com/moolen/troubleshooter/internal/agent/console"
	"github.com/moolen/troubleshooter/internal/agent/executor"
	"github.com/moolen/troubleshooter/internal/agent/groupchat"
	"github.com/moolen/troubleshooter/internal/agent/prompts"
	"github.com/moolen/troubleshooter/internal/agent/provider"
	"github.com/moolen/troubleshooter/internal/config"
	"github.com/moolen/troubleshooter/internal/lifecycle"
	"github.com/moolen/troubleshooter/internal/logging"
	"github.com/moolen/troubleshooter/internal/metrics"
	"github.com/moolen/troubleshooter/internal/mustgather"
	"github.com/moolen/troubleshooter/internal/runbook"
	"github.com/moolen/troubleshooter/internal/tracing"
)

// Options describe one session.
type Options struct {
	Config *config.Config

	Issue    string
	Runbooks string
	HubDir   string
	// SpokeDir defaults to HubDir.
	SpokeDir string

	// SessionID defaults to a random UUID.
	SessionID string
	Version   string

	Stdin  io.Reader
	Stdout io.Writer

	// Provider replaces the backend named in Config.
	Provider provider.Provider
}

// Runner is a prepared session. Run may be called once.
type Runner struct {
	opts      Options
	cfg       *config.Config
	sessionID string

	runbooks *runbook.Set
	provider provider.Provider
	team     *agents.Team
	manager  *groupchat.Manager

	printer    *console.Printer
	prompter   *console.Prompter
	audit      *audit.Logger
	metrics    *metrics.Metrics
	tracing    *tracing.Provider
	components *lifecycle.Manager
	stats      *stats

	logger *logging.Logger
}

// New loads the inputs and builds every component of the session.
func New(ctx context.Context, opts Options) (*Runner, error) {
	if opts.Config == nil {
		return nil, errors.New("configuration is required")
	}
	if opts.Issue == "" {
		return nil, errors.New("issue is required")
	}
	if opts.SpokeDir == "" {
		opts.SpokeDir = opts.HubDir
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}

	r := &Runner{
		opts:      opts,
		cfg:       opts.Config,
		sessionID: opts.SessionID,
		stats:     &stats{},
		logger:    logging.GetLogger("agent.runner").WithField("session", opts.SessionID),
	}

	r.logger.Debug("runbooks=%s, hub-must-gather=%s, managed-cluster-must-gather=%s",
		opts.Runbooks, opts.HubDir, opts.SpokeDir)

	planner, analyst, err := r.renderPrompts(ctx)
	if err != nil {
		return nil, err
	}

	r.provider = opts.Provider
	if r.provider == nil {
		r.provider, err = provider.New(ctx, providerOptions(r.cfg.LLM))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s provider: %w", r.cfg.LLM.Provider, err)
		}
	}

	exec, err := executor.New(executor.Config{
		WorkDir: r.cfg.Executor.WorkDir,
		Timeout: r.cfg.Executor.Timeout,
		Shell:   r.cfg.Executor.Shell,
		Python:  r.cfg.Executor.Python,
	})
	if err != nil {
		return nil, err
	}

	if err := r.buildObservability(); err != nil {
		return nil, err
	}

	r.printer = console.NewPrinter(opts.Stdout, console.Options{Silent: r.cfg.Chat.Silent})

	var human agents.HumanInput
	if r.cfg.Chat.HumanInputMode == config.HumanInputAlways {
		r.prompter = console.NewPrompter(opts.Stdin, opts.Stdout, r.printer, commands.Default(), r.commandState)
		human = r.prompter
	}

	r.team = agents.NewTeam(agents.TeamConfig{
		Provider:      r.provider,
		PlannerPrompt: planner,
		AnalystPrompt: analyst,
		Runner:        exec,
		IsTermination: groupchat.NewTermination(r.cfg.Chat.TerminationToken, r.cfg.Chat.TerminationMatch),
		Human:         human,
		Recorder:      r,
	})

	r.manager = r.buildManager()
	return r, nil
}

func (r *Runner) renderPrompts(ctx context.Context) (string, string, error) {
	set, err := runbook.Load(r.opts.Runbooks)
	if err != nil {
		return "", "", err
	}
	r.runbooks = set
	r.logger.InfoWithFields("Loaded runbooks",
		logging.Field("count", len(set.Runbooks)),
		logging.Field("bytes", set.Size()))

	hub, err := mustgather.Load(ctx, r.opts.HubDir)
	if err != nil {
		return "", "", fmt.Errorf("hub must-gather: %w", err)
	}
	hubSummary := hub.Summarize().String()
	spokeSummary := hubSummary
	if r.opts.SpokeDir != r.opts.HubDir {
		spoke, err := mustgather.Load(ctx, r.opts.SpokeDir)
		if err != nil {
			return "", "", fmt.Errorf("managed cluster must-gather: %w", err)
		}
		spokeSummary = spoke.Summarize().String()
	}

	templates, err := prompts.New(r.cfg.Prompts.PlannerFile, r.cfg.Prompts.AnalystFile)
	if err != nil {
		return "", "", err
	}
	data := prompts.Data{
		Context:      set.Contents(),
		HubDir:       r.opts.HubDir,
		SpokeDir:     r.opts.SpokeDir,
		HubSummary:   hubSummary,
		SpokeSummary: spokeSummary,
		Token:        r.cfg.Chat.TerminationToken,
	}
	planner, err := templates.Planner(data)
	if err != nil {
		return "", "", err
	}
	analyst, err := templates.Analyst(data)
	if err != nil {
		return "", "", err
	}

	if size := provider.EstimateTokens(planner, nil); size > provider.GetContextWindowSize(r.cfg.LLM.Model) {
		r.logger.Warn("Planner prompt is about %d tokens, more than the context window of %s", size, r.cfg.LLM.Model)
	}
	r.logger.Debug("Planner prompt:\n%s", planner)
	r.logger.Debug("Analyst prompt:\n%s", analyst)
	return planner, analyst, nil
}

func providerOptions(c config.LLMConfig) provider.Options {
	return provider.Options{
		Name: c.Provider,
		Config: provider.Config{
			Model:       c.Model,
			APIKey:      c.APIKey,
			BaseURL:     c.BaseURL,
			MaxTokens:   c.MaxTokens,
			Temperature: c.Temperature,
			Timeout:     c.Timeout,
		},
		MockScenario:      c.MockScenario,
		RequestsPerMinute: c.RequestsPerMinute,
	}
}

func (r *Runner) buildObservability() error {
	var err error
	r.tracing, err = tracing.NewProvider(tracing.Config{
		Enabled:     r.cfg.Tracing.Enabled,
		Endpoint:    r.cfg.Tracing.Endpoint,
		TLSCAPath:   r.cfg.Tracing.TLSCAPath,
		TLSInsecure: r.cfg.Tracing.TLSInsecure,
		Version:     r.opts.Version,
	})
	if err != nil {
		return fmt.Errorf("failed to create tracing provider: %w", err)
	}

	r.metrics = metrics.New(r.cfg.Metrics.File)

	if r.cfg.Audit.Enabled {
		path := r.cfg.Audit.Path
		if path == "" {
			path, err = DefaultAuditPath(r.sessionID)
			if err != nil {
				return err
			}
		}
		r.audit, err = audit.NewLogger(path, r.sessionID)
		if err != nil {
			return fmt.Errorf("failed to create audit logger: %w", err)
		}
	}

	r.components = lifecycle.NewManager()
	components := []lifecycle.Component{r.tracing, r.metrics}
	if r.audit != nil {
		components = append(components, r.audit)
	}
	return r.components.Register(components...)
}

func (r *Runner) buildManager() *groupchat.Manager {
	chat := &groupchat.GroupChat{
		Agents:            r.team.Agents(),
		MaxRound:          r.cfg.Chat.MaxRound,
		SendIntroductions: r.cfg.Chat.SendIntroductions,
	}

	// Selection stops on any mention of the token, termination only on a
	// message ending with it (in suffix mode).
	cycle := groupchat.NewCycle(agents.Transitions(), groupchat.ContainsTermination(r.cfg.Chat.TerminationToken))

	var waiter groupchat.Waiter = groupchat.NoWait{}
	if r.cfg.Chat.WaitsEnabled() {
		waiter = groupchat.NewTurnWaiter(r.cfg.Chat.TurnWait, agents.WaitAfter()...)
	}

	observers := []groupchat.Observer{r.printer, r.metrics, r.stats}
	if r.audit != nil {
		observers = append(observers, audit.NewObserver(r.audit))
	}

	return groupchat.NewManager(chat, cycle,
		groupchat.WithTermination(groupchat.NewTermination(r.cfg.Chat.TerminationToken, r.cfg.Chat.TerminationMatch)),
		groupchat.WithWaiter(waiter),
		groupchat.WithObservers(observers...),
		groupchat.WithTracer(r.tracing.Tracer("troubleshooter/groupchat")),
	)
}

// DefaultAuditPath is ~/.troubleshooter/sessions/<session>.audit.log.
func DefaultAuditPath(sessionID string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory for the audit log: %w", err)
	}
	return filepath.Join(home, ".troubleshooter", "sessions", sessionID+".audit.log"), nil
}

// SessionID returns the session identifier.
func (r *Runner) SessionID() string { return r.sessionID }

// AuditPath returns the audit log path, empty when auditing is disabled.
func (r *Runner) AuditPath() string {
	if r.audit == nil {
		return ""
	}
	return r.audit.Path()
}

// Metrics returns the session instruments.
func (r *Runner) Metrics() *metrics.Metrics { return r.metrics }

// Team returns the agents.
func (r *Runner) Team() *agents.Team { return r.team }

// Run starts the observability components, runs the chat and stops them
// again. The final message is printed even in silent mode. A result is
// returned whenever the chat started.
func (r *Runner) Run(ctx context.Context) (*groupchat.Result, error) {
	if err := r.components.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start session components: %w", err)
	}

	if r.audit != nil {
		if err := r.audit.LogSessionStart(audit.SessionInfo{
			Provider:  r.provider.Name(),
			Model:     r.provider.Model(),
			Issue:     r.opts.Issue,
			Runbooks:  r.runbooks.Titles(),
			HubDir:    r.opts.HubDir,
			SpokeDir:  r.opts.SpokeDir,
			HumanMode: r.cfg.Chat.HumanInputMode,
		}); err != nil {
			r.logger.Warn("Failed to write audit event: %v", err)
		}
	}

	start := time.Now()
	result, err := r.manager.Initiate(ctx, r.team.User, r.opts.Issue)
	if r.prompter != nil {
		_ = r.prompter.Close()
	}
	if result != nil {
		r.printer.Final(result)
		r.logger.InfoWithFields("Session finished",
			logging.Field("reason", result.Reason),
			logging.Field("rounds", result.Rounds),
			logging.Field("duration", time.Since(start).Round(time.Millisecond)))
	}

	// Stop with a fresh context so a canceled run still flushes its files.
	if stopErr := r.components.Stop(context.Background()); stopErr != nil {
		err = errors.Join(err, fmt.Errorf("failed to stop session components: %w", stopErr))
	}
	return result, err
}
