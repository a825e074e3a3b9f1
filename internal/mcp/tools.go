package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/moolen/troubleshooter/internal/agent/groupchat"
	"github.com/moolen/troubleshooter/internal/agent/runner"
	"github.com/moolen/troubleshooter/internal/config"
	"github.com/moolen/troubleshooter/internal/mustgather"
	"github.com/moolen/troubleshooter/internal/runbook"
)

// TroubleshootInput are the arguments of the troubleshoot tool.
type TroubleshootInput struct {
	Issue     string `json:"issue"`
	HubMG     string `json:"hub_mg"`
	ClusterMG string `json:"cluster_mg,omitempty"`
	Runbooks  string `json:"runbooks,omitempty"`
}

// TroubleshootOutput is the outcome of one session.
type TroubleshootOutput struct {
	SessionID  string              `json:"session_id"`
	Reason     string              `json:"reason"`
	Rounds     int                 `json:"rounds"`
	Final      string              `json:"final"`
	FinalFrom  string              `json:"final_from,omitempty"`
	AuditLog   string              `json:"audit_log,omitempty"`
	Transcript []groupchat.Message `json:"transcript"`
}

// TroubleshootTool runs a full unattended session.
type TroubleshootTool struct {
	Config          *config.Config
	DefaultRunbooks string
	Version         string
}

// Execute runs the session. Human input is never requested and the
// transcript is returned instead of printed.
func (t *TroubleshootTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var params TroubleshootInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if strings.TrimSpace(params.Issue) == "" {
		return nil, errors.New("issue is required")
	}
	if params.HubMG == "" {
		return nil, errors.New("hub_mg is required")
	}
	if params.Runbooks == "" {
		params.Runbooks = t.DefaultRunbooks
	}
	if params.Runbooks == "" {
		return nil, errors.New("runbooks is required when no default is configured")
	}

	cfg := *t.Config
	cfg.Chat.HumanInputMode = config.HumanInputNever
	cfg.Chat.Silent = true

	r, err := runner.New(ctx, runner.Options{
		Config:   &cfg,
		Issue:    params.Issue,
		Runbooks: params.Runbooks,
		HubDir:   params.HubMG,
		SpokeDir: params.ClusterMG,
		Version:  t.Version,
		Stdin:    strings.NewReader(""),
		Stdout:   io.Discard,
	})
	if err != nil {
		return nil, err
	}

	result, err := r.Run(ctx)
	if result == nil {
		return nil, err
	}
	if err != nil && result.Reason != groupchat.ReasonCanceled {
		return nil, err
	}

	out := &TroubleshootOutput{
		SessionID:  r.SessionID(),
		Reason:     string(result.Reason),
		Rounds:     result.Rounds,
		AuditLog:   r.AuditPath(),
		Transcript: result.Messages,
	}
	if last, ok := result.Last(); ok {
		out.Final = last.Content
		out.FinalFrom = last.Name
	}
	return out, nil
}

// SummaryInput are the arguments of the mustgather_summary tool.
type SummaryInput struct {
	Path string `json:"path"`
}

// SummaryOutput carries the structured summary and its text rendering.
type SummaryOutput struct {
	mustgather.Summary
	Text string `json:"text"`
}

// SummaryTool summarizes a must-gather bundle.
type SummaryTool struct{}

// Execute loads the bundle at path.
func (t *SummaryTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var params SummaryInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if params.Path == "" {
		return nil, errors.New("path is required")
	}

	bundle, err := mustgather.Load(ctx, params.Path)
	if err != nil {
		return nil, err
	}
	summary := bundle.Summarize()
	return &SummaryOutput{Summary: summary, Text: summary.String()}, nil
}

// RunbooksInput are the arguments of the runbooks_list tool.
type RunbooksInput struct {
	Path string `json:"path,omitempty"`
}

// RunbookInfo describes one runbook without its content.
type RunbookInfo struct {
	Path     string   `json:"path"`
	Title    string   `json:"title"`
	Headings []string `json:"headings,omitempty"`
	Bytes    int      `json:"bytes"`
}

// RunbooksOutput lists the runbooks below a root.
type RunbooksOutput struct {
	Root     string        `json:"root"`
	Runbooks []RunbookInfo `json:"runbooks"`
}

// RunbooksTool lists runbook titles and headings.
type RunbooksTool struct {
	DefaultPath string
}

// Execute loads the runbooks at path, or the default path.
func (t *RunbooksTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var params RunbooksInput
	if len(input) > 0 && string(input) != "null" {
		if err := json.Unmarshal(input, &params); err != nil {
			return nil, fmt.Errorf("invalid input: %w", err)
		}
	}
	if params.Path == "" {
		params.Path = t.DefaultPath
	}
	if params.Path == "" {
		return nil, errors.New("path is required when no default is configured")
	}

	set, err := runbook.Load(params.Path)
	if err != nil {
		return nil, err
	}
	out := &RunbooksOutput{Root: set.Root, Runbooks: make([]RunbookInfo, 0, len(set.Runbooks))}
	for _, rb := range set.Runbooks {
		out.Runbooks = append(out.Runbooks, RunbookInfo{
			Path:     rb.Path,
			Title:    rb.Title,
			Headings: rb.Headings,
			Bytes:    len(rb.Content),
		})
	}
	return out, nil
}
