// Package agents defines the four participants of a troubleshooting session:
// the User who reports the issue, the Planner and Analyst backed by an LLM,
// and the Executor that runs the Analyst's code.
package agents

import (
	"context"
	"time"

	"github.com/moolen/troubleshooter/internal/agent/executor"
	"github.com/moolen/troubleshooter/internal/agent/groupchat"
	"github.com/moolen/troubleshooter/internal/agent/provider"
)

// Agent names as they appear in the transcript.
const (
	UserName     = "User"
	PlannerName  = "Planner"
	AnalystName  = "Analyst"
	ExecutorName = "Executor"
)

// Agent descriptions, also used for the introduction preamble.
const (
	UserDescription     = "User reports the issue to troubleshoot."
	PlannerDescription  = "Planner analyzes the User issues and creating diagnosis plan."
	AnalystDescription  = "Analyst analyzes the Planner's plan and converts the plan to executable command/scripts."
	ExecutorDescription = "Executor executes the code written by the Analyst and reports the result to Planner."
)

// ExitInput typed at the human prompt ends the conversation.
const ExitInput = "exit"

// Recorder receives what the agents do outside the shared history.
type Recorder interface {
	LLMRequest(agent string, p provider.Provider, resp *provider.Response, d time.Duration, err error)
	Execution(agent string, block executor.BlockResult)
	HumanInput(agent, input string)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) LLMRequest(string, provider.Provider, *provider.Response, time.Duration, error) {}
func (NopRecorder) Execution(string, executor.BlockResult)                                         {}
func (NopRecorder) HumanInput(string, string)                                                      {}

// HumanInput asks the operator for input before an agent replies.
type HumanInput interface {
	Prompt(ctx context.Context, agent string, history []groupchat.Message) (string, error)
}

// CodeRunner executes the code blocks of a message.
type CodeRunner interface {
	Run(ctx context.Context, message string) (*executor.Result, error)
}

// Transitions is the fixed speaking order.
func Transitions() map[string]string {
	return map[string]string{
		UserName:     PlannerName,
		PlannerName:  AnalystName,
		AnalystName:  ExecutorName,
		ExecutorName: PlannerName,
	}
}

// WaitAfter lists the agents whose turns are followed by the rate-limit wait.
func WaitAfter() []string {
	return []string{PlannerName, ExecutorName}
}
