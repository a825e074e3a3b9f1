package agents

import (
	"context"
	"errors"

	"github.com/moolen/troubleshooter/internal/agent/executor"
	"github.com/moolen/troubleshooter/internal/agent/groupchat"
)

// NoCodeBlocksReply is posted when the previous message has nothing to run.
const NoCodeBlocksReply = "exitcode: 1 (execution failed)\nCode output: no code blocks found in the previous message"

// Executor runs the code in the last message and reports the result.
type Executor struct {
	runner   CodeRunner
	recorder Recorder
}

// NewExecutor creates the Executor agent.
func NewExecutor(runner CodeRunner, recorder Recorder) *Executor {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Executor{runner: runner, recorder: recorder}
}

func (e *Executor) Name() string        { return ExecutorName }
func (e *Executor) Description() string { return ExecutorDescription }

// Reply implements groupchat.Agent.
func (e *Executor) Reply(ctx context.Context, history []groupchat.Message) (groupchat.Reply, error) {
	if len(history) == 0 {
		return groupchat.Reply{Content: NoCodeBlocksReply}, nil
	}
	result, err := e.runner.Run(ctx, history[len(history)-1].Content)
	if errors.Is(err, executor.ErrNoCodeBlocks) {
		return groupchat.Reply{Content: NoCodeBlocksReply}, nil
	}
	if err != nil {
		return groupchat.Reply{}, err
	}
	for _, b := range result.Blocks {
		e.recorder.Execution(ExecutorName, b)
	}
	return groupchat.Reply{Content: result.Format()}, nil
}
