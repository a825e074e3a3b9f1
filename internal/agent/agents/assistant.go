package agents

import (
	"context"
	"strings"
	"time"

	"github.com/moolen/troubleshooter/internal/agent/groupchat"
	"github.com/moolen/troubleshooter/internal/agent/provider"
	"github.com/moolen/troubleshooter/internal/logging"
)

// AssistantConfig configures an LLM-backed agent.
type AssistantConfig struct {
	Name         string
	Description  string
	SystemPrompt string
	Provider     provider.Provider

	// IsTermination marks messages the assistant does not answer.
	IsTermination groupchat.TerminationFunc
	// Human, when set, is asked before every reply.
	Human    HumanInput
	Recorder Recorder
}

// Assistant answers with a completion of the shared history.
type Assistant struct {
	cfg    AssistantConfig
	logger *logging.Logger
}

// NewAssistant creates an assistant agent.
func NewAssistant(cfg AssistantConfig) *Assistant {
	if cfg.Recorder == nil {
		cfg.Recorder = NopRecorder{}
	}
	return &Assistant{
		cfg:    cfg,
		logger: logging.GetLogger("agent.agents").WithField("agent", cfg.Name),
	}
}

func (a *Assistant) Name() string        { return a.cfg.Name }
func (a *Assistant) Description() string { return a.cfg.Description }

// SystemPrompt returns the rendered system prompt.
func (a *Assistant) SystemPrompt() string { return a.cfg.SystemPrompt }

// Reply implements groupchat.Agent.
func (a *Assistant) Reply(ctx context.Context, history []groupchat.Message) (groupchat.Reply, error) {
	if len(history) > 0 && a.cfg.IsTermination != nil && a.cfg.IsTermination(history[len(history)-1]) {
		a.logger.Debug("Last message is a termination message, not replying")
		return groupchat.Reply{Terminate: true}, nil
	}

	if a.cfg.Human != nil {
		input, err := a.cfg.Human.Prompt(ctx, a.cfg.Name, history)
		if err != nil {
			return groupchat.Reply{}, err
		}
		a.cfg.Recorder.HumanInput(a.cfg.Name, input)
		switch input = strings.TrimSpace(input); input {
		case "":
		case ExitInput:
			return groupchat.Reply{Terminate: true}, nil
		default:
			return groupchat.Reply{Content: input}, nil
		}
	}

	messages := RenderHistory(a.cfg.Name, history)
	start := time.Now()
	resp, err := a.cfg.Provider.Chat(ctx, a.cfg.SystemPrompt, messages)
	a.cfg.Recorder.LLMRequest(a.cfg.Name, a.cfg.Provider, resp, time.Since(start), err)
	if err != nil {
		return groupchat.Reply{}, err
	}

	a.logger.DebugWithFields("LLM reply",
		logging.Field("input_tokens", resp.Usage.InputTokens),
		logging.Field("output_tokens", resp.Usage.OutputTokens),
		logging.Field("stop_reason", resp.StopReason))
	return groupchat.Reply{Content: resp.Content}, nil
}

// RenderHistory converts the shared history into the conversation self sees:
// its own messages are assistant turns, everything else is a user turn
// prefixed with the speaker's name. Consecutive turns of the same role are
// merged, as the chat APIs expect alternating roles.
func RenderHistory(self string, history []groupchat.Message) []provider.Message {
	out := make([]provider.Message, 0, len(history))
	for _, m := range history {
		msg := provider.Message{Role: provider.RoleUser, Content: m.Name + ": " + m.Content}
		if m.Name == self {
			msg = provider.Message{Role: provider.RoleAssistant, Content: m.Content}
		}
		if n := len(out); n > 0 && out[n-1].Role == msg.Role {
			out[n-1].Content += "\n\n" + msg.Content
			continue
		}
		out = append(out, msg)
	}
	return out
}
