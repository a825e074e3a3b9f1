// Package groupchat runs a turn-based conversation between agents that share
// one history. A speaker selector picks who talks next, a termination
// predicate ends the chat and an optional waiter paces turns.
package groupchat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ManagerName is the recipient shown for every message and the author of the
// introduction preamble.
const ManagerName = "chat_manager"

// Role classifies a message in the shared history.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one entry in the shared history.
type Message struct {
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Reply is what an agent produces for its turn. Terminate ends the chat
// without appending Content.
type Reply struct {
	Content   string
	Terminate bool
}

// Agent is a chat participant.
type Agent interface {
	Name() string
	Description() string
	// Reply produces the agent's next message given the full history,
	// introduction preamble first when one was sent.
	Reply(ctx context.Context, history []Message) (Reply, error)
}

// Reason explains why a chat ended.
type Reason string

const (
	ReasonTerminated Reason = "terminated"
	ReasonMaxRound   Reason = "max_round"
	ReasonNoSpeaker  Reason = "no_speaker"
	ReasonAgentExit  Reason = "agent_exit"
	ReasonCanceled   Reason = "canceled"
	ReasonError      Reason = "error"
)

// Result is the outcome of Manager.Initiate.
type Result struct {
	Messages []Message
	Rounds   int
	Reason   Reason
}

// Last returns the final message, if any.
func (r *Result) Last() (Message, bool) {
	if r == nil || len(r.Messages) == 0 {
		return Message{}, false
	}
	return r.Messages[len(r.Messages)-1], true
}

var (
	// ErrNoAgents is returned when a chat has no participants.
	ErrNoAgents = errors.New("group chat has no agents")
	// ErrUnknownAgent is returned when the opening agent is not a participant.
	ErrUnknownAgent = errors.New("agent is not part of the group chat")
)

// GroupChat holds the participants and the shared history.
type GroupChat struct {
	Agents            []Agent
	Messages          []Message
	MaxRound          int
	SendIntroductions bool
}

// DefaultMaxRound bounds chats that do not set MaxRound.
const DefaultMaxRound = 50

// Agent returns the participant with the given name.
func (g *GroupChat) Agent(name string) Agent {
	for _, a := range g.Agents {
		if a.Name() == name {
			return a
		}
	}
	return nil
}

// LastMessage returns the newest message in the history.
func (g *GroupChat) LastMessage() (Message, bool) {
	if len(g.Messages) == 0 {
		return Message{}, false
	}
	return g.Messages[len(g.Messages)-1], true
}

// Introduction lists every participant with its description.
func (g *GroupChat) Introduction() Message {
	var b strings.Builder
	b.WriteString("Hello everyone. We have assembled a great team today to answer questions and solve tasks. In attendance are:\n\n")
	for _, a := range g.Agents {
		fmt.Fprintf(&b, "%s: %s\n", a.Name(), a.Description())
	}
	return Message{
		Name:    ManagerName,
		Role:    RoleSystem,
		Content: b.String(),
	}
}

// History is what agents see: the preamble (when enabled) and a copy of the
// messages.
func (g *GroupChat) History() []Message {
	history := make([]Message, 0, len(g.Messages)+1)
	if g.SendIntroductions {
		history = append(history, g.Introduction())
	}
	return append(history, g.Messages...)
}

func (g *GroupChat) maxRound() int {
	if g.MaxRound <= 0 {
		return DefaultMaxRound
	}
	return g.MaxRound
}

func (g *GroupChat) contains(agent Agent) bool {
	for _, a := range g.Agents {
		if a == agent {
			return true
		}
	}
	return false
}
