package groupchat

// SpeakerSelector picks the next speaker. A nil agent stops the chat.
type SpeakerSelector interface {
	Next(last Agent, chat *GroupChat) Agent
}

// SelectorFunc adapts a function to SpeakerSelector.
type SelectorFunc func(last Agent, chat *GroupChat) Agent

// Next implements SpeakerSelector.
func (f SelectorFunc) Next(last Agent, chat *GroupChat) Agent {
	return f(last, chat)
}

// Cycle is a fixed transition table keyed by agent name. Agents without an
// entry end the chat.
type Cycle struct {
	transitions map[string]string
	stop        TerminationFunc
}

// NewCycle builds a cycle. stop is consulted on the last message before any
// transition; a nil stop never halts selection.
func NewCycle(transitions map[string]string, stop TerminationFunc) *Cycle {
	t := make(map[string]string, len(transitions))
	for from, to := range transitions {
		t[from] = to
	}
	return &Cycle{transitions: t, stop: stop}
}

// Next implements SpeakerSelector.
func (c *Cycle) Next(last Agent, chat *GroupChat) Agent {
	if last == nil {
		return nil
	}
	if msg, ok := chat.LastMessage(); ok && c.stop != nil && c.stop(msg) {
		return nil
	}

	next, ok := c.transitions[last.Name()]
	if !ok {
		return nil
	}
	return chat.Agent(next)
}
