package groupchat

import "time"

// Observer is notified as the chat progresses. Implementations must not block
// for long; they run on the chat goroutine.
type Observer interface {
	// MessageAppended fires for every message added to the history. round is
	// the 1-based position of the message.
	MessageAppended(msg Message, round int)
	// SpeakerSelected fires once the next speaker is known and any pause
	// before its turn is over.
	SpeakerSelected(speaker Agent, round int)
	// Waited fires after a non-zero rate-limit pause.
	Waited(after Agent, d time.Duration)
	// Finished fires once with the final result.
	Finished(result *Result, err error)
}

// NopObserver implements Observer with no-ops, for embedding.
type NopObserver struct{}

func (NopObserver) MessageAppended(Message, int) {}
func (NopObserver) SpeakerSelected(Agent, int)   {}
func (NopObserver) Waited(Agent, time.Duration)  {}
func (NopObserver) Finished(*Result, error)      {}

type observers []Observer

func (o observers) MessageAppended(msg Message, round int) {
	for _, obs := range o {
		obs.MessageAppended(msg, round)
	}
}

func (o observers) SpeakerSelected(speaker Agent, round int) {
	for _, obs := range o {
		obs.SpeakerSelected(speaker, round)
	}
}

func (o observers) Waited(after Agent, d time.Duration) {
	for _, obs := range o {
		obs.Waited(after, d)
	}
}

func (o observers) Finished(result *Result, err error) {
	for _, obs := range o {
		obs.Finished(result, err)
	}
}
