package audit

import (
	"time"

	"github.com/moolen/troubleshooter/internal/agent/groupchat"
	"github.com/moolen/troubleshooter/internal/logging"
)

// Observer mirrors chat progress into the audit log. Write failures are
// logged, never surfaced to the chat.
type Observer struct {
	audit   *Logger
	started time.Time
	logger  *logging.Logger
}

// NewObserver returns a groupchat.Observer writing to l.
func NewObserver(l *Logger) *Observer {
	return &Observer{
		audit:   l,
		started: time.Now(),
		logger:  logging.GetLogger("audit"),
	}
}

func (o *Observer) check(err error) {
	if err != nil {
		o.logger.Warn("Failed to write audit event: %v", err)
	}
}

// MessageAppended implements groupchat.Observer.
func (o *Observer) MessageAppended(msg groupchat.Message, round int) {
	o.check(o.audit.LogMessage(msg.Name, string(msg.Role), msg.Content, round))
}

// SpeakerSelected implements groupchat.Observer.
func (o *Observer) SpeakerSelected(speaker groupchat.Agent, round int) {
	o.check(o.audit.LogSpeakerSelected(speaker.Name(), round))
}

// Waited implements groupchat.Observer.
func (o *Observer) Waited(after groupchat.Agent, d time.Duration) {
	o.check(o.audit.LogWait(after.Name(), d))
}

// Finished implements groupchat.Observer.
func (o *Observer) Finished(result *groupchat.Result, err error) {
	if err != nil {
		o.check(o.audit.LogError("", err))
	}
	o.check(o.audit.LogSessionEnd(string(result.Reason), result.Rounds, time.Since(o.started)))
}
