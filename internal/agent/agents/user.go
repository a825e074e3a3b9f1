package agents

import (
	"context"
	"strings"

	"github.com/moolen/troubleshooter/internal/agent/groupchat"
)

// User represents the operator. It opens the chat and is never selected by
// the fixed cycle; when asked anyway it forwards human input or ends the
// chat.
type User struct {
	human    HumanInput
	recorder Recorder
}

// NewUser creates the user proxy. human may be nil.
func NewUser(human HumanInput, recorder Recorder) *User {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &User{human: human, recorder: recorder}
}

func (u *User) Name() string        { return UserName }
func (u *User) Description() string { return UserDescription }

// Reply implements groupchat.Agent.
func (u *User) Reply(ctx context.Context, history []groupchat.Message) (groupchat.Reply, error) {
	if u.human == nil {
		return groupchat.Reply{Terminate: true}, nil
	}
	input, err := u.human.Prompt(ctx, UserName, history)
	if err != nil {
		return groupchat.Reply{}, err
	}
	u.recorder.HumanInput(UserName, input)
	input = strings.TrimSpace(input)
	if input == "" || input == ExitInput {
		return groupchat.Reply{Terminate: true}, nil
	}
	return groupchat.Reply{Content: input}, nil
}
