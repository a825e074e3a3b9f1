// Package commands implements the slash commands available at the human
// input prompt in debug mode.
package commands

import "github.com/moolen/troubleshooter/internal/agent/groupchat"

// Command is a parsed slash command.
type Command struct {
	Name string
	Args []string
}

// Result is the outcome of a command. Quit asks the prompt to end the chat.
type Result struct {
	Success bool
	Message string
	Quit    bool
}

// Entry describes a command for help and completion.
type Entry struct {
	Name        string // without the leading slash
	Description string
	Usage       string
}

// Context is the session state handlers can read.
type Context struct {
	SessionID    string
	Rounds       int
	LLMRequests  int
	InputTokens  int
	OutputTokens int
	Executions   int
	Runbooks     []string
	History      []groupchat.Message
}

// Handler executes one command.
type Handler interface {
	Entry() Entry
	Execute(ctx *Context, args []string) Result
}
