package commands

import (
	"fmt"
	"strings"
)

type statsHandler struct{}

func (h *statsHandler) Entry() Entry {
	return Entry{Name: "stats", Description: "Show session statistics", Usage: "/stats"}
}

func (h *statsHandler) Execute(ctx *Context, _ []string) Result {
	var msg strings.Builder
	msg.WriteString("Session Statistics:\n\n")
	fmt.Fprintf(&msg, "  Session ID:      %s\n", ctx.SessionID)
	fmt.Fprintf(&msg, "  Rounds:          %d\n", ctx.Rounds)
	fmt.Fprintf(&msg, "  LLM Requests:    %d\n", ctx.LLMRequests)
	fmt.Fprintf(&msg, "  Input Tokens:    %d\n", ctx.InputTokens)
	fmt.Fprintf(&msg, "  Output Tokens:   %d\n", ctx.OutputTokens)
	fmt.Fprintf(&msg, "  Executions:      %d\n", ctx.Executions)
	return Result{Success: true, Message: msg.String()}
}
