package commands

import (
	"fmt"
	"strings"
)

type helpHandler struct {
	registry *Registry
}

func (h *helpHandler) Entry() Entry {
	return Entry{Name: "help", Description: "Show available commands", Usage: "/help"}
}

func (h *helpHandler) Execute(*Context, []string) Result {
	var msg strings.Builder
	msg.WriteString("Press enter to let the agent reply, type exit to end the conversation,\n")
	msg.WriteString("or type a message to send it instead.\n\nCommands:\n")
	for _, e := range h.registry.Entries() {
		fmt.Fprintf(&msg, "  %-16s %s\n", e.Usage, e.Description)
	}
	return Result{Success: true, Message: msg.String()}
}
