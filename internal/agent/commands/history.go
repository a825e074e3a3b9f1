package commands

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	defaultHistory = 5
	previewLen     = 100
)

type historyHandler struct{}

func (h *historyHandler) Entry() Entry {
	return Entry{Name: "history", Description: "Show the last messages", Usage: "/history [n]"}
}

func (h *historyHandler) Execute(ctx *Context, args []string) Result {
	n := defaultHistory
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			return Result{Message: fmt.Sprintf("Invalid message count: %s", args[0])}
		}
		n = v
	}
	if len(ctx.History) == 0 {
		return Result{Success: true, Message: "No messages yet."}
	}

	start := max(len(ctx.History)-n, 0)
	var msg strings.Builder
	for i := start; i < len(ctx.History); i++ {
		m := ctx.History[i]
		fmt.Fprintf(&msg, "%3d  %-10s %s\n", i+1, m.Name, preview(m.Content))
	}
	return Result{Success: true, Message: msg.String()}
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > previewLen {
		return s[:previewLen-3] + "..."
	}
	return s
}
