package commands

import (
	"fmt"
	"strings"
)

type runbooksHandler struct{}

func (h *runbooksHandler) Entry() Entry {
	return Entry{Name: "runbooks", Description: "List the loaded runbooks", Usage: "/runbooks"}
}

func (h *runbooksHandler) Execute(ctx *Context, _ []string) Result {
	if len(ctx.Runbooks) == 0 {
		return Result{Success: true, Message: "No runbooks loaded."}
	}
	var msg strings.Builder
	for i, title := range ctx.Runbooks {
		fmt.Fprintf(&msg, "  %d. %s\n", i+1, title)
	}
	return Result{Success: true, Message: msg.String()}
}
