package commands

// quitHandler ends the conversation; it is registered as /quit and /exit.
type quitHandler struct {
	name string
}

func (h *quitHandler) Entry() Entry {
	return Entry{Name: h.name, Description: "End the conversation", Usage: "/" + h.name}
}

func (h *quitHandler) Execute(*Context, []string) Result {
	return Result{Success: true, Message: "Goodbye!", Quit: true}
}
