package commands

import (
	"sort"
	"strings"
	"sync"
)

// Registry maps command names to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Default returns a registry holding every built-in command.
func Default() *Registry {
	r := NewRegistry()
	r.Register(&helpHandler{registry: r})
	r.Register(&statsHandler{})
	r.Register(&historyHandler{})
	r.Register(&runbooksHandler{})
	r.Register(&quitHandler{name: "quit"})
	r.Register(&quitHandler{name: "exit"})
	return r
}

// Register adds h under its entry name, replacing any previous handler.
func (r *Registry) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[h.Entry().Name] = h
}

// Execute runs cmd. Unknown commands yield an unsuccessful result that
// suggests the closest match.
func (r *Registry) Execute(ctx *Context, cmd *Command) Result {
	r.mu.RLock()
	h, ok := r.handlers[cmd.Name]
	r.mu.RUnlock()

	if !ok {
		msg := "Unknown command: /" + cmd.Name
		if matches := r.FuzzyMatch(cmd.Name); len(matches) > 0 {
			msg += " (did you mean " + matches[0].Usage + "?)"
		} else {
			msg += " (type /help for available commands)"
		}
		return Result{Message: msg}
	}
	return h.Execute(ctx, cmd.Args)
}

// Entries returns every command sorted by name.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(r.handlers))
	for _, h := range r.handlers {
		entries = append(entries, h.Entry())
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// Suggestions returns "/name" for every command, for input completion.
func (r *Registry) Suggestions() []string {
	entries := r.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = "/" + e.Name
	}
	return out
}

// FuzzyMatch ranks entries against query: name prefix first, then name
// substring, then characters in order, then description substring.
func (r *Registry) FuzzyMatch(query string) []Entry {
	entries := r.Entries()
	if query == "" {
		return entries
	}
	query = strings.ToLower(query)

	type scored struct {
		entry Entry
		score int
	}
	var matches []scored
	for _, e := range entries {
		name := strings.ToLower(e.Name)
		var score int
		switch {
		case strings.HasPrefix(name, query):
			score = 100 - (len(name) - len(query))
		case strings.Contains(name, query):
			score = 50
		case inOrder(name, query):
			score = 25
		case strings.Contains(strings.ToLower(e.Description), query):
			score = 10
		default:
			continue
		}
		matches = append(matches, scored{e, score})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	out := make([]Entry, len(matches))
	for i, m := range matches {
		out[i] = m.entry
	}
	return out
}

func inOrder(s, query string) bool {
	qi := 0
	for i := 0; i < len(s) && qi < len(query); i++ {
		if s[i] == query[qi] {
			qi++
		}
	}
	return qi == len(query)
}

// ParseCommand parses "/name args..." and returns nil for anything else.
func ParseCommand(input string) *Command {
	rest, ok := strings.CutPrefix(input, "/")
	if !ok {
		return nil
	}
	parts := strings.Fields(rest)
	if len(parts) == 0 {
		return nil
	}
	return &Command{Name: strings.ToLower(parts[0]), Args: parts[1:]}
}
