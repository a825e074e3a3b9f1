package groupchat

import "strings"

// DefaultTerminationToken ends a chat when a message finishes with it.
const DefaultTerminationToken = "TERMINATE"

// TerminationFunc reports whether a message ends the chat.
type TerminationFunc func(Message) bool

// SuffixTermination matches messages whose right-trimmed content ends with
// token.
func SuffixTermination(token string) TerminationFunc {
	return func(m Message) bool {
		return strings.HasSuffix(strings.TrimRight(m.Content, " \t\r\n"), token)
	}
}

// ContainsTermination matches messages mentioning token anywhere.
func ContainsTermination(token string) TerminationFunc {
	return func(m Message) bool {
		return strings.Contains(m.Content, token)
	}
}

// NewTermination returns the predicate for a match mode, "suffix" or
// "contains". Unknown modes fall back to suffix.
func NewTermination(token, mode string) TerminationFunc {
	if token == "" {
		token = DefaultTerminationToken
	}
	if mode == "contains" {
		return ContainsTermination(token)
	}
	return SuffixTermination(token)
}
