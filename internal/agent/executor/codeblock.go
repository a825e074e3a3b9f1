// Package executor extracts fenced code blocks from a message and runs them
// locally, one file per block, inside a work directory.
package executor

import (
	"regexp"
	"strings"
)

// CodeBlock is a fenced block from a message.
type CodeBlock struct {
	Language string
	Code     string
}

var codeBlockPattern = regexp.MustCompile("(?s)```[ \\t]*([\\w+-]*)[ \\t]*\\r?\\n(.*?)\\r?\\n?[ \\t]*```")

// ExtractCodeBlocks returns the fenced blocks in text, in order. Blocks without
// a language tag get DefaultLanguage.
func ExtractCodeBlocks(text string) []CodeBlock {
	matches := codeBlockPattern.FindAllStringSubmatch(text, -1)
	blocks := make([]CodeBlock, 0, len(matches))
	for _, m := range matches {
		lang := strings.ToLower(strings.TrimSpace(m[1]))
		if lang == "" {
			lang = DefaultLanguage
		}
		blocks = append(blocks, CodeBlock{Language: lang, Code: m[2]})
	}
	return blocks
}
