// Package console renders the chat transcript on the terminal and reads
// human input in debug mode.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/moolen/troubleshooter/internal/agent/groupchat"
	"github.com/moolen/troubleshooter/internal/logging"
	"golang.org/x/term"
)

const (
	separatorWidth = 80
	defaultWrap    = 100
)

// Options configures a Printer.
type Options struct {
	// Silent suppresses the transcript; Final still prints.
	Silent bool
	// Styled forces styling on or off. Nil styles output only when it is a
	// terminal.
	Styled *bool
}

// Printer writes the transcript. It implements groupchat.Observer.
type Printer struct {
	mu       sync.Mutex
	out      io.Writer
	silent   bool
	styled   bool
	markdown *glamour.TermRenderer
	logger   *logging.Logger
}

// NewPrinter creates a printer writing to out.
func NewPrinter(out io.Writer, opts Options) *Printer {
	p := &Printer{
		out:    out,
		silent: opts.Silent,
		logger: logging.GetLogger("agent.console"),
	}

	width := 0
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.styled = true
		if w, _, err := term.GetSize(int(f.Fd())); err == nil {
			width = w
		}
	}
	if opts.Styled != nil {
		p.styled = *opts.Styled
	}

	if p.styled {
		wrap := defaultWrap
		if width > 8 {
			wrap = width - 4
		}
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(wrap))
		if err != nil {
			p.logger.Warn("Markdown rendering disabled: %v", err)
		} else {
			p.markdown = r
		}
	}
	return p
}

// Styled reports whether output is styled.
func (p *Printer) Styled() bool { return p.styled }

// MessageAppended prints "<speaker> (to chat_manager):" and the content.
func (p *Printer) MessageAppended(msg groupchat.Message, _ int) {
	if p.silent {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	header := speakerStyle.Render(msg.Name) + recipientStyle.Render(" (to "+groupchat.ManagerName+"):")
	if !p.styled {
		header = msg.Name + " (to " + groupchat.ManagerName + "):"
	}
	fmt.Fprintf(p.out, "%s\n\n%s\n\n%s\n", header, p.render(msg.Content), p.separator())
}

// SpeakerSelected prints "Next speaker: <name>".
func (p *Printer) SpeakerSelected(speaker groupchat.Agent, _ int) {
	if p.silent {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	line := "Next speaker: " + speaker.Name()
	if p.styled {
		line = nextSpeakerStyle.Render(line)
	}
	fmt.Fprintf(p.out, "%s\n\n", line)
}

// Waited logs the pause; the transcript does not show it.
func (p *Printer) Waited(after groupchat.Agent, d time.Duration) {
	p.logger.Debug("Waited %s after %s", d, after.Name())
}

// Finished is a no-op; the caller prints the final answer with Final.
func (p *Printer) Finished(*groupchat.Result, error) {}

// Final prints the last message of a chat, even in silent mode.
func (p *Printer) Final(result *groupchat.Result) {
	msg, ok := result.Last()
	if !ok {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	title := fmt.Sprintf("Final answer from %s (%s after %d rounds):", msg.Name, result.Reason, result.Rounds)
	if p.styled {
		title = finalStyle.Render(title)
	}
	fmt.Fprintf(p.out, "%s\n\n%s\n", title, p.render(msg.Content))
}

// Info prints a dimmed informational block.
func (p *Printer) Info(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.styled {
		text = infoStyle.Render(text)
	}
	fmt.Fprintln(p.out, text)
}

// Error prints an error line.
func (p *Printer) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	line := "Error: " + err.Error()
	if p.styled {
		line = errorStyle.Render(line)
	}
	fmt.Fprintln(p.out, line)
}

func (p *Printer) render(content string) string {
	if p.markdown == nil {
		return content
	}
	out, err := p.markdown.Render(content)
	if err != nil {
		p.logger.Debug("Markdown render failed: %v", err)
		return content
	}
	return strings.Trim(out, "\n")
}

func (p *Printer) separator() string {
	line := strings.Repeat("-", separatorWidth)
	if p.styled {
		return separatorStyle.Render(line)
	}
	return line
}
