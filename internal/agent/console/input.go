package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/moolen/troubleshooter/internal/agent/commands"
	"github.com/moolen/troubleshooter/internal/agent/groupchat"
	"golang.org/x/term"
)

// StateFunc returns the session state slash commands read.
type StateFunc func() *commands.Context

// Prompter asks the operator for input before an agent replies. Slash
// commands are handled locally and re-prompt.
type Prompter struct {
	in       io.Reader
	out      io.Writer
	printer  *Printer
	registry *commands.Registry
	state    StateFunc
	tty      bool

	start     sync.Once
	closeOnce sync.Once
	lines     chan line
	done      chan struct{}
	exited    chan struct{}
	eof       bool
}

type line struct {
	text string
	err  error
}

// NewPrompter creates a prompter. When in is a terminal the line editor is a
// bubbletea text input with command completion, otherwise lines are read as
// they come.
func NewPrompter(in io.Reader, out io.Writer, printer *Printer, registry *commands.Registry, state StateFunc) *Prompter {
	if registry == nil {
		registry = commands.Default()
	}
	if state == nil {
		state = func() *commands.Context { return &commands.Context{} }
	}
	p := &Prompter{
		in:       in,
		out:      out,
		printer:  printer,
		registry: registry,
		state:    state,
		lines:    make(chan line, 1),
		done:     make(chan struct{}),
		exited:   make(chan struct{}),
	}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.tty = true
	}
	return p
}

// PromptText is shown before every read.
func PromptText(agent string) string {
	return fmt.Sprintf("Replying as %s. Provide feedback to %s. Press enter to skip and use auto-reply, or type 'exit' to end the conversation:",
		agent, groupchat.ManagerName)
}

// Prompt implements agents.HumanInput. io.EOF is read as "exit".
func (p *Prompter) Prompt(ctx context.Context, agent string, history []groupchat.Message) (string, error) {
	for {
		fmt.Fprintln(p.out, PromptText(agent))
		input, err := p.read(ctx)
		if errors.Is(err, io.EOF) {
			return "exit", nil
		}
		if err != nil {
			return "", err
		}

		cmd := commands.ParseCommand(strings.TrimSpace(input))
		if cmd == nil {
			return input, nil
		}
		state := p.state()
		if state.History == nil {
			state.History = history
		}
		result := p.registry.Execute(state, cmd)
		if p.printer != nil {
			p.printer.Info(result.Message)
		} else {
			fmt.Fprintln(p.out, result.Message)
		}
		if result.Quit {
			return "exit", nil
		}
	}
}

func (p *Prompter) read(ctx context.Context) (string, error) {
	if p.tty {
		return p.readTerminal(ctx)
	}

	if p.eof {
		return "", io.EOF
	}
	select {
	case <-p.done:
		return "", io.EOF
	default:
	}
	p.start.Do(func() { go p.readLines() })

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l := <-p.lines:
		if l.err != nil {
			p.eof = true
		}
		return l.text, l.err
	}
}

// Close stops the line reader. Later prompts read as io.EOF. A reader blocked
// inside the underlying Read returns once that Read does.
func (p *Prompter) Close() error {
	p.closeOnce.Do(func() { close(p.done) })
	return nil
}

// readLines feeds p.lines until the input ends or the prompter is closed. A
// trailing line without a newline is delivered before io.EOF. Lines that
// arrive while no prompt is waiting are kept as type-ahead for the next one.
func (p *Prompter) readLines() {
	defer close(p.exited)
	r := bufio.NewReader(p.in)
	for {
		text, err := r.ReadString('\n')
		if text != "" && !p.send(line{text: strings.TrimRight(text, "\r\n")}) {
			return
		}
		if err != nil {
			p.send(line{err: err})
			return
		}
	}
}

func (p *Prompter) send(l line) bool {
	select {
	case p.lines <- l:
		return true
	case <-p.done:
		return false
	}
}

func (p *Prompter) readTerminal(ctx context.Context) (string, error) {
	m := newInputModel(p.registry.Suggestions())
	final, err := tea.NewProgram(m, tea.WithContext(ctx), tea.WithInput(p.in), tea.WithOutput(p.out)).Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	result := final.(inputModel)
	if result.aborted {
		return "", io.EOF
	}
	return result.input.Value(), nil
}

// inputModel is a single-line editor that submits on enter and aborts on
// ctrl+c or esc.
type inputModel struct {
	input   textinput.Model
	done    bool
	aborted bool
}

func newInputModel(suggestions []string) inputModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.PromptStyle = inputPromptStyle
	ti.Placeholder = "enter to auto-reply, exit to stop, /help for commands"
	ti.CharLimit = 4000
	ti.ShowSuggestions = true
	ti.SetSuggestions(suggestions)
	ti.Focus()
	return inputModel{input: ti}
}

func (m inputModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			m.aborted = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m inputModel) View() string {
	if m.done || m.aborted {
		return m.input.Prompt + m.input.Value() + "\n"
	}
	return m.input.View()
}
