package groupchat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/moolen/troubleshooter/internal/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Manager drives a GroupChat.
type Manager struct {
	chat      *GroupChat
	selector  SpeakerSelector
	terminate TerminationFunc
	waiter    Waiter
	observers observers
	tracer    trace.Tracer
	now       func() time.Time
	logger    *logging.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithTermination replaces the default suffix TERMINATE predicate.
func WithTermination(fn TerminationFunc) Option {
	return func(m *Manager) { m.terminate = fn }
}

// WithWaiter sets the pause applied between turns.
func WithWaiter(w Waiter) Option {
	return func(m *Manager) { m.waiter = w }
}

// WithObservers appends observers.
func WithObservers(obs ...Observer) Option {
	return func(m *Manager) { m.observers = append(m.observers, obs...) }
}

// WithTracer records a span per session and per turn.
func WithTracer(t trace.Tracer) Option {
	return func(m *Manager) { m.tracer = t }
}

// WithClock overrides message timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a manager for chat using selector.
func NewManager(chat *GroupChat, selector SpeakerSelector, opts ...Option) *Manager {
	m := &Manager{
		chat:      chat,
		selector:  selector,
		terminate: SuffixTermination(DefaultTerminationToken),
		waiter:    NoWait{},
		tracer:    noop.NewTracerProvider().Tracer("groupchat"),
		now:       time.Now,
		logger:    logging.GetLogger("groupchat"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Chat returns the managed chat.
func (m *Manager) Chat() *GroupChat {
	return m.chat
}

// Initiate posts issue as from's opening message and runs the chat until it
// terminates, runs out of rounds, has no next speaker, an agent exits, or ctx
// is canceled. The result is always populated, also when an error is
// returned.
func (m *Manager) Initiate(ctx context.Context, from Agent, issue string) (result *Result, err error) {
	if len(m.chat.Agents) == 0 {
		return nil, ErrNoAgents
	}
	if from == nil || !m.chat.contains(from) {
		return nil, ErrUnknownAgent
	}

	ctx, span := m.tracer.Start(ctx, "groupchat.session", trace.WithAttributes(
		attribute.Int("groupchat.max_round", m.chat.maxRound()),
		attribute.Int("groupchat.agents", len(m.chat.Agents)),
	))
	defer func() {
		span.SetAttributes(
			attribute.String("groupchat.reason", string(result.Reason)),
			attribute.Int("groupchat.rounds", result.Rounds),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		m.observers.Finished(result, err)
	}()

	result = &Result{}
	finish := func(reason Reason, err error) (*Result, error) {
		result.Messages = append([]Message(nil), m.chat.Messages...)
		result.Rounds = len(m.chat.Messages)
		result.Reason = reason
		m.logger.DebugWithFields("Chat finished",
			logging.Field("reason", reason),
			logging.Field("rounds", result.Rounds))
		return result, err
	}

	opening := Message{Name: from.Name(), Role: RoleUser, Content: issue, Timestamp: m.now()}
	m.append(opening)

	speaker := from
	for {
		last, _ := m.chat.LastMessage()
		if m.terminate(last) {
			return finish(ReasonTerminated, nil)
		}
		if len(m.chat.Messages) >= m.chat.maxRound() {
			return finish(ReasonMaxRound, nil)
		}
		if err := ctx.Err(); err != nil {
			return finish(ReasonCanceled, err)
		}

		next := m.selector.Next(speaker, m.chat)
		if next == nil {
			return finish(ReasonNoSpeaker, nil)
		}
		round := len(m.chat.Messages) + 1

		// The pause belongs to selection: the speaker is announced after it.
		waited, err := m.waiter.Wait(ctx, speaker)
		if waited > 0 {
			m.observers.Waited(speaker, waited)
		}
		if err != nil {
			if ctx.Err() != nil {
				return finish(ReasonCanceled, err)
			}
			return finish(ReasonError, fmt.Errorf("wait after %s: %w", speaker.Name(), err))
		}
		m.observers.SpeakerSelected(next, round)

		reply, err := m.turn(ctx, next, round)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return finish(ReasonCanceled, err)
			}
			return finish(ReasonError, fmt.Errorf("%s failed to reply: %w", next.Name(), err))
		}
		if reply.Terminate {
			return finish(ReasonAgentExit, nil)
		}

		m.append(Message{Name: next.Name(), Role: RoleAssistant, Content: reply.Content, Timestamp: m.now()})
		speaker = next
	}
}

func (m *Manager) turn(ctx context.Context, speaker Agent, round int) (Reply, error) {
	ctx, span := m.tracer.Start(ctx, "groupchat.turn", trace.WithAttributes(
		attribute.String("groupchat.speaker", speaker.Name()),
		attribute.Int("groupchat.round", round),
	))
	defer span.End()

	m.logger.DebugWithFields("Requesting reply",
		logging.Field("speaker", speaker.Name()),
		logging.Field("round", round))

	reply, err := speaker.Reply(ctx, m.chat.History())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Reply{}, err
	}
	span.SetAttributes(
		attribute.Int("groupchat.reply_length", len(reply.Content)),
		attribute.Bool("groupchat.exit", reply.Terminate),
	)
	return reply, nil
}

func (m *Manager) append(msg Message) {
	m.chat.Messages = append(m.chat.Messages, msg)
	m.observers.MessageAppended(msg, len(m.chat.Messages))
}
