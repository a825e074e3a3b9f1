package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted sequence of model responses loaded from YAML. It
// lets a whole troubleshooting session run offline.
type Scenario struct {
	// Name is the scenario identifier.
	Name string `yaml:"name"`

	// Description is a human-readable description of what the scenario tests.
	Description string `yaml:"description,omitempty"`

	// DelayMs is applied before every response unless a step overrides it.
	DelayMs int `yaml:"delay_ms,omitempty"`

	// Steps defines the sequence of mock responses.
	Steps []ScenarioStep `yaml:"steps"`
}

// ScenarioStep defines a single mock response.
type ScenarioStep struct {
	// Trigger optionally gates the step:
	// - "contains:text" matches when the newest message contains text
	// - "system:text" matches when the system prompt contains text
	// - any other value is a substring match on the newest message
	// An empty trigger always matches.
	Trigger string `yaml:"trigger,omitempty"`

	// Text is the response content.
	Text string `yaml:"text"`

	// DelayMs overrides the scenario delay for this step.
	DelayMs int `yaml:"delay_ms,omitempty"`
}

// LoadScenario loads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}

	// #nosec G304 -- Scenario file path is intentionally configurable for testing
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file %s: %w", path, err)
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("failed to parse scenario YAML: %w", err)
	}
	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// Validate checks that the scenario is valid.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario must have at least one step")
	}
	for i, step := range s.Steps {
		if step.Text == "" {
			return fmt.Errorf("step[%d]: text is required", i)
		}
	}
	return nil
}

// MockProvider replays a Scenario. Steps are consumed in order; a step whose
// trigger does not match is skipped for now and stays available.
type MockProvider struct {
	mu        sync.Mutex
	scenario  *Scenario
	completed []bool
	next      int
	model     string
}

// NewMockProvider creates a mock from a loaded scenario.
func NewMockProvider(scenario *Scenario) *MockProvider {
	return &MockProvider{
		scenario:  scenario,
		completed: make([]bool, len(scenario.Steps)),
		model:     "mock:" + scenario.Name,
	}
}

// NewMockProviderFromFile loads path and creates a mock.
func NewMockProviderFromFile(path string) (*MockProvider, error) {
	scenario, err := LoadScenario(path)
	if err != nil {
		return nil, err
	}
	return NewMockProvider(scenario), nil
}

// Chat implements Provider.Chat.
func (m *MockProvider) Chat(ctx context.Context, systemPrompt string, messages []Message) (*Response, error) {
	var last string
	if len(messages) > 0 {
		last = messages[len(messages)-1].Content
	}

	step, err := m.nextStep(systemPrompt, last)
	if err != nil {
		return nil, err
	}

	delay := m.scenario.DelayMs
	if step.DelayMs > 0 {
		delay = step.DelayMs
	}
	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(delay) * time.Millisecond):
		}
	}

	return &Response{
		Content:    step.Text,
		StopReason: StopReasonEndTurn,
		Usage: Usage{
			InputTokens:  EstimateTokens(systemPrompt, messages),
			OutputTokens: len(step.Text) / 4,
		},
	}, nil
}

func (m *MockProvider) nextStep(systemPrompt, last string) (*ScenarioStep, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := m.next; i < len(m.scenario.Steps); i++ {
		if m.completed[i] {
			continue
		}
		step := &m.scenario.Steps[i]
		if !matchesTrigger(step.Trigger, systemPrompt, last) {
			continue
		}
		m.completed[i] = true
		for m.next < len(m.completed) && m.completed[m.next] {
			m.next++
		}
		return step, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrScenarioExhausted, m.scenario.Name)
}

// Remaining returns how many steps have not been replayed yet.
func (m *MockProvider) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, done := range m.completed {
		if !done {
			n++
		}
	}
	return n
}

func matchesTrigger(trigger, systemPrompt, last string) bool {
	switch {
	case trigger == "":
		return true
	case strings.HasPrefix(trigger, "system:"):
		return containsFold(systemPrompt, strings.TrimPrefix(trigger, "system:"))
	case strings.HasPrefix(trigger, "contains:"):
		return containsFold(last, strings.TrimPrefix(trigger, "contains:"))
	default:
		return containsFold(last, trigger)
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// Name implements Provider.Name.
func (m *MockProvider) Name() string {
	return "mock"
}

// Model implements Provider.Model.
func (m *MockProvider) Model() string {
	return m.model
}
