package agents

import (
	"github.com/moolen/troubleshooter/internal/agent/groupchat"
	"github.com/moolen/troubleshooter/internal/agent/provider"
)

// TeamConfig holds what the four agents are built from.
type TeamConfig struct {
	Provider      provider.Provider
	PlannerPrompt string
	AnalystPrompt string
	Runner        CodeRunner
	IsTermination groupchat.TerminationFunc
	// Human is nil when the human input mode is NEVER.
	Human    HumanInput
	Recorder Recorder
}

// Team is the assembled set of agents.
type Team struct {
	User     *User
	Planner  *Assistant
	Analyst  *Assistant
	Executor *Executor
}

// NewTeam builds the four agents. The Executor never asks for human input.
func NewTeam(cfg TeamConfig) *Team {
	return &Team{
		User: NewUser(cfg.Human, cfg.Recorder),
		Planner: NewAssistant(AssistantConfig{
			Name:          PlannerName,
			Description:   PlannerDescription,
			SystemPrompt:  cfg.PlannerPrompt,
			Provider:      cfg.Provider,
			IsTermination: cfg.IsTermination,
			Human:         cfg.Human,
			Recorder:      cfg.Recorder,
		}),
		Analyst: NewAssistant(AssistantConfig{
			Name:          AnalystName,
			Description:   AnalystDescription,
			SystemPrompt:  cfg.AnalystPrompt,
			Provider:      cfg.Provider,
			IsTermination: cfg.IsTermination,
			Human:         cfg.Human,
			Recorder:      cfg.Recorder,
		}),
		Executor: NewExecutor(cfg.Runner, cfg.Recorder),
	}
}

// Agents returns the participants in introduction order.
func (t *Team) Agents() []groupchat.Agent {
	return []groupchat.Agent{t.User, t.Planner, t.Analyst, t.Executor}
}
