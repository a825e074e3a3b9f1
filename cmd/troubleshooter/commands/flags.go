package commands

import (
	"time"

	"github.com/moolen/troubleshooter/internal/config"
	"github.com/spf13/cobra"
)

// configFlags are the settings shared by every command that starts a session.
type configFlags struct {
	configFile   string
	envFile      string
	provider     string
	model        string
	maxRound     int
	turnWait     time.Duration
	workDir      string
	auditLog     string
	metricsFile  string
	mockScenario string
}

func (f *configFlags) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.configFile, "config", "", "YAML configuration file")
	flags.StringVar(&f.envFile, "env-file", "", "dotenv file with API keys (default: ./.env when present)")
	flags.StringVar(&f.provider, "provider", "",
		"LLM provider: groq, openai, ollama, anthropic, azure-foundry, gemini or mock (default: groq)")
	flags.StringVar(&f.model, "model", "", "Model used by the Planner and the Analyst (default: depends on the provider)")
	flags.IntVar(&f.maxRound, "max-round", 0, "Maximum number of messages in the chat, opening issue included (default: 50)")
	flags.DurationVar(&f.turnWait, "turn-wait", 0, "Pause after Planner and Executor turns to respect API rate limits (default: 5s)")
	flags.StringVar(&f.workDir, "work-dir", "", "Directory the Executor writes and runs code blocks in (default: __workspace__)")
	flags.StringVar(&f.auditLog, "audit-log", "",
		"Path of the JSONL audit log (default: ~/.troubleshooter/sessions/<session>.audit.log)")
	flags.StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus metrics in textfile format to this path on exit")
	flags.StringVar(&f.mockScenario, "mock-scenario", "", "YAML scenario for the mock provider (implies --provider mock)")
}

// overrides maps the flags the user actually set to koanf paths so unset
// flags never shadow the file or the environment.
func (f *configFlags) overrides(cmd *cobra.Command) map[string]interface{} {
	changed := cmd.Flags().Changed
	o := make(map[string]interface{})
	if changed("provider") {
		o["llm.provider"] = f.provider
	}
	if changed("model") {
		o["llm.model"] = f.model
	}
	if changed("mock-scenario") {
		o["llm.mock_scenario"] = f.mockScenario
		if !changed("provider") {
			o["llm.provider"] = config.ProviderMock
		}
	}
	if changed("max-round") {
		o["chat.max_round"] = f.maxRound
	}
	if changed("turn-wait") {
		o["chat.turn_wait"] = f.turnWait
	}
	if changed("work-dir") {
		o["executor.work_dir"] = f.workDir
	}
	if changed("audit-log") {
		o["audit.path"] = f.auditLog
	}
	if changed("metrics-file") {
		o["metrics.file"] = f.metricsFile
	}
	return o
}

func (f *configFlags) load(cmd *cobra.Command, extra map[string]interface{}) (*config.Config, error) {
	o := f.overrides(cmd)
	for k, v := range extra {
		o[k] = v
	}
	return config.Load(config.LoadOptions{
		ConfigFile: f.configFile,
		DotEnvFile: f.envFile,
		Overrides:  o,
	})
}
