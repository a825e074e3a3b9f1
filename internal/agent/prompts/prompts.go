// Package prompts renders the Planner and Analyst system prompts.
package prompts

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"
)

// Data is the input of both templates. Context holds the runbooks, the
// directories and summaries describe the hub and managed-cluster bundles.
type Data struct {
	Context      string
	HubDir       string
	SpokeDir     string
	HubSummary   string
	SpokeSummary string
	Token        string
}

// Set holds the parsed templates.
type Set struct {
	planner *template.Template
	analyst *template.Template
}

// New parses the built-in templates, replacing either with the contents of
// the given file when the path is not empty.
func New(plannerFile, analystFile string) (*Set, error) {
	planner, err := parse("planner", plannerFile, PlannerTemplate)
	if err != nil {
		return nil, err
	}
	analyst, err := parse("analyst", analystFile, AnalystTemplate)
	if err != nil {
		return nil, err
	}
	return &Set{planner: planner, analyst: analyst}, nil
}

func parse(name, file, fallback string) (*template.Template, error) {
	src := fallback
	if file != "" {
		// #nosec G304 -- prompt overrides come from the operator's config
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s prompt %s: %w", name, file, err)
		}
		src = string(data)
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s prompt: %w", name, err)
	}
	return tmpl, nil
}

// Planner renders the Planner system prompt.
func (s *Set) Planner(d Data) (string, error) {
	return render(s.planner, d)
}

// Analyst renders the Analyst system prompt.
func (s *Set) Analyst(d Data) (string, error) {
	return render(s.analyst, d)
}

func render(t *template.Template, d Data) (string, error) {
	if d.Token == "" {
		d.Token = "TERMINATE"
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", t.Name(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}
