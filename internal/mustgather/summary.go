package mustgather

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// OperatorIssue is a ClusterOperator reporting Degraded=True or
// Available=False.
type OperatorIssue struct {
	Name      string `json:"name"`
	Degraded  bool   `json:"degraded"`
	Available bool   `json:"available"`
	Message   string `json:"message,omitempty"`
}

// KindCount is the number of loaded objects of one kind.
type KindCount struct {
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

// Summary is the condensed view of a bundle handed to the Analyst.
type Summary struct {
	Path           string          `json:"path"`
	Version        string          `json:"version,omitempty"`
	StartTime      time.Time       `json:"start_time,omitempty"`
	EndTime        time.Time       `json:"end_time,omitempty"`
	ResourceCount  int             `json:"resource_count"`
	NamespaceCount int             `json:"namespace_count"`
	Kinds          []KindCount     `json:"kinds"`
	OperatorCount  int             `json:"operator_count"`
	Operators      []OperatorIssue `json:"operators,omitempty"`
}

// Summarize condenses a bundle.
func (b *Bundle) Summarize() Summary {
	s := Summary{
		Path:           b.Metadata.Path,
		Version:        b.Metadata.Version,
		StartTime:      b.Metadata.StartTime,
		EndTime:        b.Metadata.EndTime,
		ResourceCount:  len(b.Resources),
		NamespaceCount: len(b.Namespaces),
	}

	counts := make(map[string]int)
	for _, r := range b.Resources {
		kind := r.GetKind()
		if kind == "" {
			kind = "<unknown>"
		}
		counts[kind]++
		if kind == "ClusterOperator" {
			s.OperatorCount++
			if issue, ok := operatorIssue(r); ok {
				s.Operators = append(s.Operators, issue)
			}
		}
	}
	for kind, n := range counts {
		s.Kinds = append(s.Kinds, KindCount{Kind: kind, Count: n})
	}
	sort.Slice(s.Kinds, func(i, j int) bool {
		if s.Kinds[i].Count != s.Kinds[j].Count {
			return s.Kinds[i].Count > s.Kinds[j].Count
		}
		return s.Kinds[i].Kind < s.Kinds[j].Kind
	})
	sort.Slice(s.Operators, func(i, j int) bool { return s.Operators[i].Name < s.Operators[j].Name })
	return s
}

func operatorIssue(op *unstructured.Unstructured) (OperatorIssue, bool) {
	status, _ := op.Object["status"].(map[string]interface{})
	conditions, _ := status["conditions"].([]interface{})
	issue := OperatorIssue{Name: op.GetName(), Available: true}
	var messages []string
	for _, c := range conditions {
		cond, ok := c.(map[string]interface{})
		if !ok {
			continue
		}
		typ, _ := cond["type"].(string)
		value, _ := cond["status"].(string)
		msg, _ := cond["message"].(string)
		switch {
		case typ == "Degraded" && value == "True":
			issue.Degraded = true
		case typ == "Available" && value == "False":
			issue.Available = false
		default:
			continue
		}
		if msg != "" {
			messages = append(messages, msg)
		}
	}
	issue.Message = strings.Join(messages, "; ")
	return issue, issue.Degraded || !issue.Available
}

// maxKinds bounds the kinds listed in String.
const maxKinds = 15

// String renders the summary as plain text for a prompt.
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Must-gather: %s\n", s.Path)
	if s.Version != "" {
		fmt.Fprintf(&b, "Version: %s\n", s.Version)
	}
	if !s.StartTime.IsZero() {
		fmt.Fprintf(&b, "Captured: %s", s.StartTime.UTC().Format(time.RFC3339))
		if !s.EndTime.IsZero() {
			fmt.Fprintf(&b, " to %s", s.EndTime.UTC().Format(time.RFC3339))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Resources: %d across %d namespaces\n", s.ResourceCount, s.NamespaceCount)

	if len(s.Kinds) > 0 {
		b.WriteString("Kinds:\n")
		for i, k := range s.Kinds {
			if i == maxKinds {
				fmt.Fprintf(&b, "  ... %d more\n", len(s.Kinds)-maxKinds)
				break
			}
			fmt.Fprintf(&b, "  %s: %d\n", k.Kind, k.Count)
		}
	}

	switch {
	case s.OperatorCount == 0:
		return b.String()
	case len(s.Operators) == 0:
		fmt.Fprintf(&b, "ClusterOperators: all %d available, none degraded\n", s.OperatorCount)
		return b.String()
	}
	b.WriteString("ClusterOperators with issues:\n")
	for _, op := range s.Operators {
		var state []string
		if op.Degraded {
			state = append(state, "Degraded")
		}
		if !op.Available {
			state = append(state, "Unavailable")
		}
		fmt.Fprintf(&b, "  %s (%s)", op.Name, strings.Join(state, ", "))
		if op.Message != "" {
			fmt.Fprintf(&b, ": %s", op.Message)
		}
		b.WriteString("\n")
	}
	return b.String()
}
