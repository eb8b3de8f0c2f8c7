package prompt

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/nefro313/jobfit-ai-backend/errors"
)

// placeholderRe matches {snake_case} placeholders in task descriptions.
// Braces not enclosing an identifier (JSON examples, the {} sentinel) are
// left untouched.
var placeholderRe = regexp.MustCompile(`\{([a-z][a-z0-9_]*)\}`)

// Render resolves the task's description template with the given variables
// and appends the expected-output instruction. It fails with a
// missing-variable error if any placeholder or declared input is absent from
// vars; it never substitutes a silent blank.
func (s *Store) Render(taskName string, vars map[string]interface{}) (string, error) {
	task, err := s.Task(taskName)
	if err != nil {
		return "", err
	}
	return RenderTask(task, vars)
}

// RenderTask renders a task spec directly. Pure string substitution, no side
// effects.
func RenderTask(task TaskSpec, vars map[string]interface{}) (string, error) {
	for _, name := range task.Inputs {
		if _, ok := vars[name]; !ok {
			return "", missingVariable(task.Name, name)
		}
	}

	var missing string
	rendered := placeholderRe.ReplaceAllStringFunc(task.Description, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := vars[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return m
		}
		return formatValue(v)
	})
	if missing != "" {
		return "", missingVariable(task.Name, missing)
	}

	if task.ExpectedOutput != "" {
		rendered = rendered + "\n\nExpected output:\n" + task.ExpectedOutput
	}
	return rendered, nil
}

// formatValue renders a variable into prompt text. Strings pass through;
// structured values (prior-stage parsed JSON) are embedded as JSON.
func formatValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	}
}

// SystemPrompt builds the agent persona preamble sent as the system message.
func SystemPrompt(agent AgentSpec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s.", agent.Role)
	if agent.Goal != "" {
		fmt.Fprintf(&b, "\nYour goal: %s", agent.Goal)
	}
	if agent.Backstory != "" {
		fmt.Fprintf(&b, "\nBackground: %s", agent.Backstory)
	}
	if agent.Instructions != "" {
		fmt.Fprintf(&b, "\n%s", agent.Instructions)
	}
	return b.String()
}

func missingVariable(task, variable string) error {
	return errors.New(errors.ErrCodeMissingVariable,
		fmt.Sprintf("variable %q not provided for task %q", variable, task),
		errors.WithTask(task),
		errors.WithMetadata("variable", variable))
}
