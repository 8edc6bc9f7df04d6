// Package format implements the wire format between the agent and the model.
//
// The agent expects every assistant response in XML-style tagged sections:
// a <thinking> section carrying the reasoning, followed by either an
// <action> section (a JSON tool call) or an <answer> section (the final
// answer). Observations travel back to the model the same way, as
// <observation> and <error> sections.
//
// Parsing is deliberately forgiving about everything except the decision
// itself: tags match case-insensitively, surrounding prose is ignored, and
// output with no tags at all is still scanned for a trailing
// "Final Answer:" so a model that drifts out of the format can land its
// answer. Output that fits no shape is rejected with a
// [sqlagent.MalformedResponseError], which the agent turns into corrective
// feedback instead of failing the run.
package format

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rickchristie/sqlagent"
)

// Section names used in the agent protocol.
const (
	SectionThinking    = "thinking"
	SectionAction      = "action"
	SectionAnswer      = "answer"
	SectionObservation = "observation"
	SectionError       = "error"
)

var (
	reThinking = sectionPattern(SectionThinking)
	reAction   = sectionPattern(SectionAction)
	reAnswer   = sectionPattern(SectionAnswer)

	// Classic ReAct text emitted by models that ignore the tag format.
	reFinalAnswer = regexp.MustCompile(`(?si)final\s+answer\s*:\s*(.+)$`)
)

func sectionPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`(?si)<%s>(.*?)</%s>`, name, name))
}

// XML parses and renders the tagged-section protocol.
//
// Example assistant output:
//
//	<thinking>
//	film_category links films to categories; I need to join it.
//	</thinking>
//
//	<action>
//	{"tool": "query_sql", "args": {"sql": "SELECT ..."}}
//	</action>
type XML struct{}

// NewXML creates a new XML format.
func NewXML() *XML {
	return &XML{}
}

var _ sqlagent.StepFormat = (*XML)(nil)

// Describe returns the output format instructions included in the system
// prompt.
func (f *XML) Describe() string {
	var sb strings.Builder
	sb.WriteString("Format every response using XML-style tags. Exactly two response shapes are valid.\n\n")
	sb.WriteString("To call a tool:\n\n")
	sb.WriteString("<thinking>\nWhy this tool, and what you expect to learn from it.\n</thinking>\n\n")
	sb.WriteString("<action>\n{\"tool\": \"tool_name\", \"args\": {\"arg\": \"value\"}}\n</action>\n\n")
	sb.WriteString("To deliver the final answer:\n\n")
	sb.WriteString("<thinking>\nHow the observations so far support the answer.\n</thinking>\n\n")
	sb.WriteString("<answer>\nThe answer to the user's question, in plain language.\n</answer>\n\n")
	sb.WriteString("Rules:\n")
	sb.WriteString("- Every response contains exactly one <action> or exactly one <answer>, never both and never more than one.\n")
	sb.WriteString("- The <action> body is a single JSON object with \"tool\" and \"args\" keys.\n")
	sb.WriteString("- Do not emit an <answer> until the observations contain the data the answer needs.\n")
	return sb.String()
}

// Parse parses one assistant response into a Step.
//
// Output containing an <answer> parses as a final answer; output containing
// a single <action> with a valid JSON body parses as a tool call. Output
// with neither is scanned for a trailing "Final Answer:" before being
// rejected as malformed.
func (f *XML) Parse(raw string) (*sqlagent.Step, error) {
	thoughts := extractSections(reThinking, raw)
	actions := extractSections(reAction, raw)
	answers := extractSections(reAnswer, raw)

	thought := strings.Join(thoughts, "\n\n")

	switch {
	case len(answers) > 0 && len(actions) > 0:
		return nil, &sqlagent.MalformedResponseError{
			Detail: "response contains both an <action> and an <answer>; emit exactly one of the two",
			Raw:    raw,
		}

	case len(answers) > 0:
		return &sqlagent.Step{
			Kind:    sqlagent.StepFinalAnswer,
			Thought: thought,
			Answer:  answers[0],
			Raw:     raw,
		}, nil

	case len(actions) > 1:
		return nil, &sqlagent.MalformedResponseError{
			Detail: fmt.Sprintf("response contains %d <action> sections; emit exactly one per response", len(actions)),
			Raw:    raw,
		}

	case len(actions) == 1:
		call, err := parseAction(actions[0], raw)
		if err != nil {
			return nil, err
		}
		return &sqlagent.Step{
			Kind:    sqlagent.StepToolCall,
			Thought: thought,
			Call:    call,
			Raw:     raw,
		}, nil
	}

	// No action and no answer. Models occasionally revert to classic ReAct
	// text; recover a trailing "Final Answer:" instead of failing the run.
	if answer, ok := recoverFinalAnswer(raw); ok {
		return &sqlagent.Step{
			Kind:    sqlagent.StepFinalAnswer,
			Thought: thought,
			Answer:  answer,
			Raw:     raw,
		}, nil
	}

	if len(thoughts) > 0 {
		return nil, &sqlagent.MalformedResponseError{
			Detail: "response contains only <thinking>; follow it with an <action> or an <answer>",
			Raw:    raw,
		}
	}

	return nil, &sqlagent.MalformedResponseError{
		Detail: "no recognizable sections in response",
		Raw:    raw,
		Err:    sqlagent.ErrNoSectionsFound,
	}
}

// FormatSection renders one named section.
func (f *XML) FormatSection(name, content string) string {
	return fmt.Sprintf("<%s>\n%s\n</%s>", name, content, name)
}

// FormatSections renders a sequence of sections separated by blank lines.
func (f *XML) FormatSections(sections []sqlagent.FormattedSection) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		parts = append(parts, f.FormatSection(s.Name, s.Content))
	}
	return strings.Join(parts, "\n\n")
}

func extractSections(re *regexp.Regexp, raw string) []string {
	var sections []string
	for _, match := range re.FindAllStringSubmatch(raw, -1) {
		if len(match) >= 2 {
			sections = append(sections, strings.TrimSpace(match[1]))
		}
	}
	return sections
}

func parseAction(body, raw string) (*sqlagent.ToolCall, error) {
	var action struct {
		Tool string         `json:"tool"`
		Args map[string]any `json:"args"`
	}
	if err := json.Unmarshal([]byte(body), &action); err != nil {
		return nil, &sqlagent.MalformedResponseError{
			Detail: fmt.Sprintf("action body is not a valid JSON object: %v", err),
			Raw:    raw,
			Err:    sqlagent.ErrInvalidJSON,
		}
	}
	if strings.TrimSpace(action.Tool) == "" {
		return nil, &sqlagent.MalformedResponseError{
			Detail: `action body is missing the "tool" key`,
			Raw:    raw,
			Err:    sqlagent.ErrMissingToolName,
		}
	}
	if action.Args == nil {
		action.Args = map[string]any{}
	}
	return &sqlagent.ToolCall{Name: action.Tool, Args: action.Args}, nil
}

func recoverFinalAnswer(raw string) (string, bool) {
	match := reFinalAnswer.FindStringSubmatch(raw)
	if match == nil {
		return "", false
	}
	answer := strings.TrimSpace(match[1])
	if answer == "" {
		return "", false
	}
	return answer, true
}
