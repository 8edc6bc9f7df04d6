package sqlagent

// StepKind tags the parsed shape of one assistant response.
type StepKind string

const (
	// StepToolCall: the model requested a tool invocation.
	StepToolCall StepKind = "tool_call"

	// StepFinalAnswer: the model produced its final answer.
	StepFinalAnswer StepKind = "final_answer"
)

// Step is one parsed assistant response: a tagged variant of thought plus
// tool call, or thought plus final answer. Output that fits neither shape
// never becomes a Step; it surfaces as *MalformedResponseError with the
// raw text attached.
type Step struct {
	// Kind tags the variant.
	Kind StepKind

	// Thought is the extracted reasoning text, may be empty.
	Thought string

	// Call is set when Kind is StepToolCall.
	Call *ToolCall

	// Answer is set when Kind is StepFinalAnswer.
	Answer string

	// Raw is the full assistant output the step was parsed from.
	Raw string
}

// FormattedSection is one named block of prompt text, rendered by a
// StepFormat into its wire representation (e.g. XML-style tags).
type FormattedSection struct {
	Name    string
	Content string
}

// StepFormat defines the wire format between the agent and the model: it
// describes the expected output structure in the system prompt, renders
// prompt sections, and parses model output into a tagged Step.
//
// Parse must apply fallback recovery before failing: output that is not a
// clean section fit but contains an extractable final answer still parses
// as a StepFinalAnswer. Everything else returns *MalformedResponseError.
type StepFormat interface {
	// Describe returns the output format instructions for the system
	// prompt.
	Describe() string

	// Parse parses one assistant response into a Step.
	Parse(raw string) (*Step, error)

	// FormatSection renders one named section in this format.
	FormatSection(name, content string) string

	// FormatSections renders a sequence of sections.
	FormatSections(sections []FormattedSection) string
}
