package react

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/rickchristie/sqlagent"
	"github.com/rickchristie/sqlagent/format"
)

// Agent implements sqlagent.AgentLoop: one reasoning step per Next call.
//
// The prompt construction follows this structure:
//   - System message: behavior + critical rules + tool catalog + output
//     format, assembled by the SystemPromptBuilder.
//   - User message: the original question.
//   - Prior iterations: assistant raw response, then the observation as the
//     next user message.
type Agent struct {
	model         sqlagent.Model
	registry      sqlagent.ToolRegistry
	format        sqlagent.StepFormat
	behavior      string
	criticalRules string
	topK          int
	systemBuilder SystemPromptBuilder
	callOptions   []llms.CallOption
}

// NewAgent creates an agent for the given model and tool registry.
// Defaults:
//   - Format: format.NewXML()
//   - Behavior: DefaultBehavior(DefaultTopK)
//   - CriticalRules: DefaultCriticalRules
//   - SystemPromptBuilder: DefaultSystemPromptBuilder
func NewAgent(model sqlagent.Model, registry sqlagent.ToolRegistry) *Agent {
	return &Agent{
		model:         model,
		registry:      registry,
		format:        format.NewXML(),
		criticalRules: DefaultCriticalRules,
		topK:          DefaultTopK,
		systemBuilder: DefaultSystemPromptBuilder,
	}
}

// WithFormat sets the step format.
func (a *Agent) WithFormat(f sqlagent.StepFormat) *Agent {
	a.format = f
	return a
}

// WithBehavior replaces the default behavior prompt.
func (a *Agent) WithBehavior(behavior string) *Agent {
	a.behavior = behavior
	return a
}

// WithCriticalRules replaces the default critical rules.
func (a *Agent) WithCriticalRules(rules string) *Agent {
	a.criticalRules = rules
	return a
}

// WithTopK sets the row budget quoted in the default behavior prompt.
// Ignored when WithBehavior replaced the prompt.
func (a *Agent) WithTopK(topK int) *Agent {
	a.topK = topK
	return a
}

// WithSystemPromptBuilder sets a custom system prompt builder. Use this
// for full control over prompting.
func (a *Agent) WithSystemPromptBuilder(builder SystemPromptBuilder) *Agent {
	a.systemBuilder = builder
	return a
}

// WithCallOptions sets extra options passed to every model call.
func (a *Agent) WithCallOptions(opts ...llms.CallOption) *Agent {
	a.callOptions = opts
	return a
}

// Next executes one reasoning step.
//
// The method follows a fixed order of operations:
//  1. Build the messages from the run's transcript and call the model.
//  2. Parse the response into a tagged step.
//  3. Unparseable output appends a corrective observation and continues;
//     the consecutive-malformed counter feeds the executor's ceiling.
//  4. A tool call dispatches through the registry, appends the iteration,
//     and continues. A fatal observation surfaces as *ToolFatalError.
//  5. A final answer terminates the loop.
//
// Transport errors from the model (rate limiting, provider failures)
// return before anything is recorded, so retrying the same state is safe.
func (a *Agent) Next(
	ctx context.Context,
	run *sqlagent.Run,
) (*sqlagent.StepOutcome, error) {
	messages := a.buildMessages(run)

	resp, err := a.model.GenerateContent(ctx, run, messages, a.callOptions...)
	if err != nil {
		return nil, fmt.Errorf("model call: %w", err)
	}

	step, err := a.format.Parse(resp.Content)
	if err != nil {
		var malformed *sqlagent.MalformedResponseError
		if !errors.As(err, &malformed) {
			return nil, fmt.Errorf("parse model response: %w", err)
		}
		return a.recoverMalformed(run, malformed)
	}
	run.Stats().ResetMalformedRetries()

	if step.Kind == sqlagent.StepFinalAnswer {
		run.Transcript().Append(&sqlagent.Iteration{
			Raw:     step.Raw,
			Thought: step.Thought,
		})
		return &sqlagent.StepOutcome{
			Action: sqlagent.LATerminate,
			Answer: step.Answer,
		}, nil
	}

	obs := a.registry.Execute(ctx, run, *step.Call)
	run.Transcript().Append(&sqlagent.Iteration{
		Raw:         step.Raw,
		Thought:     step.Thought,
		Call:        step.Call,
		Observation: &obs,
	})
	run.Stats().IncrRoundTrips()

	if obs.Fatal {
		return nil, &sqlagent.ToolFatalError{Observation: obs}
	}

	return &sqlagent.StepOutcome{Action: sqlagent.LAContinue}, nil
}

// recoverMalformed appends a corrective observation for an unparseable
// response and continues the loop. The raw response is echoed back so the
// model can see what it produced.
func (a *Agent) recoverMalformed(
	run *sqlagent.Run,
	malformed *sqlagent.MalformedResponseError,
) (*sqlagent.StepOutcome, error) {
	run.Stats().IncrMalformedRetries()

	obs := sqlagent.Observation{
		Status: sqlagent.ObservationError,
		Class:  "malformed",
		Content: fmt.Sprintf(
			"Your response could not be parsed: %s\n\n"+
				"Respond again following the output format from the system "+
				"prompt: exactly one action or exactly one answer per "+
				"response.\n\nYour raw response was:\n%s",
			malformed.Detail, malformed.Raw,
		),
	}
	run.Transcript().Append(&sqlagent.Iteration{
		Raw:         malformed.Raw,
		Observation: &obs,
	})

	return &sqlagent.StepOutcome{Action: sqlagent.LAContinue}, nil
}

// buildMessages constructs the message sequence for the next model call.
func (a *Agent) buildMessages(run *sqlagent.Run) []llms.MessageContent {
	messages := a.systemBuilder(SystemPromptContext{
		Format:        a.format,
		Behavior:      a.behaviorPrompt(),
		CriticalRules: a.criticalRules,
		ToolsPrompt:   a.registry.ToolsPrompt(),
		OutputPrompt:  a.format.Describe(),
	})

	messages = append(messages, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextContent{Text: run.Request().Question}},
	})

	for _, iter := range run.Transcript().Iterations() {
		messages = append(messages, llms.MessageContent{
			Role:  llms.ChatMessageTypeAI,
			Parts: []llms.ContentPart{llms.TextContent{Text: iter.Raw}},
		})
		if iter.Observation != nil {
			messages = append(messages, llms.MessageContent{
				Role: llms.ChatMessageTypeHuman,
				Parts: []llms.ContentPart{
					llms.TextContent{Text: a.renderObservation(iter.Observation)},
				},
			})
		}
	}

	return messages
}

func (a *Agent) behaviorPrompt() string {
	if a.behavior != "" {
		return a.behavior
	}
	return DefaultBehavior(a.topK)
}

// renderObservation renders one observation as user message text. Error
// observations carry their failure class inside an error section so the
// model can tell failure kinds apart.
func (a *Agent) renderObservation(obs *sqlagent.Observation) string {
	if obs.Status == sqlagent.ObservationOK {
		return a.format.FormatSection(format.SectionObservation, obs.Content)
	}

	body := obs.Content
	if obs.Class != "" {
		body = obs.Class + ": " + body
	}
	return a.format.FormatSection(
		format.SectionObservation,
		a.format.FormatSection(format.SectionError, body),
	)
}

// Compile-time check that Agent implements sqlagent.AgentLoop.
var _ sqlagent.AgentLoop = (*Agent)(nil)
