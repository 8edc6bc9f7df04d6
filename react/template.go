package react

import (
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/rickchristie/sqlagent"
)

// SystemPromptContext provides data for building the system prompt.
type SystemPromptContext struct {
	// Format renders sections, so the prompt and the parser agree on
	// structure.
	Format sqlagent.StepFormat

	// Behavior is the agent role and behavior text.
	Behavior string

	// CriticalRules are rules the model must follow on every step.
	CriticalRules string

	// ToolsPrompt describes the registered tools (from the registry).
	ToolsPrompt string

	// OutputPrompt describes the expected response structure (from the
	// format).
	OutputPrompt string
}

// SystemPromptBuilder builds the system prompt messages from the given
// context. It returns a slice of MessageContent, allowing for
// multi-message system prompts or few-shot examples if needed.
type SystemPromptBuilder func(ctx SystemPromptContext) []llms.MessageContent

// DefaultTopK is the row budget quoted in the default behavior prompt.
const DefaultTopK = 10

// behaviorText is the default agent role and loop explanation. The %d verb
// receives the configured top-k row budget.
const behaviorText = `You are an agent that answers questions about a PostgreSQL database.

## How You Work

You solve each question through a cycle of:
1. **Think**: Reason about what information you still need.
2. **Act**: Call exactly one of the available tools.
3. **Observe**: Read the result of your call.

Repeat this cycle until the observations contain the data the answer needs,
then answer in plain language.

## Query Guidelines

- Write syntactically correct PostgreSQL and answer only from observed
  results.
- Unless the user asks for a specific number of rows, limit every query to
  at most %d results, ordered by a relevant column when ordering makes the
  answer more useful.
- Never select all columns of a table; select only the columns the question
  needs.`

// DefaultBehavior returns the default behavior prompt with the given
// top-k row budget.
func DefaultBehavior(topK int) string {
	if topK < 1 {
		topK = DefaultTopK
	}
	return fmt.Sprintf(behaviorText, topK)
}

// DefaultCriticalRules is the default critical rules text.
const DefaultCriticalRules = `- Look at the schema of the relevant tables before querying them. Use list_tables and schema first when you are not sure what exists.
- Double-check every query before executing it. If execution returns an error, read the error message, rewrite the query, and try again.
- Never issue DML statements (INSERT, UPDATE, DELETE, DROP, ALTER, TRUNCATE). The database is read-only.
- Use only information returned by the tools. Never invent tables, columns, or values.
- If the user just greets you, reply with a short friendly greeting and offer to answer questions about the database. Do not call any tools.
- If the question is unrelated to the database, politely say you can only answer questions about this database.
- If the user asks what you can tell them about the database, inspect the schema and describe what kind of data it holds.`

// DefaultSystemPromptBuilder is the default system prompt builder. It
// formats all sections through the step format for consistency and returns
// a single system message.
func DefaultSystemPromptBuilder(ctx SystemPromptContext) []llms.MessageContent {
	var sections []sqlagent.FormattedSection

	if ctx.Behavior != "" {
		sections = append(sections, sqlagent.FormattedSection{
			Name:    "behavior",
			Content: ctx.Behavior,
		})
	}

	if ctx.CriticalRules != "" {
		sections = append(sections, sqlagent.FormattedSection{
			Name:    "critical_rules",
			Content: ctx.CriticalRules,
		})
	}

	if ctx.ToolsPrompt != "" {
		sections = append(sections, sqlagent.FormattedSection{
			Name:    "available_tools",
			Content: ctx.ToolsPrompt,
		})
	}

	if ctx.OutputPrompt != "" {
		sections = append(sections, sqlagent.FormattedSection{
			Name:    "output_format",
			Content: ctx.OutputPrompt,
		})
	}

	systemContent := ctx.Format.FormatSections(sections)

	return []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextContent{Text: systemContent}},
		},
	}
}
