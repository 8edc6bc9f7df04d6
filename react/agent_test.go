package react

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/rickchristie/sqlagent"
	"github.com/rickchristie/sqlagent/internal/tt"
	"github.com/rickchristie/sqlagent/registry"
	"github.com/rickchristie/sqlagent/tools"
)

// newTestRegistry builds the production tool set over canned doubles: a
// Pagila-shaped inspector and the given scripted query executor.
func newTestRegistry(executor *tt.MockQueryExecutor) *registry.Registry {
	inspector := tt.NewMockInspector()
	return registry.New().
		MustRegister(tools.NewListTables(inspector)).
		MustRegister(tools.NewSchema(inspector)).
		MustRegister(tools.NewQuerySQL(executor))
}

func newRun(question string) *sqlagent.Run {
	return sqlagent.NewRun(
		sqlagent.QueryRequest{Question: question, ModelID: "test-model"},
		sqlagent.DefaultLimits(),
	)
}

func messageText(msg llms.MessageContent) string {
	text := ""
	for _, part := range msg.Parts {
		if tc, ok := part.(llms.TextContent); ok {
			text += tc.Text
		}
	}
	return text
}

func TestAgent_BuildMessages_FirstStep(t *testing.T) {
	model := tt.NewMockModel()
	agent := NewAgent(model, newTestRegistry(tt.NewMockQueryExecutor()))
	run := newRun("How many films are in the database?")

	messages := agent.buildMessages(run)

	// System message plus the question, nothing else yet.
	require.Len(t, messages, 2)

	assert.Equal(t, llms.ChatMessageTypeSystem, messages[0].Role)
	system := messageText(messages[0])
	assert.Contains(t, system, "PostgreSQL database")
	assert.Contains(t, system, "read-only")
	assert.Contains(t, system, "list_tables")
	assert.Contains(t, system, "query_sql")
	assert.Contains(t, system, "<action>")
	assert.Contains(t, system, "<answer>")

	assert.Equal(t, llms.ChatMessageTypeHuman, messages[1].Role)
	assert.Equal(t, "How many films are in the database?", messageText(messages[1]))
}

func TestAgent_BuildMessages_WithHistory(t *testing.T) {
	model := tt.NewMockModel()
	agent := NewAgent(model, newTestRegistry(tt.NewMockQueryExecutor()))
	run := newRun("How many films are in the database?")

	run.Transcript().Append(&sqlagent.Iteration{
		Raw:     "<action>\n{\"tool\": \"list_tables\", \"args\": {}}\n</action>",
		Thought: "",
		Call:    &sqlagent.ToolCall{Name: "list_tables", Args: map[string]any{}},
		Observation: &sqlagent.Observation{
			Status:  sqlagent.ObservationOK,
			Content: "actor, category, film",
		},
	})
	run.Transcript().Append(&sqlagent.Iteration{
		Raw:  "<action>\n{\"tool\": \"query_sql\", \"args\": {\"sql\": \"SELECT 1\"}}\n</action>",
		Call: &sqlagent.ToolCall{Name: "query_sql", Args: map[string]any{"sql": "SELECT 1"}},
		Observation: &sqlagent.Observation{
			Status:  sqlagent.ObservationError,
			Class:   "syntax",
			Content: `syntax error at or near "FORM"`,
		},
	})

	messages := agent.buildMessages(run)

	// system, question, then two assistant/observation pairs.
	require.Len(t, messages, 6)

	assert.Equal(t, llms.ChatMessageTypeAI, messages[2].Role)
	assert.Contains(t, messageText(messages[2]), "list_tables")

	assert.Equal(t, llms.ChatMessageTypeHuman, messages[3].Role)
	assert.Equal(t, "<observation>\nactor, category, film\n</observation>",
		messageText(messages[3]))

	// Error observations carry the class and the verbatim message inside
	// an error section.
	errObs := messageText(messages[5])
	assert.Contains(t, errObs, "<observation>")
	assert.Contains(t, errObs, "<error>")
	assert.Contains(t, errObs, `syntax: syntax error at or near "FORM"`)
}

func TestDefaultSystemPromptBuilder(t *testing.T) {
	type input struct {
		behavior string
		rules    string
	}

	type expected struct {
		contains    []string
		notContains []string
	}

	tests := []struct {
		name     string
		input    input
		expected expected
	}{
		{
			name: "all sections",
			input: input{
				behavior: "You answer questions.",
				rules:    "Never guess.",
			},
			expected: expected{
				contains: []string{
					"<behavior>", "<critical_rules>",
					"<available_tools>", "<output_format>",
				},
			},
		},
		{
			name:  "empty sections omitted",
			input: input{},
			expected: expected{
				contains:    []string{"<available_tools>", "<output_format>"},
				notContains: []string{"<behavior>", "<critical_rules>"},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			agent := NewAgent(
				tt.NewMockModel(), newTestRegistry(tt.NewMockQueryExecutor()),
			)

			messages := DefaultSystemPromptBuilder(SystemPromptContext{
				Format:        agent.format,
				Behavior:      tc.input.behavior,
				CriticalRules: tc.input.rules,
				ToolsPrompt:   "tools prompt",
				OutputPrompt:  "output prompt",
			})

			require.Len(t, messages, 1)
			system := messageText(messages[0])
			for _, want := range tc.expected.contains {
				assert.Contains(t, system, want)
			}
			for _, unwanted := range tc.expected.notContains {
				assert.NotContains(t, system, unwanted)
			}
		})
	}
}

func TestAgent_Next_ToolCall(t *testing.T) {
	model := tt.NewMockModel().AddResponse(
		"<thinking>\nI should see which tables exist.\n</thinking>\n\n"+
			"<action>\n{\"tool\": \"list_tables\", \"args\": {}}\n</action>",
		100, 20,
	)
	agent := NewAgent(model, newTestRegistry(tt.NewMockQueryExecutor()))

	hooks := tt.NewMockHookRegistry()
	run := newRun("How many films are in the database?").WithHooks(hooks)

	outcome, err := agent.Next(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, sqlagent.LAContinue, outcome.Action)

	iters := run.Transcript().Iterations()
	require.Len(t, iters, 1)
	assert.Equal(t, "I should see which tables exist.", iters[0].Thought)
	require.NotNil(t, iters[0].Call)
	assert.Equal(t, "list_tables", iters[0].Call.Name)
	require.NotNil(t, iters[0].Observation)
	assert.Equal(t, sqlagent.ObservationOK, iters[0].Observation.Status)
	assert.Equal(t,
		"actor, category, film, film_actor, film_category",
		iters[0].Observation.Content,
	)

	snap := run.Stats().Snapshot()
	assert.Equal(t, 1, snap.RoundTrips)
	assert.Equal(t, 0, snap.MalformedRetries)

	assert.Equal(t, []string{
		"before_model_call",
		"after_model_call",
		"before_tool_call",
		"after_tool_call",
	}, hooks.Names())
}

func TestAgent_Next_FinalAnswer(t *testing.T) {
	model := tt.NewMockModel().AddResponse(
		"<thinking>\nThe count observation answers the question.\n</thinking>\n\n"+
			"<answer>\nThere are 1000 films in the database.\n</answer>",
		80, 15,
	)
	agent := NewAgent(model, newTestRegistry(tt.NewMockQueryExecutor()))
	run := newRun("How many films are in the database?")

	outcome, err := agent.Next(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, sqlagent.LATerminate, outcome.Action)
	assert.Equal(t, "There are 1000 films in the database.", outcome.Answer)

	iters := run.Transcript().Iterations()
	require.Len(t, iters, 1)
	assert.Nil(t, iters[0].Call)
	assert.Nil(t, iters[0].Observation)
	tt.AssertBalanced(t, run.Transcript())
}

func TestAgent_Next_SelfCorrection(t *testing.T) {
	// The classic sequence: a query against a misspelled table fails, the
	// error observation is fed back, the corrected query succeeds, and the
	// answer is synthesized from its result.
	executor := tt.NewMockQueryExecutor().
		AddFailure("undefined_table", `relation "filmx" does not exist`).
		AddResult("count\n-------\n1000\n(1 row)")

	model := tt.NewMockModel().
		AddResponse(
			"<thinking>\nCount the films.\n</thinking>\n\n"+
				"<action>\n{\"tool\": \"query_sql\", \"args\": {\"sql\": \"SELECT COUNT(*) FROM filmx\"}}\n</action>",
			120, 30,
		).
		AddResponse(
			"<thinking>\nThe table is film, not filmx.\n</thinking>\n\n"+
				"<action>\n{\"tool\": \"query_sql\", \"args\": {\"sql\": \"SELECT COUNT(*) FROM film\"}}\n</action>",
			150, 30,
		).
		AddResponse(
			"<answer>\nThere are 1000 films in the database.\n</answer>",
			180, 20,
		)

	agent := NewAgent(model, newTestRegistry(executor))
	run := newRun("How many films are in the database?")
	ctx := context.Background()

	// Step 1: failed query becomes a non-fatal error observation.
	outcome, err := agent.Next(ctx, run)
	require.NoError(t, err)
	assert.Equal(t, sqlagent.LAContinue, outcome.Action)

	iters := run.Transcript().Iterations()
	require.Len(t, iters, 1)
	assert.Equal(t, sqlagent.ObservationError, iters[0].Observation.Status)
	assert.Equal(t, "undefined_table", iters[0].Observation.Class)
	assert.False(t, iters[0].Observation.Fatal)

	// Step 2: the model sees the verbatim failure in its prompt.
	outcome, err = agent.Next(ctx, run)
	require.NoError(t, err)
	assert.Equal(t, sqlagent.LAContinue, outcome.Action)

	secondCall := model.CapturedMessages[1]
	lastMsg := messageText(secondCall[len(secondCall)-1])
	assert.Contains(t, lastMsg, `undefined_table: relation "filmx" does not exist`)

	// Step 3: final answer from the corrected result.
	outcome, err = agent.Next(ctx, run)
	require.NoError(t, err)
	assert.Equal(t, sqlagent.LATerminate, outcome.Action)
	assert.Equal(t, "There are 1000 films in the database.", outcome.Answer)

	assert.Equal(t, []string{
		"SELECT COUNT(*) FROM filmx",
		"SELECT COUNT(*) FROM film",
	}, executor.CapturedSQL)

	// Two distinct call/observation pairs, balanced at rest.
	assert.Equal(t, 2, run.Transcript().ToolCallCount())
	assert.Equal(t, 2, run.Transcript().ObservationCount())
	tt.AssertBalanced(t, run.Transcript())

	snap := run.Stats().Snapshot()
	assert.Equal(t, 2, snap.RoundTrips)
	assert.Equal(t, 1, snap.ToolErrors)
	assert.Equal(t, 1, snap.Retries())
}

func TestAgent_Next_MalformedRecovery(t *testing.T) {
	model := tt.NewMockModel().
		AddResponse("The answer is probably somewhere in the film table.", 50, 10).
		AddResponse("<answer>\nThere are 1000 films.\n</answer>", 60, 10)

	agent := NewAgent(model, newTestRegistry(tt.NewMockQueryExecutor()))
	run := newRun("How many films are in the database?")
	ctx := context.Background()

	outcome, err := agent.Next(ctx, run)
	require.NoError(t, err)
	assert.Equal(t, sqlagent.LAContinue, outcome.Action)

	iters := run.Transcript().Iterations()
	require.Len(t, iters, 1)
	assert.Nil(t, iters[0].Call)
	require.NotNil(t, iters[0].Observation)
	assert.Equal(t, "malformed", iters[0].Observation.Class)
	assert.Contains(t, iters[0].Observation.Content, "could not be parsed")
	assert.Contains(t, iters[0].Observation.Content,
		"The answer is probably somewhere in the film table.")

	assert.Equal(t, 1, run.Stats().Snapshot().MalformedRetries)

	// The corrective observation reaches the model on the next call, and a
	// parsed response resets the consecutive counter.
	outcome, err = agent.Next(ctx, run)
	require.NoError(t, err)
	assert.Equal(t, sqlagent.LATerminate, outcome.Action)

	secondCall := model.CapturedMessages[1]
	lastMsg := messageText(secondCall[len(secondCall)-1])
	assert.Contains(t, lastMsg, "could not be parsed")

	snap := run.Stats().Snapshot()
	assert.Equal(t, 0, snap.MalformedRetries)
	assert.Equal(t, 1, snap.MalformedTotal)
}

func TestAgent_Next_BothSectionsIsMalformed(t *testing.T) {
	model := tt.NewMockModel().AddResponse(
		"<action>\n{\"tool\": \"list_tables\", \"args\": {}}\n</action>\n\n"+
			"<answer>\nDone!\n</answer>",
		70, 25,
	)
	agent := NewAgent(model, newTestRegistry(tt.NewMockQueryExecutor()))
	run := newRun("How many films are in the database?")

	outcome, err := agent.Next(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, sqlagent.LAContinue, outcome.Action)

	iters := run.Transcript().Iterations()
	require.Len(t, iters, 1)
	assert.Nil(t, iters[0].Call)
	assert.Equal(t, "malformed", iters[0].Observation.Class)
	assert.Contains(t, iters[0].Observation.Content, "both")
}

func TestAgent_Next_FinalAnswerFallback(t *testing.T) {
	model := tt.NewMockModel().AddResponse(
		"I checked the film table and counted the rows.\n\n"+
			"Final Answer: There are 1000 films in the database.",
		90, 20,
	)
	agent := NewAgent(model, newTestRegistry(tt.NewMockQueryExecutor()))
	run := newRun("How many films are in the database?")

	outcome, err := agent.Next(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, sqlagent.LATerminate, outcome.Action)
	assert.Equal(t, "There are 1000 films in the database.", outcome.Answer)
	assert.Equal(t, 0, run.Stats().Snapshot().MalformedTotal)
}

func TestAgent_Next_RateLimitPassesThrough(t *testing.T) {
	model := tt.NewMockModel().AddError(&sqlagent.RateLimitError{
		RetryAfter: 5 * time.Second,
		Err:        errors.New("API returned unexpected status code: 429"),
	})
	agent := NewAgent(model, newTestRegistry(tt.NewMockQueryExecutor()))
	run := newRun("How many films are in the database?")

	outcome, err := agent.Next(context.Background(), run)
	require.Error(t, err)
	assert.Nil(t, outcome)

	var rateLimited *sqlagent.RateLimitError
	require.ErrorAs(t, err, &rateLimited)
	assert.Equal(t, 5*time.Second, rateLimited.RetryAfter)

	// Nothing recorded; retrying the same state is safe.
	assert.Empty(t, run.Transcript().Iterations())
	assert.Equal(t, 0, run.Stats().Snapshot().MalformedTotal)
}

func TestAgent_Next_ProviderUnavailable(t *testing.T) {
	model := tt.NewMockModel().AddError(
		fmt.Errorf("%w: connection refused", sqlagent.ErrProviderUnavailable),
	)
	agent := NewAgent(model, newTestRegistry(tt.NewMockQueryExecutor()))
	run := newRun("How many films are in the database?")

	_, err := agent.Next(context.Background(), run)
	require.ErrorIs(t, err, sqlagent.ErrProviderUnavailable)
	assert.Empty(t, run.Transcript().Iterations())
}

func TestAgent_Next_FatalToolFailure(t *testing.T) {
	executor := tt.NewMockQueryExecutor().
		AddError(errors.New("driver: bad connection"))

	model := tt.NewMockModel().AddResponse(
		"<action>\n{\"tool\": \"query_sql\", \"args\": {\"sql\": \"SELECT COUNT(*) FROM film\"}}\n</action>",
		100, 25,
	)
	agent := NewAgent(model, newTestRegistry(executor))
	run := newRun("How many films are in the database?")

	outcome, err := agent.Next(context.Background(), run)
	require.Error(t, err)
	assert.Nil(t, outcome)

	var fatal *sqlagent.ToolFatalError
	require.ErrorAs(t, err, &fatal)
	assert.True(t, fatal.Observation.Fatal)
	assert.Contains(t, fatal.Observation.Content, "bad connection")

	// The fatal observation is already on the transcript.
	iters := run.Transcript().Iterations()
	require.Len(t, iters, 1)
	assert.True(t, iters[0].Observation.Fatal)
	tt.AssertBalanced(t, run.Transcript())
}

func TestAgent_Next_UnknownToolFeedsBack(t *testing.T) {
	model := tt.NewMockModel().AddResponse(
		"<action>\n{\"tool\": \"drop_tables\", \"args\": {}}\n</action>",
		60, 15,
	)
	agent := NewAgent(model, newTestRegistry(tt.NewMockQueryExecutor()))
	run := newRun("Drop everything.")

	outcome, err := agent.Next(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, sqlagent.LAContinue, outcome.Action)

	iters := run.Transcript().Iterations()
	require.Len(t, iters, 1)
	assert.Equal(t, "unknown_tool", iters[0].Observation.Class)
	assert.Contains(t, iters[0].Observation.Content, "list_tables, schema, query_sql")
}

func TestAgent_WithBehaviorAndTopK(t *testing.T) {
	model := tt.NewMockModel()
	reg := newTestRegistry(tt.NewMockQueryExecutor())

	// Default behavior quotes the default row budget.
	agent := NewAgent(model, reg)
	system := messageText(agent.buildMessages(newRun("q"))[0])
	assert.Contains(t, system, "at most 10 results")

	// WithTopK changes the quoted budget.
	agent = NewAgent(model, reg).WithTopK(25)
	system = messageText(agent.buildMessages(newRun("q"))[0])
	assert.Contains(t, system, "at most 25 results")

	// WithBehavior replaces the prompt wholesale.
	agent = NewAgent(model, reg).WithBehavior("You answer billing questions.")
	system = messageText(agent.buildMessages(newRun("q"))[0])
	assert.Contains(t, system, "You answer billing questions.")
	assert.NotContains(t, system, "at most 10 results")
}
