// Package tt provides shared test doubles and assertion helpers. Each mock
// mirrors the production contract it stands in for: the model mock updates
// token stats and fires model-call hooks, the hook registry records events
// in firing order, and the clock advances deterministically on sleep.
package tt

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/rickchristie/sqlagent"
)

// -----------------------------------------------------------------------------
// MockModel - implements sqlagent.Model
// -----------------------------------------------------------------------------

type mockModelCall struct {
	resp *sqlagent.ContentResponse
	err  error
}

// MockModel is a scripted mock that implements sqlagent.Model. Queue
// responses and errors in call order with AddResponse / AddError; calls
// past the end of the script return a terminal answer response.
type MockModel struct {
	id        string
	calls     []mockModelCall
	callCount int

	// CapturedMessages stores the messages passed to each GenerateContent
	// call, in call order.
	CapturedMessages [][]llms.MessageContent
}

// NewMockModel creates a new MockModel with the default id "test-model".
func NewMockModel() *MockModel {
	return &MockModel{id: "test-model"}
}

// WithID sets the model id.
func (m *MockModel) WithID(id string) *MockModel {
	m.id = id
	return m
}

// AddResponse queues a response with the given content and token counts.
func (m *MockModel) AddResponse(content string, inputTokens, outputTokens int) *MockModel {
	m.calls = append(m.calls, mockModelCall{
		resp: &sqlagent.ContentResponse{
			Content: content,
			Info: &sqlagent.GenerationInfo{
				InputTokens:  inputTokens,
				OutputTokens: outputTokens,
				TotalTokens:  inputTokens + outputTokens,
			},
		},
	})
	return m
}

// AddError queues an error for the call at this position in the script.
func (m *MockModel) AddError(err error) *MockModel {
	m.calls = append(m.calls, mockModelCall{err: err})
	return m
}

// CallCount returns the number of GenerateContent calls so far.
func (m *MockModel) CallCount() int {
	return m.callCount
}

// ModelID implements sqlagent.Model.
func (m *MockModel) ModelID() string {
	return m.id
}

// GenerateContent implements sqlagent.Model with the same side effects as
// the production wrapper: token accounting on the run's stats and
// model-call hook firing.
func (m *MockModel) GenerateContent(
	ctx context.Context,
	run *sqlagent.Run,
	messages []llms.MessageContent,
	_ ...llms.CallOption,
) (*sqlagent.ContentResponse, error) {
	idx := m.callCount
	m.callCount++
	m.CapturedMessages = append(m.CapturedMessages, messages)

	run.FireBeforeModelCall(ctx, sqlagent.BeforeModelCallEvent{
		ModelID:  m.id,
		Messages: messages,
	})

	var resp *sqlagent.ContentResponse
	var err error
	if idx < len(m.calls) {
		resp, err = m.calls[idx].resp, m.calls[idx].err
	} else {
		resp = &sqlagent.ContentResponse{
			Content: "<answer>\ndone\n</answer>",
			Info: &sqlagent.GenerationInfo{
				InputTokens:  10,
				OutputTokens: 5,
				TotalTokens:  15,
			},
		}
	}

	if err == nil && run != nil && resp.Info != nil {
		run.Stats().AddModelCall(resp.Info.InputTokens, resp.Info.OutputTokens)
	}

	run.FireAfterModelCall(ctx, sqlagent.AfterModelCallEvent{
		ModelID:  m.id,
		Response: resp,
		Err:      err,
	})

	return resp, err
}

var _ sqlagent.Model = (*MockModel)(nil)

// -----------------------------------------------------------------------------
// MockClock - implements sqlagent.Clock
// -----------------------------------------------------------------------------

// MockClock is a deterministic clock. Now starts at a fixed base time and
// advances by the slept duration on every Sleep, so both backoff sequences
// and duration metadata are exact in tests.
type MockClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

// NewMockClock creates a MockClock at a fixed base time.
func NewMockClock() *MockClock {
	return &MockClock{
		now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// WithNow sets the current time.
func (c *MockClock) WithNow(t time.Time) *MockClock {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
	return c
}

// Now implements sqlagent.Clock.
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward without recording a sleep.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Sleep implements sqlagent.Clock: it records the requested duration and
// advances Now by it. Honors prior cancellation like the real clock.
func (c *MockClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

// Sleeps returns the recorded sleep durations in order.
func (c *MockClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}

var _ sqlagent.Clock = (*MockClock)(nil)

// -----------------------------------------------------------------------------
// MockHookRegistry - implements sqlagent.HookFirer
// -----------------------------------------------------------------------------

// RecordedEvent is one fired hook event with its firing-order name.
type RecordedEvent struct {
	Name  string
	Event sqlagent.HookEvent
}

// MockHookRegistry records every fired event in order. It implements
// sqlagent.HookFirer so it can be attached to a Run directly.
type MockHookRegistry struct {
	mu     sync.Mutex
	events []RecordedEvent
}

// NewMockHookRegistry creates an empty recorder.
func NewMockHookRegistry() *MockHookRegistry {
	return &MockHookRegistry{}
}

func (h *MockHookRegistry) record(name string, event sqlagent.HookEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, RecordedEvent{Name: name, Event: event})
}

func (h *MockHookRegistry) FireBeforeRun(_ context.Context, _ *sqlagent.Run, e sqlagent.BeforeRunEvent) {
	h.record("before_run", e)
}

func (h *MockHookRegistry) FireAfterRun(_ context.Context, _ *sqlagent.Run, e sqlagent.AfterRunEvent) {
	h.record("after_run", e)
}

func (h *MockHookRegistry) FireBeforeStep(_ context.Context, _ *sqlagent.Run, e sqlagent.BeforeStepEvent) {
	h.record("before_step", e)
}

func (h *MockHookRegistry) FireAfterStep(_ context.Context, _ *sqlagent.Run, e sqlagent.AfterStepEvent) {
	h.record("after_step", e)
}

func (h *MockHookRegistry) FireBeforeModelCall(_ context.Context, _ *sqlagent.Run, e sqlagent.BeforeModelCallEvent) {
	h.record("before_model_call", e)
}

func (h *MockHookRegistry) FireAfterModelCall(_ context.Context, _ *sqlagent.Run, e sqlagent.AfterModelCallEvent) {
	h.record("after_model_call", e)
}

func (h *MockHookRegistry) FireBeforeToolCall(_ context.Context, _ *sqlagent.Run, e sqlagent.BeforeToolCallEvent) {
	h.record("before_tool_call", e)
}

func (h *MockHookRegistry) FireAfterToolCall(_ context.Context, _ *sqlagent.Run, e sqlagent.AfterToolCallEvent) {
	h.record("after_tool_call", e)
}

// Events returns the recorded events in firing order.
func (h *MockHookRegistry) Events() []RecordedEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]RecordedEvent, len(h.events))
	copy(out, h.events)
	return out
}

// Names returns just the event names in firing order.
func (h *MockHookRegistry) Names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, 0, len(h.events))
	for _, e := range h.events {
		names = append(names, e.Name)
	}
	return names
}

var _ sqlagent.HookFirer = (*MockHookRegistry)(nil)

// -----------------------------------------------------------------------------
// MockInspector - schema inspection double
// -----------------------------------------------------------------------------

// MockInspector is a canned schema source satisfying the tools package's
// Inspector interface. Call counts let caching tests verify that repeat
// lookups never hit the source twice.
type MockInspector struct {
	Tables  []string
	Schemas map[string]string

	ListErr     error
	DescribeErr error

	ListCalls     int
	DescribeCalls int
}

// NewMockInspector creates an inspector with a small Pagila-shaped catalog.
func NewMockInspector() *MockInspector {
	return &MockInspector{
		Tables: []string{"actor", "category", "film", "film_actor", "film_category"},
		Schemas: map[string]string{
			"actor":         "CREATE TABLE actor (actor_id integer, first_name text, last_name text)",
			"category":      "CREATE TABLE category (category_id integer, name text)",
			"film":          "CREATE TABLE film (film_id integer, title text, length smallint)",
			"film_actor":    "CREATE TABLE film_actor (actor_id integer, film_id integer)",
			"film_category": "CREATE TABLE film_category (film_id integer, category_id integer)",
		},
	}
}

// ListTables returns the canned table list.
func (i *MockInspector) ListTables(_ context.Context) ([]string, error) {
	i.ListCalls++
	if i.ListErr != nil {
		return nil, i.ListErr
	}
	out := make([]string, len(i.Tables))
	copy(out, i.Tables)
	return out, nil
}

// DescribeTables returns the canned schema text for the named tables. An
// empty list or a name with no canned schema produces a
// *sqlagent.ToolFailure the way the real inspector does.
func (i *MockInspector) DescribeTables(_ context.Context, tables []string) (string, error) {
	i.DescribeCalls++
	if i.DescribeErr != nil {
		return "", i.DescribeErr
	}
	if len(tables) == 0 {
		return "", &sqlagent.ToolFailure{
			Class:   "invalid_arguments",
			Message: "tables list is empty; pass at least one table name",
		}
	}

	var parts []string
	for _, name := range tables {
		ddl, ok := i.Schemas[name]
		if !ok {
			return "", &sqlagent.ToolFailure{
				Class:   "undefined_table",
				Message: fmt.Sprintf("table %q does not exist", name),
			}
		}
		parts = append(parts, ddl)
	}
	return strings.Join(parts, "\n\n"), nil
}

// -----------------------------------------------------------------------------
// MockQueryExecutor - SQL execution double
// -----------------------------------------------------------------------------

type mockQueryCall struct {
	result string
	err    error
}

// MockQueryExecutor is a scripted double satisfying the tools package's
// QueryExecutor interface. Queue results and failures in call order; calls
// past the end of the script return an empty result set.
type MockQueryExecutor struct {
	calls   []mockQueryCall
	callIdx int

	// CapturedSQL stores the SQL passed to each Query call, in order.
	CapturedSQL []string
}

// NewMockQueryExecutor creates an empty scripted executor.
func NewMockQueryExecutor() *MockQueryExecutor {
	return &MockQueryExecutor{}
}

// AddResult queues a successful result payload.
func (e *MockQueryExecutor) AddResult(text string) *MockQueryExecutor {
	e.calls = append(e.calls, mockQueryCall{result: text})
	return e
}

// AddFailure queues an in-band *sqlagent.ToolFailure with the given class
// and message.
func (e *MockQueryExecutor) AddFailure(class, message string) *MockQueryExecutor {
	e.calls = append(e.calls, mockQueryCall{
		err: &sqlagent.ToolFailure{Class: class, Message: message},
	})
	return e
}

// AddError queues a raw error, which the registry treats as fatal.
func (e *MockQueryExecutor) AddError(err error) *MockQueryExecutor {
	e.calls = append(e.calls, mockQueryCall{err: err})
	return e
}

// CallCount returns the number of Query calls so far.
func (e *MockQueryExecutor) CallCount() int {
	return e.callIdx
}

// Query returns the next scripted result.
func (e *MockQueryExecutor) Query(_ context.Context, sql string) (string, error) {
	idx := e.callIdx
	e.callIdx++
	e.CapturedSQL = append(e.CapturedSQL, sql)

	if idx < len(e.calls) {
		return e.calls[idx].result, e.calls[idx].err
	}
	return "(0 rows)", nil
}
