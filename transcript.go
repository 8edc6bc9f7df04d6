package sqlagent

// QueryRequest is one user question plus the model that should answer it.
// Immutable once accepted by Submit.
type QueryRequest struct {
	// Question is the natural-language question about the database.
	Question string

	// ModelID selects the model, e.g. "gpt-4o-mini" or
	// "mistralai/mistral-7b-instruct:free". The provider is chosen from the
	// ID by the models.Router.
	ModelID string
}

// ToolCall is a single requested tool invocation, produced by a reasoning
// step. The name must be one of the registered tools; Args are validated
// against the tool's declared parameter schema before dispatch.
type ToolCall struct {
	// Name is the tool identifier, e.g. "query_sql".
	Name string

	// Args contains the raw arguments parsed from the action section.
	Args map[string]any
}

// ObservationStatus marks an observation as a success payload or a
// structured failure.
type ObservationStatus string

const (
	ObservationOK    ObservationStatus = "ok"
	ObservationError ObservationStatus = "error"
)

// Observation is the result of exactly one tool invocation, appended to the
// transcript and fed back to the model as the next input. Error
// observations are the self-correction channel: they carry the failure
// class and the verbatim underlying message so the next reasoning step can
// issue a corrected call.
type Observation struct {
	// Call is the originating tool call.
	Call ToolCall

	// Status indicates success or structured failure.
	Status ObservationStatus

	// Content is the payload shown to the model: formatted rows or schema
	// descriptions on success, the failure class and message on error.
	Content string

	// Class is the coarse failure classification when Status is
	// ObservationError: "unknown_tool", "invalid_arguments", or a SQL
	// error class such as "syntax" or "undefined_table".
	Class string

	// Fatal marks an infrastructure failure (e.g. database connection
	// loss) that terminates the run instead of feeding self-correction.
	Fatal bool
}

// Iteration records one reasoning step: the raw assistant output (which
// contains the thought), and, when the step was an action, the parsed tool
// call with its observation. A terminal answer step has Call and
// Observation nil.
type Iteration struct {
	// Raw is the assistant's full response text for this step.
	Raw string

	// Thought is the extracted reasoning text, empty when the model emitted
	// none.
	Thought string

	// Call is the parsed tool call, nil for answer and corrective steps.
	Call *ToolCall

	// Observation is the result of dispatching Call. For corrective steps
	// (unparseable output) it holds the synthetic reformatting instruction
	// with no originating call.
	Observation *Observation
}

// Transcript is the ordered reasoning history of one request: the original
// request plus every iteration in order. It is owned by exactly one
// in-flight run, never shared, and discarded when the run terminates.
//
// Transcript is not safe for concurrent use; the loop that owns it is
// strictly sequential.
type Transcript struct {
	request    QueryRequest
	iterations []*Iteration
}

// NewTranscript seeds a transcript with the request.
func NewTranscript(req QueryRequest) *Transcript {
	return &Transcript{
		request:    req,
		iterations: make([]*Iteration, 0, 8),
	}
}

// Request returns the originating request.
func (t *Transcript) Request() QueryRequest {
	return t.request
}

// Iterations returns the recorded iterations in order. The returned slice
// must not be mutated.
func (t *Transcript) Iterations() []*Iteration {
	return t.iterations
}

// Append records the next iteration.
func (t *Transcript) Append(iter *Iteration) {
	t.iterations = append(t.iterations, iter)
}

// ToolCallCount returns the number of iterations that carried a tool call.
func (t *Transcript) ToolCallCount() int {
	n := 0
	for _, iter := range t.iterations {
		if iter.Call != nil {
			n++
		}
	}
	return n
}

// ObservationCount returns the number of iterations that carried an
// observation for a tool call. Corrective observations (no originating
// call) are not counted.
func (t *Transcript) ObservationCount() int {
	n := 0
	for _, iter := range t.iterations {
		if iter.Call != nil && iter.Observation != nil {
			n++
		}
	}
	return n
}

// Balanced reports whether every tool call has exactly one observation.
// Holds at every point where the loop is not mid-dispatch.
func (t *Transcript) Balanced() bool {
	return t.ToolCallCount() == t.ObservationCount()
}
