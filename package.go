// Package sqlagent implements the core of a natural-language-to-SQL agent:
// a reasoning loop that turns a user question about a relational database
// into a sequence of tool invocations (schema inspection, SQL execution),
// self-corrects failed queries, and terminates with a grounded answer plus
// provenance metadata.
//
// # Architecture
//
// The root package defines the domain vocabulary and the interfaces the
// leaf packages implement:
//
//   - [Transcript], [Iteration], [ToolCall], [Observation]: the per-request
//     reasoning history. Append-only, owned by exactly one in-flight run.
//   - [Tool]: a typed, named capability callable by the reasoning process.
//   - [ToolRegistry]: validated dispatch from a ToolCall to exactly one
//     backing tool, producing exactly one Observation.
//   - [Model]: one LLM completion contract over multiple provider variants
//     (native OpenAI, OpenRouter aggregator) that differ only in
//     transport/auth.
//   - [StepFormat]: parses free-text model output into a tagged step
//     (thought + tool call, or thought + final answer) with a fallback
//     recovery path for conversational output.
//   - [AgentLoop]: one reasoning step. The executor package drives it to
//     termination with rate-limit retries, backoff and ceiling enforcement.
//   - [Run]: per-request state (transcript, counters, limits, hooks).
//     Passed explicitly so concurrent requests cannot interfere.
//
// Composition happens through [Service]: a [RunnerFactory] wires the
// postgres-backed tools, the provider router, and the executor behind
// Submit and ListAvailableModels.
//
// # Error handling
//
// Recoverable problems (SQL errors, unparseable model output, unknown
// tools, bad arguments) are converted into corrective [Observation] values
// and fed back to the model; this is the self-correction channel. Only
// ceiling exhaustion and infrastructure-fatal conditions (provider down,
// database connection loss, run timeout) surface to the caller, always as
// a [*Failure] with a stable cause code and retry guidance.
package sqlagent
