// Package react implements the per-step reasoning loop that turns a user
// question into tool calls and, eventually, an answer.
//
// # Overview
//
// Each Next call performs exactly one reasoning step: build the prompt
// from the run's transcript, call the model, parse the response into a
// tagged step, and either dispatch the requested tool call or hand the
// final answer to the executor. The executor package drives Next
// repeatedly and owns everything around it (retry ceilings, backoff,
// timeouts, failure synthesis).
//
// # Step Behavior
//
// ## 1. One Tool Call Per Step
//
// A response must contain exactly one action or exactly one answer. A
// response with both, or with multiple actions, is rejected by the format
// and fed back as a corrective observation. This keeps the transcript's
// call/observation pairing unambiguous: every tool call the model makes is
// answered by exactly one observation before the model speaks again.
//
// ## 2. Self-Correction Through Observations
//
// Tool results, including in-band failures such as SQL errors, come back
// as observations in the next user message. Error observations carry the
// failure class and the verbatim underlying message, so the model can read
// what went wrong and issue a corrected call. The loop does not special-case
// failed tools; a failed query and a successful one travel the same path.
//
// ## 3. Malformed Response Recovery
//
// When a response fits no step shape and no embedded final answer is
// recoverable, the agent appends a synthetic corrective observation
// (parse error detail, reformatting instructions, and the raw response)
// and continues. The consecutive-malformed counter feeds the executor's
// ceiling; a successfully parsed response resets it.
//
// # Configuration
//
//	agent := react.NewAgent(model, registry).
//	    WithBehavior("You answer questions about the billing database.").
//	    WithTopK(25)
//
// The system prompt is assembled by a SystemPromptBuilder from the
// behavior text, the critical rules, the registry's tool catalog, and the
// format's output instructions. Replace it wholesale with
// WithSystemPromptBuilder for full control over prompting.
package react
