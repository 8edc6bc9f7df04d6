// Package pagila contains live integration tests against a real Pagila
// database and real model providers.
//
// Every test is gated on environment variables and skips when they are
// not set:
//
//	SQLAGENT_TEST_PAGILA_DSN      Postgres DSN of a Pagila database
//	SQLAGENT_TEST_OPENAI_KEY      native OpenAI API key
//	SQLAGENT_TEST_OPENROUTER_KEY  OpenRouter API key
//
// Database tests need just the DSN. Agent tests additionally need one
// provider key and prefer the native OpenAI API when both are set. The
// full run transcript is streamed to stdout, so run with -v to watch
// the agent work.
package pagila
