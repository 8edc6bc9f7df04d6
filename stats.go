package sqlagent

import (
	"sync"
)

// Stats tracks per-run counters. All methods are safe for concurrent use;
// hooks may read stats while the loop mutates them.
//
// Consecutive counters (rate-limit retries, malformed retries) reset on
// success so ceilings bound incidents, not run lifetime.
type Stats struct {
	mu sync.Mutex

	roundTrips       int
	rateLimitRetries int
	rateLimitTotal   int
	malformedRetries int
	malformedTotal   int
	toolErrors       int
	modelCalls       int
	inputTokens      int
	outputTokens     int
}

// NewStats creates zeroed stats.
func NewStats() *Stats {
	return &Stats{}
}

// IncrRoundTrips records one completed tool round-trip and returns the new
// total.
func (s *Stats) IncrRoundTrips() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roundTrips++
	return s.roundTrips
}

// RoundTrips returns the number of completed tool round-trips.
func (s *Stats) RoundTrips() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roundTrips
}

// IncrRateLimitRetries records one throttled provider call and returns the
// new consecutive count.
func (s *Stats) IncrRateLimitRetries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateLimitRetries++
	s.rateLimitTotal++
	return s.rateLimitRetries
}

// ResetRateLimitRetries clears the consecutive rate-limit counter after a
// successful provider call.
func (s *Stats) ResetRateLimitRetries() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateLimitRetries = 0
}

// IncrMalformedRetries records one unparseable model response and returns
// the new consecutive count.
func (s *Stats) IncrMalformedRetries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.malformedRetries++
	s.malformedTotal++
	return s.malformedRetries
}

// ResetMalformedRetries clears the consecutive malformed counter after a
// successfully parsed response.
func (s *Stats) ResetMalformedRetries() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.malformedRetries = 0
}

// IncrToolErrors records one in-band tool failure (the self-correction
// channel) and returns the new total.
func (s *Stats) IncrToolErrors() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolErrors++
	return s.toolErrors
}

// AddModelCall records one completed provider call with its token usage.
func (s *Stats) AddModelCall(inputTokens, outputTokens int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modelCalls++
	s.inputTokens += inputTokens
	s.outputTokens += outputTokens
}

// Snapshot is a consistent point-in-time copy of all counters.
type StatsSnapshot struct {
	RoundTrips       int
	RateLimitRetries int
	RateLimitTotal   int
	MalformedRetries int
	MalformedTotal   int
	ToolErrors       int
	ModelCalls       int
	InputTokens      int
	OutputTokens     int
}

// Snapshot returns a copy of all counters.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatsSnapshot{
		RoundTrips:       s.roundTrips,
		RateLimitRetries: s.rateLimitRetries,
		RateLimitTotal:   s.rateLimitTotal,
		MalformedRetries: s.malformedRetries,
		MalformedTotal:   s.malformedTotal,
		ToolErrors:       s.toolErrors,
		ModelCalls:       s.modelCalls,
		InputTokens:      s.inputTokens,
		OutputTokens:     s.outputTokens,
	}
}

// Retries is the total number of corrective events the run consumed:
// rate-limit retries, malformed-response recoveries, and failed tool
// observations. Reported in answer metadata.
func (s StatsSnapshot) Retries() int {
	return s.RateLimitTotal + s.MalformedTotal + s.ToolErrors
}
