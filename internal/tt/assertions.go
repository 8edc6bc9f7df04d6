package tt

import (
	"testing"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"

	"github.com/rickchristie/sqlagent"
)

// AssertTextEqual asserts that got equals want, failing with a unified diff
// for multi-line payloads like prompts and schema descriptions where
// testify's single-line mismatch output is unreadable.
func AssertTextEqual(t *testing.T, want, got string) {
	t.Helper()

	if want == got {
		return
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  3,
	})
	if err != nil {
		t.Fatalf("failed to build diff: %v", err)
	}
	t.Errorf("text mismatch:\n%s", diff)
}

// CountEventNames counts recorded hook events by name, for tests that only
// care how often each boundary fired.
func CountEventNames(events []RecordedEvent) map[string]int {
	counts := make(map[string]int)
	for _, e := range events {
		counts[e.Name]++
	}
	return counts
}

// AssertBalanced asserts the transcript invariant that every tool call has
// exactly one observation.
func AssertBalanced(t *testing.T, transcript *sqlagent.Transcript) {
	t.Helper()
	assert.True(t, transcript.Balanced(),
		"transcript unbalanced: %d tool calls, %d observations",
		transcript.ToolCallCount(), transcript.ObservationCount())
}
