package models

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rickchristie/sqlagent"
)

// reRetryHint matches provider phrasing like "retry after 12s",
// "Retry-After: 10" or "try again in 20 seconds".
var reRetryHint = regexp.MustCompile(
	`(?i)(?:retry[ -]?after|try again in)[:\s]*(\d+)\s*(milliseconds?|ms|minutes?|seconds?|s|m)?`,
)

// ClassifyErr maps a provider transport error onto the run's error
// taxonomy: throttling becomes *sqlagent.RateLimitError and connection,
// auth, or server failures wrap sqlagent.ErrProviderUnavailable. Context
// cancellation passes through untouched so run-level causes stay
// distinguishable, and anything unrecognized is returned as-is.
//
// LangChainGo surfaces HTTP failures as error text ("API returned
// unexpected status code: 429 ..."), so classification matches on status
// markers and common phrasings rather than typed errors.
func ClassifyErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, sqlagent.ErrProviderUnavailable) {
		return err
	}
	var rateLimited *sqlagent.RateLimitError
	if errors.As(err, &rateLimited) {
		return err
	}

	text := strings.ToLower(err.Error())

	if strings.Contains(text, "status code: 429") ||
		strings.Contains(text, "rate limit") ||
		strings.Contains(text, "too many requests") {
		return &sqlagent.RateLimitError{
			RetryAfter: retryAfterHint(text),
			Err:        err,
		}
	}

	unavailable := []string{
		"status code: 401",
		"status code: 403",
		"status code: 5",
		"connection refused",
		"connection reset",
		"no such host",
		"i/o timeout",
		"eof",
	}
	for _, marker := range unavailable {
		if strings.Contains(text, marker) {
			return fmt.Errorf("%w: %v", sqlagent.ErrProviderUnavailable, err)
		}
	}

	return err
}

// retryAfterHint extracts a wait duration from provider error text,
// returning zero when no hint is present. The unit defaults to seconds.
func retryAfterHint(text string) time.Duration {
	m := reRetryHint.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}

	unit := strings.ToLower(m[2])
	switch {
	case strings.HasPrefix(unit, "ms"), strings.HasPrefix(unit, "millisecond"):
		return time.Duration(n) * time.Millisecond
	case strings.HasPrefix(unit, "m"):
		return time.Duration(n) * time.Minute
	default:
		return time.Duration(n) * time.Second
	}
}
