// Package ratelimit provides fixed-window request limiting with an
// in-process backend and a Redis backend.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Rule allows Limit hits per Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

var periods = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
}

// ParseRule parses "5/minute", "10 per hour" or "100/second".
func ParseRule(s string) (Rule, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	count, period, ok := strings.Cut(s, "/")
	if !ok {
		count, period, ok = strings.Cut(s, " per ")
	}
	if !ok {
		return Rule{}, fmt.Errorf("rate limit %q: expected <count>/<period>", s)
	}

	n, err := strconv.Atoi(strings.TrimSpace(count))
	if err != nil || n <= 0 {
		return Rule{}, fmt.Errorf("rate limit %q: count must be a positive integer", s)
	}
	window, ok := periods[strings.TrimSuffix(strings.TrimSpace(period), "s")]
	if !ok {
		return Rule{}, fmt.Errorf("rate limit %q: unknown period %q", s, period)
	}
	return Rule{Limit: n, Window: window}, nil
}

func (r Rule) String() string {
	for name, d := range periods {
		if d == r.Window {
			return fmt.Sprintf("%d/%s", r.Limit, name)
		}
	}
	return fmt.Sprintf("%d/%s", r.Limit, r.Window)
}

// Result contains the result of a rate limit check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter counts a hit for key under rule and reports whether it is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string, rule Rule) (Result, error)
}

func newResult(rule Rule, count int, resetAt, now time.Time) Result {
	res := Result{
		Allowed:   count <= rule.Limit,
		Limit:     rule.Limit,
		Remaining: max(rule.Limit-count, 0),
		ResetAt:   resetAt,
	}
	if !res.Allowed {
		res.RetryAfter = max(resetAt.Sub(now), 0)
	}
	return res
}
