package domain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// SearchPolicy describes a bounded backward search over dated file names:
// every day from today back LookbackDays-1 days, each tried with every layout
// in order.
type SearchPolicy struct {
	LookbackDays int
	Layouts      []string
}

// Candidate is one (day offset, date layout) combination to try.
type Candidate struct {
	Offset int
	Layout string
	Date   time.Time
}

// Stamp renders the candidate date with its layout, e.g. "9-22-2021".
func (c Candidate) Stamp() string {
	return c.Date.Format(c.Layout)
}

// Candidates lists every candidate in try order: newest day first, layouts in
// configured order within a day.
func (p SearchPolicy) Candidates(today time.Time) []Candidate {
	today = Day(today)
	out := make([]Candidate, 0, p.LookbackDays*len(p.Layouts))
	for offset := 0; offset < p.LookbackDays; offset++ {
		date := today.AddDate(0, 0, -offset)
		for _, layout := range p.Layouts {
			out = append(out, Candidate{Offset: offset, Layout: layout, Date: date})
		}
	}
	return out
}

// Attempt records the outcome of one failed candidate.
type Attempt struct {
	Candidate Candidate
	Err       error
}

// SearchError reports that every candidate failed.
type SearchError struct {
	Attempts []Attempt
}

func (e *SearchError) Error() string {
	if len(e.Attempts) == 0 {
		return "no candidates to try"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "all %d candidates failed", len(e.Attempts))
	last := e.Attempts[len(e.Attempts)-1]
	fmt.Fprintf(&b, " (last %s: %v)", last.Candidate.Stamp(), last.Err)
	return b.String()
}

func (e *SearchError) Unwrap() []error {
	errs := make([]error, len(e.Attempts))
	for i, a := range e.Attempts {
		errs[i] = a.Err
	}
	return errs
}

// FirstSuccess tries each candidate in order and returns the first result
// that try accepts. Logging each attempt is left to try; only an exhausted
// search is logged here. When all candidates fail the returned error is a
// *SearchError holding each attempt.
func FirstSuccess[T any](ctx context.Context, candidates []Candidate, try func(context.Context, Candidate) (T, error), logger *slog.Logger) (T, Candidate, error) {
	var zero T
	attempts := make([]Attempt, 0, len(candidates))
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return zero, Candidate{}, err
		}
		v, err := try(ctx, c)
		if err == nil {
			return v, c, nil
		}
		attempts = append(attempts, Attempt{Candidate: c, Err: err})
	}

	stamps := make([]string, len(attempts))
	for i, a := range attempts {
		stamps[i] = a.Candidate.Stamp()
	}
	logger.Warn("all candidates failed", "attempts", len(attempts), "stamps", stamps)
	return zero, Candidate{}, &SearchError{Attempts: attempts}
}
