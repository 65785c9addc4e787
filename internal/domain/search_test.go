package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLayouts = []string{"1-2-2006", "January-2-2006", "January-02-2006", "01-02-2006"}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSearchPolicy_Candidates(t *testing.T) {
	today := time.Date(2021, time.October, 3, 14, 30, 0, 0, time.UTC)
	policy := SearchPolicy{LookbackDays: 10, Layouts: testLayouts}

	cands := policy.Candidates(today)
	require.Len(t, cands, 40)

	assert.Equal(t, "10-3-2021", cands[0].Stamp())
	assert.Equal(t, "October-3-2021", cands[1].Stamp())
	assert.Equal(t, "October-03-2021", cands[2].Stamp())
	assert.Equal(t, "10-03-2021", cands[3].Stamp())
	assert.Equal(t, 1, cands[4].Offset)
	assert.Equal(t, "10-2-2021", cands[4].Stamp())

	last := cands[len(cands)-1]
	assert.Equal(t, 9, last.Offset)
	assert.Equal(t, "09-24-2021", last.Stamp())
}

func TestFirstSuccess(t *testing.T) {
	cands := SearchPolicy{LookbackDays: 3, Layouts: testLayouts}.Candidates(day(2021, 10, 3))

	t.Run("short-circuits on first success", func(t *testing.T) {
		calls := 0
		v, c, err := FirstSuccess(context.Background(), cands, func(_ context.Context, c Candidate) (string, error) {
			calls++
			if c.Offset == 1 && c.Layout == "January-2-2006" {
				return c.Stamp(), nil
			}
			return "", errors.New("404")
		}, discardLogger())

		require.NoError(t, err)
		assert.Equal(t, "October-2-2021", v)
		assert.Equal(t, 1, c.Offset)
		assert.Equal(t, 6, calls)
	})

	t.Run("reports every attempt when all fail", func(t *testing.T) {
		calls := 0
		_, _, err := FirstSuccess(context.Background(), cands, func(_ context.Context, _ Candidate) (int, error) {
			calls++
			return 0, SourceUnavailable("workbook", errors.New("status 404"))
		}, discardLogger())

		require.Error(t, err)
		assert.Equal(t, len(cands), calls)

		var se *SearchError
		require.ErrorAs(t, err, &se)
		assert.Len(t, se.Attempts, len(cands))
		assert.ErrorIs(t, err, ErrSourceUnavailable)
		assert.Contains(t, err.Error(), "all 12 candidates failed")
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, _, err := FirstSuccess(ctx, cands, func(_ context.Context, _ Candidate) (int, error) {
			t.Fatal("no candidate should run")
			return 0, nil
		}, discardLogger())
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestToday_UsesClock(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(time.Date(2021, time.March, 4, 23, 59, 0, 0, time.UTC)))
	t.Cleanup(func() { SetClock(nil) })

	assert.Equal(t, day(2021, time.March, 4), Today())
}

func TestError_Kinds(t *testing.T) {
	err := SourceUnavailable("cases", errors.New("connection refused"))

	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.NotErrorIs(t, err, ErrParseFailure)
	assert.Equal(t, "cases: source unavailable: connection refused", err.Error())

	parse := ParseFailure("", errors.New("bad header"))
	assert.Equal(t, "parse failure: bad header", parse.Error())
	assert.Equal(t, "parse failure", ErrParseFailure.Error())
}
