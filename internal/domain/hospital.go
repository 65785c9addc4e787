package domain

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Metric names used for series and diagnostics.
const (
	MetricCases        = "cases"
	MetricDeaths       = "deaths"
	MetricHospitalized = "hospitalized"
	MetricPositives    = "positives"
	MetricTests        = "tests"
)

// HospitalSeries holds the hospitalization and testing metrics keyed by full region name.
type HospitalSeries struct {
	Hospitalized *Series
	Positives    *Series
	Tests        *Series
}

// ReconcileHospital translates abbreviation-keyed hospital records to full
// region names through the bridge. Records whose abbreviation has no bridge
// entry are dropped and their abbreviations returned, sorted and unique.
// Null fields stay missing.
func ReconcileHospital(records []HospitalRecord, bridge Bridge) (HospitalSeries, []string, error) {
	out := HospitalSeries{
		Hospitalized: NewSeries(MetricHospitalized),
		Positives:    NewSeries(MetricPositives),
		Tests:        NewSeries(MetricTests),
	}
	unmatched := make(map[string]struct{})

	for _, rec := range records {
		date, err := parseCompactDate(rec.Date)
		if err != nil {
			return HospitalSeries{}, nil, ParseFailure("hospital", err)
		}
		region, ok := bridge[rec.State]
		if !ok {
			unmatched[rec.State] = struct{}{}
			continue
		}
		addOptional(out.Hospitalized, region, date, rec.HospitalizedCurrently)
		addOptional(out.Positives, region, date, rec.PositiveIncrease)
		addOptional(out.Tests, region, date, rec.TotalTestResultsIncrease)
	}

	abbrevs := make([]string, 0, len(unmatched))
	for a := range unmatched {
		abbrevs = append(abbrevs, a)
	}
	sort.Strings(abbrevs)
	return out, abbrevs, nil
}

func addOptional(s *Series, region string, date time.Time, v *float64) {
	if v == nil {
		return
	}
	s.Add(region, date, *v)
}

// parseCompactDate parses integer dates such as 20200315.
func parseCompactDate(v int) (time.Time, error) {
	t, err := time.Parse("20060102", strconv.Itoa(v))
	if err != nil {
		return time.Time{}, fmt.Errorf("date %d: %w", v, err)
	}
	return t, nil
}
