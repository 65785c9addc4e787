package domain

import "time"

// Indicator names, also used as diagnostics keys.
const (
	IndicatorCasesPerCap        = "daily_cases_per_cap"
	IndicatorHospitalizedPerCap = "daily_hospitalized_per_cap"
	IndicatorDeathsPerCap       = "daily_deaths_per_cap"
	IndicatorPositivity         = "daily_positivity"
)

// Diff returns day-over-day differences of a cumulative series. The first
// value is zero; later values are missing when either operand is missing.
func Diff(values []float64) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i == 0 {
			out[i] = 0
			continue
		}
		if IsMissing(values[i]) || IsMissing(values[i-1]) {
			out[i] = Missing()
			continue
		}
		out[i] = values[i] - values[i-1]
	}
	return out
}

// Divide returns num[i]/den[i]. A zero or missing denominator yields a missing
// value; the number of such indeterminate results is returned alongside.
func Divide(num, den []float64) ([]float64, int) {
	out := make([]float64, len(num))
	indeterminate := 0
	for i := range num {
		switch {
		case IsMissing(num[i]):
			out[i] = Missing()
		case i >= len(den) || IsMissing(den[i]) || den[i] == 0:
			out[i] = Missing()
			indeterminate++
		default:
			out[i] = num[i] / den[i]
		}
	}
	return out, indeterminate
}

// MovingAverage returns the trailing arithmetic mean over window values. The
// first window-1 results are missing, as is any window that contains a
// missing value.
func MovingAverage(values []float64, window int) []float64 {
	if window < 1 {
		window = 1
	}
	out := make([]float64, len(values))
	for i := range values {
		if i < window-1 {
			out[i] = Missing()
			continue
		}
		sum := 0.0
		missing := false
		for _, v := range values[i-window+1 : i+1] {
			if IsMissing(v) {
				missing = true
				break
			}
			sum += v
		}
		if missing {
			out[i] = Missing()
			continue
		}
		out[i] = sum / float64(window)
	}
	return out
}

// Indicators holds the four smoothed indicators of one cohort, aligned to Dates.
type Indicators struct {
	Dates              []time.Time
	CasesPerCap        []float64
	HospitalizedPerCap []float64
	DeathsPerCap       []float64
	Positivity         []float64

	// Indeterminate counts divisions by a zero or missing denominator per indicator.
	Indeterminate map[string]int
}

// ComputeIndicators derives per-capita daily cases, current hospitalizations,
// daily deaths, and test positivity from date-ordered aligned rows, each
// smoothed by a trailing moving average of window days.
func ComputeIndicators(rows []AlignedRow, window int) Indicators {
	n := len(rows)
	dates := make([]time.Time, n)
	cases := make([]float64, n)
	deaths := make([]float64, n)
	hosp := make([]float64, n)
	pos := make([]float64, n)
	tests := make([]float64, n)
	pop := make([]float64, n)
	for i, r := range rows {
		dates[i] = r.Date
		cases[i] = r.Cases
		deaths[i] = r.Deaths
		hosp[i] = r.Hospitalized
		pos[i] = r.Positives
		tests[i] = r.Tests
		pop[i] = r.Population
	}

	casesPerCap, casesBad := Divide(Diff(cases), pop)
	hospPerCap, hospBad := Divide(hosp, pop)
	deathsPerCap, deathsBad := Divide(Diff(deaths), pop)
	positivity, posBad := Divide(pos, tests)

	return Indicators{
		Dates:              dates,
		CasesPerCap:        MovingAverage(casesPerCap, window),
		HospitalizedPerCap: MovingAverage(hospPerCap, window),
		DeathsPerCap:       MovingAverage(deathsPerCap, window),
		Positivity:         MovingAverage(positivity, window),
		Indeterminate: map[string]int{
			IndicatorCasesPerCap:        casesBad,
			IndicatorHospitalizedPerCap: hospBad,
			IndicatorDeathsPerCap:       deathsBad,
			IndicatorPositivity:         posBad,
		},
	}
}
