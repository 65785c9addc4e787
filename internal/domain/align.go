package domain

import (
	"sort"
	"time"
)

// CohortInputs are the normalized, name-keyed series shared by every cohort.
type CohortInputs struct {
	Cases      *Series
	Deaths     *Series
	Hospital   HospitalSeries
	Population PopulationTable
}

// AlignedRow holds one cohort's summed raw metrics for one date.
type AlignedRow struct {
	Date         time.Time
	Cases        float64
	Deaths       float64
	Hospitalized float64
	Positives    float64
	Tests        float64
	Population   float64
}

// total sums values while remembering whether any were present, so a date on
// which every member is missing stays missing instead of becoming zero.
type total struct {
	sum float64
	n   int
}

func (t *total) add(v float64, ok bool) {
	if !ok || IsMissing(v) {
		return
	}
	t.sum += v
	t.n++
}

func (t total) value() float64 {
	if t.n == 0 {
		return Missing()
	}
	return t.sum
}

type dayTotals struct {
	cases, deaths, hospitalized, positives, tests, population total
}

// AlignCohort restricts every series to the cohort's regions and sums them
// per date. The case series defines the dates: each member region with a case
// value on a date contributes its deaths, hospital metrics, and population for
// that date. Dates missing from the other series yield missing values, not
// dropped rows. Rows are returned in date order.
func AlignCohort(in CohortInputs, cohort Cohort) []AlignedRow {
	members := make(map[string]struct{}, len(cohort.Regions))
	for _, r := range cohort.Regions {
		members[r] = struct{}{}
	}

	byDate := make(map[time.Time]*dayTotals)
	// Keys are ordered by region then date, so each date accumulates its
	// regions in the same order regardless of cohort list order.
	for _, k := range in.Cases.Keys() {
		if _, ok := members[k.Region]; !ok {
			continue
		}
		dt := byDate[k.Date]
		if dt == nil {
			dt = &dayTotals{}
			byDate[k.Date] = dt
		}
		dt.cases.add(in.Cases.Get(k.Region, k.Date))
		dt.deaths.add(lookup(in.Deaths, k))
		dt.hospitalized.add(lookup(in.Hospital.Hospitalized, k))
		dt.positives.add(lookup(in.Hospital.Positives, k))
		dt.tests.add(lookup(in.Hospital.Tests, k))
		pop, ok := in.Population[k.Region]
		dt.population.add(pop, ok)
	}

	rows := make([]AlignedRow, 0, len(byDate))
	for date, dt := range byDate {
		rows = append(rows, AlignedRow{
			Date:         date,
			Cases:        dt.cases.value(),
			Deaths:       dt.deaths.value(),
			Hospitalized: dt.hospitalized.value(),
			Positives:    dt.positives.value(),
			Tests:        dt.tests.value(),
			Population:   dt.population.value(),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows
}

// MissingPopulation returns, sorted, the cohort members that have case rows
// but no population estimate.
func MissingPopulation(in CohortInputs, cohorts []Cohort) []string {
	withCases := make(map[string]struct{})
	for _, k := range in.Cases.Keys() {
		withCases[k.Region] = struct{}{}
	}
	seen := make(map[string]struct{})
	var missing []string
	for _, c := range cohorts {
		for _, r := range c.Regions {
			if _, ok := withCases[r]; !ok {
				continue
			}
			if _, ok := in.Population[r]; ok {
				continue
			}
			if _, dup := seen[r]; dup {
				continue
			}
			seen[r] = struct{}{}
			missing = append(missing, r)
		}
	}
	sort.Strings(missing)
	return missing
}

func lookup(s *Series, k Key) (float64, bool) {
	if s == nil {
		return 0, false
	}
	return s.Get(k.Region, k.Date)
}
