package domain

import (
	"errors"
	"time"
)

// CohortTableName names the combined cohort comparison table.
const CohortTableName = "cohorts"

// CohortSources are the raw inputs of the cohort comparison as extracted.
type CohortSources struct {
	Cases      RawTable
	Deaths     RawTable
	Hospital   []HospitalRecord
	Population PopulationTable
	Bridge     Bridge
}

// CohortSettings configures the cohort comparison.
type CohortSettings struct {
	Cohorts         []Cohort
	ExcludedRegions []string
	RegionColumn    string
	Window          int
	Start           time.Time
}

// Diagnostics records non-fatal data issues found while building a table.
type Diagnostics struct {
	// NormalizedRows counts (region, date) rows per metric after normalization.
	NormalizedRows map[string]int

	// UnmatchedAbbreviations lists hospital abbreviations absent from the bridge.
	UnmatchedAbbreviations []string

	// Indeterminate counts divisions by zero or missing denominators per indicator.
	Indeterminate map[string]int

	// MissingPopulation lists cohort members with case rows but no population
	// estimate. Their cases still count, so per-capita values run high.
	MissingPopulation []string

	// Corrections lists the override rows applied.
	Corrections []Correction
}

// CohortReport is the final cohort table plus its diagnostics.
type CohortReport struct {
	Table       Table
	Diagnostics Diagnostics
}

// CohortColumns returns the four indicator headers for a cohort label.
func CohortColumns(label string) []string {
	return []string{
		label + " MA Cases",
		label + " MA Hosp.",
		label + " MA Deaths",
		label + " MA Positivity",
	}
}

// IndicatorTable lays one cohort's indicators out as a table with
// cohort-prefixed columns.
func IndicatorTable(label string, ind Indicators) Table {
	t := Table{Name: label, Columns: CohortColumns(label), Rows: make([]Row, len(ind.Dates))}
	for i, d := range ind.Dates {
		t.Rows[i] = Row{
			Date: d,
			Values: []float64{
				ind.CasesPerCap[i],
				ind.HospitalizedPerCap[i],
				ind.DeathsPerCap[i],
				ind.Positivity[i],
			},
		}
	}
	return t
}

// BuildCohortReport normalizes the raw sources, computes indicators for every
// cohort independently, left-joins the cohort tables on date in configured
// order, and keeps dates on or after the start threshold.
func BuildCohortReport(src CohortSources, s CohortSettings) (CohortReport, error) {
	if len(s.Cohorts) == 0 {
		return CohortReport{}, errors.New("no cohorts configured")
	}

	cases, err := NormalizeTimeSeries(src.Cases, s.RegionColumn, MetricCases, s.ExcludedRegions)
	if err != nil {
		return CohortReport{}, err
	}
	deaths, err := NormalizeTimeSeries(src.Deaths, s.RegionColumn, MetricDeaths, s.ExcludedRegions)
	if err != nil {
		return CohortReport{}, err
	}
	hospital, unmatched, err := ReconcileHospital(src.Hospital, src.Bridge)
	if err != nil {
		return CohortReport{}, err
	}

	diag := Diagnostics{
		NormalizedRows: map[string]int{
			MetricCases:        cases.Len(),
			MetricDeaths:       deaths.Len(),
			MetricHospitalized: hospital.Hospitalized.Len(),
			MetricPositives:    hospital.Positives.Len(),
			MetricTests:        hospital.Tests.Len(),
		},
		UnmatchedAbbreviations: unmatched,
		Indeterminate:          make(map[string]int),
	}

	in := CohortInputs{Cases: cases, Deaths: deaths, Hospital: hospital, Population: src.Population}
	diag.MissingPopulation = MissingPopulation(in, s.Cohorts)

	var combined Table
	for i, c := range s.Cohorts {
		ind := ComputeIndicators(AlignCohort(in, c), s.Window)
		for k, v := range ind.Indeterminate {
			diag.Indeterminate[k] += v
		}
		t := IndicatorTable(c.Name, ind)
		if i == 0 {
			combined = t
			continue
		}
		combined = combined.LeftJoin(t)
	}
	combined.Name = CohortTableName

	return CohortReport{Table: combined.Since(s.Start), Diagnostics: diag}, nil
}
