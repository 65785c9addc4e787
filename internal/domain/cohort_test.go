package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seriesOf(metric string, region string, start time.Time, values ...float64) *Series {
	s := NewSeries(metric)
	for i, v := range values {
		s.Add(region, start.AddDate(0, 0, i), v)
	}
	return s
}

func merge(dst *Series, srcs ...*Series) *Series {
	for _, src := range srcs {
		for _, k := range src.Keys() {
			v, _ := src.Get(k.Region, k.Date)
			dst.Add(k.Region, k.Date, v)
		}
	}
	return dst
}

func twoRegionInputs() CohortInputs {
	start := day(2020, time.April, 1)
	cases := merge(NewSeries(MetricCases),
		seriesOf(MetricCases, "A", start, 100, 110, 125),
		seriesOf(MetricCases, "B", start, 50, 55, 60),
	)
	return CohortInputs{
		Cases:      cases,
		Deaths:     NewSeries(MetricDeaths),
		Hospital:   HospitalSeries{Hospitalized: NewSeries(MetricHospitalized), Positives: NewSeries(MetricPositives), Tests: NewSeries(MetricTests)},
		Population: PopulationTable{"A": 600_000, "B": 400_000},
	}
}

func TestAlignCohort_TwoRegionScenario(t *testing.T) {
	in := twoRegionInputs()
	rows := AlignCohort(in, Cohort{Name: "AB", Regions: []string{"A", "B"}})
	require.Len(t, rows, 3)

	cases := make([]float64, len(rows))
	pops := make([]float64, len(rows))
	for i, r := range rows {
		cases[i] = r.Cases
		pops[i] = r.Population
		assert.True(t, IsMissing(r.Deaths), "no death data means missing, not zero")
		assert.True(t, IsMissing(r.Hospitalized))
	}
	assert.Equal(t, []float64{150, 165, 185}, cases)
	assert.Equal(t, []float64{1_000_000, 1_000_000, 1_000_000}, pops)

	daily := Diff(cases)
	assert.Equal(t, []float64{0, 15, 20}, daily)

	perCap, bad := Divide(daily, pops)
	assert.Equal(t, 0, bad)
	assert.InDeltaSlice(t, []float64{0, 1.5e-5, 2e-5}, perCap, 1e-15)
}

func TestAlignCohort_OrderIndependent(t *testing.T) {
	in := twoRegionInputs()
	in.Cases = merge(in.Cases, seriesOf(MetricCases, "C", day(2020, time.April, 1), 0.1, 0.2, 0.3))
	in.Population["C"] = 12_345

	a := AlignCohort(in, Cohort{Regions: []string{"A", "B", "C"}})
	b := AlignCohort(in, Cohort{Regions: []string{"C", "A", "B"}})
	c := AlignCohort(in, Cohort{Regions: []string{"B", "C", "A"}})

	opts := cmpopts.EquateNaNs()
	if diff := cmp.Diff(a, b, opts); diff != "" {
		t.Fatalf("order changed totals (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(a, c, opts); diff != "" {
		t.Fatalf("order changed totals (-want +got):\n%s", diff)
	}
}

func TestAlignCohort_FiltersMembers(t *testing.T) {
	in := twoRegionInputs()
	rows := AlignCohort(in, Cohort{Regions: []string{"B"}})
	require.Len(t, rows, 3)
	assert.Equal(t, 50.0, rows[0].Cases)
	assert.Equal(t, 400_000.0, rows[0].Population)

	none := AlignCohort(in, Cohort{Regions: []string{"Z"}})
	assert.Empty(t, none)
}

func TestBuildCohortReport_UnmatchedAbbreviation(t *testing.T) {
	ptr := func(v float64) *float64 { return &v }
	src := CohortSources{
		Cases: RawTable{
			Header: []string{testRegionColumn, "4/1/20", "4/2/20"},
			Rows:   [][]string{{testNewYork, "100", "130"}},
		},
		Deaths: RawTable{
			Header: []string{testRegionColumn, "4/1/20", "4/2/20"},
			Rows:   [][]string{{testNewYork, "1", "3"}},
		},
		Hospital: []HospitalRecord{
			{Date: 20200401, State: "ZZ", HospitalizedCurrently: ptr(40), PositiveIncrease: ptr(1), TotalTestResultsIncrease: ptr(10)},
			{Date: 20200402, State: "ZZ", HospitalizedCurrently: ptr(50), PositiveIncrease: ptr(2), TotalTestResultsIncrease: ptr(10)},
		},
		Population: PopulationTable{testNewYork: 1_000_000},
		Bridge:     Bridge{"NY": testNewYork},
	}
	settings := CohortSettings{
		Cohorts:      []Cohort{{Name: "Cohort 1", Regions: []string{testNewYork}}},
		RegionColumn: testRegionColumn,
		Window:       1,
		Start:        day(2020, time.March, 15),
	}

	report, err := BuildCohortReport(src, settings)
	require.NoError(t, err)

	assert.Equal(t, []string{"ZZ"}, report.Diagnostics.UnmatchedAbbreviations)
	assert.Equal(t, CohortColumns("Cohort 1"), report.Table.Columns)
	require.Len(t, report.Table.Rows, 2)

	cases := report.Table.Column("Cohort 1 MA Cases")
	assert.InDeltaSlice(t, []float64{0, 3e-5}, cases, 1e-15)
	deaths := report.Table.Column("Cohort 1 MA Deaths")
	assert.InDeltaSlice(t, []float64{0, 2e-6}, deaths, 1e-15)
	for _, v := range report.Table.Column("Cohort 1 MA Hosp.") {
		assert.True(t, IsMissing(v))
	}
	for _, v := range report.Table.Column("Cohort 1 MA Positivity") {
		assert.True(t, IsMissing(v))
	}
}

func TestBuildCohortReport_JoinsCohortsAndTruncates(t *testing.T) {
	header := []string{testRegionColumn, "3/13/20", "3/14/20", "3/15/20", "3/16/20"}
	src := CohortSources{
		Cases: RawTable{Header: header, Rows: [][]string{
			{"A", "1", "2", "4", "8"},
			{"B", "0", "0", "0", "0"},
		}},
		Deaths:     RawTable{Header: header},
		Population: PopulationTable{"A": 10, "B": 0},
	}
	settings := CohortSettings{
		Cohorts: []Cohort{
			{Name: "Cohort 1", Regions: []string{"A"}},
			{Name: "Cohort 2", Regions: []string{"B"}},
		},
		RegionColumn: testRegionColumn,
		Window:       2,
		Start:        day(2020, time.March, 15),
	}

	report, err := BuildCohortReport(src, settings)
	require.NoError(t, err)

	want := append(CohortColumns("Cohort 1"), CohortColumns("Cohort 2")...)
	assert.Equal(t, want, report.Table.Columns)
	assert.Equal(t, []time.Time{day(2020, 3, 15), day(2020, 3, 16)}, report.Table.Dates())

	// daily cases per cap for A: [0, .1, .2, .4]; 2-day means: [-, .05, .15, .3]
	assert.InDeltaSlice(t, []float64{0.15, 0.3}, report.Table.Column("Cohort 1 MA Cases"), 1e-12)
	for _, v := range report.Table.Column("Cohort 2 MA Cases") {
		assert.True(t, IsMissing(v), "zero population yields missing")
	}
	assert.Positive(t, report.Diagnostics.Indeterminate[IndicatorCasesPerCap])
}

func TestBuildCohortReport_NoCohorts(t *testing.T) {
	_, err := BuildCohortReport(CohortSources{}, CohortSettings{})
	assert.Error(t, err)
}

func TestTable_LeftJoin(t *testing.T) {
	left := Table{Columns: []string{"a"}, Rows: []Row{
		{Date: day(2020, 1, 1), Values: []float64{1}},
		{Date: day(2020, 1, 2), Values: []float64{2}},
	}}
	right := Table{Columns: []string{"b"}, Rows: []Row{
		{Date: day(2020, 1, 2), Values: []float64{20}},
		{Date: day(2020, 1, 3), Values: []float64{30}},
	}}

	joined := left.LeftJoin(right)

	assert.Equal(t, []string{"a", "b"}, joined.Columns)
	require.Len(t, joined.Rows, 2, "left-most dates survive")
	assert.Equal(t, 1.0, joined.Rows[0].Values[0])
	assert.True(t, IsMissing(joined.Rows[0].Values[1]))
	assert.Equal(t, []float64{2, 20}, joined.Rows[1].Values)

	joined.Rows[1].Values[0] = 99
	assert.Equal(t, 2.0, left.Rows[1].Values[0], "join must not alias its inputs")
}

func TestMissingPopulation(t *testing.T) {
	in := twoRegionInputs()
	in.Population = PopulationTable{"A": 600_000}
	cohorts := []Cohort{
		{Name: "AB", Regions: []string{"B", "A"}},
		{Name: "BZ", Regions: []string{"B", "Z"}},
	}

	assert.Equal(t, []string{"B"}, MissingPopulation(in, cohorts), "Z has no case rows so it is not reported")
	assert.Empty(t, MissingPopulation(twoRegionInputs(), cohorts[:1]))
}
