package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// JurisdictionTableName names the single-jurisdiction table.
const JurisdictionTableName = "jurisdiction"

// Jurisdiction output columns, in output order after Date.
const (
	FieldTotalTests       = "Total Tests"
	FieldTotalPositives   = "Total Positives"
	FieldHospitalizations = "Hospitalizations"
	FieldICU              = "ICU"
	FieldNewTests         = "New Tests"
	FieldNewPositives     = "New Positives"
)

// JurisdictionColumns is the output column order.
var JurisdictionColumns = []string{
	FieldTotalTests,
	FieldTotalPositives,
	FieldHospitalizations,
	FieldICU,
	FieldNewTests,
	FieldNewPositives,
}

// JurisdictionLabels maps workbook row labels to output fields.
var JurisdictionLabels = map[string]string{
	"Total Overall Number of Tests":           FieldTotalTests,
	"Total Positives":                         FieldTotalPositives,
	"Total COVID-19 Patients in DC Hospitals": FieldHospitalizations,
	"Total COVID-19 Patients in ICU":          FieldICU,
}

// Correction overrides one field of one dated row.
type Correction struct {
	Date   time.Time
	Field  string
	Value  float64
	Reason string
}

// JurisdictionCorrections fixes known errors in the published workbook.
var JurisdictionCorrections = []Correction{
	{
		Date:   time.Date(2021, time.September, 22, 0, 0, 0, 0, time.UTC),
		Field:  FieldTotalPositives,
		Value:  60018,
		Reason: "workbook repeatedly republished a wrong cumulative positive count for this date",
	},
}

// fillGroups lists the columns copied from the previous day when the key
// column is missing. Each group is reported together in the workbook.
var fillGroups = []struct {
	key     string
	columns []string
}{
	{key: FieldHospitalizations, columns: []string{FieldHospitalizations, FieldICU}},
	{key: FieldTotalTests, columns: []string{FieldTotalTests, FieldTotalPositives}},
}

// ErrNoPriorRow is returned when the first row of the range has a gap that
// forward filling cannot cover.
var ErrNoPriorRow = errors.New("gap on first day has no prior row to fill from")

// JurisdictionSettings configures the single-jurisdiction transform.
type JurisdictionSettings struct {
	LabelColumn int
	Start       time.Time
	Corrections []Correction
}

// JurisdictionReport is the jurisdiction table plus its diagnostics.
type JurisdictionReport struct {
	Table       Table
	Diagnostics Diagnostics
}

// BuildJurisdictionReport turns the workbook stats sheet into a complete daily
// table: labelled rows are pivoted to dated rows, restricted to dates on or
// after the start, reindexed to every calendar day, corrected, forward filled
// over weekend gaps, and extended with New Tests and New Positives.
func BuildJurisdictionReport(sheet Sheet, s JurisdictionSettings) (JurisdictionReport, error) {
	observed, err := ExtractJurisdiction(sheet, s.LabelColumn, s.Start)
	if err != nil {
		return JurisdictionReport{}, err
	}

	daily := Reindex(observed)
	corrected, applied := ApplyCorrections(daily, s.Corrections)
	filled, err := ForwardFill(corrected)
	if err != nil {
		return JurisdictionReport{}, ParseFailure(sheet.Name, err)
	}

	out := filled.Clone()
	out.Columns = append(out.Columns, FieldNewTests, FieldNewPositives)
	newTests := zeroFilled(Diff(filled.Column(FieldTotalTests)))
	newPositives := zeroFilled(Diff(filled.Column(FieldTotalPositives)))
	for i := range out.Rows {
		out.Rows[i].Values = append(out.Rows[i].Values, newTests[i], newPositives[i])
	}

	return JurisdictionReport{
		Table:       out,
		Diagnostics: Diagnostics{Corrections: applied},
	}, nil
}

// zeroFilled replaces missing daily increments with 0. The published table
// reports an unknown change as no change.
func zeroFilled(values []float64) []float64 {
	for i, v := range values {
		if IsMissing(v) {
			values[i] = 0
		}
	}
	return values
}

// ExtractJurisdiction pivots the labelled rows of the sheet into a table with
// one row per dated column on or after start. Only dates present in the sheet
// appear; see Reindex for gap filling.
func ExtractJurisdiction(sheet Sheet, labelColumn int, start time.Time) (Table, error) {
	fields := JurisdictionColumns[:4]
	rowsByField := make(map[string][]string, len(fields))
	for _, row := range sheet.Rows {
		label := strings.TrimSpace(Cell(row, labelColumn))
		if field, ok := JurisdictionLabels[label]; ok {
			if _, seen := rowsByField[field]; !seen {
				rowsByField[field] = row
			}
		}
	}
	for _, f := range fields {
		if _, ok := rowsByField[f]; !ok {
			return Table{}, ParseFailure(sheet.Name, fmt.Errorf("no row labelled for %q", f))
		}
	}

	start = Day(start)
	seen := make(map[time.Time]struct{})
	t := Table{Name: JurisdictionTableName, Columns: append([]string(nil), fields...)}
	for col, date := range sheet.Dates {
		if date.IsZero() || col == labelColumn {
			continue
		}
		date = Day(date)
		if date.Before(start) {
			continue
		}
		if _, dup := seen[date]; dup {
			continue
		}
		seen[date] = struct{}{}

		values := make([]float64, len(fields))
		for i, f := range fields {
			v, ok, err := parseNumber(Cell(rowsByField[f], col))
			if err != nil {
				return Table{}, ParseFailure(sheet.Name, fmt.Errorf("%s on %s: %w", f, date.Format(time.DateOnly), err))
			}
			if !ok {
				v = Missing()
			}
			values[i] = v
		}
		t.Rows = append(t.Rows, Row{Date: date, Values: values})
	}

	if len(t.Rows) == 0 {
		return Table{}, ParseFailure(sheet.Name, fmt.Errorf("no dated columns on or after %s", start.Format(time.DateOnly)))
	}
	sort.Slice(t.Rows, func(i, j int) bool { return t.Rows[i].Date.Before(t.Rows[j].Date) })
	return t, nil
}

// Reindex returns a table with one row for every day between the first and
// last date of t. Days absent from t get missing values.
func Reindex(t Table) Table {
	out := Table{Name: t.Name, Columns: append([]string(nil), t.Columns...)}
	if len(t.Rows) == 0 {
		return out
	}
	byDate := make(map[time.Time][]float64, len(t.Rows))
	for _, r := range t.Rows {
		byDate[Day(r.Date)] = r.Values
	}
	first, last := Day(t.Rows[0].Date), Day(t.LastDate())
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		values, ok := byDate[d]
		if ok {
			values = append([]float64(nil), values...)
		} else {
			values = make([]float64, len(t.Columns))
			for i := range values {
				values[i] = Missing()
			}
		}
		out.Rows = append(out.Rows, Row{Date: d, Values: values})
	}
	return out
}

// ApplyCorrections returns a copy of t with each correction written into the
// row of its date. Corrections for absent dates or columns are skipped. The
// corrections actually applied are returned for auditing.
func ApplyCorrections(t Table, corrections []Correction) (Table, []Correction) {
	out := t.Clone()
	var applied []Correction
	for _, c := range corrections {
		col := out.ColumnIndex(c.Field)
		if col < 0 {
			continue
		}
		day := Day(c.Date)
		for i := range out.Rows {
			if out.Rows[i].Date.Equal(day) {
				out.Rows[i].Values[col] = c.Value
				applied = append(applied, c)
			}
		}
	}
	return out, applied
}

// ForwardFill copies each fill group from the previous row whenever the
// group's key column is missing. Cumulative series therefore repeat the last
// reported value over unreported days. A gap on the first row is an error.
func ForwardFill(t Table) (Table, error) {
	out := t.Clone()
	for _, g := range fillGroups {
		key := out.ColumnIndex(g.key)
		if key < 0 {
			continue
		}
		cols := make([]int, 0, len(g.columns))
		for _, c := range g.columns {
			if idx := out.ColumnIndex(c); idx >= 0 {
				cols = append(cols, idx)
			}
		}
		for i := range out.Rows {
			if !IsMissing(out.Rows[i].Values[key]) {
				continue
			}
			if i == 0 {
				return Table{}, fmt.Errorf("%s on %s: %w", g.key, out.Rows[i].Date.Format(time.DateOnly), ErrNoPriorRow)
			}
			for _, c := range cols {
				out.Rows[i].Values[c] = out.Rows[i-1].Values[c]
			}
		}
	}
	return out, nil
}
