package domain

import (
	"time"
)

// DateColumn is the header of the key column in every output table.
const DateColumn = "Date"

// Row is one dated row of a Table; Values line up with Table.Columns.
type Row struct {
	Date   time.Time
	Values []float64
}

// Table is a date-keyed table of float columns, ordered by date.
// Columns excludes the date column.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// Clone returns a deep copy so callers can derive a new table without
// touching the receiver.
func (t Table) Clone() Table {
	out := Table{
		Name:    t.Name,
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = Row{Date: r.Date, Values: append([]float64(nil), r.Values...)}
	}
	return out
}

// ColumnIndex returns the index of name in Columns, or -1.
func (t Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns every value of the named column, or nil when absent.
func (t Table) Column(name string) []float64 {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil
	}
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Values[idx]
	}
	return out
}

// Dates returns the row dates in order.
func (t Table) Dates() []time.Time {
	out := make([]time.Time, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Date
	}
	return out
}

// LeftJoin appends other's columns to t by date. Every row of t survives;
// dates absent from other get missing values, and rows only in other are dropped.
func (t Table) LeftJoin(other Table) Table {
	index := make(map[time.Time][]float64, len(other.Rows))
	for _, r := range other.Rows {
		index[Day(r.Date)] = r.Values
	}

	out := Table{
		Name:    t.Name,
		Columns: append(append([]string(nil), t.Columns...), other.Columns...),
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		values := make([]float64, 0, len(out.Columns))
		values = append(values, r.Values...)
		if right, ok := index[Day(r.Date)]; ok {
			values = append(values, right...)
		} else {
			for range other.Columns {
				values = append(values, Missing())
			}
		}
		out.Rows[i] = Row{Date: r.Date, Values: values}
	}
	return out
}

// Since keeps rows dated on or after start.
func (t Table) Since(start time.Time) Table {
	start = Day(start)
	out := Table{Name: t.Name, Columns: append([]string(nil), t.Columns...)}
	for _, r := range t.Rows {
		if r.Date.Before(start) {
			continue
		}
		out.Rows = append(out.Rows, Row{Date: r.Date, Values: append([]float64(nil), r.Values...)})
	}
	return out
}

// LastDate returns the latest row date, or the zero time for an empty table.
func (t Table) LastDate() time.Time {
	if len(t.Rows) == 0 {
		return time.Time{}
	}
	return t.Rows[len(t.Rows)-1].Date
}
