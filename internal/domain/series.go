package domain

import (
	"math"
	"sort"
	"time"
)

// Missing returns the value used for absent or undefined data points.
func Missing() float64 { return math.NaN() }

// IsMissing reports whether v is a missing value. Infinities count as
// missing so they never leak into output.
func IsMissing(v float64) bool { return math.IsNaN(v) || math.IsInf(v, 0) }

// Day truncates t to its calendar day at midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Key identifies one region on one day.
type Key struct {
	Region string
	Date   time.Time
}

// Series maps (region, date) to a single value of one metric.
// Adding a key twice sums the values, so a series never holds more than one
// value per key.
type Series struct {
	Metric string
	values map[Key]float64
}

// NewSeries creates an empty series for metric.
func NewSeries(metric string) *Series {
	return &Series{Metric: metric, values: make(map[Key]float64)}
}

// Add accumulates v into (region, date). Missing values are ignored.
func (s *Series) Add(region string, date time.Time, v float64) {
	if IsMissing(v) {
		return
	}
	s.values[Key{Region: region, Date: Day(date)}] += v
}

// Get returns the value at (region, date).
func (s *Series) Get(region string, date time.Time) (float64, bool) {
	v, ok := s.values[Key{Region: region, Date: Day(date)}]
	return v, ok
}

// Len returns the number of (region, date) keys.
func (s *Series) Len() int { return len(s.values) }

// Keys returns every key ordered by region, then date.
func (s *Series) Keys() []Key {
	keys := make([]Key, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Region != keys[j].Region {
			return keys[i].Region < keys[j].Region
		}
		return keys[i].Date.Before(keys[j].Date)
	})
	return keys
}

// PopulationTable maps a full region name to a single year's population estimate.
type PopulationTable map[string]float64

// Bridge maps a two-letter abbreviation to the full region name.
type Bridge map[string]string

// Cohort is a named, fixed set of regions whose series are summed together.
type Cohort struct {
	Name    string
	Regions []string
}

// Contains reports whether region belongs to the cohort.
func (c Cohort) Contains(region string) bool {
	for _, r := range c.Regions {
		if r == region {
			return true
		}
	}
	return false
}

// RawTable is an untyped table as read from a CSV source.
type RawTable struct {
	Header []string
	Rows   [][]string
}

// Column returns the index of the named column, or -1.
func (t RawTable) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Cell returns row[i], or "" when the row is short.
func Cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// HospitalRecord is one element of the COVID Tracking Project states/daily array.
type HospitalRecord struct {
	Date                     int      `json:"date"`  // YYYYMMDD
	State                    string   `json:"state"` // two-letter abbreviation
	HospitalizedCurrently    *float64 `json:"hospitalizedCurrently"`
	PositiveIncrease         *float64 `json:"positiveIncrease"`
	TotalTestResultsIncrease *float64 `json:"totalTestResultsIncrease"`
}

// Sheet is the stats sheet of the jurisdiction workbook.
type Sheet struct {
	Name string
	URL  string

	// Dates holds the parsed header row, one entry per column. Columns whose
	// header is not a date have the zero time.
	Dates []time.Time

	// Rows holds every row below the header.
	Rows [][]string
}
