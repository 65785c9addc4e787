// Package domain models the public COVID-19 datasets combined by the ETL and
// the transformations that turn them into smoothed per-capita indicators.
//
// # Data Sources
//
// Cumulative confirmed cases and deaths come from the Johns Hopkins CSSE
// time series CSVs (time_series_covid19_confirmed_US.csv and
// time_series_covid19_deaths_US.csv). Each row is a county or sub-entity,
// the "Province_State" column names the state, and every column whose header
// looks like a date ("1/22/20") holds a cumulative count. Several metadata
// columns (UID, FIPS, Lat, Long_, Combined_Key, Population) are dropped.
//
// Hospitalization and testing come from the COVID Tracking Project
// states/daily JSON: one object per state per day, keyed by two-letter
// abbreviation ("state") and an integer date ("date": 20200315). The fields
// used are hospitalizedCurrently (a snapshot), positiveIncrease and
// totalTestResultsIncrease (already incremental). Any of them may be null.
//
// Population comes from the Census nst-est2020 CSV ("NAME",
// "POPESTIMATE2020"). A bridge CSV maps "Abbreviation" to "State" so the
// hospitalization data can be joined to the full-name keyed case data.
//
// The District of Columbia publishes an .xlsx workbook daily. The file name
// embeds the publication date in a format that has changed over time, and the
// stats sheet has been published both as "Overal Stats" and "Overall Stats".
// The sheet is wide: the first row holds dates, the second column holds
// labels such as "Total Positives", and cumulative values fill the grid.
// Weekends are usually absent.
//
// # Conventions
//
// Missing values are NaN (see [Missing] and [IsMissing]). Joins that find no
// partner and divisions by zero or by a missing denominator produce missing
// values instead of errors; they are counted in [Diagnostics].
//
// Dates are calendar days at midnight UTC (see [Day]).
//
// Cumulative series are differenced with [Diff]: the first value is zero,
// not missing. Smoothing is a trailing arithmetic mean ([MovingAverage]); the
// first window-1 values are missing, as is any window containing a missing
// value.
//
// # Corrections
//
// Known upstream reporting errors are fixed by a date-keyed override table
// ([JurisdictionCorrections]) applied in a single pass by [ApplyCorrections].
package domain
