package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/covid-cohort-etl/internal/domain"
)

const (
	defaultCasesURL            = "https://raw.githubusercontent.com/CSSEGISandData/COVID-19/master/csse_covid_19_data/csse_covid_19_time_series/time_series_covid19_confirmed_US.csv"
	defaultDeathsURL           = "https://raw.githubusercontent.com/CSSEGISandData/COVID-19/master/csse_covid_19_data/csse_covid_19_time_series/time_series_covid19_deaths_US.csv"
	defaultHospitalURL         = "https://api.covidtracking.com/v1/states/daily.json"
	defaultPopulationURL       = "https://www2.census.gov/programs-surveys/popest/datasets/2010-2020/national/totals/nst-est2020.csv"
	defaultBridgeURL           = "https://raw.githubusercontent.com/jasonong/List-of-US-States/master/states.csv"
	defaultWorkbookURLTemplate = "https://coronavirus.dc.gov/sites/default/files/dc/sites/coronavirus/page_content/attachments/DC-COVID-19-Data-for-{date}.xlsx"
)

// CohortFile is the YAML document named by COHORTS_FILE.
//
//	cohorts:
//	  - name: Cohort 1
//	    regions: [New York, New Jersey]
//	excluded_regions: [Guam]
type CohortFile struct {
	Cohorts         []CohortEntry `yaml:"cohorts" validate:"min=1,dive"`
	ExcludedRegions []string      `yaml:"excluded_regions"`
}

// CohortEntry is one named list of regions.
type CohortEntry struct {
	Name    string   `yaml:"name" validate:"required"`
	Regions []string `yaml:"regions" validate:"min=1,dive,required"`
}

// LoadCohortFile reads and validates a cohort file.
func LoadCohortFile(path string) (*CohortFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read COHORTS_FILE: %w", err)
	}
	var f CohortFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse COHORTS_FILE %s: %w", path, err)
	}
	if err := validate.Struct(&f); err != nil {
		return nil, fmt.Errorf("invalid COHORTS_FILE %s: %w", path, err)
	}
	seen := make(map[string]bool, len(f.Cohorts))
	for _, c := range f.Cohorts {
		if seen[c.Name] {
			return nil, fmt.Errorf("invalid COHORTS_FILE %s: duplicate cohort %q", path, c.Name)
		}
		seen[c.Name] = true
	}
	return &f, nil
}

func (f *CohortFile) cohorts() []domain.Cohort {
	out := make([]domain.Cohort, len(f.Cohorts))
	for i, c := range f.Cohorts {
		out[i] = domain.Cohort{Name: c.Name, Regions: c.Regions}
	}
	return out
}

// DefaultCohorts returns the four reference cohorts, roughly ordered by when
// each group of states saw its first wave.
func DefaultCohorts() []domain.Cohort {
	return []domain.Cohort{
		{Name: "Cohort 1", Regions: []string{
			"New York", "New Jersey", "Rhode Island", "Massachusetts", "Connecticut",
			"Delaware", "Pennsylvania", "District of Columbia", "Michigan",
		}},
		{Name: "Cohort 2", Regions: []string{
			"Florida", "Arizona", "California", "Texas", "Alabama",
			"South Carolina", "Idaho", "Nevada",
		}},
		{Name: "Cohort 3", Regions: []string{
			"Louisiana", "Mississippi", "Alaska", "Arkansas", "Kentucky", "Hawaii",
			"Missouri", "Georgia", "Tennessee", "Oklahoma", "North Carolina",
		}},
		{Name: "Cohort 4", Regions: []string{
			"North Dakota", "West Virginia", "Montana", "South Dakota", "Minnesota",
			"Iowa", "Indiana", "Kansas", "Ohio", "Wisconsin",
		}},
	}
}

// DefaultExcludedRegions lists territories and cruise ships left out of every
// cohort.
func DefaultExcludedRegions() []string {
	return []string{
		"Virgin Islands", "Guam", "Northern Mariana Islands", "Diamond Princess",
		"Grand Princess", "American Samoa", "Puerto Rico",
	}
}
