package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/couchcryptid/covid-cohort-etl/internal/domain"
)

const dateLayout = "2006-01-02"

// Config holds all job settings, populated from environment variables.
// Every default reproduces the reference run, so an empty environment is valid.
type Config struct {
	CasesURL         string `validate:"required,url"`
	DeathsURL        string `validate:"required,url"`
	HospitalURL      string `validate:"required,url"`
	PopulationURL    string `validate:"required,url"`
	PopulationColumn string `validate:"required"`
	BridgeURL        string `validate:"required,url"`
	RegionColumn     string `validate:"required"`

	// WorkbookURLTemplate contains a {date} placeholder replaced by each
	// candidate stamp during the workbook search.
	WorkbookURLTemplate  string   `validate:"required"`
	WorkbookSheets       []string `validate:"min=1,dive,required"`
	WorkbookDateLayouts  []string `validate:"min=1,dive,required"`
	WorkbookLookbackDays int      `validate:"min=1,max=366"`
	WorkbookLabelColumn  int      `validate:"min=0"`

	HTTPTimeout       time.Duration `validate:"gt=0"`
	MovingAverageDays int           `validate:"min=1"`
	CohortStart       time.Time
	JurisdictionStart time.Time

	CohortsFile     string
	Cohorts         []domain.Cohort `validate:"min=1"`
	ExcludedRegions []string

	OutputDir              string `validate:"required"`
	CohortOutputFile       string `validate:"required"`
	JurisdictionOutputFile string `validate:"required"`

	LogLevel        string `validate:"oneof=debug info warn error"`
	LogFormat       string `validate:"oneof=json text"`
	MetricsTextfile string

	// KafkaBrokers is empty unless table publishing is enabled.
	KafkaBrokers    []string
	KafkaTopic      string
	ShutdownTimeout time.Duration `validate:"gt=0"`
}

// KafkaEnabled reports whether output rows are also published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	httpTimeout, err := parseDuration("HTTP_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	maDays, err := parsePositiveInt("MOVING_AVERAGE_DAYS", 7)
	if err != nil {
		return nil, err
	}
	lookback, err := parsePositiveInt("WORKBOOK_LOOKBACK_DAYS", 10)
	if err != nil {
		return nil, err
	}
	cohortStart, err := parseDate("COHORT_START_DATE", "2020-03-15")
	if err != nil {
		return nil, err
	}
	jurisdictionStart, err := parseDate("JURISDICTION_START_DATE", "2020-12-01")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		CasesURL:         envOrDefault("CASES_URL", defaultCasesURL),
		DeathsURL:        envOrDefault("DEATHS_URL", defaultDeathsURL),
		HospitalURL:      envOrDefault("HOSPITAL_URL", defaultHospitalURL),
		PopulationURL:    envOrDefault("POPULATION_URL", defaultPopulationURL),
		PopulationColumn: envOrDefault("POPULATION_COLUMN", "POPESTIMATE2020"),
		BridgeURL:        envOrDefault("BRIDGE_URL", defaultBridgeURL),
		RegionColumn:     "Province_State",

		WorkbookURLTemplate:  envOrDefault("WORKBOOK_URL_TEMPLATE", defaultWorkbookURLTemplate),
		WorkbookSheets:       parseList(envOrDefault("WORKBOOK_SHEETS", "Overal Stats,Overall Stats")),
		WorkbookDateLayouts:  parseList(envOrDefault("WORKBOOK_DATE_LAYOUTS", "1-2-2006,January-2-2006,January-02-2006,01-02-2006")),
		WorkbookLookbackDays: lookback,
		WorkbookLabelColumn:  1,

		HTTPTimeout:       httpTimeout,
		MovingAverageDays: maDays,
		CohortStart:       cohortStart,
		JurisdictionStart: jurisdictionStart,

		CohortsFile:     os.Getenv("COHORTS_FILE"),
		Cohorts:         DefaultCohorts(),
		ExcludedRegions: DefaultExcludedRegions(),

		OutputDir:              envOrDefault("OUTPUT_DIR", "."),
		CohortOutputFile:       envOrDefault("COHORT_OUTPUT_FILE", "cohort_be.csv"),
		JurisdictionOutputFile: envOrDefault("JURISDICTION_OUTPUT_FILE", "dc.csv"),

		LogLevel:        strings.ToLower(envOrDefault("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(envOrDefault("LOG_FORMAT", "json")),
		MetricsTextfile: os.Getenv("METRICS_TEXTFILE"),

		KafkaBrokers:    parseList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:      envOrDefault("KAFKA_TOPIC", "covid-tables"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.CohortsFile != "" {
		file, err := LoadCohortFile(cfg.CohortsFile)
		if err != nil {
			return nil, err
		}
		cfg.Cohorts = file.cohorts()
		if file.ExcludedRegions != nil {
			cfg.ExcludedRegions = file.ExcludedRegions
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

func (c *Config) validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			e := fieldErrs[0]
			return fmt.Errorf("invalid %s: failed %q", envName(e.Field()), e.Tag())
		}
		return err
	}
	if !strings.Contains(c.WorkbookURLTemplate, "{date}") {
		return errors.New("WORKBOOK_URL_TEMPLATE must contain {date}")
	}
	if c.KafkaEnabled() && c.KafkaTopic == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

// envName maps a Config field back to the variable that sets it, so
// validation errors name something the operator can change.
func envName(field string) string {
	switch field {
	case "CasesURL":
		return "CASES_URL"
	case "DeathsURL":
		return "DEATHS_URL"
	case "HospitalURL":
		return "HOSPITAL_URL"
	case "PopulationURL":
		return "POPULATION_URL"
	case "PopulationColumn":
		return "POPULATION_COLUMN"
	case "BridgeURL":
		return "BRIDGE_URL"
	case "WorkbookURLTemplate":
		return "WORKBOOK_URL_TEMPLATE"
	case "WorkbookSheets":
		return "WORKBOOK_SHEETS"
	case "WorkbookDateLayouts":
		return "WORKBOOK_DATE_LAYOUTS"
	case "WorkbookLookbackDays":
		return "WORKBOOK_LOOKBACK_DAYS"
	case "HTTPTimeout":
		return "HTTP_TIMEOUT"
	case "MovingAverageDays":
		return "MOVING_AVERAGE_DAYS"
	case "Cohorts":
		return "COHORTS_FILE"
	case "OutputDir":
		return "OUTPUT_DIR"
	case "CohortOutputFile":
		return "COHORT_OUTPUT_FILE"
	case "JurisdictionOutputFile":
		return "JURISDICTION_OUTPUT_FILE"
	case "LogLevel":
		return "LOG_LEVEL"
	case "LogFormat":
		return "LOG_FORMAT"
	case "ShutdownTimeout":
		return "SHUTDOWN_TIMEOUT"
	default:
		return field
	}
}

func envOrDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// parseList splits a comma-separated value, trimming blanks.
func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseDate(key, fallback string) (time.Time, error) {
	t, err := time.Parse(dateLayout, envOrDefault(key, fallback))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: want YYYY-MM-DD", key)
	}
	return t, nil
}
