// Package config loads run configuration from the environment, an optional
// .env file and command line flags.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"stealthcompany.com/dischargeformat/internal/assemble"
	"stealthcompany.com/dischargeformat/internal/render"
)

type Config struct {
	SyntheaOutputDir    string `mapstructure:"SYNTHEA_OUTPUT_DIR"`
	SettingsFile        string `mapstructure:"SYNTHEA_SETTINGS_FILE"`
	OutputDir           string `mapstructure:"OUTPUT_DIR"`
	FormatType          string `mapstructure:"FORMAT_TYPE"`
	EncounterType       string `mapstructure:"ENCOUNTER_TYPE"`
	Verbose             bool   `mapstructure:"VERBOSE"`
	Yearly              bool   `mapstructure:"YEARLY"`
	YearRange           string `mapstructure:"YEAR_RANGE"`
	Study               string `mapstructure:"STUDY"`
	FacilityID          string `mapstructure:"FACILITY_ID"`
	Seed                string `mapstructure:"SEED"`
	SourceChunkSize     int    `mapstructure:"SOURCE_CHUNK_SIZE"`
	MappingDir          string `mapstructure:"MAPPING_DIR"`
	LogDir              string `mapstructure:"LOG_DIR"`
	LogLevel            string `mapstructure:"LOG_LEVEL"`
	ElasticsearchURL    string `mapstructure:"ELASTICSEARCH_URL"`
	MetricsPort         string `mapstructure:"METRICS_PORT"`
	MetricsTextfile     string `mapstructure:"METRICS_TEXTFILE"`
	PushgatewayURL      string `mapstructure:"PUSHGATEWAY_URL"`
	EnableSystemMetrics bool   `mapstructure:"ENABLE_SYSTEM_METRICS"`
	ParquetExport       bool   `mapstructure:"PARQUET_EXPORT"`
	StageDatabaseURL    string `mapstructure:"STAGE_DATABASE_URL"`
	CouchbaseURL        string `mapstructure:"COUCHBASE_URL"`
	CouchbaseUsername   string `mapstructure:"COUCHBASE_USERNAME"`
	CouchbasePassword   string `mapstructure:"COUCHBASE_PASSWORD"`
	CouchbaseBucket     string `mapstructure:"COUCHBASE_BUCKET"`
}

var keys = []string{
	"SYNTHEA_OUTPUT_DIR", "SYNTHEA_SETTINGS_FILE", "OUTPUT_DIR", "FORMAT_TYPE", "ENCOUNTER_TYPE",
	"VERBOSE", "YEARLY", "YEAR_RANGE", "STUDY", "FACILITY_ID", "SEED", "SOURCE_CHUNK_SIZE",
	"MAPPING_DIR", "LOG_DIR", "LOG_LEVEL", "ELASTICSEARCH_URL", "METRICS_PORT", "METRICS_TEXTFILE",
	"PUSHGATEWAY_URL", "ENABLE_SYSTEM_METRICS", "PARQUET_EXPORT", "STAGE_DATABASE_URL",
	"COUCHBASE_URL", "COUCHBASE_USERNAME", "COUCHBASE_PASSWORD", "COUCHBASE_BUCKET",
}

// Option adjusts the viper instance before the configuration is decoded.
type Option func(v *viper.Viper) error

// WithFlag binds a command line flag to a configuration key. A flag the user
// set wins over the environment.
func WithFlag(key string, flag *pflag.Flag) Option {
	return func(v *viper.Viper) error {
		if flag == nil {
			return fmt.Errorf("no flag bound to %s", key)
		}
		return v.BindPFlag(key, flag)
	}
}

// DefaultEncounterType selects inpatient discharges; "all" disables the filter.
const DefaultEncounterType = "inpatient"

// Load reads the configuration. A .env file in the working directory is used
// when present.
func Load(opts ...Option) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("SYNTHEA_OUTPUT_DIR", "output")
	v.SetDefault("SYNTHEA_SETTINGS_FILE", "synthea_settings")
	v.SetDefault("FORMAT_TYPE", FormatPDDCSV)
	v.SetDefault("ENCOUNTER_TYPE", DefaultEncounterType)
	v.SetDefault("FACILITY_ID", assemble.DefaultFacilityID)
	v.SetDefault("SOURCE_CHUNK_SIZE", 50000)
	v.SetDefault("LOG_DIR", "logs")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("COUCHBASE_BUCKET", "dischargefmt")

	for _, k := range keys {
		v.BindEnv(k)
	}
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}

	// The .env file is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = cfg.SyntheaOutputDir
	}
	if err := cfg.ApplyStudy(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var facilityIDPattern = regexp.MustCompile(`^[0-9]{6}$`)

// Validate checks the configuration before a run starts.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Targets(); err != nil {
		errs = append(errs, err)
	}
	if c.Yearly && c.YearRange == "" {
		errs = append(errs, errors.New("YEARLY requires YEAR_RANGE"))
	}
	if _, err := c.Years(); err != nil {
		errs = append(errs, err)
	}
	if !facilityIDPattern.MatchString(c.FacilityID) {
		errs = append(errs, fmt.Errorf("FACILITY_ID must be 6 digits, got %q", c.FacilityID))
	}
	if c.SourceChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("SOURCE_CHUNK_SIZE must be positive, got %d", c.SourceChunkSize))
	}
	if c.Seed != "" {
		if _, err := strconv.ParseInt(c.Seed, 10, 64); err != nil {
			errs = append(errs, fmt.Errorf("SEED must be an integer: %w", err))
		}
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if c.SyntheaOutputDir == "" {
		errs = append(errs, errors.New("SYNTHEA_OUTPUT_DIR is required"))
	}
	return errors.Join(errs...)
}

// EncounterClasses returns the lowercase class filter; nil ("all") selects
// every class.
func (c *Config) EncounterClasses() []string {
	var out []string
	for _, part := range strings.Split(c.EncounterType, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" || part == "all" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// Years returns the configured discharge year range, nil when unset.
func (c *Config) Years() (*assemble.YearRange, error) {
	if strings.TrimSpace(c.YearRange) == "" {
		return nil, nil
	}
	r, err := assemble.ParseYearRange(c.YearRange)
	if err != nil {
		return nil, fmt.Errorf("YEAR_RANGE: %w", err)
	}
	return &r, nil
}

// ResolveSeed returns the configured seed, or one derived from now when SEED
// is unset. derived reports which.
func (c *Config) ResolveSeed(now func() time.Time) (seed int64, derived bool) {
	if c.Seed != "" {
		if s, err := strconv.ParseInt(c.Seed, 10, 64); err == nil {
			return s, false
		}
	}
	return now().UnixNano(), true
}

// Format types accepted in FORMAT_TYPE.
const (
	FormatInpatientCSV = "HCAI_Inpatient_CSV"
	FormatInpatientFW  = "HCAI_Inpatient_FW"
	FormatPDDCSV       = "HCAI_PDD_CSV"
	FormatPDDFW        = "HCAI_PDD_FW"
	FormatPDDSAS       = "HCAI_PDD_SAS"
	FormatAll          = "all"
)

// Target is one layout family rendered in one format.
type Target struct {
	Family string
	Format render.Format
}

var formatTargets = map[string]Target{
	strings.ToLower(FormatInpatientCSV): {"HCAIInpatient", render.Delimited},
	strings.ToLower(FormatInpatientFW):  {"HCAIInpatient", render.FixedWidth},
	strings.ToLower(FormatPDDCSV):       {"HCAIPDD", render.Delimited},
	strings.ToLower(FormatPDDFW):        {"HCAIPDD", render.FixedWidth},
	strings.ToLower(FormatPDDSAS):       {"HCAIPDD", render.FixedWidth},
}

// Targets expands FORMAT_TYPE into the outputs to produce.
func (c *Config) Targets() ([]Target, error) {
	ft := strings.ToLower(strings.TrimSpace(c.FormatType))
	if ft == FormatAll {
		return []Target{
			{"HCAIInpatient", render.Delimited},
			{"HCAIInpatient", render.FixedWidth},
			{"HCAIPDD", render.Delimited},
			{"HCAIPDD", render.FixedWidth},
		}, nil
	}
	t, ok := formatTargets[ft]
	if !ok {
		return nil, fmt.Errorf("unknown FORMAT_TYPE %q", c.FormatType)
	}
	return []Target{t}, nil
}
