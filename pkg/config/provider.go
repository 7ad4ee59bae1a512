package config

import (
	"errors"
	"fmt"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration of a batch run
type ConfigData struct {
	Input          InputData          `json:"input"`
	Analysis       AnalysisData       `json:"analysis"`
	Interpretation InterpretationData `json:"interpretation"`
	Output         OutputData         `json:"output"`
	Storage        StorageData        `json:"storage,omitempty"`
}

// InputData locates the echo dataset
type InputData struct {
	Type            string `json:"type"` // "csv" or "postgres"
	Path            string `json:"path,omitempty"`
	Comma           string `json:"comma,omitempty"`
	DateColumn      string `json:"date_column,omitempty"`
	TimeColumn      string `json:"time_column,omitempty"`
	AmplitudeColumn string `json:"amplitude_column,omitempty"`

	Postgres *PostgresInputData `json:"postgres,omitempty"`
}

// PostgresInputData holds the echo table connection settings
type PostgresInputData struct {
	Host            string `json:"host"`
	Port            int    `json:"port,omitempty"`
	User            string `json:"user"`
	Password        string `json:"password,omitempty"`
	Database        string `json:"database"`
	SSLMode         string `json:"ssl_mode,omitempty"`
	Table           string `json:"table,omitempty"`
	TimeColumn      string `json:"time_column,omitempty"`
	AmplitudeColumn string `json:"amplitude_column,omitempty"`
	From            string `json:"from,omitempty"` // RFC 3339 or YYYY-MM-DD
	To              string `json:"to,omitempty"`
}

// AnalysisData holds estimator and aggregation parameters
type AnalysisData struct {
	Temporalities []string `json:"temporalities"`
	TimeZone      string   `json:"time_zone,omitempty"`
	Binning       bool     `json:"binning,omitempty"`
	Bins          int      `json:"bins,omitempty"`
	MinSamples    int      `json:"min_samples,omitempty"`
	MinAmplitude  float64  `json:"min_amplitude,omitempty"`
	FillGaps      bool     `json:"fill_gaps,omitempty"`
	Workers       int      `json:"workers,omitempty"`
}

// InterpretationData holds the advisory thresholds printed in reports. Nil
// fields take their default; a zero significance level disables the flag.
type InterpretationData struct {
	Excellent         *float64 `json:"excellent,omitempty"`
	Acceptable        *float64 `json:"acceptable,omitempty"`
	SignificanceLevel *float64 `json:"significance_level,omitempty"`
}

// OutputData controls what is written and where
type OutputData struct {
	ReportDir    string `json:"report_dir"`
	TableName    string `json:"table_name"`
	TableFormat  string `json:"table_format"`
	Comma        string `json:"comma,omitempty"` // CSV separator of exported tables
	Compression  string `json:"compression,omitempty"`
	DecimalPoint bool   `json:"decimal_point,omitempty"`
	SkipReports  bool   `json:"skip_reports,omitempty"`
}

// StorageData holds the configuration for the results backends
type StorageData struct {
	SQLite   *SQLiteData   `json:"sqlite,omitempty"`
	Postgres *PostgresData `json:"postgres,omitempty"`
}

type SQLiteData struct {
	Path string `json:"path"`
}

type PostgresData struct {
	ConnectionString string `json:"connection_string"`
}

// ApplyDefaults fills every unset field with its default
func (c *ConfigData) ApplyDefaults() {
	if c.Input.Type == "" {
		c.Input.Type = "csv"
	}
	if c.Input.Comma == "" {
		c.Input.Comma = ";"
	}
	if c.Input.TimeColumn == "" {
		c.Input.TimeColumn = "Fecha y hora"
	}
	if c.Input.AmplitudeColumn == "" {
		c.Input.AmplitudeColumn = "amax"
	}

	if len(c.Analysis.Temporalities) == 0 {
		c.Analysis.Temporalities = []string{"annual"}
	}
	if c.Analysis.TimeZone == "" {
		c.Analysis.TimeZone = "UTC"
	}
	if c.Analysis.Bins == 0 {
		c.Analysis.Bins = 50
	}

	defaultFloat(&c.Interpretation.Excellent, 0.80)
	defaultFloat(&c.Interpretation.Acceptable, 0.60)
	defaultFloat(&c.Interpretation.SignificanceLevel, 0.05)

	if c.Output.ReportDir == "" {
		c.Output.ReportDir = "reports"
	}
	if c.Output.TableName == "" {
		c.Output.TableName = "mass_index"
	}
	if c.Output.TableFormat == "" {
		c.Output.TableFormat = "csv"
	}
	if c.Output.Comma == "" {
		c.Output.Comma = ";"
	}
}

func defaultFloat(v **float64, def float64) {
	if *v == nil {
		*v = &def
	}
}

// Validate checks the parts of the configuration that do not depend on
// parsing domain values
func (c *ConfigData) Validate() error {
	var errs []error

	switch c.Input.Type {
	case "csv":
		if c.Input.Path == "" {
			errs = append(errs, errors.New("input.path is required for csv input"))
		}
		if len([]rune(c.Input.Comma)) != 1 {
			errs = append(errs, fmt.Errorf("input.comma must be a single character, got %q", c.Input.Comma))
		}
	case "postgres":
		if c.Input.Postgres == nil || c.Input.Postgres.Host == "" || c.Input.Postgres.Database == "" {
			errs = append(errs, errors.New("input.postgres.host and input.postgres.database are required for postgres input"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown input type %q", c.Input.Type))
	}

	if c.Analysis.Bins < 1 {
		errs = append(errs, fmt.Errorf("analysis.bins must be positive, got %d", c.Analysis.Bins))
	}
	if c.Analysis.MinSamples < 0 || c.Analysis.MinAmplitude < 0 || c.Analysis.Workers < 0 {
		errs = append(errs, errors.New("analysis.min_samples, analysis.min_amplitude and analysis.workers cannot be negative"))
	}

	if len([]rune(c.Output.Comma)) > 1 {
		errs = append(errs, fmt.Errorf("output.comma must be a single character, got %q", c.Output.Comma))
	}

	i := c.Interpretation
	if i.Acceptable != nil && i.Excellent != nil && *i.Acceptable > *i.Excellent {
		errs = append(errs, fmt.Errorf("interpretation.acceptable (%g) is above interpretation.excellent (%g)", *i.Acceptable, *i.Excellent))
	}
	if p := i.SignificanceLevel; p != nil && (*p < 0 || *p >= 1) {
		errs = append(errs, fmt.Errorf("interpretation.significance_level must be in [0,1), got %g", *p))
	}

	return errors.Join(errs...)
}
