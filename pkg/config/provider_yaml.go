package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from the YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}
	return ParseYAML(cfgFile)
}

// ParseYAML decodes a YAML configuration document
func ParseYAML(data []byte) (*ConfigData, error) {
	var yamlConfig ConfigYAML
	if err := yaml.Unmarshal(data, &yamlConfig); err != nil {
		return nil, fmt.Errorf("error parsing YAML configuration: %w", err)
	}
	return yamlConfig.toData(), nil
}

// IsReadOnly returns true since YAML files are read-only
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// ConfigYAML is the on-disk layout of a YAML configuration file
type ConfigYAML struct {
	Input          InputYAML          `yaml:"input"`
	Analysis       AnalysisYAML       `yaml:"analysis"`
	Interpretation InterpretationYAML `yaml:"interpretation,omitempty"`
	Output         OutputYAML         `yaml:"output,omitempty"`
	Storage        StorageYAML        `yaml:"storage,omitempty"`
}

type InputYAML struct {
	Type            string        `yaml:"type,omitempty"`
	Path            string        `yaml:"path,omitempty"`
	Comma           string        `yaml:"comma,omitempty"`
	DateColumn      string        `yaml:"date-column,omitempty"`
	TimeColumn      string        `yaml:"time-column,omitempty"`
	AmplitudeColumn string        `yaml:"amplitude-column,omitempty"`
	Postgres        *PostgresYAML `yaml:"postgres,omitempty"`
}

type PostgresYAML struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port,omitempty"`
	User            string `yaml:"user"`
	Password        string `yaml:"password,omitempty"`
	Database        string `yaml:"database"`
	SSLMode         string `yaml:"ssl-mode,omitempty"`
	Table           string `yaml:"table,omitempty"`
	TimeColumn      string `yaml:"time-column,omitempty"`
	AmplitudeColumn string `yaml:"amplitude-column,omitempty"`
	From            string `yaml:"from,omitempty"`
	To              string `yaml:"to,omitempty"`
}

type AnalysisYAML struct {
	Temporalities []string `yaml:"temporalities,omitempty"`
	TimeZone      string   `yaml:"time-zone,omitempty"`
	Binning       bool     `yaml:"binning,omitempty"`
	Bins          int      `yaml:"bins,omitempty"`
	MinSamples    int      `yaml:"min-samples,omitempty"`
	MinAmplitude  float64  `yaml:"min-amplitude,omitempty"`
	FillGaps      bool     `yaml:"fill-gaps,omitempty"`
	Workers       int      `yaml:"workers,omitempty"`
}

type InterpretationYAML struct {
	Excellent         *float64 `yaml:"excellent,omitempty"`
	Acceptable        *float64 `yaml:"acceptable,omitempty"`
	SignificanceLevel *float64 `yaml:"significance-level,omitempty"`
}

type OutputYAML struct {
	ReportDir    string `yaml:"report-dir,omitempty"`
	TableName    string `yaml:"table-name,omitempty"`
	TableFormat  string `yaml:"table-format,omitempty"`
	Comma        string `yaml:"comma,omitempty"`
	Compression  string `yaml:"compression,omitempty"`
	DecimalPoint bool   `yaml:"decimal-point,omitempty"`
	SkipReports  bool   `yaml:"skip-reports,omitempty"`
}

type StorageYAML struct {
	SQLite   *SQLiteYAML          `yaml:"sqlite,omitempty"`
	Postgres *PostgresStorageYAML `yaml:"postgres,omitempty"`
}

type SQLiteYAML struct {
	Path string `yaml:"path"`
}

type PostgresStorageYAML struct {
	ConnectionString string `yaml:"connection-string"`
}

func (y ConfigYAML) toData() *ConfigData {
	config := &ConfigData{
		Input: InputData{
			Type:            y.Input.Type,
			Path:            y.Input.Path,
			Comma:           y.Input.Comma,
			DateColumn:      y.Input.DateColumn,
			TimeColumn:      y.Input.TimeColumn,
			AmplitudeColumn: y.Input.AmplitudeColumn,
		},
		Analysis: AnalysisData{
			Temporalities: y.Analysis.Temporalities,
			TimeZone:      y.Analysis.TimeZone,
			Binning:       y.Analysis.Binning,
			Bins:          y.Analysis.Bins,
			MinSamples:    y.Analysis.MinSamples,
			MinAmplitude:  y.Analysis.MinAmplitude,
			FillGaps:      y.Analysis.FillGaps,
			Workers:       y.Analysis.Workers,
		},
		Interpretation: InterpretationData{
			Excellent:         y.Interpretation.Excellent,
			Acceptable:        y.Interpretation.Acceptable,
			SignificanceLevel: y.Interpretation.SignificanceLevel,
		},
		Output: OutputData{
			ReportDir:    y.Output.ReportDir,
			TableName:    y.Output.TableName,
			TableFormat:  y.Output.TableFormat,
			Comma:        y.Output.Comma,
			Compression:  y.Output.Compression,
			DecimalPoint: y.Output.DecimalPoint,
			SkipReports:  y.Output.SkipReports,
		},
	}

	if p := y.Input.Postgres; p != nil {
		config.Input.Postgres = &PostgresInputData{
			Host:            p.Host,
			Port:            p.Port,
			User:            p.User,
			Password:        p.Password,
			Database:        p.Database,
			SSLMode:         p.SSLMode,
			Table:           p.Table,
			TimeColumn:      p.TimeColumn,
			AmplitudeColumn: p.AmplitudeColumn,
			From:            p.From,
			To:              p.To,
		}
	}

	if y.Storage.SQLite != nil {
		config.Storage.SQLite = &SQLiteData{Path: y.Storage.SQLite.Path}
	}
	if y.Storage.Postgres != nil {
		config.Storage.Postgres = &PostgresData{ConnectionString: y.Storage.Postgres.ConnectionString}
	}

	return config
}
