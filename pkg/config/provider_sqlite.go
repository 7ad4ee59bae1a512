package config

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/chrissnell/massindex/pkg/migrate"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrations returns the provider for the configuration schema
func Migrations() migrate.MigrationProvider {
	return migrate.NewFSProvider(migrations, "migrations", "config_schema_migrations", "sqlite")
}

// SQLiteProvider implements ConfigProvider for SQLite database configuration.
// Settings are stored as dotted key/value pairs under the "default" config.
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider opens the configuration database, creating its schema
// when needed
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if err := migrate.NewMigrator(db, Migrations(), nil).MigrateUp(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate configuration database: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// LoadConfig loads the complete configuration from the SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	rows, err := s.db.Query(`
		SELECT key, value FROM settings
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting row: %w", err)
		}
		settings[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return unflatten(settings)
}

// SaveConfig replaces the stored configuration with config
func (s *SQLiteProvider) SaveConfig(config *ConfigData) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var configID int64
	if err := tx.QueryRow("SELECT id FROM configs WHERE name = 'default'").Scan(&configID); err != nil {
		return fmt.Errorf("failed to find default config: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM settings WHERE config_id = ?", configID); err != nil {
		return fmt.Errorf("failed to clear settings: %w", err)
	}

	settings := flatten(config)
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, err := tx.Exec("INSERT INTO settings (config_id, key, value) VALUES (?, ?, ?)", configID, k, settings[k]); err != nil {
			return fmt.Errorf("failed to insert setting %s: %w", k, err)
		}
	}

	if _, err := tx.Exec("UPDATE configs SET updated_at = CURRENT_TIMESTAMP WHERE id = ?", configID); err != nil {
		return fmt.Errorf("failed to update config timestamp: %w", err)
	}

	return tx.Commit()
}

// IsReadOnly returns false since the database can be written by SaveConfig
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	return s.db.Close()
}

// flatten turns the configuration into dotted keys. Empty values are omitted.
func flatten(c *ConfigData) map[string]string {
	m := make(map[string]string)
	str := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	num := func(k string, v int) {
		if v != 0 {
			m[k] = strconv.Itoa(v)
		}
	}
	flt := func(k string, v float64) {
		if v != 0 {
			m[k] = strconv.FormatFloat(v, 'g', -1, 64)
		}
	}
	flag := func(k string, v bool) {
		if v {
			m[k] = "true"
		}
	}

	str("input.type", c.Input.Type)
	str("input.path", c.Input.Path)
	str("input.comma", c.Input.Comma)
	str("input.date_column", c.Input.DateColumn)
	str("input.time_column", c.Input.TimeColumn)
	str("input.amplitude_column", c.Input.AmplitudeColumn)
	if p := c.Input.Postgres; p != nil {
		str("input.postgres.host", p.Host)
		num("input.postgres.port", p.Port)
		str("input.postgres.user", p.User)
		str("input.postgres.password", p.Password)
		str("input.postgres.database", p.Database)
		str("input.postgres.ssl_mode", p.SSLMode)
		str("input.postgres.table", p.Table)
		str("input.postgres.time_column", p.TimeColumn)
		str("input.postgres.amplitude_column", p.AmplitudeColumn)
		str("input.postgres.from", p.From)
		str("input.postgres.to", p.To)
	}

	str("analysis.temporalities", strings.Join(c.Analysis.Temporalities, ","))
	str("analysis.time_zone", c.Analysis.TimeZone)
	flag("analysis.binning", c.Analysis.Binning)
	num("analysis.bins", c.Analysis.Bins)
	num("analysis.min_samples", c.Analysis.MinSamples)
	flt("analysis.min_amplitude", c.Analysis.MinAmplitude)
	flag("analysis.fill_gaps", c.Analysis.FillGaps)
	num("analysis.workers", c.Analysis.Workers)

	optFlt := func(k string, v *float64) {
		if v != nil {
			m[k] = strconv.FormatFloat(*v, 'g', -1, 64)
		}
	}
	optFlt("interpretation.excellent", c.Interpretation.Excellent)
	optFlt("interpretation.acceptable", c.Interpretation.Acceptable)
	optFlt("interpretation.significance_level", c.Interpretation.SignificanceLevel)

	str("output.report_dir", c.Output.ReportDir)
	str("output.table_name", c.Output.TableName)
	str("output.table_format", c.Output.TableFormat)
	str("output.comma", c.Output.Comma)
	str("output.compression", c.Output.Compression)
	flag("output.decimal_point", c.Output.DecimalPoint)
	flag("output.skip_reports", c.Output.SkipReports)

	if c.Storage.SQLite != nil {
		str("storage.sqlite.path", c.Storage.SQLite.Path)
	}
	if c.Storage.Postgres != nil {
		str("storage.postgres.connection_string", c.Storage.Postgres.ConnectionString)
	}

	return m
}

func unflatten(m map[string]string) (*ConfigData, error) {
	c := &ConfigData{}
	var errs []string

	num := func(k string) int {
		v, ok := m[k]
		if !ok {
			return 0
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", k, err))
		}
		return n
	}
	flt := func(k string) float64 {
		v, ok := m[k]
		if !ok {
			return 0
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", k, err))
		}
		return f
	}
	flag := func(k string) bool {
		v, ok := m[k]
		if !ok {
			return false
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", k, err))
		}
		return b
	}

	c.Input = InputData{
		Type:            m["input.type"],
		Path:            m["input.path"],
		Comma:           m["input.comma"],
		DateColumn:      m["input.date_column"],
		TimeColumn:      m["input.time_column"],
		AmplitudeColumn: m["input.amplitude_column"],
	}
	if _, ok := m["input.postgres.host"]; ok {
		c.Input.Postgres = &PostgresInputData{
			Host:            m["input.postgres.host"],
			Port:            num("input.postgres.port"),
			User:            m["input.postgres.user"],
			Password:        m["input.postgres.password"],
			Database:        m["input.postgres.database"],
			SSLMode:         m["input.postgres.ssl_mode"],
			Table:           m["input.postgres.table"],
			TimeColumn:      m["input.postgres.time_column"],
			AmplitudeColumn: m["input.postgres.amplitude_column"],
			From:            m["input.postgres.from"],
			To:              m["input.postgres.to"],
		}
	}

	if v := m["analysis.temporalities"]; v != "" {
		c.Analysis.Temporalities = strings.Split(v, ",")
	}
	c.Analysis.TimeZone = m["analysis.time_zone"]
	c.Analysis.Binning = flag("analysis.binning")
	c.Analysis.Bins = num("analysis.bins")
	c.Analysis.MinSamples = num("analysis.min_samples")
	c.Analysis.MinAmplitude = flt("analysis.min_amplitude")
	c.Analysis.FillGaps = flag("analysis.fill_gaps")
	c.Analysis.Workers = num("analysis.workers")

	optFlt := func(k string) *float64 {
		if _, ok := m[k]; !ok {
			return nil
		}
		f := flt(k)
		return &f
	}
	c.Interpretation = InterpretationData{
		Excellent:         optFlt("interpretation.excellent"),
		Acceptable:        optFlt("interpretation.acceptable"),
		SignificanceLevel: optFlt("interpretation.significance_level"),
	}

	c.Output = OutputData{
		ReportDir:    m["output.report_dir"],
		TableName:    m["output.table_name"],
		TableFormat:  m["output.table_format"],
		Comma:        m["output.comma"],
		Compression:  m["output.compression"],
		DecimalPoint: flag("output.decimal_point"),
		SkipReports:  flag("output.skip_reports"),
	}

	if v, ok := m["storage.sqlite.path"]; ok {
		c.Storage.SQLite = &SQLiteData{Path: v}
	}
	if v, ok := m["storage.postgres.connection_string"]; ok {
		c.Storage.Postgres = &PostgresData{ConnectionString: v}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid settings: %s", strings.Join(errs, "; "))
	}
	return c, nil
}
