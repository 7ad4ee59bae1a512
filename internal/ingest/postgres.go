package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/chrissnell/massindex/internal/temporal"
)

// PostgresOptions locate the echo table in a PostgreSQL database
type PostgresOptions struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	Table           string
	TimeColumn      string
	AmplitudeColumn string

	// From and To restrict the query to [From, To) when non-zero
	From time.Time
	To   time.Time
}

// ConnString returns the lib/pq connection string for the options
func (o PostgresOptions) ConnString() string {
	sslMode := o.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	port := o.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		o.Host, port, o.User, o.Password, o.Database, sslMode)
}

// PostgresSource reads echoes from a table with a timestamp and an amplitude column
type PostgresSource struct {
	opts   PostgresOptions
	logger *zap.SugaredLogger
}

// NewPostgresSource creates a PostgresSource. A nil logger disables logging.
func NewPostgresSource(opts PostgresOptions, logger *zap.SugaredLogger) *PostgresSource {
	if opts.Table == "" {
		opts.Table = "echoes"
	}
	if opts.TimeColumn == "" {
		opts.TimeColumn = "time"
	}
	if opts.AmplitudeColumn == "" {
		opts.AmplitudeColumn = DefaultAmplitudeColumn
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &PostgresSource{opts: opts, logger: logger}
}

// query builds the SELECT statement and its arguments
func (s *PostgresSource) query() (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s, %s FROM %s",
		pq.QuoteIdentifier(s.opts.TimeColumn),
		pq.QuoteIdentifier(s.opts.AmplitudeColumn),
		quoteTable(s.opts.Table))

	var where []string
	var args []any
	if !s.opts.From.IsZero() {
		args = append(args, s.opts.From)
		where = append(where, fmt.Sprintf("%s >= $%d", pq.QuoteIdentifier(s.opts.TimeColumn), len(args)))
	}
	if !s.opts.To.IsZero() {
		args = append(args, s.opts.To)
		where = append(where, fmt.Sprintf("%s < $%d", pq.QuoteIdentifier(s.opts.TimeColumn), len(args)))
	}
	where = append(where, fmt.Sprintf("%s IS NOT NULL", pq.QuoteIdentifier(s.opts.AmplitudeColumn)))

	b.WriteString(" WHERE " + strings.Join(where, " AND "))
	fmt.Fprintf(&b, " ORDER BY %s", pq.QuoteIdentifier(s.opts.TimeColumn))

	return b.String(), args
}

// quoteTable quotes an optionally schema-qualified table name
func quoteTable(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

// Records queries every echo in the configured range
func (s *PostgresSource) Records(ctx context.Context) ([]temporal.Record, error) {
	db, err := sql.Open("postgres", s.opts.ConnString())
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("error pinging database: %w", err)
	}

	query, args := s.query()
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying echoes: %w", err)
	}
	defer rows.Close()

	var records []temporal.Record
	for rows.Next() {
		var r temporal.Record
		if err := rows.Scan(&r.Time, &r.Amplitude); err != nil {
			return nil, fmt.Errorf("error scanning echo: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating echoes: %w", err)
	}

	s.logger.Infow("echoes loaded", "table", s.opts.Table, "records", len(records))
	return records, nil
}
