package app

import (
	"fmt"
	"time"

	"github.com/chrissnell/massindex/internal/ingest"
	"github.com/chrissnell/massindex/internal/massindex"
	"github.com/chrissnell/massindex/internal/report"
	"github.com/chrissnell/massindex/internal/temporal"
	"github.com/chrissnell/massindex/pkg/config"
	"go.uber.org/zap"
)

// settings are the parsed, typed form of a validated configuration
type settings struct {
	location      *time.Location
	temporalities []temporal.Temporality
	aggregator    temporal.Config
	thresholds    massindex.Thresholds
	table         report.TableOptions
}

func newSettings(c *config.ConfigData) (*settings, error) {
	loc, err := time.LoadLocation(c.Analysis.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", c.Analysis.TimeZone, err)
	}

	s := &settings{location: loc}

	seen := make(map[temporal.Temporality]bool)
	for _, name := range c.Analysis.Temporalities {
		t, err := temporal.ParseTemporality(name)
		if err != nil {
			return nil, err
		}
		if !seen[t] {
			seen[t] = true
			s.temporalities = append(s.temporalities, t)
		}
	}

	s.aggregator = temporal.Config{
		Estimator: massindex.Config{
			Binning:    massindex.BinningParams{Enabled: c.Analysis.Binning, Bins: c.Analysis.Bins},
			MinSamples: c.Analysis.MinSamples,
		},
		MinAmplitude: c.Analysis.MinAmplitude,
		Location:     loc,
		FillGaps:     c.Analysis.FillGaps,
		Workers:      c.Analysis.Workers,
	}

	s.thresholds = massindex.DefaultThresholds()
	if v := c.Interpretation.Excellent; v != nil {
		s.thresholds.Excellent = *v
	}
	if v := c.Interpretation.Acceptable; v != nil {
		s.thresholds.Acceptable = *v
	}
	if v := c.Interpretation.SignificanceLevel; v != nil {
		s.thresholds.SignificanceLevel = *v
	}

	format, err := report.ParseFormat(c.Output.TableFormat)
	if err != nil {
		return nil, err
	}
	compression, err := report.ParseCompression(c.Output.Compression)
	if err != nil {
		return nil, err
	}
	s.table = report.TableOptions{
		Format:       format,
		Compression:  compression,
		Comma:        outputComma(c.Output.Comma),
		DecimalPoint: c.Output.DecimalPoint,
	}

	return s, nil
}

// outputComma returns the exported table separator, ';' when unset
func outputComma(comma string) rune {
	if comma == "" {
		return ';'
	}
	return []rune(comma)[0]
}

// newSource builds the echo source named by the input configuration and a
// short description of it for run records
func newSource(in config.InputData, loc *time.Location, logger *zap.SugaredLogger) (ingest.Source, string, error) {
	switch in.Type {
	case "csv":
		opts := ingest.CSVOptions{
			Comma:           []rune(in.Comma)[0],
			TimeColumn:      in.TimeColumn,
			DateColumn:      in.DateColumn,
			AmplitudeColumn: in.AmplitudeColumn,
			Location:        loc,
		}
		return ingest.NewCSVSource(in.Path, opts, logger.Named("csv")), in.Path, nil

	case "postgres":
		p := in.Postgres
		from, err := parseBound(p.From, loc)
		if err != nil {
			return nil, "", fmt.Errorf("invalid input.postgres.from: %w", err)
		}
		to, err := parseBound(p.To, loc)
		if err != nil {
			return nil, "", fmt.Errorf("invalid input.postgres.to: %w", err)
		}
		opts := ingest.PostgresOptions{
			Host:            p.Host,
			Port:            p.Port,
			User:            p.User,
			Password:        p.Password,
			Database:        p.Database,
			SSLMode:         p.SSLMode,
			Table:           p.Table,
			TimeColumn:      p.TimeColumn,
			AmplitudeColumn: p.AmplitudeColumn,
			From:            from,
			To:              to,
		}
		src := ingest.NewPostgresSource(opts, logger.Named("postgres"))
		return src, fmt.Sprintf("postgres://%s/%s", p.Host, p.Database), nil
	}

	return nil, "", fmt.Errorf("unknown input type %q", in.Type)
}

// parseBound accepts RFC 3339 or a bare date in loc. Empty means unbounded.
func parseBound(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", s, loc)
}
