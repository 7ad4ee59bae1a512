package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/chrissnell/massindex/internal/temporal"
)

// Default column names of the consolidated dataset
const (
	DefaultTimeColumn      = "Fecha y hora"
	DefaultAmplitudeColumn = "amax"
)

// CSVOptions describe the layout of a consolidated CSV file
type CSVOptions struct {
	// Comma is the field separator. Defaults to ';'.
	Comma rune

	// TimeColumn holds the full timestamp. When DateColumn is set the
	// timestamp is DateColumn and TimeColumn joined by a space.
	TimeColumn string
	DateColumn string

	AmplitudeColumn string

	// Location is used for timestamps without a zone. Defaults to UTC.
	Location *time.Location
}

// CSVSource reads a consolidated semicolon-separated file with a header row.
// Files ending in .gz or .zst are decompressed transparently.
type CSVSource struct {
	path   string
	opts   CSVOptions
	logger *zap.SugaredLogger
}

// NewCSVSource creates a CSVSource. A nil logger disables logging.
func NewCSVSource(path string, opts CSVOptions, logger *zap.SugaredLogger) *CSVSource {
	if opts.Comma == 0 {
		opts.Comma = ';'
	}
	if opts.TimeColumn == "" {
		opts.TimeColumn = DefaultTimeColumn
	}
	if opts.AmplitudeColumn == "" {
		opts.AmplitudeColumn = DefaultAmplitudeColumn
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &CSVSource{path: path, opts: opts, logger: logger}
}

// Records reads every record of the file
func (s *CSVSource) Records(ctx context.Context) ([]temporal.Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("error opening dataset: %w", err)
	}
	defer f.Close()

	r, closeFn, err := decompress(f, s.path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	records, err := s.read(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", s.path, err)
	}
	return records, nil
}

func (s *CSVSource) read(ctx context.Context, r io.Reader) ([]temporal.Record, error) {
	cr := csv.NewReader(r)
	cr.Comma = s.opts.Comma
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty file")
		}
		return nil, err
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}

	column := func(name string) (int, error) {
		i, ok := cols[name]
		if !ok {
			return 0, fmt.Errorf("column %q not found in header", name)
		}
		return i, nil
	}

	ampIdx, err := column(s.opts.AmplitudeColumn)
	if err != nil {
		return nil, err
	}
	timeIdx, err := column(s.opts.TimeColumn)
	if err != nil {
		return nil, err
	}
	dateIdx := -1
	if s.opts.DateColumn != "" {
		if dateIdx, err = column(s.opts.DateColumn); err != nil {
			return nil, err
		}
	}

	var records []temporal.Record
	var skipped int
	line := 1
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if line%100000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		rec, err := s.parseRecord(fields, timeIdx, dateIdx, ampIdx)
		if err != nil {
			skipped++
			s.logger.Debugw("skipping unparsable row", "line", line, "error", err)
			continue
		}
		records = append(records, rec)
	}

	if skipped > 0 {
		s.logger.Warnw("skipped unparsable rows", "path", s.path, "rows", skipped)
	}
	s.logger.Infow("dataset loaded", "path", s.path, "records", len(records))

	return records, nil
}

func (s *CSVSource) parseRecord(fields []string, timeIdx, dateIdx, ampIdx int) (temporal.Record, error) {
	need := max(timeIdx, dateIdx, ampIdx)
	if len(fields) <= need {
		return temporal.Record{}, fmt.Errorf("expected at least %d fields, got %d", need+1, len(fields))
	}

	stamp := fields[timeIdx]
	if dateIdx >= 0 {
		stamp = strings.TrimSpace(fields[dateIdx]) + " " + strings.TrimSpace(stamp)
	}
	ts, err := parseTime(stamp, s.opts.Location)
	if err != nil {
		return temporal.Record{}, err
	}

	amp, err := parseDecimal(fields[ampIdx])
	if err != nil {
		return temporal.Record{}, fmt.Errorf("invalid amplitude %q: %w", fields[ampIdx], err)
	}

	return temporal.Record{Time: ts, Amplitude: amp}, nil
}

// decompress wraps r according to the file extension
func decompress(r io.Reader, path string) (io.Reader, func(), error) {
	switch {
	case strings.HasSuffix(path, ".gz"):
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("error opening gzip stream: %w", err)
		}
		return zr, func() { zr.Close() }, nil
	case strings.HasSuffix(path, ".zst"):
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("error opening zstd stream: %w", err)
		}
		return zr, zr.Close, nil
	default:
		return r, func() {}, nil
	}
}
