package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/chrissnell/massindex/internal/temporal"
)

const (
	statusOK      = "ok"
	statusSkipped = "skipped"
)

// Columns is the header of the consolidated results table, in export order
var Columns = []string{
	"window_label", "mass_index", "slope", "intercept", "r", "r_squared",
	"p_value", "std_error", "n_original", "n_regression", "amp_min", "amp_max",
	"amp_mean", "binning_applied", "status", "reason", "window_start",
	"window_end", "solar_longitude",
}

// TableRow is one line of the consolidated results table. Statistics of a
// skipped window are NaN and serialize as empty CSV cells or JSON null.
type TableRow struct {
	WindowLabel    string    `json:"window_label"`
	MassIndex      float64   `json:"mass_index"`
	Slope          float64   `json:"slope"`
	Intercept      float64   `json:"intercept"`
	R              float64   `json:"r"`
	RSquared       float64   `json:"r_squared"`
	PValue         float64   `json:"p_value"`
	StdError       float64   `json:"std_error"`
	NOriginal      int       `json:"n_original"`
	NRegression    int       `json:"n_regression"`
	AmpMin         float64   `json:"amp_min"`
	AmpMax         float64   `json:"amp_max"`
	AmpMean        float64   `json:"amp_mean"`
	BinningApplied bool      `json:"binning_applied"`
	Status         string    `json:"status"`
	Reason         string    `json:"reason,omitempty"`
	WindowStart    time.Time `json:"window_start"`
	WindowEnd      time.Time `json:"window_end"`
	SolarLongitude float64   `json:"solar_longitude"`
}

// Table builds the consolidated table of one or more series, keeping each
// series in chronological order
func Table(series ...*temporal.Series) []TableRow {
	var rows []TableRow
	for _, s := range series {
		for _, r := range s.Rows {
			rows = append(rows, NewTableRow(r))
		}
	}
	return rows
}

// NewTableRow flattens an aggregator row
func NewTableRow(r temporal.Row) TableRow {
	nan := math.NaN()
	row := TableRow{
		WindowLabel:    r.Label,
		MassIndex:      nan,
		Slope:          nan,
		Intercept:      nan,
		R:              nan,
		RSquared:       nan,
		PValue:         nan,
		StdError:       nan,
		NOriginal:      r.NSamples,
		AmpMin:         nan,
		AmpMax:         nan,
		AmpMean:        nan,
		Status:         statusSkipped,
		Reason:         r.Reason,
		WindowStart:    r.Start,
		WindowEnd:      r.End,
		SolarLongitude: r.SolarLongitude,
	}

	if res := r.Result; res != nil {
		row.MassIndex = res.MassIndex
		row.Slope = res.Regression.Slope
		row.Intercept = res.Regression.Intercept
		row.R = res.Regression.R
		row.RSquared = res.Regression.RSquared
		row.PValue = res.Regression.PValue
		row.StdError = res.Regression.StdErr
		row.NOriginal = res.NOriginal
		row.NRegression = res.NRegression
		row.AmpMin = res.AmpMin
		row.AmpMax = res.AmpMax
		row.AmpMean = res.AmpMean
		row.BinningApplied = res.Binning
		row.Status = statusOK
		row.Reason = ""
	}

	return row
}

// Format is a table serialization
type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatMsgPack Format = "msgpack"
)

// ParseFormat validates a table format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatMsgPack:
		return f, nil
	case "":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unknown table format %q", s)
	}
}

// Extension returns the file extension for the format
func (f Format) Extension() string {
	if f == FormatMsgPack {
		return ".msgpack"
	}
	return "." + string(f)
}

// Compression is an optional compression applied to exported tables
type Compression string

const (
	CompressionNone Compression = ""
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// ParseCompression validates a compression name. "none" and "" disable it.
func ParseCompression(s string) (Compression, error) {
	switch c := strings.ToLower(strings.TrimSpace(s)); c {
	case "", "none":
		return CompressionNone, nil
	case "gzip", "gz":
		return CompressionGzip, nil
	case "zstd", "zst":
		return CompressionZstd, nil
	default:
		return "", fmt.Errorf("unknown compression %q", s)
	}
}

// Extension returns the file extension suffix for the compression
func (c Compression) Extension() string {
	switch c {
	case CompressionGzip:
		return ".gz"
	case CompressionZstd:
		return ".zst"
	default:
		return ""
	}
}

// TableOptions control table serialization
type TableOptions struct {
	Format      Format
	Compression Compression

	// Comma is the CSV field separator. Defaults to ';'.
	Comma rune

	// DecimalPoint writes CSV numbers with '.' instead of the default ','
	DecimalPoint bool
}

// WriteTable serializes rows to w
func WriteTable(w io.Writer, rows []TableRow, opts TableOptions) error {
	cw, err := compressWriter(w, opts.Compression)
	if err != nil {
		return err
	}

	switch opts.Format {
	case FormatJSON:
		enc := json.NewEncoder(cw)
		enc.SetIndent("", "  ")
		err = enc.Encode(jsonRows(rows))
	case FormatMsgPack:
		enc := msgpack.NewEncoder(cw)
		enc.SetCustomStructTag("json")
		err = enc.Encode(rows)
	case FormatCSV, "":
		err = writeCSV(cw, rows, opts)
	default:
		err = fmt.Errorf("unknown table format %q", opts.Format)
	}
	if err != nil {
		cw.Close()
		return fmt.Errorf("error encoding %s table: %w", opts.Format, err)
	}

	return cw.Close()
}

// formatNumber renders v with six decimals for CSV output. NaN is empty.
func formatNumber(v float64, decimalPoint bool) string {
	if math.IsNaN(v) {
		return ""
	}
	s := strconv.FormatFloat(v, 'f', 6, 64)
	if !decimalPoint {
		s = strings.Replace(s, ".", ",", 1)
	}
	return s
}

func writeCSV(w io.Writer, rows []TableRow, opts TableOptions) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if opts.Comma != 0 {
		cw.Comma = opts.Comma
	}

	num := func(v float64) string {
		return formatNumber(v, opts.DecimalPoint)
	}
	ts := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(time.RFC3339)
	}

	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.WindowLabel,
			num(r.MassIndex),
			num(r.Slope),
			num(r.Intercept),
			num(r.R),
			num(r.RSquared),
			num(r.PValue),
			num(r.StdError),
			strconv.Itoa(r.NOriginal),
			strconv.Itoa(r.NRegression),
			num(r.AmpMin),
			num(r.AmpMax),
			num(r.AmpMean),
			strconv.FormatBool(r.BinningApplied),
			r.Status,
			r.Reason,
			ts(r.WindowStart),
			ts(r.WindowEnd),
			num(r.SolarLongitude),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// jsonRow mirrors TableRow with nullable statistics, since encoding/json
// rejects NaN
type jsonRow struct {
	WindowLabel    string    `json:"window_label"`
	MassIndex      *float64  `json:"mass_index"`
	Slope          *float64  `json:"slope"`
	Intercept      *float64  `json:"intercept"`
	R              *float64  `json:"r"`
	RSquared       *float64  `json:"r_squared"`
	PValue         *float64  `json:"p_value"`
	StdError       *float64  `json:"std_error"`
	NOriginal      int       `json:"n_original"`
	NRegression    int       `json:"n_regression"`
	AmpMin         *float64  `json:"amp_min"`
	AmpMax         *float64  `json:"amp_max"`
	AmpMean        *float64  `json:"amp_mean"`
	BinningApplied bool      `json:"binning_applied"`
	Status         string    `json:"status"`
	Reason         string    `json:"reason,omitempty"`
	WindowStart    time.Time `json:"window_start"`
	WindowEnd      time.Time `json:"window_end"`
	SolarLongitude *float64  `json:"solar_longitude"`
}

func jsonRows(rows []TableRow) []jsonRow {
	opt := func(v float64) *float64 {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return &v
	}

	out := make([]jsonRow, len(rows))
	for i, r := range rows {
		out[i] = jsonRow{
			WindowLabel:    r.WindowLabel,
			MassIndex:      opt(r.MassIndex),
			Slope:          opt(r.Slope),
			Intercept:      opt(r.Intercept),
			R:              opt(r.R),
			RSquared:       opt(r.RSquared),
			PValue:         opt(r.PValue),
			StdError:       opt(r.StdError),
			NOriginal:      r.NOriginal,
			NRegression:    r.NRegression,
			AmpMin:         opt(r.AmpMin),
			AmpMax:         opt(r.AmpMax),
			AmpMean:        opt(r.AmpMean),
			BinningApplied: r.BinningApplied,
			Status:         r.Status,
			Reason:         r.Reason,
			WindowStart:    r.WindowStart,
			WindowEnd:      r.WindowEnd,
			SolarLongitude: opt(r.SolarLongitude),
		}
	}
	return out
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

func compressWriter(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case CompressionNone:
		return nopCloser{w}, nil
	case CompressionGzip:
		return gzip.NewWriter(w), nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("error creating zstd encoder: %w", err)
		}
		return enc, nil
	default:
		return nil, fmt.Errorf("unknown compression %q", c)
	}
}
