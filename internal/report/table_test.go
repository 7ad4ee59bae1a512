package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/chrissnell/massindex/internal/massindex"
	"github.com/chrissnell/massindex/internal/temporal"
)

func scenarioSeries(t *testing.T) *temporal.Series {
	t.Helper()
	res := scenarioResult(t)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &temporal.Series{
		Temporality: temporal.Annual,
		Rows: []temporal.Row{
			{Label: "annual 2024", Start: start, End: start.AddDate(1, 0, 0), NSamples: 5, Result: &res, SolarLongitude: 100.5},
			{Label: "annual 2025", Start: start.AddDate(1, 0, 0), End: start.AddDate(2, 0, 0), NSamples: 1,
				Reason: massindex.ReasonInsufficientData, SolarLongitude: math.NaN()},
		},
	}
}

func TestNewTableRow(t *testing.T) {
	rows := Table(scenarioSeries(t))
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	ok := rows[0]
	if ok.Status != statusOK || ok.Reason != "" {
		t.Errorf("estimated row status = %q / %q", ok.Status, ok.Reason)
	}
	if math.Abs(ok.MassIndex-1.796578) > 1e-5 || ok.NOriginal != 5 || ok.NRegression != 4 {
		t.Errorf("estimated row = %+v", ok)
	}

	skipped := rows[1]
	if skipped.Status != statusSkipped || skipped.Reason != massindex.ReasonInsufficientData {
		t.Errorf("skipped row status = %q / %q", skipped.Status, skipped.Reason)
	}
	if !math.IsNaN(skipped.MassIndex) || skipped.NOriginal != 1 {
		t.Errorf("skipped row = %+v", skipped)
	}
}

func TestWriteTableCSV(t *testing.T) {
	tests := []struct {
		name         string
		opts         TableOptions
		comma        rune
		wantMassIdx  string
		wantSolarLon string
	}{
		{"default decimal comma", TableOptions{Format: FormatCSV}, ';', "1,796578", "100,500000"},
		{"decimal point", TableOptions{Format: FormatCSV, Comma: ',', DecimalPoint: true}, ',', "1.796578", "100.500000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteTable(&buf, Table(scenarioSeries(t)), tt.opts); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			r := csv.NewReader(&buf)
			r.Comma = tt.comma
			records, err := r.ReadAll()
			if err != nil {
				t.Fatalf("error reading CSV back: %v", err)
			}
			if len(records) != 3 {
				t.Fatalf("expected header and 2 rows, got %d records", len(records))
			}
			if strings.Join(records[0], ",") != strings.Join(Columns, ",") {
				t.Errorf("header = %v", records[0])
			}
			if records[1][1] != tt.wantMassIdx {
				t.Errorf("mass_index = %q, expected %q", records[1][1], tt.wantMassIdx)
			}
			if records[1][18] != tt.wantSolarLon {
				t.Errorf("solar_longitude = %q, expected %q", records[1][18], tt.wantSolarLon)
			}
			if records[1][16] != "2024-01-01T00:00:00Z" {
				t.Errorf("window_start = %q", records[1][16])
			}
			if records[2][1] != "" || records[2][14] != statusSkipped || records[2][15] != massindex.ReasonInsufficientData {
				t.Errorf("skipped record = %v", records[2])
			}
		})
	}
}

func TestWriteTableJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTable(&buf, Table(scenarioSeries(t)), TableOptions{Format: FormatJSON}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(decoded))
	}
	if decoded[0]["window_label"] != "annual 2024" || decoded[0]["status"] != statusOK {
		t.Errorf("first row = %v", decoded[0])
	}
	if decoded[1]["mass_index"] != nil {
		t.Errorf("skipped mass_index = %v, expected null", decoded[1]["mass_index"])
	}
}

func TestWriteTableCompressedMsgPack(t *testing.T) {
	tests := []struct {
		compression Compression
		reader      func(io.Reader) (io.Reader, error)
	}{
		{CompressionGzip, func(r io.Reader) (io.Reader, error) { return gzip.NewReader(r) }},
		{CompressionZstd, func(r io.Reader) (io.Reader, error) { return zstd.NewReader(r) }},
	}

	for _, tt := range tests {
		t.Run(string(tt.compression), func(t *testing.T) {
			var buf bytes.Buffer
			opts := TableOptions{Format: FormatMsgPack, Compression: tt.compression}
			if err := WriteTable(&buf, Table(scenarioSeries(t)), opts); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			r, err := tt.reader(&buf)
			if err != nil {
				t.Fatalf("error opening compressed stream: %v", err)
			}

			dec := msgpack.NewDecoder(r)
			dec.SetCustomStructTag("json")
			var rows []TableRow
			if err := dec.Decode(&rows); err != nil {
				t.Fatalf("error decoding msgpack: %v", err)
			}
			if len(rows) != 2 || rows[0].WindowLabel != "annual 2024" || rows[0].NRegression != 4 {
				t.Errorf("decoded rows = %+v", rows)
			}
			if !math.IsNaN(rows[1].MassIndex) {
				t.Errorf("skipped mass_index = %v, expected NaN", rows[1].MassIndex)
			}
		})
	}
}

func TestParseFormatAndCompression(t *testing.T) {
	formats := map[string]Format{"": FormatCSV, "CSV": FormatCSV, "json": FormatJSON, " msgpack ": FormatMsgPack}
	for in, want := range formats {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v, expected %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("xlsx"); err == nil {
		t.Error("ParseFormat(xlsx) succeeded")
	}

	compressions := map[string]Compression{"": CompressionNone, "none": CompressionNone, "gz": CompressionGzip, "zstd": CompressionZstd}
	for in, want := range compressions {
		got, err := ParseCompression(in)
		if err != nil || got != want {
			t.Errorf("ParseCompression(%q) = %q, %v, expected %q", in, got, err, want)
		}
	}
	if _, err := ParseCompression("bzip2"); err == nil {
		t.Error("ParseCompression(bzip2) succeeded")
	}

	if got := FormatMsgPack.Extension() + CompressionZstd.Extension(); got != ".msgpack.zst" {
		t.Errorf("extension = %q", got)
	}
}
