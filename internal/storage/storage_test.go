package storage

import (
	"math"
	"testing"
	"time"

	"github.com/chrissnell/massindex/internal/temporal"
)

func TestFingerprint(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	a := []temporal.Record{{Time: base, Amplitude: 1}, {Time: base.Add(time.Second), Amplitude: 2}}
	b := []temporal.Record{{Time: base, Amplitude: 1}, {Time: base.Add(time.Second), Amplitude: 2}}
	c := []temporal.Record{{Time: base, Amplitude: 1}, {Time: base.Add(time.Second), Amplitude: 2.5}}

	if Fingerprint(a) != Fingerprint(b) {
		t.Error("identical inputs have different fingerprints")
	}
	if Fingerprint(a) == Fingerprint(c) {
		t.Error("different inputs have the same fingerprint")
	}
	if Fingerprint(nil) == Fingerprint(a) {
		t.Error("empty input collides with non-empty input")
	}
}

func TestNewRun(t *testing.T) {
	records := []temporal.Record{{Time: time.Unix(0, 0), Amplitude: 1}}
	r1 := NewRun("a.csv", records, time.Now())
	r2 := NewRun("a.csv", records, time.Now())

	if r1.ID == r2.ID {
		t.Error("runs share an identifier")
	}
	if r1.Fingerprint != r2.Fingerprint || r1.Records != 1 {
		t.Errorf("run = %+v", r1)
	}
	if len(r1.FingerprintHex()) != 16 {
		t.Errorf("FingerprintHex() = %q", r1.FingerprintHex())
	}
}

func TestAddSeries(t *testing.T) {
	run := NewRun("a.csv", nil, time.Now())
	run.AddSeries(&temporal.Series{
		Temporality: temporal.Weekly,
		Rows: []temporal.Row{
			{Label: "weekly 2025-W01", Reason: "no_samples"},
			{Label: "weekly 2025-W02", Reason: "no_samples"},
		},
	})

	if len(run.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(run.Results))
	}
	if run.Results[1].Temporality != "weekly" || run.Results[1].WindowLabel != "weekly 2025-W02" {
		t.Errorf("result = %+v", run.Results[1])
	}
}

func TestNullable(t *testing.T) {
	if Nullable(math.NaN()) != nil || Nullable(math.Inf(1)) != nil {
		t.Error("non-finite values should be NULL")
	}
	if v := Nullable(2.5); v == nil || *v != 2.5 {
		t.Errorf("Nullable(2.5) = %v", v)
	}
}
