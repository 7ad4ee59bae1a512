package massindex

import (
	"errors"
	"math"
	"testing"
)

func TestBuildDistribution(t *testing.T) {
	tests := []struct {
		name       string
		amplitudes []float64
		binning    BinningParams
		wantCounts []int
		wantAmps   []float64
	}{
		{
			name:       "duplicates collapse into one point",
			amplitudes: []float64{1000, 2000, 2000, 4000, 8000},
			wantCounts: []int{1, 2, 4, 5},
			wantAmps:   []float64{8000, 4000, 2000, 1000},
		},
		{
			name:       "unsorted input",
			amplitudes: []float64{3, 1, 2},
			wantCounts: []int{1, 2, 3},
			wantAmps:   []float64{3, 2, 1},
		},
		{
			name:       "ties at the minimum",
			amplitudes: []float64{5, 1, 1, 1},
			wantCounts: []int{1, 4},
			wantAmps:   []float64{5, 1},
		},
		{
			name:       "binned with two intervals",
			amplitudes: []float64{1, 2, 5, 10, 100},
			binning:    BinningParams{Enabled: true, Bins: 2},
			wantCounts: []int{1, 2, 5},
			wantAmps:   []float64{100, 10, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := BuildDistribution(tt.amplitudes, tt.binning)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(d.Points) != len(tt.wantCounts) {
				t.Fatalf("expected %d points, got %d", len(tt.wantCounts), len(d.Points))
			}
			if d.NSamples != len(tt.amplitudes) {
				t.Errorf("NSamples = %d, expected %d", d.NSamples, len(tt.amplitudes))
			}
			if d.Binned != tt.binning.Enabled {
				t.Errorf("Binned = %v, expected %v", d.Binned, tt.binning.Enabled)
			}

			for i, p := range d.Points {
				if p.Count != tt.wantCounts[i] {
					t.Errorf("point %d: count = %d, expected %d", i, p.Count, tt.wantCounts[i])
				}
				if math.Abs(p.Amplitude-tt.wantAmps[i]) > 1e-9*tt.wantAmps[i] {
					t.Errorf("point %d: amplitude = %v, expected %v", i, p.Amplitude, tt.wantAmps[i])
				}
				if math.Abs(p.LogCount-math.Log10(float64(p.Count))) > 1e-12 {
					t.Errorf("point %d: LogCount = %v does not match count %d", i, p.LogCount, p.Count)
				}
			}
		})
	}
}

func TestBuildDistributionLiteralScenario(t *testing.T) {
	d, err := BuildDistribution([]float64{1000, 2000, 2000, 4000, 8000}, BinningParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The 2000 point counts both equal samples plus the larger ones
	expected := [][2]float64{
		{3.903, 0},
		{3.602, 0.301},
		{3.301, 0.602},
		{3.000, 0.699},
	}
	for i, p := range d.Points {
		if math.Abs(p.LogAmplitude-expected[i][0]) > 0.001 {
			t.Errorf("point %d: log amplitude = %.4f, expected %.3f", i, p.LogAmplitude, expected[i][0])
		}
		if math.Abs(p.LogCount-expected[i][1]) > 0.001 {
			t.Errorf("point %d: log count = %.4f, expected %.3f", i, p.LogCount, expected[i][1])
		}
	}
}

func TestBuildDistributionMonotonicity(t *testing.T) {
	amps := []float64{12, 3.5, 7, 7, 90, 1.2, 44, 3.5, 18, 2.2, 61, 9.9}

	for _, binning := range []BinningParams{{}, {Enabled: true, Bins: 5}, {Enabled: true}} {
		d, err := BuildDistribution(amps, binning)
		if err != nil {
			t.Fatalf("binning %+v: unexpected error: %v", binning, err)
		}

		last := d.Points[len(d.Points)-1]
		if last.Count != len(amps) {
			t.Errorf("binning %+v: count at smallest amplitude = %d, expected %d", binning, last.Count, len(amps))
		}

		first := d.Points[0]
		if first.Count != 1 {
			t.Errorf("binning %+v: count at largest amplitude = %d, expected 1", binning, first.Count)
		}

		for i := 1; i < len(d.Points); i++ {
			if d.Points[i].Amplitude >= d.Points[i-1].Amplitude {
				t.Errorf("binning %+v: amplitudes not strictly descending at %d", binning, i)
			}
			if d.Points[i].Count < d.Points[i-1].Count {
				t.Errorf("binning %+v: counts decrease at %d", binning, i)
			}
		}
	}
}

func TestBuildDistributionErrors(t *testing.T) {
	tests := []struct {
		name       string
		amplitudes []float64
		binning    BinningParams
		want       error
	}{
		{"no samples", nil, BinningParams{}, ErrInsufficientData},
		{"single sample", []float64{42}, BinningParams{}, ErrInsufficientData},
		{"all equal", []float64{500, 500, 500, 500}, BinningParams{}, ErrInsufficientData},
		{"all equal binned", []float64{500, 500}, BinningParams{Enabled: true}, ErrInsufficientData},
		{"zero amplitude", []float64{1, 0, 3}, BinningParams{}, ErrInvalidSample},
		{"negative amplitude", []float64{-2, 5, 3}, BinningParams{}, ErrInvalidSample},
		{"NaN amplitude", []float64{1, math.NaN()}, BinningParams{}, ErrInvalidSample},
		{"infinite amplitude", []float64{1, math.Inf(1)}, BinningParams{}, ErrInvalidSample},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildDistribution(tt.amplitudes, tt.binning)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, expected %v", err, tt.want)
			}
		})
	}
}

func TestBuildDistributionDoesNotMutateInput(t *testing.T) {
	amps := []float64{3, 1, 2}
	if _, err := BuildDistribution(amps, BinningParams{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amps[0] != 3 || amps[1] != 1 || amps[2] != 2 {
		t.Errorf("input was reordered: %v", amps)
	}
}
