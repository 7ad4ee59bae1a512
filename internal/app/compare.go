package app

import (
	"fmt"
	"time"

	"github.com/chrissnell/massindex/internal/massindex"
	"github.com/chrissnell/massindex/internal/report"
	"github.com/chrissnell/massindex/internal/temporal"
)

// Method is one estimation setup applied to the whole dataset when comparing
type Method struct {
	Name         string
	MinAmplitude float64
	Binning      massindex.BinningParams
}

// DefaultMethods are the setups compared by default
func DefaultMethods() []Method {
	return []Method{
		{Name: "Standard"},
		{Name: "Min amplitude 2.0", MinAmplitude: 2.0},
		{Name: "Min amplitude 5.0", MinAmplitude: 5.0},
		{Name: "Binning (50)", Binning: massindex.BinningParams{Enabled: true, Bins: massindex.DefaultBins}},
		{Name: "Combined (min 2.0 + binning)", MinAmplitude: 2.0, Binning: massindex.BinningParams{Enabled: true, Bins: massindex.DefaultBins}},
	}
}

// Compare estimates the mass index of all records once per method. Methods
// that cannot produce an estimate carry their reason code.
func Compare(records []temporal.Record, methods []Method, minSamples int, loc *time.Location) []report.Comparison {
	label, period, start, end := datasetSpan(records, loc)

	comparisons := make([]report.Comparison, 0, len(methods))
	for _, m := range methods {
		amps := make([]float64, 0, len(records))
		for _, r := range records {
			if !r.Usable() || (m.MinAmplitude > 0 && r.Amplitude < m.MinAmplitude) {
				continue
			}
			amps = append(amps, r.Amplitude)
		}

		estimator := massindex.NewEstimator(massindex.Config{Binning: m.Binning, MinSamples: minSamples})
		result, err := estimator.Estimate(massindex.NewWindow(label, period, start, end, amps))
		if err != nil {
			comparisons = append(comparisons, report.Comparison{Method: m.Name, Reason: massindex.ReasonCode(err)})
			continue
		}
		comparisons = append(comparisons, report.Comparison{Method: m.Name, Result: &result})
	}
	return comparisons
}

// datasetSpan describes the window covering every record, with an exclusive
// end one day after the last record's date
func datasetSpan(records []temporal.Record, loc *time.Location) (label, period string, start, end time.Time) {
	if len(records) == 0 {
		return "all data", "no records", time.Time{}, time.Time{}
	}

	first, last := records[0].Time, records[0].Time
	for _, r := range records[1:] {
		if r.Time.Before(first) {
			first = r.Time
		}
		if r.Time.After(last) {
			last = r.Time
		}
	}

	first, last = first.In(loc), last.In(loc)
	start = temporal.Daily.Start(first)
	end = temporal.Daily.Next(temporal.Daily.Start(last))
	period = fmt.Sprintf("%s-%s", start.Format("02/01/2006"), last.Format("02/01/2006"))
	return "all data", period, start, end
}
