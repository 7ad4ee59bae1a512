// Package ingest reads timestamped echo amplitudes from the consolidated
// datasets produced by the radar processing chain.
package ingest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chrissnell/massindex/internal/temporal"
)

// Source yields the (time, amplitude) records of a dataset
type Source interface {
	Records(ctx context.Context) ([]temporal.Record, error)
}

// timeLayouts are tried in order. Fractional seconds are accepted by all of
// them when parsing.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	time.RFC3339Nano,
	"02/01/2006 15:04:05",
	"2006-01-02",
}

func parseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// parseDecimal accepts both decimal comma and decimal point
func parseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	return strconv.ParseFloat(s, 64)
}
