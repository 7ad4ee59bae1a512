// Package temporal partitions timestamped amplitude records into calendar
// windows and drives the mass index estimator across them.
package temporal

import (
	"fmt"
	"strings"
	"time"
)

// Temporality is the calendar granularity used to window a dataset
type Temporality int

const (
	Daily Temporality = iota
	Weekly
	Monthly
	Bimonthly
	Quarterly
	FourMonth
	HalfYear
	Annual
)

// All lists every temporality from finest to coarsest
var All = []Temporality{Daily, Weekly, Monthly, Bimonthly, Quarterly, FourMonth, HalfYear, Annual}

var temporalityNames = map[Temporality]string{
	Daily:     "daily",
	Weekly:    "weekly",
	Monthly:   "monthly",
	Bimonthly: "bimonthly",
	Quarterly: "quarterly",
	FourMonth: "four-month",
	HalfYear:  "half-year",
	Annual:    "annual",
}

// aliases accepted by ParseTemporality, including the names used by the
// original Spanish-language processing scripts
var temporalityAliases = map[string]Temporality{
	"day":           Daily,
	"diario":        Daily,
	"week":          Weekly,
	"semanal":       Weekly,
	"month":         Monthly,
	"mensual":       Monthly,
	"bimestral":     Bimonthly,
	"quarter":       Quarterly,
	"trimestral":    Quarterly,
	"fourmonth":     FourMonth,
	"four_month":    FourMonth,
	"cuatrimestral": FourMonth,
	"halfyear":      HalfYear,
	"half_year":     HalfYear,
	"semiannual":    HalfYear,
	"semestral":     HalfYear,
	"year":          Annual,
	"yearly":        Annual,
	"anual":         Annual,
}

var monthNames = [...]string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// String returns the canonical name of the temporality
func (t Temporality) String() string {
	if name, ok := temporalityNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Temporality(%d)", int(t))
}

// ParseTemporality converts a name into a Temporality
func ParseTemporality(name string) (Temporality, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for t, n := range temporalityNames {
		if n == key {
			return t, nil
		}
	}
	if t, ok := temporalityAliases[key]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("unknown temporality %q", name)
}

// MarshalText implements encoding.TextMarshaler
func (t Temporality) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *Temporality) UnmarshalText(text []byte) error {
	parsed, err := ParseTemporality(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// monthSpan is the length in months of month-aligned temporalities
func (t Temporality) monthSpan() int {
	switch t {
	case Monthly:
		return 1
	case Bimonthly:
		return 2
	case Quarterly:
		return 3
	case FourMonth:
		return 4
	case HalfYear:
		return 6
	case Annual:
		return 12
	default:
		return 0
	}
}

// Start returns the start of the calendar window containing ts, in ts's location.
// Weekly windows are ISO weeks starting on Monday; month-based windows are
// aligned to January.
func (t Temporality) Start(ts time.Time) time.Time {
	loc := ts.Location()
	y, m, d := ts.Date()

	switch t {
	case Daily:
		return dayStart(y, m, d, loc)
	case Weekly:
		offset := (int(ts.Weekday()) + 6) % 7 // days since Monday
		return dayStart(y, m, d-offset, loc)
	default:
		span := t.monthSpan()
		first := (int(m)-1)/span*span + 1
		return dayStart(y, time.Month(first), 1, loc)
	}
}

// Next returns the start of the window following the one that starts at start
func (t Temporality) Next(start time.Time) time.Time {
	y, m, d := start.Date()
	loc := start.Location()

	switch t {
	case Daily:
		return dayStart(y, m, d+1, loc)
	case Weekly:
		return dayStart(y, m, d+7, loc)
	default:
		return dayStart(y, m+time.Month(t.monthSpan()), d, loc)
	}
}

// dayStart returns the first instant of the calendar day y-m-d in loc. Where a
// DST change skips midnight, that is the first instant after the gap.
func dayStart(y int, m time.Month, d int, loc *time.Location) time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, loc)
	wy, wm, wd := time.Date(y, m, d, 12, 0, 0, 0, loc).Date()
	for {
		ty, tm, td := t.Date()
		if ty == wy && tm == wm && td == wd {
			return t
		}
		t = t.Add(15 * time.Minute)
	}
}

// Label returns the sortable identifier of the window starting at start,
// e.g. "2025-07-13", "2025-W28", "2025-07", "2025-Q3" or "2025"
func (t Temporality) Label(start time.Time) string {
	y, m, d := start.Date()
	ordinal := (int(m)-1)/max(t.monthSpan(), 1) + 1

	switch t {
	case Daily:
		return fmt.Sprintf("%04d-%02d-%02d", y, int(m), d)
	case Weekly:
		isoYear, week := start.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", isoYear, week)
	case Monthly:
		return fmt.Sprintf("%04d-%02d", y, int(m))
	case Bimonthly:
		return fmt.Sprintf("%04d-B%d", y, ordinal)
	case Quarterly:
		return fmt.Sprintf("%04d-Q%d", y, ordinal)
	case FourMonth:
		return fmt.Sprintf("%04d-T%d", y, ordinal)
	case HalfYear:
		return fmt.Sprintf("%04d-H%d", y, ordinal)
	default:
		return fmt.Sprintf("%04d", y)
	}
}

// Period returns the human-readable description of the window [start, end)
func (t Temporality) Period(start, end time.Time) string {
	last := end.Add(-time.Nanosecond)

	switch t {
	case Daily:
		return fmt.Sprintf("%s, day %d of %d", start.Format("02/01/2006"), start.YearDay(), start.Year())
	case Weekly:
		_, week := start.ISOWeek()
		return fmt.Sprintf("week %d, %s-%s", week, start.Format("02/01/2006"), last.Format("02/01/2006"))
	case Monthly:
		return fmt.Sprintf("%s %d", start.Month(), start.Year())
	case Annual:
		return fmt.Sprintf("year %d", start.Year())
	default:
		return fmt.Sprintf("%s-%s %d", monthNames[start.Month()-1], monthNames[last.Month()-1], start.Year())
	}
}
