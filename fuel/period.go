package fuel

import (
	"fmt"
	"strings"
	"time"
)

// Period is the granularity of a time-bucketed report.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

// ParsePeriod parses a period name. Empty means monthly.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PeriodMonthly, nil
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly:
		return p, nil
	}
	return "", &ValidationError{Field: "period", Message: fmt.Sprintf("unknown period %q", s)}
}

// Key returns the bucket label for t in loc:
//
//	daily   2025-03-09
//	weekly  2025-10   (ISO year and week)
//	monthly 2025-03
//	yearly  2025
//
// Keys of one period sort chronologically as strings.
func (p Period) Key(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	switch p {
	case PeriodDaily:
		return t.Format("2006-01-02")
	case PeriodWeekly:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-%02d", year, week)
	case PeriodYearly:
		return t.Format("2006")
	default:
		return t.Format("2006-01")
	}
}
