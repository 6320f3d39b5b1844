// Package period maps timestamps onto the canonical aggregation buckets:
// calendar day, ISO week (Monday-anchored), calendar month, and the synthetic
// all-time bucket. Every write and read path derives bucket ids from here so
// the two sides can never disagree on boundaries.
package period

import (
	"fmt"
	"time"
)

// Period types as they appear in STAT partition keys.
const (
	TypeDaily   = "daily"
	TypeWeekly  = "weekly"
	TypeMonthly = "monthly"
	TypeAll     = "all"
)

// AllTime is the start identifier of the synthetic all-time bucket.
const AllTime = "ALL"

// Bucket is one (periodType, periodStart) pair.
type Bucket struct {
	Type  string
	Start string
}

// Buckets holds the four bucket ids a single timestamp maps to.
type Buckets struct {
	Daily   string // YYYY-MM-DD
	Weekly  string // YYYY-Www (ISO week)
	Monthly string // YYYY-MM
	All     string // always "ALL"
}

// BucketsFor computes all bucket ids for t. The result is pure and
// deterministic; callers rely on one invocation seeding every counter update
// for the event.
func BucketsFor(t time.Time) Buckets {
	t = t.UTC()
	return Buckets{
		Daily:   t.Format("2006-01-02"),
		Weekly:  isoWeek(t),
		Monthly: t.Format("2006-01"),
		All:     AllTime,
	}
}

// List returns the buckets in a fixed order for write-set assembly.
func (b Buckets) List() []Bucket {
	return []Bucket{
		{Type: TypeDaily, Start: b.Daily},
		{Type: TypeWeekly, Start: b.Weekly},
		{Type: TypeMonthly, Start: b.Monthly},
		{Type: TypeAll, Start: b.All},
	}
}

// ByType returns the bucket start id for a single period type.
func (b Buckets) ByType(periodType string) string {
	switch periodType {
	case TypeDaily:
		return b.Daily
	case TypeWeekly:
		return b.Weekly
	case TypeMonthly:
		return b.Monthly
	default:
		return b.All
	}
}

// Week returns the ISO week id for t, which doubles as the leaderboard
// partition key suffix.
func Week(t time.Time) string {
	return isoWeek(t.UTC())
}

// ValidType reports whether pt is a periodic (non-all-time) period type
// accepted by query parameters.
func ValidType(pt string) bool {
	return pt == TypeDaily || pt == TypeWeekly || pt == TypeMonthly
}

// Past returns the n most recent bucket ids of the given period type counting
// back from now, most recent first. The current bucket is always the first
// element.
func Past(periodType string, n int, now time.Time) ([]string, error) {
	if n < 1 {
		return nil, fmt.Errorf("period count must be positive, got %d", n)
	}
	now = now.UTC()
	out := make([]string, 0, n)

	switch periodType {
	case TypeDaily:
		d := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		for i := 0; i < n; i++ {
			out = append(out, d.Format("2006-01-02"))
			d = d.AddDate(0, 0, -1)
		}
	case TypeWeekly:
		d := now
		for i := 0; i < n; i++ {
			out = append(out, isoWeek(d))
			d = d.AddDate(0, 0, -7)
		}
	case TypeMonthly:
		y, m := now.Year(), now.Month()
		for i := 0; i < n; i++ {
			out = append(out, fmt.Sprintf("%04d-%02d", y, int(m)))
			m--
			if m < time.January {
				m = time.December
				y--
			}
		}
	default:
		return nil, fmt.Errorf("unknown period type %q", periodType)
	}
	return out, nil
}

func isoWeek(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}
