package date

import (
	"fmt"
	"time"
)

const readMonthFormat = "2006-1" // Permissive read month format (allows single-digit month).

// MonthFormat is the canonical "year-month" format used in storage keys and
// remote records.
const MonthFormat = "2006-01"

// Month is a calendar month. The zero value is not a valid month.
type Month struct {
	y int
	m time.Month
}

// NewMonth returns a normalized Month, so NewMonth(2025, 13) is January 2026.
func NewMonth(year int, month time.Month) Month {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Month{t.Year(), t.Month()}
}

// ThisMonth returns the current month.
func ThisMonth() Month { return Today().Month() }

func (m Month) Year() int          { return m.y }
func (m Month) Number() time.Month { return m.m }
func (m Month) IsZero() bool       { return m == Month{} }

// First returns the first day of the month.
func (m Month) First() Date { return New(m.y, m.m, 1) }

// Last returns the last day of the month.
func (m Month) Last() Date { return New(m.y, m.m+1, 0) }

// String formats the month as "YYYY-MM".
func (m Month) String() string {
	return time.Date(m.y, m.m, 1, 0, 0, 0, 0, time.UTC).Format(MonthFormat)
}

// ParseMonth parses a month in the "YYYY-MM" format. It also accepts
// "YYYY-M" and a full date, in which case the day is ignored.
func ParseMonth(str string) (Month, error) {
	if on, err := time.Parse(readMonthFormat, str); err == nil {
		return Month{on.Year(), on.Month()}, nil
	}
	if d, err := Parse(str); err == nil {
		return d.Month(), nil
	}
	return Month{}, fmt.Errorf("invalid month %q want format %q", str, MonthFormat)
}

// MustParseMonth is like ParseMonth but panics on error.
func MustParseMonth(str string) Month {
	m, err := ParseMonth(str)
	if err != nil {
		panic(err.Error())
	}
	return m
}
