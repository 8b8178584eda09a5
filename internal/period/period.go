// Package period models the calendar month a rating run covers.
package period

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var ErrInvalidPeriod = errors.New("invalid_period")

var periodPattern = regexp.MustCompile(`^(\d{4})-(0[1-9]|1[0-2])$`)

// Period is a UTC calendar month, half-open on its end.
type Period struct {
	start time.Time
}

// Parse accepts a "YYYY-MM" label.
func Parse(value string) (Period, error) {
	m := periodPattern.FindStringSubmatch(value)
	if m == nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, value)
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	return Period{start: time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)}, nil
}

// FromTime returns the month containing t.
func FromTime(t time.Time) Period {
	t = t.UTC()
	return Period{start: time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)}
}

// Previous returns the month before the one containing t.
func Previous(t time.Time) Period {
	return FromTime(t).AddMonths(-1)
}

func (p Period) AddMonths(n int) Period {
	return Period{start: p.start.AddDate(0, n, 0)}
}

func (p Period) Start() time.Time { return p.start }

// End is the first instant of the next month.
func (p Period) End() time.Time { return p.start.AddDate(0, 1, 0) }

// ChargeDate is the date every row of the run is stamped with.
func (p Period) ChargeDate() time.Time { return p.start }

func (p Period) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(p.start) && t.Before(p.End())
}

func (p Period) IsZero() bool { return p.start.IsZero() }

func (p Period) String() string {
	return p.start.Format("2006-01")
}
