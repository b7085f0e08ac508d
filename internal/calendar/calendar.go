// Package calendar maps absolute instants onto reporting dates. Every date
// comparison in the engine and the scheduler goes through the same Calendar
// so the two can never disagree about what "today" means.
package calendar

import (
	"time"

	"golang.org/x/xerrors"
)

// DateLayout is the canonical text form of a reporting date.
const DateLayout = "2006-01-02"

// Calendar resolves timestamps against a single fixed reporting timezone.
type Calendar struct {
	loc *time.Location
}

func New(timezone string) (*Calendar, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, xerrors.Errorf("load reporting timezone %q: %w", timezone, err)
	}
	return &Calendar{loc: loc}, nil
}

// Location returns the reporting timezone.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// DateOf returns the reporting-calendar date of ts: midnight of the day ts
// falls on in the reporting timezone.
func (c *Calendar) DateOf(ts time.Time) time.Time {
	t := ts.In(c.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc)
}

// NextDate returns the reporting date one day after date. AddDate handles
// DST transitions in timezones that observe them.
func (c *Calendar) NextDate(date time.Time) time.Time {
	return c.DateOf(date.In(c.loc).AddDate(0, 0, 1))
}

// PrevDate returns the reporting date one day before date.
func (c *Calendar) PrevDate(date time.Time) time.Time {
	return c.DateOf(date.In(c.loc).AddDate(0, 0, -1))
}

// SameDate reports whether a and b fall on the same reporting date.
func (c *Calendar) SameDate(a, b time.Time) bool {
	return c.DateOf(a).Equal(c.DateOf(b))
}

// FormatDate renders a reporting date in its canonical text form.
func (c *Calendar) FormatDate(date time.Time) string {
	return date.In(c.loc).Format(DateLayout)
}

// ParseDate parses the canonical text form back into a reporting date.
func (c *Calendar) ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, c.loc)
	if err != nil {
		return time.Time{}, xerrors.Errorf("parse reporting date %q: %w", s, err)
	}
	return t, nil
}
