package calendar_test

import (
	"testing"
	"time"

	"github.com/fardannozami/ghostwatch/internal/calendar"
)

func TestDateOf_ReportingTimezoneBoundary(t *testing.T) {
	// Singapore is UTC+8: the reporting date flips at 16:00 UTC.
	cal, err := calendar.New("Asia/Singapore")
	if err != nil {
		t.Fatalf("Failed to build calendar: %v", err)
	}

	before := time.Date(2024, 1, 6, 15, 59, 0, 0, time.UTC)
	after := time.Date(2024, 1, 6, 16, 1, 0, 0, time.UTC)

	if got := cal.FormatDate(cal.DateOf(before)); got != "2024-01-06" {
		t.Errorf("15:59 UTC should still be Jan 6 in Singapore, got %s", got)
	}
	if got := cal.FormatDate(cal.DateOf(after)); got != "2024-01-07" {
		t.Errorf("16:01 UTC should already be Jan 7 in Singapore, got %s", got)
	}
	if cal.SameDate(before, after) {
		t.Error("Instants on opposite sides of the boundary must not share a date")
	}
}

func TestDateOf_IsMidnight(t *testing.T) {
	cal, err := calendar.New("Asia/Singapore")
	if err != nil {
		t.Fatalf("Failed to build calendar: %v", err)
	}

	date := cal.DateOf(time.Date(2024, 1, 6, 10, 30, 45, 0, time.UTC))
	h, m, s := date.Clock()
	if h != 0 || m != 0 || s != 0 {
		t.Errorf("Expected midnight, got %02d:%02d:%02d", h, m, s)
	}
	if date.Location().String() != "Asia/Singapore" {
		t.Errorf("Date should live in the reporting timezone, got %s", date.Location())
	}
}

func TestNextAndPrevDate(t *testing.T) {
	cal, err := calendar.New("UTC")
	if err != nil {
		t.Fatalf("Failed to build calendar: %v", err)
	}

	jan6 := cal.DateOf(time.Date(2024, 1, 6, 12, 0, 0, 0, time.UTC))
	if got := cal.FormatDate(cal.NextDate(jan6)); got != "2024-01-07" {
		t.Errorf("NextDate: expected 2024-01-07, got %s", got)
	}
	if got := cal.FormatDate(cal.PrevDate(jan6)); got != "2024-01-05" {
		t.Errorf("PrevDate: expected 2024-01-05, got %s", got)
	}

	// Month rollover.
	jan31 := cal.DateOf(time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC))
	if got := cal.FormatDate(cal.NextDate(jan31)); got != "2024-02-01" {
		t.Errorf("NextDate across month: expected 2024-02-01, got %s", got)
	}
}

func TestFormatParseRoundtrip(t *testing.T) {
	cal, err := calendar.New("Asia/Singapore")
	if err != nil {
		t.Fatalf("Failed to build calendar: %v", err)
	}

	date := cal.DateOf(time.Date(2024, 1, 6, 20, 0, 0, 0, time.UTC))
	parsed, err := cal.ParseDate(cal.FormatDate(date))
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if !parsed.Equal(date) {
		t.Errorf("Roundtrip mismatch: %v != %v", parsed, date)
	}

	if _, err := cal.ParseDate("06-01-2024"); err == nil {
		t.Error("Non-canonical date text should fail to parse")
	}
}

func TestNew_UnknownTimezone(t *testing.T) {
	if _, err := calendar.New("Mars/Olympus_Mons"); err == nil {
		t.Error("Unknown timezone should fail")
	}
}
