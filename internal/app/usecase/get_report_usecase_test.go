package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fardannozami/ghostwatch/internal/domain"
)

func TestGetReport_NotTracked(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.report.Execute(context.Background(), 1, 9)
	if !errors.Is(err, domain.ErrNotTracked) {
		t.Errorf("Expected ErrNotTracked, got %v", err)
	}
}

func TestGetReport_HistoryNewestFirstAndBounded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.trackPair(t, 1, 9)

	// Ten days of messages, report window is seven.
	for i := 0; i < 10; i++ {
		ts := time.Date(2024, 1, 1+i, 9, 0, 0, 0, time.UTC)
		env.clock.Set(ts)
		if _, err := env.record.Execute(ctx, 1, 9, ts); err != nil {
			t.Fatalf("Day %d: failed to record: %v", i+1, err)
		}
	}

	report, err := env.report.Execute(ctx, 1, 9)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(report.History) != 7 {
		t.Fatalf("Expected 7 history rows, got %d", len(report.History))
	}
	if env.cal.FormatDate(report.History[0].ActivityDate) != "2024-01-10" {
		t.Errorf("History should be newest first, got %s", env.cal.FormatDate(report.History[0].ActivityDate))
	}
	for i := 1; i < len(report.History); i++ {
		if !report.History[i].ActivityDate.Before(report.History[i-1].ActivityDate) {
			t.Error("History must be strictly descending by date")
		}
	}
}

// Full scenario: track -> message -> report -> silent day swept -> report ->
// untrack -> report fails.
func TestGetReport_Scenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.track.Execute(ctx, 1, 9, "casper"); err != nil {
		t.Fatalf("Failed to track: %v", err)
	}

	ts := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	env.clock.Set(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	if _, err := env.record.Execute(ctx, 1, 9, ts); err != nil {
		t.Fatalf("Failed to record message: %v", err)
	}

	report, err := env.report.Execute(ctx, 1, 9)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if report.SuccessStreak != 1 || report.FailureStreak != 0 {
		t.Errorf("Expected success=1 failure=0, got success=%d failure=%d", report.SuccessStreak, report.FailureStreak)
	}
	if report.LastActivityDate == nil || env.cal.FormatDate(*report.LastActivityDate) != "2024-01-01" {
		t.Errorf("Expected lastActivityDate=2024-01-01, got %v", report.LastActivityDate)
	}

	// No message on 2024-01-02; the sweep closes it.
	if _, err := env.closeDay.Execute(ctx, 1, 9, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Failed to close day: %v", err)
	}

	report, err = env.report.Execute(ctx, 1, 9)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if report.SuccessStreak != 0 || report.FailureStreak != 1 {
		t.Errorf("Expected success=0 failure=1 after lapse, got success=%d failure=%d", report.SuccessStreak, report.FailureStreak)
	}

	if _, err := env.untrack.Execute(ctx, 1, 9); err != nil {
		t.Fatalf("Failed to untrack: %v", err)
	}
	if _, err := env.report.Execute(ctx, 1, 9); !errors.Is(err, domain.ErrNotTracked) {
		t.Errorf("Expected ErrNotTracked after untrack, got %v", err)
	}
}
