package usecase_test

import (
	"context"
	"testing"
	"time"

	"cdr.dev/slog/v3/sloggers/slogtest"
	"github.com/coder/quartz"

	"github.com/fardannozami/ghostwatch/internal/app/usecase"
	"github.com/fardannozami/ghostwatch/internal/calendar"
	"github.com/fardannozami/ghostwatch/internal/domain"
)

// Engine tests run against a UTC reporting calendar so scenario dates read
// literally; the calendar package has its own timezone tests.
type testEnv struct {
	cal      *calendar.Calendar
	store    *mockStore
	locks    *usecase.PairLocks
	clock    *quartz.Mock
	record   *usecase.RecordMessageUsecase
	closeDay *usecase.CloseDayUsecase
	track    *usecase.TrackUsecase
	untrack  *usecase.UntrackUsecase
	report   *usecase.GetReportUsecase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cal, err := calendar.New("UTC")
	if err != nil {
		t.Fatalf("Failed to build calendar: %v", err)
	}

	store := newMockStore(cal)
	locks := usecase.NewPairLocks()
	clock := quartz.NewMock(t)
	logger := slogtest.Make(t, nil)

	return &testEnv{
		cal:      cal,
		store:    store,
		locks:    locks,
		clock:    clock,
		record:   usecase.NewRecordMessageUsecase(store, store, cal, locks, clock, logger),
		closeDay: usecase.NewCloseDayUsecase(store, store, cal, locks),
		track:    usecase.NewTrackUsecase(store, store, clock),
		untrack:  usecase.NewUntrackUsecase(store, locks),
		report:   usecase.NewGetReportUsecase(store, store, 7),
	}
}

// trackPair seeds a tracked pair with a zero streak, like TrackUsecase does.
func (e *testEnv) trackPair(t *testing.T, chatID, userID int64) {
	t.Helper()
	if _, err := e.track.Execute(context.Background(), chatID, userID, "ghost"); err != nil {
		t.Fatalf("Failed to track pair: %v", err)
	}
}

func (e *testEnv) mustStreak(t *testing.T, chatID, userID int64) *domain.UserStreak {
	t.Helper()
	streak, err := e.store.GetStreak(context.Background(), chatID, userID)
	if err != nil {
		t.Fatalf("Failed to get streak: %v", err)
	}
	if streak == nil {
		t.Fatal("Expected streak row to exist")
	}
	return streak
}

func (e *testEnv) mustDay(t *testing.T, chatID, userID int64, date time.Time) *domain.DailyActivity {
	t.Helper()
	day, err := e.store.GetDay(context.Background(), chatID, userID, date)
	if err != nil {
		t.Fatalf("Failed to get day: %v", err)
	}
	if day == nil {
		t.Fatalf("Expected day row for %s", e.cal.FormatDate(date))
	}
	return day
}

// assertExclusive checks the run-counter invariant: success and failure
// streaks are never both non-zero.
func assertExclusive(t *testing.T, streak *domain.UserStreak) {
	t.Helper()
	if streak.SuccessStreak > 0 && streak.FailureStreak > 0 {
		t.Errorf("Streaks must be mutually exclusive, got success=%d failure=%d", streak.SuccessStreak, streak.FailureStreak)
	}
}
