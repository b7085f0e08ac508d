package usecase

import (
	"context"
	"time"

	"golang.org/x/xerrors"

	"github.com/fardannozami/ghostwatch/internal/calendar"
	"github.com/fardannozami/ghostwatch/internal/domain"
)

// CloseDayResult reports whether closing the date produced a new lapse.
// FailureStreak is the run length after the close and feeds the lapse
// notice.
type CloseDayResult struct {
	Lapsed        bool
	FailureStreak int
}

type CloseDayUsecase struct {
	tracking domain.TrackingRepository
	activity domain.ActivityRepository
	cal      *calendar.Calendar
	locks    *PairLocks
}

func NewCloseDayUsecase(
	tracking domain.TrackingRepository,
	activity domain.ActivityRepository,
	cal *calendar.Calendar,
	locks *PairLocks,
) *CloseDayUsecase {
	return &CloseDayUsecase{
		tracking: tracking,
		activity: activity,
		cal:      cal,
		locks:    locks,
	}
}

// Execute closes out a reporting date for one tracked pair. Safe to invoke
// more than once for the same date: the scheduler retries after crashes and
// partial sweeps. A date on which the pair messaged is a no-op; the message
// path already advanced the streak. Dates before the pair was tracked are
// skipped, so a catch-up sweep never assigns lapses for days the pair did
// not exist.
func (uc *CloseDayUsecase) Execute(ctx context.Context, chatID, userID int64, closedDate time.Time) (CloseDayResult, error) {
	pair, err := uc.tracking.GetPair(ctx, chatID, userID)
	if err != nil {
		return CloseDayResult{}, xerrors.Errorf("get pair: %w", err)
	}
	if pair == nil {
		return CloseDayResult{}, nil
	}

	date := uc.cal.DateOf(closedDate)
	if date.Before(uc.cal.DateOf(pair.AddedAt)) {
		return CloseDayResult{}, nil
	}

	unlock := uc.locks.Lock(chatID, userID)
	defer unlock()

	day, err := uc.activity.GetDay(ctx, chatID, userID, date)
	if err != nil {
		return CloseDayResult{}, xerrors.Errorf("get day: %w", err)
	}
	if day != nil && day.Messaged {
		return CloseDayResult{}, nil
	}

	streak, err := uc.activity.GetStreak(ctx, chatID, userID)
	if err != nil {
		return CloseDayResult{}, xerrors.Errorf("get streak: %w", err)
	}
	if streak == nil {
		streak = &domain.UserStreak{ChatID: chatID, UserID: userID}
	}

	if streak.LastActivityDate != nil && !streak.LastActivityDate.Before(date) {
		// The streak already advanced to (or past) this date: either this
		// close is a retry, or a newer message computed its run before the
		// sweep caught up. Backfill the missing day row for history, but
		// leave the counters alone and report no fresh lapse.
		if day == nil {
			day = &domain.DailyActivity{ChatID: chatID, UserID: userID, ActivityDate: date, Messaged: false}
			if err := uc.activity.SaveDay(ctx, day, streak); err != nil {
				return CloseDayResult{}, xerrors.Errorf("backfill day: %w", err)
			}
		}
		return CloseDayResult{FailureStreak: streak.FailureStreak}, nil
	}

	streak.SuccessStreak = 0
	streak.FailureStreak++
	activityDate := date
	streak.LastActivityDate = &activityDate

	if day == nil {
		day = &domain.DailyActivity{ChatID: chatID, UserID: userID, ActivityDate: date}
	}
	day.Messaged = false

	if err := uc.activity.SaveDay(ctx, day, streak); err != nil {
		return CloseDayResult{}, xerrors.Errorf("save day: %w", err)
	}

	return CloseDayResult{Lapsed: true, FailureStreak: streak.FailureStreak}, nil
}
