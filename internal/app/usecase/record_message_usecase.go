package usecase

import (
	"context"
	"time"

	"cdr.dev/slog/v3"
	"github.com/coder/quartz"
	"golang.org/x/xerrors"

	"github.com/fardannozami/ghostwatch/internal/calendar"
	"github.com/fardannozami/ghostwatch/internal/domain"
)

// Sanity bounds for inbound message timestamps. A little forward skew is
// tolerated; the backward window covers a late message crossing one day
// boundary, which the engine must still be able to reverse.
const (
	maxEventSkew = 5 * time.Minute
	maxEventAge  = 48 * time.Hour
)

// RecordResult reports whether a message was the pair's first of its
// reporting date. The success streak is only meaningful when FirstOfDay is
// true; it feeds the congratulation message.
type RecordResult struct {
	FirstOfDay    bool
	SuccessStreak int
}

type RecordMessageUsecase struct {
	tracking domain.TrackingRepository
	activity domain.ActivityRepository
	cal      *calendar.Calendar
	locks    *PairLocks
	clock    quartz.Clock
	logger   slog.Logger
}

func NewRecordMessageUsecase(
	tracking domain.TrackingRepository,
	activity domain.ActivityRepository,
	cal *calendar.Calendar,
	locks *PairLocks,
	clock quartz.Clock,
	logger slog.Logger,
) *RecordMessageUsecase {
	return &RecordMessageUsecase{
		tracking: tracking,
		activity: activity,
		cal:      cal,
		locks:    locks,
		clock:    clock,
		logger:   logger,
	}
}

// Execute records a message event for a tracked pair. Untracked pairs
// no-op. A second message on the same reporting date no-ops, so callers can
// congratulate on FirstOfDay without double counting.
func (uc *RecordMessageUsecase) Execute(ctx context.Context, chatID, userID int64, ts time.Time) (RecordResult, error) {
	now := uc.clock.Now()
	if ts.After(now.Add(maxEventSkew)) || ts.Before(now.Add(-maxEventAge)) {
		uc.logger.Warn(ctx, "dropping message event with out-of-bounds timestamp",
			slog.F("chat_id", chatID),
			slog.F("user_id", userID),
			slog.F("timestamp", ts),
		)
		return RecordResult{}, domain.ErrInvalidEvent
	}

	tracked, err := uc.tracking.IsTracked(ctx, chatID, userID)
	if err != nil {
		return RecordResult{}, xerrors.Errorf("check tracked: %w", err)
	}
	if !tracked {
		return RecordResult{}, nil
	}

	unlock := uc.locks.Lock(chatID, userID)
	defer unlock()

	date := uc.cal.DateOf(ts)

	day, err := uc.activity.GetDay(ctx, chatID, userID, date)
	if err != nil {
		return RecordResult{}, xerrors.Errorf("get day: %w", err)
	}
	if day != nil && day.Messaged {
		return RecordResult{FirstOfDay: false}, nil
	}

	streak, err := uc.activity.GetStreak(ctx, chatID, userID)
	if err != nil {
		return RecordResult{}, xerrors.Errorf("get streak: %w", err)
	}
	if streak == nil {
		streak = &domain.UserStreak{ChatID: chatID, UserID: userID}
	}

	if streak.LastActivityDate != nil && streak.LastActivityDate.After(date) {
		return uc.recordPastDay(ctx, chatID, userID, date, ts, streak)
	}

	if err := uc.advance(ctx, streak, date); err != nil {
		return RecordResult{}, err
	}

	activityDate := date
	messageTime := ts
	day = &domain.DailyActivity{
		ChatID:           chatID,
		UserID:           userID,
		ActivityDate:     activityDate,
		Messaged:         true,
		FirstMessageTime: &messageTime,
	}
	streak.LastActivityDate = &activityDate

	if err := uc.activity.SaveDay(ctx, day, streak); err != nil {
		return RecordResult{}, xerrors.Errorf("save day: %w", err)
	}

	return RecordResult{FirstOfDay: true, SuccessStreak: streak.SuccessStreak}, nil
}

// recordPastDay handles a late message for a date the streak head has
// already moved past. The day row is upgraded to messaged and the run
// counters are recounted from the daily rows; the head itself never moves
// backward, so a stale delivery cannot rewind newer state.
func (uc *RecordMessageUsecase) recordPastDay(ctx context.Context, chatID, userID int64, date, ts time.Time, streak *domain.UserStreak) (RecordResult, error) {
	messageTime := ts
	day := &domain.DailyActivity{
		ChatID:           chatID,
		UserID:           userID,
		ActivityDate:     date,
		Messaged:         true,
		FirstMessageTime: &messageTime,
	}

	if err := uc.recount(ctx, streak, date); err != nil {
		return RecordResult{}, err
	}

	if err := uc.activity.SaveDay(ctx, day, streak); err != nil {
		return RecordResult{}, xerrors.Errorf("save day: %w", err)
	}

	return RecordResult{FirstOfDay: true, SuccessStreak: streak.SuccessStreak}, nil
}

// recount rebuilds the run counters from the daily rows ending at the streak
// head, treating messagedDate as already upgraded. When the head has no
// daily row to anchor the walk the counters are left alone.
func (uc *RecordMessageUsecase) recount(ctx context.Context, streak *domain.UserStreak, messagedDate time.Time) error {
	dayState := func(d time.Time) (known, messaged bool, err error) {
		if d.Equal(messagedDate) {
			return true, true, nil
		}
		day, err := uc.activity.GetDay(ctx, streak.ChatID, streak.UserID, d)
		if err != nil {
			return false, false, xerrors.Errorf("get day: %w", err)
		}
		if day == nil {
			return false, false, nil
		}
		return true, day.Messaged, nil
	}

	head := *streak.LastActivityDate
	known, headMessaged, err := dayState(head)
	if err != nil {
		return err
	}
	if !known {
		return nil
	}

	n := 0
	for d := head; ; d = uc.cal.PrevDate(d) {
		k, m, err := dayState(d)
		if err != nil {
			return err
		}
		if !k || m != headMessaged {
			break
		}
		n++
	}

	if headMessaged {
		streak.SuccessStreak, streak.FailureStreak = n, 0
	} else {
		streak.SuccessStreak, streak.FailureStreak = 0, n
	}
	return nil
}

// advance applies the success transition for the first message of date.
func (uc *RecordMessageUsecase) advance(ctx context.Context, streak *domain.UserStreak, date time.Time) error {
	prev := uc.cal.PrevDate(date)
	last := streak.LastActivityDate

	switch {
	case last != nil && last.Equal(date):
		// The boundary already closed this date as a lapse. Take the
		// failure increment back and restart the success run; any failure
		// run left over is broken by the message itself.
		streak.FailureStreak = 0
		streak.SuccessStreak = 1
	case last != nil && last.Equal(prev) && streak.FailureStreak == 0:
		streak.SuccessStreak++
	case last != nil && last.Equal(prev):
		// A message breaks a failure streak.
		streak.FailureStreak = 0
		streak.SuccessStreak = 1
	default:
		// Gap with no recorded lapse: the sweep has not caught up yet.
		// Continue the run only if the immediately preceding day is
		// recorded as messaged.
		prevDay, err := uc.activity.GetDay(ctx, streak.ChatID, streak.UserID, prev)
		if err != nil {
			return xerrors.Errorf("get previous day: %w", err)
		}
		streak.FailureStreak = 0
		if prevDay != nil && prevDay.Messaged {
			streak.SuccessStreak++
		} else {
			streak.SuccessStreak = 1
		}
	}
	return nil
}
