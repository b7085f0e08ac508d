package usecase

import (
	"context"

	"github.com/coder/quartz"
	"golang.org/x/xerrors"

	"github.com/fardannozami/ghostwatch/internal/domain"
)

type TrackUsecase struct {
	tracking domain.TrackingRepository
	activity domain.ActivityRepository
	clock    quartz.Clock
}

func NewTrackUsecase(tracking domain.TrackingRepository, activity domain.ActivityRepository, clock quartz.Clock) *TrackUsecase {
	return &TrackUsecase{tracking: tracking, activity: activity, clock: clock}
}

// Execute puts a pair under observation. Tracking an already-tracked pair
// is a no-op, not an error; the return value reports whether the pair is
// newly tracked. New pairs start with a zero streak row, and their first
// day row is created lazily by the first message or the first sweep.
func (uc *TrackUsecase) Execute(ctx context.Context, chatID, userID int64, username string) (bool, error) {
	pair := &domain.TrackedPair{
		ChatID:   chatID,
		UserID:   userID,
		Username: username,
		AddedAt:  uc.clock.Now(),
	}

	inserted, err := uc.tracking.InsertPair(ctx, pair)
	if err != nil {
		return false, xerrors.Errorf("insert pair: %w", err)
	}
	if !inserted {
		return false, nil
	}

	streak := &domain.UserStreak{ChatID: chatID, UserID: userID}
	if err := uc.activity.PutStreak(ctx, streak); err != nil {
		return false, xerrors.Errorf("init streak: %w", err)
	}

	return true, nil
}
