package usecase

import (
	"context"

	"golang.org/x/xerrors"

	"github.com/fardannozami/ghostwatch/internal/domain"
)

type GetReportUsecase struct {
	tracking    domain.TrackingRepository
	activity    domain.ActivityRepository
	historyDays int
}

func NewGetReportUsecase(tracking domain.TrackingRepository, activity domain.ActivityRepository, historyDays int) *GetReportUsecase {
	if historyDays <= 0 {
		historyDays = 7
	}
	return &GetReportUsecase{tracking: tracking, activity: activity, historyDays: historyDays}
}

// Execute returns the streak headline plus the recent daily history for a
// tracked pair. Fails with domain.ErrNotTracked for unknown pairs.
func (uc *GetReportUsecase) Execute(ctx context.Context, chatID, userID int64) (*domain.Report, error) {
	tracked, err := uc.tracking.IsTracked(ctx, chatID, userID)
	if err != nil {
		return nil, xerrors.Errorf("check tracked: %w", err)
	}
	if !tracked {
		return nil, domain.ErrNotTracked
	}

	streak, err := uc.activity.GetStreak(ctx, chatID, userID)
	if err != nil {
		return nil, xerrors.Errorf("get streak: %w", err)
	}
	if streak == nil {
		streak = &domain.UserStreak{ChatID: chatID, UserID: userID}
	}

	history, err := uc.activity.RecentDays(ctx, chatID, userID, uc.historyDays)
	if err != nil {
		return nil, xerrors.Errorf("get history: %w", err)
	}

	return &domain.Report{
		SuccessStreak:    streak.SuccessStreak,
		FailureStreak:    streak.FailureStreak,
		LastActivityDate: streak.LastActivityDate,
		History:          history,
	}, nil
}
