package usecase

import (
	"context"

	"golang.org/x/xerrors"

	"github.com/fardannozami/ghostwatch/internal/domain"
)

type UntrackUsecase struct {
	tracking domain.TrackingRepository
	locks    *PairLocks
}

func NewUntrackUsecase(tracking domain.TrackingRepository, locks *PairLocks) *UntrackUsecase {
	return &UntrackUsecase{tracking: tracking, locks: locks}
}

// Execute removes a pair and all of its history and streak state. The store
// deletes the three tables' rows in one transaction. Untracking an unknown
// pair is a no-op; the return value reports whether anything was removed.
func (uc *UntrackUsecase) Execute(ctx context.Context, chatID, userID int64) (bool, error) {
	unlock := uc.locks.Lock(chatID, userID)
	defer unlock()

	deleted, err := uc.tracking.DeletePair(ctx, chatID, userID)
	if err != nil {
		return false, xerrors.Errorf("delete pair: %w", err)
	}
	return deleted, nil
}
