package domain

import (
	"context"
	"time"
)

// TrackedPair is a (chat, user) combination under observation. It is the
// root entity: daily activity and streak rows belong to it and are removed
// with it.
type TrackedPair struct {
	ChatID   int64     `json:"chat_id" db:"chat_id"`
	UserID   int64     `json:"user_id" db:"user_id"`
	Username string    `json:"username" db:"username"`
	AddedAt  time.Time `json:"added_at" db:"added_at"`
}

// DailyActivity records whether a tracked user messaged on a single
// reporting-calendar date. Created lazily by the first message of the day,
// or by the boundary sweep when the day closed without one.
type DailyActivity struct {
	ChatID           int64      `json:"chat_id" db:"chat_id"`
	UserID           int64      `json:"user_id" db:"user_id"`
	ActivityDate     time.Time  `json:"activity_date" db:"activity_date"`
	Messaged         bool       `json:"messaged" db:"messaged"`
	FirstMessageTime *time.Time `json:"first_message_time" db:"first_message_time"`
}

// UserStreak is the cached run-length state for a tracked pair. At most one
// of SuccessStreak/FailureStreak is non-zero; it is derived from
// DailyActivity and can be rebuilt from it.
type UserStreak struct {
	ChatID           int64      `json:"chat_id" db:"chat_id"`
	UserID           int64      `json:"user_id" db:"user_id"`
	SuccessStreak    int        `json:"success_streak" db:"success_streak"`
	FailureStreak    int        `json:"failure_streak" db:"failure_streak"`
	LastActivityDate *time.Time `json:"last_activity_date" db:"last_activity_date"`
}

// Report is the headline streak state plus a bounded window of recent
// daily history, newest first.
type Report struct {
	SuccessStreak    int              `json:"success_streak"`
	FailureStreak    int              `json:"failure_streak"`
	LastActivityDate *time.Time       `json:"last_activity_date"`
	History          []*DailyActivity `json:"history"`
}

// TrackingRepository maintains the set of tracked pairs.
type TrackingRepository interface {
	// InsertPair adds a pair if absent. Returns false when the pair was
	// already tracked.
	InsertPair(ctx context.Context, pair *TrackedPair) (bool, error)
	// DeletePair removes a pair and all of its daily activity and streak
	// rows in one transaction. Returns false when the pair was not tracked.
	DeletePair(ctx context.Context, chatID, userID int64) (bool, error)
	// GetPair returns the tracked pair, or nil when it is not tracked.
	GetPair(ctx context.Context, chatID, userID int64) (*TrackedPair, error)
	IsTracked(ctx context.Context, chatID, userID int64) (bool, error)
	ListPairs(ctx context.Context) ([]*TrackedPair, error)
}

// ActivityRepository persists daily activity rows and streak state.
// Implementations return (nil, nil) for rows that do not exist.
type ActivityRepository interface {
	GetDay(ctx context.Context, chatID, userID int64, date time.Time) (*DailyActivity, error)
	// RecentDays returns up to limit rows ordered by activity date descending.
	RecentDays(ctx context.Context, chatID, userID int64, limit int) ([]*DailyActivity, error)
	GetStreak(ctx context.Context, chatID, userID int64) (*UserStreak, error)
	PutStreak(ctx context.Context, streak *UserStreak) error
	// SaveDay upserts a daily activity row together with its streak row.
	// Both writes commit atomically or not at all.
	SaveDay(ctx context.Context, day *DailyActivity, streak *UserStreak) error
}

// SweepRepository persists the boundary sweeper's progress so restarts can
// catch up missed dates.
type SweepRepository interface {
	// LastSweptDate returns the most recent closed date that was fully
	// swept, or nil on a fresh install.
	LastSweptDate(ctx context.Context) (*time.Time, error)
	SetLastSweptDate(ctx context.Context, date time.Time) error
}
