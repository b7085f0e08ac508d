package usecase_test

import (
	"context"
	"sort"
	"time"

	"github.com/fardannozami/ghostwatch/internal/calendar"
	"github.com/fardannozami/ghostwatch/internal/domain"
)

// =============================================================================
// IN-MEMORY STORE MOCK
// =============================================================================
//
// Implements domain.TrackingRepository and domain.ActivityRepository for
// engine tests. Values are copied on the way in and out so usecases cannot
// alias mock state, mirroring how a real store behaves.
//
// =============================================================================

type pairID struct {
	chat int64
	user int64
}

type dayID struct {
	chat int64
	user int64
	date string
}

type mockStore struct {
	cal     *calendar.Calendar
	pairs   map[pairID]*domain.TrackedPair
	days    map[dayID]*domain.DailyActivity
	streaks map[pairID]*domain.UserStreak

	saveDayErr error // injected SaveDay failure
}

func newMockStore(cal *calendar.Calendar) *mockStore {
	return &mockStore{
		cal:     cal,
		pairs:   make(map[pairID]*domain.TrackedPair),
		days:    make(map[dayID]*domain.DailyActivity),
		streaks: make(map[pairID]*domain.UserStreak),
	}
}

func (m *mockStore) InsertPair(_ context.Context, pair *domain.TrackedPair) (bool, error) {
	id := pairID{pair.ChatID, pair.UserID}
	if _, ok := m.pairs[id]; ok {
		return false, nil
	}
	cp := *pair
	m.pairs[id] = &cp
	return true, nil
}

func (m *mockStore) DeletePair(_ context.Context, chatID, userID int64) (bool, error) {
	id := pairID{chatID, userID}
	if _, ok := m.pairs[id]; !ok {
		return false, nil
	}
	delete(m.pairs, id)
	delete(m.streaks, id)
	for k := range m.days {
		if k.chat == chatID && k.user == userID {
			delete(m.days, k)
		}
	}
	return true, nil
}

func (m *mockStore) GetPair(_ context.Context, chatID, userID int64) (*domain.TrackedPair, error) {
	pair, ok := m.pairs[pairID{chatID, userID}]
	if !ok {
		return nil, nil
	}
	cp := *pair
	return &cp, nil
}

func (m *mockStore) IsTracked(_ context.Context, chatID, userID int64) (bool, error) {
	_, ok := m.pairs[pairID{chatID, userID}]
	return ok, nil
}

func (m *mockStore) ListPairs(_ context.Context) ([]*domain.TrackedPair, error) {
	var pairs []*domain.TrackedPair
	for _, p := range m.pairs {
		cp := *p
		pairs = append(pairs, &cp)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].ChatID != pairs[j].ChatID {
			return pairs[i].ChatID < pairs[j].ChatID
		}
		return pairs[i].UserID < pairs[j].UserID
	})
	return pairs, nil
}

func (m *mockStore) GetDay(_ context.Context, chatID, userID int64, date time.Time) (*domain.DailyActivity, error) {
	day, ok := m.days[dayID{chatID, userID, m.cal.FormatDate(date)}]
	if !ok {
		return nil, nil
	}
	return cloneDay(day), nil
}

func (m *mockStore) RecentDays(_ context.Context, chatID, userID int64, limit int) ([]*domain.DailyActivity, error) {
	var days []*domain.DailyActivity
	for k, d := range m.days {
		if k.chat == chatID && k.user == userID {
			days = append(days, cloneDay(d))
		}
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].ActivityDate.After(days[j].ActivityDate)
	})
	if len(days) > limit {
		days = days[:limit]
	}
	return days, nil
}

func (m *mockStore) GetStreak(_ context.Context, chatID, userID int64) (*domain.UserStreak, error) {
	streak, ok := m.streaks[pairID{chatID, userID}]
	if !ok {
		return nil, nil
	}
	return cloneStreak(streak), nil
}

func (m *mockStore) PutStreak(_ context.Context, streak *domain.UserStreak) error {
	m.streaks[pairID{streak.ChatID, streak.UserID}] = cloneStreak(streak)
	return nil
}

func (m *mockStore) SaveDay(_ context.Context, day *domain.DailyActivity, streak *domain.UserStreak) error {
	if m.saveDayErr != nil {
		return m.saveDayErr
	}
	m.days[dayID{day.ChatID, day.UserID, m.cal.FormatDate(day.ActivityDate)}] = cloneDay(day)
	m.streaks[pairID{streak.ChatID, streak.UserID}] = cloneStreak(streak)
	return nil
}

func cloneDay(day *domain.DailyActivity) *domain.DailyActivity {
	cp := *day
	if day.FirstMessageTime != nil {
		ts := *day.FirstMessageTime
		cp.FirstMessageTime = &ts
	}
	return &cp
}

func cloneStreak(streak *domain.UserStreak) *domain.UserStreak {
	cp := *streak
	if streak.LastActivityDate != nil {
		d := *streak.LastActivityDate
		cp.LastActivityDate = &d
	}
	return &cp
}
