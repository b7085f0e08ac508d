package sqlite

import (
	"context"
	"database/sql"
	"time"

	"golang.org/x/xerrors"

	"github.com/fardannozami/ghostwatch/internal/calendar"
	"github.com/fardannozami/ghostwatch/internal/domain"
)

// Store implements the tracking, activity, and sweep repositories on a
// single SQLite database. Reporting dates are stored as YYYY-MM-DD text and
// parsed back in the reporting timezone; timestamps are RFC3339 text.
type Store struct {
	db      *sql.DB
	cal     *calendar.Calendar
	timeout time.Duration
}

func NewStore(db *sql.DB, cal *calendar.Calendar, timeout time.Duration) *Store {
	return &Store{db: db, cal: cal, timeout: timeout}
}

// opCtx bounds one store operation. No store call may block indefinitely.
func (s *Store) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// unavailable classifies a store I/O failure as transient so callers can
// match on domain.ErrStoreUnavailable and retry.
func unavailable(op string, err error) error {
	return xerrors.Errorf("%s: %v: %w", op, err, domain.ErrStoreUnavailable)
}

func (s *Store) InitSchema(ctx context.Context) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	query := `
		CREATE TABLE IF NOT EXISTS tracked_pairs (
			chat_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			username TEXT NOT NULL DEFAULT '',
			added_at TEXT NOT NULL,
			PRIMARY KEY (chat_id, user_id)
		);
		CREATE TABLE IF NOT EXISTS daily_activity (
			chat_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			activity_date TEXT NOT NULL,
			messaged INTEGER NOT NULL DEFAULT 0,
			first_message_time TEXT,
			PRIMARY KEY (chat_id, user_id, activity_date),
			FOREIGN KEY (chat_id, user_id) REFERENCES tracked_pairs (chat_id, user_id) ON DELETE CASCADE
		);
		CREATE TABLE IF NOT EXISTS user_streaks (
			chat_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			success_streak INTEGER NOT NULL DEFAULT 0,
			failure_streak INTEGER NOT NULL DEFAULT 0,
			last_activity_date TEXT,
			PRIMARY KEY (chat_id, user_id),
			FOREIGN KEY (chat_id, user_id) REFERENCES tracked_pairs (chat_id, user_id) ON DELETE CASCADE
		);
		CREATE TABLE IF NOT EXISTS sweep_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			last_swept_date TEXT NOT NULL
		);
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return unavailable("init schema", err)
	}
	return nil
}

func (s *Store) InsertPair(ctx context.Context, pair *domain.TrackedPair) (bool, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	query := `INSERT OR IGNORE INTO tracked_pairs (chat_id, user_id, username, added_at) VALUES (?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query, pair.ChatID, pair.UserID, pair.Username, pair.AddedAt.Format(time.RFC3339))
	if err != nil {
		return false, unavailable("insert pair", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable("insert pair", err)
	}
	return n > 0, nil
}

// DeletePair removes the pair and cascades to its daily activity and streak
// rows. The cascade is an explicit multi-table delete in one transaction,
// not a reliance on the connection having foreign keys enabled.
func (s *Store) DeletePair(ctx context.Context, chatID, userID int64) (bool, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, unavailable("delete pair", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM daily_activity WHERE chat_id = ? AND user_id = ?`, chatID, userID); err != nil {
		return false, unavailable("delete activity", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_streaks WHERE chat_id = ? AND user_id = ?`, chatID, userID); err != nil {
		return false, unavailable("delete streak", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM tracked_pairs WHERE chat_id = ? AND user_id = ?`, chatID, userID)
	if err != nil {
		return false, unavailable("delete pair", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable("delete pair", err)
	}

	if err := tx.Commit(); err != nil {
		return false, unavailable("delete pair", err)
	}
	return n > 0, nil
}

func (s *Store) GetPair(ctx context.Context, chatID, userID int64) (*domain.TrackedPair, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	query := `SELECT chat_id, user_id, username, added_at FROM tracked_pairs WHERE chat_id = ? AND user_id = ?`
	row := s.db.QueryRowContext(ctx, query, chatID, userID)

	var pair domain.TrackedPair
	var addedAt string
	err := row.Scan(&pair.ChatID, &pair.UserID, &pair.Username, &addedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("get pair", err)
	}
	pair.AddedAt, err = time.Parse(time.RFC3339, addedAt)
	if err != nil {
		return nil, xerrors.Errorf("parse added_at: %w", err)
	}
	return &pair, nil
}

func (s *Store) IsTracked(ctx context.Context, chatID, userID int64) (bool, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM tracked_pairs WHERE chat_id = ? AND user_id = ?`, chatID, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, unavailable("is tracked", err)
	}
	return true, nil
}

func (s *Store) ListPairs(ctx context.Context) ([]*domain.TrackedPair, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT chat_id, user_id, username, added_at FROM tracked_pairs ORDER BY chat_id, user_id`)
	if err != nil {
		return nil, unavailable("list pairs", err)
	}
	defer rows.Close()

	var pairs []*domain.TrackedPair
	for rows.Next() {
		var pair domain.TrackedPair
		var addedAt string
		if err := rows.Scan(&pair.ChatID, &pair.UserID, &pair.Username, &addedAt); err != nil {
			return nil, unavailable("scan pair", err)
		}
		pair.AddedAt, err = time.Parse(time.RFC3339, addedAt)
		if err != nil {
			return nil, xerrors.Errorf("parse added_at: %w", err)
		}
		pairs = append(pairs, &pair)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list pairs", err)
	}
	return pairs, nil
}

func (s *Store) GetDay(ctx context.Context, chatID, userID int64, date time.Time) (*domain.DailyActivity, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	query := `SELECT chat_id, user_id, activity_date, messaged, first_message_time
		FROM daily_activity WHERE chat_id = ? AND user_id = ? AND activity_date = ?`
	row := s.db.QueryRowContext(ctx, query, chatID, userID, s.cal.FormatDate(date))

	day, err := s.scanDay(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return day, err
}

func (s *Store) RecentDays(ctx context.Context, chatID, userID int64, limit int) ([]*domain.DailyActivity, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	query := `SELECT chat_id, user_id, activity_date, messaged, first_message_time
		FROM daily_activity WHERE chat_id = ? AND user_id = ?
		ORDER BY activity_date DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, chatID, userID, limit)
	if err != nil {
		return nil, unavailable("recent days", err)
	}
	defer rows.Close()

	var days []*domain.DailyActivity
	for rows.Next() {
		day, err := s.scanDay(rows.Scan)
		if err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("recent days", err)
	}
	return days, nil
}

func (s *Store) scanDay(scan func(...any) error) (*domain.DailyActivity, error) {
	var day domain.DailyActivity
	var activityDate string
	var messaged int
	var firstMessageTime sql.NullString

	err := scan(&day.ChatID, &day.UserID, &activityDate, &messaged, &firstMessageTime)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, unavailable("scan day", err)
	}

	day.ActivityDate, err = s.cal.ParseDate(activityDate)
	if err != nil {
		return nil, err
	}
	day.Messaged = messaged != 0
	if firstMessageTime.Valid {
		ts, err := time.Parse(time.RFC3339, firstMessageTime.String)
		if err != nil {
			return nil, xerrors.Errorf("parse first_message_time: %w", err)
		}
		day.FirstMessageTime = &ts
	}
	return &day, nil
}

func (s *Store) GetStreak(ctx context.Context, chatID, userID int64) (*domain.UserStreak, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	query := `SELECT chat_id, user_id, success_streak, failure_streak, last_activity_date
		FROM user_streaks WHERE chat_id = ? AND user_id = ?`
	row := s.db.QueryRowContext(ctx, query, chatID, userID)

	var streak domain.UserStreak
	var lastActivityDate sql.NullString
	err := row.Scan(&streak.ChatID, &streak.UserID, &streak.SuccessStreak, &streak.FailureStreak, &lastActivityDate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("get streak", err)
	}

	if lastActivityDate.Valid {
		date, err := s.cal.ParseDate(lastActivityDate.String)
		if err != nil {
			return nil, err
		}
		streak.LastActivityDate = &date
	}
	return &streak, nil
}

func (s *Store) PutStreak(ctx context.Context, streak *domain.UserStreak) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, upsertStreakQuery, s.streakArgs(streak)...); err != nil {
		return unavailable("put streak", err)
	}
	return nil
}

// SaveDay writes the daily activity row and the streak row in one
// transaction. A lost day is worse than a retried one, so neither write is
// ever observable without the other.
func (s *Store) SaveDay(ctx context.Context, day *domain.DailyActivity, streak *domain.UserStreak) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("save day", err)
	}
	defer tx.Rollback()

	var firstMessageTime any
	if day.FirstMessageTime != nil {
		firstMessageTime = day.FirstMessageTime.Format(time.RFC3339)
	}
	dayQuery := `
		INSERT INTO daily_activity (chat_id, user_id, activity_date, messaged, first_message_time)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(chat_id, user_id, activity_date) DO UPDATE SET
			messaged = excluded.messaged,
			first_message_time = excluded.first_message_time
	`
	if _, err := tx.ExecContext(ctx, dayQuery, day.ChatID, day.UserID, s.cal.FormatDate(day.ActivityDate), boolToInt(day.Messaged), firstMessageTime); err != nil {
		return unavailable("save activity", err)
	}

	if _, err := tx.ExecContext(ctx, upsertStreakQuery, s.streakArgs(streak)...); err != nil {
		return unavailable("save streak", err)
	}

	if err := tx.Commit(); err != nil {
		return unavailable("save day", err)
	}
	return nil
}

const upsertStreakQuery = `
	INSERT INTO user_streaks (chat_id, user_id, success_streak, failure_streak, last_activity_date)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(chat_id, user_id) DO UPDATE SET
		success_streak = excluded.success_streak,
		failure_streak = excluded.failure_streak,
		last_activity_date = excluded.last_activity_date
`

func (s *Store) streakArgs(streak *domain.UserStreak) []any {
	var lastActivityDate any
	if streak.LastActivityDate != nil {
		lastActivityDate = s.cal.FormatDate(*streak.LastActivityDate)
	}
	return []any{streak.ChatID, streak.UserID, streak.SuccessStreak, streak.FailureStreak, lastActivityDate}
}

func (s *Store) LastSweptDate(ctx context.Context) (*time.Time, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT last_swept_date FROM sweep_state WHERE id = 1`).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("last swept date", err)
	}

	date, err := s.cal.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &date, nil
}

func (s *Store) SetLastSweptDate(ctx context.Context, date time.Time) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	query := `
		INSERT INTO sweep_state (id, last_swept_date) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET last_swept_date = excluded.last_swept_date
	`
	if _, err := s.db.ExecContext(ctx, query, s.cal.FormatDate(date)); err != nil {
		return unavailable("set last swept date", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
