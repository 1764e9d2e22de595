package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/Granzh/deadlines-telegram-bot/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// --- Users ---

// GetOrCreateUser returns the user row for telegramID, inserting one with
// the default timezone on first contact.
func (r *SQLiteRepo) GetOrCreateUser(ctx context.Context, telegramID int64) (*domain.User, error) {
	u, err := r.getUser(ctx, telegramID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (telegram_id, timezone, created_at)
		VALUES (?, 'UTC', ?)`,
		telegramID, now.Unix(),
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &domain.User{ID: id, TelegramID: telegramID, Timezone: "UTC", CreatedAt: now}, nil
}

func (r *SQLiteRepo) getUser(ctx context.Context, telegramID int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, telegram_id, timezone, created_at
		FROM users
		WHERE telegram_id = ?`,
		telegramID,
	)

	var (
		u       domain.User
		created int64
	)
	if err := row.Scan(&u.ID, &u.TelegramID, &u.Timezone, &created); err != nil {
		return nil, err
	}
	u.CreatedAt = time.Unix(created, 0).UTC()
	return &u, nil
}

// SetTimezone stores tz for the user, creating the row first if needed.
// tz is assumed validated by the caller.
func (r *SQLiteRepo) SetTimezone(ctx context.Context, telegramID int64, tz string) error {
	if _, err := r.GetOrCreateUser(ctx, telegramID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET timezone = ?
		WHERE telegram_id = ?`,
		tz, telegramID,
	)
	return err
}

// Timezone returns the user's timezone, or "UTC" when no row exists.
func (r *SQLiteRepo) Timezone(ctx context.Context, telegramID int64) (string, error) {
	u, err := r.getUser(ctx, telegramID)
	if errors.Is(err, sql.ErrNoRows) {
		return "UTC", nil
	}
	if err != nil {
		return "", err
	}
	return u.Timezone, nil
}

// --- Deadlines ---

// CreateDeadline persists d and fills in its assigned id.
func (r *SQLiteRepo) CreateDeadline(ctx context.Context, d *domain.Deadline) error {
	if d == nil {
		return errors.New("nil deadline")
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	// Columns hold unix seconds, so truncate before the insert: the
	// entity handed back must equal what a later read returns.
	d.DueAt = time.Unix(d.DueAt.UTC().Unix(), 0).UTC()
	d.CreatedAt = time.Unix(d.CreatedAt.UTC().Unix(), 0).UTC()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO deadlines (user_id, title, due_at, created_at)
		VALUES (?, ?, ?, ?)`,
		d.UserID, d.Title, d.DueAt.Unix(), d.CreatedAt.Unix(),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = id
	return nil
}

const deadlineCols = `id, user_id, title, due_at, created_at`

func scanDeadline(row interface{ Scan(...any) error }) (domain.Deadline, error) {
	var (
		d       domain.Deadline
		due     int64
		created int64
	)
	if err := row.Scan(&d.ID, &d.UserID, &d.Title, &due, &created); err != nil {
		return domain.Deadline{}, err
	}
	d.DueAt = time.Unix(due, 0).UTC()
	d.CreatedAt = time.Unix(created, 0).UTC()
	return d, nil
}

// GetDeadline returns a deadline by id, or domain.ErrDeadlineNotFound.
func (r *SQLiteRepo) GetDeadline(ctx context.Context, id int64) (*domain.Deadline, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+deadlineCols+` FROM deadlines WHERE id = ?`, id)

	d, err := scanDeadline(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", domain.ErrDeadlineNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDeadlines returns all of a user's deadlines, soonest first.
func (r *SQLiteRepo) ListDeadlines(ctx context.Context, userID int64) ([]domain.Deadline, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+deadlineCols+` FROM deadlines WHERE user_id = ? ORDER BY due_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDeadlines(rows)
}

// UpdateDeadline overwrites title and due_at. The caller (service layer)
// merges partial updates and re-validates before calling.
func (r *SQLiteRepo) UpdateDeadline(ctx context.Context, id int64, title string, dueAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE deadlines
		SET title = ?, due_at = ?
		WHERE id = ?`,
		title, dueAt.UTC().Unix(), id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrDeadlineNotFound, id)
	}
	return nil
}

// DeleteDeadline removes a deadline by id.
func (r *SQLiteRepo) DeleteDeadline(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM deadlines WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrDeadlineNotFound, id)
	}
	return nil
}

// ListOverdue returns deadlines due at or before now that have no "overdue"
// ledger marker yet. The anti-join against sent_notifications is the single
// idempotency mechanism; there is no notified flag on the deadline row.
func (r *SQLiteRepo) ListOverdue(ctx context.Context, now time.Time) ([]domain.Deadline, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+deadlineCols+`
		FROM deadlines d
		WHERE d.due_at <= ?
		  AND NOT EXISTS (
			SELECT 1 FROM sent_notifications s
			WHERE s.deadline_id = d.id AND s.kind = ?
		  )
		ORDER BY d.due_at ASC`,
		now.UTC().Unix(), string(domain.KindOverdue),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDeadlines(rows)
}

// ListUpcoming returns deadlines strictly in the future, soonest first.
func (r *SQLiteRepo) ListUpcoming(ctx context.Context, now time.Time) ([]domain.Deadline, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+deadlineCols+` FROM deadlines WHERE due_at > ? ORDER BY due_at ASC`,
		now.UTC().Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDeadlines(rows)
}

func collectDeadlines(rows *sql.Rows) ([]domain.Deadline, error) {
	var res []domain.Deadline
	for rows.Next() {
		d, err := scanDeadline(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// --- Notification settings ---

const settingsCols = `id, user_id, notify_on_due, notify_1_hour, notify_3_hours,
	notify_1_day, notify_3_days, notify_1_week, created_at`

// GetSettings returns the user's settings row, or (nil, nil) when absent.
func (r *SQLiteRepo) GetSettings(ctx context.Context, userID int64) (*domain.Settings, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+settingsCols+` FROM notification_settings WHERE user_id = ?`, userID)

	var (
		s                                              domain.Settings
		onDue, oneH, threeH, oneD, threeD, oneW, creat int64
	)
	err := row.Scan(&s.ID, &s.UserID, &onDue, &oneH, &threeH, &oneD, &threeD, &oneW, &creat)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.OnDue = onDue != 0
	s.OneHour = oneH != 0
	s.ThreeHrs = threeH != 0
	s.OneDay = oneD != 0
	s.ThreeDays = threeD != 0
	s.OneWeek = oneW != 0
	s.CreatedAt = time.Unix(creat, 0).UTC()
	return &s, nil
}

// CreateSettings inserts a settings row and returns it with its id.
func (r *SQLiteRepo) CreateSettings(ctx context.Context, s domain.Settings) (*domain.Settings, error) {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO notification_settings (
			user_id, notify_on_due, notify_1_hour, notify_3_hours,
			notify_1_day, notify_3_days, notify_1_week, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.UserID, boolToInt(s.OnDue), boolToInt(s.OneHour), boolToInt(s.ThreeHrs),
		boolToInt(s.OneDay), boolToInt(s.ThreeDays), boolToInt(s.OneWeek),
		s.CreatedAt.Unix(),
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	s.ID = id
	return &s, nil
}

// SaveSettings overwrites the flag columns of an existing settings row.
func (r *SQLiteRepo) SaveSettings(ctx context.Context, s domain.Settings) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE notification_settings
		SET notify_on_due = ?, notify_1_hour = ?, notify_3_hours = ?,
		    notify_1_day = ?, notify_3_days = ?, notify_1_week = ?
		WHERE user_id = ?`,
		boolToInt(s.OnDue), boolToInt(s.OneHour), boolToInt(s.ThreeHrs),
		boolToInt(s.OneDay), boolToInt(s.ThreeDays), boolToInt(s.OneWeek),
		s.UserID,
	)
	return err
}

// --- Sent-notification ledger ---

// WasSent reports whether a marker exists for (deadlineID, kind).
func (r *SQLiteRepo) WasSent(ctx context.Context, deadlineID int64, kind domain.Kind) (bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM sent_notifications
		WHERE deadline_id = ? AND kind = ?
		LIMIT 1`,
		deadlineID, string(kind),
	)
	var one int
	err := row.Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkSent records that a reminder of the given kind was dispatched for a
// deadline. Insert-only; the table is an audit trail and is never pruned.
func (r *SQLiteRepo) MarkSent(ctx context.Context, deadlineID int64, kind domain.Kind, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sent_notifications (deadline_id, kind, sent_at)
		VALUES (?, ?, ?)`,
		deadlineID, string(kind), at.UTC().Unix(),
	)
	return err
}

// boolToInt converts a boolean to 1/0 for SQLite.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
