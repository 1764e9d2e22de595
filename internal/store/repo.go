package store

import (
	"context"
	"time"

	"github.com/Granzh/deadlines-telegram-bot/internal/domain"
)

// Repo defines storage operations for users, deadlines, notification
// settings and the sent-notification ledger. Each method is one unit of
// work; no transaction spans a whole scheduler tick.
type Repo interface {
	// Users.
	GetOrCreateUser(ctx context.Context, telegramID int64) (*domain.User, error)
	SetTimezone(ctx context.Context, telegramID int64, tz string) error
	// Timezone returns "UTC" when no user row exists; it never fails on absence.
	Timezone(ctx context.Context, telegramID int64) (string, error)

	// Deadlines.
	CreateDeadline(ctx context.Context, d *domain.Deadline) error
	GetDeadline(ctx context.Context, id int64) (*domain.Deadline, error)
	ListDeadlines(ctx context.Context, userID int64) ([]domain.Deadline, error)
	UpdateDeadline(ctx context.Context, id int64, title string, dueAt time.Time) error
	DeleteDeadline(ctx context.Context, id int64) error
	// ListOverdue returns deadlines due at or before now with no "overdue"
	// ledger marker yet.
	ListOverdue(ctx context.Context, now time.Time) ([]domain.Deadline, error)
	// ListUpcoming returns deadlines strictly in the future.
	ListUpcoming(ctx context.Context, now time.Time) ([]domain.Deadline, error)

	// Notification settings. GetSettings returns (nil, nil) when the user
	// has no settings row.
	GetSettings(ctx context.Context, userID int64) (*domain.Settings, error)
	CreateSettings(ctx context.Context, s domain.Settings) (*domain.Settings, error)
	SaveSettings(ctx context.Context, s domain.Settings) error

	// Sent-notification ledger.
	WasSent(ctx context.Context, deadlineID int64, kind domain.Kind) (bool, error)
	MarkSent(ctx context.Context, deadlineID int64, kind domain.Kind, at time.Time) error

	Close() error
}
