package domain

import "time"

// User stores a chat participant's timezone preference. It is a technical
// entity: rows are created lazily on first use and never deleted.
type User struct {
	ID         int64
	TelegramID int64
	Timezone   string // IANA name, "UTC" by default
	CreatedAt  time.Time
}

// Deadline is a titled task with a due instant, owned by a telegram user.
// DueAt is always stored in UTC.
type Deadline struct {
	ID        int64
	UserID    int64 // owner's telegram id, matched by value
	Title     string
	DueAt     time.Time
	CreatedAt time.Time
}

// SentNotification is one ledger entry: proof that a reminder of the given
// kind was already dispatched for a deadline. Insert-only, never pruned.
type SentNotification struct {
	ID         int64
	DeadlineID int64
	Kind       Kind
	SentAt     time.Time
}
