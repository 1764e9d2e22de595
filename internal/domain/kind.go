package domain

import (
	"fmt"
	"time"
)

// Kind identifies one reminder offset before a deadline, plus the distinct
// overdue notice. The string values are persisted in the ledger table, so
// they must stay stable.
type Kind string

const (
	KindOnDue    Kind = "on_due"
	KindOneHour  Kind = "1_hour"
	KindThreeHrs Kind = "3_hours"
	KindOneDay   Kind = "1_day"
	KindThreeDay Kind = "3_days"
	KindOneWeek  Kind = "1_week"
	KindOverdue  Kind = "overdue"
)

// LeadKinds are the lead-time kinds the policy evaluator checks, largest
// offset first so multiple simultaneously due kinds report in a stable order.
var LeadKinds = []Kind{KindOneWeek, KindThreeDay, KindOneDay, KindThreeHrs, KindOneHour}

var leadTimes = map[Kind]time.Duration{
	KindOneHour:  time.Hour,
	KindThreeHrs: 3 * time.Hour,
	KindOneDay:   24 * time.Hour,
	KindThreeDay: 72 * time.Hour,
	KindOneWeek:  7 * 24 * time.Hour,
}

// LeadTime returns the offset before the due instant at which a reminder of
// kind k fires. Only lead-time kinds have one.
func LeadTime(k Kind) (time.Duration, bool) {
	d, ok := leadTimes[k]
	return d, ok
}

// ParseKind maps an inbound kind name (e.g. from callback data) onto the
// enum, rejecting anything unrecognized. KindOverdue is not settable by
// users and is rejected here too.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindOnDue, KindOneHour, KindThreeHrs, KindOneDay, KindThreeDay, KindOneWeek:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Settings holds a user's per-kind opt-in flags. Exactly one row per user,
// created on demand with DefaultSettings.
type Settings struct {
	ID        int64
	UserID    int64 // owner's telegram id
	OnDue     bool
	OneHour   bool
	ThreeHrs  bool
	OneDay    bool
	ThreeDays bool
	OneWeek   bool
	CreatedAt time.Time
}

// DefaultSettings returns the flags a lazily created settings row starts
// with: due-day and on-due notices on, everything else off.
func DefaultSettings(userID int64) Settings {
	return Settings{UserID: userID, OnDue: true, OneDay: true}
}

// Enabled reports whether the flag for kind k is set. The overdue notice is
// unconditional in the current design and always reports true.
func (s Settings) Enabled(k Kind) bool {
	switch k {
	case KindOnDue:
		return s.OnDue
	case KindOneHour:
		return s.OneHour
	case KindThreeHrs:
		return s.ThreeHrs
	case KindOneDay:
		return s.OneDay
	case KindThreeDay:
		return s.ThreeDays
	case KindOneWeek:
		return s.OneWeek
	case KindOverdue:
		return true
	}
	return false
}

// Toggle flips the flag for kind k and returns the updated copy. Unknown
// kinds fail with ErrUnknownKind: flags are a closed enum, never mutated
// by arbitrary field names.
func (s Settings) Toggle(k Kind) (Settings, error) {
	switch k {
	case KindOnDue:
		s.OnDue = !s.OnDue
	case KindOneHour:
		s.OneHour = !s.OneHour
	case KindThreeHrs:
		s.ThreeHrs = !s.ThreeHrs
	case KindOneDay:
		s.OneDay = !s.OneDay
	case KindThreeDay:
		s.ThreeDays = !s.ThreeDays
	case KindOneWeek:
		s.OneWeek = !s.OneWeek
	default:
		return s, fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
	return s, nil
}
