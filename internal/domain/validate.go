package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTitleLen bounds deadline titles, in runes.
const MaxTitleLen = 200

// ValidateTitle trims the title and rejects empty or oversized results.
func ValidateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return "", fmt.Errorf("%w: max %d characters", ErrTitleTooLong, MaxTitleLen)
	}
	return title, nil
}

// ValidateDue normalizes a due instant to UTC and rejects instants that are
// not strictly in the future relative to now.
func ValidateDue(dueAt, now time.Time) (time.Time, error) {
	dueAt = dueAt.UTC()
	if !dueAt.After(now) {
		return time.Time{}, fmt.Errorf("%w: %s", ErrPastDeadline, dueAt.Format(time.RFC3339))
	}
	return dueAt, nil
}

// ValidateTZ checks that tz is a resolvable IANA location and returns its
// canonical name.
func ValidateTZ(tz string) (string, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return "", fmt.Errorf("%w: empty name", ErrInvalidTimezone)
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}
	return loc.String(), nil
}

// ParseDueLocal parses "DD.MM.YYYY HH:MM" as a wall-clock time in the given
// timezone. This is the format the /add and /edit dialogs ask for.
func ParseDueLocal(s, tz string) (time.Time, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation("02.01.2006 15:04", strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// FormatLocal renders t as "DD.MM.YYYY HH:MM" in the user's timezone,
// falling back to UTC when the stored name no longer resolves.
func FormatLocal(t time.Time, tz string) string {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	return t.In(loc).Format("02.01.2006 15:04")
}
