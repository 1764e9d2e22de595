package domain

import "time"

// DefaultWindow is how far past each lead-time threshold a reminder still
// matches. The scan runs once a minute; two minutes tolerates one missed
// tick without double-firing. Must be >= the scan interval (checked at
// startup by config.Validate).
const DefaultWindow = 2 * time.Minute

// DueKinds returns the lead-time kinds currently due for a deadline:
// kind K matches iff lead(K) <= dueAt-now < lead(K)+window and the user's
// flag for K is enabled. Pure function of its arguments; kinds are checked
// independently and may match together for pathologically short deadlines.
func DueKinds(dueAt time.Time, s Settings, now time.Time, window time.Duration) []Kind {
	if window <= 0 {
		window = DefaultWindow
	}
	until := dueAt.Sub(now)

	var due []Kind
	for _, k := range LeadKinds {
		if !s.Enabled(k) {
			continue
		}
		lead, _ := LeadTime(k)
		if lead <= until && until < lead+window {
			due = append(due, k)
		}
	}
	return due
}

// Overdue reports whether the overdue notice is due. It ignores settings:
// the overdue notice is unconditional, gated only by the sent ledger.
func Overdue(dueAt, now time.Time) bool {
	return !dueAt.After(now)
}
