package scheduler

import (
	"fmt"

	"github.com/Granzh/deadlines-telegram-bot/internal/domain"
)

// kindLabels are the human phrasings of each lead-time kind.
var kindLabels = map[domain.Kind]string{
	domain.KindOneHour:  "in 1 hour",
	domain.KindThreeHrs: "in 3 hours",
	domain.KindOneDay:   "in 1 day",
	domain.KindThreeDay: "in 3 days",
	domain.KindOneWeek:  "in 1 week",
}

// reminderText renders a lead-time reminder with the due instant shown in
// the owner's timezone. Plain text only; formatting markup is not the
// scheduler's business.
func reminderText(kind domain.Kind, d domain.Deadline, tz string) string {
	label, ok := kindLabels[kind]
	if !ok {
		label = "soon"
	}
	return fmt.Sprintf("⏰ Reminder: \"%s\" is due %s (%s).",
		d.Title, label, domain.FormatLocal(d.DueAt, tz))
}

// overdueText renders the one-time overdue notice.
func overdueText(d domain.Deadline, tz string) string {
	return fmt.Sprintf("🔥 Deadline \"%s\" is overdue! It was due %s.",
		d.Title, domain.FormatLocal(d.DueAt, tz))
}
