package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Granzh/deadlines-telegram-bot/internal/domain"
)

const (
	startText = "👋 I track your deadlines and remind you before they hit.\n\n" +
		"/add — add a deadline\n" +
		"/list — show your deadlines\n" +
		"/edit — change a deadline\n" +
		"/delete — remove a deadline\n" +
		"/timezone — set your timezone\n" +
		"/notifications — choose when to be reminded"
	helpText = "Commands:\n" +
		"/add — add a deadline (I will ask for a title, then a date)\n" +
		"/list — your deadlines, soonest first\n" +
		"/edit — change a deadline's title or date\n" +
		"/delete — remove a deadline\n" +
		"/timezone Europe/Moscow — set your timezone (IANA name)\n" +
		"/notifications — toggle reminders (1 hour to 1 week ahead)\n\n" +
		"Dates use the DD.MM.YYYY HH:MM format in your timezone."
	settingsText = "⚙️ Notification settings\n\nPick when you want to be reminded:"

	rateLimitedText = "Too many requests, give me a moment."
)

// settingsRows pairs each toggleable kind with its button label, in the
// order the keyboard shows them.
var settingsRows = []struct {
	kind  domain.Kind
	label string
}{
	{domain.KindOnDue, "On due"},
	{domain.KindOneHour, "1 hour before"},
	{domain.KindThreeHrs, "3 hours before"},
	{domain.KindOneDay, "1 day before"},
	{domain.KindThreeDay, "3 days before"},
	{domain.KindOneWeek, "1 week before"},
}

// settingsKeyboard renders one toggle button per reminder kind with the
// current on/off state.
func settingsKeyboard(s domain.Settings) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(settingsRows))
	for _, row := range settingsRows {
		mark := "❌"
		if s.Enabled(row.kind) {
			mark = "✅"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				mark+" "+row.label,
				"notif_toggle:"+string(row.kind),
			),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// deadlinesKeyboard renders one button per deadline with callback data
// "<action>:<id>". Used by the /edit and /delete pickers.
func deadlinesKeyboard(action string, deadlines []domain.Deadline) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(deadlines))
	for i, d := range deadlines {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%d. %s", i+1, d.Title),
				fmt.Sprintf("%s:%d", action, d.ID),
			),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func editFieldKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📝 Title", "edit_field:title"),
			tgbotapi.NewInlineKeyboardButtonData("📅 Date", "edit_field:datetime"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", "edit_field:cancel"),
		),
	)
}
