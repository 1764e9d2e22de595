package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Granzh/deadlines-telegram-bot/internal/domain"
)

// userFacingError maps service errors onto chat replies, keeping "your
// input was invalid" distinct from "something went wrong, try later".
// Ownership violations deliberately read like not-found: the bot must not
// confirm that someone else's deadline id exists.
func userFacingError(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyTitle):
		return "The title cannot be empty."
	case errors.Is(err, domain.ErrTitleTooLong):
		return fmt.Sprintf("The title is too long (max %d characters).", domain.MaxTitleLen)
	case errors.Is(err, domain.ErrPastDeadline):
		return "That moment is already in the past. Pick a future date."
	case errors.Is(err, domain.ErrInvalidTimezone):
		return "Unknown timezone. Use an IANA name like Europe/Moscow."
	case errors.Is(err, domain.ErrUnknownKind):
		return "Unknown notification setting."
	case errors.Is(err, domain.ErrDeadlineNotFound), errors.Is(err, domain.ErrNotOwner):
		return "Deadline not found."
	default:
		return "Something went wrong, try again later."
	}
}

// --- Core commands ---

func (r *Router) handleStart(ctx context.Context, chatID, userID int64) {
	if _, err := r.deadlines.GetOrCreateUser(ctx, userID); err != nil {
		r.log.Error("ensure user failed", zap.Int64("user", userID), zap.Error(err))
		r.sendText(chatID, userFacingError(err))
		return
	}
	r.sendText(chatID, startText)
}

// --- /add: two-step dialog, title then date ---

func (r *Router) handleAdd(chatID int64) {
	r.setDialog(chatID, dialog{state: pendingAddTitle})
	r.sendText(chatID, "Enter the title of the deadline:")
}

// --- /list ---

func (r *Router) handleList(ctx context.Context, chatID, userID int64) {
	deadlines, err := r.deadlines.List(ctx, userID)
	if err != nil {
		r.log.Error("list failed", zap.Int64("user", userID), zap.Error(err))
		r.sendText(chatID, userFacingError(err))
		return
	}
	if len(deadlines) == 0 {
		r.sendText(chatID, "You have no deadlines. Add one with /add.")
		return
	}

	tz, err := r.deadlines.Timezone(ctx, userID)
	if err != nil {
		tz = "UTC"
	}
	lines := []string{"Your deadlines:", ""}
	for i, d := range deadlines {
		lines = append(lines, fmt.Sprintf("%d. %s — %s", i+1, d.Title, domain.FormatLocal(d.DueAt, tz)))
	}
	r.sendText(chatID, strings.Join(lines, "\n"))
}

// --- /delete: inline keyboard, then confirmation callback ---

func (r *Router) handleDelete(ctx context.Context, chatID, userID int64) {
	deadlines, err := r.deadlines.List(ctx, userID)
	if err != nil {
		r.log.Error("list failed", zap.Int64("user", userID), zap.Error(err))
		r.sendText(chatID, userFacingError(err))
		return
	}
	if len(deadlines) == 0 {
		r.sendText(chatID, "Nothing to delete.")
		return
	}

	msg := tgbotapi.NewMessage(chatID, "Pick a deadline to delete:")
	msg.ReplyMarkup = deadlinesKeyboard("delete", deadlines)
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Warn("send failed", zap.Int64("chat", chatID), zap.Error(err))
	}
}

func (r *Router) handleDeleteCallback(ctx context.Context, chatID, userID int64, cb *tgbotapi.CallbackQuery) {
	id, err := callbackID(cb.Data)
	if err != nil {
		_ = r.answerCallback(cb.ID, "Invalid deadline id.")
		return
	}
	if err := r.deadlines.Delete(ctx, id, userID); err != nil {
		r.log.Warn("delete failed",
			zap.Int64("deadline", id), zap.Int64("user", userID), zap.Error(err))
		_ = r.answerCallback(cb.ID, userFacingError(err))
		return
	}
	_ = r.answerCallback(cb.ID, "Deleted.")
	r.sendText(chatID, "Deadline deleted.")
}

// --- /edit: pick deadline, pick field, enter new value ---

func (r *Router) handleEdit(ctx context.Context, chatID, userID int64) {
	deadlines, err := r.deadlines.List(ctx, userID)
	if err != nil {
		r.log.Error("list failed", zap.Int64("user", userID), zap.Error(err))
		r.sendText(chatID, userFacingError(err))
		return
	}
	if len(deadlines) == 0 {
		r.sendText(chatID, "Nothing to edit.")
		return
	}

	msg := tgbotapi.NewMessage(chatID, "Pick a deadline to edit:")
	msg.ReplyMarkup = deadlinesKeyboard("edit", deadlines)
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Warn("send failed", zap.Int64("chat", chatID), zap.Error(err))
	}
}

func (r *Router) handleEditCallback(ctx context.Context, chatID, userID int64, cb *tgbotapi.CallbackQuery) {
	id, err := callbackID(cb.Data)
	if err != nil {
		_ = r.answerCallback(cb.ID, "Invalid deadline id.")
		return
	}
	d, err := r.deadlines.Get(ctx, id, userID)
	if err != nil {
		_ = r.answerCallback(cb.ID, userFacingError(err))
		return
	}

	r.setDialog(chatID, dialog{deadlineID: d.ID})
	_ = r.answerCallback(cb.ID, "")

	tz, tzErr := r.deadlines.Timezone(ctx, userID)
	if tzErr != nil {
		tz = "UTC"
	}
	msg := tgbotapi.NewMessage(chatID,
		fmt.Sprintf("What do you want to change?\n\n%s — %s", d.Title, domain.FormatLocal(d.DueAt, tz)))
	msg.ReplyMarkup = editFieldKeyboard()
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Warn("send failed", zap.Int64("chat", chatID), zap.Error(err))
	}
}

func (r *Router) handleEditFieldCallback(ctx context.Context, chatID int64, cb *tgbotapi.CallbackQuery) {
	field := strings.TrimPrefix(cb.Data, "edit_field:")
	cur := r.getDialog(chatID)
	_ = r.answerCallback(cb.ID, "")

	switch field {
	case "cancel":
		r.clearDialog(chatID)
		r.sendText(chatID, "Edit cancelled.")
	case "title":
		if cur.deadlineID == 0 {
			r.sendText(chatID, "Pick a deadline with /edit first.")
			return
		}
		r.setDialog(chatID, dialog{state: pendingEditTitle, deadlineID: cur.deadlineID})
		r.sendText(chatID, "Enter the new title:")
	case "datetime":
		if cur.deadlineID == 0 {
			r.sendText(chatID, "Pick a deadline with /edit first.")
			return
		}
		r.setDialog(chatID, dialog{state: pendingEditDate, deadlineID: cur.deadlineID})
		r.sendText(chatID, "Enter the new date as DD.MM.YYYY HH:MM:")
	}
}

// --- /timezone ---

func (r *Router) handleTimezone(ctx context.Context, chatID, userID int64, arg string) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		r.setDialog(chatID, dialog{state: pendingTimezone})
		r.sendText(chatID, "Enter your timezone (e.g. Europe/Moscow):")
		return
	}
	r.applyTimezone(ctx, chatID, userID, arg)
}

func (r *Router) applyTimezone(ctx context.Context, chatID, userID int64, tz string) {
	if err := r.deadlines.SetTimezone(ctx, userID, tz); err != nil {
		r.log.Warn("set timezone failed", zap.Int64("user", userID), zap.Error(err))
		r.sendText(chatID, userFacingError(err))
		return
	}
	r.sendText(chatID, "Timezone updated: "+tz)
}

// --- /notifications: toggle keyboard over the reminder kinds ---

func (r *Router) handleNotifications(ctx context.Context, chatID, userID int64) {
	s, err := r.notifs.GetOrCreateSettings(ctx, userID)
	if err != nil {
		r.log.Error("settings failed", zap.Int64("user", userID), zap.Error(err))
		r.sendText(chatID, userFacingError(err))
		return
	}
	msg := tgbotapi.NewMessage(chatID, settingsText)
	msg.ReplyMarkup = settingsKeyboard(s)
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Warn("send failed", zap.Int64("chat", chatID), zap.Error(err))
	}
}

func (r *Router) handleToggleCallback(ctx context.Context, chatID, userID int64, cb *tgbotapi.CallbackQuery) {
	kind, err := domain.ParseKind(strings.TrimPrefix(cb.Data, "notif_toggle:"))
	if err != nil {
		_ = r.answerCallback(cb.ID, userFacingError(err))
		return
	}

	s, err := r.notifs.Toggle(ctx, userID, kind)
	if err != nil {
		r.log.Warn("toggle failed",
			zap.Int64("user", userID), zap.String("kind", string(kind)), zap.Error(err))
		_ = r.answerCallback(cb.ID, userFacingError(err))
		return
	}
	_ = r.answerCallback(cb.ID, "Setting updated.")

	// Redraw the keyboard in place so the checkmarks stay current.
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, cb.Message.MessageID, settingsText, settingsKeyboard(s))
	if _, err := r.bot.Send(edit); err != nil {
		r.log.Warn("edit message failed", zap.Int64("chat", chatID), zap.Error(err))
	}
}

// --- Free-form dispatcher: feeds pending dialogs ---

func (r *Router) handleFreeForm(ctx context.Context, chatID, userID int64, text string) {
	cur := r.getDialog(chatID)
	switch cur.state {
	case pendingAddTitle:
		title, err := domain.ValidateTitle(text)
		if err != nil {
			r.sendText(chatID, userFacingError(err))
			return
		}
		r.setDialog(chatID, dialog{state: pendingAddDate, title: title})
		r.sendText(chatID, "Enter the date as DD.MM.YYYY HH:MM:")

	case pendingAddDate:
		tz, err := r.deadlines.Timezone(ctx, userID)
		if err != nil {
			tz = "UTC"
		}
		dueAt, err := domain.ParseDueLocal(text, tz)
		if err != nil {
			r.sendText(chatID, "Could not read that date. Format: DD.MM.YYYY HH:MM")
			return
		}
		d, err := r.deadlines.Create(ctx, userID, cur.title, dueAt)
		if err != nil {
			r.sendText(chatID, userFacingError(err))
			return
		}
		r.clearDialog(chatID)
		r.sendText(chatID, fmt.Sprintf("Deadline added: \"%s\" at %s.",
			d.Title, domain.FormatLocal(d.DueAt, tz)))

	case pendingEditTitle:
		r.clearDialog(chatID)
		if err := r.deadlines.Update(ctx, cur.deadlineID, &text, nil); err != nil {
			r.sendText(chatID, userFacingError(err))
			return
		}
		r.sendText(chatID, "Title updated.")

	case pendingEditDate:
		tz, err := r.deadlines.Timezone(ctx, userID)
		if err != nil {
			tz = "UTC"
		}
		dueAt, err := domain.ParseDueLocal(text, tz)
		if err != nil {
			r.sendText(chatID, "Could not read that date. Format: DD.MM.YYYY HH:MM")
			return
		}
		r.clearDialog(chatID)
		if err := r.deadlines.Update(ctx, cur.deadlineID, nil, &dueAt); err != nil {
			r.sendText(chatID, userFacingError(err))
			return
		}
		r.sendText(chatID, "Date updated: "+domain.FormatLocal(dueAt, tz))

	case pendingTimezone:
		r.clearDialog(chatID)
		r.applyTimezone(ctx, chatID, userID, text)

	default:
		if text != "" {
			r.sendText(chatID, "I did not get that. See /help for commands.")
		}
	}
}

// callbackID extracts the numeric id after the first ":" of callback data.
func callbackID(data string) (int64, error) {
	_, raw, ok := strings.Cut(data, ":")
	if !ok {
		return 0, fmt.Errorf("malformed callback data: %q", data)
	}
	return strconv.ParseInt(raw, 10, 64)
}
