package telegram

import (
	"context"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Granzh/deadlines-telegram-bot/internal/service"
)

// Pending dialog states used in multi-step flows.
const (
	pendingAddTitle  = "await_add_title"
	pendingAddDate   = "await_add_date"
	pendingEditTitle = "await_edit_title"
	pendingEditDate  = "await_edit_date"
	pendingTimezone  = "await_timezone"
)

// dialog is the in-memory state of one chat's multi-step flow. Lost on
// restart, which only costs the user a re-typed command.
type dialog struct {
	state      string
	title      string // captured by the /add flow
	deadlineID int64  // target of the /edit flow
}

// Router wires Telegram updates to handlers and holds minimal in-memory state.
type Router struct {
	bot       *tgbotapi.BotAPI
	log       *zap.Logger
	deadlines *service.DeadlineService
	notifs    *service.NotificationService
	limiter   *userLimiter
	state     map[int64]dialog // chatID -> pending dialog
	mu        sync.RWMutex
}

// NewRouter creates a new Telegram router.
func NewRouter(bot *tgbotapi.BotAPI, log *zap.Logger, deadlines *service.DeadlineService, notifs *service.NotificationService, rps float64, burst int) *Router {
	return &Router{
		bot:       bot,
		log:       log,
		deadlines: deadlines,
		notifs:    notifs,
		limiter:   newUserLimiter(rps, burst),
		state:     make(map[int64]dialog),
	}
}

func (r *Router) setDialog(chatID int64, d dialog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state[chatID] = d
}

func (r *Router) getDialog(chatID int64) dialog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state[chatID]
}

func (r *Router) clearDialog(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.state, chatID)
}

// HandleUpdate routes a single update to the appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		msg := upd.Message
		if msg.From == nil {
			return
		}
		chatID := msg.Chat.ID
		userID := msg.From.ID

		if !r.limiter.Allow(userID) {
			r.sendText(chatID, rateLimitedText)
			return
		}

		switch msg.Command() {
		case "start":
			r.handleStart(ctx, chatID, userID)
		case "help":
			r.sendText(chatID, helpText)
		case "add":
			r.handleAdd(chatID)
		case "list":
			r.handleList(ctx, chatID, userID)
		case "edit":
			r.handleEdit(ctx, chatID, userID)
		case "delete":
			r.handleDelete(ctx, chatID, userID)
		case "timezone":
			r.handleTimezone(ctx, chatID, userID, msg.CommandArguments())
		case "notifications":
			r.handleNotifications(ctx, chatID, userID)
		default:
			// Free-form text feeds whatever dialog is pending.
			r.handleFreeForm(ctx, chatID, userID, strings.TrimSpace(msg.Text))
		}
		return
	}

	if upd.CallbackQuery != nil {
		cb := upd.CallbackQuery
		if cb.Message == nil || cb.From == nil {
			return
		}
		chatID := cb.Message.Chat.ID
		userID := cb.From.ID

		if !r.limiter.Allow(userID) {
			_ = r.answerCallback(cb.ID, rateLimitedText)
			return
		}

		data := cb.Data
		switch {
		case strings.HasPrefix(data, "delete:"):
			r.handleDeleteCallback(ctx, chatID, userID, cb)
		case strings.HasPrefix(data, "edit:"):
			r.handleEditCallback(ctx, chatID, userID, cb)
		case strings.HasPrefix(data, "edit_field:"):
			r.handleEditFieldCallback(ctx, chatID, cb)
		case strings.HasPrefix(data, "notif_toggle:"):
			r.handleToggleCallback(ctx, chatID, userID, cb)
		default:
			// Unknown callback — ignore silently.
			_ = r.answerCallback(cb.ID, "")
		}
	}
}

// Send delivers a plain text message to the given chat. This makes Router
// satisfy scheduler.Sender.
func (r *Router) Send(chatID int64, text string) error {
	_, err := r.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// --- Generic helpers ---

func (r *Router) sendText(chatID int64, text string) {
	if _, err := r.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.log.Warn("send failed", zap.Int64("chat", chatID), zap.Error(err))
	}
}

func (r *Router) answerCallback(id, text string) error {
	_, err := r.bot.Request(tgbotapi.NewCallback(id, text))
	return err
}
