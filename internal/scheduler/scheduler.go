package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Granzh/deadlines-telegram-bot/internal/domain"
	"github.com/Granzh/deadlines-telegram-bot/internal/service"
)

// Sender is the minimal contract the scheduler needs to deliver a message.
// telegram.Router implements it. Delivery is best-effort: an error here is
// logged and the reminder retries on a later tick (no ledger marker is
// written for a failed send).
type Sender interface {
	Send(chatID int64, text string) error
}

// Store is the slice of the repository the scheduler reads directly.
type Store interface {
	ListOverdue(ctx context.Context, now time.Time) ([]domain.Deadline, error)
	Timezone(ctx context.Context, telegramID int64) (string, error)
}

// Notifications evaluates due reminders and owns the sent ledger.
type Notifications interface {
	CollectDue(ctx context.Context, now time.Time) ([]service.PendingReminder, error)
	MarkSent(ctx context.Context, deadlineID int64, kind domain.Kind) error
}

// Scheduler runs the periodic deadline scan: an overdue pass and an
// upcoming-reminder pass per tick. Ticks never overlap (SkipIfStillRunning)
// and per-item failures never abort the rest of a tick.
type Scheduler struct {
	store         Store
	notifications Notifications
	sender        Sender
	log           *zap.Logger
	interval      time.Duration
	now           func() time.Time

	cron *cron.Cron

	mu       sync.Mutex
	lastTick time.Time
}

// New creates a Scheduler that scans every interval.
func New(store Store, notifications Notifications, sender Sender, log *zap.Logger, interval time.Duration) *Scheduler {
	return &Scheduler{
		store:         store,
		notifications: notifications,
		sender:        sender,
		log:           log,
		interval:      interval,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Start begins periodic execution. If a tick is still running when the next
// one is due, the new tick is skipped rather than run concurrently.
func (s *Scheduler) Start(ctx context.Context) error {
	clog := &cronLogger{log: s.log}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(clog), cron.Recover(clog)),
	)
	if _, err := c.AddFunc("@every "+s.interval.String(), func() { s.Tick(ctx) }); err != nil {
		return err
	}
	s.cron = c
	c.Start()
	s.log.Info("scheduler started", zap.Duration("interval", s.interval))
	return nil
}

// Stop halts scheduling and waits for an in-flight tick up to the given
// context's deadline, logging a warning if it did not finish in time.
func (s *Scheduler) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	done := s.cron.Stop().Done()
	select {
	case <-done:
		s.log.Info("scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("scheduler stopped with a tick still in flight")
	}
}

// LastTick returns when the most recent healthy tick completed, if any.
// A tick where both fetch passes failed does not count: the health endpoint
// uses this as a liveness signal and must go stale when the store is down.
func (s *Scheduler) LastTick() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTick, !s.lastTick.IsZero()
}

// Tick runs one scan cycle. Exported so tests (and a future admin command)
// can drive the pipeline without the cron.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now()

	overdueOK := s.notifyOverdue(ctx, now)
	upcomingOK := s.notifyUpcoming(ctx, now)
	if !overdueOK && !upcomingOK {
		return
	}

	s.mu.Lock()
	s.lastTick = now
	s.mu.Unlock()
}

// notifyOverdue sends the one-time overdue notice for every deadline whose
// due instant has passed and that carries no "overdue" ledger marker. The
// notice is unconditional: it does not consult the owner's settings.
// It reports whether the fetch itself succeeded.
func (s *Scheduler) notifyOverdue(ctx context.Context, now time.Time) bool {
	overdue, err := s.store.ListOverdue(ctx, now)
	if err != nil {
		// Store unreachable: fatal for this tick, retried on the next one.
		s.log.Error("overdue fetch failed", zap.Error(err))
		return false
	}

	for _, d := range overdue {
		text := overdueText(d, s.timezoneFor(ctx, d.UserID))
		if err := s.sender.Send(d.UserID, text); err != nil {
			s.log.Error("overdue dispatch failed",
				zap.Int64("deadline", d.ID), zap.Int64("chat", d.UserID), zap.Error(err))
			continue
		}
		if err := s.notifications.MarkSent(ctx, d.ID, domain.KindOverdue); err != nil {
			// The notice went out but the marker did not stick; the user may
			// see it again next tick. Under the ledger design that is the
			// accepted failure mode.
			s.log.Error("overdue marker failed", zap.Int64("deadline", d.ID), zap.Error(err))
		}
	}
	return true
}

// notifyUpcoming dispatches every lead-time reminder the policy evaluator
// and the ledger agree is currently due. It reports whether the fetch
// itself succeeded.
func (s *Scheduler) notifyUpcoming(ctx context.Context, now time.Time) bool {
	pending, err := s.notifications.CollectDue(ctx, now)
	if err != nil {
		s.log.Error("upcoming fetch failed", zap.Error(err))
		return false
	}

	for _, p := range pending {
		d := p.Deadline
		text := reminderText(p.Kind, d, s.timezoneFor(ctx, d.UserID))
		if err := s.sender.Send(d.UserID, text); err != nil {
			s.log.Error("reminder dispatch failed",
				zap.Int64("deadline", d.ID), zap.String("kind", string(p.Kind)), zap.Error(err))
			continue
		}
		if err := s.notifications.MarkSent(ctx, d.ID, p.Kind); err != nil {
			s.log.Error("reminder marker failed",
				zap.Int64("deadline", d.ID), zap.String("kind", string(p.Kind)), zap.Error(err))
		}
	}
	return true
}

func (s *Scheduler) timezoneFor(ctx context.Context, telegramID int64) string {
	tz, err := s.store.Timezone(ctx, telegramID)
	if err != nil {
		s.log.Warn("timezone lookup failed, rendering in UTC",
			zap.Int64("chat", telegramID), zap.Error(err))
		return "UTC"
	}
	return tz
}

// cronLogger adapts zap to the cron.Logger interface.
type cronLogger struct{ log *zap.Logger }

func (l *cronLogger) Info(msg string, kv ...interface{}) {
	l.log.Sugar().Infow("cron: "+msg, kv...)
}

func (l *cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.log.Sugar().Errorw("cron: "+msg, append(kv, "error", err)...)
}
