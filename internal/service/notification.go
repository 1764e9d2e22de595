package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Granzh/deadlines-telegram-bot/internal/domain"
	"github.com/Granzh/deadlines-telegram-bot/internal/store"
)

// PendingReminder is one reminder the scheduler should dispatch: a deadline
// and the kind that is currently due and not yet in the ledger.
type PendingReminder struct {
	Deadline domain.Deadline
	Kind     domain.Kind
}

// NotificationService owns per-user notification settings, the sent-marker
// ledger, and the evaluation of which reminders are currently due.
type NotificationService struct {
	repo   store.Repo
	log    *zap.Logger
	window time.Duration
}

// NewNotificationService creates a NotificationService. window is how far
// past each lead-time threshold a reminder still matches; zero means
// domain.DefaultWindow.
func NewNotificationService(repo store.Repo, log *zap.Logger, window time.Duration) *NotificationService {
	if window <= 0 {
		window = domain.DefaultWindow
	}
	return &NotificationService{repo: repo, log: log, window: window}
}

// GetOrCreateSettings returns the user's settings, inserting a row with the
// defaults on first access.
func (s *NotificationService) GetOrCreateSettings(ctx context.Context, userID int64) (domain.Settings, error) {
	existing, err := s.repo.GetSettings(ctx, userID)
	if err != nil {
		return domain.Settings{}, err
	}
	if existing != nil {
		return *existing, nil
	}
	created, err := s.repo.CreateSettings(ctx, domain.DefaultSettings(userID))
	if err != nil {
		return domain.Settings{}, err
	}
	return *created, nil
}

// Toggle flips one named flag and returns the updated settings. Unknown
// kind names are rejected before any write.
func (s *NotificationService) Toggle(ctx context.Context, userID int64, kind domain.Kind) (domain.Settings, error) {
	cur, err := s.GetOrCreateSettings(ctx, userID)
	if err != nil {
		return domain.Settings{}, err
	}
	next, err := cur.Toggle(kind)
	if err != nil {
		return domain.Settings{}, err
	}
	if err := s.repo.SaveSettings(ctx, next); err != nil {
		return domain.Settings{}, err
	}
	return next, nil
}

// CollectDue evaluates every future deadline against its owner's settings
// and the ledger, returning the reminders to dispatch right now. Owners
// without a settings row get no lead-time reminders at all.
func (s *NotificationService) CollectDue(ctx context.Context, now time.Time) ([]PendingReminder, error) {
	deadlines, err := s.repo.ListUpcoming(ctx, now)
	if err != nil {
		return nil, err
	}

	settingsByUser := make(map[int64]*domain.Settings)
	var pending []PendingReminder
	for _, d := range deadlines {
		st, ok := settingsByUser[d.UserID]
		if !ok {
			st, err = s.repo.GetSettings(ctx, d.UserID)
			if err != nil {
				s.log.Error("load settings failed",
					zap.Int64("user", d.UserID), zap.Error(err))
				continue
			}
			settingsByUser[d.UserID] = st
		}
		if st == nil {
			continue
		}

		for _, kind := range domain.DueKinds(d.DueAt, *st, now, s.window) {
			if s.WasSent(ctx, d.ID, kind) {
				continue
			}
			pending = append(pending, PendingReminder{Deadline: d, Kind: kind})
		}
	}
	return pending, nil
}

// WasSent reports whether a marker exists. On a store failure it returns
// true: under-notifying beats spamming the user on every tick.
func (s *NotificationService) WasSent(ctx context.Context, deadlineID int64, kind domain.Kind) bool {
	sent, err := s.repo.WasSent(ctx, deadlineID, kind)
	if err != nil {
		s.log.Error("ledger lookup failed, assuming sent",
			zap.Int64("deadline", deadlineID), zap.String("kind", string(kind)), zap.Error(err))
		return true
	}
	return sent
}

// MarkSent records a dispatched reminder in the ledger.
func (s *NotificationService) MarkSent(ctx context.Context, deadlineID int64, kind domain.Kind) error {
	if err := s.repo.MarkSent(ctx, deadlineID, kind, time.Now().UTC()); err != nil {
		return fmt.Errorf("%w: mark %s for deadline %d: %v",
			domain.ErrNotification, kind, deadlineID, err)
	}
	return nil
}
