package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Granzh/deadlines-telegram-bot/internal/domain"
	"github.com/Granzh/deadlines-telegram-bot/internal/store"
)

// DeadlineService owns validation and ownership rules for deadlines and the
// timezone preference of their owners. All persistence goes through Repo.
type DeadlineService struct {
	repo store.Repo
	log  *zap.Logger
	now  func() time.Time
}

// NewDeadlineService creates a DeadlineService.
func NewDeadlineService(repo store.Repo, log *zap.Logger) *DeadlineService {
	return &DeadlineService{repo: repo, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Create validates and persists a new deadline for ownerID.
func (s *DeadlineService) Create(ctx context.Context, ownerID int64, title string, dueAt time.Time) (*domain.Deadline, error) {
	title, err := domain.ValidateTitle(title)
	if err != nil {
		return nil, err
	}
	dueAt, err = domain.ValidateDue(dueAt, s.now())
	if err != nil {
		return nil, err
	}

	d := &domain.Deadline{UserID: ownerID, Title: title, DueAt: dueAt}
	if err := s.repo.CreateDeadline(ctx, d); err != nil {
		s.log.Error("create deadline failed", zap.Int64("user", ownerID), zap.Error(err))
		return nil, fmt.Errorf("create deadline: %w", err)
	}
	return d, nil
}

// List returns ownerID's deadlines, soonest first.
func (s *DeadlineService) List(ctx context.Context, ownerID int64) ([]domain.Deadline, error) {
	return s.repo.ListDeadlines(ctx, ownerID)
}

// Get returns a deadline by id after checking ownership. A row owned by a
// different user fails with ErrNotOwner, not ErrDeadlineNotFound: callers
// may blur the two in user-facing text but tests rely on the distinction.
func (s *DeadlineService) Get(ctx context.Context, id, ownerID int64) (*domain.Deadline, error) {
	d, err := s.repo.GetDeadline(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.UserID != ownerID {
		return nil, fmt.Errorf("%w: id %d", domain.ErrNotOwner, id)
	}
	return d, nil
}

// Update applies a partial update: nil fields keep their current value,
// supplied fields are re-validated.
func (s *DeadlineService) Update(ctx context.Context, id int64, title *string, dueAt *time.Time) error {
	d, err := s.repo.GetDeadline(ctx, id)
	if err != nil {
		return err
	}

	newTitle := d.Title
	if title != nil {
		newTitle, err = domain.ValidateTitle(*title)
		if err != nil {
			return err
		}
	}
	newDue := d.DueAt
	if dueAt != nil {
		newDue, err = domain.ValidateDue(*dueAt, s.now())
		if err != nil {
			return err
		}
	}

	if err := s.repo.UpdateDeadline(ctx, id, newTitle, newDue); err != nil {
		s.log.Error("update deadline failed", zap.Int64("deadline", id), zap.Error(err))
		return err
	}
	return nil
}

// Delete removes a deadline after checking ownership; the row stays intact
// when the requester is not the owner.
func (s *DeadlineService) Delete(ctx context.Context, id, ownerID int64) error {
	if _, err := s.Get(ctx, id, ownerID); err != nil {
		return err
	}
	return s.repo.DeleteDeadline(ctx, id)
}

// GetOrCreateUser lazily creates the owner's user row.
func (s *DeadlineService) GetOrCreateUser(ctx context.Context, telegramID int64) (*domain.User, error) {
	return s.repo.GetOrCreateUser(ctx, telegramID)
}

// SetTimezone validates and stores an IANA timezone for the user. On an
// unresolvable name the stored value is left untouched.
func (s *DeadlineService) SetTimezone(ctx context.Context, telegramID int64, tz string) error {
	tz, err := domain.ValidateTZ(tz)
	if err != nil {
		return err
	}
	return s.repo.SetTimezone(ctx, telegramID, tz)
}

// Timezone returns the user's timezone, defaulting to "UTC" when the user
// has never been seen.
func (s *DeadlineService) Timezone(ctx context.Context, telegramID int64) (string, error) {
	return s.repo.Timezone(ctx, telegramID)
}
