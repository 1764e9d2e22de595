package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Granzh/deadlines-telegram-bot/internal/domain"
	"github.com/Granzh/deadlines-telegram-bot/internal/store"
)

func newTestServices(t *testing.T) (*DeadlineService, *NotificationService, store.Repo) {
	t.Helper()
	repo, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	log := zap.NewNop()
	return NewDeadlineService(repo, log), NewNotificationService(repo, log, 0), repo
}

func TestCreate_ValidatesAndNormalizes(t *testing.T) {
	ds, _, _ := newTestServices(t)
	ctx := context.Background()

	msk, _ := time.LoadLocation("Europe/Moscow")
	due := time.Now().In(msk).Add(24 * time.Hour).Truncate(time.Second)

	d, err := ds.Create(ctx, 1, "  ship the release  ", due)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if d.ID == 0 {
		t.Fatal("id not assigned")
	}
	if d.Title != "ship the release" {
		t.Fatalf("title not trimmed: %q", d.Title)
	}
	if d.DueAt.Location() != time.UTC || !d.DueAt.Equal(due) {
		t.Fatalf("due not normalized: %v vs %v", d.DueAt, due)
	}
}

func TestCreate_Rejections(t *testing.T) {
	ds, _, _ := newTestServices(t)
	ctx := context.Background()
	future := time.Now().UTC().Add(time.Hour)

	if _, err := ds.Create(ctx, 1, "   ", future); !errors.Is(err, domain.ErrEmptyTitle) {
		t.Fatalf("whitespace title: got %v", err)
	}
	if _, err := ds.Create(ctx, 1, "late", time.Now().UTC().Add(-time.Minute)); !errors.Is(err, domain.ErrPastDeadline) {
		t.Fatalf("past due: got %v", err)
	}

	// Title validation applies regardless of the due instant.
	if _, err := ds.Create(ctx, 1, "", time.Now().UTC().Add(-time.Hour)); !errors.Is(err, domain.ErrEmptyTitle) {
		t.Fatalf("empty title with past due: got %v", err)
	}
}

func TestGetDelete_Ownership(t *testing.T) {
	ds, _, _ := newTestServices(t)
	ctx := context.Background()

	d, err := ds.Create(ctx, 500, "owned by A", time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := ds.Get(ctx, d.ID, 501); !errors.Is(err, domain.ErrNotOwner) {
		t.Fatalf("cross-user get: got %v", err)
	}
	if err := ds.Delete(ctx, d.ID, 501); !errors.Is(err, domain.ErrNotOwner) {
		t.Fatalf("cross-user delete: got %v", err)
	}
	// Row intact after the rejected delete.
	if _, err := ds.Get(ctx, d.ID, 500); err != nil {
		t.Fatalf("row must survive rejected delete: %v", err)
	}

	if err := ds.Delete(ctx, d.ID, 500); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, err := ds.Get(ctx, d.ID, 500); !errors.Is(err, domain.ErrDeadlineNotFound) {
		t.Fatalf("deleted get: got %v", err)
	}
	if err := ds.Delete(ctx, 4242, 500); !errors.Is(err, domain.ErrDeadlineNotFound) {
		t.Fatalf("missing delete: got %v", err)
	}
}

func TestUpdate_PartialAndValidated(t *testing.T) {
	ds, _, _ := newTestServices(t)
	ctx := context.Background()

	d, err := ds.Create(ctx, 1, "original", time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	title := "renamed"
	if err := ds.Update(ctx, d.ID, &title, nil); err != nil {
		t.Fatalf("update title: %v", err)
	}
	got, _ := ds.Get(ctx, d.ID, 1)
	if got.Title != "renamed" || !got.DueAt.Equal(d.DueAt) {
		t.Fatalf("partial update touched due_at: %+v", got)
	}

	past := time.Now().UTC().Add(-time.Hour)
	if err := ds.Update(ctx, d.ID, nil, &past); !errors.Is(err, domain.ErrPastDeadline) {
		t.Fatalf("past due update: got %v", err)
	}
	bad := " "
	if err := ds.Update(ctx, d.ID, &bad, nil); !errors.Is(err, domain.ErrEmptyTitle) {
		t.Fatalf("blank title update: got %v", err)
	}
	if err := ds.Update(ctx, 9999, &title, nil); !errors.Is(err, domain.ErrDeadlineNotFound) {
		t.Fatalf("missing update: got %v", err)
	}
}

func TestTimezone_RoundTripAndInvalid(t *testing.T) {
	ds, _, _ := newTestServices(t)
	ctx := context.Background()

	if err := ds.SetTimezone(ctx, 9, "Europe/Moscow"); err != nil {
		t.Fatalf("set tz: %v", err)
	}
	tz, err := ds.Timezone(ctx, 9)
	if err != nil {
		t.Fatalf("get tz: %v", err)
	}
	if tz != "Europe/Moscow" {
		t.Fatalf("round trip: got %q", tz)
	}

	if err := ds.SetTimezone(ctx, 9, "Not/AZone"); !errors.Is(err, domain.ErrInvalidTimezone) {
		t.Fatalf("invalid tz: got %v", err)
	}
	tz, _ = ds.Timezone(ctx, 9)
	if tz != "Europe/Moscow" {
		t.Fatalf("prior tz must survive a failed set: got %q", tz)
	}
}
