package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Granzh/deadlines-telegram-bot/internal/domain"
	"github.com/Granzh/deadlines-telegram-bot/internal/service"
	"github.com/Granzh/deadlines-telegram-bot/internal/store"
)

// fakeSender records sends and can fail selected chats.
type fakeSender struct {
	sent     []sentMsg
	failChat map[int64]bool
}

type sentMsg struct {
	chatID int64
	text   string
}

func (f *fakeSender) Send(chatID int64, text string) error {
	if f.failChat[chatID] {
		return fmt.Errorf("chat %d unreachable", chatID)
	}
	f.sent = append(f.sent, sentMsg{chatID: chatID, text: text})
	return nil
}

type fixture struct {
	repo      *store.SQLiteRepo
	deadlines *service.DeadlineService
	notifs    *service.NotificationService
	sender    *fakeSender
	sched     *Scheduler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	log := zap.NewNop()
	ds := service.NewDeadlineService(repo, log)
	ns := service.NewNotificationService(repo, log, 0)
	sender := &fakeSender{failChat: map[int64]bool{}}
	sched := New(repo, ns, sender, log, time.Minute)
	return &fixture{repo: repo, deadlines: ds, notifs: ns, sender: sender, sched: sched}
}

func (f *fixture) tickAt(ctx context.Context, at time.Time) {
	f.sched.now = func() time.Time { return at }
	f.sched.Tick(ctx)
}

func TestTick_ReminderSentOnceThenSuppressed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	if _, err := f.notifs.Toggle(ctx, 10, domain.KindOneHour); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	// Due 1h+90s out: inside the 1-hour window on the first tick and still
	// inside it one minute later.
	if _, err := f.deadlines.Create(ctx, 10, "hand in thesis", base.Add(time.Hour+90*time.Second)); err != nil {
		t.Fatalf("create: %v", err)
	}

	f.tickAt(ctx, base)
	if len(f.sender.sent) != 1 {
		t.Fatalf("first tick: want 1 send, got %d (%+v)", len(f.sender.sent), f.sender.sent)
	}
	if got := f.sender.sent[0]; got.chatID != 10 || !strings.Contains(got.text, "in 1 hour") {
		t.Fatalf("unexpected message: %+v", got)
	}

	f.tickAt(ctx, base.Add(time.Minute))
	if len(f.sender.sent) != 1 {
		t.Fatalf("second tick resent: %+v", f.sender.sent)
	}

	if _, found := f.sched.LastTick(); !found {
		t.Fatal("last tick not recorded")
	}
}

func TestTick_OverdueIsUnconditional(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	// Owner 20 has no settings row; insert a past deadline directly, the
	// service would rightly reject it.
	d := &domain.Deadline{UserID: 20, Title: "expired", DueAt: base.Add(-10 * time.Second)}
	if err := f.repo.CreateDeadline(ctx, d); err != nil {
		t.Fatalf("insert: %v", err)
	}

	f.tickAt(ctx, base)
	if len(f.sender.sent) != 1 {
		t.Fatalf("want 1 overdue notice, got %+v", f.sender.sent)
	}
	if !strings.Contains(f.sender.sent[0].text, "overdue") {
		t.Fatalf("not an overdue notice: %q", f.sender.sent[0].text)
	}

	// Second tick: the ledger marker suppresses a repeat.
	f.tickAt(ctx, base.Add(time.Minute))
	if len(f.sender.sent) != 1 {
		t.Fatalf("overdue notice repeated: %+v", f.sender.sent)
	}
}

func TestTick_OneFailingDispatchDoesNotBlockOthers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	for _, chat := range []int64{30, 31, 32} {
		if _, err := f.notifs.Toggle(ctx, chat, domain.KindOneHour); err != nil {
			t.Fatalf("toggle: %v", err)
		}
		if _, err := f.deadlines.Create(ctx, chat, "task", base.Add(time.Hour+90*time.Second)); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	f.sender.failChat[31] = true

	f.tickAt(ctx, base)
	if len(f.sender.sent) != 2 {
		t.Fatalf("want sends for the two healthy chats, got %+v", f.sender.sent)
	}
	for _, m := range f.sender.sent {
		if m.chatID == 31 {
			t.Fatalf("failed chat recorded a send: %+v", m)
		}
	}

	// No marker was written for the failed chat, so it retries next tick.
	f.sender.failChat[31] = false
	f.tickAt(ctx, base.Add(time.Minute))
	if len(f.sender.sent) != 3 {
		t.Fatalf("failed reminder not retried: %+v", f.sender.sent)
	}
	if f.sender.sent[2].chatID != 31 {
		t.Fatalf("retry went to the wrong chat: %+v", f.sender.sent[2])
	}
}

// failingBackend stands in for a store that every fetch bounces off.
type failingBackend struct{ err error }

func (f *failingBackend) ListOverdue(context.Context, time.Time) ([]domain.Deadline, error) {
	return nil, f.err
}

func (f *failingBackend) Timezone(context.Context, int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "UTC", nil
}

func (f *failingBackend) CollectDue(context.Context, time.Time) ([]service.PendingReminder, error) {
	return nil, f.err
}

func (f *failingBackend) MarkSent(context.Context, int64, domain.Kind) error {
	return f.err
}

func TestTick_FailedFetchesDoNotAdvanceLastTick(t *testing.T) {
	be := &failingBackend{err: fmt.Errorf("database is locked")}
	sender := &fakeSender{failChat: map[int64]bool{}}
	sched := New(be, be, sender, zap.NewNop(), time.Minute)

	sched.Tick(context.Background())
	if _, found := sched.LastTick(); found {
		t.Fatal("tick with both fetch passes failing must not count as healthy")
	}

	// Once the store recovers, ticks register again.
	be.err = nil
	sched.Tick(context.Background())
	if _, found := sched.LastTick(); !found {
		t.Fatal("healthy tick not recorded")
	}
}

func TestTick_DueInstantRenderedInOwnerTimezone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Minute)

	if err := f.repo.SetTimezone(ctx, 40, "Europe/Moscow"); err != nil {
		t.Fatalf("set tz: %v", err)
	}
	if _, err := f.notifs.Toggle(ctx, 40, domain.KindOneHour); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	due := base.Add(time.Hour + 90*time.Second)
	if _, err := f.deadlines.Create(ctx, 40, "call", due); err != nil {
		t.Fatalf("create: %v", err)
	}

	f.tickAt(ctx, base)
	if len(f.sender.sent) != 1 {
		t.Fatalf("want 1 send, got %+v", f.sender.sent)
	}
	want := domain.FormatLocal(due, "Europe/Moscow")
	if !strings.Contains(f.sender.sent[0].text, want) {
		t.Fatalf("due instant not localized: %q (want %q)", f.sender.sent[0].text, want)
	}
}
