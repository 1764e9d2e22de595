package telegram

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Granzh/deadlines-telegram-bot/internal/domain"
)

func TestUserFacingError_DistinguishesInputFromInfrastructure(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{domain.ErrEmptyTitle, "The title cannot be empty."},
		{fmt.Errorf("%w: max 200 characters", domain.ErrTitleTooLong), "The title is too long (max 200 characters)."},
		{domain.ErrPastDeadline, "That moment is already in the past. Pick a future date."},
		{domain.ErrInvalidTimezone, "Unknown timezone. Use an IANA name like Europe/Moscow."},
		{errors.New("driver: bad connection"), "Something went wrong, try again later."},
	}
	for _, c := range cases {
		if got := userFacingError(c.err); got != c.want {
			t.Errorf("%v: got %q, want %q", c.err, got, c.want)
		}
	}
}

func TestUserFacingError_DoesNotLeakOwnership(t *testing.T) {
	// A cross-user access attempt must read exactly like not-found.
	notFound := userFacingError(domain.ErrDeadlineNotFound)
	notOwner := userFacingError(domain.ErrNotOwner)
	if notFound != notOwner {
		t.Fatalf("ownership leak: %q vs %q", notOwner, notFound)
	}
}

func TestCallbackID(t *testing.T) {
	id, err := callbackID("delete:42")
	if err != nil || id != 42 {
		t.Fatalf("got (%d, %v)", id, err)
	}
	if _, err := callbackID("delete:"); err == nil {
		t.Fatal("empty id must fail")
	}
	if _, err := callbackID("noseparator"); err == nil {
		t.Fatal("missing separator must fail")
	}
	if _, err := callbackID("delete:forty-two"); err == nil {
		t.Fatal("non-numeric id must fail")
	}
}

func TestUserLimiter(t *testing.T) {
	l := newUserLimiter(0.001, 2)

	// Burst of 2, then refusal; an unrelated user is unaffected.
	if !l.Allow(1) || !l.Allow(1) {
		t.Fatal("burst must be allowed")
	}
	if l.Allow(1) {
		t.Fatal("third call must be limited")
	}
	if !l.Allow(2) {
		t.Fatal("other user must not share the bucket")
	}
}
