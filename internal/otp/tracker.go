package otp

import (
	"context"
	"strings"
	"time"

	"peelojuice-staff/internal/sessionstore"
)

const sentAtPrefix = "otpSentAt:"

// Tracker remembers when a verification code was last sent to each address,
// so the cooldown survives between console invocations.
type Tracker struct {
	store    sessionstore.Store
	interval time.Duration
	now      func() time.Time
}

func NewTracker(store sessionstore.Store, interval time.Duration, now func() time.Time) *Tracker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if now == nil {
		now = time.Now
	}
	return &Tracker{store: store, interval: interval, now: now}
}

func sentAtKey(email string) string {
	return sentAtPrefix + strings.ToLower(strings.TrimSpace(email))
}

// Countdown resumes the cooldown for email. An address with no recorded
// send, or an unreadable record, may resend immediately.
func (t *Tracker) Countdown(ctx context.Context, email string) (*Countdown, error) {
	key := sentAtKey(email)
	values, err := t.store.Get(ctx, []string{key})
	if err != nil {
		return Resume(t.interval, time.Time{}, t.now()), err
	}

	sentAt, err := time.Parse(time.RFC3339Nano, values[key])
	if err != nil {
		sentAt = time.Time{}
	}
	return Resume(t.interval, sentAt, t.now()), nil
}

// MarkSent starts a new cooldown for email.
func (t *Tracker) MarkSent(ctx context.Context, email string) error {
	return t.store.SetAll(ctx, map[string]string{
		sentAtKey(email): t.now().UTC().Format(time.RFC3339Nano),
	})
}
