// Package spamguard throttles content creation per client IP and action with a
// sliding window over the persisted rate limit ledger.
package spamguard

import (
	"fmt"
	"time"

	"github.com/vibecoder/vibecoder/database"
	"github.com/vibecoder/vibecoder/item"
)

const (
	Window  = time.Minute
	Budget  = 3
	Horizon = time.Hour
)

// SpamGuard keeps no state of its own. Check and record are separate round trips,
// so two simultaneous requests may both pass a nearly spent budget.
type SpamGuard struct {
	ledger  database.Ledger
	window  time.Duration
	budget  int
	horizon time.Duration
	now     func() time.Time
}

func New(ledger database.Ledger) *SpamGuard {
	return &SpamGuard{
		ledger:  ledger,
		window:  Window,
		budget:  Budget,
		horizon: Horizon,
		now:     time.Now,
	}
}

// WithClock replaces the time source.
func (sg *SpamGuard) WithClock(now func() time.Time) *SpamGuard {
	c := *sg
	c.now = now
	return &c
}

// With returns a copy writing to ledger, typically a transaction.
func (sg *SpamGuard) With(ledger database.Ledger) *SpamGuard {
	c := *sg
	c.ledger = ledger
	return &c
}

// CanPost reports whether ip still has budget for action in the current window.
func (sg *SpamGuard) CanPost(ip string, action item.Action) (bool, error) {
	count, err := sg.ledger.CountRecords(ip, action, sg.now().Add(-sg.window))
	if err != nil {
		return false, fmt.Errorf("count rate limit records: %w", err)
	}
	return count < sg.budget, nil
}

// Record logs an accepted action and prunes every ledger row past the horizon.
func (sg *SpamGuard) Record(ip string, action item.Action) error {
	now := sg.now()
	if err := sg.ledger.AddRecord(item.RateLimitRecord{IPAddress: ip, Action: action, CreatedAt: now}); err != nil {
		return fmt.Errorf("add rate limit record: %w", err)
	}
	return sg.clean(now)
}

func (sg *SpamGuard) clean(now time.Time) error {
	if _, err := sg.ledger.DeleteRecordsBefore(now.Add(-sg.horizon)); err != nil {
		return fmt.Errorf("prune rate limit records: %w", err)
	}
	return nil
}
