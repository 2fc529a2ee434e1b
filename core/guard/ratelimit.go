package guard

import (
	"context"
	"time"
)

// Policy is a fixed-window limit: at most Max hits per Window, then the identifier is blocked for Block.
type Policy struct {
	Name   string
	Max    int
	Window time.Duration
	Block  time.Duration
}

// Decision is the outcome of a single Hit.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Entry is the counter state kept per (policy, identifier).
type Entry struct {
	Count       int
	WindowReset time.Time
	Blocked     bool
	BlockUntil  time.Time
}

// Store holds rate-limit counters and strict-mode flags.
type Store interface {
	// Hit counts one action of `key` against `policy` and reports whether it may proceed.
	Hit(ctx context.Context, key string, policy Policy, now time.Time) (Decision, error)
	// Flag puts `id` in strict mode until `until`.
	Flag(ctx context.Context, id string, until time.Time) error
	Flagged(ctx context.Context, id string, now time.Time) (bool, error)
}

// Hit applies one action to the entry and returns the decision. The entry is updated in place.
func (e *Entry) Hit(policy Policy, now time.Time) Decision {
	if e.Blocked {
		if now.Before(e.BlockUntil) {
			return Decision{RetryAfter: e.BlockUntil.Sub(now)}
		}
		*e = Entry{}
	}
	if !now.Before(e.WindowReset) {
		e.Count = 0
		e.WindowReset = now.Add(policy.Window)
	}

	e.Count++
	if e.Count > policy.Max {
		e.Blocked = true
		e.BlockUntil = now.Add(policy.Block)
		return Decision{RetryAfter: policy.Block}
	}
	return Decision{Allowed: true, Remaining: policy.Max - e.Count}
}

// Stale reports whether the entry carries no state that still matters at `now`.
func (e Entry) Stale(now time.Time) bool {
	if e.Blocked {
		return !now.Before(e.BlockUntil)
	}
	return !now.Before(e.WindowReset)
}

// StoreKey namespaces counters per policy.
func StoreKey(policy Policy, key string) string {
	return "rl:" + policy.Name + ":" + key
}
