package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/mentora/core"
	"github.com/trezcool/mentora/core/duel"
	"github.com/trezcool/mentora/core/guard"
	"github.com/trezcool/mentora/core/student"
)

// Epoch is the start time of test clocks.
var Epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// Clock is a manually advanced time source.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

func NewClock(start ...time.Time) *Clock {
	t := Epoch
	if len(start) > 0 {
		t = start[0]
	}
	return &Clock{t: t}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func GuardConfig() core.GuardConfig {
	return core.GuardConfig{
		AnswerPolicy:        core.RateLimitPolicyConfig{Max: 3, Window: 5 * time.Second, Block: 30 * time.Second},
		APIPolicy:           core.RateLimitPolicyConfig{Max: 60, Window: time.Minute, Block: time.Minute},
		StrictPolicy:        core.RateLimitPolicyConfig{Max: 2, Window: 10 * time.Second, Block: 5 * time.Minute},
		StrictFlagDuration:  time.Hour,
		MinAnswerTime:       2 * time.Second,
		MaxAnswerAge:        10 * time.Minute,
		SuspicionLogScore:   40,
		SuspicionBlockScore: 70,
		VerifiedMinAge:      7 * 24 * time.Hour,
		VerifiedMinSolved:   10,
		TrustedMinAge:       30 * 24 * time.Hour,
		TrustedMinSolved:    100,
	}
}

func DuelConfig() core.DuelConfig {
	return core.DuelConfig{RequestTTL: 30 * time.Second, WinBonus: 50, MaxQuestionCount: 20}
}

// CreateStudent stores a profile `age` old (relative to `now`) with `solved` questions.
func CreateStudent(t *testing.T, repo student.Repository, id string, now time.Time, age time.Duration, solved int) student.Profile {
	t.Helper()
	p, err := repo.CreateProfile(context.Background(), student.Profile{
		ID:          id,
		CreatedAt:   now.Add(-age),
		SolvedCount: solved,
		TrustLevel:  guard.TrustNew,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return p
}

// CreateVerifiedStudent stores a profile old and active enough to duel.
func CreateVerifiedStudent(t *testing.T, repo student.Repository, id string, now time.Time) student.Profile {
	return CreateStudent(t, repo, id, now, 10*24*time.Hour, 20)
}

// Questions returns `n` questions whose correct answer is "right".
func Questions(n int) []duel.Question {
	qs := make([]duel.Question, n)
	for i := range qs {
		qs[i] = duel.Question{
			ID:            "q" + string(rune('a'+i)),
			Prompt:        "question " + string(rune('a'+i)),
			Options:       []string{"right", "wrong"},
			CorrectAnswer: "right",
			Explanation:   "because",
		}
	}
	return qs
}

// Notifier records the events it is given.
type Notifier struct {
	mu     sync.Mutex
	Events []duel.Event
}

func (n *Notifier) Notify(_ context.Context, ev duel.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Events = append(n.Events, ev)
	return nil
}

func (n *Notifier) Types() []duel.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	types := make([]duel.EventType, len(n.Events))
	for i, ev := range n.Events {
		types[i] = ev.Type
	}
	return types
}
