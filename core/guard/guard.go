// Package guard implements the anti-abuse checks: rate limiting, suspicion scoring,
// answer timing validation and trust tiers.
package guard

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mentora/core"
)

// Observer receives guard outcomes (metrics).
type Observer interface {
	RateLimited(policy string)
	SuspicionScored(score int, action string)
}

type nopObserver struct{}

func (nopObserver) RateLimited(string)          {}
func (nopObserver) SuspicionScored(int, string) {}

type Options struct {
	Store    Store
	Conf     core.GuardConfig
	Logger   core.Logger
	Observer Observer
	Now      func() time.Time
}

type Guard struct {
	store        Store
	logger       core.Logger
	observer     Observer
	now          func() time.Time
	answer       Policy
	api          Policy
	strict       Policy
	strictFor    time.Duration
	minAnswer    time.Duration
	maxAnswerAge time.Duration
	thresholds   Thresholds
	trust        TrustRules
}

func New(opts Options) *Guard {
	g := &Guard{
		store:        opts.Store,
		logger:       opts.Logger,
		observer:     opts.Observer,
		now:          opts.Now,
		answer:       PolicyFromConfig("answer", opts.Conf.AnswerPolicy),
		api:          PolicyFromConfig("api", opts.Conf.APIPolicy),
		strict:       PolicyFromConfig("strict", opts.Conf.StrictPolicy),
		strictFor:    opts.Conf.StrictFlagDuration,
		minAnswer:    opts.Conf.MinAnswerTime,
		maxAnswerAge: opts.Conf.MaxAnswerAge,
		thresholds:   Thresholds{Log: opts.Conf.SuspicionLogScore, Block: opts.Conf.SuspicionBlockScore},
		trust:        TrustRulesFromConfig(opts.Conf),
	}
	if g.store == nil {
		g.store = NewMemoryStore()
	}
	if g.observer == nil {
		g.observer = nopObserver{}
	}
	if g.now == nil {
		g.now = core.NowFunc
	}
	return g
}

func PolicyFromConfig(name string, pc core.RateLimitPolicyConfig) Policy {
	return Policy{Name: name, Max: pc.Max, Window: pc.Window, Block: pc.Block}
}

// Allow counts one action of `key` against `policy`; a breach returns a core.RateLimitError.
func (g *Guard) Allow(ctx context.Context, key string, policy Policy) error {
	dec, err := g.store.Hit(ctx, key, policy, g.now())
	if err != nil {
		return errors.Wrap(err, "checking rate limit")
	}
	if !dec.Allowed {
		g.observer.RateLimited(policy.Name)
		return core.NewRateLimitError(policy.Name, dec.RetryAfter)
	}
	return nil
}

// AllowAnswer applies the answer policy, or the strict policy when the student is flagged.
func (g *Guard) AllowAnswer(ctx context.Context, studentID string) error {
	flagged, err := g.store.Flagged(ctx, studentID, g.now())
	if err != nil {
		return errors.Wrap(err, "checking strict mode")
	}
	if flagged {
		return g.Allow(ctx, studentID, g.strict)
	}
	return g.Allow(ctx, studentID, g.answer)
}

// AllowAPI applies the general API policy.
func (g *Guard) AllowAPI(ctx context.Context, key string) error {
	return g.Allow(ctx, key, g.api)
}

func (g *Guard) ValidateTiming(shownAt time.Time, timeTakenMs int64) ([]TimingFlag, error) {
	return ValidateTiming(TimingCheck{ShownAt: shownAt, TimeTakenMs: timeTakenMs, Now: g.now()}, g.minAnswer, g.maxAnswerAge)
}

// Assess scores the student's recent answers. A Log action is logged; a Block action silently puts
// the student in strict mode. Neither surfaces to the caller.
func (g *Guard) Assess(ctx context.Context, studentID string, samples []AnswerSample, flags []TimingFlag) Suspicion {
	now := g.now()
	s := ScoreSuspicion(samples, flags, now, g.thresholds)
	g.observer.SuspicionScored(s.Score, s.Action.String())

	switch s.Action {
	case ActionBlock:
		if err := g.store.Flag(ctx, studentID, now.Add(g.strictFor)); err != nil {
			g.logError("flagging student", err, studentID)
		}
		g.logWarn("suspicious activity, strict mode enabled", s, studentID)
	case ActionLog:
		g.logWarn("suspicious activity", s, studentID)
	}
	return s
}

func (g *Guard) TrustLevel(createdAt time.Time, solved int) TrustLevel {
	return g.trust.Derive(createdAt, solved, g.now())
}

func (g *Guard) logWarn(msg string, s Suspicion, studentID string) {
	if g.logger == nil {
		return
	}
	g.logger.Warn(msg, map[string]interface{}{"score": s.Score, "reasons": s.Reasons}, core.StudentID(studentID))
}

func (g *Guard) logError(msg string, err error, studentID string) {
	if g.logger == nil {
		return
	}
	g.logger.Error(msg, err, core.StudentID(studentID))
}
