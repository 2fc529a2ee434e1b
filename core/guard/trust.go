package guard

import (
	"time"

	"github.com/trezcool/mentora/core"
)

type TrustLevel string

const (
	TrustNew      TrustLevel = "new"
	TrustVerified TrustLevel = "verified"
	TrustTrusted  TrustLevel = "trusted"
)

func (l TrustLevel) rank() int {
	switch l {
	case TrustVerified:
		return 1
	case TrustTrusted:
		return 2
	default:
		return 0
	}
}

func (l TrustLevel) Valid() bool {
	return l == TrustNew || l == TrustVerified || l == TrustTrusted
}

// Max returns the higher of the two levels.
func (l TrustLevel) Max(other TrustLevel) TrustLevel {
	if other.rank() > l.rank() {
		return other
	}
	if !l.Valid() {
		return TrustNew
	}
	return l
}

type Feature string

const (
	FeatureDuel    Feature = "duel"
	FeatureMessage Feature = "message"
	FeatureAvatar  Feature = "avatar"
	FeatureReport  Feature = "report"
)

// Unlimited is the daily limit of tiers without a cap.
const Unlimited = -1

type tierRules struct {
	features   []Feature
	dailyLimit int
}

var tiers = map[TrustLevel]tierRules{
	TrustNew:      {features: []Feature{FeatureReport}, dailyLimit: 20},
	TrustVerified: {features: []Feature{FeatureDuel, FeatureMessage, FeatureAvatar, FeatureReport}, dailyLimit: 200},
	TrustTrusted:  {features: []Feature{FeatureDuel, FeatureMessage, FeatureAvatar, FeatureReport}, dailyLimit: Unlimited},
}

// TrustRules holds the promotion thresholds.
type TrustRules struct {
	VerifiedMinAge    time.Duration
	VerifiedMinSolved int
	TrustedMinAge     time.Duration
	TrustedMinSolved  int
}

func TrustRulesFromConfig(conf core.GuardConfig) TrustRules {
	return TrustRules{
		VerifiedMinAge:    conf.VerifiedMinAge,
		VerifiedMinSolved: conf.VerifiedMinSolved,
		TrustedMinAge:     conf.TrustedMinAge,
		TrustedMinSolved:  conf.TrustedMinSolved,
	}
}

// Derive computes the level an account qualifies for at `now`.
func (r TrustRules) Derive(createdAt time.Time, solved int, now time.Time) TrustLevel {
	age := now.Sub(createdAt)
	switch {
	case age >= r.TrustedMinAge && solved >= r.TrustedMinSolved:
		return TrustTrusted
	case age >= r.VerifiedMinAge && solved >= r.VerifiedMinSolved:
		return TrustVerified
	default:
		return TrustNew
	}
}

func (l TrustLevel) Allows(f Feature) bool {
	for _, allowed := range tiers[l.Max(TrustNew)].features {
		if allowed == f {
			return true
		}
	}
	return false
}

func (l TrustLevel) Features() []Feature {
	feats := tiers[l.Max(TrustNew)].features
	out := make([]Feature, len(feats))
	copy(out, feats)
	return out
}

// DailyLimit returns the number of questions the level may answer per day, or Unlimited.
func (l TrustLevel) DailyLimit() int {
	return tiers[l.Max(TrustNew)].dailyLimit
}

// CheckDailyQuota fails with a RateLimitError (retry at the next UTC midnight) once the cap is reached.
func CheckDailyQuota(l TrustLevel, answeredToday int, now time.Time) error {
	limit := l.DailyLimit()
	if limit == Unlimited || answeredToday < limit {
		return nil
	}
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	return core.NewRateLimitError("daily_quota", midnight.Sub(now))
}
