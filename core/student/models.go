package student

import (
	"time"

	"github.com/trezcool/mentora/core/guard"
)

// Profile is the part of a student's account the duel subsystem reads.
type Profile struct {
	ID          string           `json:"id"`
	CreatedAt   time.Time        `json:"createdAt"`
	SolvedCount int              `json:"solvedCount"`
	TrustLevel  guard.TrustLevel `json:"trustLevel"`
}

// TrustStatus is what a student may do at their current tier.
type TrustStatus struct {
	StudentID  string           `json:"studentId"`
	Level      guard.TrustLevel `json:"level"`
	Features   []guard.Feature  `json:"features"`
	DailyLimit int              `json:"dailyLimit"` // -1: unlimited
}
