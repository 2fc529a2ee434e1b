package guard

import (
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mentora/core"
)

type TimingFlag string

const (
	FlagTooFast TimingFlag = "too_fast"
	FlagFuture  TimingFlag = "future_timestamp"
)

var ErrAnswerWindowExpired = core.NewValidationError(errors.New("answer window expired"))

// TimingCheck describes when a question was shown and how long the client claims it took.
type TimingCheck struct {
	ShownAt     time.Time
	TimeTakenMs int64
	Now         time.Time
}

// ValidateTiming rejects answers older than maxAge and flags those faster than floor or shown in the future.
// Flags are soft signals fed to the suspicion scorer; only the expiry is an error.
func ValidateTiming(chk TimingCheck, floor, maxAge time.Duration) ([]TimingFlag, error) {
	var flags []TimingFlag
	if chk.ShownAt.After(chk.Now) {
		return append(flags, FlagFuture), nil
	}

	elapsed := chk.Now.Sub(chk.ShownAt)
	if elapsed > maxAge {
		return nil, ErrAnswerWindowExpired
	}
	if elapsed < floor || time.Duration(chk.TimeTakenMs)*time.Millisecond < floor {
		flags = append(flags, FlagTooFast)
	}
	return flags, nil
}
