package guard

import "time"

type Action int

const (
	ActionNone Action = iota
	ActionLog
	ActionBlock
)

func (a Action) String() string {
	switch a {
	case ActionLog:
		return "log"
	case ActionBlock:
		return "block"
	default:
		return "none"
	}
}

const (
	burstThreshold    = 20
	burstBase         = 30
	burstPerExtra     = 2
	burstMax          = 40
	fastFloor         = 2000 * time.Millisecond
	fastPenalty       = 30
	accuracyThreshold = 0.95
	accuracyLatency   = 3000 * time.Millisecond
	accuracyMinCount  = 5
	accuracyPenalty   = 40
	flagPenalty       = 10
	maxScore          = 100
)

// AnswerSample is one recent answer of a student, across all duels.
type AnswerSample struct {
	IsCorrect   bool
	TimeTakenMs int64
	AnsweredAt  time.Time
}

type Suspicion struct {
	Score   int
	Action  Action
	Reasons []string
}

// Thresholds map a score to an action.
type Thresholds struct {
	Log   int
	Block int
}

// ScoreSuspicion rates how bot-like the recent answers look, from 0 to 100.
// Only samples answered in the minute before `now` count.
func ScoreSuspicion(samples []AnswerSample, flags []TimingFlag, now time.Time, th Thresholds) Suspicion {
	var (
		s       Suspicion
		count   int
		correct int
		total   time.Duration
	)
	since := now.Add(-time.Minute)
	for _, smp := range samples {
		if smp.AnsweredAt.Before(since) || smp.AnsweredAt.After(now) {
			continue
		}
		count++
		if smp.IsCorrect {
			correct++
		}
		total += time.Duration(smp.TimeTakenMs) * time.Millisecond
	}

	if count > burstThreshold {
		penalty := burstBase + (count-burstThreshold)*burstPerExtra
		if penalty > burstMax {
			penalty = burstMax
		}
		s.Score += penalty
		s.Reasons = append(s.Reasons, "answer burst")
	}
	if count > 0 {
		avg := total / time.Duration(count)
		if avg < fastFloor {
			s.Score += fastPenalty
			s.Reasons = append(s.Reasons, "low average latency")
		}
		if count >= accuracyMinCount && float64(correct)/float64(count) >= accuracyThreshold && avg < accuracyLatency {
			s.Score += accuracyPenalty
			s.Reasons = append(s.Reasons, "accuracy with low latency")
		}
	}
	for _, f := range flags {
		s.Score += flagPenalty
		s.Reasons = append(s.Reasons, string(f))
	}

	if s.Score > maxScore {
		s.Score = maxScore
	}
	switch {
	case s.Score >= th.Block:
		s.Action = ActionBlock
	case s.Score >= th.Log:
		s.Action = ActionLog
	}
	return s
}
