package guard

import (
	"testing"
	"time"
)

func TestScoreSuspicion(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	th := Thresholds{Log: 40, Block: 70}

	gen := func(n int, correct bool, ms int64) []AnswerSample {
		out := make([]AnswerSample, n)
		for i := range out {
			out[i] = AnswerSample{IsCorrect: correct, TimeTakenMs: ms, AnsweredAt: now.Add(-time.Duration(i) * time.Second)}
		}
		return out
	}

	tests := []struct {
		name       string
		samples    []AnswerSample
		flags      []TimingFlag
		wantScore  int
		wantAction Action
	}{
		{name: "no activity", wantAction: ActionNone},
		{name: "human pace", samples: gen(4, true, 6000), wantAction: ActionNone},
		{name: "fast but inaccurate", samples: gen(5, false, 1000), wantScore: 30, wantAction: ActionNone},
		{name: "fast and accurate", samples: gen(5, true, 1000), wantScore: 70, wantAction: ActionBlock},
		{name: "at the fast floor", samples: gen(2, false, fastFloor.Milliseconds()), wantAction: ActionNone},
		{name: "just under the fast floor", samples: gen(2, false, fastFloor.Milliseconds()-1), wantScore: fastPenalty, wantAction: ActionNone},
		{name: "accurate below 3s",samples: gen(5, true, 2500), wantScore: 40, wantAction: ActionLog},
		{name: "burst", samples: gen(22, false, 5000), wantScore: 34, wantAction: ActionNone},
		{name: "burst capped", samples: gen(40, false, 5000), wantScore: 40, wantAction: ActionLog},
		{
			name:       "flags",
			samples:    gen(1, false, 5000),
			flags:      []TimingFlag{FlagTooFast, FlagFuture},
			wantScore:  20,
			wantAction: ActionNone,
		},
		{
			name:       "clamped",
			samples:    gen(40, true, 500),
			flags:      []TimingFlag{FlagTooFast},
			wantScore:  100,
			wantAction: ActionBlock,
		},
		{
			name:       "old answers ignored",
			samples:    []AnswerSample{{IsCorrect: true, TimeTakenMs: 100, AnsweredAt: now.Add(-2 * time.Minute)}},
			wantAction: ActionNone,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreSuspicion(tt.samples, tt.flags, now, th)
			if got.Score != tt.wantScore {
				t.Errorf("ScoreSuspicion().Score = %v, want %v (reasons: %v)", got.Score, tt.wantScore, got.Reasons)
			}
			if got.Action != tt.wantAction {
				t.Errorf("ScoreSuspicion().Action = %v, want %v", got.Action, tt.wantAction)
			}
		})
	}
}
