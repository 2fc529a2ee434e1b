// Package leaderboard computes what changed between two polls of the duel leaderboard.
package leaderboard

import (
	"sort"
	"sync"

	"github.com/trezcool/mentora/core/duel"
)

type ChangeKind string

const (
	ChangeEntered ChangeKind = "entered"
	ChangeLeft    ChangeKind = "left"
	ChangeMoved   ChangeKind = "moved"
	ChangeScored  ChangeKind = "scored" // same rank, new stats
)

// Entry is a student's place on the board.
type Entry struct {
	Rank  int
	Stats duel.Stats
}

// Snapshot maps student IDs to their entry at poll time.
type Snapshot map[string]Entry

// NewSnapshot ranks `top` in order, starting at 1.
func NewSnapshot(top []duel.Stats) Snapshot {
	snap := make(Snapshot, len(top))
	for i, st := range top {
		snap[st.StudentID] = Entry{Rank: i + 1, Stats: st}
	}
	return snap
}

type Change struct {
	StudentID  string
	Kind       ChangeKind
	OldRank    int // 0 when entering
	NewRank    int // 0 when leaving
	WinsDelta  int
	PointDelta int
}

// Diff compares two snapshots by key. Changes are ordered by new rank; students who left come last.
func Diff(prev, curr Snapshot) []Change {
	var changes []Change
	for id, now := range curr {
		before, ok := prev[id]
		switch {
		case !ok:
			changes = append(changes, Change{
				StudentID: id, Kind: ChangeEntered, NewRank: now.Rank,
				WinsDelta: now.Stats.Wins, PointDelta: now.Stats.TotalPointsEarned,
			})
		case before.Rank != now.Rank:
			changes = append(changes, change(id, ChangeMoved, before, now))
		case before.Stats.Wins != now.Stats.Wins ||
			before.Stats.TotalPointsEarned != now.Stats.TotalPointsEarned ||
			before.Stats.TotalDuels != now.Stats.TotalDuels:
			changes = append(changes, change(id, ChangeScored, before, now))
		}
	}
	for id, before := range prev {
		if _, ok := curr[id]; !ok {
			changes = append(changes, Change{StudentID: id, Kind: ChangeLeft, OldRank: before.Rank})
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		a, b := changes[i], changes[j]
		if (a.NewRank == 0) != (b.NewRank == 0) {
			return b.NewRank == 0
		}
		if a.NewRank != b.NewRank {
			return a.NewRank < b.NewRank
		}
		if a.OldRank != b.OldRank {
			return a.OldRank < b.OldRank
		}
		return a.StudentID < b.StudentID
	})
	return changes
}

func change(id string, kind ChangeKind, before, now Entry) Change {
	return Change{
		StudentID:  id,
		Kind:       kind,
		OldRank:    before.Rank,
		NewRank:    now.Rank,
		WinsDelta:  now.Stats.Wins - before.Stats.Wins,
		PointDelta: now.Stats.TotalPointsEarned - before.Stats.TotalPointsEarned,
	}
}

// Tracker remembers the previous poll. Polls may complete out of order; the last one to
// report always becomes the new baseline.
type Tracker struct {
	mu   sync.Mutex
	prev Snapshot
}

// Update diffs `curr` against the previous snapshot and keeps `curr`.
func (t *Tracker) Update(curr Snapshot) []Change {
	t.mu.Lock()
	defer t.mu.Unlock()
	changes := Diff(t.prev, curr)
	t.prev = curr
	return changes
}
