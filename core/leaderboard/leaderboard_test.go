package leaderboard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/mentora/core/duel"
)

func stats(id string, wins, points int) duel.Stats {
	return duel.Stats{StudentID: id, Wins: wins, TotalDuels: wins, TotalPointsEarned: points}
}

func TestDiff(t *testing.T) {
	prev := NewSnapshot([]duel.Stats{stats("alice", 3, 150), stats("bob", 2, 100), stats("carol", 1, 50)})

	tests := []struct {
		name string
		curr Snapshot
		want []Change
	}{
		{name: "unchanged", curr: prev, want: nil},
		{
			name: "scored in place",
			curr: NewSnapshot([]duel.Stats{stats("alice", 4, 200), stats("bob", 2, 100), stats("carol", 1, 50)}),
			want: []Change{{StudentID: "alice", Kind: ChangeScored, OldRank: 1, NewRank: 1, WinsDelta: 1, PointDelta: 50}},
		},
		{
			name: "overtake, enter and leave",
			curr: NewSnapshot([]duel.Stats{stats("bob", 4, 200), stats("alice", 3, 150), stats("dave", 1, 60)}),
			want: []Change{
				{StudentID: "bob", Kind: ChangeMoved, OldRank: 2, NewRank: 1, WinsDelta: 2, PointDelta: 100},
				{StudentID: "alice", Kind: ChangeMoved, OldRank: 1, NewRank: 2},
				{StudentID: "dave", Kind: ChangeEntered, NewRank: 3, WinsDelta: 1, PointDelta: 60},
				{StudentID: "carol", Kind: ChangeLeft, OldRank: 3},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Diff(prev, tt.curr))
		})
	}
}

func TestTracker_Update(t *testing.T) {
	var tr Tracker

	first := tr.Update(NewSnapshot([]duel.Stats{stats("alice", 1, 50)}))
	assert.Equal(t, []Change{{StudentID: "alice", Kind: ChangeEntered, NewRank: 1, WinsDelta: 1, PointDelta: 50}}, first)

	// a stale poll arriving late still becomes the baseline
	newer := NewSnapshot([]duel.Stats{stats("alice", 2, 100)})
	older := NewSnapshot([]duel.Stats{stats("alice", 1, 50)})
	tr.Update(newer)
	assert.Equal(t, []Change{{StudentID: "alice", Kind: ChangeScored, OldRank: 1, NewRank: 1, WinsDelta: -1, PointDelta: -50}}, tr.Update(older))
	assert.Empty(t, tr.Update(older))
}
