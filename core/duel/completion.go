package duel

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
	OutcomeDraw Outcome = "draw"
)

// StatsDelta is the change a completed duel makes to one player's stats.
type StatsDelta struct {
	StudentID string
	Outcome   Outcome
	Points    int // win bonus, winner only
	At        time.Time
}

// Complete closes an active duel: the higher score wins, an exact tie has no winner.
func (d *Duel) Complete(at time.Time) bool {
	if !d.Status.CanTransitionTo(StatusCompleted) {
		return false
	}
	d.Status = StatusCompleted
	d.CompletedAt = &at
	d.WinnerID = nil
	switch {
	case d.ChallengerScore > d.OpponentScore:
		winner := d.ChallengerID
		d.WinnerID = &winner
	case d.OpponentScore > d.ChallengerScore:
		winner := d.OpponentID
		d.WinnerID = &winner
	}
	return true
}

// Outcomes returns the stats deltas of both players of a completed duel.
func (d Duel) Outcomes(winBonus int) []StatsDelta {
	at := time.Time{}
	if d.CompletedAt != nil {
		at = *d.CompletedAt
	}
	delta := func(id string) StatsDelta {
		switch {
		case d.WinnerID == nil:
			return StatsDelta{StudentID: id, Outcome: OutcomeDraw, At: at}
		case *d.WinnerID == id:
			return StatsDelta{StudentID: id, Outcome: OutcomeWin, Points: winBonus, At: at}
		default:
			return StatsDelta{StudentID: id, Outcome: OutcomeLoss, At: at}
		}
	}
	return []StatsDelta{delta(d.ChallengerID), delta(d.OpponentID)}
}

// Apply folds a delta into the stats. A zero Stats is a player's first duel.
func (s Stats) Apply(delta StatsDelta) Stats {
	s.StudentID = delta.StudentID
	s.TotalDuels++
	switch delta.Outcome {
	case OutcomeWin:
		s.Wins++
		s.WinStreak++
	case OutcomeLoss:
		s.Losses++
		s.WinStreak = 0
	case OutcomeDraw:
		s.Draws++
		s.WinStreak = 0
	}
	if s.WinStreak > s.MaxWinStreak {
		s.MaxWinStreak = s.WinStreak
	}
	s.TotalPointsEarned += delta.Points
	s.UpdatedAt = delta.At
	return s
}

// CompleteDuel completes an active duel and updates both players' stats. Calling it again, or on a
// duel that is not active, changes nothing and returns completed=false.
func (svc *Service) CompleteDuel(ctx context.Context, id string) (Duel, bool, error) {
	d, completed, err := svc.repo.CompleteDuel(ctx, id, svc.clock(), svc.conf.WinBonus)
	if err != nil {
		return Duel{}, false, errors.Wrap(err, "completing duel")
	}
	if !completed {
		return d, false, nil
	}

	outcome := OutcomeDraw
	if d.WinnerID != nil {
		outcome = OutcomeWin
	}
	svc.observer.DuelCompleted(outcome)
	svc.notify(ctx, Event{
		Type:       EventCompleted,
		DuelID:     d.ID,
		StudentIDs: []string{d.ChallengerID, d.OpponentID},
		WinnerID:   d.WinnerID,
		OccurredAt: *d.CompletedAt,
	})
	return d, true, nil
}

// completeIfDone completes the duel once both players answered its last question.
func (svc *Service) completeIfDone(ctx context.Context, d Duel, idx int) (Status, error) {
	if idx != d.LastIndex() || d.Status != StatusActive {
		return d.Status, nil
	}
	n, err := svc.repo.CountAnswersAt(ctx, d.ID, idx)
	if err != nil {
		return "", errors.Wrap(err, "counting answers")
	}
	if n < 2 {
		return d.Status, nil
	}
	done, _, err := svc.CompleteDuel(ctx, d.ID)
	if err != nil {
		return "", err
	}
	return done.Status, nil
}
