package boiledrepos

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/trezcool/mentora/core"
	"github.com/trezcool/mentora/core/duel"
)

const statsColumns = "student_id, total_duels, wins, losses, draws, win_streak, max_win_streak, total_points_earned, updated_at"

// leaderboardOrder ranks by wins, then points; student id keeps equal rows stable.
var leaderboardOrder = core.OrderBy(
	core.DBOrdering{Field: "wins"},
	core.DBOrdering{Field: "total_points_earned"},
	core.DBOrdering{Field: "student_id", Ascending: true},
)

type statsRow struct {
	StudentID         string    `boil:"student_id"`
	TotalDuels        int       `boil:"total_duels"`
	Wins              int       `boil:"wins"`
	Losses            int       `boil:"losses"`
	Draws             int       `boil:"draws"`
	WinStreak         int       `boil:"win_streak"`
	MaxWinStreak      int       `boil:"max_win_streak"`
	TotalPointsEarned int       `boil:"total_points_earned"`
	UpdatedAt         null.Time `boil:"updated_at"`
}

type statsRepository struct {
	exec core.DBExecutor
}

var _ duel.StatsRepository = (*statsRepository)(nil) // interface compliance check

func NewStatsRepository(exec core.DBExecutor) *statsRepository {
	return &statsRepository{exec: exec}
}

func (repo statsRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo statsRepository) unboil(row statsRow) duel.Stats {
	return duel.Stats{
		StudentID:         row.StudentID,
		TotalDuels:        row.TotalDuels,
		Wins:              row.Wins,
		Losses:            row.Losses,
		Draws:             row.Draws,
		WinStreak:         row.WinStreak,
		MaxWinStreak:      row.MaxWinStreak,
		TotalPointsEarned: row.TotalPointsEarned,
		UpdatedAt:         row.UpdatedAt.Time.UTC(),
	}
}

// GetStats returns zero stats for students who have not completed a duel yet.
func (repo statsRepository) GetStats(ctx context.Context, studentID string, exec ...core.DBExecutor) (duel.Stats, error) {
	var row statsRow
	err := queries.Raw("SELECT "+statsColumns+" FROM duel_stats WHERE student_id = $1", studentID).
		Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return duel.Stats{StudentID: studentID}, nil
		}
		return duel.Stats{}, errors.Wrap(err, "getting stats")
	}
	return repo.unboil(row), nil
}

func (repo statsRepository) TopStats(ctx context.Context, limit int, exec ...core.DBExecutor) ([]duel.Stats, error) {
	var rows []statsRow
	err := queries.Raw(
		"SELECT "+statsColumns+" FROM duel_stats "+leaderboardOrder+" LIMIT $1", limit,
	).Bind(ctx, repo.getExec(exec), &rows)
	if err != nil {
		return nil, errors.Wrap(err, "querying top stats")
	}
	stats := make([]duel.Stats, 0, len(rows))
	for _, r := range rows {
		stats = append(stats, repo.unboil(r))
	}
	return stats, nil
}

// ApplyStatsDelta upserts the player's stats row; the first completed duel creates it.
func (repo statsRepository) ApplyStatsDelta(ctx context.Context, delta duel.StatsDelta, exec ...core.DBExecutor) (duel.Stats, error) {
	var win, loss, draw int
	switch delta.Outcome {
	case duel.OutcomeWin:
		win = 1
	case duel.OutcomeLoss:
		loss = 1
	case duel.OutcomeDraw:
		draw = 1
	default:
		return duel.Stats{}, errors.Errorf("unknown outcome %q", delta.Outcome)
	}

	const q = `INSERT INTO duel_stats (` + statsColumns + `)
		VALUES ($1, 1, $2, $3, $4, $2, $2, $5, $6)
		ON CONFLICT (student_id) DO UPDATE SET
			total_duels = duel_stats.total_duels + 1,
			wins = duel_stats.wins + EXCLUDED.wins,
			losses = duel_stats.losses + EXCLUDED.losses,
			draws = duel_stats.draws + EXCLUDED.draws,
			win_streak = CASE WHEN EXCLUDED.wins = 1 THEN duel_stats.win_streak + 1 ELSE 0 END,
			max_win_streak = GREATEST(duel_stats.max_win_streak,
				CASE WHEN EXCLUDED.wins = 1 THEN duel_stats.win_streak + 1 ELSE 0 END),
			total_points_earned = duel_stats.total_points_earned + EXCLUDED.total_points_earned,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + statsColumns

	var row statsRow
	err := queries.Raw(q, delta.StudentID, win, loss, draw, delta.Points, null.TimeFrom(delta.At.UTC())).
		Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		return duel.Stats{}, errors.Wrap(err, "upserting stats")
	}
	return repo.unboil(row), nil
}
