package sqlxrepos

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mentora/core/duel"
	"github.com/trezcool/mentora/storage/database/sqlboiler"
)

var (
	t0          = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	answerCols  = []string{"duel_id", "student_id", "question_index", "answer", "is_correct", "time_taken_ms", "points_earned", "streak_bonus", "streak", "answered_at"}
	duelCols    = []string{"id", "challenger_id", "opponent_id", "subject", "status", "questions", "challenger_score", "opponent_score", "winner_id", "started_at", "completed_at"}
	requestCols = []string{"id", "challenger_id", "opponent_id", "subject", "question_count", "created_at", "expires_at"}
	statsCols   = []string{"student_id", "total_duels", "wins", "losses", "draws", "win_streak", "max_win_streak", "total_points_earned", "updated_at"}
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func newRepo(db *sqlx.DB) *duelRepository {
	return NewDuelRepository(db, boiledrepos.NewStatsRepository(db))
}

func TestDuelRepository_RecordAnswer(t *testing.T) {
	ctx := context.Background()
	questions := []byte(`[{"id":"q1","prompt":"1+1?","options":["2","3"],"correctAnswer":"2"},{"id":"q2","prompt":"2+2?","options":["3","4"],"correctAnswer":"4"}]`)
	lock := regexp.QuoteMeta("FROM duels WHERE id = $1 FOR UPDATE")
	list := regexp.QuoteMeta("FROM duel_answers WHERE duel_id = $1 AND student_id = $2 ORDER BY question_index")
	insert := regexp.QuoteMeta("INSERT INTO duel_answers (") + ".*" + regexp.QuoteMeta("ON CONFLICT (duel_id, student_id, question_index) DO NOTHING")
	activeDuel := func() *sqlmock.Rows {
		return sqlmock.NewRows(duelCols).AddRow("d1", "alice", "bob", "math", "active", questions, 10, 0, nil, t0, nil)
	}
	// graded by the repository, whatever the caller put in the score fields
	ans := duel.Answer{
		DuelID: "d1", StudentID: "alice", QuestionIndex: 1, Answer: "4", IsCorrect: true,
		TimeTakenMs: 4000, AnsweredAt: t0,
	}

	t.Run("graded against the stored answers", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lock).WithArgs("d1").WillReturnRows(activeDuel())
		mock.ExpectQuery(list).WithArgs("d1", "alice").
			WillReturnRows(sqlmock.NewRows(answerCols).AddRow("d1", "alice", 0, "2", true, 3000, 10, 0, 1, t0.Add(-5*time.Second)))
		mock.ExpectExec(insert).
			WithArgs("d1", "alice", 1, "4", true, int64(4000), 10, 2, 2, t0).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE duels SET challenger_score = challenger_score + $1 WHERE id = $2")).
			WithArgs(12, "d1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		stored, inserted, err := newRepo(db).RecordAnswer(ctx, ans, true)
		require.NoError(t, err)
		assert.True(t, inserted)
		assert.Equal(t, 10, stored.PointsEarned)
		assert.Equal(t, 2, stored.StreakBonus)
		assert.Equal(t, 2, stored.Streak)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate returns the stored answer", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lock).WithArgs("d1").WillReturnRows(activeDuel())
		mock.ExpectQuery(list).WithArgs("d1", "alice").
			WillReturnRows(sqlmock.NewRows(answerCols).AddRow("d1", "alice", 1, "3", false, 3000, 0, 0, 0, t0.Add(-time.Second)))
		mock.ExpectRollback()

		stored, inserted, err := newRepo(db).RecordAnswer(ctx, ans, false)
		require.NoError(t, err)
		assert.False(t, inserted)
		assert.Equal(t, "3", stored.Answer)
		assert.False(t, stored.IsCorrect)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("inactive duel rolls back", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lock).WithArgs("d1").
			WillReturnRows(sqlmock.NewRows(duelCols).AddRow("d1", "alice", "bob", "math", "completed", questions, 10, 0, nil, t0, t0))
		mock.ExpectRollback()

		_, _, err := newRepo(db).RecordAnswer(ctx, ans, false)
		assert.Equal(t, duel.ErrDuelNotActive, errors.Cause(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDuelRepository_StartDuel(t *testing.T) {
	ctx := context.Background()
	claim := regexp.QuoteMeta("DELETE FROM duel_requests WHERE id = $1")
	insert := regexp.QuoteMeta("INSERT INTO duels (")
	d := duel.Duel{
		ID: "d1", ChallengerID: "alice", OpponentID: "bob", Status: duel.StatusActive, StartedAt: t0,
		Questions: []duel.Question{{ID: "q1", Prompt: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: "4"}},
	}

	t.Run("claims and inserts together", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(claim).WithArgs("r1").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(insert).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		got, err := newRepo(db).StartDuel(ctx, "r1", d)
		require.NoError(t, err)
		assert.Equal(t, "d1", got.ID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("claimed elsewhere", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(claim).WithArgs("r1").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := newRepo(db).StartDuel(ctx, "r1", d)
		assert.Equal(t, duel.ErrRequestNotFound, errors.Cause(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed insert keeps the request", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(claim).WithArgs("r1").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(insert).WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		_, err := newRepo(db).StartDuel(ctx, "r1", d)
		assert.Error(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDuelRepository_CompleteDuel(t *testing.T) {
	ctx := context.Background()
	questions := []byte(`[{"id":"q1","prompt":"2+2?","options":["3","4"],"correctAnswer":"4"}]`)
	lock := regexp.QuoteMeta("FROM duels WHERE id = $1 FOR UPDATE")
	upsert := regexp.QuoteMeta("INSERT INTO duel_stats (")

	t.Run("completes and applies stats", func(t *testing.T) {
		db, mock := newMock(t)
		at := t0.Add(time.Minute)
		mock.ExpectBegin()
		mock.ExpectQuery(lock).WithArgs("d1").
			WillReturnRows(sqlmock.NewRows(duelCols).AddRow("d1", "alice", "bob", "math", "active", questions, 22, 10, nil, t0, nil))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE duels SET status = $1, winner_id = $2, completed_at = $3 WHERE id = $4")).
			WithArgs("completed", "alice", at, "d1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(upsert).WithArgs("alice", 1, 0, 0, 50, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(statsCols).AddRow("alice", 1, 1, 0, 0, 1, 1, 50, at))
		mock.ExpectQuery(upsert).WithArgs("bob", 0, 1, 0, 0, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(statsCols).AddRow("bob", 1, 0, 1, 0, 0, 0, 0, at))
		mock.ExpectCommit()

		d, completed, err := newRepo(db).CompleteDuel(ctx, "d1", at, 50)
		require.NoError(t, err)
		assert.True(t, completed)
		assert.Equal(t, duel.StatusCompleted, d.Status)
		require.NotNil(t, d.WinnerID)
		assert.Equal(t, "alice", *d.WinnerID)
		assert.Equal(t, "4", d.Questions[0].CorrectAnswer)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already completed is a no-op", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lock).WithArgs("d1").
			WillReturnRows(sqlmock.NewRows(duelCols).AddRow("d1", "alice", "bob", "", "completed", questions, 20, 20, nil, t0, t0))
		mock.ExpectRollback()

		d, completed, err := newRepo(db).CompleteDuel(ctx, "d1", t0.Add(time.Hour), 50)
		require.NoError(t, err)
		assert.False(t, completed)
		assert.Nil(t, d.WinnerID)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDuelRepository_ClaimRequest(t *testing.T) {
	ctx := context.Background()
	claim := regexp.QuoteMeta("DELETE FROM duel_requests WHERE id = $1 RETURNING")

	db, mock := newMock(t)
	mock.ExpectQuery(claim).WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(requestCols).AddRow("r1", "alice", "bob", "", 5, t0, t0.Add(30*time.Second)))
	mock.ExpectQuery(claim).WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(requestCols))

	repo := newRepo(db)
	req, err := repo.ClaimRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 5, req.QuestionCount)
	assert.Equal(t, t0.Add(30*time.Second), req.ExpiresAt)

	_, err = repo.ClaimRequest(ctx, "r1")
	assert.Equal(t, duel.ErrRequestNotFound, errors.Cause(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDuelRepository_GetDuel_notFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM duels WHERE id = $1")).WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(duelCols))

	_, err := newRepo(db).GetDuel(context.Background(), "nope")
	assert.Equal(t, duel.ErrDuelNotFound, errors.Cause(err))
	require.NoError(t, mock.ExpectationsWereMet())
}
