package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/mentora/core/duel"
)

const (
	requestColumns = "id, challenger_id, opponent_id, subject, question_count, created_at, expires_at"
	duelColumns    = "id, challenger_id, opponent_id, subject, status, questions, challenger_score, opponent_score, winner_id, started_at, completed_at"
	answerColumns  = "duel_id, student_id, question_index, answer, is_correct, time_taken_ms, points_earned, streak_bonus, streak, answered_at"
)

type duelRepository struct {
	db    *sqlx.DB
	stats duel.StatsRepository
}

var _ duel.Repository = (*duelRepository)(nil) // interface compliance check

// NewDuelRepository returns the Postgres duel repository. Stats deltas of completed duels are written
// through `stats`, on the completing transaction.
func NewDuelRepository(db *sqlx.DB, stats duel.StatsRepository) *duelRepository {
	return &duelRepository{db: db, stats: stats}
}

// trapNoRowsErr maps psql "no rows" err to `notFound`
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func (repo *duelRepository) CreateRequest(ctx context.Context, req duel.Request) (duel.Request, error) {
	req.CreatedAt = req.CreatedAt.UTC()
	req.ExpiresAt = req.ExpiresAt.UTC()
	q := "INSERT INTO duel_requests (" + requestColumns + ") " +
		"VALUES (:id, :challenger_id, :opponent_id, :subject, :question_count, :created_at, :expires_at)"
	if _, err := repo.db.NamedExecContext(ctx, q, req); err != nil {
		return duel.Request{}, errors.Wrap(err, "inserting duel request")
	}
	return req, nil
}

func (repo *duelRepository) GetRequest(ctx context.Context, id string) (duel.Request, error) {
	var req duel.Request
	q := "SELECT " + requestColumns + " FROM duel_requests WHERE id = $1"
	if err := repo.db.GetContext(ctx, &req, q, id); err != nil {
		return duel.Request{}, trapNoRowsErr(err, duel.ErrRequestNotFound, "getting duel request")
	}
	return req, nil
}

func (repo *duelRepository) ClaimRequest(ctx context.Context, id string) (duel.Request, error) {
	var req duel.Request
	q := "DELETE FROM duel_requests WHERE id = $1 RETURNING " + requestColumns
	if err := repo.db.GetContext(ctx, &req, q, id); err != nil {
		return duel.Request{}, trapNoRowsErr(err, duel.ErrRequestNotFound, "claiming duel request")
	}
	return req, nil
}

func (repo *duelRepository) PendingRequests(ctx context.Context, studentID string, now time.Time) ([]duel.Request, error) {
	reqs := make([]duel.Request, 0)
	q := "SELECT " + requestColumns + " FROM duel_requests " +
		"WHERE (challenger_id = $1 OR opponent_id = $1) AND expires_at > $2 ORDER BY created_at"
	if err := repo.db.SelectContext(ctx, &reqs, q, studentID, now.UTC()); err != nil {
		return nil, errors.Wrap(err, "selecting pending requests")
	}
	return reqs, nil
}

func (repo *duelRepository) DeleteExpiredRequests(ctx context.Context, now time.Time) (int64, error) {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM duel_requests WHERE expires_at <= $1", now.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "deleting expired requests")
	}
	return res.RowsAffected()
}

func (repo *duelRepository) StartDuel(ctx context.Context, requestID string, d duel.Duel) (duel.Duel, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return duel.Duel{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, "DELETE FROM duel_requests WHERE id = $1", requestID)
	if err != nil {
		return duel.Duel{}, errors.Wrap(err, "claiming duel request")
	}
	if n, err := res.RowsAffected(); err != nil {
		return duel.Duel{}, errors.Wrap(err, "claiming duel request")
	} else if n == 0 {
		return duel.Duel{}, duel.ErrRequestNotFound
	}

	q := "INSERT INTO duels (" + duelColumns + ") VALUES " +
		"(:id, :challenger_id, :opponent_id, :subject, :status, :questions, :challenger_score, :opponent_score, :winner_id, :started_at, :completed_at)"
	if _, err := tx.NamedExecContext(ctx, q, toRow(d)); err != nil {
		return duel.Duel{}, errors.Wrap(err, "inserting duel")
	}

	if err := tx.Commit(); err != nil {
		return duel.Duel{}, errors.Wrap(err, "committing duel start")
	}
	return d, nil
}

func (repo *duelRepository) GetDuel(ctx context.Context, id string) (duel.Duel, error) {
	return repo.getDuel(ctx, repo.db, id, false)
}

func (repo *duelRepository) getDuel(ctx context.Context, q sqlx.QueryerContext, id string, lock bool) (duel.Duel, error) {
	var row duelRow
	query := "SELECT " + duelColumns + " FROM duels WHERE id = $1"
	if lock {
		query += " FOR UPDATE"
	}
	if err := sqlx.GetContext(ctx, q, &row, query, id); err != nil {
		return duel.Duel{}, trapNoRowsErr(err, duel.ErrDuelNotFound, "getting duel")
	}
	return row.toDuel(), nil
}

func (repo *duelRepository) getAnswer(ctx context.Context, q sqlx.QueryerContext, duelID, studentID string, index int) (duel.Answer, error) {
	var ans duel.Answer
	query := "SELECT " + answerColumns + " FROM duel_answers WHERE duel_id = $1 AND student_id = $2 AND question_index = $3"
	if err := sqlx.GetContext(ctx, q, &ans, query, duelID, studentID, index); err != nil {
		return duel.Answer{}, errors.Wrap(err, "getting answer")
	}
	ans.AnsweredAt = ans.AnsweredAt.UTC()
	return ans, nil
}

func (repo *duelRepository) ListAnswers(ctx context.Context, duelID, studentID string) ([]duel.Answer, error) {
	return repo.listAnswers(ctx, repo.db, duelID, studentID)
}

func (repo *duelRepository) listAnswers(ctx context.Context, q sqlx.QueryerContext, duelID, studentID string) ([]duel.Answer, error) {
	answers := make([]duel.Answer, 0)
	query := "SELECT " + answerColumns + " FROM duel_answers WHERE duel_id = $1 AND student_id = $2 ORDER BY question_index"
	if err := sqlx.SelectContext(ctx, q, &answers, query, duelID, studentID); err != nil {
		return nil, errors.Wrap(err, "selecting answers")
	}
	return answers, nil
}

// RecordAnswer locks the duel row, so answers to one duel are graded and scored one at a time.
func (repo *duelRepository) RecordAnswer(ctx context.Context, ans duel.Answer, challenger bool) (duel.Answer, bool, error) {
	scoreCol := "opponent_score"
	if challenger {
		scoreCol = "challenger_score"
	}
	ans.AnsweredAt = ans.AnsweredAt.UTC()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return duel.Answer{}, false, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	d, err := repo.getDuel(ctx, tx, ans.DuelID, true /* lock */)
	if err != nil {
		return duel.Answer{}, false, err
	}
	if d.Status != duel.StatusActive {
		return duel.Answer{}, false, duel.ErrDuelNotActive
	}
	prev, err := repo.listAnswers(ctx, tx, ans.DuelID, ans.StudentID)
	if err != nil {
		return duel.Answer{}, false, err
	}
	for _, a := range prev {
		if a.QuestionIndex == ans.QuestionIndex {
			a.AnsweredAt = a.AnsweredAt.UTC()
			return a, false, nil
		}
	}
	ans.Grade(prev)

	q := "INSERT INTO duel_answers (" + answerColumns + ") VALUES " +
		"(:duel_id, :student_id, :question_index, :answer, :is_correct, :time_taken_ms, :points_earned, :streak_bonus, :streak, :answered_at) " +
		"ON CONFLICT (duel_id, student_id, question_index) DO NOTHING"
	res, err := tx.NamedExecContext(ctx, q, ans)
	if err != nil {
		return duel.Answer{}, false, errors.Wrap(err, "inserting answer")
	}
	if n, err := res.RowsAffected(); err != nil {
		return duel.Answer{}, false, errors.Wrap(err, "inserting answer")
	} else if n == 0 {
		stored, err := repo.getAnswer(ctx, tx, ans.DuelID, ans.StudentID, ans.QuestionIndex)
		return stored, false, err
	}

	_, err = tx.ExecContext(ctx,
		fmt.Sprintf("UPDATE duels SET %s = %s + $1 WHERE id = $2", scoreCol, scoreCol),
		ans.Total(), ans.DuelID)
	if err != nil {
		return duel.Answer{}, false, errors.Wrap(err, "incrementing score")
	}

	if err := tx.Commit(); err != nil {
		return duel.Answer{}, false, errors.Wrap(err, "committing answer")
	}
	return ans, true, nil
}

func (repo *duelRepository) CountAnswersAt(ctx context.Context, duelID string, index int) (int, error) {
	var n int
	q := "SELECT COUNT(*) FROM duel_answers WHERE duel_id = $1 AND question_index = $2"
	if err := repo.db.GetContext(ctx, &n, q, duelID, index); err != nil {
		return 0, errors.Wrap(err, "counting answers")
	}
	return n, nil
}

func (repo *duelRepository) RecentAnswers(ctx context.Context, studentID string, since time.Time) ([]duel.Answer, error) {
	answers := make([]duel.Answer, 0)
	q := "SELECT " + answerColumns + " FROM duel_answers WHERE student_id = $1 AND answered_at >= $2 ORDER BY answered_at DESC"
	if err := repo.db.SelectContext(ctx, &answers, q, studentID, since.UTC()); err != nil {
		return nil, errors.Wrap(err, "selecting recent answers")
	}
	return answers, nil
}

func (repo *duelRepository) CountAnswersSince(ctx context.Context, studentID string, since time.Time) (int, error) {
	var n int
	q := "SELECT COUNT(*) FROM duel_answers WHERE student_id = $1 AND answered_at >= $2"
	if err := repo.db.GetContext(ctx, &n, q, studentID, since.UTC()); err != nil {
		return 0, errors.Wrap(err, "counting answers")
	}
	return n, nil
}

func (repo *duelRepository) CompleteDuel(ctx context.Context, id string, at time.Time, winBonus int) (duel.Duel, bool, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return duel.Duel{}, false, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	d, err := repo.getDuel(ctx, tx, id, true /* lock */)
	if err != nil {
		return duel.Duel{}, false, err
	}
	if !d.Complete(at.UTC()) {
		return d, false, nil
	}

	q := "UPDATE duels SET status = $1, winner_id = $2, completed_at = $3 WHERE id = $4"
	if _, err := tx.ExecContext(ctx, q, string(d.Status), d.WinnerID, *d.CompletedAt, d.ID); err != nil {
		return duel.Duel{}, false, errors.Wrap(err, "completing duel")
	}
	for _, delta := range d.Outcomes(winBonus) {
		if _, err := repo.stats.ApplyStatsDelta(ctx, delta, tx); err != nil {
			return duel.Duel{}, false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return duel.Duel{}, false, errors.Wrap(err, "committing completion")
	}
	return d, true, nil
}
