package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/mentora/core/duel"
)

type questionRow struct {
	ID            string         `db:"id"`
	Subject       string         `db:"subject"`
	Prompt        string         `db:"prompt"`
	Options       pq.StringArray `db:"options"`
	CorrectAnswer string         `db:"correct_answer"`
	Explanation   string         `db:"explanation"`
}

type questionBank struct {
	db *sqlx.DB
}

var _ duel.QuestionBank = (*questionBank)(nil)

func NewQuestionBank(db *sqlx.DB) *questionBank {
	return &questionBank{db: db}
}

func (qb *questionBank) PickQuestions(ctx context.Context, subject string, count int) ([]duel.Question, error) {
	var (
		rows []questionRow
		err  error
	)
	const cols = "SELECT id, subject, prompt, options, correct_answer, explanation FROM questions "
	if subject == "" {
		err = qb.db.SelectContext(ctx, &rows, cols+"ORDER BY random() LIMIT $1", count)
	} else {
		err = qb.db.SelectContext(ctx, &rows, cols+"WHERE subject = $1 ORDER BY random() LIMIT $2", subject, count)
	}
	if err != nil {
		return nil, errors.Wrap(err, "picking questions")
	}

	qs := make([]duel.Question, 0, len(rows))
	for _, r := range rows {
		qs = append(qs, duel.Question{
			ID:            r.ID,
			Prompt:        r.Prompt,
			Options:       []string(r.Options),
			CorrectAnswer: r.CorrectAnswer,
			Explanation:   r.Explanation,
		})
	}
	return qs, nil
}

// AddQuestion stores a question in the bank; an existing id is left untouched.
func (qb *questionBank) AddQuestion(ctx context.Context, subject string, q duel.Question) error {
	_, err := qb.db.ExecContext(ctx,
		"INSERT INTO questions (id, subject, prompt, options, correct_answer, explanation) VALUES ($1, $2, $3, $4, $5, $6) "+
			"ON CONFLICT (id) DO NOTHING",
		q.ID, subject, q.Prompt, pq.StringArray(q.Options), q.CorrectAnswer, q.Explanation)
	if err != nil {
		return errors.Wrap(err, "inserting question")
	}
	return nil
}
