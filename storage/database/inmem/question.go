package inmemdb

import (
	"context"

	"github.com/trezcool/mentora/core/duel"
)

// QuestionBank serves questions in insertion order, which keeps duels deterministic in tests.
type QuestionBank struct {
	db *DB
}

var _ duel.QuestionBank = (*QuestionBank)(nil)

func NewQuestionBank(db *DB) *QuestionBank {
	return &QuestionBank{db: db}
}

func (qb *QuestionBank) AddQuestions(subject string, qs ...duel.Question) {
	qb.db.mu.Lock()
	defer qb.db.mu.Unlock()
	for _, q := range qs {
		qb.db.questions = append(qb.db.questions, questionRow{subject: subject, q: q})
	}
}

func (qb *QuestionBank) PickQuestions(_ context.Context, subject string, count int) ([]duel.Question, error) {
	qb.db.mu.RLock()
	defer qb.db.mu.RUnlock()
	qs := make([]duel.Question, 0, count)
	for _, row := range qb.db.questions {
		if len(qs) == count {
			break
		}
		if subject == "" || row.subject == subject {
			qs = append(qs, row.q)
		}
	}
	return qs, nil
}

// AddQuestion stores a question in the bank; an existing id is left untouched.
func (qb *QuestionBank) AddQuestion(_ context.Context, subject string, q duel.Question) error {
	qb.db.mu.Lock()
	defer qb.db.mu.Unlock()
	for _, row := range qb.db.questions {
		if row.q.ID == q.ID {
			return nil
		}
	}
	qb.db.questions = append(qb.db.questions, questionRow{subject: subject, q: q})
	return nil
}
