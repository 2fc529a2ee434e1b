package sqlxrepos

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mentora/core/duel"
)

// questionList is the JSONB encoding of a duel's questions.
type questionList []duel.Question

func (ql questionList) Value() (driver.Value, error) {
	if ql == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(ql)
}

func (ql *questionList) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case nil:
		*ql = nil
		return nil
	default:
		return errors.Errorf("cannot scan %T into questionList", src)
	}
	return json.Unmarshal(data, ql)
}

type duelRow struct {
	ID              string       `db:"id"`
	ChallengerID    string       `db:"challenger_id"`
	OpponentID      string       `db:"opponent_id"`
	Subject         string       `db:"subject"`
	Status          string       `db:"status"`
	Questions       questionList `db:"questions"`
	ChallengerScore int          `db:"challenger_score"`
	OpponentScore   int          `db:"opponent_score"`
	WinnerID        null.String  `db:"winner_id"`
	StartedAt       null.Time    `db:"started_at"`
	CompletedAt     null.Time    `db:"completed_at"`
}

func toRow(d duel.Duel) duelRow {
	return duelRow{
		ID:              d.ID,
		ChallengerID:    d.ChallengerID,
		OpponentID:      d.OpponentID,
		Subject:         d.Subject,
		Status:          string(d.Status),
		Questions:       questionList(d.Questions),
		ChallengerScore: d.ChallengerScore,
		OpponentScore:   d.OpponentScore,
		WinnerID:        null.StringFromPtr(d.WinnerID),
		StartedAt:       null.NewTime(d.StartedAt.UTC(), !d.StartedAt.IsZero()),
		CompletedAt:     null.TimeFromPtr(d.CompletedAt),
	}
}

func (row duelRow) toDuel() duel.Duel {
	return duel.Duel{
		ID:              row.ID,
		ChallengerID:    row.ChallengerID,
		OpponentID:      row.OpponentID,
		Subject:         row.Subject,
		Status:          duel.Status(row.Status),
		Questions:       []duel.Question(row.Questions),
		ChallengerScore: row.ChallengerScore,
		OpponentScore:   row.OpponentScore,
		WinnerID:        row.WinnerID.Ptr(),
		StartedAt:       row.StartedAt.Time.UTC(),
		CompletedAt:     utcPtr(row.CompletedAt.Ptr()),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
