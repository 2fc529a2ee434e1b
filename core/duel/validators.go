package duel

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mentora/core"
)

type (
	NewRequest struct {
		ChallengerID  string `json:"-" validate:"required,notblank"`
		OpponentID    string `json:"opponentId" validate:"required,notblank,nefield=ChallengerID"`
		Subject       string `json:"subject" validate:"omitempty,max=64"`
		QuestionCount int    `json:"questionCount" validate:"required,min=1,max=20"`
	}

	RespondRequest struct {
		Accept *bool `json:"accept" validate:"required"`
	}

	// Submission is the body of an answer submission.
	Submission struct {
		DuelID        string `json:"duelId" validate:"required,notblank"`
		StudentID     string `json:"studentId" validate:"required,notblank"`
		QuestionIndex *int   `json:"questionIndex" validate:"required,min=0"`
		Answer        string `json:"answer" validate:"required"`
		TimeTakenMs   int64  `json:"timeTakenMs" validate:"min=0"`
	}
)

func (nr *NewRequest) Validate(validate *validator.Validate) error {
	nr.OpponentID = core.CleanString(nr.OpponentID)
	nr.Subject = core.CleanString(nr.Subject, true /* lower */)
	return validate.Struct(nr)
}

func (rr *RespondRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(rr)
}

func (s *Submission) Validate(validate *validator.Validate) error {
	s.DuelID = core.CleanString(s.DuelID)
	s.Answer = core.CleanString(s.Answer)
	return validate.Struct(s)
}

func (s Submission) Index() int {
	if s.QuestionIndex == nil {
		return -1
	}
	return *s.QuestionIndex
}
