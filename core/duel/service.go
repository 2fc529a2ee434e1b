// Package duel implements 1v1 duels: challenge requests, answer scoring and completion.
package duel

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mentora/core"
	"github.com/trezcool/mentora/core/guard"
	"github.com/trezcool/mentora/core/student"
)

var (
	// errors
	ErrDuelNotFound        = core.NewNotFoundError("duel not found")
	ErrRequestNotFound     = core.NewNotFoundError("duel request not found")
	ErrNotEnoughQuestions  = core.NewNotFoundError("not enough questions for this subject")
	ErrNotParticipant      = core.NewAuthorizationError("not a participant of this duel")
	ErrNotOpponent         = core.NewAuthorizationError("only the challenged student can respond")
	ErrDuelNotActive       = core.NewStateError("duel is not active")
	ErrRequestExpired      = core.NewStateError("duel request expired")
	ErrIndexOutOfRange     = core.NewValidationError(errors.New("question index out of range"), core.FieldError{Field: "questionIndex", Error: "question index out of range"})
	ErrSelfChallenge       = core.NewValidationError(errors.New("cannot challenge yourself"), core.FieldError{Field: "opponentId", Error: "cannot challenge yourself"})
	ErrQuestionCountTooBig = core.NewValidationError(errors.New("too many questions"), core.FieldError{Field: "questionCount", Error: "too many questions"})
)

type Deps struct {
	Repo      Repository
	Stats     StatsRepository
	Questions QuestionBank
	Students  *student.Service
	Guard     *guard.Guard
	Notifier  Notifier
	Observer  Observer
	Logger    core.Logger
	Conf      core.DuelConfig
	Now       func() time.Time
	NewID     func() string
}

type Service struct {
	repo      Repository
	stats     StatsRepository
	questions QuestionBank
	students  *student.Service
	guard     *guard.Guard
	notifier  Notifier
	observer  Observer
	logger    core.Logger
	conf      core.DuelConfig
	now       func() time.Time
	newID     func() string
}

func NewService(deps Deps) *Service {
	svc := &Service{
		repo:      deps.Repo,
		stats:     deps.Stats,
		questions: deps.Questions,
		students:  deps.Students,
		guard:     deps.Guard,
		notifier:  deps.Notifier,
		observer:  deps.Observer,
		logger:    deps.Logger,
		conf:      deps.Conf,
		now:       deps.Now,
		newID:     deps.NewID,
	}
	if svc.notifier == nil {
		svc.notifier = nopNotifier{}
	}
	if svc.observer == nil {
		svc.observer = nopObserver{}
	}
	if svc.now == nil {
		svc.now = core.NowFunc
	}
	if svc.newID == nil {
		svc.newID = newID
	}
	return svc
}

func (svc *Service) clock() time.Time {
	return core.UTCMillis(svc.now())
}

// GetDuel returns the duel as seen by a participant.
func (svc *Service) GetDuel(ctx context.Context, id, studentID string) (Duel, error) {
	d, err := svc.repo.GetDuel(ctx, id)
	if err != nil {
		return Duel{}, err
	}
	if !d.IsParticipant(studentID) {
		return Duel{}, ErrNotParticipant
	}
	return d.Public(), nil
}

// Stats returns the student's duel stats; a student without completed duels gets zero stats.
func (svc *Service) Stats(ctx context.Context, studentID string) (Stats, error) {
	return svc.stats.GetStats(ctx, studentID)
}

func (svc *Service) Leaderboard(ctx context.Context, limit int) ([]Stats, error) {
	return svc.stats.TopStats(ctx, limit)
}

func (svc *Service) notify(ctx context.Context, ev Event) {
	if err := svc.notifier.Notify(ctx, ev); err != nil && svc.logger != nil {
		svc.logger.Warn("notifying "+string(ev.Type), err, map[string]interface{}{"duel": ev.DuelID, "request": ev.RequestID})
	}
}
