package duel

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mentora/core"
	"github.com/trezcool/mentora/core/guard"
)

// SubmitAnswer grades and records one answer. Submitting the same (duel, student, index) again
// returns the first result without touching the score.
func (svc *Service) SubmitAnswer(ctx context.Context, sub Submission) (AnswerResult, error) {
	if err := svc.guard.AllowAnswer(ctx, sub.StudentID); err != nil {
		return AnswerResult{}, err
	}

	d, err := svc.repo.GetDuel(ctx, sub.DuelID)
	if err != nil {
		return AnswerResult{}, err
	}
	if !d.IsParticipant(sub.StudentID) {
		return AnswerResult{}, ErrNotParticipant
	}
	if d.Status != StatusActive {
		return AnswerResult{}, ErrDuelNotActive
	}
	idx := sub.Index()
	if idx < 0 || idx > d.LastIndex() {
		return AnswerResult{}, ErrIndexOutOfRange
	}

	prev, err := svc.repo.ListAnswers(ctx, d.ID, sub.StudentID)
	if err != nil {
		return AnswerResult{}, errors.Wrap(err, "listing answers")
	}
	if stored, ok := findAnswer(prev, idx); ok {
		return svc.replay(ctx, d, stored)
	}

	now := svc.clock()
	if err := svc.checkQuota(ctx, sub.StudentID, now); err != nil {
		return AnswerResult{}, err
	}
	flags, err := svc.guard.ValidateTiming(shownAt(d, prev, idx), sub.TimeTakenMs)
	if err != nil {
		return AnswerResult{}, err
	}

	q := d.Questions[idx]
	stored, inserted, err := svc.repo.RecordAnswer(ctx, Answer{
		DuelID:        d.ID,
		StudentID:     sub.StudentID,
		QuestionIndex: idx,
		Answer:        sub.Answer,
		IsCorrect:     sub.Answer == q.CorrectAnswer,
		TimeTakenMs:   sub.TimeTakenMs,
		AnsweredAt:    now,
	}, d.IsChallenger(sub.StudentID))
	if err != nil {
		return AnswerResult{}, errors.Wrap(err, "recording answer")
	}
	if !inserted { // lost a race against a retry of the same submission
		return svc.replay(ctx, d, stored)
	}

	svc.observer.AnswerRecorded(stored.IsCorrect)
	svc.assess(ctx, sub.StudentID, flags, now)

	status, err := svc.completeIfDone(ctx, d, idx)
	if err != nil {
		return AnswerResult{}, err
	}
	return stored.result(q, status), nil
}

// replay rebuilds the result of an already stored answer. It also retries completion, in case
// the first submission failed after the answer was stored.
func (svc *Service) replay(ctx context.Context, d Duel, ans Answer) (AnswerResult, error) {
	status, err := svc.completeIfDone(ctx, d, ans.QuestionIndex)
	if err != nil {
		return AnswerResult{}, err
	}
	return ans.result(d.Questions[ans.QuestionIndex], status), nil
}

func (a Answer) result(q Question, status Status) AnswerResult {
	return AnswerResult{
		IsCorrect:     a.IsCorrect,
		CorrectAnswer: q.CorrectAnswer,
		PointsEarned:  a.PointsEarned,
		StreakBonus:   a.StreakBonus,
		NewStreak:     a.Streak,
		Explanation:   q.Explanation,
		DuelStatus:    status,
	}
}

func (svc *Service) checkQuota(ctx context.Context, studentID string, now time.Time) error {
	p, err := svc.students.Profile(ctx, studentID)
	if err != nil {
		return err
	}
	if p.TrustLevel.DailyLimit() == guard.Unlimited {
		return nil
	}
	y, m, day := now.UTC().Date()
	n, err := svc.repo.CountAnswersSince(ctx, studentID, time.Date(y, m, day, 0, 0, 0, 0, time.UTC))
	if err != nil {
		return errors.Wrap(err, "counting today's answers")
	}
	return guard.CheckDailyQuota(p.TrustLevel, n, now)
}

// assess feeds the student's last minute of answers to the suspicion scorer. Failures are only logged.
func (svc *Service) assess(ctx context.Context, studentID string, flags []guard.TimingFlag, now time.Time) {
	recent, err := svc.repo.RecentAnswers(ctx, studentID, now.Add(-time.Minute))
	if err != nil {
		if svc.logger != nil {
			svc.logger.Error("loading recent answers", err, core.StudentID(studentID))
		}
		return
	}
	samples := make([]guard.AnswerSample, len(recent))
	for i, a := range recent {
		samples[i] = guard.AnswerSample{IsCorrect: a.IsCorrect, TimeTakenMs: a.TimeTakenMs, AnsweredAt: a.AnsweredAt}
	}
	svc.guard.Assess(ctx, studentID, samples, flags)
}

// shownAt is when question `idx` appeared to the player: the duel start for the first question,
// the player's latest earlier answer otherwise.
func shownAt(d Duel, prev []Answer, idx int) time.Time {
	at := d.StartedAt
	for _, a := range prev {
		if a.QuestionIndex < idx && a.AnsweredAt.After(at) {
			at = a.AnsweredAt
		}
	}
	return at
}

func findAnswer(answers []Answer, idx int) (Answer, bool) {
	for _, a := range answers {
		if a.QuestionIndex == idx {
			return a, true
		}
	}
	return Answer{}, false
}
