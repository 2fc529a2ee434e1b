package duel

import (
	"context"
	"time"

	"github.com/trezcool/mentora/core"
)

type (
	Repository interface {
		CreateRequest(ctx context.Context, req Request) (Request, error)
		GetRequest(ctx context.Context, id string) (Request, error)
		// ClaimRequest removes the request and returns it. Only one concurrent caller gets it;
		// the others get ErrRequestNotFound.
		ClaimRequest(ctx context.Context, id string) (Request, error)
		PendingRequests(ctx context.Context, studentID string, now time.Time) ([]Request, error)
		DeleteExpiredRequests(ctx context.Context, now time.Time) (int64, error)

		// StartDuel claims the request and stores the duel in one transaction. When the request
		// is already gone it returns ErrRequestNotFound and stores nothing.
		StartDuel(ctx context.Context, requestID string, d Duel) (Duel, error)
		GetDuel(ctx context.Context, id string) (Duel, error)

		// ListAnswers returns the student's answers in the duel ordered by question index.
		ListAnswers(ctx context.Context, duelID, studentID string) ([]Answer, error)
		// RecordAnswer grades the answer (Answer.Grade) against the player's stored answers, stores
		// it if its key is new and adds its Total to the player's score, all while holding the duel.
		// When the key already exists the stored answer is returned, inserted is false and no score
		// changes. A duel that is no longer active gives ErrDuelNotActive.
		RecordAnswer(ctx context.Context, ans Answer, challenger bool) (stored Answer, inserted bool, err error)
		CountAnswersAt(ctx context.Context, duelID string, index int) (int, error)
		// RecentAnswers returns the student's answers across all duels since `since`.
		RecentAnswers(ctx context.Context, studentID string, since time.Time) ([]Answer, error)
		CountAnswersSince(ctx context.Context, studentID string, since time.Time) (int, error)

		// CompleteDuel locks the duel, completes it when still active and applies both players'
		// stats deltas in the same transaction. completed is false when another caller got there first.
		CompleteDuel(ctx context.Context, id string, at time.Time, winBonus int) (d Duel, completed bool, err error)
	}

	StatsRepository interface {
		GetStats(ctx context.Context, studentID string, exec ...core.DBExecutor) (Stats, error)
		TopStats(ctx context.Context, limit int, exec ...core.DBExecutor) ([]Stats, error)
		ApplyStatsDelta(ctx context.Context, delta StatsDelta, exec ...core.DBExecutor) (Stats, error)
	}

	QuestionBank interface {
		// PickQuestions returns `count` questions, restricted to `subject` when it is not empty.
		PickQuestions(ctx context.Context, subject string, count int) ([]Question, error)
	}
)
