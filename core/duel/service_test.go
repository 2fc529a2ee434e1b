package duel_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mentora/core"
	"github.com/trezcool/mentora/core/duel"
	"github.com/trezcool/mentora/core/guard"
	"github.com/trezcool/mentora/core/student"
	"github.com/trezcool/mentora/storage/database/inmem"
	"github.com/trezcool/mentora/tests"
)

type fixture struct {
	svc       *duel.Service
	deps      duel.Deps
	repo      duel.Repository
	questions *inmemdb.QuestionBank
	students  student.Repository
	clock     *testutil.Clock
	notifier  *testutil.Notifier
}

func setup(t *testing.T, questions int) fixture {
	t.Helper()
	db, err := inmemdb.Open()
	require.NoError(t, err)

	clock := testutil.NewClock()
	students := inmemdb.NewStudentRepository(db)
	g := guard.New(guard.Options{Conf: testutil.GuardConfig(), Now: clock.Now})
	qb := inmemdb.NewQuestionBank(db)
	qb.AddQuestions("math", testutil.Questions(questions)...)
	notifier := new(testutil.Notifier)
	repo := inmemdb.NewDuelRepository(db)

	deps := duel.Deps{
		Repo:      repo,
		Stats:     inmemdb.NewStatsRepository(db),
		Questions: qb,
		Students:  student.NewService(students, g),
		Guard:     g,
		Notifier:  notifier,
		Conf:      testutil.DuelConfig(),
		Now:       clock.Now,
	}
	testutil.CreateVerifiedStudent(t, students, "alice", clock.Now())
	testutil.CreateVerifiedStudent(t, students, "bob", clock.Now())
	return fixture{
		svc:       duel.NewService(deps),
		deps:      deps,
		repo:      repo,
		questions: qb,
		students:  students,
		clock:     clock,
		notifier:  notifier,
	}
}

func (f fixture) startDuel(t *testing.T, questions int) duel.Duel {
	t.Helper()
	ctx := context.Background()
	req, err := f.svc.CreateRequest(ctx, duel.NewRequest{ChallengerID: "alice", OpponentID: "bob", Subject: "math", QuestionCount: questions})
	require.NoError(t, err)
	d, err := f.svc.RespondToRequest(ctx, req.ID, "bob", true)
	require.NoError(t, err)
	return d
}

func submit(duelID, studentID string, idx int, answer string) duel.Submission {
	return duel.Submission{DuelID: duelID, StudentID: studentID, QuestionIndex: &idx, Answer: answer, TimeTakenMs: 4000}
}

func TestService_endToEnd(t *testing.T) {
	ctx := context.Background()
	f := setup(t, 2)
	d := f.startDuel(t, 2)
	assert.Equal(t, duel.StatusActive, d.Status)
	assert.Empty(t, d.Questions[0].CorrectAnswer, "answers are hidden while active")

	f.clock.Advance(5 * time.Second)
	res, err := f.svc.SubmitAnswer(ctx, submit(d.ID, "alice", 0, "right"))
	require.NoError(t, err)
	assert.Equal(t, duel.AnswerResult{
		IsCorrect: true, CorrectAnswer: "right", PointsEarned: 10, NewStreak: 1,
		Explanation: "because", DuelStatus: duel.StatusActive,
	}, res)

	res, err = f.svc.SubmitAnswer(ctx, submit(d.ID, "bob", 0, "wrong"))
	require.NoError(t, err)
	assert.False(t, res.IsCorrect)
	assert.Equal(t, 0, res.PointsEarned+res.StreakBonus)

	f.clock.Advance(5 * time.Second)
	res, err = f.svc.SubmitAnswer(ctx, submit(d.ID, "alice", 1, "right"))
	require.NoError(t, err)
	assert.Equal(t, 10, res.PointsEarned)
	assert.Equal(t, 2, res.StreakBonus)
	assert.Equal(t, 2, res.NewStreak)
	assert.Equal(t, duel.StatusActive, res.DuelStatus)

	res, err = f.svc.SubmitAnswer(ctx, submit(d.ID, "bob", 1, "right"))
	require.NoError(t, err)
	assert.Equal(t, 10, res.PointsEarned)
	assert.Equal(t, 0, res.StreakBonus)
	assert.Equal(t, 1, res.NewStreak)
	assert.Equal(t, duel.StatusCompleted, res.DuelStatus)

	final, err := f.repo.GetDuel(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, duel.StatusCompleted, final.Status)
	assert.Equal(t, 22, final.ChallengerScore)
	assert.Equal(t, 10, final.OpponentScore)
	require.NotNil(t, final.WinnerID)
	assert.Equal(t, "alice", *final.WinnerID)
	require.NotNil(t, final.CompletedAt)

	// score consistency
	for _, id := range []string{"alice", "bob"} {
		answers, err := f.repo.ListAnswers(ctx, d.ID, id)
		require.NoError(t, err)
		var sum int
		for _, a := range answers {
			sum += a.Total()
		}
		assert.Equal(t, final.ScoreOf(id), sum, id)
	}

	aliceStats, err := f.svc.Stats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, aliceStats.TotalDuels)
	assert.Equal(t, 1, aliceStats.Wins)
	assert.Equal(t, 1, aliceStats.WinStreak)
	assert.Equal(t, 1, aliceStats.MaxWinStreak)
	assert.Equal(t, 50, aliceStats.TotalPointsEarned)

	bobStats, err := f.svc.Stats(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, bobStats.Losses)
	assert.Equal(t, 0, bobStats.WinStreak)
	assert.Equal(t, 0, bobStats.TotalPointsEarned)

	assert.Equal(t, []duel.EventType{duel.EventChallenged, duel.EventAccepted, duel.EventCompleted}, f.notifier.Types())

	// completion runs once
	_, completed, err := f.svc.CompleteDuel(ctx, d.ID)
	require.NoError(t, err)
	assert.False(t, completed)
	aliceStats, _ = f.svc.Stats(ctx, "alice")
	assert.Equal(t, 1, aliceStats.TotalDuels)
}

func TestService_SubmitAnswer_idempotent(t *testing.T) {
	ctx := context.Background()
	f := setup(t, 3)
	d := f.startDuel(t, 3)
	f.clock.Advance(5 * time.Second)

	first, err := f.svc.SubmitAnswer(ctx, submit(d.ID, "alice", 0, "right"))
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	again, err := f.svc.SubmitAnswer(ctx, submit(d.ID, "alice", 0, "right"))
	require.NoError(t, err)
	assert.Equal(t, first, again)

	// a retry with a different answer does not overwrite the stored one either
	changed, err := f.svc.SubmitAnswer(ctx, submit(d.ID, "alice", 0, "wrong"))
	require.NoError(t, err)
	assert.True(t, changed.IsCorrect)

	answers, err := f.repo.ListAnswers(ctx, d.ID, "alice")
	require.NoError(t, err)
	assert.Len(t, answers, 1)
	got, err := f.repo.GetDuel(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.ChallengerScore)
}

// staleAnswers hides the player's stored answers from the service, like a read that ran before a
// concurrent submission of the same player was recorded.
type staleAnswers struct {
	duel.Repository
}

func (staleAnswers) ListAnswers(context.Context, string, string) ([]duel.Answer, error) {
	return nil, nil
}

func TestService_SubmitAnswer_gradedWhenRecorded(t *testing.T) {
	ctx := context.Background()
	f := setup(t, 2)
	d := f.startDuel(t, 2)
	f.clock.Advance(5 * time.Second)

	_, err := f.svc.SubmitAnswer(ctx, submit(d.ID, "alice", 0, "right"))
	require.NoError(t, err)

	deps := f.deps
	deps.Repo = staleAnswers{f.repo}
	res, err := duel.NewService(deps).SubmitAnswer(ctx, submit(d.ID, "alice", 1, "right"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.NewStreak)
	assert.Equal(t, 2, res.StreakBonus)

	got, err := f.repo.GetDuel(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 22, got.ChallengerScore)
}

// answerKeys counts the stored answers per (student, index) of the duel.
func answerKeys(t *testing.T, repo duel.Repository, duelID string, students ...string) map[string]int {
	t.Helper()
	keys := make(map[string]int)
	for _, id := range students {
		answers, err := repo.ListAnswers(context.Background(), duelID, id)
		require.NoError(t, err)
		for _, a := range answers {
			keys[fmt.Sprintf("%s/%d", id, a.QuestionIndex)]++
		}
	}
	return keys
}

func TestService_SubmitAnswer_concurrent(t *testing.T) {
	ctx := context.Background()

	// both players answer the last question at once, each client sending its submission twice
	for round := 0; round < 25; round++ {
		f := setup(t, 1)
		d := f.startDuel(t, 1)
		f.clock.Advance(5 * time.Second)

		var wg sync.WaitGroup
		for _, sub := range []duel.Submission{
			submit(d.ID, "alice", 0, "right"), submit(d.ID, "alice", 0, "right"),
			submit(d.ID, "bob", 0, "wrong"), submit(d.ID, "bob", 0, "wrong"),
		} {
			wg.Add(1)
			go func(sub duel.Submission) {
				defer wg.Done()
				_, err := f.svc.SubmitAnswer(ctx, sub)
				if err != nil {
					// a retry can arrive after the duel completed
					assert.Equal(t, duel.ErrDuelNotActive, errors.Cause(err), "round %d", round)
				}
			}(sub)
		}
		wg.Wait()

		final, err := f.repo.GetDuel(ctx, d.ID)
		require.NoError(t, err)
		require.Equal(t, duel.StatusCompleted, final.Status, "round %d", round)
		assert.Equal(t, 10, final.ChallengerScore, "round %d", round)
		assert.Equal(t, 0, final.OpponentScore, "round %d", round)
		require.NotNil(t, final.WinnerID)
		assert.Equal(t, "alice", *final.WinnerID)

		for _, id := range []string{"alice", "bob"} {
			answers, err := f.repo.ListAnswers(ctx, d.ID, id)
			require.NoError(t, err)
			var sum int
			for _, a := range answers {
				sum += a.Total()
			}
			assert.Equal(t, final.ScoreOf(id), sum, "round %d: %s", round, id)

			st, err := f.svc.Stats(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, 1, st.TotalDuels, "round %d: %s", round, id)
		}
		assert.Equal(t, map[string]int{"alice/0": 1, "bob/0": 1}, answerKeys(t, f.repo, d.ID, "alice", "bob"))

		var completedEvents int
		for _, typ := range f.notifier.Types() {
			if typ == duel.EventCompleted {
				completedEvents++
			}
		}
		assert.Equal(t, 1, completedEvents, "round %d", round)
	}
}

func TestService_SubmitAnswer_concurrentStreak(t *testing.T) {
	ctx := context.Background()

	// one player sends adjacent questions at once: each answer is graded on what was recorded before it
	for round := 0; round < 25; round++ {
		f := setup(t, 3)
		d := f.startDuel(t, 3)
		f.clock.Advance(5 * time.Second)

		var wg sync.WaitGroup
		for idx := 0; idx < 2; idx++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				_, err := f.svc.SubmitAnswer(ctx, submit(d.ID, "alice", idx, "right"))
				assert.NoError(t, err)
			}(idx)
		}
		wg.Wait()

		answers, err := f.repo.ListAnswers(ctx, d.ID, "alice")
		require.NoError(t, err)
		require.Len(t, answers, 2)
		q0, q1 := answers[0], answers[1]
		assert.Equal(t, 1, q0.Streak, "round %d", round)
		if q1.Streak == 2 {
			assert.Equal(t, 2, q1.StreakBonus, "round %d", round)
		} else {
			// Q1 was recorded first
			assert.Equal(t, 1, q1.Streak, "round %d", round)
			assert.Equal(t, 0, q1.StreakBonus, "round %d", round)
		}

		got, err := f.repo.GetDuel(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, q0.Total()+q1.Total(), got.ChallengerScore, "round %d", round)
	}
}

func TestService_SubmitAnswer_streakReset(t *testing.T) {
	ctx := context.Background()
	f := setup(t, 4)
	d := f.startDuel(t, 4)

	want := []struct {
		answer string
		streak int
		total  int
	}{
		{"right", 1, 10},
		{"right", 2, 12},
		{"wrong", 0, 0},
		{"right", 1, 10},
	}
	for i, w := range want {
		f.clock.Advance(5 * time.Second)
		res, err := f.svc.SubmitAnswer(ctx, submit(d.ID, "alice", i, w.answer))
		require.NoError(t, err)
		assert.Equal(t, w.streak, res.NewStreak, "question %d", i)
		assert.Equal(t, w.total, res.PointsEarned+res.StreakBonus, "question %d", i)
	}
}

func TestService_SubmitAnswer_errors(t *testing.T) {
	ctx := context.Background()
	f := setup(t, 1)
	testutil.CreateVerifiedStudent(t, f.students, "carol", f.clock.Now())
	d := f.startDuel(t, 1)
	f.clock.Advance(5 * time.Second)

	_, err := f.svc.SubmitAnswer(ctx, submit("nope", "alice", 0, "right"))
	assert.IsType(t, &core.NotFoundError{}, errors.Cause(err))

	_, err = f.svc.SubmitAnswer(ctx, submit(d.ID, "carol", 0, "right"))
	assert.IsType(t, &core.AuthorizationError{}, errors.Cause(err))

	_, err = f.svc.SubmitAnswer(ctx, submit(d.ID, "alice", 1, "right"))
	assert.IsType(t, &core.ValidationError{}, errors.Cause(err))

	_, err = f.svc.SubmitAnswer(ctx, submit(d.ID, "alice", 0, "right"))
	require.NoError(t, err)
	res, err := f.svc.SubmitAnswer(ctx, submit(d.ID, "bob", 0, "right"))
	require.NoError(t, err)
	require.Equal(t, duel.StatusCompleted, res.DuelStatus)

	// participant check comes before the state check
	f.clock.Advance(time.Minute)
	_, err = f.svc.SubmitAnswer(ctx, submit(d.ID, "carol", 0, "right"))
	assert.IsType(t, &core.AuthorizationError{}, errors.Cause(err))
	_, err = f.svc.SubmitAnswer(ctx, submit(d.ID, "alice", 0, "right"))
	assert.IsType(t, &core.StateError{}, errors.Cause(err))
}

func TestService_SubmitAnswer_tooLate(t *testing.T) {
	ctx := context.Background()
	f := setup(t, 1)
	d := f.startDuel(t, 1)

	f.clock.Advance(11 * time.Minute)
	_, err := f.svc.SubmitAnswer(ctx, submit(d.ID, "alice", 0, "right"))
	assert.Equal(t, guard.ErrAnswerWindowExpired, errors.Cause(err))
}

func TestService_SubmitAnswer_rateLimited(t *testing.T) {
	ctx := context.Background()
	f := setup(t, 5)
	d := f.startDuel(t, 5)
	f.clock.Advance(5 * time.Second)

	for i := 0; i < 3; i++ {
		_, err := f.svc.SubmitAnswer(ctx, submit(d.ID, "alice", i, "right"))
		require.NoError(t, err)
	}
	_, err := f.svc.SubmitAnswer(ctx, submit(d.ID, "alice", 3, "right"))
	var rlErr *core.RateLimitError
	require.True(t, errors.As(err, &rlErr), "got %v", err)
	assert.Equal(t, 30*time.Second, rlErr.RetryAfter)

	answers, _ := f.repo.ListAnswers(ctx, d.ID, "alice")
	assert.Len(t, answers, 3)
}

func TestService_RespondToRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("only the opponent responds", func(t *testing.T) {
		f := setup(t, 1)
		req, err := f.svc.CreateRequest(ctx, duel.NewRequest{ChallengerID: "alice", OpponentID: "bob", QuestionCount: 1})
		require.NoError(t, err)
		_, err = f.svc.RespondToRequest(ctx, req.ID, "alice", true)
		assert.Equal(t, duel.ErrNotOpponent, errors.Cause(err))
	})

	t.Run("expired", func(t *testing.T) {
		f := setup(t, 1)
		req, err := f.svc.CreateRequest(ctx, duel.NewRequest{ChallengerID: "alice", OpponentID: "bob", QuestionCount: 1})
		require.NoError(t, err)
		assert.Equal(t, f.clock.Now().Add(30*time.Second), req.ExpiresAt)

		f.clock.Advance(30 * time.Second)
		_, err = f.svc.RespondToRequest(ctx, req.ID, "bob", true)
		assert.Equal(t, duel.ErrRequestExpired, errors.Cause(err))
	})

	t.Run("rejected", func(t *testing.T) {
		f := setup(t, 1)
		req, err := f.svc.CreateRequest(ctx, duel.NewRequest{ChallengerID: "alice", OpponentID: "bob", QuestionCount: 1})
		require.NoError(t, err)
		d, err := f.svc.RespondToRequest(ctx, req.ID, "bob", false)
		require.NoError(t, err)
		assert.Empty(t, d.ID)
		_, err = f.repo.GetRequest(ctx, req.ID)
		assert.Equal(t, duel.ErrRequestNotFound, errors.Cause(err))
		assert.Equal(t, []duel.EventType{duel.EventChallenged, duel.EventRejected}, f.notifier.Types())
	})

	t.Run("accepted once", func(t *testing.T) {
		f := setup(t, 1)
		req, err := f.svc.CreateRequest(ctx, duel.NewRequest{ChallengerID: "alice", OpponentID: "bob", QuestionCount: 1})
		require.NoError(t, err)
		_, err = f.svc.RespondToRequest(ctx, req.ID, "bob", true)
		require.NoError(t, err)
		_, err = f.svc.RespondToRequest(ctx, req.ID, "bob", true)
		assert.Equal(t, duel.ErrRequestNotFound, errors.Cause(err))
	})

	t.Run("not enough questions", func(t *testing.T) {
		f := setup(t, 1)
		req, err := f.svc.CreateRequest(ctx, duel.NewRequest{ChallengerID: "alice", OpponentID: "bob", Subject: "math", QuestionCount: 2})
		require.NoError(t, err)
		_, err = f.svc.RespondToRequest(ctx, req.ID, "bob", true)
		assert.Equal(t, duel.ErrNotEnoughQuestions, errors.Cause(err))

		// the request survives and can be accepted once the bank has enough questions
		_, err = f.repo.GetRequest(ctx, req.ID)
		require.NoError(t, err)
		f.questions.AddQuestions("math", testutil.Questions(2)[1])
		d, err := f.svc.RespondToRequest(ctx, req.ID, "bob", true)
		require.NoError(t, err)
		assert.Len(t, d.Questions, 2)
		assert.Equal(t, []duel.EventType{duel.EventChallenged, duel.EventAccepted}, f.notifier.Types())
	})

	t.Run("concurrent accepts start one duel", func(t *testing.T) {
		f := setup(t, 1)
		req, err := f.svc.CreateRequest(ctx, duel.NewRequest{ChallengerID: "alice", OpponentID: "bob", QuestionCount: 1})
		require.NoError(t, err)

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			started []string
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				d, err := f.svc.RespondToRequest(ctx, req.ID, "bob", true)
				if err != nil {
					assert.Equal(t, duel.ErrRequestNotFound, errors.Cause(err))
					return
				}
				mu.Lock()
				started = append(started, d.ID)
				mu.Unlock()
			}()
		}
		wg.Wait()

		require.Len(t, started, 1)
		_, err = f.repo.GetDuel(ctx, started[0])
		require.NoError(t, err)
		assert.Equal(t, []duel.EventType{duel.EventChallenged, duel.EventAccepted}, f.notifier.Types())
	})
}

func TestService_CreateRequest(t *testing.T) {
	ctx := context.Background()
	f := setup(t, 1)
	testutil.CreateStudent(t, f.students, "newbie", f.clock.Now(), 24*time.Hour, 50)

	tests := []struct {
		name    string
		nr      duel.NewRequest
		wantErr interface{}
	}{
		{"self challenge", duel.NewRequest{ChallengerID: "alice", OpponentID: "alice", QuestionCount: 1}, &core.ValidationError{}},
		{"too many questions", duel.NewRequest{ChallengerID: "alice", OpponentID: "bob", QuestionCount: 21}, &core.ValidationError{}},
		{"unknown opponent", duel.NewRequest{ChallengerID: "alice", OpponentID: "ghost", QuestionCount: 1}, &core.NotFoundError{}},
		{"new account cannot duel", duel.NewRequest{ChallengerID: "newbie", OpponentID: "bob", QuestionCount: 1}, &core.AuthorizationError{}},
		{"opponent cannot duel", duel.NewRequest{ChallengerID: "alice", OpponentID: "newbie", QuestionCount: 1}, &core.AuthorizationError{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateRequest(ctx, tt.nr)
			require.Error(t, err)
			assert.IsType(t, tt.wantErr, errors.Cause(err))
		})
	}

	// trust promotions are persisted
	p, err := f.students.GetProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, guard.TrustVerified, p.TrustLevel)
}

func TestService_PendingAndSweep(t *testing.T) {
	ctx := context.Background()
	f := setup(t, 1)

	_, err := f.svc.CreateRequest(ctx, duel.NewRequest{ChallengerID: "alice", OpponentID: "bob", QuestionCount: 1})
	require.NoError(t, err)
	f.clock.Advance(20 * time.Second)
	fresh, err := f.svc.CreateRequest(ctx, duel.NewRequest{ChallengerID: "bob", OpponentID: "alice", QuestionCount: 1})
	require.NoError(t, err)

	pending, err := f.svc.PendingRequests(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	f.clock.Advance(15 * time.Second)
	pending, err = f.svc.PendingRequests(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, fresh.ID, pending[0].ID)

	n, err := f.svc.SweepExpiredRequests(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestService_GetDuel(t *testing.T) {
	ctx := context.Background()
	f := setup(t, 1)
	testutil.CreateVerifiedStudent(t, f.students, "carol", f.clock.Now())
	d := f.startDuel(t, 1)

	got, err := f.svc.GetDuel(ctx, d.ID, "bob")
	require.NoError(t, err)
	assert.Empty(t, got.Questions[0].CorrectAnswer)

	_, err = f.svc.GetDuel(ctx, d.ID, "carol")
	assert.Equal(t, duel.ErrNotParticipant, errors.Cause(err))

	stats, err := f.svc.Stats(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, duel.Stats{StudentID: "carol"}, stats)
}
