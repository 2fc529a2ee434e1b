package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/mentora/core"
	"github.com/trezcool/mentora/core/duel"
)

type duelRepository struct {
	db *DB
}

var _ duel.Repository = (*duelRepository)(nil)

func NewDuelRepository(db *DB) duel.Repository {
	return &duelRepository{db: db}
}

func (repo *duelRepository) CreateRequest(_ context.Context, req duel.Request) (duel.Request, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.db.requests[req.ID] = req
	return req, nil
}

func (repo *duelRepository) GetRequest(_ context.Context, id string) (duel.Request, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if req, ok := repo.db.requests[id]; ok {
		return req, nil
	}
	return duel.Request{}, duel.ErrRequestNotFound
}

func (repo *duelRepository) ClaimRequest(_ context.Context, id string) (duel.Request, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	req, ok := repo.db.requests[id]
	if !ok {
		return duel.Request{}, duel.ErrRequestNotFound
	}
	delete(repo.db.requests, id)
	return req, nil
}

func (repo *duelRepository) PendingRequests(_ context.Context, studentID string, now time.Time) ([]duel.Request, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	reqs := make([]duel.Request, 0)
	for _, req := range repo.db.requests {
		if req.Involves(studentID) && req.StatusAt(now) == duel.StatusPending {
			reqs = append(reqs, req)
		}
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].CreatedAt.Before(reqs[j].CreatedAt) })
	return reqs, nil
}

func (repo *duelRepository) DeleteExpiredRequests(_ context.Context, now time.Time) (int64, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	var n int64
	for id, req := range repo.db.requests {
		if req.StatusAt(now) == duel.StatusExpired {
			delete(repo.db.requests, id)
			n++
		}
	}
	return n, nil
}

func (repo *duelRepository) StartDuel(_ context.Context, requestID string, d duel.Duel) (duel.Duel, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.requests[requestID]; !ok {
		return duel.Duel{}, duel.ErrRequestNotFound
	}
	delete(repo.db.requests, requestID)
	d.Questions = append([]duel.Question(nil), d.Questions...)
	repo.db.duels[d.ID] = &d
	return d, nil
}

func (repo *duelRepository) GetDuel(_ context.Context, id string) (duel.Duel, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if d, ok := repo.db.duels[id]; ok {
		return *d, nil
	}
	return duel.Duel{}, duel.ErrDuelNotFound
}

func (repo *duelRepository) ListAnswers(_ context.Context, duelID, studentID string) ([]duel.Answer, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	answers := repo.filterAnswers(func(a duel.Answer) bool { return a.DuelID == duelID && a.StudentID == studentID })
	sort.Slice(answers, func(i, j int) bool { return answers[i].QuestionIndex < answers[j].QuestionIndex })
	return answers, nil
}

func (repo *duelRepository) RecordAnswer(_ context.Context, ans duel.Answer, challenger bool) (duel.Answer, bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	key := answerKey{ans.DuelID, ans.StudentID, ans.QuestionIndex}
	if stored, ok := repo.db.answers[key]; ok {
		return stored, false, nil
	}
	d, ok := repo.db.duels[ans.DuelID]
	if !ok {
		return duel.Answer{}, false, duel.ErrDuelNotFound
	}
	if d.Status != duel.StatusActive {
		return duel.Answer{}, false, duel.ErrDuelNotActive
	}

	ans.Grade(repo.filterAnswers(func(a duel.Answer) bool { return a.DuelID == ans.DuelID && a.StudentID == ans.StudentID }))
	repo.db.answers[key] = ans
	if challenger {
		d.ChallengerScore += ans.Total()
	} else {
		d.OpponentScore += ans.Total()
	}
	return ans, true, nil
}

func (repo *duelRepository) CountAnswersAt(_ context.Context, duelID string, index int) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return len(repo.filterAnswers(func(a duel.Answer) bool { return a.DuelID == duelID && a.QuestionIndex == index })), nil
}

func (repo *duelRepository) RecentAnswers(_ context.Context, studentID string, since time.Time) ([]duel.Answer, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	answers := repo.filterAnswers(func(a duel.Answer) bool { return a.StudentID == studentID && !a.AnsweredAt.Before(since) })
	sort.Slice(answers, func(i, j int) bool { return answers[i].AnsweredAt.After(answers[j].AnsweredAt) })
	return answers, nil
}

func (repo *duelRepository) CountAnswersSince(ctx context.Context, studentID string, since time.Time) (int, error) {
	answers, err := repo.RecentAnswers(ctx, studentID, since)
	return len(answers), err
}

func (repo *duelRepository) CompleteDuel(_ context.Context, id string, at time.Time, winBonus int) (duel.Duel, bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	d, ok := repo.db.duels[id]
	if !ok {
		return duel.Duel{}, false, duel.ErrDuelNotFound
	}
	if !d.Complete(at) {
		return *d, false, nil
	}
	for _, delta := range d.Outcomes(winBonus) {
		repo.db.stats[delta.StudentID] = repo.db.stats[delta.StudentID].Apply(delta)
	}
	return *d, true, nil
}

// filterAnswers returns the answers matching `keep`. Caller holds the lock.
func (repo *duelRepository) filterAnswers(keep func(duel.Answer) bool) []duel.Answer {
	answers := make([]duel.Answer, 0)
	for _, a := range repo.db.answers {
		if keep(a) {
			answers = append(answers, a)
		}
	}
	return answers
}

type statsRepository struct {
	db *DB
}

var _ duel.StatsRepository = (*statsRepository)(nil)

func NewStatsRepository(db *DB) duel.StatsRepository {
	return &statsRepository{db: db}
}

func (repo *statsRepository) GetStats(_ context.Context, studentID string, _ ...core.DBExecutor) (duel.Stats, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	s, ok := repo.db.stats[studentID]
	if !ok {
		return duel.Stats{StudentID: studentID}, nil
	}
	return s, nil
}

func (repo *statsRepository) TopStats(_ context.Context, limit int, _ ...core.DBExecutor) ([]duel.Stats, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	all := make([]duel.Stats, 0, len(repo.db.stats))
	for _, s := range repo.db.stats {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Wins != all[j].Wins {
			return all[i].Wins > all[j].Wins
		}
		if all[i].TotalPointsEarned != all[j].TotalPointsEarned {
			return all[i].TotalPointsEarned > all[j].TotalPointsEarned
		}
		return all[i].StudentID < all[j].StudentID
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (repo *statsRepository) ApplyStatsDelta(_ context.Context, delta duel.StatsDelta, _ ...core.DBExecutor) (duel.Stats, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	s := repo.db.stats[delta.StudentID].Apply(delta)
	repo.db.stats[delta.StudentID] = s
	return s, nil
}
