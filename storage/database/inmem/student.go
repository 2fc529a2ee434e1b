package inmemdb

import (
	"context"

	"github.com/trezcool/mentora/core"
	"github.com/trezcool/mentora/core/guard"
	"github.com/trezcool/mentora/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) GetProfile(_ context.Context, id string, _ ...core.DBExecutor) (student.Profile, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if p, ok := repo.db.profiles[id]; ok {
		return p, nil
	}
	return student.Profile{}, student.ErrNotFound
}

func (repo *studentRepository) CreateProfile(_ context.Context, p student.Profile, _ ...core.DBExecutor) (student.Profile, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if !p.TrustLevel.Valid() {
		p.TrustLevel = guard.TrustNew
	}
	repo.db.profiles[p.ID] = p
	return p, nil
}

func (repo *studentRepository) PromoteTrust(_ context.Context, id string, level guard.TrustLevel, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	p, ok := repo.db.profiles[id]
	if !ok {
		return student.ErrNotFound
	}
	p.TrustLevel = p.TrustLevel.Max(level)
	repo.db.profiles[id] = p
	return nil
}
