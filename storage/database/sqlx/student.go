package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/mentora/core"
	"github.com/trezcool/mentora/core/guard"
	"github.com/trezcool/mentora/core/student"
)

const uniqueViolation = "23505"

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.db
}

func (repo *studentRepository) GetProfile(ctx context.Context, id string, exec ...core.DBExecutor) (student.Profile, error) {
	var (
		p     student.Profile
		level string
	)
	err := repo.getExec(exec).QueryRowContext(ctx,
		"SELECT id, created_at, solved_count, trust_level FROM student_profiles WHERE id = $1", id,
	).Scan(&p.ID, &p.CreatedAt, &p.SolvedCount, &level)
	if err != nil {
		return student.Profile{}, trapNoRowsErr(err, student.ErrNotFound, "getting student profile")
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.TrustLevel = guard.TrustLevel(level)
	return p, nil
}

func (repo *studentRepository) CreateProfile(ctx context.Context, p student.Profile, exec ...core.DBExecutor) (student.Profile, error) {
	if !p.TrustLevel.Valid() {
		p.TrustLevel = guard.TrustNew
	}
	_, err := repo.getExec(exec).ExecContext(ctx,
		"INSERT INTO student_profiles (id, created_at, solved_count, trust_level) VALUES ($1, $2, $3, $4)",
		p.ID, p.CreatedAt.UTC(), p.SolvedCount, string(p.TrustLevel))
	if err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return student.Profile{}, core.NewValidationError(errors.New("student already exists"),
				core.FieldError{Field: "id", Error: "student already exists"})
		}
		return student.Profile{}, errors.Wrap(err, "inserting student profile")
	}
	return p, nil
}

// PromoteTrust only ever raises the level: the update is skipped when the stored rank is not lower.
func (repo *studentRepository) PromoteTrust(ctx context.Context, id string, level guard.TrustLevel, exec ...core.DBExecutor) error {
	const q = `UPDATE student_profiles SET trust_level = $1
		WHERE id = $2 AND (CASE trust_level WHEN 'trusted' THEN 2 WHEN 'verified' THEN 1 ELSE 0 END) <
			(CASE $1::text WHEN 'trusted' THEN 2 WHEN 'verified' THEN 1 ELSE 0 END)`
	if _, err := repo.getExec(exec).ExecContext(ctx, q, string(level), id); err != nil {
		return errors.Wrap(err, "promoting trust level")
	}
	return nil
}
