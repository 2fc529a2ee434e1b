package student

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/mentora/core"
	"github.com/trezcool/mentora/core/guard"
)

var ErrNotFound = core.NewNotFoundError("student not found")

type Service struct {
	repo  Repository
	guard *guard.Guard
}

func NewService(repo Repository, g *guard.Guard) *Service {
	return &Service{repo: repo, guard: g}
}

// Profile loads a student and brings its trust level up to date, persisting promotions.
// Levels are never demoted.
func (svc *Service) Profile(ctx context.Context, id string) (Profile, error) {
	p, err := svc.repo.GetProfile(ctx, id)
	if err != nil {
		return Profile{}, err
	}

	derived := svc.guard.TrustLevel(p.CreatedAt, p.SolvedCount)
	level := p.TrustLevel.Max(derived)
	if level != p.TrustLevel {
		if err := svc.repo.PromoteTrust(ctx, id, level); err != nil {
			return Profile{}, errors.Wrap(err, "promoting trust level")
		}
		p.TrustLevel = level
	}
	return p, nil
}

func (svc *Service) Trust(ctx context.Context, id string) (TrustStatus, error) {
	p, err := svc.Profile(ctx, id)
	if err != nil {
		return TrustStatus{}, err
	}
	return TrustStatus{
		StudentID:  p.ID,
		Level:      p.TrustLevel,
		Features:   p.TrustLevel.Features(),
		DailyLimit: p.TrustLevel.DailyLimit(),
	}, nil
}

// Require fails with an AuthorizationError when the student's tier does not include `feat`.
func (svc *Service) Require(ctx context.Context, id string, feat guard.Feature) (Profile, error) {
	p, err := svc.Profile(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	if !p.TrustLevel.Allows(feat) {
		return Profile{}, core.NewAuthorizationError("trust level " + string(p.TrustLevel) + " does not allow " + string(feat))
	}
	return p, nil
}
