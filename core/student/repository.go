package student

import (
	"context"

	"github.com/trezcool/mentora/core"
	"github.com/trezcool/mentora/core/guard"
)

type Repository interface {
	GetProfile(ctx context.Context, id string, exec ...core.DBExecutor) (Profile, error)
	CreateProfile(ctx context.Context, p Profile, exec ...core.DBExecutor) (Profile, error)
	// PromoteTrust raises the stored level to `level`; a lower level leaves it unchanged.
	PromoteTrust(ctx context.Context, id string, level guard.TrustLevel, exec ...core.DBExecutor) error
}
