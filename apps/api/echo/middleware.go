package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/mentora/core/guard"
)

// rateLimitMiddleware applies the API policy per student, or per client IP when unauthenticated.
func rateLimitMiddleware(g *guard.Guard) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			key := "ip:" + ctx.RealIP()
			if id, err := getContextStudent(ctx); err == nil {
				key = id
			}
			if err := g.AllowAPI(ctx.Request().Context(), key); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}
