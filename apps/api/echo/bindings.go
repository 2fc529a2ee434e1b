package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mentora/core"
)

const (
	limitParam   = "limit"
	defaultLimit = 10
	maxLimit     = 100
)

type Pagination struct {
	Limit int
}

func (p *Pagination) Bind(ctx echo.Context) error {
	p.Limit = defaultLimit
	val := ctx.QueryParam(limitParam)
	if val == "" {
		return nil
	}
	limit, err := strconv.Atoi(val)
	if err != nil || limit < 1 || limit > maxLimit {
		return core.NewValidationError(
			errors.New("invalid pagination"),
			core.FieldError{Field: limitParam, Error: "limit must be a number between 1 and " + strconv.Itoa(maxLimit)},
		)
	}
	p.Limit = limit
	return nil
}
