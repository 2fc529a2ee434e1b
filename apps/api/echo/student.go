package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mentora/core/student"
)

type studentApi struct {
	svc *student.Service
}

func registerStudentAPI(g *echo.Group, svc *student.Service) {
	api := studentApi{svc: svc}

	sg := g.Group("/students")
	sg.GET("/me/trust", api.trust)
}

func (api *studentApi) trust(ctx echo.Context) error {
	studentID, err := getContextStudent(ctx)
	if err != nil {
		return err
	}
	ts, err := api.svc.Trust(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "getting trust status")
	}
	return ctx.JSON(http.StatusOK, ts)
}
