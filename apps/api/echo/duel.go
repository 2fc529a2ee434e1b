package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mentora/core/duel"
)

type duelApi struct {
	svc      *duel.Service
	validate *validator.Validate
}

func registerDuelAPI(g *echo.Group, svc *duel.Service, validate *validator.Validate) {
	api := duelApi{svc: svc, validate: validate}

	dg := g.Group("/duels")
	dg.POST("/requests", api.createRequest)
	dg.GET("/requests", api.pendingRequests)
	dg.POST("/requests/:id/respond", api.respond)
	dg.GET("/stats/:studentId", api.stats)
	dg.GET("/:id", api.retrieve)

	g.POST("/duel/answer", api.answer)
	g.GET("/leaderboard", api.leaderboard)
}

// Handlers

func (api *duelApi) createRequest(ctx echo.Context) error {
	studentID, err := getContextStudent(ctx)
	if err != nil {
		return err
	}
	var data duel.NewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRequest")
	}
	data.ChallengerID = studentID
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	req, err := api.svc.CreateRequest(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating duel request")
	}
	return ctx.JSON(http.StatusCreated, req)
}

func (api *duelApi) pendingRequests(ctx echo.Context) error {
	studentID, err := getContextStudent(ctx)
	if err != nil {
		return err
	}
	reqs, err := api.svc.PendingRequests(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "listing pending requests")
	}
	if reqs == nil {
		reqs = []duel.Request{}
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *duelApi) respond(ctx echo.Context) error {
	studentID, err := getContextStudent(ctx)
	if err != nil {
		return err
	}
	var data duel.RespondRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RespondRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	d, err := api.svc.RespondToRequest(ctx.Request().Context(), ctx.Param("id"), studentID, *data.Accept)
	if err != nil {
		return errors.Wrap(err, "responding to duel request")
	}
	if !*data.Accept {
		return ctx.NoContent(http.StatusNoContent)
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *duelApi) retrieve(ctx echo.Context) error {
	studentID, err := getContextStudent(ctx)
	if err != nil {
		return err
	}
	d, err := api.svc.GetDuel(ctx.Request().Context(), ctx.Param("id"), studentID)
	if err != nil {
		return errors.Wrap(err, "getting duel")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *duelApi) answer(ctx echo.Context) error {
	studentID, err := getContextStudent(ctx)
	if err != nil {
		return err
	}
	var data duel.Submission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Submission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if data.StudentID != studentID {
		return errNotYourself
	}

	res, err := api.svc.SubmitAnswer(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "submitting answer")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *duelApi) stats(ctx echo.Context) error {
	st, err := api.svc.Stats(ctx.Request().Context(), ctx.Param("studentId"))
	if err != nil {
		return errors.Wrap(err, "getting duel stats")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *duelApi) leaderboard(ctx echo.Context) error {
	var page Pagination
	if err := page.Bind(ctx); err != nil {
		return err
	}
	top, err := api.svc.Leaderboard(ctx.Request().Context(), page.Limit)
	if err != nil {
		return errors.Wrap(err, "getting leaderboard")
	}
	if top == nil {
		top = []duel.Stats{}
	}
	return ctx.JSON(http.StatusOK, top)
}
