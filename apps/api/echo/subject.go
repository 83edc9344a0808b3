package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/subject"
)

type subjectApi struct {
	svc *subject.Service
}

func registerSubjectAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *subject.Service) {
	api := subjectApi{svc: svc}

	sg := g.Group("/subjects", jwt)

	sg.GET("", api.query)
	sg.POST("", api.create, adminMiddleware())

	// detail endpoints
	dg := sg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, adminMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
	dg.POST("/attach", api.attach, adminMiddleware())
	dg.POST("/detach", api.detach, adminMiddleware())
	dg.PUT("/schedules", api.updateSchedules, adminMiddleware())
}

// Handlers

func (api *subjectApi) create(ctx echo.Context) error {
	var data subject.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}

	sub, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *subjectApi) query(ctx echo.Context) error {
	subs, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	if subs == nil {
		subs = []subject.Subject{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *subjectApi) retrieve(ctx echo.Context) error {
	sub, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *subjectApi) update(ctx echo.Context) error {
	var data subject.UpdateSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSubject")
	}

	sub, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *subjectApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *subjectApi) attach(ctx echo.Context) error {
	var data AttachRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AttachRequest")
	}

	sub, err := api.svc.Attach(ctx.Request().Context(), ctx.Param("id"), data.SectionID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *subjectApi) detach(ctx echo.Context) error {
	sub, err := api.svc.Detach(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *subjectApi) updateSchedules(ctx echo.Context) error {
	var data SchedulesRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SchedulesRequest")
	}

	sub, err := api.svc.UpdateSchedule(ctx.Request().Context(), ctx.Param("id"), data.Schedules)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

type (
	AttachRequest struct {
		SectionID string `json:"sectionId"`
	}

	SchedulesRequest struct {
		Schedules []string `json:"schedules"`
	}
)
