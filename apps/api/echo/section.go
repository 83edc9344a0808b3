package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/section"
	"github.com/trezcool/darasa/core/subject"
)

type sectionApi struct {
	svc        *section.Service
	enrollSvc  *section.Coordinator
	subjectSvc *subject.Service
}

func registerSectionAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *section.Service,
	enrollSvc *section.Coordinator,
	subjectSvc *subject.Service,
) {
	api := sectionApi{
		svc:        svc,
		enrollSvc:  enrollSvc,
		subjectSvc: subjectSvc,
	}

	sg := g.Group("/sections", jwt)

	sg.GET("", api.query)
	sg.POST("", api.create, adminMiddleware())

	// detail endpoints
	dg := sg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, adminMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
	dg.PATCH("/status", api.setStatus, adminMiddleware())
	dg.POST("/enroll", api.enroll)
	dg.POST("/unenroll", api.unenroll)
}

// Handlers

func (api *sectionApi) create(ctx echo.Context) error {
	var data section.NewSection
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSection")
	}

	sec, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sec)
}

func (api *sectionApi) query(ctx echo.Context) error {
	rctx := ctx.Request().Context()

	var secs []section.Section
	var err error
	switch {
	case ctx.QueryParam("instructor") != "":
		secs, err = api.svc.QueryByInstructor(rctx, ctx.QueryParam("instructor"))
	case ctx.QueryParam("room") != "":
		secs, err = api.svc.QueryByRoom(rctx, ctx.QueryParam("room"))
	default:
		secs, err = api.svc.QueryAll(rctx)
	}
	if err != nil {
		return errors.Wrap(err, "querying sections")
	}

	if secs == nil {
		secs = []section.Section{}
	}
	return ctx.JSON(http.StatusOK, secs)
}

func (api *sectionApi) retrieve(ctx echo.Context) error {
	sec, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sec)
}

func (api *sectionApi) update(ctx echo.Context) error {
	var data section.UpdateSection
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSection")
	}

	sec, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sec)
}

// destroy deletes an empty section, then detaches its dependent subjects.
// Dependents are never cascade-deleted.
func (api *sectionApi) destroy(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	id := ctx.Param("id")

	if err := api.svc.Delete(rctx, id); err != nil {
		return err
	}
	if err := api.subjectSvc.DetachBySection(rctx, id); err != nil {
		return errors.Wrap(err, "detaching dependent subjects")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sectionApi) setStatus(ctx echo.Context) error {
	var data StatusRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusRequest")
	}

	sec, warning, err := api.svc.SetStatus(ctx.Request().Context(), ctx.Param("id"), section.Status(data.Status))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, StatusResponse{Section: sec, Warning: warning})
}

func (api *sectionApi) enroll(ctx echo.Context) error {
	var data EnrollRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollRequest")
	}
	if err := api.checkEnrollPerms(ctx, data.StudentID); err != nil {
		return err
	}

	sec, err := api.enrollSvc.Enroll(ctx.Request().Context(), ctx.Param("id"), data.StudentID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sec)
}

func (api *sectionApi) unenroll(ctx echo.Context) error {
	var data EnrollRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollRequest")
	}
	if err := api.checkEnrollPerms(ctx, data.StudentID); err != nil {
		return err
	}

	sec, err := api.enrollSvc.Unenroll(ctx.Request().Context(), ctx.Param("id"), data.StudentID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sec)
}

// checkEnrollPerms allows admins to manage any roster; students may only
// enroll or unenroll themselves.
func (api *sectionApi) checkEnrollPerms(ctx echo.Context, studentID string) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if claims.IsAdmin() {
		return nil
	}
	if claims.IsStudent() && claims.Subject == core.CleanString(studentID) {
		return nil
	}
	return errHttpForbidden
}

type (
	StatusRequest struct {
		Status string `json:"status"`
	}

	StatusResponse struct {
		section.Section
		Warning string `json:"warning,omitempty"`
	}

	EnrollRequest struct {
		StudentID string `json:"studentId"`
	}
)
