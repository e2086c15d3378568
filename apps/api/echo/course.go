package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/smartclass/attendance/core/course"
)

type courseApi struct {
	svc *course.Service
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *course.Service) {
	api := courseApi{svc: svc}

	cg := g.Group("/courses", jwt)
	cg.POST("", api.create, adminMiddleware())
	cg.GET("", api.query)
	cg.GET("/:ref", api.retrieve)
	cg.PUT("/:ref", api.update, adminMiddleware())
	cg.DELETE("/:ref", api.destroy, adminMiddleware())

	// classroom assignment
	cg.POST("/:ref/classrooms/:classroomID", api.assignClassroom, adminMiddleware())
	cg.DELETE("/:ref/classrooms/:classroomID", api.removeClassroom, adminMiddleware())

	// enrollments
	eg := g.Group("/enrollments", jwt)
	eg.POST("", api.enroll, teacherMiddleware())
	eg.POST("/bulk", api.bulkEnroll, teacherMiddleware())
	eg.GET("", api.queryEnrollments)
	eg.DELETE("/:id", api.unenroll, teacherMiddleware())
}

// Handlers

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	crs, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) query(ctx echo.Context) error {
	courses, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.svc.Get(ctx.Request().Context(), ctx.Param("ref"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	crs, err := api.svc.Update(ctx.Request().Context(), ctx.Param("ref"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("ref")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) assignClassroom(ctx echo.Context) error {
	crs, err := api.svc.AssignClassroom(ctx.Request().Context(), ctx.Param("ref"), ctx.Param("classroomID"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) removeClassroom(ctx echo.Context) error {
	crs, err := api.svc.RemoveClassroom(ctx.Request().Context(), ctx.Param("ref"), ctx.Param("classroomID"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) enroll(ctx echo.Context) error {
	var data course.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	enr, err := api.svc.Enroll(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *courseApi) bulkEnroll(ctx echo.Context) error {
	var data course.BulkEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkEnrollment")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	enrollments, err := api.svc.BulkEnroll(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, enrollments)
}

func (api *courseApi) queryEnrollments(ctx echo.Context) error {
	var filter course.EnrollmentFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to EnrollmentFilter")
	}

	enrollments, err := api.svc.FilterEnrollments(ctx.Request().Context(), filter)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

func (api *courseApi) unenroll(ctx echo.Context) error {
	if err := api.svc.Unenroll(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
