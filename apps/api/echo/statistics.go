package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/smartclass/attendance/core/statistics"
)

type statisticsApi struct {
	svc *statistics.Service
}

func registerStatisticsAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *statistics.Service) {
	api := statisticsApi{svc: svc}

	sg := g.Group("/statistics", jwt)
	sg.GET("/dashboard", api.dashboard, teacherMiddleware())
	sg.GET("/classrooms/:id", api.classroom, teacherMiddleware())
	sg.GET("/students/:id", api.student, teacherMiddleware())
}

// Handlers

func (api *statisticsApi) dashboard(ctx echo.Context) error {
	op, err := getContextOperator(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context operator")
	}

	db, err := api.svc.Dashboard(ctx.Request().Context(), op)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, db)
}

func (api *statisticsApi) classroom(ctx echo.Context) error {
	stats, err := api.svc.Classroom(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *statisticsApi) student(ctx echo.Context) error {
	stats, err := api.svc.Student(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, stats)
}
