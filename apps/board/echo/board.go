package echoboard

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/mzalendo/darasa/core/mutate"
	"github.com/mzalendo/darasa/core/school"
)

type boardApi struct {
	service *school.Service
}

func registerBoardAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *school.Service) {
	api := boardApi{service: svc}

	// assembled views
	vg := g.Group("/views", jwt)
	vg.GET("/roster", api.roster, staffMiddleware())
	vg.GET("/attendance", api.attendanceSheet, staffMiddleware())
	vg.GET("/attendance/summary", api.attendanceSummary, staffMiddleware())
	vg.GET("/gradebook", api.gradeBook, staffMiddleware())
	vg.GET("/timetable", api.timetable)
	vg.GET("/fees", api.fees)
	vg.GET("/announcements", api.announcements)

	// mutations
	mg := g.Group("", jwt)
	mg.POST("/enrollments", api.enroll, staffMiddleware())
	mg.DELETE("/enrollments/:id", api.withdraw, staffMiddleware())
	mg.POST("/attendance", api.recordAttendance, staffMiddleware())
	mg.POST("/grades", api.postGrade, staffMiddleware())
	mg.POST("/fees", api.chargeFee, adminMiddleware())
	mg.PUT("/fees/:id/pay", api.payFee)
	mg.POST("/periods", api.schedulePeriod, adminMiddleware())
	mg.POST("/announcements", api.postAnnouncement, adminMiddleware())
}

// View handlers

func (api *boardApi) roster(ctx echo.Context) error {
	rows, err := api.service.LoadRoster(ctx.Request().Context(), intQuery(ctx, "class_id"), ctx.QueryParam("search"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *boardApi) attendanceSheet(ctx echo.Context) error {
	rows, err := api.service.LoadAttendanceSheet(
		ctx.Request().Context(),
		intQuery(ctx, "class_id"),
		ctx.QueryParam("date"),
		ctx.QueryParam("search"),
	)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *boardApi) attendanceSummary(ctx echo.Context) error {
	sums, err := api.service.LoadAttendanceSummary(ctx.Request().Context(), intQuery(ctx, "class_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sums)
}

func (api *boardApi) gradeBook(ctx echo.Context) error {
	rows, err := api.service.LoadGradeBook(
		ctx.Request().Context(),
		intQuery(ctx, "class_id"),
		intQuery(ctx, "subject_id"),
		ctx.QueryParam("search"),
	)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *boardApi) timetable(ctx echo.Context) error {
	days, err := api.service.LoadTimetable(ctx.Request().Context(), intQuery(ctx, "class_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, days)
}

func (api *boardApi) fees(ctx echo.Context) error {
	stmt, err := api.service.LoadFeeStatement(ctx.Request().Context(), intQuery(ctx, "student_id"), ctx.QueryParam("search"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, stmt)
}

func (api *boardApi) announcements(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	rows, err := api.service.LoadAnnouncements(ctx.Request().Context(), claims.Audience(), ctx.QueryParam("search"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rows)
}

// Mutation handlers

func (api *boardApi) enroll(ctx echo.Context) error {
	data := new(school.NewEnrollment)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	res, err := api.service.Enroll(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *boardApi) withdraw(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if _, err := api.service.Withdraw(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *boardApi) recordAttendance(ctx echo.Context) error {
	data := new(school.RecordAttendance)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	res, err := api.service.RecordAttendance(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *boardApi) postGrade(ctx echo.Context) error {
	data := new(school.NewGrade)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	res, err := api.service.PostGrade(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *boardApi) chargeFee(ctx echo.Context) error {
	data := new(school.NewFee)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	res, err := api.service.ChargeFee(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *boardApi) payFee(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	res, err := api.service.PayFee(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *boardApi) schedulePeriod(ctx echo.Context) error {
	data := new(school.NewPeriod)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	res, err := api.service.SchedulePeriod(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, res)
}

// postAnnouncement accepts JSON, or multipart form-data when an attachment is
// included.
func (api *boardApi) postAnnouncement(ctx echo.Context) error {
	var data school.NewAnnouncement
	var attachment *mutate.File

	if fh, err := ctx.FormFile("attachment"); err == nil {
		data.Title = ctx.FormValue("title")
		data.Body = ctx.FormValue("body")
		data.Audience = ctx.FormValue("audience")

		src, err := fh.Open()
		if err != nil {
			return err
		}
		defer src.Close()
		attachment = &mutate.File{Field: "attachment", Filename: fh.Filename, Content: src}
	} else if err := ctx.Bind(&data); err != nil {
		return err
	}

	res, err := api.service.PostAnnouncement(ctx.Request().Context(), data, attachment)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, res)
}

func intQuery(ctx echo.Context, name string) int {
	n, _ := strconv.Atoi(ctx.QueryParam(name))
	return n
}
