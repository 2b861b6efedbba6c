package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/richyfesta/arnoma/core"
	"github.com/richyfesta/arnoma/core/attendance"
	"github.com/richyfesta/arnoma/core/payment"
	"github.com/richyfesta/arnoma/core/student"
)

const dateLayout = "2006-01-02"

type studentApi struct {
	opts *Options
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := studentApi{opts: opts}

	sg := g.Group("/students", jwt)
	sg.GET("", api.studentQuery)
	sg.GET("/:id", api.studentRetrieve)
	sg.GET("/:id/attendance", api.studentAttendance)
	sg.GET("/:id/attendance/:date", api.studentAttendanceStatus)
	sg.GET("/:id/pause", api.studentPauseRetrieve)
	sg.PUT("/:id/pause", api.studentPauseUpdate)

	ag := g.Group("/attendance", jwt)
	ag.GET("/overdue", api.overdueQuery)
}

// Handlers

func (api *studentApi) studentQuery(ctx echo.Context) error {
	students, err := api.opts.StudentSvc.QueryAll()
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, students)
}

type studentDetailResponse struct {
	Student student.Student `json:"student"`
	Paused  bool            `json:"paused"`
}

func (api *studentApi) studentRetrieve(ctx echo.Context) error {
	stu, err := api.opts.StudentSvc.GetByID(ctx.Param("id"))
	if err != nil {
		return err
	}
	paused, err := api.opts.Pause.IsPaused(stu.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, studentDetailResponse{Student: stu, Paused: paused})
}

// studentAttendanceResponse is the per-student diagnostic breakdown: every
// attendance date with its status, alongside the payments linked so far.
type studentAttendanceResponse struct {
	Student  student.Student     `json:"student"`
	Records  []attendance.Record `json:"records"`
	Payments []payment.Event     `json:"payments"`
}

func (api *studentApi) studentAttendance(ctx echo.Context) error {
	stu, err := api.opts.StudentSvc.GetByID(ctx.Param("id"))
	if err != nil {
		return err
	}
	recs, err := api.opts.LedgerSvc.ByStudent(stu.ID)
	if err != nil {
		return err
	}
	events, err := api.opts.PaymentSvc.ByStudent(stu.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, studentAttendanceResponse{Student: stu, Records: recs, Payments: events})
}

func (api *studentApi) studentAttendanceStatus(ctx echo.Context) error {
	date, err := time.Parse(dateLayout, ctx.Param("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date; expected YYYY-MM-DD")
	}
	status, err := api.opts.LedgerSvc.StatusFor(ctx.Param("id"), date)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"status": status})
}

type pauseResponse struct {
	StudentID string `json:"student_id"`
	Paused    bool   `json:"paused"`
}

func (api *studentApi) studentPauseRetrieve(ctx echo.Context) error {
	stu, err := api.opts.StudentSvc.GetByID(ctx.Param("id"))
	if err != nil {
		return err
	}
	paused, err := api.opts.Pause.IsPaused(stu.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, pauseResponse{StudentID: stu.ID, Paused: paused})
}

type pauseRequest struct {
	Paused *bool `json:"paused" validate:"required"`
}

func (api *studentApi) studentPauseUpdate(ctx echo.Context) error {
	stu, err := api.opts.StudentSvc.GetByID(ctx.Param("id"))
	if err != nil {
		return err
	}

	data := new(pauseRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := core.Validate.Struct(data); err != nil {
		return err
	}

	if err := api.opts.Pause.SetPaused(stu.ID, *data.Paused); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, pauseResponse{StudentID: stu.ID, Paused: *data.Paused})
}

// overdueEntry is one unpaid session in the system-wide diagnostic listing.
type overdueEntry struct {
	Date        string  `json:"date"`
	StudentID   string  `json:"student_id"`
	StudentName string  `json:"student_name"`
	Group       string  `json:"group"`
	Balance     float64 `json:"balance"`
}

func (api *studentApi) overdueQuery(ctx echo.Context) error {
	now := time.Now().In(api.opts.Conf.BusinessTimezone)
	recs, err := api.opts.LedgerSvc.OverdueUnpaid(attendance.DateOf(now, api.opts.Conf.BusinessTimezone))
	if err != nil {
		return err
	}

	roster, err := api.opts.StudentSvc.QueryAll()
	if err != nil {
		return err
	}
	byID := make(map[string]student.Student, len(roster))
	for _, stu := range roster {
		byID[stu.ID] = stu
	}

	entries := make([]overdueEntry, 0, len(recs))
	for _, rec := range recs {
		stu := byID[rec.StudentID]
		entries = append(entries, overdueEntry{
			Date:        rec.Date.Format(dateLayout),
			StudentID:   rec.StudentID,
			StudentName: stu.Name,
			Group:       stu.Group,
			Balance:     rec.Balance,
		})
	}
	return ctx.JSON(http.StatusOK, entries)
}
