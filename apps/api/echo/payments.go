package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/richyfesta/arnoma/core"
	"github.com/richyfesta/arnoma/core/payment"
)

const maxSuggestions = 3

type paymentApi struct {
	opts *Options
}

func registerPaymentAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := paymentApi{opts: opts}

	pg := g.Group("/payments", jwt)
	pg.GET("", api.paymentQuery)
	pg.POST("", api.paymentCreate)
	pg.GET("/unlinked", api.paymentQueryUnlinked)
	pg.POST("/reconcile", api.paymentReconcile)
	pg.POST("/:id/link", api.paymentLink)
	pg.POST("/:id/ignore", api.paymentIgnore)
}

// Handlers

func (api *paymentApi) paymentQuery(ctx echo.Context) error {
	events, err := api.opts.PaymentSvc.QueryAll()
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *paymentApi) paymentCreate(ctx echo.Context) error {
	data := new(payment.NewEvent)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	evt, err := api.opts.PaymentSvc.Create(*data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, evt)
}

// unlinkedPayment pairs an unlinked event with its near-miss roster name
// suggestions for the diagnostics view.
type unlinkedPayment struct {
	Event       payment.Event        `json:"event"`
	Suggestions []payment.Suggestion `json:"suggestions"`
}

func (api *paymentApi) paymentQueryUnlinked(ctx echo.Context) error {
	events, err := api.opts.PaymentSvc.Unlinked()
	if err != nil {
		return err
	}
	roster, err := api.opts.StudentSvc.QueryAll()
	if err != nil {
		return err
	}

	out := make([]unlinkedPayment, 0, len(events))
	for _, evt := range events {
		out = append(out, unlinkedPayment{
			Event:       evt,
			Suggestions: api.opts.Matcher.Suggest(evt, roster, maxSuggestions),
		})
	}
	return ctx.JSON(http.StatusOK, out)
}

func (api *paymentApi) paymentReconcile(ctx echo.Context) error {
	if err := api.opts.Matcher.Reconcile(); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

type linkRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}

func (api *paymentApi) paymentLink(ctx echo.Context) error {
	data := new(linkRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := core.Validate.Struct(data); err != nil {
		return err
	}

	// reject unknown students before touching the event
	stu, err := api.opts.StudentSvc.GetByID(data.StudentID)
	if err != nil {
		return err
	}

	evt, err := api.opts.PaymentSvc.Link(ctx.Param("id"), stu.ID)
	if err != nil {
		return err
	}

	if claims, err := getContextClaims(ctx); err == nil {
		api.opts.Logger.Info("payment manually linked", map[string]interface{}{
			"payment": evt.ID, "student": stu.ID, "operator": claims.Operator,
		})
	}
	return ctx.JSON(http.StatusOK, evt)
}

func (api *paymentApi) paymentIgnore(ctx echo.Context) error {
	if err := api.opts.PaymentSvc.Ignore(ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
