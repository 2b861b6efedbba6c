package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/richyfesta/arnoma/core/automation"
)

type ruleApi struct {
	opts *Options
}

func registerRuleAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := ruleApi{opts: opts}

	rg := g.Group("/rules", jwt)
	rg.GET("", api.ruleQuery)
	rg.POST("", api.ruleCreate)
	rg.GET("/:name", api.ruleRetrieve)
}

// Handlers

func (api *ruleApi) ruleQuery(ctx echo.Context) error {
	rules, err := api.opts.RuleRepo.QueryAllRules()
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rules)
}

func (api *ruleApi) ruleCreate(ctx echo.Context) error {
	data := new(automation.NewRule)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	rule, err := api.opts.RuleRepo.CreateRule(automation.Rule{
		Name:           data.Name,
		Active:         data.Active,
		Frequency:      data.Frequency,
		OffsetMinutes:  data.OffsetMinutes,
		SelectedGroups: data.SelectedGroups,
		TemplateName:   data.TemplateName,
	})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, rule)
}

func (api *ruleApi) ruleRetrieve(ctx echo.Context) error {
	rule, err := api.opts.RuleRepo.GetRuleByName(ctx.Param("name"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rule)
}
