package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core/assessment"
)

type assessmentApi struct {
	svc      assessment.Service
	validate *validator.Validate
}

func registerAssessmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc assessment.Service, validate *validator.Validate) {
	api := assessmentApi{
		svc:      svc,
		validate: validate,
	}

	ag := g.Group("/assessments", jwt)
	ag.GET("/cache", api.cacheDump, adminMiddleware())

	// lesson-level metrics and raw scores
	lg := g.Group("/lessons/:id", jwt)
	lg.GET("/metrics", api.queryMetrics(assessment.LevelLesson), staffMiddleware())
	lg.POST("/metrics", api.createMetric(assessment.LevelLesson), staffMiddleware())
	lg.PUT("/metrics/:name", api.updateMetric(assessment.LevelLesson), staffMiddleware())
	lg.DELETE("/metrics/:name", api.destroyMetric(assessment.LevelLesson), staffMiddleware())
	lg.POST("/metrics/:name/compute", api.compute(assessment.LevelLesson), staffMiddleware())
	lg.POST("/scores", api.recordScore, staffMiddleware())

	// namespace-level rollup metrics
	ng := g.Group("/namespaces/:id", jwt)
	ng.GET("/metrics", api.queryMetrics(assessment.LevelNamespace), staffMiddleware())
	ng.POST("/metrics", api.createMetric(assessment.LevelNamespace), staffMiddleware())
	ng.PUT("/metrics/:name", api.updateMetric(assessment.LevelNamespace), staffMiddleware())
	ng.DELETE("/metrics/:name", api.destroyMetric(assessment.LevelNamespace), staffMiddleware())
	ng.POST("/metrics/:name/compute", api.compute(assessment.LevelNamespace), staffMiddleware())
}

// Handlers

func (api *assessmentApi) queryMetrics(level assessment.Level) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		metrics, err := api.svc.Metrics(ctx.Request().Context(), level, ctx.Param("id"))
		if err != nil {
			return err
		}
		if metrics == nil {
			metrics = []assessment.Metric{}
		}
		return ctx.JSON(http.StatusOK, metrics)
	}
}

func (api *assessmentApi) createMetric(level assessment.Level) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var data assessment.NewMetric
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to NewMetric")
		}
		if err := data.Validate(api.validate); err != nil {
			return err
		}

		metric, err := api.svc.CreateMetric(ctx.Request().Context(), level, ctx.Param("id"), data)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusCreated, metric)
	}
}

func (api *assessmentApi) updateMetric(level assessment.Level) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var data assessment.UpdateMetric
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to UpdateMetric")
		}
		if err := data.Validate(api.validate); err != nil {
			return err
		}

		metric, err := api.svc.UpdateMetric(ctx.Request().Context(), level, ctx.Param("id"), ctx.Param("name"), data)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, metric)
	}
}

func (api *assessmentApi) destroyMetric(level assessment.Level) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if err := api.svc.DeleteMetric(ctx.Request().Context(), level, ctx.Param("id"), ctx.Param("name")); err != nil {
			return err
		}
		return ctx.NoContent(http.StatusNoContent)
	}
}

func (api *assessmentApi) recordScore(ctx echo.Context) error {
	var data assessment.NewRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRecord")
	}
	data.Lesson = ctx.Param("id")
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rec, err := api.svc.RecordScore(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *assessmentApi) compute(level assessment.Level) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var data ComputeRequest
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to ComputeRequest")
		}
		if err := data.Validate(api.validate); err != nil {
			return err
		}

		results, err := api.svc.Compute(ctx.Request().Context(), level, ctx.Param("id"), ctx.Param("name"), data.Users, data.Options)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, ComputeResponse{Results: results})
	}
}

func (api *assessmentApi) cacheDump(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.CacheDump())
}

type (
	ComputeRequest struct {
		Users   []string           `json:"users" validate:"required,min=1"`
		Options assessment.Options `json:"options,omitempty"`
	}

	ComputeResponse struct {
		Results map[string]null.Float64 `json:"results"`
	}
)

func (cr *ComputeRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(cr)
}
