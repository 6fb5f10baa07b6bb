package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/school"
)

type schoolApi struct {
	svc      school.Service
	validate *validator.Validate
}

func registerSchoolAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc school.Service, validate *validator.Validate) {
	api := schoolApi{
		svc:      svc,
		validate: validate,
	}

	ng := g.Group("/namespaces", jwt)
	ng.POST("", api.createNamespace, adminMiddleware())
	ng.GET("", api.queryNamespaces)
	ng.GET("/:id", api.retrieveNamespace)
	ng.DELETE("/:id", api.destroyNamespace, adminMiddleware())
	ng.POST("/:id/lessons", api.createLesson, adminMiddleware())
	ng.GET("/:id/lessons", api.queryLessons)

	lg := g.Group("/lessons", jwt)
	lg.GET("/:id", api.retrieveLesson)
	lg.DELETE("/:id", api.destroyLesson, adminMiddleware())
}

// Handlers

func (api *schoolApi) createNamespace(ctx echo.Context) error {
	var data school.NewNamespace
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNamespace")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ns, err := api.svc.CreateNamespace(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating namespace")
	}
	return ctx.JSON(http.StatusCreated, ns)
}

func (api *schoolApi) queryNamespaces(ctx echo.Context) error {
	namespaces, err := api.svc.QueryNamespaces(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying namespaces")
	}
	if namespaces == nil {
		namespaces = []school.Namespace{}
	}
	return ctx.JSON(http.StatusOK, namespaces)
}

func (api *schoolApi) retrieveNamespace(ctx echo.Context) error {
	ns, err := api.svc.GetNamespace(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ns)
}

func (api *schoolApi) destroyNamespace(ctx echo.Context) error {
	if err := api.svc.DeleteNamespace(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *schoolApi) createLesson(ctx echo.Context) error {
	var data school.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	lesson, err := api.svc.CreateLesson(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, lesson)
}

func (api *schoolApi) queryLessons(ctx echo.Context) error {
	lessons, err := api.svc.QueryLessons(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	if lessons == nil {
		lessons = []school.Lesson{}
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *schoolApi) retrieveLesson(ctx echo.Context) error {
	lesson, err := api.svc.GetLesson(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, lesson)
}

func (api *schoolApi) destroyLesson(ctx echo.Context) error {
	if err := api.svc.DeleteLesson(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
