package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/utulivu/core/content"
)

type contentApi struct {
	svc      *content.Service
	validate *validator.Validate
}

func registerContentAPI(g *echo.Group, jwt echo.MiddlewareFunc, _ *authenticator, deps ServerDeps) {
	api := contentApi{svc: deps.ContentSvc, validate: deps.Validate}

	cg := g.Group("/content", jwt)

	cg.GET("/categories", api.queryCategories)
	cg.POST("/categories", api.createCategory, superAdminMiddleware)
	cg.PUT("/categories/:id", api.updateCategory, superAdminMiddleware, uuidParamMiddleware("id"))
	cg.DELETE("/categories/:id", api.destroyCategory, superAdminMiddleware, uuidParamMiddleware("id"))

	cg.GET("/resources", api.queryResources)
	cg.POST("/resources", api.createResource, superAdminMiddleware)
	cg.GET("/resources/:id", api.retrieveResource, uuidParamMiddleware("id"))
	cg.PUT("/resources/:id", api.updateResource, superAdminMiddleware, uuidParamMiddleware("id"))
	cg.DELETE("/resources/:id", api.destroyResource, superAdminMiddleware, uuidParamMiddleware("id"))
}

// canSeeUnpublished reports whether the context user manages the catalog.
func canSeeUnpublished(ctx echo.Context) bool {
	claims, err := getContextClaims(ctx)
	return err == nil && claims.IsSuperAdmin
}

func (api *contentApi) queryCategories(ctx echo.Context) error {
	cats, err := api.svc.QueryCategories(ctx.Request().Context(), ctx.QueryParam("kind"))
	if err != nil {
		return errors.Wrap(err, "querying categories")
	}
	if cats == nil {
		cats = []content.Category{}
	}
	return ctx.JSON(http.StatusOK, cats)
}

func (api *contentApi) createCategory(ctx echo.Context) error {
	var data content.NewCategory
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCategory")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cat, err := api.svc.CreateCategory(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating category")
	}
	return ctx.JSON(http.StatusCreated, cat)
}

func (api *contentApi) updateCategory(ctx echo.Context) error {
	c := ctx.Request().Context()
	cat, err := api.svc.GetCategory(c, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding category")
	}

	var data content.UpdateCategory
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCategory")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	if cat, err = api.svc.UpdateCategory(c, cat, data); err != nil {
		return errors.Wrap(err, "updating category")
	}
	return ctx.JSON(http.StatusOK, cat)
}

func (api *contentApi) destroyCategory(ctx echo.Context) error {
	if err := api.svc.DeleteCategory(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting category")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *contentApi) queryResources(ctx echo.Context) error {
	var filter content.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []content.Resource{})
	}
	filter.Clean()
	filter.PublishedOnly = !canSeeUnpublished(ctx)

	res, err := api.svc.QueryResources(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying resources")
	}
	if res == nil {
		res = []content.Resource{}
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *contentApi) createResource(ctx echo.Context) error {
	var data content.NewResource
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewResource")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	r, err := api.svc.CreateResource(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating resource")
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *contentApi) retrieveResource(ctx echo.Context) error {
	r, err := api.svc.GetResource(ctx.Request().Context(), ctx.Param("id"), canSeeUnpublished(ctx))
	if err != nil {
		return errors.Wrap(err, "finding resource")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *contentApi) updateResource(ctx echo.Context) error {
	c := ctx.Request().Context()
	r, err := api.svc.GetResource(c, ctx.Param("id"), true /* withUnpublished */)
	if err != nil {
		return errors.Wrap(err, "finding resource")
	}

	var data content.UpdateResource
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateResource")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	if r, err = api.svc.UpdateResource(c, r, data); err != nil {
		return errors.Wrap(err, "updating resource")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *contentApi) destroyResource(ctx echo.Context) error {
	if err := api.svc.DeleteResource(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting resource")
	}
	return ctx.NoContent(http.StatusNoContent)
}
