package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/utulivu/core/goal"
)

var errGoalNotFoundInCtx = errors.New("goal not found in echo.Context")

type goalApi struct {
	svc      *goal.Service
	validate *validator.Validate
}

func registerGoalAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	api := goalApi{svc: deps.GoalSvc, validate: deps.Validate}

	portal := []echo.MiddlewareFunc{jwt, studentMiddleware(auth, deps.StudentSvc)}
	detail := append(portal, uuidParamMiddleware("id"), api.ownGoalMiddleware)

	gg := g.Group("/students/goals")
	gg.POST("", api.create, portal...)
	gg.GET("", api.query, portal...)
	gg.GET("/:id", api.retrieve, detail...)
	gg.PUT("/:id", api.update, detail...)
	gg.DELETE("/:id", api.destroy, detail...)
	gg.POST("/:id/complete", api.toggleComplete, detail...)
}

func (api *goalApi) create(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}

	var data goal.NewGoal
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGoal")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	gl, err := api.svc.Create(ctx.Request().Context(), st.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating goal")
	}
	return ctx.JSON(http.StatusCreated, gl)
}

func (api *goalApi) query(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}

	var filter goal.QueryFilter
	if err = ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []goal.Goal{})
	}

	goals, err := api.svc.Query(ctx.Request().Context(), st.ID, filter)
	if err != nil {
		return errors.Wrap(err, "querying goals")
	}
	if goals == nil {
		goals = []goal.Goal{}
	}
	return ctx.JSON(http.StatusOK, goals)
}

func (api *goalApi) retrieve(ctx echo.Context) error {
	gl, ok := ctx.Get("object").(goal.Goal)
	if !ok {
		return errors.Wrap(errGoalNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, gl)
}

func (api *goalApi) update(ctx echo.Context) error {
	gl, ok := ctx.Get("object").(goal.Goal)
	if !ok {
		return errors.Wrap(errGoalNotFoundInCtx, "retrieving object from context")
	}

	var data goal.UpdateGoal
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGoal")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	gl, err := api.svc.Update(ctx.Request().Context(), gl, data)
	if err != nil {
		return errors.Wrap(err, "updating goal")
	}
	return ctx.JSON(http.StatusOK, gl)
}

func (api *goalApi) toggleComplete(ctx echo.Context) error {
	gl, ok := ctx.Get("object").(goal.Goal)
	if !ok {
		return errors.Wrap(errGoalNotFoundInCtx, "retrieving object from context")
	}

	gl, err := api.svc.ToggleComplete(ctx.Request().Context(), gl)
	if err != nil {
		return errors.Wrap(err, "toggling goal completion")
	}
	return ctx.JSON(http.StatusOK, gl)
}

func (api *goalApi) destroy(ctx echo.Context) error {
	gl, ok := ctx.Get("object").(goal.Goal)
	if !ok {
		return errors.Wrap(errGoalNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.Delete(ctx.Request().Context(), gl); err != nil {
		return errors.Wrap(err, "deleting goal")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ownGoalMiddleware loads the goal in the "id" param if it belongs to the context student.
func (api *goalApi) ownGoalMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		st, err := contextStudent(ctx)
		if err != nil {
			return err
		}
		gl, err := api.svc.Get(ctx.Request().Context(), st.ID, ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding goal")
		}
		ctx.Set("object", gl)
		return next(ctx)
	}
}
