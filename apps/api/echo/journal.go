package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/utulivu/core/journal"
)

var errEntryNotFoundInCtx = errors.New("journal entry not found in echo.Context")

type journalApi struct {
	svc      *journal.Service
	validate *validator.Validate
}

func registerJournalAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	api := journalApi{svc: deps.JournalSvc, validate: deps.Validate}

	portal := []echo.MiddlewareFunc{jwt, studentMiddleware(auth, deps.StudentSvc)}
	detail := append(portal, uuidParamMiddleware("id"), api.ownEntryMiddleware)

	jg := g.Group("/students/journals")
	jg.POST("", api.create, portal...)
	jg.GET("", api.query, portal...)
	jg.GET("/:id", api.retrieve, detail...)
	jg.PUT("/:id", api.update, detail...)
	jg.DELETE("/:id", api.destroy, detail...)
}

func (api *journalApi) create(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}

	var data journal.NewEntry
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEntry")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	e, err := api.svc.Create(ctx.Request().Context(), st.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating journal entry")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *journalApi) query(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}

	var filter journal.QueryFilter
	if err = ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []journal.Entry{})
	}
	filter.Clean()

	entries, err := api.svc.Query(ctx.Request().Context(), st.ID, filter)
	if err != nil {
		return errors.Wrap(err, "querying journal entries")
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *journalApi) retrieve(ctx echo.Context) error {
	e, ok := ctx.Get("object").(journal.Entry)
	if !ok {
		return errors.Wrap(errEntryNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *journalApi) update(ctx echo.Context) error {
	e, ok := ctx.Get("object").(journal.Entry)
	if !ok {
		return errors.Wrap(errEntryNotFoundInCtx, "retrieving object from context")
	}

	var data journal.UpdateEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEntry")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	e, err := api.svc.Update(ctx.Request().Context(), e, data)
	if err != nil {
		return errors.Wrap(err, "updating journal entry")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *journalApi) destroy(ctx echo.Context) error {
	e, ok := ctx.Get("object").(journal.Entry)
	if !ok {
		return errors.Wrap(errEntryNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.Delete(ctx.Request().Context(), e); err != nil {
		return errors.Wrap(err, "deleting journal entry")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ownEntryMiddleware loads the entry in the "id" param if it belongs to the context student.
func (api *journalApi) ownEntryMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		st, err := contextStudent(ctx)
		if err != nil {
			return err
		}
		e, err := api.svc.Get(ctx.Request().Context(), st.ID, ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding journal entry")
		}
		ctx.Set("object", e)
		return next(ctx)
	}
}
