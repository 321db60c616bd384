package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/utulivu/core"
	"github.com/trezcool/utulivu/core/content"
	"github.com/trezcool/utulivu/core/mood"
)

type moodApi struct {
	svc        *mood.Service
	contentSvc *content.Service
	validate   *validator.Validate
	loc        *time.Location
}

func registerMoodAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	api := moodApi{
		svc:        deps.MoodSvc,
		contentSvc: deps.ContentSvc,
		validate:   deps.Validate,
		loc:        deps.Conf.Location(),
	}

	mg := g.Group("/mood", jwt)
	mg.GET("/labels", api.labels)
	mg.GET("/triggers", api.triggers)

	portal := []echo.MiddlewareFunc{jwt, studentMiddleware(auth, deps.StudentSvc)}
	sg := g.Group("/students")
	sg.POST("/mood/checkin", api.checkin, portal...)
	sg.GET("/mood/today", api.today, portal...)
	sg.GET("/mood/history", api.history, portal...)
	sg.GET("/mood/analytics", api.studentAnalytics, portal...)
	sg.GET("/recommendations", api.recommendations, portal...)

	g.GET(
		"/schools/:id/mood/analytics",
		api.schoolAnalytics,
		jwt, adminMiddleware(), uuidParamMiddleware("id"), schoolScopeMiddleware(auth, deps.SchoolSvc),
	)
}

func (api *moodApi) labels(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, mood.Labels)
}

func (api *moodApi) triggers(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, mood.Triggers)
}

func (api *moodApi) checkin(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}

	var data mood.NewCheckin
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCheckin")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	chk, err := api.svc.Checkin(ctx.Request().Context(), st.ID, st.SchoolID, data)
	if err != nil {
		return errors.Wrap(err, "checking in")
	}
	return ctx.JSON(http.StatusCreated, chk)
}

func (api *moodApi) today(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}

	chk, err := api.svc.GetToday(ctx.Request().Context(), st.ID)
	if err != nil {
		return errors.Wrap(err, "finding today's check-in")
	}
	return ctx.JSON(http.StatusOK, chk)
}

func (api *moodApi) history(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}

	var rng DateRange
	if err = rng.Bind(ctx, api.loc); err != nil {
		return err
	}

	checkins, err := api.svc.History(ctx.Request().Context(), st.ID, mood.HistoryFilter{From: rng.From, To: rng.To})
	if err != nil {
		return errors.Wrap(err, "querying check-ins")
	}
	if checkins == nil {
		checkins = []mood.Checkin{}
	}
	return ctx.JSON(http.StatusOK, checkins)
}

func (api *moodApi) studentAnalytics(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}

	an, err := api.svc.StudentAnalytics(ctx.Request().Context(), st.ID, intParam(ctx, "days", 0))
	if err != nil {
		return errors.Wrap(err, "computing student analytics")
	}
	return ctx.JSON(http.StatusOK, an)
}

func (api *moodApi) schoolAnalytics(ctx echo.Context) error {
	sch, err := contextSchool(ctx)
	if err != nil {
		return err
	}

	an, err := api.svc.SchoolAnalytics(ctx.Request().Context(), sch.ID, intParam(ctx, "days", 0))
	if err != nil {
		return errors.Wrap(err, "computing school analytics")
	}
	return ctx.JSON(http.StatusOK, an)
}

// recommendations suggests content for the mood given in the query, or today's mood.
func (api *moodApi) recommendations(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}

	c := ctx.Request().Context()
	label := core.CleanString(ctx.QueryParam("mood"), true /* lower */)
	if label == "" {
		chk, err := api.svc.GetToday(c, st.ID)
		if err != nil && !core.IsNotFound(err) {
			return errors.Wrap(err, "finding today's check-in")
		}
		label = chk.Mood
	}

	res, err := api.contentSvc.Recommend(c, label)
	if err != nil {
		return errors.Wrap(err, "recommending content")
	}
	if res == nil {
		res = []content.Resource{}
	}
	return ctx.JSON(http.StatusOK, res)
}
