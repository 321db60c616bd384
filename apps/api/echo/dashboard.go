package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/utulivu/core/dashboard"
)

func registerDashboardAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	svc := deps.DashboardSvc
	g.GET("/students/me/dashboard", func(ctx echo.Context) error {
		return getDashboard(ctx, svc)
	}, jwt, studentMiddleware(auth, deps.StudentSvc))
}

func getDashboard(ctx echo.Context, svc *dashboard.Service) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}

	d, err := svc.Get(ctx.Request().Context(), st.ID)
	if err != nil {
		return errors.Wrap(err, "building dashboard")
	}
	return ctx.JSON(http.StatusOK, d)
}
