package echoapi

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/utulivu/core"
	"github.com/trezcool/utulivu/core/chat"
	"github.com/trezcool/utulivu/core/school"
	"github.com/trezcool/utulivu/core/student"
)

const (
	contextStudentKey = "student"
	contextSchoolKey  = "school"
)

func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin && contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func superAdminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		if claims.IsSuperAdmin {
			return next(ctx)
		}
		return errHttpForbidden
	}
}

// studentMiddleware only lets students with a profile through, and stores that profile in the context.
func studentMiddleware(auth *authenticator, svc *student.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if !claims.IsStudent {
				return errHttpForbidden
			}
			usr, err := auth.contextUser(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			st, err := svc.GetByUserID(ctx.Request().Context(), usr.ID)
			if err != nil {
				if core.IsNotFound(err) {
					return errHttpForbidden
				}
				return errors.Wrap(err, "finding student by user ID")
			}
			ctx.Set(contextStudentKey, st)
			return next(ctx)
		}
	}
}

func contextStudent(ctx echo.Context) (student.Student, error) {
	if st, ok := ctx.Get(contextStudentKey).(student.Student); ok {
		return st, nil
	}
	return student.Student{}, errors.New("student not found in echo.Context")
}

func participant(st student.Student) chat.Participant {
	return chat.Participant{
		StudentID:     st.ID,
		SchoolID:      st.SchoolID,
		StudentNumber: st.StudentNumber,
		Name:          st.Name,
	}
}

// uuidParamMiddleware answers 404 when one of the path params is not a UUID.
func uuidParamMiddleware(params ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			for _, p := range params {
				if _, err := uuid.Parse(ctx.Param(p)); err != nil {
					return errHttpNotFound
				}
			}
			return next(ctx)
		}
	}
}

// schoolScopeMiddleware loads the school in the "id" param, if the context user may manage it:
// super admins manage every school, school admins only their own. Others get a 404.
func schoolScopeMiddleware(auth *authenticator, svc *school.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := auth.contextUser(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			id := ctx.Param("id")
			if !(usr.IsSuperAdmin() || (usr.IsAdmin() && usr.SchoolID == id)) {
				return errHttpNotFound
			}
			sch, err := svc.GetByID(ctx.Request().Context(), id)
			if err != nil {
				return err
			}
			ctx.Set(contextSchoolKey, sch)
			return next(ctx)
		}
	}
}

func contextSchool(ctx echo.Context) (school.School, error) {
	if sch, ok := ctx.Get(contextSchoolKey).(school.School); ok {
		return sch, nil
	}
	return school.School{}, errors.New("school not found in echo.Context")
}
