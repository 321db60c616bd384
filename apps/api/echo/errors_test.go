package echoapi

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/utulivu/core"
	"github.com/trezcool/utulivu/testutil"
)

func Test_errorResponse(t *testing.T) {
	_, translator := testutil.NewValidator()
	notFound := core.NewNotFoundError("goal")

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody interface{}
		wantOK   bool
	}{
		{name: "missing jwt", err: middleware.ErrJWTMissing, wantCode: http.StatusUnauthorized, wantBody: middleware.ErrJWTMissing.Message, wantOK: true},
		{name: "http error", err: errHttpForbidden, wantCode: http.StatusForbidden, wantBody: "permission denied", wantOK: true},
		{
			name:     "wrapped http error",
			err:      echo.NewHTTPError(http.StatusUnauthorized).SetInternal(errAccountDeactivated),
			wantCode: http.StatusForbidden, wantBody: "account deactivated", wantOK: true,
		},
		{name: "not found", err: errors.Wrap(notFound, "getting goal"), wantCode: http.StatusNotFound, wantBody: "goal not found", wantOK: true},
		{name: "conflict", err: core.NewConflictError("already checked in today"), wantCode: http.StatusConflict, wantBody: "already checked in today", wantOK: true},
		{name: "validation message", err: core.NewValidationError(errors.New("bad dates")), wantCode: http.StatusBadRequest, wantBody: "bad dates", wantOK: true},
		{
			name:     "validation fields",
			err:      core.NewValidationError(errors.New("invalid"), core.FieldError{Field: "code", Error: "taken"}),
			wantCode: http.StatusBadRequest, wantBody: map[string]string{"code": "taken"}, wantOK: true,
		},
		{name: "unexpected", err: errors.New("boom"), wantCode: http.StatusInternalServerError, wantBody: "Internal Server Error", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body, ok := errorResponse(tt.err, translator)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantBody, body)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}
