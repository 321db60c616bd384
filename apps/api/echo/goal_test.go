package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/utulivu/core/goal"
	"github.com/trezcool/utulivu/testutil"
)

func Test_goalApi(t *testing.T) {
	env := setup(t)
	sch := testutil.CreateSchool(t, env.schoolRepo, "Kilimani High", "KLM")
	_, token := env.studentToken(t, "Amani Njeri", "S001", sch.ID)
	_, otherToken := env.studentToken(t, "Baraka Otieno", "S002", sch.ID)

	rec := env.do(http.MethodPost, "/api/students/goals", token, marchallObj(t, map[string]string{
		"title":       "Sleep before 10pm",
		"description": "At least on school nights",
		"target_date": "2030-06-01T00:00:00Z",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var gl goal.Goal
	decode(t, rec, &gl)
	assert.False(t, gl.IsCompleted)
	require.NotNil(t, gl.TargetDate)

	runHTTPTests(t, env, []httpTest{
		{
			name: "Title required", method: http.MethodPost, path: "/api/students/goals", token: token,
			body: marchallObj(t, map[string]string{"description": "no title"}), wantCode: http.StatusBadRequest,
		},
		{name: "Another student's goal", path: "/api/students/goals/" + gl.ID, token: otherToken, wantCode: http.StatusNotFound},
		{name: "Another student's goal: complete", method: http.MethodPost, path: "/api/students/goals/" + gl.ID + "/complete", token: otherToken, wantCode: http.StatusNotFound},
		{name: "Own goal", path: "/api/students/goals/" + gl.ID, token: token, wantCode: http.StatusOK, wantData: marchallObj(t, gl)},
	})

	t.Run("Complete toggles", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/api/students/goals/"+gl.ID+"/complete", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var done goal.Goal
		decode(t, rec, &done)
		assert.True(t, done.IsCompleted)
		assert.NotNil(t, done.CompletedAt)

		rec = env.do(http.MethodGet, "/api/students/goals?is_completed=true", token)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{gl.ID}, ids(t, rec))

		rec = env.do(http.MethodPost, "/api/students/goals/"+gl.ID+"/complete", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var undone goal.Goal
		decode(t, rec, &undone)
		assert.False(t, undone.IsCompleted)
		assert.Nil(t, undone.CompletedAt)
	})

	t.Run("Update and delete", func(t *testing.T) {
		rec := env.do(http.MethodPut, "/api/students/goals/"+gl.ID, token, marchallObj(t, map[string]string{"title": "Sleep before 11pm"}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var upd goal.Goal
		decode(t, rec, &upd)
		assert.Equal(t, "Sleep before 11pm", upd.Title)
		assert.Equal(t, gl.Description, upd.Description)

		rec = env.do(http.MethodDelete, "/api/students/goals/"+gl.ID, token)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		rec = env.do(http.MethodGet, "/api/students/goals", token)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, ids(t, rec))
	})
}
