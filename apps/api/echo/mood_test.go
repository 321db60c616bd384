package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/utulivu/core/mood"
	"github.com/trezcool/utulivu/testutil"
)

func Test_moodApi_checkin(t *testing.T) {
	env := setup(t)
	sch := testutil.CreateSchool(t, env.schoolRepo, "Kilimani High", "KLM")
	st, token := env.studentToken(t, "Amani Njeri", "S001", sch.ID)

	checkin := func(label string, triggers ...string) []byte {
		return marchallObj(t, map[string]interface{}{"mood": label, "note": "long day", "triggers": triggers})
	}

	runHTTPTests(t, env, []httpTest{
		{name: "Auth required", method: http.MethodPost, path: "/api/students/mood/checkin", wantCode: http.StatusUnauthorized},
		{
			name: "No check-in yet", path: "/api/students/mood/today", token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: mood.ErrNotFound.Error()}),
		},
		{
			name: "Unknown mood", method: http.MethodPost, path: "/api/students/mood/checkin", token: token,
			body: checkin("ecstatic"), wantCode: http.StatusBadRequest,
		},
		{
			name: "Unknown trigger", method: http.MethodPost, path: "/api/students/mood/checkin", token: token,
			body: checkin(mood.Okay, "homework"), wantCode: http.StatusBadRequest,
		},
	})

	rec := env.do(http.MethodPost, "/api/students/mood/checkin", token, checkin(mood.Bad, mood.TriggerExams, mood.TriggerSleep))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var chk mood.Checkin
	decode(t, rec, &chk)
	assert.Equal(t, st.ID, chk.StudentID)
	assert.Equal(t, 2, chk.Score)
	assert.Equal(t, []string{mood.TriggerExams, mood.TriggerSleep}, chk.Triggers)

	runHTTPTests(t, env, []httpTest{
		{
			name: "One check-in a day", method: http.MethodPost, path: "/api/students/mood/checkin", token: token,
			body: checkin(mood.Great), wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: mood.ErrAlreadyCheckedIn.Error()}),
		},
		{name: "Today", path: "/api/students/mood/today", token: token, wantCode: http.StatusOK, wantData: marchallObj(t, chk)},
		{name: "History", path: "/api/students/mood/history", token: token, wantCode: http.StatusOK, wantData: marchallList(t, chk)},
		{
			name: "History: empty range", path: "/api/students/mood/history?to=2001-01-01", token: token,
			wantCode: http.StatusOK, wantData: marchallList(t),
		},
		{name: "History: invalid date", path: "/api/students/mood/history?from=yesterday", token: token, wantCode: http.StatusBadRequest},
	})

	t.Run("Analytics", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/students/mood/analytics?days=7", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var an mood.StudentAnalytics
		decode(t, rec, &an)
		assert.Equal(t, 1, an.CheckinCount)
		assert.Equal(t, 2.0, an.AverageScore)
		assert.Equal(t, 1, an.Streak)
		require.NotEmpty(t, an.TopTriggers)
	})
}

func Test_moodApi_catalog(t *testing.T) {
	env := setup(t)
	sch := testutil.CreateSchool(t, env.schoolRepo, "Kilimani High", "KLM")
	_, token := env.studentToken(t, "Amani Njeri", "S001", sch.ID)

	runHTTPTests(t, env, []httpTest{
		{name: "Labels", path: "/api/mood/labels", token: token, wantCode: http.StatusOK, wantData: marchallObj(t, mood.Labels)},
		{name: "Triggers", path: "/api/mood/triggers", token: token, wantCode: http.StatusOK, wantData: marchallObj(t, mood.Triggers)},
		{name: "Auth required", path: "/api/mood/labels", wantCode: http.StatusUnauthorized},
	})
}

func Test_moodApi_schoolAnalytics(t *testing.T) {
	env := setup(t)
	sch1 := testutil.CreateSchool(t, env.schoolRepo, "Kilimani High", "KLM")
	sch2 := testutil.CreateSchool(t, env.schoolRepo, "Moshi Girls", "MSG")
	adminToken := getToken(t, env.conf, testutil.CreateSchoolAdmin(t, env.usrRepo, "admin1", sch1.ID))

	for i, label := range []string{mood.Good, mood.Okay} {
		_, token := env.studentToken(t, "Student", []string{"S001", "S002"}[i], sch1.ID)
		rec := env.do(http.MethodPost, "/api/students/mood/checkin", token, marchallObj(t, map[string]string{"mood": label}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	runHTTPTests(t, env, []httpTest{
		{name: "Other school", path: "/api/schools/" + sch2.ID + "/mood/analytics", token: adminToken, wantCode: http.StatusNotFound},
	})

	rec := env.do(http.MethodGet, "/api/schools/"+sch1.ID+"/mood/analytics", adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var an mood.SchoolAnalytics
	decode(t, rec, &an)
	assert.Equal(t, 2, an.CheckinCount)
	assert.Equal(t, 2, an.Participation)
	assert.Equal(t, 3.5, an.AverageScore)
	assert.NotContains(t, rec.Body.String(), "student_id")
}
