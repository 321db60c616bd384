package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/utulivu/core/school"
	"github.com/trezcool/utulivu/testutil"
)

func Test_schoolApi(t *testing.T) {
	env := setup(t)
	sch1 := testutil.CreateSchool(t, env.schoolRepo, "Kilimani High", "KLM")
	sch2 := testutil.CreateSchool(t, env.schoolRepo, "Moshi Girls", "MSG")

	superToken := getToken(t, env.conf, testutil.CreateSuperAdmin(t, env.usrRepo, "root"))
	adminToken := getToken(t, env.conf, testutil.CreateSchoolAdmin(t, env.usrRepo, "admin1", sch1.ID))
	_, stToken := env.studentToken(t, "Amani Njeri", "S001", sch1.ID)

	runHTTPTests(t, env, []httpTest{
		{name: "Auth required", path: "/api/schools", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Super admin only listing", path: "/api/schools", token: adminToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "Students are not admins", path: "/api/schools/" + sch1.ID, token: stToken, wantCode: http.StatusForbidden},
		{name: "Other school", path: "/api/schools/" + sch2.ID, token: adminToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
		{name: "Own school", path: "/api/schools/" + sch1.ID, token: adminToken, wantCode: http.StatusOK, wantData: marchallObj(t, sch1)},
		{
			name: "School admins cannot edit the school", method: http.MethodPut, path: "/api/schools/" + sch1.ID, token: adminToken,
			body: marchallObj(t, map[string]string{"name": "Renamed"}), wantCode: http.StatusForbidden,
		},
		{
			name: "Duplicate code", method: http.MethodPost, path: "/api/schools", token: superToken,
			body:     marchallObj(t, map[string]string{"name": "Kilimani Again", "code": "klm"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"code": school.ErrCodeExists.Error()}),
		},
		{
			name: "Cannot delete a school with students", method: http.MethodDelete, path: "/api/schools/" + sch1.ID, token: superToken,
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: school.ErrHasStudents.Error()}),
		},
	})

	t.Run("Super admin CRUD", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/api/schools", superToken, marchallObj(t, map[string]string{"name": "Arusha Boys", "code": "arb"}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var sch school.School
		decode(t, rec, &sch)
		assert.Equal(t, "ARB", sch.Code)
		assert.True(t, sch.IsActive)

		rec = env.do(http.MethodGet, "/api/schools", superToken)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.ElementsMatch(t, []string{sch1.ID, sch2.ID, sch.ID}, ids(t, rec))

		rec = env.do(http.MethodPut, "/api/schools/"+sch.ID, superToken, marchallObj(t, map[string]string{"address": "Arusha"}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decode(t, rec, &sch)
		assert.Equal(t, "Arusha", sch.Address)
		assert.Equal(t, "Arusha Boys", sch.Name)

		rec = env.do(http.MethodDelete, "/api/schools/"+sch.ID, superToken)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		rec = env.do(http.MethodGet, "/api/schools/"+sch.ID, superToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Classes", func(t *testing.T) {
		path := "/api/schools/" + sch1.ID + "/classes"
		rec := env.do(http.MethodPost, path, adminToken, marchallObj(t, map[string]string{"name": "Form 2B", "grade": "Form 2"}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var cls school.Class
		decode(t, rec, &cls)
		assert.Equal(t, sch1.ID, cls.SchoolID)

		rec = env.do(http.MethodPost, path, adminToken, marchallObj(t, map[string]string{"name": "Form 2B"}))
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

		rec = env.do(http.MethodGet, path, adminToken)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{cls.ID}, ids(t, rec))

		rec = env.do(http.MethodGet, "/api/schools/"+sch2.ID+"/classes", adminToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = env.do(http.MethodDelete, path+"/"+cls.ID, adminToken)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		rec = env.do(http.MethodDelete, path+"/"+cls.ID, adminToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
