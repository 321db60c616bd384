package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/utulivu/core/student"
	"github.com/trezcool/utulivu/testutil"
)

func Test_studentApi(t *testing.T) {
	env := setup(t)
	sch1 := testutil.CreateSchool(t, env.schoolRepo, "Kilimani High", "KLM")
	sch2 := testutil.CreateSchool(t, env.schoolRepo, "Moshi Girls", "MSG")

	superToken := getToken(t, env.conf, testutil.CreateSuperAdmin(t, env.usrRepo, "root"))
	admin1 := testutil.CreateSchoolAdmin(t, env.usrRepo, "admin1", sch1.ID)
	adminToken := getToken(t, env.conf, admin1)
	st1, st1Token := env.studentToken(t, "Amani Njeri", "S001", sch1.ID)
	st2, _ := env.studentToken(t, "Baraka Otieno", "S002", sch2.ID)

	newStudent := func(name, number, schoolID string) []byte {
		return marchallObj(t, map[string]string{
			"name":             name,
			"student_number":   number,
			"school_id":        schoolID,
			"password":         testutil.Password,
			"password_confirm": testutil.Password,
		})
	}

	runHTTPTests(t, env, []httpTest{
		{name: "Me", path: "/api/students/me", token: st1Token, wantCode: http.StatusOK, wantData: marchallObj(t, st1)},
		{name: "Admins have no portal", path: "/api/students/me", token: adminToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "Students cannot list students", path: "/api/students", token: st1Token, wantCode: http.StatusForbidden},
		{name: "Invalid id", path: "/api/students/lol", token: adminToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
		{name: "Other school", path: "/api/students/" + st2.ID, token: adminToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
		{name: "Own school", path: "/api/students/" + st1.ID, token: adminToken, wantCode: http.StatusOK, wantData: marchallObj(t, st1)},
		{name: "Super admin", path: "/api/students/" + st2.ID, token: superToken, wantCode: http.StatusOK, wantData: marchallObj(t, st2)},
		{
			name: "Duplicate student number", method: http.MethodPost, path: "/api/students", token: adminToken,
			body:     newStudent("Someone Else", "S001", sch1.ID),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"student_number": student.ErrStudentNumberExists.Error()}),
		},
	})

	t.Run("Listing is school scoped", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/students", adminToken)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{st1.ID}, ids(t, rec))

		rec = env.do(http.MethodGet, "/api/students", superToken)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.ElementsMatch(t, []string{st1.ID, st2.ID}, ids(t, rec))
	})

	t.Run("Enrol", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/api/students", adminToken, newStudent("Chausiku Mwangi", "S003", sch2.ID))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var st student.Student
		decode(t, rec, &st)
		assert.Equal(t, sch1.ID, st.SchoolID, "school admins only enrol in their school")
		assert.NotEmpty(t, st.UserID)

		// the student logs in with their student number
		rec = env.do(http.MethodPost, "/api/users/login", "", marchallObj(t, map[string]string{"username": "s003", "password": testutil.Password}))
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("Update and delete", func(t *testing.T) {
		rec := env.do(http.MethodPut, "/api/students/"+st1.ID, adminToken, marchallObj(t, map[string]string{"gender": "female"}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var st student.Student
		decode(t, rec, &st)
		assert.Equal(t, "female", st.Gender)
		assert.Equal(t, st1.Name, st.Name)

		rec = env.do(http.MethodDelete, "/api/students/"+st2.ID, adminToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = env.do(http.MethodDelete, "/api/students/"+st2.ID, superToken)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		rec = env.do(http.MethodGet, "/api/students/"+st2.ID, superToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
