package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/utulivu/core/user"
	"github.com/trezcool/utulivu/testutil"
)

func Test_userApi_login(t *testing.T) {
	env := setup(t)
	testutil.CreateUser(t, env.usrRepo, "Active", "active", "active@utulivu.test", nil, "", true)
	testutil.CreateUser(t, env.usrRepo, "Gone", "gone", "gone@utulivu.test", nil, "", false)

	body := func(uname, pwd string) []byte {
		return marchallObj(t, map[string]string{"username": uname, "password": pwd})
	}

	runHTTPTests(t, env, []httpTest{
		{
			name: "Required fields", method: http.MethodPost, path: "/api/users/login", body: body("", ""),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "this field is required", "password": "this field is required"}),
		},
		{
			name: "Unknown user", method: http.MethodPost, path: "/api/users/login", body: body("nobody", testutil.Password),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "Wrong password", method: http.MethodPost, path: "/api/users/login", body: body("active", "nope"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "Deactivated", method: http.MethodPost, path: "/api/users/login", body: body("gone", testutil.Password),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	})

	t.Run("Success (username or email)", func(t *testing.T) {
		for _, uname := range []string{"active", "ACTIVE@utulivu.test"} {
			rec := env.do(http.MethodPost, "/api/users/login", "", body(uname, testutil.Password))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var resp struct{ Token string }
			decode(t, rec, &resp)
			assert.NotEmpty(t, resp.Token)

			// the token opens the authed endpoints
			rec = env.do(http.MethodPost, "/api/users/token-refresh", resp.Token)
			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		}
	})
}

func Test_userApi_query(t *testing.T) {
	env := setup(t)
	sch1 := testutil.CreateSchool(t, env.schoolRepo, "Kilimani High", "KLM")
	sch2 := testutil.CreateSchool(t, env.schoolRepo, "Moshi Girls", "MSG")

	super := testutil.CreateSuperAdmin(t, env.usrRepo, "root")
	admin1 := testutil.CreateSchoolAdmin(t, env.usrRepo, "admin1", sch1.ID)
	admin2 := testutil.CreateSchoolAdmin(t, env.usrRepo, "admin2", sch2.ID)
	st1, st1Token := env.studentToken(t, "Amani Njeri", "S001", sch1.ID)
	st2, _ := env.studentToken(t, "Baraka Otieno", "S002", sch2.ID)

	runHTTPTests(t, env, []httpTest{
		{name: "Auth required", path: "/api/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/api/users", token: st1Token,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
	})

	tests := []struct {
		name  string
		token string
		path  string
		want  []string
	}{
		{name: "Super admin sees everyone", token: getToken(t, env.conf, super), path: "/api/users",
			want: []string{super.ID, admin1.ID, admin2.ID, st1.UserID, st2.UserID}},
		{name: "School admin sees their school", token: getToken(t, env.conf, admin1), path: "/api/users",
			want: []string{admin1.ID, st1.UserID}},
		{name: "School filter cannot escape the school", token: getToken(t, env.conf, admin1), path: "/api/users?school_id=" + sch2.ID,
			want: []string{admin1.ID, st1.UserID}},
		{name: "role=admin: also matches super admins", token: getToken(t, env.conf, super), path: "/api/users?role=admin:",
			want: []string{super.ID, admin1.ID, admin2.ID}},
		{name: "role=student:", token: getToken(t, env.conf, super), path: "/api/users?role=student:",
			want: []string{st1.UserID, st2.UserID}},
		{name: "search", token: getToken(t, env.conf, super), path: "/api/users?search=baraka",
			want: []string{st2.UserID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodGet, tt.path, tt.token)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.ElementsMatch(t, tt.want, ids(t, rec))
		})
	}
}

func Test_userApi_detail(t *testing.T) {
	env := setup(t)
	sch1 := testutil.CreateSchool(t, env.schoolRepo, "Kilimani High", "KLM")
	sch2 := testutil.CreateSchool(t, env.schoolRepo, "Moshi Girls", "MSG")

	super := testutil.CreateSuperAdmin(t, env.usrRepo, "root")
	admin1 := testutil.CreateSchoolAdmin(t, env.usrRepo, "admin1", sch1.ID)
	admin2 := testutil.CreateSchoolAdmin(t, env.usrRepo, "admin2", sch2.ID)
	st1, st1Token := env.studentToken(t, "Amani Njeri", "S001", sch1.ID)
	admin1Token := getToken(t, env.conf, admin1)

	runHTTPTests(t, env, []httpTest{
		{name: "Invalid id", path: "/api/users/lol", token: admin1Token, wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
		{name: "Other school", path: "/api/users/" + admin2.ID, token: admin1Token, wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
		{name: "Super admin out of reach", path: "/api/users/" + super.ID, token: admin1Token, wantCode: http.StatusNotFound},
		{name: "Students only see themselves", path: "/api/users/" + admin1.ID, token: st1Token, wantCode: http.StatusNotFound},
		{name: "Own school", path: "/api/users/" + st1.UserID, token: admin1Token, wantCode: http.StatusOK},
		{name: "Self", path: "/api/users/" + st1.UserID, token: st1Token, wantCode: http.StatusOK},
		{
			name: "Students cannot change their roles", method: http.MethodPut, path: "/api/users/" + st1.UserID, token: st1Token,
			body: marchallObj(t, map[string]interface{}{"roles": []string{user.RoleAdmin}}), wantCode: http.StatusForbidden,
		},
		{
			name: "No role above your own", method: http.MethodPut, path: "/api/users/" + st1.UserID, token: admin1Token,
			body:     marchallObj(t, map[string]interface{}{"roles": []string{user.RoleAdminSuper}}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"roles": "not enough rights to set these roles"}),
		},
		{
			name: "No suicide", method: http.MethodDelete, path: "/api/users/" + admin1.ID, token: admin1Token,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
	})

	t.Run("Update name", func(t *testing.T) {
		rec := env.do(http.MethodPut, "/api/users/"+st1.UserID, st1Token, marchallObj(t, map[string]string{"name": "Amani N."}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var usr user.User
		decode(t, rec, &usr)
		assert.Equal(t, "Amani N.", usr.Name)
		assert.Equal(t, "s001", usr.Username, "students keep their student number login")
	})

	t.Run("Delete", func(t *testing.T) {
		rec := env.do(http.MethodDelete, "/api/users/"+admin2.ID, getToken(t, env.conf, super))
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		_, err := env.usrRepo.GetUser(context.Background(), user.GetFilter{ID: admin2.ID})
		assert.Error(t, err)
	})
}

func Test_userApi_register(t *testing.T) {
	env := setup(t)
	sch1 := testutil.CreateSchool(t, env.schoolRepo, "Kilimani High", "KLM")
	sch2 := testutil.CreateSchool(t, env.schoolRepo, "Moshi Girls", "MSG")
	admin1 := testutil.CreateSchoolAdmin(t, env.usrRepo, "admin1", sch1.ID)

	rec := env.do(http.MethodPost, "/api/users/register", getToken(t, env.conf, admin1), marchallObj(t, map[string]interface{}{
		"name":             "Wanjiru Kamau",
		"username":         "wanjiru",
		"email":            "wanjiru@utulivu.test",
		"password":         testutil.Password,
		"password_confirm": testutil.Password,
		"roles":            []string{user.RoleAdmin},
		"school_id":        sch2.ID,
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var usr user.User
	decode(t, rec, &usr)
	assert.Equal(t, sch1.ID, usr.SchoolID, "school admins only add users to their school")
	assert.Equal(t, []string{user.RoleAdmin}, usr.Roles)
}

func Test_userApi_passwordReset(t *testing.T) {
	env := setup(t)
	testutil.CreateUser(t, env.usrRepo, "Active", "active", "active@utulivu.test", nil, "", true)

	for _, email := range []string{"unknown@utulivu.test", "active@utulivu.test"} {
		rec := env.do(http.MethodPost, "/api/users/password-reset", "", marchallObj(t, map[string]string{"email": email}))
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	sent := env.mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "active@utulivu.test", sent[0].To[0].Address)
}
