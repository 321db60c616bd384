package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/utulivu/apps/api/echo"
	"github.com/trezcool/utulivu/core"
	"github.com/trezcool/utulivu/core/chat"
	"github.com/trezcool/utulivu/core/content"
	"github.com/trezcool/utulivu/core/dashboard"
	"github.com/trezcool/utulivu/core/goal"
	"github.com/trezcool/utulivu/core/journal"
	"github.com/trezcool/utulivu/core/mood"
	"github.com/trezcool/utulivu/core/school"
	"github.com/trezcool/utulivu/core/student"
	"github.com/trezcool/utulivu/core/user"
	alertsvc "github.com/trezcool/utulivu/services/alert"
	emailsvc "github.com/trezcool/utulivu/services/email"
	llmsvc "github.com/trezcool/utulivu/services/llm"
	inmemcache "github.com/trezcool/utulivu/storage/cache/inmem"
	inmemdb "github.com/trezcool/utulivu/storage/database/inmem"
	"github.com/trezcool/utulivu/testutil"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
	errNotFound     = httpErr{Error: "not found"}
)

type testEnv struct {
	conf       *core.Config
	app        *echoapi.Server
	usrRepo    user.Repository
	schoolRepo school.Repository
	studentSvc *student.Service
	chatSvc    *chat.Service
	contentSvc *content.Service
	model      *testutil.FakeModel
	mailSvc    *emailsvc.ConsoleServiceMock
}

// setup wires the whole API on in-memory storage, a fake language model and the mail mock.
func setup(t *testing.T) *testEnv {
	t.Helper()

	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)
	core.ParseEmailTemplates(conf, logger)
	validate, translator := testutil.NewValidator()

	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	schoolRepo := inmemdb.NewSchoolRepository(db)

	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	model := testutil.NewFakeModel()

	studentSvc := student.NewService(inmemdb.NewStudentRepository(db), usrRepo, schoolRepo, core.NoopTransactor)
	moodSvc := mood.NewService(inmemdb.NewMoodRepository(db), conf)
	goalSvc := goal.NewService(inmemdb.NewGoalRepository(db))
	contentSvc := content.NewService(inmemdb.NewContentRepository(db))
	chatSvc := chat.NewService(
		inmemdb.NewChatRepository(db),
		inmemcache.NewSessionStore(),
		llmsvc.NewCompanion(model, conf, logger),
		alertsvc.NewMailAlerter(usrRepo, mailSvc, conf),
		core.NoopTransactor,
		conf,
		logger,
	)
	t.Cleanup(chatSvc.Wait)

	app := echoapi.NewServer(echoapi.ServerDeps{
		Conf:         conf,
		Logger:       logger,
		Validate:     validate,
		Translator:   translator,
		UserSvc:      user.NewService(usrRepo, mailSvc, conf),
		SchoolSvc:    school.NewService(schoolRepo),
		StudentSvc:   studentSvc,
		MoodSvc:      moodSvc,
		ChatSvc:      chatSvc,
		JournalSvc:   journal.NewService(inmemdb.NewJournalRepository(db)),
		GoalSvc:      goalSvc,
		ContentSvc:   contentSvc,
		DashboardSvc: dashboard.NewService(moodSvc, goalSvc, chatSvc),
	})

	return &testEnv{
		conf:       conf,
		app:        app,
		usrRepo:    usrRepo,
		schoolRepo: schoolRepo,
		studentSvc: studentSvc,
		chatSvc:    chatSvc,
		contentSvc: contentSvc,
		model:      model,
		mailSvc:    mailSvc,
	}
}

// do sends a request to the API and returns the recorded response.
func (env *testEnv) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	env.app.ServeHTTP(rec, req)
	return rec
}

// studentToken enrols a student and returns it with a token of its user.
func (env *testEnv) studentToken(t *testing.T, name, number, schoolID string) (student.Student, string) {
	t.Helper()
	st := testutil.CreateStudent(t, env.studentSvc, name, number, schoolID)
	usr, err := env.usrRepo.GetUser(context.Background(), user.GetFilter{ID: st.UserID})
	require.NoError(t, err)
	return st, getToken(t, env.conf, usr)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func getToken(t *testing.T, conf *core.Config, usr user.User) string {
	token, err := echoapi.GenerateToken(echoapi.GetUserClaims(usr, conf), conf.SecretKey)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	l1, ok1 := j1.([]interface{})
	l2, ok2 := j2.([]interface{})
	if !ok1 || !ok2 {
		return false, nil
	}
	return assert.ElementsMatch(t, l1, l2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, env *testEnv, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			rec := env.do(method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

// decode unmarshals the response body into v.
func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

// ids returns the "id" of every object of a JSON list response.
func ids(t *testing.T, rec *httptest.ResponseRecorder) []string {
	t.Helper()
	var objs []struct {
		ID string `json:"id"`
	}
	decode(t, rec, &objs)
	res := make([]string, 0, len(objs))
	for _, o := range objs {
		res = append(res, o.ID)
	}
	return res
}
