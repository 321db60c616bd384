package echoapi_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/utulivu/core/chat"
	"github.com/trezcool/utulivu/testutil"
)

type sseEvent struct {
	name string
	data map[string]interface{}
}

// parseEvents splits a text/event-stream body into its events.
func parseEvents(t *testing.T, body string) []sseEvent {
	t.Helper()
	var events []sseEvent
	for _, frame := range strings.Split(strings.TrimSpace(body), "\n\n") {
		var ev sseEvent
		for _, line := range strings.Split(frame, "\n") {
			switch {
			case strings.HasPrefix(line, "event: "):
				ev.name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev.data), frame)
			}
		}
		events = append(events, ev)
	}
	return events
}

func eventNames(events []sseEvent) []string {
	names := make([]string, 0, len(events))
	for _, ev := range events {
		names = append(names, ev.name)
	}
	return names
}

func (env *testEnv) startChat(t *testing.T, token string) chat.Started {
	t.Helper()
	rec := env.do(http.MethodPost, "/api/students/chat/start", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var started chat.Started
	decode(t, rec, &started)
	return started
}

func (env *testEnv) sendMessage(t *testing.T, token, sessionID, msg string) (int, []sseEvent) {
	t.Helper()
	rec := env.do(http.MethodPost, "/api/students/chat/stream", token, marchallObj(t, map[string]string{"session_id": sessionID, "message": msg}))
	if rec.Code != http.StatusOK {
		return rec.Code, nil
	}
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	return rec.Code, parseEvents(t, rec.Body.String())
}

func Test_chatApi_conversation(t *testing.T) {
	env := setup(t)
	sch := testutil.CreateSchool(t, env.schoolRepo, "Kilimani High", "KLM")
	_, token := env.studentToken(t, "Amani Njeri", "S001", sch.ID)
	_, otherToken := env.studentToken(t, "Baraka Otieno", "S002", sch.ID)

	started := env.startChat(t, token)
	assert.True(t, started.IsTemporary)
	assert.True(t, chat.IsTemporaryID(started.SessionID))
	assert.Contains(t, started.Greeting, "Amani")

	t.Run("Temporary sessions are not listed", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/students/chat/sessions", token)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, ids(t, rec))

		rec = env.do(http.MethodGet, "/api/students/chat/sessions/"+started.SessionID, token)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Others cannot use the temporary session", func(t *testing.T) {
		code, _ := env.sendMessage(t, otherToken, started.SessionID, "hello")
		assert.Equal(t, http.StatusNotFound, code)
	})

	code, events := env.sendMessage(t, token, started.SessionID, "I am stressed about my exams")
	require.Equal(t, http.StatusOK, code)
	names := eventNames(events)
	require.GreaterOrEqual(t, len(names), 3)
	assert.Equal(t, "session", names[0])
	assert.Equal(t, "done", names[len(names)-1])

	var reply strings.Builder
	for _, ev := range events[1 : len(events)-1] {
		assert.Equal(t, "chunk", ev.name)
		reply.WriteString(ev.data["content"].(string))
	}
	assert.Equal(t, env.model.Reply, reply.String())

	sessionID, _ := events[0].data["session_id"].(string)
	require.NotEmpty(t, sessionID)
	assert.False(t, chat.IsTemporaryID(sessionID))
	assert.Equal(t, false, events[0].data["is_temporary"])
	assert.Equal(t, sessionID, events[len(events)-1].data["session_id"])

	t.Run("The temporary id is spent", func(t *testing.T) {
		code, _ := env.sendMessage(t, token, started.SessionID, "again")
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("Follow-up message", func(t *testing.T) {
		code, events := env.sendMessage(t, token, sessionID, "thanks, that helps")
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "done", events[len(events)-1].name)
	})

	t.Run("Transcript", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/students/chat/sessions/"+sessionID, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var sess chat.SessionWithMessages
		decode(t, rec, &sess)
		require.Len(t, sess.Messages, 4)
		assert.Equal(t, chat.RoleStudent, sess.Messages[0].Role)
		assert.Equal(t, chat.RoleAssistant, sess.Messages[1].Role)
		assert.Equal(t, 4, sess.MessageCount)
		assert.Contains(t, sess.Themes, chat.ThemeExams)

		rec = env.do(http.MethodGet, "/api/students/chat/sessions/"+sessionID, otherToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("End", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/api/students/chat/sessions/"+sessionID+"/end", otherToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = env.do(http.MethodPost, "/api/students/chat/sessions/"+sessionID+"/end", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var sum chat.Summary
		decode(t, rec, &sum)
		assert.Equal(t, sessionID, sum.SessionID)
		assert.Equal(t, env.model.Summary, sum.Content)

		rec = env.do(http.MethodPost, "/api/students/chat/sessions/"+sessionID+"/end", token)
		assert.Equal(t, http.StatusConflict, rec.Code)
		checkCodeAndData(t, httpTest{wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: chat.ErrSessionEnded.Error()})}, rec)

		code, _ := env.sendMessage(t, token, sessionID, "one more thing")
		assert.Equal(t, http.StatusConflict, code)

		rec = env.do(http.MethodGet, "/api/students/chat/summaries", token)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{sum.ID}, ids(t, rec))
	})
}

func Test_chatApi_validation(t *testing.T) {
	env := setup(t)
	sch := testutil.CreateSchool(t, env.schoolRepo, "Kilimani High", "KLM")
	_, token := env.studentToken(t, "Amani Njeri", "S001", sch.ID)
	adminToken := getToken(t, env.conf, testutil.CreateSchoolAdmin(t, env.usrRepo, "admin1", sch.ID))

	runHTTPTests(t, env, []httpTest{
		{name: "Auth required", method: http.MethodPost, path: "/api/students/chat/start", wantCode: http.StatusUnauthorized},
		{name: "Students only", method: http.MethodPost, path: "/api/students/chat/start", token: adminToken, wantCode: http.StatusForbidden},
		{
			name: "Empty message", method: http.MethodPost, path: "/api/students/chat/stream", token: token,
			body: marchallObj(t, map[string]string{"session_id": "temp-x"}), wantCode: http.StatusBadRequest,
		},
		{
			name: "Unknown temporary session", method: http.MethodPost, path: "/api/students/chat/stream", token: token,
			body:     marchallObj(t, map[string]string{"session_id": chat.TempSessionPrefix + "nope", "message": "hi"}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: chat.ErrSessionNotFound.Error()}),
		},
		{name: "Invalid session id", path: "/api/students/chat/sessions/lol", token: token, wantCode: http.StatusNotFound},
	})
}

func Test_chatApi_companionFailure(t *testing.T) {
	env := setup(t)
	sch := testutil.CreateSchool(t, env.schoolRepo, "Kilimani High", "KLM")
	_, token := env.studentToken(t, "Amani Njeri", "S001", sch.ID)
	env.model.Err = errors.New("model unavailable")

	started := env.startChat(t, token)
	code, events := env.sendMessage(t, token, started.SessionID, "hello")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"session", "error"}, eventNames(events))
	assert.NotEmpty(t, events[1].data["error"])
}

func Test_chatApi_riskAlert(t *testing.T) {
	env := setup(t)
	sch := testutil.CreateSchool(t, env.schoolRepo, "Kilimani High", "KLM")
	testutil.CreateSchoolAdmin(t, env.usrRepo, "counsellor", sch.ID)
	_, token := env.studentToken(t, "Amani Njeri", "S001", sch.ID)

	started := env.startChat(t, token)
	code, events := env.sendMessage(t, token, started.SessionID, "some days I just want to die")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "done", events[len(events)-1].name)

	env.chatSvc.Wait()
	sent := env.mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "counsellor@utulivu.test", sent[0].To[0].Address)
	assert.NotContains(t, sent[0].TextContent, "want to die", "alerts never carry the conversation")
}
