package chat_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/utulivu/core"
	"github.com/trezcool/utulivu/core/chat"
	inmemcache "github.com/trezcool/utulivu/storage/cache/inmem"
	inmemdb "github.com/trezcool/utulivu/storage/database/inmem"
	"github.com/trezcool/utulivu/testutil"
)

type fakeCompanion struct {
	mu           sync.Mutex
	reply        string
	summary      string
	replyErr     error
	summarizeErr error
	replies      []chat.ReplyRequest
	summaries    []chat.SummaryRequest
	afterStream  func() // runs once the reply has been streamed
}

func (c *fakeCompanion) StreamReply(_ context.Context, req chat.ReplyRequest, onChunk func(string) error) (string, error) {
	c.mu.Lock()
	c.replies = append(c.replies, req)
	c.mu.Unlock()
	if c.replyErr != nil {
		return "", c.replyErr
	}
	for _, word := range strings.SplitAfter(c.reply, " ") {
		if err := onChunk(word); err != nil {
			return "", err
		}
	}
	if c.afterStream != nil {
		c.afterStream()
	}
	return c.reply, nil
}

func (c *fakeCompanion) Summarize(_ context.Context, req chat.SummaryRequest) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summaries = append(c.summaries, req)
	return c.summary, c.summarizeErr
}

func (c *fakeCompanion) summaryCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.summaries)
}

type fakeAlerter struct {
	mu     sync.Mutex
	alerts []chat.RiskAlert
}

func (a *fakeAlerter) AlertRisk(_ context.Context, alert chat.RiskAlert) error {
	a.mu.Lock()
	a.alerts = append(a.alerts, alert)
	a.mu.Unlock()
	return nil
}

type recordingSink struct {
	sessions []chat.Session
	chunks   []string
}

func (s *recordingSink) Session(sess chat.Session) error {
	s.sessions = append(s.sessions, sess)
	return nil
}

func (s *recordingSink) Chunk(content string) error {
	s.chunks = append(s.chunks, content)
	return nil
}

type fixture struct {
	svc       *chat.Service
	repo      chat.Repository
	store     *inmemcache.SessionStore
	companion *fakeCompanion
	alerter   *fakeAlerter
	conf      *core.Config
}

var (
	amani  = chat.Participant{StudentID: "st-amani", SchoolID: "sch-1", StudentNumber: "S001", Name: "Amani Njeri"}
	baraka = chat.Participant{StudentID: "st-baraka", SchoolID: "sch-1", StudentNumber: "S002", Name: "Baraka"}
)

func setup(t *testing.T) *fixture {
	t.Helper()
	conf := testutil.NewConfig()
	f := &fixture{
		repo:      inmemdb.NewChatRepository(inmemdb.Open()),
		store:     inmemcache.NewSessionStore(),
		companion: &fakeCompanion{reply: "I hear you. Tell me more.", summary: "The student talked about exams."},
		alerter:   &fakeAlerter{},
		conf:      conf,
	}
	f.svc = chat.NewService(f.repo, f.store, f.companion, f.alerter, core.NoopTransactor, conf, testutil.NewLogger(conf))
	return f
}

// freezeTime makes core.NowFunc return a movable clock for the duration of the test.
func freezeTime(t *testing.T) *time.Time {
	t.Helper()
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	orig := core.NowFunc
	core.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { core.NowFunc = orig })
	return &now
}

func (f *fixture) send(t *testing.T, p chat.Participant, sessionID, message string) (chat.ExchangeResult, *recordingSink) {
	t.Helper()
	sink := new(recordingSink)
	res, err := f.svc.Exchange(context.Background(), p, chat.NewMessage{SessionID: sessionID, Message: message}, sink)
	require.NoError(t, err)
	return res, sink
}

func (f *fixture) startSession(t *testing.T, p chat.Participant, firstMessage string) string {
	t.Helper()
	started, err := f.svc.Start(context.Background(), p)
	require.NoError(t, err)
	res, _ := f.send(t, p, started.SessionID, firstMessage)
	return res.SessionID
}

func TestService_Start(t *testing.T) {
	f := setup(t)

	started, err := f.svc.Start(context.Background(), amani)
	require.NoError(t, err)
	assert.True(t, started.IsTemporary)
	assert.True(t, chat.IsTemporaryID(started.SessionID))
	assert.Equal(t, "Hi Amani, I'm here to listen. How are you feeling today?", started.Greeting)
	assert.Equal(t, 1, f.store.Len())

	sessions, err := f.svc.List(context.Background(), amani.StudentID)
	require.NoError(t, err)
	assert.Empty(t, sessions, "nothing is persisted before the first message")
}

func TestService_Exchange_persistsTemporarySession(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	started, err := f.svc.Start(ctx, amani)
	require.NoError(t, err)

	res, sink := f.send(t, amani, started.SessionID, "I am stressed about my exams tomorrow")

	require.Len(t, sink.sessions, 1)
	sess := sink.sessions[0]
	assert.False(t, chat.IsTemporaryID(sess.ID))
	assert.Equal(t, sess.ID, res.SessionID)
	assert.Equal(t, "I am stressed about my exams tomorrow", sess.Title)
	assert.Equal(t, f.companion.reply, strings.Join(sink.chunks, ""))
	assert.NotEmpty(t, res.MessageID)
	assert.Equal(t, 0, f.store.Len(), "the temporary session is dropped")

	got, err := f.svc.Get(ctx, amani.StudentID, sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, chat.RoleStudent, got.Messages[0].Role)
	assert.Equal(t, chat.RoleAssistant, got.Messages[1].Role)
	assert.Equal(t, f.companion.reply, got.Messages[1].Content)
	assert.Equal(t, 2, got.MessageCount)
	assert.Contains(t, got.Themes, chat.ThemeExams)

	// the temporary id can not be used twice
	_, err = f.svc.Exchange(ctx, amani, chat.NewMessage{SessionID: started.SessionID, Message: "again"}, new(recordingSink))
	assert.Equal(t, chat.ErrSessionNotFound, errors.Cause(err))

	// the persisted id keeps the conversation going
	res2, sink2 := f.send(t, amani, sess.ID, "Thanks, bye!")
	assert.Equal(t, sess.ID, res2.SessionID)
	assert.Equal(t, sess.ID, sink2.sessions[0].ID)
	assert.True(t, res2.ShouldEnd)
	assert.Equal(t, 0.65, res2.CompletionScore)
}

func TestService_Exchange_temporarySessionErrors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	started, err := f.svc.Start(ctx, amani)
	require.NoError(t, err)

	tests := []struct {
		name string
		p    chat.Participant
		id   string
	}{
		{name: "unknown", p: amani, id: chat.TempSessionPrefix + "unknown"},
		{name: "owned by another student", p: baraka, id: started.SessionID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := new(recordingSink)
			_, err := f.svc.Exchange(ctx, tt.p, chat.NewMessage{SessionID: tt.id, Message: "hello"}, sink)
			assert.Equal(t, chat.ErrSessionNotFound, errors.Cause(err))
			assert.Empty(t, sink.sessions)
		})
	}

	// the owner can still use it
	res, _ := f.send(t, amani, started.SessionID, "hello")
	assert.False(t, chat.IsTemporaryID(res.SessionID))
}

func TestService_Exchange_expiredTemporarySession(t *testing.T) {
	now := freezeTime(t)
	f := setup(t)

	started, err := f.svc.Start(context.Background(), amani)
	require.NoError(t, err)

	*now = now.Add(f.conf.Chat.TempSessionTTL + time.Second)
	_, err = f.svc.Exchange(context.Background(), amani, chat.NewMessage{SessionID: started.SessionID, Message: "hi"}, new(recordingSink))
	assert.Equal(t, chat.ErrSessionNotFound, errors.Cause(err))
}

func TestService_Exchange_context(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first := f.startSession(t, amani, "I can't sleep")
	_, err := f.svc.End(ctx, amani.StudentID, first)
	require.NoError(t, err)

	id := f.startSession(t, amani, "Hello again")
	f.send(t, amani, id, "Exams are close")

	last := f.companion.replies[len(f.companion.replies)-1]
	assert.Equal(t, "Amani Njeri", last.StudentName)
	assert.Equal(t, "The student talked about exams.", last.PreviousSummary)
	assert.Equal(t, "Exams are close", last.Message)
	require.Len(t, last.History, 2, "history excludes the new message")
	assert.Equal(t, "Hello again", last.History[0].Content)
	assert.Equal(t, f.companion.reply, last.History[1].Content)
}

func TestService_Exchange_foreignAndEndedSessions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	id := f.startSession(t, amani, "hello")

	_, err := f.svc.Exchange(ctx, baraka, chat.NewMessage{SessionID: id, Message: "hi"}, new(recordingSink))
	assert.Equal(t, chat.ErrSessionNotFound, errors.Cause(err))

	_, err = f.svc.Get(ctx, baraka.StudentID, id)
	assert.Equal(t, chat.ErrSessionNotFound, errors.Cause(err))

	_, err = f.svc.End(ctx, amani.StudentID, id)
	require.NoError(t, err)

	_, err = f.svc.Exchange(ctx, amani, chat.NewMessage{SessionID: id, Message: "hi"}, new(recordingSink))
	assert.Equal(t, chat.ErrSessionEnded, errors.Cause(err))
}

func TestService_Exchange_companionFailure(t *testing.T) {
	f := setup(t)
	f.companion.replyErr = errors.New("provider down")

	started, err := f.svc.Start(context.Background(), amani)
	require.NoError(t, err)

	sink := new(recordingSink)
	_, err = f.svc.Exchange(context.Background(), amani, chat.NewMessage{SessionID: started.SessionID, Message: "hello"}, sink)
	require.Error(t, err)

	// the student message is kept, the session already exists
	require.Len(t, sink.sessions, 1)
	got, err := f.svc.Get(context.Background(), amani.StudentID, sink.sessions[0].ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 1)
}

func TestService_Exchange_riskAlert(t *testing.T) {
	f := setup(t)
	id := f.startSession(t, amani, "Sometimes I want to end my life")
	f.send(t, amani, id, "I think about suicide a lot")
	f.svc.Wait()

	require.Len(t, f.alerter.alerts, 1, "one alert per session")
	alert := f.alerter.alerts[0]
	assert.Equal(t, amani.StudentID, alert.StudentID)
	assert.Equal(t, amani.SchoolID, alert.SchoolID)
	assert.Equal(t, amani.StudentNumber, alert.StudentNumber)
	assert.Equal(t, id, alert.SessionID)

	sess, err := f.repo.GetSession(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, sess.RiskFlagged)
}

func TestService_Exchange_sessionEndedWhileStreaming(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	id := f.startSession(t, amani, "I am stressed about my exams")

	var summary chat.Summary
	f.companion.afterStream = func() {
		var err error
		summary, err = f.svc.End(ctx, amani.StudentID, id)
		require.NoError(t, err)
	}
	sink := new(recordingSink)
	_, err := f.svc.Exchange(ctx, amani, chat.NewMessage{SessionID: id, Message: "and my parents too"}, sink)
	assert.Equal(t, chat.ErrSessionEnded, errors.Cause(err))
	assert.NotEmpty(t, sink.chunks, "the reply was streamed before the session ended")

	got, err := f.svc.Get(ctx, amani.StudentID, id)
	require.NoError(t, err)
	assert.Equal(t, chat.StatusEnded, got.Status)
	require.Len(t, got.Messages, 3, "the late reply is not recorded")
	assert.Equal(t, chat.RoleStudent, got.Messages[2].Role)
	assert.Equal(t, 3, got.MessageCount)

	require.Equal(t, 1, f.companion.summaryCount())
	assert.Len(t, f.companion.summaries[0].Transcript, 3)
	assert.Equal(t, id, summary.SessionID)
}

func TestService_End(t *testing.T) {
	ctx := context.Background()

	t.Run("summarised by the companion", func(t *testing.T) {
		f := setup(t)
		id := f.startSession(t, amani, "My family keeps arguing")

		sum, err := f.svc.End(ctx, amani.StudentID, id)
		require.NoError(t, err)
		assert.Equal(t, id, sum.SessionID)
		assert.Equal(t, amani.StudentID, sum.StudentID)
		assert.Equal(t, "The student talked about exams.", sum.Content)
		assert.Equal(t, []string{chat.ThemeFamily}, sum.Themes)

		sess, err := f.repo.GetSession(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, chat.StatusEnded, sess.Status)
		assert.Equal(t, chat.ReasonUserEnded, sess.EndReason)
		assert.NotNil(t, sess.EndedAt)

		_, err = f.svc.End(ctx, amani.StudentID, id)
		assert.Equal(t, chat.ErrSessionEnded, errors.Cause(err))

		sums, err := f.svc.Summaries(ctx, amani.StudentID)
		require.NoError(t, err)
		assert.Len(t, sums, 1)
	})

	t.Run("fallback summary", func(t *testing.T) {
		f := setup(t)
		f.companion.summarizeErr = errors.New("timeout")
		id := f.startSession(t, amani, "I feel lonely at school")

		sum, err := f.svc.End(ctx, amani.StudentID, id)
		require.NoError(t, err)
		assert.Equal(t, chat.FallbackSummary(2, sum.Themes, chat.ReasonUserEnded), sum.Content)
		assert.Contains(t, sum.Content, "The student ended the conversation.")
	})

	t.Run("temporary and foreign sessions", func(t *testing.T) {
		f := setup(t)
		started, err := f.svc.Start(ctx, amani)
		require.NoError(t, err)
		_, err = f.svc.End(ctx, amani.StudentID, started.SessionID)
		assert.Equal(t, chat.ErrSessionNotFound, errors.Cause(err))

		id := f.startSession(t, amani, "hello")
		_, err = f.svc.End(ctx, baraka.StudentID, id)
		assert.Equal(t, chat.ErrSessionNotFound, errors.Cause(err))
	})
}

func TestTerminator_Sweep(t *testing.T) {
	now := freezeTime(t)
	f := setup(t)
	ctx := context.Background()
	policy := chat.NewPolicy(0, 0, 0)

	idle := f.startSession(t, amani, "hello")
	*now = now.Add(5 * time.Minute)
	done := f.startSession(t, baraka, "thank you, I feel better now, bye")
	*now = now.Add(5*time.Minute + time.Second)

	term := chat.NewTerminator(f.svc, policy, time.Minute, testutil.NewLogger(f.conf))

	ended, err := term.Sweep(ctx)
	require.NoError(t, err)
	term.Wait()
	assert.ElementsMatch(t, []string{idle, done}, ended)

	idleSess, err := f.repo.GetSession(ctx, idle)
	require.NoError(t, err)
	assert.Equal(t, chat.ReasonInactivity, idleSess.EndReason)

	doneSess, err := f.repo.GetSession(ctx, done)
	require.NoError(t, err)
	assert.Equal(t, chat.ReasonCompleted, doneSess.EndReason)

	_, err = f.repo.GetSummary(ctx, idle)
	assert.NoError(t, err)
	_, err = f.repo.GetSummary(ctx, done)
	assert.NoError(t, err)

	// nothing left to end
	ended, err = term.Sweep(ctx)
	require.NoError(t, err)
	term.Wait()
	assert.Empty(t, ended)
	assert.Equal(t, 2, f.companion.summaryCount())
}

func TestTerminator_concurrentSweeps(t *testing.T) {
	now := freezeTime(t)
	f := setup(t)
	ctx := context.Background()

	id := f.startSession(t, amani, "hello")
	*now = now.Add(chat.DefaultMaxDuration)

	terms := []*chat.Terminator{
		chat.NewTerminator(f.svc, chat.NewPolicy(0, 0, 0), time.Minute, testutil.NewLogger(f.conf)),
		chat.NewTerminator(f.svc, chat.NewPolicy(0, 0, 0), time.Minute, testutil.NewLogger(f.conf)),
	}
	var wg sync.WaitGroup
	for _, term := range terms {
		wg.Add(1)
		go func(term *chat.Terminator) {
			defer wg.Done()
			_, err := term.Sweep(ctx)
			assert.NoError(t, err)
			term.Wait()
		}(term)
	}
	wg.Wait()

	sums, err := f.svc.Summaries(ctx, amani.StudentID)
	require.NoError(t, err)
	require.Len(t, sums, 1, "exactly one summary")
	assert.Equal(t, id, sums[0].SessionID)

	sess, err := f.repo.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, chat.ReasonMaxDuration, sess.EndReason)
}

func TestTerminator_Run(t *testing.T) {
	f := setup(t)
	term := chat.NewTerminator(f.svc, chat.NewPolicy(0, 0, 0), 10*time.Millisecond, testutil.NewLogger(f.conf))

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		term.Run(ctx)
		close(stopped)
	}()
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}
