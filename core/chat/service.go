package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/utulivu/core"
)

var (
	// errors
	ErrSessionNotFound     = core.NewNotFoundError("chat session")
	ErrSummaryNotFound     = core.NewNotFoundError("chat summary")
	ErrSessionEnded        = core.NewConflictError("this chat session has ended")
	ErrTempSessionNotFound = errors.New("temporary chat session not found")
)

type (
	Repository interface {
		CreateSession(ctx context.Context, sess Session) (Session, error)
		GetSession(ctx context.Context, id string) (Session, error)
		// LockSession reads a session and holds it until the surrounding transaction ends,
		// so it cannot be ended in the meantime.
		LockSession(ctx context.Context, id string) (Session, error)
		UpdateSession(ctx context.Context, sess Session) (Session, error)
		// EndSession atomically marks an active session as ended.
		// It returns ErrSessionEnded when the session was already ended.
		EndSession(ctx context.Context, id, reason string, endedAt time.Time) (Session, error)
		// QuerySessions returns the student's sessions, most recently active first.
		QuerySessions(ctx context.Context, studentID string) ([]Session, error)
		QueryActiveSessions(ctx context.Context) ([]Session, error)

		CreateMessage(ctx context.Context, msg Message) (Message, error)
		// QueryMessages returns the session's messages oldest first.
		// When limit > 0 only the latest limit messages are returned.
		QueryMessages(ctx context.Context, sessionID string, limit int) ([]Message, error)

		// CreateSummary fails if the session already has a summary.
		CreateSummary(ctx context.Context, sum Summary) (Summary, error)
		GetSummary(ctx context.Context, sessionID string) (Summary, error)
		LatestSummary(ctx context.Context, studentID string) (Summary, error)
		// QuerySummaries returns the student's summaries, newest first.
		QuerySummaries(ctx context.Context, studentID string) ([]Summary, error)
	}

	// SessionStore keeps temporary sessions until they expire.
	// Get and Take return ErrTempSessionNotFound for unknown or expired sessions.
	SessionStore interface {
		Save(ctx context.Context, ts TempSession, ttl time.Duration) error
		Get(ctx context.Context, id string) (TempSession, error)
		// Take removes and returns a temporary session. Only one caller can take a given session.
		Take(ctx context.Context, id string) (TempSession, error)
	}

	// Companion is the language model the students talk to.
	Companion interface {
		// StreamReply answers the student, calling onChunk with every piece of the reply,
		// and returns the full reply.
		StreamReply(ctx context.Context, req ReplyRequest, onChunk func(chunk string) error) (string, error)
		Summarize(ctx context.Context, req SummaryRequest) (string, error)
	}

	RiskAlerter interface {
		AlertRisk(ctx context.Context, alert RiskAlert) error
	}

	Service struct {
		repo          Repository
		store         SessionStore
		companion     Companion
		alerter       RiskAlerter
		analyzer      *Analyzer
		tx            core.Transactor
		logger        core.Logger
		tempTTL       time.Duration
		historyWindow int
		wg            sync.WaitGroup
	}
)

const (
	defaultTempTTL       = 30 * time.Minute
	defaultHistoryWindow = 20
)

func NewService(
	repo Repository,
	store SessionStore,
	companion Companion,
	alerter RiskAlerter,
	tx core.Transactor,
	conf *core.Config,
	logger core.Logger,
) *Service {
	svc := &Service{
		repo:          repo,
		store:         store,
		companion:     companion,
		alerter:       alerter,
		analyzer:      NewAnalyzer(conf.Chat.CompletionThreshold),
		tx:            tx,
		logger:        logger,
		tempTTL:       conf.Chat.TempSessionTTL,
		historyWindow: conf.LLM.HistoryWindow,
	}
	if svc.tempTTL <= 0 {
		svc.tempTTL = defaultTempTTL
	}
	if svc.historyWindow <= 0 {
		svc.historyWindow = defaultHistoryWindow
	}
	return svc
}

func greeting(name string) string {
	first := "there"
	if fields := strings.Fields(name); len(fields) > 0 {
		first = fields[0]
	}
	return fmt.Sprintf("Hi %s, I'm here to listen. How are you feeling today?", first)
}

// Start opens a temporary session. Nothing is persisted until the student's first message.
func (svc *Service) Start(ctx context.Context, p Participant) (Started, error) {
	ts := TempSession{
		ID:        TempSessionPrefix + uuid.New().String(),
		StudentID: p.StudentID,
		CreatedAt: core.NowFunc().UTC(),
	}
	if err := svc.store.Save(ctx, ts, svc.tempTTL); err != nil {
		return Started{}, errors.Wrap(err, "saving temporary session")
	}
	return Started{SessionID: ts.ID, IsTemporary: true, Greeting: greeting(p.Name)}, nil
}

// Exchange records a student message, streams the companion's reply to sink and records it.
// A temporary session is persisted on its first message.
func (svc *Service) Exchange(ctx context.Context, p Participant, nm NewMessage, sink StreamSink) (ExchangeResult, error) {
	var sess Session
	var err error
	if IsTemporaryID(nm.SessionID) {
		sess, err = svc.persistTempSession(ctx, p, nm)
	} else {
		sess, err = svc.activeSession(ctx, p.StudentID, nm.SessionID)
		if err == nil {
			sess, err = svc.recordStudentMessage(ctx, sess, nm.Message)
		}
	}
	if err != nil {
		return ExchangeResult{}, err
	}
	if err = sink.Session(sess); err != nil {
		return ExchangeResult{}, errors.Wrap(err, "sending session")
	}

	if DetectRisk(nm.Message) && !sess.RiskFlagged {
		if sess, err = svc.flagRisk(ctx, p, sess); err != nil {
			return ExchangeResult{}, err
		}
	}

	history, err := svc.repo.QueryMessages(ctx, sess.ID, svc.historyWindow+1)
	if err != nil {
		return ExchangeResult{}, errors.Wrap(err, "querying history")
	}
	if n := len(history); n > 0 {
		history = history[:n-1] // the new message
	}
	prev, err := svc.previousSummary(ctx, p.StudentID)
	if err != nil {
		return ExchangeResult{}, err
	}

	reply, err := svc.companion.StreamReply(ctx, ReplyRequest{
		StudentName:     p.Name,
		PreviousSummary: prev,
		History:         history,
		Message:         nm.Message,
	}, sink.Chunk)
	if err != nil {
		return ExchangeResult{}, errors.Wrap(err, "generating reply")
	}

	var res ExchangeResult
	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		// the session may have been ended and summarised while the reply streamed
		current, err := svc.repo.LockSession(ctx, sess.ID)
		if err != nil {
			return errors.Wrap(err, "reloading session")
		}
		if !current.IsActive() {
			return ErrSessionEnded
		}
		sess = current

		msg, err := svc.repo.CreateMessage(ctx, Message{
			ID:        uuid.New().String(),
			SessionID: sess.ID,
			Role:      RoleAssistant,
			Content:   strings.TrimSpace(reply),
			CreatedAt: core.NowFunc().UTC(),
		})
		if err != nil {
			return errors.Wrap(err, "saving reply")
		}
		an, err := svc.refresh(ctx, &sess)
		if err != nil {
			return err
		}
		res = ExchangeResult{
			MessageID:       msg.ID,
			SessionID:       sess.ID,
			CompletionScore: an.CompletionScore,
			ShouldEnd:       an.IsComplete,
		}
		return nil
	})
	return res, err
}

// persistTempSession turns the temporary session into a persisted one holding the first message.
func (svc *Service) persistTempSession(ctx context.Context, p Participant, nm NewMessage) (Session, error) {
	ts, err := svc.store.Get(ctx, nm.SessionID)
	if err != nil {
		if errors.Cause(err) == ErrTempSessionNotFound {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, errors.Wrap(err, "finding temporary session")
	}
	if ts.StudentID != p.StudentID {
		return Session{}, ErrSessionNotFound
	}
	if ts, err = svc.store.Take(ctx, ts.ID); err != nil {
		if errors.Cause(err) == ErrTempSessionNotFound {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, errors.Wrap(err, "taking temporary session")
	}

	now := core.NowFunc().UTC()
	var sess Session
	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		created, err := svc.repo.CreateSession(ctx, Session{
			ID:             uuid.New().String(),
			StudentID:      p.StudentID,
			Title:          sessionTitle(nm.Message),
			Status:         StatusActive,
			StartedAt:      now,
			LastActivityAt: now,
			Themes:         []string{},
		})
		if err != nil {
			return errors.Wrap(err, "creating session")
		}
		sess, err = svc.recordStudentMessage(ctx, created, nm.Message)
		return err
	})
	if err != nil {
		// give the student another chance with the same id
		if serr := svc.store.Save(ctx, ts, svc.tempTTL); serr != nil {
			svc.logger.Warn(fmt.Sprintf("restoring temporary session %s: %v", ts.ID, serr), serr)
		}
		return Session{}, err
	}
	return sess, nil
}

func (svc *Service) activeSession(ctx context.Context, studentID, id string) (Session, error) {
	sess, err := svc.get(ctx, studentID, id)
	if err != nil {
		return Session{}, err
	}
	if !sess.IsActive() {
		return Session{}, ErrSessionEnded
	}
	return sess, nil
}

func (svc *Service) recordStudentMessage(ctx context.Context, sess Session, content string) (Session, error) {
	if _, err := svc.repo.CreateMessage(ctx, Message{
		ID:        uuid.New().String(),
		SessionID: sess.ID,
		Role:      RoleStudent,
		Content:   content,
		CreatedAt: core.NowFunc().UTC(),
	}); err != nil {
		return Session{}, errors.Wrap(err, "saving message")
	}
	if _, err := svc.refresh(ctx, &sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// refresh re-analyses the session's transcript and saves its activity.
func (svc *Service) refresh(ctx context.Context, sess *Session) (Analysis, error) {
	msgs, err := svc.repo.QueryMessages(ctx, sess.ID, 0)
	if err != nil {
		return Analysis{}, errors.Wrap(err, "querying messages")
	}
	an := svc.analyzer.Analyze(msgs)

	sess.LastActivityAt = core.NowFunc().UTC()
	sess.MessageCount = len(msgs)
	sess.CompletionScore = an.CompletionScore
	sess.Themes = an.Themes
	updated, err := svc.repo.UpdateSession(ctx, *sess)
	if err != nil {
		return Analysis{}, errors.Wrap(err, "updating session")
	}
	*sess = updated
	return an, nil
}

// flagRisk marks the session and alerts the school staff in the background.
func (svc *Service) flagRisk(ctx context.Context, p Participant, sess Session) (Session, error) {
	sess.RiskFlagged = true
	updated, err := svc.repo.UpdateSession(ctx, sess)
	if err != nil {
		return Session{}, errors.Wrap(err, "flagging session")
	}

	alert := RiskAlert{
		StudentID:     p.StudentID,
		StudentName:   p.Name,
		StudentNumber: p.StudentNumber,
		SchoolID:      p.SchoolID,
		SessionID:     sess.ID,
		DetectedAt:    core.NowFunc().UTC(),
	}
	svc.wg.Add(1)
	go func() {
		defer svc.wg.Done()
		if err := svc.alerter.AlertRisk(context.WithoutCancel(ctx), alert); err != nil {
			svc.logger.Error(fmt.Sprintf("sending risk alert for session %s: %v", alert.SessionID, err), err)
		}
	}()
	return updated, nil
}

func (svc *Service) previousSummary(ctx context.Context, studentID string) (string, error) {
	sum, err := svc.repo.LatestSummary(ctx, studentID)
	if err != nil {
		if core.IsNotFound(err) {
			return "", nil
		}
		return "", errors.Wrap(err, "finding latest summary")
	}
	return sum.Content, nil
}

func (svc *Service) get(ctx context.Context, studentID, id string) (Session, error) {
	if IsTemporaryID(id) {
		return Session{}, ErrSessionNotFound
	}
	sess, err := svc.repo.GetSession(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if sess.StudentID != studentID {
		return Session{}, ErrSessionNotFound
	}
	return sess, nil
}

// End ends one of the student's sessions on their request and returns its summary.
func (svc *Service) End(ctx context.Context, studentID, id string) (Summary, error) {
	sess, err := svc.activeSession(ctx, studentID, id)
	if err != nil {
		return Summary{}, err
	}
	return svc.EndSession(ctx, sess, ReasonUserEnded)
}

// EndSession ends sess for reason and summarises it.
// Only the first caller ends a session, the others get ErrSessionEnded.
func (svc *Service) EndSession(ctx context.Context, sess Session, reason string) (Summary, error) {
	ended, err := svc.repo.EndSession(ctx, sess.ID, reason, core.NowFunc().UTC())
	if err != nil {
		return Summary{}, err
	}

	msgs, err := svc.repo.QueryMessages(ctx, ended.ID, 0)
	if err != nil {
		return Summary{}, errors.Wrap(err, "querying messages")
	}
	an := svc.analyzer.Analyze(msgs)
	prev, err := svc.previousSummary(ctx, ended.StudentID)
	if err != nil {
		return Summary{}, err
	}

	content, err := svc.companion.Summarize(ctx, SummaryRequest{
		PreviousSummary: prev,
		Transcript:      msgs,
		Themes:          an.Themes,
		EndReason:       reason,
	})
	content = strings.TrimSpace(content)
	if err != nil || content == "" {
		if err != nil {
			svc.logger.Warn(fmt.Sprintf("summarising session %s: %v", ended.ID, err), err)
		}
		content = FallbackSummary(len(msgs), an.Themes, reason)
	}

	sum, err := svc.repo.CreateSummary(ctx, Summary{
		ID:              uuid.New().String(),
		SessionID:       ended.ID,
		StudentID:       ended.StudentID,
		Content:         content,
		Themes:          an.Themes,
		CompletionScore: an.CompletionScore,
		CreatedAt:       core.NowFunc().UTC(),
	})
	if err != nil {
		return Summary{}, errors.Wrap(err, "saving summary")
	}
	return sum, nil
}

var reasonTexts = map[string]string{
	ReasonUserEnded:   "The student ended the conversation.",
	ReasonMaxDuration: "The conversation reached its time limit.",
	ReasonInactivity:  "The conversation ended after a period of inactivity.",
	ReasonCompleted:   "The conversation came to a natural close.",
}

// FallbackSummary describes a session without the help of the companion.
func FallbackSummary(messageCount int, themes []string, reason string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A conversation of %d messages", messageCount)
	if len(themes) > 0 {
		b.WriteString(" touching on " + joinWords(themes))
	}
	b.WriteString(".")
	if txt, ok := reasonTexts[reason]; ok {
		b.WriteString(" " + txt)
	}
	return b.String()
}

func joinWords(words []string) string {
	if len(words) == 1 {
		return words[0]
	}
	return strings.Join(words[:len(words)-1], ", ") + " and " + words[len(words)-1]
}

func (svc *Service) List(ctx context.Context, studentID string) ([]Session, error) {
	return svc.repo.QuerySessions(ctx, studentID)
}

// Get returns one of the student's sessions with its transcript.
func (svc *Service) Get(ctx context.Context, studentID, id string) (SessionWithMessages, error) {
	sess, err := svc.get(ctx, studentID, id)
	if err != nil {
		return SessionWithMessages{}, err
	}
	msgs, err := svc.repo.QueryMessages(ctx, sess.ID, 0)
	if err != nil {
		return SessionWithMessages{}, errors.Wrap(err, "querying messages")
	}
	return SessionWithMessages{Session: sess, Messages: msgs}, nil
}

func (svc *Service) Summaries(ctx context.Context, studentID string) ([]Summary, error) {
	return svc.repo.QuerySummaries(ctx, studentID)
}

func (svc *Service) LatestSummary(ctx context.Context, studentID string) (Summary, error) {
	return svc.repo.LatestSummary(ctx, studentID)
}

// Wait blocks until the background risk alerts are sent.
func (svc *Service) Wait() {
	svc.wg.Wait()
}
