package pgrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/utulivu/core"
	"github.com/trezcool/utulivu/core/chat"
)

const (
	sessionColumns = `id, student_id, title, status, end_reason, started_at, last_activity_at, ended_at, ` +
		`message_count, completion_score, risk_flagged, themes`
	messageColumns = `id, session_id, role, content, created_at`
	summaryColumns = `id, session_id, student_id, content, themes, completion_score, created_at`
)

type sessionRow struct {
	ID              string         `db:"id"`
	StudentID       string         `db:"student_id"`
	Title           string         `db:"title"`
	Status          string         `db:"status"`
	EndReason       string         `db:"end_reason"`
	StartedAt       time.Time      `db:"started_at"`
	LastActivityAt  time.Time      `db:"last_activity_at"`
	EndedAt         null.Time      `db:"ended_at"`
	MessageCount    int            `db:"message_count"`
	CompletionScore float64        `db:"completion_score"`
	RiskFlagged     bool           `db:"risk_flagged"`
	Themes          pq.StringArray `db:"themes"`
}

func toSessionRow(sess chat.Session) sessionRow {
	return sessionRow{
		ID:              sess.ID,
		StudentID:       sess.StudentID,
		Title:           sess.Title,
		Status:          sess.Status,
		EndReason:       sess.EndReason,
		StartedAt:       sess.StartedAt.UTC(),
		LastActivityAt:  sess.LastActivityAt.UTC(),
		EndedAt:         null.TimeFromPtr(sess.EndedAt),
		MessageCount:    sess.MessageCount,
		CompletionScore: sess.CompletionScore,
		RiskFlagged:     sess.RiskFlagged,
		Themes:          pq.StringArray(stringsOrEmpty(sess.Themes)),
	}
}

func (row sessionRow) session() chat.Session {
	return chat.Session{
		ID:              row.ID,
		StudentID:       row.StudentID,
		Title:           row.Title,
		Status:          row.Status,
		EndReason:       row.EndReason,
		StartedAt:       row.StartedAt.UTC(),
		LastActivityAt:  row.LastActivityAt.UTC(),
		EndedAt:         utcPtr(row.EndedAt),
		MessageCount:    row.MessageCount,
		CompletionScore: row.CompletionScore,
		RiskFlagged:     row.RiskFlagged,
		Themes:          stringsOrEmpty(row.Themes),
	}
}

type messageRow struct {
	ID        string    `db:"id"`
	SessionID string    `db:"session_id"`
	Role      string    `db:"role"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}

func (row messageRow) message() chat.Message {
	return chat.Message{
		ID:        row.ID,
		SessionID: row.SessionID,
		Role:      row.Role,
		Content:   row.Content,
		CreatedAt: row.CreatedAt.UTC(),
	}
}

type summaryRow struct {
	ID              string         `db:"id"`
	SessionID       string         `db:"session_id"`
	StudentID       string         `db:"student_id"`
	Content         string         `db:"content"`
	Themes          pq.StringArray `db:"themes"`
	CompletionScore float64        `db:"completion_score"`
	CreatedAt       time.Time      `db:"created_at"`
}

func (row summaryRow) summary() chat.Summary {
	return chat.Summary{
		ID:              row.ID,
		SessionID:       row.SessionID,
		StudentID:       row.StudentID,
		Content:         row.Content,
		Themes:          stringsOrEmpty(row.Themes),
		CompletionScore: row.CompletionScore,
		CreatedAt:       row.CreatedAt.UTC(),
	}
}

func stringsOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func utcPtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

type chatRepository struct {
	repo
}

var _ chat.Repository = (*chatRepository)(nil) // interface compliance check

func NewChatRepository(db core.DBExecutor) *chatRepository {
	return &chatRepository{repo{db: db}}
}

func (r *chatRepository) CreateSession(ctx context.Context, sess chat.Session) (chat.Session, error) {
	row := toSessionRow(sess)
	_, err := sqlx.NamedExecContext(ctx, r.exec(ctx), `
		INSERT INTO chat_sessions (`+sessionColumns+`)
		VALUES (:id, :student_id, :title, :status, :end_reason, :started_at, :last_activity_at, :ended_at,
			:message_count, :completion_score, :risk_flagged, :themes)`,
		row)
	if err != nil {
		return chat.Session{}, errors.Wrap(err, "inserting chat session")
	}
	return row.session(), nil
}

func (r *chatRepository) GetSession(ctx context.Context, id string) (chat.Session, error) {
	var row sessionRow
	if err := sqlx.GetContext(ctx, r.exec(ctx), &row, `SELECT `+sessionColumns+` FROM chat_sessions WHERE id = $1`, id); err != nil {
		return chat.Session{}, trapNoRows(err, chat.ErrSessionNotFound, "getting chat session")
	}
	return row.session(), nil
}

func (r *chatRepository) LockSession(ctx context.Context, id string) (chat.Session, error) {
	var row sessionRow
	if err := sqlx.GetContext(ctx, r.exec(ctx), &row, `SELECT `+sessionColumns+` FROM chat_sessions WHERE id = $1 FOR UPDATE`, id); err != nil {
		return chat.Session{}, trapNoRows(err, chat.ErrSessionNotFound, "locking chat session")
	}
	return row.session(), nil
}

// UpdateSession saves the activity of a session; the status columns are only changed by EndSession.
func (r *chatRepository) UpdateSession(ctx context.Context, sess chat.Session) (chat.Session, error) {
	var row sessionRow
	err := sqlx.GetContext(ctx, r.exec(ctx), &row, `
		UPDATE chat_sessions SET
			title = $2, last_activity_at = $3, message_count = $4, completion_score = $5,
			risk_flagged = $6, themes = $7
		WHERE id = $1
		RETURNING `+sessionColumns,
		sess.ID, sess.Title, sess.LastActivityAt.UTC(), sess.MessageCount, sess.CompletionScore,
		sess.RiskFlagged, pq.StringArray(stringsOrEmpty(sess.Themes)))
	if err != nil {
		return chat.Session{}, trapNoRows(err, chat.ErrSessionNotFound, "updating chat session")
	}
	return row.session(), nil
}

func (r *chatRepository) EndSession(ctx context.Context, id, reason string, endedAt time.Time) (chat.Session, error) {
	exec := r.exec(ctx)
	var row sessionRow
	err := sqlx.GetContext(ctx, exec, &row, `
		UPDATE chat_sessions SET status = $2, end_reason = $3, ended_at = $4
		WHERE id = $1 AND status = $5
		RETURNING `+sessionColumns,
		id, chat.StatusEnded, reason, endedAt.UTC(), chat.StatusActive)
	if err == nil {
		return row.session(), nil
	}
	if errors.Cause(err) != sql.ErrNoRows {
		return chat.Session{}, errors.Wrap(err, "ending chat session")
	}
	// either unknown or already ended
	if _, err = r.GetSession(ctx, id); err != nil {
		return chat.Session{}, err
	}
	return chat.Session{}, chat.ErrSessionEnded
}

func (r *chatRepository) querySessions(ctx context.Context, where string, args ...interface{}) ([]chat.Session, error) {
	var rows []sessionRow
	err := sqlx.SelectContext(ctx, r.exec(ctx), &rows,
		`SELECT `+sessionColumns+` FROM chat_sessions WHERE `+where+` ORDER BY last_activity_at DESC`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying chat sessions")
	}
	sessions := make([]chat.Session, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, row.session())
	}
	return sessions, nil
}

func (r *chatRepository) QuerySessions(ctx context.Context, studentID string) ([]chat.Session, error) {
	return r.querySessions(ctx, "student_id = $1", studentID)
}

func (r *chatRepository) QueryActiveSessions(ctx context.Context) ([]chat.Session, error) {
	return r.querySessions(ctx, "status = $1", chat.StatusActive)
}

func (r *chatRepository) CreateMessage(ctx context.Context, msg chat.Message) (chat.Message, error) {
	_, err := r.exec(ctx).ExecContext(ctx,
		`INSERT INTO chat_messages (`+messageColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		msg.ID, msg.SessionID, msg.Role, msg.Content, msg.CreatedAt.UTC())
	if err != nil {
		if isConstraintViolation(err, foreignKeyViolation, "") {
			return chat.Message{}, chat.ErrSessionNotFound
		}
		return chat.Message{}, errors.Wrap(err, "inserting chat message")
	}
	return msg, nil
}

func (r *chatRepository) QueryMessages(ctx context.Context, sessionID string, limit int) ([]chat.Message, error) {
	q := `SELECT ` + messageColumns + ` FROM chat_messages WHERE session_id = $1 ORDER BY created_at, id`
	args := []interface{}{sessionID}
	if limit > 0 {
		// the latest messages, still oldest first
		q = `SELECT * FROM (
				SELECT ` + messageColumns + ` FROM chat_messages WHERE session_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2
			) latest ORDER BY created_at, id`
		args = append(args, limit)
	}

	var rows []messageRow
	if err := sqlx.SelectContext(ctx, r.exec(ctx), &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying chat messages")
	}
	msgs := make([]chat.Message, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, row.message())
	}
	return msgs, nil
}

func (r *chatRepository) CreateSummary(ctx context.Context, sum chat.Summary) (chat.Summary, error) {
	_, err := r.exec(ctx).ExecContext(ctx,
		`INSERT INTO chat_summaries (`+summaryColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sum.ID, sum.SessionID, sum.StudentID, sum.Content, pq.StringArray(stringsOrEmpty(sum.Themes)),
		sum.CompletionScore, sum.CreatedAt.UTC())
	if err != nil {
		if isConstraintViolation(err, uniqueViolation, "chat_summaries_session_id_key") {
			return chat.Summary{}, errors.Errorf("session %s already has a summary", sum.SessionID)
		}
		return chat.Summary{}, errors.Wrap(err, "inserting chat summary")
	}
	return sum, nil
}

func (r *chatRepository) getSummary(ctx context.Context, where string, arg string) (chat.Summary, error) {
	var row summaryRow
	err := sqlx.GetContext(ctx, r.exec(ctx), &row,
		`SELECT `+summaryColumns+` FROM chat_summaries WHERE `+where+` ORDER BY created_at DESC LIMIT 1`, arg)
	if err != nil {
		return chat.Summary{}, trapNoRows(err, chat.ErrSummaryNotFound, "getting chat summary")
	}
	return row.summary(), nil
}

func (r *chatRepository) GetSummary(ctx context.Context, sessionID string) (chat.Summary, error) {
	return r.getSummary(ctx, "session_id = $1", sessionID)
}

func (r *chatRepository) LatestSummary(ctx context.Context, studentID string) (chat.Summary, error) {
	return r.getSummary(ctx, "student_id = $1", studentID)
}

func (r *chatRepository) QuerySummaries(ctx context.Context, studentID string) ([]chat.Summary, error) {
	var rows []summaryRow
	err := sqlx.SelectContext(ctx, r.exec(ctx), &rows,
		`SELECT `+summaryColumns+` FROM chat_summaries WHERE student_id = $1 ORDER BY created_at DESC`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying chat summaries")
	}
	sums := make([]chat.Summary, 0, len(rows))
	for _, row := range rows {
		sums = append(sums, row.summary())
	}
	return sums, nil
}
