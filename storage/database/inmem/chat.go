package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/utulivu/core/chat"
)

type chatRepository struct {
	db *DB
}

var _ chat.Repository = (*chatRepository)(nil) // interface compliance check

func NewChatRepository(db *DB) *chatRepository {
	return &chatRepository{db: db}
}

func copySession(sess chat.Session) chat.Session {
	sess.Themes = cloneStrings(sess.Themes)
	if sess.EndedAt != nil {
		endedAt := *sess.EndedAt
		sess.EndedAt = &endedAt
	}
	return sess
}

func copySummary(sum chat.Summary) chat.Summary {
	sum.Themes = cloneStrings(sum.Themes)
	return sum
}

func (repo *chatRepository) CreateSession(_ context.Context, sess chat.Session) (chat.Session, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.sessions[sess.ID] = copySession(sess)
	return copySession(sess), nil
}

func (repo *chatRepository) GetSession(_ context.Context, id string) (chat.Session, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if sess, ok := repo.db.sessions[id]; ok {
		return copySession(sess), nil
	}
	return chat.Session{}, chat.ErrSessionNotFound
}

// LockSession only reads: the memory engine has no transactions.
func (repo *chatRepository) LockSession(ctx context.Context, id string) (chat.Session, error) {
	return repo.GetSession(ctx, id)
}

// UpdateSession never reopens an ended session.
func (repo *chatRepository) UpdateSession(_ context.Context, sess chat.Session) (chat.Session, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.sessions[sess.ID]
	if !ok {
		return chat.Session{}, chat.ErrSessionNotFound
	}
	if !orig.IsActive() {
		sess.Status = orig.Status
		sess.EndReason = orig.EndReason
		sess.EndedAt = orig.EndedAt
	}
	repo.db.sessions[sess.ID] = copySession(sess)
	return copySession(sess), nil
}

func (repo *chatRepository) EndSession(_ context.Context, id, reason string, endedAt time.Time) (chat.Session, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	sess, ok := repo.db.sessions[id]
	if !ok {
		return chat.Session{}, chat.ErrSessionNotFound
	}
	if !sess.IsActive() {
		return chat.Session{}, chat.ErrSessionEnded
	}
	sess.Status = chat.StatusEnded
	sess.EndReason = reason
	sess.EndedAt = &endedAt
	repo.db.sessions[id] = sess
	return copySession(sess), nil
}

func (repo *chatRepository) sortedSessions(keep func(chat.Session) bool) []chat.Session {
	sessions := make([]chat.Session, 0)
	for _, sess := range repo.db.sessions {
		if keep(sess) {
			sessions = append(sessions, copySession(sess))
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].LastActivityAt.After(sessions[j].LastActivityAt) })
	return sessions
}

func (repo *chatRepository) QuerySessions(_ context.Context, studentID string) ([]chat.Session, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.sortedSessions(func(sess chat.Session) bool { return sess.StudentID == studentID }), nil
}

func (repo *chatRepository) QueryActiveSessions(_ context.Context) ([]chat.Session, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.sortedSessions(func(sess chat.Session) bool { return sess.IsActive() }), nil
}

func (repo *chatRepository) CreateMessage(_ context.Context, msg chat.Message) (chat.Message, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.sessions[msg.SessionID]; !ok {
		return chat.Message{}, chat.ErrSessionNotFound
	}
	repo.db.messages[msg.SessionID] = append(repo.db.messages[msg.SessionID], msg)
	return msg, nil
}

func (repo *chatRepository) QueryMessages(_ context.Context, sessionID string, limit int) ([]chat.Message, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	msgs := repo.db.messages[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append(make([]chat.Message, 0, len(msgs)), msgs...), nil
}

func (repo *chatRepository) CreateSummary(_ context.Context, sum chat.Summary) (chat.Summary, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.summaries[sum.SessionID]; ok {
		return chat.Summary{}, errors.Errorf("session %s already has a summary", sum.SessionID)
	}
	repo.db.summaries[sum.SessionID] = copySummary(sum)
	return copySummary(sum), nil
}

func (repo *chatRepository) GetSummary(_ context.Context, sessionID string) (chat.Summary, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if sum, ok := repo.db.summaries[sessionID]; ok {
		return copySummary(sum), nil
	}
	return chat.Summary{}, chat.ErrSummaryNotFound
}

func (repo *chatRepository) summaries(studentID string) []chat.Summary {
	sums := make([]chat.Summary, 0)
	for _, sum := range repo.db.summaries {
		if sum.StudentID == studentID {
			sums = append(sums, copySummary(sum))
		}
	}
	sort.Slice(sums, func(i, j int) bool { return sums[i].CreatedAt.After(sums[j].CreatedAt) })
	return sums
}

func (repo *chatRepository) LatestSummary(_ context.Context, studentID string) (chat.Summary, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if sums := repo.summaries(studentID); len(sums) > 0 {
		return sums[0], nil
	}
	return chat.Summary{}, chat.ErrSummaryNotFound
}

func (repo *chatRepository) QuerySummaries(_ context.Context, studentID string) ([]chat.Summary, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.summaries(studentID), nil
}
