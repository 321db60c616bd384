package chat

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/utulivu/core"
)

// Session statuses
const (
	StatusActive = "active"
	StatusEnded  = "ended"
)

// End reasons
const (
	ReasonUserEnded   = "user_ended"
	ReasonMaxDuration = "max_duration"
	ReasonInactivity  = "inactivity"
	ReasonCompleted   = "completed"
)

// Message roles
const (
	RoleStudent   = "student"
	RoleAssistant = "assistant"
)

// TempSessionPrefix marks session IDs that were never persisted.
const TempSessionPrefix = "temp-"

const (
	titleMaxLen = 60
)

type Session struct {
	ID              string     `json:"id"`
	StudentID       string     `json:"student_id"`
	Title           string     `json:"title"`
	Status          string     `json:"status"`
	EndReason       string     `json:"end_reason,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	LastActivityAt  time.Time  `json:"last_activity_at"`
	EndedAt         *time.Time `json:"ended_at"`
	MessageCount    int        `json:"message_count"`
	CompletionScore float64    `json:"completion_score"`
	RiskFlagged     bool       `json:"-"`
	Themes          []string   `json:"themes"`
}

func (s *Session) IsActive() bool { return s.Status == StatusActive }

type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type Summary struct {
	ID              string    `json:"id"`
	SessionID       string    `json:"session_id"`
	StudentID       string    `json:"student_id"`
	Content         string    `json:"content"`
	Themes          []string  `json:"themes"`
	CompletionScore float64   `json:"completion_score"`
	CreatedAt       time.Time `json:"created_at"`
}

// SessionWithMessages is a session and its transcript.
type SessionWithMessages struct {
	Session
	Messages []Message `json:"messages"`
}

// TempSession is a chat opened by a student that holds no message yet.
// It only lives in the SessionStore, until its first message or its TTL.
type TempSession struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	CreatedAt time.Time `json:"created_at"`
}

func IsTemporaryID(id string) bool {
	return strings.HasPrefix(id, TempSessionPrefix)
}

// Participant is the student taking part in a chat.
type Participant struct {
	StudentID     string
	SchoolID      string
	StudentNumber string
	Name          string
}

type NewMessage struct {
	SessionID string `json:"session_id" validate:"required"`
	Message   string `json:"message" validate:"required,max=2000"`
}

func (nm *NewMessage) Validate(validate *validator.Validate) error {
	nm.SessionID = core.CleanString(nm.SessionID, true /* lower */)
	nm.Message = core.CleanString(nm.Message)
	return validate.Struct(nm)
}

// Started is returned when a student opens a new chat.
type Started struct {
	SessionID   string `json:"session_id"`
	IsTemporary bool   `json:"is_temporary"`
	Greeting    string `json:"greeting"`
}

// ExchangeResult describes the reply to a student message.
type ExchangeResult struct {
	MessageID       string  `json:"message_id"`
	SessionID       string  `json:"session_id"`
	CompletionScore float64 `json:"completion_score"`
	ShouldEnd       bool    `json:"should_end"`
}

// StreamSink receives the progress of an exchange as it happens.
type StreamSink interface {
	// Session is called once the session the message belongs to is known (and persisted).
	Session(sess Session) error
	// Chunk is called for every piece of the companion's reply.
	Chunk(content string) error
}

// ReplyRequest is everything the companion needs to answer a student.
type ReplyRequest struct {
	StudentName     string
	PreviousSummary string
	History         []Message // oldest first, without the new message
	Message         string
}

// SummaryRequest is everything the companion needs to summarise a session.
type SummaryRequest struct {
	PreviousSummary string
	Transcript      []Message
	Themes          []string
	EndReason       string
}

// RiskAlert tells school staff that a student may be at risk. It never carries message content.
type RiskAlert struct {
	StudentID     string
	StudentName   string
	StudentNumber string
	SchoolID      string
	SessionID     string
	DetectedAt    time.Time
}

// sessionTitle is made of the first words of the student's first message.
func sessionTitle(message string) string {
	words := strings.Fields(message)
	if len(words) > 8 {
		words = words[:8]
	}
	return core.Truncate(strings.Join(words, " "), titleMaxLen)
}
