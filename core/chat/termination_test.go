package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShouldTerminate(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	policy := NewPolicy(0, 0, 0)

	session := func(started, lastActivity time.Duration) Session {
		return Session{
			Status:         StatusActive,
			StartedAt:      now.Add(-started),
			LastActivityAt: now.Add(-lastActivity),
		}
	}
	ended := session(time.Hour, time.Hour)
	ended.Status = StatusEnded

	tests := []struct {
		name     string
		session  Session
		complete bool
		want     bool
		reason   string
	}{
		{name: "fresh", session: session(5*time.Minute, 10*time.Second)},
		{name: "already ended", session: ended},
		{name: "max duration", session: session(30*time.Minute, time.Second), want: true, reason: ReasonMaxDuration},
		{name: "max duration before inactivity", session: session(time.Hour, 20*time.Minute), want: true, reason: ReasonMaxDuration},
		{name: "inactive", session: session(15*time.Minute, 10*time.Minute), want: true, reason: ReasonInactivity},
		{name: "almost inactive", session: session(15*time.Minute, 9*time.Minute)},
		{name: "complete within grace", session: session(5*time.Minute, 30*time.Second), complete: true},
		{name: "complete after grace", session: session(5*time.Minute, time.Minute), complete: true, want: true, reason: ReasonCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := ShouldTerminate(tt.session, Analysis{IsComplete: tt.complete}, now, policy)
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestNewPolicy(t *testing.T) {
	p := NewPolicy(0, 0, 0)
	assert.Equal(t, DefaultMaxDuration, p.MaxDuration)
	assert.Equal(t, DefaultInactivityTimeout, p.InactivityTimeout)
	assert.Equal(t, DefaultCompletionGrace, p.CompletionGrace)

	p = NewPolicy(time.Hour, 5*time.Minute, 30*time.Second)
	assert.Equal(t, Policy{MaxDuration: time.Hour, InactivityTimeout: 5 * time.Minute, CompletionGrace: 30 * time.Second}, p)
}

func TestFallbackSummary(t *testing.T) {
	assert.Equal(t,
		"A conversation of 6 messages touching on exams and sleep. The conversation ended after a period of inactivity.",
		FallbackSummary(6, []string{"exams", "sleep"}, ReasonInactivity),
	)
	assert.Equal(t,
		"A conversation of 2 messages touching on anxiety, exams and sleep. The student ended the conversation.",
		FallbackSummary(2, []string{"anxiety", "exams", "sleep"}, ReasonUserEnded),
	)
	assert.Equal(t, "A conversation of 4 messages.", FallbackSummary(4, nil, "unknown"))
}
