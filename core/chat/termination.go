package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/utulivu/core"
)

const (
	DefaultMaxDuration       = 30 * time.Minute
	DefaultInactivityTimeout = 10 * time.Minute
	DefaultCompletionGrace   = time.Minute
	DefaultCheckInterval     = time.Minute
)

// Policy decides when an active session is ended automatically.
type Policy struct {
	MaxDuration       time.Duration
	InactivityTimeout time.Duration
	CompletionGrace   time.Duration
}

// NewPolicy fills the zero durations of p with their defaults.
func NewPolicy(maxDuration, inactivity, grace time.Duration) Policy {
	p := Policy{MaxDuration: maxDuration, InactivityTimeout: inactivity, CompletionGrace: grace}
	if p.MaxDuration <= 0 {
		p.MaxDuration = DefaultMaxDuration
	}
	if p.InactivityTimeout <= 0 {
		p.InactivityTimeout = DefaultInactivityTimeout
	}
	if p.CompletionGrace <= 0 {
		p.CompletionGrace = DefaultCompletionGrace
	}
	return p
}

// ShouldTerminate tells whether sess must be ended at now, and why.
func ShouldTerminate(sess Session, an Analysis, now time.Time, p Policy) (bool, string) {
	if !sess.IsActive() {
		return false, ""
	}
	if now.Sub(sess.StartedAt) >= p.MaxDuration {
		return true, ReasonMaxDuration
	}
	idle := now.Sub(sess.LastActivityAt)
	if idle >= p.InactivityTimeout {
		return true, ReasonInactivity
	}
	if an.IsComplete && idle >= p.CompletionGrace {
		return true, ReasonCompleted
	}
	return false, ""
}

// Terminator periodically ends the active sessions selected by the Policy.
type Terminator struct {
	svc      *Service
	policy   Policy
	interval time.Duration
	logger   core.Logger

	mu       sync.Mutex
	inflight map[string]bool
	wg       sync.WaitGroup
}

func NewTerminator(svc *Service, policy Policy, interval time.Duration, logger core.Logger) *Terminator {
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	return &Terminator{
		svc:      svc,
		policy:   policy,
		interval: interval,
		logger:   logger,
		inflight: make(map[string]bool),
	}
}

// Run sweeps the active sessions every interval until ctx is done,
// then waits for the terminations in flight.
func (t *Terminator) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	defer t.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := t.Sweep(ctx); err != nil {
				t.logger.Error(fmt.Sprintf("sweeping chat sessions: %v", err), err)
			}
		}
	}
}

// Sweep starts ending every active session the Policy selects and returns their IDs.
// A session already being ended is skipped.
func (t *Terminator) Sweep(ctx context.Context) ([]string, error) {
	sessions, err := t.svc.repo.QueryActiveSessions(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying active sessions")
	}

	now := core.NowFunc()
	ended := make([]string, 0)
	for _, sess := range sessions {
		msgs, err := t.svc.repo.QueryMessages(ctx, sess.ID, 0)
		if err != nil {
			return ended, errors.Wrap(err, "querying session messages")
		}
		ok, reason := ShouldTerminate(sess, t.svc.analyzer.Analyze(msgs), now, t.policy)
		if !ok || !t.acquire(sess.ID) {
			continue
		}
		ended = append(ended, sess.ID)

		t.wg.Add(1)
		go func(sess Session, reason string) {
			defer t.wg.Done()
			defer t.release(sess.ID)

			// finish the summary even if the loop is stopping
			if _, err := t.svc.EndSession(context.WithoutCancel(ctx), sess, reason); err != nil {
				if errors.Cause(err) == ErrSessionEnded {
					return
				}
				t.logger.Error(fmt.Sprintf("ending chat session %s: %v", sess.ID, err), err)
				return
			}
			t.logger.Info(fmt.Sprintf("chat session %s ended: %s", sess.ID, reason))
		}(sess, reason)
	}
	return ended, nil
}

// Wait blocks until every termination started by Sweep is done.
func (t *Terminator) Wait() {
	t.wg.Wait()
}

func (t *Terminator) acquire(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inflight[id] {
		return false
	}
	t.inflight[id] = true
	return true
}

func (t *Terminator) release(id string) {
	t.mu.Lock()
	delete(t.inflight, id)
	t.mu.Unlock()
}
