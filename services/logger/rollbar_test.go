package logsvc

import (
	"fmt"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/rollbar/rollbar-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/trezcool/utulivu/core"
	"github.com/trezcool/utulivu/core/user"
)

func newObservedLogger(t *testing.T) (*RollbarLogger, *observer.ObservedLogs) {
	t.Helper()
	obsCore, logs := observer.New(zapcore.DebugLevel)
	logger := NewRollbarLogger(zap.New(obsCore).Sugar(), &core.Config{Env: "TEST", Debug: true})
	return logger, logs
}

func TestRollbarLogger_Fields(t *testing.T) {
	logger, logs := newObservedLogger(t)

	usr := user.User{ID: "u-1", Username: "jdoe", Email: "jdoe@test.cd"}
	logger.Named("API").Error("request failed", errors.New("boom"), map[string]interface{}{"path": "/api"}, usr)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "API", entry.LoggerName)
	assert.Equal(t, "request failed", entry.Message)
	assert.Equal(t, map[string]interface{}{
		"error":   "boom",
		"path":    "/api",
		"user_id": "u-1",
	}, entry.ContextMap())
}

func TestRollbarLogger_Levels(t *testing.T) {
	logger, logs := newObservedLogger(t)

	logger.Debug("debug")
	logger.Info("info", core.Person{ID: "p-1"})
	logger.Warn("warn")

	require.Equal(t, 3, logs.Len())
	assert.Equal(t, zapcore.DebugLevel, logs.All()[0].Level)
	assert.Equal(t, zapcore.InfoLevel, logs.All()[1].Level)
	assert.Equal(t, "p-1", logs.All()[1].ContextMap()["user_id"])
	assert.Equal(t, zapcore.WarnLevel, logs.All()[2].Level)
}

func TestRollbarLogger_personPerEntry(t *testing.T) {
	logger, _ := newObservedLogger(t)

	r := logger.prepare("login", []interface{}{core.Person{ID: "p-1", Username: "amani"}, user.User{ID: "u-2"}})
	p, ok := rollbar.PersonFromContext(r.ctx)
	require.True(t, ok)
	assert.Equal(t, &rollbar.Person{Id: "p-1", Username: "amani"}, p, "first person wins")

	r = logger.prepare("tick", nil)
	_, ok = rollbar.PersonFromContext(r.ctx)
	assert.False(t, ok, "entries without a person carry none")
}

func TestRollbarLogger_concurrentUse(t *testing.T) {
	logger, logs := newObservedLogger(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("p-%d", i)
			logger.Info("sweep", core.Person{ID: id})
			logger.Error("sweep failed", errors.New("boom"), core.Person{ID: id})
			logger.Warn("no person")
		}(i)
	}
	wg.Wait()

	require.Equal(t, 48, logs.Len())
	for _, entry := range logs.FilterMessage("sweep failed").All() {
		assert.Equal(t, "boom", entry.ContextMap()["error"])
		assert.NotEmpty(t, entry.ContextMap()["user_id"])
	}
}
