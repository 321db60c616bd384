package logsvc

import (
	"context"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"go.uber.org/zap"

	"github.com/trezcool/utulivu/core"
	"github.com/trezcool/utulivu/core/user"
)

// RollbarLogger writes every entry to zap and reports it to Rollbar when enabled.
type RollbarLogger struct {
	zap *zap.SugaredLogger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(zl *zap.SugaredLogger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.Debug)
	return &RollbarLogger{zap: zl}
}

// Named returns a logger whose zap entries are tagged with name.
func (l *RollbarLogger) Named(name string) *RollbarLogger {
	return &RollbarLogger{zap: l.zap.Named(name)}
}

func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

func (l *RollbarLogger) Sync() error {
	rollbar.Wait()
	return l.zap.Sync()
}

// report is one log entry, ready for Rollbar and zap.
type report struct {
	ctx    context.Context // carries the Rollbar person of this entry only
	msg    string
	err    error
	extras map[string]interface{}
	fields []interface{}
}

// expected fmt: msg | error, map[string]interface{}, user.User, core.Person
func (l *RollbarLogger) prepare(msg string, args []interface{}) report {
	r := report{ctx: context.Background(), msg: msg}
	var person *core.Person
	for _, arg := range args {
		switch a := arg.(type) {
		case user.User:
			if person == nil { // only set one person
				person = &core.Person{ID: a.ID, Username: a.Username, Email: a.Email}
			}
		case core.Person:
			if person == nil {
				person = &a
			}
		case error:
			if r.err == nil {
				r.err = a
			}
			r.fields = append(r.fields, "error", a.Error())
		case map[string]interface{}:
			if r.extras == nil {
				r.extras = make(map[string]interface{}, len(a))
			}
			for k, v := range a {
				r.extras[k] = v
				r.fields = append(r.fields, k, v)
			}
		default:
			r.fields = append(r.fields, "arg", a)
		}
	}

	if person != nil {
		r.ctx = rollbar.NewPersonContext(r.ctx, &rollbar.Person{Id: person.ID, Username: person.Username, Email: person.Email})
		r.fields = append(r.fields, "user_id", person.ID)
	}
	return r
}

// send reports r to Rollbar at level without touching the client's global person.
func (l *RollbarLogger) send(level string, r report) {
	if r.err == nil {
		rollbar.MessageWithExtrasAndContext(r.ctx, level, r.msg, r.extras)
		return
	}
	extras := map[string]interface{}{"message": r.msg}
	for k, v := range r.extras {
		extras[k] = v
	}
	rollbar.ErrorWithStackSkipWithExtrasAndContext(r.ctx, level, r.err, 3, extras)
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	r := l.prepare(msg, args)
	l.send(rollbar.DEBUG, r)
	l.zap.Debugw(msg, r.fields...)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	r := l.prepare(msg, args)
	l.send(rollbar.INFO, r)
	l.zap.Infow(msg, r.fields...)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	r := l.prepare(msg, args)
	l.send(rollbar.WARN, r)
	l.zap.Warnw(msg, r.fields...)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	r := l.prepare(msg, args)
	l.send(rollbar.ERR, r)
	l.zap.Errorw(msg, r.fields...)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	r := l.prepare(msg, args)
	l.send(rollbar.CRIT, r)
	rollbar.Wait()
	l.zap.Fatalw(msg, r.fields...)
}
