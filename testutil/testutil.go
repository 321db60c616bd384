package testutil

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/trezcool/utulivu/core"
	"github.com/trezcool/utulivu/core/content"
	"github.com/trezcool/utulivu/core/journal"
	"github.com/trezcool/utulivu/core/mood"
	"github.com/trezcool/utulivu/core/student"
	"github.com/trezcool/utulivu/core/user"
	logsvc "github.com/trezcool/utulivu/services/logger"
)

// NewConfig returns the configuration used by tests: debug, in-memory storage, no request logs.
func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.Debug = true
	conf.TestMode = true
	conf.Database.Engine = "memory"
	conf.Redis.Enabled = false
	conf.LLM.APIKey = ""
	conf.Server.DisableReqLogs = true
	conf.RollbarToken = ""
	conf.Log.Dir = ""
	return conf
}

// NewLogger returns a logger that discards everything.
func NewLogger(conf *core.Config) *logsvc.RollbarLogger {
	return logsvc.NewRollbarLogger(zap.NewNop().Sugar(), conf)
}

// NewValidator returns a validator with every custom validation of the app registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	student.InitValidators(validate, translator)
	mood.InitValidators(validate, translator)
	journal.InitValidators(validate, translator)
	content.InitValidators(validate, translator)
	return validate, translator
}
