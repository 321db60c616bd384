package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/utulivu/apps/api/echo"
	"github.com/trezcool/utulivu/core"
	"github.com/trezcool/utulivu/core/chat"
	"github.com/trezcool/utulivu/core/content"
	"github.com/trezcool/utulivu/core/dashboard"
	"github.com/trezcool/utulivu/core/goal"
	"github.com/trezcool/utulivu/core/journal"
	"github.com/trezcool/utulivu/core/mood"
	"github.com/trezcool/utulivu/core/school"
	"github.com/trezcool/utulivu/core/student"
	"github.com/trezcool/utulivu/core/user"
	alertsvc "github.com/trezcool/utulivu/services/alert"
	emailsvc "github.com/trezcool/utulivu/services/email"
	llmsvc "github.com/trezcool/utulivu/services/llm"
	logsvc "github.com/trezcool/utulivu/services/logger"
	inmemcache "github.com/trezcool/utulivu/storage/cache/inmem"
	rediscache "github.com/trezcool/utulivu/storage/cache/redis"
	"github.com/trezcool/utulivu/storage/database"
	inmemdb "github.com/trezcool/utulivu/storage/database/inmem"
	pgrepos "github.com/trezcool/utulivu/storage/database/postgres"
)

// repositories groups the storage of every domain, backed by one engine.
type repositories struct {
	user    user.Repository
	school  school.Repository
	student student.Repository
	mood    mood.Repository
	chat    chat.Repository
	journal journal.Repository
	goal    goal.Repository
	content content.Repository
	tx      core.Transactor
	close   func() error
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	zl := logsvc.NewZapLogger(conf)
	baseLogger := logsvc.NewRollbarLogger(zl, conf)
	logger := baseLogger.Named("API")
	dbLogger := baseLogger.Named("DB")
	chatLogger := baseLogger.Named("CHAT")
	defer func() { _ = baseLogger.Sync() }()

	ctx := context.Background()

	// set up storage
	repos, err := setUpDB(ctx, conf)
	if err != nil {
		dbLogger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = repos.close(); err != nil {
			dbLogger.Error(fmt.Sprintf("closing database: %v", err), err)
		}
	}()

	store, closeStore, err := setUpSessionStore(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up session store: %v", err), err)
	}
	defer closeStore()

	model, err := llmsvc.NewModel(conf, chatLogger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up language model: %v", err), err)
	}

	// set up services
	var mailSvc interface {
		core.EmailService
		Wait()
	}
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	usrSvc := user.NewService(repos.user, mailSvc, conf)
	schoolSvc := school.NewService(repos.school)
	studentSvc := student.NewService(repos.student, repos.user, repos.school, repos.tx)
	moodSvc := mood.NewService(repos.mood, conf)
	goalSvc := goal.NewService(repos.goal)
	contentSvc := content.NewService(repos.content)
	chatSvc := chat.NewService(
		repos.chat,
		store,
		llmsvc.NewCompanion(model, conf, chatLogger),
		alertsvc.NewMailAlerter(repos.user, mailSvc, conf),
		repos.tx,
		conf,
		chatLogger,
	)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := newValidator()

	core.ParseEmailTemplates(conf, logger)

	user.LoadCommonPasswords(logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start Chat Terminator

	termCtx, stopTerminator := context.WithCancel(ctx)
	terminator := chat.NewTerminator(
		chatSvc,
		chat.NewPolicy(conf.Chat.MaxSessionDuration, conf.Chat.InactivityTimeout, conf.Chat.CompletionGrace),
		conf.Chat.CheckInterval,
		chatLogger,
	)
	terminated := make(chan struct{})
	go func() {
		defer close(terminated)
		terminator.Run(termCtx)
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:         conf,
			Logger:       logger,
			Validate:     validate,
			Translator:   translator,
			UserSvc:      usrSvc,
			SchoolSvc:    schoolSvc,
			StudentSvc:   studentSvc,
			MoodSvc:      moodSvc,
			ChatSvc:      chatSvc,
			JournalSvc:   journal.NewService(repos.journal),
			GoalSvc:      goalSvc,
			ContentSvc:   contentSvc,
			DashboardSvc: dashboard.NewService(moodSvc, goalSvc, chatSvc),
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(ctx, conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}

		// let the sessions being ended, the risk alerts and the emails go out
		stopTerminator()
		<-terminated
		chatSvc.Wait()
		mailSvc.Wait()
	}
}

// setUpDB opens the configured storage engine: PostgreSQL, or memory for demos.
func setUpDB(ctx context.Context, conf *core.Config) (*repositories, error) {
	if conf.Database.Engine == "memory" {
		db := inmemdb.Open()
		return &repositories{
			user:    inmemdb.NewUserRepository(db),
			school:  inmemdb.NewSchoolRepository(db),
			student: inmemdb.NewStudentRepository(db),
			mood:    inmemdb.NewMoodRepository(db),
			chat:    inmemdb.NewChatRepository(db),
			journal: inmemdb.NewJournalRepository(db),
			goal:    inmemdb.NewGoalRepository(db),
			content: inmemdb.NewContentRepository(db),
			tx:      core.NoopTransactor,
			close:   func() error { return nil },
		}, nil
	}

	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}

	db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB, "up"); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &repositories{
		user:    pgrepos.NewUserRepository(db),
		school:  pgrepos.NewSchoolRepository(db),
		student: pgrepos.NewStudentRepository(db),
		mood:    pgrepos.NewMoodRepository(db),
		chat:    pgrepos.NewChatRepository(db),
		journal: pgrepos.NewJournalRepository(db),
		goal:    pgrepos.NewGoalRepository(db),
		content: pgrepos.NewContentRepository(db),
		tx:      database.NewTransactor(db),
		close:   db.Close,
	}, nil
}

// setUpSessionStore keeps temporary chat sessions in Redis when enabled, in memory otherwise.
func setUpSessionStore(ctx context.Context, conf *core.Config) (chat.SessionStore, func(), error) {
	if !conf.Redis.Enabled {
		return inmemcache.NewSessionStore(), func() {}, nil
	}
	client, err := rediscache.Open(ctx, conf)
	if err != nil {
		return nil, nil, err
	}
	return rediscache.NewSessionStore(client), func() { _ = client.Close() }, nil
}

func newValidator() (*validator.Validate, ut.Translator) {
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
