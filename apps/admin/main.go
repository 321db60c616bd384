package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/utulivu/core"
	"github.com/trezcool/utulivu/core/school"
	logsvc "github.com/trezcool/utulivu/services/logger"
	"github.com/trezcool/utulivu/storage/database"
	pgrepos "github.com/trezcool/utulivu/storage/database/postgres"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(logsvc.NewZapLogger(conf), conf).Named("ADMIN")
	logger.Enable(false)

	if err := run(conf, logger); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func run(conf *core.Config, logger core.Logger) error {
	if conf.Database.Engine == "memory" {
		return fmt.Errorf("the admin CLI needs a persistent database, DATABASE_ENGINE is %q", conf.Database.Engine)
	}

	// set up DB
	ctx := context.Background()
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return err
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error(fmt.Sprintf("closing database: %v", err), err)
		}
	}()

	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	// start CLI
	cli := commandLine{
		db:        db.DB,
		usrRepo:   pgrepos.NewUserRepository(db),
		schoolSvc: school.NewService(pgrepos.NewSchoolRepository(db)),
		validate:  validate,
	}
	return cli.run(os.Args)
}
