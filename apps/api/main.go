package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	echoapi "github.com/trezcool/mentora/apps/api/echo"
	"github.com/trezcool/mentora/core"
	"github.com/trezcool/mentora/core/duel"
	"github.com/trezcool/mentora/core/guard"
	"github.com/trezcool/mentora/core/student"
	logsvc "github.com/trezcool/mentora/services/logger"
	"github.com/trezcool/mentora/services/metrics"
	"github.com/trezcool/mentora/services/notify"
	rediscache "github.com/trezcool/mentora/storage/cache/redis"
	"github.com/trezcool/mentora/storage/database"
	boiledrepos "github.com/trezcool/mentora/storage/database/sqlboiler"
	sqlxrepos "github.com/trezcool/mentora/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf, err := core.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	// set up logger
	var logger core.Logger
	if conf.Debug {
		logger = logsvc.NewConsoleLogger(os.Stdout, true)
	} else {
		rl := logsvc.NewRollbarLogger(logrus.New(), conf)
		rl.Enable(conf.RollbarToken != "")
		logger = rl
	}

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	mtr := metrics.New()

	// set up shared state & notifications
	var (
		store    guard.Store
		notifier duel.Notifier = notify.NewLogNotifier(logger)
	)
	if conf.Redis.Enabled {
		client, err := rediscache.Open(context.Background(), conf.Redis.URL)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up redis: %v", err), err)
		}
		defer client.Close()
		store = rediscache.NewRateLimitStore(client)
		notifier = notify.NewRedisNotifier(client)
	} else {
		store = guard.NewMemoryStore()
	}

	// set up services
	g := guard.New(guard.Options{Store: store, Conf: conf.Guard, Logger: logger, Observer: mtr})
	statsRepo := boiledrepos.NewStatsRepository(db)
	studentSvc := student.NewService(sqlxrepos.NewStudentRepository(db), g)
	duelSvc := duel.NewService(duel.Deps{
		Repo:      sqlxrepos.NewDuelRepository(db, statsRepo),
		Stats:     statsRepo,
		Questions: sqlxrepos.NewQuestionBank(db),
		Students:  studentSvc,
		Guard:     g,
		Notifier:  notifier,
		Observer:  mtr,
		Logger:    logger,
		Conf:      conf.Duel,
	})

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidator()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(&echoapi.Options{
		Address:    conf.Server.Address,
		Conf:       conf,
		Logger:     logger,
		DuelSvc:    duelSvc,
		StudentSvc: studentSvc,
		Guard:      g,
		Metrics:    mtr,
		Validate:   validate,
		Translator: translator,
	})

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
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB, "up"); err != nil {
		return nil, err
	}
	return db, nil
}
