package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/trezcool/mentora/core"
	"github.com/trezcool/mentora/core/duel"
	"github.com/trezcool/mentora/core/guard"
	"github.com/trezcool/mentora/core/student"
	"github.com/trezcool/mentora/storage/database"
	boiledrepos "github.com/trezcool/mentora/storage/database/sqlboiler"
	sqlxrepos "github.com/trezcool/mentora/storage/database/sqlx"
)

var logger = logrus.New()

func main() {
	conf, err := core.NewConfig()
	errAndDie(err)

	// start CLI
	cli := commandLine{conf: conf, out: os.Stdout}

	// migrate works on a missing schema: only open the DB for the other commands
	if len(os.Args) < 2 || os.Args[1] != "migrate" {
		db, err := database.Open(conf)
		errAndDie(err)
		defer db.Close()

		statsRepo := boiledrepos.NewStatsRepository(db)
		questions := sqlxrepos.NewQuestionBank(db)
		g := guard.New(guard.Options{Conf: conf.Guard})
		cli.questions = questions
		cli.duelSvc = duel.NewService(duel.Deps{
			Repo:      sqlxrepos.NewDuelRepository(db, statsRepo),
			Stats:     statsRepo,
			Questions: questions,
			Students:  student.NewService(sqlxrepos.NewStudentRepository(db), g),
			Guard:     g,
			Conf:      conf.Duel,
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.runContext(ctx, os.Args); err != nil {
		if err != errHelp {
			logger.WithError(err).Error("command failed")
		}
		stop()
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
