package main

import (
	"database/sql"

	"github.com/spf13/cobra"

	"github.com/trezcool/mentora/core"
	"github.com/trezcool/mentora/storage/database"
)

var (
	gooseRunFunc = database.Migrate          // mockable
	createDBFunc = database.CreateIfNotExist // mockable
	openDBFunc   = openDB                    // mockable
)

func openDB(conf *core.Config) (*sql.DB, error) {
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	return db.DB, nil
}

func (cli *commandLine) migrateCmd() *cobra.Command {
	var createDB bool
	cmd := &cobra.Command{
		Use:   "migrate COMMAND [ARGS]",
		Short: "Run database migrations (up, up-by-one, up-to, down, down-to, redo, reset, status, version, fix)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			if createDB {
				if err := createDBFunc(cli.conf); err != nil {
					return err
				}
			}
			db, err := openDBFunc(cli.conf)
			if err != nil {
				return err
			}
			defer db.Close()
			return gooseRunFunc(db, args[0], args[1:]...)
		},
	}
	cmd.Flags().BoolVar(&createDB, "create-db", false, "create the database and its user first if missing")
	return cmd
}
