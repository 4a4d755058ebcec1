package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/finmetrics/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the Postgres schema used by run --persist",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if cfg.Store.DatabaseURL == "" {
			return eris.New("store.database_url is required (FINMETRICS_STORE_DATABASE_URL)")
		}

		pool, err := db.Connect(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := db.Migrate(ctx, pool); err != nil {
			return eris.Wrap(err, "migrate")
		}

		zap.L().Info("migrations applied", zap.String("schema", db.Schema))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
