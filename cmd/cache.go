package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the upstream response cache",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired cached responses",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.DeleteExpiredResponses(ctx)
		if err != nil {
			return eris.Wrap(err, "cache prune")
		}

		_, _ = fmt.Fprintf(os.Stdout, "Pruned %d expired response(s) from %s\n", n, cfg.Cache.Path)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}
