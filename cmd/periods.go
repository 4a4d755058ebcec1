package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/finmetrics/internal/model"
	"github.com/sells-group/finmetrics/internal/period"
)

var periodsCmd = &cobra.Command{
	Use:   "periods",
	Short: "Print the period identifiers tried for a range",
	RunE: func(cmd *cobra.Command, _ []string) error {
		periods := period.Range(queryFromFlags(cmd))
		if len(periods) == 0 {
			return eris.New("empty range: end must not be before start")
		}
		formatPeriods(os.Stdout, periods)
		return nil
	},
}

// formatPeriods writes one line per period with its candidate ids in the
// order they are tried.
func formatPeriods(out io.Writer, periods []model.Period) {
	for _, p := range periods {
		_, _ = fmt.Fprintf(out, "%s\t%s\n", p, strings.Join(period.Candidates(p), " "))
	}
}

func init() {
	addQueryFlags(periodsCmd, false)
	rootCmd.AddCommand(periodsCmd)
}
