package main

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/finmetrics/internal/model"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compute the metrics table for one or more companies",
	Example: `  finmetrics run --symbols 600000.SH,000001.SZ --start-year 2021 --end-year 2023
  finmetrics run --symbols 600000.SH --mode quarter --start-year 2022 --start-quarter 2 --end-year 2023 --end-quarter 1 --format json
  finmetrics run --symbols 600000.SH --start-year 2020 --end-year 2023 --xlsx bank --summary`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		q := queryFromFlags(cmd)
		format, _ := cmd.Flags().GetString("format")
		xlsxName, _ := cmd.Flags().GetString("xlsx")
		withSummary, _ := cmd.Flags().GetBool("summary")
		persist, _ := cmd.Flags().GetBool("persist")

		if cfg.Tushare.Token == "" {
			return eris.New("a Tushare token is required (FINMETRICS_TUSHARE_TOKEN)")
		}

		o := envOptions{summary: withSummary, persist: persist}
		if cmd.Flags().Changed("xlsx") {
			o.exportDir = cfg.Export.Dir
			q.Filename = xlsxName
		}

		env, err := initPipeline(ctx, o)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Pipeline.Run(ctx, q)
		if err != nil {
			return eris.Wrap(err, "run")
		}

		zap.L().Info("run complete",
			zap.Strings("companies", res.Query.Companies),
			zap.Int("rows", res.Table.Len()),
			zap.Int("skeletons", res.Skeletons),
		)

		return writeResult(os.Stdout, res, format)
	},
}

// queryFromFlags builds the query shared by run and periods. Validation is
// left to the pipeline.
func queryFromFlags(cmd *cobra.Command) model.Query {
	symbols, _ := cmd.Flags().GetStringSlice("symbols")
	mode, _ := cmd.Flags().GetString("mode")
	startYear, _ := cmd.Flags().GetInt("start-year")
	endYear, _ := cmd.Flags().GetInt("end-year")
	startQuarter, _ := cmd.Flags().GetInt("start-quarter")
	endQuarter, _ := cmd.Flags().GetInt("end-quarter")

	if endYear == 0 {
		endYear = startYear
	}
	q := model.Query{
		Companies:    symbols,
		Mode:         model.Mode(strings.ToLower(mode)),
		StartYear:    startYear,
		EndYear:      endYear,
		StartQuarter: startQuarter,
		EndQuarter:   endQuarter,
	}
	q.Normalize()
	return q
}

func addQueryFlags(cmd *cobra.Command, withSymbols bool) {
	if withSymbols {
		cmd.Flags().StringSlice("symbols", nil, "company codes, comma separated (e.g. 600000.SH)")
		_ = cmd.MarkFlagRequired("symbols")
	}
	cmd.Flags().String("mode", string(model.ModeYear), "period granularity: year or quarter")
	cmd.Flags().Int("start-year", 0, "first fiscal year (required)")
	cmd.Flags().Int("end-year", 0, "last fiscal year (default start-year)")
	cmd.Flags().Int("start-quarter", 0, "first quarter of start-year in quarter mode")
	cmd.Flags().Int("end-quarter", 0, "last quarter of end-year in quarter mode")
	_ = cmd.MarkFlagRequired("start-year")
}

func init() {
	addQueryFlags(runCmd, true)
	runCmd.Flags().String("format", formatTable, "output format: table, json or yaml")
	runCmd.Flags().String("xlsx", "", "also write the table to <export.dir>/<name>.xlsx")
	runCmd.Flags().Bool("summary", false, "ask the model for a short narrative summary")
	runCmd.Flags().Bool("persist", false, "upsert rows into Postgres (store.database_url)")
	rootCmd.AddCommand(runCmd)
}
