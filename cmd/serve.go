package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/finmetrics/internal/api"
	"github.com/sells-group/finmetrics/internal/monitoring"
	"github.com/sells-group/finmetrics/internal/source"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the financial metrics HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, envOptions{exportDir: cfg.Export.Dir, summary: true})
		if err != nil {
			return err
		}
		defer env.Close()

		var cache source.Cache
		if env.Store != nil {
			cache = env.Store
		}
		srv := api.NewServer(env.Pipeline, env.Exports,
			api.WithToken(cfg.Tushare.Token),
			api.WithSourceFactory(sourceFactory(cfg, cache)),
			api.WithAllowedOrigins(cfg.Server.AllowedOrigins),
		)

		if cfg.Monitoring.Enabled && env.Store != nil {
			checker := monitoring.NewChecker(
				monitoring.NewCollector(env.Store),
				monitoring.NewAlerter(cfg.Monitoring),
				cfg.Monitoring,
			)
			go checker.Run(ctx)
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           srv.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port), zap.String("export_dir", cfg.Export.Dir))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
