package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ah-its-andy/tengine/internal/api"
	"github.com/ah-its-andy/tengine/internal/logging"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the transform API over HTTP",
	Long: `serve exposes POST /transform together with the config, readiness, audit
log and metrics endpoints. When watch.dirs is set the hot folder runs in the
same process and /watch controls it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		log := logging.Named("serve")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if versions, err := a.engine.Check(ctx); err != nil {
			log.Warn("engine check failed", "error", err)
		} else {
			log.Info("engine ready", "versions", versions)
		}

		var (
			hotFolder     api.HotFolder
			waitHotFolder func()
		)
		if len(a.cfg.WatchDirs) > 0 {
			w, wait, err := startHotFolder(ctx, a)
			if err != nil {
				return err
			}
			hotFolder, waitHotFolder = w, wait
		}

		server := api.NewServer(api.Options{
			Engine:  a.engine,
			DB:      a.db,
			Metrics: a.metrics,
			Watch:   hotFolder,
			TempDir: a.cfg.TempDir,
			Version: version,
		})
		srv := &http.Server{Addr: a.cfg.HTTPAddr(), Handler: server.Router}
		errCh := make(chan error, 1)
		go func() {
			log.Info("listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case <-ctx.Done():
		case err := <-errCh:
			if err != nil {
				stop()
				if waitHotFolder != nil {
					waitHotFolder()
				}
				return err
			}
		}

		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", "error", err)
		}
		if waitHotFolder != nil {
			waitHotFolder()
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "HTTP port (overrides http.port)")
	rootCmd.AddCommand(serveCmd)
}
