package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/ah-its-andy/tengine/internal/logging"
	"github.com/ah-its-andy/tengine/internal/watcher"
	"github.com/ah-its-andy/tengine/internal/worker"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Transform files dropped into the configured watch folders",
	Long: `watch follows watch.dirs recursively and transforms every new or changed
file to watch.target_mimetype, writing results to watch.output_dir.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		if len(a.cfg.WatchDirs) == 0 {
			return fmt.Errorf("watch.dirs is empty")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		_, wait, err := startHotFolder(ctx, a)
		if err != nil {
			return err
		}
		<-ctx.Done()
		logging.L().Info("shutting down")
		wait()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// startHotFolder starts the watcher and worker pool. The returned func blocks
// until both have stopped after ctx is done.
func startHotFolder(ctx context.Context, a *app) (*watcher.Watcher, func(), error) {
	q := worker.NewQueue(a.cfg.MaxWorkers)
	pool := worker.NewPool(worker.Options{
		Workers:          a.cfg.MaxWorkers,
		OutputDir:        a.cfg.WatchOutputDir,
		TargetMimetype:   a.cfg.WatchTargetMimetype,
		TransformOptions: a.cfg.WatchOptions,
		StabilityDelay:   a.cfg.StabilityDelay,
	}, a.engine, a.db, a.metrics, q)

	w, err := watcher.NewRecursiveWatcher(a.cfg.WatchDirs, a.cfg.WatchOutputDir, q, a.metrics)
	if err != nil {
		return nil, nil, fmt.Errorf("create watcher: %w", err)
	}
	pool.Run(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Start(ctx); err != nil {
			logging.Named("watcher").Error("watcher stopped", "error", err)
		}
	}()
	n := w.ScanAll()
	logging.Named("watcher").Info("watching", "dirs", a.cfg.WatchDirs, "output", a.cfg.WatchOutputDir,
		"target", a.cfg.WatchTargetMimetype, "workers", a.cfg.MaxWorkers, "queued", n)

	return w, func() {
		q.StopAccepting()
		<-done
		w.Close()
		pool.Wait()
	}, nil
}
