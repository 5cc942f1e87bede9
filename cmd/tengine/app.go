package main

import (
	"fmt"

	"github.com/ah-its-andy/tengine/internal/config"
	"github.com/ah-its-andy/tengine/internal/db"
	"github.com/ah-its-andy/tengine/internal/engine"
	"github.com/ah-its-andy/tengine/internal/logging"
	"github.com/ah-its-andy/tengine/internal/metrics"
	"github.com/ah-its-andy/tengine/internal/pdfrenderer"
	"github.com/ah-its-andy/tengine/internal/textextract"
	"github.com/ah-its-andy/tengine/internal/transform"
	"github.com/spf13/cobra"
)

// app holds everything a subcommand needs, built once from the config.
type app struct {
	cfg     *config.Config
	engine  *engine.Engine
	metrics *metrics.Metrics
	db      *db.DB
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	v, err := config.NewViper(cfgFile)
	if err != nil {
		return nil, err
	}
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		v.Set("log.level", f.Value.String())
	}
	if f := cmd.Flags().Lookup("port"); f != nil && f.Changed {
		v.Set("http.port", f.Value.String())
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	logging.Configure(logging.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON})
	log := logging.Named("startup")
	if used := v.ConfigFileUsed(); used != "" {
		log.Info("using config file", "path", used)
	}

	engCfg, err := engine.LoadConfig(cfg.EngineConfig)
	if err != nil {
		return nil, err
	}

	executors := []transform.Executor{textextract.New(nil, nil)}
	if cfg.PDFRendererEnabled {
		renderer, err := pdfrenderer.New(pdfrenderer.Config{Exe: cfg.PDFRendererExe, Timeout: cfg.CommandTimeout})
		if err != nil {
			return nil, err
		}
		executors = append(executors, renderer)
	} else {
		log.Info("pdf renderer disabled")
		engCfg = engCfg.WithoutExecutor(pdfrenderer.ID)
	}

	a := &app{cfg: cfg, metrics: metrics.New()}
	if a.engine, err = engine.New(engCfg, a.metrics, executors...); err != nil {
		return nil, err
	}

	if cfg.AuditEnabled {
		if a.db, err = db.New(cfg.DBPath); err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		if cfg.AuditKeep > 0 {
			if n, err := a.db.PruneTransformLogs(cfg.AuditKeep); err != nil {
				log.Warn("prune audit log", "error", err)
			} else if n > 0 {
				log.Info("pruned audit log", "removed", n)
			}
		}
	}
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logging.L().Warn("close audit log", "error", err)
		}
	}
}
