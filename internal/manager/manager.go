/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package manager

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rsaustro/gpdpick/internal/archive"
	"github.com/rsaustro/gpdpick/internal/config"
	"github.com/rsaustro/gpdpick/internal/controller"
	"github.com/rsaustro/gpdpick/internal/database"
	"github.com/rsaustro/gpdpick/internal/gpd"
	"github.com/rsaustro/gpdpick/internal/handler"
	"github.com/rsaustro/gpdpick/internal/http"
	"github.com/rsaustro/gpdpick/internal/model"
	"github.com/rsaustro/gpdpick/internal/profiler"
	"github.com/rsaustro/gpdpick/internal/scanner"
	"github.com/rsaustro/gpdpick/internal/scheduler"
	"github.com/rsaustro/gpdpick/internal/source"
	"github.com/rsaustro/gpdpick/internal/version"
)

type Manager struct {
	config     config.Config
	database   *database.Database
	model      *model.Model
	controller controller.Controller
	profiler   profiler.Profiler
	scheduler  *scheduler.Scheduler
	handler    handler.Handler
}

func New(cfgFile string) (*Manager, error) {
	slog.Debug("Initializing Manager", "cfgFile", cfgFile)

	cfg, err := config.NewFromFile(cfgFile)
	if err != nil {
		return nil, err
	}

	var prof profiler.Profiler
	if cfg.Profiler() != "" {
		prof = profiler.New(cfg, false)
		if err := prof.Run(); err != nil {
			slog.Warn("Failed to start Pyroscope profiler", "error", err)
		}
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(); err != nil {
		return nil, err
	}

	m := model.New(db.Connection())

	network, err := gpd.Load(cfg.Weights().Path)
	if err != nil {
		return nil, err
	}
	slog.Info("Loaded detection network", "network", network.String())

	ctx := context.Background()
	src, err := source.New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	arch, err := archive.New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	scn := scanner.New(cfg, m, network, src, arch)
	ctrl := controller.New(m, cfg, scn, arch)

	sched, err := scheduler.New(cfg, m, scn, arch)
	if err != nil {
		return nil, err
	}

	return &Manager{
		config:     cfg,
		database:   db,
		model:      m,
		controller: ctrl,
		profiler:   prof,
		scheduler:  sched,
		handler:    handler.New(ctrl, cfg),
	}, nil
}

// Run serves the API and drives the scheduled sweeps until the context
// is cancelled or a termination signal arrives.
func (m *Manager) Run(ctx context.Context, listenAddr string) {
	slog.Debug("Running Manager", "listenAddr", listenAddr)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	slog.Info("Starting gpdpick service", "release", version.Release(), "commit", version.Commit())

	server := http.NewServer(listenAddr, m.handler.Router())
	if err := server.Start(); err != nil {
		slog.Error("Failed to start server", "error", err)
		os.Exit(1)
	}
	slog.Info("Listening on " + server.Addr())

	go m.scheduler.Run(ctx)

	select {
	case <-stop:
	case <-ctx.Done():
	}
	slog.Info("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		slog.Error("Failed to stop server", "error", err)
	}

	if m.profiler != nil {
		m.profiler.Stop()
	}

	slog.Info("Server stopped")
}
