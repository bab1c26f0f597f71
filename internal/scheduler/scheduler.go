/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/

// Package scheduler drives the periodic work of the service: the
// station sweep on the configured cron expression and, when the
// archive is enabled, a daily CSV export of the previous day's picks.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/adhocore/gronx"
	"github.com/adhocore/gronx/pkg/tasker"

	"github.com/rsaustro/gpdpick/internal/archive"
	"github.com/rsaustro/gpdpick/internal/config"
	"github.com/rsaustro/gpdpick/internal/model"
	"github.com/rsaustro/gpdpick/internal/scanner"
)

// exportCron runs shortly after midnight UTC, once the previous day
// is complete.
const exportCron = "15 0 * * *"

type Scheduler struct {
	config  config.Config
	model   *model.Model
	scanner *scanner.Scanner
	archive *archive.Writer
}

func New(cfg config.Config, m *model.Model, scn *scanner.Scanner, arch *archive.Writer) (*Scheduler, error) {
	if !gronx.New().IsValid(cfg.Scan().Cron) {
		return nil, fmt.Errorf("invalid scan cron expression: %q", cfg.Scan().Cron)
	}

	return &Scheduler{
		config:  cfg,
		model:   m,
		scanner: scn,
		archive: arch,
	}, nil
}

// Run blocks until the context is cancelled. The sweep never runs
// concurrently with itself, a slow sweep delays the next tick instead
// of piling up.
func (s *Scheduler) Run(ctx context.Context) {
	slog.Info("Starting scheduler", "cron", s.config.Scan().Cron)

	taskr := tasker.New(tasker.Option{Tz: "UTC"}).WithContext(ctx)

	concurrent := false
	taskr.Task(s.config.Scan().Cron, func(ctx context.Context) (int, error) {
		if err := s.scanner.ScanAll(ctx); err != nil {
			slog.Error("Station sweep failed", "error", err.Error())
			return 1, err
		}
		return 0, nil
	}, concurrent)

	if s.archive.Enabled() {
		taskr.Task(exportCron, func(ctx context.Context) (int, error) {
			day := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -1)
			if err := s.ExportDay(ctx, day); err != nil {
				slog.Error("Pick export failed", "error", err.Error())
				return 1, err
			}
			return 0, nil
		}, concurrent)
	}

	taskr.Run()
}

// ExportDay writes the pick CSV of one UTC day to the archive.
func (s *Scheduler) ExportDay(ctx context.Context, day time.Time) error {
	day = day.UTC().Truncate(24 * time.Hour)

	var picks []model.Pick
	if _, err := s.model.ListPicksBetween(&picks, day, day.AddDate(0, 0, 1)); err != nil {
		return fmt.Errorf("list picks for export: %w", err)
	}

	refs := make([]*model.Pick, len(picks))
	for i := range picks {
		refs[i] = &picks[i]
	}

	key, err := s.archive.WritePicks(ctx, day, refs)
	if err != nil {
		return fmt.Errorf("write pick export: %w", err)
	}

	slog.Info("Exported daily picks", "day", day.Format("2006-01-02"), "picks", len(picks), "key", key)
	return nil
}
