/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rsaustro/gpdpick/internal/model"
)

// maxTriggerWindow caps on-demand scans, longer intervals belong to
// the scheduled sweep.
const maxTriggerWindow = 24 * time.Hour

var (
	ErrScanRunNotFound     = errors.New("scan run not found")
	ErrInvalidScanInterval = errors.New("invalid scan interval")
)

type ControllerScan interface {
	TriggerScan(ctx context.Context, rid string, from, to time.Time) (*model.ScanRun, error)
	GetScanRun(rid string) (*model.ScanRun, error)
	ListScanRuns(limit int) ([]model.ScanRun, error)
}

// TriggerScan runs a detection pass over one station right away and
// returns the recorded run.
func (c *controller) TriggerScan(ctx context.Context, rid string, from, to time.Time) (*model.ScanRun, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("%w: empty", ErrInvalidScanInterval)
	}
	if to.Sub(from) > maxTriggerWindow {
		return nil, fmt.Errorf("%w: longer than %s", ErrInvalidScanInterval, maxTriggerWindow)
	}

	station, err := c.model.GetStation(&model.Station{ResourceId: rid})
	if err != nil {
		if errors.Is(err, model.ErrStationNotFound) {
			return nil, ErrStationNotFound
		}
		return nil, err
	}

	return c.scanner.Scan(ctx, station, from.UTC(), to.UTC())
}

func (c *controller) GetScanRun(rid string) (*model.ScanRun, error) {
	run, err := c.model.GetScanRun(&model.ScanRun{ResourceId: rid})
	if err != nil {
		if errors.Is(err, model.ErrScanRunNotFound) {
			return nil, ErrScanRunNotFound
		}
		return nil, err
	}

	return run, nil
}

func (c *controller) ListScanRuns(limit int) ([]model.ScanRun, error) {
	runs := []model.ScanRun{}
	_, err := c.model.ListScanRuns(&runs, limit)
	return runs, err
}
