/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package controller

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rsaustro/gpdpick/internal/model"
	"github.com/rsaustro/gpdpick/internal/scanner"
	"github.com/rsaustro/gpdpick/internal/waveform"
)

type idleEngine struct{}

func (e *idleEngine) SampleRate() float64 { return 100 }
func (e *idleEngine) WindowSamples() int  { return 400 }
func (e *idleEngine) Channels() int       { return 3 }
func (e *idleEngine) Classes() []string   { return []string{"P", "S", "N"} }

func (e *idleEngine) Infer(windows [][][]float64) ([][]float64, error) {
	out := make([][]float64, len(windows))
	for i := range windows {
		out[i] = []float64{0, 0, 1}
	}
	return out, nil
}

type emptySource struct{}

func (s *emptySource) Fetch(ctx context.Context, station *model.Station, from, to time.Time) (waveform.Stream, error) {
	return waveform.Stream{}, nil
}

func mockController(m *model.Model) Controller {
	cfg := mockConfig(mockSecret)
	scn := scanner.New(cfg, m, &idleEngine{}, &emptySource{}, nil)

	return New(m, cfg, scn, nil)
}

func Test_TriggerScanReturnsError_EmptyInterval(t *testing.T) {
	ctrl := mockController(mockModel())
	assert.NotNil(t, ctrl, "create controller")

	at := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	_, err := ctrl.TriggerScan(context.Background(), "some-rid", at, at)
	assert.ErrorIs(t, err, ErrInvalidScanInterval, "scan with empty interval")
	assert.EqualError(t, err, "invalid scan interval: empty", "error detail")
}

func Test_TriggerScanReturnsError_IntervalTooLong(t *testing.T) {
	ctrl := mockController(mockModel())
	assert.NotNil(t, ctrl, "create controller")

	at := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	_, err := ctrl.TriggerScan(context.Background(), "some-rid", at, at.Add(25*time.Hour))
	assert.ErrorIs(t, err, ErrInvalidScanInterval, "scan with oversized interval")
	assert.EqualError(t, err, "invalid scan interval: longer than 24h0m0s", "error detail")
}

func Test_TriggerScanReturnsError_StationNotFound(t *testing.T) {
	ctrl := mockController(mockModel())
	assert.NotNil(t, ctrl, "create controller")

	at := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	_, err := ctrl.TriggerScan(context.Background(), "non-existent-rid", at, at.Add(time.Minute))
	assert.EqualError(t, err, "station not found", "scan non-existent station")
}

func Test_TriggerScanRecordsRun(t *testing.T) {
	m := mockModel()
	ctrl := mockController(m)
	assert.NotNil(t, ctrl, "create controller")

	rid, err := ctrl.RegisterStation(mockStation())
	assert.NoError(t, err, "register station")

	from := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	run, err := ctrl.TriggerScan(context.Background(), rid, from, from.Add(time.Minute))
	assert.NoError(t, err, "trigger scan")
	assert.Equal(t, model.ScanStatusOk, run.Status, "run status")
	assert.Equal(t, "EC.BOSQ.00", run.Station, "run station")
	assert.Zero(t, run.Picks, "no picks on silent data")

	found, err := ctrl.GetScanRun(run.ResourceId)
	assert.NoError(t, err, "get scan run")
	assert.Equal(t, run.ResourceId, found.ResourceId, "run resource id")

	runs, err := ctrl.ListScanRuns(0)
	assert.NoError(t, err, "list scan runs")
	assert.Len(t, runs, 1, "run list")

	station, err := ctrl.GetStation(rid)
	assert.NoError(t, err, "get station")
	assert.NotNil(t, station.LastScannedAt, "last scanned bookmark set")
}

func Test_GetScanRunReturnsError_NotFound(t *testing.T) {
	ctrl := mockController(mockModel())
	assert.NotNil(t, ctrl, "create controller")

	_, err := ctrl.GetScanRun("non-existent-rid")
	assert.EqualError(t, err, "scan run not found", "get non-existent run")
}
