/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package scanner

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rsaustro/gpdpick/internal/archive"
	"github.com/rsaustro/gpdpick/internal/config"
	"github.com/rsaustro/gpdpick/internal/model"
	"github.com/rsaustro/gpdpick/internal/waveform"
)

// mockEngine scores a window by where the strongest sample of a
// channel sits, peaking at 1.0 when it is exactly centered. Channel 0
// drives the P class, channel 1 the S class.
type mockEngine struct{}

func (e *mockEngine) SampleRate() float64 { return 100 }
func (e *mockEngine) WindowSamples() int  { return 400 }
func (e *mockEngine) Channels() int       { return 3 }
func (e *mockEngine) Classes() []string   { return []string{"P", "S", "N"} }

func (e *mockEngine) Infer(windows [][][]float64) ([][]float64, error) {
	out := make([][]float64, len(windows))
	for i, win := range windows {
		out[i] = []float64{score(win[0]), score(win[1]), 0}
	}
	return out, nil
}

func score(samples []float64) float64 {
	peak := 0
	for k, v := range samples {
		if math.Abs(v) > math.Abs(samples[peak]) {
			peak = k
		}
	}
	if math.Abs(samples[peak]) < 0.999 {
		return 0
	}

	dist := math.Abs(float64(peak - len(samples)/2))
	if s := 1 - dist/20; s > 0 {
		return s
	}
	return 0
}

type errEngine struct{ mockEngine }

func (e *errEngine) Infer(windows [][][]float64) ([][]float64, error) {
	return nil, errors.New("weights corrupt")
}

type mockSource struct {
	stream waveform.Stream
	err    error
}

func (s *mockSource) Fetch(ctx context.Context, station *model.Station, from, to time.Time) (waveform.Stream, error) {
	return s.stream, s.err
}

func mockConfig() config.Config {
	return config.NewFromData(&config.Data{
		CreatedAt: "2026-01-01T00:00:00Z",
		Database:  "sqlite://:memory:",
		Hostname:  "localhost",
		Id:        "adc5e494-5f9c-4d30-9b4a-0b1a44ad2b13",
		Secret:    "MTIzNDU2Nzg5MDEyMzQ1Njc4OTAxMjM0NTY3ODkwMTI=",
		Version:   "1",
		Source: config.Source{
			URL: "fdsn+https://waves.example.com",
		},
		Weights: config.Weights{
			Path: "/var/lib/gpdpick/gpd.gpdw",
		},
		Detector: config.Detector{
			HighpassHz: -1,
		},
	}, "/var/lib/gpdpick")
}

func mockModel(t *testing.T) *model.Model {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "open database")
	require.NoError(t, db.AutoMigrate(&model.Station{}, &model.Pick{}, &model.ScanRun{}, &model.Event{}), "migrate")

	return model.New(db)
}

func mockScanStation(t *testing.T, m *model.Model) *model.Station {
	station, err := m.CreateStation(&model.Station{
		Active:     true,
		Network:    "EC",
		Code:       "BOSQ",
		Location:   "00",
		Channels:   []string{"ENE", "ENN", "ENZ"},
		ResourceId: "rid:gpdpick:test:station:" + t.Name(),
	})
	require.NoError(t, err, "create station")

	return station
}

// mockStream returns one minute of three channel data with an
// impulse on ENE at 12 s and one on ENN at 30 s.
func mockStream(start time.Time) waveform.Stream {
	channel := func(code string, impulse int) *waveform.Trace {
		data := make([]float64, 6000)
		if impulse > 0 {
			data[impulse] = 1000
		}
		return &waveform.Trace{
			Network:    "EC",
			Station:    "BOSQ",
			Location:   "00",
			Channel:    code,
			SampleRate: 100,
			Start:      start,
			Data:       data,
		}
	}

	return waveform.Stream{
		channel("ENE", 1200),
		channel("ENN", 3000),
		channel("ENZ", 0),
	}
}

func Test_DetectFindsCenteredOnsets(t *testing.T) {
	start := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	sc := New(mockConfig(), nil, &mockEngine{}, nil, nil)

	detections, windows, err := sc.Detect(context.Background(), mockStream(start),
		start.Add(5*time.Second), start.Add(55*time.Second))
	require.NoError(t, err, "detect")

	assert.Equal(t, 561, windows, "window count")
	require.Len(t, detections, 2, "detection count")

	assert.Equal(t, "P", detections[0].Phase, "first phase")
	assert.WithinDuration(t, start.Add(12*time.Second), detections[0].Time, time.Millisecond, "P onset")
	assert.InDelta(t, 1.0, detections[0].Probability, 1e-9, "P probability")

	assert.Equal(t, "S", detections[1].Phase, "second phase")
	assert.WithinDuration(t, start.Add(30*time.Second), detections[1].Time, time.Millisecond, "S onset")
	assert.InDelta(t, 1.0, detections[1].Probability, 1e-9, "S probability")
}

// mockGappyStream returns one minute of three channel data with ENE
// split around a gap from 20 s to 30 s. Impulses sit on ENE at 12 s
// and on ENN at 45 s.
func mockGappyStream(start time.Time) waveform.Stream {
	channel := func(code string, at time.Time, n, impulse int) *waveform.Trace {
		data := make([]float64, n)
		if impulse >= 0 {
			data[impulse] = 1000
		}
		return &waveform.Trace{
			Network:    "EC",
			Station:    "BOSQ",
			Location:   "00",
			Channel:    code,
			SampleRate: 100,
			Start:      at,
			Data:       data,
		}
	}

	return waveform.Stream{
		channel("ENE", start, 2000, 1200),
		channel("ENE", start.Add(30*time.Second), 3000, -1),
		channel("ENN", start, 6000, 4500),
		channel("ENZ", start, 6000, -1),
	}
}

func Test_DetectSkipsGapWindows(t *testing.T) {
	start := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	sc := New(mockConfig(), nil, &mockEngine{}, nil, nil)

	detections, windows, err := sc.Detect(context.Background(), mockGappyStream(start),
		start.Add(5*time.Second), start.Add(55*time.Second))
	require.NoError(t, err, "detect")

	// The two gap free spans of 20 s and 30 s hold 161 and 261
	// windows, no window straddles the gap.
	assert.Equal(t, 422, windows, "window count")

	require.Len(t, detections, 2, "detection count")
	assert.Equal(t, "P", detections[0].Phase, "first phase")
	assert.WithinDuration(t, start.Add(12*time.Second), detections[0].Time, time.Millisecond, "P onset")
	assert.Equal(t, "S", detections[1].Phase, "second phase")
	assert.WithinDuration(t, start.Add(45*time.Second), detections[1].Time, time.Millisecond, "S onset")

	for _, d := range detections {
		inGap := d.Time.After(start.Add(18*time.Second)) && d.Time.Before(start.Add(32*time.Second))
		assert.False(t, inGap, "onset inside the gap")
	}
}

func Test_DetectIgnoresOnsetsOutsideInterval(t *testing.T) {
	start := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	sc := New(mockConfig(), nil, &mockEngine{}, nil, nil)

	detections, _, err := sc.Detect(context.Background(), mockStream(start),
		start.Add(20*time.Second), start.Add(55*time.Second))
	require.NoError(t, err, "detect")

	require.Len(t, detections, 1, "detection count")
	assert.Equal(t, "S", detections[0].Phase, "phase")
}

func Test_DetectReturnsNoDetections_EmptyStream(t *testing.T) {
	sc := New(mockConfig(), nil, &mockEngine{}, nil, nil)

	detections, windows, err := sc.Detect(context.Background(), nil, time.Now(), time.Now().Add(time.Minute))
	assert.NoError(t, err, "detect")
	assert.Empty(t, detections, "detections")
	assert.Zero(t, windows, "window count")
}

func Test_DetectReturnsError_ChannelMismatch(t *testing.T) {
	start := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	sc := New(mockConfig(), nil, &mockEngine{}, nil, nil)

	stream := mockStream(start)[:1]
	_, _, err := sc.Detect(context.Background(), stream, start, start.Add(time.Minute))
	assert.ErrorContains(t, err, "expected 3 channels, got 1", "detect")
}

func Test_DetectReturnsError_EngineFailure(t *testing.T) {
	start := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	sc := New(mockConfig(), nil, &errEngine{}, nil, nil)

	_, _, err := sc.Detect(context.Background(), mockStream(start), start, start.Add(time.Minute))
	assert.ErrorContains(t, err, "weights corrupt", "detect")
}

func Test_ScanPersistsPicksAndEvents(t *testing.T) {
	start := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	dir := t.TempDir()

	m := mockModel(t)
	station := mockScanStation(t, m)

	arch, err := archive.New(context.Background(), config.NewFromData(&config.Data{
		CreatedAt: "2026-01-01T00:00:00Z",
		Database:  "sqlite://:memory:",
		Hostname:  "localhost",
		Id:        "adc5e494-5f9c-4d30-9b4a-0b1a44ad2b13",
		Secret:    "MTIzNDU2Nzg5MDEyMzQ1Njc4OTAxMjM0NTY3ODkwMTI=",
		Version:   "1",
		Archive:   config.Archive{URL: "file://" + dir},
	}, "/var/lib/gpdpick"))
	require.NoError(t, err, "new archive")

	sc := New(mockConfig(), m, &mockEngine{}, &mockSource{stream: mockStream(start)}, arch)

	from, to := start.Add(5*time.Second), start.Add(55*time.Second)
	run, err := sc.Scan(context.Background(), station, from, to)
	require.NoError(t, err, "scan")

	assert.Equal(t, model.ScanStatusOk, run.Status, "run status")
	assert.Equal(t, 561, run.Windows, "run windows")
	assert.Equal(t, 2, run.Picks, "run picks")

	picks := []model.Pick{}
	_, err = m.ListStationPicks(&picks, station.ID)
	require.NoError(t, err, "list picks")
	require.Len(t, picks, 2, "pick count")
	assert.WithinDuration(t, start.Add(12*time.Second), picks[0].Time, time.Millisecond, "P time")
	assert.WithinDuration(t, start.Add(30*time.Second), picks[1].Time, time.Millisecond, "S time")

	events := []model.Event{}
	_, err = m.ListEvents(&events)
	require.NoError(t, err, "list events")
	require.Len(t, events, 2, "event count")
	for _, event := range events {
		require.NotEmpty(t, event.ArchiveKey, "archive key")
		_, err := os.Stat(filepath.Join(dir, filepath.FromSlash(event.ArchiveKey)))
		assert.NoError(t, err, "snippet file")
	}

	runs := []model.ScanRun{}
	_, err = m.ListScanRuns(&runs, 0)
	require.NoError(t, err, "list runs")
	assert.Len(t, runs, 1, "run count")

	fresh, err := m.GetStation(&model.Station{ID: station.ID})
	require.NoError(t, err, "get station")
	require.NotNil(t, fresh.LastScannedAt, "last scanned at")
	assert.WithinDuration(t, to, *fresh.LastScannedAt, time.Second, "last scanned at")
}

func Test_ScanDeduplicatesAcrossRuns(t *testing.T) {
	start := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	m := mockModel(t)
	station := mockScanStation(t, m)
	sc := New(mockConfig(), m, &mockEngine{}, &mockSource{stream: mockStream(start)}, nil)

	first, err := sc.Scan(context.Background(), station, start.Add(5*time.Second), start.Add(55*time.Second))
	require.NoError(t, err, "first scan")
	assert.Equal(t, 2, first.Picks, "first run picks")

	second, err := sc.Scan(context.Background(), station, start.Add(5*time.Second), start.Add(55*time.Second))
	require.NoError(t, err, "second scan")
	assert.Equal(t, 0, second.Picks, "second run picks")

	picks := []model.Pick{}
	_, err = m.ListStationPicks(&picks, station.ID)
	require.NoError(t, err, "list picks")
	assert.Len(t, picks, 2, "pick count")

	runs := []model.ScanRun{}
	_, err = m.ListScanRuns(&runs, 0)
	require.NoError(t, err, "list runs")
	assert.Len(t, runs, 2, "run count")
}

func Test_ScanRecordsFailedRun_SourceError(t *testing.T) {
	start := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	m := mockModel(t)
	station := mockScanStation(t, m)
	sc := New(mockConfig(), m, &mockEngine{}, &mockSource{err: errors.New("connection refused")}, nil)

	run, err := sc.Scan(context.Background(), station, start, start.Add(time.Minute))
	require.Error(t, err, "scan")

	assert.Equal(t, model.ScanStatusFailed, run.Status, "run status")
	assert.Contains(t, run.Detail, "connection refused", "run detail")

	runs := []model.ScanRun{}
	_, err = m.ListScanRuns(&runs, 0)
	require.NoError(t, err, "list runs")
	assert.Len(t, runs, 1, "run count")
}

func Test_ScanAllSweepsActiveStations(t *testing.T) {
	m := mockModel(t)

	first := mockScanStation(t, m)

	second, err := m.CreateStation(&model.Station{
		Active:     true,
		Network:    "EC",
		Code:       "CHIL",
		Location:   "00",
		Channels:   []string{"ENE", "ENN", "ENZ"},
		ResourceId: "rid:gpdpick:test:station:second",
	})
	require.NoError(t, err, "create second station")

	_, err = m.CreateStation(&model.Station{
		Active:     false,
		Network:    "EC",
		Code:       "PAUT",
		Location:   "00",
		Channels:   []string{"ENE", "ENN", "ENZ"},
		ResourceId: "rid:gpdpick:test:station:inactive",
	})
	require.NoError(t, err, "create inactive station")

	sc := New(mockConfig(), m, &mockEngine{}, &mockSource{}, nil)
	require.NoError(t, sc.ScanAll(context.Background()), "scan all")

	runs := []model.ScanRun{}
	_, err = m.ListScanRuns(&runs, 0)
	require.NoError(t, err, "list runs")
	require.Len(t, runs, 2, "run count")

	for _, run := range runs {
		assert.Equal(t, model.ScanStatusOk, run.Status, "run status")
		assert.Zero(t, run.Picks, "run picks")
	}

	for _, station := range []*model.Station{first, second} {
		fresh, err := m.GetStation(&model.Station{ID: station.ID})
		require.NoError(t, err, "get station")
		assert.NotNil(t, fresh.LastScannedAt, "last scanned at")
	}
}
