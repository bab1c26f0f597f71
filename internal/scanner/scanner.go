/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/

// Package scanner slides the detection network over conditioned
// station waveforms and turns probability peaks into picks. A scan
// covers one station and one half open interval [from, to), picks on
// the interval edges are deduplicated against earlier runs.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rsaustro/gpdpick/internal/archive"
	"github.com/rsaustro/gpdpick/internal/config"
	"github.com/rsaustro/gpdpick/internal/model"
	"github.com/rsaustro/gpdpick/internal/picker"
	"github.com/rsaustro/gpdpick/internal/source"
	"github.com/rsaustro/gpdpick/internal/waveform"
)

// Engine classifies fixed size multi channel windows. Implemented by
// gpd.Network.
type Engine interface {
	SampleRate() float64
	WindowSamples() int
	Channels() int
	Classes() []string
	Infer(windows [][][]float64) ([][]float64, error)
}

// Detection is one phase onset found in a scan interval.
type Detection struct {
	Phase        string
	Time         time.Time
	Probability  float64
	TriggerStart time.Time
	TriggerEnd   time.Time
}

type Scanner struct {
	config  config.Config
	model   *model.Model
	engine  Engine
	source  source.Source
	archive *archive.Writer
}

func New(cfg config.Config, m *model.Model, engine Engine, src source.Source, arch *archive.Writer) *Scanner {
	return &Scanner{
		config:  cfg,
		model:   m,
		engine:  engine,
		source:  src,
		archive: arch,
	}
}

// Scan fetches, detects and persists picks for one station. The run
// record is stored either way, a failed run carries the error detail.
func (s *Scanner) Scan(ctx context.Context, station *model.Station, from, to time.Time) (*model.ScanRun, error) {
	started := time.Now()
	slog.Info("Scanning station", "station", station.SID(), "from", from, "to", to)

	run := &model.ScanRun{
		StationID:  station.ID,
		Station:    station.SID(),
		From:       from,
		To:         to,
		Status:     model.ScanStatusOk,
		ResourceId: s.rid("scan"),
	}

	pad := s.windowLength()
	raw, err := s.source.Fetch(ctx, station, from.Add(-pad), to.Add(pad))
	if err != nil {
		return s.failed(run, started, fmt.Errorf("fetch: %w", err))
	}

	detections, windows, err := s.Detect(ctx, raw, from, to)
	if err != nil {
		return s.failed(run, started, err)
	}
	run.Windows = windows

	for i := range detections {
		created, err := s.persist(ctx, station, raw, &detections[i])
		if err != nil {
			return s.failed(run, started, err)
		}
		if created {
			run.Picks++
		}
	}

	run.Seconds = time.Since(started).Seconds()
	if _, err := s.model.CreateScanRun(run); err != nil {
		return nil, fmt.Errorf("record scan run: %w", err)
	}

	scannedAt := to
	station.LastScannedAt = &scannedAt
	if _, err := s.model.UpdateStation(station); err != nil {
		return nil, fmt.Errorf("update station: %w", err)
	}

	slog.Info("Scan finished", "station", station.SID(), "windows", run.Windows,
		"picks", run.Picks, "seconds", run.Seconds)

	return run, nil
}

// ScanAll sweeps every active station once, each over the interval
// since its last scan. Station failures are recorded and logged, the
// sweep carries on.
func (s *Scanner) ScanAll(ctx context.Context) error {
	stations := []model.Station{}
	if _, err := s.model.ListActiveStations(&stations); err != nil {
		return fmt.Errorf("list stations: %w", err)
	}

	sweep := s.config.Scan()
	to := time.Now().UTC().Add(-time.Duration(sweep.LatencySeconds) * time.Second)

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(sweep.Concurrency)

	for i := range stations {
		station := &stations[i]

		from := to.Add(-time.Duration(sweep.BackfillSeconds) * time.Second)
		if at := station.LastScannedAt; at != nil && at.After(from) {
			from = *at
		}
		if !from.Before(to) {
			continue
		}

		group.Go(func() error {
			if _, err := s.Scan(ctx, station, from, to); err != nil {
				slog.Error("Station scan failed", "station", station.SID(), "error", err)
			}
			return nil
		})
	}

	return group.Wait()
}

// Detect runs the detection pipeline over a raw stream and returns
// the onsets whose time falls into [from, to), plus the number of
// windows evaluated. The stream is left untouched.
func (s *Scanner) Detect(ctx context.Context, raw waveform.Stream, from, to time.Time) ([]Detection, int, error) {
	if len(raw) == 0 {
		return nil, 0, nil
	}

	conditioned := s.condition(raw.Merge(0.5))

	channels := conditioned.Channels()
	if len(channels) != s.engine.Channels() {
		return nil, 0, fmt.Errorf("expected %d channels, got %d (%s)",
			s.engine.Channels(), len(channels), strings.Join(channels, ", "))
	}

	segments := make([]waveform.Stream, len(channels))
	spans := traceSpans(conditioned.Select(channels[0]))
	for i, channel := range channels {
		segments[i] = conditioned.Select(channel)
		if i > 0 {
			spans = intersectSpans(spans, traceSpans(segments[i]))
		}
	}

	candidates := map[string][]picker.Candidate{}
	windows := 0
	for _, sp := range spans {
		found, count, err := s.detectSpan(ctx, segments, sp)
		if err != nil {
			return nil, 0, err
		}
		for phase, cands := range found {
			candidates[phase] = append(candidates[phase], cands...)
		}
		windows += count
	}

	minSeparation := time.Duration(s.config.Detector().MinSeparation * float64(time.Second))

	var out []Detection
	for phase, cands := range candidates {
		for _, c := range picker.Merge(cands, minSeparation) {
			if c.Time.Before(from) || !c.Time.Before(to) {
				continue
			}
			out = append(out, Detection{
				Phase:        phase,
				Time:         c.Time,
				Probability:  c.Probability,
				TriggerStart: c.TriggerStart,
				TriggerEnd:   c.TriggerEnd,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	return out, windows, nil
}

// detectSpan slides the network over one gap free interval common to
// all channels and returns trigger candidates per phase.
func (s *Scanner) detectSpan(ctx context.Context, segments []waveform.Stream, sp span) (map[string][]picker.Candidate, int, error) {
	W := s.engine.WindowSamples()
	stride := s.config.Detector().StrideSamples

	data := make([][]float64, len(segments))
	n := -1
	var ref *waveform.Trace
	for i, segment := range segments {
		sliced := segment.Slice(sp.from, sp.to)
		if len(sliced) != 1 {
			return nil, 0, nil
		}
		if i == 0 {
			ref = sliced[0]
		}
		data[i] = sliced[0].Data
		if n < 0 || len(data[i]) < n {
			n = len(data[i])
		}
	}
	if n < W {
		return nil, 0, nil
	}

	count := (n-W)/stride + 1
	phases := s.phaseIndexes()

	values := map[string][]float64{}
	for _, phase := range phases {
		if phase != "" {
			values[phase] = make([]float64, count)
		}
	}

	batchSize := s.config.Weights().BatchSize
	batch := make([][][]float64, 0, batchSize)
	slots := make([]int, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		probs, err := s.engine.Infer(batch)
		if err != nil {
			return fmt.Errorf("infer: %w", err)
		}
		for j, p := range probs {
			for ci, phase := range phases {
				if phase == "" {
					continue
				}
				values[phase][slots[j]] = p[ci]
			}
		}
		batch = batch[:0]
		slots = slots[:0]
		return nil
	}

	for w := 0; w < count; w++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		i := w * stride
		norm := 0.0
		for _, d := range data {
			if a := waveform.MaxAbs(d[i : i+W]); a > norm {
				norm = a
			}
		}
		if norm == 0 {
			continue
		}

		window := make([][]float64, len(data))
		for c, d := range data {
			samples := make([]float64, W)
			for k, v := range d[i : i+W] {
				samples[k] = v / norm
			}
			window[c] = samples
		}

		batch = append(batch, window)
		slots = append(slots, w)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return nil, 0, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, 0, err
	}

	out := map[string][]picker.Candidate{}
	for _, phase := range phases {
		if phase == "" {
			continue
		}
		series := picker.Series{
			Start:  ref.TimeAt(W / 2),
			Dt:     float64(stride) / s.engine.SampleRate(),
			Values: values[phase],
		}
		out[phase] = picker.Detect(series, s.params(phase))
	}

	return out, count, nil
}

// condition prepares raw traces for the network: remove mean and
// linear trend, taper the edges, highpass and resample to the network
// rate.
func (s *Scanner) condition(stream waveform.Stream) waveform.Stream {
	det := s.config.Detector()
	rate := s.engine.SampleRate()

	out := make(waveform.Stream, 0, len(stream))
	for _, t := range stream {
		c := t.Copy()
		waveform.Demean(c.Data)
		waveform.DetrendLinear(c.Data)
		waveform.Taper(c.Data, 0.05)
		if det.HighpassHz > 0 {
			waveform.HighPass(c.Data, c.SampleRate, det.HighpassHz)
		}
		if c.SampleRate != rate {
			c = waveform.Resample(c, rate)
		}
		out = append(out, c)
	}

	return out
}

// phaseIndexes maps network class positions to phase names. Classes
// other than P and S, typically noise, map to the empty string.
func (s *Scanner) phaseIndexes() []string {
	classes := s.engine.Classes()

	out := make([]string, len(classes))
	for i, class := range classes {
		switch strings.ToUpper(class) {
		case "P", "S":
			out[i] = strings.ToUpper(class)
		}
	}

	return out
}

func (s *Scanner) params(phase string) picker.Params {
	det := s.config.Detector()

	on := det.ThresholdP
	if phase == "S" {
		on = det.ThresholdS
	}

	return picker.Params{
		ThresholdOn:   on,
		ThresholdOff:  det.ThresholdOff,
		MinWidth:      det.MinWidth,
		MinSeparation: time.Duration(det.MinSeparation * float64(time.Second)),
	}
}

// persist stores one detection, deduplicating against earlier runs
// within the configured separation. Reports whether a new pick row
// was created.
func (s *Scanner) persist(ctx context.Context, station *model.Station, raw waveform.Stream, d *Detection) (bool, error) {
	det := s.config.Detector()
	tolerance := time.Duration(det.MinSeparation * float64(time.Second))

	existing, err := s.model.FindNearbyPick(station.ID, d.Phase, d.Time, tolerance)
	switch {
	case err == nil:
		if d.Probability <= existing.Probability {
			return false, nil
		}
		existing.Time = d.Time
		existing.Probability = d.Probability
		existing.TriggerStart = d.TriggerStart
		existing.TriggerEnd = d.TriggerEnd
		if _, err := s.model.UpdatePick(existing); err != nil {
			return false, fmt.Errorf("update pick: %w", err)
		}
		return false, nil

	case errors.Is(err, model.ErrPickNotFound):
		pick := &model.Pick{
			StationID:    station.ID,
			Station:      station.SID(),
			Phase:        d.Phase,
			Time:         d.Time,
			Probability:  d.Probability,
			TriggerStart: d.TriggerStart,
			TriggerEnd:   d.TriggerEnd,
			ResourceId:   s.rid("pick"),
		}
		if _, err := s.model.CreatePick(pick); err != nil {
			return false, fmt.Errorf("create pick: %w", err)
		}

		if d.Probability >= det.SnippetThreshold {
			if err := s.record(ctx, station, raw, pick); err != nil {
				return true, err
			}
		}
		return true, nil

	default:
		return false, fmt.Errorf("find nearby pick: %w", err)
	}
}

// record archives the waveform context of a strong pick and stores
// the event row pointing at it. A failed archive write is logged, the
// event is kept without a key.
func (s *Scanner) record(ctx context.Context, station *model.Station, raw waveform.Stream, pick *model.Pick) error {
	half := time.Duration(s.config.Detector().SnippetSeconds * float64(time.Second) / 2)
	snippet := raw.Slice(pick.Time.Add(-half), pick.Time.Add(half))

	var key string
	if len(snippet) > 0 {
		var err error
		key, err = s.archive.WriteSnippet(ctx, station, pick, snippet)
		if err != nil {
			slog.Error("Archiving snippet failed", "station", station.SID(), "error", err)
			key = ""
		}
	}

	event := &model.Event{
		StationID:   station.ID,
		Station:     station.SID(),
		Phase:       pick.Phase,
		Time:        pick.Time,
		Probability: pick.Probability,
		ArchiveKey:  key,
		ResourceId:  s.rid("event"),
	}
	if _, err := s.model.CreateEvent(event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}

	return nil
}

func (s *Scanner) failed(run *model.ScanRun, started time.Time, err error) (*model.ScanRun, error) {
	run.Status = model.ScanStatusFailed
	run.Detail = err.Error()
	run.Seconds = time.Since(started).Seconds()

	if _, cerr := s.model.CreateScanRun(run); cerr != nil {
		slog.Error("Recording failed scan run", "station", run.Station, "error", cerr)
	}

	return run, err
}

func (s *Scanner) windowLength() time.Duration {
	seconds := float64(s.engine.WindowSamples()) / s.engine.SampleRate()
	return time.Duration(seconds * float64(time.Second))
}

func (s *Scanner) rid(kind string) string {
	return fmt.Sprintf("rid:gpdpick:%s:%s:%s", s.config.Id(), kind, uuid.New().String())
}

// span is a half open interval, to is exclusive.
type span struct {
	from time.Time
	to   time.Time
}

func traceSpans(s waveform.Stream) []span {
	out := make([]span, 0, len(s))
	for _, t := range s {
		out = append(out, span{from: t.Start, to: t.TimeAt(len(t.Data))})
	}
	return out
}

func intersectSpans(a, b []span) []span {
	var out []span

	i, j := 0, 0
	for i < len(a) && j < len(b) {
		from := a[i].from
		if b[j].from.After(from) {
			from = b[j].from
		}
		to := a[i].to
		if b[j].to.Before(to) {
			to = b[j].to
		}
		if from.Before(to) {
			out = append(out, span{from: from, to: to})
		}

		if a[i].to.Before(b[j].to) {
			i++
		} else {
			j++
		}
	}

	return out
}
