/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/

// Package waveform holds time series data and the signal processing
// primitives used to condition raw station data for detection.
package waveform

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Trace is a gap-free segment of equally spaced samples from a single
// station channel. Times are UTC, Start is the time of Data[0].
type Trace struct {
	Network    string
	Station    string
	Location   string
	Channel    string
	SampleRate float64
	Start      time.Time
	Data       []float64
}

// ID returns the canonical NET.STA.LOC.CHA identifier.
func (t *Trace) ID() string {
	return fmt.Sprintf("%s.%s.%s.%s", t.Network, t.Station, t.Location, t.Channel)
}

// TimeAt returns the time of the sample at index i. The offset is
// rounded per call, there is no cumulative drift over long traces.
func (t *Trace) TimeAt(i int) time.Time {
	ns := math.Round(float64(i) * 1e9 / t.SampleRate)
	return t.Start.Add(time.Duration(ns))
}

// End returns the time of the last sample. For an empty trace End
// equals Start.
func (t *Trace) End() time.Time {
	if len(t.Data) == 0 {
		return t.Start
	}
	return t.TimeAt(len(t.Data) - 1)
}

// IndexAt returns the index of the first sample at or after the given
// time. The result may be out of range.
func (t *Trace) IndexAt(at time.Time) int {
	off := at.Sub(t.Start).Seconds()
	return int(math.Ceil(off*t.SampleRate - 1e-6))
}

// Slice returns a copy of the samples in the half-open interval
// [from, to). The result is nil if the interval misses the trace.
func (t *Trace) Slice(from, to time.Time) *Trace {
	i0 := t.IndexAt(from)
	if i0 < 0 {
		i0 = 0
	}
	i1 := t.IndexAt(to)
	if i1 > len(t.Data) {
		i1 = len(t.Data)
	}
	if i1 <= i0 {
		return nil
	}

	data := make([]float64, i1-i0)
	copy(data, t.Data[i0:i1])

	return &Trace{
		Network:    t.Network,
		Station:    t.Station,
		Location:   t.Location,
		Channel:    t.Channel,
		SampleRate: t.SampleRate,
		Start:      t.TimeAt(i0),
		Data:       data,
	}
}

// Copy returns a deep copy of the trace.
func (t *Trace) Copy() *Trace {
	data := make([]float64, len(t.Data))
	copy(data, t.Data)

	c := *t
	c.Data = data
	return &c
}

// Stream is an ordered collection of traces, usually the channels of
// one station over one request interval.
type Stream []*Trace

// Select returns all traces matching the given channel code.
func (s Stream) Select(channel string) Stream {
	var out Stream
	for _, t := range s {
		if t.Channel == channel {
			out = append(out, t)
		}
	}
	return out
}

// Channels returns the distinct channel codes in the stream, sorted.
func (s Stream) Channels() []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range s {
		if !seen[t.Channel] {
			seen[t.Channel] = true
			out = append(out, t.Channel)
		}
	}
	sort.Strings(out)
	return out
}

// Span returns the earliest start and the exclusive end over all
// traces. Both are zero for an empty stream.
func (s Stream) Span() (time.Time, time.Time) {
	var from, to time.Time
	for i, t := range s {
		end := t.TimeAt(len(t.Data))
		if i == 0 || t.Start.Before(from) {
			from = t.Start
		}
		if i == 0 || end.After(to) {
			to = end
		}
	}
	return from, to
}

// Sort orders the stream by trace ID, then start time.
func (s Stream) Sort() {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].ID() != s[j].ID() {
			return s[i].ID() < s[j].ID()
		}
		return s[i].Start.Before(s[j].Start)
	})
}

// Slice applies Trace.Slice to every trace and drops empty results.
func (s Stream) Slice(from, to time.Time) Stream {
	var out Stream
	for _, t := range s {
		if c := t.Slice(from, to); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// Merge coalesces traces of the same channel that line up within the
// given tolerance, expressed as a fraction of the sample interval.
// Overlapping samples keep the earlier trace, gaps larger than the
// tolerance split the result.
func (s Stream) Merge(tolerance float64) Stream {
	if len(s) == 0 {
		return nil
	}

	sorted := make(Stream, len(s))
	copy(sorted, s)
	sorted.Sort()

	var out Stream
	cur := sorted[0].Copy()
	for _, t := range sorted[1:] {
		if t.ID() != cur.ID() || t.SampleRate != cur.SampleRate {
			out = append(out, cur)
			cur = t.Copy()
			continue
		}

		dt := 1.0 / cur.SampleRate
		gap := t.Start.Sub(cur.End()).Seconds() - dt

		switch {
		case math.Abs(gap) <= tolerance*dt:
			cur.Data = append(cur.Data, t.Data...)
		case gap < 0:
			// Overlap, keep what we have and append the remainder.
			if c := t.Slice(cur.End().Add(time.Duration(dt*0.5*1e9)), t.End().Add(time.Second)); c != nil {
				cur.Data = append(cur.Data, c.Data...)
			}
		default:
			out = append(out, cur)
			cur = t.Copy()
		}
	}
	out = append(out, cur)

	return out
}
