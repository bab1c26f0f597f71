/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/

// Package picker turns per window class probabilities into discrete
// phase onset candidates using a hysteresis trigger.
package picker

import (
	"math"
	"sort"
	"time"
)

// Params control the trigger. A detection opens when the probability
// reaches ThresholdOn and extends while it stays at or above
// ThresholdOff. Triggers narrower than MinWidth values are discarded,
// candidates closer than MinSeparation collapse into the strongest.
type Params struct {
	ThresholdOn   float64
	ThresholdOff  float64
	MinWidth      int
	MinSeparation time.Duration
}

// Series is an evenly spaced probability sequence for one class. Dt
// is the spacing in seconds, Start the time of Values[0].
type Series struct {
	Start  time.Time
	Dt     float64
	Values []float64
}

// TimeAt returns the time of the value at index i.
func (s Series) TimeAt(i int) time.Time {
	ns := math.Round(float64(i) * s.Dt * 1e9)
	return s.Start.Add(time.Duration(ns))
}

// Candidate is one detected onset, placed at the probability peak of
// its trigger interval.
type Candidate struct {
	Time         time.Time
	Probability  float64
	TriggerStart time.Time
	TriggerEnd   time.Time
}

// Detect scans the series and returns onset candidates in time order.
func Detect(s Series, p Params) []Candidate {
	if len(s.Values) == 0 || s.Dt <= 0 {
		return nil
	}

	off := p.ThresholdOff
	if off > p.ThresholdOn {
		off = p.ThresholdOn
	}
	minWidth := p.MinWidth
	if minWidth < 1 {
		minWidth = 1
	}

	var out []Candidate

	i := 0
	for i < len(s.Values) {
		if s.Values[i] < p.ThresholdOn {
			i++
			continue
		}

		// Extend the trigger while the probability holds.
		j := i
		for j < len(s.Values) && s.Values[j] >= off {
			j++
		}

		if j-i >= minWidth {
			peak := i
			for k := i + 1; k < j; k++ {
				if s.Values[k] > s.Values[peak] {
					peak = k
				}
			}

			c := Candidate{
				Time:         s.TimeAt(peak),
				Probability:  s.Values[peak],
				TriggerStart: s.TimeAt(i),
				TriggerEnd:   s.TimeAt(j - 1),
			}

			if n := len(out); n > 0 && c.Time.Sub(out[n-1].Time) < p.MinSeparation {
				if c.Probability > out[n-1].Probability {
					out[n-1] = c
				}
			} else {
				out = append(out, c)
			}
		}

		i = j
	}

	return out
}

// Merge folds candidates from overlapping scans into a deduplicated,
// time ordered sequence using the same separation rule as Detect.
func Merge(cands []Candidate, minSeparation time.Duration) []Candidate {
	if len(cands) == 0 {
		return nil
	}

	sorted := make([]Candidate, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	out := sorted[:1]
	for _, c := range sorted[1:] {
		last := &out[len(out)-1]
		if c.Time.Sub(last.Time) < minSeparation {
			if c.Probability > last.Probability {
				*last = c
			}
			continue
		}
		out = append(out, c)
	}

	return out
}
