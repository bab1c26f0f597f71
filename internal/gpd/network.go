/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package gpd

import (
	"fmt"
	"math"
	"strings"
)

// convLayer is a 1D convolution with same padding, ReLU activation
// and an optional max pool. Weights are flattened [filter][input][tap].
type convLayer struct {
	filters int
	inputs  int
	kernel  int
	pool    int
	weights []float64
	bias    []float64
}

// denseLayer is a fully connected layer, ReLU unless softmax is set.
// Weights are flattened [unit][input].
type denseLayer struct {
	units   int
	inputs  int
	softmax bool
	weights []float64
	bias    []float64
}

// Network is an immutable feed forward classifier. It is safe for
// concurrent use.
type Network struct {
	name          string
	sampleRate    float64
	windowSamples int
	channels      int
	classes       []string
	convs         []convLayer
	denses        []denseLayer
}

func (n *Network) Name() string        { return n.name }
func (n *Network) SampleRate() float64 { return n.sampleRate }
func (n *Network) WindowSamples() int  { return n.windowSamples }
func (n *Network) Channels() int       { return n.channels }

func (n *Network) Classes() []string {
	return append([]string(nil), n.classes...)
}

func (n *Network) String() string {
	return fmt.Sprintf("%s: %d ch x %d samples @ %g Hz, classes %s",
		n.name, n.channels, n.windowSamples, n.sampleRate, strings.Join(n.classes, "/"))
}

// Infer runs the network over a batch of windows, each shaped
// [channel][sample], and returns one probability vector per window in
// class order.
func (n *Network) Infer(windows [][][]float64) ([][]float64, error) {
	out := make([][]float64, len(windows))
	for i, win := range windows {
		probs, err := n.forward(win)
		if err != nil {
			return nil, fmt.Errorf("window %d: %w", i, err)
		}
		out[i] = probs
	}
	return out, nil
}

func (n *Network) forward(win [][]float64) ([]float64, error) {
	if len(win) != n.channels {
		return nil, fmt.Errorf("got %d channels, want %d", len(win), n.channels)
	}
	for c, ch := range win {
		if len(ch) != n.windowSamples {
			return nil, fmt.Errorf("channel %d has %d samples, want %d", c, len(ch), n.windowSamples)
		}
	}

	act := win
	for i := range n.convs {
		act = n.convs[i].apply(act)
	}

	vec := flatten(act)
	for i := range n.denses {
		var err error
		vec, err = n.denses[i].apply(vec)
		if err != nil {
			return nil, err
		}
	}

	return vec, nil
}

func (l *convLayer) apply(in [][]float64) [][]float64 {
	width := len(in[0])
	padLeft := (l.kernel - 1) / 2

	out := make([][]float64, l.filters)
	for f := 0; f < l.filters; f++ {
		row := make([]float64, width)
		base := f * l.inputs * l.kernel

		for t := 0; t < width; t++ {
			acc := l.bias[f]
			for c := 0; c < l.inputs; c++ {
				wOff := base + c*l.kernel
				x := in[c]
				for k := 0; k < l.kernel; k++ {
					idx := t + k - padLeft
					if idx < 0 || idx >= width {
						continue
					}
					acc += l.weights[wOff+k] * x[idx]
				}
			}
			if acc < 0 {
				acc = 0
			}
			row[t] = acc
		}

		if l.pool > 1 {
			row = maxPool(row, l.pool)
		}
		out[f] = row
	}

	return out
}

func maxPool(x []float64, p int) []float64 {
	out := make([]float64, len(x)/p)
	for i := range out {
		max := x[i*p]
		for j := 1; j < p; j++ {
			if v := x[i*p+j]; v > max {
				max = v
			}
		}
		out[i] = max
	}
	return out
}

// flatten lays activations out filter major, matching the export
// order of the training pipeline.
func flatten(act [][]float64) []float64 {
	if len(act) == 1 {
		return act[0]
	}

	width := len(act[0])
	out := make([]float64, 0, len(act)*width)
	for _, row := range act {
		out = append(out, row...)
	}
	return out
}

func (l *denseLayer) apply(in []float64) ([]float64, error) {
	if len(in) != l.inputs {
		return nil, fmt.Errorf("dense layer got %d inputs, want %d", len(in), l.inputs)
	}

	out := make([]float64, l.units)
	for u := 0; u < l.units; u++ {
		acc := l.bias[u]
		w := l.weights[u*l.inputs : (u+1)*l.inputs]
		for i, v := range in {
			acc += w[i] * v
		}
		out[u] = acc
	}

	if l.softmax {
		softmax(out)
	} else {
		for i, v := range out {
			if v < 0 {
				out[i] = 0
			}
		}
	}

	return out, nil
}

func softmax(x []float64) {
	max := x[0]
	for _, v := range x[1:] {
		if v > max {
			max = v
		}
	}

	var sum float64
	for i, v := range x {
		e := math.Exp(v - max)
		x[i] = e
		sum += e
	}
	for i := range x {
		x[i] /= sum
	}
}
