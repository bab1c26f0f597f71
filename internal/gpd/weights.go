/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/

// Package gpd evaluates the generalized phase detection network, a
// small 1D convolutional classifier that maps fixed length three
// component windows to P, S and noise probabilities. Weights are
// loaded from a self describing container exported from the training
// pipeline, the network graph is fixed at export time.
package gpd

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// Container layout: magic, format version, a JSON description of the
// layer stack, then all tensors as little endian float32 in layer
// order, weights before biases.
const (
	weightsMagic   = "GPDW"
	weightsVersion = 1
)

var (
	ErrBadMagic      = errors.New("not a GPDW weights file")
	ErrBadVersion    = errors.New("unsupported weights format version")
	ErrTruncated     = errors.New("truncated weights file")
	ErrInvalidLayout = errors.New("invalid network layout")
)

type spec struct {
	Name          string      `json:"name"`
	SampleRate    float64     `json:"sample_rate"`
	WindowSamples int         `json:"window_samples"`
	Channels      int         `json:"channels"`
	Classes       []string    `json:"classes"`
	Layers        []layerSpec `json:"layers"`
}

type layerSpec struct {
	Type       string `json:"type"`
	Filters    int    `json:"filters,omitempty"`
	Kernel     int    `json:"kernel,omitempty"`
	Pool       int    `json:"pool,omitempty"`
	Units      int    `json:"units,omitempty"`
	Activation string `json:"activation,omitempty"`
}

// Load reads a weights container from disk.
func Load(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return Read(f)
}

// Read parses a weights container and assembles the network.
func Read(r io.Reader) (*Network, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if len(buf) < 9 {
		return nil, ErrTruncated
	}
	if string(buf[0:4]) != weightsMagic {
		return nil, ErrBadMagic
	}
	if buf[4] != weightsVersion {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, buf[4])
	}

	headerLen := int(binary.BigEndian.Uint32(buf[5:9]))
	if 9+headerLen > len(buf) {
		return nil, ErrTruncated
	}

	var s spec
	if err := json.Unmarshal(buf[9:9+headerLen], &s); err != nil {
		return nil, fmt.Errorf("weights header: %w", err)
	}
	if err := validateSpec(&s); err != nil {
		return nil, err
	}

	return assemble(&s, buf[9+headerLen:])
}

func validateSpec(s *spec) error {
	if s.WindowSamples <= 0 || s.Channels <= 0 || s.SampleRate <= 0 {
		return fmt.Errorf("%w: window, channels and sample rate must be positive", ErrInvalidLayout)
	}
	if len(s.Classes) < 2 {
		return fmt.Errorf("%w: need at least two classes", ErrInvalidLayout)
	}
	if len(s.Layers) == 0 {
		return fmt.Errorf("%w: no layers", ErrInvalidLayout)
	}

	last := s.Layers[len(s.Layers)-1]
	if last.Type != "dense" || last.Units != len(s.Classes) {
		return fmt.Errorf("%w: final layer must be dense with %d units", ErrInvalidLayout, len(s.Classes))
	}

	return nil
}

// tensorReader walks the flat float32 section of the container.
type tensorReader struct {
	buf []byte
	off int
}

func (tr *tensorReader) next(n int) ([]float64, error) {
	if tr.off+4*n > len(tr.buf) {
		return nil, ErrTruncated
	}

	out := make([]float64, n)
	for i := range out {
		bits := binary.LittleEndian.Uint32(tr.buf[tr.off+4*i:])
		out[i] = float64(math.Float32frombits(bits))
	}
	tr.off += 4 * n

	return out, nil
}

func (tr *tensorReader) done() bool {
	return tr.off == len(tr.buf)
}

func assemble(s *spec, tensors []byte) (*Network, error) {
	net := &Network{
		name:          s.Name,
		sampleRate:    s.SampleRate,
		windowSamples: s.WindowSamples,
		channels:      s.Channels,
		classes:       append([]string(nil), s.Classes...),
	}

	tr := &tensorReader{buf: tensors}

	width := s.WindowSamples
	depth := s.Channels
	flat := false

	for i, l := range s.Layers {
		switch l.Type {
		case "conv":
			if flat {
				return nil, fmt.Errorf("%w: layer %d: conv after dense", ErrInvalidLayout, i)
			}
			if l.Filters <= 0 || l.Kernel <= 0 || l.Kernel%2 == 0 {
				return nil, fmt.Errorf("%w: layer %d: conv needs filters and an odd kernel", ErrInvalidLayout, i)
			}

			w, err := tr.next(l.Filters * depth * l.Kernel)
			if err != nil {
				return nil, fmt.Errorf("layer %d weights: %w", i, err)
			}
			b, err := tr.next(l.Filters)
			if err != nil {
				return nil, fmt.Errorf("layer %d bias: %w", i, err)
			}

			net.convs = append(net.convs, convLayer{
				filters: l.Filters,
				inputs:  depth,
				kernel:  l.Kernel,
				pool:    l.Pool,
				weights: w,
				bias:    b,
			})

			depth = l.Filters
			if l.Pool > 1 {
				if width%l.Pool != 0 {
					return nil, fmt.Errorf("%w: layer %d: pool %d does not divide width %d", ErrInvalidLayout, i, l.Pool, width)
				}
				width /= l.Pool
			}
		case "dense":
			if l.Units <= 0 {
				return nil, fmt.Errorf("%w: layer %d: dense needs units", ErrInvalidLayout, i)
			}

			in := depth
			if !flat {
				in = depth * width
				flat = true
			}

			w, err := tr.next(l.Units * in)
			if err != nil {
				return nil, fmt.Errorf("layer %d weights: %w", i, err)
			}
			b, err := tr.next(l.Units)
			if err != nil {
				return nil, fmt.Errorf("layer %d bias: %w", i, err)
			}

			net.denses = append(net.denses, denseLayer{
				units:   l.Units,
				inputs:  in,
				softmax: l.Activation == "softmax",
				weights: w,
				bias:    b,
			})

			depth = l.Units
		default:
			return nil, fmt.Errorf("%w: layer %d: unknown type %q", ErrInvalidLayout, i, l.Type)
		}
	}

	if !tr.done() {
		return nil, fmt.Errorf("%w: %d trailing bytes after tensors", ErrInvalidLayout, len(tensors)-tr.off)
	}

	return net, nil
}
