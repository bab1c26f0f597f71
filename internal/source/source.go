/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/

// Package source acquires station waveforms. A source is selected by
// the URL scheme of the configured endpoint, either an FDSN dataselect
// web service or an SDS day file archive on a local directory or an
// object store bucket.
package source

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rsaustro/gpdpick/internal/config"
	"github.com/rsaustro/gpdpick/internal/model"
	"github.com/rsaustro/gpdpick/internal/waveform"
)

// Source fetches the waveforms of one station for a time interval.
// Implementations return the merged traces clipped to [from, to) and
// an empty stream when no data exists for the interval.
type Source interface {
	Fetch(ctx context.Context, station *model.Station, from, to time.Time) (waveform.Stream, error)
}

// New selects a source implementation by the scheme of the configured
// endpoint URL.
func New(ctx context.Context, cfg config.Config) (Source, error) {
	uri, err := url.Parse(cfg.Source().URL)
	if err != nil {
		return nil, fmt.Errorf("parse source URL: %w", err)
	}

	switch uri.Scheme {
	case "fdsn+http", "fdsn+https":
		return newDataselect(cfg), nil
	case "file", "s3", "gs":
		return newSDS(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported source scheme: %q", uri.Scheme)
	}
}
