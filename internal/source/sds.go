/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"

	"github.com/rsaustro/gpdpick/internal/config"
	"github.com/rsaustro/gpdpick/internal/model"
	"github.com/rsaustro/gpdpick/internal/mseed"
	"github.com/rsaustro/gpdpick/internal/waveform"
)

const (
	sdsCacheSize = 64
	sdsCacheTTL  = 30 * time.Minute
)

// sds reads day files from an SDS archive. Decoded day files are kept
// in an expiring cache, overlapping scan windows hit the same files.
type sds struct {
	bucket *blob.Bucket
	cache  *expirable.LRU[string, waveform.Stream]
}

func newSDS(ctx context.Context, cfg config.Config) (*sds, error) {
	bucket, err := blob.OpenBucket(ctx, cfg.Source().URL)
	if err != nil {
		return nil, fmt.Errorf("open archive bucket: %w", err)
	}

	if ok, err := bucket.IsAccessible(ctx); err != nil {
		return nil, fmt.Errorf("check archive bucket: %w", err)
	} else if !ok {
		return nil, fmt.Errorf("archive bucket %s is not accessible", cfg.Source().URL)
	}

	return &sds{
		bucket: bucket,
		cache:  expirable.NewLRU[string, waveform.Stream](sdsCacheSize, nil, sdsCacheTTL),
	}, nil
}

func (s *sds) Fetch(ctx context.Context, station *model.Station, from, to time.Time) (waveform.Stream, error) {
	slog.Debug("Fetching waveforms from archive", "station", station.SID(), "from", from, "to", to)

	var all waveform.Stream
	for _, channel := range station.Channels {
		for day := from.UTC().Truncate(24 * time.Hour); !day.After(to); day = day.Add(24 * time.Hour) {
			stream, err := s.dayFile(ctx, sdsKey(station, channel, day))
			if err != nil {
				return nil, err
			}
			all = append(all, stream...)
		}
	}

	return all.Merge(0.5).Slice(from, to), nil
}

func (s *sds) dayFile(ctx context.Context, key string) (waveform.Stream, error) {
	if stream, ok := s.cache.Get(key); ok {
		return stream, nil
	}

	buf, err := s.bucket.ReadAll(ctx, key)
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	stream, err := mseed.DecodeBytes(buf)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}

	s.cache.Add(key, stream)

	return stream, nil
}

// sdsKey names the day file of one channel, following the SDS layout
// YEAR/NET/STA/CHA.D/NET.STA.LOC.CHA.D.YEAR.DOY.
func sdsKey(station *model.Station, channel string, day time.Time) string {
	return fmt.Sprintf("%d/%s/%s/%s.D/%s.%s.%s.%s.D.%d.%03d",
		day.Year(), station.Network, station.Code, channel,
		station.Network, station.Code, station.Location, channel,
		day.Year(), day.YearDay())
}
