/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/

// Package archive persists detection artifacts, waveform snippets
// around strong picks and daily pick exports. Objects go to a bucket
// addressed by URL, local directories use the file scheme. An empty
// archive URL turns the writer into a no-op.
package archive

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/rsaustro/gpdpick/internal/config"
	"github.com/rsaustro/gpdpick/internal/model"
	"github.com/rsaustro/gpdpick/internal/mseed"
	"github.com/rsaustro/gpdpick/internal/waveform"
)

const (
	contentTypeMSEED = "application/vnd.fdsn.mseed"
	contentTypeCSV   = "text/csv"

	snippetTimeLayout = "20060102T150405.000"
	exportTimeLayout  = "2006-01-02T15:04:05.000000Z"
)

// Writer stores snippets and exports in the archive bucket.
type Writer struct {
	bucket *blob.Bucket
}

func New(ctx context.Context, cfg config.Config) (*Writer, error) {
	uri := cfg.Archive().URL
	if uri == "" {
		slog.Info("Archiving is disabled")
		return &Writer{}, nil
	}

	bucket, err := blob.OpenBucket(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("open archive bucket: %w", err)
	}

	if ok, err := bucket.IsAccessible(ctx); err != nil {
		return nil, fmt.Errorf("check archive bucket: %w", err)
	} else if !ok {
		return nil, fmt.Errorf("archive bucket %s is not accessible", uri)
	}

	return &Writer{bucket: bucket}, nil
}

// Enabled reports whether an archive bucket is configured. A nil
// writer counts as disabled.
func (w *Writer) Enabled() bool {
	return w != nil && w.bucket != nil
}

// WriteSnippet stores the waveform context of a pick as miniSEED and
// returns the object key. A disabled writer returns an empty key.
func (w *Writer) WriteSnippet(ctx context.Context, station *model.Station, pick *model.Pick, stream waveform.Stream) (string, error) {
	if !w.Enabled() {
		return "", nil
	}

	buf, err := mseed.EncodeBytes(stream)
	if err != nil {
		return "", fmt.Errorf("encode snippet: %w", err)
	}

	at := pick.Time.UTC()
	key := fmt.Sprintf("events/%d/%s/%s/%s.%s.%s.mseed",
		at.Year(), station.Network, station.Code,
		station.SID(), pick.Phase, at.Format(snippetTimeLayout))

	slog.Debug("Archiving waveform snippet", "key", key, "bytes", len(buf))

	if err := w.write(ctx, key, buf, contentTypeMSEED); err != nil {
		return "", err
	}

	return key, nil
}

// WritePicks stores the picks of one UTC day as a CSV export and
// returns the object key. A disabled writer returns an empty key.
func (w *Writer) WritePicks(ctx context.Context, day time.Time, picks []*model.Pick) (string, error) {
	if !w.Enabled() {
		return "", nil
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write([]string{"station", "phase", "time", "probability"}); err != nil {
		return "", err
	}
	for _, pick := range picks {
		record := []string{
			pick.Station,
			pick.Phase,
			pick.Time.UTC().Format(exportTimeLayout),
			strconv.FormatFloat(pick.Probability, 'f', 4, 64),
		}
		if err := cw.Write(record); err != nil {
			return "", err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", err
	}

	at := day.UTC()
	key := fmt.Sprintf("picks/%d/%s.csv", at.Year(), at.Format("20060102"))

	slog.Debug("Archiving pick export", "key", key, "picks", len(picks))

	if err := w.write(ctx, key, buf.Bytes(), contentTypeCSV); err != nil {
		return "", err
	}

	return key, nil
}

// Read returns an archived object.
func (w *Writer) Read(ctx context.Context, key string) ([]byte, error) {
	if !w.Enabled() {
		return nil, fmt.Errorf("archive is disabled")
	}

	buf, err := w.bucket.ReadAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	return buf, nil
}

func (w *Writer) write(ctx context.Context, key string, buf []byte, contentType string) error {
	err := retry.Do(
		func() error {
			return w.bucket.WriteAll(ctx, key, buf, &blob.WriterOptions{
				ContentType: contentType,
			})
		},
		retry.Attempts(3),
		retry.LastErrorOnly(true),
		retry.Delay(100*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
	)
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}

	return nil
}
