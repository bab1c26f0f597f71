/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package controller

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rsaustro/gpdpick/internal/archive"
	"github.com/rsaustro/gpdpick/internal/config"
	"github.com/rsaustro/gpdpick/internal/model"
)

func mockEvent(t *testing.T, m *model.Model, at time.Time, key string) *model.Event {
	event, err := m.CreateEvent(&model.Event{
		StationID:   1,
		Station:     "EC.BOSQ.00",
		Phase:       "P",
		Time:        at,
		Probability: 0.997,
		ArchiveKey:  key,
		ResourceId:  "rid:gpdpick:test-id:event:" + t.Name() + at.String(),
	})
	assert.NoError(t, err, "create event")

	return event
}

func Test_GetEventReturnsError_NotFound(t *testing.T) {
	ctrl := New(mockModel(), mockConfig(mockSecret), nil, nil)
	assert.NotNil(t, ctrl, "create controller")

	_, err := ctrl.GetEvent("non-existent-rid")
	assert.EqualError(t, err, "event not found", "get non-existent event")
}

func Test_ListEventsReturnsNewestFirst(t *testing.T) {
	m := mockModel()
	ctrl := New(m, mockConfig(mockSecret), nil, nil)
	assert.NotNil(t, ctrl, "create controller")

	at := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	mockEvent(t, m, at, "")
	mockEvent(t, m, at.Add(time.Hour), "")

	events, err := ctrl.ListEvents()
	assert.NoError(t, err, "list events")
	assert.Len(t, events, 2, "event list")
	assert.Equal(t, at.Add(time.Hour), events[0].Time.UTC(), "newest event first")
}

func Test_GetEventSnippetReturnsError_NoKey(t *testing.T) {
	m := mockModel()
	ctrl := New(m, mockConfig(mockSecret), nil, nil)
	assert.NotNil(t, ctrl, "create controller")

	at := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	event := mockEvent(t, m, at, "")

	_, err := ctrl.GetEventSnippet(context.Background(), event.ResourceId)
	assert.EqualError(t, err, "event has no archived snippet", "snippet without archive key")
}

func Test_GetEventSnippetReturnsError_ArchiveDisabled(t *testing.T) {
	m := mockModel()
	ctrl := New(m, mockConfig(mockSecret), nil, nil)
	assert.NotNil(t, ctrl, "create controller")

	at := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	event := mockEvent(t, m, at, "events/2026/EC/BOSQ/gone.mseed")

	_, err := ctrl.GetEventSnippet(context.Background(), event.ResourceId)
	assert.EqualError(t, err, "archive is disabled", "snippet without archive bucket")
}

func Test_GetEventSnippetReturnsArchivedBytes(t *testing.T) {
	dir := t.TempDir()

	cfg := config.NewFromData(&config.Data{
		CreatedAt: "2026-01-01T00:00:00Z",
		Database:  "sqlite://:memory:",
		Hostname:  "localhost",
		Id:        "test-id",
		Secret:    mockSecret,
		Version:   "1",
		Source:    config.Source{URL: "fdsn+https://waves.example.com"},
		Archive:   config.Archive{URL: "file://" + dir},
		Weights:   config.Weights{Path: "/var/lib/gpdpick/gpd.gpdw"},
	}, "/var/lib/gpdpick")

	arch, err := archive.New(context.Background(), cfg)
	assert.NoError(t, err, "open archive")

	key := "events/2026/EC/BOSQ/EC.BOSQ.00.P.20260115T120000.000.mseed"
	assert.NoError(t, os.MkdirAll(filepath.Join(dir, "events", "2026", "EC", "BOSQ"), 0755), "make archive dirs")
	assert.NoError(t, os.WriteFile(filepath.Join(dir, filepath.FromSlash(key)), []byte("snippet-bytes"), 0644), "write snippet")

	m := mockModel()
	ctrl := New(m, cfg, nil, arch)
	assert.NotNil(t, ctrl, "create controller")

	at := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	event := mockEvent(t, m, at, key)

	buf, err := ctrl.GetEventSnippet(context.Background(), event.ResourceId)
	assert.NoError(t, err, "get snippet")
	assert.Equal(t, []byte("snippet-bytes"), buf, "snippet bytes")
}
