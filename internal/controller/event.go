/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package controller

import (
	"context"
	"errors"

	"github.com/rsaustro/gpdpick/internal/model"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrNoSnippet     = errors.New("event has no archived snippet")
)

type ControllerEvent interface {
	GetEvent(rid string) (*model.Event, error)
	GetEventSnippet(ctx context.Context, rid string) ([]byte, error)
	ListEvents() ([]model.Event, error)
}

func (c *controller) GetEvent(rid string) (*model.Event, error) {
	event, err := c.model.GetEvent(&model.Event{ResourceId: rid})
	if err != nil {
		if errors.Is(err, model.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	return event, nil
}

// GetEventSnippet returns the archived waveform recording of an event.
func (c *controller) GetEventSnippet(ctx context.Context, rid string) ([]byte, error) {
	event, err := c.GetEvent(rid)
	if err != nil {
		return nil, err
	}

	if event.ArchiveKey == "" {
		return nil, ErrNoSnippet
	}

	return c.archive.Read(ctx, event.ArchiveKey)
}

func (c *controller) ListEvents() ([]model.Event, error) {
	events := []model.Event{}
	_, err := c.model.ListEvents(&events)
	return events, err
}
