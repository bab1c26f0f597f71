/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package controller

import (
	"errors"
	"time"

	"github.com/rsaustro/gpdpick/internal/model"
)

var (
	ErrPickNotFound = errors.New("pick not found")
)

type ControllerPick interface {
	GetPick(rid string) (*model.Pick, error)
	ListPicks(from, to time.Time) ([]model.Pick, error)
	ListStationPicks(rid string) ([]model.Pick, error)
	SubscribePickEvents() <-chan model.PickEvent
	UnsubscribePickEvents(ch <-chan model.PickEvent)
}

func (c *controller) GetPick(rid string) (*model.Pick, error) {
	pick, err := c.model.GetPick(&model.Pick{ResourceId: rid})
	if err != nil {
		if errors.Is(err, model.ErrPickNotFound) {
			return nil, ErrPickNotFound
		}
		return nil, err
	}

	return pick, nil
}

// ListPicks returns picks in time order. Zero times select the full
// table, a zero from is open at the start, a zero to ends now.
func (c *controller) ListPicks(from, to time.Time) ([]model.Pick, error) {
	picks := []model.Pick{}

	if from.IsZero() && to.IsZero() {
		_, err := c.model.ListPicks(&picks)
		return picks, err
	}

	if to.IsZero() {
		to = time.Now().UTC()
	}

	_, err := c.model.ListPicksBetween(&picks, from, to)
	return picks, err
}

func (c *controller) ListStationPicks(rid string) ([]model.Pick, error) {
	station, err := c.GetStation(rid)
	if err != nil {
		return nil, err
	}

	picks := []model.Pick{}
	_, err = c.model.ListStationPicks(&picks, station.ID)
	return picks, err
}

func (c *controller) SubscribePickEvents() <-chan model.PickEvent {
	return c.model.SubscribePickEvents()
}

func (c *controller) UnsubscribePickEvents(ch <-chan model.PickEvent) {
	c.model.UnsubscribePickEvents(ch)
}
