/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package controller

import (
	"errors"
	"strconv"

	"github.com/rsaustro/gpdpick/internal/model"
)

var (
	ErrStationNotFound      = errors.New("station not found")
	ErrStationAlreadyExists = errors.New("station already exists")
)

type ControllerStation interface {
	RegisterStation(data *Station) (string, error)
	DeregisterStation(rid string) error
	UpdateStation(rid string, data *Station) error
	GetStation(rid string) (*model.Station, error)
	ListStations() ([]map[string]string, error)
}

func (c *controller) RegisterStation(data *Station) (string, error) {
	station, err := c.marshalNewStation(data)
	if err != nil {
		return "", err
	}

	exists, err := c.model.FindStationBySID(station.Network, station.Code, station.Location)
	if err != nil && !errors.Is(err, model.ErrStationNotFound) {
		return "", err
	}
	if exists != nil {
		return "", ErrStationAlreadyExists
	}

	_, err = c.model.CreateStation(station)
	if err != nil {
		return "", err
	}

	return station.ResourceId, nil
}

func (c *controller) DeregisterStation(rid string) error {
	station, err := c.model.GetStation(&model.Station{ResourceId: rid})
	if err != nil {
		if errors.Is(err, model.ErrStationNotFound) {
			return ErrStationNotFound
		}
		return err
	}

	return c.model.DeleteStation(station)
}

func (c *controller) UpdateStation(rid string, data *Station) error {
	station, err := c.model.GetStation(&model.Station{ResourceId: rid})
	if err != nil {
		if errors.Is(err, model.ErrStationNotFound) {
			return ErrStationNotFound
		}
		return err
	}

	station, err = c.marshalUpdateStation(station, data)
	if err != nil {
		return err
	}

	_, err = c.model.UpdateStation(station)
	return err
}

func (c *controller) GetStation(rid string) (*model.Station, error) {
	station, err := c.model.GetStation(&model.Station{ResourceId: rid})
	if err != nil {
		if errors.Is(err, model.ErrStationNotFound) {
			return nil, ErrStationNotFound
		}
		return nil, err
	}

	return station, nil
}

func (c *controller) ListStations() ([]map[string]string, error) {
	stations := []model.Station{}
	_, err := c.model.ListStations(&stations)
	if err != nil {
		return nil, err
	}

	list := make([]map[string]string, 0, len(stations))
	for _, station := range stations {
		entry := map[string]string{
			"rid":     station.ResourceId,
			"station": station.SID(),
			"active":  strconv.FormatBool(station.Active),
		}
		list = append(list, entry)
	}

	return list, nil
}
