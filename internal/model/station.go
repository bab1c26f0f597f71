/*
Copyright (c) Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package model

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type Station struct {
	ID            uint       `gorm:"primarykey" json:"-"`
	CreatedAt     time.Time  `json:"-"`
	UpdatedAt     time.Time  `json:"-"`
	Active        bool       `gorm:"not null;default:true" json:"active"`
	Network       string     `gorm:"not null;uniqueIndex:uidx_stations_nsl" json:"network"`
	Code          string     `gorm:"not null;uniqueIndex:uidx_stations_nsl" json:"code"`
	Location      string     `gorm:"uniqueIndex:uidx_stations_nsl" json:"location"`
	Channels      []string   `gorm:"not null;default:'[]';serializer:json" json:"channels"`
	Latitude      float64    `json:"latitude"`
	Longitude     float64    `json:"longitude"`
	Elevation     float64    `json:"elevation"`
	FdsnUser      string     `json:"-"`
	FdsnPass      string     `json:"-"`
	LastScannedAt *time.Time `gorm:"default:NULL" json:"last_scanned_at"`
	RegisteredAt  time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"registered_at"`
	ResourceId    string     `gorm:"not null;unique;uniqueIndex:uidx_stations_resource_id" json:"resource_id"`
	Labels        []string   `gorm:"serializer:json" json:"labels"`
}

var (
	ErrStationNotFound = errors.New("station not found")
)

// SID returns the NET.STA.LOC identifier used in pick and event rows.
func (s *Station) SID() string {
	return fmt.Sprintf("%s.%s.%s", s.Network, s.Code, s.Location)
}

func (m *Model) CreateStation(station *Station) (*Station, error) {
	if err := m.db.Create(station).Error; err != nil {
		return nil, err
	}

	return station, nil
}

func (m *Model) DeleteStation(station *Station) error {
	return m.db.Delete(station).Error
}

func (m *Model) GetStation(station *Station) (*Station, error) {
	if err := m.db.Where(station).First(station).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStationNotFound
		}
		return nil, err
	}

	return station, nil
}

// FindStationBySID looks a station up by its network, code and
// location triplet. The explicit where clause keeps an empty location
// code from being dropped as a zero value.
func (m *Model) FindStationBySID(network, code, location string) (*Station, error) {
	var station Station
	err := m.db.
		Where("network = ? AND code = ? AND location = ?", network, code, location).
		First(&station).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStationNotFound
		}
		return nil, err
	}

	return &station, nil
}

func (m *Model) ListStations(stations *[]Station) (*[]Station, error) {
	if err := m.db.Find(stations).Error; err != nil {
		return nil, err
	}

	return stations, nil
}

func (m *Model) ListActiveStations(stations *[]Station) (*[]Station, error) {
	if err := m.db.Where("active = ?", true).Find(stations).Error; err != nil {
		return nil, err
	}

	return stations, nil
}

func (m *Model) UpdateStation(station *Station) (*Station, error) {
	if err := m.db.Save(station).Error; err != nil {
		return nil, err
	}

	return station, nil
}
