/*
Copyright (c) Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package model

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

type Pick struct {
	ID           uint      `gorm:"primarykey" json:"-"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
	StationID    uint      `gorm:"not null;uniqueIndex:uidx_picks_onset" json:"-"`
	Station      string    `gorm:"not null" json:"station"`
	Phase        string    `gorm:"not null;uniqueIndex:uidx_picks_onset" json:"phase"`
	Time         time.Time `gorm:"not null;uniqueIndex:uidx_picks_onset" json:"time"`
	Probability  float64   `gorm:"not null" json:"probability"`
	TriggerStart time.Time `json:"trigger_start"`
	TriggerEnd   time.Time `json:"trigger_end"`
	ResourceId   string    `gorm:"not null;unique;uniqueIndex:uidx_picks_resource_id" json:"resource_id"`
}

var (
	ErrPickNotFound = errors.New("pick not found")
)

func (m *Model) CreatePick(pick *Pick) (*Pick, error) {
	if err := m.db.Create(pick).Error; err != nil {
		return nil, err
	}

	m.notifyPickEvent("create", pick)
	return pick, nil
}

func (m *Model) DeletePick(pick *Pick) error {
	if err := m.db.Delete(pick).Error; err != nil {
		return err
	}

	m.notifyPickEvent("delete", pick)
	return nil
}

func (m *Model) GetPick(pick *Pick) (*Pick, error) {
	if err := m.db.Where(pick).First(pick).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPickNotFound
		}
		return nil, err
	}

	return pick, nil
}

func (m *Model) ListPicks(picks *[]Pick) (*[]Pick, error) {
	if err := m.db.Order("time").Find(picks).Error; err != nil {
		return nil, err
	}

	return picks, nil
}

// ListPicksBetween returns the picks with onset in [from, to), in
// time order.
func (m *Model) ListPicksBetween(picks *[]Pick, from, to time.Time) (*[]Pick, error) {
	err := m.db.Where("time >= ? AND time < ?", from, to).Order("time").Find(picks).Error
	if err != nil {
		return nil, err
	}

	return picks, nil
}

// ListStationPicks returns the picks of one station, in time order.
func (m *Model) ListStationPicks(picks *[]Pick, stationID uint) (*[]Pick, error) {
	err := m.db.Where("station_id = ?", stationID).Order("time").Find(picks).Error
	if err != nil {
		return nil, err
	}

	return picks, nil
}

// FindNearbyPick looks for a pick of the same station and phase whose
// onset lies within the tolerance around at. Overlapping scans hit
// the same onset with slightly shifted times, this is the lookup that
// keeps them from piling up.
func (m *Model) FindNearbyPick(stationID uint, phase string, at time.Time, tolerance time.Duration) (*Pick, error) {
	var pick Pick
	err := m.db.
		Where("station_id = ? AND phase = ?", stationID, phase).
		Where("time >= ? AND time <= ?", at.Add(-tolerance), at.Add(tolerance)).
		First(&pick).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPickNotFound
		}
		return nil, err
	}

	return &pick, nil
}

func (m *Model) UpdatePick(pick *Pick) (*Pick, error) {
	if err := m.db.Save(pick).Error; err != nil {
		return nil, err
	}

	m.notifyPickEvent("update", pick)
	return pick, nil
}
