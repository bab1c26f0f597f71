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

// Event is a strong detection whose waveform snippet was archived for
// review.
type Event struct {
	ID          uint      `gorm:"primarykey" json:"-"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
	StationID   uint      `gorm:"not null" json:"-"`
	Station     string    `gorm:"not null" json:"station"`
	Phase       string    `gorm:"not null" json:"phase"`
	Time        time.Time `gorm:"not null" json:"time"`
	Probability float64   `gorm:"not null" json:"probability"`
	ArchiveKey  string    `gorm:"not null" json:"archive_key"`
	ResourceId  string    `gorm:"not null;unique;uniqueIndex:uidx_events_resource_id" json:"resource_id"`
}

var (
	ErrEventNotFound = errors.New("event not found")
)

func (m *Model) CreateEvent(event *Event) (*Event, error) {
	if err := m.db.Create(event).Error; err != nil {
		return nil, err
	}

	return event, nil
}

func (m *Model) DeleteEvent(event *Event) error {
	return m.db.Delete(event).Error
}

func (m *Model) GetEvent(event *Event) (*Event, error) {
	if err := m.db.Where(event).First(event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	return event, nil
}

func (m *Model) ListEvents(events *[]Event) (*[]Event, error) {
	if err := m.db.Order("time DESC").Find(events).Error; err != nil {
		return nil, err
	}

	return events, nil
}
