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

// ScanRun records one detection pass over one station.
type ScanRun struct {
	ID         uint      `gorm:"primarykey" json:"-"`
	CreatedAt  time.Time `json:"-"`
	UpdatedAt  time.Time `json:"-"`
	StationID  uint      `gorm:"not null" json:"-"`
	Station    string    `gorm:"not null" json:"station"`
	From       time.Time `gorm:"not null" json:"from"`
	To         time.Time `gorm:"not null" json:"to"`
	Windows    int       `gorm:"not null" json:"windows"`
	Picks      int       `gorm:"not null" json:"picks"`
	Status     string    `gorm:"not null" json:"status"`
	Detail     string    `json:"detail,omitempty"`
	Seconds    float64   `gorm:"not null" json:"seconds"`
	ResourceId string    `gorm:"not null;unique;uniqueIndex:uidx_scan_runs_resource_id" json:"resource_id"`
}

const (
	ScanStatusOk     = "ok"
	ScanStatusFailed = "failed"
)

var (
	ErrScanRunNotFound = errors.New("scan run not found")
)

func (m *Model) CreateScanRun(run *ScanRun) (*ScanRun, error) {
	if err := m.db.Create(run).Error; err != nil {
		return nil, err
	}

	return run, nil
}

func (m *Model) GetScanRun(run *ScanRun) (*ScanRun, error) {
	if err := m.db.Where(run).First(run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScanRunNotFound
		}
		return nil, err
	}

	return run, nil
}

// ListScanRuns returns the most recent runs first, capped at limit.
func (m *Model) ListScanRuns(runs *[]ScanRun, limit int) (*[]ScanRun, error) {
	if limit <= 0 {
		limit = 100
	}

	if err := m.db.Order("created_at DESC").Limit(limit).Find(runs).Error; err != nil {
		return nil, err
	}

	return runs, nil
}
