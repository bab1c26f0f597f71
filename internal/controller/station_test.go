/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package controller

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rsaustro/gpdpick/internal/aes"
	"github.com/rsaustro/gpdpick/internal/config"
	"github.com/rsaustro/gpdpick/internal/model"
)

func mockModel() *model.Model {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(err)
	}
	err = db.AutoMigrate(&model.Station{}, &model.Pick{}, &model.ScanRun{}, &model.Event{})
	if err != nil {
		panic(err)
	}

	return model.New(db)
}

func mockConfig(secret string) config.Config {
	return config.NewFromData(&config.Data{
		CreatedAt: "2026-01-01T00:00:00Z",
		Database:  "sqlite://:memory:",
		Hostname:  "localhost",
		Id:        "test-id",
		Secret:    secret,
		Version:   "1",
		Source: config.Source{
			URL: "fdsn+https://waves.example.com",
		},
		Weights: config.Weights{
			Path: "/var/lib/gpdpick/gpd.gpdw",
		},
	}, "/var/lib/gpdpick")
}

const mockSecret = "MTIzNDU2Nzg5MDEyMzQ1Njc4OTAxMjM0NTY3ODkwMTI="

func mockStation() *Station {
	return &Station{
		Network:   "EC",
		Code:      "BOSQ",
		Location:  "00",
		Channels:  []string{"ENE", "ENN", "ENZ"},
		Latitude:  -2.8974,
		Longitude: -79.0045,
		Elevation: 2550,
		Labels:    []string{"region=azuay"},
	}
}

func Test_RegisterStationReturnsError_BadParameters(t *testing.T) {
	ctrl := New(mockModel(), mockConfig(mockSecret), nil, nil)
	assert.NotNil(t, ctrl, "create controller")

	data := Station{}

	_, err := ctrl.RegisterStation(&data)
	expected := "network must not be empty"
	assert.EqualError(t, err, expected, "register station with empty network")

	data.Network = "EC"
	_, err = ctrl.RegisterStation(&data)
	expected = "station code must not be empty"
	assert.EqualError(t, err, expected, "register station with empty code")

	data.Code = "BOSQ"
	_, err = ctrl.RegisterStation(&data)
	expected = "at least one channel must be specified"
	assert.EqualError(t, err, expected, "register station with no channels")

	data.Channels = []string{"Z", "north!"}
	_, err = ctrl.RegisterStation(&data)
	expected = "no valid channel specified"
	assert.EqualError(t, err, expected, "register station with invalid channels")

	data.Channels = []string{"ENZ"}
	data.FdsnUser = "sismo"
	_, err = ctrl.RegisterStation(&data)
	expected = "fdsn username and password must be set together"
	assert.EqualError(t, err, expected, "register station with half a credential pair")
}

func Test_RegisterStationReturnsError_InvalidSecret(t *testing.T) {
	ctrl := New(mockModel(), mockConfig("invalid-secret"), nil, nil)
	assert.NotNil(t, ctrl, "create controller")

	data := mockStation()
	data.FdsnUser = "sismo"
	data.FdsnPass = "hunter2"

	_, err := ctrl.RegisterStation(data)
	assert.Error(t, err, "register station with invalid config secret")
}

func Test_RegisterStationReturnsResourceId(t *testing.T) {
	ctrl := New(mockModel(), mockConfig(mockSecret), nil, nil)
	assert.NotNil(t, ctrl, "create controller")

	rid, err := ctrl.RegisterStation(mockStation())
	assert.NoError(t, err, "register station with valid parameters")

	assert.NotEmpty(t, rid, "resource ID not empty")
	parts := strings.Split(rid, ":")
	assert.Len(t, parts, 5, "resource ID format")
	assert.Equal(t, "rid", parts[0], "resource ID prefix")
	assert.Equal(t, "gpdpick", parts[1], "resource ID service")
	assert.Equal(t, "test-id", parts[2], "resource ID identifier")
	assert.Equal(t, "station", parts[3], "resource ID type")
	assert.Len(t, parts[4], 36, "resource ID UUID length")
}

func Test_RegisterStationReturnsError_AlreadyExists(t *testing.T) {
	ctrl := New(mockModel(), mockConfig(mockSecret), nil, nil)
	assert.NotNil(t, ctrl, "create controller")

	_, err := ctrl.RegisterStation(mockStation())
	assert.NoError(t, err, "register station")

	_, err = ctrl.RegisterStation(mockStation())
	assert.EqualError(t, err, "station already exists", "register station twice")
}

func Test_RegisterStationNormalizesChannels(t *testing.T) {
	m := mockModel()
	ctrl := New(m, mockConfig(mockSecret), nil, nil)
	assert.NotNil(t, ctrl, "create controller")

	data := mockStation()
	data.Location = "--"
	data.Channels = []string{"enz", " ENN", "ENZ", "north!"}

	rid, err := ctrl.RegisterStation(data)
	assert.NoError(t, err, "register station")

	station, err := ctrl.GetStation(rid)
	assert.NoError(t, err, "get station")
	assert.Equal(t, []string{"ENZ", "ENN"}, station.Channels, "channels")
	assert.Equal(t, "", station.Location, "location")
	assert.True(t, station.Active, "active by default")
}

func Test_RegisterStationEncryptsCredentials(t *testing.T) {
	m := mockModel()
	cfg := mockConfig(mockSecret)
	ctrl := New(m, cfg, nil, nil)
	assert.NotNil(t, ctrl, "create controller")

	data := mockStation()
	data.FdsnUser = "sismo"
	data.FdsnPass = "hunter2"

	rid, err := ctrl.RegisterStation(data)
	assert.NoError(t, err, "register station")

	station, err := m.GetStation(&model.Station{ResourceId: rid})
	assert.NoError(t, err, "get station")
	assert.Equal(t, "sismo", station.FdsnUser, "fdsn user")
	assert.NotEqual(t, "hunter2", station.FdsnPass, "password not stored in the clear")

	plain, err := aes.Decrypt(cfg.Secret(), station.FdsnPass)
	assert.NoError(t, err, "decrypt password")
	assert.Equal(t, "hunter2", plain, "password round trip")
}

func Test_DeregisterStationReturnsError_NotFound(t *testing.T) {
	ctrl := New(mockModel(), mockConfig(mockSecret), nil, nil)
	assert.NotNil(t, ctrl, "create controller")

	err := ctrl.DeregisterStation("non-existent-rid")
	assert.EqualError(t, err, "station not found", "deregister non-existent station")
}

func Test_DeregisterStationReturnsNil(t *testing.T) {
	ctrl := New(mockModel(), mockConfig(mockSecret), nil, nil)
	assert.NotNil(t, ctrl, "create controller")

	rid, err := ctrl.RegisterStation(mockStation())
	assert.NoError(t, err, "register station")

	err = ctrl.DeregisterStation(rid)
	assert.NoError(t, err, "deregister existing station")

	_, err = ctrl.GetStation(rid)
	assert.EqualError(t, err, "station not found", "station gone")
}

func Test_GetStationReturnsStation(t *testing.T) {
	ctrl := New(mockModel(), mockConfig(mockSecret), nil, nil)
	assert.NotNil(t, ctrl, "create controller")

	rid, err := ctrl.RegisterStation(mockStation())
	assert.NoError(t, err, "register station")

	station, err := ctrl.GetStation(rid)
	assert.NoError(t, err, "get existing station")
	assert.Equal(t, "EC.BOSQ.00", station.SID(), "station id")
	assert.Equal(t, -2.8974, station.Latitude, "latitude")
}

func Test_ListStationsReturnsStations(t *testing.T) {
	ctrl := New(mockModel(), mockConfig(mockSecret), nil, nil)
	assert.NotNil(t, ctrl, "create controller")

	_, err := ctrl.RegisterStation(mockStation())
	assert.NoError(t, err, "register first station")

	second := mockStation()
	second.Code = "PAUT"
	inactive := false
	second.Active = &inactive
	_, err = ctrl.RegisterStation(second)
	assert.NoError(t, err, "register second station")

	stations, err := ctrl.ListStations()
	assert.NoError(t, err, "list stations")
	assert.Len(t, stations, 2, "station list")
	assert.Equal(t, "EC.BOSQ.00", stations[0]["station"], "first station id")
	assert.Equal(t, "true", stations[0]["active"], "first station active")
	assert.Equal(t, "EC.PAUT.00", stations[1]["station"], "second station id")
	assert.Equal(t, "false", stations[1]["active"], "second station active")
}

func Test_UpdateStationReplacesFields(t *testing.T) {
	m := mockModel()
	cfg := mockConfig(mockSecret)
	ctrl := New(m, cfg, nil, nil)
	assert.NotNil(t, ctrl, "create controller")

	data := mockStation()
	data.FdsnUser = "sismo"
	data.FdsnPass = "hunter2"
	rid, err := ctrl.RegisterStation(data)
	assert.NoError(t, err, "register station")

	inactive := false
	update := mockStation()
	update.Channels = []string{"HHZ"}
	update.Labels = []string{"region=loja"}
	update.Elevation = 2100
	update.Active = &inactive

	err = ctrl.UpdateStation(rid, update)
	assert.NoError(t, err, "update station")

	station, err := m.GetStation(&model.Station{ResourceId: rid})
	assert.NoError(t, err, "get station")
	assert.Equal(t, []string{"HHZ"}, station.Channels, "channels")
	assert.Equal(t, []string{"region=loja"}, station.Labels, "labels")
	assert.Equal(t, 2100.0, station.Elevation, "elevation")
	assert.False(t, station.Active, "active")
	assert.Equal(t, "sismo", station.FdsnUser, "credentials kept on empty pair")

	plain, err := aes.Decrypt(cfg.Secret(), station.FdsnPass)
	assert.NoError(t, err, "decrypt password")
	assert.Equal(t, "hunter2", plain, "password kept on empty pair")
}

func Test_UpdateStationReturnsError_NotFound(t *testing.T) {
	ctrl := New(mockModel(), mockConfig(mockSecret), nil, nil)
	assert.NotNil(t, ctrl, "create controller")

	err := ctrl.UpdateStation("non-existent-rid", mockStation())
	assert.EqualError(t, err, "station not found", "update non-existent station")
}
