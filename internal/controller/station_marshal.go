/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package controller

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/rsaustro/gpdpick/internal/aes"
	"github.com/rsaustro/gpdpick/internal/model"
)

// Station carries the station parameters of a register or update
// request. FDSN credentials are write only, they are encrypted before
// they reach the database and never appear in responses. On update an
// empty credential pair keeps the stored one.
type Station struct {
	Network   string   `json:"network"`
	Code      string   `json:"code"`
	Location  string   `json:"location"`
	Channels  []string `json:"channels"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Elevation float64  `json:"elevation"`
	FdsnUser  string   `json:"fdsn_user"`
	FdsnPass  string   `json:"fdsn_pass"`
	Labels    []string `json:"labels"`
	Active    *bool    `json:"active"`
}

var channelPattern = regexp.MustCompile(`^[A-Z0-9]{3}$`)

func (c *controller) marshalNewStation(data *Station) (*model.Station, error) {
	network := strings.ToUpper(strings.TrimSpace(data.Network))
	if network == "" {
		return nil, fmt.Errorf("network must not be empty")
	}

	code := strings.ToUpper(strings.TrimSpace(data.Code))
	if code == "" {
		return nil, fmt.Errorf("station code must not be empty")
	}

	effectiveChannels, err := c.__parseChannels(data)
	if err != nil {
		return nil, err
	}

	user, pass, err := c.__parseCredentials(data)
	if err != nil {
		return nil, err
	}

	active := true
	if data.Active != nil {
		active = *data.Active
	}

	station := &model.Station{
		Active:     active,
		Network:    network,
		Code:       code,
		Location:   __normalizeLocation(data.Location),
		Channels:   effectiveChannels,
		Latitude:   data.Latitude,
		Longitude:  data.Longitude,
		Elevation:  data.Elevation,
		FdsnUser:   user,
		FdsnPass:   pass,
		Labels:     data.Labels,
		ResourceId: fmt.Sprintf("rid:gpdpick:%s:station:%s", c.config.Id(), uuid.New().String()),
	}

	return station, nil
}

func (c *controller) marshalUpdateStation(existing *model.Station, data *Station) (*model.Station, error) {
	effectiveChannels, err := c.__parseChannels(data)
	if err != nil {
		return nil, err
	}

	user, pass, err := c.__parseCredentials(data)
	if err != nil {
		return nil, err
	}
	if user != "" {
		existing.FdsnUser = user
		existing.FdsnPass = pass
	}

	existing.Channels = effectiveChannels
	existing.Latitude = data.Latitude
	existing.Longitude = data.Longitude
	existing.Elevation = data.Elevation
	existing.Labels = data.Labels
	if data.Active != nil {
		existing.Active = *data.Active
	}

	return existing, nil
}

func (c *controller) __parseChannels(data *Station) ([]string, error) {
	if len(data.Channels) == 0 {
		return nil, fmt.Errorf("at least one channel must be specified")
	}

	var effectiveChannels []string
	for _, channel := range data.Channels {
		channel = strings.ToUpper(strings.TrimSpace(channel))
		if !channelPattern.MatchString(channel) {
			continue
		}
		if slices.Contains(effectiveChannels, channel) {
			continue
		}

		effectiveChannels = append(effectiveChannels, channel)
	}

	if len(effectiveChannels) == 0 {
		return nil, fmt.Errorf("no valid channel specified")
	}

	return effectiveChannels, nil
}

func (c *controller) __parseCredentials(data *Station) (string, string, error) {
	if (data.FdsnUser == "") != (data.FdsnPass == "") {
		return "", "", fmt.Errorf("fdsn username and password must be set together")
	}
	if data.FdsnUser == "" {
		return "", "", nil
	}

	pass, err := aes.Encrypt(c.config.Secret(), data.FdsnPass)
	if err != nil {
		return "", "", err
	}

	return data.FdsnUser, pass, nil
}

func __normalizeLocation(location string) string {
	location = strings.ToUpper(strings.TrimSpace(location))
	if location == "--" {
		return ""
	}

	return location
}
