/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package controller

import (
	"fmt"
	"log/slog"

	"github.com/rsaustro/gpdpick/internal/archive"
	"github.com/rsaustro/gpdpick/internal/config"
	"github.com/rsaustro/gpdpick/internal/model"
	"github.com/rsaustro/gpdpick/internal/scanner"
)

type Controller interface {
	ControllerStation
	ControllerPick
	ControllerEvent
	ControllerScan
	ControllerToken
}

type controller struct {
	config  config.Config
	model   *model.Model
	scanner *scanner.Scanner
	archive *archive.Writer
}

func New(m *model.Model, cfg config.Config, scn *scanner.Scanner, arch *archive.Writer) Controller {
	slog.Debug("Initializing Controller", "model", fmt.Sprintf("%T", m), "config", fmt.Sprintf("%T", cfg))

	return &controller{
		config:  cfg,
		model:   m,
		scanner: scn,
		archive: arch,
	}
}
