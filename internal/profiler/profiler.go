/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package profiler

import (
	"log/slog"
	"runtime"

	"github.com/grafana/pyroscope-go"

	"github.com/rsaustro/gpdpick/internal/config"
)

// profileTypes is everything the agent can sample. The mutex and
// block profiles need their runtime rates set, Run does that.
var profileTypes = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocObjects,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileInuseObjects,
	pyroscope.ProfileInuseSpace,
	pyroscope.ProfileGoroutines,
	pyroscope.ProfileMutexCount,
	pyroscope.ProfileMutexDuration,
	pyroscope.ProfileBlockCount,
	pyroscope.ProfileBlockDuration,
}

type Profiler interface {
	Run() error
	Stop()
}

type profiler struct {
	instance *pyroscope.Profiler
	config   pyroscope.Config
}

func New(cfg config.Config, logging bool) Profiler {
	slog.Debug("Initializing Pyroscope profiler", "serverAddress", cfg.Profiler(), "logging", logging)

	var logger pyroscope.Logger
	if logging {
		logger = pyroscope.StandardLogger
	}

	return &profiler{
		config: pyroscope.Config{
			ApplicationName: "gpdpick",
			ServerAddress:   cfg.Profiler(),
			Logger:          logger,
			Tags: map[string]string{
				"hostname": cfg.Hostname(),
				"service":  cfg.Id(),
			},
			ProfileTypes: profileTypes,
		},
	}
}

func (p *profiler) Run() error {
	slog.Debug("Starting Pyroscope profiler", "config", p.config)

	runtime.SetMutexProfileFraction(5)
	runtime.SetBlockProfileRate(5)

	instance, err := pyroscope.Start(p.config)
	p.instance = instance

	return err
}

func (p *profiler) Stop() {
	slog.Debug("Stopping Pyroscope profiler")
	if p.instance != nil {
		_ = p.instance.Stop()
	}
}
