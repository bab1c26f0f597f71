/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package handler

import (
	"bytes"
	_ "embed"
	"log/slog"
	"net/http"
	"time"

	"github.com/rsaustro/gpdpick/internal/version"
)

//go:embed openapi.yaml
var openapiSpec []byte

func (h *handler) registerSupportHandlers() {
	h.router.HandleFunc("/api/v1/info", h.GetServiceInfo).Methods(http.MethodGet)
	h.router.HandleFunc("/openapi.yaml", h.GetOpenAPISpec).Methods(http.MethodGet)
}

func (h *handler) GetOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Disposition", "attachment; filename=\"openapi.yaml\"")
	w.Header().Set("Content-Type", "application/octet-stream")

	go h.makeLog(r, http.StatusOK, slog.LevelInfo, "OpenAPI spec retrieved")
	http.ServeContent(w, r, "openapi.yaml", time.Now(), bytes.NewReader(openapiSpec))
}

// GetServiceInfo reports the service identity plus the operational
// facts a network operator asks for first, where the waveforms come
// from and how often the sweep runs.
func (h *handler) GetServiceInfo(w http.ResponseWriter, r *http.Request) {
	type info struct {
		Id        string `json:"id"`
		Hostname  string `json:"hostname"`
		CreatedAt string `json:"created_at"`
		Release   string `json:"release"`
		Commit    string `json:"commit"`
		Source    string `json:"source"`
		ScanCron  string `json:"scan_cron"`
	}

	go h.makeLog(r, http.StatusOK, slog.LevelInfo, "service info")
	h.makeResponse(w, http.StatusOK, info{
		Id:        h.config.Id(),
		Hostname:  h.config.Hostname(),
		CreatedAt: h.config.CreatedAt(),
		Release:   version.Release(),
		Commit:    version.Commit(),
		Source:    h.config.Source().URL,
		ScanCron:  h.config.Scan().Cron,
	})
}
