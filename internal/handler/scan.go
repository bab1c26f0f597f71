/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/rsaustro/gpdpick/internal/controller"
)

func (h *handler) registerScanHandlers() {
	h.router.HandleFunc("/api/v1/scan", h.ListScanRuns).Methods(http.MethodGet)
	h.router.HandleFunc("/api/v1/scan/{rid}", h.GetScanRun).Methods(http.MethodGet)
}

func (h *handler) ListScanRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if value := r.URL.Query().Get("limit"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 0 {
			h.makeError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = parsed
	}

	runs, err := h.controller.ListScanRuns(limit)
	if err != nil {
		h.makeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.makeResponse(w, http.StatusOK, runs)
}

func (h *handler) GetScanRun(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rid := vars["rid"]

	run, err := h.controller.GetScanRun(rid)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, controller.ErrScanRunNotFound) {
			status = http.StatusNotFound
		}
		h.makeError(w, status, err.Error())
		return
	}

	h.makeResponse(w, http.StatusOK, run)
}
