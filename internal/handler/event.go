/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/rsaustro/gpdpick/internal/controller"
)

func (h *handler) registerEventHandlers() {
	h.router.HandleFunc("/api/v1/event", h.ListEvents).Methods(http.MethodGet)
	h.router.HandleFunc("/api/v1/event/{rid}", h.GetEvent).Methods(http.MethodGet)
	h.router.HandleFunc("/api/v1/event/{rid}/snippet", h.GetEventSnippet).Methods(http.MethodGet)
}

func (h *handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.controller.ListEvents()
	if err != nil {
		h.makeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.makeResponse(w, http.StatusOK, events)
}

func (h *handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rid := vars["rid"]

	event, err := h.controller.GetEvent(rid)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, controller.ErrEventNotFound) {
			status = http.StatusNotFound
		}
		h.makeError(w, status, err.Error())
		return
	}

	h.makeResponse(w, http.StatusOK, event)
}

// GetEventSnippet streams the archived waveform snippet of an event as a
// miniSEED attachment.
func (h *handler) GetEventSnippet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rid := vars["rid"]

	snippet, err := h.controller.GetEventSnippet(r.Context(), rid)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, controller.ErrEventNotFound) ||
			errors.Is(err, controller.ErrNoSnippet) {
			status = http.StatusNotFound
		}
		h.makeError(w, status, err.Error())
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.mseed\"", rid))
	w.Header().Set("Content-Type", "application/vnd.fdsn.mseed")
	http.ServeContent(w, r, fmt.Sprintf("%s.mseed", rid), time.Now(), bytes.NewReader(snippet))
}
