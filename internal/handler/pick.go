/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/rsaustro/gpdpick/internal/controller"
)

func (h *handler) registerPickHandlers() {
	h.router.HandleFunc("/api/v1/pick", h.ListPicks).Methods(http.MethodGet)
	h.router.HandleFunc("/api/v1/pick/{rid}", h.GetPick).Methods(http.MethodGet)
}

func (h *handler) ListPicks(w http.ResponseWriter, r *http.Request) {
	from, err := parseTimeParam(r, "from")
	if err != nil {
		h.makeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseTimeParam(r, "to")
	if err != nil {
		h.makeError(w, http.StatusBadRequest, err.Error())
		return
	}

	picks, err := h.controller.ListPicks(from, to)
	if err != nil {
		h.makeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.makeResponse(w, http.StatusOK, picks)
}

func (h *handler) GetPick(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rid := vars["rid"]

	pick, err := h.controller.GetPick(rid)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, controller.ErrPickNotFound) {
			status = http.StatusNotFound
		}
		h.makeError(w, status, err.Error())
		return
	}

	h.makeResponse(w, http.StatusOK, pick)
}

func parseTimeParam(r *http.Request, name string) (time.Time, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return time.Time{}, nil
	}

	at, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, errors.New("invalid " + name + " parameter, want RFC3339")
	}

	return at, nil
}
