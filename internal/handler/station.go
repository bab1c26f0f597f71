/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/rsaustro/gpdpick/internal/controller"
)

func (h *handler) registerStationHandlers() {
	h.router.HandleFunc("/api/v1/station", h.ListStations).Methods(http.MethodGet)
	h.router.HandleFunc("/api/v1/station", h.CreateStation).Methods(http.MethodPost)
	h.router.HandleFunc("/api/v1/station/{rid}", h.GetStation).Methods(http.MethodGet)
	h.router.HandleFunc("/api/v1/station/{rid}", h.UpdateStation).Methods(http.MethodPut)
	h.router.HandleFunc("/api/v1/station/{rid}", h.DeleteStation).Methods(http.MethodDelete)
	h.router.HandleFunc("/api/v1/station/{rid}/pick", h.ListStationPicks).Methods(http.MethodGet)
	h.router.HandleFunc("/api/v1/station/{rid}/scan", h.TriggerScan).Methods(http.MethodPost)
}

func (h *handler) CreateStation(w http.ResponseWriter, r *http.Request) {
	var data controller.Station
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		h.makeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rid, err := h.controller.RegisterStation(&data)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, controller.ErrStationAlreadyExists) {
			status = http.StatusConflict
		}
		h.makeError(w, status, err.Error())
		return
	}

	h.makeResponse(w, http.StatusCreated, map[string]string{"rid": rid})
}

func (h *handler) DeleteStation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rid := vars["rid"]

	if err := h.controller.DeregisterStation(rid); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, controller.ErrStationNotFound) {
			status = http.StatusNotFound
		}
		h.makeError(w, status, err.Error())
		return
	}

	h.makeResponse(w, http.StatusNoContent, nil)
}

func (h *handler) GetStation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rid := vars["rid"]

	station, err := h.controller.GetStation(rid)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, controller.ErrStationNotFound) {
			status = http.StatusNotFound
		}
		h.makeError(w, status, err.Error())
		return
	}

	h.makeResponse(w, http.StatusOK, station)
}

func (h *handler) UpdateStation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rid := vars["rid"]

	var data controller.Station
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		h.makeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.controller.UpdateStation(rid, &data); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, controller.ErrStationNotFound) {
			status = http.StatusNotFound
		}
		h.makeError(w, status, err.Error())
		return
	}

	h.makeResponse(w, http.StatusNoContent, nil)
}

func (h *handler) ListStations(w http.ResponseWriter, r *http.Request) {
	stations, err := h.controller.ListStations()
	if err != nil {
		h.makeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.makeResponse(w, http.StatusOK, stations)
}

func (h *handler) ListStationPicks(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rid := vars["rid"]

	picks, err := h.controller.ListStationPicks(rid)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, controller.ErrStationNotFound) {
			status = http.StatusNotFound
		}
		h.makeError(w, status, err.Error())
		return
	}

	h.makeResponse(w, http.StatusOK, picks)
}

func (h *handler) TriggerScan(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rid := vars["rid"]

	type payload struct {
		From time.Time `json:"from"`
		To   time.Time `json:"to"`
	}
	var p payload

	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.makeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	run, err := h.controller.TriggerScan(r.Context(), rid, p.From, p.To)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, controller.ErrStationNotFound):
			status = http.StatusNotFound
		case errors.Is(err, controller.ErrInvalidScanInterval):
			status = http.StatusBadRequest
		}
		h.makeError(w, status, err.Error())
		return
	}

	h.makeResponse(w, http.StatusOK, run)
}
