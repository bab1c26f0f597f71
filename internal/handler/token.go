/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

func (h *handler) registerTokenHandlers() {
	h.router.HandleFunc("/api/v1/token", h.CreateAccessToken).Methods(http.MethodPost)
}

// CreateAccessToken issues a bearer token for API access. The optional
// expires_in_seconds payload field overrides the default lifetime.
// Tokens cannot mint further tokens, the endpoint wants basic auth.
func (h *handler) CreateAccessToken(w http.ResponseWriter, r *http.Request) {
	type payload struct {
		ExpiresInSeconds int `json:"expires_in_seconds"`
	}
	var p payload

	if !strings.HasPrefix(r.Header.Get("Authorization"), "Basic ") {
		h.makeError(w, http.StatusForbidden, "token creation requires basic authentication")
		return
	}

	if err := json.NewDecoder(r.Body).Decode(&p); err != nil && err != io.EOF {
		h.makeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if p.ExpiresInSeconds < 0 {
		h.makeError(w, http.StatusBadRequest, "expires_in_seconds must not be negative")
		return
	}

	expiration := time.Duration(p.ExpiresInSeconds) * time.Second
	token, expiresAt, err := h.controller.GenerateAccessToken(expiration)
	if err != nil {
		h.makeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.makeResponse(w, http.StatusCreated, map[string]string{
		"token":      token,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})
}
