// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/artbyoscar/streamsense-sub001/internal/logging"
)

// errorResponse is the JSON body for all error replies.
type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// writeJSON serializes v with the configured status code.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log := logging.Ctx(r.Context())
		log.Error().Err(err).Msg("encode response failed")
	}
}

// writeError sends a JSON error body. Internal detail is logged, not
// surfaced to the client.
func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Error: msg, Code: status})
}
