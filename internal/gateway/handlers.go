// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/dotandev/tlsign/internal/errors"
	"github.com/dotandev/tlsign/internal/logger"
)

// Client-facing error messages.
const (
	MsgMissingFields = "Missing required fields: path, kid, privateKey"
	MsgSigningFailed = "Failed to create signature"
	MsgInvalidJSON   = "Invalid JSON body"
	MsgBodyTooLarge  = "Request body too large"
	MsgInternalFault = "Internal server error"
)

type errorResponse struct {
	Error string `json:"error"`
}

type signingErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HandleHealth serves GET /.
func (g *Gateway) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, g.Health())
}

// HandleSign serves POST /sign.
func (g *Gateway) HandleSign(w http.ResponseWriter, r *http.Request) {
	var req SigningRequest
	if err := readJSONBody(w, r, &req, g.maxBodyBytes); err != nil {
		writeBodyError(w, err)
		return
	}

	res, err := g.Sign(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case stderrors.Is(err, errors.ErrMissingFields):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: MsgMissingFields})
	default:
		writeJSON(w, http.StatusInternalServerError, signingErrorResponse{
			Error:   MsgSigningFailed,
			Message: primitiveMessage(err),
		})
	}
}

// readJSONBody decodes a JSON object into out. An empty body leaves out
// untouched so that validation reports the missing fields.
func readLimitedBody(w http.ResponseWriter, r *http.Request, maxBytes int64) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, errors.WrapBodyTooLarge(tooLarge.Limit)
		}
		return nil, errors.WrapInvalidJSON(err)
	}
	return body, nil
}

func readJSONBody(w http.ResponseWriter, r *http.Request, out any, maxBytes int64) error {
	body, err := readLimitedBody(w, r, maxBytes)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.WrapInvalidJSON(err)
	}
	return nil
}

func writeBodyError(w http.ResponseWriter, err error) {
	if stderrors.Is(err, errors.ErrBodyTooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: MsgBodyTooLarge})
		return
	}
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: MsgInvalidJSON})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Logger.Warn("Failed to write response", "error", err)
	}
}
