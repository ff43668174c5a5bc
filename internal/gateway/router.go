// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dotandev/tlsign/internal/logger"
)

// CORSOptions is the permissive policy for browser callers. It is not access
// control; the gateway does not authenticate its callers.
var CORSOptions = cors.Options{
	AllowedOrigins: []string{"*"},
	AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	AllowedHeaders: []string{"Content-Type", "Authorization"},
}

// NewRouter mounts the gateway routes:
//
//	GET  /      liveness
//	POST /sign  sign a request description
//	POST /rpc   JSON-RPC 2.0 (tlsign.Sign)
func NewRouter(gw *Gateway) (http.Handler, error) {
	rpcHandler, err := NewRPCHandler(gw)
	if err != nil {
		return nil, fmt.Errorf("failed to register rpc service: %w", err)
	}

	r := chi.NewRouter()
	r.Use(WithRequestID)
	r.Use(logRequests)
	r.Use(recoverJSON)
	r.Use(cors.Handler(CORSOptions))

	r.Get("/", gw.HandleHealth)
	r.Post("/sign", gw.HandleSign)
	r.With(limitBody(gw.maxBodyBytes)).Method(http.MethodPost, "/rpc", rpcHandler)

	return r, nil
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Logger.Debug("Handled request",
			"request_id", RequestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
		)
	})
}

// limitBody buffers at most maxBytes of the request body before next runs,
// answering 413 like POST /sign when the body is larger.
func limitBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := readLimitedBody(w, r, maxBytes)
			if err != nil {
				writeBodyError(w, err)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}

// recoverJSON turns a handler panic into a JSON 500 without leaking details.
func recoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Logger.Error("Handler panic",
					"request_id", RequestIDFromContext(r.Context()),
					"path", r.URL.Path,
					"panic", fmt.Sprint(rec),
				)
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: MsgInternalFault})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
