// Copyright (c) 2026 dotandev
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gateway

import (
	"context"
	"time"
	"unicode/utf16"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/dotandev/tlsign/internal/config"
	"github.com/dotandev/tlsign/internal/logger"
	"github.com/dotandev/tlsign/internal/signer"
	"github.com/dotandev/tlsign/internal/telemetry"
)

// Gateway validates signing requests and dispatches them to a RequestSigner.
// It keeps no per-request state and is safe for concurrent use.
type Gateway struct {
	signer       signer.RequestSigner
	maxBodyBytes int64
	now          func() time.Time
}

// Options tunes a Gateway. Zero values fall back to defaults.
type Options struct {
	MaxBodyBytes int64
	Now          func() time.Time
}

// New creates a Gateway backed by s.
func New(s signer.RequestSigner, opts Options) *Gateway {
	g := &Gateway{
		signer:       s,
		maxBodyBytes: opts.MaxBodyBytes,
		now:          opts.Now,
	}
	if g.maxBodyBytes <= 0 {
		g.maxBodyBytes = config.DefaultMaxBodyBytes
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g
}

// Sign validates req, applies defaults and signs it. Validation failures wrap
// errors.ErrMissingFields and never reach the signer; primitive failures are
// returned as *SigningFailure.
func (g *Gateway) Sign(ctx context.Context, req SigningRequest) (SigningResult, error) {
	if err := req.Validate(); err != nil {
		return SigningResult{}, err
	}
	in := req.Normalize()

	ctx, span := telemetry.GetTracer().Start(ctx, "gateway.sign")
	defer span.End()
	bodyLength := utf16Length(in.Body)
	span.SetAttributes(
		attribute.String("http.request.method", in.Method),
		attribute.String("tl.path", in.Path),
		attribute.Int("tl.body_length", bodyLength),
		attribute.String("tl.kid", in.KID),
	)

	log := logger.Logger.With("request_id", RequestIDFromContext(ctx))
	log.Info("Signing request", "method", in.Method, "path", in.Path, "body_length", bodyLength, "kid", in.KID)

	sig, err := g.signer.SignRequest(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "signing failed")
		log.Error("Signing failed", "kid", in.KID, "error", err)
		return SigningResult{}, &SigningFailure{Cause: err}
	}

	log.Info("Signature created", "kid", in.KID, "signature_length", len(sig))
	return SigningResult{Signature: sig, KID: in.KID}, nil
}

// Health returns the liveness payload.
func (g *Gateway) Health() HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Service:   ServiceName,
		Timestamp: g.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

// utf16Length counts UTF-16 code units, so characters outside the BMP count
// as two. This matches the body length reported by JavaScript clients.
func utf16Length(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
