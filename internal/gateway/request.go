// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/dotandev/tlsign/internal/errors"
	"github.com/dotandev/tlsign/internal/signer"
)

// ServiceName is reported by the liveness endpoint.
const ServiceName = "truelayer-signing-service"

// DefaultMethod is used when a signing request omits the method.
const DefaultMethod = http.MethodPost

// SigningRequest is the JSON body accepted by POST /sign.
//
// Method defaults to POST, Headers to an empty map and Body to "". Path, KID
// and PrivateKey are mandatory.
type SigningRequest struct {
	Method     string            `json:"method,omitempty"`
	Path       string            `json:"path"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       string            `json:"body,omitempty"`
	KID        string            `json:"kid"`
	PrivateKey string            `json:"privateKey"`
}

// UnmarshalJSON matches object keys exactly. encoding/json would otherwise
// accept "PATH" or "Kid" for the mandatory fields.
func (r *SigningRequest) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var out SigningRequest
	targets := map[string]any{
		"method":     &out.Method,
		"path":       &out.Path,
		"headers":    &out.Headers,
		"body":       &out.Body,
		"kid":        &out.KID,
		"privateKey": &out.PrivateKey,
	}
	for key, target := range targets {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, target); err != nil {
			return err
		}
	}

	*r = out
	return nil
}

// SigningResult carries the headers to attach to the outbound request.
type SigningResult struct {
	Signature string `json:"Tl-Signature"`
	KID       string `json:"Tl-Kid"`
}

// HealthStatus is the liveness payload served on GET /.
type HealthStatus struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
}

// MissingFields lists the mandatory fields that are empty, in wire order.
func (r SigningRequest) MissingFields() []string {
	var missing []string
	if r.Path == "" {
		missing = append(missing, "path")
	}
	if r.KID == "" {
		missing = append(missing, "kid")
	}
	if r.PrivateKey == "" {
		missing = append(missing, "privateKey")
	}
	return missing
}

// Validate reports errors.ErrMissingFields when a mandatory field is empty.
func (r SigningRequest) Validate() error {
	if missing := r.MissingFields(); len(missing) > 0 {
		return errors.WrapMissingFields(missing...)
	}
	return nil
}

// Normalize fills in defaults and returns the signing input for the primitive.
func (r SigningRequest) Normalize() signer.Request {
	method := r.Method
	if method == "" {
		method = DefaultMethod
	}
	headers := r.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	return signer.Request{
		Method:     method,
		Path:       r.Path,
		Headers:    headers,
		Body:       r.Body,
		PrivateKey: r.PrivateKey,
		KID:        r.KID,
	}
}

// SigningFailure wraps an error returned by the signing primitive.
type SigningFailure struct {
	Cause error
}

func (e *SigningFailure) Error() string {
	return errors.ErrSigningFailed.Error() + ": " + e.Cause.Error()
}

func (e *SigningFailure) Unwrap() []error {
	return []error{errors.ErrSigningFailed, e.Cause}
}

// primitiveMessage returns the message reported by the signing primitive, or
// the full error text when err did not come from the primitive.
func primitiveMessage(err error) string {
	var sf *SigningFailure
	if stderrors.As(err, &sf) {
		return sf.Cause.Error()
	}
	return err.Error()
}
