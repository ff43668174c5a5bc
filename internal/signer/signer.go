// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package signer

import (
	"context"
	"fmt"
)

// Request is the canonical signing input: the outbound HTTP request being
// signed plus the key material used to sign it.
type Request struct {
	Method     string
	Path       string
	Headers    map[string]string
	Body       string
	PrivateKey string
	KID        string
}

// RequestSigner is the generic interface for request-signing primitives.
// Implementations must be safe for concurrent use.
type RequestSigner interface {
	// SignRequest produces a signature over the canonical form of req.
	SignRequest(ctx context.Context, req Request) (string, error)
}

// SignerFunc adapts a plain function to the RequestSigner interface.
type SignerFunc func(ctx context.Context, req Request) (string, error)

func (f SignerFunc) SignRequest(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// SignerError represents an error originating from a signing operation.
type SignerError struct {
	Op  string
	Msg string
	Err error
}

func (e *SignerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *SignerError) Unwrap() error {
	return e.Err
}
