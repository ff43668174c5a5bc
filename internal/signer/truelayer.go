// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package signer

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"sort"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"

	"github.com/dotandev/tlsign/internal/errors"
)

const (
	// SignatureVersion is the value of the tl_version protected header.
	SignatureVersion = "2"

	headerTLVersion = "tl_version"
	headerTLHeaders = "tl_headers"
)

// TrueLayerSigner produces TrueLayer request signatures: an ES512 JWS with a
// detached payload over the method, path, selected headers and body. It holds
// no state and can be shared across goroutines.
type TrueLayerSigner struct{}

// NewTrueLayerSigner returns a ready to use TrueLayerSigner.
func NewTrueLayerSigner() *TrueLayerSigner {
	return &TrueLayerSigner{}
}

// SignRequest signs req and returns the compact detached JWS
// ("<header>..<signature>").
func (s *TrueLayerSigner) SignRequest(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &SignerError{Op: "sign", Msg: "context done", Err: err}
	}
	if req.KID == "" {
		return "", &SignerError{Op: "sign", Msg: "kid is required"}
	}
	if !strings.HasPrefix(req.Path, "/") {
		return "", &SignerError{Op: "sign", Msg: "path must start with '/'"}
	}

	key, err := parsePrivateKey([]byte(req.PrivateKey))
	if err != nil {
		return "", &SignerError{Op: "sign", Msg: "invalid private key", Err: err}
	}

	names := sortedHeaderNames(req.Headers)

	hdrs := jws.NewHeaders()
	if err := hdrs.Set(jws.KeyIDKey, req.KID); err != nil {
		return "", &SignerError{Op: "sign", Msg: "failed to set kid header", Err: err}
	}
	if err := hdrs.Set(headerTLVersion, SignatureVersion); err != nil {
		return "", &SignerError{Op: "sign", Msg: "failed to set tl_version header", Err: err}
	}
	if err := hdrs.Set(headerTLHeaders, strings.Join(names, ",")); err != nil {
		return "", &SignerError{Op: "sign", Msg: "failed to set tl_headers header", Err: err}
	}

	payload := SigningPayload(req.Method, req.Path, names, req.Headers, req.Body)

	sig, err := jws.Sign(nil,
		jws.WithKey(jwa.ES512, key, jws.WithProtectedHeaders(hdrs)),
		jws.WithDetachedPayload(payload),
	)
	if err != nil {
		return "", &SignerError{Op: "sign", Msg: "jws signing failed", Err: err}
	}

	return string(sig), nil
}

// SigningPayload renders the bytes covered by the signature:
//
//	METHOD path\n
//	name: value\n   (one line per entry of names)
//	body
func SigningPayload(method, path string, names []string, headers map[string]string, body string) []byte {
	var b strings.Builder
	b.WriteString(strings.ToUpper(method))
	b.WriteByte(' ')
	b.WriteString(path)
	b.WriteByte('\n')
	for _, name := range names {
		value, _ := lookupHeader(headers, name)
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteByte('\n')
	}
	b.WriteString(body)
	return []byte(b.String())
}

func sortedHeaderNames(headers map[string]string) []string {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		li, lj := strings.ToLower(names[i]), strings.ToLower(names[j])
		if li == lj {
			return names[i] < names[j]
		}
		return li < lj
	})
	return names
}

// lookupHeader prefers an exact match and falls back to a case-insensitive one.
func lookupHeader(headers map[string]string, name string) (string, bool) {
	if v, ok := headers[name]; ok {
		return v, true
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

func isP521(c elliptic.Curve) bool {
	return c != nil && c.Params().Name == elliptic.P521().Params().Name
}

func parsePrivateKey(pemData []byte) (jwk.Key, error) {
	if len(pemData) == 0 {
		return nil, errors.WrapInvalidPrivateKey(errEmptyPEM)
	}
	key, err := jwk.ParseKey(pemData, jwk.WithPEM(true))
	if err != nil {
		return nil, errors.WrapInvalidPrivateKey(err)
	}

	var raw ecdsa.PrivateKey
	if err := key.Raw(&raw); err != nil {
		return nil, errors.WrapUnsupportedKey("ES512 requires an ECDSA private key")
	}
	if !isP521(raw.Curve) {
		return nil, errors.WrapUnsupportedKey("ES512 requires curve P-521")
	}
	return key, nil
}
