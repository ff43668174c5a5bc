// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package signer

import (
	"crypto/ecdsa"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"

	"github.com/dotandev/tlsign/internal/errors"
)

var errEmptyPEM = stderrors.New("no PEM data")

type protectedHeader struct {
	Alg       string `json:"alg"`
	KID       string `json:"kid"`
	TLVersion string `json:"tl_version"`
	TLHeaders string `json:"tl_headers"`
}

// Verify checks a detached Tl-Signature against req using an ECDSA P-521
// public key in PEM form. A private key PEM is also accepted; its public half
// is used. Only the headers named in tl_headers are covered; extra headers on
// req are ignored.
func Verify(publicKeyPEM []byte, signature string, req Request) error {
	hdr, err := decodeProtectedHeader(signature)
	if err != nil {
		return err
	}
	if hdr.Alg != jwa.ES512.String() {
		return errors.WrapInvalidSignature("unexpected alg " + hdr.Alg)
	}
	if hdr.TLVersion != SignatureVersion {
		return errors.WrapInvalidSignature("unexpected tl_version " + hdr.TLVersion)
	}

	var names []string
	if hdr.TLHeaders != "" {
		names = strings.Split(hdr.TLHeaders, ",")
	}
	for _, name := range names {
		if _, ok := lookupHeader(req.Headers, name); !ok {
			return errors.WrapInvalidSignature("signed header " + name + " missing from request")
		}
	}

	pub, err := parsePublicKey(publicKeyPEM)
	if err != nil {
		return err
	}

	payload := SigningPayload(req.Method, req.Path, names, req.Headers, req.Body)
	if _, err := jws.Verify([]byte(signature),
		jws.WithKey(jwa.ES512, pub),
		jws.WithDetachedPayload(payload),
	); err != nil {
		return errors.WrapInvalidSignature(err.Error())
	}
	return nil
}

// ExtractKID returns the kid protected header of a Tl-Signature.
func ExtractKID(signature string) (string, error) {
	hdr, err := decodeProtectedHeader(signature)
	if err != nil {
		return "", err
	}
	return hdr.KID, nil
}

func decodeProtectedHeader(signature string) (*protectedHeader, error) {
	parts := strings.Split(signature, ".")
	if len(parts) != 3 {
		return nil, errors.WrapInvalidSignature("expected 3 segments")
	}
	if parts[1] != "" {
		return nil, errors.WrapInvalidSignature("payload segment must be detached")
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, errors.WrapInvalidSignature("header is not base64url")
	}
	var hdr protectedHeader
	if err := json.Unmarshal(raw, &hdr); err != nil {
		return nil, errors.WrapInvalidSignature("header is not JSON")
	}
	return &hdr, nil
}

func parsePublicKey(pemData []byte) (jwk.Key, error) {
	if len(pemData) == 0 {
		return nil, errors.WrapInvalidPrivateKey(errEmptyPEM)
	}
	key, err := jwk.ParseKey(pemData, jwk.WithPEM(true))
	if err != nil {
		return nil, errors.WrapUnsupportedKey("cannot parse public key: " + err.Error())
	}
	pub, err := jwk.PublicKeyOf(key)
	if err != nil {
		return nil, errors.WrapUnsupportedKey("cannot derive public key: " + err.Error())
	}

	var raw ecdsa.PublicKey
	if err := pub.Raw(&raw); err != nil {
		return nil, errors.WrapUnsupportedKey("ES512 requires an ECDSA public key")
	}
	if !isP521(raw.Curve) {
		return nil, errors.WrapUnsupportedKey("ES512 requires curve P-521")
	}
	return pub, nil
}
