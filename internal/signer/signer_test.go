// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package signer

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotandev/tlsign/internal/errors"
)

func generateKeyPEM(t *testing.T, curve elliptic.Curve) (privPEM, pubPEM string) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(curve, rand.Reader)
	require.NoError(t, err)

	der, err := x509.MarshalECPrivateKey(priv)
	require.NoError(t, err)
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)

	privPEM = string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}))
	pubPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}))
	return privPEM, pubPEM
}

func testRequest(privPEM string) Request {
	return Request{
		Method: "post",
		Path:   "/v3/payments",
		Headers: map[string]string{
			"X-Custom":        "abc",
			"Idempotency-Key": "619410b3-b00c-406e-bb1b-2982f97edb8b",
		},
		Body:       `{"currency":"GBP","max_amount_in_minor":5000000}`,
		PrivateKey: privPEM,
		KID:        "45fc75cf-5649-4134-84b3-192c2c78e990",
	}
}

func decodeHeader(t *testing.T, sig string) map[string]any {
	t.Helper()
	parts := strings.Split(sig, ".")
	require.Len(t, parts, 3)
	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	require.NoError(t, err)
	var hdr map[string]any
	require.NoError(t, json.Unmarshal(raw, &hdr))
	return hdr
}

func TestSigningPayload(t *testing.T) {
	headers := map[string]string{"Idempotency-Key": "idemp-2076717c", "X-Custom": "abc"}
	got := SigningPayload("post", "/test-signature", []string{"Idempotency-Key", "X-Custom"}, headers, `{"a":1}`)

	want := "POST /test-signature\nIdempotency-Key: idemp-2076717c\nX-Custom: abc\n{\"a\":1}"
	assert.Equal(t, want, string(got))
}

func TestSigningPayload_NoHeadersEmptyBody(t *testing.T) {
	got := SigningPayload("DELETE", "/merchant_accounts/1", nil, nil, "")
	assert.Equal(t, "DELETE /merchant_accounts/1\n", string(got))
}

func TestSortedHeaderNames(t *testing.T) {
	names := sortedHeaderNames(map[string]string{"x-b": "1", "X-A": "2", "Idempotency-Key": "3"})
	assert.Equal(t, []string{"Idempotency-Key", "X-A", "x-b"}, names)
}

func TestTrueLayerSigner_SignProducesDetachedES512(t *testing.T) {
	privPEM, _ := generateKeyPEM(t, elliptic.P521())
	req := testRequest(privPEM)

	sig, err := NewTrueLayerSigner().SignRequest(context.Background(), req)
	require.NoError(t, err)

	parts := strings.Split(sig, ".")
	require.Len(t, parts, 3)
	assert.Empty(t, parts[1], "payload segment should be detached")
	assert.NotEmpty(t, parts[2])

	hdr := decodeHeader(t, sig)
	assert.Equal(t, "ES512", hdr["alg"])
	assert.Equal(t, req.KID, hdr["kid"])
	assert.Equal(t, "2", hdr["tl_version"])
	assert.Equal(t, "Idempotency-Key,X-Custom", hdr["tl_headers"])

	kid, err := ExtractKID(sig)
	require.NoError(t, err)
	assert.Equal(t, req.KID, kid)
}

func TestTrueLayerSigner_SignVerifyRoundTrip(t *testing.T) {
	privPEM, pubPEM := generateKeyPEM(t, elliptic.P521())
	req := testRequest(privPEM)

	sig, err := NewTrueLayerSigner().SignRequest(context.Background(), req)
	require.NoError(t, err)

	require.NoError(t, Verify([]byte(pubPEM), sig, req))
	// The private key PEM also works, its public half is used.
	require.NoError(t, Verify([]byte(privPEM), sig, req))

	// Header lookup during verification is case-insensitive and extra headers
	// are not covered.
	relaxed := req
	relaxed.Headers = map[string]string{
		"idempotency-key": req.Headers["Idempotency-Key"],
		"x-custom":        req.Headers["X-Custom"],
		"User-Agent":      "curl/8",
	}
	assert.NoError(t, Verify([]byte(pubPEM), sig, relaxed))
}

func TestTrueLayerSigner_NoHeaders(t *testing.T) {
	privPEM, pubPEM := generateKeyPEM(t, elliptic.P521())
	req := Request{Method: "GET", Path: "/v3/payments/123", PrivateKey: privPEM, KID: "kid-1"}

	sig, err := NewTrueLayerSigner().SignRequest(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "", decodeHeader(t, sig)["tl_headers"])
	assert.NoError(t, Verify([]byte(pubPEM), sig, req))
}

func TestVerify_DetectsTampering(t *testing.T) {
	privPEM, pubPEM := generateKeyPEM(t, elliptic.P521())
	req := testRequest(privPEM)

	sig, err := NewTrueLayerSigner().SignRequest(context.Background(), req)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(r *Request)
	}{
		{"method", func(r *Request) { r.Method = "PUT" }},
		{"path", func(r *Request) { r.Path = "/v3/payouts" }},
		{"body", func(r *Request) { r.Body = `{"currency":"EUR"}` }},
		{"header value", func(r *Request) {
			r.Headers = map[string]string{"Idempotency-Key": "other", "X-Custom": "abc"}
		}},
		{"missing header", func(r *Request) {
			r.Headers = map[string]string{"X-Custom": "abc"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tampered := req
			tt.mutate(&tampered)
			err := Verify([]byte(pubPEM), sig, tampered)
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, errors.ErrInvalidSignature))
		})
	}
}

func TestVerify_WrongKey(t *testing.T) {
	privPEM, _ := generateKeyPEM(t, elliptic.P521())
	_, otherPub := generateKeyPEM(t, elliptic.P521())
	req := testRequest(privPEM)

	sig, err := NewTrueLayerSigner().SignRequest(context.Background(), req)
	require.NoError(t, err)

	assert.Error(t, Verify([]byte(otherPub), sig, req))
}

func TestVerify_MalformedSignature(t *testing.T) {
	_, pubPEM := generateKeyPEM(t, elliptic.P521())
	req := Request{Method: "POST", Path: "/"}

	for _, sig := range []string{"", "abc", "a.b.c", "!!!..sig"} {
		err := Verify([]byte(pubPEM), sig, req)
		require.Error(t, err, sig)
		assert.True(t, stderrors.Is(err, errors.ErrInvalidSignature), sig)
	}
}

func TestTrueLayerSigner_RejectsBadKeys(t *testing.T) {
	p256PEM, _ := generateKeyPEM(t, elliptic.P256())

	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"empty", "", errors.ErrInvalidPrivateKey},
		{"garbage", "not a pem", errors.ErrInvalidPrivateKey},
		{"wrong curve", p256PEM, errors.ErrUnsupportedKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := Request{Method: "POST", Path: "/v3/payments", PrivateKey: tt.key, KID: "kid"}
			_, err := NewTrueLayerSigner().SignRequest(context.Background(), req)
			require.Error(t, err)

			var se *SignerError
			require.True(t, stderrors.As(err, &se))
			assert.Equal(t, "sign", se.Op)
			assert.True(t, stderrors.Is(err, tt.wantErr))
			assert.NotContains(t, err.Error(), "PRIVATE KEY")
		})
	}
}

func TestTrueLayerSigner_RejectsInvalidRequest(t *testing.T) {
	privPEM, _ := generateKeyPEM(t, elliptic.P521())
	s := NewTrueLayerSigner()

	_, err := s.SignRequest(context.Background(), Request{Method: "POST", Path: "v3/payments", PrivateKey: privPEM, KID: "kid"})
	assert.EqualError(t, err, "sign: path must start with '/'")

	_, err = s.SignRequest(context.Background(), Request{Method: "POST", Path: "/v3/payments", PrivateKey: privPEM})
	assert.EqualError(t, err, "sign: kid is required")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.SignRequest(ctx, testRequest(privPEM))
	assert.True(t, stderrors.Is(err, context.Canceled))
}

func TestTrueLayerSigner_ConcurrentUse(t *testing.T) {
	privPEM, pubPEM := generateKeyPEM(t, elliptic.P521())
	s := NewTrueLayerSigner()

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := testRequest(privPEM)
			req.KID = fmt.Sprintf("kid-%d", i)
			req.Body = fmt.Sprintf(`{"n":%d}`, i)
			sig, err := s.SignRequest(context.Background(), req)
			if err != nil {
				errs <- err
				return
			}
			if kid, _ := ExtractKID(sig); kid != req.KID {
				errs <- fmt.Errorf("worker %d: kid %q", i, kid)
				return
			}
			errs <- Verify([]byte(pubPEM), sig, req)
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestSignerFunc(t *testing.T) {
	var got Request
	f := SignerFunc(func(_ context.Context, req Request) (string, error) {
		got = req
		return "SIG123", nil
	})

	sig, err := f.SignRequest(context.Background(), Request{Path: "/x", KID: "k"})
	require.NoError(t, err)
	assert.Equal(t, "SIG123", sig)
	assert.Equal(t, "/x", got.Path)
}

func TestSignerError(t *testing.T) {
	inner := stderrors.New("boom")
	err := &SignerError{Op: "sign", Msg: "jws signing failed", Err: inner}
	assert.Equal(t, "sign: jws signing failed: boom", err.Error())
	assert.True(t, stderrors.Is(err, inner))

	assert.Equal(t, "sign: kid is required", (&SignerError{Op: "sign", Msg: "kid is required"}).Error())
}
