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

package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for comparison with errors.Is
var (
	ErrMissingFields     = errors.New("missing required fields")
	ErrSigningFailed     = errors.New("signing failed")
	ErrInvalidPrivateKey = errors.New("invalid private key")
	ErrUnsupportedKey    = errors.New("unsupported key")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrInvalidJSON       = errors.New("invalid JSON body")
	ErrBodyTooLarge      = errors.New("request body too large")
	ErrInvalidConfig     = errors.New("invalid configuration")
)

// Wrap functions for consistent error wrapping
func WrapMissingFields(fields ...string) error {
	return fmt.Errorf("%w: %v", ErrMissingFields, fields)
}

func WrapInvalidPrivateKey(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidPrivateKey, err)
}

func WrapUnsupportedKey(msg string) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedKey, msg)
}

func WrapInvalidSignature(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidSignature, msg)
}

func WrapInvalidJSON(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidJSON, err)
}

func WrapBodyTooLarge(limit int64) error {
	return fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, limit)
}

func WrapConfigError(msg string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
	}
	return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, msg, err)
}
