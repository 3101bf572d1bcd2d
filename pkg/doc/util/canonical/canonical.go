/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

// Package canonical serializes documents printed by the generator in canonical JSON form:
// object keys sorted, no insignificant whitespace, canonical number and string encoding.
package canonical

import (
	"encoding/json"
	"fmt"

	canonicaljson "github.com/gibson042/canonicaljson-go"

	jsonutil "github.com/vctestsuite/vc-test-generator/pkg/doc/util/json"
)

// Marshal marshals v with its own JSON marshaller and canonicalizes the result.
func Marshal(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}

	return FromRaw(raw)
}

// FromRaw canonicalizes raw JSON bytes. Numbers keep their digits.
func FromRaw(raw []byte) ([]byte, error) {
	var doc interface{}

	if err := jsonutil.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	out, err := canonicaljson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("canonicalize document: %w", err)
	}

	return out, nil
}
