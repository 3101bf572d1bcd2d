/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jwk

import (
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v3"
)

// ErrInvalidKey is returned when passed JWK is invalid.
var ErrInvalidKey = errors.New("invalid JWK")

// ErrNotRSA is returned when JWK is valid but does not hold an RSA private key.
var ErrNotRSA = errors.New("JWK is not an RSA private key")

// RSAKey is an RSA private key read from a JSON Web Key.
type RSAKey struct {
	PrivateKey *rsa.PrivateKey
	KeyID      string
}

// Public returns the public half of the key.
func (k *RSAKey) Public() *rsa.PublicKey {
	return &k.PrivateKey.PublicKey
}

// ParseRSAJWK parses JSON object bytes as a JSON Web Key holding an RSA private key.
func ParseRSAJWK(raw []byte) (*RSAKey, error) {
	var key jose.JSONWebKey

	if err := key.UnmarshalJSON(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	priv, ok := key.Key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrNotRSA, key.Key)
	}

	if err := priv.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	return &RSAKey{PrivateKey: priv, KeyID: key.KeyID}, nil
}
