/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jwt

import (
	"crypto/rsa"
	"fmt"

	"github.com/go-jose/go-jose/v3"
)

// Signer provides the key and headers used to sign a token.
type Signer interface {
	SigningKey() jose.SigningKey
	Headers() Headers
}

// RS256Signer is a Jose compliant signer.
type RS256Signer struct {
	privKey *rsa.PrivateKey
	headers Headers
}

// NewRS256Signer returns a Jose compliant signer that can be passed as a signer to jwt.NewSigned().
func NewRS256Signer(privKey *rsa.PrivateKey, headers map[string]interface{}) *RS256Signer {
	return &RS256Signer{
		privKey: privKey,
		headers: prepareJWSHeaders(headers, string(jose.RS256)),
	}
}

// SigningKey returns RS256 signing key.
func (s RS256Signer) SigningKey() jose.SigningKey {
	return jose.SigningKey{Algorithm: jose.RS256, Key: s.privKey}
}

// Headers returns the signer's headers map.
func (s RS256Signer) Headers() Headers {
	return s.headers
}

// RS256Verifier is a Jose compliant verifier.
type RS256Verifier struct {
	pubKey *rsa.PublicKey
}

// NewRS256Verifier returns a Jose compliant verifier that can be passed as a verifier option to jwt.Parse().
func NewRS256Verifier(pubKey *rsa.PublicKey) *RS256Verifier {
	return &RS256Verifier{pubKey: pubKey}
}

// Verify checks the JWS signature. It also validates that the protected header carries RS256 alg.
func (v RS256Verifier) Verify(jws *jose.JSONWebSignature) ([]byte, error) {
	if len(jws.Signatures) != 1 {
		return nil, fmt.Errorf("%w: expected one signature, got %d", ErrInvalidSignature, len(jws.Signatures))
	}

	if alg := jws.Signatures[0].Protected.Algorithm; alg != string(jose.RS256) {
		return nil, fmt.Errorf("%w: alg is not RS256: %q", ErrInvalidSignature, alg)
	}

	payload, err := jws.Verify(v.pubKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	return payload, nil
}

// SignRS256 signs claims as a compact JWS with alg RS256 and typ JWT.
// Non-empty keyID is put into the kid header.
func SignRS256(claims interface{}, privKey *rsa.PrivateKey, keyID string) (string, error) {
	var headers map[string]interface{}

	if keyID != "" {
		headers = map[string]interface{}{HeaderKeyID: keyID}
	}

	token, err := NewSigned(claims, NewRS256Signer(privKey, headers))
	if err != nil {
		return "", err
	}

	return token.Serialize()
}

// VerifyRS256 verifies the RS256 signature of a compact JWS and returns its payload.
// Signature failures wrap ErrInvalidSignature, structural failures wrap ErrMalformed.
func VerifyRS256(jwtSerialized string, pubKey *rsa.PublicKey) ([]byte, error) {
	_, payload, err := Parse(jwtSerialized,
		WithSignatureVerifier(NewRS256Verifier(pubKey)),
		WithIgnoreClaimsMapDecoding(true))
	if err != nil {
		return nil, err
	}

	return payload, nil
}

func prepareJWSHeaders(headers map[string]interface{}, alg string) Headers {
	newHeaders := make(Headers)

	for k, v := range headers {
		newHeaders[k] = v
	}

	newHeaders[HeaderAlgorithm] = alg

	return newHeaders
}
