/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jwt

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-jose/go-jose/v3"
	"github.com/go-jose/go-jose/v3/jwt"
)

const (
	// TypeJWT defines JWT type.
	TypeJWT = "JWT"

	// HeaderAlgorithm identifies the signature algorithm.
	HeaderAlgorithm = "alg"
	// HeaderKeyID identifies the signing key.
	HeaderKeyID = "kid"
	// HeaderType is the media type of the token.
	HeaderType = "typ"
	// HeaderContentType is the content type of the payload.
	HeaderContentType = "cty"
)

var (
	// ErrMalformed is returned when a token is not a compact JWS with JSON header and payload.
	ErrMalformed = errors.New("malformed JWT")

	// ErrInvalidSignature is returned when a signature of a token does not verify.
	ErrInvalidSignature = errors.New("invalid JWT signature")
)

// Claims defines JSON Web Token Claims (https://tools.ietf.org/html/rfc7519#section-4)
type Claims jwt.Claims

// Headers are the protected JOSE headers of a token.
type Headers map[string]interface{}

// Algorithm returns "alg" header.
func (h Headers) Algorithm() (string, bool) {
	return h.stringValue(HeaderAlgorithm)
}

// KeyID returns "kid" header.
func (h Headers) KeyID() (string, bool) {
	return h.stringValue(HeaderKeyID)
}

func (h Headers) stringValue(name string) (string, bool) {
	v, ok := h[name].(string)

	return v, ok
}

// SignatureVerifier checks the signature of a parsed JWS and returns its verified payload.
type SignatureVerifier interface {
	Verify(jws *jose.JSONWebSignature) ([]byte, error)
}

// parseOpts holds options for the JWT parsing.
type parseOpts struct {
	sigVerifier             SignatureVerifier
	ignoreClaimsMapDecoding bool
}

// ParseOpt is the JWT Parser option.
type ParseOpt func(opts *parseOpts)

// WithSignatureVerifier option makes Parse check the token signature.
// Without it the payload is read unverified.
func WithSignatureVerifier(signatureVerifier SignatureVerifier) ParseOpt {
	return func(opts *parseOpts) {
		opts.sigVerifier = signatureVerifier
	}
}

// WithIgnoreClaimsMapDecoding option skips decoding of claims into JSONWebToken.Payload.
func WithIgnoreClaimsMapDecoding(ignoreClaimsMapDecoding bool) ParseOpt {
	return func(opts *parseOpts) {
		opts.ignoreClaimsMapDecoding = ignoreClaimsMapDecoding
	}
}

// JSONWebToken defines JSON Web Token (https://tools.ietf.org/html/rfc7519)
type JSONWebToken struct {
	Headers Headers

	Payload map[string]interface{}

	jws *jose.JSONWebSignature
}

// Parse parses a JWT in compact JWS serialization.
// It returns the token and its raw payload.
func Parse(jwtSerialized string, opts ...ParseOpt) (*JSONWebToken, []byte, error) {
	if !IsJWS(jwtSerialized) {
		return nil, nil, fmt.Errorf("%w: JWT of compacted JWS form is supported only", ErrMalformed)
	}

	pOpts := &parseOpts{}

	for _, opt := range opts {
		opt(pOpts)
	}

	jws, err := jose.ParseSigned(jwtSerialized)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: parse JWT from compact JWS: %v", ErrMalformed, err)
	}

	headers := mapHeaders(jws)

	if err = checkHeaders(headers); err != nil {
		return nil, nil, fmt.Errorf("%w: check JWT headers: %v", ErrMalformed, err)
	}

	var payload []byte

	if pOpts.sigVerifier != nil {
		payload, err = pOpts.sigVerifier.Verify(jws)
		if err != nil {
			return nil, nil, err
		}
	} else {
		payload = jws.UnsafePayloadWithoutVerification()
	}

	token := &JSONWebToken{
		Headers: headers,
		jws:     jws,
	}

	if !pOpts.ignoreClaimsMapDecoding {
		claims, err := PayloadToMap(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: read JWT claims from JWS payload: %v", ErrMalformed, err)
		}

		token.Payload = claims
	}

	return token, payload, nil
}

// ParseCompactJWT parses a compact JWT without checking its signature.
func ParseCompactJWT(jwtSerialized string) (*JSONWebToken, error) {
	token, _, err := Parse(jwtSerialized)

	return token, err
}

// Serialize makes compact serialization of token.
func (j *JSONWebToken) Serialize() (string, error) {
	if j.jws == nil {
		return "", errors.New("JWS serialization is supported only")
	}

	return j.jws.CompactSerialize()
}

// NewSigned creates new signed JSON Web Token based on input claims.
func NewSigned(claims interface{}, signer Signer) (*JSONWebToken, error) {
	payloadMap, err := PayloadToMap(claims)
	if err != nil {
		return nil, fmt.Errorf("unmarshallable claims: %w", err)
	}

	payloadBytes, err := json.Marshal(payloadMap)
	if err != nil {
		return nil, fmt.Errorf("marshal JWT claims: %w", err)
	}

	signerOpts := (&jose.SignerOptions{}).WithType(TypeJWT)

	for k, v := range signer.Headers() {
		if k == HeaderAlgorithm {
			continue
		}

		signerOpts = signerOpts.WithHeader(jose.HeaderKey(k), v)
	}

	joseSigner, err := jose.NewSigner(signer.SigningKey(), signerOpts)
	if err != nil {
		return nil, fmt.Errorf("create JWS signer: %w", err)
	}

	signed, err := joseSigner.Sign(payloadBytes)
	if err != nil {
		return nil, fmt.Errorf("create JWS: %w", err)
	}

	compact, err := signed.CompactSerialize()
	if err != nil {
		return nil, fmt.Errorf("serialize JWS: %w", err)
	}

	// reparse so that protected headers are populated the same way as for parsed tokens
	jws, err := jose.ParseSigned(compact)
	if err != nil {
		return nil, fmt.Errorf("parse created JWS: %w", err)
	}

	return &JSONWebToken{
		Headers: mapHeaders(jws),
		Payload: payloadMap,
		jws:     jws,
	}, nil
}

// IsJWS checks if JWT is a JWS of valid structure.
func IsJWS(s string) bool {
	parts := strings.Split(s, ".")

	return len(parts) == 3 &&
		isValidJSON(parts[0]) &&
		isValidJSON(parts[1]) &&
		parts[2] != ""
}

func isValidJSON(s string) bool {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return false
	}

	var j map[string]interface{}
	err = json.Unmarshal(b, &j)

	return err == nil
}

func mapHeaders(jws *jose.JSONWebSignature) Headers {
	headers := make(Headers)

	if len(jws.Signatures) == 0 {
		return headers
	}

	h := jws.Signatures[0].Protected

	for k, v := range h.ExtraHeaders {
		headers[string(k)] = v
	}

	if h.Algorithm != "" {
		headers[HeaderAlgorithm] = h.Algorithm
	}

	if h.KeyID != "" {
		headers[HeaderKeyID] = h.KeyID
	}

	return headers
}

func checkHeaders(headers Headers) error {
	if _, ok := headers.Algorithm(); !ok {
		return errors.New("alg header is not defined")
	}

	if typ, ok := headers[HeaderType]; ok {
		if err := checkTypHeader(typ); err != nil {
			return err
		}
	}

	if cty, ok := headers[HeaderContentType]; ok && cty == TypeJWT { // https://tools.ietf.org/html/rfc7519#section-5.2
		return errors.New("nested JWT is not supported")
	}

	return nil
}

func checkTypHeader(typ interface{}) error {
	typStr, ok := typ.(string)
	if !ok {
		return errors.New("invalid typ header format")
	}

	chunks := strings.Split(typStr, "+")
	if len(chunks) > 1 {
		// explicit typing, https://www.rfc-editor.org/rfc/rfc8725.html#name-use-explicit-typing
		if strings.ToUpper(chunks[1]) != TypeJWT {
			return errors.New("invalid typ header")
		}

		return nil
	}

	if strings.ToUpper(typStr) != TypeJWT {
		return errors.New("typ is not JWT")
	}

	return nil
}

// PayloadToMap transforms interface to map.
func PayloadToMap(i interface{}) (map[string]interface{}, error) {
	if m, ok := i.(map[string]interface{}); ok {
		return m, nil
	}

	if i == nil || (reflect.ValueOf(i).Kind() == reflect.Ptr && reflect.ValueOf(i).IsNil()) {
		return nil, errors.New("nil claims")
	}

	var (
		b   []byte
		err error
	)

	switch cv := i.(type) {
	case []byte:
		b = cv
	case string:
		b = []byte(cv)
	default:
		b, err = json.Marshal(i)
		if err != nil {
			return nil, fmt.Errorf("marshal interface[%T]: %w", i, err)
		}
	}

	var m map[string]interface{}

	d := json.NewDecoder(bytes.NewReader(b))
	d.UseNumber()

	if err := d.Decode(&m); err != nil {
		return nil, fmt.Errorf("convert to map: %w", err)
	}

	return m, nil
}
