/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package verifiable

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	josejwt "github.com/go-jose/go-jose/v3/jwt"

	"github.com/vctestsuite/vc-test-generator/pkg/doc/jwt"
	jsonutil "github.com/vctestsuite/vc-test-generator/pkg/doc/util/json"
)

const (
	vcIssuanceDateField   = "issuanceDate"
	vcIDField             = "id"
	vcExpirationDateField = "expirationDate"
	vcIssuerField         = "issuer"
	vcIssuerIDField       = "id"
	vcSubjectField        = "credentialSubject"
	vcSubjectIDField      = "id"
)

// JWTCredClaims is JWT Claims extension by Verifiable Credential (with custom "vc" claim).
type JWTCredClaims struct {
	*jwt.Claims

	VC map[string]interface{} `json:"vc,omitempty"`
}

// ParseJWTCredClaims reads JWT claims of a credential from the JWS payload.
func ParseJWTCredClaims(payload []byte) (*JWTCredClaims, error) {
	claims := &JWTCredClaims{}

	if err := jsonutil.Unmarshal(payload, claims); err != nil {
		return nil, fmt.Errorf("unmarshal JWT credential claims: %w", err)
	}

	if claims.Claims == nil {
		claims.Claims = &jwt.Claims{}
	}

	return claims, nil
}

// JWTClaims converts Verifiable Credential into JWT Credential claims, which can be then serialized
// e.g. into JWS.
//
// Fields carried by registered claims are removed from "vc" claim: id (jti), issuer id (iss),
// issuanceDate (nbf), expirationDate (exp) and the id of a single subject (sub).
// Non-empty audience is put into aud claim.
func (vc *Credential) JWTClaims(audience string) (*JWTCredClaims, error) {
	return newJWTCredClaims(vc, audience)
}

func newJWTCredClaims(vc *Credential, audience string) (*JWTCredClaims, error) {
	raw, err := vc.raw()
	if err != nil {
		return nil, fmt.Errorf("build raw credential: %w", err)
	}

	// a fresh map decoded from JSON, so that minimization does not touch vc
	vcMap, err := jsonutil.ToMap(raw)
	if err != nil {
		return nil, fmt.Errorf("convert credential to JSON object: %w", err)
	}

	jwtClaims := &jwt.Claims{}

	if vc.ID != "" {
		jwtClaims.ID = vc.ID // jti
		delete(vcMap, vcIDField)
	}

	if vc.Issuer != nil && vc.Issuer.ID != "" {
		jwtClaims.Issuer = vc.Issuer.ID // iss
		minimizeIssuer(vcMap)
	}

	if vc.Issued != nil {
		jwtClaims.NotBefore = josejwt.NewNumericDate(vc.Issued.Time) // nbf
		delete(vcMap, vcIssuanceDateField)
	}

	if vc.Expired != nil {
		jwtClaims.Expiry = josejwt.NewNumericDate(vc.Expired.Time) // exp
		delete(vcMap, vcExpirationDateField)
	}

	// currently jwt encoding supports only single subject
	if subject := singleSubject(vcMap[vcSubjectField]); subject != nil {
		if subjectID, ok := subject[vcSubjectIDField].(string); ok && subjectID != "" {
			jwtClaims.Subject = subjectID // sub
			delete(subject, vcSubjectIDField)
		}
	}

	if audience != "" {
		jwtClaims.Audience = josejwt.Audience{audience}
	}

	return &JWTCredClaims{
		Claims: jwtClaims,
		VC:     vcMap,
	}, nil
}

func minimizeIssuer(vcMap map[string]interface{}) {
	switch issuer := vcMap[vcIssuerField].(type) {
	case string:
		delete(vcMap, vcIssuerField)
	case map[string]interface{}:
		delete(issuer, vcIssuerIDField)
	}
}

// singleSubject returns the subject object if credentialSubject is one object or an array of one object.
func singleSubject(subject interface{}) map[string]interface{} {
	switch s := subject.(type) {
	case map[string]interface{}:
		return s
	case []interface{}:
		if len(s) != 1 {
			return nil
		}

		m, _ := s[0].(map[string]interface{})

		return m
	default:
		return nil
	}
}

// Credential converts JWT claims back into Verifiable Credential.
// The "vc" claim is refined with the registered claims and parsed with ParseCredential.
func (jcc *JWTCredClaims) Credential(opts ...CredentialOpt) (*Credential, error) {
	vcData, err := jcc.credentialJSON()
	if err != nil {
		return nil, err
	}

	vc, err := ParseCredential(vcData, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse credential from JWT claims: %w", err)
	}

	return vc, nil
}

func (jcc *JWTCredClaims) credentialJSON() ([]byte, error) {
	if jcc.VC == nil {
		return nil, errors.New("vc claim is not defined")
	}

	vcMap, ok := jsonutil.DeepCopy(jcc.VC).(map[string]interface{})
	if !ok {
		return nil, errors.New("vc claim is not a JSON object")
	}

	claims := jcc.Claims
	if claims == nil {
		claims = &jwt.Claims{}
	}

	refineFromJWTClaims(vcMap, claims)

	vcData, err := json.Marshal(vcMap)
	if err != nil {
		return nil, fmt.Errorf("marshal 'vc' claim of JWT: %w", err)
	}

	return vcData, nil
}

func refineFromJWTClaims(vcMap map[string]interface{}, claims *jwt.Claims) {
	if iss := claims.Issuer; iss != "" {
		refineVCIssuerFromJWTClaims(vcMap, iss)
	}

	if jti := claims.ID; jti != "" {
		vcMap[vcIDField] = jti
	}

	switch {
	case claims.NotBefore != nil:
		vcMap[vcIssuanceDateField] = formatNumericDate(claims.NotBefore)
	case claims.IssuedAt != nil:
		vcMap[vcIssuanceDateField] = formatNumericDate(claims.IssuedAt)
	}

	if exp := claims.Expiry; exp != nil {
		vcMap[vcExpirationDateField] = formatNumericDate(exp)
	}

	if sub := claims.Subject; sub != "" {
		refineVCSubjectFromJWTClaims(vcMap, sub)
	}
}

func formatNumericDate(d *josejwt.NumericDate) string {
	return d.Time().UTC().Format(time.RFC3339)
}

func refineVCIssuerFromJWTClaims(vcMap map[string]interface{}, iss string) {
	// Issuer of Verifiable Credential could be either string (id) or struct (with "id" field).
	if _, exists := vcMap[vcIssuerField]; !exists {
		vcMap[vcIssuerField] = iss
		return
	}

	switch issuer := vcMap[vcIssuerField].(type) {
	case string:
		vcMap[vcIssuerField] = iss
	case map[string]interface{}:
		issuer[vcIssuerIDField] = iss
	}
}

func refineVCSubjectFromJWTClaims(vcMap map[string]interface{}, sub string) {
	if _, exists := vcMap[vcSubjectField]; !exists {
		vcMap[vcSubjectField] = map[string]interface{}{vcSubjectIDField: sub}
		return
	}

	if subject := singleSubject(vcMap[vcSubjectField]); subject != nil {
		subject[vcSubjectIDField] = sub
	}
}
