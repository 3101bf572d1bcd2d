/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package verifiable

import (
	"fmt"
	"time"

	josejwt "github.com/go-jose/go-jose/v3/jwt"
	"github.com/google/uuid"

	"github.com/vctestsuite/vc-test-generator/pkg/doc/jwt"
)

// JWTPresClaims is JWT Claims extension by Verifiable Presentation (with custom "vp" claim).
type JWTPresClaims struct {
	*jwt.Claims

	Presentation *rawPresentation `json:"vp,omitempty"`
}

// NewJWTPresClaims wraps a signed JWT credential into JWT Claims of a presentation.
//
// The "vp" claim holds the base context and type, and the credential JWT as the only
// verifiableCredential. Non-empty holder goes to iss and non-empty audience to aud.
// jti is a fresh urn:uuid, iat and nbf are set to the current time.
func NewJWTPresClaims(vcJWT, holder, audience string) (*JWTPresClaims, error) {
	if !jwt.IsJWS(vcJWT) {
		return nil, fmt.Errorf("%w: credential is not a compact JWS", jwt.ErrMalformed)
	}

	now := josejwt.NewNumericDate(time.Now())

	jwtClaims := &jwt.Claims{
		Issuer:    holder,           // iss
		ID:        uuid.New().URN(), // jti
		IssuedAt:  now,              // iat
		NotBefore: now,              // nbf
	}

	if audience != "" {
		jwtClaims.Audience = josejwt.Audience{audience}
	}

	return &JWTPresClaims{
		Claims: jwtClaims,
		Presentation: &rawPresentation{
			Context:     []string{baseContext},
			Type:        []string{vpType},
			Credentials: []interface{}{vcJWT},
		},
	}, nil
}
