/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v3"
	"github.com/go-jose/go-jose/v3/jwt"
	"github.com/stretchr/testify/require"
)

type CustomClaim struct {
	*Claims

	PrivateClaim1 string `json:"privateClaim1,omitempty"`
}

func TestNewSigned(t *testing.T) {
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	claims := &CustomClaim{
		Claims: &Claims{
			Issuer:    "iss",
			Subject:   "sub",
			Audience:  []string{"aud"},
			Expiry:    jwt.NewNumericDate(time.Unix(1600000000, 0)),
			NotBefore: jwt.NewNumericDate(time.Unix(1500000000, 0)),
			ID:        "id",
		},
		PrivateClaim1: "private claim",
	}

	t.Run("RS256 with kid", func(t *testing.T) {
		token, err := NewSigned(claims, NewRS256Signer(privKey, map[string]interface{}{HeaderKeyID: "key-1"}))
		require.NoError(t, err)

		alg, ok := token.Headers.Algorithm()
		require.True(t, ok)
		require.Equal(t, "RS256", alg)

		require.Equal(t, TypeJWT, token.Headers[HeaderType])

		kid, ok := token.Headers.KeyID()
		require.True(t, ok)
		require.Equal(t, "key-1", kid)

		serialized, err := token.Serialize()
		require.NoError(t, err)

		var parsedClaims CustomClaim
		require.NoError(t, verifyRS256ViaGoJose(serialized, &privKey.PublicKey, &parsedClaims))
		require.Equal(t, *claims, parsedClaims)
	})

	t.Run("nil claims", func(t *testing.T) {
		token, err := NewSigned(nil, NewRS256Signer(privKey, nil))
		require.Error(t, err)
		require.Contains(t, err.Error(), "unmarshallable claims")
		require.Nil(t, token)
	})

	t.Run("unmarshallable claims", func(t *testing.T) {
		token, err := NewSigned(map[string]interface{}{"ch": make(chan int)}, NewRS256Signer(privKey, nil))
		require.Error(t, err)
		require.Nil(t, token)
	})
}

func TestParse(t *testing.T) {
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	claims := map[string]interface{}{"iss": "Albert", "nbf": 1500000000}

	token, err := SignRS256(claims, privKey, "")
	require.NoError(t, err)

	t.Run("without verifier", func(t *testing.T) {
		parsed, payload, err := Parse(token)
		require.NoError(t, err)
		require.NotNil(t, parsed)
		require.JSONEq(t, `{"iss":"Albert","nbf":1500000000}`, string(payload))
		require.Equal(t, "Albert", parsed.Payload["iss"])
		require.Equal(t, json.Number("1500000000"), parsed.Payload["nbf"])

		_, ok := parsed.Headers.KeyID()
		require.False(t, ok)
	})

	t.Run("with verifier", func(t *testing.T) {
		parsed, _, err := Parse(token, WithSignatureVerifier(NewRS256Verifier(&privKey.PublicKey)))
		require.NoError(t, err)
		require.Equal(t, "Albert", parsed.Payload["iss"])
	})

	t.Run("ignore claims map decoding", func(t *testing.T) {
		parsed, payload, err := Parse(token, WithIgnoreClaimsMapDecoding(true))
		require.NoError(t, err)
		require.Nil(t, parsed.Payload)
		require.NotEmpty(t, payload)
	})

	t.Run("not a compact JWS", func(t *testing.T) {
		for _, s := range []string{"", "abc", "a.b", "a.b.c", token + ".extra"} {
			_, _, err := Parse(s)
			require.ErrorIs(t, err, ErrMalformed, s)
		}
	})

	t.Run("empty signature part", func(t *testing.T) {
		parts := strings.Split(token, ".")

		_, _, err := Parse(parts[0] + "." + parts[1] + ".")
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("typ is not JWT", func(t *testing.T) {
		signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.RS256, Key: privKey},
			(&jose.SignerOptions{}).WithType("JOSE"))
		require.NoError(t, err)

		jws, err := signer.Sign([]byte(`{"iss":"x"}`))
		require.NoError(t, err)

		compact, err := jws.CompactSerialize()
		require.NoError(t, err)

		_, _, err = Parse(compact)
		require.ErrorIs(t, err, ErrMalformed)
		require.Contains(t, err.Error(), "typ is not JWT")
	})

	t.Run("explicit typing", func(t *testing.T) {
		signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.RS256, Key: privKey},
			(&jose.SignerOptions{}).WithType("vc+jwt"))
		require.NoError(t, err)

		jws, err := signer.Sign([]byte(`{"iss":"x"}`))
		require.NoError(t, err)

		compact, err := jws.CompactSerialize()
		require.NoError(t, err)

		_, _, err = Parse(compact)
		require.NoError(t, err)
	})

	t.Run("nested JWT", func(t *testing.T) {
		signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.RS256, Key: privKey},
			(&jose.SignerOptions{}).WithContentType(TypeJWT))
		require.NoError(t, err)

		jws, err := signer.Sign([]byte(`{"iss":"x"}`))
		require.NoError(t, err)

		compact, err := jws.CompactSerialize()
		require.NoError(t, err)

		_, _, err = Parse(compact)
		require.ErrorIs(t, err, ErrMalformed)
		require.Contains(t, err.Error(), "nested JWT is not supported")
	})
}

func TestParseCompactJWT(t *testing.T) {
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	token, err := SignRS256(map[string]interface{}{"sub": "did:example:1"}, privKey, "kid-1")
	require.NoError(t, err)

	parsed, err := ParseCompactJWT(token)
	require.NoError(t, err)
	require.Equal(t, "did:example:1", parsed.Payload["sub"])

	kid, ok := parsed.Headers.KeyID()
	require.True(t, ok)
	require.Equal(t, "kid-1", kid)

	serialized, err := parsed.Serialize()
	require.NoError(t, err)
	require.Equal(t, token, serialized)

	_, err = ParseCompactJWT("not a token")
	require.ErrorIs(t, err, ErrMalformed)
}

func TestJSONWebToken_Serialize(t *testing.T) {
	_, err := (&JSONWebToken{}).Serialize()
	require.EqualError(t, err, "JWS serialization is supported only")
}

func TestIsJWS(t *testing.T) {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"iss":"x"}`))

	require.True(t, IsJWS(header+"."+payload+".c2ln"))
	require.False(t, IsJWS(header+"."+payload+"."))
	require.False(t, IsJWS(header+".bm90IGpzb24.c2ln"))
	require.False(t, IsJWS(header+"."+payload))
	require.False(t, IsJWS("!!!."+payload+".c2ln"))
}

func TestPayloadToMap(t *testing.T) {
	m, err := PayloadToMap(map[string]interface{}{"a": "b"})
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{"a": "b"}, m)

	m, err = PayloadToMap([]byte(`{"n":1.50}`))
	require.NoError(t, err)
	require.Equal(t, json.Number("1.50"), m["n"])

	m, err = PayloadToMap(`{"s":"v"}`)
	require.NoError(t, err)
	require.Equal(t, "v", m["s"])

	m, err = PayloadToMap(&Claims{Issuer: "iss"})
	require.NoError(t, err)
	require.Equal(t, "iss", m["iss"])

	var nilClaims *Claims

	_, err = PayloadToMap(nilClaims)
	require.EqualError(t, err, "nil claims")

	_, err = PayloadToMap(nil)
	require.EqualError(t, err, "nil claims")

	_, err = PayloadToMap([]string{"not", "an", "object"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "convert to map")

	_, err = PayloadToMap(make(chan int))
	require.Error(t, err)
	require.Contains(t, err.Error(), "marshal interface")
}

func verifyRS256ViaGoJose(compact string, pubKey *rsa.PublicKey, claims interface{}) error {
	parsed, err := jwt.ParseSigned(compact)
	if err != nil {
		return err
	}

	return parsed.Claims(pubKey, claims)
}
