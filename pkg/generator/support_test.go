/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package generator

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/go-jose/go-jose/v3"
	"github.com/stretchr/testify/require"
)

const minimalCredential = `{"@context":["https://www.w3.org/2018/credentials/v1"],"type":["VerifiableCredential"],` +
	`"issuer":"did:example:123","issuanceDate":"2020-01-01T00:00:00Z","credentialSubject":{"id":"did:example:456"}}`

const alumniCredential = `{
  "@context": [
    "https://www.w3.org/2018/credentials/v1",
    "https://www.w3.org/2018/credentials/examples/v1"
  ],
  "id": "http://example.edu/credentials/1872",
  "type": ["VerifiableCredential", "AlumniCredential"],
  "issuer": {"id": "did:example:76e12ec712ebc6f1c221ebfeb1f", "name": "Example University"},
  "issuanceDate": "2010-01-01T19:23:24Z",
  "expirationDate": "2030-01-01T19:23:24Z",
  "credentialSubject": {
    "id": "did:example:ebfeb1f712ebc6f1c276e12ec21",
    "alumniOf": {"id": "did:example:c276e12ec21ebfeb1f712ebc6f1", "name": "Example University"},
    "graduationYear": 2009
  },
  "credentialStatus": {"id": "https://example.edu/status/24", "type": "CredentialStatusList2017"}
}
`

const nullsAndNumbersCredential = `{
  "@context": ["https://www.w3.org/2018/credentials/v1"],
  "type": ["VerifiableCredential"],
  "issuer": "did:example:123",
  "issuanceDate": "2020-01-01T00:00:00Z",
  "credentialSubject": {"id": "did:example:456", "n": 12345678901234567891},
  "proof": null,
  "termsOfUse": null,
  "credentialSchema": null,
  "refreshService": null
}`

const minimalPresentation = `{
  "@context": ["https://www.w3.org/2018/credentials/v1"],
  "type": ["VerifiablePresentation"],
  "holder": "did:example:ebfeb1f712ebc6f1c276e12ec21",
  "verifiableCredential": [` + minimalCredential + `]
}`

func newTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	return privateKey
}

// newTestKeyBlob packs the key the way the VC test suite config does.
func newTestKeyBlob(t *testing.T, privateKey *rsa.PrivateKey, keyID string) string {
	t.Helper()

	jwkBytes, err := jose.JSONWebKey{Key: privateKey, KeyID: keyID, Algorithm: string(jose.RS256)}.MarshalJSON()
	require.NoError(t, err)

	blob, err := json.Marshal(map[string]interface{}{
		KeyBlobField:          json.RawMessage(jwkBytes),
		"es256kPrivateKeyJwk": map[string]interface{}{"kty": "EC", "crv": "secp256k1"},
	})
	require.NoError(t, err)

	return base64.StdEncoding.EncodeToString(blob)
}

func newTestGenerator(t *testing.T, opts *Options) *Generator {
	t.Helper()

	g, err := New(opts)
	require.NoError(t, err)

	return g
}

func requireErrorType(t *testing.T, err error, errType Type) {
	t.Helper()

	require.Error(t, err)

	genErr, ok := err.(Error) //nolint:errorlint
	require.True(t, ok, "not a generator error: %v", err)
	require.Equal(t, errType, genErr.Type())
}
