/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package verifiable

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vctestsuite/vc-test-generator/pkg/doc/ld"
	jsonutil "github.com/vctestsuite/vc-test-generator/pkg/doc/util/json"
)

const minimalCredential = `{
  "@context": ["https://www.w3.org/2018/credentials/v1"],
  "type": ["VerifiableCredential"],
  "issuer": "did:example:123",
  "issuanceDate": "2020-01-01T00:00:00Z",
  "credentialSubject": {"id": "did:example:456"}
}`

const fullCredential = `{
  "@context": [
    "https://www.w3.org/2018/credentials/v1",
    "https://www.w3.org/2018/credentials/examples/v1",
    {"ageOver": "https://example.org/terms#ageOver"}
  ],
  "id": "http://example.edu/credentials/1872",
  "type": ["VerifiableCredential", "AlumniCredential"],
  "issuer": {"id": "did:example:76e12ec712ebc6f1c221ebfeb1f", "name": "Example University"},
  "issuanceDate": "2010-01-01T19:23:24.000Z",
  "expirationDate": "2030-01-01T19:23:24Z",
  "credentialSubject": {
    "id": "did:example:ebfeb1f712ebc6f1c276e12ec21",
    "alumniOf": "Example University",
    "ageOver": 21,
    "score": 9007199254740993
  },
  "credentialStatus": {
    "id": "https://example.edu/status/24",
    "type": "CredentialStatusList2017"
  },
  "credentialSchema": {
    "id": "https://example.org/examples/degree.json",
    "type": "JsonSchemaValidator2018"
  },
  "refreshService": [{
    "id": "https://example.edu/refresh/3732",
    "type": "ManualRefreshService2018"
  }],
  "termsOfUse": {
    "type": "IssuerPolicy",
    "prohibition": [{"action": ["Archival"]}]
  },
  "evidence": [{
    "id": "https://example.edu/evidence/f2aeec97",
    "type": ["DocumentVerification"],
    "verifier": "https://example.edu/issuers/14"
  }],
  "proof": {
    "type": "RsaSignature2018",
    "created": "2017-06-18T21:19:10Z",
    "jws": "eyJhbGciOiJQUzI1NiIsImI2NCI6ZmFsc2UsImNyaXQiOlsiYjY0Il19..DJBMvvFAIC00nSGB6Tn0XKbbF9XrsaJZREWvR2aONYTQQxnyXirtXnlewJMBBn2h9hfcGZrvnC1b6PgWmukzFJ1IiH1dWgnDIS81BH-IxXnPkbuYDeySorc4QU9MJxdVkY5EL4HYbcIfwKj6X4LBQ2_ZHZIu1jdqLcRZqHcsDF5KKylKc1THn5VRWy5WhYg_gBnyWny8E6Qkrze53MR7OuAmmNJ1m1nN8SxDrG6a08L78J0-Fbas5OjAQz3c17GY8mVuDPOBIOVjMEghBlgl3nOi1ysxbRGhHLEK4s0KKbeRogZdgt1DkQxDFxxn41QWDw_mmMCjs9qxg0zcZzqEJw",
    "verificationMethod": "https://example.com/jdoe/keys/1"
  },
  "referenceNumber": 83294847
}`

const minimalPresentation = `{
  "@context": "https://www.w3.org/2018/credentials/v1",
  "type": "VerifiablePresentation",
  "holder": "did:example:ebfeb1f712ebc6f1c276e12ec21",
  "verifiableCredential": [` + minimalCredential + `]
}`

// testCredentialsContext defines the terms of the credentials and presentations used in JSON-LD tests.
const testCredentialsContext = `{
  "@context": {
    "id": "@id",
    "type": "@type",
    "VerifiableCredential": "https://www.w3.org/2018/credentials#VerifiableCredential",
    "VerifiablePresentation": "https://www.w3.org/2018/credentials#VerifiablePresentation",
    "holder": {"@id": "https://www.w3.org/2018/credentials#holder", "@type": "@id"},
    "verifiableCredential": {"@id": "https://www.w3.org/2018/credentials#verifiableCredential", "@type": "@id"},
    "credentialSubject": {"@id": "https://www.w3.org/2018/credentials#credentialSubject", "@type": "@id"},
    "issuer": {"@id": "https://www.w3.org/2018/credentials#issuer", "@type": "@id"},
    "issuanceDate": {
      "@id": "https://www.w3.org/2018/credentials#issuanceDate",
      "@type": "http://www.w3.org/2001/XMLSchema#dateTime"
    }
  }
}`

const testExtraContext = `{
  "@context": {
    "alumniOf": "https://schema.org/alumniOf"
  }
}`

const testExtraContextURL = "https://example.org/contexts/alumni"

func createTestDocumentLoader(t *testing.T) *ld.DocumentLoader {
	t.Helper()

	loader, err := ld.NewDocumentLoader(ld.WithExtraContexts(
		ld.Document{URL: baseContext, Content: json.RawMessage(testCredentialsContext)},
		ld.Document{URL: testExtraContextURL, Content: json.RawMessage(testExtraContext)},
	))
	require.NoError(t, err)

	return loader
}

func (vc *Credential) stringJSON(t *testing.T) string {
	t.Helper()

	bytes, err := json.Marshal(vc)
	require.NoError(t, err)

	return string(bytes)
}

func (vp *Presentation) stringJSON(t *testing.T) string {
	t.Helper()

	bytes, err := json.Marshal(vp)
	require.NoError(t, err)

	return string(bytes)
}

// toMap decodes JSON keeping numbers as json.Number.
func toMap(t *testing.T, v interface{}) map[string]interface{} {
	t.Helper()

	m, err := jsonutil.ToMap(v)
	require.NoError(t, err)

	return m
}
