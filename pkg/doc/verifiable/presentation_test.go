/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package verifiable

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePresentation(t *testing.T) {
	t.Run("creates a new Verifiable Presentation from JSON with valid structure", func(t *testing.T) {
		vp, err := ParsePresentation([]byte(minimalPresentation))
		require.NoError(t, err)
		require.NotNil(t, vp)

		require.Equal(t, baseContext, vp.Context)
		require.Equal(t, vpType, vp.Type)
		require.Equal(t, "did:example:ebfeb1f712ebc6f1c276e12ec21", vp.Holder)

		credentials, ok := vp.Credentials.([]interface{})
		require.True(t, ok)
		require.Len(t, credentials, 1)
	})

	t.Run("round trip keeps the JSON form of the presentation", func(t *testing.T) {
		vpJSON := `{
		  "@context": ["https://www.w3.org/2018/credentials/v1", "https://www.w3.org/2018/credentials/examples/v1"],
		  "id": "urn:uuid:3978344f-8596-4c3a-a978-8fcaba3903c5",
		  "type": ["VerifiablePresentation", "CredentialManagerPresentation"],
		  "verifiableCredential": "eyJhbGciOiJSUzI1NiJ9.eyJpc3MiOiJkaWQ6ZXhhbXBsZToxMjMifQ.c2ln",
		  "proof": {"type": "RsaSignature2018", "nonce": 123456789012345678},
		  "domain": "example.org"
		}`

		vp, err := ParsePresentation([]byte(vpJSON))
		require.NoError(t, err)
		require.Equal(t, CustomFields{"domain": "example.org"}, vp.CustomFields)

		vpStr := vp.stringJSON(t)
		require.JSONEq(t, vpJSON, vpStr)
		require.Contains(t, vpStr, "123456789012345678")
	})

	t.Run("presentation without credentials", func(t *testing.T) {
		vpJSON := `{"@context":"https://www.w3.org/2018/credentials/v1","type":"VerifiablePresentation"}`

		vp, err := ParsePresentation([]byte(vpJSON))
		require.NoError(t, err)
		require.Nil(t, vp.Credentials)

		_, err = ParsePresentation([]byte(vpJSON), WithPresRequireVC())
		require.EqualError(t, err, "verifiableCredential is required")

		_, err = ParsePresentation([]byte(`{"@context":"https://www.w3.org/2018/credentials/v1",
			"type":"VerifiablePresentation","verifiableCredential":[]}`), WithPresRequireVC())
		require.EqualError(t, err, "verifiableCredential is required")

		_, err = ParsePresentation([]byte(minimalPresentation), WithPresRequireVC())
		require.NoError(t, err)
	})

	t.Run("presentation of invalid structure", func(t *testing.T) {
		for _, vpJSON := range []string{
			`{"type":"VerifiablePresentation"}`,
			`{"@context":"https://www.w3.org/2018/credentials/v1","type":"VerifiableCredential"}`,
			`{"@context":"https://example.org/v1","type":"VerifiablePresentation"}`,
			`{"@context":"https://www.w3.org/2018/credentials/v1","type":"VerifiablePresentation","holder":5}`,
		} {
			vp, err := ParsePresentation([]byte(vpJSON))
			require.Error(t, err)
			require.Nil(t, vp)
			require.Contains(t, err.Error(), "verifiable presentation is not valid")

			var schemaErr *SchemaValidationError
			require.True(t, errors.As(err, &schemaErr))
		}
	})

	t.Run("non-JSON presentation", func(t *testing.T) {
		vp, err := ParsePresentation([]byte("not JSON"))
		require.Error(t, err)
		require.Nil(t, vp)
	})
}
