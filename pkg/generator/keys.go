/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package generator

import (
	"encoding/base64"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/vctestsuite/vc-test-generator/pkg/doc/jose/jwk"
)

// KeyBlobField is the field of the key blob holding the RSA private key JWK.
const KeyBlobField = "rs256PrivateKeyJwk"

// ParseKeyBlob extracts the RSA private key from a base64 encoded JSON object holding it as a JWK
// in rs256PrivateKeyJwk field. The key ID of the result is empty if the JWK has no kid.
func ParseKeyBlob(blob string) (*jwk.RSAKey, error) {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return nil, NewKeyError(errors.New("key blob is empty"))
	}

	decoded, err := decodeBase64(blob)
	if err != nil {
		return nil, NewKeyError(errors.Wrap(err, "decode base64 of JSON containing JWT keys"))
	}

	if !gjson.ValidBytes(decoded) {
		return nil, NewKeyError(errors.New("key blob is not a JSON document"))
	}

	keyJWK := gjson.GetBytes(decoded, KeyBlobField)

	if !keyJWK.Exists() {
		return nil, NewKeyError(errors.Errorf("cannot get %s key", KeyBlobField))
	}

	if !keyJWK.IsObject() {
		return nil, NewKeyError(errors.Errorf("%s is not a JSON object", KeyBlobField))
	}

	key, err := jwk.ParseRSAJWK([]byte(keyJWK.Raw))
	if err != nil {
		return nil, NewKeyError(errors.Wrapf(err, "parse %s", KeyBlobField))
	}

	logger.Debugf("RSA key parsed from %s, kid=%q", KeyBlobField, key.KeyID)

	return key, nil
}

// decodeBase64 accepts padded and unpadded standard encoding and URL-safe encoding.
func decodeBase64(s string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	}

	var err error

	for _, enc := range encodings {
		var decoded []byte

		decoded, err = enc.DecodeString(s)
		if err == nil {
			return decoded, nil
		}
	}

	return nil, err
}
