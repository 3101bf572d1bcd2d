/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package verifiable

import (
	"encoding/json"
	"errors"
	"fmt"

	jsonld "github.com/piprate/json-gold/ld"
	"github.com/xeipuuv/gojsonschema"

	jsonutil "github.com/vctestsuite/vc-test-generator/pkg/doc/util/json"
)

const basePresentationSchema = `
{
  "required": [
    "@context",
    "type"
  ],
  "properties": {
    "@context": {
      "oneOf": [
        {
          "type": "string",
          "const": "https://www.w3.org/2018/credentials/v1"
        },
        {
          "type": "array",
          "items": [
            {
              "type": "string",
              "const": "https://www.w3.org/2018/credentials/v1"
            }
          ],
          "uniqueItems": true,
          "additionalItems": {
            "oneOf": [
              {
                "type": "object"
              },
              {
                "type": "string"
              }
            ]
          }
        }
      ]
    },
    "id": {
      "type": "string",
      "format": "uri"
    },
    "type": {
      "oneOf": [
        {
          "type": "array",
          "items": [
            {
              "type": "string",
              "pattern": "^VerifiablePresentation$"
            }
          ],
          "minItems": 1,
          "additionalItems": {
            "type": "string"
          }
        },
        {
          "type": "string",
          "pattern": "^VerifiablePresentation$"
        }
      ]
    },
    "verifiableCredential": {
      "anyOf": [
        {
          "type": "array"
        },
        {
          "type": "object"
        },
        {
          "type": "string"
        },
        {
          "type": "null"
        }
      ]
    },
    "holder": {
      "type": "string",
      "format": "uri"
    },
    "proof": {
      "anyOf": [
        {
          "type": "array",
          "items": [
            {
              "$ref": "#/definitions/proof"
            }
          ]
        },
        {
          "$ref": "#/definitions/proof"
        }
      ]
    },
    "refreshService": {
      "$ref": "#/definitions/typedID"
    }
  },
  "definitions": {
    "typedID": {
      "type": "object",
      "required": [
        "id",
        "type"
      ],
      "properties": {
        "id": {
          "type": "string",
          "format": "uri"
        },
        "type": {
          "anyOf": [
            {
              "type": "string"
            },
            {
              "type": "array",
              "items": {
                "type": "string"
              }
            }
          ]
        }
      }
    },
    "proof": {
      "type": "object",
      "required": [
        "type"
      ],
      "properties": {
        "type": {
          "type": "string"
        }
      }
    }
  }
}
`

// Presentation Verifiable Presentation base data model definition.
// Fields keep their JSON form (single value or array), so that the presentation
// is serialized back the way it was given.
type Presentation struct {
	Context        interface{}
	ID             string
	Type           interface{}
	Credentials    interface{}
	Holder         string
	Proof          interface{}
	RefreshService interface{}

	CustomFields CustomFields
}

// rawPresentation is a basic verifiable presentation.
type rawPresentation struct {
	Context        interface{} `json:"@context,omitempty"`
	ID             string      `json:"id,omitempty"`
	Type           interface{} `json:"type,omitempty"`
	Credentials    interface{} `json:"verifiableCredential,omitempty"`
	Holder         string      `json:"holder,omitempty"`
	Proof          interface{} `json:"proof,omitempty"`
	RefreshService interface{} `json:"refreshService,omitempty"`

	// All unmapped fields are put here.
	CustomFields `json:"-"`
}

// MarshalJSON defines custom marshalling of rawPresentation to JSON.
func (rp *rawPresentation) MarshalJSON() ([]byte, error) {
	type Alias rawPresentation

	alias := (*Alias)(rp)

	return jsonutil.MarshalWithCustomFields(alias, rp.CustomFields)
}

// UnmarshalJSON defines custom unmarshalling of rawPresentation from JSON.
func (rp *rawPresentation) UnmarshalJSON(data []byte) error {
	type Alias rawPresentation

	alias := (*Alias)(rp)
	rp.CustomFields = make(CustomFields)

	return jsonutil.UnmarshalWithCustomFields(data, alias, rp.CustomFields)
}

// presentationOpts holds options for the Verifiable Presentation decoding.
type presentationOpts struct {
	requireVC        bool
	jsonldValidation bool
	strictValidation bool

	jsonldCredentialOpts
}

// PresentationOpt is the Verifiable Presentation decoding option.
type PresentationOpt func(opts *presentationOpts)

// WithPresRequireVC option enables check for at least one verifiableCredential in the VP.
func WithPresRequireVC() PresentationOpt {
	return func(opts *presentationOpts) {
		opts.requireVC = true
	}
}

// WithPresJSONLDValidation uses the JSON LD parser for validation in addition to JSON schema.
func WithPresJSONLDValidation() PresentationOpt {
	return func(opts *presentationOpts) {
		opts.jsonldValidation = true
	}
}

// WithPresJSONLDDocumentLoader defines JSON-LD document loader used by JSON-LD validation.
func WithPresJSONLDDocumentLoader(documentLoader jsonld.DocumentLoader) PresentationOpt {
	return func(opts *presentationOpts) {
		opts.jsonldDocumentLoader = documentLoader
	}
}

// WithPresExternalJSONLDContext defines external JSON-LD contexts to be used in JSON-LD validation.
func WithPresExternalJSONLDContext(context ...string) PresentationOpt {
	return func(opts *presentationOpts) {
		opts.externalContext = context
	}
}

// WithPresStrictValidation rejects fields unknown to the base schema and, with JSON-LD validation,
// terms which are dropped by JSON-LD compaction.
func WithPresStrictValidation() PresentationOpt {
	return func(opts *presentationOpts) {
		opts.strictValidation = true
	}
}

// ParsePresentation parses Verifiable Presentation from JSON bytes.
// The presentation is validated against the base JSON schema before decoding.
func ParsePresentation(vpData []byte, opts ...PresentationOpt) (*Presentation, error) {
	vpOpts := &presentationOpts{}

	for _, opt := range opts {
		opt(vpOpts)
	}

	schemaLoader, err := presentationSchemaLoader(vpOpts.strictValidation)
	if err != nil {
		return nil, err
	}

	if err = validateJSONSchema(schemaLoader, vpData, "verifiable presentation"); err != nil {
		return nil, err
	}

	var raw rawPresentation

	if err = json.Unmarshal(vpData, &raw); err != nil {
		return nil, fmt.Errorf("JSON unmarshalling of verifiable presentation: %w", err)
	}

	if vpOpts.requireVC && isEmptyCredentials(raw.Credentials) {
		return nil, errors.New("verifiableCredential is required")
	}

	if vpOpts.jsonldValidation {
		if err = compactJSONLD(vpData, &vpOpts.jsonldCredentialOpts, vpOpts.strictValidation); err != nil {
			return nil, err
		}
	}

	return &Presentation{
		Context:        raw.Context,
		ID:             raw.ID,
		Type:           raw.Type,
		Credentials:    raw.Credentials,
		Holder:         raw.Holder,
		Proof:          raw.Proof,
		RefreshService: raw.RefreshService,
		CustomFields:   raw.CustomFields,
	}, nil
}

func presentationSchemaLoader(strict bool) (gojsonschema.JSONLoader, error) {
	if !strict {
		return gojsonschema.NewStringLoader(basePresentationSchema), nil
	}

	var schema map[string]interface{}

	if err := json.Unmarshal([]byte(basePresentationSchema), &schema); err != nil {
		return nil, fmt.Errorf("read base presentation schema: %w", err)
	}

	schema["additionalProperties"] = false

	return gojsonschema.NewGoLoader(schema), nil
}

func isEmptyCredentials(credentials interface{}) bool {
	switch c := credentials.(type) {
	case nil:
		return true
	case []interface{}:
		return len(c) == 0
	default:
		return false
	}
}

func (vp *Presentation) raw() *rawPresentation {
	return &rawPresentation{
		Context:        vp.Context,
		ID:             vp.ID,
		Type:           vp.Type,
		Credentials:    vp.Credentials,
		Holder:         vp.Holder,
		Proof:          vp.Proof,
		RefreshService: vp.RefreshService,
		CustomFields:   vp.CustomFields,
	}
}

// MarshalJSON converts Verifiable Presentation to JSON bytes.
func (vp *Presentation) MarshalJSON() ([]byte, error) {
	byteVP, err := json.Marshal(vp.raw())
	if err != nil {
		return nil, fmt.Errorf("JSON marshalling of verifiable presentation: %w", err)
	}

	return byteVP, nil
}
