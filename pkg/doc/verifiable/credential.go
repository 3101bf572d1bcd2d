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

	"github.com/hyperledger/aries-framework-go/component/log"

	jsonutil "github.com/vctestsuite/vc-test-generator/pkg/doc/util/json"
	afgotime "github.com/vctestsuite/vc-test-generator/pkg/doc/util/time"
)

var logger = log.New("vc-test-generator/doc/verifiable")

const defaultSchema = `{
  "required": [
    "@context",
    "type",
    "credentialSubject",
    "issuer",
    "issuanceDate"
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
              "pattern": "^VerifiableCredential$"
            }
          ],
          "additionalItems": {
            "type": "string"
          }
        },
        {
          "type": "string",
          "pattern": "^VerifiableCredential$"
        }
      ]
    },
    "credentialSubject": {
      "anyOf": [
        {
          "type": "array"
        },
        {
          "type": "object"
        },
        {
          "type": "string"
        }
      ]
    },
    "issuer": {
      "anyOf": [
        {
          "type": "string",
          "format": "uri"
        },
        {
          "type": "object",
          "required": [
            "id"
          ],
          "properties": {
            "id": {
              "type": "string",
              "format": "uri"
            }
          }
        }
      ]
    },
    "issuanceDate": {
      "type": "string",
      "format": "date-time"
    },
    "proof": {
      "anyOf": [
        {
          "$ref": "#/definitions/proof"
        },
        {
          "type": "array",
          "items": {
            "$ref": "#/definitions/proof"
          }
        },
        {
          "type": "null"
        }
      ]
    },
    "expirationDate": {
      "type": [
        "string",
        "null"
      ],
      "format": "date-time"
    },
    "credentialStatus": {
      "$ref": "#/definitions/typedID"
    },
    "credentialSchema": {
      "$ref": "#/definitions/typedIDs"
    },
    "evidence": {
      "$ref": "#/definitions/typedIDs"
    },
    "refreshService": {
      "$ref": "#/definitions/typedIDs"
    },
    "termsOfUse": {
      "anyOf": [
        {
          "type": "object"
        },
        {
          "type": "array",
          "items": {
            "type": "object"
          }
        },
        {
          "type": "null"
        }
      ]
    }
  },
  "definitions": {
    "typedID": {
      "anyOf": [
        {
          "type": "null"
        },
        {
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
        }
      ]
    },
    "typedIDs": {
      "anyOf": [
        {
          "$ref": "#/definitions/typedID"
        },
        {
          "type": "array",
          "items": {
            "$ref": "#/definitions/typedID"
          }
        },
        {
          "type": "null"
        }
      ]
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

// vcModelValidationMode defines constraint put on context and type of VC.
type vcModelValidationMode int

const (
	// jsonSchemaValidation validates the format of the fields and the presence of mandatory fields
	// with the base JSON schema. This is a default validation mode.
	jsonSchemaValidation vcModelValidationMode = iota

	// baseContextValidation when defined it's validated that only the base context and type are used.
	baseContextValidation
)

// Issuer of the Verifiable Credential.
type Issuer struct {
	ID string `json:"id,omitempty"`

	CustomFields CustomFields `json:"-"`

	asObject bool
}

// MarshalJSON marshals Issuer to JSON.
// Issuer given as an object keeps the object form even if it holds only "id".
func (i Issuer) MarshalJSON() ([]byte, error) {
	if len(i.CustomFields) == 0 && !i.asObject {
		// as string
		return json.Marshal(i.ID)
	}

	// as object
	type Alias Issuer

	alias := Alias(i)

	data, err := jsonutil.MarshalWithCustomFields(alias, i.CustomFields)
	if err != nil {
		return nil, fmt.Errorf("marshal Issuer: %w", err)
	}

	return data, nil
}

// UnmarshalJSON unmarshals issuer from JSON.
func (i *Issuer) UnmarshalJSON(bytes []byte) error {
	var issuerID string

	if err := json.Unmarshal(bytes, &issuerID); err == nil {
		// as string
		i.ID = issuerID
		i.asObject = false

		return nil
	}

	// as object
	type Alias Issuer

	alias := (*Alias)(i)

	i.CustomFields = make(CustomFields)

	err := jsonutil.UnmarshalWithCustomFields(bytes, alias, i.CustomFields)
	if err != nil {
		return fmt.Errorf("unmarshal Issuer: %w", err)
	}

	if i.ID == "" {
		return errors.New("issuer ID is not defined")
	}

	i.asObject = true

	return nil
}

// Credential Verifiable Credential definition.
type Credential struct {
	Context        []string
	CustomContext  []interface{}
	ID             string
	Types          []string
	Subject        Subject
	Issuer         *Issuer
	Issued         *afgotime.TimeWrapper
	Expired        *afgotime.TimeWrapper
	Proofs         []Proof
	Status         *TypedID
	Schemas        []TypedID
	Evidence       Evidence
	TermsOfUse     []TypedID
	RefreshService []TypedID

	CustomFields CustomFields

	rawFields rememberedFields
}

// rememberedFields keeps the JSON form of fields which can be given both as a single value and an array.
type rememberedFields struct {
	singleContext        bool
	singleType           bool
	singleProof          bool
	singleSchema         bool
	singleTermsOfUse     bool
	singleRefreshService bool
}

// rawCredential is a basic verifiable credential.
type rawCredential struct {
	Context        interface{}           `json:"@context,omitempty"`
	ID             string                `json:"id,omitempty"`
	Type           interface{}           `json:"type,omitempty"`
	Subject        Subject               `json:"credentialSubject,omitempty"`
	Issued         *afgotime.TimeWrapper `json:"issuanceDate,omitempty"`
	Expired        *afgotime.TimeWrapper `json:"expirationDate,omitempty"`
	Proof          json.RawMessage       `json:"proof,omitempty"`
	Status         *TypedID              `json:"credentialStatus,omitempty"`
	Issuer         *Issuer               `json:"issuer,omitempty"`
	Schema         json.RawMessage       `json:"credentialSchema,omitempty"`
	Evidence       Evidence              `json:"evidence,omitempty"`
	TermsOfUse     json.RawMessage       `json:"termsOfUse,omitempty"`
	RefreshService json.RawMessage       `json:"refreshService,omitempty"`

	// All unmapped fields are put here.
	CustomFields `json:"-"`
}

// MarshalJSON defines custom marshalling of rawCredential to JSON.
func (rc *rawCredential) MarshalJSON() ([]byte, error) {
	type Alias rawCredential

	alias := (*Alias)(rc)

	return jsonutil.MarshalWithCustomFields(alias, rc.CustomFields)
}

// UnmarshalJSON defines custom unmarshalling of rawCredential from JSON.
func (rc *rawCredential) UnmarshalJSON(data []byte) error {
	type Alias rawCredential

	alias := (*Alias)(rc)
	rc.CustomFields = make(CustomFields)

	return jsonutil.UnmarshalWithCustomFields(data, alias, rc.CustomFields)
}

type jsonldCredentialOpts struct {
	jsonldDocumentLoader jsonld.DocumentLoader
	externalContext      []string
}

// credentialOpts holds options for the Verifiable Credential decoding.
type credentialOpts struct {
	modelValidationMode vcModelValidationMode
	jsonldValidation    bool
	strictValidation    bool

	jsonldCredentialOpts
}

// CredentialOpt is the Verifiable Credential decoding option.
type CredentialOpt func(opts *credentialOpts)

// WithJSONLDValidation uses the JSON LD parser for validation in addition to JSON schema.
func WithJSONLDValidation() CredentialOpt {
	return func(opts *credentialOpts) {
		opts.jsonldValidation = true
	}
}

// WithBaseContextValidation validates that only the base context and type are used.
func WithBaseContextValidation() CredentialOpt {
	return func(opts *credentialOpts) {
		opts.modelValidationMode = baseContextValidation
	}
}

// WithJSONLDDocumentLoader defines JSON-LD document loader used by JSON-LD validation.
func WithJSONLDDocumentLoader(documentLoader jsonld.DocumentLoader) CredentialOpt {
	return func(opts *credentialOpts) {
		opts.jsonldDocumentLoader = documentLoader
	}
}

// WithStrictValidation enabled strict validation of VC.
//
// In case of JSON Schema validation, additionalProperties=false is set on the schema.
//
// In case of JSON-LD validation, the comparison of JSON-LD VC document after compaction with original VC one is made.
// In case of mismatch a validation exception is raised.
func WithStrictValidation() CredentialOpt {
	return func(opts *credentialOpts) {
		opts.strictValidation = true
	}
}

// WithExternalJSONLDContext defines external JSON-LD contexts to be used in JSON-LD validation.
func WithExternalJSONLDContext(context ...string) CredentialOpt {
	return func(opts *credentialOpts) {
		opts.externalContext = context
	}
}

func parseCredentialOpts(opts []CredentialOpt) *credentialOpts {
	crOpts := &credentialOpts{
		modelValidationMode: jsonSchemaValidation,
	}

	for _, opt := range opts {
		opt(crOpts)
	}

	return crOpts
}

// ParseCredential parses Verifiable Credential from JSON bytes.
// The credential is validated against the base JSON schema before decoding.
func ParseCredential(vcData []byte, opts ...CredentialOpt) (*Credential, error) {
	vcOpts := parseCredentialOpts(opts)

	if err := validateCredentialUsingJSONSchema(vcData, vcOpts); err != nil {
		return nil, err
	}

	var raw rawCredential

	if err := json.Unmarshal(vcData, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal new credential: %w", err)
	}

	vc, err := newCredential(&raw)
	if err != nil {
		return nil, fmt.Errorf("build new credential: %w", err)
	}

	if err = validateCredential(vc, vcData, vcOpts); err != nil {
		return nil, err
	}

	return vc, nil
}

func validateCredential(vc *Credential, vcBytes []byte, vcOpts *credentialOpts) error {
	if vcOpts.modelValidationMode == baseContextValidation {
		if err := validateBaseContext(vc); err != nil {
			return err
		}
	}

	if vcOpts.jsonldValidation {
		return compactJSONLD(vcBytes, &vcOpts.jsonldCredentialOpts, vcOpts.strictValidation)
	}

	return nil
}

func validateBaseContext(vc *Credential) error {
	if len(vc.Types) != 1 || vc.Types[0] != vcType {
		return errors.New("violated type constraint: not base only type defined")
	}

	if len(vc.Context) != 1 || len(vc.CustomContext) > 0 || vc.Context[0] != baseContext {
		return errors.New("violated @context constraint: not base only @context defined")
	}

	return nil
}

//nolint:funlen
func newCredential(raw *rawCredential) (*Credential, error) {
	var remembered rememberedFields

	schemas, single, err := decodeTypedIDs(raw.Schema)
	if err != nil {
		return nil, fmt.Errorf("fill credential schemas from raw: %w", err)
	}

	remembered.singleSchema = single

	types, single, err := decodeType(raw.Type)
	if err != nil {
		return nil, fmt.Errorf("fill credential types from raw: %w", err)
	}

	remembered.singleType = single

	context, customContext, single, err := decodeContext(raw.Context)
	if err != nil {
		return nil, fmt.Errorf("fill credential context from raw: %w", err)
	}

	remembered.singleContext = single

	termsOfUse, single, err := decodeTypedIDs(raw.TermsOfUse)
	if err != nil {
		return nil, fmt.Errorf("fill credential terms of use from raw: %w", err)
	}

	remembered.singleTermsOfUse = single

	refreshService, single, err := decodeTypedIDs(raw.RefreshService)
	if err != nil {
		return nil, fmt.Errorf("fill credential refresh service from raw: %w", err)
	}

	remembered.singleRefreshService = single

	proofs, single, err := decodeProof(raw.Proof)
	if err != nil {
		return nil, fmt.Errorf("fill credential proof from raw: %w", err)
	}

	remembered.singleProof = single

	keepNullFields(raw.CustomFields, map[string]json.RawMessage{
		"proof":            raw.Proof,
		"credentialSchema": raw.Schema,
		"termsOfUse":       raw.TermsOfUse,
		"refreshService":   raw.RefreshService,
	})

	return &Credential{
		Context:        context,
		CustomContext:  customContext,
		ID:             raw.ID,
		Types:          types,
		Subject:        raw.Subject,
		Issuer:         raw.Issuer,
		Issued:         raw.Issued,
		Expired:        raw.Expired,
		Proofs:         proofs,
		Status:         raw.Status,
		Schemas:        schemas,
		Evidence:       raw.Evidence,
		TermsOfUse:     termsOfUse,
		RefreshService: refreshService,
		CustomFields:   raw.CustomFields,
		rawFields:      remembered,
	}, nil
}

func validateCredentialUsingJSONSchema(data []byte, opts *credentialOpts) error {
	// Validate that the Verifiable Credential conforms to the serialization of the Verifiable Credential data model
	// (https://w3c.github.io/vc-data-model/#example-1-a-simple-example-of-a-verifiable-credential)
	schemaLoader, err := credentialSchemaLoader(opts.strictValidation)
	if err != nil {
		return err
	}

	return validateJSONSchema(schemaLoader, data, "verifiable credential")
}

func credentialSchemaLoader(strict bool) (gojsonschema.JSONLoader, error) {
	if !strict {
		return gojsonschema.NewStringLoader(defaultSchema), nil
	}

	var schema map[string]interface{}

	if err := json.Unmarshal([]byte(defaultSchema), &schema); err != nil {
		return nil, fmt.Errorf("read default credential schema: %w", err)
	}

	schema["additionalProperties"] = false

	return gojsonschema.NewGoLoader(schema), nil
}

// SubjectID gets ID of single subject if present or
// returns error if there are several subjects or one without ID defined.
func SubjectID(subject interface{}) (string, error) {
	subjectIDFn := func(subject map[string]interface{}) (string, error) {
		subjectWithID, defined := subject["id"]
		if !defined {
			return "", errors.New("subject id is not defined")
		}

		subjectID, isString := subjectWithID.(string)
		if !isString {
			return "", errors.New("subject id is not string")
		}

		return subjectID, nil
	}

	switch subject := subject.(type) {
	case map[string]interface{}:
		return subjectIDFn(subject)

	case []interface{}:
		if len(subject) == 0 {
			return "", errors.New("no subject is defined")
		}

		if len(subject) > 1 {
			return "", errors.New("more than one subject is defined")
		}

		subjectMap, ok := subject[0].(map[string]interface{})
		if !ok {
			return "", errors.New("subject of unknown structure")
		}

		return subjectIDFn(subjectMap)

	case string:
		return subject, nil

	default:
		return "", errors.New("subject of unknown structure")
	}
}

func (vc *Credential) raw() (*rawCredential, error) {
	rawRefreshService, err := typedIDsToRaw(vc.RefreshService, vc.rawFields.singleRefreshService)
	if err != nil {
		return nil, err
	}

	rawTermsOfUse, err := typedIDsToRaw(vc.TermsOfUse, vc.rawFields.singleTermsOfUse)
	if err != nil {
		return nil, err
	}

	rawSchemas, err := typedIDsToRaw(vc.Schemas, vc.rawFields.singleSchema)
	if err != nil {
		return nil, err
	}

	proof, err := proofsToRaw(vc.Proofs, vc.rawFields.singleProof)
	if err != nil {
		return nil, err
	}

	return &rawCredential{
		Context:        contextToRaw(vc.Context, vc.CustomContext, vc.rawFields.singleContext),
		ID:             vc.ID,
		Type:           typesToRaw(vc.Types, vc.rawFields.singleType),
		Subject:        vc.Subject,
		Issued:         vc.Issued,
		Expired:        vc.Expired,
		Proof:          proof,
		Status:         vc.Status,
		Issuer:         vc.Issuer,
		Schema:         rawSchemas,
		Evidence:       vc.Evidence,
		TermsOfUse:     rawTermsOfUse,
		RefreshService: rawRefreshService,
		CustomFields:   vc.CustomFields,
	}, nil
}

// MarshalJSON converts Verifiable Credential to JSON bytes.
func (vc *Credential) MarshalJSON() ([]byte, error) {
	raw, err := vc.raw()
	if err != nil {
		return nil, fmt.Errorf("JSON marshalling of verifiable credential: %w", err)
	}

	byteCred, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("JSON marshalling of verifiable credential: %w", err)
	}

	return byteCred, nil
}
