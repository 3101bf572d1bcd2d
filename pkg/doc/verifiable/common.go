/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package verifiable

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	jsonutil "github.com/vctestsuite/vc-test-generator/pkg/doc/util/json"
)

const (
	// https://www.w3.org/TR/vc-data-model/#base-context
	baseContext = "https://www.w3.org/2018/credentials/v1"

	// https://www.w3.org/TR/vc-data-model/#types
	vcType = "VerifiableCredential"

	// https://www.w3.org/TR/vc-data-model/#presentations-0
	vpType = "VerifiablePresentation"
)

const (
	// ContextURI is the required JSON-LD context for VCs and VPs.
	ContextURI = baseContext
	// VCType is the required Type for Verifiable Credentials.
	VCType = vcType
	// VPType is the required Type for Verifiable Presentations.
	VPType = vpType
)

// CustomFields is a map of extra fields of struct build when unmarshalling JSON which are not
// mapped to the struct fields.
type CustomFields map[string]interface{}

// Proof defines embedded proof of Verifiable Credential.
type Proof map[string]interface{}

// Evidence defines evidence of Verifiable Credential.
type Evidence interface{}

// Subject of the Verifiable Credential.
type Subject interface{}

// TypedID defines a flexible structure with id and name fields and arbitrary extra fields
// kept in CustomFields.
type TypedID struct {
	ID    string
	Types []string

	CustomFields CustomFields

	singleType bool
}

type rawTypedID struct {
	ID   string      `json:"id,omitempty"`
	Type interface{} `json:"type,omitempty"`
}

// Type returns the first type of TypedID.
func (tid TypedID) Type() string {
	if len(tid.Types) == 0 {
		return ""
	}

	return tid.Types[0]
}

// MarshalJSON defines custom marshalling of TypedID to JSON.
func (tid TypedID) MarshalJSON() ([]byte, error) {
	raw := rawTypedID{
		ID:   tid.ID,
		Type: typesToRaw(tid.Types, tid.singleType),
	}

	data, err := jsonutil.MarshalWithCustomFields(raw, tid.CustomFields)
	if err != nil {
		return nil, fmt.Errorf("marshal TypedID: %w", err)
	}

	return data, nil
}

// UnmarshalJSON defines custom unmarshalling of TypedID from JSON.
func (tid *TypedID) UnmarshalJSON(data []byte) error {
	var raw rawTypedID

	cf := make(CustomFields)

	if err := jsonutil.UnmarshalWithCustomFields(data, &raw, cf); err != nil {
		return fmt.Errorf("unmarshal TypedID: %w", err)
	}

	tid.ID = raw.ID
	tid.CustomFields = cf
	tid.Types = nil
	tid.singleType = false

	if raw.Type == nil {
		return nil
	}

	types, single, err := decodeType(raw.Type)
	if err != nil {
		return fmt.Errorf("unmarshal TypedID: %w", err)
	}

	tid.Types = types
	tid.singleType = single

	return nil
}

// decodeType decodes raw type(s).
//
// type can be defined as a single string value or array of strings.
func decodeType(t interface{}) ([]string, bool, error) {
	switch rType := t.(type) {
	case string:
		return []string{rType}, true, nil
	case []interface{}:
		types, err := stringSlice(rType)
		if err != nil {
			return nil, false, fmt.Errorf("types: %w", err)
		}

		return types, false, nil
	default:
		return nil, false, errors.New("type of unknown structure")
	}
}

func typesToRaw(types []string, single bool) interface{} {
	if len(types) == 0 {
		return nil
	}

	if single && len(types) == 1 {
		return types[0]
	}

	return types
}

// decodeContext decodes raw context(s).
//
// context can be defined as a single string value or array;
// at the second case, the array can be a mix of string and object types
// (objects can express context information); object context are
// defined at the tail of the array.
func decodeContext(c interface{}) ([]string, []interface{}, bool, error) {
	switch rContext := c.(type) {
	case string:
		return []string{rContext}, nil, true, nil
	case []interface{}:
		s := make([]string, 0)

		for i := range rContext {
			c, valid := rContext[i].(string)
			if !valid {
				// the remaining contexts are of custom type
				return s, rContext[i:], false, nil
			}

			s = append(s, c)
		}

		return s, nil, false, nil
	default:
		return nil, nil, false, errors.New("context of unknown type")
	}
}

func contextToRaw(context []string, cContext []interface{}, single bool) interface{} {
	if len(cContext) == 0 && single && len(context) == 1 {
		return context[0]
	}

	sContext := make([]interface{}, 0, len(context)+len(cContext))
	for i := range context {
		sContext = append(sContext, context[i])
	}

	return append(sContext, cContext...)
}

func stringSlice(values []interface{}) ([]string, error) {
	s := make([]string, len(values))

	for i := range values {
		t, valid := values[i].(string)
		if !valid {
			return nil, errors.New("array element is not a string")
		}

		s[i] = t
	}

	return s, nil
}

// keepNullFields puts fields given as explicit null into custom fields, so that they are
// serialized back as null.
func keepNullFields(cf CustomFields, fields map[string]json.RawMessage) {
	for name, raw := range fields {
		if string(raw) == "null" {
			cf[name] = nil
		}
	}
}

// decodeProof decodes a single proof object or an array of them.
func decodeProof(proofBytes json.RawMessage) ([]Proof, bool, error) {
	if len(proofBytes) == 0 || string(proofBytes) == "null" {
		return nil, false, nil
	}

	var singleProof Proof

	if err := jsonutil.Unmarshal(proofBytes, &singleProof); err == nil {
		return []Proof{singleProof}, true, nil
	}

	var composedProof []Proof

	if err := jsonutil.Unmarshal(proofBytes, &composedProof); err != nil {
		return nil, false, err
	}

	return composedProof, false, nil
}

func proofsToRaw(proofs []Proof, single bool) ([]byte, error) {
	switch {
	case len(proofs) == 0:
		return nil, nil
	case len(proofs) == 1 && single:
		return json.Marshal(proofs[0])
	default:
		return json.Marshal(proofs)
	}
}

// decodeTypedIDs decodes a single TypedID object or an array of them.
func decodeTypedIDs(bytes json.RawMessage) ([]TypedID, bool, error) {
	if len(bytes) == 0 || string(bytes) == "null" {
		return nil, false, nil
	}

	var singleTypedID TypedID

	err := json.Unmarshal(bytes, &singleTypedID)
	if err == nil {
		return []TypedID{singleTypedID}, true, nil
	}

	var composedTypedID []TypedID

	err = json.Unmarshal(bytes, &composedTypedID)
	if err == nil {
		return composedTypedID, false, nil
	}

	return nil, false, err
}

func typedIDsToRaw(typedIDs []TypedID, single bool) ([]byte, error) {
	switch {
	case len(typedIDs) == 0:
		return nil, nil
	case len(typedIDs) == 1 && single:
		return json.Marshal(typedIDs[0])
	default:
		return json.Marshal(typedIDs)
	}
}

func validateJSONSchema(schemaLoader gojsonschema.JSONLoader, data []byte, what string) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validation of %s: %w", what, err)
	}

	if !result.Valid() {
		return &SchemaValidationError{msg: describeSchemaValidationError(result, what)}
	}

	return nil
}

// SchemaValidationError is returned when a document does not conform to its JSON schema.
type SchemaValidationError struct {
	msg string
}

func (e *SchemaValidationError) Error() string {
	return e.msg
}

func describeSchemaValidationError(result *gojsonschema.Result, what string) string {
	var errMsg strings.Builder

	errMsg.WriteString(what + " is not valid:\n")

	for _, desc := range result.Errors() {
		errMsg.WriteString(fmt.Sprintf("- %s\n", desc))
	}

	return errMsg.String()
}
