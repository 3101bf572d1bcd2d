/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package verifiable

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	jsonld "github.com/piprate/json-gold/ld"

	"github.com/vctestsuite/vc-test-generator/pkg/doc/ld"
	jsonutil "github.com/vctestsuite/vc-test-generator/pkg/doc/util/json"
)

const (
	contextField = "@context"

	jsonldFormat = "application/n-quads"
)

func compactJSONLD(doc []byte, opts *jsonldCredentialOpts, strict bool) error {
	documentLoader := opts.jsonldDocumentLoader
	if documentLoader == nil {
		var err error

		documentLoader, err = ld.NewDocumentLoader(ld.WithRemoteDocumentLoader(ld.NewRemoteDocumentLoader(nil)))
		if err != nil {
			return fmt.Errorf("create JSON-LD document loader: %w", err)
		}
	}

	// json-gold works with float64 numbers
	var docMap map[string]interface{}

	if err := json.Unmarshal(doc, &docMap); err != nil {
		return fmt.Errorf("convert JSON-LD doc to map: %w", err)
	}

	// the compacted document is compared against docMap, so compaction works on a copy
	input, ok := jsonutil.DeepCopy(docMap).(map[string]interface{})
	if !ok {
		return errors.New("JSON-LD doc is not an object")
	}

	inputContext := input[contextField]

	if len(opts.externalContext) > 0 {
		inputContext = appendExternalContexts(inputContext, opts.externalContext...)
		input[contextField] = inputContext
	}

	ldOptions := jsonld.NewJsonLdOptions("")
	ldOptions.ProcessingMode = jsonld.JsonLd_1_1
	ldOptions.Format = jsonldFormat
	ldOptions.ProduceGeneralizedRdf = true
	ldOptions.DocumentLoader = documentLoader

	logger.Debugf("compacting JSON-LD document")

	docCompactedMap, err := jsonld.NewJsonLdProcessor().Compact(input,
		map[string]interface{}{contextField: inputContext}, ldOptions)
	if err != nil {
		return fmt.Errorf("compact JSON-LD document: %w", err)
	}

	if strict && !mapsHaveSameStructure(docMap, docCompactedMap) {
		return errors.New("JSON-LD doc has different structure after compaction")
	}

	return nil
}

// appendExternalContexts appends external context(s) to the JSON-LD context which can have one
// or several contexts already.
func appendExternalContexts(context interface{}, extraContexts ...string) []interface{} {
	var contexts []interface{}

	switch c := context.(type) {
	case string:
		contexts = append(contexts, c)
	case []interface{}:
		contexts = append(contexts, c...)
	}

	for i := range extraContexts {
		contexts = append(contexts, extraContexts[i])
	}

	return contexts
}

func mapsHaveSameStructure(originalMap, compactedMap map[string]interface{}) bool {
	original := compactMap(originalMap)
	compacted := compactMap(compactedMap)

	if reflect.DeepEqual(original, compacted) {
		return true
	}

	if len(original) != len(compacted) {
		return false
	}

	for k, v1 := range original {
		v1Map, isMap := v1.(map[string]interface{})
		if !isMap {
			continue
		}

		v2, present := compacted[k]
		if !present { // special case - the name of the map was mapped, cannot guess what's a new name
			continue
		}

		v2Map, isMap := v2.(map[string]interface{})
		if !isMap {
			return false
		}

		if !mapsHaveSameStructure(v1Map, v2Map) {
			return false
		}
	}

	return true
}

func compactMap(m map[string]interface{}) map[string]interface{} {
	mCopy := make(map[string]interface{})

	for k, v := range m {
		// ignore context
		if k == contextField {
			continue
		}

		vNorm := compactValue(v)

		switch kv := vNorm.(type) {
		case []interface{}:
			mCopy[k] = compactSlice(kv)

		case map[string]interface{}:
			mCopy[k] = compactMap(kv)

		default:
			mCopy[k] = vNorm
		}
	}

	return mCopy
}

func compactSlice(s []interface{}) []interface{} {
	sCopy := make([]interface{}, len(s))

	for i := range s {
		sItem := compactValue(s[i])

		switch sItem := sItem.(type) {
		case map[string]interface{}:
			sCopy[i] = compactMap(sItem)

		default:
			sCopy[i] = sItem
		}
	}

	return sCopy
}

func compactValue(v interface{}) interface{} {
	switch cv := v.(type) {
	case []interface{}:
		// consists of only one element
		if len(cv) == 1 {
			return compactValue(cv[0])
		}

		return cv

	case map[string]interface{}:
		// contains "id" element only
		if len(cv) == 1 {
			if _, ok := cv["id"]; ok {
				return cv["id"]
			}
		}

		return cv

	default:
		return cv
	}
}
