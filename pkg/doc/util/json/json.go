/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package json

import (
	"bytes"
	"encoding/json"
	"errors"

	"golang.org/x/exp/maps"
)

// MarshalWithCustomFields marshals value merged with custom fields defined in the map into JSON bytes.
func MarshalWithCustomFields(v interface{}, cf map[string]interface{}) ([]byte, error) {
	vm, err := MergeCustomFields(v, cf)
	if err != nil {
		return nil, err
	}

	return json.Marshal(vm)
}

// UnmarshalWithCustomFields unmarshals JSON into value v and puts all JSON fields which are not
// known to v into custom fields map cf. Numbers are decoded as json.Number.
func UnmarshalWithCustomFields(data []byte, v interface{}, cf map[string]interface{}) error {
	err := Unmarshal(data, v)
	if err != nil {
		return err
	}

	known, err := ToMap(v)
	if err != nil {
		return err
	}

	all, err := ToMap(data)
	if err != nil {
		return err
	}

	for k, val := range all {
		if _, ok := known[k]; !ok {
			cf[k] = val
		}
	}

	return nil
}

// Unmarshal is json.Unmarshal which keeps numbers held by interface values as json.Number.
func Unmarshal(data []byte, v interface{}) error {
	d := json.NewDecoder(bytes.NewReader(data))
	d.UseNumber()

	if err := d.Decode(v); err != nil {
		return err
	}

	if d.More() {
		return errors.New("invalid character after top-level value")
	}

	return nil
}

// MergeCustomFields converts value to the JSON-like map and supplements it with custom fields map cf.
// Fields of the value win over custom fields with the same name.
func MergeCustomFields(v interface{}, cf map[string]interface{}) (map[string]interface{}, error) {
	kf, err := ToMap(v)
	if err != nil {
		return nil, err
	}

	for k, val := range cf {
		if _, exists := kf[k]; !exists {
			kf[k] = val
		}
	}

	return kf, nil
}

// ToMap converts object, string or bytes to JSON object represented by map.
// Numbers are kept as json.Number so that integer claims survive the conversion unchanged.
func ToMap(v interface{}) (map[string]interface{}, error) {
	var (
		b   []byte
		err error
	)

	switch cv := v.(type) {
	case []byte:
		b = cv
	case string:
		b = []byte(cv)
	default:
		b, err = json.Marshal(v)
		if err != nil {
			return nil, err
		}
	}

	var m map[string]interface{}

	d := json.NewDecoder(bytes.NewReader(b))
	d.UseNumber()

	if err = d.Decode(&m); err != nil {
		return nil, err
	}

	return m, nil
}

// DeepCopy returns a copy of JSON-like value where nested maps and slices are copied as well.
// Scalars are shared as they are immutable.
func DeepCopy(v interface{}) interface{} {
	switch cv := v.(type) {
	case map[string]interface{}:
		m := maps.Clone(cv)
		for k := range m {
			m[k] = DeepCopy(m[k])
		}

		return m
	case []interface{}:
		s := make([]interface{}, len(cv))
		for i := range cv {
			s[i] = DeepCopy(cv[i])
		}

		return s
	default:
		return cv
	}
}
