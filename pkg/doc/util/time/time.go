/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package time

import (
	"encoding/json"
	"time"
)

// TimeWrapper is a time.Time which remembers the literal it was parsed from.
// Credentials are re-serialized with that literal so that e.g. "2020-01-01T00:00:00.000Z"
// does not become "2020-01-01T00:00:00Z". A TimeWrapper built from a time.Time marshals in RFC 3339.
type TimeWrapper struct {
	time.Time
	timeStr string
}

// NewTime wraps t.
func NewTime(t time.Time) *TimeWrapper {
	return &TimeWrapper{Time: t}
}

// ParseTimeWrapper parses RFC 3339 date-time. A missing zone designator is read as UTC.
func ParseTimeWrapper(timeStr string) (*TimeWrapper, error) {
	tm := &TimeWrapper{}

	if err := tm.parse(timeStr); err != nil {
		return nil, err
	}

	return tm, nil
}

// FromUnix creates a TimeWrapper from the seconds of a JWT NumericDate.
func FromUnix(sec int64) *TimeWrapper {
	return NewTime(time.Unix(sec, 0).UTC())
}

// MarshalJSON implements json.Marshaler.
func (tm TimeWrapper) MarshalJSON() ([]byte, error) {
	// catch out of range years
	if _, err := tm.Time.MarshalJSON(); err != nil {
		return nil, err
	}

	return json.Marshal(tm.FormatToString())
}

// UnmarshalJSON implements json.Unmarshaler.
func (tm *TimeWrapper) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var timeStr string

	if err := json.Unmarshal(data, &timeStr); err != nil {
		return err
	}

	return tm.parse(timeStr)
}

// FormatToString returns the original literal, or RFC 3339 of the UTC time if there is none.
func (tm *TimeWrapper) FormatToString() string {
	if tm.timeStr != "" {
		return tm.timeStr
	}

	return tm.Time.UTC().Format(time.RFC3339)
}

func (tm *TimeWrapper) parse(timeStr string) error {
	t, err := time.Parse(time.RFC3339, timeStr)
	if err != nil {
		var errZ error

		t, errZ = time.Parse(time.RFC3339, timeStr+"Z")
		if errZ != nil {
			return err
		}
	}

	tm.Time = t
	tm.timeStr = timeStr

	return nil
}
