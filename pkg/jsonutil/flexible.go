// Package jsonutil tolerates the loosely typed JSON generative models emit.
package jsonutil

import (
	"encoding/json"
	"strconv"
)

// FlexibleString is a string field that also accepts numbers, booleans, and
// null, since models answering in JSON do not reliably quote values.
type FlexibleString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleString(s)
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		if n == float64(int64(n)) {
			*f = FlexibleString(strconv.FormatInt(int64(n), 10))
		} else {
			*f = FlexibleString(strconv.FormatFloat(n, 'g', -1, 64))
		}
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = FlexibleString(strconv.FormatBool(b))
		return nil
	}

	*f = FlexibleString(data)
	return nil
}

// String returns the underlying string.
func (f FlexibleString) String() string {
	return string(f)
}
