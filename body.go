package tillsync

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MergeField returns body with field set to value, replacing any existing field of that
// name. An empty value leaves body untouched apart from the object check.
func MergeField(body json.RawMessage, field, value string) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrBodyNotObject
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBodyNotObject, err)
	}
	if fields == nil {
		return nil, ErrBodyNotObject
	}
	if value == "" || field == "" {
		return trimmed, nil
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	fields[field] = encoded

	return json.Marshal(fields)
}
