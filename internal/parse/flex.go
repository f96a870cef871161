package parse

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// flexInt decodes a JSON value that may arrive as a number, a numeric
// string ("123456" or "12,345"), or null.
type flexInt struct {
	value int64
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil // tolerate, treat as absent
		}
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
		if s == "" {
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil
		}
		f.value = n
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return nil
	}
	v, err := n.Int64()
	if err != nil {
		// Truncate floats the site occasionally emits for scores.
		fv, ferr := n.Float64()
		if ferr != nil {
			return nil
		}
		v = int64(fv)
	}
	f.value = v
	return nil
}

// Int64 returns the decoded value, zero when absent.
func (f flexInt) Int64() int64 {
	return f.value
}

// flexString decodes a JSON value that may arrive as a string or a number.
type flexString struct {
	value string
}

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		f.value = s
		return nil
	}
	f.value = string(data)
	return nil
}

func (f flexString) String() string {
	return f.value
}
