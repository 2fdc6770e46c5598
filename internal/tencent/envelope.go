package tencent

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// stripCallbackEnvelope removes a JSONP wrapper such as `callback( {...} );`
// and returns the inner payload. Bodies that are not wrapped are returned
// trimmed and otherwise unchanged.
func stripCallbackEnvelope(body []byte) []byte {
	b := bytes.TrimSpace(body)
	if len(b) == 0 || b[0] == '{' || b[0] == '[' {
		return b
	}

	open := bytes.IndexByte(b, '(')
	end := bytes.LastIndexByte(b, ')')
	if open <= 0 || end < open {
		return b
	}
	if !isIdentifier(bytes.TrimSpace(b[:open])) {
		return b
	}
	if tail := bytes.TrimSpace(b[end+1:]); len(tail) > 1 || (len(tail) == 1 && tail[0] != ';') {
		return b
	}
	return bytes.TrimSpace(b[open+1 : end])
}

func isIdentifier(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for i, c := range b {
		switch {
		case c == '_' || c == '$' || c == '.':
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// flattenObject decodes a JSON object into string values. Strings are
// unquoted; numbers, booleans and nested values keep their JSON text; null
// becomes the empty string.
func flattenObject(b []byte) (map[string]string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errors.New("not a JSON object")
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch {
		case len(v) > 0 && v[0] == '"':
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return nil, err
			}
			out[k] = s
		case string(v) == "null":
			out[k] = ""
		default:
			var compact bytes.Buffer
			if err := json.Compact(&compact, v); err != nil {
				return nil, err
			}
			out[k] = compact.String()
		}
	}
	return out, nil
}

// failed reports whether a status-like field carries a failure value.
func failed(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && v != "0"
}
