package carwings

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Payload is a decoded response body. Field names vary between endpoints and
// server versions, so lookups take a list of candidate keys and return the
// first one present.
type Payload map[string]any

// String returns the first present key as a string. Numbers and booleans are
// formatted; objects and lists are not strings.
func (p Payload) String(keys ...string) (string, bool) {
	for _, k := range keys {
		v, ok := p[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			return t, true
		case json.Number:
			return t.String(), true
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64), true
		case bool:
			return strconv.FormatBool(t), true
		}
	}
	return "", false
}

// Number returns the first present key as a float64, accepting JSON numbers
// and numeric strings.
func (p Payload) Number(keys ...string) (float64, bool) {
	for _, k := range keys {
		v, ok := p[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case json.Number:
			if f, err := t.Float64(); err == nil {
				return f, true
			}
		case float64:
			return t, true
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// Object returns the first present key holding a JSON object.
func (p Payload) Object(keys ...string) (Payload, bool) {
	for _, k := range keys {
		if m, ok := p[k].(map[string]any); ok {
			return Payload(m), true
		}
	}
	return nil, false
}

// First returns the first element of a list under the first matching key. A
// bare object under that key is accepted as a single element list.
func (p Payload) First(keys ...string) (Payload, bool) {
	for _, k := range keys {
		switch t := p[k].(type) {
		case []any:
			if len(t) == 0 {
				continue
			}
			if m, ok := t[0].(map[string]any); ok {
				return Payload(m), true
			}
		case map[string]any:
			return Payload(t), true
		}
	}
	return nil, false
}

// List returns every object element of the first list found under keys.
func (p Payload) List(keys ...string) []Payload {
	for _, k := range keys {
		l, ok := p[k].([]any)
		if !ok {
			continue
		}
		out := make([]Payload, 0, len(l))
		for _, v := range l {
			if m, ok := v.(map[string]any); ok {
				out = append(out, Payload(m))
			}
		}
		return out
	}
	return nil
}
