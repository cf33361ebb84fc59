// Package payload turns raw API response bodies into the values the scenario checks.
//
// Servers under test may wrap results in a {"data": ...} envelope or return them
// bare, and may name a resource's identifier "_id" or "id". Both conventions are
// accepted everywhere in this package.
package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EnvelopeField is the key a server may wrap its payload in.
const EnvelopeField = "data"

// Identifier key names, in resolution order.
const (
	PrimaryIDKey  = "_id"
	FallbackIDKey = "id"
)

// Normalize decodes body and returns the logical payload: the value of the
// envelope field when the body is an object carrying it, the whole body otherwise.
func Normalize(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	if obj, ok := decoded.(map[string]any); ok {
		if inner, ok := obj[EnvelopeField]; ok {
			return inner, nil
		}
	}
	return decoded, nil
}

// Field returns the value stored under key when p is an object.
func Field(p any, key string) (any, bool) {
	obj, ok := p.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := obj[key]
	return v, ok
}

// String returns the string stored under key. Non-string values report false.
func String(p any, key string) (string, bool) {
	v, ok := Field(p, key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// List returns p as a list of elements.
func List(p any) ([]any, bool) {
	items, ok := p.([]any)
	return items, ok
}

// ResolveID returns the identifier of a single resource payload, preferring
// PrimaryIDKey over FallbackIDKey. Empty values are treated as absent.
func ResolveID(p any) (string, bool) {
	for _, key := range []string{PrimaryIDKey, FallbackIDKey} {
		v, ok := Field(p, key)
		if !ok {
			continue
		}
		if id, ok := idString(v); ok {
			return id, true
		}
	}
	return "", false
}

// ContainsID reports whether any element of items carries id under either key name.
func ContainsID(items []any, id string) bool {
	if id == "" {
		return false
	}
	for _, item := range items {
		for _, key := range []string{PrimaryIDKey, FallbackIDKey} {
			v, ok := Field(item, key)
			if !ok {
				continue
			}
			if got, ok := idString(v); ok && got == id {
				return true
			}
		}
	}
	return false
}

func idString(v any) (string, bool) {
	switch id := v.(type) {
	case string:
		return id, id != ""
	case json.Number:
		return id.String(), true
	default:
		return "", false
	}
}
