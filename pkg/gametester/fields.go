package gametester

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
)

// Field is a single request field
type Field struct {
	Key   string
	Value any
}

// Fields is an ordered set of request fields.
// JSON output keeps insertion order so request bodies are deterministic.
type Fields struct {
	list []Field
}

// NewFields creates an empty field set
func NewFields() *Fields {
	return &Fields{}
}

// Set adds a field, or replaces the value of an existing one in place
func (f *Fields) Set(key string, value any) {
	for i := range f.list {
		if f.list[i].Key == key {
			f.list[i].Value = value
			return
		}
	}
	f.list = append(f.list, Field{Key: key, Value: value})
}

// Get returns the value of key
func (f *Fields) Get(key string) (any, bool) {
	for _, field := range f.list {
		if field.Key == key {
			return field.Value, true
		}
	}
	return nil, false
}

// Has reports whether key is set
func (f *Fields) Has(key string) bool {
	_, ok := f.Get(key)
	return ok
}

// Keys returns the field names in insertion order
func (f *Fields) Keys() []string {
	keys := make([]string, len(f.list))
	for i, field := range f.list {
		keys[i] = field.Key
	}
	return keys
}

// Len returns the number of fields
func (f *Fields) Len() int {
	return len(f.list)
}

// MarshalJSON writes the fields as one JSON object in insertion order.
// Strings are quoted; other values are written as JSON literals.
func (f *Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, field := range f.list {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(field.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		value, err := json.Marshal(field.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field.Key, err)
		}
		buf.Write(value)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Form returns the fields as url.Values with every value stringified
func (f *Fields) Form() url.Values {
	values := make(url.Values, len(f.list))
	for _, field := range f.list {
		values.Set(field.Key, fmt.Sprint(field.Value))
	}
	return values
}

// Encode serializes the fields and returns the matching Content-Type
func (f *Fields) Encode(enc Encoding) ([]byte, string, error) {
	switch enc {
	case EncodingForm:
		return []byte(f.Form().Encode()), "application/x-www-form-urlencoded", nil
	case EncodingJSON, "":
		body, err := f.MarshalJSON()
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal request: %w", err)
		}
		return body, "application/json", nil
	default:
		return nil, "", fmt.Errorf("unknown encoding %q", enc)
	}
}
