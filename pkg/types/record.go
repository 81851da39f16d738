package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Record is a raw table row: the decoded JSON document. Numbers are kept as
// json.Number so that values survive export and import unchanged.
type Record map[string]any

// DecodeRecord parses a JSON object into a Record.
func DecodeRecord(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	if rec == nil {
		return nil, ErrInvalidData
	}
	return rec, nil
}

// ToRecord converts an entity struct into a Record.
func ToRecord(v any) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}
	return DecodeRecord(data)
}

// Decode fills v, a pointer to an entity struct, from the record.
func (r Record) Decode(v any) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return nil
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Key returns the string form of the field, or "" when it is absent or
// null.
func (r Record) Key(field string) string {
	v, ok := r[field]
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// Has reports whether the field is present with a non-null value.
func (r Record) Has(field string) bool {
	v, ok := r[field]
	return ok && v != nil
}

// Truthy reports whether the field holds a value other than null, false,
// zero or the empty string.
func (r Record) Truthy(field string) bool {
	switch x := r[field].(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case json.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	case float64:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	default:
		return true
	}
}

// Text returns the trimmed string form of the field.
func (r Record) Text(field string) string {
	return strings.TrimSpace(r.Key(field))
}
