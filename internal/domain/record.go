package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Field is one named value of a Record, kept as raw JSON.
type Field struct {
	Name  string
	Value json.RawMessage
}

// Record is a normalized, flat set of named fields. Field order is
// preserved when the record is written.
type Record struct {
	fields []Field
}

// Set adds the field, or replaces its value if it already exists.
func (r *Record) Set(name string, value json.RawMessage) {
	for i := range r.fields {
		if r.fields[i].Name == name {
			r.fields[i].Value = value
			return
		}
	}
	r.fields = append(r.fields, Field{Name: name, Value: value})
}

// SetValue marshals v and sets it.
func (r *Record) SetValue(name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal field %s: %w", name, err)
	}
	r.Set(name, b)
	return nil
}

// MustSetValue is SetValue for values that always marshal: strings, string
// slices, Counts and Records. It panics otherwise.
func (r *Record) MustSetValue(name string, v any) {
	if err := r.SetValue(name, v); err != nil {
		panic(err)
	}
}

// Get returns the raw value of a field.
func (r Record) Get(name string) (json.RawMessage, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// GetString returns a field as a string. Numbers are returned in their JSON
// text form.
func (r Record) GetString(name string) string {
	v, ok := r.Get(name)
	if !ok {
		return ""
	}
	return gjson.ParseBytes(v).String()
}

// Has reports whether a field is present.
func (r Record) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Delete removes a field if present.
func (r *Record) Delete(name string) {
	for i := range r.fields {
		if r.fields[i].Name == name {
			r.fields = append(r.fields[:i], r.fields[i+1:]...)
			return
		}
	}
}

// Names lists the field names in order.
func (r Record) Names() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if len(f.Value) == 0 {
			buf.WriteString("null")
			continue
		}
		buf.Write(f.Value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Record) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("%w: invalid json", ErrMalformedRecord)
	}
	res := gjson.ParseBytes(data)
	if !res.IsObject() {
		return fmt.Errorf("%w: not an object", ErrMalformedRecord)
	}
	r.fields = r.fields[:0]
	res.ForEach(func(k, v gjson.Result) bool {
		r.fields = append(r.fields, Field{Name: k.String(), Value: json.RawMessage(v.Raw)})
		return true
	})
	return nil
}
