package domain

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// RawItem is an unmodified upstream JSON object. Fields are read through
// gjson rather than decoded into fixed structs so that any field the API
// returns can be projected.
type RawItem struct {
	res gjson.Result
}

// NewRawItem wraps a JSON object.
func NewRawItem(data []byte) RawItem {
	return RawItem{res: gjson.ParseBytes(data)}
}

// RawFromResult wraps an already parsed gjson value.
func RawFromResult(r gjson.Result) RawItem {
	return RawItem{res: r}
}

// RawFromValue marshals v and wraps the result.
func RawFromValue(v any) (RawItem, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return RawItem{}, err
	}
	return NewRawItem(b), nil
}

// Get returns the top-level field with exactly this name. Names are matched
// literally, so keys containing dots or wildcards are safe.
func (r RawItem) Get(field string) (gjson.Result, bool) {
	var out gjson.Result
	found := false
	if !r.res.IsObject() {
		return out, false
	}
	r.res.ForEach(func(k, v gjson.Result) bool {
		if k.String() == field {
			out, found = v, true
			return false
		}
		return true
	})
	return out, found
}

// String returns a top-level field as a string, empty when absent.
func (r RawItem) String(field string) string {
	v, ok := r.Get(field)
	if !ok {
		return ""
	}
	return v.String()
}

// Raw returns the item's JSON text.
func (r RawItem) Raw() string {
	return r.res.Raw
}
