package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"

	"github.com/tidwall/gjson"
)

// Count is a single category value and how often it was seen.
type Count struct {
	Name  string
	Count int
}

// Counts is a name -> count tally that remembers first-seen order.
type Counts struct {
	order []string
	n     map[string]int
}

// NewCounts returns an empty tally.
func NewCounts() *Counts {
	return &Counts{n: make(map[string]int)}
}

// Add increments name by delta, creating it on first sight.
func (c *Counts) Add(name string, delta int) {
	if c.n == nil {
		c.n = make(map[string]int)
	}
	if _, ok := c.n[name]; !ok {
		c.order = append(c.order, name)
	}
	c.n[name] += delta
}

// Get returns the count for name.
func (c *Counts) Get(name string) int {
	if c == nil {
		return 0
	}
	return c.n[name]
}

// Entries returns the counts in first-seen order.
func (c *Counts) Entries() []Count {
	if c == nil {
		return nil
	}
	out := make([]Count, len(c.order))
	for i, name := range c.order {
		out[i] = Count{Name: name, Count: c.n[name]}
	}
	return out
}

// Sorted returns the counts by count descending; equal counts keep their
// first-seen order.
func (c *Counts) Sorted() []Count {
	out := c.Entries()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// MarshalJSON writes a JSON object in first-seen order.
func (c *Counts) MarshalJSON() ([]byte, error) {
	return MarshalCounts(c.Entries())
}

// MarshalCounts writes entries as one JSON object, keeping their order.
func MarshalCounts(entries []Count) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(e.Count)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalCounts parses a JSON object of counts, keeping key order.
func UnmarshalCounts(data []byte) ([]Count, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("counts: invalid json")
	}
	res := gjson.ParseBytes(data)
	if !res.IsObject() {
		return nil, errors.New("counts: not an object")
	}
	var out []Count
	res.ForEach(func(k, v gjson.Result) bool {
		out = append(out, Count{Name: k.String(), Count: int(v.Int())})
		return true
	})
	return out, nil
}
