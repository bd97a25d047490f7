package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Record is one data row keyed by the header row. Keys keep header order when
// encoded to JSON.
type Record struct {
	keys   []string
	values map[string]any
}

// NewRecord creates a record from parallel key and value slices. Missing
// trailing values read as "".
func NewRecord(keys []string, cells []any) Record {
	r := Record{
		keys:   make([]string, 0, len(keys)),
		values: make(map[string]any, len(keys)),
	}
	for i, k := range keys {
		var v any = ""
		if i < len(cells) && cells[i] != nil {
			v = cells[i]
		}
		r.Set(k, v)
	}
	return r
}

// Keys returns the record keys in header order.
func (r Record) Keys() []string {
	return r.keys
}

// Has reports whether the record carries key.
func (r Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Get returns the raw value stored under key.
func (r Record) Get(key string) any {
	return r.values[key]
}

// Set stores v under key, appending the key when it is new.
func (r *Record) Set(key string, v any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// String returns the value under key formatted as text.
func (r Record) String(key string) string {
	return cellString(r.values[key])
}

// Float returns the value under key as a number, if it is one.
func (r Record) Float(key string) (float64, bool) {
	switch v := r.values[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

// ID returns the record's "id" value as an integer.
func (r Record) ID() (int, bool) {
	return cellInt(r.values["id"])
}

// Map returns a copy of the record as a plain map.
func (r Record) Map() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the record as an object in header order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func cellInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		if t != float64(int(t)) {
			return 0, false
		}
		return int(t), true
	case json.Number:
		n, err := strconv.Atoi(t.String())
		return n, err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	}
	return 0, false
}
