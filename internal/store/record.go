package store

import (
	"encoding/json"
	"math"
)

// Record is one fixture-style entity. Fields hold decoded JSON values
// (json.Number, bool, string, nil, or nested maps/slices).
type Record struct {
	Kind   Kind
	PK     int64
	Fields map[string]any
}

// NewRecord copies fields into a fresh record, normalizing field names.
func NewRecord(kind Kind, pk int64, fields map[string]any) Record {
	r := Record{Kind: kind, PK: pk, Fields: make(map[string]any, len(fields))}
	for k, v := range fields {
		r.Fields[NormalizeField(k)] = v
	}
	return r
}

func (r Record) Clone() Record {
	c := Record{Kind: r.Kind, PK: r.PK, Fields: make(map[string]any, len(r.Fields))}
	for k, v := range r.Fields {
		c.Fields[k] = v
	}
	return c
}

// Has reports whether the field is present, including explicit nulls.
func (r Record) Has(field string) bool {
	_, ok := r.Fields[field]
	return ok
}

// IsNull is true for absent fields and explicit nulls alike.
func (r Record) IsNull(field string) bool {
	return r.Fields[field] == nil
}

// Int returns an integral field value. ok is false for null, absent or
// non-numeric values.
func (r Record) Int(field string) (int64, bool) {
	switch v := r.Fields[field].(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, true
		}
		f, err := v.Float64()
		if err != nil || f != math.Trunc(f) {
			return 0, false
		}
		return int64(f), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}
}

// Ref returns the primary key a reference field points at.
func (r Record) Ref(field string) (int64, bool) {
	return r.Int(field)
}

func (r Record) Bool(field string) bool {
	b, _ := r.Fields[field].(bool)
	return b
}

func (r Record) String(field string) string {
	s, _ := r.Fields[field].(string)
	return s
}
