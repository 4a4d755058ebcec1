package model

import (
	"encoding/json"
	"math"
	"strconv"
)

// Value is a float that may be missing. The zero Value is missing.
type Value struct {
	Float float64
	Valid bool
}

// Some returns a present Value. NaN and infinities are treated as missing.
func Some(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{Float: f, Valid: true}
}

// Missing returns a missing Value.
func Missing() Value { return Value{} }

// Lookup returns the field from a record map as a Value.
func Lookup(fields map[string]float64, key string) Value {
	f, ok := fields[key]
	if !ok {
		return Value{}
	}
	return Some(f)
}

// Ptr returns nil for a missing Value.
func (v Value) Ptr() *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float
	return &f
}


// String formats the value in its shortest form, or "" when missing.
func (v Value) String() string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Float, 'f', -1, 64)
}

// MarshalJSON encodes a missing value as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.Float)
}

// UnmarshalJSON accepts a number or null.
func (v *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = Value{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*v = Some(f)
	return nil
}

// MarshalYAML encodes a missing value as null.
func (v Value) MarshalYAML() (any, error) {
	if !v.Valid {
		return nil, nil
	}
	return v.Float, nil
}
