// Package types defines the value model shared by every layer of the engine:
// column data types, tagged SQL values, and rows.
package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidesql/tidesql/internal/sql/sqlerr"
)

// DataType is a column's declared type.
type DataType uint8

const (
	Boolean DataType = iota
	Integer
	Float
	String
)

func (d DataType) String() string {
	switch d {
	case Boolean:
		return "BOOLEAN"
	case Integer:
		return "INTEGER"
	case Float:
		return "FLOAT"
	case String:
		return "STRING"
	default:
		return fmt.Sprintf("DataType(%d)", uint8(d))
	}
}

// ParseDataType maps the type names CREATE TABLE accepts, including aliases,
// onto the canonical types. The name is matched case-insensitively.
func ParseDataType(name string) (DataType, bool) {
	switch strings.ToUpper(name) {
	case "BOOL", "BOOLEAN":
		return Boolean, true
	case "INT", "INTEGER":
		return Integer, true
	case "FLOAT", "DOUBLE":
		return Float, true
	case "STRING", "TEXT", "VARCHAR":
		return String, true
	default:
		return 0, false
	}
}

// Kind tags which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBoolean
	KindInteger
	KindFloat
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "NULL"
	case KindBoolean:
		return "BOOLEAN"
	case KindInteger:
		return "INTEGER"
	case KindFloat:
		return "FLOAT"
	case KindString:
		return "STRING"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is a single SQL value. Only the field selected by Kind is
// meaningful. Values are plain comparable structs so they can key maps
// during grouping and join matching; the zero value is SQL NULL.
type Value struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Float float64
	Str   string
}

func NullValue() Value           { return Value{Kind: KindNull} }
func BoolValue(v bool) Value     { return Value{Kind: KindBoolean, Bool: v} }
func IntValue(v int64) Value     { return Value{Kind: KindInteger, Int: v} }
func FloatValue(v float64) Value { return Value{Kind: KindFloat, Float: v} }
func StringValue(v string) Value { return Value{Kind: KindString, Str: v} }

func (v Value) IsNull() bool { return v.Kind == KindNull }

// DataType reports which column type this value inhabits. NULL inhabits
// none; ok is false for it.
func (v Value) DataType() (DataType, bool) {
	switch v.Kind {
	case KindBoolean:
		return Boolean, true
	case KindInteger:
		return Integer, true
	case KindFloat:
		return Float, true
	case KindString:
		return String, true
	default:
		return 0, false
	}
}

// String renders the value the way result tables display it.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "NULL"
	case KindBoolean:
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"
	case KindInteger:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindString:
		return v.Str
	default:
		return fmt.Sprintf("Value(%d)", uint8(v.Kind))
	}
}

// Equal compares two values under SQL semantics: NULL equals nothing, not
// even another NULL, and values of different kinds do not compare at all.
func Equal(a, b Value) (bool, error) {
	if a.IsNull() || b.IsNull() {
		return false, nil
	}
	if a.Kind != b.Kind {
		return false, sqlerr.TypeMismatchf("cannot compare %s and %s", a.Kind, b.Kind)
	}
	return a == b, nil
}

// Compare orders two non-null values of the same kind, returning -1, 0 or 1.
// FALSE orders before TRUE. NULLs never reach ordering; callers place them
// explicitly.
func Compare(a, b Value) (int, error) {
	if a.IsNull() || b.IsNull() {
		return 0, sqlerr.TypeMismatchf("cannot order NULL values")
	}
	if a.Kind != b.Kind {
		return 0, sqlerr.TypeMismatchf("cannot compare %s and %s", a.Kind, b.Kind)
	}
	switch a.Kind {
	case KindBoolean:
		switch {
		case a.Bool == b.Bool:
			return 0, nil
		case !a.Bool:
			return -1, nil
		default:
			return 1, nil
		}
	case KindInteger:
		switch {
		case a.Int < b.Int:
			return -1, nil
		case a.Int > b.Int:
			return 1, nil
		default:
			return 0, nil
		}
	case KindFloat:
		switch {
		case a.Float < b.Float:
			return -1, nil
		case a.Float > b.Float:
			return 1, nil
		default:
			return 0, nil
		}
	case KindString:
		return strings.Compare(a.Str, b.Str), nil
	default:
		return 0, sqlerr.TypeMismatchf("cannot compare %s", a.Kind)
	}
}

// valueWire is the JSON envelope. A tagged encoding keeps the
// Integer/Float distinction across the wire, which bare JSON numbers lose.
type valueWire struct {
	Type    string   `json:"type"`
	Boolean *bool    `json:"boolean,omitempty"`
	Integer *int64   `json:"integer,omitempty"`
	Float   *float64 `json:"float,omitempty"`
	Str     *string  `json:"string,omitempty"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	w := valueWire{Type: "null"}
	switch v.Kind {
	case KindNull:
	case KindBoolean:
		w.Type, w.Boolean = "boolean", &v.Bool
	case KindInteger:
		w.Type, w.Integer = "integer", &v.Int
	case KindFloat:
		w.Type, w.Float = "float", &v.Float
	case KindString:
		w.Type, w.Str = "string", &v.Str
	default:
		return nil, fmt.Errorf("types: cannot marshal %s", v.Kind)
	}
	return json.Marshal(w)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var w valueWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Type {
	case "null":
		*v = NullValue()
	case "boolean":
		if w.Boolean == nil {
			return fmt.Errorf("types: boolean value missing")
		}
		*v = BoolValue(*w.Boolean)
	case "integer":
		if w.Integer == nil {
			return fmt.Errorf("types: integer value missing")
		}
		*v = IntValue(*w.Integer)
	case "float":
		if w.Float == nil {
			return fmt.Errorf("types: float value missing")
		}
		*v = FloatValue(*w.Float)
	case "string":
		if w.Str == nil {
			return fmt.Errorf("types: string value missing")
		}
		*v = StringValue(*w.Str)
	default:
		return fmt.Errorf("types: unknown value type %q", w.Type)
	}
	return nil
}

// Row is an ordered tuple of values positionally aligned with a table's
// column order.
type Row []Value

func (r Row) Clone() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}
