package config

import (
	"slices"
	"strconv"
	"strings"
)

// Kind tags the concrete type held by a Value.
type Kind int

const (
	// KindAbsent is the zero Kind: no value at all. It is distinct from
	// false, 0, '' and [].
	KindAbsent Kind = iota
	// KindBool holds true or false.
	KindBool
	// KindInt holds a signed 64-bit integer.
	KindInt
	// KindString holds text, including digit-only text such as "007".
	KindString
	// KindList holds an ordered list of strings.
	KindList
)

// String returns the lower-case kind name used in messages.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindList:
		return "list"
	default:
		return "absent"
	}
}

// Value is a configuration value: a bool, an int, a string, an ordered list
// of strings, or absent. The zero Value is absent.
type Value struct {
	kind Kind
	b    bool
	i    int64
	s    string
	list []string
}

// BoolValue returns a bool Value.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// IntValue returns an int Value.
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }

// StringValue returns a string Value. s is kept verbatim, never inferred.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// ListValue copies items, keeping their order and duplicates.
func ListValue(items ...string) Value {
	return Value{kind: KindList, list: slices.Clone(items)}
}

// Kind reports which type v holds.
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether v is the zero Value.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// Bool returns the bool held by v; ok is false for any other kind.
func (v Value) Bool() (b bool, ok bool) { return v.b, v.kind == KindBool }

// Int returns the integer held by v; ok is false for any other kind.
func (v Value) Int() (i int64, ok bool) { return v.i, v.kind == KindInt }

// Text returns the string held by v; ok is false for any other kind,
// including lists. Use String for the textual form of any kind.
func (v Value) Text() (s string, ok bool) { return v.s, v.kind == KindString }

// List returns a copy of the items held by v; ok is false for any other kind.
func (v Value) List() (items []string, ok bool) { return slices.Clone(v.list), v.kind == KindList }

// String returns the plain textual form: "true", "2", "gcc",
// "cranelift,llvm". Absent renders as "".
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindString:
		return v.s
	case KindList:
		return strings.Join(v.list, ",")
	default:
		return ""
	}
}

// Equal reports whether v and o have the same kind and contents. A nil and an
// empty list are equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindString:
		return v.s == o.s
	case KindList:
		return slices.Equal(v.list, o.list)
	default:
		return true
	}
}

// native returns v as a plain Go value (bool, int64, string, []any) for
// JSON-schema validation. Absent yields nil.
func (v Value) native() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindString:
		return v.s
	case KindList:
		items := make([]any, len(v.list))
		for i, s := range v.list {
			items[i] = s
		}
		return items
	default:
		return nil
	}
}
