package metadata

import "fmt"

// MarshalAsAttribute is the declaring-type identity of the marshal-override record.
const MarshalAsAttribute = "System.Runtime.InteropServices.MarshalAsAttribute"

// Attribute is a raw attribute record: the declaring type identity plus the
// constructor and named arguments as stored. Records are matched structurally
// by Type and never turned back into live objects.
type Attribute struct {
	Type  string
	Args  []Value    `msgpack:",omitempty"`
	Named []NamedArg `msgpack:",omitempty"`
}

// NamedArg is a field or property assignment in an attribute record.
type NamedArg struct {
	Name  string
	Value Value
}

// Lookup returns the named argument called name.
func (a *Attribute) Lookup(name string) (Value, bool) {
	if a == nil {
		return Value{}, false
	}
	for _, n := range a.Named {
		if n.Name == name {
			return n.Value, true
		}
	}
	return Value{}, false
}

// ValueKind tags the payload of a Value.
type ValueKind uint8

const (
	ValNone ValueKind = iota
	ValInt
	ValString
	ValBool
	ValType
)

func (k ValueKind) String() string {
	switch k {
	case ValInt:
		return "int"
	case ValString:
		return "string"
	case ValBool:
		return "bool"
	case ValType:
		return "type"
	default:
		return "none"
	}
}

// Value is an attribute argument.
type Value struct {
	Kind ValueKind
	Int  int64  `msgpack:",omitempty"`
	Str  string `msgpack:",omitempty"`
	Bool bool   `msgpack:",omitempty"`
}

// IntValue wraps an integer argument (enums are stored as their underlying integer).
func IntValue(i int64) Value { return Value{Kind: ValInt, Int: i} }

// StringValue wraps a string argument.
func StringValue(s string) Value { return Value{Kind: ValString, Str: s} }

// BoolValue wraps a boolean argument.
func BoolValue(b bool) Value { return Value{Kind: ValBool, Bool: b} }

// TypeValue wraps a type argument by its full name.
func TypeValue(name string) Value { return Value{Kind: ValType, Str: name} }

// AsInt returns the integer payload.
func (v Value) AsInt() (int64, error) {
	if v.Kind != ValInt {
		return 0, fmt.Errorf("expected int argument, got %s", v.Kind)
	}
	return v.Int, nil
}

// AsString returns the string (or type name) payload.
func (v Value) AsString() (string, error) {
	if v.Kind != ValString && v.Kind != ValType {
		return "", fmt.Errorf("expected string argument, got %s", v.Kind)
	}
	return v.Str, nil
}

func (v Value) String() string {
	switch v.Kind {
	case ValInt:
		return fmt.Sprintf("%d", v.Int)
	case ValString:
		return fmt.Sprintf("%q", v.Str)
	case ValBool:
		return fmt.Sprintf("%t", v.Bool)
	case ValType:
		return "typeof(" + v.Str + ")"
	default:
		return "<none>"
	}
}
