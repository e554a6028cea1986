package metadata

// SigKind selects the shape of a TypeSig.
type SigKind uint8

const (
	SigInvalid SigKind = iota
	SigPrimitive
	SigPointer
	SigArray
	SigByRef
	SigNamed
)

func (k SigKind) String() string {
	switch k {
	case SigPrimitive:
		return "primitive"
	case SigPointer:
		return "pointer"
	case SigArray:
		return "array"
	case SigByRef:
		return "byref"
	case SigNamed:
		return "named"
	default:
		return "invalid"
	}
}

// Primitive enumerates the built-in element types.
type Primitive uint8

const (
	PrimNone Primitive = iota
	PrimVoid
	PrimBool
	PrimChar
	PrimInt8
	PrimUint8
	PrimInt16
	PrimUint16
	PrimInt32
	PrimUint32
	PrimInt64
	PrimUint64
	PrimFloat32
	PrimFloat64
	PrimIntPtr
	PrimUintPtr
	PrimTypedRef
	PrimObject
	PrimString
)

// TypeSig is the declared shape of a parameter or return type.
//
// Pointer, Array and ByRef wrap Elem. Named types live in Scope: 0 is the image
// the signature belongs to, n > 0 is Image.References[n-1].
type TypeSig struct {
	Kind      SigKind
	Primitive Primitive `msgpack:",omitempty"`
	Elem      *TypeSig  `msgpack:",omitempty"`
	Rank      int       `msgpack:",omitempty"`

	Scope     int32      `msgpack:",omitempty"`
	Namespace string     `msgpack:",omitempty"`
	Enclosing []string   `msgpack:",omitempty"`
	Name      string     `msgpack:",omitempty"`
	ValueType bool       `msgpack:",omitempty"`
	Args      []*TypeSig `msgpack:",omitempty"`
}

// Prim returns a primitive signature.
func Prim(p Primitive) *TypeSig { return &TypeSig{Kind: SigPrimitive, Primitive: p} }

// PointerTo returns elem*.
func PointerTo(elem *TypeSig) *TypeSig { return &TypeSig{Kind: SigPointer, Elem: elem} }

// ByRefTo returns elem&.
func ByRefTo(elem *TypeSig) *TypeSig { return &TypeSig{Kind: SigByRef, Elem: elem} }

// ArrayOf returns an array of elem with the given rank (rank < 1 is treated as 1).
func ArrayOf(elem *TypeSig, rank int) *TypeSig {
	if rank < 1 {
		rank = 1
	}
	return &TypeSig{Kind: SigArray, Elem: elem, Rank: rank}
}

// Named returns a reference to a type in scope.
func Named(scope int32, namespace, name string, enclosing ...string) *TypeSig {
	return &TypeSig{Kind: SigNamed, Scope: scope, Namespace: namespace, Name: name, Enclosing: enclosing}
}

// FullName is the dotted namespace, enclosing chain and name of a named type.
func (s *TypeSig) FullName() string {
	if s == nil {
		return ""
	}
	out := s.Namespace
	for _, outer := range s.Enclosing {
		out = joinDotted(out, outer)
	}
	return joinDotted(out, s.Name)
}

func joinDotted(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
