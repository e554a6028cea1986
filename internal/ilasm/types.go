package ilasm

import (
	"strings"

	"exportgen/internal/diag"
	"exportgen/internal/metadata"
)

// Scoper resolves the scope index of a named type signature to the identity
// of the module that defines it. *loader.Module implements it.
type Scoper interface {
	Scope(scope int32) (metadata.AssemblyName, bool, error)
}

// Writer renders type and marshal descriptors. It shares one AliasTable with
// the program being emitted.
type Writer struct {
	aliases *AliasTable
}

// NewWriter creates a Writer growing aliases.
func NewWriter(aliases *AliasTable) *Writer {
	return &Writer{aliases: aliases}
}

// Aliases is the table the writer allocates into.
func (w *Writer) Aliases() *AliasTable { return w.aliases }

var primitiveKeywords = map[metadata.Primitive]string{
	metadata.PrimVoid:     "void",
	metadata.PrimBool:     "bool",
	metadata.PrimChar:     "char",
	metadata.PrimString:   "string",
	metadata.PrimInt8:     "int8",
	metadata.PrimUint8:    "uint8",
	metadata.PrimInt16:    "int16",
	metadata.PrimUint16:   "uint16",
	metadata.PrimInt32:    "int32",
	metadata.PrimUint32:   "uint32",
	metadata.PrimInt64:    "int64",
	metadata.PrimUint64:   "uint64",
	metadata.PrimFloat32:  "float32",
	metadata.PrimFloat64:  "float64",
	metadata.PrimIntPtr:   "native int",
	metadata.PrimUintPtr:  "native uint",
	metadata.PrimTypedRef: "typedref",
	metadata.PrimObject:   "object",
}

// Type renders sig. Named types are qualified with the alias of the module
// that scope resolves them to. A nil sig renders as void.
func (w *Writer) Type(scope Scoper, sig *metadata.TypeSig) (string, error) {
	var sb strings.Builder
	if err := w.writeType(&sb, scope, sig); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (w *Writer) writeType(sb *strings.Builder, scope Scoper, sig *metadata.TypeSig) error {
	if sig == nil {
		sb.WriteString("void")
		return nil
	}
	switch sig.Kind {
	case metadata.SigByRef:
		if err := w.writeElem(sb, scope, sig); err != nil {
			return err
		}
		sb.WriteByte('&')
	case metadata.SigArray:
		if err := w.writeElem(sb, scope, sig); err != nil {
			return err
		}
		// Bounds are not representable here; only the rank survives.
		sb.WriteByte('[')
		for i := 1; i < sig.Rank; i++ {
			sb.WriteByte(',')
		}
		sb.WriteByte(']')
	case metadata.SigPointer:
		if err := w.writeElem(sb, scope, sig); err != nil {
			return err
		}
		sb.WriteByte('*')
	case metadata.SigPrimitive:
		kw, ok := primitiveKeywords[sig.Primitive]
		if !ok {
			return diag.Errorf(diag.DscUnsupportedType, "primitive type %d has no textual form", sig.Primitive)
		}
		sb.WriteString(kw)
	case metadata.SigNamed:
		return w.writeNamed(sb, scope, sig)
	default:
		return diag.Errorf(diag.DscUnsupportedType, "type signature of kind %s cannot be rendered", sig.Kind)
	}
	return nil
}

func (w *Writer) writeElem(sb *strings.Builder, scope Scoper, sig *metadata.TypeSig) error {
	if sig.Elem == nil {
		return diag.Errorf(diag.DscUnsupportedType, "%s signature without element type", sig.Kind)
	}
	return w.writeType(sb, scope, sig.Elem)
}

func (w *Writer) writeNamed(sb *strings.Builder, scope Scoper, sig *metadata.TypeSig) error {
	if sig.ValueType {
		sb.WriteString("valuetype ")
	} else {
		sb.WriteString("class ")
	}
	ref, err := w.TypeRef(scope, sig.Scope, sig.Namespace, sig.Enclosing, sig.Name)
	if err != nil {
		return err
	}
	sb.WriteString(ref)
	if len(sig.Args) == 0 {
		return nil
	}
	sb.WriteByte('<')
	for i, arg := range sig.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		if err := w.writeType(sb, scope, arg); err != nil {
			return err
		}
	}
	sb.WriteByte('>')
	return nil
}

// TypeRef renders "[alias]Ns.Outer/Inner" for a type defined in scopeIndex.
func (w *Writer) TypeRef(scope Scoper, scopeIndex int32, namespace string, enclosing []string, name string) (string, error) {
	if name == "" {
		return "", diag.Errorf(diag.DscUnsupportedType, "named type without a name")
	}
	id, isBase, err := scope.Scope(scopeIndex)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteByte('[')
	sb.WriteString(w.aliases.Resolve(id, isBase))
	sb.WriteByte(']')
	chain := append(enclosing[:len(enclosing):len(enclosing)], name)
	for i, part := range chain {
		if i == 0 {
			if namespace != "" {
				sb.WriteString(quoteDotted(namespace))
				sb.WriteByte('.')
			}
		} else {
			sb.WriteByte('/')
		}
		sb.WriteString(quoteID(part))
	}
	return sb.String(), nil
}
