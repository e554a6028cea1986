package ilasm

import (
	"fmt"
	"sort"
	"strings"

	"exportgen/internal/diag"
	"exportgen/internal/metadata"
)

// Named parameters of the marshal-override record.
const (
	ParamArraySubType      = "ArraySubType"
	ParamSizeConst         = "SizeConst"
	ParamSizeParamIndex    = "SizeParamIndex"
	ParamSafeArraySubType  = "SafeArraySubType"
	ParamIidParameterIndex = "IidParameterIndex"
	ParamMarshalType       = "MarshalType"
	ParamMarshalTypeRef    = "MarshalTypeRef"
	ParamMarshalCookie     = "MarshalCookie"
)

// Directive is a marshal-override request: a kind plus the auxiliary
// parameters that came with it. Rendering drains the parameters the kind
// consumes; anything left over cannot be expressed and is rejected.
type Directive struct {
	Kind   metadata.UnmanagedType
	params map[string]metadata.Value
}

// NewDirective reads a marshal-override attribute record. The kind is the first
// positional argument.
func NewDirective(attr *metadata.Attribute) (*Directive, error) {
	if attr == nil || len(attr.Args) == 0 {
		return nil, diag.Errorf(diag.DscBadAttribute, "marshal attribute without a kind argument")
	}
	kind, err := attr.Args[0].AsInt()
	if err != nil {
		return nil, diag.Wrap(diag.DscBadAttribute, err, "marshal attribute kind")
	}
	d := &Directive{Kind: metadata.UnmanagedType(kind), params: make(map[string]metadata.Value, len(attr.Named))}
	for _, n := range attr.Named {
		d.params[n.Name] = n.Value
	}
	return d, nil
}

// take removes and returns the named parameter.
func (d *Directive) take(name string) (metadata.Value, bool) {
	v, ok := d.params[name]
	if ok {
		delete(d.params, name)
	}
	return v, ok
}

func (d *Directive) takeInt(name string) (int64, bool, error) {
	v, ok := d.take(name)
	if !ok {
		return 0, false, nil
	}
	i, err := v.AsInt()
	if err != nil {
		return 0, false, diag.Wrap(diag.DscBadAttribute, err, "marshal parameter %s", name)
	}
	if i < 0 {
		return 0, false, diag.Errorf(diag.DscBadAttribute, "marshal parameter %s must not be negative, got %d", name, i)
	}
	return i, true, nil
}

func (d *Directive) takeString(name string) (string, bool, error) {
	v, ok := d.take(name)
	if !ok {
		return "", false, nil
	}
	s, err := v.AsString()
	if err != nil {
		return "", false, diag.Wrap(diag.DscBadAttribute, err, "marshal parameter %s", name)
	}
	return s, true, nil
}

func (d *Directive) leftover() error {
	if len(d.params) == 0 {
		return nil
	}
	names := make([]string, 0, len(d.params))
	for name := range d.params {
		names = append(names, name)
	}
	sort.Strings(names)
	return diag.Errorf(diag.DscLeftoverParam, "marshal kind %s does not accept %s", d.Kind, strings.Join(names, ", "))
}

// simpleNative are the kinds that map straight to a keyword.
var simpleNative = map[metadata.UnmanagedType]string{
	metadata.UTBool:        "bool",
	metadata.UTI1:          "int8",
	metadata.UTU1:          "unsigned int8",
	metadata.UTI2:          "int16",
	metadata.UTU2:          "unsigned int16",
	metadata.UTI4:          "int32",
	metadata.UTU4:          "unsigned int32",
	metadata.UTI8:          "int64",
	metadata.UTU8:          "unsigned int64",
	metadata.UTR4:          "float32",
	metadata.UTR8:          "float64",
	metadata.UTCurrency:    "currency",
	metadata.UTBStr:        "bstr",
	metadata.UTLPStr:       "lpstr",
	metadata.UTLPWStr:      "lpwstr",
	metadata.UTLPTStr:      "lptstr",
	metadata.UTStruct:      "struct",
	metadata.UTSysInt:      "int",
	metadata.UTSysUInt:     "unsigned int",
	metadata.UTVBByRefStr:  "byvalstr",
	metadata.UTAnsiBStr:    "ansi bstr",
	metadata.UTTBStr:       "tbstr",
	metadata.UTVariantBool: "variant bool",
	metadata.UTFunctionPtr: "method",
	metadata.UTAsAny:       "as any",
	metadata.UTLPStruct:    "lpstruct",
	metadata.UTError:       "error",
}

var interfaceNative = map[metadata.UnmanagedType]string{
	metadata.UTIUnknown:  "iunknown",
	metadata.UTIDispatch: "idispatch",
	metadata.UTInterface: "interface",
}

// Marshal renders the native type of a marshal-override attribute, without
// the surrounding marshal( ).
func (w *Writer) Marshal(attr *metadata.Attribute) (string, error) {
	d, err := NewDirective(attr)
	if err != nil {
		return "", err
	}
	return w.RenderDirective(d)
}

// RenderDirective renders d and consumes its parameters.
func (w *Writer) RenderDirective(d *Directive) (string, error) {
	var sb strings.Builder
	if err := w.writeNative(&sb, d); err != nil {
		return "", err
	}
	if err := d.leftover(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (w *Writer) writeNative(sb *strings.Builder, d *Directive) error {
	if kw, ok := simpleNative[d.Kind]; ok {
		sb.WriteString(kw)
		return nil
	}
	if kw, ok := interfaceNative[d.Kind]; ok {
		sb.WriteString(kw)
		idx, ok, err := d.takeInt(ParamIidParameterIndex)
		if err != nil {
			return err
		}
		if ok {
			fmt.Fprintf(sb, "(iidparam = %d)", idx)
		}
		return nil
	}

	switch d.Kind {
	case metadata.UTLPArray:
		return w.writeLPArray(sb, d)
	case metadata.UTSafeArray:
		sb.WriteString("safearray")
		v, ok := d.take(ParamSafeArraySubType)
		if !ok {
			return nil
		}
		raw, err := v.AsInt()
		if err != nil {
			return diag.Wrap(diag.DscBadAttribute, err, "marshal parameter %s", ParamSafeArraySubType)
		}
		variant, err := renderVariant(metadata.VarEnum(raw))
		if err != nil {
			return err
		}
		if variant != "" {
			sb.WriteByte(' ')
			sb.WriteString(variant)
		}
		return nil
	case metadata.UTByValArray:
		size, ok, err := d.takeInt(ParamSizeConst)
		if err != nil {
			return err
		}
		if !ok {
			return diag.Errorf(diag.DscMissingParam, "marshal kind %s requires %s", d.Kind, ParamSizeConst)
		}
		fmt.Fprintf(sb, "fixed array [%d]", size)
		elem, err := w.subType(d)
		if err != nil {
			return err
		}
		if elem != "" {
			sb.WriteByte(' ')
			sb.WriteString(elem)
		}
		return nil
	case metadata.UTByValTStr:
		size, ok, err := d.takeInt(ParamSizeConst)
		if err != nil {
			return err
		}
		if !ok {
			return diag.Errorf(diag.DscMissingParam, "marshal kind %s requires %s", d.Kind, ParamSizeConst)
		}
		fmt.Fprintf(sb, "fixed sysstring [%d]", size)
		return nil
	case metadata.UTCustomMarshaler:
		return writeCustom(sb, d)
	default:
		return diag.Errorf(diag.DscUnsupportedMarshal, "marshal kind %s cannot be rendered", d.Kind)
	}
}

// subType renders the optional ArraySubType as a parameterless directive.
func (w *Writer) subType(d *Directive) (string, error) {
	v, ok := d.take(ParamArraySubType)
	if !ok {
		return "", nil
	}
	raw, err := v.AsInt()
	if err != nil {
		return "", diag.Wrap(diag.DscBadAttribute, err, "marshal parameter %s", ParamArraySubType)
	}
	sub := &Directive{Kind: metadata.UnmanagedType(raw), params: map[string]metadata.Value{}}
	out, err := w.RenderDirective(sub)
	if err != nil {
		return "", diag.Wrap(diag.CodeOf(err), err, "array element of marshal kind %s", d.Kind)
	}
	return out, nil
}

func (w *Writer) writeLPArray(sb *strings.Builder, d *Directive) error {
	elem, err := w.subType(d)
	if err != nil {
		return err
	}
	sb.WriteString(elem)
	size, hasSize, err := d.takeInt(ParamSizeConst)
	if err != nil {
		return err
	}
	index, hasIndex, err := d.takeInt(ParamSizeParamIndex)
	if err != nil {
		return err
	}
	sb.WriteByte('[')
	switch {
	case hasSize && hasIndex:
		fmt.Fprintf(sb, "%d+%d", size, index)
	case hasSize:
		fmt.Fprintf(sb, "%d", size)
	case hasIndex:
		fmt.Fprintf(sb, "+%d", index)
	}
	sb.WriteByte(']')
	return nil
}

func writeCustom(sb *strings.Builder, d *Directive) error {
	typeName, hasName, err := d.takeString(ParamMarshalType)
	if err != nil {
		return err
	}
	typeRef, hasRef, err := d.takeString(ParamMarshalTypeRef)
	if err != nil {
		return err
	}
	if !hasName || typeName == "" {
		typeName, hasName = typeRef, hasRef
	}
	if !hasName || typeName == "" {
		return diag.Errorf(diag.DscMissingParam, "marshal kind %s requires %s or %s", d.Kind, ParamMarshalType, ParamMarshalTypeRef)
	}
	cookie, _, err := d.takeString(ParamMarshalCookie)
	if err != nil {
		return err
	}
	fmt.Fprintf(sb, "custom (\"%s\", \"%s\")", escapeDouble(typeName), escapeDouble(cookie))
	return nil
}

var variantNames = map[metadata.VarEnum]string{
	metadata.VTEmpty:          "",
	metadata.VTNull:           "null",
	metadata.VTI2:             "int16",
	metadata.VTI4:             "int32",
	metadata.VTR4:             "float32",
	metadata.VTR8:             "float64",
	metadata.VTCY:             "currency",
	metadata.VTDate:           "date",
	metadata.VTBStr:           "bstr",
	metadata.VTDispatch:       "idispatch",
	metadata.VTError:          "error",
	metadata.VTBool:           "bool",
	metadata.VTVariant:        "variant",
	metadata.VTUnknown:        "iunknown",
	metadata.VTDecimal:        "decimal",
	metadata.VTI1:             "int8",
	metadata.VTUI1:            "unsigned int8",
	metadata.VTUI2:            "unsigned int16",
	metadata.VTUI4:            "unsigned int32",
	metadata.VTI8:             "int64",
	metadata.VTUI8:            "unsigned int64",
	metadata.VTInt:            "int",
	metadata.VTUInt:           "unsigned int",
	metadata.VTVoid:           "void",
	metadata.VTHResult:        "hresult",
	metadata.VTPtr:            "*",
	metadata.VTSafeArray:      "safearray",
	metadata.VTCArray:         "carray",
	metadata.VTUserDefined:    "userdefined",
	metadata.VTLPStr:          "lpstr",
	metadata.VTLPWStr:         "lpwstr",
	metadata.VTRecord:         "record",
	metadata.VTFileTime:       "filetime",
	metadata.VTBlob:           "blob",
	metadata.VTStream:         "stream",
	metadata.VTStorage:        "storage",
	metadata.VTStreamedObject: "streamed_object",
	metadata.VTStoredObject:   "stored_object",
	metadata.VTBlobObject:     "blob_object",
	metadata.VTCF:             "cf",
	metadata.VTCLSID:          "clsid",
}

// renderVariant renders a safe-array element sub-type. The modifier flags
// append "vector", "[]" and "&" to the base type.
func renderVariant(v metadata.VarEnum) (string, error) {
	flags := v &^ metadata.VTTypeMask
	if flags&^(metadata.VTVector|metadata.VTArray|metadata.VTByRef) != 0 {
		return "", diag.Errorf(diag.DscUnsupportedVariant, "variant sub-type 0x%x carries unknown flags", int64(v))
	}
	name, ok := variantNames[v&metadata.VTTypeMask]
	if !ok {
		return "", diag.Errorf(diag.DscUnsupportedVariant, "variant sub-type %d cannot be rendered", int64(v&metadata.VTTypeMask))
	}
	if flags != 0 && name == "" {
		return "", diag.Errorf(diag.DscUnsupportedVariant, "variant modifiers 0x%x without a base type", int64(flags))
	}
	if flags&metadata.VTVector != 0 {
		name += " vector"
	}
	if flags&metadata.VTArray != 0 {
		name += "[]"
	}
	if flags&metadata.VTByRef != 0 {
		name += "&"
	}
	return name, nil
}
