// Package pack builds module images from TOML descriptions.
//
// A description names the module, its runtime and references, and the
// functions and types it declares:
//
//	name = "Calc"
//	version = "1.0.0.0"
//	runtime = "v4.0.30319"
//	references = [{ name = "mscorlib", version = "4.0.0.0" }]
//
//	[[types]]
//	namespace = "Calc"
//	name = "Api"
//
//	  [[types.methods]]
//	  name = "Add"
//	  returns = "int32"
//	  params = [{ name = "a", type = "int32" }, { name = "b", type = "int32" }]
//	  export = { ordinal = 1 }
package pack

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"fortio.org/safecast"
	"github.com/BurntSushi/toml"

	"exportgen/internal/diag"
	"exportgen/internal/metadata"
	"exportgen/internal/scan"
)

// Description is the decoded TOML form of a module.
type Description struct {
	Name           string       `toml:"name"`
	Version        string       `toml:"version"`
	PublicKeyToken string       `toml:"public_key_token"`
	Culture        string       `toml:"culture"`
	Runtime        string       `toml:"runtime"`
	References     []RefDesc    `toml:"references"`
	Functions      []MethodDesc `toml:"functions"`
	Types          []TypeDesc   `toml:"types"`
}

// RefDesc is a referenced module identity.
type RefDesc struct {
	Name           string `toml:"name"`
	Version        string `toml:"version"`
	PublicKeyToken string `toml:"public_key_token"`
	Culture        string `toml:"culture"`
}

// TypeDesc is a type definition.
type TypeDesc struct {
	Namespace     string       `toml:"namespace"`
	Name          string       `toml:"name"`
	Visibility    string       `toml:"visibility"`
	ValueType     bool         `toml:"value_type"`
	GenericParams []string     `toml:"generic_params"`
	Methods       []MethodDesc `toml:"methods"`
	Nested        []TypeDesc   `toml:"nested"`
}

// MethodDesc is a method. Static defaults to true.
type MethodDesc struct {
	Name          string         `toml:"name"`
	Visibility    string         `toml:"visibility"`
	Static        *bool          `toml:"static"`
	VarArg        bool           `toml:"vararg"`
	GenericParams []string       `toml:"generic_params"`
	Returns       string         `toml:"returns"`
	ReturnMarshal map[string]any `toml:"return_marshal"`
	Params        []ParamDesc    `toml:"params"`
	Export        *ExportDesc    `toml:"export"`
	Attributes    []AttrDesc     `toml:"attributes"`
}

// ParamDesc is a parameter. Flags may hold "in", "out" and "opt".
type ParamDesc struct {
	Name    string         `toml:"name"`
	Type    string         `toml:"type"`
	Flags   []string       `toml:"flags"`
	Marshal map[string]any `toml:"marshal"`
}

// ExportDesc is shorthand for the export marker record.
type ExportDesc struct {
	Name    string `toml:"name"`
	Ordinal int64  `toml:"ordinal"`
}

// AttrDesc is an arbitrary attribute record.
type AttrDesc struct {
	Type  string         `toml:"type"`
	Args  []any          `toml:"args"`
	Named map[string]any `toml:"named"`
}

// Options configures Build.
type Options struct {
	// Marker is the attribute identity the export shorthand expands to;
	// scan.DefaultMarker when empty.
	Marker string
}

// DecodeFile reads a description.
func DecodeFile(path string) (*Description, error) {
	var d Description
	meta, err := toml.DecodeFile(path, &d)
	if err != nil {
		return nil, diag.Wrap(diag.IORead, err, "%s: failed to parse TOML", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, diag.Errorf(diag.DscBadAttribute, "%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if !meta.IsDefined("name") || strings.TrimSpace(d.Name) == "" {
		return nil, diag.Errorf(diag.DscBadAttribute, "%s: missing name", path)
	}
	return &d, nil
}

// File decodes path and builds its image.
func File(path string, opts Options) (*metadata.Image, error) {
	d, err := DecodeFile(path)
	if err != nil {
		return nil, err
	}
	img, err := Build(d, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

type builder struct {
	opts   Options
	scopes map[string]int32
}

// Build converts d to an image.
func Build(d *Description, opts Options) (*metadata.Image, error) {
	if opts.Marker == "" {
		opts.Marker = scan.DefaultMarker
	}
	id, err := identity(d.Name, d.Version, d.PublicKeyToken, d.Culture)
	if err != nil {
		return nil, err
	}
	img := &metadata.Image{Identity: id, RuntimeVersion: d.Runtime}
	b := &builder{opts: opts, scopes: map[string]int32{strings.ToLower(d.Name): 0}}
	for i, r := range d.References {
		ref, err := identity(r.Name, r.Version, r.PublicKeyToken, r.Culture)
		if err != nil {
			return nil, err
		}
		scope, err := safecast.Conv[int32](i + 1)
		if err != nil {
			return nil, diag.Wrap(diag.DscBadScope, err, "too many references")
		}
		img.References = append(img.References, ref)
		b.scopes[strings.ToLower(r.Name)] = scope
	}
	for i := range d.Functions {
		m, err := b.method(&d.Functions[i])
		if err != nil {
			return nil, err
		}
		img.Functions = append(img.Functions, m)
	}
	for i := range d.Types {
		t, err := b.typeDef(&d.Types[i])
		if err != nil {
			return nil, err
		}
		img.Types = append(img.Types, t)
	}
	return img, nil
}

func identity(name, version, token, culture string) (metadata.AssemblyName, error) {
	id := metadata.AssemblyName{Name: name, Culture: culture}
	if name == "" {
		return id, diag.Errorf(diag.DscBadAttribute, "module identity without a name")
	}
	v, err := metadata.ParseVersion4(version)
	if err != nil {
		return id, diag.Wrap(diag.DscBadAttribute, err, "%s: version", name)
	}
	id.Version = v
	if token != "" {
		if id.PublicKeyToken, err = hex.DecodeString(token); err != nil {
			return id, diag.Wrap(diag.DscBadAttribute, err, "%s: public_key_token", name)
		}
	}
	return id, nil
}

func visibility(s string) (metadata.Visibility, error) {
	switch strings.ToLower(s) {
	case "", "public":
		return metadata.VisPublic, nil
	case "internal", "assembly":
		return metadata.VisInternal, nil
	case "private":
		return metadata.VisPrivate, nil
	default:
		return 0, diag.Errorf(diag.DscBadAttribute, "unknown visibility %q", s)
	}
}

func (b *builder) typeDef(d *TypeDesc) (*metadata.TypeDef, error) {
	vis, err := visibility(d.Visibility)
	if err != nil {
		return nil, fmt.Errorf("type %s: %w", d.Name, err)
	}
	t := &metadata.TypeDef{
		Namespace:     d.Namespace,
		Name:          d.Name,
		Visibility:    vis,
		ValueType:     d.ValueType,
		GenericParams: d.GenericParams,
	}
	for i := range d.Methods {
		m, err := b.method(&d.Methods[i])
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", d.Name, err)
		}
		t.Methods = append(t.Methods, m)
	}
	for i := range d.Nested {
		nested, err := b.typeDef(&d.Nested[i])
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", d.Name, err)
		}
		t.Nested = append(t.Nested, nested)
	}
	return t, nil
}

func (b *builder) method(d *MethodDesc) (*metadata.Method, error) {
	vis, err := visibility(d.Visibility)
	if err != nil {
		return nil, fmt.Errorf("method %s: %w", d.Name, err)
	}
	m := &metadata.Method{
		Name:          d.Name,
		Visibility:    vis,
		Static:        d.Static == nil || *d.Static,
		GenericParams: d.GenericParams,
	}
	if d.VarArg {
		m.CallConv = metadata.CallVarArg
	}
	ret := d.Returns
	if ret == "" {
		ret = "void"
	}
	if m.Return.Type, err = ParseType(ret, b.scopes); err != nil {
		return nil, fmt.Errorf("method %s: %w", d.Name, err)
	}
	if d.ReturnMarshal != nil {
		attr, err := marshalAttribute(d.ReturnMarshal)
		if err != nil {
			return nil, fmt.Errorf("method %s return: %w", d.Name, err)
		}
		m.Return.Attributes = append(m.Return.Attributes, attr)
	}
	for i, pd := range d.Params {
		p, err := b.param(pd)
		if err != nil {
			return nil, fmt.Errorf("method %s parameter %d: %w", d.Name, i, err)
		}
		m.Params = append(m.Params, p)
	}
	if d.Export != nil {
		marker := metadata.Attribute{Type: b.opts.Marker}
		if d.Export.Name != "" {
			marker.Named = append(marker.Named, metadata.NamedArg{Name: "Name", Value: metadata.StringValue(d.Export.Name)})
		}
		if d.Export.Ordinal != 0 {
			marker.Named = append(marker.Named, metadata.NamedArg{Name: "Ordinal", Value: metadata.IntValue(d.Export.Ordinal)})
		}
		m.Attributes = append(m.Attributes, marker)
	}
	for _, ad := range d.Attributes {
		attr, err := attribute(ad)
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", d.Name, err)
		}
		m.Attributes = append(m.Attributes, attr)
	}
	return m, nil
}

func (b *builder) param(d ParamDesc) (metadata.Param, error) {
	p := metadata.Param{Name: d.Name}
	var err error
	if p.Type, err = ParseType(d.Type, b.scopes); err != nil {
		return p, err
	}
	for _, f := range d.Flags {
		switch strings.ToLower(f) {
		case "in":
			p.Flags |= metadata.ParamIn
		case "out":
			p.Flags |= metadata.ParamOut
		case "opt", "optional":
			p.Flags |= metadata.ParamOptional
		default:
			return p, diag.Errorf(diag.DscBadAttribute, "unknown parameter flag %q", f)
		}
	}
	if d.Marshal != nil {
		attr, err := marshalAttribute(d.Marshal)
		if err != nil {
			return p, err
		}
		p.Attributes = append(p.Attributes, attr)
	}
	return p, nil
}

func attribute(d AttrDesc) (metadata.Attribute, error) {
	attr := metadata.Attribute{Type: d.Type}
	if d.Type == "" {
		return attr, diag.Errorf(diag.DscBadAttribute, "attribute without a type")
	}
	for i, raw := range d.Args {
		v, err := value(raw)
		if err != nil {
			return attr, fmt.Errorf("attribute %s argument %d: %w", d.Type, i, err)
		}
		attr.Args = append(attr.Args, v)
	}
	named, err := namedArgs(d.Named, nil)
	if err != nil {
		return attr, fmt.Errorf("attribute %s: %w", d.Type, err)
	}
	attr.Named = named
	return attr, nil
}

// marshalAttribute expands { kind = "LPArray", SizeConst = 4, ... }. Kind and
// ArraySubType may be given by name.
func marshalAttribute(fields map[string]any) (metadata.Attribute, error) {
	attr := metadata.Attribute{Type: metadata.MarshalAsAttribute}
	raw, ok := fields["kind"]
	if !ok {
		return attr, diag.Errorf(diag.DscBadAttribute, "marshal without kind")
	}
	kind, err := unmanagedValue(raw)
	if err != nil {
		return attr, err
	}
	attr.Args = []metadata.Value{kind}
	named, err := namedArgs(fields, map[string]bool{"kind": true})
	if err != nil {
		return attr, err
	}
	attr.Named = named
	return attr, nil
}

func unmanagedValue(raw any) (metadata.Value, error) {
	if name, ok := raw.(string); ok {
		ut, ok := metadata.ParseUnmanagedType(name)
		if !ok {
			return metadata.Value{}, diag.Errorf(diag.DscBadAttribute, "unknown marshal kind %q", name)
		}
		return metadata.IntValue(int64(ut)), nil
	}
	return value(raw)
}

// namedArgs converts a TOML table to named arguments in key order.
func namedArgs(fields map[string]any, skip map[string]bool) ([]metadata.NamedArg, error) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if !skip[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]metadata.NamedArg, 0, len(keys))
	for _, k := range keys {
		var (
			v   metadata.Value
			err error
		)
		switch k {
		case "ArraySubType":
			v, err = unmanagedValue(fields[k])
		case "MarshalTypeRef":
			s, ok := fields[k].(string)
			if !ok {
				return nil, diag.Errorf(diag.DscBadAttribute, "%s must be a type name", k)
			}
			v = metadata.TypeValue(s)
		default:
			v, err = value(fields[k])
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out = append(out, metadata.NamedArg{Name: k, Value: v})
	}
	return out, nil
}

func value(raw any) (metadata.Value, error) {
	switch v := raw.(type) {
	case int64:
		return metadata.IntValue(v), nil
	case string:
		return metadata.StringValue(v), nil
	case bool:
		return metadata.BoolValue(v), nil
	default:
		return metadata.Value{}, diag.Errorf(diag.DscBadAttribute, "unsupported argument value %v (%T)", raw, raw)
	}
}
