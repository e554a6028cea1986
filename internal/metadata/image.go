// Package metadata models compiled module images: identity, references, the
// type tree, method signatures and raw attribute records.
//
// Images are plain data. Nothing in this package (or in its consumers)
// executes code from a module; an image is decoded, inspected and dropped.
package metadata

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// ImageSchema is the current on-disk image layout. Increment when Image changes shape.
const ImageSchema uint16 = 1

// Image is one compiled module.
type Image struct {
	Schema uint16

	Identity AssemblyName
	// RuntimeVersion is the runtime the module was compiled against, e.g. "v4.0.30319".
	RuntimeVersion string
	// References lists the modules TypeSig scopes point into; scope n is References[n-1].
	References []AssemblyName

	// Functions are module-level methods that belong to no type.
	Functions []*Method
	Types     []*TypeDef
}

// Version4 is a four-component module version.
type Version4 [4]uint16

// ParseVersion4 parses "a.b.c.d" (missing trailing components default to 0).
func ParseVersion4(s string) (Version4, error) {
	var v Version4
	s = strings.TrimSpace(s)
	if s == "" {
		return v, nil
	}
	parts := strings.Split(s, ".")
	if len(parts) > 4 {
		return v, fmt.Errorf("version %q has more than four components", s)
	}
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return v, fmt.Errorf("version %q: component %d: %w", s, i, err)
		}
		v[i] = uint16(n)
	}
	return v, nil
}

func (v Version4) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v[0], v[1], v[2], v[3])
}

// AssemblyName is the identity of a module.
type AssemblyName struct {
	Name           string
	Version        Version4
	PublicKeyToken []byte
	Culture        string
}

// Key is a stable map key for the identity.
func (a AssemblyName) Key() string {
	return strings.ToLower(a.Name) + "/" + a.Version.String() + "/" + hex.EncodeToString(a.PublicKeyToken) + "/" + strings.ToLower(a.Culture)
}

// FullName renders the identity the way module references are usually displayed.
func (a AssemblyName) FullName() string {
	culture := a.Culture
	if culture == "" {
		culture = "neutral"
	}
	token := "null"
	if len(a.PublicKeyToken) > 0 {
		token = hex.EncodeToString(a.PublicKeyToken)
	}
	return fmt.Sprintf("%s, Version=%s, Culture=%s, PublicKeyToken=%s", a.Name, a.Version, culture, token)
}

// Visibility of a type or member outside its module.
type Visibility uint8

const (
	VisPrivate Visibility = iota
	VisInternal
	VisPublic
)

// TypeDef is a type declared in an image.
type TypeDef struct {
	Namespace     string
	Name          string
	Visibility    Visibility
	ValueType     bool
	GenericParams []string
	Nested        []*TypeDef
	Methods       []*Method
}

// IsGenericDefinition reports whether the type declares its own type parameters.
func (t *TypeDef) IsGenericDefinition() bool {
	return t != nil && len(t.GenericParams) > 0
}

// CallConv is the declared calling shape of a method.
type CallConv uint8

const (
	CallDefault CallConv = iota
	CallVarArg
)

// Method is a callable entity.
type Method struct {
	Name          string
	Visibility    Visibility
	Static        bool
	GenericParams []string
	CallConv      CallConv
	Return        Param
	Params        []Param
	Attributes    []Attribute
}

// IsGeneric reports whether the method declares its own type parameters.
func (m *Method) IsGeneric() bool {
	return m != nil && len(m.GenericParams) > 0
}

// ParamFlags carries the direction annotations of a parameter.
type ParamFlags uint8

const (
	ParamIn ParamFlags = 1 << iota
	ParamOut
	ParamOptional
)

// Param is a parameter or, as Method.Return, the return value.
type Param struct {
	Name       string
	Type       *TypeSig
	Flags      ParamFlags
	Attributes []Attribute
}

// Attribute returns the first attribute record whose declaring type is typeName.
func (p *Param) Attribute(typeName string) (*Attribute, bool) {
	return findAttribute(p.Attributes, typeName)
}

// Attribute returns the first attribute record whose declaring type is typeName.
func (m *Method) Attribute(typeName string) (*Attribute, bool) {
	return findAttribute(m.Attributes, typeName)
}

func findAttribute(attrs []Attribute, typeName string) (*Attribute, bool) {
	for i := range attrs {
		if attrs[i].Type == typeName {
			return &attrs[i], true
		}
	}
	return nil, false
}
