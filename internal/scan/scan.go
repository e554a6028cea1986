// Package scan discovers the methods marked for export in loaded modules.
package scan

import (
	"context"
	"fmt"
	"strings"

	"fortio.org/safecast"

	"exportgen/internal/diag"
	"exportgen/internal/loader"
	"exportgen/internal/metadata"
	"exportgen/internal/trace"
)

// DefaultMarker is the declaring-type identity of the export marker attribute.
const DefaultMarker = "RGiesecke.DllExport.DllExportAttribute"

// Candidate is one eligible method carrying an export marker.
type Candidate struct {
	Module *loader.Module
	// Owners is the declaring type chain, outermost first; empty for module-level functions.
	Owners []*metadata.TypeDef
	Method *metadata.Method
	// Name is the export name, explicit or defaulted.
	Name string
	// Ordinal is the requested ordinal; 0 means none was requested.
	Ordinal uint16
}

// DeclaringName is the dotted full name of the declaring type ("" for module-level functions).
func (c *Candidate) DeclaringName() string {
	if len(c.Owners) == 0 {
		return ""
	}
	parts := make([]string, 0, len(c.Owners)+1)
	if ns := c.Owners[0].Namespace; ns != "" {
		parts = append(parts, ns)
	}
	for _, t := range c.Owners {
		parts = append(parts, t.Name)
	}
	return strings.Join(parts, ".")
}

// Entity describes the method for messages: "Ns.Type::Method (Module)".
func (c *Candidate) Entity() string {
	owner := c.DeclaringName()
	if owner == "" {
		owner = "<module>"
	}
	return fmt.Sprintf("%s::%s (%s)", owner, c.Method.Name, c.Module.Name())
}

// Options configures Scan.
type Options struct {
	// Markers are the accepted export-marker identities; DefaultMarker when empty.
	Markers []string
	// Warn receives non-fatal findings (markers on ineligible methods). May be nil.
	Warn func(*diag.Error)
}

type scanner struct {
	ctx     context.Context
	opts    Options
	out     []*Candidate
	byName  map[string]*Candidate
	markers map[string]struct{}
}

// Scan walks modules in order and returns the candidates in file-then-declaration
// order: module-level functions first, then each top-level type depth-first.
func Scan(ctx context.Context, modules []*loader.Module, opts Options) ([]*Candidate, error) {
	ctx, span := trace.Start(ctx, trace.ScopePass, "scan")
	s := &scanner{
		ctx:     ctx,
		opts:    opts,
		byName:  make(map[string]*Candidate),
		markers: make(map[string]struct{}),
	}
	if len(opts.Markers) == 0 {
		s.markers[DefaultMarker] = struct{}{}
	}
	for _, m := range opts.Markers {
		s.markers[m] = struct{}{}
	}

	for _, mod := range modules {
		if mod == nil || mod.Image == nil {
			continue
		}
		for _, fn := range mod.Image.Functions {
			if err := s.visitMethod(mod, nil, fn); err != nil {
				span.End("failed")
				return nil, err
			}
		}
		for _, t := range mod.Image.Types {
			if err := s.visitType(mod, nil, t); err != nil {
				span.End("failed")
				return nil, err
			}
		}
	}
	span.End(fmt.Sprintf("%d candidates", len(s.out)))
	return s.out, nil
}

func (s *scanner) visitType(mod *loader.Module, owners []*metadata.TypeDef, t *metadata.TypeDef) error {
	if t == nil {
		return nil
	}
	chain := append(owners[:len(owners):len(owners)], t)
	if t.IsGenericDefinition() {
		trace.Point(s.ctx, trace.ScopeEntity, "skip:"+t.Name, "generic type definition")
		s.warnMarkedInGeneric(mod, chain)
		return nil
	}
	for _, m := range t.Methods {
		if err := s.visitMethod(mod, chain, m); err != nil {
			return err
		}
	}
	for _, nested := range t.Nested {
		if err := s.visitType(mod, chain, nested); err != nil {
			return err
		}
	}
	return nil
}

func (s *scanner) visitMethod(mod *loader.Module, owners []*metadata.TypeDef, m *metadata.Method) error {
	if m == nil {
		return nil
	}
	marker, marked := s.marker(m)
	reason := ineligible(owners, m)
	if reason != "" {
		if marked {
			s.warn(diag.Warnf(diag.WrnIneligibleMark, "%s is marked for export but %s; ignored",
				(&Candidate{Module: mod, Owners: owners, Method: m}).Entity(), reason))
		}
		return nil
	}
	if !marked {
		return nil
	}

	c := &Candidate{Module: mod, Owners: owners, Method: m}
	if err := readMarker(c, marker); err != nil {
		return err
	}
	if prev, dup := s.byName[c.Name]; dup {
		return diag.Errorf(diag.DupExportName, "export name %q is declared by both %s and %s", c.Name, prev.Entity(), c.Entity())
	}
	s.byName[c.Name] = c
	s.out = append(s.out, c)
	trace.Point(s.ctx, trace.ScopeEntity, "candidate:"+c.Name, c.Entity())
	return nil
}

func (s *scanner) marker(m *metadata.Method) (*metadata.Attribute, bool) {
	for i := range m.Attributes {
		if _, ok := s.markers[m.Attributes[i].Type]; ok {
			return &m.Attributes[i], true
		}
	}
	return nil, false
}

func (s *scanner) warn(w *diag.Error) {
	trace.Point(s.ctx, trace.ScopeEntity, "warning", w.Message)
	if s.opts.Warn != nil {
		s.opts.Warn(w)
	}
}

func (s *scanner) warnMarkedInGeneric(mod *loader.Module, chain []*metadata.TypeDef) {
	t := chain[len(chain)-1]
	for _, m := range t.Methods {
		if _, ok := s.marker(m); ok {
			s.warn(diag.Warnf(diag.WrnGenericTypeMark, "%s is marked for export inside generic type %s; ignored",
				(&Candidate{Module: mod, Owners: chain, Method: m}).Entity(), t.Name))
		}
	}
	for _, nested := range t.Nested {
		if nested != nil {
			s.warnMarkedInGeneric(mod, append(chain[:len(chain):len(chain)], nested))
		}
	}
}

// ineligible returns why m cannot be exported, or "" when it can.
func ineligible(owners []*metadata.TypeDef, m *metadata.Method) string {
	switch {
	case !m.Static:
		return "it is an instance method"
	case m.IsGeneric():
		return "it is generic"
	case m.CallConv == metadata.CallVarArg:
		return "it takes a variable argument list"
	case m.Visibility != metadata.VisPublic:
		return "it is not visible outside its module"
	}
	for _, t := range owners {
		if t.Visibility != metadata.VisPublic {
			return "its declaring type " + t.Name + " is not visible outside its module"
		}
	}
	return ""
}

// readMarker fills Name and Ordinal from the marker's named arguments.
func readMarker(c *Candidate, attr *metadata.Attribute) error {
	if v, ok := attr.Lookup("Name"); ok {
		name, err := v.AsString()
		if err != nil {
			return diag.Wrap(diag.DscBadAttribute, err, "%s: export marker Name", c.Entity())
		}
		c.Name = name
	}
	if c.Name == "" {
		if owner := c.DeclaringName(); owner != "" {
			c.Name = owner + "." + c.Method.Name
		} else {
			c.Name = c.Method.Name
		}
	}
	if v, ok := attr.Lookup("Ordinal"); ok {
		raw, err := v.AsInt()
		if err != nil {
			return diag.Wrap(diag.DscBadAttribute, err, "%s: export marker Ordinal", c.Entity())
		}
		ord, err := safecast.Conv[uint16](raw)
		if err != nil {
			return diag.Wrap(diag.DscBadAttribute, err, "%s: ordinal %d does not fit in 16 bits", c.Entity(), raw)
		}
		c.Ordinal = ord
	}
	return nil
}
