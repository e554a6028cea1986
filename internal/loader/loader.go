// Package loader reads module images read-only and resolves the modules they
// reference.
package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"exportgen/internal/diag"
	"exportgen/internal/metadata"
	"exportgen/internal/toolchain"
	"exportgen/internal/trace"
)

// DefaultBase is the identity of the base library the generated program is
// assembled against unless configured otherwise.
var DefaultBase = metadata.AssemblyName{
	Name:           "mscorlib",
	Version:        metadata.Version4{4, 0, 0, 0},
	PublicKeyToken: []byte{0xb7, 0x7a, 0x5c, 0x56, 0x19, 0x34, 0xe0, 0x89},
}

// Options configures Load.
type Options struct {
	// References is the explicit mapping from short module name to path (see ReferenceMap).
	References map[string]string
	// System replaces the default system resolution step when set.
	System Finder
	// Base is the running base library; DefaultBase when Name is empty.
	Base metadata.AssemblyName
}

// Reference is a resolved module reference.
type Reference struct {
	Identity metadata.AssemblyName
	// Path is empty for the base library.
	Path string
	Base bool
}

// Module is a loaded input module.
type Module struct {
	Path    string
	Image   *metadata.Image
	Runtime toolchain.Version
	// Refs is aligned with Image.References.
	Refs []*Reference
	base metadata.AssemblyName
}

// Name is the module's identity name.
func (m *Module) Name() string {
	if m == nil || m.Image == nil {
		return ""
	}
	return m.Image.Identity.Name
}

// Scope returns the identity owning types in the given signature scope and
// whether it is the base library.
func (m *Module) Scope(scope int32) (metadata.AssemblyName, bool, error) {
	if scope == 0 {
		id := m.Image.Identity
		return id, IsBase(id, m.base), nil
	}
	if scope < 0 || int(scope) > len(m.Refs) {
		return metadata.AssemblyName{}, false, diag.Errorf(diag.DscBadScope,
			"%s: type scope %d out of range (module has %d references)", m.Path, scope, len(m.Refs))
	}
	ref := m.Refs[scope-1]
	return ref.Identity, ref.Base, nil
}

// Result is the output of Load.
type Result struct {
	Modules []*Module
	// Requirement is the highest runtime version declared by any input.
	Requirement toolchain.Version
}

// IsBase reports whether id names the base library. Only the name is
// compared: whatever version an input references, the running one is used.
func IsBase(id, base metadata.AssemblyName) bool {
	return strings.EqualFold(id.Name, base.Name)
}

type loader struct {
	ctx    context.Context
	chain  []Finder
	base   metadata.AssemblyName
	loaded map[string]*Reference // identity key -> resolved
}

// Load reads every image in paths (in order) and resolves their references.
func Load(ctx context.Context, paths []string, opts Options) (*Result, error) {
	ctx, span := trace.Start(ctx, trace.ScopePass, "load")
	defer span.End("")

	base := opts.Base
	if base.Name == "" {
		base = DefaultBase
	}
	system := opts.System
	if system == nil {
		system = SystemFinder{}
	}
	explicit := make(ExplicitFinder, len(opts.References))
	for name, p := range opts.References {
		explicit[strings.ToLower(name)] = p
	}
	l := &loader{
		ctx:    ctx,
		chain:  []Finder{system, explicit, SiblingFinder{}},
		base:   base,
		loaded: make(map[string]*Reference),
	}

	res := &Result{Modules: make([]*Module, 0, len(paths))}
	for _, p := range paths {
		img, err := metadata.ReadFile(p)
		if err != nil {
			return nil, diag.Wrap(diag.RefBadImage, err, "cannot load module %s", p)
		}
		mod := &Module{Path: p, Image: img, base: base}
		l.loaded[img.Identity.Key()] = &Reference{Identity: img.Identity, Path: p}
		res.Modules = append(res.Modules, mod)
	}

	for _, mod := range res.Modules {
		if err := l.resolveAll(mod); err != nil {
			return nil, err
		}
		rt, err := toolchain.ParseVersion(mod.Image.RuntimeVersion)
		if err != nil {
			return nil, diag.Wrap(diag.RefBadImage, err, "%s: bad runtime version", mod.Path)
		}
		mod.Runtime = rt
		res.Requirement = res.Requirement.Max(rt)
		trace.Point(ctx, trace.ScopeModule, "module:"+mod.Name(),
			fmt.Sprintf("%s runtime %s, %d references", filepath.Base(mod.Path), rt, len(mod.Refs)))
	}
	span.WithExtra("requirement", res.Requirement.String())
	return res, nil
}

func (l *loader) resolveAll(mod *Module) error {
	mod.Refs = make([]*Reference, len(mod.Image.References))
	for i, ref := range mod.Image.References {
		r, err := l.resolve(ref, mod.Path)
		if err != nil {
			return err
		}
		mod.Refs[i] = r
	}
	return nil
}

func (l *loader) resolve(ref metadata.AssemblyName, from string) (*Reference, error) {
	if IsBase(ref, l.base) {
		return &Reference{Identity: l.base, Base: true}, nil
	}
	if r, ok := l.loaded[ref.Key()]; ok {
		return r, nil
	}
	for _, f := range l.chain {
		p, ok, err := f.Find(ref, from)
		if err != nil {
			return nil, diag.Wrap(diag.RefUnresolved, err, "resolving %s referenced by %s", ref.Name, from)
		}
		if !ok {
			continue
		}
		img, err := metadata.ReadFile(p)
		if err != nil {
			return nil, diag.Wrap(diag.RefBadImage, err, "reference %s resolved to unreadable %s", ref.Name, p)
		}
		r := &Reference{Identity: img.Identity, Path: p}
		// registered before descending so reference cycles terminate
		l.loaded[ref.Key()] = r
		l.loaded[img.Identity.Key()] = r
		trace.Point(l.ctx, trace.ScopeModule, "reference:"+ref.Name, p)
		dep := &Module{Path: p, Image: img, base: l.base}
		if err := l.resolveAll(dep); err != nil {
			return nil, err
		}
		return r, nil
	}
	return nil, diag.Errorf(diag.RefUnresolved, "cannot resolve module %q (%s) referenced by %s", ref.Name, ref.FullName(), from)
}
