package toolchain

import (
	"os/exec"
	"sort"

	"exportgen/internal/diag"
)

// DefaultAssembler is looked up on PATH when no configured line matches.
const DefaultAssembler = "ilasm"

// Resolver returns the assembler binary able to build for a version requirement.
type Resolver interface {
	Resolve(req Version) (string, error)
}

// PathResolver picks from a table of configured toolchain lines, falling back
// to a PATH lookup.
type PathResolver struct {
	// Lines maps a toolchain line ("v2.0", "v4.0") to an assembler path.
	Lines map[string]string
	// Binary is the PATH fallback; DefaultAssembler when empty.
	Binary string
	// LookPath defaults to exec.LookPath.
	LookPath func(string) (string, error)
}

// Resolve returns the configured assembler for req's line, else the lowest
// configured line above req, else the PATH fallback.
func (r *PathResolver) Resolve(req Version) (string, error) {
	if r != nil && len(r.Lines) > 0 {
		if p, ok := r.Lines[req.Line()]; ok && p != "" {
			return p, nil
		}
		type line struct {
			v    Version
			path string
		}
		lines := make([]line, 0, len(r.Lines))
		for key, p := range r.Lines {
			v, err := ParseVersion(key)
			if err != nil {
				return "", diag.Wrap(diag.UseBadConfig, err, "toolchain line %q", key)
			}
			lines = append(lines, line{v: v, path: p})
		}
		sort.Slice(lines, func(i, j int) bool { return lines[i].v.Compare(lines[j].v) < 0 })
		for _, l := range lines {
			if l.path != "" && l.v.Compare(req) >= 0 {
				return l.path, nil
			}
		}
	}
	bin := DefaultAssembler
	lookPath := exec.LookPath
	if r != nil {
		if r.Binary != "" {
			bin = r.Binary
		}
		if r.LookPath != nil {
			lookPath = r.LookPath
		}
	}
	p, err := lookPath(bin)
	if err != nil {
		return "", diag.Wrap(diag.TlcNotFound, err, "no assembler for runtime %s (looked for %q on PATH)", req, bin)
	}
	return p, nil
}
