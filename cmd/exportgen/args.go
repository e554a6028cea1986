package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"golang.org/x/text/cases"

	"exportgen/internal/diag"
)

// invocation is the parsed ILAsm-style command line.
type invocation struct {
	Inputs  []string
	Output  string
	Refs    []string
	Forward []string
}

var fold = cases.Fold()

// option splits "/NAME[:value]" or "/NAME=value". The name must be letters
// only so absolute paths are never mistaken for options.
func option(arg string) (name, value string, hasValue, ok bool) {
	if len(arg) < 2 || arg[0] != '/' {
		return "", "", false, false
	}
	body := arg[1:]
	end := strings.IndexAny(body, ":=")
	name = body
	if end >= 0 {
		name, value, hasValue = body[:end], body[end+1:], true
	}
	if name == "" {
		return "", "", false, false
	}
	for _, r := range name {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return "", "", false, false
		}
	}
	return name, value, hasValue, true
}

// optionIs reports whether name selects full. Only the first three characters
// count, compared case-insensitively, so /OUTFILE selects OUTPUT.
func optionIs(name, full string) bool {
	n, f := fold.String(name), fold.String(full)
	if len(n) < 3 || len(f) < 3 {
		return false
	}
	return n[:3] == f[:3]
}

// parseInvocation splits args into inputs, /OUT, /REF and forwarded options.
// Arguments at or after dashAt (cobra's ArgsLenAtDash, -1 when absent) are
// always inputs.
func parseInvocation(args []string, dashAt int) (*invocation, error) {
	inv := &invocation{}
	for i, arg := range args {
		if dashAt >= 0 && i >= dashAt {
			inv.Inputs = append(inv.Inputs, arg)
			continue
		}
		name, value, hasValue, ok := option(arg)
		if !ok {
			inv.Inputs = append(inv.Inputs, arg)
			continue
		}
		switch {
		case optionIs(name, "OUTPUT"):
			if !hasValue || value == "" {
				return nil, diag.Errorf(diag.UseBadOption, "%s needs a file name (/OUT:<file>)", arg)
			}
			inv.Output = value
		case optionIs(name, "REFERENCE"):
			if !hasValue || value == "" {
				return nil, diag.Errorf(diag.UseBadOption, "%s needs a file name (/REF:<file>)", arg)
			}
			inv.Refs = append(inv.Refs, value)
		default:
			inv.Forward = append(inv.Forward, arg)
		}
	}
	return inv, nil
}

// assemblerArgs returns the forwarded options, adding /DLL when neither
// /DLL nor /EXE was given and the output is a library.
func (inv *invocation) assemblerArgs() []string {
	out := make([]string, 0, len(inv.Forward)+1)
	explicit := false
	for _, arg := range inv.Forward {
		if name, _, _, ok := option(arg); ok && (optionIs(name, "DLL") || optionIs(name, "EXE")) {
			explicit = true
		}
	}
	if !explicit && strings.EqualFold(filepath.Ext(inv.Output), ".dll") {
		out = append(out, "/DLL")
	}
	return append(out, inv.Forward...)
}

func hasMeta(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}

// expandInputs replaces glob patterns with the files they match, in sorted
// order. Plain paths pass through unchanged.
func expandInputs(patterns []string) ([]string, error) {
	var out []string
	for _, p := range patterns {
		if !hasMeta(p) {
			out = append(out, p)
			continue
		}
		matches, err := globFiles(p)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, diag.Errorf(diag.UseMissingInput, "pattern %q matches no files", p)
		}
		out = append(out, matches...)
	}
	return out, nil
}

func globFiles(pattern string) ([]string, error) {
	pattern = filepath.Clean(pattern)
	g, err := glob.Compile(filepath.ToSlash(pattern), '/')
	if err != nil {
		return nil, diag.Wrap(diag.UseBadOption, err, "invalid input pattern %q", pattern)
	}
	root := staticPrefix(pattern)
	var matches []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if g.Match(filepath.ToSlash(path)) {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, diag.Wrap(diag.IORead, err, "expanding %q", pattern)
	}
	sort.Strings(matches)
	return matches, nil
}

// staticPrefix is the longest leading directory of pattern without glob syntax.
func staticPrefix(pattern string) string {
	parts := strings.Split(filepath.ToSlash(pattern), "/")
	var keep []string
	for _, part := range parts[:len(parts)-1] {
		if hasMeta(part) {
			break
		}
		keep = append(keep, part)
	}
	if len(keep) == 0 {
		return "."
	}
	root := strings.Join(keep, "/")
	if root == "" {
		return string(os.PathSeparator)
	}
	return filepath.FromSlash(root)
}
