package loader

import (
	"os"
	"path/filepath"
	"strings"

	"exportgen/internal/metadata"
)

// Sibling extensions, tried in this order.
const (
	LibraryExt    = ".dll"
	ExecutableExt = ".exe"
)

// Finder locates the image file for a module reference. from is the path of
// the module holding the reference.
type Finder interface {
	Find(ref metadata.AssemblyName, from string) (path string, ok bool, err error)
}

// FinderFunc adapts a function to Finder.
type FinderFunc func(ref metadata.AssemblyName, from string) (string, bool, error)

// Find calls f.
func (f FinderFunc) Find(ref metadata.AssemblyName, from string) (string, bool, error) {
	return f(ref, from)
}

// SystemFinder is the default resolution step: the global module cache, then
// the configured registry directories.
type SystemFinder struct {
	Cache    *Cache
	Registry []string
}

// Find implements Finder.
func (s SystemFinder) Find(ref metadata.AssemblyName, _ string) (string, bool, error) {
	if s.Cache != nil {
		p, ok, err := s.Cache.Lookup(ref)
		if err != nil || ok {
			return p, ok, err
		}
	}
	for _, dir := range s.Registry {
		for _, ext := range []string{LibraryExt, ExecutableExt} {
			if p, ok := fileExists(filepath.Join(dir, ref.Name+ext)); ok {
				return p, true, nil
			}
		}
	}
	return "", false, nil
}

// ExplicitFinder looks the reference up by short name in the /REF mapping.
type ExplicitFinder map[string]string

// Find implements Finder.
func (e ExplicitFinder) Find(ref metadata.AssemblyName, _ string) (string, bool, error) {
	if p, ok := e[strings.ToLower(ref.Name)]; ok {
		return p, true, nil
	}
	return "", false, nil
}

// SiblingFinder looks next to the referencing module, library extension first.
type SiblingFinder struct{}

// Find implements Finder.
func (SiblingFinder) Find(ref metadata.AssemblyName, from string) (string, bool, error) {
	dir := filepath.Dir(from)
	for _, ext := range []string{LibraryExt, ExecutableExt} {
		if p, ok := fileExists(filepath.Join(dir, ref.Name+ext)); ok {
			return p, true, nil
		}
	}
	return "", false, nil
}

// ReferenceMap builds the explicit mapping from /REF paths, keyed by the
// lower-cased file name without extension. Later paths win.
func ReferenceMap(paths []string) map[string]string {
	out := make(map[string]string, len(paths))
	for _, p := range paths {
		base := filepath.Base(p)
		name := strings.TrimSuffix(base, filepath.Ext(base))
		out[strings.ToLower(name)] = p
	}
	return out
}

func fileExists(p string) (string, bool) {
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return "", false
	}
	return p, true
}
