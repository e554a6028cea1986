package loader

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"exportgen/internal/diag"
	"exportgen/internal/metadata"
	"exportgen/internal/toolchain"
)

func writeImage(t *testing.T, path string, img *metadata.Image) string {
	t.Helper()
	if err := metadata.WriteFile(path, img); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func lib(name, runtime string, refs ...string) *metadata.Image {
	img := &metadata.Image{
		Identity:       metadata.AssemblyName{Name: name, Version: metadata.Version4{1, 0, 0, 0}},
		RuntimeVersion: runtime,
	}
	for _, r := range refs {
		img.References = append(img.References, metadata.AssemblyName{Name: r, Version: metadata.Version4{1, 0, 0, 0}})
	}
	return img
}

func TestLoad_SiblingPrefersLibrary(t *testing.T) {
	dir := t.TempDir()
	in := writeImage(t, filepath.Join(dir, "App.dll"), lib("App", "v4.0.30319", "Dep"))
	writeImage(t, filepath.Join(dir, "Dep.exe"), lib("DepExe", "v4.0.30319"))
	writeImage(t, filepath.Join(dir, "Dep.dll"), lib("Dep", "v4.0.30319"))

	res, err := Load(context.Background(), []string{in}, Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	ref := res.Modules[0].Refs[0]
	if ref.Identity.Name != "Dep" || !strings.HasSuffix(ref.Path, "Dep.dll") {
		t.Fatalf("resolved %+v, want sibling Dep.dll", ref)
	}
}

func TestLoad_SiblingFallsBackToExecutable(t *testing.T) {
	dir := t.TempDir()
	in := writeImage(t, filepath.Join(dir, "App.dll"), lib("App", "v4.0.30319", "Tool"))
	writeImage(t, filepath.Join(dir, "Tool.exe"), lib("Tool", "v4.0.30319"))

	res, err := Load(context.Background(), []string{in}, Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !strings.HasSuffix(res.Modules[0].Refs[0].Path, "Tool.exe") {
		t.Fatalf("resolved %s, want Tool.exe", res.Modules[0].Refs[0].Path)
	}
}

func TestLoad_ResolutionOrder(t *testing.T) {
	dir := t.TempDir()
	in := writeImage(t, filepath.Join(dir, "App.dll"), lib("App", "v4.0.30319", "Dep"))
	writeImage(t, filepath.Join(dir, "Dep.dll"), lib("Dep", "v4.0.30319"))
	explicitPath := writeImage(t, filepath.Join(dir, "refs", "Dep.dll"), lib("Dep", "v4.0.30319"))
	systemPath := writeImage(t, filepath.Join(dir, "system", "Dep.dll"), lib("Dep", "v4.0.30319"))

	refs := ReferenceMap([]string{explicitPath})
	res, err := Load(context.Background(), []string{in}, Options{References: refs})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := res.Modules[0].Refs[0].Path; got != explicitPath {
		t.Fatalf("explicit mapping must beat sibling: got %s", got)
	}

	res, err = Load(context.Background(), []string{in}, Options{
		References: refs,
		System:     SystemFinder{Registry: []string{filepath.Dir(systemPath)}},
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := res.Modules[0].Refs[0].Path; got != systemPath {
		t.Fatalf("system resolution must come first: got %s", got)
	}
}

func TestLoad_UnresolvedReference(t *testing.T) {
	dir := t.TempDir()
	in := writeImage(t, filepath.Join(dir, "App.dll"), lib("App", "v4.0.30319", "Missing"))

	_, err := Load(context.Background(), []string{in}, Options{})
	if diag.CodeOf(err) != diag.RefUnresolved {
		t.Fatalf("expected RefUnresolved, got %v", err)
	}
	if !strings.Contains(err.Error(), "Missing") {
		t.Fatalf("error must name the missing module: %v", err)
	}
}

func TestLoad_BaseLibraryIsNeverResolved(t *testing.T) {
	dir := t.TempDir()
	img := lib("App", "v2.0.50727")
	img.References = []metadata.AssemblyName{{Name: "MSCORLIB", Version: metadata.Version4{2, 0, 0, 0}}}
	in := writeImage(t, filepath.Join(dir, "App.dll"), img)

	res, err := Load(context.Background(), []string{in}, Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	id, isBase, err := res.Modules[0].Scope(1)
	if err != nil {
		t.Fatalf("scope: %v", err)
	}
	if !isBase || id.Version != DefaultBase.Version {
		t.Fatalf("scope 1 = %+v (base %v), want running base library", id, isBase)
	}
	if _, _, err := res.Modules[0].Scope(2); diag.CodeOf(err) != diag.DscBadScope {
		t.Fatalf("expected DscBadScope for out-of-range scope, got %v", err)
	}
}

func TestLoad_KeepsHighestRequirement(t *testing.T) {
	dir := t.TempDir()
	a := writeImage(t, filepath.Join(dir, "A.dll"), lib("A", "v2.0.50727"))
	b := writeImage(t, filepath.Join(dir, "B.dll"), lib("B", "v4.0.30319"))
	c := writeImage(t, filepath.Join(dir, "C.dll"), lib("C", "v2.0.50727"))

	res, err := Load(context.Background(), []string{a, b, c}, Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := toolchain.Version{Major: 4, Build: 30319}
	if res.Requirement != want {
		t.Fatalf("requirement = %v, want %v", res.Requirement, want)
	}
	if len(res.Modules) != 3 || res.Modules[1].Name() != "B" {
		t.Fatalf("modules out of order: %v", res.Modules)
	}
}

func TestLoad_InputsReferenceEachOther(t *testing.T) {
	dir := t.TempDir()
	a := writeImage(t, filepath.Join(dir, "one", "A.dll"), lib("A", "v4.0.30319", "B"))
	b := writeImage(t, filepath.Join(dir, "two", "B.dll"), lib("B", "v4.0.30319"))

	res, err := Load(context.Background(), []string{a, b}, Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := res.Modules[0].Refs[0].Path; got != b {
		t.Fatalf("reference to another input resolved to %s", got)
	}
}

// noSystem keeps the global cache and registry out of resolution.
var noSystem = FinderFunc(func(metadata.AssemblyName, string) (string, bool, error) {
	return "", false, nil
})

func TestLoad_TransitiveReferenceUnresolved(t *testing.T) {
	dir := t.TempDir()
	in := writeImage(t, filepath.Join(dir, "App.dll"), lib("App", "v4.0.30319", "Mid"))
	mid := writeImage(t, filepath.Join(dir, "Mid.dll"), lib("Mid", "v4.0.30319", "Missing"))

	_, err := Load(context.Background(), []string{in}, Options{System: noSystem})
	if diag.CodeOf(err) != diag.RefUnresolved {
		t.Fatalf("expected RefUnresolved for Mid -> Missing, got %v", err)
	}
	if !strings.Contains(err.Error(), "Missing") || !strings.Contains(err.Error(), mid) {
		t.Fatalf("error must name the missing module and its referrer: %v", err)
	}
}

func TestLoad_TransitiveReferenceResolved(t *testing.T) {
	dir := t.TempDir()
	in := writeImage(t, filepath.Join(dir, "App.dll"), lib("App", "v4.0.30319", "Mid"))
	writeImage(t, filepath.Join(dir, "Mid.dll"), lib("Mid", "v4.0.30319", "Leaf"))
	leafDir := filepath.Join(dir, "leaf")
	writeImage(t, filepath.Join(leafDir, "Leaf.dll"), lib("Leaf", "v4.0.30319"))

	var asked []string
	system := FinderFunc(func(ref metadata.AssemblyName, from string) (string, bool, error) {
		asked = append(asked, ref.Name+"<-"+filepath.Base(from))
		return SystemFinder{Registry: []string{leafDir}}.Find(ref, from)
	})
	if _, err := Load(context.Background(), []string{in}, Options{System: system}); err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []string{"Mid<-App.dll", "Leaf<-Mid.dll"}
	if strings.Join(asked, ",") != strings.Join(want, ",") {
		t.Fatalf("resolution requests = %v, want %v", asked, want)
	}
}

func TestLoad_ReferenceCycle(t *testing.T) {
	dir := t.TempDir()
	a := writeImage(t, filepath.Join(dir, "A.dll"), lib("A", "v4.0.30319", "B"))
	writeImage(t, filepath.Join(dir, "B.dll"), lib("B", "v4.0.30319", "A", "B"))

	calls := 0
	system := FinderFunc(func(metadata.AssemblyName, string) (string, bool, error) {
		calls++
		return "", false, nil
	})
	res, err := Load(context.Background(), []string{a}, Options{System: system})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if calls != 1 {
		t.Fatalf("B must be resolved once and A never, got %d lookups", calls)
	}
	if got := res.Modules[0].Refs[0].Identity.Name; got != "B" {
		t.Fatalf("A's reference resolved to %s", got)
	}
}

func TestLoad_BadImage(t *testing.T) {
	_, err := Load(context.Background(), []string{filepath.Join(t.TempDir(), "nope.dll")}, Options{})
	if diag.CodeOf(err) != diag.RefBadImage {
		t.Fatalf("expected RefBadImage, got %v", err)
	}
}

func TestCache_PutLookup(t *testing.T) {
	c := OpenCache(t.TempDir())
	img := lib("Shared", "v4.0.30319")
	img.Identity.PublicKeyToken = []byte{1, 2, 3, 4, 5, 6, 7, 8}
	p, err := c.Put(img)
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := c.Lookup(img.Identity)
	if err != nil || !ok || got != p {
		t.Fatalf("lookup = %q, %v, %v; want %q", got, ok, err, p)
	}

	other := img.Identity
	other.Version = metadata.Version4{2, 0, 0, 0}
	if _, ok, _ := c.Lookup(other); ok {
		t.Fatalf("lookup must require an exact version")
	}

	if _, err := c.Put(img); err != nil {
		t.Fatalf("re-put: %v", err)
	}
	entries, err := c.List()
	if err != nil || len(entries) != 1 {
		t.Fatalf("list = %v, %v; want one entry", entries, err)
	}
}

func TestLoad_SystemCacheResolution(t *testing.T) {
	dir := t.TempDir()
	c := OpenCache(filepath.Join(dir, "cache"))
	dep := lib("Dep", "v4.0.30319")
	cached, err := c.Put(dep)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	in := writeImage(t, filepath.Join(dir, "App.dll"), lib("App", "v4.0.30319", "Dep"))
	writeImage(t, filepath.Join(dir, "Dep.dll"), lib("Dep", "v4.0.30319"))

	res, err := Load(context.Background(), []string{in}, Options{System: SystemFinder{Cache: c}})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := res.Modules[0].Refs[0].Path; got != cached {
		t.Fatalf("cache must win over sibling: got %s", got)
	}
}

func TestCache_PutRejectsEscapingNames(t *testing.T) {
	root := t.TempDir()
	c := OpenCache(filepath.Join(root, "cache"))
	for _, name := range []string{"../../x", "..", "a/b", `a\b`, "."} {
		if _, err := c.Put(lib(name, "v4.0.30319")); err == nil {
			t.Errorf("Put(%q) succeeded, want rejection", name)
		}
	}
	if entries, err := c.List(); err != nil || len(entries) != 0 {
		t.Fatalf("list = %v, %v; want empty cache", entries, err)
	}
	if _, err := c.Put(lib("Dotted.Name", "v4.0.30319")); err != nil {
		t.Fatalf("dotted names are fine: %v", err)
	}
}
