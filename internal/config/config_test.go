package config

import (
	"os"
	"path/filepath"
	"testing"

	"exportgen/internal/diag"
	"exportgen/internal/loader"
	"exportgen/internal/scan"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDiscover_WalksUp(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
[resolve]
registry = ["refs", "/abs/refs"]

[toolchain]
ilasm = { "v4.0" = "tools/ilasm", "v2.0" = "ilasm2" }
`)
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o750); err != nil {
		t.Fatal(err)
	}

	cfg, err := Discover("", nested)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	dirs := cfg.RegistryDirs()
	if len(dirs) != 2 || dirs[0] != filepath.Join(cfg.Root, "refs") || dirs[1] != filepath.FromSlash("/abs/refs") {
		t.Fatalf("registry = %v", dirs)
	}
	lines := cfg.AssemblerLines()
	if lines["v4.0"] != filepath.Join(cfg.Root, "tools", "ilasm") || lines["v2.0"] != "ilasm2" {
		t.Fatalf("lines = %v", lines)
	}
	if len(cfg.Export.Attributes) != 1 || cfg.Export.Attributes[0] != scan.DefaultMarker {
		t.Fatalf("default marker lost: %v", cfg.Export.Attributes)
	}
}

func TestDiscover_DefaultWhenMissing(t *testing.T) {
	cfg, err := Discover("", t.TempDir())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	id, err := cfg.BaseIdentity()
	if err != nil || id.Name != loader.DefaultBase.Name {
		t.Fatalf("base = %+v, %v", id, err)
	}
	if cfg.CacheDir() != "" {
		t.Fatalf("default cache dir must be empty, got %q", cfg.CacheDir())
	}
}

func TestLoad_Base(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
[base]
name = "System.Runtime"
version = "8.0.0.0"
public_key_token = "b03f5f7f11d50a3a"

[export]
attributes = ["Acme.ExportAttribute", "RGiesecke.DllExport.DllExportAttribute"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	id, err := cfg.BaseIdentity()
	if err != nil {
		t.Fatal(err)
	}
	if id.Name != "System.Runtime" || id.Version.String() != "8.0.0.0" || len(id.PublicKeyToken) != 8 {
		t.Fatalf("base = %+v", id)
	}
	if len(cfg.Export.Attributes) != 2 || cfg.Export.Attributes[0] != "Acme.ExportAttribute" {
		t.Fatalf("attributes = %v", cfg.Export.Attributes)
	}
}

func TestLoad_Rejects(t *testing.T) {
	tests := map[string]string{
		"unknown key":     "[resolve]\nregistyr = []\n",
		"base no name":    "[base]\nversion = \"4.0.0.0\"\n",
		"bad version":     "[base]\nname = \"mscorlib\"\nversion = \"4.x\"\n",
		"bad token":       "[base]\nname = \"mscorlib\"\npublic_key_token = \"zz\"\n",
		"empty markers":   "[export]\nattributes = []\n",
		"bad line":        "[toolchain]\nilasm = { \"latest\" = \"ilasm\" }\n",
		"not toml at all": "[[[",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, t.TempDir(), body))
			if diag.CodeOf(err) != diag.UseBadConfig {
				t.Fatalf("expected UseBadConfig, got %v", err)
			}
		})
	}
}
