package pack

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"exportgen/internal/diag"
	"exportgen/internal/ilasm"
	"exportgen/internal/loader"
	"exportgen/internal/metadata"
	"exportgen/internal/scan"
)

const calcDescription = `
name = "Calc"
version = "1.0.0.0"
runtime = "v4.0.30319"
references = [
  { name = "mscorlib", version = "4.0.0.0", public_key_token = "b77a5c561934e089" },
  { name = "Shapes", version = "2.1.0.0" },
]

[[functions]]
name = "Init"
export = { name = "calc_init" }

[[types]]
namespace = "Calc"
name = "Api"

  [[types.methods]]
  name = "Add"
  returns = "int32"
  params = [{ name = "a", type = "int32" }, { name = "b", type = "int32" }]
  export = { ordinal = 3 }

  [[types.methods]]
  name = "Area"
  returns = "float64"
  return_marshal = { kind = "R8" }
  params = [
    { name = "shape", type = "valuetype [Shapes]Shapes.Rect&", flags = ["in"] },
    { name = "names", type = "string[]", marshal = { kind = "LPArray", ArraySubType = "LPStr", SizeParamIndex = 2 } },
    { name = "count", type = "int32" },
  ]
  export = {}

  [[types.methods]]
  name = "Hidden"
  visibility = "internal"
  static = false

  [[types.nested]]
  name = "Inner"

    [[types.nested.methods]]
    name = "Deep"
    attributes = [{ type = "Acme.TagAttribute", args = ["x", 2], named = { Flag = true } }]
`

func writeDescription(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calc.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFile_Calc(t *testing.T) {
	img, err := File(writeDescription(t, calcDescription), Options{})
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if img.Identity.Name != "Calc" || img.RuntimeVersion != "v4.0.30319" || len(img.References) != 2 {
		t.Fatalf("image header = %+v", img)
	}
	if len(img.References[0].PublicKeyToken) != 8 {
		t.Fatalf("token not decoded: %+v", img.References[0])
	}

	api := img.Types[0]
	if len(api.Methods) != 3 || len(api.Nested) != 1 {
		t.Fatalf("api = %+v", api)
	}
	area := api.Methods[1]
	shape := area.Params[0]
	if shape.Flags != metadata.ParamIn || shape.Type.Kind != metadata.SigByRef ||
		shape.Type.Elem.Scope != 2 || !shape.Type.Elem.ValueType || shape.Type.Elem.FullName() != "Shapes.Rect" {
		t.Fatalf("shape param = %+v / %+v", shape, shape.Type.Elem)
	}
	attr, ok := area.Params[1].Attribute(metadata.MarshalAsAttribute)
	if !ok {
		t.Fatalf("marshal attribute missing")
	}
	if kind, _ := attr.Args[0].AsInt(); metadata.UnmanagedType(kind) != metadata.UTLPArray {
		t.Fatalf("kind = %v", attr.Args[0])
	}
	if sub, ok := attr.Lookup("ArraySubType"); !ok || sub.Int != int64(metadata.UTLPStr) {
		t.Fatalf("ArraySubType = %+v", sub)
	}
	if hidden := api.Methods[2]; hidden.Static || hidden.Visibility != metadata.VisInternal {
		t.Fatalf("hidden = %+v", hidden)
	}
	deep := api.Nested[0].Methods[0]
	if len(deep.Attributes) != 1 || len(deep.Attributes[0].Args) != 2 || deep.Attributes[0].Named[0].Value.Kind != metadata.ValBool {
		t.Fatalf("deep attributes = %+v", deep.Attributes)
	}
}

func TestFile_ScansAndRenders(t *testing.T) {
	dir := t.TempDir()
	img, err := File(writeDescription(t, calcDescription), Options{})
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	path := filepath.Join(dir, "Calc.dll")
	if err := metadata.WriteFile(path, img); err != nil {
		t.Fatal(err)
	}
	shapes := &metadata.Image{Identity: metadata.AssemblyName{Name: "Shapes", Version: metadata.Version4{2, 1, 0, 0}}, RuntimeVersion: "v4.0.30319"}
	if err := metadata.WriteFile(filepath.Join(dir, "Shapes.dll"), shapes); err != nil {
		t.Fatal(err)
	}

	res, err := loader.Load(context.Background(), []string{path}, loader.Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cands, err := scan.Scan(context.Background(), res.Modules, scan.Options{})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(cands) != 3 || cands[0].Name != "calc_init" || cands[1].Ordinal != 3 || cands[2].Name != "Calc.Api.Area" {
		t.Fatalf("candidates = %+v", cands)
	}

	w := ilasm.NewWriter(ilasm.NewAliasTable(loader.DefaultBase))
	stub, err := w.Stub(1, cands[2].Name, cands[2])
	if err != nil {
		t.Fatalf("stub: %v", err)
	}
	want := ".method public static float64 marshal(float64) _export_1([in] valuetype [asm1]Shapes.Rect& arg0, string[] marshal(lpstr[+2]) arg1, int32 arg2) cil managed\n"
	if len(stub) < len(want) || stub[:len(want)] != want {
		t.Fatalf("stub header:\n%s", stub)
	}
}

func TestParseType(t *testing.T) {
	scopes := map[string]int32{"self": 0, "lib": 1}
	tests := []struct {
		src  string
		kind metadata.SigKind
		full string
	}{
		{"int32", metadata.SigPrimitive, ""},
		{"native uint", metadata.SigPrimitive, ""},
		{"uint8*", metadata.SigPointer, ""},
		{"int32[,]", metadata.SigArray, ""},
		{"[Lib]N.Outer/Inner", metadata.SigNamed, "N.Outer.Inner"},
		{"class N.List`1<int32, [lib]N.T>", metadata.SigNamed, "N.List`1"},
		{"Plain", metadata.SigNamed, "Plain"},
	}
	for _, tt := range tests {
		sig, err := ParseType(tt.src, scopes)
		if err != nil {
			t.Fatalf("%s: %v", tt.src, err)
		}
		if sig.Kind != tt.kind {
			t.Errorf("%s: kind %s, want %s", tt.src, sig.Kind, tt.kind)
		}
		if tt.full != "" && sig.FullName() != tt.full {
			t.Errorf("%s: name %q, want %q", tt.src, sig.FullName(), tt.full)
		}
	}

	arr, _ := ParseType("int32[,]", scopes)
	if arr.Rank != 2 {
		t.Fatalf("rank = %d", arr.Rank)
	}
	gen, _ := ParseType("class N.List`1<int32, [lib]N.T>", scopes)
	if len(gen.Args) != 2 || gen.Args[1].Scope != 1 {
		t.Fatalf("generic args = %+v", gen.Args)
	}
}

func TestParseType_Errors(t *testing.T) {
	for _, src := range []string{"", "[Nope]N.T", "int32[3]", "N.List`1<int32", "native long", "[Lib", "N..T/"} {
		if _, err := ParseType(src, map[string]int32{"lib": 1}); diag.CodeOf(err) != diag.DscBadAttribute {
			t.Errorf("%q: expected DscBadAttribute, got %v", src, err)
		}
	}
}

func TestFile_Rejects(t *testing.T) {
	tests := map[string]string{
		"no name":        `runtime = "v4.0.30319"`,
		"unknown key":    "name = \"X\"\nbogus = 1\n",
		"bad visibility": "name = \"X\"\n[[functions]]\nname = \"F\"\nvisibility = \"friend\"\n",
		"bad kind":       "name = \"X\"\n[[functions]]\nname = \"F\"\nreturn_marshal = { kind = \"Nope\" }\n",
		"bad flag":       "name = \"X\"\n[[functions]]\nname = \"F\"\nparams = [{ type = \"int32\", flags = [\"ref\"] }]\n",
		"bad version":    "name = \"X\"\nversion = \"1.x\"\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := File(writeDescription(t, body), Options{})
			if diag.CodeOf(err) != diag.DscBadAttribute {
				t.Fatalf("expected DscBadAttribute, got %v", err)
			}
		})
	}
}
