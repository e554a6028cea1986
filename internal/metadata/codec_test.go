package metadata

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
)

func sampleImage() *Image {
	return &Image{
		Identity:       AssemblyName{Name: "Sample", Version: Version4{1, 2, 0, 0}, PublicKeyToken: []byte{0xde, 0xad}},
		RuntimeVersion: "v4.0.30319",
		References:     []AssemblyName{{Name: "mscorlib", Version: Version4{4, 0, 0, 0}}},
		Types: []*TypeDef{{
			Namespace:  "Sample",
			Name:       "Api",
			Visibility: VisPublic,
			Nested:     []*TypeDef{{Name: "Inner", Visibility: VisPublic}},
			Methods: []*Method{{
				Name:       "Add",
				Visibility: VisPublic,
				Static:     true,
				Return:     Param{Type: Prim(PrimInt32)},
				Params: []Param{
					{Name: "a", Type: Prim(PrimInt32)},
					{Name: "b", Type: ArrayOf(Named(1, "System", "Byte"), 2), Flags: ParamIn},
				},
				Attributes: []Attribute{{
					Type:  "RGiesecke.DllExport.DllExportAttribute",
					Named: []NamedArg{{Name: "Ordinal", Value: IntValue(3)}},
				}},
			}},
		}},
	}
}

func TestEncodeDecode_PreservesShape(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, sampleImage()); err != nil {
		t.Fatalf("encode: %v", err)
	}
	img, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Schema != ImageSchema {
		t.Fatalf("schema = %d, want %d", img.Schema, ImageSchema)
	}
	if img.Identity.Version != (Version4{1, 2, 0, 0}) {
		t.Fatalf("identity version = %v", img.Identity.Version)
	}
	m := img.Types[0].Methods[0]
	if m.Params[1].Type.Kind != SigArray || m.Params[1].Type.Rank != 2 || m.Params[1].Type.Elem.Scope != 1 {
		t.Fatalf("array param lost shape: %+v", m.Params[1].Type)
	}
	attr, ok := m.Attribute("RGiesecke.DllExport.DllExportAttribute")
	if !ok {
		t.Fatalf("attribute record lost")
	}
	v, ok := attr.Lookup("Ordinal")
	if !ok || v.Int != 3 {
		t.Fatalf("Ordinal = %+v", v)
	}
	if img.Types[0].Nested[0].Name != "Inner" {
		t.Fatalf("nested type lost")
	}
}

func TestDecode_RejectsForeignFile(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("MZ\x90\x00not an image")))
	if !errors.Is(err, ErrNotImage) {
		t.Fatalf("expected ErrNotImage, got %v", err)
	}
	_, err = Decode(bytes.NewReader(nil))
	if !errors.Is(err, ErrNotImage) {
		t.Fatalf("expected ErrNotImage for empty input, got %v", err)
	}
}

func TestWriteFile_ReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "Sample.dll")
	if err := WriteFile(path, sampleImage()); err != nil {
		t.Fatalf("write: %v", err)
	}
	img, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if img.Identity.Name != "Sample" {
		t.Fatalf("identity = %q", img.Identity.Name)
	}
}

func TestParseVersion4(t *testing.T) {
	tests := []struct {
		in      string
		want    Version4
		wantErr bool
	}{
		{"1.2.3.4", Version4{1, 2, 3, 4}, false},
		{"4.0", Version4{4, 0, 0, 0}, false},
		{"", Version4{}, false},
		{"1.2.3.4.5", Version4{}, true},
		{"1.x", Version4{}, true},
		{"70000", Version4{}, true},
	}
	for _, tt := range tests {
		got, err := ParseVersion4(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseVersion4(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if err == nil && got != tt.want {
			t.Fatalf("ParseVersion4(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
