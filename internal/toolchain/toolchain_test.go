package toolchain

import (
	"errors"
	"testing"

	"exportgen/internal/diag"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in   string
		want Version
	}{
		{"v4.0.30319", Version{4, 0, 30319}},
		{"v2.0.50727", Version{2, 0, 50727}},
		{"4.5", Version{4, 5, 0}},
		{"", Version{}},
		{"v4.0.30319.42000", Version{4, 0, 30319}},
	}
	for _, tt := range tests {
		got, err := ParseVersion(tt.in)
		if err != nil {
			t.Fatalf("ParseVersion(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseVersion(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
	if _, err := ParseVersion("vnext"); err == nil {
		t.Fatalf("expected error for non-numeric version")
	}
}

func TestVersion_MaxKeepsHigher(t *testing.T) {
	v2, _ := ParseVersion("v2.0.50727")
	v4, _ := ParseVersion("v4.0.30319")
	if got := v2.Max(v4); got != v4 {
		t.Fatalf("v2.Max(v4) = %v", got)
	}
	if got := v4.Max(v2); got != v4 {
		t.Fatalf("v4.Max(v2) = %v", got)
	}
	if got := (Version{}).Max(v2); got != v2 {
		t.Fatalf("zero.Max(v2) = %v", got)
	}
}

func TestVersion_String(t *testing.T) {
	tests := []struct {
		v    Version
		want string
	}{
		{Version{}, "unspecified"},
		{Version{Major: 4}, "v4.0"},
		{Version{Major: 4, Build: 30319}, "v4.0.30319"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("%+v.String() = %q, want %q", tt.v, got, tt.want)
		}
		if tt.v.IsZero() != (tt.want == "unspecified") {
			t.Errorf("%+v.IsZero() = %v", tt.v, tt.v.IsZero())
		}
	}
}

func TestPathResolver_PrefersExactLine(t *testing.T) {
	r := &PathResolver{
		Lines: map[string]string{"v2.0": "/opt/ilasm2", "v4.0": "/opt/ilasm4"},
		LookPath: func(string) (string, error) {
			t.Fatalf("PATH lookup must not happen")
			return "", nil
		},
	}
	got, err := r.Resolve(Version{Major: 2, Build: 50727})
	if err != nil || got != "/opt/ilasm2" {
		t.Fatalf("Resolve(v2) = %q, %v", got, err)
	}
	got, err = r.Resolve(Version{Major: 3, Minor: 5})
	if err != nil || got != "/opt/ilasm4" {
		t.Fatalf("Resolve(v3.5) = %q, %v", got, err)
	}
}

func TestPathResolver_FallsBackToPath(t *testing.T) {
	var asked string
	r := &PathResolver{
		Lines: map[string]string{"v2.0": "/opt/ilasm2"},
		LookPath: func(name string) (string, error) {
			asked = name
			return "/usr/bin/" + name, nil
		},
	}
	got, err := r.Resolve(Version{Major: 4})
	if err != nil || got != "/usr/bin/ilasm" || asked != DefaultAssembler {
		t.Fatalf("Resolve(v4) = %q, %v (asked %q)", got, err, asked)
	}
}

func TestPathResolver_NotFound(t *testing.T) {
	r := &PathResolver{LookPath: func(string) (string, error) { return "", errors.New("missing") }}
	_, err := r.Resolve(Version{Major: 4})
	if diag.CodeOf(err) != diag.TlcNotFound {
		t.Fatalf("expected TlcNotFound, got %v", err)
	}
}
