// Package toolchain maps runtime version requirements to assembler binaries.
package toolchain

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a runtime version requirement such as v4.0.30319.
// The zero value means "no requirement" and sorts below every real version.
type Version struct {
	Major int
	Minor int
	Build int
}

// ParseVersion parses "v4.0.30319", "4.0" or "v2.0.50727". Empty input yields the zero Version.
func ParseVersion(s string) (Version, error) {
	var v Version
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "v"), "V")
	if s == "" {
		return v, nil
	}
	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		// revision component carries nothing for toolchain selection
		parts = parts[:3]
	}
	fields := []*int{&v.Major, &v.Minor, &v.Build}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("invalid runtime version %q", s)
		}
		*fields[i] = n
	}
	return v, nil
}

// IsZero reports whether no requirement was recorded.
func (v Version) IsZero() bool {
	return v == Version{}
}

// Compare orders versions by major, minor, then build.
func (v Version) Compare(o Version) int {
	switch {
	case v.Major != o.Major:
		return cmpInt(v.Major, o.Major)
	case v.Minor != o.Minor:
		return cmpInt(v.Minor, o.Minor)
	default:
		return cmpInt(v.Build, o.Build)
	}
}

// Max returns the higher of v and o.
func (v Version) Max(o Version) Version {
	if o.Compare(v) > 0 {
		return o
	}
	return v
}

// Line is the toolchain line the version belongs to, e.g. "v4.0".
func (v Version) Line() string {
	return fmt.Sprintf("v%d.%d", v.Major, v.Minor)
}

func (v Version) String() string {
	if v.IsZero() {
		return "unspecified"
	}
	if v.Build == 0 {
		return v.Line()
	}
	return fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Build)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
