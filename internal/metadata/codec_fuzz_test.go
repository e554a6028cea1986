package metadata

import (
	"bytes"
	"testing"
)

const maxFuzzInput = 1 << 16

func FuzzDecode(f *testing.F) {
	var buf bytes.Buffer
	if err := Encode(&buf, &Image{
		Identity:       AssemblyName{Name: "Seed", Version: Version4{1, 0, 0, 0}},
		RuntimeVersion: "v4.0.30319",
		Functions:      []*Method{{Name: "F", Static: true, Visibility: VisPublic}},
	}); err != nil {
		f.Fatal(err)
	}
	f.Add(buf.Bytes())
	f.Add([]byte("XMDI"))
	f.Add([]byte("XMDI\x80"))
	f.Add([]byte("MZ\x90\x00"))

	f.Fuzz(func(t *testing.T, input []byte) {
		if len(input) > maxFuzzInput {
			input = input[:maxFuzzInput]
		}
		img, err := Decode(bytes.NewReader(input))
		if err != nil {
			return
		}
		var out bytes.Buffer
		if err := Encode(&out, img); err != nil {
			t.Fatalf("decoded image does not re-encode: %v", err)
		}
	})
}
