package ilasm

import (
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"exportgen/internal/metadata"
	"exportgen/internal/ordinal"
)

// HashAlgorithm is the assembly hash algorithm tag (SHA-1).
const HashAlgorithm = 0x00008004

// Program renders the complete program for table. Stub bodies are rendered
// first so every alias they use is known before the declarations are written.
func Program(table *ordinal.Table, w *Writer, output string) (string, error) {
	var body strings.Builder
	for _, e := range table.Entries() {
		stub, err := w.Stub(e.Ordinal, e.Name, e.Candidate)
		if err != nil {
			return "", err
		}
		body.WriteString(stub)
		body.WriteByte('\n')
	}

	var out strings.Builder
	writeExtern(&out, w.aliases.Base(), BaseAlias)
	for _, a := range w.aliases.Aliases() {
		writeExtern(&out, a.Identity, a.Name)
	}
	writeHeader(&out, output)
	out.WriteString(body.String())
	return out.String(), nil
}

// AssemblyName derives the program name from the output file name.
func AssemblyName(output string) string {
	base := filepath.Base(output)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func writeExtern(sb *strings.Builder, id metadata.AssemblyName, alias string) {
	sb.WriteString(".assembly extern ")
	sb.WriteString(quoteDotted(id.Name))
	if alias != id.Name {
		sb.WriteString(" as ")
		sb.WriteString(alias)
	}
	sb.WriteString("\n{\n")
	if len(id.PublicKeyToken) > 0 {
		fmt.Fprintf(sb, "  .publickeytoken = (%s )\n", hexBytes(id.PublicKeyToken))
	}
	v := id.Version
	fmt.Fprintf(sb, "  .ver %d:%d:%d:%d\n", v[0], v[1], v[2], v[3])
	if id.Culture != "" {
		fmt.Fprintf(sb, "  .locale %s\n", quoteString(id.Culture))
	}
	sb.WriteString("}\n")
}

func writeHeader(sb *strings.Builder, output string) {
	fmt.Fprintf(sb, ".assembly %s\n{\n", quoteDotted(AssemblyName(output)))
	fmt.Fprintf(sb, "  .hash algorithm 0x%08x\n", HashAlgorithm)
	sb.WriteString("  .ver 0:0:0:0\n")
	sb.WriteString("}\n")
	fmt.Fprintf(sb, ".module %s\n\n", quoteDotted(filepath.Base(output)))
}

// hexBytes formats b as "B7 7A 5C" in upper case.
func hexBytes(b []byte) string {
	parts := make([]string, len(b))
	for i, c := range b {
		parts[i] = strings.ToUpper(hex.EncodeToString([]byte{c}))
	}
	return strings.Join(parts, " ")
}
