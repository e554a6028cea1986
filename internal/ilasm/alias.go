// Package ilasm renders export stubs and the surrounding program as ILAsm text.
package ilasm

import (
	"fmt"
	"strings"

	"exportgen/internal/metadata"
)

// BaseAlias is the fixed alias under which the base library is always referenced.
const BaseAlias = "mscorlib"

// Alias is one external-module declaration.
type Alias struct {
	Name     string
	Identity metadata.AssemblyName
}

// AliasTable maps module identities to alias tokens in first-use order. It grows
// lazily while types are rendered and is owned by a single run.
type AliasTable struct {
	base  metadata.AssemblyName
	order []Alias
	byKey map[string]string
}

// NewAliasTable creates an empty table; base is the running base library.
func NewAliasTable(base metadata.AssemblyName) *AliasTable {
	return &AliasTable{base: base, byKey: make(map[string]string)}
}

// Base is the base-library identity declared under BaseAlias.
func (t *AliasTable) Base() metadata.AssemblyName {
	return t.base
}

// Resolve returns the alias for id, allocating asmN on first use. The base
// library never receives a generated alias.
func (t *AliasTable) Resolve(id metadata.AssemblyName, isBase bool) string {
	if isBase {
		return BaseAlias
	}
	key := id.Key()
	if alias, ok := t.byKey[key]; ok {
		return alias
	}
	alias := fmt.Sprintf("asm%d", len(t.order)+1)
	t.byKey[key] = alias
	t.order = append(t.order, Alias{Name: alias, Identity: id})
	return alias
}

// Aliases returns the generated aliases in allocation order.
func (t *AliasTable) Aliases() []Alias {
	out := make([]Alias, len(t.order))
	copy(out, t.order)
	return out
}

// Len is the number of generated aliases.
func (t *AliasTable) Len() int { return len(t.order) }

// keywords that would otherwise be read as part of the ILAsm grammar.
var keywords = map[string]struct{}{
	"void": {}, "bool": {}, "char": {}, "string": {}, "object": {}, "typedref": {},
	"int8": {}, "int16": {}, "int32": {}, "int64": {}, "uint8": {}, "uint16": {},
	"uint32": {}, "uint64": {}, "float32": {}, "float64": {}, "native": {}, "int": {},
	"unsigned": {}, "class": {}, "valuetype": {}, "method": {}, "field": {},
	"value": {}, "static": {}, "public": {}, "private": {}, "assembly": {},
	"marshal": {}, "in": {}, "out": {}, "opt": {}, "call": {}, "ret": {},
	"instance": {}, "explicit": {}, "vararg": {}, "cil": {}, "managed": {},
	"error": {}, "struct": {}, "interface": {}, "array": {}, "fixed": {},
	"custom": {}, "variant": {}, "any": {}, "as": {}, "nested": {}, "sealed": {},
	"ldarg": {}, "nop": {}, "pop": {}, "dup": {}, "extern": {}, "module": {},
}

func isIDStart(r rune) bool {
	return r == '_' || r == '$' || r == '@' || r == '?' || r == '`' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIDPart(r rune) bool {
	return isIDStart(r) || (r >= '0' && r <= '9')
}

// plainID reports whether s can be written without quotes.
func plainID(s string) bool {
	if s == "" {
		return false
	}
	if _, kw := keywords[s]; kw {
		return false
	}
	for i, r := range s {
		if i == 0 && !isIDStart(r) {
			return false
		}
		if !isIDPart(r) {
			return false
		}
	}
	return true
}

// quoteID writes s as an ILAsm identifier, single-quoting it when needed.
func quoteID(s string) string {
	if plainID(s) {
		return s
	}
	return "'" + escapeQuoted(s) + "'"
}

// quoteDotted quotes each dot-separated component of a namespace-qualified name.
func quoteDotted(s string) string {
	if s == "" {
		return ""
	}
	parts := strings.Split(s, ".")
	for i, p := range parts {
		parts[i] = quoteID(p)
	}
	return strings.Join(parts, ".")
}

// quoteString writes s as a single-quoted literal, as used by .export names.
func quoteString(s string) string {
	return "'" + escapeQuoted(s) + "'"
}

func escapeQuoted(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\t", `\t`)
	return r.Replace(s)
}

func escapeDouble(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`)
	return r.Replace(s)
}
