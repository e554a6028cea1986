package pack

import (
	"fmt"
	"strings"

	"exportgen/internal/diag"
	"exportgen/internal/metadata"
)

var primitiveNames = map[string]metadata.Primitive{
	"void":        metadata.PrimVoid,
	"bool":        metadata.PrimBool,
	"char":        metadata.PrimChar,
	"string":      metadata.PrimString,
	"int8":        metadata.PrimInt8,
	"uint8":       metadata.PrimUint8,
	"int16":       metadata.PrimInt16,
	"uint16":      metadata.PrimUint16,
	"int32":       metadata.PrimInt32,
	"uint32":      metadata.PrimUint32,
	"int64":       metadata.PrimInt64,
	"uint64":      metadata.PrimUint64,
	"float32":     metadata.PrimFloat32,
	"float64":     metadata.PrimFloat64,
	"native int":  metadata.PrimIntPtr,
	"native uint": metadata.PrimUintPtr,
	"typedref":    metadata.PrimTypedRef,
	"object":      metadata.PrimObject,
}

// ParseType parses a type written in assembler notation:
//
//	int32, string[], int32[,], uint8*, int32&,
//	[Lib]Ns.Outer/Inner, valuetype [Lib]Ns.Point, class Ns.List`1<int32>
//
// A named type without a [scope] prefix lives in the module itself. scopes
// maps lower-cased module names to scope indexes.
func ParseType(src string, scopes map[string]int32) (*metadata.TypeSig, error) {
	p := &typeParser{src: src, scopes: scopes}
	sig, err := p.parseType()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return sig, nil
}

type typeParser struct {
	src    string
	pos    int
	scopes map[string]int32
}

func (p *typeParser) errorf(format string, args ...any) error {
	return diag.Errorf(diag.DscBadAttribute, "type %q at offset %d: %s", p.src, p.pos, fmt.Sprintf(format, args...))
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *typeParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

// consumeWord consumes kw when it is followed by a space.
func (p *typeParser) consumeWord(kw string) bool {
	rest := p.src[p.pos:]
	if strings.HasPrefix(rest, kw+" ") || strings.HasPrefix(rest, kw+"\t") {
		p.pos += len(kw)
		p.skipSpace()
		return true
	}
	return false
}

func isNameByte(c byte) bool {
	switch c {
	case 0, ' ', '\t', '<', '>', '[', ']', ',', '*', '&':
		return false
	}
	return true
}

func (p *typeParser) name() string {
	start := p.pos
	for p.pos < len(p.src) && isNameByte(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *typeParser) parseType() (*metadata.TypeSig, error) {
	p.skipSpace()
	kindGiven, valueType := false, false
	switch {
	case p.consumeWord("valuetype"):
		kindGiven, valueType = true, true
	case p.consumeWord("class"):
		kindGiven = true
	}

	var sig *metadata.TypeSig
	scope, scoped := int32(0), false
	if p.peek() == '[' {
		p.pos++
		module := p.name()
		if p.peek() != ']' {
			return nil, p.errorf("unterminated scope")
		}
		p.pos++
		idx, ok := p.scopes[strings.ToLower(module)]
		if !ok {
			return nil, p.errorf("scope %q is neither the module nor one of its references", module)
		}
		scope, scoped = idx, true
	} else if !kindGiven {
		if p.consumeWord("native") {
			word := p.name()
			prim, ok := primitiveNames["native "+word]
			if !ok {
				return nil, p.errorf("unknown native type %q", word)
			}
			sig = metadata.Prim(prim)
		}
	}

	if sig == nil {
		full := p.name()
		if full == "" {
			return nil, p.errorf("missing type name")
		}
		if prim, ok := primitiveNames[full]; ok && !scoped && !kindGiven {
			sig = metadata.Prim(prim)
		} else {
			named, err := p.named(scope, full, valueType)
			if err != nil {
				return nil, err
			}
			sig = named
		}
	}
	return p.suffixes(sig)
}

func (p *typeParser) named(scope int32, full string, valueType bool) (*metadata.TypeSig, error) {
	segments := strings.Split(full, "/")
	first := segments[0]
	namespace := ""
	if i := strings.LastIndexByte(first, '.'); i >= 0 {
		namespace, first = first[:i], first[i+1:]
	}
	chain := append([]string{first}, segments[1:]...)
	for _, part := range chain {
		if part == "" {
			return nil, p.errorf("empty name segment in %q", full)
		}
	}
	sig := metadata.Named(scope, namespace, chain[len(chain)-1], chain[:len(chain)-1]...)
	sig.ValueType = valueType
	if p.peek() != '<' {
		return sig, nil
	}
	p.pos++
	for {
		arg, err := p.parseType()
		if err != nil {
			return nil, err
		}
		sig.Args = append(sig.Args, arg)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '>':
			p.pos++
			return sig, nil
		default:
			return nil, p.errorf("expected ',' or '>' in generic arguments")
		}
	}
}

func (p *typeParser) suffixes(sig *metadata.TypeSig) (*metadata.TypeSig, error) {
	for {
		p.skipSpace()
		switch p.peek() {
		case '[':
			p.pos++
			rank := 1
			for p.peek() == ',' {
				rank++
				p.pos++
			}
			if p.peek() != ']' {
				return nil, p.errorf("array bounds are not supported")
			}
			p.pos++
			sig = metadata.ArrayOf(sig, rank)
		case '*':
			p.pos++
			sig = metadata.PointerTo(sig)
		case '&':
			p.pos++
			sig = metadata.ByRefTo(sig)
		default:
			return sig, nil
		}
	}
}
