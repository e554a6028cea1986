package ilasm

import (
	"fmt"
	"strings"

	"exportgen/internal/diag"
	"exportgen/internal/metadata"
	"exportgen/internal/scan"
)

// StubName is the internal name of the stub bound to ordinal.
func StubName(ordinal uint16) string {
	return fmt.Sprintf("_export_%d", ordinal)
}

// Stub renders the forwarding method for one export.
func (w *Writer) Stub(ordinal uint16, name string, c *scan.Candidate) (string, error) {
	if c == nil || c.Method == nil || c.Module == nil {
		return "", fmt.Errorf("stub %d: incomplete candidate", ordinal)
	}
	m := c.Method

	ret, err := w.boundaryParam(c.Module, &m.Return)
	if err != nil {
		return "", wrapEntity(err, c, "return value")
	}
	params := make([]string, len(m.Params))
	for i := range m.Params {
		p, err := w.boundaryParam(c.Module, &m.Params[i])
		if err != nil {
			return "", wrapEntity(err, c, fmt.Sprintf("parameter %d", i))
		}
		params[i] = fmt.Sprintf("%s arg%d", p, i)
	}
	target, err := w.callTarget(c)
	if err != nil {
		return "", wrapEntity(err, c, "call target")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, ".method public static %s %s(%s) cil managed\n", ret, StubName(ordinal), strings.Join(params, ", "))
	sb.WriteString("{\n")
	fmt.Fprintf(&sb, "  .export [%d] as %s\n", ordinal, quoteString(name))
	fmt.Fprintf(&sb, "  .maxstack %d\n", max(len(m.Params), 1))
	for i := range m.Params {
		fmt.Fprintf(&sb, "  %s\n", ldarg(i))
	}
	fmt.Fprintf(&sb, "  call %s\n", target)
	sb.WriteString("  ret\n")
	sb.WriteString("}\n")
	return sb.String(), nil
}

// boundaryParam renders direction flags, the type and any marshal override.
func (w *Writer) boundaryParam(scope Scoper, p *metadata.Param) (string, error) {
	var sb strings.Builder
	if p.Flags&metadata.ParamIn != 0 {
		sb.WriteString("[in] ")
	}
	if p.Flags&metadata.ParamOut != 0 {
		sb.WriteString("[out] ")
	}
	if p.Flags&metadata.ParamOptional != 0 {
		sb.WriteString("[opt] ")
	}
	ty, err := w.Type(scope, p.Type)
	if err != nil {
		return "", err
	}
	sb.WriteString(ty)
	if attr, ok := p.Attribute(metadata.MarshalAsAttribute); ok {
		native, err := w.Marshal(attr)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, " marshal(%s)", native)
	}
	return sb.String(), nil
}

// callTarget renders the unmarshalled signature of the original method.
func (w *Writer) callTarget(c *scan.Candidate) (string, error) {
	m := c.Method
	ret, err := w.Type(c.Module, m.Return.Type)
	if err != nil {
		return "", err
	}
	params := make([]string, len(m.Params))
	for i := range m.Params {
		if params[i], err = w.Type(c.Module, m.Params[i].Type); err != nil {
			return "", err
		}
	}
	owner, err := w.ownerRef(c)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s::%s(%s)", ret, owner, quoteID(m.Name), strings.Join(params, ", ")), nil
}

// moduleType is the pseudo type owning module-level functions.
const moduleType = "<Module>"

func (w *Writer) ownerRef(c *scan.Candidate) (string, error) {
	if len(c.Owners) == 0 {
		return w.TypeRef(c.Module, 0, "", nil, moduleType)
	}
	enclosing := make([]string, 0, len(c.Owners)-1)
	for _, t := range c.Owners[:len(c.Owners)-1] {
		enclosing = append(enclosing, t.Name)
	}
	return w.TypeRef(c.Module, 0, c.Owners[0].Namespace, enclosing, c.Owners[len(c.Owners)-1].Name)
}

// ldarg picks the shortest load form for argument i.
func ldarg(i int) string {
	switch {
	case i <= 3:
		return fmt.Sprintf("ldarg.%d", i)
	case i <= 255:
		return fmt.Sprintf("ldarg.s %d", i)
	default:
		return fmt.Sprintf("ldarg %d", i)
	}
}

func wrapEntity(err error, c *scan.Candidate, what string) error {
	code := diag.CodeOf(err)
	if code == diag.UnknownCode {
		code = diag.DscUnsupportedType
	}
	return diag.Wrap(code, err, "%s, %s: %v", c.Entity(), what, err)
}
