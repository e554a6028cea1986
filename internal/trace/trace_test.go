package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestStreamTracer_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatText)
	ctx := WithTracer(context.Background(), tr)

	ctx, pass := Start(ctx, ScopePass, "scan")
	Point(ctx, ScopeModule, "module:Foo", "skipped at phase level")
	pass.End("2 candidates")

	out := buf.String()
	if strings.Contains(out, "module:Foo") {
		t.Fatalf("module-scope point leaked at phase level:\n%s", out)
	}
	if !strings.Contains(out, "→ scan") || !strings.Contains(out, "← scan (2 candidates)") {
		t.Fatalf("pass span missing:\n%s", out)
	}
}

func TestStart_PropagatesParent(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatNDJSON)
	ctx := WithTracer(context.Background(), tr)

	ctx, run := Start(ctx, ScopeDriver, "run")
	_, load := Start(ctx, ScopePass, "load")
	load.End("")
	run.End("")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 events, got %d:\n%s", len(lines), buf.String())
	}
	var ev struct {
		Name     string `json:"name"`
		ParentID uint64 `json:"parent_id"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &ev); err != nil {
		t.Fatalf("bad json %q: %v", lines[1], err)
	}
	if ev.Name != "load" || ev.ParentID != run.ID() {
		t.Fatalf("load parent = %d, want %d", ev.ParentID, run.ID())
	}
}

func TestNop_IsDefault(t *testing.T) {
	if FromContext(context.Background()).Enabled() {
		t.Fatalf("tracer without configuration must be disabled")
	}
	ctx, span := Start(context.Background(), ScopePass, "x")
	if span.ID() != 0 || span.End("") != 0 {
		t.Fatalf("nop span recorded something")
	}
	if ctx != context.Background() {
		t.Fatalf("disabled spans must not grow the context")
	}
}

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"off", "ERROR", "phase", "Detail", "debug"} {
		if _, err := ParseLevel(s); err != nil {
			t.Fatalf("ParseLevel(%q): %v", s, err)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestStreamTracer_Sequence(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDetail, FormatNDJSON)
	ctx := WithTracer(context.Background(), tr)

	ctx, load := Start(ctx, ScopePass, "load")
	Point(ctx, ScopeModule, "module:A", "A.dll")
	load.WithExtra("modules", "1").End("")

	var seqs []uint64
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var ev struct {
			Seq      uint64            `json:"seq"`
			ParentID uint64            `json:"parent_id"`
			Kind     string            `json:"kind"`
			Extra    map[string]string `json:"extra"`
		}
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("bad json %q: %v", line, err)
		}
		seqs = append(seqs, ev.Seq)
		if ev.Kind == "point" && ev.ParentID != load.ID() {
			t.Fatalf("point parent = %d, want %d", ev.ParentID, load.ID())
		}
		if ev.Kind == "end" && ev.Extra["modules"] != "1" {
			t.Fatalf("end extra = %v", ev.Extra)
		}
	}
	if len(seqs) != 3 || seqs[0] != 1 || seqs[1] != 2 || seqs[2] != 3 {
		t.Fatalf("sequence = %v", seqs)
	}
}
