package main

import (
	"bytes"
	"testing"

	"github.com/fatih/color"

	"exportgen/internal/diag"
)

func withoutColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestReportWarning_Labels(t *testing.T) {
	withoutColor(t)
	var buf bytes.Buffer
	reportWarning(&buf, diag.Warnf(diag.WrnIneligibleMark, "Calc.Api::Gen is generic"))
	reportWarning(&buf, diag.Notef("see the export table"))
	want := "warning[" + diag.WrnIneligibleMark.ID() + "]: Calc.Api::Gen is generic\n" +
		"note: see the export table\n"
	if got := buf.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestReportDropped(t *testing.T) {
	withoutColor(t)
	bag := diag.NewBag(1)
	bag.Add(diag.Warnf(diag.WrnIneligibleMark, "first"))
	bag.Add(diag.Warnf(diag.WrnIneligibleMark, "second"))
	bag.Add(diag.Warnf(diag.WrnGenericTypeMark, "third"))

	var buf bytes.Buffer
	reportDropped(&buf, bag)
	if got, want := buf.String(), "note: 2 more warnings not shown\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	buf.Reset()
	reportDropped(&buf, diag.NewBag(0))
	if buf.Len() != 0 {
		t.Fatalf("nothing dropped must print nothing, got %q", buf.String())
	}
}
