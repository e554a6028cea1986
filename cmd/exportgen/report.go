package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"exportgen/internal/diag"
)

var (
	errorLabel   = color.New(color.FgRed, color.Bold)
	warningLabel = color.New(color.FgYellow, color.Bold)
	noteLabel    = color.New(color.FgCyan, color.Bold)
)

func severityLabel(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return errorLabel
	case diag.SevWarning:
		return warningLabel
	default:
		return noteLabel
	}
}

func label(kind string, code diag.Code) string {
	if code == diag.UnknownCode {
		return kind
	}
	return fmt.Sprintf("%s[%s]", kind, code.ID())
}

// reportError prints err to w. With detail set the whole cause chain is shown.
func reportError(w io.Writer, err error, detail bool) {
	code := diag.CodeOf(err)
	msg := err.Error()
	var de *diag.Error
	if errors.As(err, &de) && de.Err != nil {
		msg = de.Message + ": " + de.Err.Error()
	}
	if detail {
		msg = strings.TrimPrefix(diag.Detail(err), code.ID()+": ")
	}
	fmt.Fprintf(w, "%s: %s\n", errorLabel.Sprint(label("error", code)), msg)
}

// reportWarning prints a non-fatal diagnostic (warning or note).
func reportWarning(w io.Writer, warn *diag.Error) {
	fmt.Fprintf(w, "%s: %s\n", severityLabel(warn.Severity).Sprint(label(warn.Severity.String(), warn.Code)), warn.Error())
}

func noColor() bool {
	return color.NoColor
}

func reportDropped(w io.Writer, warnings *diag.Bag) {
	if n := warnings.Dropped(); n > 0 {
		reportWarning(w, diag.Notef("%d more warnings not shown", n))
	}
}
