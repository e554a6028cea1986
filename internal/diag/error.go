package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Error is a run-fatal (or, with SevWarning, advisory) condition raised by one
// of the pipeline stages. Error() yields only the top-level message; Detail
// renders the whole cause chain.
type Error struct {
	Code     Code
	Severity Severity
	Message  string
	Err      error
}

// Errorf builds an error-severity diagnostic.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Severity: SevError, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an error-severity diagnostic around a cause.
func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Severity: SevError, Message: fmt.Sprintf(format, args...), Err: err}
}

// Warnf builds a warning that never aborts a run.
func Warnf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Severity: SevWarning, Message: fmt.Sprintf(format, args...)}
}

// Notef builds an informational note with no code.
func Notef(format string, args ...any) *Error {
	return &Error{Code: UnknownCode, Severity: SevInfo, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches another *Error by code so callers can test errors.Is(err, &diag.Error{Code: ...}).
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) || other == nil {
		return false
	}
	return other.Message == "" && other.Code == e.Code
}

// CodeOf returns the code of the outermost *Error in err's chain.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return UnknownCode
}

// ExitCode maps err to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return CodeOf(err).ExitCode()
}

// Detail renders err with its full cause chain, one cause per line.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	var sb strings.Builder
	depth := 0
	for cur := err; cur != nil; cur = errors.Unwrap(cur) {
		msg := cur.Error()
		if de, ok := cur.(*Error); ok {
			msg = de.Code.ID() + ": " + de.Message
		} else if next := errors.Unwrap(cur); next != nil {
			// fmt-wrapped errors repeat their cause; keep only the own prefix
			msg = strings.TrimSuffix(msg, ": "+next.Error())
		}
		if depth > 0 {
			sb.WriteString("\n")
			sb.WriteString(strings.Repeat("  ", depth))
			sb.WriteString("caused by: ")
		}
		sb.WriteString(msg)
		depth++
	}
	return sb.String()
}
