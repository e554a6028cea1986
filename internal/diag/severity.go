package diag

// Severity orders diagnostics. Only SevError aborts a run.
type Severity uint8

const (
	// SevInfo annotates other output, e.g. the count of dropped warnings.
	SevInfo Severity = iota
	SevWarning
	SevError
)

// String is the label printed in front of the message.
func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "note"
	case SevWarning:
		return "warning"
	case SevError:
		return "error"
	}
	return "unknown"
}
