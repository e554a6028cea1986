package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Usage
	UseInfo          Code = 1000
	UseMissingInput  Code = 1001
	UseMissingOutput Code = 1002
	UseBadOption     Code = 1003
	UseBadConfig     Code = 1004

	// Reference resolution
	RefInfo       Code = 2000
	RefUnresolved Code = 2001
	RefBadImage   Code = 2002

	// Collisions
	DupInfo          Code = 3000
	DupExportName    Code = 3001
	DupOrdinal       Code = 3002
	DupOrdinalsSpent Code = 3003

	// Descriptor rendering
	DscInfo               Code = 4000
	DscUnsupportedType    Code = 4001
	DscUnsupportedMarshal Code = 4002
	DscUnsupportedVariant Code = 4003
	DscLeftoverParam      Code = 4004
	DscMissingParam       Code = 4005
	DscBadAttribute       Code = 4006
	DscBadScope           Code = 4007

	// File system
	IOInfo  Code = 5000
	IORead  Code = 5001
	IOWrite Code = 5002

	// Toolchain
	TlcInfo     Code = 6000
	TlcNotFound Code = 6001
	TlcStart    Code = 6002

	// Non-fatal findings
	WrnInfo            Code = 7000
	WrnIneligibleMark  Code = 7001
	WrnGenericTypeMark Code = 7002
)

var (
	codeDescription = map[Code]string{
		UnknownCode:           "Unknown error",
		UseInfo:               "Usage information",
		UseMissingInput:       "No input modules given",
		UseMissingOutput:      "Output module not given",
		UseBadOption:          "Malformed option",
		UseBadConfig:          "Invalid configuration",
		RefInfo:               "Reference information",
		RefUnresolved:         "Module reference cannot be resolved",
		RefBadImage:           "Module image cannot be read",
		DupInfo:               "Collision information",
		DupExportName:         "Duplicate export name",
		DupOrdinal:            "Duplicate ordinal",
		DupOrdinalsSpent:      "No free ordinal left",
		DscInfo:               "Descriptor information",
		DscUnsupportedType:    "Type shape cannot be rendered",
		DscUnsupportedMarshal: "Marshalling kind cannot be rendered",
		DscUnsupportedVariant: "Variant sub-type cannot be rendered",
		DscLeftoverParam:      "Marshal parameter not valid for its kind",
		DscMissingParam:       "Marshal kind requires a parameter",
		DscBadAttribute:       "Malformed attribute record",
		DscBadScope:           "Type scope out of range",
		IOInfo:                "File system information",
		IORead:                "Read failed",
		IOWrite:               "Write failed",
		TlcInfo:               "Toolchain information",
		TlcNotFound:           "Assembler not found",
		TlcStart:              "Assembler failed to start",
		WrnInfo:               "Finding",
		WrnIneligibleMark:     "Export marker on an ineligible method",
		WrnGenericTypeMark:    "Export marker inside a generic type",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("USE%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("REF%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("DUP%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("DSC%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("IOE%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("TLC%04d", ic)
	case ic >= 7000 && ic < 8000:
		return fmt.Sprintf("WRN%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

// ExitCode maps a code category to the process exit status used when a run
// fails before the assembler is started.
func (c Code) ExitCode() int {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return 1
	case ic >= 2000 && ic < 3000:
		return 2
	case ic >= 3000 && ic < 4000:
		return 3
	case ic >= 4000 && ic < 5000:
		return 4
	case ic >= 5000 && ic < 6000:
		return 5
	case ic >= 6000 && ic < 7000:
		return 6
	}
	return 1
}
