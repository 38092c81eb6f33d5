package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Assembly text
	AsmInfo              Code = 1000
	AsmSyntax            Code = 1001
	AsmUnknownOpcode     Code = 1002
	AsmBadOperand        Code = 1003
	AsmUnterminatedBody  Code = 1004
	AsmDuplicateMethod   Code = 1005
	AsmUnterminatedQuote Code = 1006

	// Unit manifests
	UnitInfo           Code = 2000
	UnitMissingField   Code = 2001
	UnitBadType        Code = 2002
	UnitUnknownParam   Code = 2003
	UnitDuplicateParam Code = 2004
	UnitMissingSource  Code = 2005
	UnitUnknownFormat  Code = 2006

	// Instruction stream validation
	BcInfo           Code = 3000
	BcUndefinedLabel Code = 3001
	BcDuplicateLabel Code = 3002
	BcStackUnderflow Code = 3003
	BcStackOverflow  Code = 3004
	BcBadDescriptor  Code = 3005
	BcStackMismatch  Code = 3006
	BcMissingOperand Code = 3007

	// Marker inspection
	MrkInfo             Code = 4000
	MrkUndecodable      Code = 4001
	MrkUnmapped         Code = 4002
	MrkClassReification Code = 4003

	// Reification pass
	RfyInfo              Code = 5000
	RfyAbandonedMarker   Code = 5001
	RfyStrict            Code = 5002
	RfyUnsupportedTypeOf Code = 5003
	RfyUnresolvedUsage   Code = 5004

	// IO and observability
	IOLoadFileError Code = 6001
	IOCacheError    Code = 6002
	ObsTimings      Code = 6100
)

var (
	codeDescription = map[Code]string{
		UnknownCode:          "Unknown error",
		AsmInfo:              "Assembly information",
		AsmSyntax:            "Assembly syntax error",
		AsmUnknownOpcode:     "Unknown opcode",
		AsmBadOperand:        "Malformed instruction operand",
		AsmUnterminatedBody:  "Method body without 'end'",
		AsmDuplicateMethod:   "Duplicate method definition",
		AsmUnterminatedQuote: "Unterminated string literal",
		UnitInfo:             "Unit information",
		UnitMissingField:     "Missing manifest field",
		UnitBadType:          "Malformed type expression",
		UnitUnknownParam:     "Binding for undeclared type parameter",
		UnitDuplicateParam:   "Duplicate type parameter",
		UnitMissingSource:    "Source file not found",
		UnitUnknownFormat:    "Unknown manifest format",
		BcInfo:               "Bytecode information",
		BcUndefinedLabel:     "Jump to undefined label",
		BcDuplicateLabel:     "Label defined twice",
		BcStackUnderflow:     "Operand stack underflow",
		BcStackOverflow:      "Operand stack exceeds declared maximum",
		BcBadDescriptor:      "Malformed descriptor",
		BcStackMismatch:      "Inconsistent stack depth at merge point",
		BcMissingOperand:     "Instruction without operand",
		MrkInfo:              "Marker information",
		MrkUndecodable:       "Marker call with malformed operands",
		MrkUnmapped:          "Marker for a parameter outside this inlining step",
		MrkClassReification:  "Call site needs class reification",
		RfyInfo:              "Reification information",
		RfyAbandonedMarker:   "Reified operation marker left in place",
		RfyStrict:            "Abandoned markers in strict mode",
		RfyUnsupportedTypeOf: "Unsupported type in typeOf",
		RfyUnresolvedUsage:   "Reified parameter still needs an enclosing call",
		IOLoadFileError:      "I/O load file error",
		IOCacheError:         "Result cache error",
		ObsTimings:           "Pipeline timings",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("ASM%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("UNT%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("BC%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("MRK%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("RFY%04d", ic)
	case ic >= 6000 && ic < 6100:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 6100 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
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
