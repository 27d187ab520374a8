package diag

// Code identifies a diagnostic category.
type Code uint16

const (
	// CodeUnknown is the zero code.
	CodeUnknown Code = iota
	// CodeParse covers textual-IR syntax errors.
	CodeParse
	// CodeUndefinedValue covers references to values that were never defined.
	CodeUndefinedValue
	// CodeUndefinedBlock covers branches to labels that were never defined.
	CodeUndefinedBlock
	// CodeRedefinition covers duplicate value or label definitions.
	CodeRedefinition
	// CodeVerify covers graph-invariant violations found by the verifier.
	CodeVerify
)

func (c Code) String() string {
	switch c {
	case CodeParse:
		return "E0001"
	case CodeUndefinedValue:
		return "E0002"
	case CodeUndefinedBlock:
		return "E0003"
	case CodeRedefinition:
		return "E0004"
	case CodeVerify:
		return "E0005"
	}
	return "E0000"
}

// Pos is a 1-based line position in a source file; zero means unknown.
type Pos struct {
	File string
	Line int
}

// Diagnostic is one reported problem.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Pos      Pos
	Message  string
}
