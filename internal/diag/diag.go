package diag

import (
	"fmt"

	"github.com/alecthomas/participle/v2/lexer"
)

// Level is the severity of a diagnostic.
type Level string

const (
	Error   Level = "error"
	Warning Level = "warning"
	Note    Level = "note"
)

// Diagnostic is a structured source-level problem: syntax or type errors
// carry a code, a position and an optional help line.
type Diagnostic struct {
	Level    Level
	Code     string
	Message  string
	Pos      lexer.Position
	Length   int
	HelpText string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.Pos.Filename, d.Pos.Line, d.Pos.Column, d.Level, d.Message)
}

// Diagnostic codes. The E00xx range is syntax, E01xx is the type checker.
const (
	CodeSyntax         = "E0001"
	CodeUndeclaredVar  = "E0102"
	CodeRedeclaredVar  = "E0103"
	CodeUndeclaredProc = "E0104"
	CodeRedeclaredProc = "E0105"
	CodeTypeMismatch   = "E0106"
	CodeArityMismatch  = "E0107"
	CodeBadReturn      = "E0108"
	CodeBadCondition   = "E0109"
	CodeIntOutOfRange  = "E0110"
	CodeMissingMain    = "E0111"
	CodeVoidInExpr     = "E0112"
	CodeMissingReturn  = "E0114"
)
