package lsp

import (
	protocol "github.com/tliron/glsp/protocol_3_16"

	"bxc/internal/diag"
	"bxc/internal/grammar"
)

// ConvertParseErrors transforms syntax errors into LSP diagnostics for IDE
// display.
func ConvertParseErrors(parseErrors []grammar.ParseError) []protocol.Diagnostic {
	var diagnostics []protocol.Diagnostic

	for _, parseErr := range parseErrors {
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    positionRange(parseErr.Pos.Line, parseErr.Pos.Column, 1),
			Severity: ptrSeverity(protocol.DiagnosticSeverityError),
			Source:   ptrString("bxc-parser"),
			Message:  parseErr.Message,
		})
	}
	return diagnostics
}

// ConvertCheckDiagnostics transforms type-checker diagnostics into LSP
// diagnostics.
func ConvertCheckDiagnostics(diags []diag.Diagnostic) []protocol.Diagnostic {
	var diagnostics []protocol.Diagnostic

	for _, d := range diags {
		severity := protocol.DiagnosticSeverityError
		if d.Level == diag.Warning {
			severity = protocol.DiagnosticSeverityWarning
		}
		length := d.Length
		if length <= 0 {
			length = 1
		}
		code := protocol.IntegerOrString{Value: d.Code}
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    positionRange(d.Pos.Line, d.Pos.Column, length),
			Severity: ptrSeverity(severity),
			Source:   ptrString("bxc-check"),
			Code:     &code,
			Message:  d.Message,
		})
	}
	return diagnostics
}

// positionRange builds a 0-based LSP range from a 1-based source position.
func positionRange(line, column, length int) protocol.Range {
	if line < 1 {
		line = 1
	}
	if column < 1 {
		column = 1
	}
	return protocol.Range{
		Start: protocol.Position{
			Line:      uint32(line - 1),
			Character: uint32(column - 1),
		},
		End: protocol.Position{
			Line:      uint32(line - 1),
			Character: uint32(column - 1 + length),
		},
	}
}

func ptrSeverity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity {
	return &s
}

func ptrString(s string) *string {
	return &s
}
