package grammar

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// ParseError is a syntax problem with its source position, suitable both for
// the caret reporter and for LSP diagnostics.
type ParseError struct {
	Pos     lexer.Position
	Message string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename, e.Pos.Line, e.Pos.Column, e.Message)
}

var bxParser = participle.MustBuild[Program](
	participle.Lexer(BxLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(3),
)

// ParseSource parses BX source text. On failure the returned program is nil
// and errs carries a single entry: the first syntax error the parser hit.
func ParseSource(path, src string) (*Program, []ParseError) {
	program, err := bxParser.ParseString(path, src)
	if err == nil {
		return program, nil
	}
	if pe, ok := err.(participle.Error); ok {
		return nil, []ParseError{{Pos: pe.Position(), Message: pe.Message()}}
	}
	return nil, []ParseError{{Message: err.Error()}}
}
