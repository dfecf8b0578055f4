package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// BxLexer tokenizes BX source. Longer operators come first in the
// alternation so "<=" and "<<" win over "<".
var BxLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `//[^\n]*`, nil},

		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},

		{"Integer", `[0-9]+`, nil},

		{"Operator", `(\|\||&&|==|!=|<=|>=|<<|>>|[-+*/%&|^!<>=])`, nil},

		{"Punct", `[(){},:;]`, nil},

		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
