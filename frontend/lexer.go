package frontend

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// Lexer tokenizes fcmc source. Order matters: comments before operators,
// multi-char operators before their single-char prefixes.
var Lexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `//[^\n]*`, nil},

		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},

		{"Number", `0x[0-9a-fA-F]+|[0-9]+`, nil},

		{"Operator", `\.\.|->|\|\||&&|==|!=|<=|>=|[-+*/%^=<>!]`, nil},

		{"Punct", `[(){}\[\]:;,]`, nil},

		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
