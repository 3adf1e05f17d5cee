// Package script implements the automation language used to drive
// serial ports: a small imperative language with functions, arrays,
// and blocking built-ins for sending data and waiting on matching
// output. Source text goes through Lex and Parse into an AST that the
// interpreter walks directly.
package script

import "fmt"

// Pos is a 1-based source position.
type Pos struct {
	Line int
	Col  int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// TokenKind identifies a lexical token class.
type TokenKind int

const (
	TokenEOF TokenKind = iota

	TokenNumber
	TokenString
	TokenIdent

	TokenLet
	TokenFn
	TokenIf
	TokenElif
	TokenElse
	TokenWhile
	TokenFor
	TokenIn
	TokenReturn
	TokenTrue
	TokenFalse
	TokenNull

	TokenLParen
	TokenRParen
	TokenLBrace
	TokenRBrace
	TokenLBracket
	TokenRBracket
	TokenComma
	TokenSemicolon

	TokenAssign
	TokenPlus
	TokenMinus
	TokenStar
	TokenSlash
	TokenPercent

	TokenEq
	TokenNotEq
	TokenLess
	TokenLessEq
	TokenGreater
	TokenGreaterEq

	TokenAnd
	TokenOr
	TokenNot

	TokenDotDot
)

var kindNames = map[TokenKind]string{
	TokenEOF:       "end of input",
	TokenNumber:    "number",
	TokenString:    "string",
	TokenIdent:     "identifier",
	TokenLet:       "let",
	TokenFn:        "fn",
	TokenIf:        "if",
	TokenElif:      "elif",
	TokenElse:      "else",
	TokenWhile:     "while",
	TokenFor:       "for",
	TokenIn:        "in",
	TokenReturn:    "return",
	TokenTrue:      "true",
	TokenFalse:     "false",
	TokenNull:      "null",
	TokenLParen:    "(",
	TokenRParen:    ")",
	TokenLBrace:    "{",
	TokenRBrace:    "}",
	TokenLBracket:  "[",
	TokenRBracket:  "]",
	TokenComma:     ",",
	TokenSemicolon: ";",
	TokenAssign:    "=",
	TokenPlus:      "+",
	TokenMinus:     "-",
	TokenStar:      "*",
	TokenSlash:     "/",
	TokenPercent:   "%",
	TokenEq:        "==",
	TokenNotEq:     "!=",
	TokenLess:      "<",
	TokenLessEq:    "<=",
	TokenGreater:   ">",
	TokenGreaterEq: ">=",
	TokenAnd:       "&&",
	TokenOr:        "||",
	TokenNot:       "!",
	TokenDotDot:    "..",
}

func (k TokenKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(k))
}

var keywords = map[string]TokenKind{
	"let":    TokenLet,
	"fn":     TokenFn,
	"if":     TokenIf,
	"elif":   TokenElif,
	"else":   TokenElse,
	"while":  TokenWhile,
	"for":    TokenFor,
	"in":     TokenIn,
	"return": TokenReturn,
	"true":   TokenTrue,
	"false":  TokenFalse,
	"null":   TokenNull,
}

// Token is a single lexical unit. Text holds the literal's decoded
// value for strings and the raw spelling for everything else.
type Token struct {
	Kind TokenKind
	Text string
	Pos  Pos
}
