package script

import (
	"fmt"
	"strings"
)

// LexError is a tokenization failure at a source position.
type LexError struct {
	Pos Pos
	Msg string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

type lexer struct {
	src  string
	off  int
	line int
	col  int
}

// Lex tokenizes a script, ending the stream with a TokenEOF.
func Lex(src string) ([]Token, error) {
	lx := &lexer{src: src, line: 1, col: 1}
	var toks []Token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == TokenEOF {
			return toks, nil
		}
	}
}

func (lx *lexer) peek() byte {
	if lx.off >= len(lx.src) {
		return 0
	}
	return lx.src[lx.off]
}

func (lx *lexer) peekAt(n int) byte {
	if lx.off+n >= len(lx.src) {
		return 0
	}
	return lx.src[lx.off+n]
}

func (lx *lexer) advance() byte {
	ch := lx.src[lx.off]
	lx.off++
	if ch == '\n' {
		lx.line++
		lx.col = 1
	} else {
		lx.col++
	}
	return ch
}

func (lx *lexer) pos() Pos {
	return Pos{Line: lx.line, Col: lx.col}
}

func (lx *lexer) errorf(pos Pos, format string, args ...any) error {
	return &LexError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (lx *lexer) next() (Token, error) {
	if err := lx.skipBlanks(); err != nil {
		return Token{}, err
	}
	pos := lx.pos()
	if lx.off >= len(lx.src) {
		return Token{Kind: TokenEOF, Pos: pos}, nil
	}

	ch := lx.peek()
	switch {
	case isDigit(ch):
		return lx.number(pos)
	case isIdentStart(ch):
		return lx.ident(pos)
	case ch == '"':
		return lx.quotedString(pos)
	case ch == '`':
		return lx.rawString(pos)
	}

	lx.advance()
	simple := func(kind TokenKind) (Token, error) {
		return Token{Kind: kind, Text: kind.String(), Pos: pos}, nil
	}
	twoChar := func(next byte, long, short TokenKind) (Token, error) {
		if lx.peek() == next {
			lx.advance()
			return Token{Kind: long, Text: long.String(), Pos: pos}, nil
		}
		return Token{Kind: short, Text: short.String(), Pos: pos}, nil
	}

	switch ch {
	case '(':
		return simple(TokenLParen)
	case ')':
		return simple(TokenRParen)
	case '{':
		return simple(TokenLBrace)
	case '}':
		return simple(TokenRBrace)
	case '[':
		return simple(TokenLBracket)
	case ']':
		return simple(TokenRBracket)
	case ',':
		return simple(TokenComma)
	case ';':
		return simple(TokenSemicolon)
	case '+':
		return simple(TokenPlus)
	case '-':
		return simple(TokenMinus)
	case '*':
		return simple(TokenStar)
	case '/':
		return simple(TokenSlash)
	case '%':
		return simple(TokenPercent)
	case '=':
		return twoChar('=', TokenEq, TokenAssign)
	case '!':
		return twoChar('=', TokenNotEq, TokenNot)
	case '<':
		return twoChar('=', TokenLessEq, TokenLess)
	case '>':
		return twoChar('=', TokenGreaterEq, TokenGreater)
	case '.':
		if lx.peek() == '.' {
			lx.advance()
			return Token{Kind: TokenDotDot, Text: "..", Pos: pos}, nil
		}
		return Token{}, lx.errorf(pos, "unexpected character %q", '.')
	case '&':
		if lx.peek() == '&' {
			lx.advance()
			return Token{Kind: TokenAnd, Text: "&&", Pos: pos}, nil
		}
		return Token{}, lx.errorf(pos, "unexpected character %q", '&')
	case '|':
		if lx.peek() == '|' {
			lx.advance()
			return Token{Kind: TokenOr, Text: "||", Pos: pos}, nil
		}
		return Token{}, lx.errorf(pos, "unexpected character %q", '|')
	}
	return Token{}, lx.errorf(pos, "unexpected character %q", ch)
}

// skipBlanks consumes whitespace and both comment forms.
func (lx *lexer) skipBlanks() error {
	for lx.off < len(lx.src) {
		switch ch := lx.peek(); {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			lx.advance()
		case ch == '/' && lx.peekAt(1) == '/':
			for lx.off < len(lx.src) && lx.peek() != '\n' {
				lx.advance()
			}
		case ch == '/' && lx.peekAt(1) == '*':
			pos := lx.pos()
			lx.advance()
			lx.advance()
			closed := false
			for lx.off < len(lx.src) {
				if lx.peek() == '*' && lx.peekAt(1) == '/' {
					lx.advance()
					lx.advance()
					closed = true
					break
				}
				lx.advance()
			}
			if !closed {
				return lx.errorf(pos, "unterminated block comment")
			}
		default:
			return nil
		}
	}
	return nil
}

func (lx *lexer) number(pos Pos) (Token, error) {
	start := lx.off

	if lx.peek() == '0' && (lx.peekAt(1) == 'x' || lx.peekAt(1) == 'X') {
		lx.advance()
		lx.advance()
		if !isHexDigit(lx.peek()) {
			return Token{}, lx.errorf(pos, "malformed hex literal")
		}
		for isHexDigit(lx.peek()) {
			lx.advance()
		}
		return Token{Kind: TokenNumber, Text: lx.src[start:lx.off], Pos: pos}, nil
	}

	for isDigit(lx.peek()) {
		lx.advance()
	}
	// A dot is part of the number only when a digit follows, so that
	// range bounds like 0..10 lex as number, "..", number.
	if lx.peek() == '.' && isDigit(lx.peekAt(1)) {
		lx.advance()
		for isDigit(lx.peek()) {
			lx.advance()
		}
	}
	return Token{Kind: TokenNumber, Text: lx.src[start:lx.off], Pos: pos}, nil
}

func (lx *lexer) ident(pos Pos) (Token, error) {
	start := lx.off
	for isIdentPart(lx.peek()) {
		lx.advance()
	}
	text := lx.src[start:lx.off]
	if kind, ok := keywords[text]; ok {
		return Token{Kind: kind, Text: text, Pos: pos}, nil
	}
	return Token{Kind: TokenIdent, Text: text, Pos: pos}, nil
}

func (lx *lexer) quotedString(pos Pos) (Token, error) {
	lx.advance() // opening quote
	var sb strings.Builder
	for {
		if lx.off >= len(lx.src) {
			return Token{}, lx.errorf(pos, "unterminated string")
		}
		ch := lx.advance()
		switch ch {
		case '"':
			return Token{Kind: TokenString, Text: sb.String(), Pos: pos}, nil
		case '\n':
			return Token{}, lx.errorf(pos, "unterminated string")
		case '\\':
			if lx.off >= len(lx.src) {
				return Token{}, lx.errorf(pos, "unterminated string")
			}
			esc := lx.advance()
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			default:
				return Token{}, lx.errorf(pos, "unknown escape \\%c", esc)
			}
		default:
			sb.WriteByte(ch)
		}
	}
}

// rawString lexes a backtick string: no escapes, newlines allowed.
func (lx *lexer) rawString(pos Pos) (Token, error) {
	lx.advance() // opening backtick
	start := lx.off
	for lx.off < len(lx.src) {
		if lx.peek() == '`' {
			text := lx.src[start:lx.off]
			lx.advance()
			return Token{Kind: TokenString, Text: text, Pos: pos}, nil
		}
		lx.advance()
	}
	return Token{}, lx.errorf(pos, "unterminated raw string")
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool { return isIdentStart(ch) || isDigit(ch) }
