package script

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError is a syntax failure at a source position.
type ParseError struct {
	Pos Pos
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

type parser struct {
	toks []Token
	off  int
}

// Parse lexes and parses a script into a Program.
func Parse(src string) (*Program, error) {
	toks, err := Lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	prog := &Program{}
	for !p.at(TokenEOF) {
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		prog.Stmts = append(prog.Stmts, stmt)
	}
	return prog, nil
}

func (p *parser) peek() Token { return p.toks[p.off] }

func (p *parser) peekAt(n int) Token {
	if p.off+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.off+n]
}

func (p *parser) at(kind TokenKind) bool { return p.peek().Kind == kind }

func (p *parser) advance() Token {
	tok := p.toks[p.off]
	if tok.Kind != TokenEOF {
		p.off++
	}
	return tok
}

func (p *parser) expect(kind TokenKind) (Token, error) {
	if !p.at(kind) {
		tok := p.peek()
		return Token{}, &ParseError{Pos: tok.Pos, Msg: fmt.Sprintf("expected %s, found %s", kind, describe(tok))}
	}
	return p.advance(), nil
}

func describe(tok Token) string {
	switch tok.Kind {
	case TokenEOF:
		return "end of input"
	case TokenNumber, TokenIdent:
		return fmt.Sprintf("%q", tok.Text)
	case TokenString:
		return "string literal"
	default:
		return fmt.Sprintf("%q", tok.Kind.String())
	}
}

func (p *parser) statement() (Stmt, error) {
	defer p.skipSemis()
	switch p.peek().Kind {
	case TokenLet:
		return p.letStmt()
	case TokenFn:
		return p.fnStmt()
	case TokenIf:
		return p.ifStmt()
	case TokenWhile:
		return p.whileStmt()
	case TokenFor:
		return p.forStmt()
	case TokenReturn:
		return p.returnStmt()
	case TokenLBrace:
		return p.block()
	}
	if p.at(TokenIdent) && p.peekAt(1).Kind == TokenAssign {
		name := p.advance()
		p.advance() // =
		value, err := p.expr()
		if err != nil {
			return nil, err
		}
		return &AssignStmt{Pos: name.Pos, Name: name.Text, Value: value}, nil
	}
	pos := p.peek().Pos
	x, err := p.expr()
	if err != nil {
		return nil, err
	}
	return &ExprStmt{Pos: pos, X: x}, nil
}

func (p *parser) skipSemis() {
	for p.at(TokenSemicolon) {
		p.advance()
	}
}

func (p *parser) letStmt() (Stmt, error) {
	kw := p.advance()
	name, err := p.expect(TokenIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenAssign); err != nil {
		return nil, err
	}
	value, err := p.expr()
	if err != nil {
		return nil, err
	}
	return &LetStmt{Pos: kw.Pos, Name: name.Text, Value: value}, nil
}

func (p *parser) fnStmt() (Stmt, error) {
	kw := p.advance()
	name, err := p.expect(TokenIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	var params []string
	for !p.at(TokenRParen) {
		param, err := p.expect(TokenIdent)
		if err != nil {
			return nil, err
		}
		params = append(params, param.Text)
		if !p.at(TokenComma) {
			break
		}
		p.advance()
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return &FnStmt{Pos: kw.Pos, Name: name.Text, Params: params, Body: body}, nil
}

func (p *parser) ifStmt() (Stmt, error) {
	kw := p.advance()
	stmt := &IfStmt{Pos: kw.Pos}
	for {
		cond, err := p.expr()
		if err != nil {
			return nil, err
		}
		body, err := p.block()
		if err != nil {
			return nil, err
		}
		stmt.Branches = append(stmt.Branches, IfBranch{Cond: cond, Body: body})
		if p.at(TokenElif) {
			p.advance()
			continue
		}
		if !p.at(TokenElse) {
			return stmt, nil
		}
		p.advance()
		// "else if" is accepted as a spelling of elif.
		if p.at(TokenIf) {
			p.advance()
			continue
		}
		stmt.Else, err = p.block()
		if err != nil {
			return nil, err
		}
		return stmt, nil
	}
}

func (p *parser) whileStmt() (Stmt, error) {
	kw := p.advance()
	cond, err := p.expr()
	if err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return &WhileStmt{Pos: kw.Pos, Cond: cond, Body: body}, nil
}

func (p *parser) forStmt() (Stmt, error) {
	kw := p.advance()
	name, err := p.expect(TokenIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenIn); err != nil {
		return nil, err
	}
	from, err := p.expr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenDotDot); err != nil {
		return nil, err
	}
	to, err := p.expr()
	if err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return &ForStmt{Pos: kw.Pos, Var: name.Text, From: from, To: to, Body: body}, nil
}

func (p *parser) returnStmt() (Stmt, error) {
	kw := p.advance()
	stmt := &ReturnStmt{Pos: kw.Pos}
	// A bare return ends at the statement boundary.
	switch p.peek().Kind {
	case TokenSemicolon, TokenRBrace, TokenEOF:
		return stmt, nil
	}
	value, err := p.expr()
	if err != nil {
		return nil, err
	}
	stmt.Value = value
	return stmt, nil
}

func (p *parser) block() (*Block, error) {
	open, err := p.expect(TokenLBrace)
	if err != nil {
		return nil, err
	}
	blk := &Block{Pos: open.Pos}
	for !p.at(TokenRBrace) && !p.at(TokenEOF) {
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		blk.Stmts = append(blk.Stmts, stmt)
	}
	if _, err := p.expect(TokenRBrace); err != nil {
		return nil, err
	}
	return blk, nil
}

func (p *parser) expr() (Expr, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (Expr, error) {
	return p.binary(p.parseAnd, TokenOr)
}

func (p *parser) parseAnd() (Expr, error) {
	return p.binary(p.parseEquality, TokenAnd)
}

func (p *parser) parseEquality() (Expr, error) {
	return p.binary(p.parseComparison, TokenEq, TokenNotEq)
}

func (p *parser) parseComparison() (Expr, error) {
	return p.binary(p.parseAdditive, TokenLess, TokenLessEq, TokenGreater, TokenGreaterEq)
}

func (p *parser) parseAdditive() (Expr, error) {
	return p.binary(p.parseMultiplicative, TokenPlus, TokenMinus)
}

func (p *parser) parseMultiplicative() (Expr, error) {
	return p.binary(p.parseUnary, TokenStar, TokenSlash, TokenPercent)
}

func (p *parser) binary(next func() (Expr, error), ops ...TokenKind) (Expr, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		matched := false
		for _, op := range ops {
			if p.at(op) {
				matched = true
				break
			}
		}
		if !matched {
			return left, nil
		}
		tok := p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Pos: tok.Pos, Op: tok.Kind, Left: left, Right: right}
	}
}

func (p *parser) parseUnary() (Expr, error) {
	if p.at(TokenMinus) || p.at(TokenNot) {
		tok := p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Pos: tok.Pos, Op: tok.Kind, X: x}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (Expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().Kind {
		case TokenLParen:
			open := p.advance()
			var args []Expr
			for !p.at(TokenRParen) {
				arg, err := p.expr()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if !p.at(TokenComma) {
					break
				}
				p.advance()
			}
			if _, err := p.expect(TokenRParen); err != nil {
				return nil, err
			}
			x = &CallExpr{Pos: open.Pos, Fn: x, Args: args}
		case TokenLBracket:
			open := p.advance()
			idx, err := p.expr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenRBracket); err != nil {
				return nil, err
			}
			x = &IndexExpr{Pos: open.Pos, X: x, Index: idx}
		default:
			return x, nil
		}
	}
}

func (p *parser) parsePrimary() (Expr, error) {
	tok := p.peek()
	switch tok.Kind {
	case TokenNumber:
		p.advance()
		value, err := parseNumber(tok.Text)
		if err != nil {
			return nil, &ParseError{Pos: tok.Pos, Msg: fmt.Sprintf("bad number %q", tok.Text)}
		}
		return &NumberLit{Pos: tok.Pos, Value: value}, nil
	case TokenString:
		p.advance()
		return &StringLit{Pos: tok.Pos, Value: tok.Text}, nil
	case TokenTrue, TokenFalse:
		p.advance()
		return &BoolLit{Pos: tok.Pos, Value: tok.Kind == TokenTrue}, nil
	case TokenNull:
		p.advance()
		return &NullLit{Pos: tok.Pos}, nil
	case TokenIdent:
		p.advance()
		return &Ident{Pos: tok.Pos, Name: tok.Text}, nil
	case TokenLBracket:
		p.advance()
		lit := &ArrayLit{Pos: tok.Pos}
		for !p.at(TokenRBracket) {
			elem, err := p.expr()
			if err != nil {
				return nil, err
			}
			lit.Elems = append(lit.Elems, elem)
			if !p.at(TokenComma) {
				break
			}
			p.advance()
		}
		if _, err := p.expect(TokenRBracket); err != nil {
			return nil, err
		}
		return lit, nil
	case TokenLParen:
		p.advance()
		x, err := p.expr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return x, nil
	}
	return nil, &ParseError{Pos: tok.Pos, Msg: fmt.Sprintf("unexpected %s", describe(tok))}
}

func parseNumber(text string) (float64, error) {
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		n, err := strconv.ParseUint(text[2:], 16, 64)
		if err != nil {
			return 0, err
		}
		return float64(n), nil
	}
	return strconv.ParseFloat(text, 64)
}
