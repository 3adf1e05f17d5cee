package script

import "testing"

func TestParse_Precedence(t *testing.T) {
	prog, err := Parse("1 + 2 * 3")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	x := prog.Stmts[0].(*ExprStmt).X.(*BinaryExpr)
	if x.Op != TokenPlus {
		t.Fatalf("root op = %s, want +", x.Op)
	}
	right := x.Right.(*BinaryExpr)
	if right.Op != TokenStar {
		t.Fatalf("right op = %s, want *", right.Op)
	}
}

func TestParse_ForRange(t *testing.T) {
	prog, err := Parse("for i in 0 .. 10 { print(i) }")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	loop := prog.Stmts[0].(*ForStmt)
	if loop.Var != "i" {
		t.Fatalf("loop var = %q", loop.Var)
	}
	if loop.From.(*NumberLit).Value != 0 || loop.To.(*NumberLit).Value != 10 {
		t.Fatal("range bounds not parsed")
	}
}

func TestParse_ElifChain(t *testing.T) {
	prog, err := Parse(`
		if a { print("a") }
		elif b { print("b") }
		else { print("c") }
	`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	stmt := prog.Stmts[0].(*IfStmt)
	if len(stmt.Branches) != 2 || stmt.Else == nil {
		t.Fatalf("branches = %d, else = %v", len(stmt.Branches), stmt.Else != nil)
	}

	// "else if" parses to the same shape.
	prog, err = Parse(`if a { } else if b { } else { }`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	stmt = prog.Stmts[0].(*IfStmt)
	if len(stmt.Branches) != 2 || stmt.Else == nil {
		t.Fatalf("branches = %d, else = %v", len(stmt.Branches), stmt.Else != nil)
	}
}

func TestParse_AssignVsExpr(t *testing.T) {
	prog, err := Parse("x = 1; x == 1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, ok := prog.Stmts[0].(*AssignStmt); !ok {
		t.Fatalf("first stmt is %T, want *AssignStmt", prog.Stmts[0])
	}
	if _, ok := prog.Stmts[1].(*ExprStmt); !ok {
		t.Fatalf("second stmt is %T, want *ExprStmt", prog.Stmts[1])
	}
}

func TestParse_CallAndIndexChain(t *testing.T) {
	prog, err := Parse(`ports()[0]`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	idx := prog.Stmts[0].(*ExprStmt).X.(*IndexExpr)
	if _, ok := idx.X.(*CallExpr); !ok {
		t.Fatalf("index target is %T, want *CallExpr", idx.X)
	}
}

func TestParse_Errors(t *testing.T) {
	for _, src := range []string{
		"let = 1",
		"fn () {}",
		"if x print(1)",
		"for i in 0 10 {}",
		"(1 + 2",
	} {
		if _, err := Parse(src); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", src)
		}
	}
}

func TestParse_ErrorHasPosition(t *testing.T) {
	_, err := Parse("let x =\n  let")
	perr, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("error is %T, want *ParseError", err)
	}
	if perr.Pos.Line != 2 {
		t.Fatalf("error at line %d, want 2", perr.Pos.Line)
	}
}
