package script

// Expr is any expression node. Every node remembers where it started
// so runtime errors can point back into the source.
type Expr interface {
	exprNode()
	Position() Pos
}

// Stmt is any statement node.
type Stmt interface {
	stmtNode()
	Position() Pos
}

// Program is a parsed script.
type Program struct {
	Stmts []Stmt
}

type NumberLit struct {
	Pos   Pos
	Value float64
}

type StringLit struct {
	Pos   Pos
	Value string
}

type BoolLit struct {
	Pos   Pos
	Value bool
}

type NullLit struct {
	Pos Pos
}

type Ident struct {
	Pos  Pos
	Name string
}

type ArrayLit struct {
	Pos   Pos
	Elems []Expr
}

type UnaryExpr struct {
	Pos Pos
	Op  TokenKind
	X   Expr
}

type BinaryExpr struct {
	Pos   Pos
	Op    TokenKind
	Left  Expr
	Right Expr
}

type CallExpr struct {
	Pos  Pos
	Fn   Expr
	Args []Expr
}

type IndexExpr struct {
	Pos   Pos
	X     Expr
	Index Expr
}

func (n *NumberLit) exprNode()  {}
func (n *StringLit) exprNode()  {}
func (n *BoolLit) exprNode()    {}
func (n *NullLit) exprNode()    {}
func (n *Ident) exprNode()      {}
func (n *ArrayLit) exprNode()   {}
func (n *UnaryExpr) exprNode()  {}
func (n *BinaryExpr) exprNode() {}
func (n *CallExpr) exprNode()   {}
func (n *IndexExpr) exprNode()  {}

func (n *NumberLit) Position() Pos  { return n.Pos }
func (n *StringLit) Position() Pos  { return n.Pos }
func (n *BoolLit) Position() Pos    { return n.Pos }
func (n *NullLit) Position() Pos    { return n.Pos }
func (n *Ident) Position() Pos      { return n.Pos }
func (n *ArrayLit) Position() Pos   { return n.Pos }
func (n *UnaryExpr) Position() Pos  { return n.Pos }
func (n *BinaryExpr) Position() Pos { return n.Pos }
func (n *CallExpr) Position() Pos   { return n.Pos }
func (n *IndexExpr) Position() Pos  { return n.Pos }

// Block is a braced statement list.
type Block struct {
	Pos   Pos
	Stmts []Stmt
}

type LetStmt struct {
	Pos   Pos
	Name  string
	Value Expr
}

type AssignStmt struct {
	Pos   Pos
	Name  string
	Value Expr
}

// IfStmt holds the if/else-if chain as ordered branches plus an
// optional trailing else block.
type IfStmt struct {
	Pos      Pos
	Branches []IfBranch
	Else     *Block
}

type IfBranch struct {
	Cond Expr
	Body *Block
}

type WhileStmt struct {
	Pos  Pos
	Cond Expr
	Body *Block
}

// ForStmt is a half-open range loop: Var walks From up to but not
// including To.
type ForStmt struct {
	Pos  Pos
	Var  string
	From Expr
	To   Expr
	Body *Block
}

type FnStmt struct {
	Pos    Pos
	Name   string
	Params []string
	Body   *Block
}

type ReturnStmt struct {
	Pos   Pos
	Value Expr // nil for bare return
}

type ExprStmt struct {
	Pos Pos
	X   Expr
}

func (s *Block) stmtNode()      {}
func (s *LetStmt) stmtNode()    {}
func (s *AssignStmt) stmtNode() {}
func (s *IfStmt) stmtNode()     {}
func (s *WhileStmt) stmtNode()  {}
func (s *ForStmt) stmtNode()    {}
func (s *FnStmt) stmtNode()     {}
func (s *ReturnStmt) stmtNode() {}
func (s *ExprStmt) stmtNode()   {}

func (s *Block) Position() Pos      { return s.Pos }
func (s *LetStmt) Position() Pos    { return s.Pos }
func (s *AssignStmt) Position() Pos { return s.Pos }
func (s *IfStmt) Position() Pos     { return s.Pos }
func (s *WhileStmt) Position() Pos  { return s.Pos }
func (s *ForStmt) Position() Pos    { return s.Pos }
func (s *FnStmt) Position() Pos     { return s.Pos }
func (s *ReturnStmt) Position() Pos { return s.Pos }
func (s *ExprStmt) Position() Pos   { return s.Pos }
