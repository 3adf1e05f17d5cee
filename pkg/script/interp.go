package script

import (
	"context"
	"errors"
	"fmt"
	"math"

	"serialtui/pkg/serial"
)

// ErrAborted reports that a script was cancelled while running.
var ErrAborted = errors.New("script aborted")

// ErrWaitTimeout reports that waitstr gave up before a match arrived.
var ErrWaitTimeout = errors.New("wait timed out")

// RuntimeError is an evaluation failure at a source position.
type RuntimeError struct {
	Pos Pos
	Msg string
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

func errAt(pos Pos, format string, args ...any) *RuntimeError {
	return &RuntimeError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// returnSignal carries a return value up the statement stack. It is
// an error only for control flow and never escapes a function call.
type returnSignal struct {
	value Value
}

func (returnSignal) Error() string { return "return outside function" }

// Host is the port surface a script talks to. *serial.Hub satisfies
// it directly.
type Host interface {
	Send(ctx context.Context, ports []string, data []byte) error
	Subscribe(buffer int) *serial.Subscription
}

// Builtin is a native function exposed to scripts.
type Builtin struct {
	Name string
	Fn   func(ctx context.Context, in *Interp, pos Pos, args []Value) (Value, error)
}

func (*Builtin) Type() Type { return TypeFunc }

func (b *Builtin) String() string { return fmt.Sprintf("fn %s(builtin)", b.Name) }

// Interp evaluates parsed scripts against a Host. One Interp serves
// one run; it is not safe for concurrent use.
type Interp struct {
	host    Host
	notify  serial.Notifier
	globals *Env
}

func NewInterp(host Host, notify serial.Notifier) *Interp {
	in := &Interp{host: host, notify: notify, globals: NewEnv(nil)}
	for _, b := range builtins() {
		in.globals.Define(b.Name, b)
	}
	return in
}

// Run executes a program. Cancellation of ctx surfaces as ErrAborted;
// other failures are *RuntimeError.
func (in *Interp) Run(ctx context.Context, prog *Program) error {
	for _, stmt := range prog.Stmts {
		if err := in.execStmt(ctx, in.globals, stmt); err != nil {
			var ret returnSignal
			if errors.As(err, &ret) {
				return errAt(stmt.Position(), "return outside function")
			}
			return err
		}
	}
	return nil
}

func (in *Interp) checkCtx(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ErrAborted
	default:
		return nil
	}
}

func (in *Interp) execStmt(ctx context.Context, env *Env, stmt Stmt) error {
	switch s := stmt.(type) {
	case *LetStmt:
		v, err := in.eval(ctx, env, s.Value)
		if err != nil {
			return err
		}
		env.Define(s.Name, v)
		return nil
	case *AssignStmt:
		v, err := in.eval(ctx, env, s.Value)
		if err != nil {
			return err
		}
		if err := env.Assign(s.Name, v); err != nil {
			return errAt(s.Pos, "%s", err)
		}
		return nil
	case *FnStmt:
		env.Define(s.Name, &FuncValue{Name: s.Name, Params: s.Params, Body: s.Body, Env: env})
		return nil
	case *IfStmt:
		for _, br := range s.Branches {
			ok, err := in.evalCond(ctx, env, br.Cond)
			if err != nil {
				return err
			}
			if ok {
				return in.execBlock(ctx, env, br.Body)
			}
		}
		if s.Else != nil {
			return in.execBlock(ctx, env, s.Else)
		}
		return nil
	case *WhileStmt:
		for {
			if err := in.checkCtx(ctx); err != nil {
				return err
			}
			ok, err := in.evalCond(ctx, env, s.Cond)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			if err := in.execBlock(ctx, env, s.Body); err != nil {
				return err
			}
		}
	case *ForStmt:
		from, err := in.evalNumber(ctx, env, s.From)
		if err != nil {
			return err
		}
		to, err := in.evalNumber(ctx, env, s.To)
		if err != nil {
			return err
		}
		lo, hi := int(from), int(to)
		for i := lo; i < hi; i++ {
			if err := in.checkCtx(ctx); err != nil {
				return err
			}
			scope := NewEnv(env)
			scope.Define(s.Var, Number(i))
			if err := in.execBlock(ctx, scope, s.Body); err != nil {
				return err
			}
		}
		return nil
	case *ReturnStmt:
		var v Value = Null{}
		if s.Value != nil {
			var err error
			if v, err = in.eval(ctx, env, s.Value); err != nil {
				return err
			}
		}
		return returnSignal{value: v}
	case *Block:
		return in.execBlock(ctx, env, s)
	case *ExprStmt:
		_, err := in.eval(ctx, env, s.X)
		return err
	}
	return errAt(stmt.Position(), "unhandled statement")
}

// execBlock runs a block in a fresh child scope.
func (in *Interp) execBlock(ctx context.Context, env *Env, blk *Block) error {
	scope := NewEnv(env)
	for _, stmt := range blk.Stmts {
		if err := in.execStmt(ctx, scope, stmt); err != nil {
			return err
		}
	}
	return nil
}

// evalCond evaluates an expression that must yield a bool. Nothing
// else is truthy.
func (in *Interp) evalCond(ctx context.Context, env *Env, x Expr) (bool, error) {
	v, err := in.eval(ctx, env, x)
	if err != nil {
		return false, err
	}
	b, ok := v.(Bool)
	if !ok {
		return false, errAt(x.Position(), "condition must be bool, got %s", v.Type())
	}
	return bool(b), nil
}

func (in *Interp) evalNumber(ctx context.Context, env *Env, x Expr) (float64, error) {
	v, err := in.eval(ctx, env, x)
	if err != nil {
		return 0, err
	}
	n, ok := v.(Number)
	if !ok {
		return 0, errAt(x.Position(), "expected number, got %s", v.Type())
	}
	return float64(n), nil
}

func (in *Interp) eval(ctx context.Context, env *Env, x Expr) (Value, error) {
	switch e := x.(type) {
	case *NumberLit:
		return Number(e.Value), nil
	case *StringLit:
		return String(e.Value), nil
	case *BoolLit:
		return Bool(e.Value), nil
	case *NullLit:
		return Null{}, nil
	case *Ident:
		v, err := env.Get(e.Name)
		if err != nil {
			return nil, errAt(e.Pos, "%s", err)
		}
		return v, nil
	case *ArrayLit:
		arr := make(Array, 0, len(e.Elems))
		for _, elem := range e.Elems {
			v, err := in.eval(ctx, env, elem)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case *UnaryExpr:
		return in.evalUnary(ctx, env, e)
	case *BinaryExpr:
		return in.evalBinary(ctx, env, e)
	case *IndexExpr:
		return in.evalIndex(ctx, env, e)
	case *CallExpr:
		return in.evalCall(ctx, env, e)
	}
	return nil, errAt(x.Position(), "unhandled expression")
}

func (in *Interp) evalUnary(ctx context.Context, env *Env, e *UnaryExpr) (Value, error) {
	v, err := in.eval(ctx, env, e.X)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case TokenMinus:
		n, ok := v.(Number)
		if !ok {
			return nil, errAt(e.Pos, "cannot negate %s", v.Type())
		}
		return -n, nil
	case TokenNot:
		b, ok := v.(Bool)
		if !ok {
			return nil, errAt(e.Pos, "cannot apply ! to %s", v.Type())
		}
		return !b, nil
	}
	return nil, errAt(e.Pos, "unhandled unary operator %s", e.Op)
}

func (in *Interp) evalBinary(ctx context.Context, env *Env, e *BinaryExpr) (Value, error) {
	// && and || short-circuit and demand bool on both sides.
	if e.Op == TokenAnd || e.Op == TokenOr {
		left, err := in.evalCond(ctx, env, e.Left)
		if err != nil {
			return nil, err
		}
		if e.Op == TokenAnd && !left {
			return Bool(false), nil
		}
		if e.Op == TokenOr && left {
			return Bool(true), nil
		}
		right, err := in.evalCond(ctx, env, e.Right)
		if err != nil {
			return nil, err
		}
		return Bool(right), nil
	}

	left, err := in.eval(ctx, env, e.Left)
	if err != nil {
		return nil, err
	}
	right, err := in.eval(ctx, env, e.Right)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case TokenEq, TokenNotEq:
		eq, err := equals(left, right)
		if err != nil {
			return nil, errAt(e.Pos, "%s", err)
		}
		if e.Op == TokenNotEq {
			eq = !eq
		}
		return Bool(eq), nil
	case TokenPlus:
		if ls, ok := left.(String); ok {
			if rs, ok := right.(String); ok {
				return ls + rs, nil
			}
		}
	}

	ln, lok := left.(Number)
	rn, rok := right.(Number)
	if !lok || !rok {
		return nil, errAt(e.Pos, "operator %s needs numbers, got %s and %s", e.Op, left.Type(), right.Type())
	}

	switch e.Op {
	case TokenPlus:
		return ln + rn, nil
	case TokenMinus:
		return ln - rn, nil
	case TokenStar:
		return ln * rn, nil
	case TokenSlash:
		if rn == 0 {
			return nil, errAt(e.Pos, "division by zero")
		}
		return ln / rn, nil
	case TokenPercent:
		if rn == 0 {
			return nil, errAt(e.Pos, "division by zero")
		}
		return Number(math.Mod(float64(ln), float64(rn))), nil
	case TokenLess:
		return Bool(ln < rn), nil
	case TokenLessEq:
		return Bool(ln <= rn), nil
	case TokenGreater:
		return Bool(ln > rn), nil
	case TokenGreaterEq:
		return Bool(ln >= rn), nil
	}
	return nil, errAt(e.Pos, "unhandled operator %s", e.Op)
}

func (in *Interp) evalIndex(ctx context.Context, env *Env, e *IndexExpr) (Value, error) {
	target, err := in.eval(ctx, env, e.X)
	if err != nil {
		return nil, err
	}
	idxVal, err := in.eval(ctx, env, e.Index)
	if err != nil {
		return nil, err
	}
	n, ok := idxVal.(Number)
	if !ok {
		return nil, errAt(e.Pos, "index must be a number, got %s", idxVal.Type())
	}
	idx := int(n)
	if float64(idx) != float64(n) {
		return nil, errAt(e.Pos, "index must be an integer, got %s", n)
	}
	switch t := target.(type) {
	case Array:
		if idx < 0 || idx >= len(t) {
			return nil, errAt(e.Pos, "index %d out of range for array of length %d", idx, len(t))
		}
		return t[idx], nil
	case String:
		if idx < 0 || idx >= len(t) {
			return nil, errAt(e.Pos, "index %d out of range for string of length %d", idx, len(t))
		}
		return String(t[idx : idx+1]), nil
	}
	return nil, errAt(e.Pos, "cannot index %s", target.Type())
}

func (in *Interp) evalCall(ctx context.Context, env *Env, e *CallExpr) (Value, error) {
	if err := in.checkCtx(ctx); err != nil {
		return nil, err
	}
	callee, err := in.eval(ctx, env, e.Fn)
	if err != nil {
		return nil, err
	}
	args := make([]Value, 0, len(e.Args))
	for _, arg := range e.Args {
		v, err := in.eval(ctx, env, arg)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	switch fn := callee.(type) {
	case *Builtin:
		return fn.Fn(ctx, in, e.Pos, args)
	case *FuncValue:
		if len(args) != len(fn.Params) {
			return nil, errAt(e.Pos, "%s takes %d argument(s), got %d", fn, len(fn.Params), len(args))
		}
		scope := NewEnv(fn.Env)
		for i, param := range fn.Params {
			scope.Define(param, args[i])
		}
		err := in.execBlock(ctx, scope, fn.Body)
		if err == nil {
			return Null{}, nil
		}
		var ret returnSignal
		if errors.As(err, &ret) {
			return ret.value, nil
		}
		return nil, err
	}
	return nil, errAt(e.Pos, "cannot call %s", callee.Type())
}
