package script

import "fmt"

// Env is a lexical scope. Lookups walk the parent chain; Define
// always binds in the innermost scope, Assign rebinds the nearest
// existing binding.
type Env struct {
	vars   map[string]Value
	parent *Env
}

func NewEnv(parent *Env) *Env {
	return &Env{vars: make(map[string]Value), parent: parent}
}

func (e *Env) Define(name string, v Value) {
	e.vars[name] = v
}

func (e *Env) Get(name string) (Value, error) {
	for scope := e; scope != nil; scope = scope.parent {
		if v, ok := scope.vars[name]; ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("undefined variable %q", name)
}

func (e *Env) Assign(name string, v Value) error {
	for scope := e; scope != nil; scope = scope.parent {
		if _, ok := scope.vars[name]; ok {
			scope.vars[name] = v
			return nil
		}
	}
	return fmt.Errorf("assignment to undefined variable %q", name)
}
