package script

import (
	"fmt"
	"strconv"
	"strings"
)

// Type identifies a runtime value class.
type Type int

const (
	TypeNull Type = iota
	TypeNumber
	TypeString
	TypeBool
	TypeArray
	TypeFunc
)

func (t Type) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	case TypeArray:
		return "array"
	case TypeFunc:
		return "function"
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// Value is a script runtime value.
type Value interface {
	Type() Type
	String() string
}

type Null struct{}

type Number float64

type String string

type Bool bool

type Array []Value

// FuncValue is a user function closed over its defining environment.
type FuncValue struct {
	Name   string
	Params []string
	Body   *Block
	Env    *Env
}

func (Null) Type() Type       { return TypeNull }
func (Number) Type() Type     { return TypeNumber }
func (String) Type() Type     { return TypeString }
func (Bool) Type() Type       { return TypeBool }
func (Array) Type() Type      { return TypeArray }
func (*FuncValue) Type() Type { return TypeFunc }

func (Null) String() string { return "null" }

func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'g', -1, 64)
}

func (s String) String() string { return string(s) }

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}

func (a Array) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range a {
		if i > 0 {
			sb.WriteString(", ")
		}
		if s, ok := v.(String); ok {
			sb.WriteString(strconv.Quote(string(s)))
		} else {
			sb.WriteString(v.String())
		}
	}
	sb.WriteByte(']')
	return sb.String()
}

func (f *FuncValue) String() string {
	name := f.Name
	if name == "" {
		name = "anonymous"
	}
	return fmt.Sprintf("fn %s(%s)", name, strings.Join(f.Params, ", "))
}

// equals implements == for values. Functions are not comparable.
func equals(a, b Value) (bool, error) {
	if a.Type() == TypeFunc || b.Type() == TypeFunc {
		return false, fmt.Errorf("functions are not comparable")
	}
	if a.Type() != b.Type() {
		return false, nil
	}
	switch av := a.(type) {
	case Null:
		return true, nil
	case Number:
		return av == b.(Number), nil
	case String:
		return av == b.(String), nil
	case Bool:
		return av == b.(Bool), nil
	case Array:
		bv := b.(Array)
		if len(av) != len(bv) {
			return false, nil
		}
		for i := range av {
			eq, err := equals(av[i], bv[i])
			if err != nil || !eq {
				return eq, err
			}
		}
		return true, nil
	}
	return false, fmt.Errorf("uncomparable type %s", a.Type())
}
