package source

import "fmt"

// Source-level types and the global-variable table handed to the back end.
// Both BX types are 64-bit integers at the IR level; bools are canonical 0/1.

type Type int

const (
	TypeVoid Type = iota
	TypeInt64
	TypeBool
)

func (t Type) String() string {
	switch t {
	case TypeVoid:
		return "void"
	case TypeInt64:
		return "int"
	case TypeBool:
		return "bool"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Constant is a compile-time initializer for a global variable.
type Constant interface {
	Value() int64
	String() string
}

type IntConstant int64

func (c IntConstant) Value() int64   { return int64(c) }
func (c IntConstant) String() string { return fmt.Sprintf("%d", int64(c)) }

type BoolConstant bool

func (c BoolConstant) Value() int64 {
	if c {
		return 1
	}
	return 0
}

func (c BoolConstant) String() string {
	if c {
		return "true"
	}
	return "false"
}

// GlobalVar is a module-level variable with its initializer.
type GlobalVar struct {
	Name string
	Type Type
	Init Constant
}

// GlobalVarTable keeps globals in declaration order so every dump and the
// emitted assembly are deterministic.
type GlobalVarTable []*GlobalVar

func (t GlobalVarTable) Lookup(name string) *GlobalVar {
	for _, gv := range t {
		if gv.Name == name {
			return gv
		}
	}
	return nil
}
