package ast

import (
	"fmt"

	"github.com/fcmc-zk/fcmc/comperr"
)

// Type is the value domain every pipeline stage agrees on. All variants are
// ultimately encoded as field elements; Bool is {0,1}, U32 is a field value
// below 2^32, arrays are a fixed set of scalar wires.
type Type struct {
	Kind TypeKind
	// array element type and length, set iff Kind == TArray
	Elem *Type
	Len  int
}

type TypeKind int

const (
	TUnit TypeKind = iota
	TField
	TBool
	TU32
	TArray
)

var (
	Unit  = Type{Kind: TUnit}
	Field = Type{Kind: TField}
	Bool  = Type{Kind: TBool}
	U32   = Type{Kind: TU32}
)

func ArrayOf(elem Type, n int) Type {
	e := elem
	return Type{Kind: TArray, Elem: &e, Len: n}
}

// TypeFromName resolves a surface-language type token.
func TypeFromName(name string) (Type, error) {
	switch name {
	case "Field":
		return Field, nil
	case "Bool":
		return Bool, nil
	case "U32":
		return U32, nil
	}
	return Unit, comperr.New(comperr.Type, "unknown type %q", name)
}

func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	if t.Kind == TArray {
		return t.Len == o.Len && t.Elem.Equal(*o.Elem)
	}
	return true
}

func (t Type) IsScalar() bool {
	return t.Kind == TField || t.Kind == TBool || t.Kind == TU32
}

// NbWires is the number of scalar wires a value of this type flattens to.
func (t Type) NbWires() int {
	switch t.Kind {
	case TUnit:
		return 0
	case TArray:
		return t.Len * t.Elem.NbWires()
	default:
		return 1
	}
}

func (t Type) String() string {
	switch t.Kind {
	case TUnit:
		return "()"
	case TField:
		return "Field"
	case TBool:
		return "Bool"
	case TU32:
		return "U32"
	case TArray:
		return fmt.Sprintf("%s[%d]", t.Elem, t.Len)
	}
	return "?"
}
