// Package value holds the runtime values the interpreter computes with.
//
// A Value is one of Nil, Boolean, Integer, Decimal, Character, String or
// *List. Integers are arbitrary precision; decimals are exact base-10.
package value

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

type Value interface {
	is_Value()
	String() string
}

type Nil struct{}

func (v Nil) is_Value()      {}
func (v Nil) String() string { return "nil" }

type Boolean bool

func (v Boolean) is_Value() {}
func (v Boolean) String() string {
	if v {
		return "true"
	}
	return "false"
}

// Integer never mutates X; arithmetic always allocates a fresh big.Int.
type Integer struct {
	X *big.Int
}

func (v Integer) is_Value()      {}
func (v Integer) String() string { return v.X.String() }

func NewInteger(i int64) Integer {
	return Integer{big.NewInt(i)}
}

type Decimal struct {
	X decimal.Decimal
}

func (v Decimal) is_Value()      {}
func (v Decimal) String() string { return v.X.String() }

type Character rune

func (v Character) is_Value()      {}
func (v Character) String() string { return string(v) }

type String string

func (v String) is_Value()      {}
func (v String) String() string { return string(v) }

// List is a mutable sequence. Copies of the pointer share elements.
type List struct {
	Elements []Value
}

func (v *List) is_Value() {}
func (v *List) String() string {
	var parts []string
	for _, elm := range v.Elements {
		parts = append(parts, elm.String())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func NewList(elements ...Value) *List {
	return &List{Elements: elements}
}

// KindOf names the runtime kind of v for diagnostics.
func KindOf(v Value) string {
	switch v.(type) {
	case Nil:
		return "Nil"
	case Boolean:
		return "Boolean"
	case Integer:
		return "Integer"
	case Decimal:
		return "Decimal"
	case Character:
		return "Character"
	case String:
		return "String"
	case *List:
		return "List"
	}
	return "<unknown>"
}

// Compare orders two values of the same ordered kind. ok is false when the
// kinds differ or the kind has no ordering.
func Compare(a, b Value) (cmp int, ok bool) {
	switch l := a.(type) {
	case Integer:
		if r, ok := b.(Integer); ok {
			return l.X.Cmp(r.X), true
		}
	case Decimal:
		if r, ok := b.(Decimal); ok {
			return l.X.Cmp(r.X), true
		}
	case Character:
		if r, ok := b.(Character); ok {
			return compareOrdered(int64(l), int64(r)), true
		}
	case String:
		if r, ok := b.(String); ok {
			return strings.Compare(string(l), string(r)), true
		}
	}
	return 0, false
}

func compareOrdered(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Equal reports whether a and b are the same kind and value. ok is false
// when the kinds differ or the kind has no equality.
func Equal(a, b Value) (eq bool, ok bool) {
	switch l := a.(type) {
	case Nil:
		_, ok := b.(Nil)
		return ok, ok
	case Boolean:
		r, ok := b.(Boolean)
		return ok && l == r, ok
	}
	cmp, ok := Compare(a, b)
	return ok && cmp == 0, ok
}
