package ast

import (
	"github.com/pontaoski/plc/env"
	"github.com/pontaoski/plc/types"
	"github.com/pontaoski/plc/value"
)

type Source struct {
	Globals   []*Global
	Functions []*Function
}

// Global is a top-level binding. TypeName is empty when no type was written.
type Global struct {
	Name     string
	Mutable  bool
	TypeName string
	Value    Expression
	Location types.Span

	Variable *env.Variable
}

type Function struct {
	Name               string
	Parameters         []string
	ParameterTypeNames []string
	ReturnTypeName     string
	Statements         []Statement
	Location           types.Span

	Function *env.Function
}

type Statement interface {
	is_Statement()
	Span() types.Span
}

// ExpressionStatement wraps a call evaluated for its side effects.
type ExpressionStatement struct {
	Expression Expression
	Location   types.Span
}

func (v *ExpressionStatement) is_Statement()    {}
func (v *ExpressionStatement) Span() types.Span { return v.Location }

type Declaration struct {
	Name     string
	TypeName string
	Value    Expression
	Location types.Span

	Variable *env.Variable
}

func (v *Declaration) is_Statement()    {}
func (v *Declaration) Span() types.Span { return v.Location }

type Assignment struct {
	Receiver Expression
	Value    Expression
	Location types.Span
}

func (v *Assignment) is_Statement()    {}
func (v *Assignment) Span() types.Span { return v.Location }

type If struct {
	Condition Expression
	Then      []Statement
	Else      []Statement
	Location  types.Span
}

func (v *If) is_Statement()    {}
func (v *If) Span() types.Span { return v.Location }

type Switch struct {
	Condition Expression
	Cases     []*Case
	Location  types.Span
}

func (v *Switch) is_Statement()    {}
func (v *Switch) Span() types.Span { return v.Location }

// Case is one switch arm. A nil Value marks the default arm.
type Case struct {
	Value      Expression
	Statements []Statement
	Location   types.Span
}

func (v *Case) is_Statement()    {}
func (v *Case) Span() types.Span { return v.Location }

func (v *Case) IsDefault() bool {
	return v.Value == nil
}

type While struct {
	Condition  Expression
	Statements []Statement
	Location   types.Span
}

func (v *While) is_Statement()    {}
func (v *While) Span() types.Span { return v.Location }

type Return struct {
	Value    Expression
	Location types.Span
}

func (v *Return) is_Statement()    {}
func (v *Return) Span() types.Span { return v.Location }

type Expression interface {
	is_Expression()
	Span() types.Span
	ResolvedType() *env.Type
}

// Meta is the part every expression shares: where it came from and, once
// analyzed, its type.
type Meta struct {
	Location types.Span
	Type     *env.Type
}

func (m *Meta) Span() types.Span        { return m.Location }
func (m *Meta) ResolvedType() *env.Type { return m.Type }

// Literal values are value.Nil, Boolean, Character, String, Integer or Decimal.
type Literal struct {
	Meta
	Value value.Value
}

func (v *Literal) is_Expression() {}

type Group struct {
	Meta
	Expression Expression
}

func (v *Group) is_Expression() {}

type Binary struct {
	Meta
	Operator string
	Left     Expression
	Right    Expression
}

func (v *Binary) is_Expression() {}

// Access reads a variable, or an element of a list variable when Offset is
// set.
type Access struct {
	Meta
	Offset Expression
	Name   string

	Variable *env.Variable
}

func (v *Access) is_Expression() {}

type Call struct {
	Meta
	Name      string
	Arguments []Expression

	Function *env.Function
}

func (v *Call) is_Expression() {}

type ListLiteral struct {
	Meta
	Elements []Expression
}

func (v *ListLiteral) is_Expression() {}
