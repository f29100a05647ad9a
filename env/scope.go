package env

import (
	"fmt"

	"github.com/pontaoski/plc/value"
)

type Variable struct {
	Name       string
	TargetName string
	Type       *Type
	Mutable    bool
	// Sequence marks a list binding, read and written through an offset.
	Sequence bool
	// Value is nil for variables bound by the analyzer.
	Value value.Value
}

type Function struct {
	Name           string
	TargetName     string
	ParameterTypes []*Type
	ReturnType     *Type
	Invoke         func(args []value.Value) value.Value
}

func (f *Function) Arity() int {
	return len(f.ParameterTypes)
}

func (f *Function) String() string {
	return fmt.Sprintf("%s/%d", f.Name, f.Arity())
}

type FunctionKey struct {
	Name  string
	Arity int
}

// Scope is one lexical frame. Lookups walk parents and return the nearest
// binding.
type Scope struct {
	parent    *Scope
	variables map[string]*Variable
	functions map[FunctionKey]*Function
}

func NewScope(parent *Scope) *Scope {
	return &Scope{
		parent:    parent,
		variables: make(map[string]*Variable),
		functions: make(map[FunctionKey]*Function),
	}
}

func (s *Scope) Parent() *Scope {
	return s.parent
}

// DefineVariable binds v in this frame. It returns false when the name is
// already bound here.
func (s *Scope) DefineVariable(v *Variable) bool {
	if _, ok := s.variables[v.Name]; ok {
		return false
	}
	s.variables[v.Name] = v
	return true
}

func (s *Scope) LookupVariable(name string) (*Variable, bool) {
	for scope := s; scope != nil; scope = scope.parent {
		if v, ok := scope.variables[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// DefineFunction binds f under its name and arity. It returns false when that
// signature is already bound here.
func (s *Scope) DefineFunction(f *Function) bool {
	key := FunctionKey{f.Name, f.Arity()}
	if _, ok := s.functions[key]; ok {
		return false
	}
	s.functions[key] = f
	return true
}

func (s *Scope) LookupFunction(name string, arity int) (*Function, bool) {
	key := FunctionKey{name, arity}
	for scope := s; scope != nil; scope = scope.parent {
		if f, ok := scope.functions[key]; ok {
			return f, true
		}
	}
	return nil, false
}
