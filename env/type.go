// Package env holds the descriptors shared by the analyzer and interpreter:
// types, variables, functions and the lexical scope they are bound in.
package env

// Type is one of the fixed set of language types. Types compare by identity.
type Type struct {
	Name       string
	TargetName string
}

func (t *Type) String() string {
	return t.Name
}

var (
	Nil        = &Type{Name: "Nil", TargetName: "Void"}
	Boolean    = &Type{Name: "Boolean", TargetName: "boolean"}
	Integer    = &Type{Name: "Integer", TargetName: "int"}
	Decimal    = &Type{Name: "Decimal", TargetName: "double"}
	Character  = &Type{Name: "Character", TargetName: "char"}
	String     = &Type{Name: "String", TargetName: "String"}
	Any        = &Type{Name: "Any", TargetName: "Object"}
	Comparable = &Type{Name: "Comparable", TargetName: "Comparable"}
)

var registry = map[string]*Type{
	Nil.Name:        Nil,
	Boolean.Name:    Boolean,
	Integer.Name:    Integer,
	Decimal.Name:    Decimal,
	Character.Name:  Character,
	String.Name:     String,
	Any.Name:        Any,
	Comparable.Name: Comparable,
}

func LookupType(name string) (*Type, bool) {
	t, ok := registry[name]
	return t, ok
}

// IsOrdered reports whether values of t support < and >.
func IsOrdered(t *Type) bool {
	switch t {
	case Integer, Decimal, Character, String, Comparable:
		return true
	}
	return false
}

// IsConcrete is false for the wildcard types.
func IsConcrete(t *Type) bool {
	return t != Any && t != Comparable
}

// IsAssignable reports whether a value of type v may be used where target is
// expected.
func IsAssignable(target, v *Type) bool {
	switch {
	case target == v:
		return true
	case target == Any:
		return true
	case target == Comparable:
		return IsOrdered(v)
	}
	return false
}
