package env

import "testing"

func TestIsAssignable(t *testing.T) {
	tests := []struct {
		target, v *Type
		want      bool
	}{
		{Integer, Integer, true},
		{Integer, Decimal, false},
		{Any, Nil, true},
		{Any, String, true},
		{Comparable, Integer, true},
		{Comparable, Decimal, true},
		{Comparable, Character, true},
		{Comparable, String, true},
		{Comparable, Comparable, true},
		{Comparable, Boolean, false},
		{Comparable, Nil, false},
		{Comparable, Any, false},
		{String, Any, false},
		{Nil, Nil, true},
	}

	for _, test := range tests {
		if got := IsAssignable(test.target, test.v); got != test.want {
			t.Errorf("IsAssignable(%s, %s) = %v, want %v", test.target, test.v, got, test.want)
		}
	}
}

func TestLookupType(t *testing.T) {
	for _, name := range []string{"Nil", "Boolean", "Integer", "Decimal", "Character", "String", "Any", "Comparable"} {
		typ, ok := LookupType(name)
		if !ok || typ.Name != name {
			t.Errorf("LookupType(%q) = %v, %v", name, typ, ok)
		}
	}
	if _, ok := LookupType("integer"); ok {
		t.Error("type names are case sensitive")
	}
}

func TestScope(t *testing.T) {
	root := NewScope(nil)
	child := NewScope(root)

	outer := &Variable{Name: "x", Type: Integer}
	if !root.DefineVariable(outer) {
		t.Fatal("expected x to be defined")
	}
	if root.DefineVariable(&Variable{Name: "x", Type: String}) {
		t.Fatal("expected a second x in the same frame to be rejected")
	}

	inner := &Variable{Name: "x", Type: String}
	if !child.DefineVariable(inner) {
		t.Fatal("expected x to shadow in a child frame")
	}
	if v, _ := child.LookupVariable("x"); v != inner {
		t.Fatalf("expected the nearest binding, got %+v", v)
	}
	if v, _ := root.LookupVariable("x"); v != outer {
		t.Fatalf("expected the root binding, got %+v", v)
	}
	if _, ok := child.LookupVariable("y"); ok {
		t.Fatal("expected y to be unbound")
	}
	if child.Parent() != root {
		t.Fatal("expected the child's parent to be root")
	}
}

func TestScopeFunctions(t *testing.T) {
	root := NewScope(nil)
	one := &Function{Name: "f", ParameterTypes: []*Type{Integer}, ReturnType: Integer}
	two := &Function{Name: "f", ParameterTypes: []*Type{Integer, Integer}, ReturnType: Integer}

	if !root.DefineFunction(one) || !root.DefineFunction(two) {
		t.Fatal("expected overloads by arity to be accepted")
	}
	if root.DefineFunction(&Function{Name: "f", ParameterTypes: []*Type{String}}) {
		t.Fatal("expected a second f/1 to be rejected")
	}

	child := NewScope(root)
	if f, ok := child.LookupFunction("f", 2); !ok || f != two {
		t.Fatalf("expected f/2, got %v", f)
	}
	if _, ok := child.LookupFunction("f", 3); ok {
		t.Fatal("expected f/3 to be unbound")
	}
	if one.String() != "f/1" {
		t.Fatalf("unexpected name %s", one)
	}
}
