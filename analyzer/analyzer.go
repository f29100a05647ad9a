package analyzer

import (
	"fmt"
	"math"
	"math/big"

	"github.com/coreos/pkg/capnslog"
	"github.com/ztrue/tracerr"

	"github.com/pontaoski/plc/ast"
	"github.com/pontaoski/plc/env"
	"github.com/pontaoski/plc/errors"
	"github.com/pontaoski/plc/types"
	"github.com/pontaoski/plc/value"
)

var plog = capnslog.NewPackageLogger("github.com/pontaoski/plc", "analyzer")

var (
	minInteger = big.NewInt(math.MinInt32)
	maxInteger = big.NewInt(math.MaxInt32)
)

type Analyzer struct {
	scope    *env.Scope
	function *env.Function
}

// New returns an Analyzer whose top scope sits on a base scope holding the
// builtin functions.
func New() *Analyzer {
	base := env.NewScope(nil)
	base.DefineFunction(&env.Function{
		Name:           "print",
		TargetName:     "System.out.println",
		ParameterTypes: []*env.Type{env.Any},
		ReturnType:     env.Nil,
	})
	return &Analyzer{scope: env.NewScope(base)}
}

// Analyze checks src and annotates it in place with types, variables and
// functions.
func Analyze(src *ast.Source) (*ast.Source, error) {
	return New().Analyze(src)
}

func (a *Analyzer) Analyze(src *ast.Source) (out *ast.Source, err error) {
	defer func() {
		if r := recover(); r != nil {
			rerr, ok := r.(errors.TypeError)
			if ok {
				err = tracerr.Wrap(rerr)
			} else {
				panic(r)
			}
		}
	}()

	for _, fn := range src.Functions {
		a.declareFunction(fn)
	}

	main, ok := a.scope.LookupFunction("main", 0)
	if !ok || main.ReturnType != env.Integer {
		panic(errors.TypeError{
			Message:  "the function main/0 with return type Integer is not defined",
			Location: sourceStart(src),
		})
	}

	for _, global := range src.Globals {
		a.visitGlobal(global)
	}
	for _, fn := range src.Functions {
		a.visitFunction(fn)
	}

	plog.Debugf("analyzed %d globals and %d functions", len(src.Globals), len(src.Functions))
	return src, nil
}

func sourceStart(src *ast.Source) types.Span {
	switch {
	case len(src.Globals) > 0:
		return src.Globals[0].Location
	case len(src.Functions) > 0:
		return src.Functions[0].Location
	}
	return types.SingleCharSpan(types.Position{Line: 1, Column: 1})
}

func (a *Analyzer) pushScope() {
	a.scope = env.NewScope(a.scope)
}

func (a *Analyzer) popScope() {
	a.scope = a.scope.Parent()
}

func (a *Analyzer) fail(location types.Span, format string, args ...interface{}) {
	panic(errors.TypeError{
		Message:  fmt.Sprintf(format, args...),
		Location: location,
	})
}

func (a *Analyzer) resolveType(name string, location types.Span) *env.Type {
	t, ok := env.LookupType(name)
	if !ok {
		a.fail(location, "unknown type %s", name)
	}
	return t
}

func (a *Analyzer) requireAssignable(target, got *env.Type, location types.Span) {
	if !env.IsAssignable(target, got) {
		panic(errors.Mismatch(target.Name, got.Name, location))
	}
}

func (a *Analyzer) define(v *env.Variable, location types.Span) {
	if !a.scope.DefineVariable(v) {
		panic(errors.Redefined("variable", v.Name, location))
	}
}

func (a *Analyzer) declareFunction(fn *ast.Function) {
	f := &env.Function{
		Name:       fn.Name,
		TargetName: fn.Name,
		ReturnType: env.Nil,
	}
	for _, name := range fn.ParameterTypeNames {
		t := env.Any
		if name != "" {
			t = a.resolveType(name, fn.Location)
		}
		f.ParameterTypes = append(f.ParameterTypes, t)
	}
	if fn.ReturnTypeName != "" {
		f.ReturnType = a.resolveType(fn.ReturnTypeName, fn.Location)
	}

	if !a.scope.DefineFunction(f) {
		panic(errors.Redefined("function", f.String(), fn.Location))
	}
}

// declaredType settles the type of a binding from its annotation and
// initializer.
func (a *Analyzer) declaredType(name, typeName string, initializer ast.Expression, location types.Span) *env.Type {
	var declared *env.Type
	if typeName != "" {
		declared = a.resolveType(typeName, location)
	}
	if initializer == nil {
		if declared == nil {
			a.fail(location, "declaration of %s needs a type or an initial value", name)
		}
		return declared
	}

	got := a.visitExpression(initializer)
	if declared == nil {
		return got
	}
	a.requireAssignable(declared, got, initializer.Span())
	return declared
}

func (a *Analyzer) visitGlobal(g *ast.Global) {
	variable := &env.Variable{
		Name:       g.Name,
		TargetName: g.Name,
		Mutable:    g.Mutable,
	}

	if list, ok := g.Value.(*ast.ListLiteral); ok {
		variable.Sequence = true
		variable.Type = a.visitListLiteral(list, g.TypeName, g.Location)
	} else {
		variable.Type = a.declaredType(g.Name, g.TypeName, g.Value, g.Location)
	}

	a.define(variable, g.Location)
	g.Variable = variable
}

// visitListLiteral returns the element type: the annotation, else the type of
// the first element.
func (a *Analyzer) visitListLiteral(list *ast.ListLiteral, typeName string, location types.Span) *env.Type {
	if len(list.Elements) == 0 {
		a.fail(list.Location, "a list needs at least one element")
	}

	var element *env.Type
	if typeName != "" {
		element = a.resolveType(typeName, location)
	}
	for _, elm := range list.Elements {
		t := a.visitExpression(elm)
		if element == nil {
			element = t
		}
		a.requireAssignable(element, t, elm.Span())
	}

	list.Type = element
	return element
}

func (a *Analyzer) visitFunction(fn *ast.Function) {
	f, _ := a.scope.LookupFunction(fn.Name, len(fn.Parameters))
	fn.Function = f

	a.pushScope()
	defer a.popScope()

	a.function = f
	defer func() { a.function = nil }()

	for i, name := range fn.Parameters {
		a.define(&env.Variable{
			Name:       name,
			TargetName: name,
			Type:       f.ParameterTypes[i],
			Mutable:    true,
		}, fn.Location)
	}

	a.visitStatements(fn.Statements)
}

func (a *Analyzer) visitStatements(stmts []ast.Statement) {
	for _, stmt := range stmts {
		a.visitStatement(stmt)
	}
}

// visitBlock analyzes stmts in a child scope.
func (a *Analyzer) visitBlock(stmts []ast.Statement) {
	a.pushScope()
	defer a.popScope()

	a.visitStatements(stmts)
}

func (a *Analyzer) visitStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		if _, ok := s.Expression.(*ast.Call); !ok {
			a.fail(s.Location, "an expression statement must be a function call")
		}
		a.visitExpression(s.Expression)
	case *ast.Declaration:
		variable := &env.Variable{
			Name:       s.Name,
			TargetName: s.Name,
			Mutable:    true,
		}
		variable.Type = a.declaredType(s.Name, s.TypeName, s.Value, s.Location)
		a.define(variable, s.Location)
		s.Variable = variable
	case *ast.Assignment:
		a.visitAssignment(s)
	case *ast.If:
		a.requireAssignable(env.Boolean, a.visitExpression(s.Condition), s.Condition.Span())
		if len(s.Then) == 0 {
			a.fail(s.Location, "an if statement needs at least one statement")
		}
		a.visitBlock(s.Then)
		a.visitBlock(s.Else)
	case *ast.Switch:
		condition := a.visitExpression(s.Condition)
		for _, c := range s.Cases {
			if c.Value != nil {
				if t := a.visitExpression(c.Value); t != condition {
					panic(errors.Mismatch(condition.Name, t.Name, c.Value.Span()))
				}
			}
			if len(c.Statements) == 0 {
				a.fail(c.Location, "a switch case needs at least one statement")
			}
			a.visitBlock(c.Statements)
		}
	case *ast.While:
		a.requireAssignable(env.Boolean, a.visitExpression(s.Condition), s.Condition.Span())
		a.visitBlock(s.Statements)
	case *ast.Return:
		if a.function == nil {
			a.fail(s.Location, "return outside of a function")
		}
		a.requireAssignable(a.function.ReturnType, a.visitExpression(s.Value), s.Value.Span())
	default:
		panic(fmt.Sprintf("unhandled statement %T", stmt))
	}
}

func (a *Analyzer) visitAssignment(s *ast.Assignment) {
	receiver, ok := s.Receiver.(*ast.Access)
	if !ok {
		a.fail(s.Receiver.Span(), "the receiver of an assignment must be a variable")
	}

	target := a.visitExpression(receiver)
	variable := receiver.Variable
	if !variable.Mutable {
		a.fail(s.Location, "cannot assign to the immutable variable %s", variable.Name)
	}
	if variable.Sequence && receiver.Offset == nil {
		a.fail(s.Location, "the list %s can only be assigned through an offset", variable.Name)
	}

	a.requireAssignable(target, a.visitExpression(s.Value), s.Value.Span())
}

// visitExpression records and returns the type of e.
func (a *Analyzer) visitExpression(e ast.Expression) *env.Type {
	var t *env.Type

	switch expr := e.(type) {
	case *ast.Literal:
		t = a.visitLiteral(expr)
		expr.Type = t
	case *ast.Group:
		t = a.visitExpression(expr.Expression)
		expr.Type = t
	case *ast.Binary:
		t = a.visitBinary(expr)
		expr.Type = t
	case *ast.Access:
		t = a.visitAccess(expr)
		expr.Type = t
	case *ast.Call:
		t = a.visitCall(expr)
		expr.Type = t
	case *ast.ListLiteral:
		t = a.visitListLiteral(expr, "", expr.Location)
	default:
		panic(fmt.Sprintf("unhandled expression %T", e))
	}

	return t
}

func (a *Analyzer) visitLiteral(lit *ast.Literal) *env.Type {
	switch v := lit.Value.(type) {
	case value.Nil:
		return env.Nil
	case value.Boolean:
		return env.Boolean
	case value.Character:
		return env.Character
	case value.String:
		return env.String
	case value.Integer:
		if v.X.Cmp(minInteger) < 0 || v.X.Cmp(maxInteger) > 0 {
			a.fail(lit.Location, "the integer literal %s does not fit in 32 bits", v)
		}
		return env.Integer
	case value.Decimal:
		if f, _ := v.X.Float64(); math.IsInf(f, 0) {
			a.fail(lit.Location, "the decimal literal %s is out of range", v)
		}
		return env.Decimal
	}
	panic(fmt.Sprintf("unhandled literal %T", lit.Value))
}

func isNumeric(t *env.Type) bool {
	return t == env.Integer || t == env.Decimal
}

func (a *Analyzer) visitBinary(b *ast.Binary) *env.Type {
	left := a.visitExpression(b.Left)
	right := a.visitExpression(b.Right)

	switch b.Operator {
	case "&&", "||":
		a.requireAssignable(env.Boolean, left, b.Left.Span())
		a.requireAssignable(env.Boolean, right, b.Right.Span())
		return env.Boolean
	case "==", "!=":
		if left != env.Boolean {
			a.requireAssignable(env.Comparable, left, b.Left.Span())
		}
		if right != left {
			panic(errors.Mismatch(left.Name, right.Name, b.Right.Span()))
		}
		return env.Boolean
	case "<", ">", "<=", ">=":
		a.requireAssignable(env.Comparable, left, b.Left.Span())
		if right != left {
			panic(errors.Mismatch(left.Name, right.Name, b.Right.Span()))
		}
		return env.Boolean
	case "+":
		if left == env.String || right == env.String {
			return env.String
		}
		if !isNumeric(left) {
			a.fail(b.Left.Span(), "expected type Integer or Decimal, received %s", left)
		}
		if right != left {
			panic(errors.Mismatch(left.Name, right.Name, b.Right.Span()))
		}
		return left
	case "-", "*", "/":
		if !isNumeric(left) {
			a.fail(b.Left.Span(), "expected type Integer or Decimal, received %s", left)
		}
		if right != left {
			panic(errors.Mismatch(left.Name, right.Name, b.Right.Span()))
		}
		return left
	case "^":
		if !isNumeric(left) {
			a.fail(b.Left.Span(), "expected type Integer or Decimal, received %s", left)
		}
		if right != env.Integer {
			panic(errors.Mismatch(env.Integer.Name, right.Name, b.Right.Span()))
		}
		return left
	}

	a.fail(b.Location, "unknown operator %s", b.Operator)
	return nil
}

func (a *Analyzer) visitAccess(access *ast.Access) *env.Type {
	variable, ok := a.scope.LookupVariable(access.Name)
	if !ok {
		a.fail(access.Location, "the variable %s is not defined in this scope", access.Name)
	}
	access.Variable = variable

	if access.Offset == nil {
		if variable.Sequence {
			return env.Any
		}
		return variable.Type
	}

	if !variable.Sequence {
		a.fail(access.Location, "%s is not a list", access.Name)
	}
	a.requireAssignable(env.Integer, a.visitExpression(access.Offset), access.Offset.Span())
	return variable.Type
}

func (a *Analyzer) visitCall(call *ast.Call) *env.Type {
	f, ok := a.scope.LookupFunction(call.Name, len(call.Arguments))
	if !ok {
		a.fail(call.Location, "the function %s/%d is not defined in this scope", call.Name, len(call.Arguments))
	}
	call.Function = f

	for i, arg := range call.Arguments {
		a.requireAssignable(f.ParameterTypes[i], a.visitExpression(arg), arg.Span())
	}
	return f.ReturnType
}
