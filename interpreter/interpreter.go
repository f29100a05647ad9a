package interpreter

import (
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/coreos/pkg/capnslog"
	"github.com/shopspring/decimal"
	"github.com/ztrue/tracerr"

	"github.com/pontaoski/plc/ast"
	"github.com/pontaoski/plc/env"
	"github.com/pontaoski/plc/errors"
	"github.com/pontaoski/plc/types"
	"github.com/pontaoski/plc/value"
)

var plog = capnslog.NewPackageLogger("github.com/pontaoski/plc", "interpreter")

const (
	DefaultDecimalPlaces = 16
	DefaultMaxCallDepth  = 10000
)

type Settings struct {
	// Output receives everything print writes. Defaults to stdout.
	Output io.Writer
	// DecimalPlaces is the number of fractional digits decimal *, / and ^
	// round to, half away from zero.
	DecimalPlaces int32
	MaxCallDepth  int
}

type Interpreter struct {
	settings Settings

	base  *env.Scope
	top   *env.Scope
	scope *env.Scope
	depth int
}

// outcome is how a statement completed: normally, or by a return carrying
// its value up to the call boundary.
type outcome interface{ is_outcome() }

type normal struct{}

func (normal) is_outcome() {}

type returning struct {
	value value.Value
}

func (returning) is_outcome() {}

func New(settings Settings) *Interpreter {
	if settings.Output == nil {
		settings.Output = os.Stdout
	}
	if settings.DecimalPlaces <= 0 {
		settings.DecimalPlaces = DefaultDecimalPlaces
	}
	if settings.MaxCallDepth <= 0 {
		settings.MaxCallDepth = DefaultMaxCallDepth
	}

	i := &Interpreter{settings: settings, base: env.NewScope(nil)}
	i.base.DefineFunction(&env.Function{
		Name:           "print",
		TargetName:     "System.out.println",
		ParameterTypes: []*env.Type{env.Any},
		ReturnType:     env.Nil,
		Invoke:         i.print,
	})
	return i
}

func (i *Interpreter) print(args []value.Value) value.Value {
	fmt.Fprintln(i.settings.Output, args[0].String())
	return value.Nil{}
}

// Run defines every function and global of src, then calls main/0 and
// returns its result.
func (i *Interpreter) Run(src *ast.Source) (result value.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			rerr, ok := r.(errors.RuntimeError)
			if ok {
				err = tracerr.Wrap(rerr)
			} else {
				panic(r)
			}
		}
	}()

	i.top = env.NewScope(i.base)
	i.scope = i.top
	i.depth = 0

	for _, fn := range src.Functions {
		i.defineFunction(fn)
	}
	for _, global := range src.Globals {
		i.defineGlobal(global)
	}

	main, ok := i.top.LookupFunction("main", 0)
	if !ok {
		i.fail(types.SingleCharSpan(types.Position{Line: 1, Column: 1}), "the function main/0 is not defined")
	}

	plog.Debugf("running %s", main)
	result = main.Invoke(nil)
	plog.Debugf("%s returned %s", main, result)
	return result, nil
}

func (i *Interpreter) fail(location types.Span, format string, args ...interface{}) {
	panic(errors.RuntimeError{
		Message:  fmt.Sprintf(format, args...),
		Location: location,
	})
}

// enter makes a new frame under parent current, returning the function that
// restores the previous frame.
func (i *Interpreter) enter(parent *env.Scope) func() {
	saved := i.scope
	i.scope = env.NewScope(parent)
	return func() {
		i.scope = saved
	}
}

func (i *Interpreter) defineFunction(fn *ast.Function) {
	f := &env.Function{
		Name:       fn.Name,
		TargetName: fn.Name,
		ReturnType: env.Any,
	}
	if fn.Function != nil {
		f.TargetName = fn.Function.TargetName
		f.ParameterTypes = fn.Function.ParameterTypes
		f.ReturnType = fn.Function.ReturnType
	} else {
		for range fn.Parameters {
			f.ParameterTypes = append(f.ParameterTypes, env.Any)
		}
	}
	f.Invoke = func(args []value.Value) value.Value {
		return i.invoke(fn, f, args)
	}

	if !i.top.DefineFunction(f) {
		i.fail(fn.Location, "the function %s is already defined", f)
	}
}

func (i *Interpreter) invoke(fn *ast.Function, f *env.Function, args []value.Value) value.Value {
	defer i.enter(i.top)()

	for idx, name := range fn.Parameters {
		i.define(&env.Variable{
			Name:       name,
			TargetName: name,
			Type:       f.ParameterTypes[idx],
			Mutable:    true,
			Value:      args[idx],
		}, fn.Location)
	}

	if out, ok := i.execute(fn.Statements).(returning); ok {
		return out.value
	}
	if env.IsConcrete(f.ReturnType) && f.ReturnType != env.Nil {
		i.fail(fn.Location, "the function %s completed without returning a value", f)
	}
	return value.Nil{}
}

func (i *Interpreter) define(v *env.Variable, location types.Span) {
	if !i.scope.DefineVariable(v) {
		i.fail(location, "the variable %s is already defined in this scope", v.Name)
	}
}

func (i *Interpreter) defineGlobal(g *ast.Global) {
	variable := &env.Variable{
		Name:       g.Name,
		TargetName: g.Name,
		Type:       env.Any,
		Mutable:    g.Mutable,
		Value:      value.Nil{},
	}
	if g.Variable != nil {
		variable.Type = g.Variable.Type
	}
	if _, ok := g.Value.(*ast.ListLiteral); ok {
		variable.Sequence = true
	}
	if g.Value != nil {
		variable.Value = i.eval(g.Value)
	}

	i.define(variable, g.Location)
}

func (i *Interpreter) execute(stmts []ast.Statement) outcome {
	for _, stmt := range stmts {
		if out, ok := i.visitStatement(stmt).(returning); ok {
			return out
		}
	}
	return normal{}
}

// block executes stmts in a frame of their own.
func (i *Interpreter) block(stmts []ast.Statement) outcome {
	defer i.enter(i.scope)()

	return i.execute(stmts)
}

func (i *Interpreter) visitStatement(stmt ast.Statement) outcome {
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		i.eval(s.Expression)
	case *ast.Declaration:
		variable := &env.Variable{
			Name:       s.Name,
			TargetName: s.Name,
			Type:       env.Any,
			Mutable:    true,
			Value:      value.Nil{},
		}
		if s.Variable != nil {
			variable.Type = s.Variable.Type
		}
		if s.Value != nil {
			variable.Value = i.eval(s.Value)
		}
		i.define(variable, s.Location)
	case *ast.Assignment:
		i.visitAssignment(s)
	case *ast.If:
		if i.boolean(i.eval(s.Condition), s.Condition.Span()) {
			return i.block(s.Then)
		}
		return i.block(s.Else)
	case *ast.Switch:
		return i.visitSwitch(s)
	case *ast.While:
		for i.boolean(i.eval(s.Condition), s.Condition.Span()) {
			if out, ok := i.block(s.Statements).(returning); ok {
				return out
			}
		}
	case *ast.Return:
		return returning{i.eval(s.Value)}
	default:
		panic(fmt.Sprintf("unhandled statement %T", stmt))
	}
	return normal{}
}

func (i *Interpreter) visitAssignment(s *ast.Assignment) {
	defer i.enter(i.scope)()

	receiver, ok := s.Receiver.(*ast.Access)
	if !ok {
		i.fail(s.Receiver.Span(), "the receiver of an assignment must be a variable")
	}
	variable := i.lookupVariable(receiver)
	if !variable.Mutable {
		i.fail(s.Location, "cannot assign to the immutable variable %s", variable.Name)
	}

	if receiver.Offset == nil {
		variable.Value = i.eval(s.Value)
		return
	}

	list, index := i.element(variable, receiver)
	list.Elements[index] = i.eval(s.Value)
	variable.Value = list
}

// visitSwitch runs the first arm whose value equals the condition, or the
// default arm when none does.
func (i *Interpreter) visitSwitch(s *ast.Switch) outcome {
	condition := i.eval(s.Condition)

	var fallback *ast.Case
	for _, c := range s.Cases {
		if c.IsDefault() {
			if fallback == nil {
				fallback = c
			}
			continue
		}
		if eq, ok := value.Equal(condition, i.eval(c.Value)); ok && eq {
			return i.block(c.Statements)
		}
	}

	if fallback != nil {
		return i.block(fallback.Statements)
	}
	return normal{}
}

func (i *Interpreter) boolean(v value.Value, location types.Span) bool {
	b, ok := v.(value.Boolean)
	if !ok {
		i.fail(location, "expected a Boolean, received %s", value.KindOf(v))
	}
	return bool(b)
}

func (i *Interpreter) lookupVariable(access *ast.Access) *env.Variable {
	variable, ok := i.scope.LookupVariable(access.Name)
	if !ok {
		i.fail(access.Location, "the variable %s is not defined", access.Name)
	}
	return variable
}

// element resolves an indexed access to its list and a valid index.
func (i *Interpreter) element(variable *env.Variable, access *ast.Access) (*value.List, int) {
	list, ok := variable.Value.(*value.List)
	if !ok {
		i.fail(access.Location, "%s is not a list", variable.Name)
	}

	offset, ok := i.eval(access.Offset).(value.Integer)
	if !ok {
		i.fail(access.Offset.Span(), "a list offset must be an Integer")
	}
	if !offset.X.IsInt64() || offset.X.Int64() < 0 || offset.X.Int64() >= int64(len(list.Elements)) {
		i.fail(access.Offset.Span(), "offset %s is out of range for %s of length %d", offset, variable.Name, len(list.Elements))
	}
	return list, int(offset.X.Int64())
}

func (i *Interpreter) eval(e ast.Expression) value.Value {
	switch expr := e.(type) {
	case *ast.Literal:
		return expr.Value
	case *ast.Group:
		return i.eval(expr.Expression)
	case *ast.Binary:
		return i.visitBinary(expr)
	case *ast.Access:
		variable := i.lookupVariable(expr)
		if expr.Offset != nil {
			list, index := i.element(variable, expr)
			return list.Elements[index]
		}
		if _, isNil := variable.Value.(value.Nil); isNil && env.IsConcrete(variable.Type) && variable.Type != env.Nil {
			i.fail(expr.Location, "the variable %s is used before assignment", variable.Name)
		}
		return variable.Value
	case *ast.Call:
		return i.visitCall(expr)
	case *ast.ListLiteral:
		list := value.NewList()
		for _, elm := range expr.Elements {
			list.Elements = append(list.Elements, i.eval(elm))
		}
		return list
	}
	panic(fmt.Sprintf("unhandled expression %T", e))
}

func (i *Interpreter) visitCall(call *ast.Call) value.Value {
	f, ok := i.scope.LookupFunction(call.Name, len(call.Arguments))
	if !ok {
		i.fail(call.Location, "the function %s/%d is not defined", call.Name, len(call.Arguments))
	}

	i.depth++
	defer func() { i.depth-- }()
	if i.depth > i.settings.MaxCallDepth {
		i.fail(call.Location, "maximum call depth of %d exceeded", i.settings.MaxCallDepth)
	}

	defer i.enter(i.scope)()

	var args []value.Value
	for _, arg := range call.Arguments {
		args = append(args, i.eval(arg))
	}
	return f.Invoke(args)
}

func (i *Interpreter) visitBinary(b *ast.Binary) value.Value {
	left := i.eval(b.Left)

	switch b.Operator {
	case "&&":
		if !i.boolean(left, b.Left.Span()) {
			return value.Boolean(false)
		}
		return value.Boolean(i.boolean(i.eval(b.Right), b.Right.Span()))
	case "||":
		if i.boolean(left, b.Left.Span()) {
			return value.Boolean(true)
		}
		return value.Boolean(i.boolean(i.eval(b.Right), b.Right.Span()))
	}

	right := i.eval(b.Right)

	switch b.Operator {
	case "==", "!=":
		eq, ok := value.Equal(left, right)
		if !ok {
			i.fail(b.Location, "cannot compare %s with %s", value.KindOf(left), value.KindOf(right))
		}
		return value.Boolean(eq == (b.Operator == "=="))
	case "<", ">", "<=", ">=":
		cmp, ok := value.Compare(left, right)
		if !ok {
			i.fail(b.Location, "cannot order %s and %s", value.KindOf(left), value.KindOf(right))
		}
		switch b.Operator {
		case "<":
			return value.Boolean(cmp < 0)
		case ">":
			return value.Boolean(cmp > 0)
		case "<=":
			return value.Boolean(cmp <= 0)
		}
		return value.Boolean(cmp >= 0)
	case "+":
		_, ls := left.(value.String)
		_, rs := right.(value.String)
		if ls || rs {
			return value.String(left.String() + right.String())
		}
	}

	switch l := left.(type) {
	case value.Integer:
		if r, ok := right.(value.Integer); ok {
			return i.integerArithmetic(b, l.X, r.X)
		}
	case value.Decimal:
		switch r := right.(type) {
		case value.Decimal:
			if b.Operator != "^" {
				return i.decimalArithmetic(b, l.X, r.X)
			}
		case value.Integer:
			if b.Operator == "^" {
				return i.decimalPower(b, l.X, r.X)
			}
		}
	}

	i.fail(b.Location, "the operator %s does not apply to %s and %s", b.Operator, value.KindOf(left), value.KindOf(right))
	return nil
}

func (i *Interpreter) integerArithmetic(b *ast.Binary, l, r *big.Int) value.Value {
	x := new(big.Int)

	switch b.Operator {
	case "+":
		x.Add(l, r)
	case "-":
		x.Sub(l, r)
	case "*":
		x.Mul(l, r)
	case "/":
		if r.Sign() == 0 {
			i.fail(b.Right.Span(), "division by zero")
		}
		x.Quo(l, r)
	case "^":
		if r.Sign() < 0 {
			i.fail(b.Right.Span(), "an Integer power needs a non-negative exponent")
		}
		x.Exp(l, r, nil)
	default:
		i.fail(b.Location, "the operator %s does not apply to Integer and Integer", b.Operator)
	}

	return value.Integer{X: x}
}

func (i *Interpreter) decimalArithmetic(b *ast.Binary, l, r decimal.Decimal) value.Value {
	places := i.settings.DecimalPlaces

	switch b.Operator {
	case "+":
		return value.Decimal{X: l.Add(r)}
	case "-":
		return value.Decimal{X: l.Sub(r)}
	case "*":
		return value.Decimal{X: l.Mul(r).Round(places)}
	case "/":
		if r.IsZero() {
			i.fail(b.Right.Span(), "division by zero")
		}
		return value.Decimal{X: l.DivRound(r, places)}
	}

	i.fail(b.Location, "the operator %s does not apply to Decimal and Decimal", b.Operator)
	return nil
}

func (i *Interpreter) decimalPower(b *ast.Binary, base decimal.Decimal, exponent *big.Int) value.Value {
	if !exponent.IsInt64() {
		i.fail(b.Right.Span(), "exponent %s is too large", exponent)
	}

	n := exponent.Int64()
	negative := n < 0
	if negative {
		n = -n
	}

	result := decimal.New(1, 0)
	for ; n > 0; n >>= 1 {
		if n&1 == 1 {
			result = result.Mul(base)
		}
		if n > 1 {
			base = base.Mul(base)
		}
	}

	if negative {
		if result.IsZero() {
			i.fail(b.Right.Span(), "division by zero")
		}
		return value.Decimal{X: decimal.New(1, 0).DivRound(result, i.settings.DecimalPlaces)}
	}
	return value.Decimal{X: result.Round(i.settings.DecimalPlaces)}
}
