// Package codegen lowers an analyzed program to an LLVM IR module.
package codegen

import (
	"fmt"
	"hash/fnv"
	"strconv"

	"github.com/coreos/pkg/capnslog"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/ztrue/tracerr"

	"github.com/pontaoski/plc/ast"
	"github.com/pontaoski/plc/env"
	plctypes "github.com/pontaoski/plc/types"
	plcvalue "github.com/pontaoski/plc/value"
)

var plog = capnslog.NewPackageLogger("github.com/pontaoski/plc", "codegen")

type span = plctypes.Span

type Settings struct {
	PackageName string
	// Library leaves out the C main, so another module can call plc.init and
	// the functions itself.
	Library bool
}

type uerror struct {
	msg      string
	location span
}

func (u uerror) Error() string {
	return fmt.Sprintf("%s. %s", u.msg, u.location)
}

func NewUError(location span, msg string, fmts ...interface{}) uerror {
	return uerror{
		msg:      fmt.Sprintf(msg, fmts...),
		location: location,
	}
}

// variable is where a binding lives: an alloca or a global.
type variable struct {
	ptr value.Value
	typ types.Type
	// elem is the type loaded through ptr, or through an element pointer for
	// lists.
	elem types.Type
	list bool
}

type ctx struct {
	module   *ir.Module
	names    []map[string]variable
	funcs    map[env.FunctionKey]*ir.Func
	builtins builtins

	stringConstants map[string]constant.Constant

	fn         *ir.Func
	entry      *ir.Block
	block      *ir.Block
	blocks     int
	returnType *env.Type

	forwardDeclarationPass bool
}

func (c *ctx) pushScope() {
	c.names = append(c.names, make(map[string]variable))
}

func (c *ctx) popScope() {
	c.names = c.names[:len(c.names)-1]
}

func (c *ctx) top() map[string]variable {
	return c.names[len(c.names)-1]
}

func (c *ctx) lookup(access *ast.Access) variable {
	for i := len(c.names) - 1; i >= 0; i-- {
		val, ok := c.names[i][access.Name]
		if ok {
			return val
		}
	}

	panic(NewUError(access.Location, "could not lookup %s", access.Name))
}

func hash(s string) string {
	h := fnv.New32a()
	h.Write([]byte(s))
	return strconv.FormatUint(uint64(h.Sum32()), 10)
}

func (c *ctx) newBlock(name string) *ir.Block {
	c.blocks++
	return c.fn.NewBlock(fmt.Sprintf("%s.%d", name, c.blocks))
}

// branch jumps to target unless the current block already ended, e.g. in a
// return.
func (c *ctx) branch(target *ir.Block) {
	if c.block.Term == nil {
		c.block.NewBr(target)
	}
}

func functionName(f *env.Function) string {
	return fmt.Sprintf("plc.%s.%d", f.Name, f.Arity())
}

// Generate lowers src, which must have been analyzed, to an LLVM module.
func Generate(src *ast.Source, settings Settings) (m *ir.Module, err error) {
	defer func() {
		if v := recover(); v != nil {
			if uerror, ok := v.(uerror); ok {
				err = tracerr.Wrap(uerror)
			} else {
				panic(v)
			}
		}
	}()

	c := &ctx{
		module:          ir.NewModule(),
		names:           []map[string]variable{{}},
		funcs:           map[env.FunctionKey]*ir.Func{},
		stringConstants: map[string]constant.Constant{},
	}
	c.module.SourceFilename = settings.PackageName
	c.builtins = addBuiltins(c.module)

	for _, fn := range src.Functions {
		if fn.Function == nil {
			panic(NewUError(fn.Location, "function %s has not been analyzed", fn.Name))
		}
	}
	for _, g := range src.Globals {
		if g.Variable == nil {
			panic(NewUError(g.Location, "global %s has not been analyzed", g.Name))
		}
	}

	c.forwardDeclarationPass = true
	for _, fn := range src.Functions {
		c.codegenFunction(fn)
	}
	c.forwardDeclarationPass = false

	for _, g := range src.Globals {
		c.declareGlobal(g)
	}
	for _, fn := range src.Functions {
		c.codegenFunction(fn)
	}

	initializer := c.codegenInit(src.Globals)
	if !settings.Library {
		c.codegenEntry(initializer)
	}

	registerTypeInfoWithModule(typeInfoOf(src), c.module)

	plog.Debugf("generated %d functions and %d globals", len(c.module.Funcs), len(c.module.Globals))
	return c.module, nil
}

func (c *ctx) codegenFunction(fn *ast.Function) {
	f := fn.Function
	key := env.FunctionKey{Name: f.Name, Arity: f.Arity()}

	if c.forwardDeclarationPass {
		var params []*ir.Param
		for i, name := range fn.Parameters {
			params = append(params, ir.NewParam(name, c.llValueType(f.ParameterTypes[i], fn.Location)))
		}

		c.funcs[key] = c.module.NewFunc(functionName(f), c.llType(f.ReturnType, fn.Location), params...)
		return
	}

	c.fn = c.funcs[key]
	c.entry = c.fn.NewBlock("entry")
	c.block = c.entry
	c.returnType = f.ReturnType

	c.pushScope()
	defer c.popScope()

	for i, param := range c.fn.Params {
		ptr := c.entry.NewAlloca(param.Type())
		c.entry.NewStore(param, ptr)
		c.top()[fn.Parameters[i]] = variable{ptr: ptr, typ: param.Type(), elem: param.Type()}
	}

	c.statements(fn.Statements)

	if c.block.Term == nil {
		if c.returnType == env.Nil {
			c.block.NewRet(nil)
		} else {
			c.block.NewUnreachable()
		}
	}
}

func (c *ctx) declareGlobal(g *ast.Global) {
	name := "plc.var." + g.Name
	elem := c.llValueType(g.Variable.Type, g.Location)

	if list, ok := g.Value.(*ast.ListLiteral); ok {
		arr := types.NewArray(uint64(len(list.Elements)), elem)
		glob := c.module.NewGlobalDef(name, constant.NewZeroInitializer(arr))
		c.top()[g.Name] = variable{ptr: glob, typ: arr, elem: elem, list: true}
		return
	}

	glob := c.module.NewGlobalDef(name, constant.NewZeroInitializer(elem))
	c.top()[g.Name] = variable{ptr: glob, typ: elem, elem: elem}
}

// codegenInit builds plc.init, which evaluates every global initializer in
// declaration order.
func (c *ctx) codegenInit(globals []*ast.Global) *ir.Func {
	c.fn = c.module.NewFunc("plc.init", types.Void)
	c.entry = c.fn.NewBlock("entry")
	c.block = c.entry
	c.returnType = env.Nil

	for _, g := range globals {
		v := c.top()[g.Name]

		if list, ok := g.Value.(*ast.ListLiteral); ok {
			for i, elm := range list.Elements {
				ptr := c.block.NewGetElementPtr(v.typ, v.ptr, constant.NewInt(types.I64, 0), constant.NewInt(types.I64, int64(i)))
				c.block.NewStore(c.expression(elm), ptr)
			}
			continue
		}

		if g.Value != nil {
			c.block.NewStore(c.expression(g.Value), v.ptr)
		}
	}

	c.block.NewRet(nil)
	return c.fn
}

// codegenEntry adds the C main: initialize globals, run main/0 and exit with
// its result.
func (c *ctx) codegenEntry(initializer *ir.Func) {
	program, ok := c.funcs[env.FunctionKey{Name: "main", Arity: 0}]
	if !ok {
		panic(NewUError(plctypes.SingleCharSpan(plctypes.Position{Line: 1, Column: 1}), "the function main/0 is not defined"))
	}

	entry := c.module.NewFunc("main", types.I32)
	bloc := entry.NewBlock("entry")

	bloc.NewCall(initializer)
	result := bloc.NewCall(program)
	bloc.NewRet(bloc.NewTrunc(result, types.I32))
}

func (c *ctx) statements(stmts []ast.Statement) {
	for _, stmt := range stmts {
		c.statement(stmt)
	}
}

// scoped generates stmts inside their own scope.
func (c *ctx) scoped(stmts []ast.Statement) {
	c.pushScope()
	defer c.popScope()

	c.statements(stmts)
}

func (c *ctx) statement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		c.expression(s.Expression)
	case *ast.Declaration:
		t := c.llValueType(s.Variable.Type, s.Location)
		ptr := c.entry.NewAlloca(t)
		if s.Value != nil {
			c.block.NewStore(c.expression(s.Value), ptr)
		} else {
			c.block.NewStore(constant.NewZeroInitializer(t), ptr)
		}
		c.top()[s.Name] = variable{ptr: ptr, typ: t, elem: t}
	case *ast.Assignment:
		receiver, ok := s.Receiver.(*ast.Access)
		if !ok {
			panic(NewUError(s.Location, "the receiver of an assignment must be a variable"))
		}
		ptr, _ := c.address(receiver)
		c.block.NewStore(c.expression(s.Value), ptr)
	case *ast.If:
		condition := c.expression(s.Condition)
		then := c.newBlock("then")
		otherwise := c.newBlock("else")
		merge := c.newBlock("ifcont")
		c.block.NewCondBr(condition, then, otherwise)

		c.block = then
		c.scoped(s.Then)
		c.branch(merge)

		c.block = otherwise
		c.scoped(s.Else)
		c.branch(merge)

		c.block = merge
	case *ast.Switch:
		c.codegenSwitch(s)
	case *ast.While:
		cond := c.newBlock("while.cond")
		body := c.newBlock("while.body")
		exit := c.newBlock("while.exit")
		c.block.NewBr(cond)

		c.block = cond
		c.block.NewCondBr(c.expression(s.Condition), body, exit)

		c.block = body
		c.scoped(s.Statements)
		c.branch(cond)

		c.block = exit
	case *ast.Return:
		if c.returnType == env.Nil {
			if _, ok := s.Value.(*ast.Literal); !ok {
				c.expression(s.Value)
			}
			c.block.NewRet(nil)
		} else {
			c.block.NewRet(c.expression(s.Value))
		}
		c.block = c.newBlock("dead")
	default:
		panic(NewUError(stmt.Span(), "unsupported statement %T", stmt))
	}
}

// codegenSwitch tests the arms in order and runs the first match, or the
// default arm.
func (c *ctx) codegenSwitch(s *ast.Switch) {
	t := s.Condition.ResolvedType()
	condition := c.expression(s.Condition)
	end := c.newBlock("switch.end")

	var fallback *ast.Case
	for _, arm := range s.Cases {
		if arm.IsDefault() {
			if fallback == nil {
				fallback = arm
			}
			continue
		}

		match := c.compare("==", t, condition, c.expression(arm.Value), arm.Location)
		body := c.newBlock("case")
		next := c.newBlock("next")
		c.block.NewCondBr(match, body, next)

		c.block = body
		c.scoped(arm.Statements)
		c.branch(end)

		c.block = next
	}

	if fallback != nil {
		c.scoped(fallback.Statements)
	}
	c.branch(end)
	c.block = end
}

// address returns the pointer an access reads or writes through, and the
// type stored there.
func (c *ctx) address(access *ast.Access) (value.Value, types.Type) {
	v := c.lookup(access)

	if access.Offset == nil {
		if v.list {
			panic(NewUError(access.Location, "the list %s can only be used through an offset", access.Name))
		}
		return v.ptr, v.elem
	}

	index := c.expression(access.Offset)
	ptr := c.block.NewGetElementPtr(v.typ, v.ptr, constant.NewInt(types.I64, 0), index)
	return ptr, v.elem
}

func (c *ctx) expression(e ast.Expression) value.Value {
	switch expr := e.(type) {
	case *ast.Literal:
		return c.literal(expr)
	case *ast.Group:
		return c.expression(expr.Expression)
	case *ast.Binary:
		return c.binary(expr)
	case *ast.Access:
		ptr, elem := c.address(expr)
		return c.block.NewLoad(elem, ptr)
	case *ast.Call:
		return c.call(expr)
	}

	panic(NewUError(e.Span(), "unsupported expression %T", e))
}

func (c *ctx) literal(lit *ast.Literal) value.Value {
	switch v := lit.Value.(type) {
	case plcvalue.Boolean:
		if v {
			return constant.True
		}
		return constant.False
	case plcvalue.Integer:
		return constant.NewInt(Integer, v.X.Int64())
	case plcvalue.Decimal:
		f, _ := v.X.Float64()
		return constant.NewFloat(Decimal, f)
	case plcvalue.Character:
		return constant.NewInt(Character, int64(v))
	case plcvalue.String:
		return c.stringConstant(string(v))
	}

	panic(NewUError(lit.Location, "%s literals are not supported here", plcvalue.KindOf(lit.Value)))
}

func (c *ctx) call(call *ast.Call) value.Value {
	key := env.FunctionKey{Name: call.Name, Arity: len(call.Arguments)}
	fn, ok := c.funcs[key]
	if !ok {
		if key == (env.FunctionKey{Name: "print", Arity: 1}) {
			return c.print(call.Arguments[0])
		}
		panic(NewUError(call.Location, "the function %s/%d is not defined", call.Name, len(call.Arguments)))
	}

	var args []value.Value
	for _, arg := range call.Arguments {
		args = append(args, c.expression(arg))
	}
	return c.block.NewCall(fn, args...)
}

func (c *ctx) binary(b *ast.Binary) value.Value {
	if b.Operator == "&&" || b.Operator == "||" {
		return c.logical(b)
	}

	t := b.Left.ResolvedType()
	left := c.expression(b.Left)
	right := c.expression(b.Right)

	switch b.Operator {
	case "==", "!=", "<", ">", "<=", ">=":
		return c.compare(b.Operator, t, left, right, b.Location)
	case "^":
		return c.power(t, left, right)
	}

	if b.ResolvedType() == env.String {
		panic(NewUError(b.Location, "string concatenation is not supported by the LLVM target"))
	}

	switch t {
	case env.Integer:
		switch b.Operator {
		case "+":
			return c.block.NewAdd(left, right)
		case "-":
			return c.block.NewSub(left, right)
		case "*":
			return c.block.NewMul(left, right)
		case "/":
			return c.block.NewSDiv(left, right)
		}
	case env.Decimal:
		switch b.Operator {
		case "+":
			return c.block.NewFAdd(left, right)
		case "-":
			return c.block.NewFSub(left, right)
		case "*":
			return c.block.NewFMul(left, right)
		case "/":
			return c.block.NewFDiv(left, right)
		}
	}

	panic(NewUError(b.Location, "the operator %s is not supported for %s", b.Operator, t))
}

// logical short-circuits && and ||: the right operand only runs when the
// left one does not decide the result.
func (c *ctx) logical(b *ast.Binary) value.Value {
	left := c.expression(b.Left)
	from := c.block
	rhs := c.newBlock("rhs")
	merge := c.newBlock("merge")

	short := constant.False
	if b.Operator == "&&" {
		from.NewCondBr(left, rhs, merge)
	} else {
		short = constant.True
		from.NewCondBr(left, merge, rhs)
	}

	c.block = rhs
	right := c.expression(b.Right)
	rhsEnd := c.block
	c.block.NewBr(merge)

	c.block = merge
	return merge.NewPhi(ir.NewIncoming(short, from), ir.NewIncoming(right, rhsEnd))
}

func (c *ctx) compare(op string, t *env.Type, left, right value.Value, location span) value.Value {
	switch t {
	case env.Decimal:
		return c.block.NewFCmp(floatPredicates[op], left, right)
	case env.String:
		cmp := c.block.NewCall(c.builtins.strcmp, left, right)
		return c.block.NewICmp(intPredicates[op], cmp, constant.NewInt(types.I32, 0))
	case env.Integer, env.Character, env.Boolean:
		return c.block.NewICmp(intPredicates[op], left, right)
	}

	panic(NewUError(location, "comparing values of type %s is not supported by the LLVM target", t))
}
