package codegen

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/pontaoski/plc/ast"
	"github.com/pontaoski/plc/env"
)

// builtins are the C library functions generated code calls into.
type builtins struct {
	printf *ir.Func
	pow    *ir.Func
	strcmp *ir.Func
}

func addBuiltins(m *ir.Module) builtins {
	printf := m.NewFunc("printf", types.I32, ir.NewParam("format", String))
	printf.Sig.Variadic = true

	return builtins{
		printf: printf,
		pow:    m.NewFunc("pow", Decimal, ir.NewParam("x", Decimal), ir.NewParam("y", Decimal)),
		strcmp: m.NewFunc("strcmp", types.I32, ir.NewParam("a", String), ir.NewParam("b", String)),
	}
}

var printFormats = map[*env.Type]string{
	env.Integer:   "%lld\n",
	env.Decimal:   "%.16g\n",
	env.Boolean:   "%s\n",
	env.Character: "%c\n",
	env.String:    "%s\n",
}

// print lowers the print builtin to a printf call chosen by the static type
// of arg.
func (c *ctx) print(arg ast.Expression) value.Value {
	t := arg.ResolvedType()

	if t == env.Nil {
		if _, ok := arg.(*ast.Literal); !ok {
			c.expression(arg)
		}
		return c.block.NewCall(c.builtins.printf, c.stringConstant("nil\n"))
	}

	format, ok := printFormats[t]
	if !ok {
		panic(NewUError(arg.Span(), "printing values of type %s is not supported by the LLVM target", t))
	}

	v := c.expression(arg)
	if t == env.Boolean {
		v = c.block.NewSelect(v, c.stringConstant("true"), c.stringConstant("false"))
	}
	return c.block.NewCall(c.builtins.printf, c.stringConstant(format), v)
}

// power raises base to an integer exponent through pow, converting back when
// the base is an Integer.
func (c *ctx) power(t *env.Type, base, exponent value.Value) value.Value {
	y := c.block.NewSIToFP(exponent, Decimal)
	if t == env.Decimal {
		return c.block.NewCall(c.builtins.pow, base, y)
	}
	x := c.block.NewSIToFP(base, Decimal)
	return c.block.NewFPToSI(c.block.NewCall(c.builtins.pow, x, y), Integer)
}

func (c *ctx) stringConstant(s string) constant.Constant {
	if ptr, ok := c.stringConstants[s]; ok {
		return ptr
	}

	g := c.module.NewGlobalDef("str."+hash(s), constant.NewCharArrayFromString(s+"\x00"))
	g.Immutable = true

	zero := constant.NewInt(types.I64, 0)
	ptr := constant.NewGetElementPtr(g.ContentType, g, zero, zero)
	c.stringConstants[s] = ptr
	return ptr
}
