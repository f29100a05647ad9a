package codegen

import (
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"

	"github.com/pontaoski/plc/env"
)

var (
	Integer   = types.I64
	Decimal   = types.Double
	Boolean   = types.I1
	Character = types.I32
	String    = types.I8Ptr
	Nil       = types.Void
)

var lowered = map[*env.Type]types.Type{
	env.Integer:   Integer,
	env.Decimal:   Decimal,
	env.Boolean:   Boolean,
	env.Character: Character,
	env.String:    String,
	env.Nil:       Nil,
}

// llType maps a language type to its machine representation. The wildcard
// types have none.
func (c *ctx) llType(t *env.Type, location span) types.Type {
	lt, ok := lowered[t]
	if !ok {
		panic(NewUError(location, "values of type %s are not supported by the LLVM target", t))
	}
	return lt
}

// llValueType is llType for anything that has to be stored.
func (c *ctx) llValueType(t *env.Type, location span) types.Type {
	lt := c.llType(t, location)
	if types.IsVoid(lt) {
		panic(NewUError(location, "values of type Nil cannot be stored"))
	}
	return lt
}

var intPredicates = map[string]enum.IPred{
	"==": enum.IPredEQ,
	"!=": enum.IPredNE,
	"<":  enum.IPredSLT,
	">":  enum.IPredSGT,
	"<=": enum.IPredSLE,
	">=": enum.IPredSGE,
}

var floatPredicates = map[string]enum.FPred{
	"==": enum.FPredOEQ,
	"!=": enum.FPredUNE,
	"<":  enum.FPredOLT,
	">":  enum.FPredOGT,
	"<=": enum.FPredOLE,
	">=": enum.FPredOGE,
}
