package reader

import (
	"strings"

	"github.com/llir/llvm/asm"
	"github.com/llir/llvm/ir/constant"
	"github.com/ztrue/tracerr"
)

// TypeInfoSymbol is the global generated modules keep their type
// information in.
const TypeInfoSymbol = "__plc_types"

func ReadTypeInfo(from string) (string, error) {
	m, err := asm.ParseFile(from)
	if err != nil {
		return "", tracerr.Wrap(err)
	}

	for _, g := range m.Globals {
		if g.Name() != TypeInfoSymbol {
			continue
		}
		arr, ok := g.Init.(*constant.CharArray)
		if !ok {
			return "", tracerr.Errorf("%s in %s is not a character array", TypeInfoSymbol, from)
		}
		return strings.TrimRight(string(arr.X), "\x00"), nil
	}

	return "", tracerr.Errorf("%s has no %s symbol", from, TypeInfoSymbol)
}
