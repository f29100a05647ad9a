package codegen

import (
	"encoding/json"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/ztrue/tracerr"

	"github.com/pontaoski/plc/ast"
	"github.com/pontaoski/plc/reader"
)

// TypeInfo describes the functions and globals of a compiled module.
type TypeInfo struct {
	Functions map[string]string `json:"functions"`
	Globals   map[string]string `json:"globals"`
}

func typeInfoOf(src *ast.Source) TypeInfo {
	t := TypeInfo{
		Functions: map[string]string{},
		Globals:   map[string]string{},
	}
	for _, fn := range src.Functions {
		t.Functions[fn.Function.String()] = fn.String()
	}
	for _, g := range src.Globals {
		name := g.Variable.Type.Name
		if g.Variable.Sequence {
			name = "List<" + name + ">"
		}
		t.Globals[g.Name] = name
	}
	return t
}

func registerTypeInfoWithModule(t TypeInfo, m *ir.Module) {
	data, err := json.Marshal(t)
	if err != nil {
		panic(err)
	}

	g := m.NewGlobalDef(reader.TypeInfoSymbol, constant.NewCharArray(append(data, 0)))
	g.Immutable = true
}

// ReadTypeInfo reads the type information embedded in a generated .ll file.
func ReadTypeInfo(path string) (t TypeInfo, err error) {
	data, err := reader.ReadTypeInfo(path)
	if err != nil {
		return TypeInfo{}, err
	}

	err = json.Unmarshal([]byte(data), &t)
	return t, tracerr.Wrap(err)
}
