package ast

import (
	"fmt"
	"strings"

	"github.com/pontaoski/plc/value"
)

func typeSuffix(name string) string {
	if name == "" {
		return ""
	}
	return ": " + name
}

func (f *Function) String() string {
	var params []string
	for i, name := range f.Parameters {
		params = append(params, name+typeSuffix(f.ParameterTypeNames[i]))
	}
	return fmt.Sprintf("fun %s(%s)%s", f.Name, strings.Join(params, ", "), typeSuffix(f.ReturnTypeName))
}

// ExpressionString renders e in a compact constructor form, for diagnostics
// and tests.
func ExpressionString(e Expression) string {
	switch expr := e.(type) {
	case *Literal:
		switch v := expr.Value.(type) {
		case value.String:
			return fmt.Sprintf("Literal(%q)", string(v))
		case value.Character:
			return fmt.Sprintf("Literal(%q)", rune(v))
		}
		return fmt.Sprintf("Literal(%s)", expr.Value)
	case *Group:
		return fmt.Sprintf("Group(%s)", ExpressionString(expr.Expression))
	case *Binary:
		return fmt.Sprintf("Binary(%q, %s, %s)", expr.Operator, ExpressionString(expr.Left), ExpressionString(expr.Right))
	case *Access:
		if expr.Offset != nil {
			return fmt.Sprintf("Access(%s[%s])", expr.Name, ExpressionString(expr.Offset))
		}
		return fmt.Sprintf("Access(%s)", expr.Name)
	case *Call:
		var args []string
		for _, arg := range expr.Arguments {
			args = append(args, ExpressionString(arg))
		}
		return fmt.Sprintf("Call(%s, [%s])", expr.Name, strings.Join(args, ", "))
	case *ListLiteral:
		var elms []string
		for _, elm := range expr.Elements {
			elms = append(elms, ExpressionString(elm))
		}
		return fmt.Sprintf("List[%s]", strings.Join(elms, ", "))
	case nil:
		return "<nil>"
	}
	return fmt.Sprintf("<%T>", e)
}
