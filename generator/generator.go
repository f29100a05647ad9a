// Package generator translates an analyzed program into the source of a
// single Java class named Main.
package generator

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/coreos/pkg/capnslog"
	"github.com/ztrue/tracerr"

	"github.com/pontaoski/plc/ast"
	"github.com/pontaoski/plc/env"
	"github.com/pontaoski/plc/value"
)

var plog = capnslog.NewPackageLogger("github.com/pontaoski/plc", "generator")

type generateError struct {
	error
}

type generator struct {
	out    bytes.Buffer
	indent int
}

// Generate writes the Java translation of src to w. src must have been
// analyzed.
func Generate(src *ast.Source, w io.Writer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			gerr, ok := r.(generateError)
			if ok {
				err = gerr.error
			} else {
				panic(r)
			}
		}
	}()

	g := &generator{}
	g.visitSource(src)

	plog.Debugf("generated %d bytes of Java", g.out.Len())
	_, err = w.Write(g.out.Bytes())
	return tracerr.Wrap(err)
}

func (g *generator) fail(format string, args ...interface{}) {
	panic(generateError{tracerr.Errorf(format, args...)})
}

func (g *generator) print(parts ...interface{}) {
	for _, part := range parts {
		switch p := part.(type) {
		case ast.Expression:
			g.visitExpression(p)
		case ast.Statement:
			g.visitStatement(p)
		default:
			fmt.Fprint(&g.out, p)
		}
	}
}

func (g *generator) newline(indent int) {
	g.out.WriteString("\n")
	g.out.WriteString(strings.Repeat("    ", indent))
}

func (g *generator) visitSource(src *ast.Source) {
	g.print("public class Main {")
	g.newline(0)

	g.indent++
	if len(src.Globals) > 0 {
		for _, global := range src.Globals {
			g.newline(g.indent)
			g.visitGlobal(global)
		}
		g.newline(0)
	}

	g.newline(g.indent)
	g.print("public static void main(String[] args) {")
	g.newline(g.indent + 1)
	g.print("System.exit(new Main().main());")
	g.newline(g.indent)
	g.print("}")
	g.newline(0)

	for _, fn := range src.Functions {
		g.newline(g.indent)
		g.visitFunction(fn)
		g.newline(0)
	}
	g.indent--

	g.newline(0)
	g.print("}")
	g.newline(0)
}

func typeName(t *env.Type) string {
	return t.TargetName
}

func (g *generator) visitGlobal(global *ast.Global) {
	variable := global.Variable
	if variable == nil {
		g.fail("global %s has not been analyzed", global.Name)
	}

	if !variable.Mutable {
		g.print("final ")
	}

	if list, ok := global.Value.(*ast.ListLiteral); ok {
		g.print(typeName(variable.Type), "[] ", variable.TargetName, " = {")
		g.printArguments(list.Elements)
		g.print("};")
		return
	}

	g.print(typeName(variable.Type), " ", variable.TargetName)
	if global.Value != nil {
		g.print(" = ", global.Value)
	}
	g.print(";")
}

func (g *generator) visitFunction(fn *ast.Function) {
	f := fn.Function
	if f == nil {
		g.fail("function %s has not been analyzed", fn.Name)
	}

	ret := typeName(f.ReturnType)
	if f.ReturnType == env.Nil {
		ret = "void"
	}
	g.print(ret, " ", f.TargetName, "(")
	for i, name := range fn.Parameters {
		if i > 0 {
			g.print(", ")
		}
		g.print(typeName(f.ParameterTypes[i]), " ", name)
	}
	g.print(") {")

	g.printBlock(fn.Statements)
}

// printBlock prints stmts one level deeper than the current indent, then the
// closing brace. An empty block closes on the same line.
func (g *generator) printBlock(stmts []ast.Statement) {
	if len(stmts) == 0 {
		g.print("}")
		return
	}

	g.indent++
	for _, stmt := range stmts {
		g.newline(g.indent)
		g.print(stmt)
	}
	g.indent--

	g.newline(g.indent)
	g.print("}")
}

func (g *generator) visitStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		g.print(s.Expression, ";")
	case *ast.Declaration:
		if s.Variable == nil {
			g.fail("declaration of %s has not been analyzed", s.Name)
		}
		g.print(typeName(s.Variable.Type), " ", s.Variable.TargetName)
		if s.Value != nil {
			g.print(" = ", s.Value)
		}
		g.print(";")
	case *ast.Assignment:
		g.print(s.Receiver, " = ", s.Value, ";")
	case *ast.If:
		g.print("if (", s.Condition, ") {")
		g.printBlock(s.Then)
		if len(s.Else) > 0 {
			g.print(" else {")
			g.printBlock(s.Else)
		}
	case *ast.Switch:
		g.print("switch (", s.Condition, ") {")
		g.indent++
		for _, c := range s.Cases {
			g.newline(g.indent)
			g.visitCase(c)
		}
		g.indent--
		g.newline(g.indent)
		g.print("}")
	case *ast.While:
		g.print("while (", s.Condition, ") {")
		g.printBlock(s.Statements)
	case *ast.Return:
		g.print("return ", s.Value, ";")
	default:
		g.fail("unsupported statement %T", stmt)
	}
}

func (g *generator) visitCase(c *ast.Case) {
	if c.IsDefault() {
		g.print("default:")
	} else {
		g.print("case ", c.Value, ":")
	}

	g.indent++
	for _, stmt := range c.Statements {
		g.newline(g.indent)
		g.print(stmt)
	}
	if !c.IsDefault() {
		g.newline(g.indent)
		g.print("break;")
	}
	g.indent--
}

func (g *generator) printArguments(args []ast.Expression) {
	for i, arg := range args {
		if i > 0 {
			g.print(", ")
		}
		g.print(arg)
	}
}

func (g *generator) visitExpression(e ast.Expression) {
	switch expr := e.(type) {
	case *ast.Literal:
		g.visitLiteral(expr)
	case *ast.Group:
		g.print("(", expr.Expression, ")")
	case *ast.Binary:
		if expr.Operator == "^" {
			g.print("Math.pow(", expr.Left, ", ", expr.Right, ")")
			return
		}
		g.print(expr.Left, " ", expr.Operator, " ", expr.Right)
	case *ast.Access:
		name := expr.Name
		if expr.Variable != nil {
			name = expr.Variable.TargetName
		}
		g.print(name)
		if expr.Offset != nil {
			g.print("[", expr.Offset, "]")
		}
	case *ast.Call:
		if expr.Function == nil {
			g.fail("call to %s has not been analyzed", expr.Name)
		}
		g.print(expr.Function.TargetName, "(")
		g.printArguments(expr.Arguments)
		g.print(")")
	case *ast.ListLiteral:
		g.print("{")
		g.printArguments(expr.Elements)
		g.print("}")
	default:
		g.fail("unsupported expression %T", e)
	}
}

func (g *generator) visitLiteral(lit *ast.Literal) {
	switch v := lit.Value.(type) {
	case value.Nil:
		g.print("null")
	case value.Character:
		g.print("'", escape(string(v), '\''), "'")
	case value.String:
		g.print(`"`, escape(string(v), '"'), `"`)
	case value.Decimal:
		text := v.String()
		if !strings.Contains(text, ".") {
			text += ".0"
		}
		g.print(text)
	case value.Boolean, value.Integer:
		g.print(v.String())
	default:
		g.fail("unsupported literal %T", lit.Value)
	}
}

// escape renders s for a Java literal delimited by quote.
func escape(s string, quote rune) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\b':
			b.WriteString(`\b`)
		case '\r':
			b.WriteString(`\r`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\\':
			b.WriteString(`\\`)
		case quote:
			b.WriteRune('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
