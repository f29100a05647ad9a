package parser

import (
	"testing"

	"github.com/alecthomas/repr"
	"github.com/ztrue/tracerr"

	"github.com/pontaoski/plc/ast"
	"github.com/pontaoski/plc/errors"
	"github.com/pontaoski/plc/lexer"
	"github.com/pontaoski/plc/types"
	"github.com/pontaoski/plc/value"
)

func lex(t *testing.T, source string) []types.Token {
	t.Helper()
	tokens, err := lexer.Lex("test", source)
	if err != nil {
		t.Fatalf("lexing %q: %s", source, err)
	}
	return tokens
}

func parseSource(t *testing.T, source string) *ast.Source {
	t.Helper()
	src, err := ParseSource(lex(t, source))
	if err != nil {
		t.Fatalf("parsing %q: %s", source, err)
	}
	return src
}

func parseError(t *testing.T, source string) errors.ParseError {
	t.Helper()
	_, err := ParseSource(lex(t, source))
	if err == nil {
		t.Fatalf("expected a parse error for %q", source)
	}
	perr, ok := tracerr.Unwrap(err).(errors.ParseError)
	if !ok {
		t.Fatalf("expected a ParseError, got %T", tracerr.Unwrap(err))
	}
	return perr
}

func TestEndToEndScenarioShape(t *testing.T) {
	tokens := lex(t, "fun main(): Integer do return 1 + 2; end")
	if len(tokens) != 13 {
		t.Fatalf("expected 13 tokens, got %d: %s", len(tokens), repr.String(tokens))
	}

	src, err := ParseSource(tokens)
	if err != nil {
		t.Fatal(err)
	}
	if len(src.Globals) != 0 || len(src.Functions) != 1 {
		t.Fatalf("unexpected source shape %s", repr.String(src))
	}
	fn := src.Functions[0]
	if fn.Name != "main" || fn.ReturnTypeName != "Integer" || len(fn.Parameters) != 0 {
		t.Fatalf("unexpected function %s", fn)
	}
	if len(fn.Statements) != 1 {
		t.Fatalf("expected one statement, got %d", len(fn.Statements))
	}
	ret, ok := fn.Statements[0].(*ast.Return)
	if !ok {
		t.Fatalf("expected *ast.Return, got %T", fn.Statements[0])
	}
	if got := ast.ExpressionString(ret.Value); got != `Binary("+", Literal(1), Literal(2))` {
		t.Fatalf("unexpected return value %s", got)
	}
}

func TestExpressions(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"true", "Literal(true)"},
		{"nil", "Literal(nil)"},
		{"1.5", "Literal(1.5)"},
		{"-7", "Literal(-7)"},
		{`'\n'`, `Literal('\n')`},
		{`"a\tb\\"`, `Literal("a\tb\\")`},
		{"(x)", "Group(Access(x))"},
		{"name", "Access(name)"},
		{"nums[1]", "Access(nums[Literal(1)])"},
		{"f()", "Call(f, [])"},
		{"f(1, x)", "Call(f, [Literal(1), Access(x)])"},
		{"1 - 2 - 3", `Binary("-", Binary("-", Literal(1), Literal(2)), Literal(3))`},
		{"8 / 4 / 2", `Binary("/", Binary("/", Literal(8), Literal(4)), Literal(2))`},
		{"1 + 2 * 3", `Binary("+", Literal(1), Binary("*", Literal(2), Literal(3)))`},
		{"1 * 2 + 3", `Binary("+", Binary("*", Literal(1), Literal(2)), Literal(3))`},
		{"2 ^ 3", `Binary("^", Literal(2), Literal(3))`},
		{"a && b || c", `Binary("||", Binary("&&", Access(a), Access(b)), Access(c))`},
		{"x == 1 + 2", `Binary("==", Access(x), Binary("+", Literal(1), Literal(2)))`},
		{"x <= y", `Binary("<=", Access(x), Access(y))`},
		{"x < y && y != z", `Binary("&&", Binary("<", Access(x), Access(y)), Binary("!=", Access(y), Access(z)))`},
		{"(1 + 2) * 3", `Binary("*", Group(Binary("+", Literal(1), Literal(2))), Literal(3))`},
	}

	for _, test := range tests {
		t.Run(test.source, func(t *testing.T) {
			expr, err := ParseExpression(lex(t, test.source))
			if err != nil {
				t.Fatal(err)
			}
			if got := ast.ExpressionString(expr); got != test.want {
				t.Fatalf("got %s, want %s", got, test.want)
			}
		})
	}
}

func TestLiteralValues(t *testing.T) {
	expr, err := ParseExpression(lex(t, "99999999999999999999"))
	if err != nil {
		t.Fatal(err)
	}
	i, ok := expr.(*ast.Literal).Value.(value.Integer)
	if !ok || i.X.String() != "99999999999999999999" {
		t.Fatalf("unexpected literal %s", repr.String(expr))
	}

	expr, err = ParseExpression(lex(t, `'\''`))
	if err != nil {
		t.Fatal(err)
	}
	if c := expr.(*ast.Literal).Value; c != value.Character('\'') {
		t.Fatalf("unexpected character %s", repr.String(c))
	}
}

func TestGlobalsAndFunctions(t *testing.T) {
	src := parseSource(t, `
		val name: String = "x";
		var count = 0;
		list nums: Integer = [1, 2, 3];
		fun add(a: Integer, b: Integer): Integer do
			return a + b;
		end
		fun main(): Integer do
			print(add(1, 2));
			return 0;
		end
	`)

	if len(src.Globals) != 3 || len(src.Functions) != 2 {
		t.Fatalf("unexpected shape %s", repr.String(src))
	}

	name, count, nums := src.Globals[0], src.Globals[1], src.Globals[2]
	if name.Mutable || name.TypeName != "String" {
		t.Fatalf("unexpected val global %s", repr.String(name))
	}
	if !count.Mutable || count.TypeName != "" || count.Value == nil {
		t.Fatalf("unexpected var global %s", repr.String(count))
	}
	list, ok := nums.Value.(*ast.ListLiteral)
	if !nums.Mutable || !ok || len(list.Elements) != 3 {
		t.Fatalf("unexpected list global %s", repr.String(nums))
	}

	add := src.Functions[0]
	if add.String() != "fun add(a: Integer, b: Integer): Integer" {
		t.Fatalf("unexpected signature %s", add)
	}
}

func TestStatements(t *testing.T) {
	src := parseSource(t, `
		fun main(): Integer do
			let x: Integer;
			let y = 1;
			x = y;
			nums[0] = 2;
			print(x);
			if x > 0 do print(1); else print(2); end
			while x < 10 do x = x + 1; end
			switch x
				case 1: print("one");
				case 2: print("two"); print("2");
				default print("many");
			end
			return x;
		end
	`)

	stmts := src.Functions[0].Statements
	want := []string{
		"*ast.Declaration", "*ast.Declaration", "*ast.Assignment", "*ast.Assignment",
		"*ast.ExpressionStatement", "*ast.If", "*ast.While", "*ast.Switch", "*ast.Return",
	}
	if len(stmts) != len(want) {
		t.Fatalf("expected %d statements, got %d", len(want), len(stmts))
	}
	for i, stmt := range stmts {
		if got := typeName(stmt); got != want[i] {
			t.Fatalf("statement %d: got %s, want %s", i, got, want[i])
		}
	}

	assign := stmts[3].(*ast.Assignment)
	if got := ast.ExpressionString(assign.Receiver); got != "Access(nums[Literal(0)])" {
		t.Fatalf("unexpected receiver %s", got)
	}

	ifStmt := stmts[5].(*ast.If)
	if len(ifStmt.Then) != 1 || len(ifStmt.Else) != 1 {
		t.Fatalf("unexpected if %s", repr.String(ifStmt))
	}

	sw := stmts[7].(*ast.Switch)
	if len(sw.Cases) != 3 || sw.Cases[0].IsDefault() || !sw.Cases[2].IsDefault() {
		t.Fatalf("unexpected switch %s", repr.String(sw))
	}
	if len(sw.Cases[1].Statements) != 2 {
		t.Fatalf("expected two statements in the second case")
	}
}

func typeName(stmt ast.Statement) string {
	switch stmt.(type) {
	case *ast.Declaration:
		return "*ast.Declaration"
	case *ast.Assignment:
		return "*ast.Assignment"
	case *ast.ExpressionStatement:
		return "*ast.ExpressionStatement"
	case *ast.If:
		return "*ast.If"
	case *ast.While:
		return "*ast.While"
	case *ast.Switch:
		return "*ast.Switch"
	case *ast.Return:
		return "*ast.Return"
	}
	return "?"
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		offset int
	}{
		{"global after function", "fun f() do end val x = 1;", 15},
		{"missing semicolon", "fun f() do print(1) end", 20},
		{"trailing comma in call", "fun f() do print(1,); end", 19},
		{"trailing comma in list", "list l = [1, 2,];", 15},
		{"trailing comma in parameters", "fun f(a,) do end", 8},
		{"empty list", "list l = [];", 10},
		{"two else sections", "fun f() do if true do else else end end", 27},
		{"two default arms", "fun f() do switch 1 default print(1); default print(2); end end", 38},
		{"missing end", "fun f() do print(1);", 20},
		{"declaration without type or value", "val x;", 5},
		{"keyword as expression", "fun f() do print(end); end", 17},
		{"stray token at top level", "print(1);", 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			perr := parseError(t, test.source)
			if perr.Location.Offset() != test.offset {
				t.Fatalf("error offset: got %d, want %d (%s)", perr.Location.Offset(), test.offset, perr)
			}
		})
	}
}

func TestIsIncomplete(t *testing.T) {
	tokens := lex(t, "fun main(): Integer do return 1;")
	_, err := ParseSource(tokens)
	if !IsIncomplete(err, tokens) {
		t.Fatalf("expected %s to be incomplete", err)
	}

	tokens = lex(t, "fun main(): Integer do return 1; ) end")
	_, err = ParseSource(tokens)
	if err == nil || IsIncomplete(err, tokens) {
		t.Fatalf("expected %v to be a complete failure", err)
	}
}
