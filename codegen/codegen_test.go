package codegen

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/alecthomas/repr"
	"github.com/llir/llvm/ir"

	"github.com/pontaoski/plc/analyzer"
	"github.com/pontaoski/plc/ast"
	"github.com/pontaoski/plc/lexer"
	"github.com/pontaoski/plc/parser"
)

func parse(t *testing.T, source string) *ast.Source {
	t.Helper()
	tokens, err := lexer.Lex("test", source)
	if err != nil {
		t.Fatalf("lexing: %s", err)
	}
	src, err := parser.ParseSource(tokens)
	if err != nil {
		t.Fatalf("parsing: %s", err)
	}
	return src
}

func generate(t *testing.T, source string, settings Settings) *ir.Module {
	t.Helper()
	src, err := analyzer.Analyze(parse(t, source))
	if err != nil {
		t.Fatalf("analyzing: %s", err)
	}
	m, err := Generate(src, settings)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func requireContains(t *testing.T, module string, fragments ...string) {
	t.Helper()
	for _, fragment := range fragments {
		if !strings.Contains(module, fragment) {
			t.Fatalf("expected %q in:\n%s", fragment, module)
		}
	}
}

func TestGenerateMain(t *testing.T) {
	out := generate(t, "fun main(): Integer do return 1 + 2; end", Settings{PackageName: "calc"}).String()

	requireContains(t, out,
		`source_filename = "calc"`,
		"define i64 @plc.main.0()",
		"add i64 1, 2",
		"define void @plc.init()",
		"define i32 @main()",
		"call void @plc.init()",
		"call i64 @plc.main.0()",
		"trunc i64",
		"@__plc_types",
	)
}

func TestGenerateLibrary(t *testing.T) {
	out := generate(t, "fun main(): Integer do return 0; end", Settings{Library: true}).String()
	if strings.Contains(out, "define i32 @main()") {
		t.Fatalf("a library should not define main:\n%s", out)
	}
}

func TestGenerateProgram(t *testing.T) {
	out := generate(t, `
		var total: Decimal = 0.5;
		list nums: Integer = [1, 2, 3];
		fun square(x: Integer): Integer do
			return x * x;
		end
		fun main(): Integer do
			let i = 0;
			while i < 3 && true do
				nums[i] = square(nums[i]);
				i = i + 1;
			end
			if total >= 0.5 do
				print("big");
			else
				print(total / 2.0);
			end
			switch 'a'
				case 'b': print('b');
				default print(2 ^ 3);
			end
			print(nums[2] == 9);
			return nums[1];
		end
	`, Settings{}).String()

	requireContains(t, out,
		"@plc.var.total = global double",
		"@plc.var.nums = global [3 x i64] zeroinitializer",
		"define i64 @plc.square.1(i64 %x)",
		"mul i64",
		"declare i32 @printf(",
		"declare double @pow(",
		"call double @pow(",
		"fcmp oge double",
		"fdiv double",
		"icmp slt i64",
		"icmp eq i32",
		"getelementptr [3 x i64], [3 x i64]* @plc.var.nums",
		"phi i1",
		"select i1",
		`c"big\00"`,
		`c"%lld\0A\00"`,
		"call i64 @plc.square.1(",
	)
}

func TestGenerateStringComparison(t *testing.T) {
	out := generate(t, `fun main(): Integer do if "a" < "b" do print(1); end return 0; end`, Settings{}).String()
	requireContains(t, out, "call i32 @strcmp(", "icmp slt i32")
}

func TestGenerateUnsupported(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"Any parameter", "fun f(x) do end fun main(): Integer do return 0; end"},
		{"string concatenation", `fun main(): Integer do print("a" + 1); return 0; end`},
		{"whole list", "list l = [1]; fun main(): Integer do print(l); return 0; end"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			src, err := analyzer.Analyze(parse(t, test.source))
			if err != nil {
				t.Fatalf("analyzing: %s", err)
			}
			if _, err := Generate(src, Settings{}); err == nil {
				t.Fatalf("expected %q to be rejected", test.source)
			}
		})
	}
}

func TestGenerateUnanalyzed(t *testing.T) {
	if _, err := Generate(parse(t, "fun main(): Integer do return 0; end"), Settings{}); err == nil {
		t.Fatalf("expected an error for an unanalyzed tree")
	}
}

func TestTypeInfo(t *testing.T) {
	m := generate(t, `
		val limit = 10;
		list names: String = ["a"];
		fun add(a: Integer, b: Integer): Integer do return a + b; end
		fun main(): Integer do return add(1, limit); end
	`, Settings{})

	dir, err := ioutil.TempDir("", "plc")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "module.ll")
	if err := ioutil.WriteFile(path, []byte(m.String()), 0644); err != nil {
		t.Fatal(err)
	}

	info, err := ReadTypeInfo(path)
	if err != nil {
		t.Fatal(err)
	}

	want := TypeInfo{
		Functions: map[string]string{
			"add/2":  "fun add(a: Integer, b: Integer): Integer",
			"main/0": "fun main(): Integer",
		},
		Globals: map[string]string{
			"limit": "Integer",
			"names": "List<String>",
		},
	}
	if !reflect.DeepEqual(info, want) {
		t.Fatalf("got %s, want %s", repr.String(info), repr.String(want))
	}
}
