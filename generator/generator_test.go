package generator

import (
	"bytes"
	"strings"
	"testing"

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

func generate(t *testing.T, source string) string {
	t.Helper()
	src, err := analyzer.Analyze(parse(t, source))
	if err != nil {
		t.Fatalf("analyzing: %s", err)
	}
	var out bytes.Buffer
	if err := Generate(src, &out); err != nil {
		t.Fatal(err)
	}
	return out.String()
}

func lines(l ...string) string {
	return strings.Join(l, "\n") + "\n"
}

func TestGenerateSource(t *testing.T) {
	got := generate(t, `
		val name: String = "x";
		var count = 1;
		list nums: Decimal = [1.5, 2.0];
		fun main(): Integer do
			print(count);
			return 0;
		end
		fun noop() do
		end
	`)

	want := lines(
		"public class Main {",
		"",
		`    final String name = "x";`,
		"    int count = 1;",
		"    double[] nums = {1.5, 2.0};",
		"",
		"    public static void main(String[] args) {",
		"        System.exit(new Main().main());",
		"    }",
		"",
		"    int main() {",
		"        System.out.println(count);",
		"        return 0;",
		"    }",
		"",
		"    void noop() {}",
		"",
		"}",
	)
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestGenerateWithoutGlobals(t *testing.T) {
	got := generate(t, "fun main(): Integer do return 1 + 2; end")

	want := lines(
		"public class Main {",
		"",
		"    public static void main(String[] args) {",
		"        System.exit(new Main().main());",
		"    }",
		"",
		"    int main() {",
		"        return 1 + 2;",
		"    }",
		"",
		"}",
	)
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestGenerateStatements(t *testing.T) {
	got := generate(t, `
		list nums = [1, 2];
		fun area(r: Decimal, label): Decimal do
			let x: Decimal;
			x = 3.14 * r ^ 2;
			if x > 10.0 && true do
				print(label);
			else
				print("small");
			end
			while x > 1.0 do
				x = x / 2.0;
			end
			switch 'a'
				case 'a':
					print('\n');
				default
					print("it's \"quoted\"");
			end
			nums[0] = (nums[1] - 1);
			return x;
		end
		fun main(): Integer do return 0; end
	`)

	want := lines(
		"    double area(double r, Object label) {",
		"        double x;",
		"        x = Math.pow(3.14 * r, 2);",
		"        if (x > 10.0 && true) {",
		"            System.out.println(label);",
		"        } else {",
		`            System.out.println("small");`,
		"        }",
		"        while (x > 1.0) {",
		"            x = x / 2.0;",
		"        }",
		"        switch ('a') {",
		"            case 'a':",
		`                System.out.println('\n');`,
		"                break;",
		"            default:",
		`                System.out.println("it's \"quoted\"");`,
		"        }",
		"        nums[0] = (nums[1] - 1);",
		"        return x;",
		"    }",
	)
	if !strings.Contains(got, want) {
		t.Fatalf("got:\n%s\nwant it to contain:\n%s", got, want)
	}
}

func TestGenerateUnanalyzed(t *testing.T) {
	var out bytes.Buffer
	err := Generate(parse(t, "fun main(): Integer do return 0; end"), &out)
	if err == nil {
		t.Fatalf("expected an error for an unanalyzed tree")
	}
	if out.Len() != 0 {
		t.Fatalf("nothing should be written on failure, got %q", out.String())
	}
}
