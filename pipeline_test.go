package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/alecthomas/repr"
	"github.com/ztrue/tracerr"

	"github.com/pontaoski/plc/codegen"
	"github.com/pontaoski/plc/errors"
	"github.com/pontaoski/plc/interpreter"
	"github.com/pontaoski/plc/value"
)

func source(text string) pipeline {
	return pipeline{filename: "test.plc", source: text}
}

func TestRunEndToEnd(t *testing.T) {
	var out bytes.Buffer
	result, err := source("fun main(): Integer do return 1 + 2; end").run(interpreter.Settings{Output: &out})
	if err != nil {
		t.Fatal(err)
	}

	eq, ok := value.Equal(result, value.NewInteger(3))
	if !ok || !eq {
		t.Fatalf("expected 3, got %s", repr.String(result))
	}
	if out.Len() != 0 {
		t.Fatalf("expected no output, got %q", out.String())
	}
}

func TestStageNames(t *testing.T) {
	tests := []struct {
		name   string
		source string
		stage  string
	}{
		{"lexer", `fun main(): Integer do print("open); return 1; end`, stageLexer},
		{"parser", "fun main(): Integer do return 1 + ; end", stageParser},
		{"missing main", "fun helper(): Integer do return 1; end", stageAnalyzer},
		{"interpreter", "fun main(): Integer do return 1 / 0; end", stageInterpreter},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := source(test.source).run(interpreter.Settings{Output: &bytes.Buffer{}})
			serr, ok := err.(stageError)
			if !ok {
				t.Fatalf("expected a stage error, got %s", repr.String(err))
			}
			if serr.Stage != test.stage {
				t.Fatalf("expected stage %s, got %s (%s)", test.stage, serr.Stage, serr)
			}
			if !strings.HasPrefix(serr.Error(), test.stage+": ") {
				t.Fatalf("expected the message to start with the stage name, got %q", serr.Error())
			}
		})
	}
}

func TestMissingMainReported(t *testing.T) {
	_, err := source("val x = 1;").check()
	if err == nil {
		t.Fatal("expected an error")
	}

	serr := err.(stageError)
	if _, ok := tracerr.Unwrap(serr.Err).(errors.TypeError); !ok {
		t.Fatalf("expected a type error, got %s", repr.String(serr.Err))
	}
	if !strings.Contains(serr.Error(), "main/0") {
		t.Fatalf("expected main/0 to be named in %q", serr.Error())
	}
}

func TestRunDeterministic(t *testing.T) {
	const program = `
		list xs: Integer = [3, 1, 2];
		list ds: Decimal = [3.0, 1.0, 2.0];
		fun main(): Integer do
			let i = 0;
			while i < 3 do
				print(xs[i] * 2);
				print(ds[i] / 2.0);
				i = i + 1;
			end
			return xs[0];
		end
	`

	var first string
	for n := 0; n < 3; n++ {
		var out bytes.Buffer
		if _, err := source(program).run(interpreter.Settings{Output: &out}); err != nil {
			t.Fatal(err)
		}
		if n == 0 {
			first = out.String()
		} else if out.String() != first {
			t.Fatalf("run %d printed %q, first run printed %q", n, out.String(), first)
		}
	}
	if first != "6\n1.5\n2\n0.5\n4\n1\n" {
		t.Fatalf("unexpected output %q", first)
	}
}

func TestBuildTargets(t *testing.T) {
	const program = "fun main(): Integer do print(\"hi\"); return 0; end"

	var java bytes.Buffer
	if err := source(program).java(&java); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(java.String(), `System.out.println("hi");`) {
		t.Fatalf("unexpected Java output:\n%s", java.String())
	}

	module, err := source(program).llvm(codegen.Settings{PackageName: "test"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(module, "define i64 @plc.main.0()") {
		t.Fatalf("unexpected LLVM output:\n%s", module)
	}
}

func TestDump(t *testing.T) {
	for _, stage := range []string{"tokens", "ast", "analyzed"} {
		var out bytes.Buffer
		if err := source("fun main(): Integer do return 1; end").dump(stage, &out); err != nil {
			t.Fatalf("%s: %s", stage, err)
		}
		if out.Len() == 0 {
			t.Fatalf("%s: expected output", stage)
		}
	}

	if err := source("").dump("bytecode", &bytes.Buffer{}); err == nil {
		t.Fatal("expected an unknown stage to be rejected")
	}
}

func TestComplete(t *testing.T) {
	tests := []struct {
		source   string
		complete bool
	}{
		{"", true},
		{"fun main(): Integer do", false},
		{"fun main(): Integer do return 1;", false},
		{"fun main(): Integer do return 1; end", true},
		{"fun main(): Integer do return ) end", true},
		{"val x = ", false},
	}

	for _, test := range tests {
		if got := complete(test.source); got != test.complete {
			t.Errorf("complete(%q) = %v, want %v", test.source, got, test.complete)
		}
	}
}

func TestEvaluate(t *testing.T) {
	var out bytes.Buffer
	evaluate("fun main(): Integer do return 2 ^ 10; end", interpreter.Settings{Output: &out}, &out)
	if out.String() != "=> 1024\n" {
		t.Fatalf("unexpected output %q", out.String())
	}

	out.Reset()
	evaluate("fun main(): Integer do return x; end", interpreter.Settings{Output: &out}, &out)
	if !strings.HasPrefix(out.String(), "analyzer: ") {
		t.Fatalf("unexpected output %q", out.String())
	}
}
