package main

import (
	"fmt"
	"io"
	"io/ioutil"

	"github.com/alecthomas/repr"
	"github.com/ztrue/tracerr"

	"github.com/pontaoski/plc/analyzer"
	"github.com/pontaoski/plc/ast"
	"github.com/pontaoski/plc/codegen"
	"github.com/pontaoski/plc/generator"
	"github.com/pontaoski/plc/interpreter"
	"github.com/pontaoski/plc/lexer"
	"github.com/pontaoski/plc/parser"
	"github.com/pontaoski/plc/types"
	"github.com/pontaoski/plc/value"
)

const (
	stageRead        = "read"
	stageLexer       = "lexer"
	stageParser      = "parser"
	stageAnalyzer    = "analyzer"
	stageInterpreter = "interpreter"
	stageGenerator   = "generator"
	stageCodegen     = "codegen"
)

// stageError names the pipeline stage err came out of.
type stageError struct {
	Stage string
	Err   error
}

func (s stageError) Error() string {
	return fmt.Sprintf("%s: %s", s.Stage, tracerr.Unwrap(s.Err))
}

func fail(stage string, err error) error {
	if err == nil {
		return nil
	}
	return stageError{Stage: stage, Err: err}
}

type pipeline struct {
	filename string
	source   string
}

func readPipeline(filename string) (pipeline, error) {
	data, err := ioutil.ReadFile(filename)
	if err != nil {
		return pipeline{}, fail(stageRead, tracerr.Wrap(err))
	}
	return pipeline{filename: filename, source: string(data)}, nil
}

func (p pipeline) tokens() ([]types.Token, error) {
	tokens, err := lexer.Lex(p.filename, p.source)
	return tokens, fail(stageLexer, err)
}

func (p pipeline) parse() (*ast.Source, error) {
	tokens, err := p.tokens()
	if err != nil {
		return nil, err
	}

	src, err := parser.ParseSource(tokens)
	if err != nil {
		return nil, fail(stageParser, err)
	}
	plog.Debugf("parsed %s: %d globals, %d functions", p.filename, len(src.Globals), len(src.Functions))
	return src, nil
}

func (p pipeline) check() (*ast.Source, error) {
	src, err := p.parse()
	if err != nil {
		return nil, err
	}

	src, err = analyzer.Analyze(src)
	return src, fail(stageAnalyzer, err)
}

func (p pipeline) run(settings interpreter.Settings) (value.Value, error) {
	src, err := p.check()
	if err != nil {
		return nil, err
	}

	result, err := interpreter.New(settings).Run(src)
	return result, fail(stageInterpreter, err)
}

func (p pipeline) java(w io.Writer) error {
	src, err := p.check()
	if err != nil {
		return err
	}

	return fail(stageGenerator, generator.Generate(src, w))
}

func (p pipeline) llvm(settings codegen.Settings) (string, error) {
	src, err := p.check()
	if err != nil {
		return "", err
	}

	m, err := codegen.Generate(src, settings)
	if err != nil {
		return "", fail(stageCodegen, err)
	}
	return m.String(), nil
}

func (p pipeline) dump(stage string, w io.Writer) error {
	var (
		data interface{}
		err  error
	)

	switch stage {
	case "tokens":
		data, err = p.tokens()
	case "ast":
		data, err = p.parse()
	case "analyzed":
		data, err = p.check()
	default:
		return tracerr.Errorf("unknown stage %q, expected tokens, ast or analyzed", stage)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(w, repr.String(data))
	return nil
}
