package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/pontaoski/plc/interpreter"
	"github.com/pontaoski/plc/lexer"
	"github.com/pontaoski/plc/parser"
	"github.com/pontaoski/plc/value"
)

const (
	historyFile = ".plc_history"
	promptMain  = "plc> "
	promptCont  = "...> "
)

// complete reports whether source needs no further input: it either parses,
// or fails somewhere other than at its end.
func complete(source string) bool {
	tokens, err := lexer.Lex("<repl>", source)
	if err != nil {
		return true
	}

	_, err = parser.ParseSource(tokens)
	return err == nil || !parser.IsIncomplete(err, tokens)
}

func readProgram(ln *liner.State) (string, bool) {
	var b strings.Builder

	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}

		line, err := ln.Prompt(prompt)
		if err == io.EOF || err == liner.ErrPromptAborted {
			return "", false
		}
		if err != nil {
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		if strings.HasPrefix(strings.TrimSpace(b.String()), ":") || complete(b.String()) {
			return b.String(), true
		}
	}
}

// evaluate runs one REPL entry as a whole program.
func evaluate(source string, settings interpreter.Settings, w io.Writer) {
	result, err := pipeline{filename: "<repl>", source: source}.run(settings)
	if err != nil {
		fmt.Fprintln(w, err)
		return
	}
	if _, ok := result.(value.Nil); !ok {
		fmt.Fprintf(w, "=> %s\n", result)
	}
}

func repl(settings interpreter.Settings) error {
	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		ln.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			ln.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Println("Enter a program defining main/0. Type :quit to exit.")

	for {
		source, ok := readProgram(ln)
		if !ok {
			fmt.Println()
			return nil
		}

		switch strings.TrimSpace(source) {
		case "":
			continue
		case ":quit":
			return nil
		}
		if strings.HasPrefix(strings.TrimSpace(source), ":") {
			fmt.Println("unknown command. Type :quit to exit.")
			continue
		}

		ln.AppendHistory(strings.Replace(source, "\n", " ", -1))
		evaluate(source, settings, os.Stdout)
	}
}
