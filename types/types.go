package types

import (
	"fmt"
)

type Position struct {
	Offset   int
	Line     int
	Column   int
	Filename string
}

type Span struct {
	From Position
	To   Position
}

type TokenKind int

const (
	Identifier TokenKind = iota
	Integer
	Decimal
	Character
	String
	Operator
)

func (t TokenKind) String() string {
	data := map[TokenKind]string{
		Identifier: "IDENTIFIER",
		Integer:    "INTEGER",
		Decimal:    "DECIMAL",
		Character:  "CHARACTER",
		String:     "STRING",
		Operator:   "OPERATOR",
	}
	return data[t]
}

func (p Position) String() string {
	if p.Filename == "" {
		p.Filename = "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

func (s Span) String() string {
	return fmt.Sprintf("%s-%d:%d (offset %d)", s.From, s.To.Line, s.To.Column, s.From.Offset)
}

// Offset is the source offset diagnostics point at.
func (s Span) Offset() int {
	return s.From.Offset
}

func SingleCharSpan(p Position) Span {
	return Span{p, p}
}

// Join spans from the start of a to the end of b.
func Join(a, b Span) Span {
	return Span{a.From, b.To}
}

type Token struct {
	Kind     TokenKind
	Text     string
	Location Span
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d", t.Kind, t.Text, t.Location.From.Offset)
}

// End is the position just past the last character of the token.
func (t Token) End() Position {
	end := t.Location.To
	end.Offset = t.Location.From.Offset + len(t.Text)
	end.Column++
	return end
}
