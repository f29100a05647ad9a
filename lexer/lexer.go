package lexer

import (
	"github.com/coreos/pkg/capnslog"
	"github.com/ztrue/tracerr"

	"github.com/pontaoski/plc/errors"
	"github.com/pontaoski/plc/types"
)

var plog = capnslog.NewPackageLogger("github.com/pontaoski/plc", "lexer")

const eof rune = -1

type Lexer struct {
	runes   []rune
	offsets []int
	index   int

	pos  types.Position
	prev types.Position

	start      types.Position
	startIndex int

	tokens []types.Token
}

func NewLexer(source string, filename string) *Lexer {
	l := &Lexer{
		pos: types.Position{Offset: 0, Line: 1, Column: 1, Filename: filename},
	}
	for offset, r := range source {
		l.runes = append(l.runes, r)
		l.offsets = append(l.offsets, offset)
	}
	l.offsets = append(l.offsets, len(source))
	return l
}

// Lex turns source into its token stream. Whitespace is never emitted.
func Lex(filename string, source string) ([]types.Token, error) {
	return NewLexer(source, filename).Lex()
}

func (l *Lexer) Lex() (tokens []types.Token, err error) {
	defer func() {
		if r := recover(); r != nil {
			rerr, ok := r.(errors.LexError)
			if ok {
				err = tracerr.Wrap(rerr)
			} else {
				panic(r)
			}
		}
	}()

	for l.peek(0) != eof {
		if isWhitespace(l.peek(0)) {
			l.advance()
			continue
		}
		l.tokens = append(l.tokens, l.lexToken())
	}

	plog.Debugf("lexed %d tokens from %s", len(l.tokens), l.pos.Filename)
	return l.tokens, nil
}

func (l *Lexer) peek(i int) rune {
	if l.index+i >= len(l.runes) {
		return eof
	}
	return l.runes[l.index+i]
}

func (l *Lexer) advance() {
	l.prev = l.pos
	if l.runes[l.index] == '\n' {
		l.pos.Line++
		l.pos.Column = 1
	} else {
		l.pos.Column++
	}
	l.index++
	l.pos.Offset = l.offsets[l.index]
}

func (l *Lexer) begin() {
	l.start = l.pos
	l.startIndex = l.index
}

func (l *Lexer) emit(kind types.TokenKind) types.Token {
	return types.Token{
		Kind:     kind,
		Text:     string(l.runes[l.startIndex:l.index]),
		Location: types.Span{From: l.start, To: l.prev},
	}
}

func (l *Lexer) fail(msg string) {
	panic(errors.LexError{
		Message:  msg,
		Location: types.SingleCharSpan(l.pos),
	})
}

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\r', '\n', '\b':
		return true
	}
	return false
}

func firstChar(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func otherChar(r rune) bool {
	return firstChar(r) || isDigit(r) || r == '-'
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func (l *Lexer) lexToken() types.Token {
	r := l.peek(0)

	switch {
	case firstChar(r):
		return l.lexIdent()
	case isDigit(r):
		return l.lexNumber()
	case (r == '+' || r == '-') && isDigit(l.peek(1)) && l.signStartsNumber():
		return l.lexNumber()
	case r == '\'':
		return l.lexCharacter()
	case r == '"':
		return l.lexString()
	}

	return l.lexOperator()
}

// keywords that are never the end of an operand.
var keywords = map[string]bool{
	"list": true, "val": true, "var": true, "fun": true,
	"do": true, "end": true, "let": true,
	"if": true, "else": true, "switch": true, "case": true, "default": true,
	"while": true, "return": true,
}

// signStartsNumber decides whether a + or - belongs to a number literal: only
// when the previous token cannot end an operand.
func (l *Lexer) signStartsNumber() bool {
	if len(l.tokens) == 0 {
		return true
	}
	last := l.tokens[len(l.tokens)-1]
	switch last.Kind {
	case types.Identifier:
		return keywords[last.Text]
	case types.Integer, types.Decimal, types.Character, types.String:
		return false
	}
	return last.Text != ")" && last.Text != "]"
}

func (l *Lexer) lexIdent() types.Token {
	l.begin()
	l.advance()
	for otherChar(l.peek(0)) {
		l.advance()
	}
	return l.emit(types.Identifier)
}

func (l *Lexer) lexNumber() types.Token {
	l.begin()
	if r := l.peek(0); r == '+' || r == '-' {
		l.advance()
	}

	if l.peek(0) == '0' && isDigit(l.peek(1)) {
		l.advance()
		l.fail("a leading zero must be followed by a decimal point")
	}

	for isDigit(l.peek(0)) {
		l.advance()
	}

	if l.peek(0) != '.' {
		return l.emit(types.Integer)
	}

	l.advance()
	if !isDigit(l.peek(0)) {
		l.fail("trailing decimal point")
	}
	for isDigit(l.peek(0)) {
		l.advance()
	}
	return l.emit(types.Decimal)
}

func (l *Lexer) lexCharacter() types.Token {
	l.begin()
	l.advance()

	switch r := l.peek(0); r {
	case '\\':
		l.lexEscape()
	case '\'':
		l.fail("empty character literal")
	case eof, '\n', '\r':
		l.fail("unterminated character literal")
	default:
		l.advance()
	}

	if l.peek(0) != '\'' {
		l.fail("unterminated character literal")
	}
	l.advance()

	return l.emit(types.Character)
}

func (l *Lexer) lexString() types.Token {
	l.begin()
	l.advance()

	for {
		switch r := l.peek(0); r {
		case '"':
			l.advance()
			return l.emit(types.String)
		case '\\':
			l.lexEscape()
		case eof, '\n', '\r':
			l.fail("unterminated string literal")
		default:
			l.advance()
		}
	}
}

// lexEscape consumes a backslash and the escape character after it.
func (l *Lexer) lexEscape() {
	l.advance()
	switch l.peek(0) {
	case 'b', 'r', 'n', 't', '"', '\'', '\\':
		l.advance()
	default:
		l.fail("unsupported escape sequence")
	}
}

func (l *Lexer) lexOperator() types.Token {
	l.begin()

	switch string([]rune{l.peek(0), l.peek(1)}) {
	case "<=", ">=", "==", "!=", "&&", "||":
		l.advance()
		l.advance()
		return l.emit(types.Operator)
	}

	l.advance()
	return l.emit(types.Operator)
}
