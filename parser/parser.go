package parser

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/coreos/pkg/capnslog"
	"github.com/shopspring/decimal"
	"github.com/ztrue/tracerr"

	"github.com/pontaoski/plc/ast"
	"github.com/pontaoski/plc/errors"
	"github.com/pontaoski/plc/types"
	"github.com/pontaoski/plc/value"
)

var plog = capnslog.NewPackageLogger("github.com/pontaoski/plc", "parser")

var keywords = map[string]bool{
	"list": true, "val": true, "var": true, "fun": true,
	"do": true, "end": true, "let": true,
	"if": true, "else": true, "switch": true, "case": true, "default": true,
	"while": true, "return": true,
	"true": true, "false": true, "nil": true,
}

type Parser struct {
	tokens []types.Token
	index  int
}

func NewParser(tokens []types.Token) *Parser {
	return &Parser{tokens: tokens}
}

// ParseSource parses a whole program.
func ParseSource(tokens []types.Token) (*ast.Source, error) {
	return NewParser(tokens).ParseSource()
}

// ParseExpression parses tokens as exactly one expression.
func ParseExpression(tokens []types.Token) (ast.Expression, error) {
	return NewParser(tokens).ParseExpression()
}

// IsIncomplete reports whether err is a parse failure caused by running out
// of tokens, i.e. more input could still make the program valid.
func IsIncomplete(err error, tokens []types.Token) bool {
	perr, ok := tracerr.Unwrap(err).(errors.ParseError)
	if !ok {
		return false
	}
	if len(tokens) == 0 {
		return true
	}
	return perr.Location.From.Offset >= tokens[len(tokens)-1].End().Offset
}

func (p *Parser) recover(err *error) {
	if r := recover(); r != nil {
		rerr, ok := r.(errors.ParseError)
		if ok {
			*err = tracerr.Wrap(rerr)
		} else {
			panic(r)
		}
	}
}

func (p *Parser) ParseSource() (src *ast.Source, err error) {
	defer p.recover(&err)

	src = &ast.Source{}
	for p.has(0) {
		switch {
		case p.PeekIs("list", "val", "var"):
			if len(src.Functions) > 0 {
				p.fail("globals must be declared before any function")
			}
			src.Globals = append(src.Globals, p.parseGlobal())
		case p.PeekIs("fun"):
			src.Functions = append(src.Functions, p.parseFunction())
		default:
			p.LexExpecting("list", "val", "var", "fun")
		}
	}

	plog.Debugf("parsed %d globals and %d functions", len(src.Globals), len(src.Functions))
	return src, nil
}

func (p *Parser) ParseExpression() (expr ast.Expression, err error) {
	defer p.recover(&err)

	expr = p.parseExpression()
	if p.has(0) {
		p.fail(fmt.Sprintf("unexpected %s after expression", p.tokens[p.index].Text))
	}
	return expr, nil
}

func (p *Parser) has(i int) bool {
	return p.index+i < len(p.tokens)
}

// location is where an error at the current token points, or the end of
// input once tokens are exhausted.
func (p *Parser) location() types.Span {
	if p.has(0) {
		return p.tokens[p.index].Location
	}
	if len(p.tokens) == 0 {
		return types.SingleCharSpan(types.Position{Line: 1, Column: 1})
	}
	return types.SingleCharSpan(p.tokens[len(p.tokens)-1].End())
}

func (p *Parser) fail(msg string) {
	panic(errors.ParseError{
		Message:  msg,
		Location: p.location(),
	})
}

func (p *Parser) describeCurrent() string {
	if !p.has(0) {
		return "end of input"
	}
	return fmt.Sprintf("'%s'", p.tokens[p.index].Text)
}

// PeekIs reports whether the current token's text is one of literals.
func (p *Parser) PeekIs(literals ...string) bool {
	if !p.has(0) {
		return false
	}
	tok := p.tokens[p.index]
	if tok.Kind != types.Identifier && tok.Kind != types.Operator {
		return false
	}
	for _, lit := range literals {
		if tok.Text == lit {
			return true
		}
	}
	return false
}

func (p *Parser) PeekKind(kinds ...types.TokenKind) bool {
	if !p.has(0) {
		return false
	}
	for _, kind := range kinds {
		if p.tokens[p.index].Kind == kind {
			return true
		}
	}
	return false
}

func (p *Parser) match(literals ...string) bool {
	if p.PeekIs(literals...) {
		p.index++
		return true
	}
	return false
}

func (p *Parser) LexExpecting(literals ...string) types.Token {
	if !p.PeekIs(literals...) {
		var quoted []string
		for _, lit := range literals {
			quoted = append(quoted, "'"+lit+"'")
		}
		panic(errors.ExpectedOneOf(quoted, p.describeCurrent(), p.location()))
	}
	tok := p.tokens[p.index]
	p.index++
	return tok
}

// lexName consumes an identifier that is not a keyword.
func (p *Parser) lexName(what string) types.Token {
	if !p.PeekKind(types.Identifier) || keywords[p.tokens[p.index].Text] {
		panic(errors.ExpectedOneOf([]string{what}, p.describeCurrent(), p.location()))
	}
	tok := p.tokens[p.index]
	p.index++
	return tok
}

func (p *Parser) parseTypeAnnotation() string {
	if !p.match(":") {
		return ""
	}
	return p.lexName("type name").Text
}

func (p *Parser) parseGlobal() *ast.Global {
	if p.PeekIs("list") {
		return p.parseList()
	}

	start := p.LexExpecting("val", "var")
	decl := p.parseDeclarationStatement(start)
	return &ast.Global{
		Name:     decl.Name,
		Mutable:  start.Text == "var",
		TypeName: decl.TypeName,
		Value:    decl.Value,
		Location: decl.Location,
	}
}

func (p *Parser) parseList() *ast.Global {
	start := p.LexExpecting("list")
	name := p.lexName("list name")
	typeName := p.parseTypeAnnotation()
	p.LexExpecting("=")

	open := p.LexExpecting("[")
	elements, closer := p.parseArguments("]")
	if len(elements) == 0 {
		panic(errors.ParseError{
			Message:  "a list needs at least one element",
			Location: closer.Location,
		})
	}
	end := p.LexExpecting(";")

	return &ast.Global{
		Name:     name.Text,
		Mutable:  true,
		TypeName: typeName,
		Value: &ast.ListLiteral{
			Meta:     ast.Meta{Location: types.Join(open.Location, closer.Location)},
			Elements: elements,
		},
		Location: types.Join(start.Location, end.Location),
	}
}

func (p *Parser) parseFunction() *ast.Function {
	start := p.LexExpecting("fun")
	name := p.lexName("function name")

	fn := &ast.Function{Name: name.Text}

	p.LexExpecting("(")
	if !p.PeekIs(")") {
		for {
			param := p.lexName("parameter name")
			fn.Parameters = append(fn.Parameters, param.Text)
			fn.ParameterTypeNames = append(fn.ParameterTypeNames, p.parseTypeAnnotation())

			if p.match(",") {
				if p.PeekIs(")") {
					p.fail("trailing comma in parameter list")
				}
				continue
			}
			break
		}
	}
	p.LexExpecting(")")

	fn.ReturnTypeName = p.parseTypeAnnotation()
	p.LexExpecting("do")
	fn.Statements = p.parseBlock("end")
	end := p.LexExpecting("end")

	fn.Location = types.Join(start.Location, end.Location)
	return fn
}

// parseBlock parses statements until one of terminators, which is left for
// the caller to consume.
func (p *Parser) parseBlock(terminators ...string) []ast.Statement {
	var statements []ast.Statement
	for !p.PeekIs(terminators...) {
		if !p.has(0) {
			p.LexExpecting(terminators...)
		}
		statements = append(statements, p.parseStatement())
	}
	return statements
}

func (p *Parser) parseStatement() ast.Statement {
	switch {
	case p.PeekIs("let"):
		return p.parseDeclarationStatement(p.LexExpecting("let"))
	case p.PeekIs("if"):
		return p.parseIfStatement()
	case p.PeekIs("switch"):
		return p.parseSwitchStatement()
	case p.PeekIs("while"):
		return p.parseWhileStatement()
	case p.PeekIs("return"):
		return p.parseReturnStatement()
	}

	receiver := p.parseExpression()
	if p.match("=") {
		value := p.parseExpression()
		end := p.LexExpecting(";")
		return &ast.Assignment{
			Receiver: receiver,
			Value:    value,
			Location: types.Join(receiver.Span(), end.Location),
		}
	}

	end := p.LexExpecting(";")
	return &ast.ExpressionStatement{
		Expression: receiver,
		Location:   types.Join(receiver.Span(), end.Location),
	}
}

// parseDeclarationStatement parses what follows let, val or var.
func (p *Parser) parseDeclarationStatement(start types.Token) *ast.Declaration {
	name := p.lexName("variable name")
	decl := &ast.Declaration{
		Name:     name.Text,
		TypeName: p.parseTypeAnnotation(),
	}
	if p.match("=") {
		decl.Value = p.parseExpression()
	}
	if decl.TypeName == "" && decl.Value == nil {
		p.fail(fmt.Sprintf("declaration of %s needs a type or an initial value", name.Text))
	}
	end := p.LexExpecting(";")
	decl.Location = types.Join(start.Location, end.Location)
	return decl
}

func (p *Parser) parseIfStatement() *ast.If {
	start := p.LexExpecting("if")
	stmt := &ast.If{Condition: p.parseExpression()}
	p.LexExpecting("do")

	stmt.Then = p.parseBlock("else", "end")
	if p.match("else") {
		stmt.Else = p.parseBlock("else", "end")
		if p.PeekIs("else") {
			p.fail("an if statement has at most one else")
		}
	}
	end := p.LexExpecting("end")

	stmt.Location = types.Join(start.Location, end.Location)
	return stmt
}

func (p *Parser) parseSwitchStatement() *ast.Switch {
	start := p.LexExpecting("switch")
	stmt := &ast.Switch{Condition: p.parseExpression()}

	sawDefault := false
	for p.PeekIs("case", "default") {
		if p.PeekIs("default") {
			if sawDefault {
				p.fail("a switch statement has at most one default")
			}
			sawDefault = true
		}
		stmt.Cases = append(stmt.Cases, p.parseCaseStatement())
	}
	end := p.LexExpecting("end")

	stmt.Location = types.Join(start.Location, end.Location)
	return stmt
}

func (p *Parser) parseCaseStatement() *ast.Case {
	c := &ast.Case{}
	start := p.LexExpecting("case", "default")
	if start.Text == "case" {
		c.Value = p.parseExpression()
		p.LexExpecting(":")
	}
	c.Statements = p.parseBlock("case", "default", "end")

	c.Location = start.Location
	if len(c.Statements) > 0 {
		c.Location = types.Join(start.Location, c.Statements[len(c.Statements)-1].Span())
	}
	return c
}

func (p *Parser) parseWhileStatement() *ast.While {
	start := p.LexExpecting("while")
	stmt := &ast.While{Condition: p.parseExpression()}
	p.LexExpecting("do")
	stmt.Statements = p.parseBlock("end")
	end := p.LexExpecting("end")

	stmt.Location = types.Join(start.Location, end.Location)
	return stmt
}

func (p *Parser) parseReturnStatement() *ast.Return {
	start := p.LexExpecting("return")
	stmt := &ast.Return{Value: p.parseExpression()}
	end := p.LexExpecting(";")

	stmt.Location = types.Join(start.Location, end.Location)
	return stmt
}

func (p *Parser) parseExpression() ast.Expression {
	return p.parseLogicalExpression()
}

func (p *Parser) parseLogicalExpression() ast.Expression {
	return p.parseBinary(p.parseComparisonExpression, "&&", "||")
}

func (p *Parser) parseComparisonExpression() ast.Expression {
	return p.parseBinary(p.parseAdditiveExpression, "==", "!=", "<", ">", "<=", ">=")
}

func (p *Parser) parseAdditiveExpression() ast.Expression {
	return p.parseBinary(p.parseMultiplicativeExpression, "+", "-")
}

func (p *Parser) parseMultiplicativeExpression() ast.Expression {
	return p.parseBinary(p.parsePrimaryExpression, "*", "/", "^")
}

// parseBinary chains operators of one precedence level to the left.
func (p *Parser) parseBinary(operand func() ast.Expression, operators ...string) ast.Expression {
	left := operand()
	for p.PeekIs(operators...) {
		op := p.LexExpecting(operators...)
		right := operand()
		left = &ast.Binary{
			Meta:     ast.Meta{Location: types.Join(left.Span(), right.Span())},
			Operator: op.Text,
			Left:     left,
			Right:    right,
		}
	}
	return left
}

func literal(tok types.Token, v value.Value) *ast.Literal {
	return &ast.Literal{Meta: ast.Meta{Location: tok.Location}, Value: v}
}

func (p *Parser) parsePrimaryExpression() ast.Expression {
	if !p.has(0) {
		p.fail("expected an expression, got end of input")
	}
	tok := p.tokens[p.index]
	p.index++

	switch tok.Kind {
	case types.Integer:
		i, ok := new(big.Int).SetString(strings.TrimPrefix(tok.Text, "+"), 10)
		if !ok {
			p.index--
			p.fail(fmt.Sprintf("malformed integer %s", tok.Text))
		}
		return literal(tok, value.Integer{X: i})
	case types.Decimal:
		d, err := decimal.NewFromString(strings.TrimPrefix(tok.Text, "+"))
		if err != nil {
			p.index--
			p.fail(fmt.Sprintf("malformed decimal %s", tok.Text))
		}
		return literal(tok, value.Decimal{X: d})
	case types.Character:
		runes := []rune(unescape(tok.Text[1 : len(tok.Text)-1]))
		return literal(tok, value.Character(runes[0]))
	case types.String:
		return literal(tok, value.String(unescape(tok.Text[1:len(tok.Text)-1])))
	case types.Operator:
		if tok.Text == "(" {
			inner := p.parseExpression()
			closer := p.LexExpecting(")")
			return &ast.Group{
				Meta:       ast.Meta{Location: types.Join(tok.Location, closer.Location)},
				Expression: inner,
			}
		}
	case types.Identifier:
		switch tok.Text {
		case "true":
			return literal(tok, value.Boolean(true))
		case "false":
			return literal(tok, value.Boolean(false))
		case "nil":
			return literal(tok, value.Nil{})
		}
		if keywords[tok.Text] {
			break
		}
		return p.parseIdentifierExpression(tok)
	}

	p.index--
	p.fail(fmt.Sprintf("expected an expression, got %s", p.describeCurrent()))
	return nil
}

func (p *Parser) parseIdentifierExpression(name types.Token) ast.Expression {
	if p.match("(") {
		args, closer := p.parseArguments(")")
		return &ast.Call{
			Meta:      ast.Meta{Location: types.Join(name.Location, closer.Location)},
			Name:      name.Text,
			Arguments: args,
		}
	}

	if p.match("[") {
		offset := p.parseExpression()
		closer := p.LexExpecting("]")
		return &ast.Access{
			Meta:   ast.Meta{Location: types.Join(name.Location, closer.Location)},
			Offset: offset,
			Name:   name.Text,
		}
	}

	return &ast.Access{
		Meta: ast.Meta{Location: name.Location},
		Name: name.Text,
	}
}

// parseArguments parses a comma separated expression list after its opening
// bracket, up to and including closing.
func (p *Parser) parseArguments(closing string) ([]ast.Expression, types.Token) {
	var args []ast.Expression
	if !p.PeekIs(closing) {
		for {
			args = append(args, p.parseExpression())
			if p.match(",") {
				if p.PeekIs(closing) {
					p.fail("trailing comma before '" + closing + "'")
				}
				continue
			}
			break
		}
	}
	return args, p.LexExpecting(closing)
}

func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}

	var b strings.Builder
	escaped := false
	for _, r := range s {
		if !escaped {
			if r == '\\' {
				escaped = true
			} else {
				b.WriteRune(r)
			}
			continue
		}
		escaped = false
		switch r {
		case 'b':
			b.WriteRune('\b')
		case 'r':
			b.WriteRune('\r')
		case 'n':
			b.WriteRune('\n')
		case 't':
			b.WriteRune('\t')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
