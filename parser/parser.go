// Package parser implements a Pratt parser for the control-expression DSL.
// It builds operand.Checkable trees directly from the token stream, the
// same way the original grammar's yacc semantic actions construct
// Elem/ElemList/ElemLogic/ElemSelector objects with no separate AST pass.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/WoolenSweater/rosstat-flc/lexer"
	"github.com/WoolenSweater/rosstat-flc/operand"
	"github.com/WoolenSweater/rosstat-flc/specific"
	"github.com/WoolenSweater/rosstat-flc/token"
)

// Operator precedence levels, lowest to highest binding.
const (
	_ int = iota
	LOWEST
	LOGIC   // and, or
	COMPARE // |<| |<=| |=| |>=| |>| |<>|
	SUM     // + -
	PRODUCT // * /
	PREFIX  // unary -
	CALL    // f(...)
)

var precedences = map[token.Type]int{
	token.AND:      LOGIC,
	token.OR:       LOGIC,
	token.LT:       COMPARE,
	token.LTE:      COMPARE,
	token.EQ:       COMPARE,
	token.GTE:      COMPARE,
	token.GT:       COMPARE,
	token.NEQ:      COMPARE,
	token.PLUS:     SUM,
	token.MINUS:    SUM,
	token.ASTERISK: PRODUCT,
	token.SLASH:    PRODUCT,
}

var logicOpName = map[token.Type]string{
	token.LT:  "<",
	token.LTE: "<=",
	token.EQ:  "=",
	token.GTE: ">=",
	token.GT:  ">",
	token.NEQ: "<>",
	token.AND: "and",
	token.OR:  "or",
}

var mathOpName = map[token.Type]string{
	token.PLUS:     "+",
	token.MINUS:    "-",
	token.ASTERISK: "*",
	token.SLASH:    "/",
}

type (
	prefixParseFn func() operand.Checkable
	infixParseFn  func(operand.Checkable) operand.Checkable
)

// Parser turns a formula's token stream into an operand.Checkable tree.
type Parser struct {
	l      *lexer.Lexer
	errors []string

	curToken  token.Token
	peekToken token.Token

	prefixParseFns map[token.Type]prefixParseFn
	infixParseFns  map[token.Type]infixParseFn
}

// New creates a Parser reading from l.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}

	p.prefixParseFns = make(map[token.Type]prefixParseFn)
	p.registerPrefix(token.NUM, p.parseNumberLiteral)
	p.registerPrefix(token.CODE, p.parseCodeLiteral)
	p.registerPrefix(token.MINUS, p.parseUnaryMinus)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(token.COALESCE, p.parseSelector)
	p.registerPrefix(token.NULLIF, p.parseSelector)
	p.registerPrefix(token.ABS, p.parseUnaryFuncPrefix)
	p.registerPrefix(token.FLOOR, p.parseUnaryFuncPrefix)
	p.registerPrefix(token.SUM, p.parseSum)
	p.registerPrefix(token.ROUND, p.parseBinaryFuncCall)
	p.registerPrefix(token.ISNULL, p.parseBinaryFuncCall)

	p.infixParseFns = make(map[token.Type]infixParseFn)
	for _, t := range []token.Type{token.LT, token.LTE, token.EQ, token.GTE, token.GT, token.NEQ, token.AND, token.OR} {
		p.registerInfix(t, p.parseLogicExpression)
	}
	for _, t := range []token.Type{token.PLUS, token.MINUS, token.ASTERISK, token.SLASH} {
		p.registerInfix(t, p.parseMathExpression)
	}

	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) registerPrefix(t token.Type, fn prefixParseFn) { p.prefixParseFns[t] = fn }
func (p *Parser) registerInfix(t token.Type, fn infixParseFn)   { p.infixParseFns[t] = fn }

// Errors returns every parse error accumulated so far.
func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) expectPeek(t token.Type) bool {
	if p.peekToken.Type == t {
		p.nextToken()
		return true
	}
	p.errors = append(p.errors, fmt.Sprintf("line %d: expected next token %v, got %v (%q)",
		p.peekToken.Line, t, p.peekToken.Type, p.peekToken.Literal))
	return false
}

// ParseFormula parses a complete control-expression formula.
func (p *Parser) ParseFormula() operand.Checkable {
	expr := p.parseExpression(LOWEST)
	if p.peekToken.Type != token.EOF {
		p.errors = append(p.errors, fmt.Sprintf("line %d: unexpected trailing token %v", p.peekToken.Line, p.peekToken.Type))
	}
	return expr
}

func (p *Parser) parseExpression(precedence int) operand.Checkable {
	prefix, ok := p.prefixParseFns[p.curToken.Type]
	if !ok {
		p.errors = append(p.errors, fmt.Sprintf("line %d: no prefix parse function for %v", p.curToken.Line, p.curToken.Type))
		return nil
	}
	left := prefix()

	for p.peekToken.Type != token.EOF && precedence < p.peekPrecedence() {
		infix, ok := p.infixParseFns[p.peekToken.Type]
		if !ok {
			return left
		}
		p.nextToken()
		left = infix(left)
	}
	return left
}

func (p *Parser) parseNumberLiteral() operand.Checkable {
	f, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.errors = append(p.errors, fmt.Sprintf("line %d: invalid number %q", p.curToken.Line, p.curToken.Literal))
		return operand.Scalar(0)
	}
	return operand.Scalar(f)
}

func (p *Parser) parseCodeLiteral() operand.Checkable {
	groups := splitBrackets(p.curToken.Literal)
	var section string
	var rows, columns []string
	var specs [3]*specific.Specific

	for i, g := range groups {
		switch i {
		case 0:
			if len(g) > 0 {
				section = g[0]
			}
		case 1:
			rows = g
		case 2:
			columns = g
		case 3, 4, 5:
			specs[i-3] = specific.New(g)
		}
	}
	for i := 0; i < 3; i++ {
		if specs[i] == nil {
			specs[i] = specific.Any()
		}
	}
	return operand.NewElemList(section, rows, columns, specs)
}

// splitBrackets splits a "[a][b,c][d]" literal into its bracket groups,
// each further split on commas into its individual codes.
func splitBrackets(literal string) [][]string {
	var groups [][]string
	var cur strings.Builder
	inBracket := false
	for _, r := range literal {
		switch r {
		case '[':
			inBracket = true
			cur.Reset()
		case ']':
			inBracket = false
			parts := strings.Split(cur.String(), ",")
			for i, s := range parts {
				parts[i] = strings.TrimSpace(s)
			}
			groups = append(groups, parts)
		default:
			if inBracket {
				cur.WriteRune(r)
			}
		}
	}
	return groups
}

func (p *Parser) parseUnaryMinus() operand.Checkable {
	p.nextToken()
	operand_ := p.parseExpression(PREFIX)
	return negate(operand_)
}

// negate applies unary negation in place, matching Elem.__neg__ and
// ElemList.__neg__ (both mutate and return the receiver).
func negate(c operand.Checkable) operand.Checkable {
	switch v := c.(type) {
	case *operand.Elem:
		return v.Neg()
	case funcAdder:
		v.AddFunc("neg")
		return c
	default:
		return c
	}
}

func (p *Parser) parseGroupedExpression() operand.Checkable {
	p.nextToken()
	expr := p.parseExpression(LOWEST)
	if !p.expectPeek(token.RPAREN) {
		return expr
	}
	return expr
}

// funcAdder is implemented by operand.ElemList and operand.ElemSelector,
// the two Checkable kinds that can still queue a function application.
type funcAdder interface {
	AddFunc(name string, args ...operand.Checkable)
}

func (p *Parser) parseUnaryFuncPrefix() operand.Checkable {
	name := strings.ToLower(p.curToken.Literal)
	p.nextToken()
	target := p.parseExpression(CALL)
	return applyUnary(name, target)
}

func applyUnary(name string, target operand.Checkable) operand.Checkable {
	switch v := target.(type) {
	case funcAdder:
		v.AddFunc(name)
		return target
	case *operand.Elem:
		switch name {
		case "abs":
			return v.Abs()
		case "floor":
			return v.Floor()
		}
	}
	return target
}

func (p *Parser) parseSum() operand.Checkable {
	if p.peekToken.Type == token.LPAREN {
		p.nextToken() // consume SUM, cur = LPAREN
		p.nextToken() // move into the expression
		target := p.parseExpression(LOWEST)
		if !p.expectPeek(token.RPAREN) {
			return target
		}
		return applyUnary("sum", target)
	}
	p.nextToken()
	target := p.parseExpression(CALL)
	return applyUnary("sum", target)
}

// parseBinaryFuncCall parses ROUND(elem, elem, ...) / ISNULL(elem, elem).
// The first comma-separated operand is the target; the rest are queued as
// the function's arguments, resolved lazily when the target is checked.
func (p *Parser) parseBinaryFuncCall() operand.Checkable {
	name := strings.ToLower(p.curToken.Literal)
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	elems := p.parseExpressionList()

	if len(elems) == 0 {
		return nil
	}
	target := elems[0]
	if fa, ok := target.(funcAdder); ok {
		fa.AddFunc(name, elems[1:]...)
	}
	return target
}

func (p *Parser) parseSelector() operand.Checkable {
	action := strings.ToLower(p.curToken.Literal)
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	elems := p.parseExpressionList()
	return operand.NewElemSelector(action, elems...)
}

// parseExpressionList parses a comma-separated list of expressions,
// leaving curToken on the closing RPAREN.
func (p *Parser) parseExpressionList() []operand.Checkable {
	var list []operand.Checkable
	if p.curToken.Type == token.RPAREN {
		return list
	}
	list = append(list, p.parseExpression(LOWEST))
	for p.peekToken.Type == token.COMMA {
		p.nextToken()
		p.nextToken()
		list = append(list, p.parseExpression(LOWEST))
	}
	if !p.expectPeek(token.RPAREN) {
		return list
	}
	return list
}

func (p *Parser) parseLogicExpression(left operand.Checkable) operand.Checkable {
	opName := logicOpName[p.curToken.Type]
	precedence := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(precedence)
	return operand.NewElemLogic(left, opName, right)
}

func (p *Parser) parseMathExpression(left operand.Checkable) operand.Checkable {
	opName := mathOpName[p.curToken.Type]
	precedence := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(precedence)
	if fa, ok := left.(funcAdder); ok {
		fa.AddFunc(opName, right)
		return left
	}
	if l, ok := left.(*operand.Elem); ok {
		if r, ok := right.(*operand.Elem); ok {
			switch opName {
			case "+":
				return l.Add(r)
			case "-":
				return l.Sub(r)
			case "*":
				return l.Mul(r)
			case "/":
				return l.Div(r)
			}
		}
	}
	return left
}

// ParseExpr is a convenience entry point: lex and parse a formula string in
// one call, returning the resolved tree and any parse errors.
func ParseExpr(src string) (operand.Checkable, []string) {
	p := New(lexer.New(src))
	expr := p.ParseFormula()
	return expr, p.Errors()
}
