package lexer

import (
	"testing"

	"github.com/WoolenSweater/rosstat-flc/token"
)

func TestKeywordRecognition(t *testing.T) {
	tests := []struct {
		input    string
		expected token.Type
	}{
		{"and", token.AND},
		{"OR", token.OR},
		{"abs", token.ABS},
		{"Round", token.ROUND},
		{"isnull", token.ISNULL},
		{"coalesce", token.COALESCE},
	}

	for _, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()
		if tok.Type != tt.expected {
			t.Errorf("input %q: expected token type %v, got %v (literal: %q)",
				tt.input, tt.expected, tok.Type, tok.Literal)
		}
	}
}

func TestSimpleArithmetic(t *testing.T) {
	input := "{[1][2][3]} + 5"

	expected := []struct {
		typ     token.Type
		literal string
	}{
		{token.CODE, "[1][2][3]"},
		{token.PLUS, "+"},
		{token.NUM, "5"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, e := range expected {
		tok := l.NextToken()
		if tok.Type != e.typ {
			t.Errorf("token %d: expected type %v, got %v", i, e.typ, tok.Type)
		}
		if tok.Literal != e.literal {
			t.Errorf("token %d: expected literal %q, got %q", i, e.literal, tok.Literal)
		}
	}
}

func TestComparisonOperators(t *testing.T) {
	tests := []struct {
		input    string
		expected token.Type
	}{
		{"|<|", token.LT},
		{"|<=|", token.LTE},
		{"|=|", token.EQ},
		{"|>=|", token.GTE},
		{"|>|", token.GT},
		{"|<>|", token.NEQ},
	}

	for _, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()
		if tok.Type != tt.expected {
			t.Errorf("input %q: expected type %v, got %v", tt.input, tt.expected, tok.Type)
		}
		if tok.Literal != tt.input {
			t.Errorf("input %q: expected literal %q, got %q", tt.input, tt.input, tok.Literal)
		}
	}
}

func TestCodeWithSpecifics(t *testing.T) {
	input := "{[1][2-4][*][7][8][9]}"
	want := "[1][2-4][*][7][8][9]"
	l := New(input)
	tok := l.NextToken()
	if tok.Type != token.CODE {
		t.Errorf("expected CODE, got %v", tok.Type)
	}
	if tok.Literal != want {
		t.Errorf("expected literal %q, got %q", want, tok.Literal)
	}
	tok = l.NextToken()
	if tok.Type != token.EOF {
		t.Errorf("expected EOF after code, got %v", tok.Type)
	}
}

func TestFunctionCallTokens(t *testing.T) {
	input := "round({[1][2][3]},2)"
	expected := []token.Type{
		token.ROUND, token.LPAREN, token.CODE, token.COMMA, token.NUM, token.RPAREN, token.EOF,
	}
	l := New(input)
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want {
			t.Errorf("token %d: expected %v, got %v", i, want, tok.Type)
		}
	}
}
