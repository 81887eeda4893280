// Package condition implements a safe boolean expression evaluator for
// scenario transition predicates.
//
// Expressions are evaluated over a session's collected data. The grammar is
// deliberately restricted: comparisons, substring containment, existence
// checks, and boolean combinators. There is no function call mechanism beyond
// exists(), no assignment, and no access to anything outside the provided
// data map, so scenario authors cannot execute arbitrary code.
//
//	expr    := or
//	or      := and { ("or" | "||") and }
//	and     := not { ("and" | "&&") not }
//	not     := ["not" | "!"] cmp
//	cmp     := operand [ ("==" | "!=" | ">" | "<" | ">=" | "<=" | "contains") operand ]
//	operand := number | string | true | false | null | ident
//	         | "(" expr ")" | "exists" "(" ident ")"
package condition

import (
	"fmt"
	"strings"
	"unicode"
)

// tokenType classifies a lexical token.
type tokenType int

const (
	tokenEOF tokenType = iota
	tokenIdent
	tokenNumber
	tokenString
	tokenOp
	tokenLParen
	tokenRParen
)

// token is a single lexical token with its source position for error reporting.
type token struct {
	typ  tokenType
	text string
	pos  int
}

// lexer splits an expression into tokens.
type lexer struct {
	input string
	pos   int
}

func newLexer(input string) *lexer {
	return &lexer{input: input}
}

// lexAll tokenizes the entire input.
func (l *lexer) lexAll() ([]token, error) {
	var tokens []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.typ == tokenEOF {
			return tokens, nil
		}
	}
}

// next returns the next token from the input.
func (l *lexer) next() (token, error) {
	l.skipWhitespace()
	if l.pos >= len(l.input) {
		return token{typ: tokenEOF, pos: l.pos}, nil
	}

	start := l.pos
	c := l.input[l.pos]

	switch {
	case c == '(':
		l.pos++
		return token{typ: tokenLParen, text: "(", pos: start}, nil
	case c == ')':
		l.pos++
		return token{typ: tokenRParen, text: ")", pos: start}, nil
	case c == '"' || c == '\'':
		return l.lexString(c)
	case isDigit(c) || (c == '-' && l.pos+1 < len(l.input) && isDigit(l.input[l.pos+1])):
		return l.lexNumber()
	case isIdentStart(c):
		return l.lexIdent()
	default:
		return l.lexOperator()
	}
}

func (l *lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
}

// lexString reads a quoted string, honoring backslash escapes for the quote
// character and backslash itself.
func (l *lexer) lexString(quote byte) (token, error) {
	start := l.pos
	l.pos++ // opening quote
	var sb strings.Builder
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if c == '\\' && l.pos+1 < len(l.input) {
			nxt := l.input[l.pos+1]
			if nxt == quote || nxt == '\\' {
				sb.WriteByte(nxt)
				l.pos += 2
				continue
			}
		}
		if c == quote {
			l.pos++
			return token{typ: tokenString, text: sb.String(), pos: start}, nil
		}
		sb.WriteByte(c)
		l.pos++
	}
	return token{}, fmt.Errorf("%w: unterminated string at position %d", ErrMalformed, start)
}

func (l *lexer) lexNumber() (token, error) {
	start := l.pos
	if l.input[l.pos] == '-' {
		l.pos++
	}
	seenDot := false
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if c == '.' && !seenDot {
			seenDot = true
			l.pos++
			continue
		}
		if !isDigit(c) {
			break
		}
		l.pos++
	}
	return token{typ: tokenNumber, text: l.input[start:l.pos], pos: start}, nil
}

// lexIdent reads an identifier or keyword. Dots are allowed so collected
// variables can use namespaced names like "profile.age".
func (l *lexer) lexIdent() (token, error) {
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
		l.pos++
	}
	return token{typ: tokenIdent, text: l.input[start:l.pos], pos: start}, nil
}

// lexOperator reads one of the symbolic operators.
func (l *lexer) lexOperator() (token, error) {
	start := l.pos
	two := ""
	if l.pos+2 <= len(l.input) {
		two = l.input[l.pos : l.pos+2]
	}
	switch two {
	case "==", "!=", ">=", "<=", "&&", "||":
		l.pos += 2
		return token{typ: tokenOp, text: two, pos: start}, nil
	}
	switch l.input[l.pos] {
	case '>', '<', '!':
		op := string(l.input[l.pos])
		l.pos++
		return token{typ: tokenOp, text: op, pos: start}, nil
	}
	return token{}, fmt.Errorf("%w: unexpected character %q at position %d",
		ErrMalformed, string(l.input[l.pos]), start)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '.'
}
