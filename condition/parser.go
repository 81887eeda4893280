package condition

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrMalformed is returned for expressions that do not conform to the grammar.
// Callers are expected to treat the predicate as false and surface the
// diagnostic rather than fail the session.
var ErrMalformed = errors.New("malformed condition")

// node is a parsed expression tree node.
type node interface {
	eval(data map[string]any) any
}

// binaryNode applies a comparison or boolean operator to two operands.
type binaryNode struct {
	op    string
	left  node
	right node
}

// notNode negates the truthiness of its child.
type notNode struct {
	child node
}

// identNode resolves a variable from collected data; missing variables
// evaluate to nil.
type identNode struct {
	name string
}

// literalNode holds a constant: float64, string, bool, or nil.
type literalNode struct {
	value any
}

// existsNode checks whether a variable is present in collected data.
type existsNode struct {
	name string
}

// parser consumes a token stream and produces an expression tree.
type parser struct {
	tokens []token
	pos    int
}

// parse compiles an expression string into a tree.
func parse(input string) (node, error) {
	tokens, err := newLexer(input).lexAll()
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.current().typ != tokenEOF {
		return nil, p.errorf("unexpected %q after expression", p.current().text)
	}
	return n, nil
}

func (p *parser) current() token { return p.tokens[p.pos] }

func (p *parser) advance() token {
	t := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s at position %d", ErrMalformed,
		fmt.Sprintf(format, args...), p.current().pos)
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isKeywordOrOp("or", "||") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: "or", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.isKeywordOrOp("and", "&&") {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: "and", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (node, error) {
	if p.isKeywordOrOp("not", "!") {
		p.advance()
		child, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &notNode{child: child}, nil
	}
	return p.parseComparison()
}

// comparisonOps are the binary operators allowed between two operands.
var comparisonOps = map[string]bool{
	"==": true, "!=": true, ">": true, "<": true, ">=": true, "<=": true,
	"contains": true,
}

func (p *parser) parseComparison() (node, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	tok := p.current()
	var op string
	switch {
	case tok.typ == tokenOp && comparisonOps[tok.text]:
		op = tok.text
	case tok.typ == tokenIdent && tok.text == "contains":
		op = "contains"
	default:
		return left, nil
	}
	p.advance()

	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return &binaryNode{op: op, left: left, right: right}, nil
}

func (p *parser) parseOperand() (node, error) {
	tok := p.current()
	switch tok.typ {
	case tokenNumber:
		p.advance()
		f, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, p.errorf("invalid number %q", tok.text)
		}
		return &literalNode{value: f}, nil

	case tokenString:
		p.advance()
		return &literalNode{value: tok.text}, nil

	case tokenIdent:
		switch tok.text {
		case "true":
			p.advance()
			return &literalNode{value: true}, nil
		case "false":
			p.advance()
			return &literalNode{value: false}, nil
		case "null":
			p.advance()
			return &literalNode{value: nil}, nil
		case "exists":
			return p.parseExists()
		case "and", "or", "not", "contains":
			return nil, p.errorf("keyword %q cannot be used as an operand", tok.text)
		default:
			p.advance()
			return &identNode{name: tok.text}, nil
		}

	case tokenLParen:
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.current().typ != tokenRParen {
			return nil, p.errorf("expected ')'")
		}
		p.advance()
		return inner, nil

	default:
		return nil, p.errorf("unexpected %q", tok.text)
	}
}

// parseExists parses the exists(ident) existence check.
func (p *parser) parseExists() (node, error) {
	p.advance() // "exists"
	if p.current().typ != tokenLParen {
		return nil, p.errorf("expected '(' after exists")
	}
	p.advance()
	if p.current().typ != tokenIdent {
		return nil, p.errorf("expected variable name inside exists()")
	}
	name := p.advance().text
	if p.current().typ != tokenRParen {
		return nil, p.errorf("expected ')' to close exists()")
	}
	p.advance()
	return &existsNode{name: name}, nil
}

func (p *parser) isKeywordOrOp(keyword, op string) bool {
	tok := p.current()
	return (tok.typ == tokenIdent && tok.text == keyword) ||
		(tok.typ == tokenOp && tok.text == op)
}
