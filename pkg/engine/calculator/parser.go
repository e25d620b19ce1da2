package calculator

import (
	"fmt"
	"strings"

	"github.com/harun/mathroute/pkg/faults"
)

// node is an element of the parsed expression tree.
type node interface {
	eval() (float64, error)
}

type numberNode struct {
	value float64
}

type unaryNode struct {
	op      tokenKind
	operand node
}

type binaryNode struct {
	op          tokenKind
	left, right node
}

type callNode struct {
	name string
	fn   function
	args []node
}

// parser is a recursive-descent parser over the arithmetic grammar:
//
//	expr    = term { ("+" | "-") term }
//	term    = unary { ("*" | "/" | "%") unary }
//	unary   = ("+" | "-") unary | power
//	power   = primary [ "**" unary ]
//	primary = number | constant | function "(" [ expr { "," expr } ] ")" | "(" expr ")"
//
// "**" binds tighter than unary minus on its left and is right-associative,
// so -2**2 is -4 and 2**3**2 is 512.
type parser struct {
	tokens []token
	pos    int
	depth  int
}

func parse(tokens []token) (node, error) {
	p := &parser{tokens: tokens}
	n, err := p.expr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, syntaxError(tok, "unexpected %s", describe(tok))
	}
	return n, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return faults.New(faults.UnsafeExpression, "expression", "expression nested deeper than %d levels", maxDepth)
	}
	return nil
}

func (p *parser) leave() {
	p.depth--
}

func (p *parser) expr() (node, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokPlus && tok.kind != tokMinus {
			return left, nil
		}
		p.next()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: tok.kind, left: left, right: right}
	}
}

func (p *parser) term() (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokStar && tok.kind != tokSlash && tok.kind != tokPercent {
			return left, nil
		}
		p.next()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: tok.kind, left: left, right: right}
	}
}

func (p *parser) unary() (node, error) {
	tok := p.peek()
	if tok.kind != tokPlus && tok.kind != tokMinus {
		return p.power()
	}

	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	p.next()
	operand, err := p.unary()
	if err != nil {
		return nil, err
	}
	return &unaryNode{op: tok.kind, operand: operand}, nil
}

func (p *parser) power() (node, error) {
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokPow {
		return base, nil
	}

	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	p.next()
	exponent, err := p.unary()
	if err != nil {
		return nil, err
	}
	return &binaryNode{op: tokPow, left: base, right: exponent}, nil
}

func (p *parser) primary() (node, error) {
	tok := p.next()

	switch tok.kind {
	case tokNumber:
		return &numberNode{value: tok.num}, nil

	case tokLParen:
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()

		inner, err := p.expr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, syntaxError(closing, "expected ')' but found %s", describe(closing))
		}
		return inner, nil

	case tokIdent:
		return p.identifier(tok)

	default:
		return nil, syntaxError(tok, "unexpected %s", describe(tok))
	}
}

func (p *parser) identifier(tok token) (node, error) {
	name := strings.ToLower(tok.text)

	if value, ok := constants[name]; ok {
		if p.peek().kind == tokLParen {
			return nil, faults.New(faults.UnsafeExpression, "expression", "constant %q cannot be called", tok.text)
		}
		return &numberNode{value: value}, nil
	}

	fn, ok := functions[name]
	if !ok {
		return nil, faults.New(faults.UnsafeExpression, "expression", "identifier %q is not an allowed function or constant", tok.text)
	}
	if p.peek().kind != tokLParen {
		return nil, faults.New(faults.UnsafeExpression, "expression", "function %q must be called with arguments", tok.text)
	}

	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	p.next()
	var args []node
	if p.peek().kind != tokRParen {
		for {
			arg, err := p.expr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	if closing := p.next(); closing.kind != tokRParen {
		return nil, syntaxError(closing, "expected ')' after arguments of %s but found %s", name, describe(closing))
	}

	if len(args) < fn.minArgs || (fn.maxArgs >= 0 && len(args) > fn.maxArgs) {
		return nil, faults.New(faults.UnsafeExpression, "expression", "function %s called with %d argument(s)", name, len(args))
	}

	return &callNode{name: name, fn: fn, args: args}, nil
}

func describe(tok token) string {
	if tok.text == "" {
		return tok.kind.String()
	}
	return "'" + tok.text + "'"
}

func syntaxError(tok token, format string, args ...interface{}) error {
	return faults.New(faults.UnsafeExpression, "expression", "syntax error at position %d: %s", tok.pos, fmt.Sprintf(format, args...))
}
