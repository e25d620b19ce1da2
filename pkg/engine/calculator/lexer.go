package calculator

import (
	"errors"
	"strconv"

	"github.com/harun/mathroute/pkg/faults"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokPercent
	tokPow
	tokLParen
	tokRParen
	tokComma
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of expression"
	case tokNumber:
		return "number"
	case tokIdent:
		return "identifier"
	case tokPlus:
		return "'+'"
	case tokMinus:
		return "'-'"
	case tokStar:
		return "'*'"
	case tokSlash:
		return "'/'"
	case tokPercent:
		return "'%'"
	case tokPow:
		return "'**'"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokComma:
		return "','"
	}
	return "unknown"
}

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

// tokenize splits an expression into tokens. Any byte outside the arithmetic
// alphabet is rejected here, before parsing starts.
func tokenize(expr string) ([]token, error) {
	var tokens []token
	i := 0

	for i < len(expr) {
		c := expr[i]

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case isDigit(c) || (c == '.' && i+1 < len(expr) && isDigit(expr[i+1])):
			start := i
			for i < len(expr) && isDigit(expr[i]) {
				i++
			}
			if i < len(expr) && expr[i] == '.' {
				i++
				for i < len(expr) && isDigit(expr[i]) {
					i++
				}
			}
			if i < len(expr) && (expr[i] == 'e' || expr[i] == 'E') {
				j := i + 1
				if j < len(expr) && (expr[j] == '+' || expr[j] == '-') {
					j++
				}
				if j < len(expr) && isDigit(expr[j]) {
					i = j
					for i < len(expr) && isDigit(expr[i]) {
						i++
					}
				}
			}
			text := expr[start:i]
			num, err := strconv.ParseFloat(text, 64)
			if errors.Is(err, strconv.ErrRange) {
				return nil, domainError("number %q at position %d is outside the finite range", text, start)
			}
			if err != nil {
				return nil, faults.New(faults.UnsafeExpression, "expression", "malformed number %q at position %d", text, start)
			}
			tokens = append(tokens, token{kind: tokNumber, text: text, num: num, pos: start})

		case isIdentStart(c):
			start := i
			for i < len(expr) && isIdentPart(expr[i]) {
				i++
			}
			tokens = append(tokens, token{kind: tokIdent, text: expr[start:i], pos: start})

		case c == '*':
			if i+1 < len(expr) && expr[i+1] == '*' {
				tokens = append(tokens, token{kind: tokPow, text: "**", pos: i})
				i += 2
			} else {
				tokens = append(tokens, token{kind: tokStar, text: "*", pos: i})
				i++
			}

		default:
			kind, ok := singleCharTokens[c]
			if !ok {
				return nil, faults.New(faults.UnsafeExpression, "expression", "disallowed character %q at position %d", rune(c), i)
			}
			tokens = append(tokens, token{kind: kind, text: string(c), pos: i})
			i++
		}
	}

	tokens = append(tokens, token{kind: tokEOF, pos: len(expr)})
	return tokens, nil
}

var singleCharTokens = map[byte]tokenKind{
	'+': tokPlus,
	'-': tokMinus,
	'/': tokSlash,
	'%': tokPercent,
	'(': tokLParen,
	')': tokRParen,
	',': tokComma,
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
