package calculator

import (
	"math"

	"github.com/harun/mathroute/pkg/faults"
)

type function struct {
	minArgs int
	maxArgs int // -1 for variadic
	call    func(args []float64) (float64, error)
}

var constants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

var functions = map[string]function{
	"abs":   unary(math.Abs),
	"cbrt":  unary(math.Cbrt),
	"exp":   unary(math.Exp),
	"floor": unary(math.Floor),
	"ceil":  unary(math.Ceil),
	"round": unary(math.Round),
	"trunc": unary(math.Trunc),
	"sqrt": {minArgs: 1, maxArgs: 1, call: func(a []float64) (float64, error) {
		if a[0] < 0 {
			return 0, domainError("sqrt of negative number %g", a[0])
		}
		return math.Sqrt(a[0]), nil
	}},
	"ln": {minArgs: 1, maxArgs: 1, call: func(a []float64) (float64, error) {
		return logBase(a[0], math.E)
	}},
	"log": {minArgs: 1, maxArgs: 2, call: func(a []float64) (float64, error) {
		if len(a) == 2 {
			return logBase(a[0], a[1])
		}
		return logBase(a[0], math.E)
	}},
	"log2": {minArgs: 1, maxArgs: 1, call: func(a []float64) (float64, error) {
		return logBase(a[0], 2)
	}},
	"log10": {minArgs: 1, maxArgs: 1, call: func(a []float64) (float64, error) {
		return logBase(a[0], 10)
	}},
	"min": {minArgs: 1, maxArgs: -1, call: func(a []float64) (float64, error) {
		m := a[0]
		for _, v := range a[1:] {
			m = math.Min(m, v)
		}
		return m, nil
	}},
	"max": {minArgs: 1, maxArgs: -1, call: func(a []float64) (float64, error) {
		m := a[0]
		for _, v := range a[1:] {
			m = math.Max(m, v)
		}
		return m, nil
	}},
	"pow": {minArgs: 2, maxArgs: 2, call: func(a []float64) (float64, error) {
		return power(a[0], a[1])
	}},
	"hypot": {minArgs: 2, maxArgs: 2, call: func(a []float64) (float64, error) {
		return math.Hypot(a[0], a[1]), nil
	}},
}

func unary(f func(float64) float64) function {
	return function{minArgs: 1, maxArgs: 1, call: func(a []float64) (float64, error) {
		return f(a[0]), nil
	}}
}

func logBase(x, base float64) (float64, error) {
	if x <= 0 {
		return 0, domainError("logarithm of non-positive number %g", x)
	}
	if base <= 0 || base == 1 {
		return 0, domainError("invalid logarithm base %g", base)
	}
	if base == math.E {
		return math.Log(x), nil
	}
	return math.Log(x) / math.Log(base), nil
}

func power(base, exp float64) (float64, error) {
	if base == 0 && exp < 0 {
		return 0, domainError("zero raised to a negative power")
	}
	if base < 0 && exp != math.Trunc(exp) {
		return 0, domainError("fractional power of negative number %g", base)
	}
	return math.Pow(base, exp), nil
}

func domainError(format string, args ...interface{}) error {
	return faults.New(faults.InvalidDomain, "expression", format, args...)
}

func (n *numberNode) eval() (float64, error) {
	return n.value, nil
}

func (n *unaryNode) eval() (float64, error) {
	v, err := n.operand.eval()
	if err != nil {
		return 0, err
	}
	if n.op == tokMinus {
		return -v, nil
	}
	return v, nil
}

func (n *binaryNode) eval() (float64, error) {
	l, err := n.left.eval()
	if err != nil {
		return 0, err
	}
	r, err := n.right.eval()
	if err != nil {
		return 0, err
	}

	switch n.op {
	case tokPlus:
		return l + r, nil
	case tokMinus:
		return l - r, nil
	case tokStar:
		return l * r, nil
	case tokSlash:
		if r == 0 {
			return 0, domainError("division by zero")
		}
		return l / r, nil
	case tokPercent:
		if r == 0 {
			return 0, domainError("modulo by zero")
		}
		// Floored modulo: the result takes the sign of the divisor
		m := math.Mod(l, r)
		if m != 0 && (m < 0) != (r < 0) {
			m += r
		}
		return m, nil
	case tokPow:
		return power(l, r)
	}
	return 0, faults.New(faults.UnsafeExpression, "expression", "unsupported operator %s", n.op)
}

func (n *callNode) eval() (float64, error) {
	args := make([]float64, len(n.args))
	for i, a := range n.args {
		v, err := a.eval()
		if err != nil {
			return 0, err
		}
		args[i] = v
	}
	return n.fn.call(args)
}
