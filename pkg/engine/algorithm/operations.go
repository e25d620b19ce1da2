package algorithm

import (
	"github.com/harun/mathroute/pkg/registry"
)

func intParam(name, description string) registry.Param {
	return registry.Param{Name: name, Type: registry.TypeInteger, Description: description}
}

func numParam(name, description string) registry.Param {
	return registry.Param{Name: name, Type: registry.TypeNumber, Description: description}
}

func op(name, description string, params []registry.Param, fn registry.Func) registry.Operation {
	return registry.Operation{
		Tool:        registry.ToolAlgorithm,
		Name:        name,
		Description: description,
		Params:      params,
		Func:        fn,
	}
}

// Operations returns the algorithm registry entries.
func Operations() []registry.Operation {
	return []registry.Operation{
		op("gcd", "Greatest common divisor of two non-negative integers",
			[]registry.Param{intParam("a", "First integer"), intParam("b", "Second integer")},
			func(args registry.Args) (interface{}, error) {
				return GCD(args.Int("a"), args.Int("b"))
			}),
		op("lcm", "Least common multiple of two non-negative integers",
			[]registry.Param{intParam("a", "First integer"), intParam("b", "Second integer")},
			func(args registry.Args) (interface{}, error) {
				return LCM(args.Int("a"), args.Int("b"))
			}),
		op("factorial", "Factorial n! of a non-negative integer",
			[]registry.Param{intParam("n", "Non-negative integer")},
			func(args registry.Args) (interface{}, error) {
				return Factorial(args.Int("n"))
			}),
		op("fibonacci", "n-th Fibonacci number, F(0)=0 and F(1)=1",
			[]registry.Param{intParam("n", "Index into the sequence")},
			func(args registry.Args) (interface{}, error) {
				return Fibonacci(args.Int("n"))
			}),
		op("is_prime", "Primality test of a non-negative integer",
			[]registry.Param{intParam("n", "Integer to test")},
			func(args registry.Args) (interface{}, error) {
				return IsPrime(args.Int("n"))
			}),
		op("nth_root", "Real root-th root of n",
			[]registry.Param{numParam("n", "Radicand"), numParam("root", "Degree of the root")},
			func(args registry.Args) (interface{}, error) {
				return NthRoot(args.Float("n"), args.Float("root"))
			}),
		op("log", "Logarithm of n in an explicit base",
			[]registry.Param{numParam("n", "Positive number"), numParam("base", "Positive base other than 1")},
			func(args registry.Args) (interface{}, error) {
				return Log(args.Float("n"), args.Float("base"))
			}),
		op("log2", "Binary logarithm",
			[]registry.Param{numParam("n", "Positive number")},
			func(args registry.Args) (interface{}, error) {
				return Log2(args.Float("n"))
			}),
		op("log10", "Decimal logarithm",
			[]registry.Param{numParam("n", "Positive number")},
			func(args registry.Args) (interface{}, error) {
				return Log10(args.Float("n"))
			}),
		op("circle_area", "Area of a circle",
			[]registry.Param{numParam("radius", "Non-negative radius")},
			func(args registry.Args) (interface{}, error) {
				return CircleArea(args.Float("radius"))
			}),
		op("hypotenuse", "Hypotenuse of a right triangle",
			[]registry.Param{numParam("a", "First leg"), numParam("b", "Second leg")},
			func(args registry.Args) (interface{}, error) {
				return Hypotenuse(args.Float("a"), args.Float("b"))
			}),
		op("sin", "Sine of an angle given in degrees",
			[]registry.Param{numParam("degrees", "Angle in degrees")},
			func(args registry.Args) (interface{}, error) {
				return Sin(args.Float("degrees"))
			}),
		op("cos", "Cosine of an angle given in degrees",
			[]registry.Param{numParam("degrees", "Angle in degrees")},
			func(args registry.Args) (interface{}, error) {
				return Cos(args.Float("degrees"))
			}),
		op("tan", "Tangent of an angle given in degrees",
			[]registry.Param{numParam("degrees", "Angle in degrees")},
			func(args registry.Args) (interface{}, error) {
				return Tan(args.Float("degrees"))
			}),
	}
}
