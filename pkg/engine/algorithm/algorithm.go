// Package algorithm implements the named mathematical routines exposed under
// the "algorithm" tool. Inputs outside a routine's domain are rejected with
// InvalidDomain; nothing is clamped or sign-corrected.
package algorithm

import (
	"math"
	"math/big"

	"github.com/harun/mathroute/pkg/faults"
)

// MaxSequenceIndex bounds factorial and fibonacci so evaluation time stays
// bounded.
const MaxSequenceIndex = 1000

// trigEpsilon snaps floating noise around exact trigonometric values to zero.
const trigEpsilon = 1e-12

func domainError(field, format string, args ...interface{}) error {
	return faults.New(faults.InvalidDomain, field, format, args...)
}

func requireNonNegative(field string, v int64) error {
	if v < 0 {
		return domainError(field, "%s must be a non-negative integer, got %d", field, v)
	}
	return nil
}

// GCD returns the greatest common divisor of two non-negative integers.
func GCD(a, b int64) (int64, error) {
	if err := requireNonNegative("a", a); err != nil {
		return 0, err
	}
	if err := requireNonNegative("b", b); err != nil {
		return 0, err
	}
	if a == 0 && b == 0 {
		return 0, domainError("a", "gcd(0, 0) is undefined")
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a, nil
}

// LCM returns the least common multiple of two non-negative integers.
func LCM(a, b int64) (int64, error) {
	if err := requireNonNegative("a", a); err != nil {
		return 0, err
	}
	if err := requireNonNegative("b", b); err != nil {
		return 0, err
	}
	if a == 0 || b == 0 {
		return 0, nil
	}
	g, err := GCD(a, b)
	if err != nil {
		return 0, err
	}
	l := new(big.Int).Mul(big.NewInt(a/g), big.NewInt(b))
	if !l.IsInt64() {
		return 0, domainError("a", "lcm(%d, %d) overflows a 64-bit integer", a, b)
	}
	return l.Int64(), nil
}

// Factorial returns n! as an int64 when it fits, otherwise as an exact
// decimal string.
func Factorial(n int64) (interface{}, error) {
	if err := requireNonNegative("n", n); err != nil {
		return nil, err
	}
	if n > MaxSequenceIndex {
		return nil, domainError("n", "factorial is limited to n <= %d", MaxSequenceIndex)
	}
	return exact(new(big.Int).MulRange(1, n)), nil
}

// Fibonacci returns the n-th Fibonacci number with F(0)=0, F(1)=1.
func Fibonacci(n int64) (interface{}, error) {
	if err := requireNonNegative("n", n); err != nil {
		return nil, err
	}
	if n > MaxSequenceIndex {
		return nil, domainError("n", "fibonacci is limited to n <= %d", MaxSequenceIndex)
	}
	a, b := big.NewInt(0), big.NewInt(1)
	for i := int64(0); i < n; i++ {
		a.Add(a, b)
		a, b = b, a
	}
	return exact(a), nil
}

func exact(v *big.Int) interface{} {
	if v.IsInt64() {
		return v.Int64()
	}
	return v.String()
}

// IsPrime reports whether n is prime. 0 and 1 are not prime.
func IsPrime(n int64) (bool, error) {
	if err := requireNonNegative("n", n); err != nil {
		return false, err
	}
	if n < 2 {
		return false, nil
	}
	// Deterministic for every 64-bit input
	return big.NewInt(n).ProbablyPrime(0), nil
}

// NthRoot returns the real root-th root of n.
func NthRoot(n, root float64) (float64, error) {
	if root == 0 {
		return 0, domainError("root", "root must be non-zero")
	}
	if n < 0 {
		r := math.Round(root)
		if r != root || int64(r)%2 == 0 {
			return 0, domainError("n", "even or fractional root of negative number %g", n)
		}
		return -math.Pow(-n, 1/root), nil
	}
	if n == 0 && root < 0 {
		return 0, domainError("n", "negative root of zero")
	}
	return math.Pow(n, 1/root), nil
}

// Log returns the logarithm of n in the given base.
func Log(n, base float64) (float64, error) {
	if n <= 0 {
		return 0, domainError("n", "logarithm of non-positive number %g", n)
	}
	if base <= 0 || base == 1 {
		return 0, domainError("base", "invalid logarithm base %g", base)
	}
	return math.Log(n) / math.Log(base), nil
}

// Log2 returns the binary logarithm of n
func Log2(n float64) (float64, error) {
	if n <= 0 {
		return 0, domainError("n", "logarithm of non-positive number %g", n)
	}
	return math.Log2(n), nil
}

// Log10 returns the decimal logarithm of n
func Log10(n float64) (float64, error) {
	if n <= 0 {
		return 0, domainError("n", "logarithm of non-positive number %g", n)
	}
	return math.Log10(n), nil
}

// CircleArea returns the area of a circle with the given radius.
func CircleArea(radius float64) (float64, error) {
	if radius < 0 {
		return 0, domainError("radius", "radius must be non-negative, got %g", radius)
	}
	return math.Pi * radius * radius, nil
}

// Hypotenuse returns sqrt(a*a + b*b).
func Hypotenuse(a, b float64) (float64, error) {
	if a < 0 || b < 0 {
		return 0, domainError("a", "side lengths must be non-negative")
	}
	return math.Hypot(a, b), nil
}

// Sin returns the sine of an angle in degrees
func Sin(degrees float64) (float64, error) {
	return snap(math.Sin(radians(degrees))), nil
}

// Cos returns the cosine of an angle in degrees
func Cos(degrees float64) (float64, error) {
	return snap(math.Cos(radians(degrees))), nil
}

// Tan returns the tangent of an angle in degrees. It is undefined at odd
// multiples of 90 degrees.
func Tan(degrees float64) (float64, error) {
	rad := radians(degrees)
	if math.Abs(math.Cos(rad)) < trigEpsilon {
		return 0, domainError("degrees", "tan(%g°) is undefined", degrees)
	}
	return snap(math.Tan(rad)), nil
}

func radians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

func snap(v float64) float64 {
	if math.Abs(v) < trigEpsilon {
		return 0
	}
	return v
}
