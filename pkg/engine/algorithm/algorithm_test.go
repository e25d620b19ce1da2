package algorithm

import (
	"errors"
	"math"
	"testing"

	"github.com/harun/mathroute/pkg/faults"
	"github.com/harun/mathroute/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGCD(t *testing.T) {
	tests := []struct {
		a, b, want int64
	}{
		{a: 144, b: 49, want: 1},
		{a: 12, b: 8, want: 4},
		{a: 18, b: 0, want: 18},
		{a: 0, b: 7, want: 7},
	}
	for _, tt := range tests {
		got, err := GCD(tt.a, tt.b)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestGCD_NegativeInputIsInvalidDomain(t *testing.T) {
	_, err := GCD(18, -4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, faults.ErrInvalidDomain))

	fe, ok := faults.As(err)
	require.True(t, ok)
	assert.Equal(t, "b", fe.Field)

	_, err = GCD(0, 0)
	assert.True(t, errors.Is(err, faults.ErrInvalidDomain))
}

func TestLCM(t *testing.T) {
	got, err := LCM(4, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(12), got)

	got, err = LCM(0, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)

	_, err = LCM(-4, 6)
	assert.True(t, errors.Is(err, faults.ErrInvalidDomain))

	_, err = LCM(math.MaxInt64, math.MaxInt64-1)
	assert.True(t, errors.Is(err, faults.ErrInvalidDomain))
}

func TestFactorial(t *testing.T) {
	v, err := Factorial(0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = Factorial(5)
	require.NoError(t, err)
	assert.Equal(t, int64(120), v)

	v, err = Factorial(25)
	require.NoError(t, err)
	assert.Equal(t, "15511210043330985984000000", v)

	_, err = Factorial(-1)
	assert.True(t, errors.Is(err, faults.ErrInvalidDomain))

	_, err = Factorial(MaxSequenceIndex + 1)
	assert.True(t, errors.Is(err, faults.ErrInvalidDomain))
}

func TestFibonacci(t *testing.T) {
	want := []int64{0, 1, 1, 2, 3, 5, 8, 13, 21, 34, 55}
	for n, w := range want {
		v, err := Fibonacci(int64(n))
		require.NoError(t, err)
		assert.Equal(t, w, v, "F(%d)", n)
	}

	v, err := Fibonacci(100)
	require.NoError(t, err)
	assert.Equal(t, "354224848179261915075", v)

	_, err = Fibonacci(-3)
	assert.True(t, errors.Is(err, faults.ErrInvalidDomain))
}

func TestIsPrime(t *testing.T) {
	primes := []int64{2, 3, 5, 17, 7919, 2147483647}
	for _, p := range primes {
		ok, err := IsPrime(p)
		require.NoError(t, err)
		assert.True(t, ok, p)
	}

	composites := []int64{0, 1, 4, 9, 561, 1000000}
	for _, c := range composites {
		ok, err := IsPrime(c)
		require.NoError(t, err)
		assert.False(t, ok, c)
	}

	_, err := IsPrime(-7)
	assert.True(t, errors.Is(err, faults.ErrInvalidDomain))
}

func TestNthRoot(t *testing.T) {
	v, err := NthRoot(27, 3)
	require.NoError(t, err)
	assert.InDelta(t, 3, v, 1e-12)

	v, err = NthRoot(-27, 3)
	require.NoError(t, err)
	assert.InDelta(t, -3, v, 1e-12)

	_, err = NthRoot(-16, 2)
	assert.True(t, errors.Is(err, faults.ErrInvalidDomain))

	_, err = NthRoot(16, 0)
	assert.True(t, errors.Is(err, faults.ErrInvalidDomain))
}

func TestLogarithms(t *testing.T) {
	v, err := Log(8, 2)
	require.NoError(t, err)
	assert.InDelta(t, 3, v, 1e-12)

	v, err = Log2(1024)
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)

	v, err = Log10(0.001)
	require.NoError(t, err)
	assert.InDelta(t, -3, v, 1e-12)

	for _, fn := range []func() (float64, error){
		func() (float64, error) { return Log(0, 10) },
		func() (float64, error) { return Log(10, 1) },
		func() (float64, error) { return Log(10, -2) },
		func() (float64, error) { return Log2(-1) },
		func() (float64, error) { return Log10(0) },
	} {
		_, err := fn()
		assert.True(t, errors.Is(err, faults.ErrInvalidDomain))
	}
}

func TestGeometry(t *testing.T) {
	v, err := CircleArea(2)
	require.NoError(t, err)
	assert.InDelta(t, 4*math.Pi, v, 1e-12)

	_, err = CircleArea(-1)
	assert.True(t, errors.Is(err, faults.ErrInvalidDomain))

	v, err = Hypotenuse(3, 4)
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)
}

func TestTrigonometry(t *testing.T) {
	v, err := Sin(30)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, v, 1e-12)

	v, err = Sin(180)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)

	v, err = Cos(90)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)

	v, err = Tan(45)
	require.NoError(t, err)
	assert.InDelta(t, 1, v, 1e-12)

	_, err = Tan(90)
	assert.True(t, errors.Is(err, faults.ErrInvalidDomain))

	_, err = Tan(-270)
	assert.True(t, errors.Is(err, faults.ErrInvalidDomain))
}

func TestOperations(t *testing.T) {
	reg, err := registry.NewBuilder().Register(Operations()...).Build()
	require.NoError(t, err)
	assert.Equal(t, 14, reg.Len())

	op, ok := reg.Lookup("algorithm", "gcd")
	require.True(t, ok)

	v, err := op.Func(registry.Args{"a": int64(18), "b": int64(12)})
	require.NoError(t, err)
	assert.Equal(t, int64(6), v)

	_, err = op.Func(registry.Args{"a": int64(18), "b": int64(-4)})
	assert.True(t, errors.Is(err, faults.ErrInvalidDomain))
}
