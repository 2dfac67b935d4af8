package fixed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedArithmetic(t *testing.T) {
	t.Run("mul", func(t *testing.T) {
		assert.Equal(t, 6*One, Mul(2*One, 3*One))
		assert.Equal(t, Fixed(-98304), Mul(3*One, -Half))
		// arithmetic shift floors the smallest negative product
		assert.Equal(t, Fixed(-1), Mul(-1, 1))
	})

	t.Run("div", func(t *testing.T) {
		assert.Equal(t, 2*One, Div(6*One, 3*One))
		assert.Equal(t, Fixed(21845), Div(One, 3*One))
		assert.Equal(t, Fixed(-21845), Div(-One, 3*One))
	})

	t.Run("div by zero is zero", func(t *testing.T) {
		assert.Equal(t, Zero, Div(One, 0))
		assert.Equal(t, Zero, Div(MinValue, 0))
	})

	t.Run("sqrt", func(t *testing.T) {
		assert.Equal(t, 2*One, Sqrt(4*One))
		assert.Equal(t, One, Sqrt(One))
		assert.Equal(t, 10*One, Sqrt(100*One))
		assert.Equal(t, Half, Sqrt(One/4))
		assert.Equal(t, Fixed(92681), Sqrt(2*One))
		assert.Equal(t, Zero, Sqrt(0))
		assert.Equal(t, Zero, Sqrt(-One))
	})

	t.Run("clamp and lerp", func(t *testing.T) {
		assert.Equal(t, One, Clamp(5*One, -One, One))
		assert.Equal(t, -One, Clamp(-5*One, -One, One))
		assert.Equal(t, Half, Clamp(Half, -One, One))
		assert.Equal(t, 5*One, Lerp(0, 10*One, Half))
		assert.Equal(t, Fixed(0), Lerp(0, 10*One, 0))
	})

	t.Run("saturating", func(t *testing.T) {
		assert.Equal(t, MaxValue, SaturatingAdd(MaxValue, One))
		assert.Equal(t, MinValue, SaturatingSub(MinValue, One))
		assert.Equal(t, Fixed(0), SaturatingSub(One, One))
	})
}

func TestFixedRoundTrip(t *testing.T) {
	for _, raw := range []int32{0, 1, -1, 65535, 65536, -65536, 1 << 30, -(1 << 30), 123456789, -98765} {
		x := Fixed(raw)
		back := FromFloat(x.Display().Float64())
		diff := int64(back) - int64(x)
		if diff < 0 {
			diff = -diff
		}
		assert.LessOrEqual(t, diff, int64(1), "raw %d", raw)
	}
}

func TestMulDivInverse(t *testing.T) {
	for _, a := range []Fixed{One, 3 * One, -7 * One, One / 3, 12345} {
		for _, b := range []Fixed{2 * One, -One, One / 4, 5 * One} {
			got := Div(Mul(a, b), b)
			diff := Abs(got - a)
			require.LessOrEqual(t, int32(diff), int32(Abs(Div(One, b))+1), "a=%d b=%d", a, b)
		}
	}
}

func TestVec2(t *testing.T) {
	t.Run("length", func(t *testing.T) {
		v := VecFromInts(3, 4)
		assert.Equal(t, 25*One, v.LengthSquared())
		assert.Equal(t, 5*One, v.Length())
		assert.Equal(t, 5*One, Vec2Zero.Distance(v))
	})

	t.Run("normalize zero", func(t *testing.T) {
		assert.Equal(t, Vec2Zero, Vec2Zero.Normalize())
	})

	t.Run("normalize axis", func(t *testing.T) {
		assert.Equal(t, Vec2Right, VecFromInts(7, 0).Normalize())
		assert.Equal(t, Vec2Down, VecFromInts(0, -3).Normalize())
	})

	t.Run("dot and cross", func(t *testing.T) {
		assert.Equal(t, Zero, Vec2Right.Dot(Vec2Up))
		assert.Equal(t, One, Vec2Right.Cross(Vec2Up))
		assert.Equal(t, -One, Vec2Up.Cross(Vec2Right))
	})

	t.Run("arena clamp", func(t *testing.T) {
		v := VecFromInts(80, -90).ClampToArena()
		assert.Equal(t, V(ArenaHalfWidth, -ArenaHalfHeight), v)
		assert.True(t, v.IsInArena())
		assert.False(t, VecFromInts(51, 0).IsInArena())
	})

	t.Run("perpendicular", func(t *testing.T) {
		assert.Equal(t, Vec2Up, Vec2Right.Perpendicular())
		assert.Equal(t, Vec2Left, Vec2Right.Negate())
	})

	t.Run("lerp", func(t *testing.T) {
		assert.Equal(t, VecFromInts(5, 5), Vec2Zero.Lerp(VecFromInts(10, 10), Half))
	})
}

func TestDisplayBoundary(t *testing.T) {
	assert.Equal(t, 1.5, (One + Half).Display().Float64())
	assert.Equal(t, "(1.000, -2.000)", VecFromInts(1, -2).String())
}
