package fixed

/* =========================
   Q16.16 FIXED POINT
========================= */

// Fixed is a signed Q16.16 number: 16 integer bits, 16 fractional bits.
// Every value that reaches the simulation is a Fixed, never a float.
type Fixed int32

const (
	FracBits = 16
	One      Fixed = 1 << FracBits
	Half     Fixed = One >> 1
	Zero     Fixed = 0

	MaxValue Fixed = 1<<31 - 1
	MinValue Fixed = -1 << 31
)

// FromInt converts an integer to fixed point. Values outside ±32767 wrap.
func FromInt(i int32) Fixed {
	return Fixed(i << FracBits)
}

// FromRatio returns num/den computed in integer arithmetic.
func FromRatio(num, den int32) Fixed {
	return Div(FromInt(num), FromInt(den))
}

// FromFloat truncates f toward zero. Only for configuration and tests, never tick logic.
func FromFloat(f float64) Fixed {
	return Fixed(int32(f * float64(One)))
}

// ToInt floors to the integer part.
func (a Fixed) ToInt() int32 {
	return int32(a) >> FracBits
}

// Raw returns the underlying bits.
func (a Fixed) Raw() int32 {
	return int32(a)
}

// Mul widens to 64 bits and shifts back. The shift is arithmetic, so negative
// products round toward negative infinity.
func Mul(a, b Fixed) Fixed {
	return Fixed(int32((int64(a) * int64(b)) >> FracBits))
}

// Div pre-shifts the numerator. Division by zero returns zero.
func Div(a, b Fixed) Fixed {
	if b == 0 {
		return 0
	}
	return Fixed(int32((int64(a) << FracBits) / int64(b)))
}

// Sqrt runs six Newton-Raphson rounds seeded at x/2. Non-positive input returns zero.
func Sqrt(x Fixed) Fixed {
	if x <= 0 {
		return 0
	}
	guess := x >> 1
	if guess < 1 {
		guess = 1
	}
	for i := 0; i < 6; i++ {
		guess = (guess + Div(x, guess)) >> 1
		if guess == 0 {
			guess = 1
		}
	}
	return guess
}

// Abs wraps for MinValue.
func Abs(a Fixed) Fixed {
	if a < 0 {
		return -a
	}
	return a
}

func Min(a, b Fixed) Fixed {
	if a < b {
		return a
	}
	return b
}

func Max(a, b Fixed) Fixed {
	if a > b {
		return a
	}
	return b
}

func Clamp(v, lo, hi Fixed) Fixed {
	return Max(lo, Min(hi, v))
}

// Lerp interpolates a..b by t in [0, One].
func Lerp(a, b, t Fixed) Fixed {
	return a + Mul(b-a, t)
}

// SaturatingSub subtracts without wrapping past the int32 range.
func SaturatingSub(a, b Fixed) Fixed {
	r := int64(a) - int64(b)
	if r > int64(MaxValue) {
		return MaxValue
	}
	if r < int64(MinValue) {
		return MinValue
	}
	return Fixed(r)
}

// SaturatingAdd adds without wrapping past the int32 range.
func SaturatingAdd(a, b Fixed) Fixed {
	r := int64(a) + int64(b)
	if r > int64(MaxValue) {
		return MaxValue
	}
	if r < int64(MinValue) {
		return MinValue
	}
	return Fixed(r)
}
