package fixed

// Vec2 is a value-type 2D vector of fixed-point components.
type Vec2 struct {
	X Fixed `json:"x"`
	Y Fixed `json:"y"`
}

var (
	Vec2Zero  = Vec2{0, 0}
	Vec2Right = Vec2{One, 0}
	Vec2Up    = Vec2{0, One}
	Vec2Left  = Vec2{-One, 0}
	Vec2Down  = Vec2{0, -One}
)

func V(x, y Fixed) Vec2 {
	return Vec2{X: x, Y: y}
}

// VecFromInts builds a vector from whole-unit coordinates.
func VecFromInts(x, y int32) Vec2 {
	return Vec2{FromInt(x), FromInt(y)}
}

func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{v.X + o.X, v.Y + o.Y}
}

func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{v.X - o.X, v.Y - o.Y}
}

// Scale multiplies both components by a fixed-point scalar.
func (v Vec2) Scale(s Fixed) Vec2 {
	return Vec2{Mul(v.X, s), Mul(v.Y, s)}
}

// ScaleInt multiplies both components by a plain integer.
func (v Vec2) ScaleInt(s int32) Vec2 {
	return Vec2{v.X * Fixed(s), v.Y * Fixed(s)}
}

func (v Vec2) DivScalar(s Fixed) Vec2 {
	return Vec2{Div(v.X, s), Div(v.Y, s)}
}

func (v Vec2) LengthSquared() Fixed {
	return Mul(v.X, v.X) + Mul(v.Y, v.Y)
}

// Length costs a square root. Prefer LengthSquared for comparisons.
func (v Vec2) Length() Fixed {
	return Sqrt(v.LengthSquared())
}

func (v Vec2) DistanceSquared(o Vec2) Fixed {
	return v.Sub(o).LengthSquared()
}

func (v Vec2) Distance(o Vec2) Fixed {
	return v.Sub(o).Length()
}

// Normalize returns the zero vector for a zero-length input.
func (v Vec2) Normalize() Vec2 {
	l := v.Length()
	if l == 0 {
		return Vec2Zero
	}
	return v.DivScalar(l)
}

func (v Vec2) Dot(o Vec2) Fixed {
	return Mul(v.X, o.X) + Mul(v.Y, o.Y)
}

// Cross is the z component of the 3D cross product.
func (v Vec2) Cross(o Vec2) Fixed {
	return Mul(v.X, o.Y) - Mul(v.Y, o.X)
}

func (v Vec2) Clamp(min, max Vec2) Vec2 {
	return Vec2{Clamp(v.X, min.X, max.X), Clamp(v.Y, min.Y, max.Y)}
}

// ClampToArena clamps into ±ArenaHalfWidth, ±ArenaHalfHeight.
func (v Vec2) ClampToArena() Vec2 {
	return Vec2{
		Clamp(v.X, -ArenaHalfWidth, ArenaHalfWidth),
		Clamp(v.Y, -ArenaHalfHeight, ArenaHalfHeight),
	}
}

func (v Vec2) IsInArena() bool {
	return v.X >= -ArenaHalfWidth && v.X <= ArenaHalfWidth &&
		v.Y >= -ArenaHalfHeight && v.Y <= ArenaHalfHeight
}

func (v Vec2) Lerp(o Vec2, t Fixed) Vec2 {
	return Vec2{Lerp(v.X, o.X, t), Lerp(v.Y, o.Y, t)}
}

// Perpendicular rotates 90 degrees counter-clockwise.
func (v Vec2) Perpendicular() Vec2 {
	return Vec2{-v.Y, v.X}
}

func (v Vec2) Negate() Vec2 {
	return Vec2{-v.X, -v.Y}
}

func (v Vec2) IsZero() bool {
	return v.X == 0 && v.Y == 0
}
