package fixed

import "fmt"

/* =========================
   DISPLAY BOUNDARY
========================= */

// Display is a rendering-only view of a Fixed. It deliberately has no
// arithmetic and no way back to Fixed.
type Display struct {
	v float64
}

// DisplayVec is the rendering-only view of a Vec2.
type DisplayVec struct {
	X Display
	Y Display
}

func (a Fixed) Display() Display {
	return Display{v: float64(a) / float64(One)}
}

func (v Vec2) Display() DisplayVec {
	return DisplayVec{X: v.X.Display(), Y: v.Y.Display()}
}

// Float64 hands the value to renderers and loggers.
func (d Display) Float64() float64 {
	return d.v
}

func (d Display) String() string {
	return fmt.Sprintf("%.3f", d.v)
}

func (a Fixed) String() string {
	return a.Display().String()
}

func (v Vec2) String() string {
	return fmt.Sprintf("(%s, %s)", v.X, v.Y)
}

func (d Display) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%.4f", d.v)), nil
}
