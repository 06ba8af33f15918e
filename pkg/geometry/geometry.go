// Package geometry defines the value types layout mutations carry.
package geometry

import "math"

// epsilon is the tolerance for floating-point comparisons.
const epsilon = 0.0001

// Point represents a 2D position in logical pixels.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Size represents width and height dimensions in logical pixels.
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Frame is a node's position relative to its parent plus its size.
type Frame struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// FrameFromLTWH constructs a Frame from left, top, width, height values.
func FrameFromLTWH(left, top, width, height float64) Frame {
	return Frame{X: left, Y: top, Width: width, Height: height}
}

// Origin returns the top-left corner of the frame.
func (f Frame) Origin() Point {
	return Point{X: f.X, Y: f.Y}
}

// Size returns the size of the frame.
func (f Frame) Size() Size {
	return Size{Width: f.Width, Height: f.Height}
}

// Right returns the x coordinate of the right edge.
func (f Frame) Right() float64 {
	return f.X + f.Width
}

// Bottom returns the y coordinate of the bottom edge.
func (f Frame) Bottom() float64 {
	return f.Y + f.Height
}

// Translate returns the frame moved by the given point.
func (f Frame) Translate(p Point) Frame {
	f.X += p.X
	f.Y += p.Y
	return f
}

// IsEmpty reports whether the frame has no area.
func (f Frame) IsEmpty() bool {
	return f.Width <= 0 || f.Height <= 0
}

// Equal reports whether two frames are approximately equal.
func (f Frame) Equal(other Frame) bool {
	return floatEqual(f.X, other.X) &&
		floatEqual(f.Y, other.Y) &&
		floatEqual(f.Width, other.Width) &&
		floatEqual(f.Height, other.Height)
}

// Equal reports whether two sizes are approximately equal.
func (s Size) Equal(other Size) bool {
	return floatEqual(s.Width, other.Width) && floatEqual(s.Height, other.Height)
}

// floatEqual returns true if two float64 values are approximately equal.
func floatEqual(a, b float64) bool {
	return math.Abs(a-b) <= epsilon
}
