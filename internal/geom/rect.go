// Package geom provides normalized 2D rectangles for detection boxes.
// All coordinates live in the unit square: (0,0) top-left, (1,1) bottom-right.
package geom

import "math"

// Rect is an axis-aligned box in normalized coordinates.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Unit is the full screen rectangle.
var Unit = Rect{X: 0, Y: 0, W: 1, H: 1}

// Area returns the rectangle's area, 0 for degenerate boxes.
func (r Rect) Area() float64 {
	if r.W <= 0 || r.H <= 0 {
		return 0
	}
	return r.W * r.H
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Center returns the midpoint.
func (r Rect) Center() (x, y float64) {
	return r.X + r.W/2, r.Y + r.H/2
}

// Intersect returns the overlapping region of r and o (possibly empty).
func (r Rect) Intersect(o Rect) Rect {
	x1 := math.Max(r.X, o.X)
	y1 := math.Max(r.Y, o.Y)
	x2 := math.Min(r.X+r.W, o.X+o.W)
	y2 := math.Min(r.Y+r.H, o.Y+o.H)
	if x2 <= x1 || y2 <= y1 {
		return Rect{}
	}
	return Rect{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}

// IoU returns intersection-over-union in [0,1].
func (r Rect) IoU(o Rect) float64 {
	inter := r.Intersect(o).Area()
	if inter == 0 {
		return 0
	}
	union := r.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Expand grows the rectangle by margin on every side. A negative margin
// shrinks it; the result may be degenerate.
func (r Rect) Expand(margin float64) Rect {
	return Rect{
		X: r.X - margin,
		Y: r.Y - margin,
		W: r.W + 2*margin,
		H: r.H + 2*margin,
	}
}

// CenterDistance returns the euclidean distance between the midpoints.
func (r Rect) CenterDistance(o Rect) float64 {
	rx, ry := r.Center()
	ox, oy := o.Center()
	return math.Hypot(rx-ox, ry-oy)
}

// Lerp blends r toward target by factor t in [0,1]. t=0 keeps r, t=1
// returns target.
func (r Rect) Lerp(target Rect, t float64) Rect {
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return Rect{
		X: r.X + (target.X-r.X)*t,
		Y: r.Y + (target.Y-r.Y)*t,
		W: r.W + (target.W-r.W)*t,
		H: r.H + (target.H-r.H)*t,
	}
}
