package common

import "math"

// Box3 is an axis-aligned bounding box (§4.1).
type Box3 struct {
	Min, Max Vertex3
}

// NewBox3 builds an empty (inverted) box, ready to be grown with Expand.
func NewBox3() Box3 {
	return Box3{
		Min: Vertex3{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)},
		Max: Vertex3{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)},
	}
}

// IsValid reports whether min <= max on every axis and at least one axis is
// non-degenerate (per §4.1). An empty box built by NewBox3 and never
// expanded is not valid.
func (b Box3) IsValid() bool {
	if b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z {
		return false
	}
	return (b.Max.X-b.Min.X) > EPS || (b.Max.Y-b.Min.Y) > EPS || (b.Max.Z-b.Min.Z) > EPS
}

// Center returns the box's midpoint.
func (b Box3) Center() Vertex3 {
	return Vertex3{
		X: (b.Min.X + b.Max.X) / 2,
		Y: (b.Min.Y + b.Max.Y) / 2,
		Z: (b.Min.Z + b.Max.Z) / 2,
	}
}

// Extents returns the box's half-extents per axis.
func (b Box3) Extents() Vertex3 {
	return Vertex3{
		X: (b.Max.X - b.Min.X) / 2,
		Y: (b.Max.Y - b.Min.Y) / 2,
		Z: (b.Max.Z - b.Min.Z) / 2,
	}
}

// Size returns the box's full extent (width, height, depth) per axis.
func (b Box3) Size() Vertex3 {
	return Vertex3{
		X: b.Max.X - b.Min.X,
		Y: b.Max.Y - b.Min.Y,
		Z: b.Max.Z - b.Min.Z,
	}
}

// Diagonal returns the length of the box's main diagonal.
func (b Box3) Diagonal() float64 {
	s := b.Size()
	return math.Sqrt(s.X*s.X + s.Y*s.Y + s.Z*s.Z)
}

// ExpandPoint grows the box, if necessary, to contain p.
func (b Box3) ExpandPoint(p Vertex3) Box3 {
	return Box3{
		Min: Vertex3{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)},
		Max: Vertex3{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)},
	}
}

// ExpandBox grows the box, if necessary, to contain o.
func (b Box3) ExpandBox(o Box3) Box3 {
	return b.ExpandPoint(o.Min).ExpandPoint(o.Max)
}

// Intersects reports whether b and o overlap on every axis.
func (b Box3) Intersects(o Box3) bool {
	if b.Max.X < o.Min.X || b.Min.X > o.Max.X {
		return false
	}
	if b.Max.Y < o.Min.Y || b.Min.Y > o.Max.Y {
		return false
	}
	if b.Max.Z < o.Min.Z || b.Min.Z > o.Max.Z {
		return false
	}
	return true
}

// MaxExtent returns the largest of the box's three full-extent dimensions,
// the quantity behind the §4.7 geometric-error "all children zero"
// fallback (engine/tileset computes it from the bounding-volume box itself).
func (b Box3) MaxExtent() float64 {
	s := b.Size()
	return math.Max(s.X, math.Max(s.Y, s.Z))
}
