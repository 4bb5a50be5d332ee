package common

import "math"

// EPS is the fixed epsilon, in world units, used for all coincidence and
// split-plane comparisons across the mesh pipeline (§4.1).
const EPS = 1e-6

// Axis identifies one of the three principal axes used by the plane split
// operation (§4.2) and the recursive tiler (§4.6).
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// String returns the axis name, used in log messages and error text.
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	default:
		return "?"
	}
}

// Vertex3 is an immutable 3D point. Equality and hashing are exact-bitwise
// on components, per §3 — two vertices are equal only if every component's
// raw bit pattern matches, never by epsilon comparison.
type Vertex3 struct {
	X, Y, Z float64
}

// Dim returns the coordinate of v along the given axis. This is the dim(v)
// primitive referenced throughout §4.1 and §4.2.
func (v Vertex3) Dim(axis Axis) float64 {
	switch axis {
	case AxisX:
		return v.X
	case AxisY:
		return v.Y
	case AxisZ:
		return v.Z
	default:
		return 0
	}
}

// Bits reinterprets the vertex's components as raw uint64 bit patterns, used
// as the key for the insertion-ordered dedup maps in engine/mesh (§4.2).
func (v Vertex3) Bits() [3]uint64 {
	return [3]uint64{
		math.Float64bits(v.X),
		math.Float64bits(v.Y),
		math.Float64bits(v.Z),
	}
}

// Sub returns v - o.
func (v Vertex3) Sub(o Vertex3) Vertex3 {
	return Vertex3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Add returns v + o.
func (v Vertex3) Add(o Vertex3) Vertex3 {
	return Vertex3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Scale returns v scaled by s.
func (v Vertex3) Scale(s float64) Vertex3 {
	return Vertex3{v.X * s, v.Y * s, v.Z * s}
}

// Lerp returns the point at parameter t along the segment v -> o, i.e.
// v + t*(o - v). Used for both 3D cut-edge construction and UV propagation
// (the same formula is required to stay in lockstep, per §4.2).
func (v Vertex3) Lerp(o Vertex3, t float64) Vertex3 {
	return Vertex3{
		X: v.X + t*(o.X-v.X),
		Y: v.Y + t*(o.Y-v.Y),
		Z: v.Z + t*(o.Z-v.Z),
	}
}

// Cross returns the cross product v x o.
func (v Vertex3) Cross(o Vertex3) Vertex3 {
	return Vertex3{
		X: v.Y*o.Z - v.Z*o.Y,
		Y: v.Z*o.X - v.X*o.Z,
		Z: v.X*o.Y - v.Y*o.X,
	}
}

// Dot returns the dot product v . o.
func (v Vertex3) Dot(o Vertex3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Length returns the Euclidean length of v.
func (v Vertex3) Length() float64 {
	return math.Sqrt(v.Dot(v))
}

// Vertex2 is an immutable 2D point (UV coordinate). Equality and hashing are
// exact-bitwise on components, identical in spirit to Vertex3.
type Vertex2 struct {
	U, V float64
}

// Bits reinterprets the UV's components as raw uint64 bit patterns.
func (v Vertex2) Bits() [2]uint64 {
	return [2]uint64{
		math.Float64bits(v.U),
		math.Float64bits(v.V),
	}
}

// Lerp returns the UV at parameter t along the segment v -> o. §4.2 requires
// this to use the exact same ratio r as the corresponding 3D cut.
func (v Vertex2) Lerp(o Vertex2, t float64) Vertex2 {
	return Vertex2{
		U: v.U + t*(o.U-v.U),
		V: v.V + t*(o.V-v.V),
	}
}

// CutEdge returns the point where segment vA-vB crosses the plane axis=q,
// and the edge parameter r at which the crossing occurs. ok is false when the
// edge is degenerate with respect to the split axis (|dim(vA)-dim(vB)| < EPS),
// per §4.1 — such edges are treated as not crossing.
func CutEdge(vA, vB Vertex3, axis Axis, q float64) (point Vertex3, r float64, ok bool) {
	dA, dB := vA.Dim(axis), vB.Dim(axis)
	if math.Abs(dA-dB) < EPS {
		return Vertex3{}, 0, false
	}
	r = (q - dA) / (dB - dA)
	return vA.Lerp(vB, r), r, true
}
