package tileset

import "math"

// GeometricErrorMode selects the formula used to compute a node's
// geometricError, per spec.md §9's Open Question: the source maintains two
// parallel LOD services using two different formulas. ErrorModeOSGB is the
// normative default (matches the OSGB PagedLOD path); ErrorModeExtentPower
// is the flagged alternative (the native multi-tile path), exposed as a
// config knob per the Open Question's resolution.
type GeometricErrorMode int

const (
	// ErrorModeOSGB computes error bottom-up: a leaf is 0; an internal node
	// is 2x its first non-zero child's error, or extent/20 if every child
	// is zero, per §4.7.
	ErrorModeOSGB GeometricErrorMode = iota

	// ErrorModeExtentPower computes error as (dW+dH+dD)^level, with level=0
	// at the root of the LOD chain (level-0 = 0), per §4.7's flagged
	// alternative formula.
	ErrorModeExtentPower
)

// DefaultRootErrorClamp is the reference implementation's root geometricError
// ceiling, per §4.7.
const DefaultRootErrorClamp = 1000.0

// computeGeometricError derives a node's geometricError from its children and
// bounding volume, per §4.7. level is only consulted by ErrorModeExtentPower.
func computeGeometricError(mode GeometricErrorMode, children []*Node, bv BoundingVolume, level int) float64 {
	switch mode {
	case ErrorModeExtentPower:
		if level == 0 {
			return 0
		}
		dW, dH, dD := bv.Box[3]*2, bv.Box[7]*2, bv.Box[11]*2
		return math.Pow(dW+dH+dD, float64(level))
	default:
		return computeGeometricErrorOSGB(children, bv)
	}
}

func computeGeometricErrorOSGB(children []*Node, bv BoundingVolume) float64 {
	if len(children) == 0 {
		return 0
	}
	for _, c := range children {
		if c.GeometricError > 0 {
			return 2 * c.GeometricError
		}
	}
	dW, dH, dD := bv.Box[3]*2, bv.Box[7]*2, bv.Box[11]*2
	m := dW
	if dH > m {
		m = dH
	}
	if dD > m {
		m = dD
	}
	return m / 20
}

// ClampRootError caps root's geometricError to max, per §4.7's "root is
// additionally clamped to a configured constant" rule. Only the root should
// ever be clamped; intermediate nodes keep their computed value.
func ClampRootError(root *Node, max float64) {
	if root.GeometricError > max {
		root.GeometricError = max
	}
}
