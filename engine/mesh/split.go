package mesh

import (
	"math"

	"github.com/oxcart-geo/mst3tiles/common"
)

// cutPlan resolves which of the four structural cases (§4.2) a triangle
// falls into for a given split axis/plane, from its three per-axis
// coordinates alone. It carries just enough information — which vertex is
// the lone "apex" and the two edge parameters r1/r2 — for both the plain and
// textured appliers to build their output triangles identically.
type cutPlan struct {
	allLeft, allRight bool

	// apex is the index (0,1,2) of the lone vertex on its side; valid only
	// when allLeft and allRight are both false.
	apex int

	// apexIsRight is true for the "two-left-one-right" case (apex on the
	// right) and false for its mirror ("two-right-one-left", apex on the
	// left), per §4.2.
	apexIsRight bool

	// collinear is true when both non-apex vertices lie within EPS of the
	// plane; the whole triangle is then emitted, unchanged, to the apex's
	// side and no cut points are generated (§4.2's "Special case").
	collinear bool

	// r1, r2 are the edge parameters for cutEdge(apex, next1, q) and
	// cutEdge(apex, next2, q), where next1=(apex+1)%3, next2=(apex+2)%3.
	r1, r2 float64
}

func planCut(dims [3]float64, q float64) cutPlan {
	isLeft := [3]bool{dims[0] < q, dims[1] < q, dims[2] < q}

	leftCount := 0
	for _, l := range isLeft {
		if l {
			leftCount++
		}
	}

	switch leftCount {
	case 3:
		return cutPlan{allLeft: true}
	case 0:
		return cutPlan{allRight: true}
	case 1:
		return planApex(dims, q, indexOfBool(isLeft, true), false)
	default: // 2
		return planApex(dims, q, indexOfBool(isLeft, false), true)
	}
}

func indexOfBool(arr [3]bool, val bool) int {
	for i, v := range arr {
		if v == val {
			return i
		}
	}
	return -1
}

func planApex(dims [3]float64, q float64, apex int, apexIsRight bool) cutPlan {
	n1 := (apex + 1) % 3
	n2 := (apex + 2) % 3

	if math.Abs(dims[n1]-q) < common.EPS && math.Abs(dims[n2]-q) < common.EPS {
		return cutPlan{apex: apex, apexIsRight: apexIsRight, collinear: true}
	}

	return cutPlan{
		apex:        apex,
		apexIsRight: apexIsRight,
		r1:          (q - dims[apex]) / (dims[n1] - dims[apex]),
		r2:          (q - dims[apex]) / (dims[n2] - dims[apex]),
	}
}

// crossed reports whether this plan represents an actual plane cut (as
// opposed to a whole-triangle copy to one side).
func (p cutPlan) crossed() bool {
	return !p.allLeft && !p.allRight && !p.collinear
}

// triSlot names one value of a classified triangle's output: zero, one, or
// two triangles per side are expressed as slot triples over the plan's own
// (apex, n1, n2) ordering plus its two cut points so that plain and textured appliers can both build the same
// shapes from their own per-stream values (vertices for plain, vertices+UVs
// for textured).
type triSlot int

const (
	slotApex triSlot = iota
	slotN1
	slotN2
	slotCutT1 // cutEdge(apex, n1, q)
	slotCutT2 // cutEdge(apex, n2, q)
)

// triShape describes one output triangle as three slots, in winding order.
type triShape [3]triSlot

// outputShapes returns the list of left-side and right-side triangle shapes
// for this plan, per §4.2's construction. dims indices map to (apex,n1,n2)
// as chosen by planApex.
func (p cutPlan) outputShapes() (leftShapes, rightShapes []triShape) {
	switch {
	case p.allLeft:
		return []triShape{{slotApex, slotN1, slotN2}}, nil
	case p.allRight:
		return nil, []triShape{{slotApex, slotN1, slotN2}}
	case p.collinear:
		whole := []triShape{{slotApex, slotN1, slotN2}}
		if p.apexIsRight {
			return nil, whole
		}
		return whole, nil
	case p.apexIsRight:
		// apex = vR, n1 = vL1, n2 = vL2, t1 = cut(vR,vL1), t2 = cut(vR,vL2).
		right := []triShape{{slotApex, slotCutT1, slotCutT2}}
		left := []triShape{
			{slotCutT2, slotN1, slotN2},
			{slotCutT2, slotCutT1, slotN1},
		}
		return left, right
	default:
		// Mirror: apex = vL, n1 = vR1, n2 = vR2, t1 = cut(vL,vR1), t2 = cut(vL,vR2).
		left := []triShape{{slotApex, slotCutT1, slotCutT2}}
		right := []triShape{
			{slotCutT2, slotN1, slotN2},
			{slotCutT2, slotCutT1, slotN1},
		}
		return left, right
	}
}

// indices returns, for this plan, the concrete original-triangle index
// for slotApex/slotN1/slotN2 in terms of the original (0,1,2) ordering. It
// returns 0, 1, 2 when the plan is allLeft/allRight (there is no
// distinguished apex).
func (p cutPlan) indices() (apex, n1, n2 int) {
	if p.allLeft || p.allRight {
		return 0, 1, 2
	}
	return p.apex, (p.apex + 1) % 3, (p.apex + 2) % 3
}
