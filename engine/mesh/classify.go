package mesh

import "github.com/oxcart-geo/mst3tiles/common"

// classifyGeneric instantiates a cutPlan's output shapes against one value
// stream (vertices, or UVs) using the supplied lerp function. It is the
// single place that turns the plan's abstract slot shapes into concrete
// triangles, shared by the plain-mesh and textured-mesh split paths so that
// geometry and UV triangles are always built from the exact same plan.
func classifyGeneric[T any](plan cutPlan, apexV, n1V, n2V T, lerp func(a, b T, t float64) T) (leftTris, rightTris [][3]T) {
	var cutT1, cutT2 T
	if plan.crossed() {
		cutT1 = lerp(apexV, n1V, plan.r1)
		cutT2 = lerp(apexV, n2V, plan.r2)
	}

	vals := [5]T{
		slotApex:  apexV,
		slotN1:    n1V,
		slotN2:    n2V,
		slotCutT1: cutT1,
		slotCutT2: cutT2,
	}

	leftShapes, rightShapes := plan.outputShapes()
	for _, s := range leftShapes {
		leftTris = append(leftTris, [3]T{vals[s[0]], vals[s[1]], vals[s[2]]})
	}
	for _, s := range rightShapes {
		rightTris = append(rightTris, [3]T{vals[s[0]], vals[s[1]], vals[s[2]]})
	}
	return leftTris, rightTris
}

// triResult is the per-triangle classification output for a plain mesh.
type triResult struct {
	leftTris, rightTris [][3]common.Vertex3
	crossed             bool
}

func classifyTriangle(v [3]common.Vertex3, axis common.Axis, q float64) triResult {
	dims := [3]float64{v[0].Dim(axis), v[1].Dim(axis), v[2].Dim(axis)}
	plan := planCut(dims, q)
	apex, n1, n2 := plan.indices()

	left, right := classifyGeneric(plan, v[apex], v[n1], v[n2], common.Vertex3.Lerp)

	return triResult{leftTris: left, rightTris: right, crossed: plan.crossed()}
}

// triResultT is the per-triangle classification output for a textured mesh:
// geometry and UV triangles built from the same plan, per §4.2's UV
// propagation rule.
type triResultT struct {
	leftTris, rightTris [][3]common.Vertex3
	leftUVs, rightUVs   [][3]common.Vertex2
	crossed             bool
}

func classifyTriangleT(v [3]common.Vertex3, uv [3]common.Vertex2, axis common.Axis, q float64) triResultT {
	dims := [3]float64{v[0].Dim(axis), v[1].Dim(axis), v[2].Dim(axis)}
	plan := planCut(dims, q)
	apex, n1, n2 := plan.indices()

	leftV, rightV := classifyGeneric(plan, v[apex], v[n1], v[n2], common.Vertex3.Lerp)
	leftUV, rightUV := classifyGeneric(plan, uv[apex], uv[n1], uv[n2], common.Vertex2.Lerp)

	return triResultT{
		leftTris: leftV, rightTris: rightV,
		leftUVs: leftUV, rightUVs: rightUV,
		crossed: plan.crossed(),
	}
}
