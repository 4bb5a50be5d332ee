package tiler

import (
	"container/heap"
	"fmt"
	"math"
	"sort"

	"github.com/oxcart-geo/mst3tiles/common"
	"github.com/oxcart-geo/mst3tiles/engine/mesh"
)

// Simplifier decimates a mesh for a coarser LOD level, per §4.6's optional
// mesh-decimation step. ratio is the fraction of the mesh's current faces
// to remove (0 leaves the mesh untouched, close to 1 collapses it almost to
// nothing); preserveBoundary multiplies the collapse cost of any edge with
// an endpoint that has fewer than four incident edges, discouraging (not
// forbidding) silhouette erosion at open mesh boundaries.
type Simplifier interface {
	Simplify(m mesh.IMesh, ratio float64, preserveBoundary bool) (mesh.IMesh, error)
}

// NewSimplifier returns the quadric-error-metric edge-collapse simplifier.
func NewSimplifier() Simplifier { return qemSimplifier{} }

type qemSimplifier struct{}

// boundaryPenalty scales the collapse cost of edges at a vertex with few
// incident edges when preserveBoundary is set, matching the reference implementation's
// boundary-discouragement factor.
const boundaryPenalty = 1000.0

// degenerateTriangleEps is the squared plane-normal length below which a
// triangle is treated as degenerate and contributes no quadric.
const degenerateTriangleEps = 1e-10

func (qemSimplifier) Simplify(m mesh.IMesh, ratio float64, preserveBoundary bool) (mesh.IMesh, error) {
	if ratio <= 0 {
		return m, nil
	}
	if ratio >= 1 {
		ratio = 0.999999
	}

	switch typed := m.(type) {
	case *mesh.Mesh:
		return simplifyPlain(typed, ratio, preserveBoundary), nil
	case *mesh.MeshT:
		return simplifyTextured(typed, ratio, preserveBoundary), nil
	default:
		return nil, common.NewPipelineError(common.ErrorKindInvalidInput,
			fmt.Errorf("tiler: simplify: unsupported mesh type %T", m))
	}
}

// collapseFace is the generic triangle record the edge-collapse algorithm
// operates on: A/B/C are indices into the shared position array, uvA/uvB/uvC
// and mat carry along a textured mesh's per-corner UV index and per-face
// material index unchanged (position collapses never touch them), or are -1
// for a plain mesh.
type collapseFace struct {
	A, B, C       int
	uvA, uvB, uvC int
	mat           int
}

func simplifyPlain(m *mesh.Mesh, ratio float64, preserveBoundary bool) mesh.IMesh {
	verts := m.Vertices()
	faces := m.Faces()

	cFaces := make([]collapseFace, len(faces))
	for i, f := range faces {
		cFaces[i] = collapseFace{A: f.A, B: f.B, C: f.C, uvA: -1, uvB: -1, uvC: -1, mat: -1}
	}

	target := targetFaceCount(len(cFaces), ratio)
	newVerts, newFaces := collapseMesh(verts, cFaces, target, preserveBoundary)

	outFaces := make([]mesh.Face, len(newFaces))
	for i, f := range newFaces {
		outFaces[i] = mesh.Face{A: f.A, B: f.B, C: f.C}
	}
	return mesh.NewMesh(m.Name(), newVerts, outFaces)
}

func simplifyTextured(m *mesh.MeshT, ratio float64, preserveBoundary bool) mesh.IMesh {
	verts := m.Vertices()
	faces := m.Faces()

	cFaces := make([]collapseFace, len(faces))
	for i, f := range faces {
		cFaces[i] = collapseFace{A: f.A, B: f.B, C: f.C, uvA: f.UVA, uvB: f.UVB, uvC: f.UVC, mat: f.MaterialIndex}
	}

	target := targetFaceCount(len(cFaces), ratio)
	newVerts, newFaces := collapseMesh(verts, cFaces, target, preserveBoundary)

	outFaces := make([]mesh.FaceT, len(newFaces))
	for i, f := range newFaces {
		outFaces[i] = mesh.FaceT{A: f.A, B: f.B, C: f.C, UVA: f.uvA, UVB: f.uvB, UVC: f.uvC, MaterialIndex: f.mat}
	}
	return mesh.NewMeshT(m.Name(), newVerts, m.UVs(), outFaces, mesh.CloneMaterials(m.Materials()))
}

func targetFaceCount(current int, ratio float64) int {
	target := int(math.Round(float64(current) * (1 - ratio)))
	if target < 1 && current > 0 {
		target = 1
	}
	return target
}

// quadric is a symmetric 4x4 matrix Q = p*p^T for plane equation p=(a,b,c,d),
// stored as its upper triangle: a11, a12, a13, a14, a22, a23, a24, a33, a34, a44.
type quadric [10]float64

func planeQuadric(a, b, c, d float64) quadric {
	return quadric{a * a, a * b, a * c, a * d, b * b, b * c, b * d, c * c, c * d, d * d}
}

func (q quadric) add(o quadric) quadric {
	var r quadric
	for i := range q {
		r[i] = q[i] + o[i]
	}
	return r
}

func (q quadric) errorAt(v common.Vertex3) float64 {
	x, y, z := v.X, v.Y, v.Z
	return q[0]*x*x + 2*q[1]*x*y + 2*q[2]*x*z + 2*q[3]*x +
		q[4]*y*y + 2*q[5]*y*z + 2*q[6]*y +
		q[7]*z*z + 2*q[8]*z +
		q[9]
}

// collapseVertex tracks one position's current location, accumulated
// quadric, and incident edges during the collapse pass.
type collapseVertex struct {
	pos     common.Vertex3
	quadric quadric
	id      int
	edges   []*collapseEdge
}

type collapseEdge struct {
	v0, v1    *collapseVertex
	cost      float64
	target    common.Vertex3
	collapsed bool
	heapIndex int
}

type edgeHeap []*collapseEdge

func (h edgeHeap) Len() int { return len(h) }
func (h edgeHeap) Less(i, j int) bool {
	if h[i].cost != h[j].cost {
		return h[i].cost < h[j].cost
	}
	if h[i].v0.id != h[j].v0.id {
		return h[i].v0.id < h[j].v0.id
	}
	return h[i].v1.id < h[j].v1.id
}
func (h edgeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}
func (h *edgeHeap) Push(x any) {
	e := x.(*collapseEdge)
	e.heapIndex = len(*h)
	*h = append(*h, e)
}
func (h *edgeHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.heapIndex = -1
	*h = old[:n-1]
	return e
}

// collapseMesh runs Garland-Heckbert quadric-error-metric edge collapse on
// positions/faces (faces index into positions by A/B/C only; UV and
// material fields ride along untouched) until at most targetFaceCount faces
// remain, then rebuilds a compacted position array and remapped faces.
func collapseMesh(positions []common.Vertex3, faces []collapseFace, targetFaceCount int, preserveBoundary bool) ([]common.Vertex3, []collapseFace) {
	if len(faces) <= targetFaceCount {
		return positions, faces
	}

	verts := make([]*collapseVertex, len(positions))
	for i, p := range positions {
		verts[i] = &collapseVertex{pos: p, id: i}
	}

	tris := make([]collapseFace, len(faces))
	copy(tris, faces)

	computeQuadrics(verts, tris)

	edges := buildEdges(verts, tris)
	for _, e := range edges {
		computeEdgeCost(e, preserveBoundary)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].v0.id != edges[j].v0.id {
			return edges[i].v0.id < edges[j].v0.id
		}
		return edges[i].v1.id < edges[j].v1.id
	})

	for i, e := range edges {
		e.heapIndex = i
	}
	h := edgeHeap(edges)
	heap.Init(&h)

	for len(tris) > targetFaceCount && h.Len() > 0 {
		e := heap.Pop(&h).(*collapseEdge)
		if e.collapsed {
			continue
		}
		collapseEdgeInto(&tris, e, verts, preserveBoundary, &h)
	}

	return rebuildCollapsed(verts, tris)
}

func computeQuadrics(verts []*collapseVertex, tris []collapseFace) {
	for _, t := range tris {
		v0, v1, v2 := verts[t.A].pos, verts[t.B].pos, verts[t.C].pos
		e1 := common.Vertex3{X: v1.X - v0.X, Y: v1.Y - v0.Y, Z: v1.Z - v0.Z}
		e2 := common.Vertex3{X: v2.X - v0.X, Y: v2.Y - v0.Y, Z: v2.Z - v0.Z}

		nx := e1.Y*e2.Z - e1.Z*e2.Y
		ny := e1.Z*e2.X - e1.X*e2.Z
		nz := e1.X*e2.Y - e1.Y*e2.X
		lenSq := nx*nx + ny*ny + nz*nz
		if lenSq < degenerateTriangleEps {
			continue
		}
		length := math.Sqrt(lenSq)
		a, b, c := nx/length, ny/length, nz/length
		d := -(a*v0.X + b*v0.Y + c*v0.Z)

		q := planeQuadric(a, b, c, d)
		verts[t.A].quadric = verts[t.A].quadric.add(q)
		verts[t.B].quadric = verts[t.B].quadric.add(q)
		verts[t.C].quadric = verts[t.C].quadric.add(q)
	}
}

func buildEdges(verts []*collapseVertex, tris []collapseFace) []*collapseEdge {
	type key struct{ a, b int }
	seen := make(map[key]*collapseEdge)
	var edges []*collapseEdge

	for _, t := range tris {
		corners := [3]int{t.A, t.B, t.C}
		for i := 0; i < 3; i++ {
			a, b := corners[i], corners[(i+1)%3]
			if a > b {
				a, b = b, a
			}
			k := key{a, b}
			if _, ok := seen[k]; ok {
				continue
			}
			e := &collapseEdge{v0: verts[a], v1: verts[b]}
			seen[k] = e
			edges = append(edges, e)
			verts[a].edges = append(verts[a].edges, e)
			verts[b].edges = append(verts[b].edges, e)
		}
	}
	return edges
}

func computeEdgeCost(e *collapseEdge, preserveBoundary bool) {
	q := e.v0.quadric.add(e.v1.quadric)
	e.target = common.Vertex3{
		X: (e.v0.pos.X + e.v1.pos.X) / 2,
		Y: (e.v0.pos.Y + e.v1.pos.Y) / 2,
		Z: (e.v0.pos.Z + e.v1.pos.Z) / 2,
	}
	e.cost = q.errorAt(e.target)
	if preserveBoundary && (len(e.v0.edges) < 4 || len(e.v1.edges) < 4) {
		e.cost *= boundaryPenalty
	}
}

// collapseEdgeInto merges e.v1 into e.v0 at e.target: drops triangles that
// referenced both endpoints (degenerate after the merge), rewrites every
// other triangle's references to v1 into v0, drops any triangle left with a
// repeated vertex, and refreshes costs for edges touching v0.
func collapseEdgeInto(tris *[]collapseFace, e *collapseEdge, verts []*collapseVertex, preserveBoundary bool, h *edgeHeap) bool {
	if e.collapsed {
		return false
	}
	v0, v1 := e.v0, e.v1

	v0.pos = e.target
	v0.quadric = v0.quadric.add(v1.quadric)

	kept := (*tris)[:0:0]
	for _, t := range *tris {
		hasV0 := t.A == v0.id || t.B == v0.id || t.C == v0.id
		hasV1 := t.A == v1.id || t.B == v1.id || t.C == v1.id
		if hasV0 && hasV1 {
			continue
		}
		if hasV1 {
			if t.A == v1.id {
				t.A = v0.id
			}
			if t.B == v1.id {
				t.B = v0.id
			}
			if t.C == v1.id {
				t.C = v0.id
			}
		}
		if t.A != t.B && t.B != t.C && t.A != t.C {
			kept = append(kept, t)
		}
	}
	*tris = kept

	var merged []*collapseEdge
	for _, other := range v1.edges {
		if other == e || other.collapsed {
			continue
		}
		if other.v0 == v1 {
			other.v0 = v0
		}
		if other.v1 == v1 {
			other.v1 = v0
		}
		if other.v0 != other.v1 {
			merged = append(merged, other)
		} else {
			other.collapsed = true
		}
	}
	v0.edges = append(v0.edges, merged...)

	for _, other := range v0.edges {
		if other.collapsed || other == e {
			continue
		}
		computeEdgeCost(other, preserveBoundary)
		if other.heapIndex >= 0 {
			heap.Fix(h, other.heapIndex)
		}
	}

	e.collapsed = true
	return true
}

// rebuildCollapsed compacts the (possibly now sparse) position set down to
// only the positions still referenced by a surviving triangle, remapping
// each face's A/B/C indices into the compacted array. UV and material
// fields already traveled with each collapseFace through every collapse, so
// they need no remapping here.
func rebuildCollapsed(verts []*collapseVertex, tris []collapseFace) ([]common.Vertex3, []collapseFace) {
	remap := make(map[int]int, len(verts))
	var positions []common.Vertex3
	get := func(id int) int {
		if idx, ok := remap[id]; ok {
			return idx
		}
		idx := len(positions)
		remap[id] = idx
		positions = append(positions, verts[id].pos)
		return idx
	}

	faces := make([]collapseFace, len(tris))
	for i, t := range tris {
		faces[i] = collapseFace{
			A: get(t.A), B: get(t.B), C: get(t.C),
			uvA: t.uvA, uvB: t.uvB, uvC: t.uvC, mat: t.mat,
		}
	}
	return positions, faces
}
