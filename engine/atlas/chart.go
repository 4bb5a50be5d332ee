package atlas

import (
	"fmt"
	"log"
	"math"

	"github.com/oxcart-geo/mst3tiles/common"
	"github.com/oxcart-geo/mst3tiles/engine/mesh"
)

// chart is one UV-connected cluster of faces, all sharing one material.
type chart struct {
	faces []mesh.FaceT
	// memberIdx holds, for each entry in faces, its index into the faces
	// slice buildCharts was called with, so a caller that built that slice
	// from some faceIdx indirection can map a chart's faces back to the
	// mesh's original face indices.
	memberIdx  []int
	uMin, uMax float64
	vMin, vMax float64
}

type uvEdge struct {
	a, b int // UV indices, a < b
}

func edgeKey(a, b int) uvEdge {
	if a > b {
		a, b = b, a
	}
	return uvEdge{a, b}
}

// buildCharts partitions faces (all belonging to the same material) into UV
// charts by BFS over shared UV edges, per §4.3 steps 2-3. kept is sorted
// descending by face count to improve packing density. A chart with
// near-zero UV extent in either axis is logged and returned in dropped
// instead, per §7's DegenerateGeometry policy; the caller routes its faces
// to the untouched-material fallback rather than packing it.
func buildCharts(faces []mesh.FaceT, uvs []common.Vertex2) (kept, dropped []chart) {
	edgeToFaces := make(map[uvEdge][]int)
	for fi, f := range faces {
		idx := f.UVIndices()
		for i := 0; i < 3; i++ {
			e := edgeKey(idx[i], idx[(i+1)%3])
			edgeToFaces[e] = append(edgeToFaces[e], fi)
		}
	}

	adjacency := make([][]int, len(faces))
	for _, fs := range edgeToFaces {
		for _, a := range fs {
			for _, b := range fs {
				if a != b {
					adjacency[a] = append(adjacency[a], b)
				}
			}
		}
	}

	visited := make([]bool, len(faces))
	for start := range faces {
		if visited[start] {
			continue
		}
		var members []int
		queue := []int{start}
		visited[start] = true
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			members = append(members, cur)
			for _, next := range adjacency[cur] {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}

		c := newChart(members, faces, uvs)
		if c.isDegenerate() {
			pe := common.NewPipelineError(common.ErrorKindDegenerateGeometry,
				fmt.Errorf("chart of %d face(s) has near-zero UV extent", len(c.faces)))
			log.Printf("atlas: %v, dropping", pe)
			dropped = append(dropped, c)
			continue
		}
		kept = append(kept, c)
	}

	sortChartsDescending(kept)
	return kept, dropped
}

func newChart(memberIdx []int, faces []mesh.FaceT, uvs []common.Vertex2) chart {
	c := chart{
		memberIdx: append([]int(nil), memberIdx...),
		uMin:      math.Inf(1), uMax: math.Inf(-1),
		vMin: math.Inf(1), vMax: math.Inf(-1),
	}
	for _, fi := range memberIdx {
		f := faces[fi]
		c.faces = append(c.faces, f)
		for _, uvIdx := range f.UVIndices() {
			uv := uvs[uvIdx]
			if uv.U < c.uMin {
				c.uMin = uv.U
			}
			if uv.U > c.uMax {
				c.uMax = uv.U
			}
			if uv.V < c.vMin {
				c.vMin = uv.V
			}
			if uv.V > c.vMax {
				c.vMax = uv.V
			}
		}
	}
	return c
}

// isDegenerate reports whether the chart's UV footprint is too thin in
// either axis to pack at any useful resolution, per §7's DegenerateGeometry
// policy.
func (c *chart) isDegenerate() bool {
	return c.uMax-c.uMin < common.EPS || c.vMax-c.vMin < common.EPS
}

// clampUDIM enforces §4.3 step 4: a chart may not straddle a UDIM tile
// boundary. If it does, the chart is clamped to the tile containing u_min
// and straddled reports true so the caller can log a warning.
func (c *chart) clampUDIM() (straddled bool) {
	const eps = common.EPS
	if math.Floor(c.uMax-eps) != math.Floor(c.uMin+eps) {
		tile := math.Floor(c.uMin + eps)
		c.uMax = tile + 1
		return true
	}
	return false
}

func sortChartsDescending(charts []chart) {
	for i := 1; i < len(charts); i++ {
		for j := i; j > 0 && len(charts[j].faces) > len(charts[j-1].faces); j-- {
			charts[j], charts[j-1] = charts[j-1], charts[j]
		}
	}
}
