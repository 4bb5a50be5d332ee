package atlas

import (
	"testing"

	"github.com/oxcart-geo/mst3tiles/common"
	"github.com/oxcart-geo/mst3tiles/engine/mesh"
)

func TestBuildChartsSeparatesDisjointIslands(t *testing.T) {
	uvs := []common.Vertex2{
		{U: 0, V: 0}, {U: 0.1, V: 0}, {U: 0, V: 0.1}, // island A
		{U: 0.5, V: 0.5}, {U: 0.6, V: 0.5}, {U: 0.5, V: 0.6}, // island B
	}
	faces := []mesh.FaceT{
		{A: 0, B: 1, C: 2, UVA: 0, UVB: 1, UVC: 2},
		{A: 3, B: 4, C: 5, UVA: 3, UVB: 4, UVC: 5},
	}

	charts, dropped := buildCharts(faces, uvs)
	if len(charts) != 2 {
		t.Fatalf("got %d charts, want 2", len(charts))
	}
	if len(dropped) != 0 {
		t.Fatalf("got %d dropped charts, want 0", len(dropped))
	}
}

func TestBuildChartsMergesSharedEdge(t *testing.T) {
	uvs := []common.Vertex2{
		{U: 0, V: 0}, {U: 1, V: 0}, {U: 0, V: 1}, {U: 1, V: 1},
	}
	faces := []mesh.FaceT{
		{A: 0, B: 1, C: 2, UVA: 0, UVB: 1, UVC: 2},
		{A: 1, B: 3, C: 2, UVA: 1, UVB: 3, UVC: 2},
	}

	charts, _ := buildCharts(faces, uvs)
	if len(charts) != 1 {
		t.Fatalf("got %d charts, want 1 (shared UV edge should merge)", len(charts))
	}
	if len(charts[0].faces) != 2 {
		t.Fatalf("merged chart has %d faces, want 2", len(charts[0].faces))
	}
}

func TestBuildChartsDropsDegenerateChart(t *testing.T) {
	uvs := []common.Vertex2{
		{U: 0, V: 0}, {U: 0, V: 0}, {U: 0, V: 0.1}, // zero U extent
	}
	faces := []mesh.FaceT{
		{A: 0, B: 1, C: 2, UVA: 0, UVB: 1, UVC: 2},
	}

	kept, dropped := buildCharts(faces, uvs)
	if len(kept) != 0 {
		t.Fatalf("got %d kept charts, want 0", len(kept))
	}
	if len(dropped) != 1 {
		t.Fatalf("got %d dropped charts, want 1", len(dropped))
	}
}

func TestMaxRectsPackerFitsNonOverlapping(t *testing.T) {
	p := newMaxRectsPacker(64, 64)
	placements := make([]rect, 0, 4)
	for i := 0; i < 4; i++ {
		pl, ok := p.insert(20, 20)
		if !ok {
			t.Fatalf("insert %d failed", i)
		}
		placements = append(placements, pl)
	}
	for i := range placements {
		for j := range placements {
			if i == j {
				continue
			}
			if placements[i].intersects(placements[j]) {
				t.Fatalf("placements %d and %d overlap: %+v %+v", i, j, placements[i], placements[j])
			}
		}
	}
}

func TestMaxRectsPackerRejectsOversized(t *testing.T) {
	p := newMaxRectsPacker(16, 16)
	if _, ok := p.insert(32, 32); ok {
		t.Fatalf("expected insert of oversized block to fail")
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	cases := map[int]int{1: 1, 2: 2, 3: 4, 5: 8, 32: 32, 33: 64}
	for in, want := range cases {
		if got := nextPowerOfTwo(in); got != want {
			t.Errorf("nextPowerOfTwo(%d) = %d, want %d", in, got, want)
		}
	}
}
