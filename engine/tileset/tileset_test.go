package tileset

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/oxcart-geo/mst3tiles/common"
)

func box(minX, minY, minZ, maxX, maxY, maxZ float64) common.Box3 {
	return common.Box3{Min: common.Vertex3{X: minX, Y: minY, Z: minZ}, Max: common.Vertex3{X: maxX, Y: maxY, Z: maxZ}}
}

func TestNewBoundingVolumeBoxClampsMinimumExtent(t *testing.T) {
	bv := NewBoundingVolumeBox(box(0, 0, 0, 0, 0, 0))
	for _, i := range []int{3, 7, 11} {
		if bv.Box[i] != 0.01 {
			t.Errorf("Box[%d] = %v, want 0.01 minimum", i, bv.Box[i])
		}
	}
}

func TestNewBoundingVolumeBoxCenterAndExtent(t *testing.T) {
	bv := NewBoundingVolumeBox(box(-2, -4, -6, 2, 4, 6))
	want := [12]float64{0, 0, 0, 2, 0, 0, 0, 4, 0, 0, 0, 6}
	if bv.Box != want {
		t.Errorf("Box = %v, want %v", bv.Box, want)
	}
}

func TestGeometricErrorLeafIsZero(t *testing.T) {
	leaf := NewNode(box(0, 0, 0, 1, 1, 1))
	if leaf.GeometricError != 0 {
		t.Errorf("leaf geometricError = %v, want 0", leaf.GeometricError)
	}
}

func TestGeometricErrorInternalDoublesFirstNonZeroChild(t *testing.T) {
	childA := NewNode(box(0, 0, 0, 1, 1, 1)) // error 0
	childB := NewNode(box(0, 0, 0, 1, 1, 1), WithChildren(NewNode(box(0, 0, 0, 0.5, 0.5, 0.5))))
	// Force childB to have a known nonzero error by clamping it directly.
	childB.GeometricError = 5

	parent := NewNode(box(0, 0, 0, 10, 10, 10), WithChildren(childA, childB))
	if parent.GeometricError != 10 {
		t.Errorf("parent geometricError = %v, want 10 (2x first nonzero child)", parent.GeometricError)
	}
}

func TestGeometricErrorInternalAllZeroChildrenUsesExtent(t *testing.T) {
	childA := NewNode(box(0, 0, 0, 1, 1, 1))
	childB := NewNode(box(0, 0, 0, 1, 1, 1))
	parent := NewNode(box(0, 0, 0, 20, 40, 10), WithChildren(childA, childB))

	// full extents (not half-extents): x=20, y=40, z=10 -> max=40 -> /20 = 2
	if parent.GeometricError != 2 {
		t.Errorf("parent geometricError = %v, want 2", parent.GeometricError)
	}
}

func TestClampRootError(t *testing.T) {
	root := &Node{GeometricError: 5000}
	ClampRootError(root, DefaultRootErrorClamp)
	if root.GeometricError != DefaultRootErrorClamp {
		t.Errorf("clamped geometricError = %v, want %v", root.GeometricError, DefaultRootErrorClamp)
	}

	under := &Node{GeometricError: 10}
	ClampRootError(under, DefaultRootErrorClamp)
	if under.GeometricError != 10 {
		t.Errorf("unclamped geometricError changed to %v, want unchanged 10", under.GeometricError)
	}
}

func TestMarshalFieldOrder(t *testing.T) {
	child := NewNode(box(0, 0, 0, 1, 1, 1), WithContentURI("./Tile_0_0_0.b3dm"))
	root := NewNode(box(0, 0, 0, 2, 2, 2), WithChildren(child), WithRefine(RefineAdd))
	ClampRootError(root, DefaultRootErrorClamp)
	ts := NewTileset(root)

	data, err := Marshal(ts)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	s := string(data)
	bvIdx := strings.Index(s, `"boundingVolume"`)
	childrenIdx := strings.Index(s, `"children"`)
	contentIdx := strings.Index(s, `"content"`)
	geIdx := strings.LastIndex(s, `"geometricError"`) // root node's, appears after asset's too
	if bvIdx == -1 || childrenIdx == -1 || contentIdx == -1 || geIdx == -1 {
		t.Fatalf("missing expected field in output:\n%s", s)
	}
	if !(bvIdx < childrenIdx && childrenIdx < contentIdx) {
		t.Errorf("field order violated: boundingVolume=%d children=%d content=%d", bvIdx, childrenIdx, contentIdx)
	}

	var roundTrip map[string]any
	if err := json.Unmarshal(data, &roundTrip); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
}

func TestMarshalDoesNotEscapeHTML(t *testing.T) {
	root := NewNode(box(0, 0, 0, 1, 1, 1), WithContentURI("./Tile_<0>&0.b3dm"))
	ts := NewTileset(root)
	data, err := Marshal(ts)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(data), "\\u003c") {
		t.Errorf("output contains escaped HTML characters, want literal: %s", data)
	}
}

func TestRootTransformOriginOnXAxisAtEquatorPrimeMeridian(t *testing.T) {
	m := RootTransform(0, 0, 0)
	// At (0,0,0) lat/lon, up should point along +X (ECEF), origin should be
	// on the +X axis at roughly the WGS-84 semi-major axis distance.
	if m[12] < 6_378_000 || m[12] > 6_378_200 {
		t.Errorf("origin.X = %v, want ~6378137", m[12])
	}
}
