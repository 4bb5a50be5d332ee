package mesh

import (
	"context"
	"testing"

	"github.com/oxcart-geo/mst3tiles/common"
)

func triangleArea(a, b, c common.Vertex3) float64 {
	return 0.5 * b.Sub(a).Cross(c.Sub(a)).Length()
}

// S1: a split plane that does not intersect the mesh's bounds leaves one
// side empty and the other side identical in triangle count.
func TestSplitNoOp(t *testing.T) {
	verts := []common.Vertex3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}}
	faces := []Face{{A: 0, B: 1, C: 2}}
	m := NewMesh("tri", verts, faces)

	left, right, crossed, err := m.Split(context.Background(), common.AxisX, 100)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if crossed != 0 {
		t.Fatalf("crossed = %d, want 0", crossed)
	}
	if left.FacesCount() != 1 || right.FacesCount() != 0 {
		t.Fatalf("got left=%d right=%d, want left=1 right=0", left.FacesCount(), right.FacesCount())
	}
}

// S2: a plane cutting through one triangle produces 1 triangle on one side
// and 2 on the other, and the total area is conserved.
func TestSplitCutsOneTriangle(t *testing.T) {
	verts := []common.Vertex3{
		{X: 0, Y: 0, Z: 0},
		{X: 2, Y: 0, Z: 0},
		{X: 0, Y: 2, Z: 0},
	}
	faces := []Face{{A: 0, B: 1, C: 2}}
	m := NewMesh("tri", verts, faces)

	left, right, crossed, err := m.Split(context.Background(), common.AxisX, 1)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if crossed != 1 {
		t.Fatalf("crossed = %d, want 1", crossed)
	}

	lp, rp := left.(*Mesh), right.(*Mesh)
	if len(lp.Faces())+len(rp.Faces()) != 3 {
		t.Fatalf("total output triangles = %d, want 3", len(lp.Faces())+len(rp.Faces()))
	}

	origArea := triangleArea(verts[0], verts[1], verts[2])
	var gotArea float64
	for _, f := range lp.Faces() {
		gotArea += triangleArea(lp.Vertices()[f.A], lp.Vertices()[f.B], lp.Vertices()[f.C])
	}
	for _, f := range rp.Faces() {
		gotArea += triangleArea(rp.Vertices()[f.A], rp.Vertices()[f.B], rp.Vertices()[f.C])
	}
	if d := gotArea - origArea; d > common.EPS*100 || d < -common.EPS*100 {
		t.Fatalf("area not conserved: got %v want %v", gotArea, origArea)
	}
}

// S3: the UV cut ratio must match the 3D cut ratio exactly for a textured
// split, so a UV that varies linearly with position predicts the cut value.
func TestSplitPreservesUVRatio(t *testing.T) {
	verts := []common.Vertex3{
		{X: 0, Y: 0, Z: 0},
		{X: 2, Y: 0, Z: 0},
		{X: 0, Y: 2, Z: 0},
	}
	uvs := []common.Vertex2{{U: 0, V: 0}, {U: 1, V: 0}, {U: 0, V: 1}}
	faces := []FaceT{{A: 0, B: 1, C: 2, UVA: 0, UVB: 1, UVC: 2, MaterialIndex: 0}}
	mat := []Material{{Name: "m"}}
	m := NewMeshT("tri", verts, uvs, faces, mat)

	left, right, crossed, err := m.Split(context.Background(), common.AxisX, 1)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if crossed != 1 {
		t.Fatalf("crossed = %d, want 1", crossed)
	}

	lt, rt := left.(*MeshT), right.(*MeshT)

	check := func(tm *MeshT) {
		for _, f := range tm.Faces() {
			vs := [3]common.Vertex3{tm.Vertices()[f.A], tm.Vertices()[f.B], tm.Vertices()[f.C]}
			us := [3]common.Vertex2{tm.UVs()[f.UVA], tm.UVs()[f.UVB], tm.UVs()[f.UVC]}
			for i := 0; i < 3; i++ {
				wantU := vs[i].X / 2
				if d := us[i].U - wantU; d > common.EPS*10 || d < -common.EPS*10 {
					t.Fatalf("UV.U = %v, want %v (from X=%v)", us[i].U, wantU, vs[i].X)
				}
			}
		}
	}
	check(lt)
	check(rt)
}

// Property 1: no triangle is lost by a split, and each cut triangle adds two
// (n -> n + 2k for k cut triangles). Here one of the two triangles is cut, so
// the total is 4.
func TestSplitConservesOrGrowsTriangleCount(t *testing.T) {
	verts := []common.Vertex3{
		{X: -1, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0},
		{X: 5, Y: 0, Z: 0}, {X: 7, Y: 0, Z: 0}, {X: 6, Y: 1, Z: 0},
	}
	faces := []Face{{A: 0, B: 1, C: 2}, {A: 3, B: 4, C: 5}}
	m := NewMesh("mix", verts, faces)

	left, right, _, err := m.Split(context.Background(), common.AxisX, 0)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	total := left.FacesCount() + right.FacesCount()
	if total < 2 || total > 4 {
		t.Fatalf("total triangles = %d, want in [2,4]", total)
	}
}

// Property 2: every output vertex lies on the correct side of the plane
// (within EPS), for both the left and right results.
func TestSplitSideMembership(t *testing.T) {
	verts := []common.Vertex3{
		{X: 0, Y: 0, Z: 0},
		{X: 2, Y: 0, Z: 0},
		{X: 0, Y: 2, Z: 0},
	}
	faces := []Face{{A: 0, B: 1, C: 2}}
	m := NewMesh("tri", verts, faces)

	left, right, _, err := m.Split(context.Background(), common.AxisX, 1)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	lp, rp := left.(*Mesh), right.(*Mesh)
	for _, v := range lp.Vertices() {
		if v.X > 1+common.EPS*10 {
			t.Fatalf("left vertex X=%v exceeds split plane 1", v.X)
		}
	}
	for _, v := range rp.Vertices() {
		if v.X < 1-common.EPS*10 {
			t.Fatalf("right vertex X=%v is below split plane 1", v.X)
		}
	}
}

// Property 4: RemoveUnused is idempotent and never increases counts.
func TestRemoveUnusedIdempotent(t *testing.T) {
	verts := []common.Vertex3{
		{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0},
		{X: 9, Y: 9, Z: 9}, // unused
	}
	faces := []Face{{A: 0, B: 1, C: 2}}
	m := NewMesh("tri", verts, faces)

	cleaned := m.RemoveUnused()
	if cleaned.VertexCount() != 3 {
		t.Fatalf("VertexCount after RemoveUnused = %d, want 3", cleaned.VertexCount())
	}

	cleaned2 := cleaned.RemoveUnused()
	if cleaned2.VertexCount() != cleaned.VertexCount() || cleaned2.FacesCount() != cleaned.FacesCount() {
		t.Fatalf("RemoveUnused not idempotent: got %+v then %+v", cleaned.Stats(), cleaned2.Stats())
	}
}

// RemoveUnused on a textured mesh must also compact materials, dropping any
// material index not referenced by a face.
func TestRemoveUnusedCompactsMaterials(t *testing.T) {
	verts := []common.Vertex3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}}
	uvs := []common.Vertex2{{U: 0, V: 0}, {U: 1, V: 0}, {U: 0, V: 1}}
	faces := []FaceT{{A: 0, B: 1, C: 2, UVA: 0, UVB: 1, UVC: 2, MaterialIndex: 1}}
	mats := []Material{{Name: "unused"}, {Name: "used"}}
	m := NewMeshT("tri", verts, uvs, faces, mats)

	cleaned := m.RemoveUnused().(*MeshT)
	if len(cleaned.Materials()) != 1 {
		t.Fatalf("Materials count = %d, want 1", len(cleaned.Materials()))
	}
	if cleaned.Materials()[0].Name != "used" {
		t.Fatalf("surviving material = %q, want %q", cleaned.Materials()[0].Name, "used")
	}
	if cleaned.Faces()[0].MaterialIndex != 0 {
		t.Fatalf("remapped MaterialIndex = %d, want 0", cleaned.Faces()[0].MaterialIndex)
	}
}
