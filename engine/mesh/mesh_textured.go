package mesh

import (
	"context"

	"github.com/oxcart-geo/mst3tiles/common"
)

// MeshT is the implementation of IMesh for textured meshes.
type MeshT struct {
	name      string
	vertices  []common.Vertex3
	uvs       []common.Vertex2
	faces     []FaceT
	materials []Material
	bounds    common.Box3
}

var _ IMesh = &MeshT{}

// NewMeshT creates a textured mesh from the given vertex, UV, face, and
// material arrays. The arrays are taken by reference; callers should not
// mutate them afterward — use the accessor methods (SetUVs, SetMaterials)
// to mutate a mesh in place (used by the atlas repacker, §4.3).
func NewMeshT(name string, vertices []common.Vertex3, uvs []common.Vertex2, faces []FaceT, materials []Material) IMesh {
	return &MeshT{
		name:      name,
		vertices:  vertices,
		uvs:       uvs,
		faces:     faces,
		materials: materials,
		bounds:    computeBoundsPlain(vertices),
	}
}

func (m *MeshT) Name() string { return m.name }

// HasTexture is true iff the mesh has non-empty UV and material lists, per §3.
func (m *MeshT) HasTexture() bool {
	return len(m.uvs) > 0 && len(m.materials) > 0
}

func (m *MeshT) FacesCount() int     { return len(m.faces) }
func (m *MeshT) VertexCount() int    { return len(m.vertices) }
func (m *MeshT) Bounds() common.Box3 { return m.bounds }

func (m *MeshT) Vertices() []common.Vertex3 { return m.vertices }
func (m *MeshT) UVs() []common.Vertex2      { return m.uvs }
func (m *MeshT) Faces() []FaceT             { return m.faces }
func (m *MeshT) Materials() []Material      { return m.materials }

// SetUVs replaces the mesh's UV list in place. Used by the atlas repacker
// after remapping UV coordinates into a new atlas (§4.3 step 8); this is the
// one entity allowed to mutate a mesh's own UV list, per §3's ownership rule.
func (m *MeshT) SetUVs(uvs []common.Vertex2) { m.uvs = uvs }

// SetMaterials replaces the mesh's material list in place, used after atlas
// repack when overflow materials are cloned (§4.3 step 6).
func (m *MeshT) SetMaterials(mats []Material) { m.materials = mats }

// SetFaces replaces the mesh's face list in place, used when the repacker
// rewrites material indices after cloning overflow materials.
func (m *MeshT) SetFaces(faces []FaceT) { m.faces = faces }

func (m *MeshT) Stats() Stats {
	return Stats{
		FaceCount:     len(m.faces),
		VertexCount:   len(m.vertices),
		UVCount:       len(m.uvs),
		MaterialCount: len(m.materials),
		Bounds:        m.bounds,
	}
}

func (m *MeshT) Split(ctx context.Context, axis common.Axis, q float64) (IMesh, IMesh, int, error) {
	leftVerts, rightVerts := newVertexIndex(), newVertexIndex()
	leftUVs, rightUVs := newUVIndex(), newUVIndex()
	var leftFaces, rightFaces []FaceT
	crossCount := 0

	for i, f := range m.faces {
		if err := common.CheckCancelled(ctx, i); err != nil {
			return nil, nil, 0, err
		}

		v := [3]common.Vertex3{m.vertices[f.A], m.vertices[f.B], m.vertices[f.C]}
		uv := [3]common.Vertex2{m.uvs[f.UVA], m.uvs[f.UVB], m.uvs[f.UVC]}

		r := classifyTriangleT(v, uv, axis, q)
		if r.crossed {
			crossCount++
		}

		for i, t := range r.leftTris {
			ut := r.leftUVs[i]
			leftFaces = append(leftFaces, FaceT{
				A: leftVerts.add(t[0]), B: leftVerts.add(t[1]), C: leftVerts.add(t[2]),
				UVA: leftUVs.add(ut[0]), UVB: leftUVs.add(ut[1]), UVC: leftUVs.add(ut[2]),
				MaterialIndex: f.MaterialIndex,
			})
		}
		for i, t := range r.rightTris {
			ut := r.rightUVs[i]
			rightFaces = append(rightFaces, FaceT{
				A: rightVerts.add(t[0]), B: rightVerts.add(t[1]), C: rightVerts.add(t[2]),
				UVA: rightUVs.add(ut[0]), UVB: rightUVs.add(ut[1]), UVC: rightUVs.add(ut[2]),
				MaterialIndex: f.MaterialIndex,
			})
		}
	}

	left := NewMeshT(m.name, leftVerts.order, leftUVs.order, leftFaces, CloneMaterials(m.materials))
	right := NewMeshT(m.name, rightVerts.order, rightUVs.order, rightFaces, CloneMaterials(m.materials))
	return left, right, crossCount, nil
}

func (m *MeshT) RemoveUnused() IMesh {
	vi := newVertexIndex()
	ui := newUVIndex()

	usedMat := make(map[int]bool, len(m.materials))
	faces := make([]FaceT, len(m.faces))
	for i, f := range m.faces {
		faces[i] = FaceT{
			A:   vi.add(m.vertices[f.A]),
			B:   vi.add(m.vertices[f.B]),
			C:   vi.add(m.vertices[f.C]),
			UVA: ui.add(m.uvs[f.UVA]),
			UVB: ui.add(m.uvs[f.UVB]),
			UVC: ui.add(m.uvs[f.UVC]),
			// MaterialIndex remapped below once the used set is known.
			MaterialIndex: f.MaterialIndex,
		}
		usedMat[f.MaterialIndex] = true
	}

	matRemap := make(map[int]int, len(usedMat))
	var materials []Material
	for i, mat := range m.materials {
		if !usedMat[i] {
			continue
		}
		matRemap[i] = len(materials)
		materials = append(materials, mat)
	}
	for i := range faces {
		faces[i].MaterialIndex = matRemap[faces[i].MaterialIndex]
	}

	return NewMeshT(m.name, vi.order, ui.order, faces, materials)
}
