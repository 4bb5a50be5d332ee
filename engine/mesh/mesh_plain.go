package mesh

import (
	"context"

	"github.com/oxcart-geo/mst3tiles/common"
)

// Mesh is the implementation of IMesh for untextured meshes.
type Mesh struct {
	name     string
	vertices []common.Vertex3
	faces    []Face
	bounds   common.Box3
}

var _ IMesh = &Mesh{}

// NewMesh creates a plain (untextured) mesh from the given vertex and face
// arrays. The arrays are taken by reference; callers should not mutate them
// afterward.
func NewMesh(name string, vertices []common.Vertex3, faces []Face) IMesh {
	return &Mesh{
		name:     name,
		vertices: vertices,
		faces:    faces,
		bounds:   computeBoundsPlain(vertices),
	}
}

func computeBoundsPlain(vertices []common.Vertex3) common.Box3 {
	b := common.NewBox3()
	for _, v := range vertices {
		b = b.ExpandPoint(v)
	}
	return b
}

func (m *Mesh) Name() string        { return m.name }
func (m *Mesh) HasTexture() bool    { return false }
func (m *Mesh) FacesCount() int     { return len(m.faces) }
func (m *Mesh) VertexCount() int    { return len(m.vertices) }
func (m *Mesh) Bounds() common.Box3 { return m.bounds }

func (m *Mesh) Vertices() []common.Vertex3 { return m.vertices }
func (m *Mesh) Faces() []Face              { return m.faces }

func (m *Mesh) Stats() Stats {
	return Stats{
		FaceCount:   len(m.faces),
		VertexCount: len(m.vertices),
		Bounds:      m.bounds,
	}
}

func (m *Mesh) Split(ctx context.Context, axis common.Axis, q float64) (IMesh, IMesh, int, error) {
	leftVerts, rightVerts := newVertexIndex(), newVertexIndex()
	var leftFaces, rightFaces []Face
	crossCount := 0

	for i, f := range m.faces {
		if err := common.CheckCancelled(ctx, i); err != nil {
			return nil, nil, 0, err
		}

		v := [3]common.Vertex3{m.vertices[f.A], m.vertices[f.B], m.vertices[f.C]}

		r := classifyTriangle(v, axis, q)
		if r.crossed {
			crossCount++
		}

		for _, t := range r.leftTris {
			leftFaces = append(leftFaces, Face{
				A: leftVerts.add(t[0]),
				B: leftVerts.add(t[1]),
				C: leftVerts.add(t[2]),
			})
		}
		for _, t := range r.rightTris {
			rightFaces = append(rightFaces, Face{
				A: rightVerts.add(t[0]),
				B: rightVerts.add(t[1]),
				C: rightVerts.add(t[2]),
			})
		}
	}

	left := NewMesh(m.name, leftVerts.order, leftFaces)
	right := NewMesh(m.name, rightVerts.order, rightFaces)
	return left, right, crossCount, nil
}

func (m *Mesh) RemoveUnused() IMesh {
	vi := newVertexIndex()
	faces := make([]Face, len(m.faces))
	for i, f := range m.faces {
		faces[i] = Face{
			A: vi.add(m.vertices[f.A]),
			B: vi.add(m.vertices[f.B]),
			C: vi.add(m.vertices[f.C]),
		}
	}
	return NewMesh(m.name, vi.order, faces)
}
