package mesh

import (
	"context"

	"github.com/oxcart-geo/mst3tiles/common"
)

// Stats summarizes a mesh's size, used by the tiler's min-triangle-threshold
// check (§4.6) and by the tileset builder's leaf geometric-error computation
// (§4.7).
type Stats struct {
	FaceCount     int
	VertexCount   int
	UVCount       int
	MaterialCount int
	Bounds        common.Box3
}

// IMesh abstracts the split operation and statistics shared by the plain
// (Mesh) and textured (MeshT) mesh variants, per §3/§9's tagged-variant
// design: callers that only need to subdivide and measure a mesh never need
// to know which variant they hold.
type IMesh interface {
	// Name returns the mesh's identifier.
	Name() string

	// HasTexture reports whether this mesh carries UV and material data.
	// True iff the mesh is a MeshT with non-empty UV and material lists.
	HasTexture() bool

	// FacesCount returns the number of faces.
	FacesCount() int

	// VertexCount returns the number of vertices.
	VertexCount() int

	// Bounds returns the mesh's axis-aligned bounding box.
	Bounds() common.Box3

	// Stats returns the mesh's size summary.
	Stats() Stats

	// Split partitions the mesh by the plane axis=q, per §4.2. The receiver
	// is left unchanged; left and right are new meshes with independent
	// backing arrays. crossCount is the number of input triangles the split
	// plane actually cut. ctx is checked at triangle-batch boundaries (§5);
	// a cancelled ctx returns a *common.PipelineError tagged Cancelled.
	Split(ctx context.Context, axis common.Axis, q float64) (left, right IMesh, crossCount int, err error)

	// RemoveUnused rebuilds the mesh's vertex/UV/material lists to contain
	// only entries referenced by at least one face, remapping face indices
	// and preserving relative order of first appearance, per §4.2.
	RemoveUnused() IMesh
}
