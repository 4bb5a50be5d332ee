package tileset

import "github.com/oxcart-geo/mst3tiles/common"

// NodeOption is a functional option for NewNode, mirroring the teacher's
// SceneBuilderOption pattern (engine/scene/scene_builder.go) generalized
// from a flat scene-configuration struct to a tree-shaped tileset node.
type NodeOption func(*nodeConfig)

type nodeConfig struct {
	children  []*Node
	content   *Content
	refine    Refine
	errorMode GeometricErrorMode
	level     int
	transform *[16]float64
}

// WithChildren attaches child nodes, built bottom-up: callers must construct
// and finalize each child (via NewNode) before passing it here, so the
// parent's geometricError computation sees each child's already-computed
// value, per §4.7's post-order requirement.
func WithChildren(children ...*Node) NodeOption {
	return func(c *nodeConfig) {
		c.children = append(c.children, children...)
	}
}

// WithContentURI sets the node's tile payload reference, per §4.7's relative
// URI policy (e.g. "./Tile_0_0_0.b3dm" or "./Data/<tileName>/tileset.json").
func WithContentURI(uri string) NodeOption {
	return func(c *nodeConfig) {
		c.content = &Content{URI: uri}
	}
}

// WithRefine overrides the node's refinement policy. Defaults to
// RefineReplace; callers building a contentless root should pass
// RefineAdd, per §4.7.
func WithRefine(r Refine) NodeOption {
	return func(c *nodeConfig) {
		c.refine = r
	}
}

// WithErrorMode selects the geometricError formula, per the Open Question
// config knob (spec.md §9). Defaults to ErrorModeOSGB.
func WithErrorMode(mode GeometricErrorMode) NodeOption {
	return func(c *nodeConfig) {
		c.errorMode = mode
	}
}

// WithLevel sets the LOD-chain level consulted by ErrorModeExtentPower; it
// has no effect under the default ErrorModeOSGB.
func WithLevel(level int) NodeOption {
	return func(c *nodeConfig) {
		c.level = level
	}
}

// WithTransform attaches a root 4x4 column-major transform, per §4.7 —
// only the top-level root of a geodetic dataset should carry one; nested
// sub-tilesets never do.
func WithTransform(m [16]float64) NodeOption {
	return func(c *nodeConfig) {
		c.transform = &m
	}
}

// NewNode builds one tileset tree node from bounds and opts, computing its
// geometricError from its (already-built) children per §4.7. Root clamping
// is a separate step (ClampRootError) applied by the caller once the whole
// tree is assembled, since only NewNode's caller knows which node is the
// root.
func NewNode(bounds common.Box3, opts ...NodeOption) *Node {
	cfg := nodeConfig{refine: RefineReplace}
	for _, opt := range opts {
		opt(&cfg)
	}

	bv := NewBoundingVolumeBox(bounds)
	return &Node{
		BoundingVolume: bv,
		Refine:         cfg.refine,
		Children:       cfg.children,
		Content:        cfg.content,
		GeometricError: computeGeometricError(cfg.errorMode, cfg.children, bv, cfg.level),
		Transform:      cfg.transform,
	}
}

// NewBoundingVolumeBox derives a §4.7 box bounding volume from an
// axis-aligned box, clamping each half-extent to a minimum of 0.01 to avoid
// degenerate zeros.
func NewBoundingVolumeBox(bounds common.Box3) BoundingVolume {
	center := bounds.Center()
	ext := bounds.Extents()

	rx, ry, rz := ext.X, ext.Y, ext.Z
	if rx < 0.01 {
		rx = 0.01
	}
	if ry < 0.01 {
		ry = 0.01
	}
	if rz < 0.01 {
		rz = 0.01
	}

	return BoundingVolume{
		Box: [12]float64{
			center.X, center.Y, center.Z,
			rx, 0, 0,
			0, ry, 0,
			0, 0, rz,
		},
	}
}

// RootTransform builds the ENU->ECEF root transform for a geodetic dataset
// anchored at (lat, lon, height) in WGS-84, per §4.7/§4.8.
func RootTransform(lat, lon, height float64) [16]float64 {
	return common.ENUToECEFMatrix(lat, lon, height)
}
