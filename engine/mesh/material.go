package mesh

import "image"

// WrapMode selects how a texture samples outside the [0,1] UV range.
type WrapMode int

const (
	WrapRepeat WrapMode = iota
	WrapClamp
	WrapMirror
)

// FilterMode selects the sampling filter used for a texture.
type FilterMode int

const (
	FilterLinear FilterMode = iota
	FilterNearest
)

// TextureKind identifies the material channel a texture reference fills, per §3.
type TextureKind int

const (
	TextureDiffuse TextureKind = iota
	TextureNormal
	TextureSpecular
	TextureEmissive
	TextureOpacity
	TextureMetallic
	TextureRoughness
)

// RGB is a simple linear color triple.
type RGB struct {
	R, G, B float64
}

// AtlasRegion records where a texture lives within a packed atlas, in
// normalized [0,1] coordinates: the texture's content occupies
// [Offset, Offset+Scale) of the atlas image.
type AtlasRegion struct {
	OffsetU, OffsetV float64
	ScaleU, ScaleV   float64
}

// TextureRef carries either a filesystem path or in-memory pixel data for one
// material channel, per §3. Exactly one of Path/Image should be set; Image
// takes precedence when both are present.
type TextureRef struct {
	Kind   TextureKind
	Path   string
	Image  image.Image
	Wrap   WrapMode
	Filter FilterMode

	// Atlas is non-nil when this texture is a region of a packed atlas.
	// engine/atlas does not set it: a repacked texture is the whole atlas
	// image, and the mesh's remapped UVs address that image directly.
	Atlas *AtlasRegion
}

// HasSource reports whether the texture reference has any pixel source at all.
func (t TextureRef) HasSource() bool {
	return t.Image != nil || t.Path != ""
}

// Material is a named record of surface properties and texture references,
// per §3. It is a plain value type (cheap to copy) so that Clone, used when a
// mesh is split, is a shallow structural copy rather than a deep GC-managed
// allocation graph; only the texture map and the optional color and
// refractive-index pointers are duplicated, so that two diverged sub-meshes
// never share the same map header or pointed-to values.
type Material struct {
	Name string

	Ambient, Diffuse, Specular, Emissive *RGB
	Shininess                            float64
	Opacity                              float64
	RefractiveIndex                      *float64

	Textures map[TextureKind]TextureRef
}

// Clone returns a deep-enough copy of m so that mutating the clone's texture
// map or optional color pointers never affects m. Per §3, material arrays
// are cloned on Split so two sub-meshes never share material objects once
// either diverges (e.g. during atlas repack).
func (m Material) Clone() Material {
	clone := m

	if m.Ambient != nil {
		v := *m.Ambient
		clone.Ambient = &v
	}
	if m.Diffuse != nil {
		v := *m.Diffuse
		clone.Diffuse = &v
	}
	if m.Specular != nil {
		v := *m.Specular
		clone.Specular = &v
	}
	if m.Emissive != nil {
		v := *m.Emissive
		clone.Emissive = &v
	}
	if m.RefractiveIndex != nil {
		v := *m.RefractiveIndex
		clone.RefractiveIndex = &v
	}
	if m.Textures != nil {
		clone.Textures = make(map[TextureKind]TextureRef, len(m.Textures))
		for k, v := range m.Textures {
			clone.Textures[k] = v
		}
	}

	return clone
}

// CloneMaterials clones every material in the slice, per the Split ownership
// rule in §3.
func CloneMaterials(mats []Material) []Material {
	if mats == nil {
		return nil
	}
	out := make([]Material, len(mats))
	for i, m := range mats {
		out[i] = m.Clone()
	}
	return out
}
