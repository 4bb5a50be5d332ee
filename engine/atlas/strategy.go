// Package atlas implements the UV chart repacker (§4.3): it clusters a
// textured mesh's faces into UV-connected charts, packs the referenced
// regions of each material's texture into one or more fresh atlases, and
// remaps UV coordinates to match.
package atlas

import "github.com/oxcart-geo/mst3tiles/engine/mesh"

// TextureStrategy selects how a tile's textures are prepared for output.
type TextureStrategy int

const (
	// KeepOriginal copies texture files unmodified; no repack, no recompression.
	KeepOriginal TextureStrategy = iota

	// Compress recompresses each texture as JPEG without repacking.
	Compress

	// Repack clusters and bin-packs UV charts into a fresh atlas per
	// material, writing each atlas as PNG; the source texture's file format
	// is not carried over.
	Repack

	// RepackCompressed is Repack, writing the resulting atlases as JPEG
	// (quality 75).
	RepackCompressed
)

// String returns the strategy's name, used in log messages.
func (s TextureStrategy) String() string {
	switch s {
	case KeepOriginal:
		return "KeepOriginal"
	case Compress:
		return "Compress"
	case Repack:
		return "Repack"
	case RepackCompressed:
		return "RepackCompressed"
	default:
		return "Unknown"
	}
}

// RepackResult is the outcome of a Repack/RepackCompressed run: the
// materials a mesh should now reference (originals may be cloned if a
// material's charts overflowed into a second atlas), and any non-fatal
// warnings surfaced for the caller to log, per §9 (UDIM-straddling charts
// are clamped, not rejected, and the clamp is reported here).
type RepackResult struct {
	Materials []mesh.Material
	Warnings  []string
}
