package atlas

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"github.com/oxcart-geo/mst3tiles/common"
	"github.com/oxcart-geo/mst3tiles/engine/mesh"
	"github.com/oxcart-geo/mst3tiles/engine/texcache"
)

// Options configures a Repack run.
type Options struct {
	// Padding is the bleed border, in pixels, replicated around each packed
	// chart block, per §4.3 step 5/7. Zero selects the default of 2.
	Padding int
}

func (o Options) padding() int {
	if o.Padding <= 0 {
		return 2
	}
	return o.Padding
}

// Repack applies strategy to m's textures and UVs, per §4.3. On Repack and
// RepackCompressed it mutates m's UV and material lists in place (via
// SetUVs/SetMaterials/SetFaces) and returns the materials m now references
// plus any warnings. KeepOriginal and Compress never touch UVs. ctx is
// checked at each chart boundary, per §5; a cancelled ctx surfaces as a
// *common.PipelineError tagged Cancelled.
func Repack(ctx context.Context, m *mesh.MeshT, strategy TextureStrategy, opts Options) (RepackResult, error) {
	switch strategy {
	case KeepOriginal:
		return RepackResult{Materials: m.Materials()}, nil
	case Compress:
		return compressInPlace(m)
	default:
		return repackCharts(ctx, m, strategy == RepackCompressed, opts)
	}
}

func compressInPlace(m *mesh.MeshT) (RepackResult, error) {
	materials := mesh.CloneMaterials(m.Materials())
	for i := range materials {
		for kind, tex := range materials[i].Textures {
			img, err := decodeTexture(tex)
			if err != nil {
				return RepackResult{}, common.NewPipelineError(common.ErrorKindTextureLoadFailed,
					fmt.Errorf("compress texture %q: %w", tex.Path, err))
			}
			data, mime, err := encodeImage(img, true)
			if err != nil {
				return RepackResult{}, fmt.Errorf("encode jpeg for %q: %w", tex.Path, err)
			}
			tex.Image = decodedImage{Image: img, data: data, mime: mime}
			tex.Path = ""
			materials[i].Textures[kind] = tex
		}
	}
	m.SetMaterials(materials)
	return RepackResult{Materials: materials}, nil
}

// decodeTexture decodes a texture's pixel data from its embedded Image or
// its Path, per the same pattern the teacher's ImportedTexture.Decode uses.
// A Path-backed decode goes through texcache.Shared so the same source file
// is never read and decoded twice across a run, per §5.
func decodeTexture(ref mesh.TextureRef) (image.Image, error) {
	if ref.Image != nil {
		return ref.Image, nil
	}
	if ref.Path == "" {
		return nil, fmt.Errorf("texture has neither embedded image nor path")
	}
	return texcache.Shared.GetOrInsert(ref.Path, func() (image.Image, error) {
		data, err := os.ReadFile(ref.Path)
		if err != nil {
			return nil, fmt.Errorf("read texture file %s: %w", ref.Path, err)
		}
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode texture file %s: %w", ref.Path, err)
		}
		return img, nil
	})
}

type atlasBuild struct {
	size   int
	packer *maxRectsPacker
	canvas *image.RGBA
}

func newAtlasBuild(size int) *atlasBuild {
	return &atlasBuild{
		size:   size,
		packer: newMaxRectsPacker(size, size),
		canvas: image.NewRGBA(image.Rect(0, 0, size, size)),
	}
}

func repackCharts(ctx context.Context, m *mesh.MeshT, asJPEG bool, opts Options) (RepackResult, error) {
	pad := opts.padding()
	faces := append([]mesh.FaceT(nil), m.Faces()...)
	uvs := append([]common.Vertex2(nil), m.UVs()...)
	materials := mesh.CloneMaterials(m.Materials())

	byMaterial := make(map[int][]int)
	for fi, f := range faces {
		byMaterial[f.MaterialIndex] = append(byMaterial[f.MaterialIndex], fi)
	}

	var warnings []string
	var outMaterials []mesh.Material

	// Iterate in original material-index order so output is deterministic
	// across runs (Go map iteration order is not).
	for matIdx := 0; matIdx < len(materials); matIdx++ {
		faceIdx, touched := byMaterial[matIdx]
		if !touched {
			continue
		}
		mat := materials[matIdx]
		primary, kind, ok := primaryTexture(mat)
		if !ok {
			// No texture to repack; keep the material and its faces untouched.
			matIdxOut := len(outMaterials)
			outMaterials = append(outMaterials, mat)
			for _, fi := range faceIdx {
				faces[fi].MaterialIndex = matIdxOut
			}
			continue
		}

		srcImg, err := decodeTexture(primary)
		if err != nil {
			return RepackResult{}, common.NewPipelineError(common.ErrorKindTextureLoadFailed,
				fmt.Errorf("material %q: %w", mat.Name, err))
		}
		texW, texH := srcImg.Bounds().Dx(), srcImg.Bounds().Dy()

		group := make([]mesh.FaceT, len(faceIdx))
		for i, fi := range faceIdx {
			group[i] = faces[fi]
		}
		charts, degenerate := buildCharts(group, uvs)
		for _, c := range degenerate {
			warnings = append(warnings, fmt.Sprintf("material %q: dropped a degenerate chart of %d face(s) (near-zero UV extent)", mat.Name, len(c.faces)))
		}

		totalArea := 0
		maxDim := 0
		chartPx := make([]rect, len(charts))
		for i := range charts {
			if err := common.CheckCancelled(ctx, i); err != nil {
				return RepackResult{}, err
			}
			if charts[i].clampUDIM() {
				warnings = append(warnings, fmt.Sprintf("material %q: chart straddles a UDIM tile, clamped", mat.Name))
			}
			w := int(math.Ceil((charts[i].uMax-charts[i].uMin)*float64(texW))) + 2*pad
			h := int(math.Ceil((charts[i].vMax-charts[i].vMin)*float64(texH))) + 2*pad
			chartPx[i] = rect{W: w, H: h}
			totalArea += w * h
			if w > maxDim {
				maxDim = w
			}
			if h > maxDim {
				maxDim = h
			}
		}

		atlasEdge := nextPowerOfTwo(int(math.Ceil(math.Sqrt(float64(totalArea)))))
		if maxDim > atlasEdge {
			atlasEdge = nextPowerOfTwo(maxDim)
		}
		if atlasEdge < 32 {
			atlasEdge = 32
		}

		builds := []*atlasBuild{newAtlasBuild(atlasEdge)}
		buildOf := make([]int, len(charts))

		for i := range charts {
			if err := common.CheckCancelled(ctx, i); err != nil {
				return RepackResult{}, err
			}

			bi := len(builds) - 1
			placed, ok := builds[bi].packer.insert(chartPx[i].W, chartPx[i].H)
			if !ok {
				// The current bin is full: open a fresh bin of the same size.
				// Per §7's PackOverflow policy, a chart that does not fit even
				// an empty bin gets one retry at a doubled atlas edge before
				// this material group fails.
				nb := newAtlasBuild(atlasEdge)
				placed, ok = nb.packer.insert(chartPx[i].W, chartPx[i].H)
				if !ok {
					doubled := atlasEdge * 2
					nb = newAtlasBuild(doubled)
					placed, ok = nb.packer.insert(chartPx[i].W, chartPx[i].H)
					if !ok {
						return RepackResult{}, common.NewPipelineError(common.ErrorKindPackOverflow,
							fmt.Errorf("material %q: chart %d does not fit a fresh %dx%d atlas even after doubling to %dx%d", mat.Name, i, atlasEdge, atlasEdge, doubled, doubled))
					}
				}
				builds = append(builds, nb)
				bi = len(builds) - 1
			}
			buildOf[i] = bi

			blitChart(builds[bi].canvas, srcImg, charts[i], placed, pad, texW, texH)
			remapChartUVs(group, charts[i], uvs, placed, pad, builds[bi].size)
		}

		// Degenerate charts are excluded from packing; their faces keep the
		// original material and UVs, same as the no-texture fallback above.
		if len(degenerate) > 0 {
			matIdxOut := len(outMaterials)
			outMaterials = append(outMaterials, mat)
			for _, c := range degenerate {
				for _, localIdx := range c.memberIdx {
					faces[faceIdx[localIdx]].MaterialIndex = matIdxOut
				}
			}
		}

		for bi, b := range builds {
			data, mime, err := encodeImage(b.canvas, asJPEG)
			if err != nil {
				return RepackResult{}, fmt.Errorf("encode atlas for material %q (bin %d): %w", mat.Name, bi, err)
			}
			outMat := mat.Clone()
			if bi > 0 {
				outMat.Name = fmt.Sprintf("%s-%d", mat.Name, bi)
			}
			tex := outMat.Textures[kind]
			tex.Image = decodedImage{Image: b.canvas, data: data, mime: mime}
			tex.Path = ""
			outMat.Textures[kind] = tex
			outMaterials = append(outMaterials, outMat)

			matIdxOut := len(outMaterials) - 1
			for i, c := range charts {
				if buildOf[i] != bi {
					continue
				}
				for _, localIdx := range c.memberIdx {
					faces[faceIdx[localIdx]].MaterialIndex = matIdxOut
				}
			}
		}
	}

	m.SetUVs(uvs)
	m.SetFaces(faces)
	m.SetMaterials(outMaterials)
	return RepackResult{Materials: outMaterials, Warnings: warnings}, nil
}

// primaryTexture returns the material's diffuse texture, or the first
// available texture channel if no diffuse is set, per §4.3's "materials
// with a normal map are repacked with an identical layout" rule: every
// channel shares the same chart placement, but the diffuse channel (or
// whichever is found first) drives the chart's pixel dimensions.
func primaryTexture(mat mesh.Material) (mesh.TextureRef, mesh.TextureKind, bool) {
	if t, ok := mat.Textures[mesh.TextureDiffuse]; ok && t.HasSource() {
		return t, mesh.TextureDiffuse, true
	}
	for kind, t := range mat.Textures {
		if t.HasSource() {
			return t, kind, true
		}
	}
	return mesh.TextureRef{}, 0, false
}

// blitChart crops chart's pixel rectangle from src, pads it by bleed
// replication, and copies it into dst at placed's offset (including the
// padding border), per §4.3 step 7.
func blitChart(dst *image.RGBA, src image.Image, c chart, placed rect, pad, texW, texH int) {
	x0 := int(math.Floor(c.uMin * float64(texW)))
	x1 := int(math.Ceil(c.uMax * float64(texW)))
	// V has a bottom-left origin in UV space but images are top-down, so the
	// pixel row range is derived from (1-v).
	y0 := int(math.Floor((1 - c.vMax) * float64(texH)))
	y1 := int(math.Ceil((1 - c.vMin) * float64(texH)))

	cropped := cropImage(src, image.Rect(x0, y0, x1, y1))
	padded := padEdgeReplicate(cropped, pad)

	if padded.Bounds().Dx() != placed.W || padded.Bounds().Dy() != placed.H {
		padded = resizeBiLinear(padded, placed.W, placed.H)
	}
	blit(dst, padded, placed.X, placed.Y)
}

// remapChartUVs rewrites, for every face in the chart, each UV vertex so the
// chart-local normalized position maps into the destination atlas rectangle
// (excluding its padding border), per §4.3 step 8. The interior content
// occupies [placed.X+pad, placed.X+placed.W-pad) in pixel space. atlasEdge
// is the edge length of the bin placed was packed into, which may differ
// from other bins for the same material after a PackOverflow retry.
func remapChartUVs(group []mesh.FaceT, c chart, uvs []common.Vertex2, placed rect, pad, atlasEdge int) {
	du := c.uMax - c.uMin
	dv := c.vMax - c.vMin

	innerX0 := float64(placed.X + pad)
	innerY0 := float64(placed.Y + pad)
	innerW := float64(placed.W - 2*pad)
	innerH := float64(placed.H - 2*pad)

	remap := func(idx int) {
		uv := uvs[idx]
		localU := 0.0
		if du > common.EPS {
			localU = (uv.U - c.uMin) / du
		}
		localV := 0.0
		if dv > common.EPS {
			localV = (uv.V - c.vMin) / dv
		}

		pxX := innerX0 + localU*innerW
		pxY := innerY0 + (1-localV)*innerH

		uvs[idx] = common.Vertex2{
			U: pxX / float64(atlasEdge),
			V: 1 - pxY/float64(atlasEdge),
		}
	}

	seen := make(map[int]bool)
	for _, f := range group {
		for _, idx := range f.UVIndices() {
			if !seen[idx] {
				seen[idx] = true
				remap(idx)
			}
		}
	}
}

// decodedImage is an image.Image that also remembers its already-encoded
// byte form, so engine/glb can embed the atlas without re-encoding it.
type decodedImage struct {
	image.Image
	data []byte
	mime string
}

// EncodedBytes returns the atlas's pre-encoded file bytes and MIME type.
func (d decodedImage) EncodedBytes() ([]byte, string) {
	return d.data, d.mime
}
