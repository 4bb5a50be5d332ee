package glb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"log"
	"math"
	"os"

	xdraw "golang.org/x/image/draw"

	"github.com/oxcart-geo/mst3tiles/common"
	"github.com/oxcart-geo/mst3tiles/engine/mesh"
	"github.com/oxcart-geo/mst3tiles/engine/texcache"
)

// EncodeOptions configures Encode, per §4.4.
type EncodeOptions struct {
	// MaxTextureSize caps a texture's longest edge when Downsample is true.
	MaxTextureSize int

	// JPEGQuality is used when a texture has no alpha channel < 255.
	JPEGQuality int

	// Downsample enables resizing textures down to MaxTextureSize.
	Downsample bool
}

func (o EncodeOptions) quality() int {
	if o.JPEGQuality <= 0 {
		return 85
	}
	return o.JPEGQuality
}

func (o EncodeOptions) maxSize() int {
	if o.MaxTextureSize <= 0 {
		return 2048
	}
	return o.MaxTextureSize
}

// bufferBuilder accumulates little-endian binary payloads into a single
// GLB binary chunk, tracking each append's offset for bufferView creation —
// mirrors the teacher's gltfParser reading the same layout in reverse.
type bufferBuilder struct {
	buf bytes.Buffer
}

func align(n, to int) int {
	rem := n % to
	if rem == 0 {
		return n
	}
	return n + (to - rem)
}

func (b *bufferBuilder) append(data []byte) (offset, length int) {
	offset = b.buf.Len()
	b.buf.Write(data)
	length = len(data)
	for b.buf.Len()%4 != 0 {
		b.buf.WriteByte(0)
	}
	return offset, length
}

func floatsToBytes(vals []float32) []byte {
	buf := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func uint32sToBytes(vals []uint32) []byte {
	buf := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}

// Encode builds a complete GLB binary buffer for m, per §4.4: one mesh node,
// primitives grouped by material index, POSITION/NORMAL/TEXCOORD_0
// attributes, and embedded metallic-roughness materials.
func Encode(m mesh.IMesh, opts EncodeOptions) ([]byte, error) {
	switch t := m.(type) {
	case *mesh.MeshT:
		return encodeTextured(t, opts)
	case *mesh.Mesh:
		return encodePlain(t)
	default:
		return nil, common.NewPipelineError(common.ErrorKindInvalidInput,
			fmt.Errorf("glb: unsupported mesh implementation %T", m))
	}
}

func encodePlain(m *mesh.Mesh) ([]byte, error) {
	bb := &bufferBuilder{}
	doc := newBaseDocument(m.Name())

	positions := make([]float32, 0, 3*len(m.Vertices()))
	normals := make([]float32, 0, 3*len(m.Vertices()))
	for _, v := range m.Vertices() {
		positions = append(positions, float32(v.X), float32(v.Y), float32(v.Z))
		normals = append(normals, 0, 0, 1)
	}
	posMin, posMax := vertexBounds(m.Vertices())
	posAcc := addVec3Accessor(bb, &doc, positions, posMin, posMax)
	normAcc := addVec3Accessor(bb, &doc, normals, nil, nil)

	indices := make([]uint32, 0, 3*len(m.Faces()))
	for _, f := range m.Faces() {
		indices = append(indices, uint32(f.A), uint32(f.B), uint32(f.C))
	}
	idxAcc := addIndexAccessor(bb, &doc, indices)

	doc.Meshes = []meshDoc{{
		Name: m.Name(),
		Primitives: []primitive{{
			Attributes: map[string]int{"POSITION": posAcc, "NORMAL": normAcc},
			Indices:    idxAcc,
			Mode:       4,
		}},
	}}

	return assembleGLB(doc, bb)
}

func encodeTextured(m *mesh.MeshT, opts EncodeOptions) ([]byte, error) {
	bb := &bufferBuilder{}
	doc := newBaseDocument(m.Name())

	positions := make([]float32, 0, 3*len(m.Vertices()))
	normals := make([]float32, 0, 3*len(m.Vertices()))
	for _, v := range m.Vertices() {
		positions = append(positions, float32(v.X), float32(v.Y), float32(v.Z))
		normals = append(normals, 0, 0, 1)
	}
	posMin, posMax := vertexBounds(m.Vertices())
	posAcc := addVec3Accessor(bb, &doc, positions, posMin, posMax)
	normAcc := addVec3Accessor(bb, &doc, normals, nil, nil)

	uvs := make([]float32, 0, 2*len(m.UVs()))
	for _, uv := range m.UVs() {
		uvs = append(uvs, float32(uv.U), float32(1-uv.V))
	}
	uvAcc := addVec2Accessor(bb, &doc, uvs)

	byMaterial := make(map[int][]mesh.FaceT)
	var matOrder []int
	for _, f := range m.Faces() {
		if _, ok := byMaterial[f.MaterialIndex]; !ok {
			matOrder = append(matOrder, f.MaterialIndex)
		}
		byMaterial[f.MaterialIndex] = append(byMaterial[f.MaterialIndex], f)
	}

	imageCache := make(map[string]int) // keyed by texture Path; embedded images are not shared

	for _, matIdx := range matOrder {
		faces := byMaterial[matIdx]
		indices := make([]uint32, 0, 3*len(faces))
		for _, f := range faces {
			indices = append(indices, uint32(f.A), uint32(f.B), uint32(f.C))
		}
		idxAcc := addIndexAccessor(bb, &doc, indices)

		matDocIdx, err := addMaterial(bb, &doc, m.Materials()[matIdx], opts, imageCache)
		if err != nil {
			return nil, err
		}

		doc.Meshes[0].Primitives = append(doc.Meshes[0].Primitives, primitive{
			Attributes: map[string]int{"POSITION": posAcc, "NORMAL": normAcc, "TEXCOORD_0": uvAcc},
			Indices:    idxAcc,
			Material:   &matDocIdx,
			Mode:       4,
		})
	}

	return assembleGLB(doc, bb)
}

func newBaseDocument(name string) document {
	return document{
		Asset:  asset{Version: "2.0", Generator: "mst3tiles"},
		Scene:  0,
		Scenes: []scene{{Nodes: []int{0}}},
		Nodes:  []node{{Name: name, Mesh: intPtr(0)}},
		Meshes: []meshDoc{{Name: name}},
	}
}

func intPtr(i int) *int { return &i }

// vertexBounds computes the per-component min/max required on a glTF
// POSITION accessor. Returns nil, nil for an empty vertex list.
func vertexBounds(vertices []common.Vertex3) (min, max []float64) {
	if len(vertices) == 0 {
		return nil, nil
	}
	min = []float64{vertices[0].X, vertices[0].Y, vertices[0].Z}
	max = []float64{vertices[0].X, vertices[0].Y, vertices[0].Z}
	for _, v := range vertices[1:] {
		c := [3]float64{v.X, v.Y, v.Z}
		for i, val := range c {
			if val < min[i] {
				min[i] = val
			}
			if val > max[i] {
				max[i] = val
			}
		}
	}
	return min, max
}

func addVec3Accessor(bb *bufferBuilder, doc *document, data []float32, min, max []float64) int {
	offset, length := bb.append(floatsToBytes(data))
	bvIdx := len(doc.BufferViews)
	doc.BufferViews = append(doc.BufferViews, bufferView{ByteOffset: offset, ByteLength: length, Target: intPtr(targetArrayBuffer)})

	accIdx := len(doc.Accessors)
	acc := accessor{
		BufferView:    bvIdx,
		ComponentType: componentTypeFloat,
		Count:         len(data) / 3,
		Type:          accessorTypeVec3,
		Min:           min,
		Max:           max,
	}
	doc.Accessors = append(doc.Accessors, acc)
	return accIdx
}

func addVec2Accessor(bb *bufferBuilder, doc *document, data []float32) int {
	offset, length := bb.append(floatsToBytes(data))
	bvIdx := len(doc.BufferViews)
	doc.BufferViews = append(doc.BufferViews, bufferView{ByteOffset: offset, ByteLength: length, Target: intPtr(targetArrayBuffer)})

	accIdx := len(doc.Accessors)
	doc.Accessors = append(doc.Accessors, accessor{
		BufferView:    bvIdx,
		ComponentType: componentTypeFloat,
		Count:         len(data) / 2,
		Type:          accessorTypeVec2,
	})
	return accIdx
}

func addIndexAccessor(bb *bufferBuilder, doc *document, indices []uint32) int {
	offset, length := bb.append(uint32sToBytes(indices))
	bvIdx := len(doc.BufferViews)
	doc.BufferViews = append(doc.BufferViews, bufferView{ByteOffset: offset, ByteLength: length, Target: intPtr(targetElementArrayBuffer)})

	accIdx := len(doc.Accessors)
	doc.Accessors = append(doc.Accessors, accessor{
		BufferView:    bvIdx,
		ComponentType: componentTypeUnsignedInt,
		Count:         len(indices),
		Type:          accessorTypeScalar,
	})
	return accIdx
}

// addMaterial appends a metallic-roughness material, per §4.4: metallic=0,
// roughness=1, alpha mode derived from opacity, base color texture embedded
// via a bufferView.
func addMaterial(bb *bufferBuilder, doc *document, mat mesh.Material, opts EncodeOptions, imageCache map[string]int) (int, error) {
	baseColor := [4]float64{1, 1, 1, 1}
	if mat.Diffuse != nil {
		baseColor = [4]float64{mat.Diffuse.R, mat.Diffuse.G, mat.Diffuse.B, 1}
	}
	opacity := mat.Opacity
	if opacity == 0 {
		opacity = 1
	}
	baseColor[3] = opacity

	md := materialDoc{
		Name: mat.Name,
		PbrMetallicRoughness: pbrMetallicRoughness{
			BaseColorFactor: baseColor,
			MetallicFactor:  0,
			RoughnessFactor: 1,
		},
		AlphaMode: alphaModeFor(opacity),
	}

	// Per §7's TextureLoadFailed policy, a texture that fails to decode is
	// logged and dropped rather than failing the whole material; the
	// material falls back to its base color factor.
	if tex, ok := mat.Textures[mesh.TextureDiffuse]; ok && tex.HasSource() {
		if texIdx, err := embedTexture(bb, doc, tex, opts, imageCache); err != nil {
			log.Printf("glb: material %q: base color texture failed to load, falling back to color factors: %v", mat.Name, err)
		} else {
			md.PbrMetallicRoughness.BaseColorTexture = &textureInfo{Index: texIdx}
		}
	}
	if tex, ok := mat.Textures[mesh.TextureNormal]; ok && tex.HasSource() {
		if texIdx, err := embedTexture(bb, doc, tex, opts, imageCache); err != nil {
			log.Printf("glb: material %q: normal map failed to load, dropping normal texture: %v", mat.Name, err)
		} else {
			md.NormalTexture = &textureInfo{Index: texIdx}
		}
	}

	idx := len(doc.Materials)
	doc.Materials = append(doc.Materials, md)
	return idx, nil
}

func alphaModeFor(opacity float64) string {
	switch {
	case opacity >= 1:
		return "OPAQUE"
	case opacity < 0.5:
		return "MASK"
	default:
		return "BLEND"
	}
}

// embedTexture decodes, optionally downsamples, re-encodes (JPEG unless the
// image has translucent pixels, in which case PNG), and embeds ref's image
// data as a GLB bufferView, per §4.4. Returns the texture index.
func embedTexture(bb *bufferBuilder, doc *document, ref mesh.TextureRef, opts EncodeOptions, cache map[string]int) (int, error) {
	cacheKey := ref.Path
	if cacheKey != "" {
		if idx, ok := cache[cacheKey]; ok {
			return idx, nil
		}
	}

	img, err := decodeTextureRef(ref)
	if err != nil {
		return 0, common.NewPipelineError(common.ErrorKindTextureLoadFailed, err)
	}

	if opts.Downsample {
		img = downsample(img, opts.maxSize())
	}

	data, mime, err := encodeTextureImage(img, opts.quality())
	if err != nil {
		return 0, err
	}

	offset, length := bb.append(data)
	bvIdx := len(doc.BufferViews)
	doc.BufferViews = append(doc.BufferViews, bufferView{ByteOffset: offset, ByteLength: length})

	imgIdx := len(doc.Images)
	doc.Images = append(doc.Images, imageDoc{MimeType: mime, BufferView: bvIdx})

	sampIdx := len(doc.Samplers)
	wrap := glTFWrap(ref.Wrap)
	doc.Samplers = append(doc.Samplers, samplerDoc{WrapS: wrap, WrapT: wrap})

	texIdx := len(doc.Textures)
	doc.Textures = append(doc.Textures, textureDoc{Sampler: intPtr(sampIdx), Source: intPtr(imgIdx)})

	cache[cacheKey] = texIdx
	return texIdx, nil
}

func glTFWrap(w mesh.WrapMode) int {
	switch w {
	case mesh.WrapClamp:
		return wrapClampToEdge
	case mesh.WrapMirror:
		return wrapMirrorRepeat
	default:
		return wrapRepeat
	}
}

type encodedSource interface {
	EncodedBytes() ([]byte, string)
}

// decodeTextureRef decodes ref's pixel data from its embedded Image or its
// Path, mirroring engine/atlas's decodeTexture so both packages decode
// through the same process-wide texcache.Shared cache, per §5 — a texture
// path shared between a tile's atlas and its glb encoding is only ever
// decoded once.
func decodeTextureRef(ref mesh.TextureRef) (image.Image, error) {
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

// encodeTextureImage re-encodes img, reusing pre-encoded bytes from
// engine/atlas's decodedImage wrapper when available so a freshly packed
// atlas is never re-compressed. Otherwise it encodes fresh: JPEG unless any
// pixel has alpha < 255, per §4.4.
func encodeTextureImage(img image.Image, quality int) ([]byte, string, error) {
	if src, ok := img.(encodedSource); ok {
		return src.EncodedBytes()
	}
	if hasTranslucency(img) {
		return encodePNG(img)
	}
	return encodeJPEG(img, quality)
}

func hasTranslucency(img image.Image) bool {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			if a != 0xffff {
				return true
			}
		}
	}
	return false
}

func downsample(img image.Image, maxSize int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= maxSize {
		return img
	}
	scale := float64(maxSize) / float64(longest)
	nw := int(math.Round(float64(w) * scale))
	nh := int(math.Round(float64(h) * scale))
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}
