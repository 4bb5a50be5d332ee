package glb

import (
	"encoding/binary"
	"encoding/json"
	"image"
	"image/color"
	"testing"

	"github.com/oxcart-geo/mst3tiles/common"
	"github.com/oxcart-geo/mst3tiles/engine/mesh"
)

func simplePlainMesh() *mesh.Mesh {
	verts := []common.Vertex3{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
		{X: 0, Y: 1, Z: 0},
	}
	faces := []mesh.Face{{A: 0, B: 1, C: 2}}
	m := mesh.NewMesh("tri", verts, faces)
	return m.(*mesh.Mesh)
}

func simpleTexturedMesh() *mesh.MeshT {
	verts := []common.Vertex3{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
		{X: 0, Y: 1, Z: 0},
	}
	uvs := []common.Vertex2{
		{U: 0, V: 0},
		{U: 1, V: 0},
		{U: 0, V: 1},
	}
	faces := []mesh.FaceT{{A: 0, B: 1, C: 2, UVA: 0, UVB: 1, UVC: 2, MaterialIndex: 0}}
	mats := []mesh.Material{{Name: "mat0", Opacity: 1}}
	m := mesh.NewMeshT("tri", verts, uvs, faces, mats)
	return m.(*mesh.MeshT)
}

func parseGLBHeader(t *testing.T, data []byte) (jsonChunk []byte, binChunk []byte) {
	t.Helper()
	if len(data) < 12 {
		t.Fatalf("glb too short: %d bytes", len(data))
	}
	magic := binary.LittleEndian.Uint32(data[0:4])
	version := binary.LittleEndian.Uint32(data[4:8])
	length := binary.LittleEndian.Uint32(data[8:12])
	if magic != glbMagic {
		t.Fatalf("magic = %#x, want %#x", magic, glbMagic)
	}
	if version != glbVersion {
		t.Fatalf("version = %d, want %d", version, glbVersion)
	}
	if int(length) != len(data) {
		t.Fatalf("header length = %d, actual buffer = %d", length, len(data))
	}

	offset := 12
	jsonLen := binary.LittleEndian.Uint32(data[offset:])
	jsonType := binary.LittleEndian.Uint32(data[offset+4:])
	if jsonType != chunkTypeJSON {
		t.Fatalf("first chunk type = %#x, want JSON", jsonType)
	}
	offset += 8
	jsonChunk = data[offset : offset+int(jsonLen)]
	offset += int(jsonLen)

	binLen := binary.LittleEndian.Uint32(data[offset:])
	binType := binary.LittleEndian.Uint32(data[offset+4:])
	if binType != chunkTypeBIN {
		t.Fatalf("second chunk type = %#x, want BIN", binType)
	}
	offset += 8
	binChunk = data[offset : offset+int(binLen)]

	return jsonChunk, binChunk
}

func TestEncodePlainProducesValidGLB(t *testing.T) {
	data, err := Encode(simplePlainMesh(), EncodeOptions{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	jsonChunk, binChunk := parseGLBHeader(t, data)
	if len(jsonChunk)%4 != 0 {
		t.Errorf("json chunk length %d not 4-byte aligned", len(jsonChunk))
	}
	if len(binChunk)%4 != 0 {
		t.Errorf("bin chunk length %d not 4-byte aligned", len(binChunk))
	}

	var doc document
	if err := json.Unmarshal(jsonChunk, &doc); err != nil {
		t.Fatalf("unmarshal json chunk: %v", err)
	}
	if len(doc.Meshes) != 1 || len(doc.Meshes[0].Primitives) != 1 {
		t.Fatalf("expected 1 mesh with 1 primitive, got %+v", doc.Meshes)
	}
	if doc.Meshes[0].Primitives[0].Material != nil {
		t.Errorf("plain mesh primitive should have no material reference")
	}
	if _, ok := doc.Meshes[0].Primitives[0].Attributes["POSITION"]; !ok {
		t.Errorf("missing POSITION attribute")
	}
}

func TestEncodeTexturedEmitsMaterialAndUVs(t *testing.T) {
	data, err := Encode(simpleTexturedMesh(), EncodeOptions{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	jsonChunk, _ := parseGLBHeader(t, data)
	var doc document
	if err := json.Unmarshal(jsonChunk, &doc); err != nil {
		t.Fatalf("unmarshal json chunk: %v", err)
	}

	if len(doc.Materials) != 1 {
		t.Fatalf("got %d materials, want 1", len(doc.Materials))
	}
	if doc.Materials[0].PbrMetallicRoughness.MetallicFactor != 0 {
		t.Errorf("metallicFactor = %v, want 0", doc.Materials[0].PbrMetallicRoughness.MetallicFactor)
	}
	if doc.Materials[0].PbrMetallicRoughness.RoughnessFactor != 1 {
		t.Errorf("roughnessFactor = %v, want 1", doc.Materials[0].PbrMetallicRoughness.RoughnessFactor)
	}
	if doc.Materials[0].AlphaMode != "OPAQUE" {
		t.Errorf("alphaMode = %q, want OPAQUE", doc.Materials[0].AlphaMode)
	}

	prim := doc.Meshes[0].Primitives[0]
	if _, ok := prim.Attributes["TEXCOORD_0"]; !ok {
		t.Errorf("missing TEXCOORD_0 attribute on textured mesh primitive")
	}
	if prim.Material == nil || *prim.Material != 0 {
		t.Errorf("primitive material reference = %v, want pointer to 0", prim.Material)
	}
}

func TestEncodeRejectsUnknownMeshType(t *testing.T) {
	if _, err := Encode(unsupportedMesh{}, EncodeOptions{}); err == nil {
		t.Fatalf("expected error for unsupported mesh implementation")
	}
}

type unsupportedMesh struct{ mesh.IMesh }

func TestAlphaModeFor(t *testing.T) {
	cases := []struct {
		opacity float64
		want    string
	}{
		{1.0, "OPAQUE"},
		{1.5, "OPAQUE"},
		{0.99, "BLEND"},
		{0.5, "BLEND"},
		{0.49, "MASK"},
		{0.0, "MASK"},
	}
	for _, c := range cases {
		if got := alphaModeFor(c.opacity); got != c.want {
			t.Errorf("alphaModeFor(%v) = %q, want %q", c.opacity, got, c.want)
		}
	}
}

func TestVertexBounds(t *testing.T) {
	verts := []common.Vertex3{
		{X: -1, Y: 2, Z: 0},
		{X: 3, Y: -2, Z: 5},
		{X: 0, Y: 0, Z: -4},
	}
	min, max := vertexBounds(verts)
	wantMin := []float64{-1, -2, -4}
	wantMax := []float64{3, 2, 5}
	for i := range wantMin {
		if min[i] != wantMin[i] {
			t.Errorf("min[%d] = %v, want %v", i, min[i], wantMin[i])
		}
		if max[i] != wantMax[i] {
			t.Errorf("max[%d] = %v, want %v", i, max[i], wantMax[i])
		}
	}
}

func TestVertexBoundsEmpty(t *testing.T) {
	min, max := vertexBounds(nil)
	if min != nil || max != nil {
		t.Errorf("expected nil, nil for empty input, got %v, %v", min, max)
	}
}

func TestHasTranslucencyDetectsAlpha(t *testing.T) {
	opaque := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			opaque.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}
	if hasTranslucency(opaque) {
		t.Errorf("expected opaque image to report no translucency")
	}

	translucent := image.NewRGBA(image.Rect(0, 0, 2, 2))
	translucent.Set(0, 0, color.RGBA{255, 0, 0, 128})
	if !hasTranslucency(translucent) {
		t.Errorf("expected image with a semi-transparent pixel to report translucency")
	}
}
