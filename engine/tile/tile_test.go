package tile

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/oxcart-geo/mst3tiles/common"
	"github.com/oxcart-geo/mst3tiles/engine/mesh"
)

func fakeGLB() []byte {
	return []byte{0x67, 0x6C, 0x54, 0x46, 0x02, 0x00, 0x00, 0x00, 0x0, 0x0, 0x0, 0x0}
}

// TestB3DMHeader covers spec scenario S4: magic, version, total length, and
// the header field sum must agree.
func TestB3DMHeader(t *testing.T) {
	glb := fakeGLB()
	out, err := EncodeB3DM(glb, []string{"concrete"})
	if err != nil {
		t.Fatalf("EncodeB3DM: %v", err)
	}

	if string(out[0:4]) != "b3dm" {
		t.Fatalf("magic = %q, want b3dm", out[0:4])
	}
	version := binary.LittleEndian.Uint32(out[4:8])
	if version != 1 {
		t.Fatalf("version = %d, want 1", version)
	}
	totalLen := binary.LittleEndian.Uint32(out[8:12])
	if int(totalLen) != len(out) {
		t.Fatalf("header byteLength = %d, actual = %d", totalLen, len(out))
	}

	ftJSONLen := binary.LittleEndian.Uint32(out[12:16])
	ftBinLen := binary.LittleEndian.Uint32(out[16:20])
	btJSONLen := binary.LittleEndian.Uint32(out[20:24])
	btBinLen := binary.LittleEndian.Uint32(out[24:28])

	sum := 28 + ftJSONLen + ftBinLen + btJSONLen + btBinLen + uint32(len(glb))
	if sum != totalLen {
		t.Fatalf("field sum + 28 = %d, want totalLen %d", sum, totalLen)
	}
}

func TestB3DMRejectsEmptyGLB(t *testing.T) {
	if _, err := EncodeB3DM(nil, nil); err == nil {
		t.Fatalf("expected error for empty GLB payload")
	}
}

func TestB3DMDefaultsBatchLengthToOne(t *testing.T) {
	out, err := EncodeB3DM(fakeGLB(), nil)
	if err != nil {
		t.Fatalf("EncodeB3DM: %v", err)
	}
	ftJSONLen := int(binary.LittleEndian.Uint32(out[12:16]))
	ft := bytes.TrimRight(out[28:28+ftJSONLen], " ")
	if !bytes.Contains(ft, []byte(`"BATCH_LENGTH":1`)) {
		t.Fatalf("feature table %q does not declare BATCH_LENGTH:1", ft)
	}
}

// TestCMPTAssembly covers spec scenario S5: three inner tiles of known
// sizes round-trip through EncodeCMPT/ParseCMPT with byte-for-byte equality.
func TestCMPTAssembly(t *testing.T) {
	t1 := bytes.Repeat([]byte{0xAA}, 100)
	t2 := bytes.Repeat([]byte{0xBB}, 200)
	t3 := bytes.Repeat([]byte{0xCC}, 300)
	// Give each a recognizable magic/version/byteLength header so ParseCMPT
	// accepts it as a known inner tile type.
	t1 = withFakeHeader(magicB3DM, t1)
	t2 = withFakeHeader(magicI3DM, t2)
	t3 = withFakeHeader(magicPNTS, t3)

	out, err := EncodeCMPT([][]byte{t1, t2, t3})
	if err != nil {
		t.Fatalf("EncodeCMPT: %v", err)
	}

	wantLen := 16 + len(t1) + len(t2) + len(t3)
	if len(out) != wantLen {
		t.Fatalf("CMPT total length = %d, want %d", len(out), wantLen)
	}
	tilesLength := binary.LittleEndian.Uint32(out[12:16])
	if tilesLength != 3 {
		t.Fatalf("tilesLength = %d, want 3", tilesLength)
	}

	parsed, err := ParseCMPT(out)
	if err != nil {
		t.Fatalf("ParseCMPT: %v", err)
	}
	if len(parsed) != 3 {
		t.Fatalf("got %d tiles, want 3", len(parsed))
	}
	for i, want := range [][]byte{t1, t2, t3} {
		if !bytes.Equal(parsed[i], want) {
			t.Errorf("tile %d mismatch: got %d bytes, want %d bytes", i, len(parsed[i]), len(want))
		}
	}
}

func withFakeHeader(magic string, payload []byte) []byte {
	out := make([]byte, 12+len(payload))
	copy(out[0:4], magic)
	binary.LittleEndian.PutUint32(out[4:8], 1)
	binary.LittleEndian.PutUint32(out[8:12], uint32(len(out)))
	copy(out[12:], payload)
	return out
}

func TestParseCMPTSkipsUnknownMagic(t *testing.T) {
	known := withFakeHeader(magicB3DM, bytes.Repeat([]byte{0x01}, 20))
	unknown := withFakeHeader("xxxx", bytes.Repeat([]byte{0x02}, 20))

	out, err := EncodeCMPT([][]byte{unknown, known})
	if err != nil {
		t.Fatalf("EncodeCMPT: %v", err)
	}

	parsed, err := ParseCMPT(out)
	if err != nil {
		t.Fatalf("ParseCMPT: %v", err)
	}
	if len(parsed) != 1 {
		t.Fatalf("got %d tiles, want 1 (unknown magic should be skipped)", len(parsed))
	}
	if !bytes.Equal(parsed[0], known) {
		t.Errorf("surviving tile does not match the known-magic input")
	}
}

func TestPNTSRejectsEmptyPoints(t *testing.T) {
	if _, err := EncodePNTS(nil); err == nil {
		t.Fatalf("expected error for empty point set")
	}
}

func TestPNTSHeader(t *testing.T) {
	points := [][3]float32{{1, 2, 3}, {4, 5, 6}}
	out, err := EncodePNTS(points)
	if err != nil {
		t.Fatalf("EncodePNTS: %v", err)
	}
	if string(out[0:4]) != "pnts" {
		t.Fatalf("magic = %q, want pnts", out[0:4])
	}
	totalLen := binary.LittleEndian.Uint32(out[8:12])
	if int(totalLen) != len(out) {
		t.Fatalf("byteLength = %d, actual = %d", totalLen, len(out))
	}
}

func TestSamplePointsVerticesOnly(t *testing.T) {
	verts := []common.Vertex3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}}
	faces := []mesh.Face{{A: 0, B: 1, C: 2}}
	m := mesh.NewMesh("tri", verts, faces)

	points, err := SamplePoints(m, VerticesOnly, 0, nil)
	if err != nil {
		t.Fatalf("SamplePoints: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("got %d points, want 3", len(points))
	}
}

func TestSamplePointsDenseIsDeterministicWithSameSeed(t *testing.T) {
	verts := []common.Vertex3{{X: 0, Y: 0, Z: 0}, {X: 4, Y: 0, Z: 0}, {X: 0, Y: 4, Z: 0}}
	faces := []mesh.Face{{A: 0, B: 1, C: 2}}
	m := mesh.NewMesh("tri", verts, faces)

	r1 := rand.New(rand.NewSource(42))
	r2 := rand.New(rand.NewSource(42))
	p1, err := SamplePoints(m, DenseSampling, 1.0, r1)
	if err != nil {
		t.Fatalf("SamplePoints: %v", err)
	}
	p2, err := SamplePoints(m, DenseSampling, 1.0, r2)
	if err != nil {
		t.Fatalf("SamplePoints: %v", err)
	}
	if len(p1) != len(p2) {
		t.Fatalf("point counts differ: %d vs %d", len(p1), len(p2))
	}
	for i := range p1 {
		if p1[i] != p2[i] {
			t.Fatalf("point %d differs between identically-seeded runs: %v vs %v", i, p1[i], p2[i])
		}
	}
}
