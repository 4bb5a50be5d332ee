package tile

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"

	"github.com/oxcart-geo/mst3tiles/common"
	"github.com/oxcart-geo/mst3tiles/engine/mesh"
)

type pntsPositionAccessor struct {
	ByteOffset int `json:"byteOffset"`
}

type pntsFeatureTable struct {
	PointsLength int                  `json:"POINTS_LENGTH"`
	Position     pntsPositionAccessor `json:"POSITION"`
}

// EncodePNTS wraps points as a Point Cloud tile, per §4.5. There is no
// embedded GLB chunk; the payload is exactly the header plus the Feature
// Table JSON and binary position array.
func EncodePNTS(points [][3]float32) ([]byte, error) {
	if len(points) == 0 {
		return nil, ErrEmptyPayload
	}

	ft, err := json.Marshal(pntsFeatureTable{
		PointsLength: len(points),
		Position:     pntsPositionAccessor{ByteOffset: 0},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal pnts feature table: %w", err)
	}
	ft = padJSON(ft)

	ftBin := floatTripletsToBytes(points)
	ftBin = padBinary(ftBin)

	var out bytes.Buffer
	totalLen := 28 + len(ft) + len(ftBin)
	if err := writeHeaderFields(&out, magicPNTS, tileVersion, uint32(totalLen),
		uint32(len(ft)), uint32(len(ftBin)), 0, 0); err != nil {
		return nil, err
	}
	out.Write(ft)
	out.Write(ftBin)

	return out.Bytes(), nil
}

func floatTripletsToBytes(vals [][3]float32) []byte {
	buf := make([]byte, 12*len(vals))
	for i, v := range vals {
		off := i * 12
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v[0]))
		binary.LittleEndian.PutUint32(buf[off+4:], math.Float32bits(v[1]))
		binary.LittleEndian.PutUint32(buf[off+8:], math.Float32bits(v[2]))
	}
	return buf
}

// SamplePoints derives a point set from m's triangles, per §4.5 and §6's
// pointCloudSamplingStrategy task config. density controls the points
// emitted per triangle for UniformSampling (subdivisions per edge of the
// barycentric grid) and DenseSampling (points per unit of triangle area);
// it is ignored by VerticesOnly. rng supplies randomness for DenseSampling;
// a nil rng uses a package-local deterministic source.
func SamplePoints(m mesh.IMesh, strategy PointSamplingStrategy, density float64, rng *rand.Rand) ([][3]float32, error) {
	switch strategy {
	case VerticesOnly:
		return samplePointsVertices(m), nil
	case UniformSampling:
		return samplePointsUniform(m, density), nil
	case DenseSampling:
		if rng == nil {
			rng = rand.New(rand.NewSource(1))
		}
		return samplePointsDense(m, density, rng), nil
	default:
		return nil, fmt.Errorf("tile: unknown point sampling strategy %v", strategy)
	}
}

func samplePointsVertices(m mesh.IMesh) [][3]float32 {
	var verts []common.Vertex3
	switch t := m.(type) {
	case *mesh.Mesh:
		verts = t.Vertices()
	case *mesh.MeshT:
		verts = t.Vertices()
	}
	points := make([][3]float32, len(verts))
	for i, v := range verts {
		points[i] = [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
	}
	return points
}

// trianglesOf returns each face's three world-space vertices, independent of
// whether m is plain or textured.
func trianglesOf(m mesh.IMesh) [][3]common.Vertex3 {
	switch t := m.(type) {
	case *mesh.Mesh:
		verts := t.Vertices()
		tris := make([][3]common.Vertex3, 0, len(t.Faces()))
		for _, f := range t.Faces() {
			tris = append(tris, [3]common.Vertex3{verts[f.A], verts[f.B], verts[f.C]})
		}
		return tris
	case *mesh.MeshT:
		verts := t.Vertices()
		tris := make([][3]common.Vertex3, 0, len(t.Faces()))
		for _, f := range t.Faces() {
			tris = append(tris, [3]common.Vertex3{verts[f.A], verts[f.B], verts[f.C]})
		}
		return tris
	default:
		return nil
	}
}

// samplePointsUniform emits a regular barycentric grid of points per
// triangle; density is the number of subdivisions per edge.
func samplePointsUniform(m mesh.IMesh, density float64) [][3]float32 {
	n := int(math.Round(density))
	if n < 1 {
		n = 1
	}
	var points [][3]float32
	for _, tri := range trianglesOf(m) {
		for i := 0; i <= n; i++ {
			for j := 0; j <= n-i; j++ {
				u := float64(i) / float64(n)
				v := float64(j) / float64(n)
				w := 1 - u - v
				p := barycentric(tri, u, v, w)
				points = append(points, [3]float32{float32(p.X), float32(p.Y), float32(p.Z)})
			}
		}
	}
	return points
}

// samplePointsDense emits a number of random-barycentric points per
// triangle proportional to the triangle's area and density.
func samplePointsDense(m mesh.IMesh, density float64, rng *rand.Rand) [][3]float32 {
	var points [][3]float32
	for _, tri := range trianglesOf(m) {
		area := triangleArea(tri)
		count := int(math.Ceil(area * density))
		if count < 1 {
			count = 1
		}
		for i := 0; i < count; i++ {
			u := rng.Float64()
			v := rng.Float64()
			if u+v > 1 {
				u, v = 1-u, 1-v
			}
			w := 1 - u - v
			p := barycentric(tri, u, v, w)
			points = append(points, [3]float32{float32(p.X), float32(p.Y), float32(p.Z)})
		}
	}
	return points
}

func barycentric(tri [3]common.Vertex3, u, v, w float64) common.Vertex3 {
	return common.Vertex3{
		X: tri[0].X*w + tri[1].X*u + tri[2].X*v,
		Y: tri[0].Y*w + tri[1].Y*u + tri[2].Y*v,
		Z: tri[0].Z*w + tri[1].Z*u + tri[2].Z*v,
	}
}

func triangleArea(tri [3]common.Vertex3) float64 {
	ux, uy, uz := tri[1].X-tri[0].X, tri[1].Y-tri[0].Y, tri[1].Z-tri[0].Z
	vx, vy, vz := tri[2].X-tri[0].X, tri[2].Y-tri[0].Y, tri[2].Z-tri[0].Z
	cx := uy*vz - uz*vy
	cy := uz*vx - ux*vz
	cz := ux*vy - uy*vx
	return 0.5 * math.Sqrt(cx*cx+cy*cy+cz*cz)
}
