package tiler

import (
	"context"
	"fmt"

	"github.com/oxcart-geo/mst3tiles/common"
	"github.com/oxcart-geo/mst3tiles/engine/mesh"
)

// sliceAxis partitions m into cellCount consecutive bins along axis,
// starting at originMin with uniform cellSize, via cellCount-1 sequential
// calls to IMesh.Split. The final bin absorbs whatever remains past the
// last interior boundary, so it is never narrower than intended even when
// cellSize doesn't evenly divide the mesh's true extent.
func sliceAxis(ctx context.Context, m mesh.IMesh, axis common.Axis, originMin, cellSize float64, cellCount int) ([]mesh.IMesh, error) {
	if cellCount < 1 {
		return nil, fmt.Errorf("tiler: cellCount must be >= 1, got %d", cellCount)
	}
	bins := make([]mesh.IMesh, cellCount)
	remaining := m
	for i := 0; i < cellCount-1; i++ {
		boundary := originMin + float64(i+1)*cellSize
		left, right, _, err := remaining.Split(ctx, axis, boundary)
		if err != nil {
			return nil, fmt.Errorf("tiler: slice axis %s at %v: %w", axis, boundary, err)
		}
		bins[i] = left
		remaining = right
	}
	bins[cellCount-1] = remaining
	return bins, nil
}

// gridStrategy implements §4.6's Grid strategy: at level L, the model AABB
// is divided into 2^L x 2^L x 2^L cells; every cell that intersects the
// mesh (i.e. whose carved slice has at least one face) becomes a tile.
type gridStrategy struct{}

func (gridStrategy) RecursesOwnTree() bool { return false }

func (gridStrategy) EstimateSliceCount(level int, cfg TaskConfig) int {
	n := 1 << uint(level)
	return n * n * n
}

func (gridStrategy) GenerateSlices(ctx context.Context, root mesh.IMesh, level int, cfg TaskConfig, modelBounds common.Box3) ([]Tile, error) {
	n := 1 << uint(level)
	return nonUniformGrid(ctx, root, level, n, n, n, modelBounds)
}

// nonUniformGrid carves root into nx*ny*nz cells, per axis, skipping cells
// whose carved slice has zero faces or whose cell AABB has a side shorter
// than EPS after clamping, per §4.6. Shared by gridStrategy (nx=ny=nz=2^L)
// and recursiveStrategy (axes accumulate subdivisions one at a time).
func nonUniformGrid(ctx context.Context, root mesh.IMesh, level, nx, ny, nz int, modelBounds common.Box3) ([]Tile, error) {
	modelBounds = clampBoxForDegeneracy(modelBounds)

	sizeX := (modelBounds.Max.X - modelBounds.Min.X) / float64(nx)
	sizeY := (modelBounds.Max.Y - modelBounds.Min.Y) / float64(ny)
	sizeZ := (modelBounds.Max.Z - modelBounds.Min.Z) / float64(nz)
	if sizeX < common.EPS || sizeY < common.EPS || sizeZ < common.EPS {
		return nil, nil
	}

	xBins, err := sliceAxis(ctx, root, common.AxisX, modelBounds.Min.X, sizeX, nx)
	if err != nil {
		return nil, err
	}

	var tiles []Tile
	for xi, xm := range xBins {
		yBins, err := sliceAxis(ctx, xm, common.AxisY, modelBounds.Min.Y, sizeY, ny)
		if err != nil {
			return nil, err
		}
		for yi, ym := range yBins {
			zBins, err := sliceAxis(ctx, ym, common.AxisZ, modelBounds.Min.Z, sizeZ, nz)
			if err != nil {
				return nil, err
			}
			for zi, zm := range zBins {
				if zm.FacesCount() == 0 {
					continue
				}
				tiles = append(tiles, Tile{
					Level: level, X: xi, Y: yi, Z: zi,
					Mesh: zm.RemoveUnused(),
				})
			}
		}
	}
	return tiles, nil
}
