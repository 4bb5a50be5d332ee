package tile

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// i3dmPositionAccessor is the Feature Table JSON's POSITION semantic,
// pointing at byte offset 0 of the Feature Table Binary, per §4.5.
type i3dmPositionAccessor struct {
	ByteOffset int `json:"byteOffset"`
}

type i3dmFeatureTable struct {
	InstancesLength int                  `json:"INSTANCES_LENGTH"`
	Position        i3dmPositionAccessor `json:"POSITION"`
}

// gltfFormatEmbedded marks the I3DM's content as an embedded GLB rather
// than a URI reference to an external glTF file, per §4.5.
const gltfFormatEmbedded uint32 = 1

// EncodeI3DM wraps glb as an Instanced 3D Model tile, per §4.5. positions
// are instance placements in the tile's local model space.
func EncodeI3DM(glb []byte, positions [][3]float32) ([]byte, error) {
	if len(glb) == 0 {
		return nil, ErrEmptyPayload
	}

	ft, err := json.Marshal(i3dmFeatureTable{
		InstancesLength: len(positions),
		Position:        i3dmPositionAccessor{ByteOffset: 0},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal i3dm feature table: %w", err)
	}
	ft = padJSON(ft)

	ftBin := floatTripletsToBytes(positions)
	ftBin = padBinary(ftBin)

	var out bytes.Buffer
	totalLen := 32 + len(ft) + len(ftBin) + len(glb)
	if err := writeHeaderFields(&out, magicI3DM, tileVersion, uint32(totalLen),
		uint32(len(ft)), uint32(len(ftBin)), 0, 0, gltfFormatEmbedded); err != nil {
		return nil, err
	}
	out.Write(ft)
	out.Write(ftBin)
	out.Write(glb)

	return out.Bytes(), nil
}
