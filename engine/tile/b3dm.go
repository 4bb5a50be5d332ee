package tile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrEmptyPayload is returned when EncodeB3DM, EncodeI3DM, or EncodePNTS is
// given an empty GLB/point payload, per §4.5's "empty mesh -> reject with an
// invalid-input error" rule.
var ErrEmptyPayload = errors.New("tile: empty payload")

// b3dmFeatureTable is the minimal Feature Table JSON for a batched model
// tile, per §4.5.
type b3dmFeatureTable struct {
	BatchLength int `json:"BATCH_LENGTH"`
}

// b3dmBatchTable lists per-batch material identity, per §4.5. Both arrays
// have length BATCH_LENGTH.
type b3dmBatchTable struct {
	MaterialID   []int    `json:"MaterialID"`
	MaterialName []string `json:"MaterialName"`
}

// EncodeB3DM wraps glb as a Batched 3D Model tile, per §4.5. materialNames
// supplies one name per material referenced by the mesh; an empty slice
// yields BATCH_LENGTH=1 with a single unnamed batch.
func EncodeB3DM(glb []byte, materialNames []string) ([]byte, error) {
	if len(glb) == 0 {
		return nil, ErrEmptyPayload
	}

	n := len(materialNames)
	if n == 0 {
		n = 1
	}

	ft, err := json.Marshal(b3dmFeatureTable{BatchLength: n})
	if err != nil {
		return nil, fmt.Errorf("marshal b3dm feature table: %w", err)
	}
	ft = padJSON(ft)

	ids := make([]int, n)
	names := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = i
		if i < len(materialNames) {
			names[i] = materialNames[i]
		}
	}
	bt, err := json.Marshal(b3dmBatchTable{MaterialID: ids, MaterialName: names})
	if err != nil {
		return nil, fmt.Errorf("marshal b3dm batch table: %w", err)
	}
	bt = padJSON(bt)

	var out bytes.Buffer
	totalLen := 28 + len(ft) + len(bt) + len(glb)
	if err := writeHeaderFields(&out, magicB3DM, tileVersion, uint32(totalLen),
		uint32(len(ft)), 0, uint32(len(bt)), 0); err != nil {
		return nil, err
	}
	out.Write(ft)
	out.Write(bt)
	out.Write(glb)

	return out.Bytes(), nil
}
