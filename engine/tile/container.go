package tile

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// padJSON pads data with ASCII spaces to the next 4-byte boundary, per
// §4.5's "Feature and batch JSON are padded with ASCII space to a 4-byte
// boundary" rule.
func padJSON(data []byte) []byte {
	for len(data)%4 != 0 {
		data = append(data, ' ')
	}
	return data
}

// padBinary pads data with zero bytes to the next 8-byte boundary, per
// §4.5's binary-section padding rule.
func padBinary(data []byte) []byte {
	for len(data)%8 != 0 {
		data = append(data, 0)
	}
	return data
}

// writeHeaderFields writes magic (4 ASCII bytes) followed by every field in
// fields as a little-endian uint32, mirroring the teacher's parseGLB header
// read (gltfGLBHeader/gltfGLBChunkHeader) in the write direction.
func writeHeaderFields(out *bytes.Buffer, magic string, fields ...uint32) error {
	if len(magic) != 4 {
		return fmt.Errorf("tile: magic %q must be exactly 4 bytes", magic)
	}
	out.WriteString(magic)
	for _, f := range fields {
		if err := binary.Write(out, binary.LittleEndian, f); err != nil {
			return fmt.Errorf("write tile header field: %w", err)
		}
	}
	return nil
}

func readMagic(data []byte, offset int) (string, error) {
	if offset+4 > len(data) {
		return "", fmt.Errorf("tile: buffer too short to read magic at offset %d", offset)
	}
	return string(data[offset : offset+4]), nil
}

func readUint32(data []byte, offset int) (uint32, error) {
	if offset+4 > len(data) {
		return 0, fmt.Errorf("tile: buffer too short to read uint32 at offset %d", offset)
	}
	return binary.LittleEndian.Uint32(data[offset : offset+4]), nil
}
