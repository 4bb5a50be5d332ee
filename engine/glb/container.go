package glb

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
)

// assembleGLB serializes doc as the JSON chunk and bb's accumulated payload
// as the BIN chunk, writing the 12-byte GLB header followed by both chunks,
// per the glTF 2.0 binary container format — the write-direction mirror of
// the teacher's parseGLB.
func assembleGLB(doc document, bb *bufferBuilder) ([]byte, error) {
	doc.Buffers = []bufferEntry{{ByteLength: bb.buf.Len()}}

	jsonData, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal glTF JSON: %w", err)
	}
	for len(jsonData)%4 != 0 {
		jsonData = append(jsonData, ' ')
	}

	binData := bb.buf.Bytes()
	for len(binData)%4 != 0 {
		binData = append(binData, 0)
	}

	var out bytes.Buffer
	totalLen := 12 + 8 + len(jsonData) + 8 + len(binData)

	binary.Write(&out, binary.LittleEndian, uint32(glbMagic))
	binary.Write(&out, binary.LittleEndian, uint32(glbVersion))
	binary.Write(&out, binary.LittleEndian, uint32(totalLen))

	binary.Write(&out, binary.LittleEndian, uint32(len(jsonData)))
	binary.Write(&out, binary.LittleEndian, uint32(chunkTypeJSON))
	out.Write(jsonData)

	binary.Write(&out, binary.LittleEndian, uint32(len(binData)))
	binary.Write(&out, binary.LittleEndian, uint32(chunkTypeBIN))
	out.Write(binData)

	return out.Bytes(), nil
}

func encodeJPEG(img image.Image, quality int) ([]byte, string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, "", fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

func encodePNG(img image.Image) ([]byte, string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), "image/png", nil
}
