package tile

import (
	"bytes"
	"fmt"
	"log"
)

// EncodeCMPT concatenates tiles into a Composite tile, per §4.5. Each inner
// tile must already satisfy its own internal alignment; CMPT performs no
// additional padding between them.
func EncodeCMPT(tiles [][]byte) ([]byte, error) {
	if len(tiles) == 0 {
		return nil, ErrEmptyPayload
	}

	innerLen := 0
	for _, t := range tiles {
		innerLen += len(t)
	}

	var out bytes.Buffer
	totalLen := 16 + innerLen
	if err := writeHeaderFields(&out, magicCMPT, tileVersion, uint32(totalLen), uint32(len(tiles))); err != nil {
		return nil, err
	}
	for _, t := range tiles {
		out.Write(t)
	}

	return out.Bytes(), nil
}

// ParseCMPT reconstructs the inner tile byte strings from a Composite tile
// buffer, per §4.5 and §9 property 9. It performs a simple forward
// header-walk — read magic+version+byteLength, consume byteLength bytes,
// repeat tilesLength times — rather than the source's seek-rewind dance, per
// spec's explicit simplification (§9 Open Questions).
//
// An inner tile with an unrecognized magic is logged via log.Printf and
// skipped; parsing continues with the next tile using its own byteLength to
// advance, per §4.5's "unknown inner-tile magic -> log and skip but
// continue" rule.
func ParseCMPT(data []byte) ([][]byte, error) {
	magic, err := readMagic(data, 0)
	if err != nil {
		return nil, err
	}
	if magic != magicCMPT {
		return nil, fmt.Errorf("tile: not a CMPT buffer, magic = %q", magic)
	}

	tilesLength, err := readUint32(data, 12)
	if err != nil {
		return nil, err
	}

	var tiles [][]byte
	offset := 16

	for i := uint32(0); i < tilesLength; i++ {
		innerMagic, err := readMagic(data, offset)
		if err != nil {
			return nil, fmt.Errorf("tile %d: %w", i, err)
		}
		byteLength, err := readUint32(data, offset+8)
		if err != nil {
			return nil, fmt.Errorf("tile %d: %w", i, err)
		}
		if offset+int(byteLength) > len(data) {
			return nil, fmt.Errorf("tile %d: declared byteLength %d exceeds remaining buffer", i, byteLength)
		}

		if !isKnownTileMagic(innerMagic) {
			log.Printf("tile: CMPT inner tile %d has unknown magic %q, skipping", i, innerMagic)
			offset += int(byteLength)
			continue
		}

		tiles = append(tiles, data[offset:offset+int(byteLength)])
		offset += int(byteLength)
	}

	return tiles, nil
}

func isKnownTileMagic(magic string) bool {
	switch magic {
	case magicB3DM, magicI3DM, magicPNTS, magicCMPT:
		return true
	default:
		return false
	}
}
