package tileset

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Marshal serializes t as tileset.json bytes: two-space indent, Unicode
// literal characters (HTML escaping disabled so e.g. '<', '>', '&' are
// never rewritten as \u escapes), per §4.7's URI policy note.
func Marshal(t *Tileset) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return nil, fmt.Errorf("marshal tileset.json: %w", err)
	}
	// json.Encoder.Encode appends a trailing newline; keep it, it is
	// harmless and matches how most tileset.json files on disk look.
	return buf.Bytes(), nil
}

// TileURI builds the relative content URI for a leaf tile file, per §4.7's
// "child content URIs are relative" policy and §6's output path convention.
func TileURI(level, x, y, z int, ext string) string {
	return fmt.Sprintf("./%d/%d_%d_%d.%s", level, x, y, z, ext)
}

// NestedTilesetURI builds the relative reference to a nested dataset's own
// tileset.json, per §4.7.
func NestedTilesetURI(tileName string) string {
	return fmt.Sprintf("./Data/%s/tileset.json", tileName)
}
