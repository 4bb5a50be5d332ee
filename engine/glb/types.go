// Package glb encodes an engine/mesh.IMesh into a glTF 2.0 binary (.glb)
// buffer, per §4.4. It is the write-direction counterpart of the teacher's
// GLB reader (engine/loader/gltf_parser.go): the document types below mirror
// that reader's gltfDocument schema, trimmed to the fields an encoder needs
// to emit.
package glb

// document is the root of a written glTF JSON document.
type document struct {
	Asset       asset            `json:"asset"`
	Scene       int              `json:"scene"`
	Scenes      []scene          `json:"scenes"`
	Nodes       []node           `json:"nodes"`
	Meshes      []meshDoc        `json:"meshes"`
	Accessors   []accessor       `json:"accessors"`
	BufferViews []bufferView     `json:"bufferViews"`
	Buffers     []bufferEntry    `json:"buffers"`
	Materials   []materialDoc    `json:"materials,omitempty"`
	Textures    []textureDoc     `json:"textures,omitempty"`
	Images      []imageDoc       `json:"images,omitempty"`
	Samplers    []samplerDoc     `json:"samplers,omitempty"`
}

type asset struct {
	Version   string `json:"version"`
	Generator string `json:"generator,omitempty"`
}

type scene struct {
	Nodes []int `json:"nodes"`
}

type node struct {
	Name string `json:"name,omitempty"`
	Mesh *int   `json:"mesh,omitempty"`
}

type meshDoc struct {
	Name       string      `json:"name,omitempty"`
	Primitives []primitive `json:"primitives"`
}

type primitive struct {
	Attributes map[string]int `json:"attributes"`
	Indices    int            `json:"indices"`
	Material   *int           `json:"material,omitempty"`
	Mode       int            `json:"mode"`
}

type accessor struct {
	BufferView    int       `json:"bufferView"`
	ByteOffset    int       `json:"byteOffset,omitempty"`
	ComponentType int       `json:"componentType"`
	Count         int       `json:"count"`
	Type          string    `json:"type"`
	Max           []float64 `json:"max,omitempty"`
	Min           []float64 `json:"min,omitempty"`
}

type bufferView struct {
	Buffer     int  `json:"buffer"`
	ByteOffset int  `json:"byteOffset"`
	ByteLength int  `json:"byteLength"`
	Target     *int `json:"target,omitempty"`
}

type bufferEntry struct {
	ByteLength int `json:"byteLength"`
}

type materialDoc struct {
	Name                 string                `json:"name,omitempty"`
	PbrMetallicRoughness pbrMetallicRoughness  `json:"pbrMetallicRoughness"`
	NormalTexture        *textureInfo          `json:"normalTexture,omitempty"`
	AlphaMode            string                `json:"alphaMode,omitempty"`
	AlphaCutoff          *float64              `json:"alphaCutoff,omitempty"`
}

type pbrMetallicRoughness struct {
	BaseColorFactor  [4]float64   `json:"baseColorFactor"`
	BaseColorTexture *textureInfo `json:"baseColorTexture,omitempty"`
	MetallicFactor   float64      `json:"metallicFactor"`
	RoughnessFactor  float64      `json:"roughnessFactor"`
}

type textureInfo struct {
	Index int `json:"index"`
}

type textureDoc struct {
	Sampler *int `json:"sampler,omitempty"`
	Source  *int `json:"source,omitempty"`
}

type imageDoc struct {
	MimeType   string `json:"mimeType"`
	BufferView int    `json:"bufferView"`
}

type samplerDoc struct {
	WrapS int `json:"wrapS"`
	WrapT int `json:"wrapT"`
}

// glb binary container constants, per
// https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
const (
	glbMagic      = 0x46546C67
	glbVersion    = 2
	chunkTypeJSON = 0x4E4F534A
	chunkTypeBIN  = 0x004E4942
)

// Component type and element type constants, reused from the read side.
const (
	componentTypeUnsignedInt = 5125
	componentTypeFloat       = 5126
)

const (
	accessorTypeScalar = "SCALAR"
	accessorTypeVec2   = "VEC2"
	accessorTypeVec3   = "VEC3"
	accessorTypeVec4   = "VEC4"
)

const (
	targetArrayBuffer        = 34962
	targetElementArrayBuffer = 34963
)

const (
	wrapRepeat       = 10497
	wrapClampToEdge  = 33071
	wrapMirrorRepeat = 33648
)
