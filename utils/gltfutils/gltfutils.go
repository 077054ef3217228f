package gltfutils

import (
	"io"

	"github.com/qmuntal/gltf"
)

func NewDocument() *gltf.Document {
	return gltf.NewDocument()
}

func ExportBinary(w io.Writer, doc *gltf.Document) error {
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	return encoder.Encode(doc)
}

// GLTFCacher keeps exported elements by source id so shared geometries,
// materials and textures are written once.
type GLTFCacher struct {
	Doc   *gltf.Document
	cache map[string]interface{}
}

func NewCacher() *GLTFCacher {
	return &GLTFCacher{
		Doc:   NewDocument(),
		cache: make(map[string]interface{}),
	}
}

func (gc *GLTFCacher) AddCache(id string, v interface{}) {
	gc.cache[id] = v
}

func (gc *GLTFCacher) GetCached(id string) (interface{}, bool) {
	v, ok := gc.cache[id]
	return v, ok
}

func (gc *GLTFCacher) GetCachedOr(id string, export func() interface{}) interface{} {
	if v, ok := gc.cache[id]; ok {
		return v
	}
	v := export()
	gc.cache[id] = v
	return v
}
