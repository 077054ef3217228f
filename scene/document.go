package scene

import (
	"encoding/json"
	"fmt"

	"github.com/mogaika/scene_browser/scene/geometry"
	"github.com/mogaika/scene_browser/scene/media"
	"github.com/mogaika/scene_browser/scene/object"
	"github.com/mogaika/scene_browser/scene/texture"
)

type Metadata struct {
	Version   float64 `json:"version,omitempty"`
	Type      string  `json:"type"`
	Generator string  `json:"generator,omitempty"`
}

// Document is the top level of a scene file. Materials and animations are
// kept raw, their decoders dispatch on the type tag themselves.
type Document struct {
	Metadata   *Metadata           `json:"metadata"`
	Geometries []*geometry.Record  `json:"geometries,omitempty"`
	Images     []*media.Descriptor `json:"images,omitempty"`
	Videos     []*media.Descriptor `json:"videos,omitempty"`
	Textures   []*texture.Record   `json:"textures,omitempty"`
	Materials  []json.RawMessage   `json:"materials,omitempty"`
	Object     *object.Record      `json:"object"`
	Animations []json.RawMessage   `json:"animations,omitempty"`
}

// DocumentError is a failure that leaves no usable graph.
type DocumentError struct {
	URL    string
	Reason string
	Err    error
}

func (e *DocumentError) Error() string {
	msg := e.Reason
	if e.URL != "" {
		msg = fmt.Sprintf("Can't load %q: %s", e.URL, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DocumentError) Unwrap() error { return e.Err }
