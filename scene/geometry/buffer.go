package geometry

import (
	"encoding/json"
	"math"

	"github.com/pkg/errors"
)

type attributeRecord struct {
	ItemSize   int       `json:"itemSize"`
	Type       string    `json:"type"`
	Array      []float32 `json:"array"`
	Normalized bool      `json:"normalized"`
}

type indexRecord struct {
	Type  string    `json:"type"`
	Array []float64 `json:"array"`
}

type sphereRecord struct {
	Center []float32 `json:"center"`
	Radius float32   `json:"radius"`
}

type bufferRecord struct {
	Data struct {
		Index      *indexRecord                `json:"index"`
		Attributes map[string]*attributeRecord `json:"attributes"`
		Groups     []Group                     `json:"groups"`
		// older exporters
		DrawCalls      []Group       `json:"drawcalls"`
		Offsets        []Group       `json:"offsets"`
		BoundingSphere *sphereRecord `json:"boundingSphere"`
	} `json:"data"`
}

func (a *attributeRecord) toAttribute(name string) (*Attribute, error) {
	if a.ItemSize <= 0 {
		return nil, errors.Errorf("Attribute %q has invalid itemSize %d", name, a.ItemSize)
	}
	if len(a.Array)%a.ItemSize != 0 {
		return nil, errors.Errorf("Attribute %q array length %d is not a multiple of itemSize %d",
			name, len(a.Array), a.ItemSize)
	}
	return &Attribute{
		ItemSize:   a.ItemSize,
		Type:       a.Type,
		Array:      a.Array,
		Normalized: a.Normalized,
	}, nil
}

func vec3s(a *Attribute) [][3]float32 {
	if a.ItemSize != 3 {
		return nil
	}
	out := make([][3]float32, a.Count())
	for i := range out {
		copy(out[i][:], a.Array[i*3:i*3+3])
	}
	return out
}

func vec2s(a *Attribute) [][2]float32 {
	if a.ItemSize != 2 {
		return nil
	}
	out := make([][2]float32, a.Count())
	for i := range out {
		copy(out[i][:], a.Array[i*2:i*2+2])
	}
	return out
}

func decodeBufferGeometry(rec *Record) (*Geometry, error) {
	var br bufferRecord
	if err := json.Unmarshal(rec.Raw, &br); err != nil {
		return nil, errors.Wrapf(err, "Failed to decode buffer geometry")
	}

	g := &Geometry{Kind: KindBuffer, Data: &Buffer{}}

	for name, ar := range br.Data.Attributes {
		if ar == nil {
			continue
		}
		attr, err := ar.toAttribute(name)
		if err != nil {
			return nil, err
		}
		switch name {
		case "position":
			g.Data.Positions = vec3s(attr)
		case "normal":
			g.Data.Normals = vec3s(attr)
		case "uv":
			g.Data.UVs = vec2s(attr)
		default:
			if g.Attributes == nil {
				g.Attributes = make(map[string]*Attribute)
			}
			g.Attributes[name] = attr
		}
	}

	if idx := br.Data.Index; idx != nil {
		g.Data.Indices = make([]uint32, len(idx.Array))
		for i, v := range idx.Array {
			if v < 0 || v > math.MaxUint32 || v != math.Trunc(v) {
				return nil, errors.Errorf("Invalid index value %v at %d", v, i)
			}
			g.Data.Indices[i] = uint32(v)
		}
	}

	switch {
	case len(br.Data.Groups) != 0:
		g.Data.Groups = br.Data.Groups
	case len(br.Data.DrawCalls) != 0:
		g.Data.Groups = br.Data.DrawCalls
	case len(br.Data.Offsets) != 0:
		g.Data.Groups = br.Data.Offsets
	}

	if bs := br.Data.BoundingSphere; bs != nil {
		s := &Sphere{Radius: bs.Radius}
		copy(s.Center[:], bs.Center)
		g.BoundingSphere = s
	}
	g.BoundingBox = computeBoundingBox(g.Data.Positions)

	return g, nil
}
