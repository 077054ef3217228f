package geometry

import (
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/scene_browser/logger"
	"github.com/mogaika/scene_browser/scene/diag"
	"github.com/mogaika/scene_browser/utils"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindPlane
	KindBox
	KindCircle
	KindCylinder
	KindCone
	KindSphere
	KindDodecahedron
	KindIcosahedron
	KindOctahedron
	KindTetrahedron
	KindRing
	KindTorus
	KindTorusKnot
	KindLathe
	// raw vertex buffers
	KindBuffer
	// face/vertex lists of the old json model format
	KindLegacy
)

var kindNames = [...]string{
	"Unknown", "Plane", "Box", "Circle", "Cylinder", "Cone", "Sphere",
	"Dodecahedron", "Icosahedron", "Octahedron", "Tetrahedron",
	"Ring", "Torus", "TorusKnot", "Lathe", "Buffer", "Legacy",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Record is one entry of the document "geometries" array.
// Raw keeps the whole object for the type specific decoder.
type Record struct {
	UUID string          `json:"uuid"`
	Type string          `json:"type"`
	Name *string         `json:"name,omitempty"`
	Raw  json.RawMessage `json:"-"`

	fieldErrs []error
	malformed error
}

// UnmarshalJSON never fails, broken entries are reported by BuildTable.
func (r *Record) UnmarshalJSON(b []byte) error {
	type alias Record
	*r = Record{}
	r.fieldErrs, r.malformed = utils.UnmarshalFields(b, (*alias)(r))
	r.Raw = append(json.RawMessage(nil), b...)
	return nil
}

func (r *Record) MarshalJSON() ([]byte, error) {
	if len(r.Raw) != 0 {
		return r.Raw, nil
	}
	type alias Record
	return json.Marshal((*alias)(r))
}

type Group struct {
	Start         int `json:"start"`
	Count         int `json:"count"`
	MaterialIndex int `json:"materialIndex"`
}

type Buffer struct {
	Positions [][3]float32
	Normals   [][3]float32
	UVs       [][2]float32
	Indices   []uint32
	Groups    []Group
}

type Attribute struct {
	ItemSize   int
	Type       string
	Array      []float32
	Normalized bool
}

func (a *Attribute) Count() int {
	if a.ItemSize <= 0 {
		return 0
	}
	return len(a.Array) / a.ItemSize
}

type Bone struct {
	Parent   int
	Name     string
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

type Box3 struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

type Sphere struct {
	Center mgl32.Vec3
	Radius float32
}

type Geometry struct {
	UUID string
	Name string
	Type string
	Kind Kind

	// *BoxParams, *SphereParams, ... for parametric kinds
	Params interface{}

	// vertex data, when the kind produces or carries any
	Data *Buffer
	// buffer attributes other than position/normal/uv
	Attributes map[string]*Attribute
	// original face lists of KindLegacy geometries
	Legacy *Legacy

	Bones               []Bone
	SkinIndices         []float32
	SkinWeights         []float32
	InfluencesPerVertex int

	BoundingBox    *Box3
	BoundingSphere *Sphere
}

func (g *Geometry) HasBones() bool {
	return g != nil && len(g.Bones) > 0
}

func computeBoundingBox(positions [][3]float32) *Box3 {
	if len(positions) == 0 {
		return nil
	}
	bb := &Box3{Min: positions[0], Max: positions[0]}
	for _, p := range positions[1:] {
		for i := 0; i < 3; i++ {
			if p[i] < bb.Min[i] {
				bb.Min[i] = p[i]
			}
			if p[i] > bb.Max[i] {
				bb.Max[i] = p[i]
			}
		}
	}
	return bb
}

type Handler func(rec *Record) (*Geometry, error)

var gHandlers = make(map[string]Handler)

func SetHandler(tag string, h Handler) {
	gHandlers[tag] = h
}

func HandlerFor(tag string) (Handler, bool) {
	h, ok := gHandlers[tag]
	return h, ok
}

type Table map[string]*Geometry

func (t Table) Get(id string) (*Geometry, bool) {
	g, ok := t[id]
	return g, ok
}

// BuildTable decodes records in order. Unknown tags and decoder failures are
// reported and skipped; a later record with an existing id replaces the earlier one.
func BuildTable(records []*Record, rep diag.Reporter, log *logger.Logger) Table {
	if rep == nil {
		rep = diag.Discard{}
	}
	log = log.Component("geometry")

	table := make(Table, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		if rec.malformed != nil {
			rep.Report(&diag.InvalidRecordError{Table: "geometry", Reason: rec.malformed.Error()})
			continue
		}
		h, ok := gHandlers[rec.Type]
		if !ok {
			rep.Report(&diag.UnknownTypeError{Table: "geometry", ID: rec.UUID, Type: rec.Type})
			continue
		}

		g, err := h(rec)
		for _, ferr := range rec.fieldErrs {
			rep.Report(&diag.InvalidRecordError{Table: "geometry", ID: rec.UUID, Reason: ferr.Error()})
		}
		if err != nil {
			rep.Report(&diag.InvalidRecordError{Table: "geometry", ID: rec.UUID, Reason: err.Error()})
			continue
		}

		g.UUID = rec.UUID
		g.Type = rec.Type
		if rec.Name != nil {
			g.Name = *rec.Name
		}
		if _, dup := table[rec.UUID]; dup {
			log.Debug("duplicate geometry id, replacing", "uuid", rec.UUID)
		}
		table[rec.UUID] = g
	}
	return table
}
