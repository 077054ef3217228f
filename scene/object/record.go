package object

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/mogaika/scene_browser/utils"
)

// Euler is written as [x, y, z] or [x, y, z, order].
type Euler struct {
	X, Y, Z float32
	Order   string
}

func (e *Euler) UnmarshalJSON(b []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(b, &parts); err != nil {
		return errors.Wrapf(err, "Invalid rotation")
	}
	if len(parts) < 3 {
		return errors.Errorf("Rotation needs 3 angles, got %d", len(parts))
	}
	for i, dst := range []*float32{&e.X, &e.Y, &e.Z} {
		if err := json.Unmarshal(parts[i], dst); err != nil {
			return errors.Wrapf(err, "Invalid rotation angle %d", i)
		}
	}
	e.Order = "XYZ"
	if len(parts) > 3 {
		if err := json.Unmarshal(parts[3], &e.Order); err != nil {
			return errors.Wrapf(err, "Invalid rotation order")
		}
	}
	return nil
}

func (e Euler) MarshalJSON() ([]byte, error) {
	order := e.Order
	if order == "" {
		order = "XYZ"
	}
	return json.Marshal([]interface{}{e.X, e.Y, e.Z, order})
}

// MaterialRef is a single material id or a list of them.
type MaterialRef struct {
	IDs  []string
	List bool
}

func (r *MaterialRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		r.List = true
		return json.Unmarshal(b, &r.IDs)
	}
	var id string
	if err := json.Unmarshal(b, &id); err != nil {
		return errors.Wrapf(err, "Invalid material reference")
	}
	r.IDs = []string{id}
	return nil
}

func (r MaterialRef) MarshalJSON() ([]byte, error) {
	if r.List {
		return json.Marshal(r.IDs)
	}
	if len(r.IDs) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(r.IDs[0])
}

type ShadowRecord struct {
	Bias    *float32  `json:"bias,omitempty"`
	Radius  *float32  `json:"radius,omitempty"`
	MapSize []float32 `json:"mapSize,omitempty"`
	Camera  *Record   `json:"camera,omitempty"`
}

type FogRecord struct {
	Type    string   `json:"type"`
	Color   *int64   `json:"color,omitempty"`
	Near    *float32 `json:"near,omitempty"`
	Far     *float32 `json:"far,omitempty"`
	Density *float32 `json:"density,omitempty"`
}

type LevelRecord struct {
	Object   string  `json:"object"`
	Distance float32 `json:"distance"`
}

// Record is one node of the document "object" tree.
// Optional fields are pointers, absence keeps the variant default.
type Record struct {
	UUID string  `json:"uuid"`
	Type string  `json:"type"`
	Name *string `json:"name,omitempty"`

	Matrix     []float32 `json:"matrix,omitempty"`
	Position   []float32 `json:"position,omitempty"`
	Rotation   *Euler    `json:"rotation,omitempty"`
	Quaternion []float32 `json:"quaternion,omitempty"`
	Scale      []float32 `json:"scale,omitempty"`

	Visible       *bool           `json:"visible,omitempty"`
	RenderOrder   *int            `json:"renderOrder,omitempty"`
	CastShadow    *bool           `json:"castShadow,omitempty"`
	ReceiveShadow *bool           `json:"receiveShadow,omitempty"`
	Shadow        *ShadowRecord   `json:"shadow,omitempty"`
	UserData      json.RawMessage `json:"userData,omitempty"`

	Geometry *string      `json:"geometry,omitempty"`
	Material *MaterialRef `json:"material,omitempty"`

	Background  json.RawMessage `json:"background,omitempty"`
	Fog         *FogRecord      `json:"fog,omitempty"`
	Transitions json.RawMessage `json:"transitions,omitempty"`

	Fov        *float32        `json:"fov,omitempty"`
	Aspect     *float32        `json:"aspect,omitempty"`
	Near       *float32        `json:"near,omitempty"`
	Far        *float32        `json:"far,omitempty"`
	Focus      *float32        `json:"focus,omitempty"`
	Zoom       *float32        `json:"zoom,omitempty"`
	FilmGauge  *float32        `json:"filmGauge,omitempty"`
	FilmOffset *float32        `json:"filmOffset,omitempty"`
	View       json.RawMessage `json:"view,omitempty"`
	Left       *float32        `json:"left,omitempty"`
	Right      *float32        `json:"right,omitempty"`
	Top        *float32        `json:"top,omitempty"`
	Bottom     *float32        `json:"bottom,omitempty"`

	Color       *int64   `json:"color,omitempty"`
	GroundColor *int64   `json:"groundColor,omitempty"`
	Intensity   *float32 `json:"intensity,omitempty"`
	Distance    *float32 `json:"distance,omitempty"`
	Decay       *float32 `json:"decay,omitempty"`
	Angle       *float32 `json:"angle,omitempty"`
	Penumbra    *float32 `json:"penumbra,omitempty"`
	Width       *float32 `json:"width,omitempty"`
	Height      *float32 `json:"height,omitempty"`

	Mode   *int          `json:"mode,omitempty"`
	Levels []LevelRecord `json:"levels,omitempty"`

	Children []*Record `json:"children,omitempty"`

	// fields that failed to decode, reported when the node is built
	fieldErrs []error
	// set when the record is not a json object at all
	malformed error
}

func (r *Record) UnmarshalJSON(b []byte) error {
	type alias Record
	*r = Record{}
	errs, err := utils.UnmarshalFields(b, (*alias)(r))
	r.fieldErrs = errs
	r.malformed = err
	return nil
}

// Malformed returns the error of a record that is not an object.
func (r *Record) Malformed() error {
	return r.malformed
}

// FieldErrors lists the fields that kept their defaults because they failed to decode.
func (r *Record) FieldErrors() []error {
	return r.fieldErrs
}

// userDataHints are the userData keys the builder acts on.
type userDataHints struct {
	Type    string `json:"type"`
	URLNew  string `json:"url_new"`
	SubType string `json:"subType"`
}

func (r *Record) hints() userDataHints {
	var h userDataHints
	if len(r.UserData) != 0 {
		// non object user data carries no hints
		_ = json.Unmarshal(r.UserData, &h)
	}
	return h
}

// Deferred reports whether the record is a text block built outside the tree.
func (r *Record) Deferred() bool {
	return r.hints().SubType == "block"
}

func f32(p *float32, def float32) float32 {
	if p != nil {
		return *p
	}
	return def
}
