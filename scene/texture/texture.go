package texture

import (
	"encoding/json"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/scene_browser/logger"
	"github.com/mogaika/scene_browser/scene/diag"
	"github.com/mogaika/scene_browser/scene/media"
	"github.com/mogaika/scene_browser/utils"
)

// Record is one entry of the document "textures" array.
// Enumeration fields are kept raw, they may be numbers or symbolic names.
type Record struct {
	UUID       string            `json:"uuid"`
	Name       *string           `json:"name,omitempty"`
	Image      *string           `json:"image,omitempty"`
	Video      *string           `json:"video,omitempty"`
	Mapping    json.RawMessage   `json:"mapping,omitempty"`
	Offset     []float32         `json:"offset,omitempty"`
	Repeat     []float32         `json:"repeat,omitempty"`
	Wrap       []json.RawMessage `json:"wrap,omitempty"`
	MinFilter  json.RawMessage   `json:"minFilter,omitempty"`
	MagFilter  json.RawMessage   `json:"magFilter,omitempty"`
	Anisotropy *float32          `json:"anisotropy,omitempty"`
	FlipY      *bool             `json:"flipY,omitempty"`

	fieldErrs []error
	malformed error
}

// UnmarshalJSON never fails, broken fields keep their defaults and are reported by BuildTable.
func (r *Record) UnmarshalJSON(b []byte) error {
	type alias Record
	*r = Record{}
	r.fieldErrs, r.malformed = utils.UnmarshalFields(b, (*alias)(r))
	return nil
}

type Texture struct {
	UUID string
	Name string

	// id of the image or video asset
	Source string
	Video  bool
	Asset  *media.Asset
	// nil when the source asset is missing
	Handle *media.Handle

	Mapping         int
	WrapS           int
	WrapT           int
	MinFilter       int
	MagFilter       int
	Anisotropy      float32
	FlipY           bool
	GenerateMipmaps bool
	Offset          mgl32.Vec2
	Repeat          mgl32.Vec2

	// set whenever the consumer should re-sample the media
	NeedsUpdate bool
}

func New(uuid string) *Texture {
	return &Texture{
		UUID:            uuid,
		Mapping:         UVMapping,
		WrapS:           ClampToEdgeWrapping,
		WrapT:           ClampToEdgeWrapping,
		MinFilter:       LinearMipMapLinearFilter,
		MagFilter:       LinearFilter,
		Anisotropy:      1,
		FlipY:           true,
		GenerateMipmaps: true,
		Repeat:          mgl32.Vec2{1, 1},
	}
}

// Ready reports whether the bound media is available.
func (t *Texture) Ready() bool {
	return t.Handle.Available()
}

// Update polls the bound media and flags the texture for re-sampling once it is available.
func (t *Texture) Update() bool {
	if t.Ready() {
		t.NeedsUpdate = true
	}
	return t.NeedsUpdate
}

// ToRecord is the inverse of the table build, enumerations are written numerically.
func (t *Texture) ToRecord() *Record {
	rec := &Record{
		UUID:       t.UUID,
		Mapping:    json.RawMessage(strconv.Itoa(t.Mapping)),
		Offset:     []float32{t.Offset[0], t.Offset[1]},
		Repeat:     []float32{t.Repeat[0], t.Repeat[1]},
		Wrap:       []json.RawMessage{json.RawMessage(strconv.Itoa(t.WrapS)), json.RawMessage(strconv.Itoa(t.WrapT))},
		MinFilter:  json.RawMessage(strconv.Itoa(t.MinFilter)),
		MagFilter:  json.RawMessage(strconv.Itoa(t.MagFilter)),
		Anisotropy: &t.Anisotropy,
		FlipY:      &t.FlipY,
	}
	if t.Name != "" {
		rec.Name = &t.Name
	}
	if t.Source != "" {
		src := t.Source
		if t.Video {
			rec.Video = &src
		} else {
			rec.Image = &src
		}
	}
	return rec
}

type Table map[string]*Texture

func (t Table) Get(id string) (*Texture, bool) {
	tex, ok := t[id]
	return tex, ok
}

type builder struct {
	rep diag.Reporter
	log *logger.Logger
}

// constant decodes a numeric code or a symbolic name from names.
func (b *builder) constant(id, field string, raw json.RawMessage, names map[string]int) (int, error) {
	var code float64
	if err := json.Unmarshal(raw, &code); err == nil {
		return int(code), nil
	}

	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return 0, &diag.ConstantError{ID: id, Field: field, Value: string(raw)}
	}
	b.log.Warn("constant should be in numeric form", "uuid", id, "field", field, "value", name)

	v, ok := names[name]
	if !ok {
		return 0, &diag.ConstantError{ID: id, Field: field, Value: name}
	}
	return v, nil
}

func (b *builder) setConstant(dst *int, id, field string, raw json.RawMessage, names map[string]int) {
	if len(raw) == 0 {
		return
	}
	v, err := b.constant(id, field, raw, names)
	if err != nil {
		b.rep.Report(err)
		return
	}
	*dst = v
}

func (b *builder) build(rec *Record, images, videos media.Table) *Texture {
	t := New(rec.UUID)
	if rec.Name != nil {
		t.Name = *rec.Name
	}

	switch {
	case rec.Image == nil && rec.Video == nil:
		b.rep.Report(&diag.InvalidRecordError{Table: "texture", ID: rec.UUID, Reason: "no image or video specified"})
	case rec.Image != nil && rec.Video != nil:
		b.rep.Report(&diag.InvalidRecordError{Table: "texture", ID: rec.UUID, Reason: "both image and video specified, using video"})
	}

	if rec.Video != nil {
		t.Source, t.Video = *rec.Video, true
		t.GenerateMipmaps = false
		if a, ok := videos.Get(t.Source); ok {
			t.Asset, t.Handle = a, a.Active()
			a.Active().SetClassName(t.UUID + " active")
			if d := a.Dormant(); d != nil {
				d.SetClassName(t.UUID + " dormant")
			}
		} else {
			b.rep.Report(&diag.DanglingReferenceError{From: rec.UUID, Table: "video", ID: t.Source})
		}
	} else if rec.Image != nil {
		t.Source = *rec.Image
		if a, ok := images.Get(t.Source); ok {
			t.Asset, t.Handle = a, a.Active()
		} else {
			b.rep.Report(&diag.DanglingReferenceError{From: rec.UUID, Table: "image", ID: t.Source})
		}
	}
	t.NeedsUpdate = true

	b.setConstant(&t.Mapping, rec.UUID, "mapping", rec.Mapping, mappingNames)
	if rec.Offset != nil {
		t.Offset = utils.Vec2FromSlice(rec.Offset, t.Offset)
	}
	if rec.Repeat != nil {
		t.Repeat = utils.Vec2FromSlice(rec.Repeat, t.Repeat)
	}
	if len(rec.Wrap) > 0 {
		b.setConstant(&t.WrapS, rec.UUID, "wrapS", rec.Wrap[0], wrappingNames)
	}
	if len(rec.Wrap) > 1 {
		b.setConstant(&t.WrapT, rec.UUID, "wrapT", rec.Wrap[1], wrappingNames)
	}
	b.setConstant(&t.MinFilter, rec.UUID, "minFilter", rec.MinFilter, filterNames)
	b.setConstant(&t.MagFilter, rec.UUID, "magFilter", rec.MagFilter, filterNames)
	if rec.Anisotropy != nil {
		t.Anisotropy = *rec.Anisotropy
	}
	if rec.FlipY != nil {
		t.FlipY = *rec.FlipY
	}
	return t
}

// BuildTable binds every texture record to its image or video asset.
// Textures are always constructed, missing media leaves them with a nil handle.
func BuildTable(records []*Record, images, videos media.Table, rep diag.Reporter, log *logger.Logger) Table {
	if rep == nil {
		rep = diag.Discard{}
	}
	b := &builder{rep: rep, log: log.Component("texture")}

	table := make(Table, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		if rec.malformed != nil {
			rep.Report(&diag.InvalidRecordError{Table: "texture", Reason: rec.malformed.Error()})
			continue
		}
		for _, err := range rec.fieldErrs {
			rep.Report(&diag.InvalidRecordError{Table: "texture", ID: rec.UUID, Reason: err.Error()})
		}
		table[rec.UUID] = b.build(rec, images, videos)
	}
	return table
}
