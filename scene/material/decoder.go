package material

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/mogaika/scene_browser/logger"
	"github.com/mogaika/scene_browser/scene/diag"
	"github.com/mogaika/scene_browser/scene/texture"
	"github.com/mogaika/scene_browser/utils"
)

// Decoder builds single materials. Texture references are resolved against Textures.
type Decoder struct {
	Textures texture.Table
	Reporter diag.Reporter
	Log      *logger.Logger
}

type header struct {
	UUID    string `json:"uuid"`
	Type    string `json:"type"`
	Shading *int   `json:"shading"`
}

func (d *Decoder) report(err error) {
	if d.Reporter != nil {
		d.Reporter.Report(err)
	}
}

// Decode returns a *diag.UnknownTypeError for unregistered types.
func (d *Decoder) Decode(raw json.RawMessage) (*Material, error) {
	var h header
	if _, err := utils.UnmarshalFields(raw, &h); err != nil {
		return nil, errors.Wrapf(err, "Failed to decode material header")
	}
	factory, ok := gFactories[h.Type]
	if !ok {
		return nil, &diag.UnknownTypeError{Table: "material", ID: h.UUID, Type: h.Type}
	}

	m := factory()
	fieldErrs, err := utils.UnmarshalFields(raw, m)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to decode %s %q", h.Type, h.UUID)
	}
	for _, ferr := range fieldErrs {
		d.report(&diag.InvalidRecordError{Table: "material", ID: h.UUID, Reason: ferr.Error()})
	}
	m.Type = h.Type
	// shading 1 is THREE.FlatShading in older exports
	if h.Shading != nil && *h.Shading == 1 {
		m.FlatShading = true
	}

	if err := d.resolveMaps(m, raw); err != nil {
		return nil, err
	}
	return m, nil
}

func (d *Decoder) resolveMaps(m *Material, raw json.RawMessage) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return errors.Wrapf(err, "Failed to decode material fields")
	}

	for _, slot := range MapSlots {
		v, ok := fields[slot]
		if !ok {
			continue
		}
		var id string
		if err := json.Unmarshal(v, &id); err != nil || id == "" {
			continue
		}

		if m.MapIDs == nil {
			m.MapIDs = make(map[string]string)
			m.Maps = make(map[string]*texture.Texture)
		}
		m.MapIDs[slot] = id

		if tex, ok := d.Textures.Get(id); ok {
			m.Maps[slot] = tex
		} else {
			d.report(&diag.DanglingReferenceError{From: m.UUID, Table: "texture", ID: id})
		}
	}
	return nil
}
