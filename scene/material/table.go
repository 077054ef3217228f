package material

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/mogaika/scene_browser/scene/diag"
	"github.com/mogaika/scene_browser/utils"
)

// Slot is what a material id resolves to: one material, or the ordered
// list of a legacy MultiMaterial.
type Slot struct {
	Materials []*Material
	Multi     bool
}

// Single is the material of a non multi slot.
func (s *Slot) Single() *Material {
	if s == nil || s.Multi || len(s.Materials) == 0 {
		return nil
	}
	return s.Materials[0]
}

func (s *Slot) MarshalJSON() ([]byte, error) {
	if s.Multi {
		return json.Marshal(s.Materials)
	}
	return json.Marshal(s.Single())
}

type Table map[string]*Slot

func (t Table) Get(id string) (*Slot, bool) {
	s, ok := t[id]
	return s, ok
}

type multiRecord struct {
	UUID      string            `json:"uuid"`
	Name      string            `json:"name"`
	Materials []json.RawMessage `json:"materials"`
}

// BuildTable decodes every material record. Undecodable entries are reported and skipped,
// inside a MultiMaterial they are kept as nil to preserve group indices.
func BuildTable(records []json.RawMessage, dec *Decoder) Table {
	log := dec.Log.Component("material")

	table := make(Table, len(records))
	for _, raw := range records {
		var h header
		if _, err := utils.UnmarshalFields(raw, &h); err != nil {
			dec.report(&diag.InvalidRecordError{Table: "material", Reason: err.Error()})
			continue
		}

		var slot *Slot
		if h.Type == "MultiMaterial" {
			var mr multiRecord
			if _, err := utils.UnmarshalFields(raw, &mr); err != nil {
				dec.report(&diag.InvalidRecordError{Table: "material", ID: h.UUID, Reason: err.Error()})
				continue
			}
			slot = &Slot{Multi: true, Materials: make([]*Material, len(mr.Materials))}
			for i, sub := range mr.Materials {
				m, err := dec.Decode(sub)
				if err != nil {
					dec.report(wrapDecodeError(err, h.UUID))
					continue
				}
				slot.Materials[i] = m
			}
		} else {
			m, err := dec.Decode(raw)
			if err != nil {
				dec.report(wrapDecodeError(err, h.UUID))
				continue
			}
			slot = &Slot{Materials: []*Material{m}}
		}

		if _, dup := table[h.UUID]; dup {
			log.Debug("duplicate material id, replacing", "uuid", h.UUID)
		}
		table[h.UUID] = slot
	}
	return table
}

func wrapDecodeError(err error, id string) error {
	if _, ok := errors.Cause(err).(*diag.UnknownTypeError); ok {
		return err
	}
	return &diag.InvalidRecordError{Table: "material", ID: id, Reason: err.Error()}
}

type materialJSON Material

// MarshalJSON writes the material with its texture slots as ids.
func (m *Material) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal((*materialJSON)(m))
	if err != nil {
		return nil, err
	}
	if len(m.MapIDs) == 0 {
		return b, nil
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, err
	}
	for slot, id := range m.MapIDs {
		fields[slot] = id
	}
	return json.Marshal(fields)
}
