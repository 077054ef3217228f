package animation

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

const (
	InterpolateDiscrete = 2300
	InterpolateLinear   = 2301
	InterpolateSmooth   = 2302
)

// value components per key for each track type
var trackTypes = map[string]int{
	"vector":     3,
	"quaternion": 4,
	"number":     1,
	"color":      3,
	"bool":       1,
	"string":     1,
}

type Track struct {
	Name          string
	Type          string
	Times         []float32
	Values        []float32
	Discrete      []json.RawMessage // keys of bool and string tracks
	Interpolation int
}

func (t *Track) Duration() float32 {
	if len(t.Times) == 0 {
		return 0
	}
	return t.Times[len(t.Times)-1]
}

// ValueSize is the number of values per key.
func (t *Track) ValueSize() int {
	if len(t.Times) == 0 {
		return 0
	}
	return len(t.Values) / len(t.Times)
}

type Clip struct {
	UUID     string
	Name     string
	Duration float32
	Tracks   []*Track
}

type keyRecord struct {
	Time  float32         `json:"time"`
	Value json.RawMessage `json:"value"`
}

type trackRecord struct {
	Name          string            `json:"name"`
	Type          string            `json:"type"`
	Times         []float32         `json:"times"`
	Values        []json.RawMessage `json:"values"`
	Keys          []keyRecord       `json:"keys"`
	Interpolation *int              `json:"interpolation"`
}

type clipRecord struct {
	UUID     string         `json:"uuid"`
	Name     string         `json:"name"`
	Duration *float32       `json:"duration"`
	FPS      float32        `json:"fps"`
	Tracks   []*trackRecord `json:"tracks"`
}

func discrete(typ string) bool {
	return typ == "bool" || typ == "string"
}

func parseTrack(tr *trackRecord, frameTime float32) (*Track, error) {
	typ := strings.ToLower(tr.Type)
	if _, ok := trackTypes[typ]; !ok {
		return nil, errors.Errorf("Unsupported track type %q of %q", tr.Type, tr.Name)
	}

	t := &Track{Name: tr.Name, Type: typ, Interpolation: InterpolateLinear}
	if discrete(typ) {
		t.Interpolation = InterpolateDiscrete
	}
	if tr.Interpolation != nil {
		t.Interpolation = *tr.Interpolation
	}

	times, values := tr.Times, tr.Values
	if times == nil {
		// older exports list {time, value} keys
		for _, k := range tr.Keys {
			if len(k.Value) == 0 {
				continue
			}
			times = append(times, k.Time)
			var arr []json.RawMessage
			if err := json.Unmarshal(k.Value, &arr); err == nil {
				values = append(values, arr...)
			} else {
				values = append(values, k.Value)
			}
		}
	}

	t.Times = make([]float32, len(times))
	for i, tm := range times {
		t.Times[i] = tm * frameTime
	}

	if discrete(typ) {
		t.Discrete = values
	} else {
		t.Values = make([]float32, len(values))
		for i, v := range values {
			if err := json.Unmarshal(v, &t.Values[i]); err != nil {
				return nil, errors.Wrapf(err, "Track %q value %d", tr.Name, i)
			}
		}
	}
	return t, nil
}

func parseClip(raw json.RawMessage) (*Clip, error) {
	var cr clipRecord
	if err := json.Unmarshal(raw, &cr); err != nil {
		return nil, errors.Wrapf(err, "Failed to decode animation clip")
	}

	frameTime := float32(1)
	if cr.FPS > 0 {
		frameTime = 1 / cr.FPS
	}

	c := &Clip{UUID: cr.UUID, Name: cr.Name, Duration: -1}
	if cr.Duration != nil {
		c.Duration = *cr.Duration
	}
	for _, tr := range cr.Tracks {
		if tr == nil {
			continue
		}
		t, err := parseTrack(tr, frameTime)
		if err != nil {
			return nil, errors.Wrapf(err, "Clip %q", cr.Name)
		}
		c.Tracks = append(c.Tracks, t)
	}

	if c.Duration < 0 {
		c.ResetDuration()
	}
	return c, nil
}

// ResetDuration sets the duration to the last key time over all tracks.
func (c *Clip) ResetDuration() {
	var d float32
	for _, t := range c.Tracks {
		if td := t.Duration(); td > d {
			d = td
		}
	}
	c.Duration = d
}

// Parse decodes the document "animations" array. A broken clip fails the whole array.
func Parse(raws []json.RawMessage) ([]*Clip, error) {
	clips := make([]*Clip, 0, len(raws))
	for i, raw := range raws {
		c, err := parseClip(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "Animation %d", i)
		}
		clips = append(clips, c)
	}
	return clips, nil
}
