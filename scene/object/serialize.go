package object

import (
	"encoding/json"
)

func ptr[T any](v T) *T {
	return &v
}

func hexPtr(c interface{ Hex() int64 }) *int64 {
	return ptr(c.Hex())
}

// ToRecord writes a node back in document form. The transform is always
// written as a matrix, material and geometry references by id.
func ToRecord(n Node) *Record {
	if n == nil {
		return nil
	}
	o := n.Object()

	m := o.Matrix()
	rec := &Record{
		UUID:   o.UUID,
		Type:   o.Type,
		Matrix: append([]float32(nil), m[:]...),
	}
	if o.Name != "" {
		rec.Name = ptr(o.Name)
	}
	if o.RenderOrder != 0 {
		rec.RenderOrder = ptr(o.RenderOrder)
	}
	if o.CastShadow {
		rec.CastShadow = ptr(true)
	}
	if o.ReceiveShadow {
		rec.ReceiveShadow = ptr(true)
	}
	if !o.Visible {
		rec.Visible = ptr(false)
	}
	if len(o.UserData) != 0 {
		rec.UserData = append(json.RawMessage(nil), o.UserData...)
	}

	writeVariant(rec, n)

	for _, c := range o.Children {
		rec.Children = append(rec.Children, ToRecord(c))
	}
	return rec
}

func writeShadow(rec *Record, s *LightShadow) {
	if s == nil {
		return
	}
	rec.Shadow = &ShadowRecord{
		Bias:    ptr(s.Bias),
		Radius:  ptr(s.Radius),
		MapSize: []float32{s.MapSize[0], s.MapSize[1]},
		Camera:  ToRecord(s.Camera),
	}
}

func writeLight(rec *Record, l *Light) {
	rec.Color = hexPtr(l.Color)
	rec.Intensity = ptr(l.Intensity)
}

func writeVariant(rec *Record, n Node) {
	if d, ok := n.(drawable); ok {
		dr := d.drawable()
		if dr.GeometryID != "" {
			rec.Geometry = ptr(dr.GeometryID)
		}
		if dr.Material.Ref != nil {
			ref := *dr.Material.Ref
			rec.Material = &ref
		}
	}

	switch v := n.(type) {
	case *Scene:
		if v.Background != nil {
			rec.Background, _ = json.Marshal(v.Background.Hex())
		}
		switch f := v.Fog.(type) {
		case *LinearFog:
			rec.Fog = &FogRecord{Type: "Fog", Color: hexPtr(f.Color), Near: ptr(f.Near), Far: ptr(f.Far)}
		case *ExpFog:
			rec.Fog = &FogRecord{Type: "FogExp2", Color: hexPtr(f.Color), Density: ptr(f.Density)}
		}
		rec.Transitions = v.Transitions
	case *PerspectiveCamera:
		rec.Fov, rec.Aspect, rec.Near, rec.Far = ptr(v.Fov), ptr(v.Aspect), ptr(v.Near), ptr(v.Far)
		rec.Focus, rec.Zoom = ptr(v.Focus), ptr(v.Zoom)
		rec.FilmGauge, rec.FilmOffset = ptr(v.FilmGauge), ptr(v.FilmOffset)
		rec.View = v.View
	case *OrthographicCamera:
		rec.Left, rec.Right, rec.Top, rec.Bottom = ptr(v.Left), ptr(v.Right), ptr(v.Top), ptr(v.Bottom)
		rec.Near, rec.Far, rec.Zoom = ptr(v.Near), ptr(v.Far), ptr(v.Zoom)
	case *AmbientLight:
		writeLight(rec, &v.Light)
	case *DirectionalLight:
		writeLight(rec, &v.Light)
		writeShadow(rec, v.Shadow)
	case *PointLight:
		writeLight(rec, &v.Light)
		rec.Distance, rec.Decay = ptr(v.Distance), ptr(v.Decay)
		writeShadow(rec, v.Shadow)
	case *SpotLight:
		writeLight(rec, &v.Light)
		rec.Distance, rec.Angle, rec.Penumbra, rec.Decay = ptr(v.Distance), ptr(v.Angle), ptr(v.Penumbra), ptr(v.Decay)
		writeShadow(rec, v.Shadow)
	case *RectAreaLight:
		writeLight(rec, &v.Light)
		rec.Width, rec.Height = ptr(v.Width), ptr(v.Height)
	case *HemisphereLight:
		writeLight(rec, &v.Light)
		rec.GroundColor = hexPtr(v.GroundColor)
	case *Line:
		if v.Mode != 0 {
			rec.Mode = ptr(v.Mode)
		}
	case *LOD:
		for _, lv := range v.Levels {
			rec.Levels = append(rec.Levels, LevelRecord{Object: lv.Object.Object().UUID, Distance: lv.Distance})
		}
	}
}
