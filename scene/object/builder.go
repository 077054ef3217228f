package object

import (
	"context"
	"encoding/json"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/mogaika/scene_browser/logger"
	"github.com/mogaika/scene_browser/scene/diag"
	"github.com/mogaika/scene_browser/scene/geometry"
	"github.com/mogaika/scene_browser/scene/material"
	"github.com/mogaika/scene_browser/scene/media"
	"github.com/mogaika/scene_browser/utils"
)

// DeferredRequest is a child record kept out of the synchronous build.
type DeferredRequest struct {
	Parent Node
	Record *Record
}

// Builder turns node records into a tree. Tables must be complete before Build.
type Builder struct {
	Geometries geometry.Table
	Materials  material.Table
	// issues userData audio requests, nil skips them
	Media    *media.Resolver
	Reporter diag.Reporter
	Log      *logger.Logger

	// filled while building
	Deferred []DeferredRequest
	Audio    media.Table

	log *logger.Logger
}

type Constructor func(b *Builder, rec *Record) Node

var gConstructors = make(map[string]Constructor)

func SetConstructor(tag string, c Constructor) {
	gConstructors[tag] = c
}

func (b *Builder) report(err error) {
	if b.Reporter != nil {
		b.Reporter.Report(err)
	}
}

// Build constructs rec and its subtree in pre-order.
func (b *Builder) Build(ctx context.Context, rec *Record) Node {
	if rec == nil {
		return nil
	}
	if rec.malformed != nil {
		b.report(&diag.InvalidRecordError{Table: "object", Reason: rec.malformed.Error()})
		return nil
	}
	b.log = b.Log.Component("object")
	if b.Audio == nil {
		b.Audio = make(media.Table)
	}
	return b.build(ctx, rec)
}

func (b *Builder) build(ctx context.Context, rec *Record) Node {
	for _, err := range rec.fieldErrs {
		b.report(&diag.InvalidRecordError{Table: "object", ID: rec.UUID, Reason: err.Error()})
	}

	var n Node
	if ctor, ok := gConstructors[rec.Type]; ok {
		n = ctor(b, rec)
	} else {
		b.report(&diag.UnknownTypeError{Table: "object", ID: rec.UUID, Type: rec.Type})
		n = NewObject3D()
	}
	o := n.Object()

	b.applyCommon(ctx, n, rec)
	o.advance(StateTransformApplied)

	if h := rec.hints(); h.Type == "audio" {
		b.requestAudio(ctx, o, h.URLNew)
	}

	for _, child := range rec.Children {
		if child == nil {
			continue
		}
		if child.malformed != nil {
			b.report(&diag.InvalidRecordError{Table: "object", ID: rec.UUID, Reason: "child: " + child.malformed.Error()})
			continue
		}
		if child.Deferred() {
			b.Deferred = append(b.Deferred, DeferredRequest{Parent: n, Record: child})
			continue
		}
		o.Add(b.build(ctx, child))
	}
	o.advance(StateChildrenAttached)

	if lod, ok := n.(*LOD); ok {
		b.resolveLevels(lod, rec.Levels)
		o.advance(StateLevelsResolved)
	}

	o.advance(StateFinalized)
	return n
}

func (b *Builder) applyCommon(ctx context.Context, n Node, rec *Record) {
	o := n.Object()

	o.UUID = rec.UUID
	if o.UUID == "" {
		o.UUID = uuid.NewString()
	}
	if rec.Name != nil {
		o.Name = *rec.Name
	}
	if rec.RenderOrder != nil {
		o.RenderOrder = *rec.RenderOrder
	}

	if rec.Matrix != nil {
		if m, ok := utils.Mat4FromSlice(rec.Matrix); ok {
			o.SetMatrix(m)
		} else {
			b.report(&diag.InvalidRecordError{Table: "object", ID: o.UUID, Reason: "matrix needs 16 elements"})
		}
	} else {
		if rec.Position != nil {
			o.Position = utils.Vec3FromSlice(rec.Position, o.Position)
		}
		if rec.Rotation != nil {
			o.SetRotation(*rec.Rotation)
		}
		if rec.Quaternion != nil {
			if q, ok := utils.QuatFromSlice(rec.Quaternion); ok {
				o.SetQuaternion(q)
			}
		}
		if rec.Scale != nil {
			o.Scale = utils.Vec3FromSlice(rec.Scale, o.Scale)
		}
	}

	if rec.CastShadow != nil {
		o.CastShadow = *rec.CastShadow
	}
	if rec.ReceiveShadow != nil {
		o.ReceiveShadow = *rec.ReceiveShadow
	}
	if rec.Shadow != nil {
		b.applyShadow(ctx, n, rec.Shadow)
	}
	if rec.Visible != nil {
		o.Visible = *rec.Visible
	}
	if rec.UserData != nil {
		o.UserData = append(json.RawMessage(nil), rec.UserData...)
	}
}

func (b *Builder) applyShadow(ctx context.Context, n Node, sr *ShadowRecord) {
	var shadow *LightShadow
	if sc, ok := n.(shadowCaster); ok {
		shadow = sc.LightShadow()
	}
	if shadow == nil {
		b.report(&diag.InvalidRecordError{Table: "object", ID: n.Object().UUID, Reason: "shadow on a node that casts none"})
		return
	}

	if sr.Bias != nil {
		shadow.Bias = *sr.Bias
	}
	if sr.Radius != nil {
		shadow.Radius = *sr.Radius
	}
	if sr.MapSize != nil {
		shadow.MapSize = utils.Vec2FromSlice(sr.MapSize, shadow.MapSize)
	}
	if sr.Camera != nil && sr.Camera.malformed == nil {
		shadow.Camera = b.build(ctx, sr.Camera)
	}
}

func (b *Builder) requestAudio(ctx context.Context, o *Object3D, url string) {
	if b.Media == nil {
		return
	}
	if url == "" {
		b.report(&diag.InvalidRecordError{Table: "object", ID: o.UUID, Reason: "audio user data without url_new"})
		return
	}
	b.Audio[o.UUID] = b.Media.RequestAudio(ctx, o.UUID, url)
}

// resolveLevels registers the levels whose object is found below the LOD.
func (b *Builder) resolveLevels(lod *LOD, levels []LevelRecord) {
	for _, lv := range levels {
		target := lod.FindDescendant(func(n Node) bool { return n.Object().UUID == lv.Object })
		if target == nil {
			b.log.Debug("LOD level not found in subtree", "lod", lod.UUID, "object", lv.Object)
			continue
		}
		lod.AddLevel(target, lv.Distance)
	}
}

func (b *Builder) geometry(from string, id *string) (string, *geometry.Geometry) {
	var gid string
	if id != nil {
		gid = *id
	}
	g, ok := b.Geometries.Get(gid)
	if !ok {
		b.report(&diag.DanglingReferenceError{From: from, Table: "geometry", ID: gid})
		return gid, nil
	}
	return gid, g
}

func (b *Builder) materials(from string, ref *MaterialRef) MaterialBinding {
	mb := MaterialBinding{Ref: ref}
	if ref == nil || len(ref.IDs) == 0 {
		return mb
	}

	if !ref.List {
		slot, ok := b.Materials.Get(ref.IDs[0])
		if !ok {
			b.report(&diag.DanglingReferenceError{From: from, Table: "material", ID: ref.IDs[0]})
			return mb
		}
		mb.Materials = slot.Materials
		mb.Multi = slot.Multi
		return mb
	}

	mb.Multi = true
	mb.Materials = make([]*material.Material, len(ref.IDs))
	for i, id := range ref.IDs {
		slot, ok := b.Materials.Get(id)
		if !ok {
			b.report(&diag.DanglingReferenceError{From: from, Table: "material", ID: id})
			continue
		}
		mb.Materials[i] = slot.Single()
	}
	return mb
}

func (b *Builder) bind(d *Drawable, rec *Record) {
	d.GeometryID, d.Geometry = b.geometry(rec.UUID, rec.Geometry)
	d.Material = b.materials(rec.UUID, rec.Material)
}

func color(hex *int64, def int64) utils.ColorFloat {
	if hex != nil {
		return utils.ColorFromHex(*hex)
	}
	return utils.ColorFromHex(def)
}

func light(rec *Record) Light {
	return Light{Color: color(rec.Color, 0xffffff), Intensity: f32(rec.Intensity, 1)}
}

var defaultUp = mgl32.Vec3{0, 1, 0}

func buildScene(b *Builder, rec *Record) Node {
	s := newNode(&Scene{}, "Scene")

	if len(rec.Background) != 0 {
		var v float64
		if err := json.Unmarshal(rec.Background, &v); err == nil && v == math.Trunc(v) {
			c := utils.ColorFromHex(int64(v))
			s.Background = &c
		}
	}

	if f := rec.Fog; f != nil {
		switch f.Type {
		case "Fog":
			s.Fog = &LinearFog{Color: color(f.Color, 0xffffff), Near: f32(f.Near, 1), Far: f32(f.Far, 1000)}
		case "FogExp2":
			s.Fog = &ExpFog{Color: color(f.Color, 0xffffff), Density: f32(f.Density, 0.00025)}
		default:
			b.report(&diag.UnknownTypeError{Table: "fog", ID: rec.UUID, Type: f.Type})
		}
	}

	if len(rec.Transitions) != 0 {
		s.Transitions = append(json.RawMessage(nil), rec.Transitions...)
	}
	return s
}

func buildPerspectiveCamera(b *Builder, rec *Record) Node {
	c := NewPerspectiveCamera(f32(rec.Fov, 50), f32(rec.Aspect, 1), f32(rec.Near, 0.1), f32(rec.Far, 2000))
	c.Focus = f32(rec.Focus, c.Focus)
	c.Zoom = f32(rec.Zoom, c.Zoom)
	c.FilmGauge = f32(rec.FilmGauge, c.FilmGauge)
	c.FilmOffset = f32(rec.FilmOffset, c.FilmOffset)
	if len(rec.View) != 0 {
		c.View = append(json.RawMessage(nil), rec.View...)
	}
	return c
}

func buildOrthographicCamera(b *Builder, rec *Record) Node {
	c := NewOrthographicCamera(f32(rec.Left, -1), f32(rec.Right, 1), f32(rec.Top, 1), f32(rec.Bottom, -1),
		f32(rec.Near, 0.1), f32(rec.Far, 2000))
	c.Zoom = f32(rec.Zoom, c.Zoom)
	return c
}

func buildAmbientLight(b *Builder, rec *Record) Node {
	return newNode(&AmbientLight{Light: light(rec)}, "AmbientLight")
}

func buildDirectionalLight(b *Builder, rec *Record) Node {
	l := newNode(&DirectionalLight{Light: light(rec)}, "DirectionalLight")
	l.Position = defaultUp
	l.Shadow = newShadow(NewOrthographicCamera(-5, 5, 5, -5, 0.5, 500))
	return l
}

func buildPointLight(b *Builder, rec *Record) Node {
	l := newNode(&PointLight{
		Light:    light(rec),
		Distance: f32(rec.Distance, 0),
		Decay:    f32(rec.Decay, 1),
	}, "PointLight")
	l.Shadow = newShadow(NewPerspectiveCamera(90, 1, 0.5, 500))
	return l
}

func buildSpotLight(b *Builder, rec *Record) Node {
	l := newNode(&SpotLight{
		Light:    light(rec),
		Distance: f32(rec.Distance, 0),
		Angle:    f32(rec.Angle, math.Pi/3),
		Penumbra: f32(rec.Penumbra, 0),
		Decay:    f32(rec.Decay, 1),
	}, "SpotLight")
	l.Position = defaultUp
	l.Shadow = newShadow(NewPerspectiveCamera(50, 1, 0.5, 500))
	return l
}

func buildRectAreaLight(b *Builder, rec *Record) Node {
	return newNode(&RectAreaLight{
		Light:  light(rec),
		Width:  f32(rec.Width, 10),
		Height: f32(rec.Height, 10),
	}, "RectAreaLight")
}

func buildHemisphereLight(b *Builder, rec *Record) Node {
	l := newNode(&HemisphereLight{
		Light:       light(rec),
		GroundColor: color(rec.GroundColor, 0xffffff),
	}, "HemisphereLight")
	l.Position = defaultUp
	return l
}

// buildMesh promotes to a skinned mesh when the geometry carries bones.
func buildMesh(b *Builder, rec *Record) Node {
	if rec.Type == "SkinnedMesh" {
		b.log.Warn("SkinnedMesh is built from geometry bones only", "uuid", rec.UUID)
	}

	var d Drawable
	b.bind(&d, rec)

	if d.Geometry.HasBones() {
		sm := newNode(&SkinnedMesh{Mesh: Mesh{Drawable: d}}, "SkinnedMesh")
		sm.Skeleton = newSkeleton(d.Geometry, b.report)
		sm.BindMatrix = mgl32.Ident4()
		sm.InfluencesPerVertex = d.Geometry.InfluencesPerVertex
		return sm
	}
	return newNode(&Mesh{Drawable: d}, "Mesh")
}

func buildLine(b *Builder, rec *Record) Node {
	var d Drawable
	b.bind(&d, rec)

	mode := 0
	if rec.Mode != nil {
		mode = *rec.Mode
	}
	// mode 1 was LinePieces
	if mode == 1 {
		b.log.Warn("Line mode 1 is no longer supported, building LineSegments", "uuid", rec.UUID)
		return newNode(&LineSegments{Drawable: d}, "LineSegments")
	}
	return newNode(&Line{Drawable: d, Mode: mode}, "Line")
}

func buildLineLoop(b *Builder, rec *Record) Node {
	var d Drawable
	b.bind(&d, rec)
	return newNode(&LineLoop{Drawable: d}, "LineLoop")
}

func buildLineSegments(b *Builder, rec *Record) Node {
	var d Drawable
	b.bind(&d, rec)
	return newNode(&LineSegments{Drawable: d}, "LineSegments")
}

func buildPoints(b *Builder, rec *Record) Node {
	var d Drawable
	b.bind(&d, rec)
	return newNode(&Points{Drawable: d}, "Points")
}

func buildSprite(b *Builder, rec *Record) Node {
	s := newNode(&Sprite{}, "Sprite")
	s.Material = b.materials(rec.UUID, rec.Material)
	return s
}

func buildGroup(b *Builder, rec *Record) Node {
	return newNode(&Group{}, "Group")
}

func buildLOD(b *Builder, rec *Record) Node {
	return newNode(&LOD{AutoUpdate: true}, "LOD")
}

func buildBone(b *Builder, rec *Record) Node {
	return newNode(&Bone{}, "Bone")
}

func buildObject3D(b *Builder, rec *Record) Node {
	return NewObject3D()
}

func init() {
	SetConstructor("Scene", buildScene)
	SetConstructor("PerspectiveCamera", buildPerspectiveCamera)
	SetConstructor("OrthographicCamera", buildOrthographicCamera)
	SetConstructor("AmbientLight", buildAmbientLight)
	SetConstructor("DirectionalLight", buildDirectionalLight)
	SetConstructor("PointLight", buildPointLight)
	SetConstructor("SpotLight", buildSpotLight)
	SetConstructor("RectAreaLight", buildRectAreaLight)
	SetConstructor("HemisphereLight", buildHemisphereLight)
	SetConstructor("Mesh", buildMesh)
	SetConstructor("SkinnedMesh", buildMesh)
	SetConstructor("Line", buildLine)
	SetConstructor("LineLoop", buildLineLoop)
	SetConstructor("LineSegments", buildLineSegments)
	SetConstructor("Points", buildPoints)
	SetConstructor("PointCloud", buildPoints)
	SetConstructor("Sprite", buildSprite)
	SetConstructor("Group", buildGroup)
	SetConstructor("LOD", buildLOD)
	SetConstructor("Bone", buildBone)
	SetConstructor("Object3D", buildObject3D)
}
