package object

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/scene_browser/scene/diag"
	"github.com/mogaika/scene_browser/scene/geometry"
	"github.com/mogaika/scene_browser/scene/material"
	"github.com/mogaika/scene_browser/utils"
)

type Fog interface {
	FogColor() utils.ColorFloat
}

type LinearFog struct {
	Color utils.ColorFloat
	Near  float32
	Far   float32
}

func (f *LinearFog) FogColor() utils.ColorFloat { return f.Color }

type ExpFog struct {
	Color   utils.ColorFloat
	Density float32
}

func (f *ExpFog) FogColor() utils.ColorFloat { return f.Color }

type Scene struct {
	Object3D
	Background  *utils.ColorFloat
	Fog         Fog
	Transitions json.RawMessage
}

type PerspectiveCamera struct {
	Object3D
	Fov        float32
	Aspect     float32
	Near       float32
	Far        float32
	Focus      float32
	Zoom       float32
	FilmGauge  float32
	FilmOffset float32
	View       json.RawMessage
}

func NewPerspectiveCamera(fov, aspect, near, far float32) *PerspectiveCamera {
	return newNode(&PerspectiveCamera{
		Fov: fov, Aspect: aspect, Near: near, Far: far,
		Focus: 10, Zoom: 1, FilmGauge: 35,
	}, "PerspectiveCamera")
}

type OrthographicCamera struct {
	Object3D
	Left, Right, Top, Bottom float32
	Near, Far                float32
	Zoom                     float32
}

func NewOrthographicCamera(left, right, top, bottom, near, far float32) *OrthographicCamera {
	return newNode(&OrthographicCamera{
		Left: left, Right: right, Top: top, Bottom: bottom, Near: near, Far: far, Zoom: 1,
	}, "OrthographicCamera")
}

type Light struct {
	Object3D
	Color     utils.ColorFloat
	Intensity float32
}

// LightShadow is the shadow map setup of lights that cast shadows.
type LightShadow struct {
	Bias    float32
	Radius  float32
	MapSize mgl32.Vec2
	Camera  Node
}

func newShadow(camera Node) *LightShadow {
	return &LightShadow{Radius: 1, MapSize: mgl32.Vec2{512, 512}, Camera: camera}
}

type shadowCaster interface {
	LightShadow() *LightShadow
}

type AmbientLight struct {
	Light
}

type DirectionalLight struct {
	Light
	Shadow *LightShadow
}

func (l *DirectionalLight) LightShadow() *LightShadow { return l.Shadow }

type PointLight struct {
	Light
	Distance float32
	Decay    float32
	Shadow   *LightShadow
}

func (l *PointLight) LightShadow() *LightShadow { return l.Shadow }

type SpotLight struct {
	Light
	Distance float32
	Angle    float32
	Penumbra float32
	Decay    float32
	Shadow   *LightShadow
}

func (l *SpotLight) LightShadow() *LightShadow { return l.Shadow }

type RectAreaLight struct {
	Light
	Width  float32
	Height float32
}

type HemisphereLight struct {
	Light
	GroundColor utils.ColorFloat
}

// MaterialBinding is the resolved material reference of a drawable node.
type MaterialBinding struct {
	Ref       *MaterialRef
	Materials []*material.Material
	// a single id naming a MultiMaterial, or a list of ids
	Multi bool
}

// Single is the material of a single id reference.
func (b *MaterialBinding) Single() *material.Material {
	if b.Multi || len(b.Materials) == 0 {
		return nil
	}
	return b.Materials[0]
}

// At returns the material for a geometry group index.
func (b *MaterialBinding) At(i int) *material.Material {
	if !b.Multi {
		return b.Single()
	}
	if i < 0 || i >= len(b.Materials) {
		return nil
	}
	return b.Materials[i]
}

type Drawable struct {
	Object3D
	GeometryID string
	Geometry   *geometry.Geometry
	Material   MaterialBinding
}

type drawable interface {
	Node
	drawable() *Drawable
}

func (d *Drawable) drawable() *Drawable { return d }

type Mesh struct {
	Drawable
}

type Bone struct {
	Object3D
}

type Skeleton struct {
	Bones []*Bone
}

type SkinnedMesh struct {
	Mesh
	Skeleton            *Skeleton
	BindMatrix          mgl32.Mat4
	InfluencesPerVertex int
}

// newSkeleton links the geometry bones by parent index, roots have parent -1.
// A bone whose parent chain has a cycle stays a root.
func newSkeleton(g *geometry.Geometry, report func(error)) *Skeleton {
	s := &Skeleton{Bones: make([]*Bone, len(g.Bones))}
	for i, gb := range g.Bones {
		b := newNode(&Bone{}, "Bone")
		b.Name = gb.Name
		b.Position = gb.Position
		b.Scale = gb.Scale
		b.SetQuaternion(gb.Rotation)
		s.Bones[i] = b
	}
	for i, gb := range g.Bones {
		if gb.Parent < 0 || gb.Parent >= len(s.Bones) {
			continue
		}
		if boneCycle(g.Bones, i) {
			report(&diag.InvalidRecordError{Table: "geometry", ID: g.UUID,
				Reason: fmt.Sprintf("bone %d parent chain has a cycle", i)})
			continue
		}
		s.Bones[gb.Parent].Add(s.Bones[i])
	}
	return s
}

func boneCycle(bones []geometry.Bone, i int) bool {
	p := bones[i].Parent
	for steps := 0; p >= 0 && p < len(bones); steps++ {
		if p == i || steps > len(bones) {
			return true
		}
		p = bones[p].Parent
	}
	return false
}

type Line struct {
	Drawable
	Mode int
}

type LineLoop struct {
	Drawable
}

type LineSegments struct {
	Drawable
}

type Points struct {
	Drawable
}

type Sprite struct {
	Drawable
}

type Group struct {
	Object3D
}

type Level struct {
	Distance float32
	Object   Node
}

type LOD struct {
	Object3D
	Levels     []Level
	AutoUpdate bool
}

// AddLevel registers a level keeping the list ordered by distance.
// The object keeps its place in the tree.
func (l *LOD) AddLevel(n Node, distance float32) {
	distance = float32(math.Abs(float64(distance)))
	i := sort.Search(len(l.Levels), func(i int) bool { return l.Levels[i].Distance > distance })
	l.Levels = append(l.Levels, Level{})
	copy(l.Levels[i+1:], l.Levels[i:])
	l.Levels[i] = Level{Distance: distance, Object: n}
}

// LevelFor returns the object shown at the given camera distance.
func (l *LOD) LevelFor(distance float32) Node {
	var cur Node
	for _, lv := range l.Levels {
		if distance < lv.Distance && cur != nil {
			break
		}
		cur = lv.Object
	}
	return cur
}
