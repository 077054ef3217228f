package material

import (
	"encoding/json"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/scene_browser/scene/texture"
	"github.com/mogaika/scene_browser/utils"
)

const (
	FrontSide  = 0
	BackSide   = 1
	DoubleSide = 2
)

const (
	NoBlending     = 0
	NormalBlending = 1
)

// Color is a 0xRRGGBB integer as written by exporters.
type Color int64

func (c Color) Float() utils.ColorFloat {
	return utils.ColorFromHex(int64(c))
}

func colorPtr(hex int64) *Color {
	c := Color(hex)
	return &c
}

// Switch accepts both the numeric and the boolean form of a flag.
type Switch int

func (s *Switch) UnmarshalJSON(b []byte) error {
	var flag bool
	if err := json.Unmarshal(b, &flag); err == nil {
		*s = 0
		if flag {
			*s = 1
		}
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.Wrapf(err, "Invalid flag value %s", b)
	}
	*s = Switch(n)
	return nil
}

// texture slots a material may reference by id
var MapSlots = []string{
	"map", "alphaMap", "bumpMap", "normalMap", "displacementMap", "roughnessMap",
	"metalnessMap", "emissiveMap", "lightMap", "aoMap", "envMap", "specularMap", "gradientMap",
}

type Material struct {
	UUID string `json:"uuid"`
	Type string `json:"type"`
	Name string `json:"name,omitempty"`

	Color             *Color  `json:"color,omitempty"`
	Emissive          *Color  `json:"emissive,omitempty"`
	Specular          *Color  `json:"specular,omitempty"`
	EmissiveIntensity float32 `json:"emissiveIntensity,omitempty"`

	Roughness          float32 `json:"roughness,omitempty"`
	Metalness          float32 `json:"metalness,omitempty"`
	Shininess          float32 `json:"shininess,omitempty"`
	Reflectivity       float32 `json:"reflectivity,omitempty"`
	ClearCoat          float32 `json:"clearCoat,omitempty"`
	ClearCoatRoughness float32 `json:"clearCoatRoughness,omitempty"`

	Opacity      float32 `json:"opacity"`
	Transparent  bool    `json:"transparent"`
	AlphaTest    float32 `json:"alphaTest,omitempty"`
	Side         int     `json:"side"`
	Blending     int     `json:"blending"`
	VertexColors Switch  `json:"vertexColors,omitempty"`
	DepthTest    bool    `json:"depthTest"`
	DepthWrite   bool    `json:"depthWrite"`
	ColorWrite   bool    `json:"colorWrite"`
	Visible      bool    `json:"visible"`
	Wireframe    bool    `json:"wireframe,omitempty"`
	FlatShading  bool    `json:"flatShading,omitempty"`
	Skinning     bool    `json:"skinning,omitempty"`
	MorphTargets bool    `json:"morphTargets,omitempty"`
	Fog          bool    `json:"fog"`

	Linewidth       float32 `json:"linewidth,omitempty"`
	Scale           float32 `json:"scale,omitempty"`
	DashSize        float32 `json:"dashSize,omitempty"`
	GapSize         float32 `json:"gapSize,omitempty"`
	Size            float32 `json:"size,omitempty"`
	SizeAttenuation bool    `json:"sizeAttenuation,omitempty"`
	Rotation        float32 `json:"rotation,omitempty"`

	NormalScale       mgl32.Vec2 `json:"normalScale"`
	BumpScale         float32    `json:"bumpScale,omitempty"`
	DisplacementScale float32    `json:"displacementScale,omitempty"`
	DisplacementBias  float32    `json:"displacementBias,omitempty"`
	AoMapIntensity    float32    `json:"aoMapIntensity,omitempty"`
	LightMapIntensity float32    `json:"lightMapIntensity,omitempty"`
	EnvMapIntensity   float32    `json:"envMapIntensity,omitempty"`

	Uniforms       map[string]json.RawMessage `json:"uniforms,omitempty"`
	VertexShader   string                     `json:"vertexShader,omitempty"`
	FragmentShader string                     `json:"fragmentShader,omitempty"`

	UserData json.RawMessage `json:"userData,omitempty"`

	// slot name to texture id as written in the document
	MapIDs map[string]string `json:"-"`
	// resolved textures, dangling ids are absent
	Maps map[string]*texture.Texture `json:"-"`
}

// Map returns the texture bound to a slot, nil if none.
func (m *Material) Map(slot string) *texture.Texture {
	if m == nil {
		return nil
	}
	return m.Maps[slot]
}

// HasTransparency is true for materials that need blending on export.
func (m *Material) HasTransparency() bool {
	return m.Transparent || m.Opacity < 1
}

func base(typ string) *Material {
	return &Material{
		Type:              typ,
		Opacity:           1,
		Side:              FrontSide,
		Blending:          NormalBlending,
		DepthTest:         true,
		DepthWrite:        true,
		ColorWrite:        true,
		Visible:           true,
		Fog:               true,
		NormalScale:       mgl32.Vec2{1, 1},
		BumpScale:         1,
		DisplacementScale: 1,
		AoMapIntensity:    1,
		LightMapIntensity: 1,
		EnvMapIntensity:   1,
	}
}

type Factory func() *Material

var gFactories = make(map[string]Factory)

func SetFactory(typ string, f Factory) {
	gFactories[typ] = f
}

func Known(typ string) bool {
	_, ok := gFactories[typ]
	return ok
}

func init() {
	SetFactory("MeshBasicMaterial", func() *Material {
		m := base("MeshBasicMaterial")
		m.Color = colorPtr(0xffffff)
		return m
	})
	SetFactory("MeshLambertMaterial", func() *Material {
		m := base("MeshLambertMaterial")
		m.Color, m.Emissive, m.EmissiveIntensity = colorPtr(0xffffff), colorPtr(0), 1
		return m
	})
	phong := func(typ string) Factory {
		return func() *Material {
			m := base(typ)
			m.Color, m.Emissive, m.EmissiveIntensity = colorPtr(0xffffff), colorPtr(0), 1
			m.Specular, m.Shininess = colorPtr(0x111111), 30
			return m
		}
	}
	SetFactory("MeshPhongMaterial", phong("MeshPhongMaterial"))
	SetFactory("MeshToonMaterial", phong("MeshToonMaterial"))
	SetFactory("MeshStandardMaterial", func() *Material {
		m := base("MeshStandardMaterial")
		m.Color, m.Emissive, m.EmissiveIntensity = colorPtr(0xffffff), colorPtr(0), 1
		m.Roughness, m.Metalness = 0.5, 0.5
		return m
	})
	SetFactory("MeshPhysicalMaterial", func() *Material {
		m := base("MeshPhysicalMaterial")
		m.Color, m.Emissive, m.EmissiveIntensity = colorPtr(0xffffff), colorPtr(0), 1
		m.Roughness, m.Metalness, m.Reflectivity = 0.5, 0.5, 0.5
		return m
	})
	for _, typ := range []string{"MeshNormalMaterial", "MeshDepthMaterial", "MeshDistanceMaterial"} {
		typ := typ
		SetFactory(typ, func() *Material {
			m := base(typ)
			m.Fog = false
			return m
		})
	}
	SetFactory("LineBasicMaterial", func() *Material {
		m := base("LineBasicMaterial")
		m.Color, m.Linewidth = colorPtr(0xffffff), 1
		return m
	})
	SetFactory("LineDashedMaterial", func() *Material {
		m := base("LineDashedMaterial")
		m.Color, m.Linewidth = colorPtr(0xffffff), 1
		m.Scale, m.DashSize, m.GapSize = 1, 3, 1
		return m
	})
	SetFactory("PointsMaterial", func() *Material {
		m := base("PointsMaterial")
		m.Color, m.Size, m.SizeAttenuation = colorPtr(0xffffff), 1, true
		return m
	})
	SetFactory("SpriteMaterial", func() *Material {
		m := base("SpriteMaterial")
		m.Color = colorPtr(0xffffff)
		return m
	})
	SetFactory("ShadowMaterial", func() *Material {
		m := base("ShadowMaterial")
		m.Color, m.Transparent = colorPtr(0), true
		return m
	})
	for _, typ := range []string{"ShaderMaterial", "RawShaderMaterial"} {
		typ := typ
		SetFactory(typ, func() *Material {
			m := base(typ)
			m.Fog = false
			return m
		})
	}
}
