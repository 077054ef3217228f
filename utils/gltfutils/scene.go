package gltfutils

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/scene_browser/logger"
	"github.com/mogaika/scene_browser/scene/material"
	"github.com/mogaika/scene_browser/scene/object"
	"github.com/mogaika/scene_browser/scene/texture"
	"github.com/mogaika/scene_browser/utils"
)

type GLTFTextureExported struct {
	TextureIndex uint32
	ImageIndex   uint32
	SamplerIndex uint32
}

type GLTFMaterialExported struct {
	MaterialId uint32
}

type GLTFMeshExported struct {
	MeshIndex uint32
}

type sceneExporter struct {
	*GLTFCacher
	names utils.NodeNames
	log   *logger.Logger
}

// ExportScene writes the tree below root as a single gltf scene.
// Lights, cameras and fog have no gltf counterpart here and become empty nodes.
func ExportScene(root object.Node, log *logger.Logger) (*gltf.Document, error) {
	if root == nil {
		return nil, errors.Errorf("Nothing to export")
	}
	e := &sceneExporter{GLTFCacher: NewCacher(), log: log.Component("gltf")}

	idx, err := e.node(root)
	if err != nil {
		return nil, err
	}
	e.Doc.Scenes[0].Nodes = append(e.Doc.Scenes[0].Nodes, idx)
	return e.Doc, nil
}

func (e *sceneExporter) node(n object.Node) (uint32, error) {
	o := n.Object()
	doc := e.Doc

	name := o.Name
	if name == "" {
		name = e.names.NameFor(o.UUID)
	}
	q := o.Quaternion
	gn := &gltf.Node{
		Name:        name,
		Translation: o.Position,
		Rotation:    [4]float32{q.V[0], q.V[1], q.V[2], q.W},
		Scale:       o.Scale,
		Extras:      map[string]string{"uuid": o.UUID, "type": o.Type},
	}
	idx := uint32(len(doc.Nodes))
	doc.Nodes = append(doc.Nodes, gn)

	if d, mode, ok := drawableOf(n); ok {
		mi, ok, err := e.mesh(d, mode)
		if err != nil {
			return 0, errors.Wrapf(err, "Failed to export %q", o.UUID)
		}
		if ok {
			gn.Mesh = gltf.Index(mi)
		}
	}

	for _, c := range o.Children {
		ci, err := e.node(c)
		if err != nil {
			return 0, err
		}
		gn.Children = append(gn.Children, ci)
	}
	return idx, nil
}

func drawableOf(n object.Node) (*object.Drawable, gltf.PrimitiveMode, bool) {
	switch v := n.(type) {
	case *object.Mesh:
		return &v.Drawable, gltf.PrimitiveTriangles, true
	case *object.SkinnedMesh:
		return &v.Drawable, gltf.PrimitiveTriangles, true
	case *object.Line:
		return &v.Drawable, gltf.PrimitiveLineStrip, true
	case *object.LineLoop:
		return &v.Drawable, gltf.PrimitiveLineLoop, true
	case *object.LineSegments:
		return &v.Drawable, gltf.PrimitiveLines, true
	case *object.Points:
		return &v.Drawable, gltf.PrimitivePoints, true
	}
	return nil, 0, false
}

func meshKey(d *object.Drawable, mode gltf.PrimitiveMode) string {
	ids := make([]string, len(d.Material.Materials))
	for i, m := range d.Material.Materials {
		if m != nil {
			ids[i] = m.UUID
		}
	}
	return fmt.Sprintf("mesh:%s:%d:%v:%s", d.Geometry.UUID, mode, d.Material.Multi, strings.Join(ids, ","))
}

// mesh returns false when the drawable has no vertex data to write.
func (e *sceneExporter) mesh(d *object.Drawable, mode gltf.PrimitiveMode) (uint32, bool, error) {
	if d.Geometry == nil || d.Geometry.Data == nil || len(d.Geometry.Data.Positions) == 0 {
		return 0, false, nil
	}
	key := meshKey(d, mode)
	if v, ok := e.GetCached(key); ok {
		return v.(*GLTFMeshExported).MeshIndex, true, nil
	}

	doc := e.Doc
	buf := d.Geometry.Data
	vertices := len(buf.Positions)

	attributes := make(map[string]uint32)
	attributes["POSITION"] = modeler.WritePosition(doc, buf.Positions)
	if len(buf.Normals) == vertices {
		attributes["NORMAL"] = modeler.WriteNormal(doc, buf.Normals)
	}
	if len(buf.UVs) == vertices {
		attributes["TEXCOORD_0"] = modeler.WriteTextureCoord(doc, buf.UVs)
	}

	gm := &gltf.Mesh{Name: d.Geometry.Name}
	if gm.Name == "" {
		gm.Name = d.Geometry.UUID
	}

	addPrimitive := func(indices []uint32, mat *material.Material) error {
		p := &gltf.Primitive{Attributes: attributes, Mode: mode}
		if indices != nil {
			p.Indices = gltf.Index(modeler.WriteIndices(doc, indices))
		}
		if mat != nil {
			mi, err := e.material(mat)
			if err != nil {
				return err
			}
			p.Material = gltf.Index(mi)
		}
		gm.Primitives = append(gm.Primitives, p)
		return nil
	}

	if len(buf.Groups) == 0 {
		if err := addPrimitive(buf.Indices, d.Material.At(0)); err != nil {
			return 0, false, err
		}
	} else {
		total := vertices
		if buf.Indices != nil {
			total = len(buf.Indices)
		}
		for _, g := range buf.Groups {
			start, end := g.Start, g.Start+g.Count
			if start < 0 || start >= end || end > total {
				e.log.Warn("skipping out of range geometry group", "geometry", d.Geometry.UUID, "start", g.Start, "count", g.Count)
				continue
			}
			var indices []uint32
			if buf.Indices != nil {
				indices = buf.Indices[start:end]
			} else {
				indices = make([]uint32, 0, g.Count)
				for i := start; i < end; i++ {
					indices = append(indices, uint32(i))
				}
			}
			if err := addPrimitive(indices, d.Material.At(g.MaterialIndex)); err != nil {
				return 0, false, err
			}
		}
	}

	if len(gm.Primitives) == 0 {
		return 0, false, nil
	}

	exported := &GLTFMeshExported{MeshIndex: uint32(len(doc.Meshes))}
	doc.Meshes = append(doc.Meshes, gm)
	e.AddCache(key, exported)
	return exported.MeshIndex, true, nil
}

func (e *sceneExporter) material(m *material.Material) (uint32, error) {
	if v, ok := e.GetCached("material:" + m.UUID); ok {
		return v.(*GLTFMaterialExported).MaterialId, nil
	}

	color := [4]float32{1, 1, 1, m.Opacity}
	if m.Color != nil {
		rgb := m.Color.Float().RGB()
		color = [4]float32{rgb[0], rgb[1], rgb[2], m.Opacity}
	}
	metallic, roughness := m.Metalness, m.Roughness
	if m.Type != "MeshStandardMaterial" && m.Type != "MeshPhysicalMaterial" {
		metallic, roughness = 0, 1
	}

	gm := &gltf.Material{
		Name:        m.Name,
		DoubleSided: m.Side == material.DoubleSide,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &color,
			MetallicFactor:  &metallic,
			RoughnessFactor: &roughness,
		},
	}
	if m.HasTransparency() {
		gm.AlphaMode = gltf.AlphaBlend
	}
	if m.Emissive != nil {
		gm.EmissiveFactor = m.Emissive.Float().RGB()
	}

	if t := m.Map("map"); t != nil {
		gte, err := e.texture(t)
		if err != nil {
			return 0, err
		}
		if gte != nil {
			gm.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: gte.TextureIndex}
		}
	}

	glme := &GLTFMaterialExported{MaterialId: uint32(len(e.Doc.Materials))}
	e.Doc.Materials = append(e.Doc.Materials, gm)
	e.AddCache("material:"+m.UUID, glme)
	return glme.MaterialId, nil
}

// texture embeds the image of t, nil when the media is not an available image.
func (e *sceneExporter) texture(t *texture.Texture) (*GLTFTextureExported, error) {
	if v, ok := e.GetCached("texture:" + t.UUID); ok {
		return v.(*GLTFTextureExported), nil
	}
	if t.Video || !t.Ready() {
		e.log.Debug("texture media not exportable", "texture", t.UUID, "video", t.Video)
		return nil, nil
	}
	p := t.Handle.Payload()
	if p.MIME != "image/png" && p.MIME != "image/jpeg" {
		e.log.Debug("texture image format not supported by gltf", "texture", t.UUID, "mime", p.MIME)
		return nil, nil
	}

	doc := e.Doc
	gte := &GLTFTextureExported{}

	sampler := &gltf.Sampler{
		Name:  t.UUID + "_sampler",
		WrapS: wrapMode(t.WrapS),
		WrapT: wrapMode(t.WrapT),
	}
	if t.MagFilter == texture.NearestFilter {
		sampler.MagFilter = gltf.MagNearest
	} else {
		sampler.MagFilter = gltf.MagLinear
	}
	switch t.MinFilter {
	case texture.NearestFilter, texture.NearestMipMapNearestFilter, texture.NearestMipMapLinearFilter:
		sampler.MinFilter = gltf.MinNearest
	default:
		sampler.MinFilter = gltf.MinLinear
	}
	gte.SamplerIndex = uint32(len(doc.Samplers))
	doc.Samplers = append(doc.Samplers, sampler)

	var err error
	gte.ImageIndex, err = modeler.WriteImage(doc, t.UUID+"_image", p.MIME, bytes.NewReader(p.Data))
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to write gltf image")
	}

	gte.TextureIndex = uint32(len(doc.Textures))
	doc.Textures = append(doc.Textures, &gltf.Texture{
		Name:    t.Name,
		Sampler: gltf.Index(gte.SamplerIndex),
		Source:  gltf.Index(gte.ImageIndex),
	})

	e.AddCache("texture:"+t.UUID, gte)
	return gte, nil
}

func wrapMode(w int) gltf.WrappingMode {
	switch w {
	case texture.RepeatWrapping:
		return gltf.WrapRepeat
	case texture.MirroredRepeatWrapping:
		return gltf.WrapMirroredRepeat
	default:
		return gltf.WrapClampToEdge
	}
}
