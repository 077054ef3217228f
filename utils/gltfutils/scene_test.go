package gltfutils

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/png"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/scene_browser/config"
	"github.com/mogaika/scene_browser/fetch"
	"github.com/mogaika/scene_browser/logger"
	"github.com/mogaika/scene_browser/scene"
)

const twoBoxes = `{
	"metadata": {"type": "Object"},
	"geometries": [{"uuid": "g1", "type": "BoxGeometry"}],
	"materials": [{"uuid": "m1", "type": "MeshBasicMaterial", "color": 16711680}],
	"object": {"uuid": "root", "type": "Scene", "name": "world", "children": [
		{"uuid": "a", "type": "Mesh", "name": "left", "geometry": "g1", "material": "m1", "position": [-1, 0, 0]},
		{"uuid": "b", "type": "Mesh", "geometry": "g1", "material": "m1", "position": [1, 0, 0]},
		{"uuid": "sun", "type": "DirectionalLight"}
	]}
}`

func TestExportScene(t *testing.T) {
	res, err := scene.NewLoader().ParseJSON(context.Background(), []byte(twoBoxes), nil)
	require.NoError(t, err)

	doc, err := ExportScene(res.Root, logger.Nop())
	require.NoError(t, err)

	require.Len(t, doc.Nodes, 4)
	assert.Equal(t, []uint32{0}, doc.Scenes[0].Nodes)
	assert.Equal(t, "world", doc.Nodes[0].Name)
	assert.Equal(t, []uint32{1, 2, 3}, doc.Nodes[0].Children)
	assert.Equal(t, "left", doc.Nodes[1].Name)
	assert.NotEmpty(t, doc.Nodes[2].Name, "unnamed nodes get a generated name")
	assert.Equal(t, [3]float32{1, 0, 0}, doc.Nodes[2].Translation)

	// both meshes share geometry and material
	require.Len(t, doc.Meshes, 1)
	require.Len(t, doc.Materials, 1)
	assert.Equal(t, gltf.Index(0), doc.Nodes[1].Mesh)
	assert.Equal(t, gltf.Index(0), doc.Nodes[2].Mesh)
	assert.Nil(t, doc.Nodes[3].Mesh)

	assert.Equal(t, &[4]float32{1, 0, 0, 1}, doc.Materials[0].PBRMetallicRoughness.BaseColorFactor)

	// one primitive per box face group
	assert.Len(t, doc.Meshes[0].Primitives, 6)

	var buf bytes.Buffer
	require.NoError(t, ExportBinary(&buf, doc))
	assert.Equal(t, []byte("glTF"), buf.Bytes()[:4])
}

func TestExportEmbedsTextures(t *testing.T) {
	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	src := "data:image/png;base64," + base64.StdEncoding.EncodeToString(img.Bytes())

	doc := `{
		"metadata": {"type": "Object"},
		"images": [{"uuid": "i1", "url": "` + src + `"}],
		"textures": [{"uuid": "t1", "image": "i1", "wrap": [1000, 1001], "magFilter": 1003}],
		"geometries": [{"uuid": "g1", "type": "PlaneGeometry"}],
		"materials": [{"uuid": "m1", "type": "MeshStandardMaterial", "map": "t1"}],
		"object": {"type": "Mesh", "geometry": "g1", "material": "m1"}
	}`
	l := scene.NewLoader(scene.WithMediaFetcher(fetch.New(config.Default().Media, logger.Nop())))
	res, err := l.ParseJSON(context.Background(), []byte(doc), nil)
	require.NoError(t, err)
	require.NoError(t, res.Wait(context.Background()))

	out, err := ExportScene(res.Root, logger.Nop())
	require.NoError(t, err)

	require.Len(t, out.Textures, 1)
	require.Len(t, out.Images, 1)
	require.Len(t, out.Samplers, 1)
	assert.Equal(t, gltf.WrapRepeat, out.Samplers[0].WrapS)
	assert.Equal(t, gltf.WrapClampToEdge, out.Samplers[0].WrapT)
	assert.Equal(t, gltf.MagNearest, out.Samplers[0].MagFilter)
	require.NotNil(t, out.Materials[0].PBRMetallicRoughness.BaseColorTexture)
}

func TestExportNothing(t *testing.T) {
	_, err := ExportScene(nil, nil)
	assert.Error(t, err)
}
