package material

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/scene_browser/scene/diag"
	"github.com/mogaika/scene_browser/scene/texture"
)

type captured struct {
	errs []error
}

func (c *captured) Report(err error) { c.errs = append(c.errs, err) }

func rawRecords(t *testing.T, src string) []json.RawMessage {
	t.Helper()
	var recs []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(src), &recs))
	return recs
}

func TestBasicMaterialColor(t *testing.T) {
	table := BuildTable(rawRecords(t, `[{"uuid": "m1", "type": "MeshBasicMaterial", "color": 16711680}]`), &Decoder{})

	m := table["m1"].Single()
	require.NotNil(t, m)
	assert.Equal(t, "MeshBasicMaterial", m.Type)
	require.NotNil(t, m.Color)
	assert.Equal(t, Color(0xff0000), *m.Color)
	assert.Equal(t, [3]float32{1, 0, 0}, m.Color.Float().RGB())
	assert.Equal(t, float32(1), m.Opacity)
	assert.True(t, m.DepthTest)
}

func TestTypeDefaults(t *testing.T) {
	table := BuildTable(rawRecords(t, `[
		{"uuid": "std", "type": "MeshStandardMaterial", "roughness": 0.1},
		{"uuid": "phong", "type": "MeshPhongMaterial", "shading": 1},
		{"uuid": "dash", "type": "LineDashedMaterial", "vertexColors": true},
		{"uuid": "pts", "type": "PointsMaterial", "vertexColors": 2, "size": 4}
	]`), &Decoder{})

	std := table["std"].Single()
	assert.Equal(t, float32(0.1), std.Roughness)
	assert.Equal(t, float32(0.5), std.Metalness)
	assert.Equal(t, Color(0), *std.Emissive)

	phong := table["phong"].Single()
	assert.Equal(t, float32(30), phong.Shininess)
	assert.Equal(t, Color(0x111111), *phong.Specular)
	assert.True(t, phong.FlatShading)

	dash := table["dash"].Single()
	assert.Equal(t, float32(3), dash.DashSize)
	assert.Equal(t, Switch(1), dash.VertexColors)

	pts := table["pts"].Single()
	assert.Equal(t, Switch(2), pts.VertexColors)
	assert.Equal(t, float32(4), pts.Size)
	assert.True(t, pts.SizeAttenuation)
}

func TestTextureSlots(t *testing.T) {
	textures := texture.Table{"t1": texture.New("t1")}
	rep := &captured{}
	table := BuildTable(rawRecords(t, `[{
		"uuid": "m", "type": "MeshPhongMaterial",
		"map": "t1", "normalMap": "missing", "normalScale": [2, 2]
	}]`), &Decoder{Textures: textures, Reporter: rep})

	m := table["m"].Single()
	require.NotNil(t, m)
	assert.Same(t, textures["t1"], m.Map("map"))
	assert.Nil(t, m.Map("normalMap"))
	assert.Equal(t, "missing", m.MapIDs["normalMap"])
	assert.Equal(t, float32(2), m.NormalScale[0])

	require.Len(t, rep.errs, 1)
	var dre *diag.DanglingReferenceError
	require.ErrorAs(t, rep.errs[0], &dre)
	assert.Equal(t, "missing", dre.ID)
	assert.Equal(t, "m", dre.From)
}

func TestMultiMaterial(t *testing.T) {
	rep := &captured{}
	table := BuildTable(rawRecords(t, `[{
		"uuid": "multi", "type": "MultiMaterial",
		"materials": [
			{"uuid": "a", "type": "MeshBasicMaterial"},
			{"uuid": "b", "type": "MeshFancyMaterial"},
			{"uuid": "c", "type": "MeshLambertMaterial"}
		]
	}]`), &Decoder{Reporter: rep})

	s := table["multi"]
	require.NotNil(t, s)
	assert.True(t, s.Multi)
	assert.Nil(t, s.Single())
	require.Len(t, s.Materials, 3)
	assert.Equal(t, "a", s.Materials[0].UUID)
	assert.Nil(t, s.Materials[1])
	assert.Equal(t, "c", s.Materials[2].UUID)

	require.Len(t, rep.errs, 1)
	assert.IsType(t, &diag.UnknownTypeError{}, rep.errs[0])
}

func TestUnknownMaterialSkipped(t *testing.T) {
	rep := &captured{}
	table := BuildTable(rawRecords(t, `[
		{"uuid": "x", "type": "Nope"},
		{"uuid": "y", "type": "SpriteMaterial", "rotation": 1.5}
	]`), &Decoder{Reporter: rep})

	assert.NotContains(t, table, "x")
	assert.Equal(t, float32(1.5), table["y"].Single().Rotation)
	require.Len(t, rep.errs, 1)
	var ute *diag.UnknownTypeError
	require.ErrorAs(t, rep.errs[0], &ute)
	assert.Equal(t, "Nope", ute.Type)
}

func TestMarshalKeepsMapIDs(t *testing.T) {
	table := BuildTable(rawRecords(t, `[{"uuid": "m", "type": "MeshBasicMaterial", "map": "t1", "color": 255}]`), &Decoder{})

	b, err := json.Marshal(table["m"])
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &fields))
	assert.Equal(t, "t1", fields["map"])
	assert.Equal(t, float64(255), fields["color"])
	assert.Equal(t, "MeshBasicMaterial", fields["type"])
}
