package object

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/scene_browser/scene/diag"
	"github.com/mogaika/scene_browser/scene/geometry"
	"github.com/mogaika/scene_browser/scene/material"
	"github.com/mogaika/scene_browser/scene/media"
)

type captured struct {
	errs []error
}

func (c *captured) Report(err error) { c.errs = append(c.errs, err) }

func record(t *testing.T, src string) *Record {
	t.Helper()
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(src), &rec))
	return &rec
}

func tables(t *testing.T) (geometry.Table, material.Table) {
	t.Helper()
	var grecs []*geometry.Record
	require.NoError(t, json.Unmarshal([]byte(`[
		{"uuid": "g1", "type": "BoxGeometry", "width": 1, "height": 1, "depth": 1},
		{"uuid": "skin", "type": "Geometry", "data": {
			"vertices": [0,0,0, 1,0,0, 0,1,0], "faces": [0, 0,1,2],
			"bones": [{"parent": -1, "name": "hip"}, {"parent": 0, "name": "knee", "pos": [0,1,0]}]
		}}
	]`), &grecs))

	var mrecs []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(`[
		{"uuid": "m1", "type": "MeshBasicMaterial", "color": 16711680},
		{"uuid": "m2", "type": "MeshLambertMaterial"},
		{"uuid": "multi", "type": "MultiMaterial", "materials": [{"uuid": "a", "type": "MeshBasicMaterial"}, {"uuid": "b", "type": "MeshBasicMaterial"}]}
	]`), &mrecs))

	return geometry.BuildTable(grecs, nil, nil), material.BuildTable(mrecs, &material.Decoder{})
}

func newBuilder(t *testing.T) (*Builder, *captured) {
	g, m := tables(t)
	rep := &captured{}
	return &Builder{Geometries: g, Materials: m, Reporter: rep}, rep
}

func vecInDelta(t *testing.T, want, got mgl32.Vec3) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-5, "component %d of %v", i, got)
	}
}

func TestGroupWithRedBox(t *testing.T) {
	b, rep := newBuilder(t)
	root := b.Build(context.Background(), record(t, `{
		"type": "Group",
		"children": [{"type": "Mesh", "geometry": "g1", "material": "m1"}]
	}`))

	g, ok := root.(*Group)
	require.True(t, ok)
	require.Len(t, g.Children, 1)

	mesh, ok := g.Children[0].(*Mesh)
	require.True(t, ok)
	assert.Same(t, b.Geometries["g1"], mesh.Geometry)
	assert.Equal(t, geometry.KindBox, mesh.Geometry.Kind)
	assert.Equal(t, &geometry.BoxParams{Width: 1, Height: 1, Depth: 1, WidthSegments: 1, HeightSegments: 1, DepthSegments: 1}, mesh.Geometry.Params)

	mat := mesh.Material.Single()
	require.NotNil(t, mat)
	assert.Equal(t, [3]float32{1, 0, 0}, mat.Color.Float().RGB())

	assert.Same(t, g, mesh.Parent)
	assert.NotEmpty(t, g.UUID, "missing ids are generated")
	assert.Empty(t, rep.errs)
	assert.Equal(t, StateFinalized, g.State)
	assert.Equal(t, StateFinalized, mesh.State)
}

func TestMatrixWinsOverTRS(t *testing.T) {
	b, _ := newBuilder(t)
	m := mgl32.Translate3D(1, 2, 3).Mul4(mgl32.HomogRotate3DY(math.Pi / 4)).Mul4(mgl32.Scale3D(2, 2, 2))
	src, err := json.Marshal(map[string]interface{}{
		"type":     "Object3D",
		"matrix":   m[:],
		"position": []float32{9, 9, 9},
		"scale":    []float32{5, 5, 5},
		"rotation": []interface{}{1, 1, 1, "XYZ"},
	})
	require.NoError(t, err)

	o := b.Build(context.Background(), record(t, string(src))).Object()
	vecInDelta(t, mgl32.Vec3{1, 2, 3}, o.Position)
	vecInDelta(t, mgl32.Vec3{2, 2, 2}, o.Scale)
	vecInDelta(t, mgl32.Vec3{0, math.Pi / 4, 0}, mgl32.Vec3{o.Rotation.X, o.Rotation.Y, o.Rotation.Z})
	assert.True(t, o.Matrix().ApproxEqualThreshold(m, 1e-5))
}

func TestIdentityMatrix(t *testing.T) {
	b, _ := newBuilder(t)
	o := b.Build(context.Background(), record(t, `{"type": "Group", "matrix": [1,0,0,0, 0,1,0,0, 0,0,1,0, 0,0,0,1]}`)).Object()

	assert.Equal(t, mgl32.Vec3{}, o.Position)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, o.Scale)
	assert.InDelta(t, 1, o.Quaternion.W, 1e-6)
	vecInDelta(t, mgl32.Vec3{}, o.Quaternion.V)
}

func TestRotationAndQuaternion(t *testing.T) {
	b, _ := newBuilder(t)
	o := b.Build(context.Background(), record(t, `{"type": "Group", "rotation": [0, 0, 1.5707963, "ZYX"]}`)).Object()
	assert.Equal(t, "ZYX", o.Rotation.Order)
	vecInDelta(t, mgl32.Vec3{0, 1, 0}, o.Quaternion.Rotate(mgl32.Vec3{1, 0, 0}))

	// quaternion is applied after rotation
	o = b.Build(context.Background(), record(t, `{"type": "Group", "rotation": [1, 0, 0], "quaternion": [0, 0, 0, 1]}`)).Object()
	assert.InDelta(t, 0, o.Rotation.X, 1e-6)
}

func TestMissingGeometryOneDiagnostic(t *testing.T) {
	b, rep := newBuilder(t)
	n := b.Build(context.Background(), record(t, `{"uuid": "mesh", "type": "Mesh", "geometry": "nope", "material": "m1"}`))

	mesh, ok := n.(*Mesh)
	require.True(t, ok)
	assert.Nil(t, mesh.Geometry)
	assert.Equal(t, "nope", mesh.GeometryID)
	assert.NotNil(t, mesh.Material.Single())

	require.Len(t, rep.errs, 1)
	var dre *diag.DanglingReferenceError
	require.ErrorAs(t, rep.errs[0], &dre)
	assert.Equal(t, "geometry", dre.Table)
	assert.Equal(t, "mesh", dre.From)
}

func TestMaterialLists(t *testing.T) {
	b, rep := newBuilder(t)
	root := b.Build(context.Background(), record(t, `{"type": "Group", "children": [
		{"type": "Mesh", "geometry": "g1", "material": ["m1", "gone", "m2", "alsogone"]},
		{"type": "Mesh", "geometry": "g1", "material": "multi"}
	]}`)).Object()

	list := root.Children[0].(*Mesh)
	assert.True(t, list.Material.Multi)
	require.Len(t, list.Material.Materials, 4)
	assert.Equal(t, "m1", list.Material.At(0).UUID)
	assert.Nil(t, list.Material.At(1))
	assert.Equal(t, "m2", list.Material.At(2).UUID)
	assert.Len(t, rep.errs, 2)

	multi := root.Children[1].(*Mesh)
	assert.True(t, multi.Material.Multi)
	assert.Equal(t, "b", multi.Material.At(1).UUID)
}

func TestLODLevels(t *testing.T) {
	b, rep := newBuilder(t)
	n := b.Build(context.Background(), record(t, `{
		"uuid": "lod", "type": "LOD",
		"levels": [
			{"object": "far", "distance": 100},
			{"object": "ghost", "distance": 50},
			{"object": "near", "distance": 0},
			{"object": "lod", "distance": 10}
		],
		"children": [
			{"uuid": "near", "type": "Mesh", "geometry": "g1"},
			{"type": "Group", "children": [{"uuid": "far", "type": "Mesh", "geometry": "g1"}]}
		]
	}`))

	lod, ok := n.(*LOD)
	require.True(t, ok)
	require.Len(t, lod.Levels, 2)
	assert.Equal(t, "near", lod.Levels[0].Object.Object().UUID)
	assert.Equal(t, "far", lod.Levels[1].Object.Object().UUID)
	assert.Equal(t, float32(100), lod.Levels[1].Distance)
	assert.Equal(t, StateFinalized, lod.State)

	assert.Equal(t, "near", lod.LevelFor(20).Object().UUID)
	assert.Equal(t, "far", lod.LevelFor(150).Object().UUID)

	// the far level stays inside its group
	assert.Len(t, lod.Children, 2)
	assert.Empty(t, rep.errs)
}

func TestUnknownTypeKeepsChildren(t *testing.T) {
	b, rep := newBuilder(t)
	n := b.Build(context.Background(), record(t, `{"uuid": "x", "type": "Teleporter", "name": "tp", "children": [{"type": "Group"}]}`))

	o, ok := n.(*Object3D)
	require.True(t, ok)
	assert.Equal(t, "tp", o.Name)
	assert.Len(t, o.Children, 1)

	require.Len(t, rep.errs, 1)
	var ute *diag.UnknownTypeError
	require.ErrorAs(t, rep.errs[0], &ute)
	assert.Equal(t, "Teleporter", ute.Type)
}

func TestDeferredBlocks(t *testing.T) {
	b, _ := newBuilder(t)
	root := b.Build(context.Background(), record(t, `{"type": "Scene", "children": [
		{"type": "Group"},
		{"uuid": "txt", "type": "Mesh", "material": "m1", "userData": {"subType": "block", "textParams": {"text": "hi"}}}
	]}`))

	assert.Len(t, root.Object().Children, 1)
	require.Len(t, b.Deferred, 1)
	assert.Same(t, root, b.Deferred[0].Parent)
	assert.Equal(t, "txt", b.Deferred[0].Record.UUID)
}

func TestSkinnedPromotion(t *testing.T) {
	b, _ := newBuilder(t)
	n := b.Build(context.Background(), record(t, `{"type": "Mesh", "geometry": "skin"}`))

	sm, ok := n.(*SkinnedMesh)
	require.True(t, ok)
	require.Len(t, sm.Skeleton.Bones, 2)
	assert.Equal(t, "hip", sm.Skeleton.Bones[0].Name)
	assert.Same(t, sm.Skeleton.Bones[0], sm.Skeleton.Bones[1].Parent)
	assert.Equal(t, "SkinnedMesh", sm.Type)
}

func TestVariantParameters(t *testing.T) {
	b, rep := newBuilder(t)
	root := b.Build(context.Background(), record(t, `{
		"type": "Scene", "background": 255,
		"fog": {"type": "FogExp2", "color": 16777215, "density": 0.1},
		"children": [
			{"type": "PerspectiveCamera", "fov": 75, "zoom": 2},
			{"type": "OrthographicCamera", "left": -10, "right": 10},
			{"type": "PointLight", "color": 65280, "intensity": 2, "distance": 5,
				"castShadow": true, "shadow": {"bias": 0.01, "mapSize": [1024, 1024], "camera": {"type": "PerspectiveCamera", "far": 50}}},
			{"type": "SpotLight"},
			{"type": "HemisphereLight", "groundColor": 0},
			{"type": "Line", "mode": 1, "geometry": "g1"},
			{"type": "PointCloud", "geometry": "g1"},
			{"type": "Sprite", "material": "m1"},
			{"uuid": "amb", "type": "AmbientLight", "shadow": {"bias": 1}}
		]
	}`))

	s := root.(*Scene)
	require.NotNil(t, s.Background)
	assert.Equal(t, int64(255), s.Background.Hex())
	fog, ok := s.Fog.(*ExpFog)
	require.True(t, ok)
	assert.Equal(t, float32(0.1), fog.Density)

	c := s.Children
	cam := c[0].(*PerspectiveCamera)
	assert.Equal(t, float32(75), cam.Fov)
	assert.Equal(t, float32(2), cam.Zoom)
	assert.Equal(t, float32(2000), cam.Far)

	ortho := c[1].(*OrthographicCamera)
	assert.Equal(t, float32(-10), ortho.Left)
	assert.Equal(t, float32(1), ortho.Top)

	pl := c[2].(*PointLight)
	assert.Equal(t, int64(0x00ff00), pl.Color.Hex())
	assert.Equal(t, float32(2), pl.Intensity)
	assert.Equal(t, float32(1), pl.Decay)
	assert.True(t, pl.CastShadow)
	assert.Equal(t, float32(0.01), pl.Shadow.Bias)
	assert.Equal(t, mgl32.Vec2{1024, 1024}, pl.Shadow.MapSize)
	assert.Equal(t, float32(50), pl.Shadow.Camera.(*PerspectiveCamera).Far)

	spot := c[3].(*SpotLight)
	assert.InDelta(t, math.Pi/3, spot.Angle, 1e-6)
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, spot.Position)

	hemi := c[4].(*HemisphereLight)
	assert.Equal(t, int64(0), hemi.GroundColor.Hex())

	_, ok = c[5].(*LineSegments)
	assert.True(t, ok, "line mode 1 builds line segments")
	_, ok = c[6].(*Points)
	assert.True(t, ok)
	assert.NotNil(t, c[7].(*Sprite).Material.Single())

	require.Len(t, rep.errs, 1)
	var ire *diag.InvalidRecordError
	require.ErrorAs(t, rep.errs[0], &ire)
	assert.Equal(t, "amb", ire.ID)
}

func TestRoundTrip(t *testing.T) {
	b, _ := newBuilder(t)
	src := `{
		"uuid": "root", "type": "Group", "name": "top",
		"position": [1, 2, 3], "rotation": [0.1, 0.2, 0.3, "XYZ"], "scale": [1, 2, 1],
		"children": [
			{"uuid": "m", "type": "Mesh", "geometry": "g1", "material": ["m1", "m2"], "visible": false, "renderOrder": 4},
			{"uuid": "l", "type": "LOD", "levels": [{"object": "lm", "distance": 5}], "children": [{"uuid": "lm", "type": "Mesh", "geometry": "g1", "material": "m1"}]}
		]
	}`
	first := b.Build(context.Background(), record(t, src))

	data, err := json.Marshal(ToRecord(first))
	require.NoError(t, err)
	second := b.Build(context.Background(), record(t, string(data)))

	o1, o2 := first.Object(), second.Object()
	assert.Equal(t, o1.UUID, o2.UUID)
	assert.Equal(t, o1.Name, o2.Name)
	vecInDelta(t, o1.Position, o2.Position)
	vecInDelta(t, o1.Scale, o2.Scale)
	assert.True(t, o1.Quaternion.ApproxEqualThreshold(o2.Quaternion, 1e-5))

	m1, m2 := first.Object().Children[0].(*Mesh), second.Object().Children[0].(*Mesh)
	assert.Equal(t, m1.GeometryID, m2.GeometryID)
	assert.Equal(t, m1.Material.Ref, m2.Material.Ref)
	assert.False(t, m2.Visible)
	assert.Equal(t, 4, m2.RenderOrder)

	lod := second.Object().Children[1].(*LOD)
	require.Len(t, lod.Levels, 1)
	assert.Equal(t, "lm", lod.Levels[0].Object.Object().UUID)
}

func TestAudioUserData(t *testing.T) {
	m := media.NewLoadingManager(nil)
	r := &media.Resolver{Manager: m, BasePath: "snd/", Fetcher: media.FetcherFunc(func(ctx context.Context, url string, kind media.Kind) (*media.Payload, error) {
		return &media.Payload{MIME: "audio/mpeg"}, nil
	})}
	b, _ := newBuilder(t)
	b.Media = r

	b.Build(context.Background(), record(t, `{"uuid": "spk", "type": "Object3D", "userData": {"type": "audio", "url_new": "beep.mp3"}}`))
	m.Seal()
	<-m.Done()

	a, ok := b.Audio["spk"]
	require.True(t, ok)
	assert.Equal(t, "snd/beep.mp3", a.URL)
	assert.Equal(t, "spk", a.Active().ClassName())
	assert.True(t, a.Active().Available())
	assert.Equal(t, 1, m.Requested())
}

func TestBoneCycleStaysRoot(t *testing.T) {
	var grecs []*geometry.Record
	require.NoError(t, json.Unmarshal([]byte(`[{"uuid": "loop", "type": "Geometry", "data": {
		"vertices": [0,0,0, 1,0,0, 0,1,0], "faces": [0, 0,1,2],
		"bones": [{"parent": 1, "name": "a"}, {"parent": 0, "name": "b"}, {"parent": 0, "name": "c"}, {"parent": -1, "name": "d"}, {"parent": 3, "name": "e"}]
	}}]`), &grecs))
	rep := &captured{}
	b := &Builder{Geometries: geometry.BuildTable(grecs, nil, nil), Reporter: rep}

	sm, ok := b.Build(context.Background(), record(t, `{"type": "Mesh", "geometry": "loop"}`)).(*SkinnedMesh)
	require.True(t, ok)
	bones := sm.Skeleton.Bones
	require.Len(t, bones, 5)

	for _, i := range []int{0, 1, 2} {
		assert.Nil(t, bones[i].Parent, "bone %d", i)
	}
	assert.Same(t, bones[3], bones[4].Parent)

	require.Len(t, rep.errs, 3)
	for _, err := range rep.errs {
		assert.IsType(t, &diag.InvalidRecordError{}, err)
	}
	assert.Len(t, bones[3].Children, 1)
}

func TestBrokenFieldsKeepSiblings(t *testing.T) {
	b, rep := newBuilder(t)
	root := b.Build(context.Background(), record(t, `{"uuid": "root", "type": "Group", "children": [
		{"uuid": "a", "type": "Mesh", "geometry": "g1", "material": "m1", "rotation": [0, 0], "position": [0, 1, 0]},
		{"uuid": "b", "type": "Group", "renderOrder": 1.5, "position": [1, 2, 3]},
		{"uuid": "c", "type": "Group", "matrix": ["1",0,0,0, 0,1,0,0, 0,0,1,0, 0,0,0,1], "position": [4, 0, 0]},
		7,
		{"uuid": "d", "type": "Group", "name": 5}
	]}`))
	require.NotNil(t, root)

	var ids []string
	for _, c := range root.Object().Children {
		ids = append(ids, c.Object().UUID)
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids)

	a := root.Object().FindByUUID("a").(*Mesh)
	assert.NotNil(t, a.Geometry)
	vecInDelta(t, mgl32.Vec3{0, 1, 0}, a.Position)
	vecInDelta(t, mgl32.Vec3{1, 2, 3}, root.Object().FindByUUID("b").Object().Position)
	vecInDelta(t, mgl32.Vec3{4, 0, 0}, root.Object().FindByUUID("c").Object().Position)
	assert.Equal(t, "", root.Object().FindByUUID("d").Object().Name)

	// rotation, renderOrder, matrix, the non object child and name
	require.Len(t, rep.errs, 5)
	for _, err := range rep.errs {
		assert.IsType(t, &diag.InvalidRecordError{}, err)
	}
}
