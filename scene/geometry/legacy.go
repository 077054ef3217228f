package geometry

import (
	"encoding/json"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/scene_browser/utils"
)

// face type bits of the old json model format
const (
	faceQuad             = 1 << 0
	faceMaterial         = 1 << 1
	faceVertexUv         = 1 << 3
	faceNormal           = 1 << 4
	faceVertexNormal     = 1 << 5
	faceColor            = 1 << 6
	faceVertexColor      = 1 << 7
	defaultInfluences    = 2
	legacyComponentCount = 3
)

type Face struct {
	A, B, C       int
	MaterialIndex int
	Normal        mgl32.Vec3
	VertexNormals []mgl32.Vec3
	Color         utils.ColorFloat
	VertexColors  []utils.ColorFloat
	// per uv layer, three corners
	VertexUVs [][]mgl32.Vec2
}

type Legacy struct {
	Vertices []mgl32.Vec3
	Faces    []Face
}

type boneRecord struct {
	Parent int       `json:"parent"`
	Name   string    `json:"name"`
	Pos    []float32 `json:"pos"`
	Rotq   []float32 `json:"rotq"`
	Scl    []float32 `json:"scl"`
}

type legacyData struct {
	Scale               float32       `json:"scale"`
	Vertices            []float32     `json:"vertices"`
	Faces               []int         `json:"faces"`
	Normals             []float32     `json:"normals"`
	Colors              []int64       `json:"colors"`
	UVs                 [][]float32   `json:"uvs"`
	Bones               []*boneRecord `json:"bones"`
	SkinIndices         []float32     `json:"skinIndices"`
	SkinWeights         []float32     `json:"skinWeights"`
	InfluencesPerVertex int           `json:"influencesPerVertex"`
}

type legacyRecord struct {
	legacyData
	Data *legacyData `json:"data"`
}

// faceReader walks the flat face array
type faceReader struct {
	faces  []int
	offset int
}

func (r *faceReader) next() (int, error) {
	if r.offset >= len(r.faces) {
		return 0, errors.Errorf("Face array truncated at %d", r.offset)
	}
	v := r.faces[r.offset]
	r.offset++
	return v, nil
}

func (r *faceReader) nextN(n int) ([]int, error) {
	out := make([]int, n)
	for i := range out {
		v, err := r.next()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (d *legacyData) normal(i int) (mgl32.Vec3, error) {
	if i < 0 || i*3+2 >= len(d.Normals) {
		return mgl32.Vec3{}, errors.Errorf("Normal index %d out of range", i)
	}
	return mgl32.Vec3{d.Normals[i*3], d.Normals[i*3+1], d.Normals[i*3+2]}, nil
}

func (d *legacyData) color(i int) (utils.ColorFloat, error) {
	if i < 0 || i >= len(d.Colors) {
		return utils.ColorFloat{}, errors.Errorf("Color index %d out of range", i)
	}
	return utils.ColorFromHex(d.Colors[i]), nil
}

func (d *legacyData) uv(layer, i int) (mgl32.Vec2, error) {
	l := d.UVs[layer]
	if i < 0 || i*2+1 >= len(l) {
		return mgl32.Vec2{}, errors.Errorf("UV index %d out of range in layer %d", i, layer)
	}
	return mgl32.Vec2{l[i*2], l[i*2+1]}, nil
}

// corners of the two triangles a quad (a,b,c,d) is split into
var quadSplit = [2][3]int{{0, 1, 3}, {1, 2, 3}}

func (d *legacyData) parseFaces() ([]Face, error) {
	uvLayers := 0
	for _, l := range d.UVs {
		if len(l) != 0 {
			uvLayers++
		}
	}

	r := &faceReader{faces: d.Faces}
	var result []Face
	for r.offset < len(r.faces) {
		kind, _ := r.next()

		corners := 3
		if kind&faceQuad != 0 {
			corners = 4
		}

		verts, err := r.nextN(corners)
		if err != nil {
			return nil, err
		}

		materialIndex := 0
		if kind&faceMaterial != 0 {
			if materialIndex, err = r.next(); err != nil {
				return nil, err
			}
		}

		uvs := make([][]mgl32.Vec2, 0, uvLayers)
		if kind&faceVertexUv != 0 {
			for layer := 0; layer < uvLayers; layer++ {
				idx, err := r.nextN(corners)
				if err != nil {
					return nil, err
				}
				luv := make([]mgl32.Vec2, corners)
				for j, ui := range idx {
					if luv[j], err = d.uv(layer, ui); err != nil {
						return nil, err
					}
				}
				uvs = append(uvs, luv)
			}
		}

		var faceN mgl32.Vec3
		if kind&faceNormal != 0 {
			ni, err := r.next()
			if err != nil {
				return nil, err
			}
			if faceN, err = d.normal(ni); err != nil {
				return nil, err
			}
		}

		var vertexN []mgl32.Vec3
		if kind&faceVertexNormal != 0 {
			idx, err := r.nextN(corners)
			if err != nil {
				return nil, err
			}
			vertexN = make([]mgl32.Vec3, corners)
			for j, ni := range idx {
				if vertexN[j], err = d.normal(ni); err != nil {
					return nil, err
				}
			}
		}

		var faceC utils.ColorFloat
		if kind&faceColor != 0 {
			ci, err := r.next()
			if err != nil {
				return nil, err
			}
			if faceC, err = d.color(ci); err != nil {
				return nil, err
			}
		}

		var vertexC []utils.ColorFloat
		if kind&faceVertexColor != 0 {
			idx, err := r.nextN(corners)
			if err != nil {
				return nil, err
			}
			vertexC = make([]utils.ColorFloat, corners)
			for j, ci := range idx {
				if vertexC[j], err = d.color(ci); err != nil {
					return nil, err
				}
			}
		}

		split := [][3]int{{0, 1, 2}}
		if corners == 4 {
			split = quadSplit[:]
		}
		for _, tri := range split {
			f := Face{
				A:             verts[tri[0]],
				B:             verts[tri[1]],
				C:             verts[tri[2]],
				MaterialIndex: materialIndex,
				Normal:        faceN,
				Color:         faceC,
			}
			if vertexN != nil {
				f.VertexNormals = []mgl32.Vec3{vertexN[tri[0]], vertexN[tri[1]], vertexN[tri[2]]}
			}
			if vertexC != nil {
				f.VertexColors = []utils.ColorFloat{vertexC[tri[0]], vertexC[tri[1]], vertexC[tri[2]]}
			}
			for _, luv := range uvs {
				f.VertexUVs = append(f.VertexUVs, []mgl32.Vec2{luv[tri[0]], luv[tri[1]], luv[tri[2]]})
			}
			result = append(result, f)
		}
	}
	return result, nil
}

// flatten expands faces into a non-indexed buffer, one group per material run
func (l *Legacy) flatten() (*Buffer, error) {
	b := &Buffer{}
	for fi, f := range l.Faces {
		for corner, vi := range [3]int{f.A, f.B, f.C} {
			if vi < 0 || vi >= len(l.Vertices) {
				return nil, errors.Errorf("Face %d references vertex %d of %d", fi, vi, len(l.Vertices))
			}
			b.Positions = append(b.Positions, l.Vertices[vi])

			n := f.Normal
			if f.VertexNormals != nil {
				n = f.VertexNormals[corner]
			}
			b.Normals = append(b.Normals, n)

			var uv mgl32.Vec2
			if len(f.VertexUVs) != 0 {
				uv = f.VertexUVs[0][corner]
			}
			b.UVs = append(b.UVs, uv)

			b.Indices = append(b.Indices, uint32(len(b.Indices)))
		}

		if last := len(b.Groups) - 1; last >= 0 && b.Groups[last].MaterialIndex == f.MaterialIndex {
			b.Groups[last].Count += 3
		} else {
			b.Groups = append(b.Groups, Group{Start: fi * 3, Count: 3, MaterialIndex: f.MaterialIndex})
		}
	}
	if len(b.Groups) == 1 {
		b.Groups = nil
	}
	return b, nil
}

func decodeLegacyGeometry(rec *Record) (*Geometry, error) {
	var lr legacyRecord
	if err := json.Unmarshal(rec.Raw, &lr); err != nil {
		return nil, errors.Wrapf(err, "Failed to decode legacy geometry")
	}
	d := &lr.legacyData
	if lr.Data != nil {
		d = lr.Data
	}

	if len(d.Vertices)%legacyComponentCount != 0 {
		return nil, errors.Errorf("Vertex array length %d is not a multiple of 3", len(d.Vertices))
	}

	scale := float32(1)
	if d.Scale != 0 {
		scale = 1 / d.Scale
	}

	leg := &Legacy{Vertices: make([]mgl32.Vec3, len(d.Vertices)/3)}
	for i := range leg.Vertices {
		leg.Vertices[i] = mgl32.Vec3{d.Vertices[i*3], d.Vertices[i*3+1], d.Vertices[i*3+2]}.Mul(scale)
	}

	faces, err := d.parseFaces()
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to parse faces")
	}
	leg.Faces = faces

	g := &Geometry{Kind: KindLegacy, Legacy: leg}
	if g.Data, err = leg.flatten(); err != nil {
		return nil, err
	}
	g.BoundingBox = computeBoundingBox(g.Data.Positions)

	for _, br := range d.Bones {
		if br == nil {
			continue
		}
		rot, ok := utils.QuatFromSlice(br.Rotq)
		if !ok {
			rot = mgl32.QuatIdent()
		}
		g.Bones = append(g.Bones, Bone{
			Parent:   br.Parent,
			Name:     br.Name,
			Position: utils.Vec3FromSlice(br.Pos, mgl32.Vec3{}),
			Rotation: rot,
			Scale:    utils.Vec3FromSlice(br.Scl, mgl32.Vec3{1, 1, 1}),
		})
	}

	g.InfluencesPerVertex = defaultInfluences
	if d.InfluencesPerVertex > 0 {
		g.InfluencesPerVertex = d.InfluencesPerVertex
	}
	g.SkinIndices = d.SkinIndices
	g.SkinWeights = d.SkinWeights

	return g, nil
}
