package geometry

import (
	"math"

	"github.com/pkg/errors"

	"github.com/mogaika/scene_browser/utils"
)

const tau = 2 * math.Pi

type PlaneParams struct {
	Width          float32 `json:"width"`
	Height         float32 `json:"height"`
	WidthSegments  float32 `json:"widthSegments"`
	HeightSegments float32 `json:"heightSegments"`
}

type BoxParams struct {
	Width          float32 `json:"width"`
	Height         float32 `json:"height"`
	Depth          float32 `json:"depth"`
	WidthSegments  float32 `json:"widthSegments"`
	HeightSegments float32 `json:"heightSegments"`
	DepthSegments  float32 `json:"depthSegments"`
}

type CircleParams struct {
	Radius      float32 `json:"radius"`
	Segments    float32 `json:"segments"`
	ThetaStart  float32 `json:"thetaStart"`
	ThetaLength float32 `json:"thetaLength"`
}

type CylinderParams struct {
	RadiusTop      float32 `json:"radiusTop"`
	RadiusBottom   float32 `json:"radiusBottom"`
	Height         float32 `json:"height"`
	RadialSegments float32 `json:"radialSegments"`
	HeightSegments float32 `json:"heightSegments"`
	OpenEnded      bool    `json:"openEnded"`
	ThetaStart     float32 `json:"thetaStart"`
	ThetaLength    float32 `json:"thetaLength"`
}

type ConeParams struct {
	Radius         float32 `json:"radius"`
	Height         float32 `json:"height"`
	RadialSegments float32 `json:"radialSegments"`
	HeightSegments float32 `json:"heightSegments"`
	OpenEnded      bool    `json:"openEnded"`
	ThetaStart     float32 `json:"thetaStart"`
	ThetaLength    float32 `json:"thetaLength"`
}

type SphereParams struct {
	Radius         float32 `json:"radius"`
	WidthSegments  float32 `json:"widthSegments"`
	HeightSegments float32 `json:"heightSegments"`
	PhiStart       float32 `json:"phiStart"`
	PhiLength      float32 `json:"phiLength"`
	ThetaStart     float32 `json:"thetaStart"`
	ThetaLength    float32 `json:"thetaLength"`
}

// PolyhedronParams covers dodeca-, icosa-, octa- and tetrahedron.
type PolyhedronParams struct {
	Radius float32 `json:"radius"`
	Detail float32 `json:"detail"`
}

type RingParams struct {
	InnerRadius   float32 `json:"innerRadius"`
	OuterRadius   float32 `json:"outerRadius"`
	ThetaSegments float32 `json:"thetaSegments"`
	PhiSegments   float32 `json:"phiSegments"`
	ThetaStart    float32 `json:"thetaStart"`
	ThetaLength   float32 `json:"thetaLength"`
}

type TorusParams struct {
	Radius          float32 `json:"radius"`
	Tube            float32 `json:"tube"`
	RadialSegments  float32 `json:"radialSegments"`
	TubularSegments float32 `json:"tubularSegments"`
	Arc             float32 `json:"arc"`
}

type TorusKnotParams struct {
	Radius          float32 `json:"radius"`
	Tube            float32 `json:"tube"`
	TubularSegments float32 `json:"tubularSegments"`
	RadialSegments  float32 `json:"radialSegments"`
	P               float32 `json:"p"`
	Q               float32 `json:"q"`
}

type Point2 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

type LatheParams struct {
	Points    []Point2 `json:"points"`
	Segments  float32  `json:"segments"`
	PhiStart  float32  `json:"phiStart"`
	PhiLength float32  `json:"phiLength"`
}

// segments floors a count and enforces a lower bound
func segments(v float32, min float32) float32 {
	v = float32(math.Floor(float64(v)))
	if v < min {
		return min
	}
	return v
}

func (p *PlaneParams) normalize() {
	p.WidthSegments = segments(p.WidthSegments, 1)
	p.HeightSegments = segments(p.HeightSegments, 1)
}

func (p *BoxParams) normalize() {
	p.WidthSegments = segments(p.WidthSegments, 1)
	p.HeightSegments = segments(p.HeightSegments, 1)
	p.DepthSegments = segments(p.DepthSegments, 1)
}

func (p *CircleParams) normalize() {
	p.Segments = segments(p.Segments, 3)
}

func (p *CylinderParams) normalize() {
	p.RadialSegments = segments(p.RadialSegments, 1)
	p.HeightSegments = segments(p.HeightSegments, 1)
}

func (p *ConeParams) normalize() {
	p.RadialSegments = segments(p.RadialSegments, 1)
	p.HeightSegments = segments(p.HeightSegments, 1)
}

func (p *SphereParams) normalize() {
	p.WidthSegments = segments(p.WidthSegments, 3)
	p.HeightSegments = segments(p.HeightSegments, 2)
}

func (p *PolyhedronParams) normalize() {
	p.Detail = segments(p.Detail, 0)
}

func (p *RingParams) normalize() {
	p.ThetaSegments = segments(p.ThetaSegments, 3)
	p.PhiSegments = segments(p.PhiSegments, 1)
}

func (p *TorusParams) normalize() {
	p.RadialSegments = segments(p.RadialSegments, 1)
	p.TubularSegments = segments(p.TubularSegments, 1)
}

func (p *TorusKnotParams) normalize() {
	p.RadialSegments = segments(p.RadialSegments, 1)
	p.TubularSegments = segments(p.TubularSegments, 1)
}

func (p *LatheParams) normalize() {
	p.Segments = segments(p.Segments, 1)
	if p.PhiLength < 0 {
		p.PhiLength = 0
	} else if p.PhiLength > tau {
		p.PhiLength = tau
	}
}

type generator interface {
	generate() *Buffer
}

// primitive builds a handler that overlays the record fields on a copy of defaults.
func primitive[P any, PT interface {
	*P
	normalize()
}](kind Kind, defaults P) Handler {
	return func(rec *Record) (*Geometry, error) {
		p := defaults
		// a broken parameter keeps its default
		errs, err := utils.UnmarshalFields(rec.Raw, &p)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to decode %s parameters", kind)
		}
		rec.fieldErrs = append(rec.fieldErrs, errs...)
		PT(&p).normalize()

		g := &Geometry{Kind: kind, Params: &p}
		if gen, ok := interface{}(&p).(generator); ok {
			g.Data = gen.generate()
			g.BoundingBox = computeBoundingBox(g.Data.Positions)
		}
		return g, nil
	}
}

func setHandlers(h Handler, tags ...string) {
	for _, tag := range tags {
		SetHandler(tag, h)
	}
}

func init() {
	setHandlers(primitive(KindPlane, PlaneParams{
		Width: 1, Height: 1, WidthSegments: 1, HeightSegments: 1,
	}), "PlaneGeometry", "PlaneBufferGeometry")

	setHandlers(primitive(KindBox, BoxParams{
		Width: 1, Height: 1, Depth: 1, WidthSegments: 1, HeightSegments: 1, DepthSegments: 1,
	}), "BoxGeometry", "BoxBufferGeometry", "CubeGeometry")

	setHandlers(primitive(KindCircle, CircleParams{
		Radius: 1, Segments: 8, ThetaLength: tau,
	}), "CircleGeometry", "CircleBufferGeometry")

	setHandlers(primitive(KindCylinder, CylinderParams{
		RadiusTop: 1, RadiusBottom: 1, Height: 1, RadialSegments: 8, HeightSegments: 1, ThetaLength: tau,
	}), "CylinderGeometry", "CylinderBufferGeometry")

	setHandlers(primitive(KindCone, ConeParams{
		Radius: 1, Height: 1, RadialSegments: 8, HeightSegments: 1, ThetaLength: tau,
	}), "ConeGeometry", "ConeBufferGeometry")

	setHandlers(primitive(KindSphere, SphereParams{
		Radius: 1, WidthSegments: 8, HeightSegments: 6, PhiLength: tau, ThetaLength: math.Pi,
	}), "SphereGeometry", "SphereBufferGeometry")

	setHandlers(primitive(KindDodecahedron, PolyhedronParams{Radius: 1}), "DodecahedronGeometry")
	setHandlers(primitive(KindIcosahedron, PolyhedronParams{Radius: 1}), "IcosahedronGeometry")
	setHandlers(primitive(KindOctahedron, PolyhedronParams{Radius: 1}), "OctahedronGeometry")
	setHandlers(primitive(KindTetrahedron, PolyhedronParams{Radius: 1}), "TetrahedronGeometry")

	setHandlers(primitive(KindRing, RingParams{
		InnerRadius: 0.5, OuterRadius: 1, ThetaSegments: 8, PhiSegments: 1, ThetaLength: tau,
	}), "RingGeometry", "RingBufferGeometry")

	setHandlers(primitive(KindTorus, TorusParams{
		Radius: 1, Tube: 0.4, RadialSegments: 8, TubularSegments: 6, Arc: tau,
	}), "TorusGeometry", "TorusBufferGeometry")

	setHandlers(primitive(KindTorusKnot, TorusKnotParams{
		Radius: 1, Tube: 0.4, TubularSegments: 64, RadialSegments: 8, P: 2, Q: 3,
	}), "TorusKnotGeometry", "TorusKnotBufferGeometry")

	setHandlers(primitive(KindLathe, LatheParams{
		Segments: 12, PhiLength: tau,
	}), "LatheGeometry", "LatheBufferGeometry")

	SetHandler("BufferGeometry", decodeBufferGeometry)
	SetHandler("Geometry", decodeLegacyGeometry)
}
