package utils

import (
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

var eulerOrders = map[string]mgl32.RotationOrder{
	"XYZ": mgl32.XYZ,
	"YXZ": mgl32.YXZ,
	"ZXY": mgl32.ZXY,
	"ZYX": mgl32.ZYX,
	"YZX": mgl32.YZX,
	"XZY": mgl32.XZY,
}

func ValidEulerOrder(order string) bool {
	_, ok := eulerOrders[strings.ToUpper(order)]
	return ok
}

// EulerToQuat converts intrinsic euler angles (radians) applied in the given axis order.
// Unknown orders are treated as XYZ.
func EulerToQuat(x, y, z float32, order string) mgl32.Quat {
	order = strings.ToUpper(order)
	ro, ok := eulerOrders[order]
	if !ok {
		order, ro = "XYZ", mgl32.XYZ
	}

	angles := map[byte]float32{'X': x, 'Y': y, 'Z': z}
	return mgl32.AnglesToQuat(angles[order[0]], angles[order[1]], angles[order[2]], ro).Normalize()
}

// QuatToEuler is the inverse of EulerToQuat for the given order, result in radians.
func QuatToEuler(q mgl32.Quat, order string) (e mgl32.Vec3) {
	m := q.Normalize().Mat4()
	m11, m12, m13 := m.At(0, 0), m.At(0, 1), m.At(0, 2)
	m21, m22, m23 := m.At(1, 0), m.At(1, 1), m.At(1, 2)
	m31, m32, m33 := m.At(2, 0), m.At(2, 1), m.At(2, 2)

	const limit = 0.9999999

	switch strings.ToUpper(order) {
	case "YXZ":
		e[0] = asin(-clamp(m23))
		if abs(m23) < limit {
			e[1] = atan2(m13, m33)
			e[2] = atan2(m21, m22)
		} else {
			e[1] = atan2(-m31, m11)
		}
	case "ZXY":
		e[0] = asin(clamp(m32))
		if abs(m32) < limit {
			e[1] = atan2(-m31, m33)
			e[2] = atan2(-m12, m22)
		} else {
			e[2] = atan2(m21, m11)
		}
	case "ZYX":
		e[1] = asin(-clamp(m31))
		if abs(m31) < limit {
			e[0] = atan2(m32, m33)
			e[2] = atan2(m21, m11)
		} else {
			e[2] = atan2(-m12, m22)
		}
	case "YZX":
		e[2] = asin(clamp(m21))
		if abs(m21) < limit {
			e[0] = atan2(-m23, m22)
			e[1] = atan2(-m31, m11)
		} else {
			e[1] = atan2(m13, m33)
		}
	case "XZY":
		e[2] = asin(-clamp(m12))
		if abs(m12) < limit {
			e[0] = atan2(m32, m22)
			e[1] = atan2(m13, m11)
		} else {
			e[0] = atan2(-m23, m33)
		}
	default:
		e[1] = asin(clamp(m13))
		if abs(m13) < limit {
			e[0] = atan2(-m23, m33)
			e[2] = atan2(-m12, m11)
		} else {
			e[0] = atan2(m32, m22)
		}
	}
	return e
}

// ComposeMat4 builds T * R * S.
func ComposeMat4(pos mgl32.Vec3, rot mgl32.Quat, scale mgl32.Vec3) mgl32.Mat4 {
	return mgl32.Translate3D(pos[0], pos[1], pos[2]).
		Mul4(rot.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(scale[0], scale[1], scale[2]))
}

// DecomposeMat4 splits an affine matrix into translation, rotation and scale.
// A negative determinant is attributed to the x axis.
func DecomposeMat4(m mgl32.Mat4) (pos mgl32.Vec3, rot mgl32.Quat, scale mgl32.Vec3) {
	sx := m.Col(0).Vec3().Len()
	sy := m.Col(1).Vec3().Len()
	sz := m.Col(2).Vec3().Len()
	if m.Det() < 0 {
		sx = -sx
	}

	pos = m.Col(3).Vec3()

	r := mgl32.Ident4()
	for col, s := range [3]float32{sx, sy, sz} {
		c := m.Col(col).Vec3()
		if s != 0 {
			c = c.Mul(1 / s)
		}
		r.SetCol(col, c.Vec4(0))
	}

	rot = mgl32.Mat4ToQuat(r).Normalize()
	scale = mgl32.Vec3{sx, sy, sz}
	return
}

func Mat4FromSlice(a []float32) (m mgl32.Mat4, ok bool) {
	if len(a) < 16 {
		return m, false
	}
	copy(m[:], a[:16])
	return m, true
}

func Vec3FromSlice(a []float32, def mgl32.Vec3) mgl32.Vec3 {
	for i := 0; i < 3 && i < len(a); i++ {
		def[i] = a[i]
	}
	return def
}

func Vec2FromSlice(a []float32, def mgl32.Vec2) mgl32.Vec2 {
	for i := 0; i < 2 && i < len(a); i++ {
		def[i] = a[i]
	}
	return def
}

// QuatFromSlice reads [x, y, z, w].
func QuatFromSlice(a []float32) (mgl32.Quat, bool) {
	if len(a) < 4 {
		return mgl32.QuatIdent(), false
	}
	return mgl32.Quat{W: a[3], V: mgl32.Vec3{a[0], a[1], a[2]}}, true
}

func clamp(v float32) float32 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

func abs(v float32) float32 {
	return float32(math.Abs(float64(v)))
}

func asin(v float32) float32 {
	return float32(math.Asin(float64(v)))
}

func atan2(y, x float32) float32 {
	return float32(math.Atan2(float64(y), float64(x)))
}
