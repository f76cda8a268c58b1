package utils

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// result in radians
func QuatToEuler(q mgl32.Quat) (e mgl32.Vec3) {
	sinr_cosp := float64(2 * (q.W*q.X() + q.Y()*q.Z()))
	cosr_cosp := float64(1 - 2*(q.X()*q.X()+q.Y()*q.Y()))

	e[0] = float32(math.Atan2(sinr_cosp, cosr_cosp))

	sinp := float64(2 * (q.W*q.Y() - q.Z()*q.X()))
	if math.Abs(sinp) >= 1 {
		e[1] = math.Pi / 2
		if sinp < 0 {
			e[1] *= -1
		}
	} else {
		e[1] = float32(math.Asin(sinp))
	}

	siny_cosp := float64(2 * (q.W*q.Z() + q.X()*q.Y()))
	cosy_cosp := float64(1 - 2*(q.Y()*q.Y()+q.Z()*q.Z()))
	e[2] = float32(math.Atan2(siny_cosp, cosy_cosp))

	return e
}

func DegreeToRadiansV3(v mgl32.Vec3) mgl32.Vec3 {
	return v.Mul(math.Pi / 180.0)
}

func RadiansToDegreeV3(v mgl32.Vec3) mgl32.Vec3 {
	return v.Mul(180.0 / math.Pi)
}

// input in radians, X applied first then Y then Z, the inverse of QuatToEuler
func EulerToQuat(v mgl32.Vec3) mgl32.Quat {
	qx := mgl32.QuatRotate(v[0], mgl32.Vec3{1, 0, 0})
	qy := mgl32.QuatRotate(v[1], mgl32.Vec3{0, 1, 0})
	qz := mgl32.QuatRotate(v[2], mgl32.Vec3{0, 0, 1})
	return qz.Mul(qy).Mul(qx).Normalize()
}

// DecomposeMat4 splits an affine matrix into translation, rotation and scale.
// Negative determinant is folded into the x scale.
func DecomposeMat4(m mgl32.Mat4) (t mgl32.Vec3, r mgl32.Quat, s mgl32.Vec3) {
	t = m.Col(3).Vec3()
	cx, cy, cz := m.Col(0).Vec3(), m.Col(1).Vec3(), m.Col(2).Vec3()
	s = mgl32.Vec3{cx.Len(), cy.Len(), cz.Len()}
	if m.Mat3().Det() < 0 {
		s[0] = -s[0]
	}
	for i, c := range []*mgl32.Vec3{&cx, &cy, &cz} {
		if s[i] != 0 {
			*c = c.Mul(1 / s[i])
		}
	}
	r = mgl32.Mat4ToQuat(mgl32.Mat4{
		cx[0], cx[1], cx[2], 0,
		cy[0], cy[1], cy[2], 0,
		cz[0], cz[1], cz[2], 0,
		0, 0, 0, 1,
	}).Normalize()
	return t, r, s
}

func ComposeTRS(t mgl32.Vec3, r mgl32.Quat, s mgl32.Vec3) mgl32.Mat4 {
	return mgl32.Translate3D(t[0], t[1], t[2]).Mul4(r.Normalize().Mat4()).Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
}
