package accessor

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"

	"github.com/mogaika/scenedoc/codec"
)

func layout(c gltf.ComponentType, shape gltf.AccessorType, forVertex bool) codec.Layout {
	return codec.Layout{Component: c, Shape: shape, ForVertex: forVertex}
}

// EncodeInts writes a generic SCALAR uint accessor, the counterpart of Ints.
func (s *Store) EncodeInts(values []int, forVertex bool) (int, error) {
	flat := make([]float64, len(values))
	for i, v := range values {
		flat[i] = float64(v)
	}
	return s.Encode(flat, layout(gltf.ComponentUint, gltf.AccessorScalar, forVertex), gltf.TargetNone)
}

// EncodeIndices writes a triangle or line index list as unsigned ints.
func (s *Store) EncodeIndices(values []int) (int, error) {
	flat := make([]float64, len(values))
	for i, v := range values {
		flat[i] = float64(v)
	}
	return s.Encode(flat, layout(gltf.ComponentUint, gltf.AccessorScalar, false), gltf.TargetElementArrayBuffer)
}

func (s *Store) EncodeFloats(values []float32, forVertex bool) (int, error) {
	flat := make([]float64, len(values))
	for i, v := range values {
		flat[i] = float64(v)
	}
	return s.Encode(flat, layout(gltf.ComponentFloat, gltf.AccessorScalar, forVertex), gltf.TargetNone)
}

func (s *Store) EncodeVec2(values []mgl32.Vec2, forVertex bool) (int, error) {
	flat := make([]float64, 0, len(values)*2)
	for _, v := range values {
		flat = append(flat, float64(v[0]), float64(v[1]))
	}
	return s.Encode(flat, layout(gltf.ComponentFloat, gltf.AccessorVec2, forVertex), gltf.TargetNone)
}

func (s *Store) EncodeVec3(values []mgl32.Vec3, forVertex bool) (int, error) {
	flat := make([]float64, 0, len(values)*3)
	for _, v := range values {
		flat = append(flat, float64(v[0]), float64(v[1]), float64(v[2]))
	}
	return s.Encode(flat, layout(gltf.ComponentFloat, gltf.AccessorVec3, forVertex), gltf.TargetNone)
}

func (s *Store) encodeVec4(values []mgl32.Vec4, l codec.Layout) (int, error) {
	flat := make([]float64, 0, len(values)*4)
	for _, v := range values {
		flat = append(flat, float64(v[0]), float64(v[1]), float64(v[2]), float64(v[3]))
	}
	return s.Encode(flat, l, gltf.TargetNone)
}

// EncodeVec4 writes plain VEC4 floats (tangents).
func (s *Store) EncodeVec4(values []mgl32.Vec4, forVertex bool) (int, error) {
	return s.encodeVec4(values, layout(gltf.ComponentFloat, gltf.AccessorVec4, forVertex))
}

func (s *Store) EncodeColors(values []mgl32.Vec4, forVertex bool) (int, error) {
	return s.encodeVec4(values, layout(gltf.ComponentFloat, gltf.AccessorVec4, forVertex))
}

func (s *Store) EncodeWeights(values []mgl32.Vec4, forVertex bool) (int, error) {
	return s.encodeVec4(values, layout(gltf.ComponentFloat, gltf.AccessorVec4, forVertex))
}

// EncodeJoints writes joint indices as VEC4 UNSIGNED_SHORT.
func (s *Store) EncodeJoints(values [][4]int, forVertex bool) (int, error) {
	flat := make([]float64, 0, len(values)*4)
	for _, v := range values {
		flat = append(flat, float64(v[0]), float64(v[1]), float64(v[2]), float64(v[3]))
	}
	return s.Encode(flat, layout(gltf.ComponentUshort, gltf.AccessorVec4, forVertex), gltf.TargetNone)
}

func (s *Store) EncodeQuats(values []mgl32.Quat, forVertex bool) (int, error) {
	flat := make([]float64, 0, len(values)*4)
	for _, q := range values {
		flat = append(flat, float64(q.V[0]), float64(q.V[1]), float64(q.V[2]), float64(q.W))
	}
	return s.Encode(flat, layout(gltf.ComponentFloat, gltf.AccessorVec4, forVertex), gltf.TargetNone)
}

// EncodeXforms writes MAT4 columns X, Y, Z with w=0 and origin with w=1.
func (s *Store) EncodeXforms(values []mgl32.Mat4, forVertex bool) (int, error) {
	flat := make([]float64, 0, len(values)*16)
	for _, m := range values {
		for col := 0; col < 4; col++ {
			for row := 0; row < 3; row++ {
				flat = append(flat, float64(m.At(row, col)))
			}
			if col == 3 {
				flat = append(flat, 1)
			} else {
				flat = append(flat, 0)
			}
		}
	}
	return s.Encode(flat, layout(gltf.ComponentFloat, gltf.AccessorMat4, forVertex), gltf.TargetNone)
}
