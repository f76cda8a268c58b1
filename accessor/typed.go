package accessor

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"

	"github.com/mogaika/scenedoc/codec"
	"github.com/mogaika/scenedoc/errs"
)

func (s *Store) decodeGroups(index int, forVertex bool, size int, what string) ([]float64, error) {
	values, err := s.Decode(index, forVertex)
	if err != nil {
		return nil, err
	}
	if len(values)%size != 0 {
		return nil, errs.Malformed("accessor %d: %d values are not %s", index, len(values), what)
	}
	return values, nil
}

func (s *Store) DecodeInts(index int, forVertex bool) ([]int, error) {
	values, err := s.Decode(index, forVertex)
	if err != nil {
		return nil, err
	}
	ret := make([]int, len(values))
	for i, v := range values {
		ret[i] = int(v)
	}
	return ret, nil
}

func (s *Store) DecodeFloats(index int, forVertex bool) ([]float32, error) {
	values, err := s.Decode(index, forVertex)
	if err != nil {
		return nil, err
	}
	ret := make([]float32, len(values))
	for i, v := range values {
		ret[i] = float32(v)
	}
	return ret, nil
}

func (s *Store) DecodeVec2(index int, forVertex bool) ([]mgl32.Vec2, error) {
	values, err := s.decodeGroups(index, forVertex, 2, "vec2")
	if err != nil {
		return nil, err
	}
	ret := make([]mgl32.Vec2, len(values)/2)
	for i := range ret {
		ret[i] = mgl32.Vec2{float32(values[i*2]), float32(values[i*2+1])}
	}
	return ret, nil
}

func (s *Store) DecodeVec3(index int, forVertex bool) ([]mgl32.Vec3, error) {
	values, err := s.decodeGroups(index, forVertex, 3, "vec3")
	if err != nil {
		return nil, err
	}
	ret := make([]mgl32.Vec3, len(values)/3)
	for i := range ret {
		ret[i] = mgl32.Vec3{float32(values[i*3]), float32(values[i*3+1]), float32(values[i*3+2])}
	}
	return ret, nil
}

func (s *Store) DecodeVec4(index int, forVertex bool) ([]mgl32.Vec4, error) {
	values, err := s.decodeGroups(index, forVertex, 4, "vec4")
	if err != nil {
		return nil, err
	}
	ret := make([]mgl32.Vec4, len(values)/4)
	for i := range ret {
		ret[i] = mgl32.Vec4{float32(values[i*4]), float32(values[i*4+1]), float32(values[i*4+2]), float32(values[i*4+3])}
	}
	return ret, nil
}

// DecodeColors accepts VEC3 (alpha 1) or VEC4 accessors.
func (s *Store) DecodeColors(index int, forVertex bool) ([]mgl32.Vec4, error) {
	a, err := s.accessor(index)
	if err != nil {
		return nil, err
	}
	var cc int
	switch a.Type {
	case gltf.AccessorVec3:
		cc = 3
	case gltf.AccessorVec4:
		cc = 4
	default:
		return nil, errs.Malformed("accessor %d: color must be VEC3 or VEC4, got %s", index, codec.ShapeName(a.Type))
	}
	values, err := s.Decode(index, forVertex)
	if err != nil {
		return nil, err
	}
	ret := make([]mgl32.Vec4, len(values)/cc)
	for i := range ret {
		c := mgl32.Vec4{float32(values[i*cc]), float32(values[i*cc+1]), float32(values[i*cc+2]), 1}
		if cc == 4 {
			c[3] = float32(values[i*cc+3])
		}
		ret[i] = c
	}
	return ret, nil
}

// DecodeQuats reads x,y,z,w quaternions and normalizes them.
func (s *Store) DecodeQuats(index int, forVertex bool) ([]mgl32.Quat, error) {
	values, err := s.decodeGroups(index, forVertex, 4, "quaternions")
	if err != nil {
		return nil, err
	}
	ret := make([]mgl32.Quat, len(values)/4)
	for i := range ret {
		q := mgl32.Quat{
			W: float32(values[i*4+3]),
			V: mgl32.Vec3{float32(values[i*4]), float32(values[i*4+1]), float32(values[i*4+2])},
		}
		if q.Len() > 0 {
			q = q.Normalize()
		} else {
			q = mgl32.QuatIdent()
		}
		ret[i] = q
	}
	return ret, nil
}

// DecodeBasis reads column major 3x3 matrices.
func (s *Store) DecodeBasis(index int, forVertex bool) ([]mgl32.Mat3, error) {
	values, err := s.decodeGroups(index, forVertex, 9, "mat3")
	if err != nil {
		return nil, err
	}
	ret := make([]mgl32.Mat3, len(values)/9)
	for i := range ret {
		for k := 0; k < 9; k++ {
			ret[i][k] = float32(values[i*9+k])
		}
	}
	return ret, nil
}

// DecodeXforms reads column major 4x4 matrices: columns X, Y, Z and origin.
// The bottom row is forced to affine 0,0,0,1.
func (s *Store) DecodeXforms(index int, forVertex bool) ([]mgl32.Mat4, error) {
	values, err := s.decodeGroups(index, forVertex, 16, "mat4")
	if err != nil {
		return nil, err
	}
	ret := make([]mgl32.Mat4, len(values)/16)
	for i := range ret {
		v := values[i*16:]
		m := mgl32.Ident4()
		for col := 0; col < 4; col++ {
			for row := 0; row < 3; row++ {
				m.Set(row, col, float32(v[col*4+row]))
			}
		}
		ret[i] = m
	}
	return ret, nil
}

// DecodeXform2D reads column major 2x2 matrices as columns X and Y.
func (s *Store) DecodeXform2D(index int, forVertex bool) ([]mgl32.Mat2, error) {
	values, err := s.decodeGroups(index, forVertex, 4, "mat2")
	if err != nil {
		return nil, err
	}
	ret := make([]mgl32.Mat2, len(values)/4)
	for i := range ret {
		ret[i] = mgl32.Mat2{float32(values[i*4]), float32(values[i*4+1]), float32(values[i*4+2]), float32(values[i*4+3])}
	}
	return ret, nil
}
