// Package codec packs and unpacks typed accessor elements in raw buffers.
package codec

import (
	"fmt"

	"github.com/qmuntal/gltf"
)

type Layout struct {
	Component  gltf.ComponentType
	Shape      gltf.AccessorType
	Normalized bool
	// Vertex attribute data keeps every element 4 byte aligned
	ForVertex bool
}

func (l Layout) String() string {
	return fmt.Sprintf("%v/%v(norm:%v,vertex:%v)", ComponentName(l.Component), ShapeName(l.Shape), l.Normalized, l.ForVertex)
}

func ComponentSize(c gltf.ComponentType) int {
	switch c {
	case gltf.ComponentByte, gltf.ComponentUbyte:
		return 1
	case gltf.ComponentShort, gltf.ComponentUshort:
		return 2
	default:
		return 4
	}
}

func ComponentName(c gltf.ComponentType) string {
	switch c {
	case gltf.ComponentByte:
		return "BYTE"
	case gltf.ComponentUbyte:
		return "UNSIGNED_BYTE"
	case gltf.ComponentShort:
		return "SHORT"
	case gltf.ComponentUshort:
		return "UNSIGNED_SHORT"
	case gltf.ComponentUint:
		return "UNSIGNED_INT"
	case gltf.ComponentFloat:
		return "FLOAT"
	}
	return fmt.Sprintf("component(%d)", c)
}

func ComponentCount(s gltf.AccessorType) int {
	switch s {
	case gltf.AccessorScalar:
		return 1
	case gltf.AccessorVec2:
		return 2
	case gltf.AccessorVec3:
		return 3
	case gltf.AccessorVec4, gltf.AccessorMat2:
		return 4
	case gltf.AccessorMat3:
		return 9
	case gltf.AccessorMat4:
		return 16
	}
	return 0
}

func ShapeName(s gltf.AccessorType) string {
	switch s {
	case gltf.AccessorScalar:
		return "SCALAR"
	case gltf.AccessorVec2:
		return "VEC2"
	case gltf.AccessorVec3:
		return "VEC3"
	case gltf.AccessorVec4:
		return "VEC4"
	case gltf.AccessorMat2:
		return "MAT2"
	case gltf.AccessorMat3:
		return "MAT3"
	case gltf.AccessorMat4:
		return "MAT4"
	}
	return fmt.Sprintf("shape(%d)", s)
}

// Skip returns the padding inserted after every run of components for
// matrix columns of narrow types. Zero every means no padding.
func (l Layout) Skip() (every, bytes int) {
	switch l.Component {
	case gltf.ComponentByte, gltf.ComponentUbyte:
		switch l.Shape {
		case gltf.AccessorMat2:
			return 2, 2
		case gltf.AccessorMat3:
			return 3, 1
		}
	case gltf.ComponentShort, gltf.ComponentUshort:
		if l.Shape == gltf.AccessorMat3 {
			return 6, 4
		}
	}
	return 0, 0
}

// ElementSize is the packed size of one element. Padded matrix layouts are
// rounded up to 4 bytes so that consecutive elements never overlap.
//
// A 16-bit MAT3 is 24 bytes: 18 bytes of components plus the 4 byte gap
// Skip places after the sixth, rounded up. It must not be 16: that drops
// the last column.
func (l Layout) ElementSize() int {
	cc := ComponentCount(l.Shape)
	size := cc * ComponentSize(l.Component)
	if every, skip := l.Skip(); every > 0 {
		size += ((cc - 1) / every) * skip
		if size%4 != 0 {
			size += 4 - size%4
		}
	}
	return size
}

// Stride is max(declared, element size), rounded up to 4 for vertex data.
func (l Layout) Stride(declared int) int {
	stride := l.ElementSize()
	if declared > stride {
		stride = declared
	}
	if l.ForVertex && stride%4 != 0 {
		stride += 4 - stride%4
	}
	return stride
}

// normalization divisor of narrow integer types
func normScale(c gltf.ComponentType) float64 {
	switch c {
	case gltf.ComponentByte:
		return 128
	case gltf.ComponentUbyte:
		return 255
	case gltf.ComponentShort:
		return 32768
	case gltf.ComponentUshort:
		return 65535
	}
	return 1
}
