package codec

import (
	"encoding/binary"
	"math"

	"github.com/qmuntal/gltf"

	"github.com/mogaika/scenedoc/errs"
)

// Decode unpacks count elements starting byteOffset bytes into view.
func Decode(buf []byte, view *gltf.BufferView, byteOffset int, l Layout, count int) ([]float64, error) {
	cc := ComponentCount(l.Shape)
	if cc == 0 {
		return nil, errs.Malformed("unknown accessor shape %v", l.Shape)
	}
	if count <= 0 {
		return []float64{}, nil
	}

	elementSize := l.ElementSize()
	stride := l.Stride(int(view.ByteStride))
	span := stride*(count-1) + elementSize

	if byteOffset < 0 || byteOffset+span > int(view.ByteLength) {
		return nil, errs.Range("%v x%d at +%d needs %d bytes, view has %d",
			l, count, byteOffset, byteOffset+span, view.ByteLength)
	}
	base := int(view.ByteOffset) + byteOffset
	if base+span > len(buf) {
		return nil, errs.Range("%v x%d at 0x%x overruns buffer of %d bytes", l, count, base, len(buf))
	}

	skipEvery, skipBytes := l.Skip()
	compSize := ComponentSize(l.Component)
	scale := normScale(l.Component)

	dst := make([]float64, count*cc)
	for i := 0; i < count; i++ {
		src := base + i*stride
		for j := 0; j < cc; j++ {
			if skipEvery > 0 && j > 0 && j%skipEvery == 0 {
				src += skipBytes
			}
			d := readComponent(buf[src:], l.Component)
			if l.Normalized && l.Component != gltf.ComponentFloat && l.Component != gltf.ComponentUint {
				d /= scale
			}
			dst[i*cc+j] = d
			src += compSize
		}
	}
	return dst, nil
}

func readComponent(b []byte, c gltf.ComponentType) float64 {
	switch c {
	case gltf.ComponentByte:
		return float64(int8(b[0]))
	case gltf.ComponentUbyte:
		return float64(b[0])
	case gltf.ComponentShort:
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case gltf.ComponentUshort:
		return float64(binary.LittleEndian.Uint16(b))
	case gltf.ComponentUint:
		return float64(binary.LittleEndian.Uint32(b))
	default:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	}
}

// Encode appends values to the main buffer and returns the view describing them.
// The main buffer is padded to 4 bytes before the new data.
func Encode(main *[]byte, values []float64, l Layout, count int) (*gltf.BufferView, error) {
	cc := ComponentCount(l.Shape)
	if cc == 0 {
		return nil, errs.Malformed("unknown accessor shape %v", l.Shape)
	}
	if len(values) != count*cc {
		return nil, errs.Range("%v x%d expects %d values, got %d", l, count, count*cc, len(values))
	}

	for len(*main)%4 != 0 {
		*main = append(*main, 0)
	}

	elementSize := l.ElementSize()
	stride := l.Stride(0)
	skipEvery, skipBytes := l.Skip()
	compSize := ComponentSize(l.Component)
	scale := normScale(l.Component)

	offset := len(*main)
	out := make([]byte, count*stride)
	for i := 0; i < count; i++ {
		dst := i * stride
		for j := 0; j < cc; j++ {
			if skipEvery > 0 && j > 0 && j%skipEvery == 0 {
				dst += skipBytes
			}
			v := values[i*cc+j]
			if l.Normalized && l.Component != gltf.ComponentFloat && l.Component != gltf.ComponentUint {
				v *= scale
			}
			writeComponent(out[dst:], l.Component, v)
			dst += compSize
		}
	}
	*main = append(*main, out...)

	view := &gltf.BufferView{
		Buffer:     0,
		ByteOffset: uint32(offset),
		ByteLength: uint32(len(out)),
	}
	if l.ForVertex {
		view.Target = gltf.TargetArrayBuffer
		if stride != elementSize {
			view.ByteStride = uint32(stride)
		}
	}
	return view, nil
}

func clampRound(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	v = math.Round(v)
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func writeComponent(b []byte, c gltf.ComponentType, v float64) {
	switch c {
	case gltf.ComponentByte:
		b[0] = byte(int8(clampRound(v, math.MinInt8, math.MaxInt8)))
	case gltf.ComponentUbyte:
		b[0] = byte(clampRound(v, 0, math.MaxUint8))
	case gltf.ComponentShort:
		binary.LittleEndian.PutUint16(b, uint16(int16(clampRound(v, math.MinInt16, math.MaxInt16))))
	case gltf.ComponentUshort:
		binary.LittleEndian.PutUint16(b, uint16(clampRound(v, 0, math.MaxUint16)))
	case gltf.ComponentUint:
		binary.LittleEndian.PutUint32(b, uint32(clampRound(v, 0, math.MaxUint32)))
	default:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	}
}
