// Package accessor maps typed vectors to and from accessor backed buffers.
package accessor

import (
	"math"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/mogaika/scenedoc/codec"
	"github.com/mogaika/scenedoc/errs"
)

// MaxViewlessValues bounds the zero filled array decoded for an accessor
// that has no buffer view.
const MaxViewlessValues = 1 << 24

// Store owns buffers, buffer views and accessors of one document.
// Buffers[0] is the main buffer all encoders append to.
type Store struct {
	Buffers   [][]byte
	Views     []*gltf.BufferView
	Accessors []*gltf.Accessor
}

func NewStore() *Store {
	return &Store{Buffers: [][]byte{{}}}
}

func (s *Store) accessor(index int) (*gltf.Accessor, error) {
	if index < 0 || index >= len(s.Accessors) {
		return nil, errs.Malformed("accessor index %d out of range [0,%d)", index, len(s.Accessors))
	}
	return s.Accessors[index], nil
}

func (s *Store) view(index int) (*gltf.BufferView, []byte, error) {
	if index < 0 || index >= len(s.Views) {
		return nil, nil, errs.Malformed("buffer view index %d out of range [0,%d)", index, len(s.Views))
	}
	v := s.Views[index]
	if int(v.Buffer) >= len(s.Buffers) {
		return nil, nil, errs.Malformed("buffer view %d references missing buffer %d", index, v.Buffer)
	}
	return v, s.Buffers[v.Buffer], nil
}

// ViewBytes returns the bytes covered by a buffer view, e.g. an embedded image.
func (s *Store) ViewBytes(index int) ([]byte, error) {
	v, buf, err := s.view(index)
	if err != nil {
		return nil, err
	}
	end := int(v.ByteOffset) + int(v.ByteLength)
	if end > len(buf) {
		return nil, errs.Range("buffer view %d ends at %d past buffer size %d", index, end, len(buf))
	}
	return buf[v.ByteOffset:end], nil
}

func LayoutOf(a *gltf.Accessor, forVertex bool) codec.Layout {
	return codec.Layout{
		Component:  a.ComponentType,
		Shape:      a.Type,
		Normalized: a.Normalized,
		ForVertex:  forVertex,
	}
}

// Decode returns the accessor as a flat array with sparse overrides applied.
// Accessors without a view decode to zeros.
func (s *Store) Decode(index int, forVertex bool) ([]float64, error) {
	a, err := s.accessor(index)
	if err != nil {
		return nil, err
	}
	layout := LayoutOf(a, forVertex)
	cc := codec.ComponentCount(a.Type)
	count := int(a.Count)

	var dst []float64
	if a.BufferView != nil {
		view, buf, err := s.view(int(*a.BufferView))
		if err != nil {
			return nil, errors.Wrapf(err, "accessor %d", index)
		}
		if dst, err = codec.Decode(buf, view, int(a.ByteOffset), layout, count); err != nil {
			return nil, errors.Wrapf(err, "accessor %d", index)
		}
	} else {
		if int64(count)*int64(cc) > MaxViewlessValues {
			return nil, errs.Range("accessor %d declares %d elements without a buffer view", index, count)
		}
		dst = make([]float64, count*cc)
	}

	if a.Sparse != nil && a.Sparse.Count > 0 {
		if err := s.applySparse(dst, a, layout); err != nil {
			return nil, errors.Wrapf(err, "accessor %d sparse", index)
		}
	}
	return dst, nil
}

func (s *Store) applySparse(dst []float64, a *gltf.Accessor, layout codec.Layout) error {
	sp := a.Sparse
	if sp.Count > a.Count {
		return errs.Range("sparse count %d exceeds accessor count %d", sp.Count, a.Count)
	}
	count := int(sp.Count)
	cc := codec.ComponentCount(a.Type)

	iview, ibuf, err := s.view(int(sp.Indices.BufferView))
	if err != nil {
		return err
	}
	indices, err := codec.Decode(ibuf, iview, int(sp.Indices.ByteOffset),
		codec.Layout{Component: sp.Indices.ComponentType, Shape: gltf.AccessorScalar}, count)
	if err != nil {
		return errors.Wrapf(err, "indices")
	}

	vview, vbuf, err := s.view(int(sp.Values.BufferView))
	if err != nil {
		return err
	}
	values, err := codec.Decode(vbuf, vview, int(sp.Values.ByteOffset), layout, count)
	if err != nil {
		return errors.Wrapf(err, "values")
	}

	for i, fidx := range indices {
		idx := int(fidx)
		if idx < 0 || idx >= int(a.Count) {
			return errs.Range("sparse index %d out of accessor count %d", idx, a.Count)
		}
		copy(dst[idx*cc:idx*cc+cc], values[i*cc:i*cc+cc])
	}
	return nil
}

// filterNumber keeps NaN out of accessor bounds
func filterNumber(v float64) float32 {
	if math.IsNaN(v) {
		return 0
	}
	return float32(v)
}

func bounds(values []float64, cc int) (lo, hi []float32) {
	lo = make([]float32, cc)
	hi = make([]float32, cc)
	for i := 0; i < len(values)/cc; i++ {
		for k := 0; k < cc; k++ {
			v := values[i*cc+k]
			if math.IsNaN(v) {
				v = 0
			}
			if i == 0 || v < float64(lo[k]) {
				lo[k] = filterNumber(v)
			}
			if i == 0 || v > float64(hi[k]) {
				hi[k] = filterNumber(v)
			}
		}
	}
	return lo, hi
}

// Encode appends values as a new accessor and returns its index.
// Empty input produces no accessor and returns -1.
func (s *Store) Encode(values []float64, layout codec.Layout, target gltf.Target) (int, error) {
	cc := codec.ComponentCount(layout.Shape)
	if len(values) == 0 {
		return -1, nil
	}
	if cc == 0 || len(values)%cc != 0 {
		return -1, errs.Malformed("%d values do not fit %v", len(values), layout)
	}
	if len(s.Buffers) == 0 {
		s.Buffers = append(s.Buffers, []byte{})
	}
	count := len(values) / cc

	view, err := codec.Encode(&s.Buffers[0], values, layout, count)
	if err != nil {
		return -1, err
	}
	if target != gltf.TargetNone {
		view.Target = target
	}
	s.Views = append(s.Views, view)

	lo, hi := bounds(values, cc)
	s.Accessors = append(s.Accessors, &gltf.Accessor{
		BufferView:    gltf.Index(uint32(len(s.Views) - 1)),
		ComponentType: layout.Component,
		Normalized:    layout.Normalized,
		Count:         uint32(count),
		Type:          layout.Shape,
		Min:           lo,
		Max:           hi,
	})
	return len(s.Accessors) - 1, nil
}
