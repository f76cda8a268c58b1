package animation

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/mogaika/scenedoc/state"
	"github.com/mogaika/scenedoc/utils"
)

func documentInterpolation(i state.Interpolation) gltf.Interpolation {
	switch i {
	case state.InterpolationStep:
		return gltf.InterpolationStep
	case state.InterpolationCubicSpline:
		return gltf.InterpolationCubicSpline
	default:
		return gltf.InterpolationLinear
	}
}

// writable drops Catmull-Rom tangents, which the document format cannot
// express, keeping the key values under linear interpolation.
func writable[T any](c state.Channel[T]) state.Channel[T] {
	if c.Interpolation != state.InterpolationCatmullRom {
		return c
	}
	return state.Channel[T]{Interpolation: state.InterpolationLinear, Times: c.Times, Values: keyValues(&c)}
}

type animationWriter struct {
	st *state.State
	ga *gltf.Animation
}

func (w *animationWriter) add(node int, path gltf.TRSProperty, interp state.Interpolation, times []float32, output int, err error) error {
	if err != nil {
		return err
	}
	input, err := w.st.Store.EncodeFloats(times, false)
	if err != nil {
		return err
	}
	if input < 0 || output < 0 {
		return nil
	}
	w.ga.Samplers = append(w.ga.Samplers, &gltf.AnimationSampler{
		Input:         gltf.Index(uint32(input)),
		Output:        gltf.Index(uint32(output)),
		Interpolation: documentInterpolation(interp),
	})
	ch := &gltf.Channel{Sampler: gltf.Index(uint32(len(w.ga.Samplers) - 1))}
	ch.Target.Node = gltf.Index(uint32(node))
	ch.Target.Path = path
	w.ga.Channels = append(w.ga.Channels, ch)
	return nil
}

// weightsChannel interleaves per shape channels into one sampler keyed at
// the times of the longest channel.
func weightsChannel(channels []state.Channel[float32]) (state.Interpolation, []float32, []float32) {
	base := writable(channels[0])
	for _, c := range channels[1:] {
		if len(c.Times) > len(base.Times) {
			base = writable(c)
		}
	}
	same := true
	for _, c := range channels {
		c = writable(c)
		if c.Interpolation != base.Interpolation || len(c.Times) != len(base.Times) || len(c.Values) != len(base.Values) {
			same = false
			break
		}
		for i := range c.Times {
			if c.Times[i] != base.Times[i] {
				same = false
				break
			}
		}
	}

	interp := base.Interpolation
	perKey := 1
	if same && interp == state.InterpolationCubicSpline {
		perKey = 3
	} else if !same && interp.Tangent() {
		interp = state.InterpolationLinear
	}

	values := make([]float32, 0, len(base.Times)*perKey*len(channels))
	for k, t := range base.Times {
		for j := 0; j < perKey; j++ {
			for _, c := range channels {
				c = writable(c)
				if same {
					values = append(values, c.Values[k*perKey+j])
				} else {
					values = append(values, Interpolate[float32](FloatOps{}, c.Times, c.Values, t, c.Interpolation))
				}
			}
		}
	}
	return interp, base.Times, values
}

// SerializeAnimations encodes st.Animations into doc.Animations. Node
// indices are kept, so nodes must be serialized in st.Nodes order.
func SerializeAnimations(st *state.State, doc *gltf.Document) error {
	for _, a := range st.Animations {
		w := &animationWriter{st: st, ga: &gltf.Animation{Name: a.Name}}
		for _, ni := range sortedNodes(a.Tracks) {
			tr := a.Tracks[ni]
			if !tr.Position.Empty() {
				c := writable(tr.Position)
				idx, err := st.Store.EncodeVec3(c.Values, false)
				if err := w.add(ni, gltf.TRSTranslation, c.Interpolation, c.Times, idx, err); err != nil {
					return errors.Wrapf(err, "animation %q node %d translation", a.Name, ni)
				}
			}
			if !tr.Rotation.Empty() {
				c := writable(tr.Rotation)
				idx, err := st.Store.EncodeQuats(c.Values, false)
				if err := w.add(ni, gltf.TRSRotation, c.Interpolation, c.Times, idx, err); err != nil {
					return errors.Wrapf(err, "animation %q node %d rotation", a.Name, ni)
				}
			}
			if !tr.Scale.Empty() {
				c := writable(tr.Scale)
				idx, err := st.Store.EncodeVec3(c.Values, false)
				if err := w.add(ni, gltf.TRSScale, c.Interpolation, c.Times, idx, err); err != nil {
					return errors.Wrapf(err, "animation %q node %d scale", a.Name, ni)
				}
			}
			if len(tr.Weights) > 0 {
				interp, times, values := weightsChannel(tr.Weights)
				idx, err := st.Store.EncodeFloats(values, false)
				if err := w.add(ni, gltf.TRSWeights, interp, times, idx, err); err != nil {
					return errors.Wrapf(err, "animation %q node %d weights", a.Name, ni)
				}
			}
		}
		if len(w.ga.Channels) > 0 {
			doc.Animations = append(doc.Animations, w.ga)
		}
	}
	return nil
}

// SamplePose evaluates the local transform of every animated node at time t.
// Missing channels keep the node's rest values.
func SamplePose(st *state.State, a *state.Animation, t float32) map[int]mgl32.Mat4 {
	pose := make(map[int]mgl32.Mat4, len(a.Tracks))
	for ni, tr := range a.Tracks {
		if ni < 0 || ni >= len(st.Nodes) {
			continue
		}
		n := st.Nodes[ni]
		pos, rot, scl := n.Translation, n.Rotation, n.Scale
		if !tr.Position.Empty() {
			pos = Interpolate[mgl32.Vec3](Vec3Ops{}, tr.Position.Times, tr.Position.Values, t, tr.Position.Interpolation)
		}
		if !tr.Rotation.Empty() {
			rot = InterpolateQuat(tr.Rotation.Times, tr.Rotation.Values, t, tr.Rotation.Interpolation)
		}
		if !tr.Scale.Empty() {
			scl = Interpolate[mgl32.Vec3](Vec3Ops{}, tr.Scale.Times, tr.Scale.Values, t, tr.Scale.Interpolation)
		}
		pose[ni] = utils.ComposeTRS(pos, rot, scl)
	}
	return pose
}
