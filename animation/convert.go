package animation

import (
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/mogaika/scenedoc/scene"
	"github.com/mogaika/scenedoc/state"
	"github.com/mogaika/scenedoc/utils"
	"github.com/mogaika/scenedoc/utils/logger"
)

func stateInterpolation(i scene.Interpolation) state.Interpolation {
	switch i {
	case scene.InterpolationNearest:
		return state.InterpolationStep
	case scene.InterpolationCubic:
		return state.InterpolationCubicSpline
	default:
		return state.InterpolationLinear
	}
}

type target struct {
	node int
	host *scene.Node
	// property names after the node or bone, e.g. [position x]
	sub []string
}

// resolve maps a host track path back to a document node. Paths of the form
// skeleton:bone address the node a bone was generated from.
func resolve(st *state.State, root *scene.Node, path string) (target, bool) {
	parts := strings.Split(path, ":")
	host := root.Find(parts[0])
	if host == nil {
		return target{}, false
	}
	if host.Kind == scene.KindSkeleton && len(parts) > 1 {
		for _, sk := range st.Skeletons {
			if sk.HostSkeleton != host {
				continue
			}
			bone := host.Bones.FindBone(parts[1])
			if bone < 0 {
				return target{}, false
			}
			ni, ok := sk.BoneNode[bone]
			return target{node: ni, host: host, sub: parts[2:]}, ok
		}
		return target{}, false
	}
	ni, ok := st.HostNodeIndex[host]
	return target{node: ni, host: host, sub: parts[1:]}, ok
}

func vec3Channel(tr *scene.Track, length, fps float32, conv func(mgl32.Vec3) mgl32.Vec3) state.Channel[mgl32.Vec3] {
	c := state.Channel[mgl32.Vec3]{Interpolation: stateInterpolation(tr.Interpolation)}
	if tr.Interpolation == scene.InterpolationCubic {
		c.Interpolation = state.InterpolationLinear
		c.Times = BakeTimes(0, length, fps)
		for _, t := range c.Times {
			c.Values = append(c.Values, conv(tr.Vec3At(t)))
		}
		return c
	}
	c.Times = append([]float32(nil), tr.Times...)
	for _, v := range tr.Vec3s {
		c.Values = append(c.Values, conv(v))
	}
	return c
}

func quatChannel(tr *scene.Track, length, fps float32) state.Channel[mgl32.Quat] {
	c := state.Channel[mgl32.Quat]{Interpolation: stateInterpolation(tr.Interpolation)}
	if tr.Interpolation == scene.InterpolationCubic {
		c.Interpolation = state.InterpolationLinear
		c.Times = BakeTimes(0, length, fps)
		for _, t := range c.Times {
			c.Values = append(c.Values, tr.QuatAt(t))
		}
		return c
	}
	c.Times = append([]float32(nil), tr.Times...)
	c.Values = append([]mgl32.Quat(nil), tr.Quats...)
	return c
}

func floatChannel(tr *scene.Track, length, fps float32) state.Channel[float32] {
	c := state.Channel[float32]{Interpolation: stateInterpolation(tr.Interpolation)}
	if tr.Interpolation == scene.InterpolationCubic {
		c.Interpolation = state.InterpolationLinear
		c.Times = BakeTimes(0, length, fps)
		for _, t := range c.Times {
			c.Values = append(c.Values, tr.FloatAt(t))
		}
		return c
	}
	c.Times = append([]float32(nil), tr.Times...)
	c.Values = append([]float32(nil), tr.Floats...)
	return c
}

func identity(v mgl32.Vec3) mgl32.Vec3 { return v }

func eulerToQuats(c state.Channel[mgl32.Vec3], degrees bool) state.Channel[mgl32.Quat] {
	q := state.Channel[mgl32.Quat]{Interpolation: c.Interpolation, Times: c.Times}
	for _, v := range c.Values {
		if degrees {
			v = utils.DegreeToRadiansV3(v)
		}
		q.Values = append(q.Values, utils.EulerToQuat(v))
	}
	return q
}

// axisBake gathers per axis Bezier curves of one property before they are
// combined into a vector channel.
type axisBake struct {
	node   int
	prop   string
	times  []float32
	values []mgl32.Vec3
}

var axisIndex = map[string]int{"x": 0, "y": 1, "z": 2}

func restProperty(node *state.Node, prop string) mgl32.Vec3 {
	switch prop {
	case "position":
		return node.Translation
	case "scale":
		return node.Scale
	case "rotation":
		return utils.QuatToEuler(node.Rotation)
	case "rotation_degrees":
		return utils.RadiansToDegreeV3(utils.QuatToEuler(node.Rotation))
	}
	return mgl32.Vec3{}
}

// ConvertAnimation turns a host animation into a document animation
// appended to st.Animations. root is the node paths are relative to.
// Cubic tracks are baked to linear keys at fps.
func ConvertAnimation(st *state.State, root *scene.Node, a *scene.Animation, fps float32) *state.Animation {
	if fps <= 0 {
		fps = 30
	}
	out := state.NewAnimation(st.GenUniqueName(a.Name))
	out.Loop = a.Loop
	blendDone := make(map[int]bool)
	bakes := make([]*axisBake, 0)

	for _, tr := range a.Tracks {
		if !tr.Enabled || tr.KeyCount() == 0 {
			continue
		}
		tgt, ok := resolve(st, root, tr.Path)
		if !ok || tgt.node < 0 || tgt.node >= len(st.Nodes) {
			logger.L().Warn("animation track path not found", zap.String("stage", "export"),
				zap.String("animation", a.Name), zap.String("path", tr.Path))
			continue
		}
		ni := tgt.node

		switch tr.Type {
		case scene.TrackPosition:
			out.Track(ni).Position = vec3Channel(tr, a.Length, fps, identity)
		case scene.TrackRotation:
			out.Track(ni).Rotation = quatChannel(tr, a.Length, fps)
		case scene.TrackScale:
			out.Track(ni).Scale = vec3Channel(tr, a.Length, fps, identity)
		case scene.TrackBlendShape:
			if blendDone[ni] {
				continue
			}
			blendDone[ni] = true
			convertBlendShapes(st, out, a, tgt, root, fps)
		case scene.TrackValue:
			if len(tgt.sub) == 0 {
				continue
			}
			c := vec3Channel(tr, a.Length, fps, identity)
			switch tgt.sub[0] {
			case "position":
				out.Track(ni).Position = c
			case "scale":
				out.Track(ni).Scale = c
			case "rotation":
				out.Track(ni).Rotation = eulerToQuats(c, false)
			case "rotation_degrees":
				out.Track(ni).Rotation = eulerToQuats(c, true)
			}
		case scene.TrackBezier:
			if len(tgt.sub) < 2 {
				continue
			}
			axis, ok := axisIndex[tgt.sub[1]]
			if !ok {
				continue
			}
			var b *axisBake
			for _, e := range bakes {
				if e.node == ni && e.prop == tgt.sub[0] {
					b = e
				}
			}
			if b == nil {
				b = &axisBake{node: ni, prop: tgt.sub[0]}
				rest := restProperty(st.Nodes[ni], b.prop)
				last := tr.Times[len(tr.Times)-1]
				keys := int(last * fps)
				for k := 0; k <= keys; k++ {
					b.times = append(b.times, float32(k)/fps)
					b.values = append(b.values, rest)
				}
				bakes = append(bakes, b)
			}
			for k, t := range b.times {
				b.values[k][axis] = tr.BezierAt(t)
			}
		}
	}

	for _, b := range bakes {
		c := state.Channel[mgl32.Vec3]{Interpolation: state.InterpolationLinear, Times: b.times, Values: b.values}
		switch b.prop {
		case "position":
			out.Track(b.node).Position = c
		case "scale":
			out.Track(b.node).Scale = c
		case "rotation":
			out.Track(b.node).Rotation = eulerToQuats(c, false)
		case "rotation_degrees":
			out.Track(b.node).Rotation = eulerToQuats(c, true)
		}
	}

	if len(out.Tracks) == 0 {
		return nil
	}
	st.Animations = append(st.Animations, out)
	return out
}

// convertBlendShapes emits one weight channel per blend shape of the node's
// mesh; shapes without a track get a constant zero channel.
func convertBlendShapes(st *state.State, out *state.Animation, a *scene.Animation, tgt target, root *scene.Node, fps float32) {
	node := st.Nodes[tgt.node]
	if node.Mesh < 0 || node.Mesh >= len(st.Meshes) {
		return
	}
	mesh := st.Meshes[node.Mesh].Host
	base := tgt.host.PathFrom(root)
	weights := make([]state.Channel[float32], 0, len(mesh.BlendShapes))
	for _, shape := range mesh.BlendShapes {
		tr := a.FindTrack(base+":"+shape, scene.TrackBlendShape)
		if tr == nil || !tr.Enabled || tr.KeyCount() == 0 {
			weights = append(weights, state.Channel[float32]{
				Interpolation: state.InterpolationLinear,
				Times:         []float32{0, 0},
				Values:        []float32{0, 0},
			})
			continue
		}
		weights = append(weights, floatChannel(tr, a.Length, fps))
	}
	out.Track(tgt.node).Weights = weights
}
