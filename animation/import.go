package animation

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/mogaika/scenedoc/errs"
	"github.com/mogaika/scenedoc/scene"
	"github.com/mogaika/scenedoc/state"
	"github.com/mogaika/scenedoc/utils/logger"
)

const restEpsilon = 1e-5

type ImportOptions struct {
	BakeFPS               float32
	Trimming              bool
	RemoveImmutableTracks bool
}

func sortedNodes(tracks map[int]*state.Track) []int {
	nodes := make([]int, 0, len(tracks))
	for ni := range tracks {
		nodes = append(nodes, ni)
	}
	sort.Ints(nodes)
	return nodes
}

func timeRange(a *state.Animation, trimming bool) (start, end float32) {
	start = 0
	if trimming {
		start = float32(math.Inf(1))
	}
	span := func(times []float32) {
		for _, t := range times {
			if t > end {
				end = t
			}
			if trimming && t < start {
				start = t
			}
		}
	}
	for _, tr := range a.Tracks {
		span(tr.Position.Times)
		span(tr.Rotation.Times)
		span(tr.Scale.Times)
		for _, w := range tr.Weights {
			span(w.Times)
		}
	}
	if math.IsInf(float64(start), 1) {
		start = 0
	}
	return start, end
}

func keyValues[T any](c *state.Channel[T]) []T {
	if !c.Interpolation.Tangent() {
		return c.Values
	}
	centers := make([]T, 0, len(c.Values)/3)
	for i := 1; i < len(c.Values); i += 3 {
		centers = append(centers, c.Values[i])
	}
	return centers
}

func vec3Immutable(c *state.Channel[mgl32.Vec3], rest mgl32.Vec3) bool {
	for _, v := range keyValues(c) {
		if !v.ApproxEqualThreshold(rest, restEpsilon) {
			return false
		}
	}
	return true
}

func quatImmutable(c *state.Channel[mgl32.Quat], rest mgl32.Quat) bool {
	for _, v := range keyValues(c) {
		if !v.ApproxEqualThreshold(rest, restEpsilon) {
			return false
		}
	}
	return true
}

// transformPath addresses a node either as a bone of its skeleton or as a
// scene node, relative to root.
func transformPath(st *state.State, root *scene.Node, ni int) (string, bool) {
	node := st.Nodes[ni]
	if node.Skeleton >= 0 && node.Skeleton < len(st.Skeletons) {
		host := st.Skeletons[node.Skeleton].HostSkeleton
		if host == nil {
			return "", false
		}
		return host.PathFrom(root) + ":" + node.Name, true
	}
	host := st.SceneNodes[ni]
	if host == nil {
		return "", false
	}
	return host.PathFrom(root), true
}

// ImportAnimation bakes st.Animations[index] into a host animation added to
// the default library of player. Paths are relative to player's parent.
func ImportAnimation(st *state.State, index int, player *scene.Node, opts ImportOptions) (*scene.Animation, error) {
	if index < 0 || index >= len(st.Animations) {
		return nil, errs.Malformed("animation %d out of range [0,%d)", index, len(st.Animations))
	}
	if player.Player == nil {
		return nil, errs.Malformed("node %q is not an animation player", player.Name)
	}
	root := player.Parent
	if root == nil {
		root = player
	}
	src := st.Animations[index]

	name := src.Name
	if name == "" {
		name = st.GenUniqueName("Animation")
	}
	out := &scene.Animation{Name: name, Loop: src.Loop}
	start, end := timeRange(src, opts.Trimming)

	for _, ni := range sortedNodes(src.Tracks) {
		tr := src.Tracks[ni]
		if ni < 0 || ni >= len(st.Nodes) {
			return nil, errs.Malformed("animation %q targets node %d out of range", src.Name, ni)
		}
		node := st.Nodes[ni]

		// skinned meshes are posed by their skeleton
		if !(node.Skin >= 0 && node.Skeleton < 0) {
			path, ok := transformPath(st, root, ni)
			if !ok {
				logger.L().Warn("animated node has no scene node", zap.String("stage", "animations"), zap.Int("node", ni))
			} else {
				bakeTransform(out, tr, node, path, start, end, opts)
			}
		}

		if len(tr.Weights) > 0 && node.Mesh >= 0 && node.Mesh < len(st.Meshes) {
			mi := st.MeshInstances[ni]
			if mi == nil {
				mi = st.SceneNodes[ni]
			}
			if mi == nil {
				continue
			}
			importWeights(out, tr, st.Meshes[node.Mesh].Host, mi.PathFrom(root), start, end, opts.BakeFPS)
		}
	}

	out.Length = end - start
	player.Player.Library("").Add(out)
	logger.L().Debug("imported animation", zap.String("stage", "animations"), zap.String("name", out.Name),
		zap.Int("tracks", len(out.Tracks)), zap.Float32("length", out.Length))
	return out, nil
}

func bakeTransform(out *scene.Animation, tr *state.Track, node *state.Node, path string, start, end float32, opts ImportOptions) {
	var pos, rot, scl *scene.Track

	if !tr.Position.Empty() && !(opts.RemoveImmutableTracks && vec3Immutable(&tr.Position, node.Translation)) {
		pos = out.AddTrack(scene.TrackPosition, path)
	}
	if !tr.Rotation.Empty() && !(opts.RemoveImmutableTracks && quatImmutable(&tr.Rotation, node.Rotation.Normalize())) {
		rot = out.AddTrack(scene.TrackRotation, path)
	}
	if !tr.Scale.Empty() && !(opts.RemoveImmutableTracks && vec3Immutable(&tr.Scale, node.Scale)) {
		scl = out.AddTrack(scene.TrackScale, path)
	}
	if pos == nil && rot == nil && scl == nil {
		return
	}

	for _, t := range BakeTimes(start, end, opts.BakeFPS) {
		if pos != nil {
			pos.InsertVec3(t-start, Interpolate[mgl32.Vec3](Vec3Ops{}, tr.Position.Times, tr.Position.Values, t, tr.Position.Interpolation))
		}
		if rot != nil {
			rot.InsertQuat(t-start, InterpolateQuat(tr.Rotation.Times, tr.Rotation.Values, t, tr.Rotation.Interpolation))
		}
		if scl != nil {
			scl.InsertVec3(t-start, Interpolate[mgl32.Vec3](Vec3Ops{}, tr.Scale.Times, tr.Scale.Values, t, tr.Scale.Interpolation))
		}
	}
}

func importWeights(out *scene.Animation, tr *state.Track, mesh *scene.ImporterMesh, meshPath string, start, end, fps float32) {
	for i, w := range tr.Weights {
		if i >= len(mesh.BlendShapes) {
			break
		}
		track := out.AddTrack(scene.TrackBlendShape, meshPath+":"+mesh.BlendShapes[i])

		switch w.Interpolation {
		case state.InterpolationLinear, state.InterpolationStep:
			if w.Interpolation == state.InterpolationStep {
				track.Interpolation = scene.InterpolationNearest
			}
			for k := range w.Times {
				if k >= len(w.Values) {
					break
				}
				track.InsertFloat(w.Times[k]-start, w.Values[k])
			}
		default:
			for _, t := range BakeTimes(start, end, fps) {
				track.InsertFloat(t-start, Interpolate[float32](FloatOps{}, w.Times, w.Values, t, w.Interpolation))
			}
		}
	}
}
