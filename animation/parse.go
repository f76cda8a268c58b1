package animation

import (
	"encoding/json"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/mogaika/scenedoc/errs"
	"github.com/mogaika/scenedoc/state"
	"github.com/mogaika/scenedoc/utils"
	"github.com/mogaika/scenedoc/utils/logger"
)

// rawAnimations keeps the strings the document model folds into enums:
// unknown interpolations become LINEAR and unknown paths become translation.
type rawAnimations struct {
	Animations []struct {
		Channels []struct {
			Target struct {
				Path string `json:"path"`
			} `json:"target"`
		} `json:"channels"`
		Samplers []struct {
			Interpolation string `json:"interpolation"`
		} `json:"samplers"`
	} `json:"animations"`
}

func readRaw(data []byte) *rawAnimations {
	if len(data) == 0 {
		return nil
	}
	var raw rawAnimations
	if err := json.Unmarshal(data, &raw); err != nil {
		logger.L().Debug("raw animation strings unavailable", zap.String("stage", "animations"), zap.Error(err))
		return nil
	}
	return &raw
}

func (r *rawAnimations) interpolation(anim, sampler int, fallback gltf.Interpolation) state.Interpolation {
	if r != nil && anim < len(r.Animations) && sampler < len(r.Animations[anim].Samplers) {
		return state.ParseInterpolation(r.Animations[anim].Samplers[sampler].Interpolation)
	}
	switch fallback {
	case gltf.InterpolationStep:
		return state.InterpolationStep
	case gltf.InterpolationCubicSpline:
		return state.InterpolationCubicSpline
	default:
		return state.InterpolationLinear
	}
}

func (r *rawAnimations) path(anim, channel int, fallback gltf.TRSProperty) string {
	if r != nil && anim < len(r.Animations) && channel < len(r.Animations[anim].Channels) {
		return r.Animations[anim].Channels[channel].Target.Path
	}
	switch fallback {
	case gltf.TRSRotation:
		return "rotation"
	case gltf.TRSScale:
		return "scale"
	case gltf.TRSWeights:
		return "weights"
	default:
		return "translation"
	}
}

// IsLoopName reports names starting or ending with loop or cycle.
func IsLoopName(name string) bool {
	n := strings.ToLower(name)
	for _, w := range []string{"loop", "cycle"} {
		if strings.HasPrefix(n, w) || strings.HasSuffix(n, w) {
			return true
		}
	}
	return false
}

// ParseAnimations reads doc.Animations into st.Animations. Meshes must
// already be parsed so weight channels can be split per blend shape.
func ParseAnimations(st *state.State, doc *gltf.Document) error {
	raw := readRaw(st.JSON)

	for i, a := range doc.Animations {
		if len(a.Channels) == 0 || len(a.Samplers) == 0 {
			continue
		}
		anim := state.NewAnimation(st.GenUniqueAnimationName(a.Name))
		anim.Loop = IsLoopName(a.Name)

		for j, ch := range a.Channels {
			if err := parseChannel(st, raw, anim, i, j, a, ch); err != nil {
				return errors.Wrapf(err, "animation %d channel %d", i, j)
			}
		}

		logger.L().Debug("parsed animation", zap.String("stage", "animations"),
			zap.String("name", anim.Name), zap.Int("tracks", len(anim.Tracks)), zap.Bool("loop", anim.Loop))
		st.Animations = append(st.Animations, anim)
	}
	return nil
}

func parseChannel(st *state.State, raw *rawAnimations, anim *state.Animation, ai, ci int, a *gltf.Animation, ch *gltf.Channel) error {
	if ch.Target.Node == nil {
		return nil
	}
	path := raw.path(ai, ci, ch.Target.Path)
	if path == "" {
		return nil
	}
	if ch.Sampler == nil {
		return errs.Malformed("channel without sampler")
	}
	si := int(*ch.Sampler)
	if si >= len(a.Samplers) {
		return errs.Malformed("sampler %d out of range [0,%d)", si, len(a.Samplers))
	}
	ni := int(*ch.Target.Node)
	node, err := st.Node(ni)
	if err != nil {
		return err
	}

	s := a.Samplers[si]
	if s.Input == nil || s.Output == nil {
		return errs.Malformed("sampler %d lacks input or output", si)
	}
	interp := raw.interpolation(ai, si, s.Interpolation)
	times, err := st.Store.DecodeFloats(int(*s.Input), false)
	if err != nil {
		return err
	}
	output := int(*s.Output)

	switch path {
	case "translation":
		values, err := st.Store.DecodeVec3(output, false)
		if err != nil {
			return err
		}
		anim.Track(ni).Position = state.Channel[mgl32.Vec3]{Interpolation: interp, Times: times, Values: values}
	case "rotation":
		values, err := st.Store.DecodeQuats(output, false)
		if err != nil {
			return err
		}
		anim.Track(ni).Rotation = state.Channel[mgl32.Quat]{Interpolation: interp, Times: times, Values: values}
	case "scale":
		values, err := st.Store.DecodeVec3(output, false)
		if err != nil {
			return err
		}
		anim.Track(ni).Scale = state.Channel[mgl32.Vec3]{Interpolation: interp, Times: times, Values: values}
	case "weights":
		if node.Mesh < 0 || node.Mesh >= len(st.Meshes) {
			logger.L().Warn("weights channel targets a node without mesh",
				zap.String("stage", "animations"), zap.Int("node", ni))
			return nil
		}
		wc := len(st.Meshes[node.Mesh].BlendWeights)
		if wc == 0 {
			return nil
		}
		values, err := st.Store.DecodeFloats(output, false)
		if err != nil {
			return err
		}
		perKey := 1
		if interp.Tangent() {
			perKey = 3
		}
		if len(values) != len(times)*perKey*wc {
			logger.L().Warn("weights channel size mismatch", zap.String("stage", "animations"),
				zap.Int("node", ni), zap.Int("values", len(values)), zap.Int("expected", len(times)*perKey*wc))
			utils.StatusWarnf("node %d: weights channel has %d values, expected %d", ni, len(values), len(times)*perKey*wc)
			return nil
		}
		wlen := len(values) / wc
		channels := make([]state.Channel[float32], wc)
		for k := range channels {
			data := make([]float32, wlen)
			for l := range data {
				data[l] = values[l*wc+k]
			}
			channels[k] = state.Channel[float32]{Interpolation: interp, Times: times, Values: data}
		}
		anim.Track(ni).Weights = channels
	default:
		logger.L().Warn("unsupported animation path", zap.String("stage", "animations"), zap.String("path", path))
		utils.StatusWarnf("unsupported animation path %q", path)
	}
	return nil
}
