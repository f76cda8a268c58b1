// Package animation converts keyframe channels between the document model
// and host animation tracks.
package animation

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/mogaika/scenedoc/state"
	"github.com/mogaika/scenedoc/utils"
	"github.com/mogaika/scenedoc/utils/logger"
)

// Lerper supplies the arithmetic Interpolate needs for a value type.
type Lerper[T any] interface {
	Add(a, b T) T
	Sub(a, b T) T
	Scale(a T, s float32) T
}

type Vec3Ops struct{}

func (Vec3Ops) Add(a, b mgl32.Vec3) mgl32.Vec3          { return a.Add(b) }
func (Vec3Ops) Sub(a, b mgl32.Vec3) mgl32.Vec3          { return a.Sub(b) }
func (Vec3Ops) Scale(a mgl32.Vec3, s float32) mgl32.Vec3 { return a.Mul(s) }

type FloatOps struct{}

func (FloatOps) Add(a, b float32) float32       { return a + b }
func (FloatOps) Sub(a, b float32) float32       { return a - b }
func (FloatOps) Scale(a float32, s float32) float32 { return a * s }

// keyIndex is the last key with time <= t, -1 before the first key.
func keyIndex(times []float32, t float32) int {
	return sort.Search(len(times), func(i int) bool { return times[i] > t }) - 1
}

func blend(times []float32, idx int, t float32) float32 {
	d := times[idx+1] - times[idx]
	if d <= 0 {
		return 0
	}
	return (t - times[idx]) / d
}

func lerp[T any](ops Lerper[T], a, b T, c float32) T {
	return ops.Add(a, ops.Scale(ops.Sub(b, a), c))
}

func catmullRom[T any](ops Lerper[T], p0, p1, p2, p3 T, c float32) T {
	c2 := c * c
	c3 := c2 * c
	r := ops.Scale(p1, 2)
	r = ops.Add(r, ops.Scale(ops.Sub(p2, p0), c))
	a := ops.Add(ops.Sub(ops.Scale(p0, 2), ops.Scale(p1, 5)), ops.Sub(ops.Scale(p2, 4), p3))
	r = ops.Add(r, ops.Scale(a, c2))
	b := ops.Add(ops.Sub(ops.Scale(p1, 3), p0), ops.Sub(p3, ops.Scale(p2, 3)))
	r = ops.Add(r, ops.Scale(b, c3))
	return ops.Scale(r, 0.5)
}

func bezier[T any](ops Lerper[T], p0, p1, p2, p3 T, c float32) T {
	ic := 1 - c
	r := ops.Scale(p0, ic*ic*ic)
	r = ops.Add(r, ops.Scale(p1, 3*ic*ic*c))
	r = ops.Add(r, ops.Scale(p2, 3*ic*c*c))
	return ops.Add(r, ops.Scale(p3, c*c*c))
}

func sizeMismatch(times int, values int, interp state.Interpolation) bool {
	if interp.Tangent() {
		return times != values/3 || values%3 != 0
	}
	return times != values
}

func warnMismatch(times, values int, interp state.Interpolation) {
	logger.L().Warn("animation channel size mismatch",
		zap.String("stage", "animations"),
		zap.Int("times", times), zap.Int("values", values),
		zap.Stringer("interpolation", interp))
	utils.StatusWarnf("animation channel has %d times for %d %v values", times, values, interp)
}

// Interpolate samples a channel at time t. Tangent interpolations expect
// in-tangent, value, out-tangent triplets per key.
func Interpolate[T any](ops Lerper[T], times []float32, values []T, t float32, interp state.Interpolation) T {
	var zero T
	if len(values) == 0 {
		return zero
	}
	if len(times) == 0 || sizeMismatch(len(times), len(values), interp) {
		warnMismatch(len(times), len(values), interp)
		return values[0]
	}

	n := len(times)
	center := func(i int) T {
		if interp.Tangent() {
			return values[i*3+1]
		}
		return values[i]
	}
	idx := keyIndex(times, t)
	if idx < 0 {
		return center(0)
	}
	if idx >= n-1 {
		return center(n - 1)
	}
	c := blend(times, idx, t)

	switch interp {
	case state.InterpolationStep:
		return values[idx]
	case state.InterpolationCatmullRom:
		p0 := center(idx)
		if idx > 0 {
			p0 = center(idx - 1)
		}
		p3 := center(idx + 1)
		if idx+2 < n {
			p3 = center(idx + 2)
		}
		return catmullRom(ops, p0, center(idx), center(idx+1), p3, c)
	case state.InterpolationCubicSpline:
		from := values[idx*3+1]
		c1 := ops.Add(from, values[idx*3+2])
		to := values[idx*3+4]
		c2 := ops.Add(to, values[idx*3+3])
		return bezier(ops, from, c1, c2, to, c)
	default:
		return lerp(ops, values[idx], values[idx+1], c)
	}
}

// Slerp takes the shortest arc and returns a unit quaternion.
func Slerp(a, b mgl32.Quat, c float32) mgl32.Quat {
	a, b = a.Normalize(), b.Normalize()
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl32.QuatSlerp(a, b, c).Normalize()
}

// InterpolateQuat samples a rotation channel. Spline interpolations degrade
// to slerp between the bracketing key values.
func InterpolateQuat(times []float32, values []mgl32.Quat, t float32, interp state.Interpolation) mgl32.Quat {
	if len(values) == 0 {
		return mgl32.QuatIdent()
	}
	if len(times) == 0 || sizeMismatch(len(times), len(values), interp) {
		warnMismatch(len(times), len(values), interp)
		return values[0]
	}

	n := len(times)
	center := func(i int) mgl32.Quat {
		if interp.Tangent() {
			return values[i*3+1]
		}
		return values[i]
	}
	idx := keyIndex(times, t)
	if idx < 0 {
		return center(0)
	}
	if idx >= n-1 {
		return center(n - 1)
	}
	if interp == state.InterpolationStep {
		return values[idx]
	}
	return Slerp(center(idx), center(idx+1), blend(times, idx, t))
}

// MaxBakeFrames bounds the samples BakeTimes produces for one range.
const MaxBakeFrames = 1 << 20

func finite(v float32) bool {
	return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0)
}

// BakeTimes steps from start to end by 1/fps, always ending on end. Non
// finite bounds yield no samples; ranges longer than MaxBakeFrames are
// sampled more coarsely.
func BakeTimes(start, end, fps float32) []float32 {
	if !finite(start) || !finite(end) {
		logger.L().Warn("can't bake non finite time range", zap.String("stage", "animations"),
			zap.Float32("start", start), zap.Float32("end", end))
		return nil
	}
	if fps <= 0 || !finite(fps) {
		fps = 30
	}
	step := 1 / float64(fps)
	length := float64(end) - float64(start)
	n := int64(0)
	if length > 0 {
		n = int64(math.Ceil(length*float64(fps) - 1e-6))
	}
	if n > MaxBakeFrames {
		logger.L().Warn("bake range too long, reducing rate", zap.String("stage", "animations"),
			zap.Float32("length", float32(length)), zap.Float32("fps", fps))
		n = MaxBakeFrames
		step = length / float64(n)
	}

	times := make([]float32, 0, n+1)
	for i := int64(0); i < n; i++ {
		times = append(times, float32(float64(start)+float64(i)*step))
	}
	return append(times, end)
}
