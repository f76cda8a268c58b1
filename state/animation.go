package state

import (
	"github.com/go-gl/mathgl/mgl32"
)

type Interpolation int

const (
	InterpolationLinear Interpolation = iota
	InterpolationStep
	InterpolationCatmullRom
	InterpolationCubicSpline
)

func ParseInterpolation(s string) Interpolation {
	switch s {
	case "STEP":
		return InterpolationStep
	case "CATMULLROMSPLINE":
		return InterpolationCatmullRom
	case "CUBICSPLINE":
		return InterpolationCubicSpline
	default:
		return InterpolationLinear
	}
}

func (i Interpolation) String() string {
	switch i {
	case InterpolationStep:
		return "STEP"
	case InterpolationCatmullRom:
		return "CATMULLROMSPLINE"
	case InterpolationCubicSpline:
		return "CUBICSPLINE"
	default:
		return "LINEAR"
	}
}

// Tangent reports whether values hold in-tangent, value, out-tangent triplets.
func (i Interpolation) Tangent() bool {
	return i == InterpolationCatmullRom || i == InterpolationCubicSpline
}

type Channel[T any] struct {
	Interpolation Interpolation
	Times         []float32
	Values        []T
}

func (c *Channel[T]) Empty() bool { return len(c.Times) == 0 }

type Track struct {
	Position Channel[mgl32.Vec3]
	Rotation Channel[mgl32.Quat]
	Scale    Channel[mgl32.Vec3]
	Weights  []Channel[float32]
}

type Animation struct {
	Name string
	Loop bool
	// keyed by node index
	Tracks map[int]*Track
}

func NewAnimation(name string) *Animation {
	return &Animation{Name: name, Tracks: make(map[int]*Track)}
}

// Track returns the track of node, creating it when missing.
func (a *Animation) Track(node int) *Track {
	t, ok := a.Tracks[node]
	if !ok {
		t = &Track{}
		a.Tracks[node] = t
	}
	return t
}
