package scene

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

type TrackType int

const (
	TrackPosition TrackType = iota
	TrackRotation
	TrackScale
	TrackBlendShape
	// generic property track keyed with Vec3 values, path ends with :position, :rotation or :scale
	TrackValue
	// one float property curve with handles, path ends with e.g. :position:x
	TrackBezier
)

type Interpolation int

const (
	InterpolationNearest Interpolation = iota
	InterpolationLinear
	InterpolationCubic
)

type BezierKey struct {
	Value     float32
	InHandle  mgl32.Vec2
	OutHandle mgl32.Vec2
}

type Track struct {
	Type          TrackType
	Path          string
	Interpolation Interpolation
	Enabled       bool

	Times  []float32
	Vec3s  []mgl32.Vec3
	Quats  []mgl32.Quat
	Floats []float32
	Bezier []BezierKey
}

func (t *Track) KeyCount() int { return len(t.Times) }

func (t *Track) insertAt(time float32) int {
	i := sort.Search(len(t.Times), func(i int) bool { return t.Times[i] > time })
	t.Times = append(t.Times, 0)
	copy(t.Times[i+1:], t.Times[i:])
	t.Times[i] = time
	return i
}

func (t *Track) InsertVec3(time float32, v mgl32.Vec3) {
	i := t.insertAt(time)
	t.Vec3s = append(t.Vec3s, mgl32.Vec3{})
	copy(t.Vec3s[i+1:], t.Vec3s[i:])
	t.Vec3s[i] = v
}

func (t *Track) InsertQuat(time float32, q mgl32.Quat) {
	i := t.insertAt(time)
	t.Quats = append(t.Quats, mgl32.Quat{})
	copy(t.Quats[i+1:], t.Quats[i:])
	t.Quats[i] = q
}

func (t *Track) InsertFloat(time float32, f float32) {
	i := t.insertAt(time)
	t.Floats = append(t.Floats, 0)
	copy(t.Floats[i+1:], t.Floats[i:])
	t.Floats[i] = f
}

func (t *Track) InsertBezier(time float32, k BezierKey) {
	i := t.insertAt(time)
	t.Bezier = append(t.Bezier, BezierKey{})
	copy(t.Bezier[i+1:], t.Bezier[i:])
	t.Bezier[i] = k
}

// span finds the key at or before time and the blend factor to the next one.
func (t *Track) span(time float32) (int, int, float32) {
	n := len(t.Times)
	if n == 0 {
		return -1, -1, 0
	}
	if time <= t.Times[0] {
		return 0, 0, 0
	}
	if time >= t.Times[n-1] {
		return n - 1, n - 1, 0
	}
	i := sort.Search(n, func(i int) bool { return t.Times[i] > time }) - 1
	d := t.Times[i+1] - t.Times[i]
	if d <= 0 {
		return i, i + 1, 0
	}
	return i, i + 1, (time - t.Times[i]) / d
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func cubicVec3(p0, p1, p2, p3 mgl32.Vec3, c float32) mgl32.Vec3 {
	c2 := c * c
	c3 := c2 * c
	return p1.Mul(2).
		Add(p2.Sub(p0).Mul(c)).
		Add(p0.Mul(2).Sub(p1.Mul(5)).Add(p2.Mul(4)).Sub(p3).Mul(c2)).
		Add(p1.Mul(3).Sub(p0).Sub(p2.Mul(3)).Add(p3).Mul(c3)).
		Mul(0.5)
}

func (t *Track) Vec3At(time float32) mgl32.Vec3 {
	a, b, c := t.span(time)
	if a < 0 {
		return mgl32.Vec3{}
	}
	switch {
	case a == b || t.Interpolation == InterpolationNearest:
		return t.Vec3s[a]
	case t.Interpolation == InterpolationCubic:
		n := len(t.Vec3s)
		return cubicVec3(t.Vec3s[clampIndex(a-1, n)], t.Vec3s[a], t.Vec3s[b], t.Vec3s[clampIndex(b+1, n)], c)
	default:
		return t.Vec3s[a].Add(t.Vec3s[b].Sub(t.Vec3s[a]).Mul(c))
	}
}

// QuatAt samples rotations, cubic tracks fall back to slerp.
func (t *Track) QuatAt(time float32) mgl32.Quat {
	a, b, c := t.span(time)
	if a < 0 {
		return mgl32.QuatIdent()
	}
	if a == b || t.Interpolation == InterpolationNearest {
		return t.Quats[a]
	}
	return mgl32.QuatSlerp(t.Quats[a], t.Quats[b], c).Normalize()
}

func (t *Track) FloatAt(time float32) float32 {
	a, b, c := t.span(time)
	if a < 0 {
		return 0
	}
	if a == b || t.Interpolation == InterpolationNearest {
		return t.Floats[a]
	}
	return t.Floats[a] + (t.Floats[b]-t.Floats[a])*c
}

func bezierPoint(p0, p1, p2, p3, s float32) float32 {
	is := 1 - s
	return is*is*is*p0 + 3*is*is*s*p1 + 3*is*s*s*p2 + s*s*s*p3
}

// BezierAt evaluates the handle curve, solving the time axis by bisection.
func (t *Track) BezierAt(time float32) float32 {
	a, b, _ := t.span(time)
	if a < 0 {
		return 0
	}
	if a == b {
		return t.Bezier[a].Value
	}
	t0, t1 := t.Times[a], t.Times[b]
	k0, k1 := t.Bezier[a], t.Bezier[b]

	x1 := t0 + k0.OutHandle[0]
	x2 := t1 + k1.InHandle[0]
	lo, hi := float32(0), float32(1)
	s := float32(0.5)
	for i := 0; i < 24; i++ {
		s = (lo + hi) / 2
		if bezierPoint(t0, x1, x2, t1, s) < time {
			lo = s
		} else {
			hi = s
		}
	}
	return bezierPoint(k0.Value, k0.Value+k0.OutHandle[1], k1.Value+k1.InHandle[1], k1.Value, s)
}

type Animation struct {
	Name   string
	Length float32
	Loop   bool
	Tracks []*Track
}

func (a *Animation) AddTrack(tt TrackType, path string) *Track {
	t := &Track{Type: tt, Path: path, Interpolation: InterpolationLinear, Enabled: true}
	a.Tracks = append(a.Tracks, t)
	return t
}

func (a *Animation) FindTrack(path string, tt TrackType) *Track {
	for _, t := range a.Tracks {
		if t.Type == tt && t.Path == path {
			return t
		}
	}
	return nil
}

type AnimationLibrary struct {
	names      []string
	animations map[string]*Animation
}

func NewAnimationLibrary() *AnimationLibrary {
	return &AnimationLibrary{animations: make(map[string]*Animation)}
}

func (l *AnimationLibrary) Add(a *Animation) {
	if _, ok := l.animations[a.Name]; !ok {
		l.names = append(l.names, a.Name)
	}
	l.animations[a.Name] = a
}

func (l *AnimationLibrary) Get(name string) *Animation { return l.animations[name] }

// Names in insertion order
func (l *AnimationLibrary) Names() []string { return l.names }

type AnimationPlayer struct {
	Libraries map[string]*AnimationLibrary
}

func NewAnimationPlayer() *AnimationPlayer {
	return &AnimationPlayer{Libraries: make(map[string]*AnimationLibrary)}
}

// Library returns the named library, creating it when missing.
func (p *AnimationPlayer) Library(name string) *AnimationLibrary {
	l, ok := p.Libraries[name]
	if !ok {
		l = NewAnimationLibrary()
		p.Libraries[name] = l
	}
	return l
}

// LibraryNames returns library names sorted, "" first.
func (p *AnimationPlayer) LibraryNames() []string {
	names := make([]string, 0, len(p.Libraries))
	for n := range p.Libraries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
