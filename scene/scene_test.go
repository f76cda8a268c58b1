package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodePaths(t *testing.T) {
	root := NewNode("Scene", KindSpatial)
	sk := NewNode("Skeleton3D", KindSkeleton)
	mesh := NewNode("body", KindMeshInstance)
	root.AddChild(sk)
	sk.AddChild(mesh)

	assert.Equal(t, ".", root.Path())
	assert.Equal(t, "Skeleton3D/body", mesh.Path())
	assert.Same(t, mesh, root.Find("Skeleton3D/body:blend"))
	assert.Same(t, sk, mesh.Find(".."))
	assert.Nil(t, root.Find("missing"))

	other := NewNode("other", KindSpatial)
	root.AddChild(other)
	other.AddChild(mesh)
	assert.Empty(t, sk.Children, "reparenting detaches from old parent")
	assert.Equal(t, "other/body", mesh.Path())
}

func TestSkeletonAndSkin(t *testing.T) {
	n := NewNode("Skeleton3D", KindSkeleton)
	require.NotNil(t, n.Bones)
	hip := n.Bones.AddBone("hip")
	leg := n.Bones.AddBone("leg")
	n.Bones.SetBoneParent(leg, hip)
	n.Bones.Bones[hip].Rest = mgl32.Translate3D(0, 1, 0)
	n.Bones.Bones[leg].Rest = mgl32.Translate3D(0, -0.5, 0)

	assert.Equal(t, 1, n.Bones.FindBone("leg"))
	assert.Equal(t, -1, n.Bones.FindBone("arm"))
	g := n.Bones.BoneGlobalRest(leg)
	assert.InDelta(t, 0.5, g.At(1, 3), 1e-6)

	skin := &Skin{}
	skin.AddBind(hip, mgl32.Ident4())
	skin.AddNamedBind("leg", mgl32.Ident4())
	assert.Equal(t, []int{0, 1}, skin.Resolve(n.Bones))
}

func TestTrackSampling(t *testing.T) {
	tr := &Track{Type: TrackPosition, Interpolation: InterpolationLinear}
	tr.InsertVec3(1, mgl32.Vec3{10, 0, 0})
	tr.InsertVec3(0, mgl32.Vec3{0, 0, 0})

	assert.Equal(t, []float32{0, 1}, tr.Times)
	assert.Equal(t, mgl32.Vec3{5, 0, 0}, tr.Vec3At(0.5))
	assert.Equal(t, mgl32.Vec3{10, 0, 0}, tr.Vec3At(3))

	tr.Interpolation = InterpolationNearest
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, tr.Vec3At(0.9))

	tr.Interpolation = InterpolationCubic
	assert.True(t, tr.Vec3At(0.5).ApproxEqualThreshold(mgl32.Vec3{5, 0, 0}, 1e-5))
}

func TestBezierTrack(t *testing.T) {
	tr := &Track{Type: TrackBezier}
	tr.InsertBezier(0, BezierKey{Value: 0, OutHandle: mgl32.Vec2{0.25, 0}})
	tr.InsertBezier(1, BezierKey{Value: 1, InHandle: mgl32.Vec2{-0.25, 0}})

	assert.InDelta(t, 0, tr.BezierAt(0), 1e-6)
	assert.InDelta(t, 0.5, tr.BezierAt(0.5), 1e-3)
	assert.InDelta(t, 1, tr.BezierAt(1), 1e-6)
	assert.Less(t, tr.BezierAt(0.1), float32(0.1), "ease in")
}

func TestAnimationLibrary(t *testing.T) {
	p := NewAnimationPlayer()
	lib := p.Library("")
	lib.Add(&Animation{Name: "walk"})
	lib.Add(&Animation{Name: "run"})
	lib.Add(&Animation{Name: "walk", Loop: true})

	assert.Equal(t, []string{"walk", "run"}, lib.Names())
	assert.True(t, lib.Get("walk").Loop)
	assert.Same(t, lib, p.Library(""))
	assert.Equal(t, []string{""}, p.LibraryNames())
}
