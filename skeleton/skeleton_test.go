package skeleton

import (
	"fmt"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/scenedoc/errs"
	"github.com/mogaika/scenedoc/state"
)

func tree(t *testing.T, children ...[]int) *state.State {
	st := state.New()
	for i, c := range children {
		n := state.NewNode()
		n.Name = fmt.Sprintf("n%d", i)
		n.Children = c
		st.Nodes = append(st.Nodes, n)
	}
	require.NoError(t, st.BuildParentHierarchy())
	require.NoError(t, st.ComputeNodeHeights())
	return st
}

func skinsDoc(joints ...[]uint32) *gltf.Document {
	doc := &gltf.Document{}
	for _, j := range joints {
		doc.Skins = append(doc.Skins, &gltf.Skin{Joints: j})
	}
	return doc
}

func boneNames(sk *state.Skeleton) []string {
	names := make([]string, 0)
	for _, b := range sk.HostSkeleton.Bones.Bones {
		names = append(names, b.Name)
	}
	return names
}

func TestFindHighestNodeTieBreak(t *testing.T) {
	st := tree(t, []int{1, 2}, nil, nil)
	assert.Equal(t, 1, FindHighestNode(st, []int{2, 1}))
	assert.Equal(t, 0, FindHighestNode(st, []int{2, 0, 1}))
	assert.Equal(t, -1, FindHighestNode(st, nil))
}

func TestSkipLevelNonJoint(t *testing.T) {
	// 0 -> 1 -> 2, 0 -> 3; joints 0, 3, 2
	st := tree(t, []int{1, 3}, []int{2}, nil, nil)
	require.NoError(t, ParseSkins(st, skinsDoc([]uint32{0, 3, 2})))

	skin := st.Skins[0]
	assert.Equal(t, []int{1}, skin.NonJoints)
	assert.Equal(t, []int{0}, skin.Roots)
	assert.Equal(t, "skin_0", skin.Name)

	require.NoError(t, Resolve(st))
	require.Len(t, st.Skeletons, 1)
	sk := st.Skeletons[0]
	assert.Equal(t, []int{0}, sk.Roots)
	assert.Equal(t, []string{"n0", "n1", "n2", "n3"}, boneNames(sk))
	assert.True(t, st.Nodes[1].Joint)

	bones := sk.HostSkeleton.Bones
	assert.Equal(t, -1, bones.Bones[0].Parent)
	assert.Equal(t, 0, bones.Bones[1].Parent)
	assert.Equal(t, 1, bones.Bones[2].Parent)
	assert.Equal(t, 0, bones.Bones[3].Parent)

	assert.Equal(t, map[int]int{0: 0, 1: 3, 2: 2}, skin.JointIToBoneI)
	assert.Equal(t, []int{0, 3, 2}, skin.HostSkin.Resolve(bones))
}

func TestMultiRootLeveling(t *testing.T) {
	// 0 -> 1 -> 3 -> 4, 0 -> 2 -> 5; joints 4 and 5
	st := tree(t, []int{1, 2}, []int{3}, []int{5}, []int{4}, nil, nil)
	require.NoError(t, ParseSkins(st, skinsDoc([]uint32{4, 5})))

	skin := st.Skins[0]
	assert.Equal(t, []int{1, 2}, skin.Roots)
	assert.ElementsMatch(t, []int{1, 2, 3}, skin.NonJoints)
	for _, r := range skin.Roots {
		assert.Equal(t, 0, st.Nodes[r].Parent)
	}

	require.NoError(t, Resolve(st))
	require.Len(t, st.Skeletons, 1)
	assert.Equal(t, []int{1, 2}, st.Skeletons[0].Roots)
	assert.Equal(t, -1, st.Nodes[0].Skeleton)
}

func TestPartition(t *testing.T) {
	// 0 -> 1 -> 2, 0 -> 4 -> 5 -> 6; skins on 1,2 and on 5,6
	st := tree(t, []int{1, 4}, []int{2}, nil, nil, []int{5}, []int{6}, nil)
	require.NoError(t, ParseSkins(st, skinsDoc([]uint32{1, 2}, []uint32{5, 6})))
	require.NoError(t, Resolve(st))

	require.Len(t, st.Skeletons, 2)
	assert.Equal(t, 0, st.Skins[0].Skeleton)
	assert.Equal(t, 1, st.Skins[1].Skeleton)

	owner := make(map[int]int)
	for skelI, sk := range st.Skeletons {
		for _, j := range sk.Joints {
			_, dup := owner[j]
			assert.False(t, dup, "joint %d owned twice", j)
			owner[j] = skelI
		}
	}
	for _, skin := range st.Skins {
		for _, n := range append(append([]int{}, skin.Joints...), skin.NonJoints...) {
			assert.Equal(t, skin.Skeleton, owner[n])
		}
	}
	assert.Equal(t, -1, st.Nodes[4].Skeleton)
}

func TestSiblingSkinsMerge(t *testing.T) {
	// 0 -> 1 -> 2, 0 -> 3 -> 4
	st := tree(t, []int{1, 3}, []int{2}, nil, []int{4}, nil)
	require.NoError(t, ParseSkins(st, skinsDoc([]uint32{1, 2}, []uint32{3, 4})))
	require.NoError(t, Resolve(st))

	require.Len(t, st.Skeletons, 1)
	assert.Equal(t, []int{1, 3}, st.Skeletons[0].Roots)
	assert.Equal(t, 0, st.Skins[1].Skeleton)
}

func TestDeterministicBoneOrder(t *testing.T) {
	build := func() []string {
		st := tree(t, []int{3, 1}, []int{2}, nil, []int{4}, nil)
		require.NoError(t, ParseSkins(st, skinsDoc([]uint32{4, 2, 0})))
		require.NoError(t, Resolve(st))
		return boneNames(st.Skeletons[0])
	}
	first := build()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, build())
	}
	assert.Equal(t, []string{"n0", "n1", "n2", "n3", "n4"}, first)
}

func TestDuplicateBoneNames(t *testing.T) {
	st := tree(t, []int{1}, nil)
	st.Nodes[0].Name = "hip"
	st.Nodes[1].Name = "hip"
	require.NoError(t, ParseSkins(st, skinsDoc([]uint32{0, 1})))
	require.NoError(t, Resolve(st))
	assert.Equal(t, []string{"hip", "hip_2"}, boneNames(st.Skeletons[0]))
}

func TestDoubleClaimRejected(t *testing.T) {
	st := tree(t, []int{1}, nil)
	require.NoError(t, ParseSkins(st, skinsDoc([]uint32{0, 1})))
	st.Nodes[1].Skeleton = 7
	err := DetermineSkeletons(st)
	assert.True(t, errs.Is(err, errs.Topology), "%v", err)
}

func TestVerifySkinMismatch(t *testing.T) {
	st := tree(t, []int{1}, nil)
	require.NoError(t, ParseSkins(st, skinsDoc([]uint32{0, 1})))
	st.Skins[0].Roots = []int{1}
	assert.True(t, errs.Is(VerifySkin(st, st.Skins[0]), errs.Topology))
}

func TestSkinWithoutJoints(t *testing.T) {
	st := tree(t, nil)
	err := ParseSkins(st, skinsDoc([]uint32{}))
	assert.True(t, errs.Is(err, errs.MalformedInput))

	st = tree(t, nil)
	err = ParseSkins(st, skinsDoc([]uint32{3}))
	assert.True(t, errs.Is(err, errs.MalformedInput))
}

func TestSkinDedupAndBinds(t *testing.T) {
	st := tree(t, []int{1}, nil)
	require.NoError(t, ParseSkins(st, skinsDoc([]uint32{0, 1}, []uint32{0, 1})))
	require.NoError(t, Resolve(st))

	a, b := st.Skins[0].HostSkin, st.Skins[1].HostSkin
	assert.Same(t, a, b)
	assert.Equal(t, "Skin", a.Name)
	assert.Equal(t, mgl32.Ident4(), a.Binds[1].Pose)
	assert.Equal(t, 1, a.Binds[1].Bone)

	st = tree(t, []int{1}, nil)
	st.UseNamedSkinBinds = true
	require.NoError(t, ParseSkins(st, skinsDoc([]uint32{1, 0})))
	require.NoError(t, Resolve(st))
	assert.Equal(t, "n1", st.Skins[0].HostSkin.Binds[0].Name)
	assert.Equal(t, []int{1, 0}, st.Skins[0].HostSkin.Resolve(st.Skeletons[0].HostSkeleton.Bones))
}
