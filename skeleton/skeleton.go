package skeleton

import (
	"sort"

	"go.uber.org/zap"

	"github.com/mogaika/scenedoc/errs"
	"github.com/mogaika/scenedoc/scene"
	"github.com/mogaika/scenedoc/state"
	"github.com/mogaika/scenedoc/utils/disjointset"
	"github.com/mogaika/scenedoc/utils/logger"
)

// recurseChildren adds node and its descendants to all. Skinned mesh leaves
// are left out.
func recurseChildren(st *state.State, node int, all map[int]bool, visited map[int]bool) {
	if visited[node] {
		return
	}
	visited[node] = true
	n := st.Nodes[node]
	for _, c := range n.Children {
		recurseChildren(st, c, all, visited)
	}
	if n.Skin < 0 || n.Mesh < 0 || len(n.Children) != 0 {
		all[node] = true
	}
}

func sortedKeys(m map[int]bool) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// DetermineSkeletons partitions the nodes of all skins into skeletons.
// Skins sharing nodes, sibling roots or a parent edge end up in one skeleton.
func DetermineSkeletons(st *state.State) error {
	sets := disjointset.New()

	for _, skin := range st.Skins {
		visited := make(map[int]bool)
		all := make(map[int]bool)
		for _, j := range skin.Joints {
			all[j] = true
			recurseChildren(st, j, all, visited)
		}
		for _, j := range skin.NonJoints {
			all[j] = true
			recurseChildren(st, j, all, visited)
		}
		for _, n := range sortedKeys(all) {
			sets.Insert(n)
			if p := st.Nodes[n].Parent; p >= 0 && all[p] {
				sets.Union(p, n)
			}
		}
		for i := 1; i < len(skin.Roots); i++ {
			sets.Union(skin.Roots[0], skin.Roots[i])
		}
	}

	// join groups touching each other through siblings or a parent edge
	groups := sets.Groups()
	highest := make([]int, len(groups))
	for i, g := range groups {
		highest[i] = FindHighestNode(st, g)
	}
	for i, ni := range highest {
		for j := i + 1; j < len(highest); j++ {
			if st.Nodes[ni].Parent == st.Nodes[highest[j]].Parent {
				sets.Union(ni, highest[j])
			}
		}
		parent := st.Nodes[ni].Parent
		if parent < 0 {
			continue
		}
		for j, g := range groups {
			if j != i && containsSorted(g, parent) {
				sets.Union(ni, highest[j])
			}
		}
	}

	for skelI, members := range sets.Groups() {
		sk := state.NewSkeleton()

		for _, skin := range st.Skins {
			for _, n := range members {
				if skin.HasJoint(n) || skin.HasNonJoint(n) {
					skin.Skeleton = skelI
					break
				}
			}
		}

		nonJoints := make([]int, 0)
		for _, n := range members {
			if st.Nodes[n].Joint {
				sk.Joints = append(sk.Joints, n)
			} else {
				nonJoints = append(nonJoints, n)
			}
		}
		st.Skeletons = append(st.Skeletons, sk)
		reparentNonJointSkeletonSubtrees(st, sk, nonJoints)
	}

	for skelI, sk := range st.Skeletons {
		for _, n := range sk.Joints {
			node := st.Nodes[n]
			if !node.Joint {
				return errs.Topo("skeleton %d member %d is not a joint", skelI, n)
			}
			if node.Skeleton >= 0 {
				return errs.Topo("node %d claimed by skeletons %d and %d", n, node.Skeleton, skelI)
			}
			node.Skeleton = skelI
		}
		if err := determineSkeletonRoots(st, skelI); err != nil {
			return err
		}
	}

	logger.L().Debug("determined skeletons", zap.String("stage", "skeletons"), zap.Int("count", len(st.Skeletons)))
	return nil
}

func containsSorted(list []int, v int) bool {
	i := sort.SearchInts(list, v)
	return i < len(list) && list[i] == v
}

// reparentNonJointSkeletonSubtrees turns every non joint subtree inside a
// skeleton into joints, so bones can be generated for the nodes between
// joints of the same skin.
func reparentNonJointSkeletonSubtrees(st *state.State, sk *state.Skeleton, nonJoints []int) {
	member := make(map[int]bool, len(nonJoints))
	for _, n := range nonJoints {
		member[n] = true
	}

	set := disjointset.New()
	for _, n := range nonJoints {
		set.Insert(n)
		if p := st.Nodes[n].Parent; p >= 0 && member[p] && !st.Nodes[p].Joint {
			set.Union(p, n)
		}
	}

	for _, subtree := range set.Groups() {
		for _, n := range subtree {
			st.Nodes[n].Joint = true
			sk.Joints = append(sk.Joints, n)
		}
	}
}

func determineSkeletonRoots(st *state.State, skelI int) error {
	set := disjointset.New()
	for i, n := range st.Nodes {
		if n.Skeleton != skelI {
			continue
		}
		set.Insert(i)
		if n.Parent >= 0 && st.Nodes[n.Parent].Skeleton == skelI {
			set.Union(n.Parent, i)
		}
	}

	roots := make([]int, 0)
	for _, g := range set.Groups() {
		roots = append(roots, FindHighestNode(st, g))
	}
	sort.Ints(roots)
	st.Skeletons[skelI].Roots = roots

	if len(roots) == 0 {
		return errs.Topo("skeleton %d has no roots", skelI)
	}
	return checkSiblingRoots(st, roots, "skeleton")
}

// CreateSkeletons generates a host skeleton per resolved skeleton. Bones are
// numbered depth first from the sorted roots, children visited in ascending
// node order, so repeated imports give the same bone indices.
func CreateSkeletons(st *state.State) error {
	for skelI, sk := range st.Skeletons {
		host := scene.NewNode(state.SkeletonNodeName, scene.KindSkeleton)
		sk.HostSkeleton = host
		bones := host.Bones

		queue := append([]int(nil), sk.Roots...)
		sort.Ints(queue)

		for len(queue) > 0 {
			ni := queue[0]
			queue = queue[1:]

			node := st.Nodes[ni]
			if node.Skeleton != skelI {
				return errs.Topo("node %d reached from skeleton %d belongs to skeleton %d", ni, skelI, node.Skeleton)
			}

			children := make([]int, 0, len(node.Children))
			for _, c := range node.Children {
				if st.Nodes[c].Skeleton == skelI {
					children = append(children, c)
				}
			}
			sort.Ints(children)
			queue = append(children, queue...)

			node.Name = st.GenUniqueBoneName(skelI, node.Name)

			bone := bones.AddBone(node.Name)
			bones.Bones[bone].Rest = node.Xform
			bones.Bones[bone].Pose = scene.Transform{
				Translation: node.Translation,
				Rotation:    node.Rotation.Normalize(),
				Scale:       node.Scale,
			}

			if node.Parent >= 0 && st.Nodes[node.Parent].Skeleton == skelI {
				parent := bones.FindBone(st.Nodes[node.Parent].Name)
				if parent < 0 {
					return errs.Topo("bone %q has no parent bone %q", node.Name, st.Nodes[node.Parent].Name)
				}
				bones.SetBoneParent(bone, parent)
			}

			sk.BoneNode[bone] = ni
			st.SceneNodes[ni] = host
		}
	}

	return mapSkinJointsIndicesToSkeletonBoneIndices(st)
}

func mapSkinJointsIndicesToSkeletonBoneIndices(st *state.State) error {
	for skinI, skin := range st.Skins {
		if skin.Skeleton < 0 || skin.Skeleton >= len(st.Skeletons) {
			return errs.Topo("skin %d resolved to no skeleton", skinI)
		}
		bones := st.Skeletons[skin.Skeleton].HostSkeleton.Bones
		for jointI, ni := range skin.JointsOriginal {
			name := st.Nodes[ni].Name
			bone := bones.FindBone(name)
			if bone < 0 {
				return errs.Topo("skin %d joint %d (%q) has no bone", skinI, jointI, name)
			}
			skin.JointIToBoneI[jointI] = bone
			skin.JointIToName[jointI] = name
		}
	}
	return nil
}
