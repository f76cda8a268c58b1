// Package skeleton resolves skin joint lists into skeleton trees and host
// skins. All failures are topology errors that abort the whole document.
package skeleton

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/mogaika/scenedoc/errs"
	"github.com/mogaika/scenedoc/state"
	"github.com/mogaika/scenedoc/utils/disjointset"
	"github.com/mogaika/scenedoc/utils/logger"
)

// FindHighestNode returns the member of subset closest to a scene root.
// Nodes of equal height resolve to the lowest index. -1 for an empty subset.
func FindHighestNode(st *state.State, subset []int) int {
	best := -1
	for _, i := range subset {
		if best == -1 {
			best = i
			continue
		}
		h, bh := st.Nodes[i].Height, st.Nodes[best].Height
		if h < bh || (h == bh && i < best) {
			best = i
		}
	}
	return best
}

// ParseSkins reads doc.Skins into st.Skins, tags joint nodes and expands
// every skin. Node heights must already be computed.
func ParseSkins(st *state.State, doc *gltf.Document) error {
	for i, s := range doc.Skins {
		if len(s.Joints) == 0 {
			return errs.Malformed("skin %d has no joints", i)
		}
		skin := state.NewSkin()

		if s.InverseBindMatrices != nil {
			ibm, err := st.Store.DecodeXforms(int(*s.InverseBindMatrices), false)
			if err != nil {
				return err
			}
			if len(ibm) != len(s.Joints) {
				return errs.Malformed("skin %d has %d inverse bind matrices for %d joints", i, len(ibm), len(s.Joints))
			}
			skin.InverseBinds = ibm
		}

		for _, j := range s.Joints {
			n, err := st.Node(int(j))
			if err != nil {
				return err
			}
			skin.Joints = append(skin.Joints, int(j))
			skin.JointsOriginal = append(skin.JointsOriginal, int(j))
			n.Joint = true
		}

		if s.Name != "" {
			skin.Name = s.Name
		} else {
			skin.Name = fmt.Sprintf("skin_%d", i)
		}
		if s.Skeleton != nil {
			skin.SkinRoot = int(*s.Skeleton)
		}
		st.Skins = append(st.Skins, skin)
	}

	for i, skin := range st.Skins {
		if err := ExpandSkin(st, skin); err != nil {
			return err
		}
		if err := VerifySkin(st, skin); err != nil {
			return errors.Wrapf(err, "skin %d", i)
		}
	}

	logger.L().Debug("parsed skins", zap.String("stage", "skins"), zap.Int("count", len(st.Skins)))
	return nil
}

// classify records node in the joint list when it is a joint, otherwise in
// the non joint list. Existing entries are left alone.
func classify(st *state.State, skin *state.Skin, node int) {
	if st.Nodes[node].Joint {
		if !skin.HasJoint(node) {
			skin.Joints = append(skin.Joints, node)
		}
	} else if !skin.HasNonJoint(node) {
		skin.NonJoints = append(skin.NonJoints, node)
	}
}

// captureNodesInSkin walks the subtree of node and records every node that
// leads to a joint of skin. Reports whether node itself is a joint of skin.
func captureNodesInSkin(st *state.State, skin *state.Skin, node int) bool {
	found := false
	for _, c := range st.Nodes[node].Children {
		if captureNodesInSkin(st, skin, c) {
			found = true
		}
	}
	if found {
		classify(st, skin, node)
	}
	return skin.HasJoint(node)
}

// captureNodesForMultirootedSkin lifts separate joint subtrees of a skin up
// to a common height and then to a common parent, recording every ancestor
// it climbs through.
func captureNodesForMultirootedSkin(st *state.State, skin *state.Skin) {
	set := disjointset.New()
	for _, j := range skin.Joints {
		set.Insert(j)
		if p := st.Nodes[j].Parent; p >= 0 && skin.HasJoint(p) {
			set.Union(p, j)
		}
	}

	groups := set.Groups()
	if len(groups) <= 1 {
		return
	}
	roots := make([]int, len(groups))
	for i, g := range groups {
		roots[i] = FindHighestNode(st, g)
	}

	minHeight := -1
	for _, r := range roots {
		if h := st.Nodes[r].Height; minHeight == -1 || h < minHeight {
			minHeight = h
		}
	}

	for i, r := range roots {
		for st.Nodes[r].Height > minHeight {
			p := st.Nodes[r].Parent
			classify(st, skin, p)
			r = p
		}
		roots[i] = r
	}

	for {
		parent := st.Nodes[roots[0]].Parent
		same := true
		for _, r := range roots[1:] {
			if st.Nodes[r].Parent != parent {
				same = false
				break
			}
		}
		if same {
			return
		}
		for i, r := range roots {
			p := st.Nodes[r].Parent
			classify(st, skin, p)
			roots[i] = p
		}
	}
}

// skinRoots unions every joint and non joint of skin with its parent and
// returns the sorted highest node of each resulting group.
func skinRoots(st *state.State, skin *state.Skin) ([]int, error) {
	all := make([]int, 0, len(skin.Joints)+len(skin.NonJoints))
	all = append(all, skin.Joints...)
	all = append(all, skin.NonJoints...)
	member := make(map[int]bool, len(all))
	for _, n := range all {
		member[n] = true
	}

	set := disjointset.New()
	for _, n := range all {
		set.Insert(n)
		if p := st.Nodes[n].Parent; p >= 0 && member[p] {
			set.Union(p, n)
		}
	}

	roots := make([]int, 0)
	for _, group := range set.Groups() {
		root := FindHighestNode(st, group)
		if root < 0 {
			return nil, errs.Topo("skin %q has an empty node group", skin.Name)
		}
		roots = append(roots, root)
	}
	sort.Ints(roots)
	return roots, nil
}

// ExpandSkin captures the non joint nodes lying between the joints of skin
// and levels multi rooted skins so all roots share one parent.
func ExpandSkin(st *state.State, skin *state.Skin) error {
	captureNodesForMultirootedSkin(st, skin)

	roots, err := skinRoots(st, skin)
	if err != nil {
		return err
	}
	for _, r := range roots {
		captureNodesInSkin(st, skin, r)
	}
	skin.Roots = roots
	return nil
}

// VerifySkin recomputes the roots of an expanded skin and checks them
// against the stored ones.
func VerifySkin(st *state.State, skin *state.Skin) error {
	roots, err := skinRoots(st, skin)
	if err != nil {
		return err
	}
	if len(roots) == 0 {
		return errs.Topo("skin %q has no roots", skin.Name)
	}
	if len(roots) != len(skin.Roots) {
		return errs.Topo("skin %q root count changed from %d to %d", skin.Name, len(skin.Roots), len(roots))
	}
	for i := range roots {
		if roots[i] != skin.Roots[i] {
			return errs.Topo("skin %q root %d changed from node %d to %d", skin.Name, i, skin.Roots[i], roots[i])
		}
	}
	return checkSiblingRoots(st, roots, "skin "+skin.Name)
}

func checkSiblingRoots(st *state.State, roots []int, what string) error {
	if len(roots) <= 1 {
		return nil
	}
	parent := st.Nodes[roots[0]].Parent
	for _, r := range roots[1:] {
		if st.Nodes[r].Parent != parent {
			return errs.Topo("%s roots %d and %d do not share a parent", what, roots[0], r)
		}
	}
	return nil
}

func identityBinds(n int) []mgl32.Mat4 {
	binds := make([]mgl32.Mat4, n)
	for i := range binds {
		binds[i] = mgl32.Ident4()
	}
	return binds
}
