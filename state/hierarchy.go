package state

import (
	"github.com/mogaika/scenedoc/errs"
)

// BuildParentHierarchy assigns parents from children lists. A node listed as
// child twice, or of itself, is rejected so later tree walks need no cycle checks.
func (st *State) BuildParentHierarchy() error {
	for _, n := range st.Nodes {
		n.Parent = -1
	}
	for i, n := range st.Nodes {
		for _, c := range n.Children {
			if c < 0 || c >= len(st.Nodes) {
				return errs.Malformed("node %d child %d out of range", i, c)
			}
			if c == i {
				return errs.Topo("node %d is its own child", i)
			}
			if st.Nodes[c].Parent != -1 {
				return errs.Topo("node %d has two parents (%d and %d)", c, st.Nodes[c].Parent, i)
			}
			st.Nodes[c].Parent = i
		}
	}
	return nil
}

// ComputeNodeHeights sets every node height to its ancestor count and
// recomputes RootNodes as the height zero nodes.
func (st *State) ComputeNodeHeights() error {
	st.RootNodes = st.RootNodes[:0]
	for i, n := range st.Nodes {
		n.Height = 0
		for p := n.Parent; p >= 0; p = st.Nodes[p].Parent {
			n.Height++
			if n.Height > len(st.Nodes) {
				return errs.Topo("node %d is part of a parent cycle", i)
			}
		}
		if n.Height == 0 {
			st.RootNodes = append(st.RootNodes, i)
		}
	}
	return nil
}

// AddNode appends n under parent (-1 for a root) and returns its index.
// Heights must be recomputed afterwards.
func (st *State) AddNode(n *Node, parent int) int {
	idx := len(st.Nodes)
	st.Nodes = append(st.Nodes, n)
	n.Parent = parent
	if parent >= 0 {
		st.Nodes[parent].Children = append(st.Nodes[parent].Children, idx)
	}
	return idx
}
