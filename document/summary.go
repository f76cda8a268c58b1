package document

import (
	"sort"

	"github.com/mogaika/scenedoc/state"
)

type NodeSummary struct {
	Name     string `json:"name"`
	Parent   int    `json:"parent"`
	Children []int  `json:"children,omitempty"`
	Mesh     int    `json:"mesh"`
	Skin     int    `json:"skin"`
	Skeleton int    `json:"skeleton"`
	Joint    bool   `json:"joint,omitempty"`
}

type SkinSummary struct {
	Name     string `json:"name"`
	Joints   int    `json:"joints"`
	Skeleton int    `json:"skeleton"`
}

type AnimationSummary struct {
	Name   string `json:"name"`
	Tracks int    `json:"tracks"`
	Loop   bool   `json:"loop,omitempty"`
}

// Summary is the inspection view of a parsed document.
type Summary struct {
	Scene              string             `json:"scene"`
	RootNodes          []int              `json:"root_nodes"`
	Nodes              []NodeSummary      `json:"nodes"`
	Meshes             []string           `json:"meshes"`
	Materials          []string           `json:"materials"`
	Images             int                `json:"images"`
	Cameras            int                `json:"cameras"`
	Lights             int                `json:"lights"`
	Skins              []SkinSummary      `json:"skins"`
	Skeletons          int                `json:"skeletons"`
	Animations         []AnimationSummary `json:"animations"`
	ExtensionsUsed     []string           `json:"extensions_used,omitempty"`
	ExtensionsRequired []string           `json:"extensions_required,omitempty"`
}

func Summarize(st *state.State) *Summary {
	s := &Summary{
		Scene:              st.SceneName,
		RootNodes:          append([]int{}, st.RootNodes...),
		Images:             len(st.Images),
		Cameras:            len(st.Cameras),
		Lights:             len(st.Lights),
		Skeletons:          len(st.Skeletons),
		ExtensionsUsed:     st.ExtensionsUsed,
		ExtensionsRequired: st.ExtensionsRequired,
	}
	for _, n := range st.Nodes {
		s.Nodes = append(s.Nodes, NodeSummary{
			Name:     n.Name,
			Parent:   n.Parent,
			Children: n.Children,
			Mesh:     n.Mesh,
			Skin:     n.Skin,
			Skeleton: n.Skeleton,
			Joint:    n.Joint,
		})
	}
	for _, m := range st.Meshes {
		name := ""
		if m.Host != nil {
			name = m.Host.Name
		}
		s.Meshes = append(s.Meshes, name)
	}
	for _, m := range st.Materials {
		s.Materials = append(s.Materials, m.Name)
	}
	for _, sk := range st.Skins {
		s.Skins = append(s.Skins, SkinSummary{Name: sk.Name, Joints: len(sk.JointsOriginal), Skeleton: sk.Skeleton})
	}
	for _, a := range st.Animations {
		s.Animations = append(s.Animations, AnimationSummary{Name: a.Name, Tracks: len(a.Tracks), Loop: a.Loop})
	}
	sort.Slice(s.Animations, func(i, j int) bool { return s.Animations[i].Name < s.Animations[j].Name })
	return s
}
