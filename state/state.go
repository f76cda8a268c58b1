// Package state is the working set of one document conversion.
package state

import (
	"sort"

	"github.com/qmuntal/gltf"

	"github.com/mogaika/scenedoc/accessor"
	"github.com/mogaika/scenedoc/errs"
	"github.com/mogaika/scenedoc/scene"
)

// Reserved name of generated skeleton nodes
const SkeletonNodeName = "Skeleton3D"

type State struct {
	Filename string
	BasePath string
	// ASCII JSON of the source document
	JSON []byte
	// BIN chunk of a binary container, buffer 0 when present
	GLBData []byte
	Doc     *gltf.Document

	Store *accessor.Store

	SceneName string
	Nodes     []*Node
	RootNodes []int

	Meshes    []*Mesh
	Materials []*scene.Material
	Images    []*Image
	Textures  []*Texture
	Samplers  []*gltf.Sampler
	Cameras   []*scene.Camera
	Lights    []*scene.Light

	Skins      []*Skin
	Skeletons  []*Skeleton
	Animations []*Animation

	UniqueNames          map[string]struct{}
	UniqueAnimationNames map[string]struct{}

	// host nodes generated per document node
	SceneNodes map[int]*scene.Node
	// inverse of SceneNodes, used when exporting
	HostNodeIndex map[*scene.Node]int
	// mesh instance generated for a node, differs from SceneNodes when the
	// node also carries children or a bone attachment
	MeshInstances map[int]*scene.Node

	ExtensionsUsed     []string
	ExtensionsRequired []string

	UseNamedSkinBinds         bool
	DiscardMeshesAndMaterials bool
	CreateAnimations          bool

	// free form storage for extensions
	Additional map[string]interface{}
}

func New() *State {
	return &State{
		Store:                accessor.NewStore(),
		UniqueNames:          make(map[string]struct{}),
		UniqueAnimationNames: make(map[string]struct{}),
		SceneNodes:           make(map[int]*scene.Node),
		HostNodeIndex:        make(map[*scene.Node]int),
		MeshInstances:        make(map[int]*scene.Node),
		CreateAnimations:     true,
		Additional:           make(map[string]interface{}),
	}
}

func (st *State) Node(i int) (*Node, error) {
	if i < 0 || i >= len(st.Nodes) {
		return nil, errs.Malformed("node index %d out of range [0,%d)", i, len(st.Nodes))
	}
	return st.Nodes[i], nil
}

func (st *State) AddExtensionUsed(name string, required bool) {
	add := func(list []string) []string {
		for _, e := range list {
			if e == name {
				return list
			}
		}
		list = append(list, name)
		sort.Strings(list)
		return list
	}
	st.ExtensionsUsed = add(st.ExtensionsUsed)
	if required {
		st.ExtensionsRequired = add(st.ExtensionsRequired)
	}
}

// SkinNodeCount counts joints and non joints of every skin, for logs.
func (st *State) SkinNodeCount() int {
	n := 0
	for _, s := range st.Skins {
		n += len(s.Joints) + len(s.NonJoints)
	}
	return n
}
