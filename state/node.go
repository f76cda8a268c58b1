package state

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/scenedoc/utils"
)

type Node struct {
	Name     string
	Parent   int
	Height   int
	Children []int

	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3
	Xform       mgl32.Mat4

	Mesh     int
	Camera   int
	Skin     int
	Skeleton int
	Light    int
	Joint    bool

	// morph weights overriding the mesh defaults
	Weights []float32

	// Raw extension objects of the source node, keyed by extension name
	Extensions map[string]interface{}
}

func NewNode() *Node {
	return &Node{
		Parent:   -1,
		Height:   -1,
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
		Xform:    mgl32.Ident4(),
		Mesh:     -1,
		Camera:   -1,
		Skin:     -1,
		Skeleton: -1,
		Light:    -1,
	}
}

// SetTRS sets the decomposed transform and recomputes Xform.
func (n *Node) SetTRS(t mgl32.Vec3, r mgl32.Quat, s mgl32.Vec3) {
	n.Translation, n.Rotation, n.Scale = t, r.Normalize(), s
	n.Xform = utils.ComposeTRS(t, n.Rotation, s)
}

// SetXform sets the matrix and decomposes it into TRS.
func (n *Node) SetXform(m mgl32.Mat4) {
	n.Xform = m
	n.Translation, n.Rotation, n.Scale = utils.DecomposeMat4(m)
}

func (n *Node) HasChild(c int) bool {
	for _, child := range n.Children {
		if child == c {
			return true
		}
	}
	return false
}
