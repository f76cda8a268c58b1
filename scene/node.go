// Package scene is the host scene graph documents are generated into and
// exported from.
package scene

import (
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

type Kind int

const (
	KindSpatial Kind = iota
	KindMeshInstance
	KindSkeleton
	KindBoneAttachment
	KindCamera
	KindLight
	KindAnimationPlayer
)

func (k Kind) String() string {
	switch k {
	case KindMeshInstance:
		return "MeshInstance3D"
	case KindSkeleton:
		return "Skeleton3D"
	case KindBoneAttachment:
		return "BoneAttachment3D"
	case KindCamera:
		return "Camera3D"
	case KindLight:
		return "Light3D"
	case KindAnimationPlayer:
		return "AnimationPlayer"
	default:
		return "Node3D"
	}
}

type Transform struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3
}

func IdentityTransform() Transform {
	return Transform{Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}}
}

func (t Transform) Mat4() mgl32.Mat4 {
	return mgl32.Translate3D(t.Translation[0], t.Translation[1], t.Translation[2]).
		Mul4(t.Rotation.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2]))
}

type Node struct {
	Name      string
	Kind      Kind
	Transform Transform
	Parent    *Node
	Children  []*Node

	// MeshInstance3D
	Mesh     *ImporterMesh
	Skin     *Skin
	Skeleton *Node

	// Skeleton3D
	Bones *Skeleton

	// BoneAttachment3D
	BoneName string

	Camera *Camera
	Light  *Light
	Player *AnimationPlayer

	// Free form data set by extensions
	Meta map[string]interface{}
}

func NewNode(name string, kind Kind) *Node {
	n := &Node{Name: name, Kind: kind, Transform: IdentityTransform()}
	if kind == KindSkeleton {
		n.Bones = &Skeleton{}
	}
	return n
}

func (n *Node) AddChild(c *Node) {
	if c.Parent != nil {
		c.Parent.RemoveChild(c)
	}
	c.Parent = n
	n.Children = append(n.Children, c)
}

func (n *Node) RemoveChild(c *Node) {
	for i, child := range n.Children {
		if child == c {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			c.Parent = nil
			return
		}
	}
}

func (n *Node) Root() *Node {
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}

// Path is the slash separated path from the scene root, "." for the root itself.
func (n *Node) Path() string {
	if n.Parent == nil {
		return "."
	}
	parts := make([]string, 0)
	for c := n; c.Parent != nil; c = c.Parent {
		parts = append(parts, c.Name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Find resolves a path relative to n. Subnames after ':' are ignored.
func (n *Node) Find(path string) *Node {
	if i := strings.IndexByte(path, ':'); i >= 0 {
		path = path[:i]
	}
	if path == "." || path == "" {
		return n
	}
	cur := n
	for _, part := range strings.Split(path, "/") {
		if part == ".." {
			cur = cur.Parent
		} else if part != "." {
			cur = cur.Child(part)
		}
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Walk visits n and its subtree depth first until fn returns false.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// GlobalTransform is the product of transforms from the root down to n.
func (n *Node) GlobalTransform() mgl32.Mat4 {
	m := n.Transform.Mat4()
	for p := n.Parent; p != nil; p = p.Parent {
		m = p.Transform.Mat4().Mul4(m)
	}
	return m
}

// PathFrom is the slash separated path of n relative to its ancestor root.
func (n *Node) PathFrom(root *Node) string {
	if n == root {
		return "."
	}
	parts := make([]string, 0)
	c := n
	for ; c != nil && c != root; c = c.Parent {
		parts = append(parts, c.Name)
	}
	if c == nil {
		return n.Path()
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}
