package state

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/scenedoc/scene"
)

type Skin struct {
	Name string
	// node given by the source "skeleton" property, -1 when absent
	SkinRoot int

	// joints in source order, bind slots follow this order
	JointsOriginal []int
	InverseBinds   []mgl32.Mat4

	// working sets filled by skin expansion
	Joints    []int
	NonJoints []int
	Roots     []int

	Skeleton int

	JointIToBoneI map[int]int
	JointIToName  map[int]string

	HostSkin *scene.Skin
}

func NewSkin() *Skin {
	return &Skin{
		SkinRoot:      -1,
		Skeleton:      -1,
		JointIToBoneI: make(map[int]int),
		JointIToName:  make(map[int]string),
	}
}

type Skeleton struct {
	Joints []int
	Roots  []int

	// Skeleton3D node generated for this skeleton
	HostSkeleton *scene.Node
	// host bone index to node index
	BoneNode map[int]int

	UniqueNames map[string]struct{}
}

func NewSkeleton() *Skeleton {
	return &Skeleton{
		BoneNode:    make(map[int]int),
		UniqueNames: make(map[string]struct{}),
	}
}

func contains(list []int, v int) bool {
	for _, e := range list {
		if e == v {
			return true
		}
	}
	return false
}

func (s *Skin) HasJoint(n int) bool    { return contains(s.Joints, n) }
func (s *Skin) HasNonJoint(n int) bool { return contains(s.NonJoints, n) }
func (s *Skeleton) HasJoint(n int) bool { return contains(s.Joints, n) }
