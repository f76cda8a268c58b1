package scene

import "github.com/go-gl/mathgl/mgl32"

type Bone struct {
	Name   string
	Parent int
	Rest   mgl32.Mat4
	Pose   Transform
}

type Skeleton struct {
	Bones []Bone
}

func (s *Skeleton) AddBone(name string) int {
	s.Bones = append(s.Bones, Bone{Name: name, Parent: -1, Rest: mgl32.Ident4(), Pose: IdentityTransform()})
	return len(s.Bones) - 1
}

func (s *Skeleton) FindBone(name string) int {
	for i := range s.Bones {
		if s.Bones[i].Name == name {
			return i
		}
	}
	return -1
}

func (s *Skeleton) SetBoneParent(bone, parent int) {
	s.Bones[bone].Parent = parent
}

func (s *Skeleton) BoneCount() int { return len(s.Bones) }

// BoneGlobalRest accumulates rest transforms up to the root bone.
func (s *Skeleton) BoneGlobalRest(bone int) mgl32.Mat4 {
	m := s.Bones[bone].Rest
	for p := s.Bones[bone].Parent; p >= 0; p = s.Bones[p].Parent {
		m = s.Bones[p].Rest.Mul4(m)
	}
	return m
}

// Bind ties one skin slot to a bone by index or, when Name is set, by name.
type Bind struct {
	Bone int
	Name string
	Pose mgl32.Mat4
}

type Skin struct {
	Name  string
	Binds []Bind
}

func (s *Skin) AddBind(bone int, pose mgl32.Mat4) {
	s.Binds = append(s.Binds, Bind{Bone: bone, Pose: pose})
}

func (s *Skin) AddNamedBind(name string, pose mgl32.Mat4) {
	s.Binds = append(s.Binds, Bind{Bone: -1, Name: name, Pose: pose})
}

// Resolve maps binds to bone indices of sk, looking named binds up by name.
func (s *Skin) Resolve(sk *Skeleton) []int {
	bones := make([]int, len(s.Binds))
	for i, b := range s.Binds {
		if b.Name != "" {
			bones[i] = sk.FindBone(b.Name)
		} else {
			bones[i] = b.Bone
		}
	}
	return bones
}
