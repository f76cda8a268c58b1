package mesh

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"

	"github.com/mogaika/scenedoc/errs"
	"github.com/mogaika/scenedoc/scene"
	"github.com/mogaika/scenedoc/state"
)

func primitiveMode(t scene.PrimitiveType) gltf.PrimitiveMode {
	switch t {
	case scene.PrimitivePoints:
		return gltf.PrimitivePoints
	case scene.PrimitiveLines:
		return gltf.PrimitiveLines
	case scene.PrimitiveLineStrip:
		return gltf.PrimitiveLineStrip
	case scene.PrimitiveTriangleStrip:
		return gltf.PrimitiveTriangleStrip
	default:
		return gltf.PrimitiveTriangles
	}
}

// MaterialIndex returns the index of m in st.Materials, appending it when new.
func MaterialIndex(st *state.State, m *scene.Material) int {
	for i, e := range st.Materials {
		if e == m {
			return i
		}
	}
	st.Materials = append(st.Materials, m)
	return len(st.Materials) - 1
}

type attributes map[string]uint32

func (a attributes) put(key string, index int, err error) error {
	if err != nil {
		return err
	}
	if index >= 0 {
		a[key] = uint32(index)
	}
	return nil
}

// SerializeMeshes encodes st.Meshes into doc.Meshes through st.Store.
func SerializeMeshes(st *state.State, doc *gltf.Document) error {
	for _, m := range st.Meshes {
		host := m.Host
		gm := &gltf.Mesh{Name: host.Name}
		if len(m.BlendWeights) > 0 {
			gm.Weights = append([]float32(nil), m.BlendWeights...)
		}
		if len(host.BlendShapes) > 0 {
			names := make([]interface{}, len(host.BlendShapes))
			for i, n := range host.BlendShapes {
				names[i] = n
			}
			gm.Extras = map[string]interface{}{"targetNames": names}
		}

		for _, s := range host.Surfaces {
			p, err := serializeSurface(st, s)
			if err != nil {
				return err
			}
			gm.Primitives = append(gm.Primitives, p)
		}
		doc.Meshes = append(doc.Meshes, gm)
	}
	return nil
}

func serializeSurface(st *state.State, s *scene.Surface) (*gltf.Primitive, error) {
	store := st.Store
	a := attributes{}
	p := &gltf.Primitive{Mode: primitiveMode(s.Primitive)}

	idx, err := store.EncodeVec3(s.Positions, true)
	if err := a.put(gltf.POSITION, idx, err); err != nil {
		return nil, err
	}
	idx, err = store.EncodeVec3(s.Normals, true)
	if err := a.put(gltf.NORMAL, idx, err); err != nil {
		return nil, err
	}
	idx, err = store.EncodeVec4(s.Tangents, true)
	if err := a.put(gltf.TANGENT, idx, err); err != nil {
		return nil, err
	}
	idx, err = store.EncodeVec2(s.UV, true)
	if err := a.put(gltf.TEXCOORD_0, idx, err); err != nil {
		return nil, err
	}
	idx, err = store.EncodeVec2(s.UV2, true)
	if err := a.put(gltf.TEXCOORD_1, idx, err); err != nil {
		return nil, err
	}
	for c := 0; c < 3; c++ {
		first, second := splitCustom(s.Custom[c], s.CustomFormat[c])
		idx, err = store.EncodeVec2(first, true)
		if err := a.put(fmt.Sprintf("TEXCOORD_%d", 2+2*c), idx, err); err != nil {
			return nil, err
		}
		idx, err = store.EncodeVec2(second, true)
		if err := a.put(fmt.Sprintf("TEXCOORD_%d", 3+2*c), idx, err); err != nil {
			return nil, err
		}
	}
	idx, err = store.EncodeColors(s.Colors, true)
	if err := a.put(gltf.COLOR_0, idx, err); err != nil {
		return nil, err
	}
	if err := serializeSkinning(st, s, a); err != nil {
		return nil, err
	}

	if len(s.Indices) > 0 {
		indices := append([]int(nil), s.Indices...)
		if s.Primitive == scene.PrimitiveTriangles {
			FlipWinding(indices)
		}
		idx, err := store.EncodeIndices(indices)
		if err != nil {
			return nil, err
		}
		p.Indices = gltf.Index(uint32(idx))
	}

	for _, bs := range s.BlendShapes {
		t := attributes{}
		idx, err := store.EncodeVec3(subVec3(bs.Positions, s.Positions), true)
		if err := t.put(gltf.POSITION, idx, err); err != nil {
			return nil, err
		}
		idx, err = store.EncodeVec3(subVec3(bs.Normals, s.Normals), true)
		if err := t.put(gltf.NORMAL, idx, err); err != nil {
			return nil, err
		}
		idx, err = store.EncodeVec3(subTangents(bs.Tangents, s.Tangents), true)
		if err := t.put(gltf.TANGENT, idx, err); err != nil {
			return nil, err
		}
		p.Targets = append(p.Targets, map[string]uint32(t))
	}

	if s.Material != nil && !st.DiscardMeshesAndMaterials {
		p.Material = gltf.Index(uint32(MaterialIndex(st, s.Material)))
	}
	p.Attributes = map[string]uint32(a)
	return p, nil
}

func splitCustom(custom []float32, format int) (first, second []mgl32.Vec2) {
	if format != scene.CustomRG && format != scene.CustomRGBA {
		return nil, nil
	}
	n := len(custom) / format
	first = make([]mgl32.Vec2, n)
	if format == scene.CustomRGBA {
		second = make([]mgl32.Vec2, n)
	}
	for v := 0; v < n; v++ {
		first[v] = mgl32.Vec2{custom[v*format], custom[v*format+1]}
		if second != nil {
			second[v] = mgl32.Vec2{custom[v*format+2], custom[v*format+3]}
		}
	}
	return first, second
}

func serializeSkinning(st *state.State, s *scene.Surface, a attributes) error {
	if len(s.Bones) == 0 || len(s.Weights) == 0 {
		return nil
	}
	if len(s.Bones) != len(s.Weights) {
		return errs.Topo("surface has %d joint values and %d weights", len(s.Bones), len(s.Weights))
	}
	bones0, bones1 := s.Bones, []int(nil)
	weights0, weights1 := s.Weights, []float32(nil)
	if s.BoneCount == JointGroupSize*2 {
		bones0, bones1 = SplitGroups(s.Bones)
		weights0, weights1 = SplitGroups(s.Weights)
	}

	sets := []struct {
		joints  []int
		weights []float32
	}{{bones0, weights0}, {bones1, weights1}}
	for i, set := range sets {
		if len(set.joints) == 0 {
			continue
		}
		idx, err := st.Store.EncodeJoints(groupInts(set.joints), true)
		if err := a.put(fmt.Sprintf("JOINTS_%d", i), idx, err); err != nil {
			return err
		}
		idx, err = st.Store.EncodeWeights(groupFloats(set.weights), true)
		if err := a.put(fmt.Sprintf("WEIGHTS_%d", i), idx, err); err != nil {
			return err
		}
	}
	return nil
}

func groupInts(flat []int) [][4]int {
	out := make([][4]int, len(flat)/4)
	for i := range out {
		copy(out[i][:], flat[i*4:])
	}
	return out
}

func groupFloats(flat []float32) []mgl32.Vec4 {
	out := make([]mgl32.Vec4, len(flat)/4)
	for i := range out {
		copy(out[i][:], flat[i*4:])
	}
	return out
}

// subVec3 returns morph - base, or nil when the morph does not change the channel.
func subVec3(morph, base []mgl32.Vec3) []mgl32.Vec3 {
	if len(morph) == 0 || len(morph) != len(base) {
		return nil
	}
	out := make([]mgl32.Vec3, len(morph))
	for i := range morph {
		out[i] = morph[i].Sub(base[i])
	}
	return out
}

func subTangents(morph, base []mgl32.Vec4) []mgl32.Vec3 {
	if len(morph) == 0 || len(morph) != len(base) {
		return nil
	}
	out := make([]mgl32.Vec3, len(morph))
	for i := range morph {
		out[i] = morph[i].Vec3().Sub(base[i].Vec3())
	}
	return out
}
