package mesh

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/scenedoc/errs"
	"github.com/mogaika/scenedoc/scene"
	"github.com/mogaika/scenedoc/state"
)

// must unwraps an encoded accessor index: must(t)(st.Store.EncodeVec3(...)).
func must(t *testing.T) func(int, error) uint32 {
	return func(idx int, err error) uint32 {
		t.Helper()
		require.NoError(t, err)
		require.GreaterOrEqual(t, idx, 0)
		return uint32(idx)
	}
}

var triangle = []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}

func TestFlipWindingInvolution(t *testing.T) {
	in := []int{0, 1, 2, 3, 4, 5, 6}
	idx := append([]int(nil), in...)
	FlipWinding(idx)
	assert.Equal(t, []int{0, 2, 1, 3, 5, 4, 6}, idx)
	FlipWinding(idx)
	assert.Equal(t, in, idx)
}

func TestSequentialIndices(t *testing.T) {
	assert.Equal(t, []int{0, 2, 1, 3, 5, 4}, SequentialIndices(6))
	assert.Equal(t, []int{0, 2, 1}, SequentialIndices(4))
}

func TestNormalizeWeights(t *testing.T) {
	w := []float32{1, 1, 2, 0, 0, 0, 0, 0}
	NormalizeWeights(w, 4)
	assert.Equal(t, []float32{0.25, 0.25, 0.5, 0, 0, 0, 0, 0}, w)

	w8 := []float32{1, 0, 0, 0, 1, 0, 0, 2}
	NormalizeWeights(w8, 8)
	assert.Equal(t, []float32{0.25, 0, 0, 0, 0.25, 0, 0, 0.5}, w8)
}

func TestMergeAndSplitGroups(t *testing.T) {
	a := []int{1, 2, 3, 4, 5, 6, 7, 8}
	b := []int{11, 12, 13, 14, 15, 16, 17, 18}
	merged := MergeGroups(a, b, 2)
	assert.Equal(t, []int{1, 2, 3, 4, 11, 12, 13, 14, 5, 6, 7, 8, 15, 16, 17, 18}, merged)

	a2, b2 := SplitGroups(merged)
	assert.Equal(t, a, a2)
	assert.Equal(t, b, b2)
}

func TestGenerateTangents(t *testing.T) {
	normals := []mgl32.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}}
	uvs := []mgl32.Vec2{{0, 0}, {1, 0}, {0, 1}}
	tangents := GenerateTangents(triangle, normals, uvs, []int{0, 1, 2})
	require.Len(t, tangents, 3)
	for _, tg := range tangents {
		assert.InDelta(t, 1, tg[0], 1e-5)
		assert.InDelta(t, 0, tg[1], 1e-5)
		assert.Equal(t, float32(1), tg[3])
	}
}

func TestParseTriangle(t *testing.T) {
	st := state.New()
	st.SceneName = "Scene"
	pos := must(t)(st.Store.EncodeVec3(triangle, true))
	nrm := must(t)(st.Store.EncodeVec3([]mgl32.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}}, true))
	uv := must(t)(st.Store.EncodeVec2([]mgl32.Vec2{{0, 0}, {1, 0}, {0, 1}}, true))
	col := must(t)(st.Store.EncodeVec3([]mgl32.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, true))

	doc := &gltf.Document{Meshes: []*gltf.Mesh{{
		Name: "tri",
		Primitives: []*gltf.Primitive{{
			Attributes: map[string]uint32{
				gltf.POSITION: pos, gltf.NORMAL: nrm, gltf.TEXCOORD_0: uv, gltf.COLOR_0: col,
			},
		}},
	}}}
	require.NoError(t, ParseMeshes(st, doc))

	require.Len(t, st.Meshes, 1)
	host := st.Meshes[0].Host
	assert.Equal(t, "Scene_tri", host.Name)
	s := host.Surfaces[0]
	assert.Equal(t, scene.PrimitiveTriangles, s.Primitive)
	assert.Equal(t, []int{0, 2, 1}, s.Indices)
	assert.Len(t, s.Tangents, 3)
	assert.Equal(t, mgl32.Vec4{0, 1, 0, 1}, s.Colors[1])
	require.NotNil(t, s.Material)
	assert.True(t, s.Material.VertexColorUseAsAlbedo)
}

func TestParseEightBones(t *testing.T) {
	st := state.New()
	st.DiscardMeshesAndMaterials = true
	pos := must(t)(st.Store.EncodeVec3(triangle[:1], true))
	j0 := must(t)(st.Store.EncodeJoints([][4]int{{0, 1, 2, 3}}, true))
	j1 := must(t)(st.Store.EncodeJoints([][4]int{{4, 5, 6, 7}}, true))
	w0 := must(t)(st.Store.EncodeWeights([]mgl32.Vec4{{1, 1, 0, 0}}, true))
	w1 := must(t)(st.Store.EncodeWeights([]mgl32.Vec4{{0, 0, 1, 1}}, true))

	doc := &gltf.Document{Meshes: []*gltf.Mesh{{
		Primitives: []*gltf.Primitive{{
			Mode: gltf.PrimitivePoints,
			Attributes: map[string]uint32{
				gltf.POSITION: pos, "JOINTS_0": j0, "JOINTS_1": j1, "WEIGHTS_0": w0, "WEIGHTS_1": w1,
			},
		}},
	}}}
	require.NoError(t, ParseMeshes(st, doc))

	s := st.Meshes[0].Host.Surfaces[0]
	assert.Equal(t, 8, s.BoneCount)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, s.Bones)
	assert.Equal(t, []float32{0.25, 0.25, 0, 0, 0, 0, 0.25, 0.25}, s.Weights)
	assert.Nil(t, s.Indices)
	assert.Nil(t, s.Material)
}

func TestParseIncompleteSecondJointGroup(t *testing.T) {
	st := state.New()
	st.DiscardMeshesAndMaterials = true
	pos := must(t)(st.Store.EncodeVec3(triangle[:1], true))
	j0 := must(t)(st.Store.EncodeJoints([][4]int{{0, 1, 2, 3}}, true))
	j1 := must(t)(st.Store.EncodeJoints([][4]int{{4, 5, 6, 7}}, true))
	w0 := must(t)(st.Store.EncodeWeights([]mgl32.Vec4{{1, 1, 0, 0}}, true))

	doc := &gltf.Document{Meshes: []*gltf.Mesh{{
		Primitives: []*gltf.Primitive{{
			Mode:       gltf.PrimitivePoints,
			Attributes: map[string]uint32{gltf.POSITION: pos, "JOINTS_0": j0, "JOINTS_1": j1, "WEIGHTS_0": w0},
		}},
	}}}
	require.NoError(t, ParseMeshes(st, doc))

	s := st.Meshes[0].Host.Surfaces[0]
	assert.Equal(t, 4, s.BoneCount)
	assert.Equal(t, []int{0, 1, 2, 3}, s.Bones)
	assert.Equal(t, []float32{0.5, 0.5, 0, 0}, s.Weights)
	assert.Len(t, s.Weights, len(s.Bones))
}

func TestSerializeMismatchedSkin(t *testing.T) {
	st := state.New()
	surface := &scene.Surface{
		Primitive: scene.PrimitivePoints,
		Positions: triangle[:1],
		Bones:     []int{0, 1, 2, 3, 4, 5, 6, 7},
		Weights:   []float32{0.5, 0.5, 0, 0},
		BoneCount: 8,
	}
	st.Meshes = append(st.Meshes, &state.Mesh{Host: &scene.ImporterMesh{Name: "m", Surfaces: []*scene.Surface{surface}}})
	err := SerializeMeshes(st, &gltf.Document{})
	assert.True(t, errs.Is(err, errs.Topology))
}

func TestParseMorphTargets(t *testing.T) {
	st := state.New()
	pos := must(t)(st.Store.EncodeVec3(triangle, true))
	delta := must(t)(st.Store.EncodeVec3([]mgl32.Vec3{{0, 0, 1}, {0, 0, 2}}, true))

	doc := &gltf.Document{Meshes: []*gltf.Mesh{{
		Weights: []float32{0.5, 0.25, 0.125},
		Extras:  map[string]interface{}{"targetNames": []interface{}{"smile"}},
		Primitives: []*gltf.Primitive{{
			Attributes: map[string]uint32{gltf.POSITION: pos},
			Targets:    []gltf.Attribute{{gltf.POSITION: delta}, {gltf.POSITION: delta}},
		}},
	}}}
	require.NoError(t, ParseMeshes(st, doc))

	m := st.Meshes[0]
	assert.Equal(t, []string{"smile", "morph_1"}, m.Host.BlendShapes)
	assert.Equal(t, scene.BlendShapeNormalized, m.Host.BlendShapeMode)
	assert.Equal(t, []float32{0.5, 0.25}, m.BlendWeights)

	bs := m.Host.Surfaces[0].BlendShapes[0]
	assert.Equal(t, []mgl32.Vec3{{0, 0, 1}, {1, 0, 2}, {0, 1, 0}}, bs.Positions)
}

func TestParseErrors(t *testing.T) {
	st := state.New()
	doc := &gltf.Document{Meshes: []*gltf.Mesh{{
		Primitives: []*gltf.Primitive{{Attributes: map[string]uint32{}}},
	}}}
	assert.True(t, errs.Is(ParseMeshes(st, doc), errs.MalformedInput))

	st = state.New()
	pos := must(t)(st.Store.EncodeVec3(triangle, true))
	doc = &gltf.Document{Meshes: []*gltf.Mesh{{
		Primitives: []*gltf.Primitive{{Attributes: map[string]uint32{gltf.POSITION: pos}, Material: gltf.Index(3)}},
	}}}
	assert.True(t, errs.Is(ParseMeshes(st, doc), errs.MalformedInput))
}

func TestSerializeRoundTrip(t *testing.T) {
	st := state.New()
	surface := &scene.Surface{
		Primitive: scene.PrimitiveTriangles,
		Positions: triangle,
		UV:        []mgl32.Vec2{{0, 0}, {1, 0}, {0, 1}},
		Bones:     []int{0, 0, 0, 0, 1, 0, 0, 0, 2, 0, 0, 0},
		Weights:   []float32{1, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0},
		BoneCount: 4,
		Indices:   []int{0, 2, 1},
		BlendShapes: []scene.BlendShapeArrays{{
			Positions: []mgl32.Vec3{{0, 0, 1}, {1, 0, 0}, {0, 1, 0}},
		}},
		Material: scene.DefaultMaterial(),
	}
	surface.Custom[0] = []float32{1, 2, 3, 4, 5, 6}
	surface.CustomFormat[0] = scene.CustomRG
	st.Meshes = append(st.Meshes, &state.Mesh{
		Host: &scene.ImporterMesh{
			Name:        "box",
			BlendShapes: []string{"bump"},
			Surfaces:    []*scene.Surface{surface},
		},
		BlendWeights: []float32{0.5},
	})

	doc := &gltf.Document{}
	require.NoError(t, SerializeMeshes(st, doc))
	require.Len(t, doc.Meshes, 1)
	p := doc.Meshes[0].Primitives[0]
	assert.Contains(t, p.Attributes, "TEXCOORD_2")
	assert.NotContains(t, p.Attributes, "TEXCOORD_3")
	assert.NotContains(t, p.Attributes, "JOINTS_1")
	require.Len(t, st.Materials, 1)
	assert.Equal(t, uint32(0), *p.Material)

	back := state.New()
	back.Store = st.Store
	back.Materials = st.Materials
	require.NoError(t, ParseMeshes(back, doc))
	s := back.Meshes[0].Host.Surfaces[0]
	assert.Equal(t, surface.Indices, s.Indices)
	assert.Equal(t, surface.Positions, s.Positions)
	assert.Equal(t, surface.Bones, s.Bones)
	assert.Equal(t, surface.Custom[0], s.Custom[0])
	assert.Equal(t, scene.CustomRG, s.CustomFormat[0])
	assert.Equal(t, surface.BlendShapes[0].Positions, s.BlendShapes[0].Positions)
	assert.Equal(t, []string{"bump"}, back.Meshes[0].Host.BlendShapes)
	assert.Equal(t, []float32{0.5}, back.Meshes[0].BlendWeights)
}
