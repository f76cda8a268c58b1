package fbx

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	mfbx "github.com/mogaika/fbx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/scenedoc/scene"
	"github.com/mogaika/scenedoc/state"
	"github.com/mogaika/scenedoc/utils/fbxbuilder"
)

func quadState() *state.State {
	st := state.New()

	red := scene.DefaultMaterial()
	red.Name = "red"
	red.AlbedoColor = mgl32.Vec4{1, 0, 0, 1}
	blue := scene.DefaultMaterial()
	blue.Name = "blue"
	blue.AlbedoColor = mgl32.Vec4{0, 0, 1, 1}

	tri := func(m *scene.Material, z float32) *scene.Surface {
		return &scene.Surface{
			Primitive: scene.PrimitiveTriangles,
			Positions: []mgl32.Vec3{{0, 0, z}, {1, 0, z}, {0, 1, z}},
			Normals:   []mgl32.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
			UV:        []mgl32.Vec2{{0, 0}, {1, 0.25}, {0, 1}},
			Indices:   []int{0, 2, 1},
			Material:  m,
		}
	}
	hm := &scene.ImporterMesh{Name: "quad"}
	hm.AddSurface(tri(red, 0))
	hm.AddSurface(tri(blue, 1))
	st.Meshes = append(st.Meshes, &state.Mesh{Host: hm})

	root := state.NewNode()
	root.Name = "root"
	root.SetTRS(mgl32.Vec3{1, 2, 3}, mgl32.QuatRotate(mgl32.DegToRad(30), mgl32.Vec3{0, 1, 0}), mgl32.Vec3{1, 1, 1})
	body := state.NewNode()
	body.Name = "body"
	body.Mesh = 0
	body.Parent = 0
	root.Children = []int{1}
	st.Nodes = []*state.Node{root, body}
	return st
}

func encode(t *testing.T, st *state.State) []byte {
	var buf bytes.Buffer
	require.NoError(t, fbxbuilder.FromState(st, "quad.fbx").Write(&buf))
	return buf.Bytes()
}

func TestReadWritten(t *testing.T) {
	data := encode(t, quadState())
	require.True(t, IsBinary(data))

	root, version, err := Read(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, uint32(7400), version)
	assert.NotNil(t, child(root, "Objects"))
	assert.NotNil(t, child(root, "Connections"))
}

func TestReadRejects(t *testing.T) {
	_, _, err := Read(strings.NewReader("glTF"))
	assert.Error(t, err)
	assert.False(t, IsBinary([]byte("Kaydara FBX Binary")))

	// truncated after the header
	data := encode(t, quadState())
	_, _, err = Read(bytes.NewReader(data[:40]))
	assert.Error(t, err)
}

func TestScan(t *testing.T) {
	root, _, err := Read(bytes.NewReader(encode(t, quadState())))
	require.NoError(t, err)
	s, err := Scan(root)
	require.NoError(t, err)

	assert.Equal(t, 7400, s.FBXHeaderExtension.FBXVersion)
	require.Len(t, s.Objects.Model, 2)
	assert.Equal(t, "root", s.Objects.Model[0].Name)
	assert.Equal(t, "Mesh", s.Objects.Model[1].Element)

	require.Len(t, s.Objects.Geometry, 1)
	g := s.Objects.Geometry[0]
	assert.Equal(t, 2, g.FaceCount())
	assert.Len(t, g.Vertices, 18)
	require.NotNil(t, g.LayerElementMaterial)
	assert.Equal(t, []int32{0, 1}, g.LayerElementMaterial.Materials)
	assert.Len(t, s.Objects.Material, 2)

	_, err = Scan(&mfbx.Node{})
	assert.Error(t, err)
}

func TestToState(t *testing.T) {
	src := quadState()
	root, _, err := Read(bytes.NewReader(encode(t, src)))
	require.NoError(t, err)
	s, err := Scan(root)
	require.NoError(t, err)

	st := state.New()
	require.NoError(t, s.ToState(st))
	require.NoError(t, st.BuildParentHierarchy())

	require.Len(t, st.Nodes, 2)
	assert.Equal(t, []int{1}, st.Nodes[0].Children)
	assert.Equal(t, 0, st.Nodes[1].Parent)
	assert.True(t, st.Nodes[0].Translation.ApproxEqualThreshold(mgl32.Vec3{1, 2, 3}, 1e-5))
	r := src.Nodes[0].Rotation
	got := st.Nodes[0].Rotation
	assert.True(t, got.ApproxEqualThreshold(r, 1e-4) || got.ApproxEqualThreshold(r.Scale(-1), 1e-4))

	require.Equal(t, 0, st.Nodes[1].Mesh)
	hm := st.Meshes[0].Host
	require.Len(t, hm.Surfaces, 2)
	for i, surf := range hm.Surfaces {
		assert.Equal(t, src.Meshes[0].Host.Surfaces[i].Indices, surf.Indices)
		assert.Equal(t, src.Meshes[0].Host.Surfaces[i].Positions, surf.Positions)
		require.Len(t, surf.UV, 3)
		assert.InDelta(t, 0.25, surf.UV[1][1], 1e-6)
	}
	assert.Equal(t, "red", hm.Surfaces[0].Material.Name)
	assert.Equal(t, mgl32.Vec4{0, 0, 1, 1}, hm.Surfaces[1].Material.AlbedoColor)
	assert.Len(t, st.Materials, 2)
}

func TestToStateBadVertex(t *testing.T) {
	s := &Scene{}
	s.Objects.Model = []*Model{{Id: 1, Name: "m"}}
	s.Objects.Geometry = []*Geometry{{
		Id: 2, Name: "g", Element: "Mesh",
		Vertices:           []float64{0, 0, 0, 1, 0, 0, 0, 1, 0},
		PolygonVertexIndex: []int32{0, 1, ^int32(7)},
	}}
	s.Connections.C = []Connection{{Type: "OO", Child: 1, Parent: 0}, {Type: "OO", Child: 2, Parent: 1}}
	assert.Error(t, s.ToState(state.New()))

	s.Objects.Geometry[0].PolygonVertexIndex = []int32{0, 1, 2}
	assert.Error(t, s.ToState(state.New()))
}

func TestQuadFan(t *testing.T) {
	s := &Scene{}
	s.Objects.Model = []*Model{{Id: 1, Name: "m"}}
	s.Objects.Geometry = []*Geometry{{
		Id: 2, Name: "g", Element: "Mesh",
		Vertices:           []float64{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0},
		PolygonVertexIndex: []int32{0, 1, 2, ^int32(3), 0, ^int32(1)},
	}}
	s.Connections.C = []Connection{{Type: "OO", Child: 2, Parent: 1}}

	st := state.New()
	require.NoError(t, s.ToState(st))
	surf := st.Meshes[0].Host.Surfaces[0]
	assert.Len(t, surf.Positions, 4)
	assert.Equal(t, []int{0, 2, 1, 0, 3, 2}, surf.Indices)
	assert.Equal(t, "default", surf.Material.Name)
}

func TestDump(t *testing.T) {
	root, _, err := Read(bytes.NewReader(encode(t, quadState())))
	require.NoError(t, err)
	s, err := Scan(root)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, Dump(s, &out))
	text := out.String()
	assert.Contains(t, text, `"Model::root", "Null" {`)
	assert.Contains(t, text, "PolygonVertexIndex: *")
	assert.Contains(t, text, `P: "Lcl Translation"`)
	assert.Contains(t, text, "Connections: {")
	assert.Contains(t, text, `C: "OO", `)
}
