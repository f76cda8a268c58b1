package extension

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/ext/lightspuntual"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/scenedoc/errs"
	"github.com/mogaika/scenedoc/scene"
	"github.com/mogaika/scenedoc/state"
)

type named struct {
	Base
	name string
}

func (n *named) Name() string { return n.name }

func names(r *Registry) []string {
	out := make([]string, 0)
	for _, e := range r.List() {
		out = append(out, e.Name())
	}
	return out
}

func TestRegistryOrder(t *testing.T) {
	r := NewRegistry()
	a, b, c := &named{name: "a"}, &named{name: "b"}, &named{name: "c"}
	r.Register(a, false)
	r.Register(b, false)
	r.Register(c, true)
	r.Register(a, true)
	assert.Equal(t, []string{"c", "a", "b"}, names(r))

	r.Unregister(a)
	assert.Equal(t, []string{"c", "b"}, names(r))
	r.UnregisterAll()
	assert.Empty(t, r.List())
}

func TestDefaultSupports(t *testing.T) {
	assert.True(t, Default.Supports(lightspuntual.ExtensionName))
	assert.True(t, Default.Supports("KHR_materials_unlit"))
	assert.False(t, Default.Supports("EXT_made_up"))
}

func TestLightsRoundTrip(t *testing.T) {
	intensity := float32(3)
	st := state.New()
	st.Doc = &gltf.Document{Extensions: gltf.Extensions{
		lightspuntual.ExtensionName: lightspuntual.Lights{
			{Type: lightspuntual.TypeDirectional, Intensity: &intensity},
		},
	}}
	l := &Lights{}
	require.NoError(t, l.ImportPreflight(st, nil))
	require.Len(t, st.Lights, 1)
	assert.Equal(t, scene.LightDirectional, st.Lights[0].Type)
	assert.Equal(t, float32(3), st.Lights[0].Intensity)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, st.Lights[0].Color)
	assert.True(t, math.IsInf(float64(st.Lights[0].Range), 1))

	n := state.NewNode()
	n.Name = "sun"
	require.NoError(t, l.ParseNodeExtensions(st, n, gltf.Extensions{lightspuntual.ExtensionName: lightspuntual.LightIndex(0)}))
	assert.Equal(t, 0, n.Light)
	err := l.ParseNodeExtensions(st, n, gltf.Extensions{lightspuntual.ExtensionName: lightspuntual.LightIndex(5)})
	assert.True(t, errs.Is(err, errs.MalformedInput))

	host, err := l.GenerateSceneNode(st, n, nil)
	require.NoError(t, err)
	require.NotNil(t, host)
	assert.Equal(t, scene.KindLight, host.Kind)

	out := state.New()
	on := state.NewNode()
	out.Nodes = []*state.Node{on}
	require.NoError(t, l.ConvertSceneNode(out, on, host))
	doc := &gltf.Document{Nodes: []*gltf.Node{{}}}
	require.NoError(t, l.ExportPost(out, doc))
	assert.Contains(t, doc.Extensions, lightspuntual.ExtensionName)
	assert.Equal(t, lightspuntual.LightIndex(0), doc.Nodes[0].Extensions[lightspuntual.ExtensionName])
	assert.Equal(t, []string{lightspuntual.ExtensionName}, out.ExtensionsUsed)
}

func TestLightDefaultsAndSpot(t *testing.T) {
	outer := float32(0.5)
	rng := float32(10)
	st := state.New()
	st.Doc = &gltf.Document{Extensions: gltf.Extensions{
		lightspuntual.ExtensionName: lightspuntual.Lights{
			{Type: lightspuntual.TypeSpot, Color: &[3]float32{1, 0, 0}, Range: &rng,
				Spot: &lightspuntual.Spot{InnerConeAngle: 0.25, OuterConeAngle: &outer}},
			{Type: lightspuntual.TypePoint},
		},
	}}
	l := &Lights{}
	require.NoError(t, l.ImportPreflight(st, nil))
	require.Len(t, st.Lights, 2)

	spot := st.Lights[0]
	assert.Equal(t, scene.LightSpot, spot.Type)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, spot.Color)
	assert.Equal(t, float32(10), spot.Range)
	assert.Equal(t, float32(0.25), spot.InnerAngle)
	assert.Equal(t, float32(0.5), spot.OuterAngle)

	point := st.Lights[1]
	assert.Equal(t, float32(1), point.Intensity)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, point.Color)

	out := state.New()
	out.Lights = st.Lights
	doc := &gltf.Document{}
	require.NoError(t, l.ExportPost(out, doc))
	lights := doc.Extensions[lightspuntual.ExtensionName].(lightspuntual.Lights)
	require.Len(t, lights, 2)
	require.NotNil(t, lights[0].Color)
	assert.Equal(t, [3]float32{1, 0, 0}, *lights[0].Color)
	require.NotNil(t, lights[0].Spot)
	assert.Equal(t, float32(0.5), lights[0].Spot.OuterConeAngleOrDefault())
	assert.Nil(t, lights[1].Range)
}

func TestMaterialExtensions(t *testing.T) {
	st := state.New()
	st.Materials = []*scene.Material{scene.DefaultMaterial()}
	st.Doc = &gltf.Document{Materials: []*gltf.Material{{Extensions: gltf.Extensions{
		unlitName:            json.RawMessage(`{}`),
		emissiveStrengthName: json.RawMessage(`{"emissiveStrength":4}`),
		specGlossName:        json.RawMessage(`{"diffuseFactor":[1,0,0,1],"glossinessFactor":0.25}`),
	}}}}
	require.NoError(t, (&Materials{}).ImportPostParse(st))
	m := st.Materials[0]
	assert.True(t, m.Unshaded)
	assert.Equal(t, float32(4), m.EmissionEnergy)
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, m.AlbedoColor)
	assert.InDelta(t, 0.75, m.Roughness, 1e-6)
}
