package extension

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/ext/lightspuntual"
	"go.uber.org/zap"

	"github.com/mogaika/scenedoc/errs"
	"github.com/mogaika/scenedoc/scene"
	"github.com/mogaika/scenedoc/state"
	"github.com/mogaika/scenedoc/utils/logger"
)

// Lights maps KHR_lights_punctual lights to host light nodes.
type Lights struct {
	Base
}

func init() {
	Default.Register(&Lights{}, false)
}

func (*Lights) Name() string { return "lights" }

func (*Lights) SupportedExtensions() []string {
	return []string{lightspuntual.ExtensionName}
}

func lightType(t string) (scene.LightType, bool) {
	switch t {
	case lightspuntual.TypeDirectional:
		return scene.LightDirectional, true
	case lightspuntual.TypePoint:
		return scene.LightPoint, true
	case lightspuntual.TypeSpot:
		return scene.LightSpot, true
	}
	return 0, false
}

func (*Lights) ImportPreflight(st *state.State, extensions []string) error {
	if st.Doc == nil || st.Doc.Extensions == nil {
		return nil
	}
	raw, ok := st.Doc.Extensions[lightspuntual.ExtensionName]
	if !ok {
		return nil
	}
	lights, ok := raw.(lightspuntual.Lights)
	if !ok {
		return errs.Malformed("%s: unexpected payload %T", lightspuntual.ExtensionName, raw)
	}
	for i, l := range lights {
		t, ok := lightType(l.Type)
		if !ok {
			logger.L().Warn("unknown light type", zap.String("stage", "lights"), zap.Int("light", i), zap.String("type", l.Type))
			t = scene.LightPoint
		}
		c := l.ColorOrDefault()
		light := &scene.Light{
			Type:       t,
			Color:      mgl32.Vec3{c[0], c[1], c[2]},
			Intensity:  l.IntensityOrDefault(),
			Range:      float32(math.Inf(1)),
			OuterAngle: math.Pi / 4,
		}
		if l.Range != nil && *l.Range > 0 {
			light.Range = *l.Range
		}
		if l.Spot != nil {
			light.InnerAngle = l.Spot.InnerConeAngle
			light.OuterAngle = l.Spot.OuterConeAngleOrDefault()
		}
		st.Lights = append(st.Lights, light)
	}
	return nil
}

func (*Lights) ParseNodeExtensions(st *state.State, node *state.Node, ext gltf.Extensions) error {
	raw, ok := ext[lightspuntual.ExtensionName]
	if !ok {
		return nil
	}
	idx, ok := raw.(lightspuntual.LightIndex)
	if !ok {
		return errs.Malformed("%s: unexpected node payload %T", lightspuntual.ExtensionName, raw)
	}
	if int(idx) >= len(st.Lights) {
		return errs.Malformed("light index %d out of range [0,%d)", idx, len(st.Lights))
	}
	node.Light = int(idx)
	return nil
}

func (*Lights) GenerateSceneNode(st *state.State, node *state.Node, parent *scene.Node) (*scene.Node, error) {
	if node.Light < 0 || node.Mesh >= 0 || node.Camera >= 0 {
		return nil, nil
	}
	host := scene.NewNode(node.Name, scene.KindLight)
	l := *st.Lights[node.Light]
	host.Light = &l
	return host, nil
}

func (*Lights) ConvertSceneNode(st *state.State, node *state.Node, host *scene.Node) error {
	if host.Kind != scene.KindLight || host.Light == nil {
		return nil
	}
	node.Light = len(st.Lights)
	st.Lights = append(st.Lights, host.Light)
	return nil
}

func lightTypeName(t scene.LightType) string {
	switch t {
	case scene.LightDirectional:
		return lightspuntual.TypeDirectional
	case scene.LightSpot:
		return lightspuntual.TypeSpot
	default:
		return lightspuntual.TypePoint
	}
}

func (*Lights) ExportPost(st *state.State, doc *gltf.Document) error {
	if len(st.Lights) == 0 {
		return nil
	}
	lights := make(lightspuntual.Lights, len(st.Lights))
	for i, l := range st.Lights {
		intensity := l.Intensity
		color := [3]float32{l.Color[0], l.Color[1], l.Color[2]}
		out := &lightspuntual.Light{Type: lightTypeName(l.Type), Color: &color, Intensity: &intensity}
		if l.Type == scene.LightSpot {
			outer := l.OuterAngle
			out.Spot = &lightspuntual.Spot{InnerConeAngle: l.InnerAngle, OuterConeAngle: &outer}
		}
		if !math.IsInf(float64(l.Range), 0) && l.Type != scene.LightDirectional {
			r := l.Range
			out.Range = &r
		}
		lights[i] = out
	}
	if doc.Extensions == nil {
		doc.Extensions = make(gltf.Extensions)
	}
	doc.Extensions[lightspuntual.ExtensionName] = lights
	for i, n := range st.Nodes {
		if n.Light < 0 || i >= len(doc.Nodes) {
			continue
		}
		if doc.Nodes[i].Extensions == nil {
			doc.Nodes[i].Extensions = make(gltf.Extensions)
		}
		doc.Nodes[i].Extensions[lightspuntual.ExtensionName] = lightspuntual.LightIndex(n.Light)
	}
	st.AddExtensionUsed(lightspuntual.ExtensionName, false)
	return nil
}
