package fbxbuilder

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/mogaika/fbx"
	"github.com/mogaika/fbx/builders/bfbx73"
	"go.uber.org/zap"

	"github.com/mogaika/scenedoc/mesh"
	"github.com/mogaika/scenedoc/scene"
	"github.com/mogaika/scenedoc/state"
	"github.com/mogaika/scenedoc/utils"
	"github.com/mogaika/scenedoc/utils/logger"
)

type stateExporter struct {
	f  *FBXBuilder
	st *state.State

	models     []int64
	geometries map[int]int64
	materials  map[*scene.Material]int64
}

// FromState builds a file with one Model per document node and one Geometry
// per triangle mesh. Surfaces of a mesh become material slots of its geometry.
func FromState(st *state.State, filename string) *FBXBuilder {
	e := &stateExporter{
		f:          NewFBXBuilder(filename),
		st:         st,
		models:     make([]int64, len(st.Nodes)),
		geometries: make(map[int]int64),
		materials:  make(map[*scene.Material]int64),
	}
	for i := range st.Nodes {
		e.models[i] = e.f.GenerateId()
	}
	for i, n := range st.Nodes {
		e.node(i, n)
	}
	return e.f
}

// p3 is a P record carrying a three component value.
func p3(name, typ, purpose string, v mgl32.Vec3) *fbx.Node {
	return bfbx73.P(name, typ, purpose, "A", float64(v[0]), float64(v[1]), float64(v[2]))
}

func (e *stateExporter) node(i int, n *state.Node) {
	class := "Null"
	switch {
	case n.Mesh >= 0:
		class = "Mesh"
	case n.Joint:
		class = "LimbNode"
	}

	rot := utils.RadiansToDegreeV3(utils.QuatToEuler(n.Rotation))
	props := bfbx73.Properties70().AddNodes(
		bfbx73.P("InheritType", "enum", "", "", int32(1)),
		bfbx73.P("DefaultAttributeIndex", "int", "Integer", "", int32(0)),
		p3("Lcl Translation", "Lcl Translation", "", n.Translation),
		p3("Lcl Rotation", "Lcl Rotation", "", rot),
		p3("Lcl Scaling", "Lcl Scaling", "", n.Scale),
	)
	e.f.AddObjects(bfbx73.Model(e.models[i], fbxName(n.Name, "Model"), class).AddNodes(
		bfbx73.Version(232),
		props,
		bfbx73.Shading(true),
		bfbx73.Culling("CullingOff"),
	))

	parent := int64(0)
	if n.Parent >= 0 && n.Parent < len(e.models) {
		parent = e.models[n.Parent]
	}
	e.f.AddConnections(bfbx73.C("OO", e.models[i], parent))

	if n.Mesh < 0 || n.Mesh >= len(e.st.Meshes) {
		return
	}
	m := e.st.Meshes[n.Mesh]
	if m == nil || m.Host == nil {
		return
	}
	gid, ok := e.geometries[n.Mesh]
	if !ok {
		gid = e.geometry(m.Host)
		e.geometries[n.Mesh] = gid
	}
	if gid == 0 {
		return
	}
	e.f.AddConnections(bfbx73.C("OO", gid, e.models[i]))
	for _, s := range triangleSurfaces(m.Host) {
		e.f.AddConnections(bfbx73.C("OO", e.material(s.Material), e.models[i]))
	}
}

func triangleSurfaces(m *scene.ImporterMesh) []*scene.Surface {
	var out []*scene.Surface
	for _, s := range m.Surfaces {
		if s.Primitive == scene.PrimitiveTriangles && len(s.Indices) >= 3 {
			out = append(out, s)
		}
	}
	return out
}

// geometry returns 0 when the mesh has nothing FBX polygons can carry.
func (e *stateExporter) geometry(m *scene.ImporterMesh) int64 {
	surfaces := triangleSurfaces(m)
	if skipped := len(m.Surfaces) - len(surfaces); skipped > 0 {
		logger.L().Debug("skipped non triangle surfaces", zap.String("stage", "fbx"), zap.String("mesh", m.Name), zap.Int("count", skipped))
	}
	if len(surfaces) == 0 {
		return 0
	}

	haveNorm, haveUV, haveColor := true, true, true
	for _, s := range surfaces {
		haveNorm = haveNorm && len(s.Normals) == s.VertexCount()
		haveUV = haveUV && len(s.UV) == s.VertexCount()
		haveColor = haveColor && len(s.Colors) == s.VertexCount()
	}

	vertices := make([]float64, 0)
	indexes := make([]int32, 0)
	normals := make([]float64, 0)
	uv := make([]float64, 0)
	rgba := make([]float64, 0)
	slots := make([]int32, 0)

	for slot, s := range surfaces {
		base := int32(len(vertices) / 3)
		for vi, p := range s.Positions {
			vertices = append(vertices, float64(p[0]), float64(p[1]), float64(p[2]))
			if haveNorm {
				nv := s.Normals[vi]
				normals = append(normals, float64(nv[0]), float64(nv[1]), float64(nv[2]))
			}
			if haveUV {
				uv = append(uv, float64(s.UV[vi][0]), float64(1-s.UV[vi][1]))
			}
			if haveColor {
				c := s.Colors[vi]
				rgba = append(rgba, float64(c[0]), float64(c[1]), float64(c[2]), float64(c[3]))
			}
		}

		tris := append([]int(nil), s.Indices[:len(s.Indices)-len(s.Indices)%3]...)
		mesh.FlipWinding(tris)
		for k := 0; k < len(tris); k += 3 {
			indexes = append(indexes, base+int32(tris[k]), base+int32(tris[k+1]), ^(base + int32(tris[k+2])))
			slots = append(slots, int32(slot))
		}
	}

	id := e.f.GenerateId()
	layer := bfbx73.Layer(0).AddNodes(bfbx73.Version(100))
	geometry := bfbx73.Geometry(id, fbxName(m.Name, "Geometry"), "Mesh").AddNodes(
		bfbx73.Properties70().AddNodes(
			bfbx73.P("Color", "ColorRGB", "Color", "", float64(1), float64(1), float64(1)),
		),
		bfbx73.GeometryVersion(124),
		bfbx73.Vertices(vertices),
		bfbx73.PolygonVertexIndex(indexes),
	)

	element := func(node *fbx.Node, typ string) {
		geometry.AddNode(node)
		layer.AddNode(bfbx73.LayerElement().AddNodes(
			bfbx73.Type(typ),
			bfbx73.TypedIndex(0),
		))
	}
	if haveNorm {
		element(bfbx73.LayerElementNormal(0).AddNodes(
			bfbx73.Version(101),
			bfbx73.Name(""),
			bfbx73.MappingInformationType("ByVertice"),
			bfbx73.ReferenceInformationType("Direct"),
			bfbx73.Normals(normals),
		), "LayerElementNormal")
	}
	if haveColor {
		element(bfbx73.LayerElementColor(0).AddNodes(
			bfbx73.Version(101),
			bfbx73.Name(""),
			bfbx73.MappingInformationType("ByVertice"),
			bfbx73.ReferenceInformationType("Direct"),
			bfbx73.Colors(rgba),
		), "LayerElementColor")
	}
	if haveUV {
		element(bfbx73.LayerElementUV(0).AddNodes(
			bfbx73.Version(101),
			bfbx73.Name(""),
			bfbx73.MappingInformationType("ByVertice"),
			bfbx73.ReferenceInformationType("Direct"),
			bfbx73.UV(uv),
		), "LayerElementUV")
	}
	materials := bfbx73.LayerElementMaterial(0).AddNodes(
		bfbx73.Version(101),
		bfbx73.Name(""),
	)
	if len(surfaces) == 1 {
		materials.AddNodes(
			bfbx73.MappingInformationType("AllSame"),
			bfbx73.ReferenceInformationType("IndexToDirect"),
			bfbx73.Materials([]int32{0}),
		)
	} else {
		materials.AddNodes(
			bfbx73.MappingInformationType("ByPolygon"),
			bfbx73.ReferenceInformationType("IndexToDirect"),
			bfbx73.Materials(slots),
		)
	}
	element(materials, "LayerElementMaterial")
	geometry.AddNode(layer)

	e.f.AddObjects(geometry)
	return id
}

func (e *stateExporter) material(m *scene.Material) int64 {
	if m == nil {
		m = scene.DefaultMaterial()
	}
	if id, ok := e.materials[m]; ok {
		return id
	}
	id := e.f.GenerateId()
	e.materials[m] = id

	c := m.AlbedoColor
	props := bfbx73.Properties70().AddNodes(
		bfbx73.P("DiffuseColor", "Color", "", "A", float64(c[0]), float64(c[1]), float64(c[2])),
		bfbx73.P("DiffuseFactor", "Number", "", "A", float64(1)),
	)
	if m.EmissionEnergy > 0 {
		props.AddNodes(
			p3("EmissiveColor", "Color", "", m.Emission),
			bfbx73.P("EmissiveFactor", "Number", "", "A", float64(m.EmissionEnergy)),
		)
	}
	if c[3] < 1 {
		props.AddNode(bfbx73.P("TransparencyFactor", "Number", "", "A", float64(1-c[3])))
	}
	e.f.AddObjects(bfbx73.Material(id, fbxName(m.Name, "Material"), "").AddNodes(
		bfbx73.Version(102),
		bfbx73.ShadingModel("phong"),
		bfbx73.MultiLayer(0),
		props,
	))

	if t := m.AlbedoTexture; t != nil && len(t.Data) > 0 {
		e.f.AddExportFile(textureFileName(t), t.Data)
	}
	return id
}

// fbxName joins an object name, in the configured codepage, with its class.
func fbxName(name, class string) string {
	return string(utils.StringToBytes(name, false)) + "\x00\x01" + class
}

func textureFileName(t *scene.Texture) string {
	ext := ".bin"
	switch t.MimeType {
	case "image/png":
		ext = ".png"
	case "image/jpeg":
		ext = ".jpg"
	}
	name := t.Name
	if name == "" {
		name = fmt.Sprintf("texture_%p", t)
	}
	return name + ext
}
