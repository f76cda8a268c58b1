package fbx

import (
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/mogaika/scenedoc/errs"
	"github.com/mogaika/scenedoc/mesh"
	"github.com/mogaika/scenedoc/scene"
	"github.com/mogaika/scenedoc/state"
	"github.com/mogaika/scenedoc/utils"
	"github.com/mogaika/scenedoc/utils/logger"
)

func eulerXYZ(deg mgl32.Vec3) mgl32.Quat {
	return utils.EulerToQuat(utils.DegreeToRadiansV3(deg))
}

// modelRotation folds pre and post rotations into the local rotation.
func modelRotation(p Properties70) mgl32.Quat {
	pre := eulerXYZ(p.Vec3("PreRotation", mgl32.Vec3{}))
	post := eulerXYZ(p.Vec3("PostRotation", mgl32.Vec3{}))
	r := eulerXYZ(p.Vec3("Lcl Rotation", mgl32.Vec3{}))
	return pre.Mul(r).Mul(post.Inverse())
}

func hostMaterial(m *Material) *scene.Material {
	hm := scene.DefaultMaterial()
	hm.Name = m.Name
	c := m.Properties70.Vec3("DiffuseColor", mgl32.Vec3{1, 1, 1})
	f := float32(m.Properties70.Number("DiffuseFactor", 1))
	hm.AlbedoColor = mgl32.Vec4{c[0] * f, c[1] * f, c[2] * f, 1}
	if e := m.Properties70.Vec3("EmissiveColor", mgl32.Vec3{}); e != (mgl32.Vec3{}) {
		hm.Emission = e
		hm.EmissionEnergy = float32(m.Properties70.Number("EmissiveFactor", 1))
	}
	if t := m.Properties70.Number("TransparencyFactor", 0); t > 0 && t < 1 {
		hm.AlbedoColor[3] = float32(1 - t)
		hm.AlphaMode = scene.AlphaBlend
	}
	return hm
}

type converter struct {
	st *state.State

	nodes     map[int64]int
	geometry  map[int64]*Geometry
	material  map[int64]*Material
	meshes    map[int64]int
	materials map[int64]*scene.Material
}

// ToState appends one node per model and one mesh per referenced geometry.
// Parent links come from object to object connections; models connected to
// the scene root (id 0) become roots.
func (s *Scene) ToState(st *state.State) error {
	c := &converter{
		st:        st,
		nodes:     make(map[int64]int),
		geometry:  make(map[int64]*Geometry),
		material:  make(map[int64]*Material),
		meshes:    make(map[int64]int),
		materials: make(map[int64]*scene.Material),
	}
	for _, g := range s.Objects.Geometry {
		c.geometry[g.Id] = g
	}
	for _, m := range s.Objects.Material {
		c.material[m.Id] = m
	}
	for _, m := range s.Objects.Model {
		n := state.NewNode()
		n.Name = m.Name
		n.SetTRS(
			m.Properties70.Vec3("Lcl Translation", mgl32.Vec3{}),
			modelRotation(m.Properties70),
			m.Properties70.Vec3("Lcl Scaling", mgl32.Vec3{1, 1, 1}),
		)
		c.nodes[m.Id] = len(st.Nodes)
		st.Nodes = append(st.Nodes, n)
	}

	geometryOf := make(map[int64]int64)
	materialsOf := make(map[int64][]int64)
	for _, conn := range s.Connections.C {
		if conn.Type != "OO" {
			continue
		}
		parent, ok := c.nodes[conn.Parent]
		if !ok {
			continue
		}
		switch {
		case hasKey(c.nodes, conn.Child):
			st.Nodes[parent].Children = append(st.Nodes[parent].Children, c.nodes[conn.Child])
		case c.geometry[conn.Child] != nil:
			geometryOf[conn.Parent] = conn.Child
		case c.material[conn.Child] != nil:
			materialsOf[conn.Parent] = append(materialsOf[conn.Parent], conn.Child)
		}
	}

	for _, m := range s.Objects.Model {
		gid, ok := geometryOf[m.Id]
		if !ok {
			continue
		}
		g := c.geometry[gid]
		if g.Element != "Mesh" {
			continue
		}
		mi, err := c.mesh(g, materialsOf[m.Id])
		if err != nil {
			return err
		}
		st.Nodes[c.nodes[m.Id]].Mesh = mi
	}
	return nil
}

func hasKey(m map[int64]int, k int64) bool {
	_, ok := m[k]
	return ok
}

func (c *converter) hostMaterial(id int64) *scene.Material {
	if hm, ok := c.materials[id]; ok {
		return hm
	}
	hm := hostMaterial(c.material[id])
	c.materials[id] = hm
	c.st.Materials = append(c.st.Materials, hm)
	return hm
}

// layerIndex resolves the element of a layer for one polygon vertex.
func layerIndex(l *LayerElement, index []int32, pvi, vertex, poly int) (int, bool) {
	var i int
	switch l.MappingInformationType {
	case "ByPolygonVertex":
		i = pvi
	case "ByVertice", "ByVertex", "ByControlPoint":
		i = vertex
	case "ByPolygon":
		i = poly
	case "AllSame":
		i = 0
	default:
		return 0, false
	}
	if l.ReferenceInformationType == "IndexToDirect" || l.ReferenceInformationType == "Index" {
		if i >= len(index) {
			return 0, false
		}
		i = int(index[i])
	}
	return i, i >= 0
}

// mesh fan triangulates g, one surface per material slot in use. Polygon
// vertices are not shared, every corner gets its own vertex.
func (c *converter) mesh(g *Geometry, materials []int64) (int, error) {
	if mi, ok := c.meshes[g.Id]; ok {
		return mi, nil
	}
	vertexCount := len(g.Vertices) / 3
	var normals, uvs *LayerElement
	if len(g.LayerElementNormal) > 0 {
		normals = g.LayerElementNormal[0]
	}
	if len(g.LayerElementUV) > 0 {
		uvs = g.LayerElementUV[0]
	}

	var order []int
	surfaces := make(map[int]*scene.Surface)
	surface := func(slot int) *scene.Surface {
		s, ok := surfaces[slot]
		if !ok {
			s = &scene.Surface{Primitive: scene.PrimitiveTriangles}
			if slot >= 0 && slot < len(materials) {
				s.Material = c.hostMaterial(materials[slot])
			}
			surfaces[slot] = s
			order = append(order, slot)
		}
		return s
	}

	poly, start := 0, 0
	skipped := 0
	for pvi, raw := range g.PolygonVertexIndex {
		if raw >= 0 {
			continue
		}
		corners := g.PolygonVertexIndex[start : pvi+1]
		first := start
		start = pvi + 1
		if len(corners) < 3 {
			skipped++
			poly++
			continue
		}

		slot := 0
		if lm := g.LayerElementMaterial; lm != nil && len(lm.Materials) > 0 {
			if lm.MappingInformationType == "AllSame" {
				slot = int(lm.Materials[0])
			} else if poly < len(lm.Materials) {
				slot = int(lm.Materials[poly])
			}
		}
		s := surface(slot)
		base := len(s.Positions)
		for k, ci := range corners {
			v := int(ci)
			if v < 0 {
				v = int(^ci)
			}
			if v >= vertexCount {
				return -1, errs.Malformed("geometry %q polygon %d references vertex %d of %d", g.Name, poly, v, vertexCount)
			}
			s.Positions = append(s.Positions, mgl32.Vec3{float32(g.Vertices[v*3]), float32(g.Vertices[v*3+1]), float32(g.Vertices[v*3+2])})
			if normals != nil {
				n := mgl32.Vec3{0, 1, 0}
				if i, ok := layerIndex(normals, normals.NormalsIndex, first+k, v, poly); ok && i*3+2 < len(normals.Normals) {
					n = mgl32.Vec3{float32(normals.Normals[i*3]), float32(normals.Normals[i*3+1]), float32(normals.Normals[i*3+2])}
				}
				s.Normals = append(s.Normals, n)
			}
			if uvs != nil {
				var uv mgl32.Vec2
				if i, ok := layerIndex(uvs, uvs.UVIndex, first+k, v, poly); ok && i*2+1 < len(uvs.UV) {
					uv = mgl32.Vec2{float32(uvs.UV[i*2]), 1 - float32(uvs.UV[i*2+1])}
				}
				s.UV = append(s.UV, uv)
			}
		}
		for k := 1; k+1 < len(corners); k++ {
			s.Indices = append(s.Indices, base, base+k, base+k+1)
		}
		poly++
	}
	if start != len(g.PolygonVertexIndex) {
		return -1, errs.Malformed("geometry %q polygon list does not end with a closing index", g.Name)
	}
	if skipped > 0 {
		logger.L().Debug("skipped degenerate polygons", zap.String("stage", "fbx"), zap.String("geometry", g.Name), zap.Int("count", skipped))
	}

	hm := &scene.ImporterMesh{Name: g.Name}
	for _, slot := range order {
		s := surfaces[slot]
		mesh.FlipWinding(s.Indices)
		if s.Material == nil {
			s.Material = scene.DefaultMaterial()
		}
		hm.AddSurface(s)
	}

	mi := len(c.st.Meshes)
	c.st.Meshes = append(c.st.Meshes, &state.Mesh{Host: hm})
	c.meshes[g.Id] = mi
	return mi, nil
}
