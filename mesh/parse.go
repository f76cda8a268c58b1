package mesh

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/mogaika/scenedoc/errs"
	"github.com/mogaika/scenedoc/scene"
	"github.com/mogaika/scenedoc/state"
	"github.com/mogaika/scenedoc/utils/logger"
)

func primitiveType(mode gltf.PrimitiveMode) scene.PrimitiveType {
	switch mode {
	case gltf.PrimitivePoints:
		return scene.PrimitivePoints
	case gltf.PrimitiveLines, gltf.PrimitiveLineLoop:
		return scene.PrimitiveLines
	case gltf.PrimitiveLineStrip:
		return scene.PrimitiveLineStrip
	case gltf.PrimitiveTriangleStrip:
		return scene.PrimitiveTriangleStrip
	default:
		// fans are imported as lists
		return scene.PrimitiveTriangles
	}
}

// TargetNames reads extras.targetNames of a mesh.
func TargetNames(extras interface{}) []string {
	m, ok := extras.(map[string]interface{})
	if !ok {
		return nil
	}
	list, ok := m["targetNames"].([]interface{})
	if !ok {
		return nil
	}
	names := make([]string, len(list))
	for i, v := range list {
		names[i], _ = v.(string)
	}
	return names
}

// ParseMeshes converts doc.Meshes into host meshes stored in st.Meshes.
// Materials must already be parsed unless st.DiscardMeshesAndMaterials is set.
func ParseMeshes(st *state.State, doc *gltf.Document) error {
	for i, m := range doc.Meshes {
		logger.L().Debug("parsing mesh", zap.String("stage", "meshes"), zap.Int("mesh", i))
		if len(m.Primitives) == 0 {
			return errs.Malformed("mesh %d has no primitives", i)
		}

		name := m.Name
		if name == "" {
			name = "mesh"
		}
		host := &scene.ImporterMesh{Name: st.GenUniqueName(fmt.Sprintf("%s_%s", st.SceneName, name))}
		targetNames := TargetNames(m.Extras)

		for j, p := range m.Primitives {
			if j == 0 && len(p.Targets) > 0 {
				for k := range p.Targets {
					bs := fmt.Sprintf("morph_%d", k)
					if k < len(targetNames) && targetNames[k] != "" {
						bs = targetNames[k]
					}
					host.AddBlendShape(bs)
				}
			}

			s, err := parsePrimitive(st, p)
			if err != nil {
				return errors.Wrapf(err, "mesh %d primitive %d", i, j)
			}
			if len(p.Targets) > 0 {
				host.BlendShapeMode = scene.BlendShapeNormalized
			}
			host.AddSurface(s)
		}

		weights := make([]float32, len(host.BlendShapes))
		copy(weights, m.Weights)
		st.Meshes = append(st.Meshes, &state.Mesh{Host: host, BlendWeights: weights})
	}

	logger.L().Debug("parsed meshes", zap.String("stage", "meshes"), zap.Int("count", len(st.Meshes)))
	return nil
}

func parsePrimitive(st *state.State, p *gltf.Primitive) (*scene.Surface, error) {
	a := p.Attributes
	s := &scene.Surface{Primitive: primitiveType(p.Mode)}
	store := st.Store

	posIdx, ok := a[gltf.POSITION]
	if !ok {
		return nil, errs.Malformed("primitive has no POSITION")
	}
	var err error
	if s.Positions, err = store.DecodeVec3(int(posIdx), true); err != nil {
		return nil, err
	}
	vertexCount := len(s.Positions)

	if idx, ok := a[gltf.NORMAL]; ok {
		if s.Normals, err = store.DecodeVec3(int(idx), true); err != nil {
			return nil, err
		}
	}
	if idx, ok := a[gltf.TANGENT]; ok {
		if s.Tangents, err = store.DecodeVec4(int(idx), true); err != nil {
			return nil, err
		}
	}
	if idx, ok := a[gltf.TEXCOORD_0]; ok {
		if s.UV, err = store.DecodeVec2(int(idx), true); err != nil {
			return nil, err
		}
	}
	if idx, ok := a[gltf.TEXCOORD_1]; ok {
		if s.UV2, err = store.DecodeVec2(int(idx), true); err != nil {
			return nil, err
		}
	}
	if err := parseCustomChannels(st, a, s, vertexCount); err != nil {
		return nil, err
	}

	hasVertexColor := false
	if idx, ok := a[gltf.COLOR_0]; ok {
		if s.Colors, err = store.DecodeColors(int(idx), true); err != nil {
			return nil, err
		}
		hasVertexColor = true
	}

	if err := parseSkinning(st, a, s, vertexCount); err != nil {
		return nil, err
	}

	if p.Indices != nil {
		if s.Indices, err = store.DecodeInts(int(*p.Indices), false); err != nil {
			return nil, err
		}
		if s.Primitive == scene.PrimitiveTriangles {
			FlipWinding(s.Indices)
		}
	} else if s.Primitive == scene.PrimitiveTriangles {
		if vertexCount == 0 {
			return nil, errs.Malformed("triangle primitive without vertices")
		}
		s.Indices = SequentialIndices(vertexCount)
	}

	_, hasTangent := a[gltf.TANGENT]
	generateTangents := s.Primitive == scene.PrimitiveTriangles && !hasTangent && s.UV != nil && s.Normals != nil
	if generateTangents {
		s.Tangents = GenerateTangents(s.Positions, s.Normals, s.UV, s.Indices)
	}

	for k, t := range p.Targets {
		bs, err := parseMorphTarget(st, t, s, generateTangents)
		if err != nil {
			return nil, errors.Wrapf(err, "target %d", k)
		}
		s.BlendShapes = append(s.BlendShapes, bs)
	}

	if !st.DiscardMeshesAndMaterials {
		if p.Material != nil {
			mi := int(*p.Material)
			if mi < 0 || mi >= len(st.Materials) || st.Materials[mi] == nil {
				return nil, errs.Malformed("material index %d out of range [0,%d)", mi, len(st.Materials))
			}
			s.Material = st.Materials[mi]
		} else {
			s.Material = scene.DefaultMaterial()
		}
		if hasVertexColor {
			s.Material.VertexColorUseAsAlbedo = true
		}
		s.Name = s.Material.Name
	}
	return s, nil
}

// parseCustomChannels packs TEXCOORD_2..7 pairwise into the three custom
// channels. A channel holds 2 floats per vertex, or 4 when the odd texcoord
// of its pair is present. Packing stops at the first empty pair.
func parseCustomChannels(st *state.State, a map[string]uint32, s *scene.Surface, vertexCount int) error {
	for c := 0; c < 3; c++ {
		var first, second []mgl32.Vec2
		channels := 0
		var err error
		if idx, ok := a[fmt.Sprintf("TEXCOORD_%d", 2+2*c)]; ok {
			if first, err = st.Store.DecodeVec2(int(idx), true); err != nil {
				return err
			}
			channels = 2
		}
		if idx, ok := a[fmt.Sprintf("TEXCOORD_%d", 3+2*c)]; ok {
			if second, err = st.Store.DecodeVec2(int(idx), true); err != nil {
				return err
			}
			channels = 4
		}
		if channels == 0 {
			break
		}

		custom := make([]float32, vertexCount*channels)
		for v := 0; v < vertexCount; v++ {
			if v < len(first) {
				custom[v*channels] = first[v][0]
				custom[v*channels+1] = first[v][1]
			}
			if channels == 4 && v < len(second) {
				custom[v*channels+2] = second[v][0]
				custom[v*channels+3] = second[v][1]
			}
		}
		s.Custom[c] = custom
		s.CustomFormat[c] = channels
	}
	return nil
}

func parseSkinning(st *state.State, a map[string]uint32, s *scene.Surface, vertexCount int) error {
	j0, hasJ0 := a[gltf.JOINTS_0]
	j1, hasJ1 := a["JOINTS_1"]
	w0, hasW0 := a[gltf.WEIGHTS_0]
	w1, hasW1 := a["WEIGHTS_1"]
	store := st.Store

	// The second group is only usable when both of its channels are present.
	if (hasJ1 || hasW1) && !(hasJ0 && hasJ1 && hasW0 && hasW1) {
		logger.L().Warn("incomplete second joint group ignored", zap.String("stage", "meshes"),
			zap.Bool("joints_1", hasJ1), zap.Bool("weights_1", hasW1))
		hasJ1, hasW1 = false, false
	}
	s.BoneCount = JointGroupSize
	if hasJ1 {
		s.BoneCount = JointGroupSize * 2
	}

	switch {
	case hasJ0 && hasJ1:
		a0, err := store.DecodeInts(int(j0), true)
		if err != nil {
			return err
		}
		a1, err := store.DecodeInts(int(j1), true)
		if err != nil {
			return err
		}
		if len(a0) != len(a1) {
			return errs.Malformed("JOINTS_0 has %d values, JOINTS_1 has %d", len(a0), len(a1))
		}
		s.Bones = MergeGroups(a0, a1, vertexCount)
	case hasJ0:
		bones, err := store.DecodeInts(int(j0), true)
		if err != nil {
			return err
		}
		s.Bones = bones
	}

	switch {
	case hasW0 && hasW1:
		a0, err := store.DecodeFloats(int(w0), true)
		if err != nil {
			return err
		}
		a1, err := store.DecodeFloats(int(w1), true)
		if err != nil {
			return err
		}
		if len(a0) != len(a1) {
			return errs.Malformed("WEIGHTS_0 has %d values, WEIGHTS_1 has %d", len(a0), len(a1))
		}
		s.Weights = MergeGroups(a0, a1, vertexCount)
		NormalizeWeights(s.Weights, JointGroupSize*2)
	case hasW0:
		weights, err := store.DecodeFloats(int(w0), true)
		if err != nil {
			return err
		}
		NormalizeWeights(weights, JointGroupSize)
		s.Weights = weights
	}
	return nil
}

// addDeltas returns base with the first len(delta) entries displaced.
func addDeltas(base, delta []mgl32.Vec3) []mgl32.Vec3 {
	out := make([]mgl32.Vec3, len(base))
	for i := range base {
		out[i] = base[i]
		if i < len(delta) {
			out[i] = out[i].Add(delta[i])
		}
	}
	return out
}

// parseMorphTarget turns the displacement target t into absolute arrays.
func parseMorphTarget(st *state.State, t map[string]uint32, s *scene.Surface, generateTangents bool) (scene.BlendShapeArrays, error) {
	bs := scene.BlendShapeArrays{Positions: s.Positions, Normals: s.Normals, Tangents: s.Tangents}

	if idx, ok := t[gltf.POSITION]; ok {
		delta, err := st.Store.DecodeVec3(int(idx), true)
		if err != nil {
			return bs, err
		}
		if len(s.Positions) == 0 {
			return bs, errs.Malformed("morph POSITION on a surface without positions")
		}
		bs.Positions = addDeltas(s.Positions, delta)
	}
	if idx, ok := t[gltf.NORMAL]; ok {
		delta, err := st.Store.DecodeVec3(int(idx), true)
		if err != nil {
			return bs, err
		}
		if len(s.Normals) == 0 {
			return bs, errs.Malformed("morph NORMAL on a surface without normals")
		}
		bs.Normals = addDeltas(s.Normals, delta)
	}
	if idx, ok := t[gltf.TANGENT]; ok {
		delta, err := st.Store.DecodeVec3(int(idx), true)
		if err != nil {
			return bs, err
		}
		if len(s.Tangents) == 0 {
			return bs, errs.Malformed("morph TANGENT on a surface without tangents")
		}
		bs.Tangents = make([]mgl32.Vec4, len(s.Tangents))
		for i, base := range s.Tangents {
			bs.Tangents[i] = base
			if i < len(delta) {
				bs.Tangents[i] = base.Vec3().Add(delta[i]).Vec4(base[3])
			}
		}
	} else if generateTangents {
		bs.Tangents = GenerateTangents(bs.Positions, bs.Normals, s.UV, s.Indices)
	}
	return bs, nil
}
