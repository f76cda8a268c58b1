package extension

import (
	"encoding/json"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/mogaika/scenedoc/state"
	"github.com/mogaika/scenedoc/utils/logger"
)

const (
	unlitName            = "KHR_materials_unlit"
	specGlossName        = "KHR_materials_pbrSpecularGlossiness"
	emissiveStrengthName = "KHR_materials_emissive_strength"
	textureTransformName = "KHR_texture_transform"
)

// Materials applies the material extensions the host material can express.
// Texture transforms are accepted and ignored.
type Materials struct {
	Base
}

func init() {
	Default.Register(&Materials{}, false)
}

func (*Materials) Name() string { return "materials" }

func (*Materials) SupportedExtensions() []string {
	return []string{unlitName, specGlossName, emissiveStrengthName, textureTransformName}
}

// decodeRaw handles both raw payloads and ones already decoded into maps.
func decodeRaw(v interface{}, out interface{}) error {
	var data []byte
	switch p := v.(type) {
	case json.RawMessage:
		data = p
	case []byte:
		data = p
	default:
		var err error
		if data, err = json.Marshal(v); err != nil {
			return err
		}
	}
	return json.Unmarshal(data, out)
}

func (*Materials) ImportPostParse(st *state.State) error {
	if st.Doc == nil {
		return nil
	}
	for i, gm := range st.Doc.Materials {
		if i >= len(st.Materials) || st.Materials[i] == nil || gm.Extensions == nil {
			continue
		}
		m := st.Materials[i]
		if _, ok := gm.Extensions[unlitName]; ok {
			m.Unshaded = true
		}
		if raw, ok := gm.Extensions[emissiveStrengthName]; ok {
			var es struct {
				EmissiveStrength *float32 `json:"emissiveStrength"`
			}
			if err := decodeRaw(raw, &es); err != nil {
				logger.L().Warn("bad emissive strength", zap.String("stage", "materials"), zap.Int("material", i), zap.Error(err))
			} else if es.EmissiveStrength != nil {
				m.EmissionEnergy = *es.EmissiveStrength
			}
		}
		if raw, ok := gm.Extensions[specGlossName]; ok {
			sg := struct {
				DiffuseFactor    *[4]float32 `json:"diffuseFactor"`
				GlossinessFactor *float32    `json:"glossinessFactor"`
			}{}
			if err := decodeRaw(raw, &sg); err != nil {
				logger.L().Warn("bad specular glossiness", zap.String("stage", "materials"), zap.Int("material", i), zap.Error(err))
				continue
			}
			if sg.DiffuseFactor != nil {
				m.AlbedoColor = mgl32.Vec4(*sg.DiffuseFactor)
			}
			m.Metallic = 0
			m.Roughness = 0
			if sg.GlossinessFactor != nil {
				m.Roughness = 1 - *sg.GlossinessFactor
			}
		}
	}
	return nil
}

// ExportPost writes the unlit flag and emission strengths above one, which
// the core material can not carry.
func (*Materials) ExportPost(st *state.State, doc *gltf.Document) error {
	for i, m := range st.Materials {
		if i >= len(doc.Materials) {
			break
		}
		gm := doc.Materials[i]
		if m.Unshaded {
			if gm.Extensions == nil {
				gm.Extensions = make(gltf.Extensions)
			}
			gm.Extensions[unlitName] = map[string]interface{}{}
			st.AddExtensionUsed(unlitName, false)
		}
		if m.EmissionEnergy > 1 {
			if gm.Extensions == nil {
				gm.Extensions = make(gltf.Extensions)
			}
			gm.Extensions[emissiveStrengthName] = map[string]interface{}{"emissiveStrength": m.EmissionEnergy}
			st.AddExtensionUsed(emissiveStrengthName, false)
		}
	}
	return nil
}
